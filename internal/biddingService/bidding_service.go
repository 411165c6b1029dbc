package bidding

import (
	"auction-ledger/internal/auctionerrors"
	"auction-ledger/internal/ledger"
	"auction-ledger/internal/metrics"
	"auction-ledger/internal/models"
	"auction-ledger/internal/query"
	"auction-ledger/internal/validator"
	"auction-ledger/utils"
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

// Notifier receives committed transitions for asynchronous delivery
type Notifier interface {
	Notify(tr models.Transition) int
}

// Inbox exposes delivered notifications per recipient
type Inbox interface {
	List(recipientID string) []models.Notification
	Unread(recipientID string) []models.Notification
	MarkRead(recipientID, notificationID string) (models.Notification, error)
}

// MaxDurationHours is the longest auction a seller may open (one year)
const MaxDurationHours = 24 * 365

// moneyPlaces is the number of decimal places amounts may carry
const moneyPlaces = 2

var minimumBid = decimal.NewFromInt(1)

// CreateAuctionInput holds seller-supplied fields of a new auction
type CreateAuctionInput struct {
	Title         string
	Description   string
	Category      string
	MinBid        decimal.Decimal
	DurationHours int
}

// BiddingService coordinates bidding use cases over the ledger
type BiddingService struct {
	ledger   *ledger.Ledger
	query    *query.Service
	notifier Notifier
	inbox    Inbox
}

// NewBiddingService creates a new BiddingService instance
func NewBiddingService(l *ledger.Ledger, q *query.Service, notifier Notifier, inbox Inbox) *BiddingService {
	return &BiddingService{
		ledger:   l,
		query:    q,
		notifier: notifier,
		inbox:    inbox,
	}
}

// CreateAuction opens a new auction owned by the caller
func (s *BiddingService) CreateAuction(ctx context.Context, seller models.Principal, in CreateAuctionInput) (models.Auction, error) {
	if seller.UserID == "" {
		return models.Auction{}, fmt.Errorf("service: %w - missing seller", auctionerrors.ErrUnknownUser)
	}
	if in.MinBid.LessThan(minimumBid) {
		return models.Auction{}, fmt.Errorf("service: %w - minimum bid must be at least 1", auctionerrors.ErrInvalidAuction)
	}
	if !wholeCents(in.MinBid) {
		return models.Auction{}, fmt.Errorf("service: %w - minimum bid has more than two decimal places", auctionerrors.ErrInvalidAuction)
	}
	if in.DurationHours < 1 || in.DurationHours > MaxDurationHours {
		return models.Auction{}, fmt.Errorf("service: %w - duration must be between 1 and %d hours", auctionerrors.ErrInvalidAuction, MaxDurationHours)
	}

	auction, err := s.ledger.CreateAuction(ctx, ledger.CreateRequest{
		SellerID:    seller.UserID,
		Title:       in.Title,
		Description: in.Description,
		Category:    in.Category,
		MinBid:      in.MinBid,
		Duration:    time.Duration(in.DurationHours) * time.Hour,
	})
	if err != nil {
		return models.Auction{}, fmt.Errorf("service: failed to create auction: %w", err)
	}

	utils.Info("auction created", map[string]any{
		"auction_id": auction.AuctionID,
		"seller_id":  auction.SellerID,
		"min_bid":    auction.MinBid.String(),
		"end_time":   auction.EndTime,
	})
	return auction, nil
}

// PlaceBid validates a bid against a fresh snapshot and commits it through
// the ledger. Rejections carry a reason readable with auctionerrors.ReasonOf.
func (s *BiddingService) PlaceBid(ctx context.Context, bidder models.Principal, auctionID string, amount decimal.Decimal) (models.Bid, error) {
	if strings.TrimSpace(auctionID) == "" || bidder.UserID == "" {
		return models.Bid{}, fmt.Errorf("service: %w - missing auctionID or bidder", auctionerrors.ErrInvalidBid)
	}
	if !amount.IsPositive() {
		return models.Bid{}, fmt.Errorf("service: %w - non-positive bid amount", auctionerrors.ErrInvalidBid)
	}
	if !wholeCents(amount) {
		return models.Bid{}, fmt.Errorf("service: %w - bid amount has more than two decimal places", auctionerrors.ErrInvalidBid)
	}

	snapshot, err := s.query.GetByID(ctx, auctionID)
	if err != nil {
		return models.Bid{}, fmt.Errorf("service: failed to read auction %s: %w", auctionID, err)
	}

	if decision := validator.Validate(snapshot, bidder.UserID, amount, s.ledger.Now()); !decision.Accepted() {
		recordBidOutcome(decision.Reason)
		return models.Bid{}, fmt.Errorf("service: %w - current bid is %s", decision.Err(), snapshot.CurrentBid.String())
	}

	tr, err := s.ledger.ApplyBid(ctx, auctionID, bidder.UserID, amount, snapshot.CurrentBid)
	if err != nil {
		if reason := auctionerrors.ReasonOf(err); reason != auctionerrors.ReasonNone {
			recordBidOutcome(reason)
		} else {
			metrics.BidOutcomes.WithLabelValues("error").Inc()
		}
		return models.Bid{}, fmt.Errorf("service: failed to place bid on %s by %s: %w", auctionID, bidder.UserID, err)
	}

	metrics.BidOutcomes.WithLabelValues("accepted").Inc()
	s.notifier.Notify(tr)
	return *tr.Bid, nil
}

// CloseAuction ends an auction ahead of the sweeper; only admins may do so
func (s *BiddingService) CloseAuction(ctx context.Context, actor models.Principal, auctionID string) (models.Auction, error) {
	if !actor.IsAdmin() {
		return models.Auction{}, fmt.Errorf("service: %w - only admins may close auctions", auctionerrors.ErrUnauthorized)
	}

	tr, err := s.ledger.CloseAuction(ctx, auctionID)
	if err != nil {
		return models.Auction{}, fmt.Errorf("service: failed to close auction %s: %w", auctionID, err)
	}
	s.notifier.Notify(tr)
	return tr.After, nil
}

// CancelAuction cancels an ACTIVE auction on behalf of its seller or an admin
func (s *BiddingService) CancelAuction(ctx context.Context, actor models.Principal, auctionID string) (models.Auction, error) {
	auction, err := s.query.GetByID(ctx, auctionID)
	if err != nil {
		return models.Auction{}, fmt.Errorf("service: failed to read auction %s: %w", auctionID, err)
	}
	if !actor.IsAdmin() && actor.UserID != auction.SellerID {
		return models.Auction{}, fmt.Errorf("service: %w - only the seller or an admin may cancel", auctionerrors.ErrUnauthorized)
	}

	tr, err := s.ledger.CancelAuction(ctx, auctionID, actor.UserID)
	if err != nil {
		return models.Auction{}, fmt.Errorf("service: failed to cancel auction %s: %w", auctionID, err)
	}
	s.notifier.Notify(tr)
	return tr.After, nil
}

// ListActive returns open auctions matching filter
func (s *BiddingService) ListActive(ctx context.Context, filter models.ListFilter) ([]models.Auction, error) {
	auctions, err := s.query.ListActive(ctx, filter)
	if err != nil {
		return nil, fmt.Errorf("service: failed to list auctions: %w", err)
	}
	return auctions, nil
}

// GetAuction returns a single auction
func (s *BiddingService) GetAuction(ctx context.Context, auctionID string) (models.Auction, error) {
	if auctionID == "" {
		return models.Auction{}, fmt.Errorf("service: %w - empty auction ID", auctionerrors.ErrInvalidBid)
	}
	return s.query.GetByID(ctx, auctionID)
}

// ListBySeller returns every auction of a seller
func (s *BiddingService) ListBySeller(ctx context.Context, sellerID string) ([]models.Auction, error) {
	if sellerID == "" {
		return nil, fmt.Errorf("service: %w - empty seller ID", auctionerrors.ErrInvalidAuction)
	}
	auctions, err := s.query.ListBySeller(ctx, sellerID)
	if err != nil {
		return nil, fmt.Errorf("service: failed to list auctions for seller %s: %w", sellerID, err)
	}
	return auctions, nil
}

// GetBidsForAuction returns all accepted bids on an auction
func (s *BiddingService) GetBidsForAuction(ctx context.Context, auctionID string) ([]models.Bid, error) {
	if auctionID == "" {
		return nil, fmt.Errorf("service: %w - empty auction ID", auctionerrors.ErrInvalidBid)
	}
	bids, err := s.query.GetBidsForAuction(ctx, auctionID)
	if err != nil {
		return nil, fmt.Errorf("service: failed to get bids for auction %s: %w", auctionID, err)
	}
	return bids, nil
}

// GetBidsByBidder returns all accepted bids placed by a user
func (s *BiddingService) GetBidsByBidder(ctx context.Context, bidderID string) ([]models.Bid, error) {
	if bidderID == "" {
		return nil, fmt.Errorf("service: %w - empty user ID", auctionerrors.ErrInvalidBid)
	}
	bids, err := s.query.GetBidsByBidder(ctx, bidderID)
	if err != nil {
		return nil, fmt.Errorf("service: failed to get bids for user %s: %w", bidderID, err)
	}
	return bids, nil
}

// Notifications returns a user's inbox; users may read only their own
func (s *BiddingService) Notifications(actor models.Principal, userID string) ([]models.Notification, error) {
	if err := canReadInbox(actor, userID); err != nil {
		return nil, err
	}
	if s.inbox == nil {
		return []models.Notification{}, nil
	}
	return s.inbox.List(userID), nil
}

// UnreadNotifications returns the user's notifications not yet marked read
func (s *BiddingService) UnreadNotifications(actor models.Principal, userID string) ([]models.Notification, error) {
	if err := canReadInbox(actor, userID); err != nil {
		return nil, err
	}
	if s.inbox == nil {
		return []models.Notification{}, nil
	}
	return s.inbox.Unread(userID), nil
}

// MarkNotificationRead flags one notification in the user's inbox as read
func (s *BiddingService) MarkNotificationRead(actor models.Principal, userID, notificationID string) (models.Notification, error) {
	if err := canReadInbox(actor, userID); err != nil {
		return models.Notification{}, err
	}
	if s.inbox == nil {
		return models.Notification{}, fmt.Errorf("service: %w - %s", auctionerrors.ErrNotificationNotFound, notificationID)
	}
	n, err := s.inbox.MarkRead(userID, notificationID)
	if err != nil {
		return models.Notification{}, fmt.Errorf("service: failed to mark notification read: %w", err)
	}
	return n, nil
}

func canReadInbox(actor models.Principal, userID string) error {
	if actor.UserID == "" {
		return fmt.Errorf("service: %w - missing caller", auctionerrors.ErrUnknownUser)
	}
	if !actor.IsAdmin() && actor.UserID != userID {
		return fmt.Errorf("service: %w - cannot access another user's notifications", auctionerrors.ErrUnauthorized)
	}
	return nil
}

// wholeCents reports whether d carries no more than two decimal places
func wholeCents(d decimal.Decimal) bool {
	return d.Equal(d.Round(moneyPlaces))
}

func recordBidOutcome(reason auctionerrors.Reason) {
	metrics.BidOutcomes.WithLabelValues(string(reason)).Inc()
	utils.Debug("bid rejected", map[string]any{"reason": string(reason)})
}
