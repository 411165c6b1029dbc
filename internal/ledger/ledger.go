// Package ledger is the sole writer of auction state. Every transition is
// committed through the store's version compare-and-swap.
package ledger

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"auction-ledger/internal/auctionerrors"
	"auction-ledger/internal/metrics"
	"auction-ledger/internal/models"
	"auction-ledger/internal/repository"
	"auction-ledger/internal/validator"
	"auction-ledger/utils"

	"github.com/shopspring/decimal"
)

// DefaultSwapAttempts bounds the re-read loop of close and cancel
const DefaultSwapAttempts = 5

// Clock supplies the current time
type Clock interface {
	Now() time.Time
}

// SystemClock reads the wall clock in UTC
type SystemClock struct{}

func (SystemClock) Now() time.Time { return time.Now().UTC() }

// CreateRequest holds the seller-supplied fields of a new auction
type CreateRequest struct {
	SellerID    string
	Title       string
	Description string
	Category    string
	MinBid      decimal.Decimal
	Duration    time.Duration
}

// Ledger owns auction state transitions
type Ledger struct {
	store        repository.AuctionStore
	clock        Clock
	newID        func() string
	swapAttempts int
}

// Option customizes a Ledger
type Option func(*Ledger)

// WithIDGenerator replaces the UUID generator
func WithIDGenerator(fn func() string) Option {
	return func(l *Ledger) { l.newID = fn }
}

// WithSwapAttempts sets how many times close and cancel re-read after a conflict
func WithSwapAttempts(n int) Option {
	return func(l *Ledger) {
		if n > 0 {
			l.swapAttempts = n
		}
	}
}

// NewLedger creates a Ledger over store
func NewLedger(store repository.AuctionStore, clock Clock, opts ...Option) *Ledger {
	if clock == nil {
		clock = SystemClock{}
	}
	l := &Ledger{
		store:        store,
		clock:        clock,
		newID:        utils.GenerateID,
		swapAttempts: DefaultSwapAttempts,
	}
	for _, opt := range opts {
		opt(l)
	}
	return l
}

// Now exposes the ledger clock to collaborators that must agree with it
func (l *Ledger) Now() time.Time {
	return l.clock.Now()
}

// CreateAuction establishes a new ACTIVE auction with currentBid = minBid and no bidder
func (l *Ledger) CreateAuction(ctx context.Context, req CreateRequest) (models.Auction, error) {
	title := strings.TrimSpace(req.Title)
	switch {
	case req.SellerID == "":
		return models.Auction{}, fmt.Errorf("ledger: %w - missing seller", auctionerrors.ErrInvalidAuction)
	case title == "":
		return models.Auction{}, fmt.Errorf("ledger: %w - missing title", auctionerrors.ErrInvalidAuction)
	case !req.MinBid.IsPositive():
		return models.Auction{}, fmt.Errorf("ledger: %w - minimum bid must be positive", auctionerrors.ErrInvalidAuction)
	case req.Duration <= 0:
		return models.Auction{}, fmt.Errorf("ledger: %w - duration must be positive", auctionerrors.ErrInvalidAuction)
	}

	now := l.clock.Now()
	auction := models.Auction{
		AuctionID:   l.newID(),
		SellerID:    req.SellerID,
		Title:       title,
		Description: strings.TrimSpace(req.Description),
		Category:    strings.TrimSpace(req.Category),
		MinBid:      req.MinBid,
		CurrentBid:  req.MinBid,
		Status:      models.StatusActive,
		EndTime:     now.Add(req.Duration),
		CreatedAt:   now,
		UpdatedAt:   now,
	}

	if err := l.store.CreateAuction(ctx, auction); err != nil {
		return models.Auction{}, fmt.Errorf("ledger: create auction for seller %s: %w", req.SellerID, err)
	}
	return auction, nil
}

// ApplyBid re-reads the auction, re-validates the bid against the fresh state
// and commits it only if the current bid still equals expectedCurrentBid and
// the version is unchanged at write time. It never retries.
func (l *Ledger) ApplyBid(ctx context.Context, auctionID, bidderID string, amount, expectedCurrentBid decimal.Decimal) (models.Transition, error) {
	current, err := l.store.GetAuction(ctx, auctionID)
	if err != nil {
		return models.Transition{}, fmt.Errorf("ledger: apply bid: %w", err)
	}

	now := l.clock.Now()
	if decision := validator.Validate(current, bidderID, amount, now); !decision.Accepted() {
		return models.Transition{}, fmt.Errorf("ledger: apply bid on %s: %w - current bid is %s",
			auctionID, decision.Err(), current.CurrentBid.String())
	}
	if !current.CurrentBid.Equal(expectedCurrentBid) {
		metrics.SwapConflicts.WithLabelValues("bid").Inc()
		return models.Transition{}, fmt.Errorf("ledger: apply bid on %s: %w - read %s, now %s",
			auctionID, auctionerrors.ErrStaleSnapshot, expectedCurrentBid.String(), current.CurrentBid.String())
	}

	next := current
	next.CurrentBid = amount
	next.CurrentBidderID = bidderID
	next.UpdatedAt = now
	next.Version = current.Version + 1

	bid := &models.Bid{
		BidID:     l.newID(),
		AuctionID: auctionID,
		BidderID:  bidderID,
		Amount:    amount,
		CreatedAt: now,
	}

	if err := l.store.CompareAndSwap(ctx, current.Version, next, bid); err != nil {
		if errors.Is(err, auctionerrors.ErrStaleSnapshot) {
			metrics.SwapConflicts.WithLabelValues("bid").Inc()
		}
		return models.Transition{}, fmt.Errorf("ledger: apply bid on %s: %w", auctionID, err)
	}

	metrics.Transitions.WithLabelValues(string(models.TransitionBid)).Inc()
	return models.Transition{
		Kind:    models.TransitionBid,
		Before:  current,
		After:   next,
		Bid:     bid,
		Changed: true,
	}, nil
}

// CloseAuction moves an ACTIVE auction to ENDED. Closing an ENDED auction
// returns it unchanged; closing a CANCELLED auction fails.
func (l *Ledger) CloseAuction(ctx context.Context, auctionID string) (models.Transition, error) {
	return l.terminate(ctx, auctionID, models.TransitionClose, func(current models.Auction) (bool, error) {
		switch current.Status {
		case models.StatusEnded:
			return false, nil
		case models.StatusCancelled:
			return false, fmt.Errorf("ledger: close %s: %w - auction was cancelled", auctionID, auctionerrors.ErrAuctionNotActive)
		}
		return true, nil
	})
}

// CancelAuction moves an ACTIVE auction to CANCELLED. Whether actorID may do
// so is decided by the caller.
func (l *Ledger) CancelAuction(ctx context.Context, auctionID, actorID string) (models.Transition, error) {
	tr, err := l.terminate(ctx, auctionID, models.TransitionCancel, func(current models.Auction) (bool, error) {
		if current.Status != models.StatusActive {
			return false, fmt.Errorf("ledger: cancel %s: %w - status is %s", auctionID, auctionerrors.ErrAuctionNotActive, current.Status)
		}
		return true, nil
	})
	if err != nil {
		return tr, err
	}

	tr.Bidders = l.bidders(ctx, tr.After)
	utils.Info("auction cancelled", map[string]any{
		"auction_id": auctionID,
		"actor_id":   actorID,
		"bidders":    len(tr.Bidders),
	})
	return tr, nil
}

// terminate runs a terminal transition, re-reading on version conflicts
func (l *Ledger) terminate(ctx context.Context, auctionID string, kind models.TransitionKind,
	allowed func(models.Auction) (bool, error)) (models.Transition, error) {

	target := models.StatusEnded
	if kind == models.TransitionCancel {
		target = models.StatusCancelled
	}

	var lastErr error
	for attempt := 0; attempt < l.swapAttempts; attempt++ {
		current, err := l.store.GetAuction(ctx, auctionID)
		if err != nil {
			return models.Transition{}, fmt.Errorf("ledger: %s: %w", kind, err)
		}

		proceed, err := allowed(current)
		if err != nil {
			return models.Transition{}, err
		}
		if !proceed {
			return models.Transition{Kind: kind, Before: current, After: current}, nil
		}

		next := current
		next.Status = target
		next.UpdatedAt = l.clock.Now()
		next.Version = current.Version + 1

		err = l.store.CompareAndSwap(ctx, current.Version, next, nil)
		if err == nil {
			metrics.Transitions.WithLabelValues(string(kind)).Inc()
			return models.Transition{Kind: kind, Before: current, After: next, Changed: true}, nil
		}
		if !errors.Is(err, auctionerrors.ErrStaleSnapshot) {
			return models.Transition{}, fmt.Errorf("ledger: %s %s: %w", kind, auctionID, err)
		}
		metrics.SwapConflicts.WithLabelValues(string(kind)).Inc()
		lastErr = err
	}
	return models.Transition{}, fmt.Errorf("ledger: %s %s: gave up after %d attempts: %w", kind, auctionID, l.swapAttempts, lastErr)
}

// bidders lists the distinct bidders of an auction in order of first bid
func (l *Ledger) bidders(ctx context.Context, auction models.Auction) []string {
	bids, err := l.store.GetBidsByAuction(ctx, auction.AuctionID)
	if err != nil {
		utils.Warn("ledger: could not load bidders", map[string]any{"auction_id": auction.AuctionID, "error": err.Error()})
		if auction.HasBidder() {
			return []string{auction.CurrentBidderID}
		}
		return nil
	}
	seen := make(map[string]bool, len(bids))
	var bidders []string
	for _, b := range bids {
		if !seen[b.BidderID] {
			seen[b.BidderID] = true
			bidders = append(bidders, b.BidderID)
		}
	}
	return bidders
}
