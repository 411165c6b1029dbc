// Package query serves read-only views of auctions and bids.
package query

import (
	"context"
	"fmt"
	"strings"
	"time"

	"auction-ledger/internal/models"
	"auction-ledger/internal/repository"
)

// Clock supplies the current time
type Clock interface {
	Now() time.Time
}

// Service answers auction and bid queries. It never mutates state.
type Service struct {
	store repository.AuctionStore
	clock Clock
}

// NewService creates a query Service over store
func NewService(store repository.AuctionStore, clock Clock) *Service {
	return &Service{store: store, clock: clock}
}

// ListActive returns ACTIVE auctions that have not yet reached their end time,
// newest first. Category matches exactly ignoring case; SearchText matches
// title or description ignoring case.
func (s *Service) ListActive(ctx context.Context, filter models.ListFilter) ([]models.Auction, error) {
	auctions, err := s.store.ListAuctions(ctx, repository.AuctionQuery{Status: models.StatusActive})
	if err != nil {
		return nil, fmt.Errorf("query: list active: %w", err)
	}

	now := s.clock.Now()
	category := strings.TrimSpace(filter.Category)
	search := strings.ToLower(strings.TrimSpace(filter.SearchText))

	out := make([]models.Auction, 0, len(auctions))
	for _, a := range auctions {
		if a.Expired(now) {
			continue
		}
		if category != "" && !strings.EqualFold(a.Category, category) {
			continue
		}
		if search != "" &&
			!strings.Contains(strings.ToLower(a.Title), search) &&
			!strings.Contains(strings.ToLower(a.Description), search) {
			continue
		}
		out = append(out, a)
	}
	repository.SortNewestFirst(out)
	return out, nil
}

// ListBySeller returns every auction of a seller regardless of status, newest first
func (s *Service) ListBySeller(ctx context.Context, sellerID string) ([]models.Auction, error) {
	auctions, err := s.store.ListAuctions(ctx, repository.AuctionQuery{SellerID: sellerID})
	if err != nil {
		return nil, fmt.Errorf("query: list seller %s: %w", sellerID, err)
	}
	repository.SortNewestFirst(auctions)
	return auctions, nil
}

// GetByID returns one auction
func (s *Service) GetByID(ctx context.Context, auctionID string) (models.Auction, error) {
	a, err := s.store.GetAuction(ctx, auctionID)
	if err != nil {
		return models.Auction{}, fmt.Errorf("query: get auction: %w", err)
	}
	return a, nil
}

// GetBidsForAuction returns an auction's accepted bids, highest first
func (s *Service) GetBidsForAuction(ctx context.Context, auctionID string) ([]models.Bid, error) {
	bids, err := s.store.GetBidsByAuction(ctx, auctionID)
	if err != nil {
		return nil, fmt.Errorf("query: bids for auction: %w", err)
	}
	// accepted amounts strictly increase, so reversing commit order sorts by amount
	out := make([]models.Bid, len(bids))
	for i, b := range bids {
		out[len(bids)-1-i] = b
	}
	return out, nil
}

// GetBidsByBidder returns a bidder's accepted bids, newest first
func (s *Service) GetBidsByBidder(ctx context.Context, bidderID string) ([]models.Bid, error) {
	bids, err := s.store.GetBidsByBidder(ctx, bidderID)
	if err != nil {
		return nil, fmt.Errorf("query: bids by bidder: %w", err)
	}
	return bids, nil
}
