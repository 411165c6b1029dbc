package repository

//go:generate mockgen -source=repository.go -destination=mock_repository.go -package=repository

import (
	"auction-ledger/internal/auctionerrors"
	model "auction-ledger/internal/models"
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/google/btree"
)

// AuctionQuery selects auctions by stored fields. Zero values match everything.
type AuctionQuery struct {
	Status   model.Status
	SellerID string
}

// AuctionStore is the persistence substrate of the ledger. CompareAndSwap is the
// only way to change an existing auction and must be atomic per auction.
type AuctionStore interface {
	CreateAuction(ctx context.Context, auction model.Auction) error
	GetAuction(ctx context.Context, auctionID string) (model.Auction, error)
	// CompareAndSwap replaces the auction only if its stored version equals
	// expectedVersion, appending bid in the same step when non-nil.
	CompareAndSwap(ctx context.Context, expectedVersion int64, next model.Auction, bid *model.Bid) error
	ListAuctions(ctx context.Context, q AuctionQuery) ([]model.Auction, error)
	// ListExpired returns ACTIVE auctions whose end time is at or before now
	ListExpired(ctx context.Context, now time.Time) ([]model.Auction, error)
	GetBidsByAuction(ctx context.Context, auctionID string) ([]model.Bid, error)
	GetBidsByBidder(ctx context.Context, bidderID string) ([]model.Bid, error)
}

// expiryKey orders active auctions by end time for sweeper scans
type expiryKey struct {
	endTime   time.Time
	auctionID string
}

func expiryLess(a, b expiryKey) bool {
	if a.endTime.Equal(b.endTime) {
		return a.auctionID < b.auctionID
	}
	return a.endTime.Before(b.endTime)
}

// MemoryRepo is a concurrency-safe in-memory implementation of AuctionStore
type MemoryRepo struct {
	mu         sync.RWMutex
	auctions   map[string]model.Auction // key: auctionID -> value: auction
	bids       map[string][]model.Bid   // key: auctionID -> value: bids in commit order
	bidderBids map[string][]model.Bid   // key: bidderID -> value: bids in commit order
	expiry     *btree.BTreeG[expiryKey] // ACTIVE auctions only
}

// NewMemoryRepo creates a new in-memory repository instance
func NewMemoryRepo() *MemoryRepo {
	return &MemoryRepo{
		auctions:   make(map[string]model.Auction),
		bids:       make(map[string][]model.Bid),
		bidderBids: make(map[string][]model.Bid),
		expiry:     btree.NewG(16, expiryLess),
	}
}

// CreateAuction stores a new auction
func (r *MemoryRepo) CreateAuction(_ context.Context, auction model.Auction) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if auction.AuctionID == "" {
		return fmt.Errorf("create auction: %w - empty auction ID", auctionerrors.ErrInvalidAuction)
	}
	if _, ok := r.auctions[auction.AuctionID]; ok {
		return fmt.Errorf("create auction %s: %w", auction.AuctionID, auctionerrors.ErrDuplicateID)
	}

	r.auctions[auction.AuctionID] = auction
	if auction.Status == model.StatusActive {
		r.expiry.ReplaceOrInsert(expiryKey{endTime: auction.EndTime, auctionID: auction.AuctionID})
	}
	return nil
}

// GetAuction returns a snapshot of a single auction
func (r *MemoryRepo) GetAuction(_ context.Context, auctionID string) (model.Auction, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	auction, ok := r.auctions[auctionID]
	if !ok {
		return model.Auction{}, fmt.Errorf("get auction %s: %w", auctionID, auctionerrors.ErrAuctionNotFound)
	}
	return auction, nil
}

// CompareAndSwap atomically replaces an auction if its version is unchanged
func (r *MemoryRepo) CompareAndSwap(_ context.Context, expectedVersion int64, next model.Auction, bid *model.Bid) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	current, ok := r.auctions[next.AuctionID]
	if !ok {
		return fmt.Errorf("swap auction %s: %w", next.AuctionID, auctionerrors.ErrAuctionNotFound)
	}
	if current.Version != expectedVersion {
		return fmt.Errorf("swap auction %s: version %d, expected %d: %w",
			next.AuctionID, current.Version, expectedVersion, auctionerrors.ErrStaleSnapshot)
	}
	if bid != nil && bid.AuctionID != next.AuctionID {
		return fmt.Errorf("swap auction %s: %w - bid belongs to %s", next.AuctionID, auctionerrors.ErrInvalidBid, bid.AuctionID)
	}

	r.auctions[next.AuctionID] = next
	if current.Status == model.StatusActive && next.Status != model.StatusActive {
		r.expiry.Delete(expiryKey{endTime: current.EndTime, auctionID: current.AuctionID})
	}
	if bid != nil {
		r.bids[bid.AuctionID] = append(r.bids[bid.AuctionID], *bid)
		r.bidderBids[bid.BidderID] = append(r.bidderBids[bid.BidderID], *bid)
	}
	return nil
}

// ListAuctions returns auctions matching q, newest first
func (r *MemoryRepo) ListAuctions(_ context.Context, q AuctionQuery) ([]model.Auction, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	auctions := make([]model.Auction, 0, len(r.auctions))
	for _, a := range r.auctions {
		if q.Status != "" && a.Status != q.Status {
			continue
		}
		if q.SellerID != "" && a.SellerID != q.SellerID {
			continue
		}
		auctions = append(auctions, a)
	}
	SortNewestFirst(auctions)
	return auctions, nil
}

// ListExpired walks the end-time index up to and including now
func (r *MemoryRepo) ListExpired(_ context.Context, now time.Time) ([]model.Auction, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	var expired []model.Auction
	r.expiry.AscendLessThan(expiryKey{endTime: now.Add(time.Nanosecond)}, func(k expiryKey) bool {
		if a, ok := r.auctions[k.auctionID]; ok && a.Status == model.StatusActive {
			expired = append(expired, a)
		}
		return true
	})
	return expired, nil
}

// GetBidsByAuction returns all accepted bids for an auction in commit order
func (r *MemoryRepo) GetBidsByAuction(_ context.Context, auctionID string) ([]model.Bid, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	if _, ok := r.auctions[auctionID]; !ok {
		return nil, fmt.Errorf("get bids for auction %s: %w", auctionID, auctionerrors.ErrAuctionNotFound)
	}
	return append([]model.Bid{}, r.bids[auctionID]...), nil
}

// GetBidsByBidder returns all accepted bids placed by a user, newest first
func (r *MemoryRepo) GetBidsByBidder(_ context.Context, bidderID string) ([]model.Bid, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	src := r.bidderBids[bidderID]
	bids := make([]model.Bid, len(src))
	for i, b := range src {
		bids[len(src)-1-i] = b
	}
	return bids, nil
}

// SortNewestFirst orders auctions by creation time descending, ties broken by ID
func SortNewestFirst(auctions []model.Auction) {
	sort.SliceStable(auctions, func(i, j int) bool {
		if auctions[i].CreatedAt.Equal(auctions[j].CreatedAt) {
			return auctions[i].AuctionID < auctions[j].AuctionID
		}
		return auctions[i].CreatedAt.After(auctions[j].CreatedAt)
	})
}
