// Package sweeper periodically closes ACTIVE auctions whose end time has passed.
package sweeper

import (
	"context"
	"errors"
	"sync/atomic"
	"time"

	"auction-ledger/internal/metrics"
	"auction-ledger/internal/models"
	"auction-ledger/utils"

	"golang.org/x/sync/errgroup"
)

const (
	DefaultInterval    = 60 * time.Second
	DefaultConcurrency = 8
)

// Closer is the ledger surface the sweeper drives
type Closer interface {
	CloseAuction(ctx context.Context, auctionID string) (models.Transition, error)
	Now() time.Time
}

// ExpiredLister finds ACTIVE auctions ending at or before now
type ExpiredLister interface {
	ListExpired(ctx context.Context, now time.Time) ([]models.Auction, error)
}

// Notifier receives committed close transitions
type Notifier interface {
	Notify(tr models.Transition) int
}

// Sweeper closes expired auctions through the ledger
type Sweeper struct {
	closer      Closer
	lister      ExpiredLister
	notifier    Notifier
	interval    time.Duration
	concurrency int
}

// NewSweeper creates a Sweeper. Non-positive interval or concurrency fall back to defaults.
func NewSweeper(closer Closer, lister ExpiredLister, notifier Notifier, interval time.Duration, concurrency int) *Sweeper {
	if interval <= 0 {
		interval = DefaultInterval
	}
	if concurrency <= 0 {
		concurrency = DefaultConcurrency
	}
	return &Sweeper{
		closer:      closer,
		lister:      lister,
		notifier:    notifier,
		interval:    interval,
		concurrency: concurrency,
	}
}

// SweepOnce closes every auction that has expired by the ledger's clock and
// returns how many it moved to ENDED. A failure on one auction does not stop
// the others; the failures are joined into the returned error.
func (s *Sweeper) SweepOnce(ctx context.Context) (int, error) {
	now := s.closer.Now()
	expired, err := s.lister.ListExpired(ctx, now)
	if err != nil {
		metrics.SweepRuns.WithLabelValues("error").Inc()
		return 0, err
	}

	var (
		closed atomic.Int64
		failed = make([]error, len(expired))
	)

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(s.concurrency)
	for i, a := range expired {
		i, a := i, a
		g.Go(func() error {
			tr, err := s.closer.CloseAuction(gctx, a.AuctionID)
			if err != nil {
				failed[i] = err
				utils.Warn("sweeper: close failed", map[string]any{
					"auction_id": a.AuctionID,
					"error":      err.Error(),
				})
				return nil
			}
			if !tr.Changed {
				return nil
			}
			closed.Add(1)
			metrics.SweepClosed.Inc()
			if s.notifier != nil {
				s.notifier.Notify(tr)
			}
			return nil
		})
	}
	_ = g.Wait()

	err = errors.Join(failed...)
	result := "ok"
	if err != nil {
		result = "partial"
	}
	metrics.SweepRuns.WithLabelValues(result).Inc()

	if n := closed.Load(); n > 0 || err != nil {
		utils.Info("sweeper: pass complete", map[string]any{
			"expired": len(expired),
			"closed":  n,
			"failed":  err != nil,
		})
	}
	return int(closed.Load()), err
}

// Run sweeps once immediately and then on every tick until ctx is cancelled
func (s *Sweeper) Run(ctx context.Context) error {
	utils.Info("sweeper: started", map[string]any{
		"interval":    s.interval.String(),
		"concurrency": s.concurrency,
	})

	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	for {
		if _, err := s.SweepOnce(ctx); err != nil && ctx.Err() == nil {
			utils.Error("sweeper: pass failed", map[string]any{"error": err.Error()})
		}
		select {
		case <-ctx.Done():
			utils.Info("sweeper: stopped", nil)
			return nil
		case <-ticker.C:
		}
	}
}
