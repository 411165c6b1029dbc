package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// BidOutcomes counts placeBid results by outcome ("accepted" or a rejection reason)
	BidOutcomes = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "auction_bids_total",
		Help: "Bids processed by outcome",
	}, []string{"outcome"})

	Transitions = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "auction_transitions_total",
		Help: "Committed ledger transitions by kind",
	}, []string{"kind"})

	SwapConflicts = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "auction_swap_conflicts_total",
		Help: "Optimistic concurrency conflicts by operation",
	}, []string{"operation"})

	SweepRuns = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "auction_sweeps_total",
		Help: "Expiry sweeper runs by result",
	}, []string{"result"})

	SweepClosed = promauto.NewCounter(prometheus.CounterOpts{
		Name: "auction_sweep_closed_total",
		Help: "Auctions closed by the expiry sweeper",
	})

	Notifications = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "auction_notifications_total",
		Help: "Notification events by delivery result",
	}, []string{"result"})

	HTTPRequests = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "auction_http_requests_total",
		Help: "Total HTTP requests",
	}, []string{"method", "route", "status"})

	HTTPLatency = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "auction_http_request_duration_seconds",
		Help:    "Request latency",
		Buckets: []float64{0.005, 0.01, 0.05, 0.1, 0.5, 1},
	}, []string{"method", "route"})
)
