// Package notifier turns committed ledger transitions into addressed
// notification events and hands them to a delivery channel asynchronously.
package notifier

import (
	"context"
	"fmt"
	"time"

	"auction-ledger/internal/metrics"
	"auction-ledger/internal/models"
	"auction-ledger/utils"
)

// DefaultBuffer is the queue size used when none is configured
const DefaultBuffer = 1024

// publishTimeout bounds a single delivery attempt
const publishTimeout = 5 * time.Second

// Publisher delivers one notification to a channel
type Publisher interface {
	Publish(ctx context.Context, n models.Notification) error
}

// Notifier derives notifications and queues them for delivery. Enqueueing
// never blocks, so ledger operations are unaffected by delivery failures.
type Notifier struct {
	publisher Publisher
	queue     chan models.Notification
	now       func() time.Time
	newID     func() string
}

// NewNotifier creates a Notifier delivering through publisher
func NewNotifier(publisher Publisher, buffer int) *Notifier {
	if buffer <= 0 {
		buffer = DefaultBuffer
	}
	return &Notifier{
		publisher: publisher,
		queue:     make(chan models.Notification, buffer),
		now:       func() time.Time { return time.Now().UTC() },
		newID:     utils.GenerateID,
	}
}

// Derive maps a transition to the notifications it produces. Unchanged
// transitions produce none.
func (n *Notifier) Derive(tr models.Transition) []models.Notification {
	if !tr.Changed {
		return nil
	}

	a := tr.After
	var out []models.Notification
	add := func(typ models.NotificationType, recipient, message string) {
		if recipient == "" {
			return
		}
		out = append(out, models.Notification{
			NotificationID: n.newID(),
			Type:           typ,
			RecipientID:    recipient,
			AuctionID:      a.AuctionID,
			Message:        message,
			Timestamp:      n.now(),
		})
	}

	switch tr.Kind {
	case models.TransitionBid:
		prev := tr.Before.CurrentBidderID
		if prev != "" && prev != a.CurrentBidderID {
			add(models.NotificationNewBid, prev,
				fmt.Sprintf("You have been outbid on %q. The current bid is %s.", a.Title, a.CurrentBid.StringFixed(2)))
		}
		add(models.NotificationNewBid, a.SellerID,
			fmt.Sprintf("New bid of %s on your auction %q.", a.CurrentBid.StringFixed(2), a.Title))

	case models.TransitionClose:
		if a.HasBidder() {
			add(models.NotificationWon, a.CurrentBidderID,
				fmt.Sprintf("Congratulations! You won %q with a bid of %s.", a.Title, a.CurrentBid.StringFixed(2)))
			add(models.NotificationEnded, a.SellerID,
				fmt.Sprintf("Your auction %q has ended and sold to %s for %s.", a.Title, a.CurrentBidderID, a.CurrentBid.StringFixed(2)))
		} else {
			add(models.NotificationEnded, a.SellerID,
				fmt.Sprintf("Your auction %q has ended without any bids.", a.Title))
		}

	case models.TransitionCancel:
		notified := make(map[string]bool)
		bidders := append([]string(nil), tr.Bidders...)
		if a.HasBidder() {
			bidders = append(bidders, a.CurrentBidderID)
		}
		for _, bidder := range bidders {
			if notified[bidder] || bidder == a.SellerID {
				continue
			}
			notified[bidder] = true
			add(models.NotificationCancelled, bidder,
				fmt.Sprintf("The auction %q you bid on has been cancelled.", a.Title))
		}
		add(models.NotificationCancelled, a.SellerID,
			fmt.Sprintf("Your auction %q has been cancelled.", a.Title))
	}
	return out
}

// Notify derives notifications for tr and queues them without blocking.
// It returns how many were queued; the rest were dropped.
func (n *Notifier) Notify(tr models.Transition) int {
	queued := 0
	for _, note := range n.Derive(tr) {
		select {
		case n.queue <- note:
			queued++
		default:
			metrics.Notifications.WithLabelValues("dropped").Inc()
			utils.Warn("notifier: queue full, dropping notification", map[string]any{
				"type":         note.Type,
				"recipient_id": note.RecipientID,
				"auction_id":   note.AuctionID,
			})
		}
	}
	return queued
}

// Run delivers queued notifications until ctx is cancelled, then drains
// whatever is still buffered.
func (n *Notifier) Run(ctx context.Context) error {
	for {
		select {
		case note := <-n.queue:
			n.deliver(ctx, note)
		case <-ctx.Done():
			n.drain()
			return nil
		}
	}
}

func (n *Notifier) drain() {
	ctx, cancel := context.WithTimeout(context.Background(), publishTimeout)
	defer cancel()
	for {
		select {
		case note := <-n.queue:
			n.deliver(ctx, note)
		default:
			return
		}
	}
}

func (n *Notifier) deliver(ctx context.Context, note models.Notification) {
	pctx, cancel := context.WithTimeout(ctx, publishTimeout)
	defer cancel()

	if err := n.publisher.Publish(pctx, note); err != nil {
		metrics.Notifications.WithLabelValues("failed").Inc()
		utils.Warn("notifier: delivery failed", map[string]any{
			"type":         note.Type,
			"recipient_id": note.RecipientID,
			"auction_id":   note.AuctionID,
			"error":        err.Error(),
		})
		return
	}
	metrics.Notifications.WithLabelValues("delivered").Inc()
}
