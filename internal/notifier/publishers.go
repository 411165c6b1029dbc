package notifier

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"

	"auction-ledger/internal/auctionerrors"
	"auction-ledger/internal/models"
	"auction-ledger/utils"

	"github.com/go-redis/redis/v9"
)

// FanOut delivers to every publisher and joins their errors
type FanOut []Publisher

func (f FanOut) Publish(ctx context.Context, n models.Notification) error {
	var errs []error
	for _, p := range f {
		if err := p.Publish(ctx, n); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// LogPublisher writes notifications to the structured log
type LogPublisher struct{}

func (LogPublisher) Publish(_ context.Context, n models.Notification) error {
	utils.Info("notification", map[string]any{
		"notification_id": n.NotificationID,
		"type":            n.Type,
		"recipient_id":    n.RecipientID,
		"auction_id":      n.AuctionID,
		"message":         n.Message,
	})
	return nil
}

// DefaultInboxSize caps how many notifications each recipient keeps
const DefaultInboxSize = 100

// Inbox keeps the most recent notifications per recipient in memory
type Inbox struct {
	mu      sync.RWMutex
	limit   int
	entries map[string][]models.Notification // key: recipientID -> oldest first
}

// NewInbox creates an Inbox holding up to limit notifications per recipient
func NewInbox(limit int) *Inbox {
	if limit <= 0 {
		limit = DefaultInboxSize
	}
	return &Inbox{limit: limit, entries: make(map[string][]models.Notification)}
}

// Publish appends n to its recipient's inbox, evicting the oldest entry when full
func (i *Inbox) Publish(_ context.Context, n models.Notification) error {
	i.mu.Lock()
	defer i.mu.Unlock()

	list := append(i.entries[n.RecipientID], n)
	if len(list) > i.limit {
		list = append([]models.Notification(nil), list[len(list)-i.limit:]...)
	}
	i.entries[n.RecipientID] = list
	return nil
}

// List returns a recipient's notifications, newest first
func (i *Inbox) List(recipientID string) []models.Notification {
	i.mu.RLock()
	defer i.mu.RUnlock()

	src := i.entries[recipientID]
	out := make([]models.Notification, len(src))
	for idx, n := range src {
		out[len(src)-1-idx] = n
	}
	return out
}

// Unread returns a recipient's unread notifications, newest first
func (i *Inbox) Unread(recipientID string) []models.Notification {
	all := i.List(recipientID)
	out := make([]models.Notification, 0, len(all))
	for _, n := range all {
		if !n.Read {
			out = append(out, n)
		}
	}
	return out
}

// MarkRead flags one of the recipient's notifications as read and returns it
func (i *Inbox) MarkRead(recipientID, notificationID string) (models.Notification, error) {
	i.mu.Lock()
	defer i.mu.Unlock()

	for idx, n := range i.entries[recipientID] {
		if n.NotificationID == notificationID {
			i.entries[recipientID][idx].Read = true
			n.Read = true
			return n, nil
		}
	}
	return models.Notification{}, fmt.Errorf("inbox: notification %s for %s: %w",
		notificationID, recipientID, auctionerrors.ErrNotificationNotFound)
}

// RedisPublisher publishes each notification as JSON on a per-recipient channel
type RedisPublisher struct {
	client *redis.Client
	prefix string
}

// NewRedisClient builds a client for addr
func NewRedisClient(addr string) *redis.Client {
	return redis.NewClient(&redis.Options{
		Addr:     addr,
		Password: "", // no password set
		DB:       0,  // use default DB
	})
}

// NewRedisPublisher creates a publisher using channels named "<prefix>:<recipientID>"
func NewRedisPublisher(client *redis.Client, prefix string) *RedisPublisher {
	return &RedisPublisher{client: client, prefix: prefix}
}

// Channel returns the channel a recipient's notifications are published on
func (p *RedisPublisher) Channel(recipientID string) string {
	return fmt.Sprintf("%s:%s", p.prefix, recipientID)
}

func (p *RedisPublisher) Publish(ctx context.Context, n models.Notification) error {
	payload, err := json.Marshal(n)
	if err != nil {
		return fmt.Errorf("redis publisher: encode notification: %w", err)
	}
	if err := p.client.Publish(ctx, p.Channel(n.RecipientID), payload).Err(); err != nil {
		return fmt.Errorf("redis publisher: publish to %s: %w", p.Channel(n.RecipientID), err)
	}
	return nil
}
