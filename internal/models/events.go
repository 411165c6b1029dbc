package models

import "time"

// TransitionKind identifies which ledger operation produced a transition
type TransitionKind string

const (
	TransitionBid    TransitionKind = "bid"
	TransitionClose  TransitionKind = "close"
	TransitionCancel TransitionKind = "cancel"
)

// Transition describes one committed ledger state change.
// Changed is false when the operation was an idempotent no-op.
type Transition struct {
	Kind    TransitionKind
	Before  Auction
	After   Auction
	Bid     *Bid
	Changed bool
	// Bidders lists every distinct bidder on the auction, filled for cancellations
	Bidders []string
}

// NotificationType is the closed set of outbound event kinds
type NotificationType string

const (
	NotificationNewBid    NotificationType = "new_bid"
	NotificationEnded     NotificationType = "auction_ended"
	NotificationWon       NotificationType = "auction_won"
	NotificationCancelled NotificationType = "auction_cancelled"
)

// Notification is an addressed event derived from a transition
type Notification struct {
	NotificationID string           `json:"notification_id"`
	Type           NotificationType `json:"type"`
	RecipientID    string           `json:"recipient_id"`
	AuctionID      string           `json:"auction_id"`
	Message        string           `json:"message"`
	Timestamp      time.Time        `json:"timestamp"`
	Read           bool             `json:"read"`
}
