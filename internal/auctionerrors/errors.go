package auctionerrors

import "errors"

// Repository-level errors
var (
	ErrAuctionNotFound      = errors.New("auction not found")
	ErrNotificationNotFound = errors.New("notification not found")
	ErrDuplicateID          = errors.New("duplicate identifier")
	ErrStorage              = errors.New("storage unavailable")
)

// input errors
var (
	ErrInvalidBid     = errors.New("invalid bid")
	ErrInvalidAuction = errors.New("invalid auction")
	ErrUnknownUser    = errors.New("unknown user")
)

// bid rejections, reported to the caller and never retried by the ledger
var (
	ErrAuctionNotActive = errors.New("auction is not active")
	ErrAuctionExpired   = errors.New("auction has ended")
	ErrSelfBid          = errors.New("seller cannot bid on own auction")
	ErrBidTooLow        = errors.New("bid amount too low")
)

// ErrStaleSnapshot is returned when the auction changed between read and commit
var ErrStaleSnapshot = errors.New("auction changed since it was read")

// ErrUnauthorized is returned when the actor may not perform the action
var ErrUnauthorized = errors.New("actor is not authorized")

// Reason is a stable, machine-readable rejection code
type Reason string

const (
	ReasonNone             Reason = ""
	ReasonAuctionNotActive Reason = "auction_not_active"
	ReasonAuctionExpired   Reason = "auction_expired"
	ReasonSelfBid          Reason = "self_bid"
	ReasonBidTooLow        Reason = "bid_too_low"
	ReasonStaleSnapshot    Reason = "stale_snapshot"
	ReasonUnauthorized     Reason = "unauthorized"
)

var reasonErrors = map[Reason]error{
	ReasonAuctionNotActive: ErrAuctionNotActive,
	ReasonAuctionExpired:   ErrAuctionExpired,
	ReasonSelfBid:          ErrSelfBid,
	ReasonBidTooLow:        ErrBidTooLow,
	ReasonStaleSnapshot:    ErrStaleSnapshot,
	ReasonUnauthorized:     ErrUnauthorized,
}

// Err returns the sentinel error for r, or nil for ReasonNone
func (r Reason) Err() error {
	return reasonErrors[r]
}

// ReasonOf extracts the rejection reason carried by err.
// Errors that are not rejections yield ReasonNone.
func ReasonOf(err error) Reason {
	if err == nil {
		return ReasonNone
	}
	for reason, sentinel := range reasonErrors {
		if errors.Is(err, sentinel) {
			return reason
		}
	}
	return ReasonNone
}

// IsRejection reports whether err is an expected business rejection rather than a failure
func IsRejection(err error) bool {
	return ReasonOf(err) != ReasonNone
}
