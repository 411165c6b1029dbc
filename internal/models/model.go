package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// Role is the authorization level of a participant
type Role string

const (
	RoleUser  Role = "user"
	RoleAdmin Role = "admin"
)

// Valid reports whether r is a known role
func (r Role) Valid() bool {
	return r == RoleUser || r == RoleAdmin
}

// Principal is an authenticated participant supplied by the identity source
type Principal struct {
	UserID string `json:"user_id"`
	Name   string `json:"name"`
	Role   Role   `json:"role"`
}

// IsAdmin reports whether the principal carries the admin role
func (p Principal) IsAdmin() bool {
	return p.Role == RoleAdmin
}

// Status is the lifecycle state of an auction
type Status string

const (
	StatusActive    Status = "ACTIVE"
	StatusEnded     Status = "ENDED"
	StatusCancelled Status = "CANCELLED"
)

// Terminal reports whether no further transitions are allowed from s
func (s Status) Terminal() bool {
	return s == StatusEnded || s == StatusCancelled
}

// Valid reports whether s is one of the known statuses
func (s Status) Valid() bool {
	switch s {
	case StatusActive, StatusEnded, StatusCancelled:
		return true
	}
	return false
}

// Auction is a timed, single-item sale record
type Auction struct {
	AuctionID       string          `json:"auction_id"`
	SellerID        string          `json:"seller_id"`
	Title           string          `json:"title"`
	Description     string          `json:"description"`
	Category        string          `json:"category,omitempty"`
	MinBid          decimal.Decimal `json:"min_bid"`
	CurrentBid      decimal.Decimal `json:"current_bid"`
	CurrentBidderID string          `json:"current_bidder_id,omitempty"`
	Status          Status          `json:"status"`
	EndTime         time.Time       `json:"end_time"`
	CreatedAt       time.Time       `json:"created_at"`
	UpdatedAt       time.Time       `json:"updated_at"`
	Version         int64           `json:"version"`
}

// HasBidder reports whether at least one bid has been accepted
func (a Auction) HasBidder() bool {
	return a.CurrentBidderID != ""
}

// Expired reports whether the auction end time has been reached at now
func (a Auction) Expired(now time.Time) bool {
	return !now.Before(a.EndTime)
}

// Bid represents an accepted bid on an auction. Bids are append-only.
type Bid struct {
	BidID     string          `json:"bid_id"`
	AuctionID string          `json:"auction_id"`
	BidderID  string          `json:"bidder_id"`
	Amount    decimal.Decimal `json:"amount"`
	CreatedAt time.Time       `json:"created_at"`
}

// ListFilter narrows the active auction listing. Empty fields match everything.
type ListFilter struct {
	Category   string
	SearchText string
}
