// Package validator decides whether a proposed bid may be applied to an auction snapshot.
package validator

import (
	"time"

	"auction-ledger/internal/auctionerrors"
	"auction-ledger/internal/models"

	"github.com/shopspring/decimal"
)

// Decision is the outcome of validating a bid
type Decision struct {
	Reason auctionerrors.Reason
}

// Accept is the decision for a bid that passed every rule
var Accept = Decision{Reason: auctionerrors.ReasonNone}

// Reject builds a rejecting decision
func Reject(reason auctionerrors.Reason) Decision {
	return Decision{Reason: reason}
}

// Accepted reports whether the bid may be applied
func (d Decision) Accepted() bool {
	return d.Reason == auctionerrors.ReasonNone
}

// Err returns the sentinel error for a rejection, or nil when accepted
func (d Decision) Err() error {
	return d.Reason.Err()
}

// Validate applies the bidding rules in order: status, wall-clock expiry,
// self-bid, then strict price increase. No minimum increment is enforced.
func Validate(snapshot models.Auction, bidderID string, amount decimal.Decimal, now time.Time) Decision {
	if snapshot.Status != models.StatusActive {
		return Reject(auctionerrors.ReasonAuctionNotActive)
	}
	// stored status may lag the sweeper
	if snapshot.Expired(now) {
		return Reject(auctionerrors.ReasonAuctionExpired)
	}
	if bidderID == snapshot.SellerID {
		return Reject(auctionerrors.ReasonSelfBid)
	}
	if amount.LessThanOrEqual(snapshot.CurrentBid) {
		return Reject(auctionerrors.ReasonBidTooLow)
	}
	return Accept
}
