package helpers

import (
	"time"

	model "auction-ledger/internal/models"

	"github.com/shopspring/decimal"
)

// Request/Response DTOs
type CreateAuctionRequest struct {
	Title         string          `json:"title" binding:"required"`
	Description   string          `json:"description"`
	Category      string          `json:"category"`
	MinBid        decimal.Decimal `json:"min_bid"`
	DurationHours int             `json:"duration_hours" binding:"required,gte=1,lte=8760"`
}

// PlaceBidRequest carries only the amount; the bidder is the caller and the
// auction comes from the path. Amounts may be sent as JSON numbers or strings.
type PlaceBidRequest struct {
	Amount decimal.Decimal `json:"amount"`
}

type AuctionResponse struct {
	AuctionID       string `json:"auction_id"`
	SellerID        string `json:"seller_id"`
	Title           string `json:"title"`
	Description     string `json:"description"`
	Category        string `json:"category"`
	MinBid          string `json:"min_bid"`
	CurrentBid      string `json:"current_bid"`
	CurrentBidderID string `json:"current_bidder_id,omitempty"`
	Status          string `json:"status"`
	EndTime         string `json:"end_time"`
	CreatedAt       string `json:"created_at"`
}

type BidResponse struct {
	BidID     string `json:"bid_id"`
	AuctionID string `json:"auction_id"`
	BidderID  string `json:"bidder_id"`
	Amount    string `json:"amount"`
	CreatedAt string `json:"created_at"`
}

func NewAuctionResponse(a model.Auction) AuctionResponse {
	return AuctionResponse{
		AuctionID:       a.AuctionID,
		SellerID:        a.SellerID,
		Title:           a.Title,
		Description:     a.Description,
		Category:        a.Category,
		MinBid:          a.MinBid.StringFixed(2),
		CurrentBid:      a.CurrentBid.StringFixed(2),
		CurrentBidderID: a.CurrentBidderID,
		Status:          string(a.Status),
		EndTime:         a.EndTime.UTC().Format(time.RFC3339),
		CreatedAt:       a.CreatedAt.UTC().Format(time.RFC3339),
	}
}

func NewAuctionResponses(auctions []model.Auction) []AuctionResponse {
	out := make([]AuctionResponse, 0, len(auctions))
	for _, a := range auctions {
		out = append(out, NewAuctionResponse(a))
	}
	return out
}

func NewBidResponse(b model.Bid) BidResponse {
	return BidResponse{
		BidID:     b.BidID,
		AuctionID: b.AuctionID,
		BidderID:  b.BidderID,
		Amount:    b.Amount.StringFixed(2),
		CreatedAt: b.CreatedAt.UTC().Format(time.RFC3339),
	}
}

func NewBidResponses(bids []model.Bid) []BidResponse {
	out := make([]BidResponse, 0, len(bids))
	for _, b := range bids {
		out = append(out, NewBidResponse(b))
	}
	return out
}
