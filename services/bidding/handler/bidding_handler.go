package handler

//go:generate mockgen -source=bidding_handler.go -destination=mock_bidding_handler.go -package=handler

import (
	"context"
	"net/http"

	bidding "auction-ledger/internal/biddingService"
	model "auction-ledger/internal/models"
	"auction-ledger/services/bidding/helpers"
	"auction-ledger/utils"

	"github.com/gin-gonic/gin"
	"github.com/shopspring/decimal"
)

type BiddingServiceInterface interface {
	CreateAuction(ctx context.Context, seller model.Principal, in bidding.CreateAuctionInput) (model.Auction, error)
	PlaceBid(ctx context.Context, bidder model.Principal, auctionID string, amount decimal.Decimal) (model.Bid, error)
	CloseAuction(ctx context.Context, actor model.Principal, auctionID string) (model.Auction, error)
	CancelAuction(ctx context.Context, actor model.Principal, auctionID string) (model.Auction, error)
	ListActive(ctx context.Context, filter model.ListFilter) ([]model.Auction, error)
	GetAuction(ctx context.Context, auctionID string) (model.Auction, error)
	ListBySeller(ctx context.Context, sellerID string) ([]model.Auction, error)
	GetBidsForAuction(ctx context.Context, auctionID string) ([]model.Bid, error)
	GetBidsByBidder(ctx context.Context, bidderID string) ([]model.Bid, error)
	Notifications(actor model.Principal, userID string) ([]model.Notification, error)
	UnreadNotifications(actor model.Principal, userID string) ([]model.Notification, error)
	MarkNotificationRead(actor model.Principal, userID, notificationID string) (model.Notification, error)
}

type BiddingHandler struct {
	service BiddingServiceInterface
}

func NewBiddingHandler(service BiddingServiceInterface) *BiddingHandler {
	return &BiddingHandler{service: service}
}

// CreateAuctionHandler handles POST /auctions
func (h *BiddingHandler) CreateAuctionHandler(c *gin.Context) {
	principal, ok := helpers.RequirePrincipal(c, "CreateAuctionHandler")
	if !ok {
		return
	}

	var req helpers.CreateAuctionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		helpers.HandleBindError(c, "CreateAuctionHandler", err)
		return
	}

	auction, err := h.service.CreateAuction(c.Request.Context(), principal, bidding.CreateAuctionInput{
		Title:         req.Title,
		Description:   req.Description,
		Category:      req.Category,
		MinBid:        req.MinBid,
		DurationHours: req.DurationHours,
	})
	if err != nil {
		helpers.RespondError(c, "CreateAuctionHandler", err, map[string]any{"seller_id": principal.UserID})
		return
	}

	utils.JSONResponse(c, http.StatusCreated, helpers.NewAuctionResponse(auction), "auction created successfully")
	helpers.LogSuccess("CreateAuctionHandler", "auction created successfully", map[string]any{
		"auction_id": auction.AuctionID,
		"seller_id":  auction.SellerID,
	})
}

// ListActiveHandler handles GET /auctions?category=&q=
func (h *BiddingHandler) ListActiveHandler(c *gin.Context) {
	filter := model.ListFilter{
		Category:   c.Query("category"),
		SearchText: c.Query("q"),
	}
	auctions, err := h.service.ListActive(c.Request.Context(), filter)
	if err != nil {
		helpers.RespondError(c, "ListActiveHandler", err, nil)
		return
	}

	utils.JSONResponse(c, http.StatusOK, helpers.NewAuctionResponses(auctions), "auctions retrieved successfully")
	helpers.LogSuccess("ListActiveHandler", "auctions retrieved successfully", map[string]any{
		"category": filter.Category,
		"query":    filter.SearchText,
		"count":    len(auctions),
	})
}

// GetAuctionHandler handles GET /auctions/:auction_id
func (h *BiddingHandler) GetAuctionHandler(c *gin.Context) {
	auctionID := c.Param("auction_id")
	auction, err := h.service.GetAuction(c.Request.Context(), auctionID)
	if err != nil {
		helpers.RespondError(c, "GetAuctionHandler", err, map[string]any{"auction_id": auctionID})
		return
	}

	utils.JSONResponse(c, http.StatusOK, helpers.NewAuctionResponse(auction), "auction retrieved successfully")
}

// PlaceBidHandler handles POST /auctions/:auction_id/bids
func (h *BiddingHandler) PlaceBidHandler(c *gin.Context) {
	principal, ok := helpers.RequirePrincipal(c, "PlaceBidHandler")
	if !ok {
		return
	}

	var req helpers.PlaceBidRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		helpers.HandleBindError(c, "PlaceBidHandler", err)
		return
	}

	auctionID := c.Param("auction_id")
	bid, err := h.service.PlaceBid(c.Request.Context(), principal, auctionID, req.Amount)
	if err != nil {
		helpers.RespondError(c, "PlaceBidHandler", err, map[string]any{
			"auction_id": auctionID,
			"bidder_id":  principal.UserID,
			"amount":     req.Amount.String(),
		})
		return
	}

	utils.JSONResponse(c, http.StatusCreated, helpers.NewBidResponse(bid), "bid placed successfully")
	helpers.LogSuccess("PlaceBidHandler", "bid placed successfully", map[string]any{
		"bid_id":     bid.BidID,
		"auction_id": bid.AuctionID,
		"bidder_id":  bid.BidderID,
		"amount":     bid.Amount.String(),
	})
}

// GetBidsForAuctionHandler handles GET /auctions/:auction_id/bids
func (h *BiddingHandler) GetBidsForAuctionHandler(c *gin.Context) {
	auctionID := c.Param("auction_id")
	bids, err := h.service.GetBidsForAuction(c.Request.Context(), auctionID)
	if err != nil {
		helpers.RespondError(c, "GetBidsForAuctionHandler", err, map[string]any{"auction_id": auctionID})
		return
	}

	utils.JSONResponse(c, http.StatusOK, helpers.NewBidResponses(bids), "bids retrieved successfully")
	helpers.LogSuccess("GetBidsForAuctionHandler", "bids retrieved successfully", map[string]any{
		"auction_id": auctionID,
		"count":      len(bids),
	})
}

// CloseAuctionHandler handles POST /auctions/:auction_id/close
func (h *BiddingHandler) CloseAuctionHandler(c *gin.Context) {
	principal, ok := helpers.RequirePrincipal(c, "CloseAuctionHandler")
	if !ok {
		return
	}

	auctionID := c.Param("auction_id")
	auction, err := h.service.CloseAuction(c.Request.Context(), principal, auctionID)
	if err != nil {
		helpers.RespondError(c, "CloseAuctionHandler", err, map[string]any{
			"auction_id": auctionID,
			"actor_id":   principal.UserID,
		})
		return
	}

	utils.JSONResponse(c, http.StatusOK, helpers.NewAuctionResponse(auction), "auction closed")
	helpers.LogSuccess("CloseAuctionHandler", "auction closed", map[string]any{
		"auction_id": auctionID,
		"winner_id":  auction.CurrentBidderID,
	})
}

// CancelAuctionHandler handles POST /auctions/:auction_id/cancel
func (h *BiddingHandler) CancelAuctionHandler(c *gin.Context) {
	principal, ok := helpers.RequirePrincipal(c, "CancelAuctionHandler")
	if !ok {
		return
	}

	auctionID := c.Param("auction_id")
	auction, err := h.service.CancelAuction(c.Request.Context(), principal, auctionID)
	if err != nil {
		helpers.RespondError(c, "CancelAuctionHandler", err, map[string]any{
			"auction_id": auctionID,
			"actor_id":   principal.UserID,
		})
		return
	}

	utils.JSONResponse(c, http.StatusOK, helpers.NewAuctionResponse(auction), "auction cancelled")
	helpers.LogSuccess("CancelAuctionHandler", "auction cancelled", map[string]any{
		"auction_id": auctionID,
		"actor_id":   principal.UserID,
	})
}

// ListBySellerHandler handles GET /sellers/:seller_id/auctions
func (h *BiddingHandler) ListBySellerHandler(c *gin.Context) {
	sellerID := c.Param("seller_id")
	auctions, err := h.service.ListBySeller(c.Request.Context(), sellerID)
	if err != nil {
		helpers.RespondError(c, "ListBySellerHandler", err, map[string]any{"seller_id": sellerID})
		return
	}

	utils.JSONResponse(c, http.StatusOK, helpers.NewAuctionResponses(auctions), "auctions retrieved successfully")
}

// GetBidsByBidderHandler handles GET /users/:user_id/bids
func (h *BiddingHandler) GetBidsByBidderHandler(c *gin.Context) {
	userID := c.Param("user_id")
	bids, err := h.service.GetBidsByBidder(c.Request.Context(), userID)
	if err != nil {
		helpers.RespondError(c, "GetBidsByBidderHandler", err, map[string]any{"user_id": userID})
		return
	}

	utils.JSONResponse(c, http.StatusOK, helpers.NewBidResponses(bids), "bids retrieved successfully")
	helpers.LogSuccess("GetBidsByBidderHandler", "bids retrieved successfully", map[string]any{
		"user_id": userID,
		"count":   len(bids),
	})
}

// GetNotificationsHandler handles GET /users/:user_id/notifications
func (h *BiddingHandler) GetNotificationsHandler(c *gin.Context) {
	principal, ok := helpers.RequirePrincipal(c, "GetNotificationsHandler")
	if !ok {
		return
	}

	userID := c.Param("user_id")
	notes, err := h.service.Notifications(principal, userID)
	if err != nil {
		helpers.RespondError(c, "GetNotificationsHandler", err, map[string]any{
			"user_id":  userID,
			"actor_id": principal.UserID,
		})
		return
	}
	if notes == nil {
		notes = []model.Notification{}
	}

	utils.JSONResponse(c, http.StatusOK, notes, "notifications retrieved successfully")
}

// GetUnreadNotificationsHandler handles GET /users/:user_id/notifications/unread
func (h *BiddingHandler) GetUnreadNotificationsHandler(c *gin.Context) {
	principal, ok := helpers.RequirePrincipal(c, "GetUnreadNotificationsHandler")
	if !ok {
		return
	}

	userID := c.Param("user_id")
	notes, err := h.service.UnreadNotifications(principal, userID)
	if err != nil {
		helpers.RespondError(c, "GetUnreadNotificationsHandler", err, map[string]any{
			"user_id":  userID,
			"actor_id": principal.UserID,
		})
		return
	}
	if notes == nil {
		notes = []model.Notification{}
	}

	utils.JSONResponse(c, http.StatusOK, notes, "unread notifications retrieved successfully")
}

// MarkNotificationReadHandler handles POST /users/:user_id/notifications/:notification_id/read
func (h *BiddingHandler) MarkNotificationReadHandler(c *gin.Context) {
	principal, ok := helpers.RequirePrincipal(c, "MarkNotificationReadHandler")
	if !ok {
		return
	}

	userID := c.Param("user_id")
	notificationID := c.Param("notification_id")
	note, err := h.service.MarkNotificationRead(principal, userID, notificationID)
	if err != nil {
		helpers.RespondError(c, "MarkNotificationReadHandler", err, map[string]any{
			"user_id":         userID,
			"notification_id": notificationID,
			"actor_id":        principal.UserID,
		})
		return
	}

	utils.JSONResponse(c, http.StatusOK, note, "notification marked as read")
	helpers.LogSuccess("MarkNotificationReadHandler", "notification marked as read", map[string]any{
		"user_id":         userID,
		"notification_id": notificationID,
	})
}
