package server

import (
	"net/http"

	"auction-ledger/internal/identity"
	handler "auction-ledger/services/bidding/handler"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// SetupRouter configures all Gin routes for the application
func SetupRouter(biddingService handler.BiddingServiceInterface, dir identity.Directory) *gin.Engine {
	router := gin.New() // New router without default middleware for full control over middleware and logging

	router.Use(gin.Recovery())          // recover from panics
	router.Use(RequestLoggerMiddleware) // custom request logging
	router.Use(MetricsMiddleware)

	router.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})
	router.GET("/metrics", gin.WrapH(promhttp.Handler()))

	biddingHandler := handler.NewBiddingHandler(biddingService)

	api := router.Group("", IdentityMiddleware(dir))

	auctions := api.Group("/auctions")
	{
		auctions.POST("", biddingHandler.CreateAuctionHandler)
		auctions.GET("", biddingHandler.ListActiveHandler)
		auctions.GET("/:auction_id", biddingHandler.GetAuctionHandler)
		auctions.GET("/:auction_id/bids", biddingHandler.GetBidsForAuctionHandler)
		auctions.POST("/:auction_id/bids", biddingHandler.PlaceBidHandler)
		auctions.POST("/:auction_id/close", biddingHandler.CloseAuctionHandler)
		auctions.POST("/:auction_id/cancel", biddingHandler.CancelAuctionHandler)
	}

	sellers := api.Group("/sellers")
	{
		sellers.GET("/:seller_id/auctions", biddingHandler.ListBySellerHandler)
	}

	users := api.Group("/users")
	{
		users.GET("/:user_id/bids", biddingHandler.GetBidsByBidderHandler)
		users.GET("/:user_id/notifications", biddingHandler.GetNotificationsHandler)
		users.GET("/:user_id/notifications/unread", biddingHandler.GetUnreadNotificationsHandler)
		users.POST("/:user_id/notifications/:notification_id/read", biddingHandler.MarkNotificationReadHandler)
	}

	return router
}
