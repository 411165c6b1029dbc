package server

import (
	"auction-ledger/internal/identity"
	"auction-ledger/internal/metrics"
	"auction-ledger/services/bidding/helpers"
	"auction-ledger/utils"
	"fmt"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
)

// UserHeader carries the caller's user ID
const UserHeader = "X-User-ID"

// RequestLoggerMiddleware logs incoming requests with timing
func RequestLoggerMiddleware(c *gin.Context) {
	start := time.Now()

	c.Next() // process request

	utils.Info("HTTP Request", map[string]any{
		"method":  c.Request.Method,
		"path":    c.Request.URL.Path,
		"status":  c.Writer.Status(),
		"latency": time.Since(start).String(),
		"user_id": c.GetHeader(UserHeader),
	})
}

// MetricsMiddleware records request counts and latency per route template
func MetricsMiddleware(c *gin.Context) {
	start := time.Now()

	c.Next()

	route := c.FullPath()
	if route == "" {
		route = "unmatched"
	}
	metrics.HTTPRequests.WithLabelValues(c.Request.Method, route, strconv.Itoa(c.Writer.Status())).Inc()
	metrics.HTTPLatency.WithLabelValues(c.Request.Method, route).Observe(time.Since(start).Seconds())
}

// IdentityMiddleware resolves the X-User-ID header through the directory.
// Requests without the header pass through anonymously; an unknown ID is rejected.
func IdentityMiddleware(dir identity.Directory) gin.HandlerFunc {
	return func(c *gin.Context) {
		userID := c.GetHeader(UserHeader)
		if userID == "" {
			c.Next()
			return
		}

		principal, err := dir.Lookup(c.Request.Context(), userID)
		if err != nil {
			helpers.RespondError(c, "IdentityMiddleware", fmt.Errorf("resolve caller: %w", err), map[string]any{"user_id": userID})
			c.Abort()
			return
		}
		c.Set(helpers.PrincipalKey, principal)
		c.Next()
	}
}
