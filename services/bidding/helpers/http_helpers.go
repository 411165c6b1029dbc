package helpers

import (
	"errors"
	"fmt"
	"net/http"

	"auction-ledger/internal/auctionerrors"
	model "auction-ledger/internal/models"
	"auction-ledger/utils"

	"github.com/gin-gonic/gin"
)

// PrincipalKey is the gin context key holding the resolved caller
const PrincipalKey = "principal"

// HandleBindError sends a standardized JSON error for binding failures
func HandleBindError(c *gin.Context, handlerName string, err error) {
	wrappedErr := fmt.Errorf("invalid request payload: %w", err)
	utils.JSONError(c, http.StatusBadRequest, wrappedErr, "invalid request payload")
	utils.Warn(handlerName+": binding error", map[string]any{"error": err.Error()})
}

// MapErrorToHTTP maps domain/service errors to HTTP status code, message and rejection reason
func MapErrorToHTTP(err error) (int, string, auctionerrors.Reason) {
	reason := auctionerrors.ReasonOf(err)
	switch {
	case errors.Is(err, auctionerrors.ErrAuctionNotFound):
		return http.StatusNotFound, "auction not found", reason
	case errors.Is(err, auctionerrors.ErrNotificationNotFound):
		return http.StatusNotFound, "notification not found", reason
	case errors.Is(err, auctionerrors.ErrInvalidBid):
		return http.StatusBadRequest, "invalid bid details", reason
	case errors.Is(err, auctionerrors.ErrInvalidAuction):
		return http.StatusBadRequest, "invalid auction details", reason
	case errors.Is(err, auctionerrors.ErrUnknownUser):
		return http.StatusUnauthorized, "unknown user", reason
	case errors.Is(err, auctionerrors.ErrUnauthorized):
		return http.StatusForbidden, "not allowed", reason
	case errors.Is(err, auctionerrors.ErrBidTooLow):
		return http.StatusConflict, "bid amount too low", reason
	case errors.Is(err, auctionerrors.ErrSelfBid):
		return http.StatusConflict, "sellers cannot bid on their own auction", reason
	case errors.Is(err, auctionerrors.ErrAuctionExpired):
		return http.StatusConflict, "auction has ended", reason
	case errors.Is(err, auctionerrors.ErrAuctionNotActive):
		return http.StatusConflict, "auction is not active", reason
	case errors.Is(err, auctionerrors.ErrStaleSnapshot):
		return http.StatusConflict, "auction changed, retry with the latest state", reason
	case errors.Is(err, auctionerrors.ErrDuplicateID):
		return http.StatusConflict, "duplicate identifier", reason
	default:
		return http.StatusInternalServerError, "internal server error", reason
	}
}

// RespondError writes err using the status, message and reason from MapErrorToHTTP
// and logs it at a level matching its severity
func RespondError(c *gin.Context, handlerName string, err error, fields map[string]any) {
	status, message, reason := MapErrorToHTTP(err)
	utils.JSONRejection(c, status, fmt.Errorf("%s: %w", message, err), message, string(reason))

	if fields == nil {
		fields = map[string]any{}
	}
	fields["handler"] = handlerName
	fields["error"] = err.Error()
	if status >= http.StatusInternalServerError {
		utils.Error(handlerName+": request failed", fields)
		return
	}
	utils.Warn(handlerName+": request rejected", fields)
}

// PrincipalFrom returns the caller resolved by the identity middleware
func PrincipalFrom(c *gin.Context) (model.Principal, bool) {
	v, ok := c.Get(PrincipalKey)
	if !ok {
		return model.Principal{}, false
	}
	p, ok := v.(model.Principal)
	return p, ok
}

// RequirePrincipal returns the caller or answers 401 and reports false
func RequirePrincipal(c *gin.Context, handlerName string) (model.Principal, bool) {
	p, ok := PrincipalFrom(c)
	if !ok {
		RespondError(c, handlerName, fmt.Errorf("missing X-User-ID header: %w", auctionerrors.ErrUnknownUser), nil)
		return model.Principal{}, false
	}
	return p, true
}

// LogSuccess is a small helper to standardize logging of successful operations
func LogSuccess(handlerName, message string, ctx map[string]any) {
	utils.Info(handlerName+": "+message, ctx)
}
