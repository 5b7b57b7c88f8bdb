package handlers

import (
	"errors"
	"net/http"

	"go.uber.org/zap"

	"github.com/Sidbot007/StudentBidz/internal/service"
)

var (
	// common error code
	ErrInternalServer = errors.New("INTERNAL_SERVER_ERROR")
	ErrInvalidRequest = errors.New("VALIDATION_FAILED")
	ErrInvalidJson    = errors.New("INVALID_JSON_FORMAT")
	ErrMissingParam   = errors.New("MISSING_PARAM")

	// auth error code
	ErrAuthFailed   = errors.New("AUTH_FAILED")
	ErrMissingToken = errors.New("MISSING_TOKEN")
	ErrToken        = errors.New("TOKEN_ERROR")

	// lookups
	ErrAuctionNotFound      = errors.New("AUCTION_NOT_FOUND")
	ErrBidNotFound          = errors.New("BID_NOT_FOUND")
	ErrUserNotFound         = errors.New("USER_NOT_FOUND")
	ErrNotificationNotFound = errors.New("NOTIFICATION_NOT_FOUND")

	// roles
	ErrNotSeller        = errors.New("NOT_SELLER")
	ErrNotBidOwner      = errors.New("NOT_BID_OWNER")
	ErrNotRecipient     = errors.New("NOT_RECIPIENT")
	ErrBidderRestricted = errors.New("BIDDER_RESTRICTED")

	// auction state
	ErrAuctionEnded     = errors.New("AUCTION_ENDED")
	ErrAuctionNotActive = errors.New("AUCTION_NOT_ACTIVE")
	ErrAuctionNotSold   = errors.New("AUCTION_NOT_SOLD")

	// bid error code
	ErrBidLow             = errors.New("BID_TOO_LOW")
	ErrBidAboveCap        = errors.New("BID_ABOVE_CAP")
	ErrBidBelowIncrement  = errors.New("BID_BELOW_MIN_INCREMENT")
	ErrAmountPrecision    = errors.New("AMOUNT_PRECISION")
	ErrAmountTooLarge     = errors.New("AMOUNT_TOO_LARGE")
	ErrBidTooFrequent     = errors.New("BID_TOO_FREQUENT")
	ErrDailyLimit         = errors.New("DAILY_BID_LIMIT")
	ErrAuctionDailyLimit  = errors.New("AUCTION_DAILY_BID_LIMIT")
	ErrInvalidEndTime     = errors.New("INVALID_END_TIME")
	ErrInvalidPrice       = errors.New("INVALID_PRICE")
	ErrCannotRestrictSelf = errors.New("CANNOT_RESTRICT_SELLER")
)

type errorMapping struct {
	err    error
	status int
	code   error
}

// serviceErrors is checked in order; specific reasons come before their kinds.
var serviceErrors = []errorMapping{
	{service.ErrAuctionNotFound, http.StatusNotFound, ErrAuctionNotFound},
	{service.ErrBidNotFound, http.StatusNotFound, ErrBidNotFound},
	{service.ErrUserNotFound, http.StatusNotFound, ErrUserNotFound},
	{service.ErrNotificationNotFound, http.StatusNotFound, ErrNotificationNotFound},

	{service.ErrNotSeller, http.StatusForbidden, ErrNotSeller},
	{service.ErrNotBidOwner, http.StatusForbidden, ErrNotBidOwner},
	{service.ErrNotRecipient, http.StatusForbidden, ErrNotRecipient},
	{service.ErrBidderRestricted, http.StatusForbidden, ErrBidderRestricted},

	{service.ErrAuctionEnded, http.StatusConflict, ErrAuctionEnded},
	{service.ErrAuctionNotActive, http.StatusConflict, ErrAuctionNotActive},
	{service.ErrAuctionNotSold, http.StatusConflict, ErrAuctionNotSold},

	{service.ErrBidNotHigher, http.StatusUnprocessableEntity, ErrBidLow},
	{service.ErrBidAboveCap, http.StatusUnprocessableEntity, ErrBidAboveCap},
	{service.ErrBidBelowIncrement, http.StatusUnprocessableEntity, ErrBidBelowIncrement},
	{service.ErrAmountPrecision, http.StatusUnprocessableEntity, ErrAmountPrecision},
	{service.ErrAmountTooLarge, http.StatusUnprocessableEntity, ErrAmountTooLarge},
	{service.ErrEndTimeNotFuture, http.StatusUnprocessableEntity, ErrInvalidEndTime},
	{service.ErrInvalidPrice, http.StatusUnprocessableEntity, ErrInvalidPrice},
	{service.ErrRestrictSeller, http.StatusUnprocessableEntity, ErrCannotRestrictSelf},

	{service.ErrBidTooFrequent, http.StatusTooManyRequests, ErrBidTooFrequent},
	{service.ErrDailyLimit, http.StatusTooManyRequests, ErrDailyLimit},
	{service.ErrAuctionDailyLimit, http.StatusTooManyRequests, ErrAuctionDailyLimit},

	{service.ErrNotFound, http.StatusNotFound, errors.New("NOT_FOUND")},
	{service.ErrForbidden, http.StatusForbidden, errors.New("FORBIDDEN")},
	{service.ErrInvalidState, http.StatusConflict, errors.New("INVALID_STATE")},
	{service.ErrValidation, http.StatusUnprocessableEntity, ErrInvalidRequest},
	{service.ErrRateLimited, http.StatusTooManyRequests, errors.New("RATE_LIMITED")},
}

// respondServiceError writes err using its status and code. Unknown errors
// are logged and reported as a plain internal error.
func respondServiceError(w http.ResponseWriter, r *http.Request, log *zap.Logger, err error) {
	for _, m := range serviceErrors {
		if errors.Is(err, m.err) {
			RespondErrorJSON(w, r, m.status, m.code.Error(), err.Error(), nil)
			return
		}
	}
	log.Error("[Handler] request failed -> ",
		zap.String("method", r.Method),
		zap.String("path", r.URL.Path),
		zap.Error(err))
	RespondErrorJSON(w, r, http.StatusInternalServerError, ErrInternalServer.Error(), "Internal server error", nil)
}
