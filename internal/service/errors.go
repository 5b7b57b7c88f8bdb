package service

import (
	"errors"
	"fmt"

	"github.com/Sidbot007/StudentBidz/internal/repository"
)

// Kinds. Every error returned by this package wraps exactly one of them.
var (
	ErrNotFound     = errors.New("not found")
	ErrForbidden    = errors.New("forbidden")
	ErrInvalidState = errors.New("invalid state")
	ErrValidation   = errors.New("validation failed")
	ErrRateLimited  = errors.New("rate limited")
)

var (
	ErrAuctionNotFound      = fmt.Errorf("auction %w", ErrNotFound)
	ErrBidNotFound          = fmt.Errorf("bid %w", ErrNotFound)
	ErrUserNotFound         = fmt.Errorf("user %w", ErrNotFound)
	ErrNotificationNotFound = fmt.Errorf("notification %w", ErrNotFound)

	// roles
	ErrNotSeller        = fmt.Errorf("%w: only the seller can do this", ErrForbidden)
	ErrNotBidOwner      = fmt.Errorf("%w: you are not authorized to delete this bid", ErrForbidden)
	ErrNotRecipient     = fmt.Errorf("%w: notification belongs to another user", ErrForbidden)
	ErrBidderRestricted = fmt.Errorf("%w: you are restricted from bidding on this product by the seller", ErrForbidden)

	// state
	ErrAuctionEnded     = fmt.Errorf("%w: auction has ended", ErrInvalidState)
	ErrAuctionNotActive = fmt.Errorf("%w: auction is not active", ErrInvalidState)
	ErrAuctionNotSold   = fmt.Errorf("%w: only sold products can be relisted", ErrInvalidState)

	// bid amount rules
	ErrBidNotHigher      = fmt.Errorf("%w: bid must be higher than current highest bid", ErrValidation)
	ErrBidAboveCap       = fmt.Errorf("%w: bid cannot be more than 2x the current highest bid", ErrValidation)
	ErrBidBelowIncrement = fmt.Errorf("%w: bid must be at least ₹1 higher than the current highest bid", ErrValidation)
	ErrAmountPrecision   = fmt.Errorf("%w: amount must have at most two decimal places", ErrValidation)
	ErrAmountTooLarge    = fmt.Errorf("%w: amount cannot exceed ₹9999999999.99", ErrValidation)

	ErrEndTimeNotFuture = fmt.Errorf("%w: new end time must be in the future", ErrValidation)
	ErrInvalidPrice     = fmt.Errorf("%w: starting price must be greater than zero", ErrValidation)
	ErrRestrictSeller   = fmt.Errorf("%w: the seller cannot be restricted", ErrValidation)

	// quotas
	ErrBidTooFrequent    = fmt.Errorf("%w: you can only bid once every 1 minute on this product", ErrRateLimited)
	ErrDailyLimit        = fmt.Errorf("%w: you have reached your daily bid limit (50)", ErrRateLimited)
	ErrAuctionDailyLimit = fmt.Errorf("%w: you have reached your daily bid limit (20) for this product", ErrRateLimited)
)

// storeErr translates repository not-found errors into this package's kinds.
func storeErr(err error) error {
	switch {
	case err == nil:
		return nil
	case errors.Is(err, repository.ErrAuctionNotFound):
		return ErrAuctionNotFound
	case errors.Is(err, repository.ErrBidNotFound):
		return ErrBidNotFound
	case errors.Is(err, repository.ErrUserNotFound):
		return ErrUserNotFound
	case errors.Is(err, repository.ErrNotificationNotFound):
		return ErrNotificationNotFound
	}
	return err
}
