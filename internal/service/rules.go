package service

import (
	"errors"
	"time"

	"github.com/shopspring/decimal"

	"github.com/Sidbot007/StudentBidz/internal/model"
)

const (
	BidCooldown          = time.Minute
	ExtendWindow         = time.Minute
	ExtendBy             = 2 * time.Minute
	QuotaWindow          = 24 * time.Hour
	DailyBidLimit        = 50
	AuctionDailyBidLimit = 20

	// An auction is "ending soon" when its end time is in [now+EndingSoonFrom, now+EndingSoonTo).
	// The window is wider than the sweep period so a late tick still catches it.
	EndingSoonFrom = 29 * time.Minute
	EndingSoonTo   = 31 * time.Minute
)

var (
	minIncrement = decimal.NewFromInt(1)
	maxMultiple  = decimal.NewFromInt(2)

	// NUMERIC(12,2)
	maxAmount = decimal.RequireFromString("9999999999.99")
)

// checkMoney rejects amounts the money columns cannot hold exactly.
func checkMoney(amount decimal.Decimal) error {
	if !amount.Equal(amount.Round(2)) {
		return ErrAmountPrecision
	}
	if amount.GreaterThan(maxAmount) {
		return ErrAmountTooLarge
	}
	return nil
}

// checkAmount applies the amount rules against the price to beat.
func checkAmount(highest, amount decimal.Decimal) error {
	if !amount.GreaterThan(highest) {
		return ErrBidNotHigher
	}
	if amount.GreaterThan(highest.Mul(maxMultiple)) {
		return ErrBidAboveCap
	}
	if amount.Sub(highest).LessThan(minIncrement) {
		return ErrBidBelowIncrement
	}
	return nil
}

// shouldExtend reports whether a bid at now lands in the final minute before end.
func shouldExtend(end, now time.Time) bool {
	return end.After(now) && end.Sub(now) < ExtendWindow
}

// priceToBeat is the top bid, or the starting price when there are no bids.
func priceToBeat(a model.Auction, top model.Bid, hasTop bool) decimal.Decimal {
	if hasTop {
		return top.Amount
	}
	return a.StartingPrice
}

// rejectReason is the metrics label for a failed bid.
func rejectReason(err error) string {
	for _, r := range []struct {
		err    error
		reason string
	}{
		{ErrAuctionNotFound, "auction_not_found"},
		{ErrAuctionEnded, "auction_ended"},
		{ErrBidderRestricted, "restricted"},
		{ErrBidTooFrequent, "too_frequent"},
		{ErrBidNotHigher, "not_higher"},
		{ErrBidAboveCap, "above_cap"},
		{ErrBidBelowIncrement, "below_increment"},
		{ErrAmountPrecision, "precision"},
		{ErrAmountTooLarge, "too_large"},
		{ErrDailyLimit, "daily_limit"},
		{ErrAuctionDailyLimit, "auction_daily_limit"},
	} {
		if errors.Is(err, r.err) {
			return r.reason
		}
	}
	return "error"
}
