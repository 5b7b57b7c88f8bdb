package model

import (
	"time"

	"github.com/shopspring/decimal"
)

// Metadata for the response
type Metadata struct {
	Timestamp time.Time `json:"timestamp"`
	RequestID string    `json:"request_id"`
}

// Error details
type ErrorDetails struct {
	Field string `json:"field"`
	Issue string `json:"issue"`
}

type APIError struct {
	Code    string         `json:"code"`
	Message string         `json:"message"`
	Details []ErrorDetails `json:"details"`
}

// Auction data with the derived prices the client shows
type AuctionDetails struct {
	Auction
	CurrentBid       decimal.Decimal  `json:"current_bid"`
	SecondHighestBid *decimal.Decimal `json:"second_highest_bid,omitempty"`
	BidCount         int              `json:"bid_count"`
}

type APIResponse[T any] struct {
	Status   string    `json:"status"`
	Message  string    `json:"message,omitempty"`
	Metadata Metadata  `json:"metadata"`
	Error    *APIError `json:"error,omitempty"`
	Data     T         `json:"data,omitempty"`
}
