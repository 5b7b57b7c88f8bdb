package model

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// Event is a payload fanned out to subscribers of its topic.
type Event interface {
	Topic() string
}

func BidsTopic(auctionID uuid.UUID) string       { return "bids/" + auctionID.String() }
func TimeUpdateTopic(auctionID uuid.UUID) string { return "auction-time-update/" + auctionID.String() }
func RelistTopic(auctionID uuid.UUID) string     { return "product-relist/" + auctionID.String() }
func WinnerTopic(auctionID uuid.UUID) string     { return "winner-declared/" + auctionID.String() }
func UserTopic(userID uuid.UUID) string          { return "notifications/" + userID.String() }

type BidUpdateEvent struct {
	AuctionID      uuid.UUID       `json:"product_id"`
	Amount         decimal.Decimal `json:"bid_amount"`
	BidderID       uuid.UUID       `json:"bidder_id"`
	BidderUsername string          `json:"bidder_username"`
	Timestamp      time.Time       `json:"timestamp"`
}

func (e BidUpdateEvent) Topic() string { return BidsTopic(e.AuctionID) }

type TimeUpdateEvent struct {
	AuctionID      uuid.UUID `json:"product_id"`
	NewEndTime     time.Time `json:"new_end_time"`
	Reason         string    `json:"reason,omitempty"`
	SellerUsername string    `json:"seller_username"`
}

func (e TimeUpdateEvent) Topic() string { return TimeUpdateTopic(e.AuctionID) }

type RelistEvent struct {
	AuctionID      uuid.UUID `json:"product_id"`
	NewEndTime     time.Time `json:"new_end_time"`
	SellerUsername string    `json:"seller_username"`
}

func (e RelistEvent) Topic() string { return RelistTopic(e.AuctionID) }

type WinnerDeclaredEvent struct {
	AuctionID      uuid.UUID `json:"product_id"`
	WinnerID       uuid.UUID `json:"winner_id"`
	WinnerUsername string    `json:"winner_username"`
}

func (e WinnerDeclaredEvent) Topic() string { return WinnerTopic(e.AuctionID) }

// NotificationEvent pushes a freshly stored notification to its recipient.
type NotificationEvent struct {
	Notification Notification `json:"notification"`
}

func (e NotificationEvent) Topic() string { return UserTopic(e.Notification.RecipientID) }
