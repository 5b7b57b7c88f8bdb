package model

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

type CreateAuctionRequest struct {
	Title         string          `json:"title" validate:"required,min=3,max=200"`
	Description   string          `json:"description" validate:"max=2000"`
	StartingPrice decimal.Decimal `json:"starting_price" validate:"gt=0"`
	EndTime       time.Time       `json:"end_time" validate:"required"`
	Type          string          `json:"type" validate:"omitempty,oneof=BOOKS ELECTRONICS CLOTHING STATIONARY ACCESSORIES OTHERS"`
}

type PlaceBidRequest struct {
	Amount decimal.Decimal `json:"amount" validate:"gt=0"`
}

type RelistRequest struct {
	NewEndTime time.Time `json:"new_end_time" validate:"required"`
}

type UpdateTimeRequest struct {
	NewEndTime time.Time `json:"new_end_time" validate:"required"`
	Reason     string    `json:"reason" validate:"max=500"`
}

type DeclareWinnerRequest struct {
	BidderID uuid.UUID `json:"bidder_id" validate:"required"`
}

type RestrictRequest struct {
	UserID uuid.UUID `json:"user_id" validate:"required"`
}
