package model

import (
	"fmt"
	"slices"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

type AuctionStatus string

const (
	AuctionActive AuctionStatus = "ACTIVE"
	AuctionEnded  AuctionStatus = "ENDED"
	AuctionSold   AuctionStatus = "SOLD"
)

type AuctionType string

const (
	TypeBooks       AuctionType = "BOOKS"
	TypeElectronics AuctionType = "ELECTRONICS"
	TypeClothing    AuctionType = "CLOTHING"
	TypeStationary  AuctionType = "STATIONARY"
	TypeAccessories AuctionType = "ACCESSORIES"
	TypeOthers      AuctionType = "OTHERS"
)

var auctionTypes = []AuctionType{
	TypeBooks, TypeElectronics, TypeClothing, TypeStationary, TypeAccessories, TypeOthers,
}

// ParseAuctionType maps a case-insensitive category name to an AuctionType.
// An empty name falls back to OTHERS.
func ParseAuctionType(s string) (AuctionType, error) {
	if s == "" {
		return TypeOthers, nil
	}
	t := AuctionType(strings.ToUpper(s))
	if !slices.Contains(auctionTypes, t) {
		return "", fmt.Errorf("unknown auction type %q", s)
	}
	return t, nil
}

// Auction is a single item listed for bidding. In the original marketplace it was called a product.
type Auction struct {
	ID                    uuid.UUID       `json:"id"`
	Title                 string          `json:"title"`
	Description           string          `json:"description,omitempty"`
	StartingPrice         decimal.Decimal `json:"starting_price"`
	OriginalStartingPrice decimal.Decimal `json:"original_starting_price"`
	EndTime               time.Time       `json:"end_time"`
	SellerID              uuid.UUID       `json:"seller_id"`
	Status                AuctionStatus   `json:"status"`
	Type                  AuctionType     `json:"type"`
	WinnerID              *uuid.UUID      `json:"winner_id,omitempty"`
	RestrictedBidders     []uuid.UUID     `json:"restricted_bidders"`
	CreatedAt             time.Time       `json:"created_at"`
}

func (a Auction) IsSeller(userID uuid.UUID) bool {
	return a.SellerID == userID
}

func (a Auction) IsRestricted(userID uuid.UUID) bool {
	return slices.Contains(a.RestrictedBidders, userID)
}

func (a Auction) IsWinner(userID uuid.UUID) bool {
	return a.WinnerID != nil && *a.WinnerID == userID
}

// Restrict adds userID to the restricted set and reports whether the set changed.
func (a *Auction) Restrict(userID uuid.UUID) bool {
	if a.IsRestricted(userID) {
		return false
	}
	a.RestrictedBidders = append(a.RestrictedBidders, userID)
	return true
}

// Unrestrict removes userID from the restricted set and reports whether the set changed.
func (a *Auction) Unrestrict(userID uuid.UUID) bool {
	i := slices.Index(a.RestrictedBidders, userID)
	if i < 0 {
		return false
	}
	a.RestrictedBidders = slices.Delete(a.RestrictedBidders, i, i+1)
	return true
}

// MarkSold records the winner. WinnerID is set iff the status is SOLD.
func (a *Auction) MarkSold(winnerID uuid.UUID) {
	w := winnerID
	a.WinnerID = &w
	a.Status = AuctionSold
}

func (a *Auction) MarkEnded() {
	a.WinnerID = nil
	a.Status = AuctionEnded
}

// Reopen puts a sold auction back on the market with a new floor and close time.
func (a *Auction) Reopen(startingPrice decimal.Decimal, endTime time.Time) {
	a.WinnerID = nil
	a.Status = AuctionActive
	a.StartingPrice = startingPrice
	a.EndTime = endTime
}

// Clone returns a copy that shares no mutable state with a.
func (a Auction) Clone() Auction {
	c := a
	c.RestrictedBidders = slices.Clone(a.RestrictedBidders)
	if a.WinnerID != nil {
		w := *a.WinnerID
		c.WinnerID = &w
	}
	return c
}

// URL is the client route used in notifications.
func (a Auction) URL() string {
	return "/product/" + a.ID.String()
}
