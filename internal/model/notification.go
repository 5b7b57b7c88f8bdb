package model

import (
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

type NotificationType string

const (
	NotificationChatMessage     NotificationType = "CHAT_MESSAGE"
	NotificationDeclaredWinner  NotificationType = "DECLARED_WINNER"
	NotificationOutbid          NotificationType = "OUTBID"
	NotificationAuctionEnding   NotificationType = "AUCTION_ENDING"
	NotificationAuctionEnded    NotificationType = "AUCTION_ENDED"
	NotificationProductRelisted NotificationType = "PRODUCT_RELISTED"
	NotificationTimeUpdated     NotificationType = "TIME_UPDATED"
	NotificationWinnerExited    NotificationType = "WINNER_EXITED"
)

type NotificationStatus string

const (
	NotificationRead   NotificationStatus = "READ"
	NotificationUnread NotificationStatus = "UNREAD"
)

// EndingSoonTag marks the single 30 minute warning a bidder gets per auction.
const EndingSoonTag = "30MIN"

type Notification struct {
	ID          uuid.UUID          `json:"id"`
	RecipientID uuid.UUID          `json:"recipient_id"`
	Type        NotificationType   `json:"type"`
	Title       string             `json:"title"`
	Body        string             `json:"body"`
	Status      NotificationStatus `json:"status"`
	CreatedAt   time.Time          `json:"created_at"`
	RelatedURL  string             `json:"related_url,omitempty"`
	AuctionID   *uuid.UUID         `json:"auction_id,omitempty"`
	DedupTag    *string            `json:"-"`
}

// Message is the typed payload of a notification. Each notification type has
// its own struct so the fields a message needs are checked at compile time.
type Message interface {
	Type() NotificationType
	Title() string
	Body() string
}

// NewNotification builds an unread notification about auction a for recipient.
func NewNotification(recipient uuid.UUID, a Auction, msg Message, now time.Time) Notification {
	auctionID := a.ID
	return Notification{
		ID:          uuid.New(),
		RecipientID: recipient,
		Type:        msg.Type(),
		Title:       msg.Title(),
		Body:        msg.Body(),
		Status:      NotificationUnread,
		CreatedAt:   now,
		RelatedURL:  a.URL(),
		AuctionID:   &auctionID,
	}
}

// WithDedupTag returns a copy of n carrying tag.
func (n Notification) WithDedupTag(tag string) Notification {
	t := tag
	n.DedupTag = &t
	return n
}

// Tag returns the dedup tag or "" when the notification has none.
func (n Notification) Tag() string {
	if n.DedupTag == nil {
		return ""
	}
	return *n.DedupTag
}

func formatPrice(d decimal.Decimal) string {
	return "₹" + d.StringFixed(2)
}

type OutbidMessage struct {
	AuctionTitle string
	Bidder       string
	Amount       decimal.Decimal
}

func (OutbidMessage) Type() NotificationType { return NotificationOutbid }
func (OutbidMessage) Title() string          { return "You've been outbid!" }
func (m OutbidMessage) Body() string {
	return fmt.Sprintf("%s has outbid you on %q with %s", m.Bidder, m.AuctionTitle, formatPrice(m.Amount))
}

type DeclaredWinnerMessage struct {
	AuctionTitle string
	Amount       decimal.Decimal
}

func (DeclaredWinnerMessage) Type() NotificationType { return NotificationDeclaredWinner }
func (DeclaredWinnerMessage) Title() string          { return "Congratulations! You won!" }
func (m DeclaredWinnerMessage) Body() string {
	return fmt.Sprintf("You've been declared the winner of %q for %s", m.AuctionTitle, formatPrice(m.Amount))
}

type AuctionEndingMessage struct {
	AuctionTitle string
	CurrentBid   decimal.Decimal
}

func (AuctionEndingMessage) Type() NotificationType { return NotificationAuctionEnding }
func (AuctionEndingMessage) Title() string          { return "Auction ending soon!" }
func (m AuctionEndingMessage) Body() string {
	return fmt.Sprintf("The auction for %q ends in 30 minutes. Current highest bid: %s", m.AuctionTitle, formatPrice(m.CurrentBid))
}

type AuctionEndedMessage struct {
	AuctionTitle string
	FinalPrice   decimal.Decimal
}

func (AuctionEndedMessage) Type() NotificationType { return NotificationAuctionEnded }
func (AuctionEndedMessage) Title() string          { return "Auction ended" }
func (m AuctionEndedMessage) Body() string {
	return fmt.Sprintf("The auction for %q has ended. Final price: %s", m.AuctionTitle, formatPrice(m.FinalPrice))
}

type RelistedMessage struct {
	AuctionTitle string
}

func (RelistedMessage) Type() NotificationType { return NotificationProductRelisted }
func (RelistedMessage) Title() string          { return "Product relisted" }
func (m RelistedMessage) Body() string {
	return fmt.Sprintf("The product %q has been relisted and your bid is still active", m.AuctionTitle)
}

type TimeUpdatedMessage struct {
	AuctionTitle string
	Reason       string
}

func (TimeUpdatedMessage) Type() NotificationType { return NotificationTimeUpdated }
func (TimeUpdatedMessage) Title() string          { return "Auction time updated" }
func (m TimeUpdatedMessage) Body() string {
	body := fmt.Sprintf("The auction time for %q has been updated by the seller", m.AuctionTitle)
	if m.Reason != "" {
		body += ": " + m.Reason
	}
	return body
}

type WinnerExitedMessage struct {
	AuctionTitle string
}

func (WinnerExitedMessage) Type() NotificationType { return NotificationWinnerExited }
func (WinnerExitedMessage) Title() string          { return "Winner exited auction" }
func (m WinnerExitedMessage) Body() string {
	return fmt.Sprintf("The winner has exited the auction for %q. You may relist or contact other bidders.", m.AuctionTitle)
}
