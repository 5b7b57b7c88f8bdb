package repository

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"

	"github.com/Sidbot007/StudentBidz/internal/model"
)

var (
	ErrAuctionNotFound      = errors.New("auction not found")
	ErrBidNotFound          = errors.New("bid not found")
	ErrUserNotFound         = errors.New("user not found")
	ErrNotificationNotFound = errors.New("notification not found")
	ErrAuctionExists        = errors.New("auction already exists")
)

// AuctionStore persists auctions, bids, user references and notifications.
// Reads outside WithAuction see committed state only.
type AuctionStore interface {
	CreateUser(ctx context.Context, u model.User) error
	GetUser(ctx context.Context, id uuid.UUID) (model.User, error)

	CreateAuction(ctx context.Context, a model.Auction) error
	GetAuction(ctx context.Context, id uuid.UUID) (model.Auction, error)
	// DeleteAuction removes the auction together with its bids and bid history.
	DeleteAuction(ctx context.Context, id uuid.UUID) error
	// AuctionsByStatus returns auctions in status with from <= end_time < to,
	// ordered by end time. A zero bound is open.
	AuctionsByStatus(ctx context.Context, status model.AuctionStatus, from, to time.Time) ([]model.Auction, error)
	// AuctionsBySeller lists the seller's auctions by end time. A nil status returns all of them.
	AuctionsBySeller(ctx context.Context, sellerID uuid.UUID, status *model.AuctionStatus) ([]model.Auction, error)
	AuctionsByWinner(ctx context.Context, winnerID uuid.UUID) ([]model.Auction, error)
	// AuctionsByBidder lists the auctions holding a live bid from bidderID.
	AuctionsByBidder(ctx context.Context, bidderID uuid.UUID) ([]model.Auction, error)

	GetBid(ctx context.Context, id uuid.UUID) (model.Bid, error)
	HighestBid(ctx context.Context, auctionID uuid.UUID) (model.Bid, bool, error)
	BidsByAmountDesc(ctx context.Context, auctionID uuid.UUID) ([]model.Bid, error)
	BidsByBidder(ctx context.Context, bidderID uuid.UUID) ([]model.Bid, error)

	// WithAuction runs fn with exclusive access to the auction. Writes made
	// through tx are committed together when fn returns nil and discarded
	// otherwise. It returns ErrAuctionNotFound when the auction does not exist.
	WithAuction(ctx context.Context, auctionID uuid.UUID, fn func(tx AuctionTx) error) error

	CreateNotification(ctx context.Context, n model.Notification) error
	// CreateNotificationOnce inserts n unless a notification with the same
	// recipient, type, auction and dedup tag exists. It reports whether n was inserted.
	CreateNotificationOnce(ctx context.Context, n model.Notification) (bool, error)
	GetNotification(ctx context.Context, id uuid.UUID) (model.Notification, error)
	NotificationsByUser(ctx context.Context, userID uuid.UUID, status *model.NotificationStatus) ([]model.Notification, error)
	CountNotifications(ctx context.Context, userID uuid.UUID, status model.NotificationStatus) (int, error)
	MarkNotificationRead(ctx context.Context, id uuid.UUID) error
	MarkAllNotificationsRead(ctx context.Context, userID uuid.UUID) error
	DeleteNotification(ctx context.Context, id uuid.UUID) error
}

// AuctionTx is the view of one locked auction inside WithAuction.
type AuctionTx interface {
	Auction() model.Auction
	UpdateAuction(ctx context.Context, a model.Auction) error
	// GetUser reads a user reference on the transaction's own connection.
	GetUser(ctx context.Context, id uuid.UUID) (model.User, error)

	HighestBid(ctx context.Context) (model.Bid, bool, error)
	BidsByAmountDesc(ctx context.Context) ([]model.Bid, error)
	// PutBid replaces the bidder's live bid with b and appends b to the bid history.
	PutBid(ctx context.Context, b model.Bid) error
	DeleteBid(ctx context.Context, bidID uuid.UUID) error
	// DeleteBidsExcept deletes every bid of the auction except keep. uuid.Nil keeps none.
	DeleteBidsExcept(ctx context.Context, keep uuid.UUID) error

	// LockBidder serializes bid admission for one bidder across auctions
	// until the transaction ends. It must be taken after the auction lock.
	LockBidder(ctx context.Context, bidderID uuid.UUID) error
	// LastBidAt is the time of the bidder's most recent bid on this auction,
	// including bids that were since replaced.
	LastBidAt(ctx context.Context, bidderID uuid.UUID) (time.Time, bool, error)
	CountBidsSince(ctx context.Context, bidderID uuid.UUID, since time.Time) (int, error)
	CountAuctionBidsSince(ctx context.Context, bidderID uuid.UUID, since time.Time) (int, error)
}
