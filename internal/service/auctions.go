package service

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/Sidbot007/StudentBidz/internal/model"
	"github.com/Sidbot007/StudentBidz/internal/repository"
)

type AuctionServicer interface {
	CreateAuction(ctx context.Context, sellerID uuid.UUID, req model.CreateAuctionRequest) (model.Auction, error)
	GetAuction(ctx context.Context, id uuid.UUID) (model.AuctionDetails, error)
	ListActive(ctx context.Context, auctionType string) ([]model.AuctionDetails, error)
	ListBySeller(ctx context.Context, sellerID uuid.UUID, status *model.AuctionStatus) ([]model.AuctionDetails, error)
	ListWon(ctx context.Context, userID uuid.UUID) ([]model.AuctionDetails, error)
	ListBidding(ctx context.Context, userID uuid.UUID) ([]model.AuctionDetails, error)
	DeleteAuction(ctx context.Context, id, callerID uuid.UUID) error
	Relist(ctx context.Context, id uuid.UUID, newEndTime time.Time, callerID uuid.UUID) (model.Auction, error)
	UpdateAuctionTime(ctx context.Context, id uuid.UUID, newEndTime time.Time, reason string, callerID uuid.UUID) (model.Auction, error)
	RestrictBidder(ctx context.Context, id, userID, callerID uuid.UUID) error
	UnrestrictBidder(ctx context.Context, id, userID, callerID uuid.UUID) error
}

// AuctionService owns the seller side of the auction lifecycle.
type AuctionService struct {
	store    repository.AuctionStore
	users    *UserService
	notifier *NotificationService
	log      *zap.Logger
	now      Clock
}

var _ AuctionServicer = (*AuctionService)(nil)

func NewAuctionService(store repository.AuctionStore, users *UserService, notifier *NotificationService, opts ...Option) *AuctionService {
	o := newOptions(opts)
	return &AuctionService{
		store:    store,
		users:    users,
		notifier: notifier,
		log:      o.log,
		now:      o.now,
	}
}

func (as *AuctionService) CreateAuction(ctx context.Context, sellerID uuid.UUID, req model.CreateAuctionRequest) (model.Auction, error) {
	now := as.now()
	title := strings.TrimSpace(req.Title)
	if title == "" {
		return model.Auction{}, fmt.Errorf("%w: title is required", ErrValidation)
	}
	if !req.StartingPrice.IsPositive() {
		return model.Auction{}, ErrInvalidPrice
	}
	if err := checkMoney(req.StartingPrice); err != nil {
		return model.Auction{}, err
	}
	if !req.EndTime.After(now) {
		return model.Auction{}, ErrEndTimeNotFuture
	}
	kind, err := model.ParseAuctionType(req.Type)
	if err != nil {
		return model.Auction{}, fmt.Errorf("%w: %s", ErrValidation, err)
	}

	a := model.Auction{
		ID:                    uuid.New(),
		Title:                 title,
		Description:           req.Description,
		StartingPrice:         req.StartingPrice,
		OriginalStartingPrice: req.StartingPrice,
		EndTime:               req.EndTime,
		SellerID:              sellerID,
		Status:                model.AuctionActive,
		Type:                  kind,
		RestrictedBidders:     []uuid.UUID{},
		CreatedAt:             now,
	}
	if err := as.store.CreateAuction(ctx, a); err != nil {
		return model.Auction{}, err
	}

	as.log.Info("[AuctionService] auction created -> ", zap.Stringer("auction_id", a.ID), zap.Stringer("seller_id", sellerID))
	return a, nil
}

func (as *AuctionService) GetAuction(ctx context.Context, id uuid.UUID) (model.AuctionDetails, error) {
	a, err := as.store.GetAuction(ctx, id)
	if err != nil {
		return model.AuctionDetails{}, storeErr(err)
	}
	return as.details(ctx, a)
}

// ListActive returns ACTIVE auctions ending soonest first. An empty type or "ALL" lists every type.
func (as *AuctionService) ListActive(ctx context.Context, auctionType string) ([]model.AuctionDetails, error) {
	var kind model.AuctionType
	if auctionType != "" && !strings.EqualFold(auctionType, "ALL") {
		k, err := model.ParseAuctionType(auctionType)
		if err != nil {
			return nil, fmt.Errorf("%w: %s", ErrValidation, err)
		}
		kind = k
	}

	auctions, err := as.store.AuctionsByStatus(ctx, model.AuctionActive, time.Time{}, time.Time{})
	if err != nil {
		return nil, err
	}
	out := make([]model.AuctionDetails, 0, len(auctions))
	for _, a := range auctions {
		if kind != "" && a.Type != kind {
			continue
		}
		d, err := as.details(ctx, a)
		if err != nil {
			return nil, err
		}
		out = append(out, d)
	}
	return out, nil
}

// ListBySeller lists the seller's auctions, optionally only those in status.
func (as *AuctionService) ListBySeller(ctx context.Context, sellerID uuid.UUID, status *model.AuctionStatus) ([]model.AuctionDetails, error) {
	auctions, err := as.store.AuctionsBySeller(ctx, sellerID, status)
	if err != nil {
		return nil, err
	}
	return as.detailsAll(ctx, auctions)
}

// ListWon lists the auctions userID was declared the winner of.
func (as *AuctionService) ListWon(ctx context.Context, userID uuid.UUID) ([]model.AuctionDetails, error) {
	auctions, err := as.store.AuctionsByWinner(ctx, userID)
	if err != nil {
		return nil, err
	}
	return as.detailsAll(ctx, auctions)
}

// ListBidding lists the auctions where userID holds a live bid, in any status.
func (as *AuctionService) ListBidding(ctx context.Context, userID uuid.UUID) ([]model.AuctionDetails, error) {
	auctions, err := as.store.AuctionsByBidder(ctx, userID)
	if err != nil {
		return nil, err
	}
	return as.detailsAll(ctx, auctions)
}

func (as *AuctionService) detailsAll(ctx context.Context, auctions []model.Auction) ([]model.AuctionDetails, error) {
	out := make([]model.AuctionDetails, 0, len(auctions))
	for _, a := range auctions {
		d, err := as.details(ctx, a)
		if err != nil {
			return nil, err
		}
		out = append(out, d)
	}
	return out, nil
}

// details adds the current price, and for sold auctions the price a relist would start from.
func (as *AuctionService) details(ctx context.Context, a model.Auction) (model.AuctionDetails, error) {
	bids, err := as.store.BidsByAmountDesc(ctx, a.ID)
	if err != nil {
		return model.AuctionDetails{}, err
	}
	d := model.AuctionDetails{Auction: a, CurrentBid: a.StartingPrice, BidCount: len(bids)}
	if len(bids) > 0 {
		d.CurrentBid = bids[0].Amount
	}
	if a.Status == model.AuctionSold {
		second := a.StartingPrice
		if len(bids) >= 2 {
			second = bids[1].Amount
		}
		d.SecondHighestBid = &second
	}
	return d, nil
}

// DeleteAuction removes the auction and its bids. Seller only.
func (as *AuctionService) DeleteAuction(ctx context.Context, id, callerID uuid.UUID) error {
	a, err := as.store.GetAuction(ctx, id)
	if err != nil {
		return storeErr(err)
	}
	if !a.IsSeller(callerID) {
		return ErrNotSeller
	}
	if err := as.store.DeleteAuction(ctx, id); err != nil {
		return storeErr(err)
	}
	as.log.Info("[AuctionService] auction deleted -> ", zap.Stringer("auction_id", id))
	return nil
}

// Relist reopens a SOLD auction. With two or more bids the runner-up's bid
// survives alone and becomes the new starting price. A single bid is dropped
// and the original starting price restored. With no bids the price stays.
func (as *AuctionService) Relist(ctx context.Context, id uuid.UUID, newEndTime time.Time, callerID uuid.UUID) (model.Auction, error) {
	now := as.now()

	var (
		out model.Auction
		fx  outbox
	)
	err := as.store.WithAuction(ctx, id, func(tx repository.AuctionTx) error {
		fx.reset()

		a := tx.Auction()
		if !a.IsSeller(callerID) {
			return ErrNotSeller
		}
		if a.Status != model.AuctionSold {
			return ErrAuctionNotSold
		}
		if !newEndTime.After(now) {
			return ErrEndTimeNotFuture
		}

		bids, err := tx.BidsByAmountDesc(ctx)
		if err != nil {
			return err
		}
		price := a.StartingPrice
		var kept *model.Bid
		switch {
		case len(bids) >= 2:
			kept = &bids[1]
			price = kept.Amount
			err = tx.DeleteBidsExcept(ctx, kept.ID)
		case len(bids) == 1:
			price = a.OriginalStartingPrice
			err = tx.DeleteBidsExcept(ctx, uuid.Nil)
		}
		if err != nil {
			return err
		}

		a.Reopen(price, newEndTime)
		if err := tx.UpdateAuction(ctx, a); err != nil {
			return err
		}
		out = a

		fx.publish(model.RelistEvent{
			AuctionID:      a.ID,
			NewEndTime:     a.EndTime,
			SellerUsername: as.users.name(ctx, tx, a.SellerID),
		})
		if kept != nil {
			fx.notify(model.NewNotification(kept.BidderID, a, model.RelistedMessage{AuctionTitle: a.Title}, now))
		}
		return nil
	})
	if err != nil {
		return model.Auction{}, storeErr(err)
	}

	as.log.Info("[AuctionService] auction relisted -> ",
		zap.Stringer("auction_id", id),
		zap.String("starting_price", out.StartingPrice.StringFixed(2)),
		zap.Time("end_time", out.EndTime))
	as.notifier.flush(ctx, &fx)
	return out, nil
}

// UpdateAuctionTime moves the end time of an ACTIVE auction and tells every bidder.
func (as *AuctionService) UpdateAuctionTime(ctx context.Context, id uuid.UUID, newEndTime time.Time, reason string, callerID uuid.UUID) (model.Auction, error) {
	now := as.now()

	var (
		out model.Auction
		fx  outbox
	)
	err := as.store.WithAuction(ctx, id, func(tx repository.AuctionTx) error {
		fx.reset()

		a := tx.Auction()
		if !a.IsSeller(callerID) {
			return ErrNotSeller
		}
		if a.Status != model.AuctionActive {
			return ErrAuctionNotActive
		}
		if !newEndTime.After(now) {
			return ErrEndTimeNotFuture
		}

		a.EndTime = newEndTime
		if err := tx.UpdateAuction(ctx, a); err != nil {
			return err
		}
		out = a

		bids, err := tx.BidsByAmountDesc(ctx)
		if err != nil {
			return err
		}
		fx.publish(model.TimeUpdateEvent{
			AuctionID:      a.ID,
			NewEndTime:     a.EndTime,
			Reason:         reason,
			SellerUsername: as.users.name(ctx, tx, a.SellerID),
		})
		for _, b := range bids {
			fx.notify(model.NewNotification(b.BidderID, a, model.TimeUpdatedMessage{AuctionTitle: a.Title, Reason: reason}, now))
		}
		return nil
	})
	if err != nil {
		return model.Auction{}, storeErr(err)
	}

	as.notifier.flush(ctx, &fx)
	return out, nil
}

// RestrictBidder bars userID from bidding. Existing bids stay. Restricting twice is a no-op.
func (as *AuctionService) RestrictBidder(ctx context.Context, id, userID, callerID uuid.UUID) error {
	return as.setRestricted(ctx, id, userID, callerID, true)
}

func (as *AuctionService) UnrestrictBidder(ctx context.Context, id, userID, callerID uuid.UUID) error {
	return as.setRestricted(ctx, id, userID, callerID, false)
}

func (as *AuctionService) setRestricted(ctx context.Context, id, userID, callerID uuid.UUID, restrict bool) error {
	err := as.store.WithAuction(ctx, id, func(tx repository.AuctionTx) error {
		a := tx.Auction()
		if !a.IsSeller(callerID) {
			return ErrNotSeller
		}
		if _, err := tx.GetUser(ctx, userID); err != nil {
			return err
		}
		if restrict && a.IsSeller(userID) {
			return ErrRestrictSeller
		}

		var changed bool
		if restrict {
			changed = a.Restrict(userID)
		} else {
			changed = a.Unrestrict(userID)
		}
		if !changed {
			return nil
		}
		return tx.UpdateAuction(ctx, a)
	})
	return storeErr(err)
}
