package service

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/Sidbot007/StudentBidz/internal/metrics"
	"github.com/Sidbot007/StudentBidz/internal/model"
	"github.com/Sidbot007/StudentBidz/internal/repository"
)

type BidServicer interface {
	PlaceBid(ctx context.Context, auctionID, bidderID uuid.UUID, amount decimal.Decimal, now time.Time) (model.Bid, error)
	GetHighestBid(ctx context.Context, auctionID, callerID uuid.UUID) (model.Bid, bool, error)
	DeleteBid(ctx context.Context, bidID, callerID uuid.UUID) error
	DeclareWinner(ctx context.Context, auctionID, bidderID, callerID uuid.UUID) error
	BidsByUser(ctx context.Context, userID uuid.UUID) ([]model.Bid, error)
	BiddersForAuction(ctx context.Context, auctionID, callerID uuid.UUID) ([]model.Bid, error)
}

// BidService admits bids and handles winner declaration and bid withdrawal.
type BidService struct {
	store    repository.AuctionStore
	users    *UserService
	notifier *NotificationService
	log      *zap.Logger
	metrics  *metrics.Recorder
	now      Clock
}

var _ BidServicer = (*BidService)(nil)

func NewBidService(store repository.AuctionStore, users *UserService, notifier *NotificationService, opts ...Option) *BidService {
	o := newOptions(opts)
	return &BidService{
		store:    store,
		users:    users,
		notifier: notifier,
		log:      o.log,
		metrics:  o.metrics,
		now:      o.now,
	}
}

// PlaceBid admits amount from bidder on the auction at time now. Checks run in
// order: auction open, bidder not restricted, cooldown, amount rules, quotas.
// A rejected bid changes nothing.
func (bs *BidService) PlaceBid(ctx context.Context, auctionID, bidderID uuid.UUID, amount decimal.Decimal, now time.Time) (model.Bid, error) {
	bidderName := bs.users.name(ctx, bs.store, bidderID)

	var (
		bid      model.Bid
		extended bool
		fx       outbox
	)
	err := bs.store.WithAuction(ctx, auctionID, func(tx repository.AuctionTx) error {
		fx.reset()
		extended = false

		a := tx.Auction()
		if a.Status != model.AuctionActive || !now.Before(a.EndTime) {
			return ErrAuctionEnded
		}
		if a.IsRestricted(bidderID) {
			return ErrBidderRestricted
		}

		// Held until commit; serializes the quota reads below with the insert.
		if err := tx.LockBidder(ctx, bidderID); err != nil {
			return err
		}

		last, hasLast, err := tx.LastBidAt(ctx, bidderID)
		if err != nil {
			return err
		}
		if hasLast && now.Sub(last) < BidCooldown {
			return ErrBidTooFrequent
		}

		top, hasTop, err := tx.HighestBid(ctx)
		if err != nil {
			return err
		}
		if err := checkMoney(amount); err != nil {
			return err
		}
		if err := checkAmount(priceToBeat(a, top, hasTop), amount); err != nil {
			return err
		}

		since := now.Add(-QuotaWindow)
		daily, err := tx.CountBidsSince(ctx, bidderID, since)
		if err != nil {
			return err
		}
		if daily >= DailyBidLimit {
			return ErrDailyLimit
		}
		perAuction, err := tx.CountAuctionBidsSince(ctx, bidderID, since)
		if err != nil {
			return err
		}
		if perAuction >= AuctionDailyBidLimit {
			return ErrAuctionDailyLimit
		}

		// A bid sitting at the starting price was carried over by a relist and is not outbid.
		outbid := uuid.Nil
		if hasTop && top.Amount.GreaterThan(a.StartingPrice) && top.BidderID != bidderID {
			outbid = top.BidderID
		}

		bid = model.Bid{
			ID:        uuid.New(),
			AuctionID: a.ID,
			BidderID:  bidderID,
			Amount:    amount,
			Timestamp: now,
		}
		if err := tx.PutBid(ctx, bid); err != nil {
			return err
		}

		if shouldExtend(a.EndTime, now) {
			a.EndTime = a.EndTime.Add(ExtendBy)
			if err := tx.UpdateAuction(ctx, a); err != nil {
				return err
			}
			extended = true
			fx.publish(model.TimeUpdateEvent{
				AuctionID:      a.ID,
				NewEndTime:     a.EndTime,
				SellerUsername: bs.users.name(ctx, tx, a.SellerID),
			})
		}

		if outbid != uuid.Nil {
			fx.notify(model.NewNotification(outbid, a, model.OutbidMessage{
				AuctionTitle: a.Title,
				Bidder:       bidderName,
				Amount:       amount,
			}, now))
		}
		fx.publish(model.BidUpdateEvent{
			AuctionID:      a.ID,
			Amount:         amount,
			BidderID:       bidderID,
			BidderUsername: bidderName,
			Timestamp:      now,
		})
		return nil
	})
	if err != nil {
		err = storeErr(err)
		bs.metrics.BidRejected(rejectReason(err))
		return model.Bid{}, err
	}

	bs.metrics.BidAccepted(extended)
	bs.log.Info("[BidService] bid accepted -> ",
		zap.Stringer("auction_id", auctionID),
		zap.Stringer("bidder_id", bidderID),
		zap.String("amount", amount.StringFixed(2)),
		zap.Bool("extended", extended))

	bs.notifier.flush(ctx, &fx)
	return bid, nil
}

// GetHighestBid is visible to the seller only. The bool is false when there are no bids.
func (bs *BidService) GetHighestBid(ctx context.Context, auctionID, callerID uuid.UUID) (model.Bid, bool, error) {
	a, err := bs.store.GetAuction(ctx, auctionID)
	if err != nil {
		return model.Bid{}, false, storeErr(err)
	}
	if !a.IsSeller(callerID) {
		return model.Bid{}, false, ErrNotSeller
	}
	return bs.store.HighestBid(ctx, auctionID)
}

// DeleteBid withdraws the caller's bid. Withdrawing the declared winner's bid
// reverts the auction to ENDED and tells the seller.
func (bs *BidService) DeleteBid(ctx context.Context, bidID, callerID uuid.UUID) error {
	b, err := bs.store.GetBid(ctx, bidID)
	if err != nil {
		return storeErr(err)
	}
	if b.BidderID != callerID {
		return ErrNotBidOwner
	}

	var fx outbox
	exited := false
	err = bs.store.WithAuction(ctx, b.AuctionID, func(tx repository.AuctionTx) error {
		fx.reset()
		exited = false

		if err := tx.DeleteBid(ctx, bidID); err != nil {
			return err
		}
		a := tx.Auction()
		if !a.IsWinner(b.BidderID) {
			return nil
		}
		a.MarkEnded()
		if err := tx.UpdateAuction(ctx, a); err != nil {
			return err
		}
		exited = true
		fx.notify(model.NewNotification(a.SellerID, a, model.WinnerExitedMessage{AuctionTitle: a.Title}, bs.now()))
		return nil
	})
	if err != nil {
		return storeErr(err)
	}

	if exited {
		bs.log.Info("[BidService] winner withdrew, auction reverted to ENDED -> ", zap.Stringer("auction_id", b.AuctionID))
	}
	bs.notifier.flush(ctx, &fx)
	return nil
}

// DeclareWinner lets the seller close an active auction in favour of bidderID.
// The winner is told the highest bid, or the starting price when nobody bid.
// That fallback names an amount that was never offered; it is kept for client
// compatibility and should not be relied on as a price.
func (bs *BidService) DeclareWinner(ctx context.Context, auctionID, bidderID, callerID uuid.UUID) error {
	var fx outbox
	err := bs.store.WithAuction(ctx, auctionID, func(tx repository.AuctionTx) error {
		fx.reset()

		a := tx.Auction()
		if !a.IsSeller(callerID) {
			return ErrNotSeller
		}
		if a.Status != model.AuctionActive {
			return ErrAuctionNotActive
		}
		if _, err := tx.GetUser(ctx, bidderID); err != nil {
			return err
		}

		top, hasTop, err := tx.HighestBid(ctx)
		if err != nil {
			return err
		}
		a.MarkSold(bidderID)
		if err := tx.UpdateAuction(ctx, a); err != nil {
			return err
		}
		fx.notify(model.NewNotification(bidderID, a, model.DeclaredWinnerMessage{
			AuctionTitle: a.Title,
			Amount:       priceToBeat(a, top, hasTop),
		}, bs.now()))
		return nil
	})
	if err != nil {
		return storeErr(err)
	}

	bs.log.Info("[BidService] winner declared -> ", zap.Stringer("auction_id", auctionID), zap.Stringer("winner_id", bidderID))
	bs.notifier.flush(ctx, &fx)
	return nil
}

func (bs *BidService) BidsByUser(ctx context.Context, userID uuid.UUID) ([]model.Bid, error) {
	return bs.store.BidsByBidder(ctx, userID)
}

// BiddersForAuction lists the live bids, highest first. Seller only.
func (bs *BidService) BiddersForAuction(ctx context.Context, auctionID, callerID uuid.UUID) ([]model.Bid, error) {
	a, err := bs.store.GetAuction(ctx, auctionID)
	if err != nil {
		return nil, storeErr(err)
	}
	if !a.IsSeller(callerID) {
		return nil, ErrNotSeller
	}
	return bs.store.BidsByAmountDesc(ctx, auctionID)
}
