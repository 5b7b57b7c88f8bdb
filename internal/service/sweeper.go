package service

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/Sidbot007/StudentBidz/internal/metrics"
	"github.com/Sidbot007/StudentBidz/internal/model"
	"github.com/Sidbot007/StudentBidz/internal/repository"
)

// Sweeper periodically warns bidders of auctions that end in about 30
// minutes and settles auctions whose end time has passed.
type Sweeper struct {
	store    repository.AuctionStore
	users    *UserService
	notifier *NotificationService
	log      *zap.Logger
	metrics  *metrics.Recorder
	now      Clock
	interval time.Duration

	mu     sync.Mutex
	cancel context.CancelFunc
	done   chan struct{}
}

func NewSweeper(store repository.AuctionStore, users *UserService, notifier *NotificationService, opts ...Option) *Sweeper {
	o := newOptions(opts)
	return &Sweeper{
		store:    store,
		users:    users,
		notifier: notifier,
		log:      o.log,
		metrics:  o.metrics,
		now:      o.now,
		interval: o.interval,
	}
}

// Start ticks every interval until ctx is cancelled or Stop is called.
func (s *Sweeper) Start(ctx context.Context) error {
	s.log.Info("[Sweeper] starting -> ", zap.Duration("interval", s.interval))

	sweepCtx, cancel := context.WithCancel(ctx)
	done := make(chan struct{})
	s.mu.Lock()
	s.cancel, s.done = cancel, done
	s.mu.Unlock()
	defer func() {
		cancel()
		close(done)
		s.log.Info("[Sweeper] stopped")
	}()

	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			if err := s.Tick(sweepCtx, s.now()); err != nil {
				s.log.Error("[Sweeper] tick finished with errors -> ", zap.Error(err))
			}
		case <-sweepCtx.Done():
			return nil
		}
	}
}

// Stop cancels a running Start and waits for it to return.
func (s *Sweeper) Stop() {
	s.mu.Lock()
	cancel, done := s.cancel, s.done
	s.mu.Unlock()
	if cancel == nil {
		return
	}
	cancel()
	<-done
}

// Tick runs the ending-soon pass and then the close pass as of now.
// A failing auction does not stop the batch; all failures are joined.
func (s *Sweeper) Tick(ctx context.Context, now time.Time) error {
	return errors.Join(
		s.timed("ending_soon", func() error { return s.warnEndingSoon(ctx, now) }),
		s.timed("close", func() error { return s.closeExpired(ctx, now) }),
	)
}

func (s *Sweeper) timed(pass string, fn func() error) error {
	start := time.Now()
	err := fn()
	s.metrics.SweepDuration(pass, time.Since(start), err == nil)
	return err
}

func (s *Sweeper) warnEndingSoon(ctx context.Context, now time.Time) error {
	from, to := now.Add(EndingSoonFrom), now.Add(EndingSoonTo)
	auctions, err := s.store.AuctionsByStatus(ctx, model.AuctionActive, from, to)
	if err != nil {
		return fmt.Errorf("list auctions ending soon: %w", err)
	}

	var errs []error
	for _, candidate := range auctions {
		if err := s.warnAuction(ctx, candidate.ID, from, to, now); err != nil {
			s.log.Error("[Sweeper] ending-soon warning failed -> ", zap.Stringer("auction_id", candidate.ID), zap.Error(err))
			errs = append(errs, fmt.Errorf("warn auction %s: %w", candidate.ID, err))
		}
	}
	return errors.Join(errs...)
}

func (s *Sweeper) warnAuction(ctx context.Context, id uuid.UUID, from, to, now time.Time) error {
	var notes []model.Notification
	err := s.store.WithAuction(ctx, id, func(tx repository.AuctionTx) error {
		notes = nil

		a := tx.Auction()
		if a.Status != model.AuctionActive || a.EndTime.Before(from) || !a.EndTime.Before(to) {
			return nil
		}
		bids, err := tx.BidsByAmountDesc(ctx)
		if err != nil {
			return err
		}
		if len(bids) == 0 {
			return nil
		}
		msg := model.AuctionEndingMessage{AuctionTitle: a.Title, CurrentBid: bids[0].Amount}
		for _, b := range bids {
			notes = append(notes, model.NewNotification(b.BidderID, a, msg, now).WithDedupTag(model.EndingSoonTag))
		}
		return nil
	})
	if err != nil {
		return err
	}

	var errs []error
	for _, n := range notes {
		if _, err := s.notifier.NotifyOnce(ctx, n); err != nil {
			errs = append(errs, fmt.Errorf("notify %s: %w", n.RecipientID, err))
		}
	}
	return errors.Join(errs...)
}

func (s *Sweeper) closeExpired(ctx context.Context, now time.Time) error {
	// the upper bound is exclusive; nudge it so end_time == now is included
	auctions, err := s.store.AuctionsByStatus(ctx, model.AuctionActive, time.Time{}, now.Add(time.Microsecond))
	if err != nil {
		return fmt.Errorf("list expired auctions: %w", err)
	}

	var errs []error
	for _, candidate := range auctions {
		if err := s.closeAuction(ctx, candidate.ID, now); err != nil {
			s.log.Error("[Sweeper] close failed -> ", zap.Stringer("auction_id", candidate.ID), zap.Error(err))
			errs = append(errs, fmt.Errorf("close auction %s: %w", candidate.ID, err))
		}
	}
	return errors.Join(errs...)
}

// closeAuction re-reads the auction under its lock, so one extended by a
// late bid after it was listed is left open.
func (s *Sweeper) closeAuction(ctx context.Context, id uuid.UUID, now time.Time) error {
	var (
		fx      outbox
		outcome string
	)
	err := s.store.WithAuction(ctx, id, func(tx repository.AuctionTx) error {
		fx.reset()
		outcome = ""

		a := tx.Auction()
		if a.Status != model.AuctionActive || a.EndTime.After(now) {
			return nil
		}
		bids, err := tx.BidsByAmountDesc(ctx)
		if err != nil {
			return err
		}

		final := a.StartingPrice
		if len(bids) > 0 {
			top := bids[0]
			final = top.Amount
			a.MarkSold(top.BidderID)
			outcome = "sold"
			fx.notify(model.NewNotification(top.BidderID, a, model.DeclaredWinnerMessage{
				AuctionTitle: a.Title,
				Amount:       top.Amount,
			}, now))
			fx.publish(model.WinnerDeclaredEvent{
				AuctionID:      a.ID,
				WinnerID:       top.BidderID,
				WinnerUsername: s.users.name(ctx, tx, top.BidderID),
			})
		} else {
			a.MarkEnded()
			outcome = "ended"
		}
		if err := tx.UpdateAuction(ctx, a); err != nil {
			return err
		}

		ended := model.AuctionEndedMessage{AuctionTitle: a.Title, FinalPrice: final}
		for _, b := range bids {
			fx.notify(model.NewNotification(b.BidderID, a, ended, now))
		}
		return nil
	})
	if err != nil {
		return storeErr(err)
	}
	if outcome == "" {
		return nil
	}

	s.metrics.AuctionClosed(outcome)
	s.log.Info("[Sweeper] auction closed -> ", zap.Stringer("auction_id", id), zap.String("outcome", outcome))
	s.notifier.flush(ctx, &fx)
	return nil
}
