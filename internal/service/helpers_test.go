package service

import (
	"context"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"
	"go.uber.org/mock/gomock"

	"github.com/Sidbot007/StudentBidz/internal/broadcast/mocks"
	"github.com/Sidbot007/StudentBidz/internal/model"
	"github.com/Sidbot007/StudentBidz/internal/repository"
)

var epoch = time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

type fakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fakeClock) Advance(d time.Duration) time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
	return c.now
}

func (c *fakeClock) Set(t time.Time) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = t
}

type published struct {
	topic   string
	payload any
}

// eventLog records everything handed to the mocked broadcaster.
type eventLog struct {
	mu     sync.Mutex
	events []published
}

func (l *eventLog) add(topic string, payload any) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.events = append(l.events, published{topic: topic, payload: payload})
}

func (l *eventLog) onTopic(prefix string) []any {
	l.mu.Lock()
	defer l.mu.Unlock()
	var out []any
	for _, e := range l.events {
		if strings.HasPrefix(e.topic, prefix) {
			out = append(out, e.payload)
		}
	}
	return out
}

type fixture struct {
	ctx      context.Context
	store    *repository.MemoryStore
	clock    *fakeClock
	events   *eventLog
	users    *UserService
	notifier *NotificationService
	bids     *BidService
	auctions *AuctionService
	sweeper  *Sweeper
}

func newFixture(t *testing.T, opts ...Option) *fixture {
	t.Helper()

	ctrl := gomock.NewController(t)
	bus := mocks.NewMockBroadcaster(ctrl)
	events := &eventLog{}
	bus.EXPECT().
		Publish(gomock.Any(), gomock.Any(), gomock.Any()).
		DoAndReturn(func(_ context.Context, topic string, payload any) error {
			events.add(topic, payload)
			return nil
		}).
		AnyTimes()

	return newFixtureWith(t, repository.NewMemoryStore(), bus, events, opts...)
}

func newFixtureWith(t *testing.T, store repository.AuctionStore, bus *mocks.MockBroadcaster, events *eventLog, opts ...Option) *fixture {
	t.Helper()

	clock := &fakeClock{now: epoch}
	opts = append([]Option{WithClock(clock.Now)}, opts...)

	users := NewUserService(store, opts...)
	notifier := NewNotificationService(store, bus, opts...)
	f := &fixture{
		ctx:      context.Background(),
		clock:    clock,
		events:   events,
		users:    users,
		notifier: notifier,
		bids:     NewBidService(store, users, notifier, opts...),
		auctions: NewAuctionService(store, users, notifier, opts...),
		sweeper:  NewSweeper(store, users, notifier, opts...),
	}
	if ms, ok := store.(*repository.MemoryStore); ok {
		f.store = ms
	}
	return f
}

func dec(v int64) decimal.Decimal {
	return decimal.NewFromInt(v)
}

func (f *fixture) user(t *testing.T, name string) uuid.UUID {
	t.Helper()
	id := uuid.New()
	require.NoError(t, f.users.EnsureUser(f.ctx, id, name))
	return id
}

func (f *fixture) auction(t *testing.T, seller uuid.UUID, price int64, endsIn time.Duration) model.Auction {
	t.Helper()
	a, err := f.auctions.CreateAuction(f.ctx, seller, model.CreateAuctionRequest{
		Title:         "Calculus textbook",
		StartingPrice: dec(price),
		EndTime:       f.clock.Now().Add(endsIn),
		Type:          "BOOKS",
	})
	require.NoError(t, err)
	return a
}

func (f *fixture) bid(auctionID, bidder uuid.UUID, amount int64) (model.Bid, error) {
	return f.bids.PlaceBid(f.ctx, auctionID, bidder, dec(amount), f.clock.Now())
}

// mustBid places a bid and then moves the clock past the cooldown.
func (f *fixture) mustBid(t *testing.T, auctionID, bidder uuid.UUID, amount int64) model.Bid {
	t.Helper()
	b, err := f.bid(auctionID, bidder, amount)
	require.NoError(t, err)
	f.clock.Advance(BidCooldown + time.Second)
	return b
}

func (f *fixture) reload(t *testing.T, id uuid.UUID) model.Auction {
	t.Helper()
	a, err := f.store.GetAuction(f.ctx, id)
	require.NoError(t, err)
	return a
}

func (f *fixture) liveBids(t *testing.T, auctionID uuid.UUID) []model.Bid {
	t.Helper()
	bids, err := f.store.BidsByAmountDesc(f.ctx, auctionID)
	require.NoError(t, err)
	return bids
}

func (f *fixture) notes(t *testing.T, userID uuid.UUID, typ model.NotificationType) []model.Notification {
	t.Helper()
	all, err := f.notifier.List(f.ctx, userID)
	require.NoError(t, err)
	var out []model.Notification
	for _, n := range all {
		if n.Type == typ {
			out = append(out, n)
		}
	}
	return out
}
