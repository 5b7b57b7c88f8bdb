package service

import (
	"time"

	"go.uber.org/zap"

	"github.com/Sidbot007/StudentBidz/internal/broadcast"
	"github.com/Sidbot007/StudentBidz/internal/metrics"
	"github.com/Sidbot007/StudentBidz/internal/repository"
)

// Clock returns the current time. Tests inject a controllable one.
type Clock func() time.Time

type options struct {
	log      *zap.Logger
	metrics  *metrics.Recorder
	now      Clock
	interval time.Duration
}

// Option configures the services.
type Option func(*options)

func WithLogger(log *zap.Logger) Option {
	return func(o *options) { o.log = log }
}

// WithMetrics sets the recorder. A nil recorder disables metrics.
func WithMetrics(m *metrics.Recorder) Option {
	return func(o *options) { o.metrics = m }
}

func WithClock(now Clock) Option {
	return func(o *options) { o.now = now }
}

// WithSweepInterval sets how often the sweeper ticks.
func WithSweepInterval(d time.Duration) Option {
	return func(o *options) { o.interval = d }
}

func newOptions(opts []Option) options {
	o := options{log: zap.NewNop(), now: time.Now, interval: time.Minute}
	for _, opt := range opts {
		opt(&o)
	}
	if o.log == nil {
		o.log = zap.NewNop()
	}
	return o
}

type Services struct {
	UserService         UserServicer
	NotificationService NotificationServicer
	BidService          BidServicer
	AuctionService      AuctionServicer
	Sweeper             *Sweeper
}

func NewServices(store repository.AuctionStore, bus broadcast.Broadcaster, opts ...Option) *Services {
	if bus == nil {
		bus = broadcast.Nop{}
	}
	users := NewUserService(store, opts...)
	notifier := NewNotificationService(store, bus, opts...)
	return &Services{
		UserService:         users,
		NotificationService: notifier,
		BidService:          NewBidService(store, users, notifier, opts...),
		AuctionService:      NewAuctionService(store, users, notifier, opts...),
		Sweeper:             NewSweeper(store, users, notifier, opts...),
	}
}
