package dependency

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/Sidbot007/StudentBidz/internal/broadcast"
	"github.com/Sidbot007/StudentBidz/internal/config"
	"github.com/Sidbot007/StudentBidz/internal/db"
	"github.com/Sidbot007/StudentBidz/internal/handlers"
	"github.com/Sidbot007/StudentBidz/internal/metrics"
	"github.com/Sidbot007/StudentBidz/internal/repository"
	"github.com/Sidbot007/StudentBidz/internal/service"
	"github.com/Sidbot007/StudentBidz/pkg/jwt"
)

// Dependencies holds all the intialized instances required by the application.
type Dependencies struct {
	Config              *config.Config
	Log                 *zap.Logger
	DB                  *db.DB // nil with the memory store
	Store               repository.AuctionStore
	Broadcaster         broadcast.Broadcaster
	Metrics             *metrics.Recorder
	JWT                 jwt.JWTManager
	Services            *service.Services
	AuctionHandler      *handlers.AuctionHandler
	BidHandler          *handlers.BidHandler
	NotificationHandler *handlers.NotificationHandler

	redis *broadcast.RedisBroadcaster
}

// NewDependencies opens the store and the broadcaster, and wires up all services.
func NewDependencies(ctx context.Context, cfg *config.Config, log *zap.Logger) (*Dependencies, error) {
	if log == nil {
		log = zap.NewNop()
	}
	d := &Dependencies{Config: cfg, Log: log}

	switch cfg.Database.Driver {
	case config.StoreMemory:
		d.Store = repository.NewMemoryStore()
		log.Info("[Store] using in-memory store")
	default:
		conn, err := db.NewDB(ctx, cfg.Database.DSN, log)
		if err != nil {
			log.Error("[DB] connection failed -> ", zap.Error(err))
			return nil, err
		}
		d.DB = conn
		d.Store = repository.NewPostgresStore(conn, log)
	}

	if cfg.Redis.Addr != "" {
		rb, err := broadcast.NewRedisBroadcaster(ctx, cfg.Redis, log)
		if err != nil {
			log.Error("[Broadcast] failed to initialize -> ", zap.Error(err))
			_ = d.Close(ctx)
			return nil, err
		}
		d.redis = rb
		d.Broadcaster = rb
		log.Info("[Broadcast] connected", zap.String("addr", cfg.Redis.Addr))
	} else {
		d.Broadcaster = broadcast.Nop{}
		log.Warn("[Broadcast] REDIS_ADDR not set, live updates disabled")
	}

	jm, err := jwt.NewJwtManager(cfg.Auth.AccessTokenSecret)
	if err != nil {
		log.Error("[JWT] failed to initialize -> ", zap.Error(err))
		_ = d.Close(ctx)
		return nil, err
	}
	d.JWT = jm

	d.Metrics = metrics.New()
	d.Services = service.NewServices(d.Store, d.Broadcaster,
		service.WithLogger(log),
		service.WithMetrics(d.Metrics),
		service.WithSweepInterval(cfg.Sweeper.Interval),
	)

	if d.AuctionHandler, err = handlers.NewAuctionHandler(d.Services.AuctionService, d.Services.BidService, log); err != nil {
		log.Error("[Auction Handler] failed to initialize -> ", zap.Error(err))
		_ = d.Close(ctx)
		return nil, err
	}
	if d.BidHandler, err = handlers.NewBidHandler(d.Services.BidService, log, time.Now); err != nil {
		log.Error("[Bid Handler] failed to initialize -> ", zap.Error(err))
		_ = d.Close(ctx)
		return nil, err
	}
	if d.NotificationHandler, err = handlers.NewNotificationHandler(d.Services.NotificationService, log); err != nil {
		log.Error("[Notification Handler] failed to initialize -> ", zap.Error(err))
		_ = d.Close(ctx)
		return nil, err
	}

	return d, nil
}

// Ready pings the database and Redis when they are configured.
func (d *Dependencies) Ready(ctx context.Context) error {
	var errs []error
	if d.DB != nil {
		if err := d.DB.Ping(ctx); err != nil {
			errs = append(errs, fmt.Errorf("database: %w", err))
		}
	}
	if d.redis != nil {
		if err := d.redis.Ping(ctx); err != nil {
			errs = append(errs, fmt.Errorf("redis: %w", err))
		}
	}
	return errors.Join(errs...)
}

// Close releases the broadcaster and the database pool.
func (d *Dependencies) Close(ctx context.Context) error {
	var errs []error
	if d.redis != nil {
		if err := d.redis.Close(); err != nil {
			d.Log.Error("[Broadcast] close failed -> ", zap.Error(err))
			errs = append(errs, err)
		}
	}
	if d.DB != nil {
		if err := d.DB.Close(ctx); err != nil {
			d.Log.Error("[DB] close failed -> ", zap.Error(err))
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}
