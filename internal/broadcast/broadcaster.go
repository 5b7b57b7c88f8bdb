package broadcast

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/Sidbot007/StudentBidz/internal/config"
)

//go:generate mockgen -destination=mocks/mock_broadcaster.go -package=mocks -source=broadcaster.go Broadcaster

// Broadcaster fans a payload out to subscribers of topic. Delivery is best effort.
type Broadcaster interface {
	Publish(ctx context.Context, topic string, payload any) error
}

type RedisBroadcaster struct {
	client *redis.Client
	log    *zap.Logger
}

var _ Broadcaster = (*RedisBroadcaster)(nil)

func NewRedisBroadcaster(ctx context.Context, cfg config.Redis, log *zap.Logger) (*RedisBroadcaster, error) {
	if cfg.Addr == "" {
		return nil, errors.New("REDIS_ADDR is required")
	}
	client := redis.NewClient(&redis.Options{
		Addr:         cfg.Addr,
		Password:     cfg.Password,
		DB:           cfg.DB,
		PoolSize:     50,
		MinIdleConns: 10,
		DialTimeout:  5 * time.Second,
		ReadTimeout:  5 * time.Second,
		WriteTimeout: 5 * time.Second,
	})

	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, err
	}

	return NewRedisBroadcasterFromClient(client, log), nil
}

func NewRedisBroadcasterFromClient(client *redis.Client, log *zap.Logger) *RedisBroadcaster {
	if log == nil {
		log = zap.NewNop()
	}
	return &RedisBroadcaster{client: client, log: log}
}

// Publish encodes payload as JSON and PUBLISHes it on topic.
func (r *RedisBroadcaster) Publish(ctx context.Context, topic string, payload any) error {
	body, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("encode %s payload: %w", topic, err)
	}
	receivers, err := r.client.Publish(ctx, topic, body).Result()
	if err != nil {
		return fmt.Errorf("publish %s: %w", topic, err)
	}
	r.log.Debug("[Broadcast] published -> ", zap.String("topic", topic), zap.Int64("receivers", receivers))
	return nil
}

// Ping reports whether Redis answers. It backs the readiness check.
func (r *RedisBroadcaster) Ping(ctx context.Context) error {
	return r.client.Ping(ctx).Err()
}

func (r *RedisBroadcaster) Close() error {
	return r.client.Close()
}

// Nop drops every payload. It is used when Redis is not configured.
type Nop struct{}

func (Nop) Publish(context.Context, string, any) error { return nil }
