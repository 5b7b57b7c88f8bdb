package db

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"go.uber.org/zap"
)

type DB struct {
	log    *zap.Logger
	Pool   *pgxpool.Pool
	closed bool
}

func NewDB(ctx context.Context, dsn string, log *zap.Logger) (*DB, error) {
	poolConfig, err := pgxpool.ParseConfig(dsn)
	if err != nil {
		return nil, fmt.Errorf("parse database dsn: %w", err)
	}

	// connection pooling
	poolConfig.MaxConns = 25
	poolConfig.MinConns = 2
	poolConfig.MaxConnLifetime = 30 * time.Minute

	pool, err := pgxpool.NewWithConfig(ctx, poolConfig)
	if err != nil {
		return nil, fmt.Errorf("create connection pool: %w", err)
	}

	pingCx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	if err := pool.Ping(pingCx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}

	log.Info("[DB] connection established...")

	return New(pool, log), nil
}

// New wraps an existing pool.
func New(pool *pgxpool.Pool, log *zap.Logger) *DB {
	if log == nil {
		log = zap.NewNop()
	}
	return &DB{log: log, Pool: pool}
}

func (d *DB) Ping(ctx context.Context) error {
	if d.Pool == nil {
		return errNilPool
	}
	return d.Pool.Ping(ctx)
}

func (d *DB) Close(ctx context.Context) error {
	if d.closed {
		return nil
	}
	d.closed = true

	done := make(chan struct{})
	go func() {
		d.Pool.Close()
		close(done)
	}()

	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

var errNilPool = errors.New("[DB] underlying pool is nil")
