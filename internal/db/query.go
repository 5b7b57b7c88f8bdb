package db

import (
	"context"
	"errors"
	"time"

	"github.com/cenkalti/backoff/v5"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"go.uber.org/zap"
)

const maxTxAttempts = 4

func (d *DB) Exec(ctx context.Context, query string, args ...any) (pgconn.CommandTag, error) {
	if d.Pool == nil {
		return pgconn.CommandTag{}, errNilPool
	}
	ctx, cancel := addTimeoutContext(ctx)
	defer cancel()
	return d.Pool.Exec(ctx, query, args...)
}

// Query leaves the timeout to the caller because rows outlive this call.
func (d *DB) Query(ctx context.Context, query string, args ...any) (pgx.Rows, error) {
	if d.Pool == nil {
		d.log.Warn("pgxpool.Pool is nil")
		return nil, errNilPool
	}
	return d.Pool.Query(ctx, query, args...)
}

func (d *DB) QueryRow(ctx context.Context, query string, args ...any) pgx.Row {
	return d.Pool.QueryRow(ctx, query, args...)
}

// RunTx runs fn inside a read-committed transaction and commits when fn returns nil.
// Serialization failures and deadlocks replay fn with exponential backoff.
func (d *DB) RunTx(ctx context.Context, fn func(ctx context.Context, tx pgx.Tx) error) error {
	if d.Pool == nil {
		d.log.Warn("pgxpool.Pool is nil")
		return errNilPool
	}

	eb := backoff.NewExponentialBackOff()
	eb.InitialInterval = 20 * time.Millisecond
	eb.MaxInterval = 500 * time.Millisecond

	attempt := 0
	_, err := backoff.Retry(ctx, func() (struct{}, error) {
		attempt++
		err := d.runTxOnce(ctx, fn)
		if err == nil {
			return struct{}{}, nil
		}
		if IsRetryable(err) {
			d.log.Warn("[DB] retrying transaction -> ", zap.Int("attempt", attempt), zap.Error(err))
			return struct{}{}, err
		}
		return struct{}{}, backoff.Permanent(err)
	}, backoff.WithBackOff(eb), backoff.WithMaxTries(maxTxAttempts))
	return err
}

func (d *DB) runTxOnce(ctx context.Context, fn func(ctx context.Context, tx pgx.Tx) error) error {
	ctx, cancel := addTimeoutContext(ctx)
	defer cancel()

	tx, err := d.Pool.BeginTx(ctx, pgx.TxOptions{IsoLevel: pgx.ReadCommitted, AccessMode: pgx.ReadWrite})
	if err != nil {
		return err
	}
	defer func() {
		if err := tx.Rollback(ctx); err != nil && !errors.Is(err, pgx.ErrTxClosed) {
			d.log.Warn("[DB] rollback failed -> ", zap.Error(err))
		}
	}()

	if err := fn(ctx, tx); err != nil {
		return err
	}
	return tx.Commit(ctx)
}
