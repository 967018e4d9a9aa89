package database

import (
	"context"
	"fmt"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/cloo-solutions/secondbrain/internal/logging"
)

const defaultConnectTimeout = 30 * time.Second

// PoolOptions tunes the pgx pool. Zero values keep the pgx defaults.
type PoolOptions struct {
	MaxConns int32
	MinConns int32
	// ConnectTimeout bounds how long NewPool keeps retrying the first ping
	// while Postgres is still starting. Negative disables retries.
	ConnectTimeout time.Duration
}

// NewPool creates a pgx pool for databaseURL and waits until it answers a ping.
func NewPool(ctx context.Context, databaseURL string, opts PoolOptions) (*pgxpool.Pool, error) {
	poolConfig, err := pgxpool.ParseConfig(databaseURL)
	if err != nil {
		return nil, fmt.Errorf("failed to parse database config: %w", err)
	}

	if opts.MaxConns > 0 {
		poolConfig.MaxConns = opts.MaxConns
	}
	if opts.MinConns > 0 {
		poolConfig.MinConns = opts.MinConns
	}

	pool, err := pgxpool.NewWithConfig(ctx, poolConfig)
	if err != nil {
		return nil, fmt.Errorf("failed to create connection pool: %w", err)
	}

	if err := ping(ctx, pool, opts.ConnectTimeout); err != nil {
		pool.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	return pool, nil
}

func ping(ctx context.Context, pool *pgxpool.Pool, timeout time.Duration) error {
	if timeout < 0 {
		return pool.Ping(ctx)
	}
	if timeout == 0 {
		timeout = defaultConnectTimeout
	}

	policy := backoff.NewExponentialBackOff()
	policy.InitialInterval = 250 * time.Millisecond
	policy.MaxInterval = 5 * time.Second
	policy.MaxElapsedTime = timeout

	logger := logging.NewModuleLogger("database")
	attempt := 0
	return backoff.Retry(func() error {
		attempt++
		err := pool.Ping(ctx)
		if err != nil && attempt == 1 {
			logger.Warn("database not reachable yet, retrying", "timeout", timeout, "error", err)
		}
		return err
	}, backoff.WithContext(policy, ctx))
}
