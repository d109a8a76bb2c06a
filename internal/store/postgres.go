// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 YoungCoder Contributors

// Package store owns the PostgreSQL connection pool and schema migrations.
package store

import (
	"context"
	"log/slog"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/samber/oops"
	"github.com/sethvargo/go-retry"
)

// Connection retry policy used by Open.
const (
	DefaultConnectAttempts = 5
	DefaultConnectBackoff  = 250 * time.Millisecond
)

// pinger is the subset of pgxpool.Pool that Open needs to verify connectivity.
type pinger interface {
	Ping(ctx context.Context) error
}

// Open creates a connection pool and waits for the database to answer a
// ping, retrying with exponential backoff.
func Open(ctx context.Context, databaseURL string, logger *slog.Logger) (*pgxpool.Pool, error) {
	if databaseURL == "" {
		return nil, oops.Code("DB_URL_REQUIRED").Errorf("database URL is required")
	}
	if logger == nil {
		logger = slog.Default()
	}

	cfg, err := pgxpool.ParseConfig(databaseURL)
	if err != nil {
		return nil, oops.Code("DB_CONFIG_INVALID").With("operation", "parse database URL").Wrap(err)
	}

	pool, err := pgxpool.NewWithConfig(ctx, cfg)
	if err != nil {
		return nil, oops.Code("DB_CONNECT_FAILED").With("operation", "create pool").Wrap(err)
	}

	if err := waitForDatabase(ctx, pool, DefaultConnectAttempts, DefaultConnectBackoff, logger); err != nil {
		pool.Close()
		return nil, err
	}

	logger.InfoContext(ctx, "database connected",
		"host", cfg.ConnConfig.Host,
		"database", cfg.ConnConfig.Database,
		"max_conns", cfg.MaxConns)
	return pool, nil
}

// waitForDatabase pings until the database responds or attempts run out.
// Cancellation of ctx stops retrying immediately.
func waitForDatabase(ctx context.Context, db pinger, attempts uint64, base time.Duration, logger *slog.Logger) error {
	var attempt uint64
	backoff := retry.WithMaxRetries(attempts-1, retry.NewExponential(base))

	err := retry.Do(ctx, backoff, func(ctx context.Context) error {
		attempt++
		if err := db.Ping(ctx); err != nil {
			if ctx.Err() != nil {
				return err
			}
			logger.WarnContext(ctx, "database not ready",
				"attempt", attempt,
				"max_attempts", attempts,
				"error", err)
			return retry.RetryableError(err)
		}
		return nil
	})
	if err != nil {
		return oops.Code("DB_CONNECT_FAILED").
			With("operation", "ping database").
			With("attempts", attempt).
			Wrap(err)
	}
	return nil
}

// Readiness returns a check that pings the pool, for the observability
// server's /healthz/readiness endpoint.
func Readiness(db pinger) func(ctx context.Context) error {
	return func(ctx context.Context) error {
		if err := db.Ping(ctx); err != nil {
			return oops.Code("DB_NOT_READY").Wrap(err)
		}
		return nil
	}
}
