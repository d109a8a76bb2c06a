// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 YoungCoder Contributors

package main

import (
	"context"
	"io"
	"log/slog"
	"net"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"

	"github.com/youngcoder/youngcoder/internal/observability"
	"github.com/youngcoder/youngcoder/internal/store"
)

// Pool is the database handle owned by a command.
// *pgxpool.Pool satisfies it.
type Pool interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
	Ping(ctx context.Context) error
	Close()
}

// Migrator applies and inspects schema migrations.
// *store.Migrator satisfies it.
type Migrator interface {
	Up() error
	Down() error
	Steps(n int) error
	Force(version int) error
	Status() (*store.Status, error)
	Close() error
}

// ObservabilityServer serves metrics and health probes.
// *observability.Server satisfies it.
type ObservabilityServer interface {
	Start() (<-chan error, error)
	Stop(ctx context.Context) error
	Addr() string
	Metrics() *observability.Metrics
}

// Deps contains injectable dependencies for the commands.
// All fields with nil values use their default implementations.
type Deps struct {
	// PoolOpener connects to the database.
	// Default: store.Open
	PoolOpener func(ctx context.Context, url string, logger *slog.Logger) (Pool, error)

	// MigratorFactory creates a migrator for the database URL.
	// Default: store.NewMigrator
	MigratorFactory func(url string) (Migrator, error)

	// ObservabilityServerFactory creates the metrics and probe server.
	// Default: observability.NewServer
	ObservabilityServerFactory func(addr string, readiness observability.ReadinessChecker, logger *slog.Logger) ObservabilityServer

	// LogOutput receives log lines. Default: os.Stderr
	LogOutput io.Writer

	// Ready is called once the API listener is bound.
	Ready func(addr net.Addr)
}

func (d *Deps) withDefaults() *Deps {
	out := Deps{}
	if d != nil {
		out = *d
	}
	if out.PoolOpener == nil {
		out.PoolOpener = func(ctx context.Context, url string, logger *slog.Logger) (Pool, error) {
			pool, err := store.Open(ctx, url, logger)
			if err != nil {
				return nil, err
			}
			return pool, nil
		}
	}
	if out.MigratorFactory == nil {
		out.MigratorFactory = func(url string) (Migrator, error) {
			m, err := store.NewMigrator(url)
			if err != nil {
				return nil, err
			}
			return m, nil
		}
	}
	if out.ObservabilityServerFactory == nil {
		out.ObservabilityServerFactory = func(addr string, readiness observability.ReadinessChecker, logger *slog.Logger) ObservabilityServer {
			return observability.NewServer(addr, readiness, logger)
		}
	}
	if out.Ready == nil {
		out.Ready = func(net.Addr) {}
	}
	return &out
}
