// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 YoungCoder Contributors

package main

import (
	"context"
	"errors"
	"log/slog"
	"net"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/samber/oops"
	"github.com/spf13/cobra"

	"github.com/youngcoder/youngcoder/internal/auth"
	"github.com/youngcoder/youngcoder/internal/auth/postgres"
	"github.com/youngcoder/youngcoder/internal/catalog"
	"github.com/youngcoder/youngcoder/internal/config"
	"github.com/youngcoder/youngcoder/internal/logging"
	"github.com/youngcoder/youngcoder/internal/observability"
	"github.com/youngcoder/youngcoder/internal/store"
	"github.com/youngcoder/youngcoder/internal/web"
)

// HTTP server limits.
const (
	readHeaderTimeout = 10 * time.Second
	readTimeout       = 15 * time.Second
	writeTimeout      = 15 * time.Second
	idleTimeout       = 60 * time.Second
	shutdownTimeout   = 10 * time.Second
)

// NewServeCmd creates the serve subcommand.
func NewServeCmd(deps *Deps) *cobra.Command {
	var autoMigrate bool

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Start the HTTP API",
		Long: `Start the HTTP API. The database pool, session janitor and optional
observability listener live for the lifetime of the process and shut down
on SIGINT or SIGTERM.`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := loadConfig(cmd)
			if err != nil {
				return err
			}
			return runServe(cmd.Context(), cfg, autoMigrate, cmd, deps)
		},
	}

	cmd.Flags().String("env", "development", "runtime environment (production enables Secure cookies)")
	cmd.Flags().String("http-addr", ":8080", "API listen address")
	cmd.Flags().String("metrics-addr", "127.0.0.1:9100", "metrics/health HTTP address (empty = disabled)")
	cmd.Flags().String("database-url", "", "PostgreSQL connection URL (overrides DATABASE_URL)")
	cmd.Flags().String("log-format", logging.FormatJSON, "log format (json or text)")
	cmd.Flags().Duration("purge-interval", auth.DefaultPurgeInterval, "expired session purge interval (0 = disabled)")
	cmd.Flags().BoolVar(&autoMigrate, "auto-migrate", false, "apply pending migrations before serving")

	return cmd
}

// runServe wires the service together and blocks until ctx is cancelled, a
// signal arrives or a listener fails.
func runServe(ctx context.Context, cfg *config.Config, autoMigrate bool, cmd *cobra.Command, deps *Deps) error {
	deps = deps.withDefaults()
	if ctx == nil {
		ctx = context.Background()
	}

	if err := cfg.Validate(); err != nil {
		return oops.Code("CONFIG_INVALID").Wrap(err)
	}

	logger := newLogger(cfg, deps.LogOutput)
	logger.Info("starting youngcoder", "version", version, "config", cfg)

	if autoMigrate {
		if err := migrateUp(cfg.Database.URL, deps, logger); err != nil {
			return err
		}
	}

	pool, err := deps.PoolOpener(ctx, cfg.Database.URL, logger)
	if err != nil {
		return oops.Code("SERVE_FAILED").With("operation", "open database").Wrap(err)
	}
	// Closed last, after the HTTP server and janitor have stopped.
	defer func() {
		pool.Close()
		logger.Info("database pool closed")
	}()

	cat, err := catalog.Embedded()
	if err != nil {
		return oops.Code("SERVE_FAILED").With("operation", "load catalog").Wrap(err)
	}

	svc, err := newAuthService(cfg, pool, logger)
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(ctx, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	var (
		metrics  *observability.Metrics
		obsErrCh <-chan error
		obs      ObservabilityServer
	)
	if cfg.Metrics.Addr != "" {
		obs = deps.ObservabilityServerFactory(cfg.Metrics.Addr, store.Readiness(pool), logger)
		obsErrCh, err = obs.Start()
		if err != nil {
			return oops.Code("SERVE_FAILED").With("operation", "start observability server").Wrap(err)
		}
		metrics = obs.Metrics()
	}

	janitor := auth.NewJanitor(svc, cfg.Sessions.PurgeInterval,
		auth.WithJanitorLogger(logger),
		auth.WithPurgeObserver(metrics.RecordSessionsPurged))
	janitor.Start(ctx)

	api, err := web.NewServer(svc, cat,
		web.WithLogger(logger),
		web.WithMetrics(metrics),
		web.WithSecureCookies(cfg.Production()))
	if err != nil {
		janitor.Stop()
		stopObservability(obs, logger)
		return oops.Code("SERVE_FAILED").With("operation", "build api").Wrap(err)
	}

	listener, err := net.Listen("tcp", cfg.HTTP.Addr)
	if err != nil {
		janitor.Stop()
		stopObservability(obs, logger)
		return oops.Code("SERVE_FAILED").With("operation", "listen").With("addr", cfg.HTTP.Addr).Wrap(err)
	}

	httpServer := &http.Server{
		Handler:           api.Router(),
		ReadHeaderTimeout: readHeaderTimeout,
		ReadTimeout:       readTimeout,
		WriteTimeout:      writeTimeout,
		IdleTimeout:       idleTimeout,
		ErrorLog:          slog.NewLogLogger(logger.Handler(), slog.LevelWarn),
	}

	serveErrCh := make(chan error, 1)
	go func() {
		if serveErr := httpServer.Serve(listener); serveErr != nil && !errors.Is(serveErr, http.ErrServerClosed) {
			serveErrCh <- serveErr
		}
		close(serveErrCh)
	}()

	cmd.Printf("YoungCoder API listening on %s\n", listener.Addr())
	logger.Info("api listening", "addr", listener.Addr().String(), "production", cfg.Production())
	deps.Ready(listener.Addr())

	var runErr error
	select {
	case <-ctx.Done():
		logger.Info("shutting down")
	case err := <-serveErrCh:
		runErr = oops.Code("SERVE_FAILED").With("operation", "serve http").Wrap(err)
	case err, ok := <-obsErrCh:
		if ok && err != nil {
			runErr = oops.Code("SERVE_FAILED").With("operation", "serve observability").Wrap(err)
		}
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()

	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		logger.Warn("error stopping http server", "error", err)
	}
	janitor.Stop()
	if obs != nil {
		if err := obs.Stop(shutdownCtx); err != nil {
			logger.Warn("error stopping observability server", "error", err)
		}
	}

	if runErr == nil {
		logger.Info("shutdown complete")
	}
	return runErr
}

func newAuthService(cfg *config.Config, pool Pool, logger *slog.Logger) (*auth.Service, error) {
	hasher, err := auth.NewBcryptHasher(cfg.Auth.BcryptCost)
	if err != nil {
		return nil, oops.Code("SERVE_FAILED").With("operation", "create hasher").Wrap(err)
	}
	tokens, err := auth.NewTokenCodec(cfg.Auth.JWTSecret, cfg.Auth.JWTIssuer, cfg.Auth.SessionTTL)
	if err != nil {
		return nil, oops.Code("SERVE_FAILED").With("operation", "create token codec").Wrap(err)
	}
	svc, err := auth.NewServiceWithLogger(
		postgres.NewUserRepository(pool),
		postgres.NewSessionRepository(pool),
		hasher, tokens, logger)
	if err != nil {
		return nil, oops.Code("SERVE_FAILED").With("operation", "create auth service").Wrap(err)
	}
	return svc, nil
}

func stopObservability(obs ObservabilityServer, logger *slog.Logger) {
	if obs == nil {
		return
	}
	ctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := obs.Stop(ctx); err != nil {
		logger.Warn("error stopping observability server", "error", err)
	}
}
