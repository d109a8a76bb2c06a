// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 YoungCoder Contributors

package main

import (
	"context"
	"time"

	"github.com/samber/oops"
	"github.com/spf13/cobra"

	"github.com/youngcoder/youngcoder/internal/auth"
	"github.com/youngcoder/youngcoder/internal/auth/postgres"
)

// NewSessionsCmd creates the sessions command group.
func NewSessionsCmd(deps *Deps) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "sessions",
		Short: "Session housekeeping",
	}
	addDatabaseFlags(cmd)

	cmd.AddCommand(&cobra.Command{
		Use:   "purge",
		Short: "Delete expired sessions once",
		Long: `Delete every session whose expiry has passed. The serve command does
this periodically; use purge from cron when the janitor is disabled.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runPurge(cmd, deps)
		},
	})

	return cmd
}

// repoPurger purges straight from the session repository, so purge needs no
// signing secret.
type repoPurger struct {
	sessions auth.SessionRepository
	now      func() time.Time
}

func (p repoPurger) PurgeExpired(ctx context.Context) (int64, error) {
	n, err := p.sessions.DeleteExpired(ctx, p.now().UTC())
	if err != nil {
		return 0, oops.Code("AUTH_PURGE_FAILED").Wrap(err)
	}
	return n, nil
}

func runPurge(cmd *cobra.Command, deps *Deps) error {
	deps = deps.withDefaults()

	cfg, err := loadDatabaseConfig(cmd)
	if err != nil {
		return err
	}
	logger := newLogger(cfg, deps.LogOutput)

	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}

	pool, err := deps.PoolOpener(ctx, cfg.Database.URL, logger)
	if err != nil {
		return err
	}
	defer pool.Close()

	purger := repoPurger{sessions: postgres.NewSessionRepository(pool), now: time.Now}
	n, err := auth.NewJanitor(purger, 0, auth.WithJanitorLogger(logger)).RunOnce(ctx)
	if err != nil {
		return err
	}

	cmd.Printf("Purged %d expired sessions\n", n)
	return nil
}
