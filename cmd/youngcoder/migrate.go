// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 YoungCoder Contributors

package main

import (
	"log/slog"
	"strconv"
	"strings"

	"github.com/samber/oops"
	"github.com/spf13/cobra"

	"github.com/youngcoder/youngcoder/internal/config"
	"github.com/youngcoder/youngcoder/internal/store"
)

// NewMigrateCmd creates the migrate command group.
func NewMigrateCmd(deps *Deps) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "migrate",
		Short: "Manage database schema migrations",
		Long:  `Apply, roll back, inspect or force the versioned PostgreSQL schema migrations.`,
	}
	addDatabaseFlags(cmd)

	cmd.AddCommand(newMigrateUpCmd(deps))
	cmd.AddCommand(newMigrateDownCmd(deps))
	cmd.AddCommand(newMigrateStatusCmd(deps))
	cmd.AddCommand(newMigrateForceCmd(deps))

	return cmd
}

func newMigrateUpCmd(deps *Deps) *cobra.Command {
	return &cobra.Command{
		Use:   "up",
		Short: "Apply all pending migrations",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return withMigrator(cmd, deps, func(m Migrator, _ *slog.Logger) error {
				if err := m.Up(); err != nil {
					return err
				}
				return printStatus(cmd, m)
			})
		},
	}
}

func newMigrateDownCmd(deps *Deps) *cobra.Command {
	var all bool

	cmd := &cobra.Command{
		Use:   "down",
		Short: "Roll back the most recent migration",
		Long: `Roll back the most recent migration. With --all every migration is
rolled back and all account data is dropped.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return withMigrator(cmd, deps, func(m Migrator, _ *slog.Logger) error {
				var err error
				if all {
					err = m.Down()
				} else {
					err = m.Steps(-1)
				}
				if err != nil {
					return err
				}
				return printStatus(cmd, m)
			})
		},
	}
	cmd.Flags().BoolVar(&all, "all", false, "roll back every migration")

	return cmd
}

func newMigrateStatusCmd(deps *Deps) *cobra.Command {
	return &cobra.Command{
		Use:   "status",
		Short: "Show the schema version and pending migrations",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return withMigrator(cmd, deps, func(m Migrator, _ *slog.Logger) error {
				return printStatus(cmd, m)
			})
		},
	}
}

func newMigrateForceCmd(deps *Deps) *cobra.Command {
	return &cobra.Command{
		Use:   "force VERSION",
		Short: "Set the schema version without running migrations",
		Long: `Set the recorded schema version and clear the dirty flag without running
any migration. Use after repairing a failed migration by hand.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			version, err := parseForceVersion(args[0])
			if err != nil {
				return err
			}
			return withMigrator(cmd, deps, func(m Migrator, logger *slog.Logger) error {
				if err := m.Force(version); err != nil {
					return err
				}
				logger.Warn("schema version forced", "version", version)
				return printStatus(cmd, m)
			})
		},
	}
}

// parseForceVersion parses the VERSION argument of migrate force.
func parseForceVersion(arg string) (int, error) {
	trimmed := strings.TrimSpace(arg)
	if trimmed == "" {
		return 0, oops.Code("INVALID_VERSION").Errorf("version is required")
	}
	version, err := strconv.Atoi(trimmed)
	if err != nil {
		return 0, oops.Code("INVALID_VERSION").With("input", arg).Wrap(err)
	}
	if version < 0 {
		return 0, oops.Code("INVALID_VERSION").With("input", arg).Errorf("version cannot be negative")
	}
	return version, nil
}

// loadDatabaseConfig loads configuration and checks only the database settings.
func loadDatabaseConfig(cmd *cobra.Command) (*config.Config, error) {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return nil, err
	}
	if err := cfg.ValidateDatabase(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func withMigrator(cmd *cobra.Command, deps *Deps, fn func(Migrator, *slog.Logger) error) error {
	deps = deps.withDefaults()

	cfg, err := loadDatabaseConfig(cmd)
	if err != nil {
		return err
	}
	logger := newLogger(cfg, deps.LogOutput)

	m, err := deps.MigratorFactory(cfg.Database.URL)
	if err != nil {
		return err
	}
	defer func() {
		if closeErr := m.Close(); closeErr != nil {
			logger.Warn("error closing migrator", "error", closeErr)
		}
	}()

	return fn(m, logger)
}

// migrateUp applies pending migrations before the API starts.
func migrateUp(databaseURL string, deps *Deps, logger *slog.Logger) error {
	m, err := deps.MigratorFactory(databaseURL)
	if err != nil {
		return oops.Code("AUTO_MIGRATE_FAILED").Wrap(err)
	}
	defer func() {
		if closeErr := m.Close(); closeErr != nil {
			logger.Warn("error closing migrator", "error", closeErr)
		}
	}()

	if err := m.Up(); err != nil {
		return oops.Code("AUTO_MIGRATE_FAILED").Wrap(err)
	}
	st, err := m.Status()
	if err != nil {
		return oops.Code("AUTO_MIGRATE_FAILED").Wrap(err)
	}
	logger.Info("migrations applied", "version", st.Version)
	return nil
}

func printStatus(cmd *cobra.Command, m Migrator) error {
	st, err := m.Status()
	if err != nil {
		return err
	}

	if st.Version == 0 {
		cmd.Println("Current version: none")
	} else {
		cmd.Printf("Current version: %s\n", describeVersion(st.Version))
	}
	if st.Dirty {
		cmd.Println("Dirty: true (fix the schema by hand, then run 'migrate force VERSION')")
	}
	cmd.Printf("Applied: %d\n", len(st.Applied))
	if len(st.Pending) == 0 {
		cmd.Println("Pending: none")
		return nil
	}
	cmd.Printf("Pending: %d\n", len(st.Pending))
	for _, v := range st.Pending {
		cmd.Printf("  %s\n", describeVersion(v))
	}
	return nil
}

func describeVersion(v uint) string {
	name, err := store.MigrationName(v)
	if err != nil || name == "" {
		return strconv.FormatUint(uint64(v), 10)
	}
	return name
}
