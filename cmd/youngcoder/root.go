// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 YoungCoder Contributors

package main

import (
	"io"
	"log/slog"

	"github.com/spf13/cobra"

	"github.com/youngcoder/youngcoder/internal/config"
	"github.com/youngcoder/youngcoder/internal/logging"
	"github.com/youngcoder/youngcoder/internal/xdg"
)

// serviceName tags every log line.
const serviceName = "youngcoder"

// Global flags available to all subcommands.
var configFile string

// NewRootCmd creates the root command for the YoungCoder CLI.
func NewRootCmd() *cobra.Command {
	return newRootCmd(nil)
}

func newRootCmd(deps *Deps) *cobra.Command {
	deps = deps.withDefaults()

	cmd := &cobra.Command{
		Use:   "youngcoder",
		Short: "YoungCoder - account and session API for the coding school",
		Long: `YoungCoder serves sign-up, sign-in and session endpoints for students,
parents, teachers and school administrators, plus the subscription
package catalog.`,
		SilenceUsage: true,
	}

	cmd.PersistentFlags().StringVar(&configFile, "config", "", "config file path")

	cmd.AddCommand(NewServeCmd(deps))
	cmd.AddCommand(NewMigrateCmd(deps))
	cmd.AddCommand(NewSessionsCmd(deps))

	return cmd
}

// loadConfig reads configuration from the --config file, the environment and
// the command's flags. Without --config, $XDG_CONFIG_HOME/youngcoder/config.yaml
// is read when present.
func loadConfig(cmd *cobra.Command) (*config.Config, error) {
	path := configFile
	if path == "" {
		var err error
		if path, err = xdg.DefaultConfigFile(); err != nil {
			return nil, err
		}
	}
	return config.Load(path, cmd.Flags())
}

// addDatabaseFlags registers the flags shared by commands that only need the database.
func addDatabaseFlags(cmd *cobra.Command) {
	cmd.PersistentFlags().String("database-url", "", "PostgreSQL connection URL (overrides DATABASE_URL)")
	cmd.PersistentFlags().String("log-format", logging.FormatJSON, "log format (json or text)")
}

func newLogger(cfg *config.Config, w io.Writer) *slog.Logger {
	logger := logging.Setup(serviceName, version, cfg.Log.Format, w)
	slog.SetDefault(logger)
	return logger
}
