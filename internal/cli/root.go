// Package cli defines the planner command-line interface.
package cli

import (
	"context"
	"log/slog"
	"os"

	"github.com/spf13/cobra"

	"travelplanner/internal/config"
	"travelplanner/internal/util"
)

// Options stores global CLI options shared between commands.
type Options struct {
	ConfigPath string
	LogLevel   string

	cfg config.FileConfig
}

// Execute builds the root command, runs it with the provided args and logger, and returns any error.
func Execute(args []string, logger *slog.Logger) error {
	if logger == nil {
		logger = util.NewLogger(os.Stderr, "info", "text")
	}
	rootCmd := newRootCommand(&Options{}, logger)
	rootCmd.SetArgs(args)
	return rootCmd.Execute()
}

func newRootCommand(opts *Options, logger *slog.Logger) *cobra.Command {
	cmd := &cobra.Command{
		Use:           "planner",
		Short:         "planner is a client for the travel planner API",
		Long:          "planner signs in to the travel planner API, manages plans and favorites, and serves a guarded web shell over the same session.",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := config.Load(opts.ConfigPath)
			if err != nil {
				return err
			}
			if opts.LogLevel != "" {
				cfg.LogLevel = opts.LogLevel
			}
			opts.cfg = cfg
			logger = util.NewLogger(cmd.ErrOrStderr(), cfg.LogLevel, cfg.LogFormat)
			slog.SetDefault(logger)
			cmd.SetContext(util.ContextWithLogger(cmd.Context(), logger))
			logger.Debug("logger initialized", "level", cfg.LogLevel, "api", cfg.APIBaseURL, "storage", cfg.Storage.Backend)
			return nil
		},
	}

	cmd.PersistentFlags().StringVarP(&opts.ConfigPath, "config", "c", "", "Path to planner.yaml (default ./planner.yaml when present)")
	cmd.PersistentFlags().StringVar(&opts.LogLevel, "log-level", "", "Log level (debug, info, warn, error)")

	cmd.AddCommand(
		newLoginCommand(opts),
		newSignupCommand(opts),
		newLogoutCommand(opts),
		newPlansCommand(opts),
		newFavoritesCommand(opts),
		newSyncCommand(opts),
		newRouteCommand(opts),
		newHealthCommand(opts),
		newServeCommand(opts),
	)
	return cmd
}

// LoggerFromContext extracts the command logger, falling back to slog.Default.
func LoggerFromContext(ctx context.Context) *slog.Logger {
	return util.LoggerFromContext(ctx)
}
