// Package cli defines the encheres cobra commands.
package cli

import (
	"fmt"
	"log/slog"
	"os"

	"github.com/spf13/cobra"

	"github.com/example/encheres/internal/config"
	"github.com/example/encheres/internal/logging"
	"github.com/example/encheres/internal/telemetry"
	"github.com/example/encheres/internal/version"
	"github.com/example/encheres/internal/wire"
)

var (
	configFile string
	cfg        *config.Config
	logger     *slog.Logger
)

// AddGlobalFlags registers the flags shared by every command.
func AddGlobalFlags(root *cobra.Command) {
	root.PersistentFlags().StringVar(&configFile, "config", "", "config file (default: ./config.yaml or ~/.encheres/config.yaml)")
}

// Bootstrap loads the configuration, builds the logger and configures the
// service wiring. It runs before every command.
func Bootstrap(cmd *cobra.Command, args []string) error {
	var err error
	cfg, err = config.Load(config.Options{File: configFile})
	if err != nil {
		return err
	}

	logger, err = logging.New(cfg.Logging.Level, cfg.Logging.Format, os.Stderr)
	if err != nil {
		return err
	}
	slog.SetDefault(logger)

	if err := telemetry.Init(telemetry.Options{
		DSN:         cfg.Sentry.DSN,
		Environment: cfg.Sentry.Environment,
		Release:     version.ShortCommit(),
	}); err != nil {
		logger.Warn("error reporting disabled", "err", err)
	}

	wire.Configure(cfg, logger)
	return nil
}

// services opens the store and builds every service.
func services() error {
	if err := wire.Init(); err != nil {
		return fmt.Errorf("failed to start: %w", err)
	}
	return nil
}
