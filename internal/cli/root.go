// Package cli holds the tourism-watch commands.
package cli

import (
	"context"
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"tourism_watch/internal/app"
	"tourism_watch/internal/config"
	"tourism_watch/internal/logger"
)

var (
	configPath string
	browserArg string
	headless   bool
	logFile    string
	verbose    bool
)

var rootCmd = &cobra.Command{
	Use:           "tourism-watch",
	Short:         "tourism-watch snapshots holiday rental listings and the regional tourism registry.",
	SilenceUsage:  true,
	SilenceErrors: true,
}

func init() {
	flags := rootCmd.PersistentFlags()
	flags.StringVar(&configPath, "config", "config.yaml", "path to the YAML configuration")
	flags.StringVar(&browserArg, "browser", "", "browser to drive: chrome, firefox, edge, safari")
	flags.BoolVar(&headless, "headless", true, "run the browser without a window")
	flags.StringVar(&logFile, "log-file", "", "write the log to this file instead of stderr")
	flags.BoolVarP(&verbose, "verbose", "v", false, "log debug messages")
}

func ExecuteContext(ctx context.Context) {
	if err := rootCmd.ExecuteContext(ctx); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

// loadConfig reads the configuration and applies the global flags. An
// explicitly given --config must exist.
func loadConfig(cmd *cobra.Command) (*config.Config, error) {
	var (
		cfg *config.Config
		err error
	)
	if cmd.Flags().Changed("config") {
		cfg, err = config.LoadConfig(configPath)
	} else {
		cfg, err = config.Load(configPath)
	}
	if err != nil {
		return nil, err
	}

	if browserArg != "" {
		cfg.Browser.Name = browserArg
	}
	if cmd.Flags().Changed("headless") {
		cfg.Browser.Headless = &headless
	}
	if logFile != "" {
		cfg.Log.File = logFile
	}
	if verbose {
		cfg.Log.Level = "debug"
	}
	return cfg, nil
}

// setup builds the logger and application for a pipeline command. The
// returned func closes both and must be deferred by the caller.
func setup(cmd *cobra.Command, cfg *config.Config) (*app.App, func(), error) {
	if err := cfg.Validate(); err != nil {
		return nil, nil, err
	}
	log, closeLog, err := logger.New(logger.Options{Level: cfg.Log.Level, File: cfg.Log.File, Development: verbose})
	if err != nil {
		return nil, nil, err
	}
	a, err := app.NewApp(cmd.Context(), cfg, log)
	if err != nil {
		_ = log.Sync()
		closeLog()
		return nil, nil, err
	}
	return a, func() { teardown(a, log, closeLog) }, nil
}

func teardown(a *app.App, log *zap.Logger, closeLog func()) {
	if err := a.Close(); err != nil {
		log.Warn("Failed to close store", zap.Error(err))
	}
	_ = log.Sync()
	closeLog()
}
