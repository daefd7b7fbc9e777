package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"runtime"
	"syscall"

	"github.com/spf13/cobra"

	"licensepurge/pkg/config"
	"licensepurge/pkg/logger"
	"licensepurge/pkg/ui"
)

var (
	// Version information
	version   = "1.0.0"
	gitCommit = "unknown"
	buildDate = "unknown"

	// Global flags
	configFile string
	logLevel   string
	noColor    bool
	quiet      bool
)

// rootCmd represents the base command when called without any subcommands
var rootCmd = &cobra.Command{
	Use:   config.AppName,
	Short: "Bulk-remove free licenses from a Steam account",
	Long: `licensepurge removes free licenses from a Steam account, one request at a
time, reusing the session of a browser that is already logged in.

Only package IDs on the configured allow-list are ever removed. Progress is
saved after every attempt, so an interrupted run resumes where it stopped.
Rate limits are handled with an adaptive cooldown between requests.

Running without a subcommand is the same as 'licensepurge run'.`,
	Version:       fmt.Sprintf("%s (commit: %s, built: %s)", version, gitCommit, buildDate),
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRun: func(cmd *cobra.Command, args []string) {
		if noColor {
			ui.SetColor(false)
		}
		if quiet && logLevel == "" {
			logLevel = "warn"
		}
	},
	RunE: runRemoval,
}

// Execute runs the root command with a context canceled by SIGINT/SIGTERM
func Execute() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := rootCmd.ExecuteContext(ctx); err != nil {
		stop()
		ui.PrintError("Error", err)
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&configFile, "config", "c", "", "config file (default: ./licensepurge.yaml or $XDG_CONFIG_HOME/licensepurge/config.yaml)")
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "", "log level (debug, info, warn, error)")
	rootCmd.PersistentFlags().BoolVar(&noColor, "no-color", false, "disable colored output")
	rootCmd.PersistentFlags().BoolVarP(&quiet, "quiet", "q", false, "only print warnings, errors and the final summary")

	rootCmd.SetVersionTemplate(`licensepurge {{.Version}}
Go Version: ` + runtime.Version() + `
OS/Arch: ` + runtime.GOOS + `/` + runtime.GOARCH + `
`)

	rootCmd.CompletionOptions.DisableDefaultCmd = true
}

// commandFlags collects the flags that override configuration values
func commandFlags(cmd *cobra.Command) map[string]interface{} {
	flags := make(map[string]interface{})
	if logLevel != "" {
		flags["log-level"] = logLevel
	}
	if f := cmd.Flags().Lookup("allow-skipping"); f != nil && f.Changed {
		flags["allow-skipping"] = runOpts.allowSkipping
	}
	if f := cmd.Flags().Lookup("state"); f != nil && f.Changed {
		flags["state"] = runOpts.statePath
	}
	if f := cmd.Flags().Lookup("cookies-file"); f != nil && f.Changed {
		flags["cookies-file"] = runOpts.cookiesFile
	}
	if f := cmd.Flags().Lookup("notifications"); f != nil && f.Changed {
		flags["notifications-enabled"] = runOpts.notifications
	}
	return flags
}

// loadConfig loads and validates configuration, then sets up the global logger
func loadConfig(cmd *cobra.Command) (*config.Config, error) {
	cfg, err := config.Load(configFile, commandFlags(cmd))
	if err != nil {
		return nil, err
	}
	if err := logger.Initialize(&cfg.Logging); err != nil {
		return nil, fmt.Errorf("failed to initialize logger: %w", err)
	}
	return cfg, nil
}
