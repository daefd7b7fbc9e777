package main

import (
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"licensepurge/pkg/config"
	"licensepurge/pkg/ui"
)

// configCmd represents the config command
var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Manage configuration files",
	Long: `Manage licensepurge configuration files.

Configuration is layered, highest priority first:
  - Command line flags
  - Environment variables (LICENSEPURGE_*, also read from .env)
  - Configuration file
  - Default values`,
}

var initCmd = &cobra.Command{
	Use:   "init",
	Short: "Create a configuration file with every option",
	Long: `Write the default configuration to licensepurge.yaml, or to the path
given with --config. The allow-list has to be filled in before a run.`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		path := configFile
		if path == "" {
			path = config.AppName + ".yaml"
		}
		return initConfig(path)
	},
}

var showCmd = &cobra.Command{
	Use:   "show",
	Short: "Show the effective configuration",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := config.LoadUnvalidated(configFile, commandFlags(cmd))
		if err != nil {
			return err
		}
		return showConfig(cfg)
	},
}

var validateCmd = &cobra.Command{
	Use:   "validate",
	Short: "Validate the effective configuration",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := config.LoadUnvalidated(configFile, commandFlags(cmd))
		if err != nil {
			return err
		}
		return validateConfig(cfg)
	},
}

func init() {
	rootCmd.AddCommand(configCmd)
	configCmd.AddCommand(initCmd)
	configCmd.AddCommand(showCmd)
	configCmd.AddCommand(validateCmd)
}

func initConfig(path string) error {
	if _, err := os.Stat(path); err == nil {
		return fmt.Errorf("configuration file already exists: %s", path)
	}

	if err := config.DefaultConfig().Save(path); err != nil {
		return fmt.Errorf("failed to create configuration file: %w", err)
	}

	ui.PrintSuccess("Configuration file created: " + path)
	fmt.Fprintln(ui.Output, "\nNext steps:")
	fmt.Fprintln(ui.Output, "1. Add the package IDs to remove under removal.allowed_ids")
	fmt.Fprintln(ui.Output, "2. Store your session with 'licensepurge auth login'")
	fmt.Fprintln(ui.Output, "3. Check the result with 'licensepurge config validate'")
	return nil
}

func showConfig(cfg *config.Config) error {
	displayCfg := *cfg
	displayCfg.Store.SessionID = mask(displayCfg.Store.SessionID)
	displayCfg.Store.LoginSecure = mask(displayCfg.Store.LoginSecure)

	data, err := yaml.Marshal(&displayCfg)
	if err != nil {
		return fmt.Errorf("failed to format configuration: %w", err)
	}

	ui.PrintHighlight("Current Configuration")
	fmt.Fprintln(ui.Output)
	fmt.Fprint(ui.Output, string(data))
	fmt.Fprintln(ui.Output)
	ui.PrintInfo("State file", cfg.StatePath())
	return nil
}

func validateConfig(cfg *config.Config) error {
	if err := cfg.Validate(); err != nil {
		ui.PrintError("Configuration has errors:")
		for _, line := range strings.Split(err.Error(), "\n") {
			fmt.Fprintf(ui.Output, "  - %s\n", line)
		}
		return errors.New("configuration is invalid")
	}

	ids, err := cfg.AllowList()
	if err != nil {
		return err
	}

	if cfg.Store.SessionID == "" {
		ui.PrintWarning("store.session_id is not set; a stored account or cookies file will be used")
	}

	ui.PrintSuccess("Configuration is valid")
	fmt.Fprintln(ui.Output, "\nConfiguration summary:")
	fmt.Fprintf(ui.Output, "  Allow-listed packages: %d\n", len(ids))
	fmt.Fprintf(ui.Output, "  Allow skipping: %t\n", cfg.Removal.AllowSkipping)
	fmt.Fprintf(ui.Output, "  Cooldown: %s to %s\n", cfg.Removal.MinCooldown, cfg.Removal.MaxCooldown)
	fmt.Fprintf(ui.Output, "  State file: %s\n", cfg.StatePath())
	fmt.Fprintf(ui.Output, "  Log level: %s\n", cfg.Logging.Level)
	return nil
}

func mask(s string) string {
	switch {
	case s == "":
		return ""
	case len(s) > 8:
		return s[:4] + "..." + s[len(s)-4:]
	default:
		return "***"
	}
}
