package main

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"licensepurge/pkg/checkpoint"
	"licensepurge/pkg/config"
	"licensepurge/pkg/ui"
)

// stateCmd represents the state command
var stateCmd = &cobra.Command{
	Use:   "state",
	Short: "Inspect or discard saved progress",
}

var stateShowCmd = &cobra.Command{
	Use:   "show",
	Short: "Show saved progress",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := config.LoadUnvalidated(configFile, commandFlags(cmd))
		if err != nil {
			return err
		}
		return showState(cfg.StatePath())
	},
}

var stateClearCmd = &cobra.Command{
	Use:   "clear",
	Short: "Discard saved progress so the next run starts over",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := config.LoadUnvalidated(configFile, commandFlags(cmd))
		if err != nil {
			return err
		}
		return clearState(cfg.StatePath())
	},
}

func init() {
	rootCmd.AddCommand(stateCmd)
	stateCmd.AddCommand(stateShowCmd)
	stateCmd.AddCommand(stateClearCmd)
	stateCmd.PersistentFlags().StringVar(&runOpts.statePath, "state", "", "path of the progress file")
}

func showState(path string) error {
	states, err := checkpoint.NewManager(path)
	if err != nil {
		return err
	}

	info, err := states.Info()
	if err != nil {
		return fmt.Errorf("failed to read %s: %w", path, err)
	}
	if info == nil {
		ui.PrintInfo("No saved progress", path)
		return nil
	}

	rows := [][]string{
		{"File", path},
		{"Position", fmt.Sprintf("%d of %d", info["index"], info["total"])},
		{"Removed", fmt.Sprintf("%d", info["removed"])},
		{"Cooldown", fmt.Sprintf("%s", info["dynamic_cooldown"])},
	}
	if updated, ok := info["updated_at"].(time.Time); ok {
		rows = append(rows, []string{"Updated", updated.Local().Format("2006-01-02 15:04:05")})
	}

	ui.PrintHighlight("Saved progress")
	fmt.Fprintln(ui.Output, renderTable([]string{"Field", "Value"}, rows, nil))
	return nil
}

func clearState(path string) error {
	states, err := checkpoint.NewManager(path)
	if err != nil {
		return err
	}
	if err := states.Lock(); err != nil {
		return fmt.Errorf("cannot clear %s while a run is active: %w", path, err)
	}
	defer states.Unlock()

	if !states.Exists() {
		ui.PrintInfo("No saved progress", path)
		return nil
	}
	if err := states.Clear(); err != nil {
		return err
	}
	ui.PrintSuccess("Saved progress discarded")
	return nil
}
