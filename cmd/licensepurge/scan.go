package main

import (
	"context"
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"licensepurge/pkg/config"
	"licensepurge/pkg/licenses"
	"licensepurge/pkg/logger"
	"licensepurge/pkg/store"
	"licensepurge/pkg/ui"
)

var scanPageFile string

// scanCmd represents the scan command
var scanCmd = &cobra.Command{
	Use:   "scan",
	Short: "List removable licenses without removing anything",
	Long: `Fetch the account licenses page and list every package that has a
remove link, marking the ones on the allow-list. Nothing is removed and no
progress is saved.`,
	Example: `  licensepurge scan
  licensepurge scan --page-file licenses.html`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig(cmd)
		if err != nil {
			return err
		}

		var source licenses.Source
		if scanPageFile != "" {
			source = licenses.NewFileSource(scanPageFile)
		} else {
			provider, err := sessionProvider(cfg, runOpts.account)
			if err != nil {
				return err
			}
			account, err := provider.Account(cmd.Context())
			if err != nil {
				return fmt.Errorf("failed to resolve session: %w", err)
			}
			client, err := store.NewClient(cfg.Store, account, logger.GetLogger())
			if err != nil {
				return err
			}
			var fetcher licenses.PageFetcher = client
			if runOpts.savePage {
				if fetcher, err = newSnapshotFetcher(cfg, client); err != nil {
					return err
				}
			}
			source = licenses.NewPageSource(fetcher)
		}

		return scan(cmd.Context(), cfg, source, ui.Output)
	},
}

func init() {
	rootCmd.AddCommand(scanCmd)
	scanCmd.Flags().StringVar(&scanPageFile, "page-file", "", "read a saved licenses page instead of fetching it")
	scanCmd.Flags().StringVarP(&runOpts.account, "account", "a", "", "use a specific stored account")
	scanCmd.Flags().BoolVar(&runOpts.savePage, "save-page", false, "keep a copy of the fetched licenses page next to the state file")
	scanCmd.Flags().StringVar(&runOpts.cookiesFile, "cookies-file", "", "read the session from a Netscape cookies.txt export")
}

func scan(ctx context.Context, cfg *config.Config, source licenses.Source, out io.Writer) error {
	ids, err := cfg.AllowList()
	if err != nil {
		return fmt.Errorf("failed to load allow-list: %w", err)
	}
	allow := licenses.NewAllowList(ids)

	candidates, err := source.Candidates(ctx)
	if err != nil {
		return fmt.Errorf("failed to load licenses page: %w", err)
	}

	matching := 0
	rows := make([][]string, 0, len(candidates))
	for _, id := range candidates {
		mark := ""
		if allow.Contains(id) {
			mark = "remove"
			matching++
		}
		rows = append(rows, []string{fmt.Sprintf("%d", id), mark})
	}
	fmt.Fprintln(out, renderTable([]string{"Package", "Action"}, rows, []columnAlignment{alignRight, alignLeft}))

	fmt.Fprintln(out)
	ui.PrintInfo("Removable licenses", fmt.Sprintf("%d", len(candidates)))
	ui.PrintInfo("On the allow-list", fmt.Sprintf("%d", matching))
	return nil
}
