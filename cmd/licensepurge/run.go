package main

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"

	"licensepurge/pkg/auth"
	"licensepurge/pkg/checkpoint"
	"licensepurge/pkg/config"
	"licensepurge/pkg/licenses"
	"licensepurge/pkg/logger"
	"licensepurge/pkg/removal"
	"licensepurge/pkg/store"
	"licensepurge/pkg/ui"
)

type runOptions struct {
	yes           bool
	fresh         bool
	pageFile      string
	allowSkipping bool
	account       string
	statePath     string
	cookiesFile   string
	notifications bool
	savePage      bool
}

var runOpts runOptions

// runCmd represents the run command
var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Remove every allow-listed free license from the account",
	Long: `Fetch the account licenses page, keep the package IDs that are on the
allow-list and remove them one at a time.

The session is taken from, in order:
  - store.session_id in the config or LICENSEPURGE_SESSION_ID
  - a stored account ('licensepurge auth login')
  - a cookies.txt export (--cookies-file)

Progress is saved after every attempt. Re-running resumes a stopped run;
use --fresh to discard it.`,
	Example: `  # Remove allow-listed licenses after confirming
  licensepurge run

  # Unattended, treating unknown response codes as "skip this package"
  licensepurge run --yes --allow-skipping

  # Use a saved copy of the licenses page instead of fetching it
  licensepurge run --page-file licenses.html

  # Start over, ignoring saved progress
  licensepurge run --fresh`,
	Args: cobra.NoArgs,
	RunE: runRemoval,
}

func addRunFlags(fs *pflag.FlagSet) {
	fs.BoolVarP(&runOpts.yes, "yes", "y", false, "do not ask for confirmation")
	fs.BoolVar(&runOpts.fresh, "fresh", false, "discard saved progress and start over")
	fs.StringVar(&runOpts.pageFile, "page-file", "", "read candidates from a saved licenses page instead of fetching it")
	fs.BoolVar(&runOpts.allowSkipping, "allow-skipping", false, "skip packages that return an unknown response code instead of backing off")
	fs.StringVarP(&runOpts.account, "account", "a", "", "use a specific stored account")
	fs.StringVar(&runOpts.statePath, "state", "", "path of the progress file")
	fs.StringVar(&runOpts.cookiesFile, "cookies-file", "", "read the session from a Netscape cookies.txt export")
	fs.BoolVar(&runOpts.notifications, "notifications", true, "enable desktop notifications")
	fs.BoolVar(&runOpts.savePage, "save-page", false, "keep a copy of the fetched licenses page next to the state file")
}

func init() {
	rootCmd.AddCommand(runCmd)
	addRunFlags(runCmd.Flags())
	// run is also the default command
	addRunFlags(rootCmd.Flags())
}

func runRemoval(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}

	if !quiet {
		ui.PrintLogo()
	}
	logger.WithField("version", version).Info("licensepurge starting")

	provider, err := sessionProvider(cfg, runOpts.account)
	if err != nil {
		return err
	}

	env := runEnv{
		cfg:      cfg,
		provider: provider,
		prompter: ui.StdPrompter(),
		notifier: ui.NewNotifier(cfg.Notifications),
		log:      logger.GetLogger(),
		opts:     runOpts,
	}
	return env.run(cmd.Context())
}

// sessionProvider picks where the session comes from: an explicit session
// in the configuration wins over stored accounts.
func sessionProvider(cfg *config.Config, account string) (auth.Provider, error) {
	if cfg.Store.SessionID != "" && account == "" {
		return auth.StaticProvider(&auth.Account{
			Name:        "config",
			SessionID:   cfg.Store.SessionID,
			LoginSecure: cfg.Store.LoginSecure,
		}), nil
	}

	manager, err := auth.NewManager(auth.ManagerOptions{CookiesFile: cfg.Store.CookiesFile})
	if err != nil {
		return nil, fmt.Errorf("failed to initialize credential manager: %w", err)
	}
	return manager.Provider(account), nil
}

// runEnv holds everything one removal run needs
type runEnv struct {
	cfg      *config.Config
	provider auth.Provider
	prompter *ui.Prompter
	notifier *ui.Notifier
	log      logger.Logger
	opts     runOptions

	// wait replaces the sleep between attempts in tests
	wait func(ctx context.Context, d time.Duration) error
}

func (e *runEnv) run(ctx context.Context) error {
	e.log = e.log.WithField("run_id", uuid.NewString())

	account, err := e.provider.Account(ctx)
	if err != nil {
		if errors.Is(err, auth.ErrCredentialsNotFound) {
			ui.PrintWarning("No session found. Run 'licensepurge auth login' or set LICENSEPURGE_SESSION_ID")
		}
		return fmt.Errorf("failed to resolve session: %w", err)
	}

	client, err := store.NewClient(e.cfg.Store, account, e.log)
	if err != nil {
		return fmt.Errorf("failed to create store client: %w", err)
	}
	client.SetAllowSkipping(e.cfg.Removal.AllowSkipping)

	ids, err := e.cfg.AllowList()
	if err != nil {
		return fmt.Errorf("failed to load allow-list: %w", err)
	}
	allow := licenses.NewAllowList(ids)

	states, err := checkpoint.NewManager(e.cfg.StatePath())
	if err != nil {
		return fmt.Errorf("failed to open state: %w", err)
	}
	states.WithLogger(e.log)
	if err := states.Lock(); err != nil {
		if errors.Is(err, checkpoint.ErrLocked) {
			return fmt.Errorf("another run is using %s: %w", states.Path(), err)
		}
		return err
	}
	defer states.Unlock()

	if e.opts.fresh {
		if err := states.Clear(); err != nil {
			return fmt.Errorf("failed to discard saved progress: %w", err)
		}
	}

	var fetcher licenses.PageFetcher = client
	if e.opts.savePage {
		if fetcher, err = newSnapshotFetcher(e.cfg, client); err != nil {
			return err
		}
	}
	var pages licenses.Source = licenses.NewPageSource(fetcher)
	if e.opts.pageFile != "" {
		pages = licenses.NewFileSource(e.opts.pageFile)
	}

	source, question, err := e.plan(ctx, states, pages, allow)
	if err != nil {
		return err
	}

	if question != "" && !e.opts.yes {
		ok, err := e.prompter.Confirm(question)
		if err != nil {
			return fmt.Errorf("failed to read confirmation: %w", err)
		}
		if !ok {
			ui.PrintWarning("Aborted, nothing was removed")
			return nil
		}
	}

	runner := removal.NewRunner(client, source, allow, states, removal.PolicyFromConfig(e.cfg.Removal), e.log)
	if e.wait != nil {
		runner.WithWait(e.wait)
	}
	tracker := ui.NewStatusTracker()
	runner.OnAttempt = func(id licenses.PackageID, outcome removal.Outcome, state removal.State, delay time.Duration) {
		tracker.Update(state.Index, state.Total(), state.RemovedCount)
		if !quiet {
			tracker.PrintProgress()
		}
	}

	summary, err := runner.Run(ctx)
	return e.report(summary, err, states.Path())
}

// plan decides what the run works on and what to ask before starting.
// Saved progress is resumed; otherwise candidates are fetched once and
// handed to the runner as a fixed list.
func (e *runEnv) plan(ctx context.Context, states *checkpoint.Manager, pages licenses.Source, allow *licenses.AllowList) (licenses.Source, string, error) {
	saved, err := states.LoadCheckpoint()
	if err != nil && !errors.Is(err, checkpoint.ErrCorruptState) {
		return nil, "", fmt.Errorf("failed to load state: %w", err)
	}
	if saved != nil && len(saved.SubIDs) > 0 {
		if outside := saved.State().Outside(allow); len(outside) > 0 {
			ui.PrintWarning("Saved progress lists packages outside the allow-list, starting over", fmt.Sprintf("%v", outside))
			saved = nil
		}
	}
	if saved != nil && len(saved.SubIDs) > 0 {
		ui.PrintInfo("Resuming", fmt.Sprintf("%d of %d packages done, %d removed", saved.Index, len(saved.SubIDs), saved.RemovedCount))
		question := fmt.Sprintf("Continue removing the remaining %d packages?", len(saved.SubIDs)-saved.Index)
		return pages, question, nil
	}

	candidates, err := pages.Candidates(ctx)
	if err != nil {
		return nil, "", fmt.Errorf("failed to load licenses page: %w", err)
	}
	matching := allow.Filter(candidates)

	ui.PrintInfo("Licenses page", fmt.Sprintf("%d removable, %d on the allow-list", len(candidates), len(matching)))
	if len(matching) == 0 {
		return licenses.StaticSource(nil), "", nil
	}
	return licenses.StaticSource(matching), fmt.Sprintf("Remove %d packages from this account?", len(matching)), nil
}

func (e *runEnv) report(summary removal.Summary, err error, statePath string) error {
	if len(summary.Dropped) > 0 {
		ids := make([]string, len(summary.Dropped))
		for i, id := range summary.Dropped {
			ids[i] = fmt.Sprintf("%d", id)
		}
		ui.PrintWarning("Passed over after errors, re-run to retry", strings.Join(ids, ", "))
	}

	var fatal *removal.FatalError
	switch {
	case err == nil:
		e.notifier.SendSuccess("License removal complete", fmt.Sprintf("Removed %d of %d matching packages", summary.Removed, summary.Total))
		return nil

	case errors.Is(err, removal.ErrNoMatchingItems):
		e.notifier.SendError("Nothing to remove", "No package on the licenses page is on the allow-list")
		return err

	case errors.As(err, &fatal):
		ui.PrintBanner("LICENSE REMOVAL STOPPED",
			fmt.Sprintf("package %d got a response that is not JSON", fatal.ID),
			"your session probably expired: log in again and re-run",
			fmt.Sprintf("progress kept in %s", statePath),
		)
		if fatal.Body != "" {
			e.log.WithField("package_id", int(fatal.ID)).Debug("response body: " + fatal.Body)
		}
		e.notifier.SendError("License removal stopped", fmt.Sprintf("Removed %d of %d; session may have expired", summary.Removed, summary.Total))
		return err

	case errors.Is(err, context.Canceled):
		ui.PrintWarning(fmt.Sprintf("Interrupted after removing %d of %d, progress saved to %s", summary.Removed, summary.Total, statePath))
		return nil

	default:
		e.notifier.SendError("License removal failed", err.Error())
		return err
	}
}
