package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"licensepurge/pkg/auth"
	"licensepurge/pkg/config"
	"licensepurge/pkg/ui"
)

// authCmd represents the auth command
var authCmd = &cobra.Command{
	Use:   "auth",
	Short: "Manage stored Steam sessions",
	Long: `Manage stored Steam store session cookies.

Sessions are stored using:
  - System keychain (when available)
  - Encrypted file with PBKDF2 key derivation

A cookies.txt export and LICENSEPURGE_SESSION_ID are read as well but
never written. Never share your session cookies!`,
}

var loginCmd = &cobra.Command{
	Use:   "login [name]",
	Short: "Store session cookies securely",
	Long: `Store the sessionid and steamLoginSecure cookies of a logged-in browser.

The name defaults to "default", which 'licensepurge run' uses when no
--account is given.`,
	Example: `  licensepurge auth login
  licensepurge auth login alt-account`,
	Args: cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		manager, err := credentialManager(cmd)
		if err != nil {
			return err
		}
		auth.ShowCookieExtractionGuide()
		return login(manager, ui.StdPrompter(), firstArg(args))
	},
}

var logoutCmd = &cobra.Command{
	Use:   "logout [name]",
	Short: "Remove a stored session",
	Args:  cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		manager, err := credentialManager(cmd)
		if err != nil {
			return err
		}
		name := firstArg(args)
		if name == "" {
			name = auth.DefaultAccountName
		}
		if err := manager.Delete(name); err != nil {
			return fmt.Errorf("failed to remove account: %w", err)
		}
		ui.PrintSuccess("Account removed: " + name)
		return nil
	},
}

var listCmd = &cobra.Command{
	Use:   "list",
	Short: "List stored sessions",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		manager, err := credentialManager(cmd)
		if err != nil {
			return err
		}
		return listAccounts(manager)
	},
}

func init() {
	rootCmd.AddCommand(authCmd)
	authCmd.AddCommand(loginCmd)
	authCmd.AddCommand(logoutCmd)
	authCmd.AddCommand(listCmd)
	authCmd.PersistentFlags().StringVar(&runOpts.cookiesFile, "cookies-file", "", "also read sessions from a Netscape cookies.txt export")
}

func firstArg(args []string) string {
	if len(args) > 0 {
		return args[0]
	}
	return ""
}

func credentialManager(cmd *cobra.Command) (*auth.Manager, error) {
	cfg, err := config.LoadUnvalidated(configFile, commandFlags(cmd))
	if err != nil {
		return nil, err
	}
	manager, err := auth.NewManager(auth.ManagerOptions{CookiesFile: cfg.Store.CookiesFile})
	if err != nil {
		return nil, fmt.Errorf("failed to initialize credential manager: %w", err)
	}
	return manager, nil
}

func login(manager *auth.Manager, prompter *ui.Prompter, name string) error {
	if name == "" {
		name = auth.DefaultAccountName
	}

	if existing, _ := manager.Retrieve(name); existing != nil {
		ok, err := prompter.Confirm(fmt.Sprintf("Account '%s' already exists. Replace it?", name))
		if err != nil || !ok {
			return err
		}
	}

	sessionID, err := prompter.ReadSecret("sessionid cookie value: ")
	if err != nil {
		return fmt.Errorf("failed to read session ID: %w", err)
	}
	loginSecure, err := prompter.ReadSecret("steamLoginSecure cookie value (Enter to skip): ")
	if err != nil {
		return fmt.Errorf("failed to read steamLoginSecure: %w", err)
	}
	userAgent, err := prompter.ReadLine("User agent of that browser (Enter for default): ")
	if err != nil {
		return fmt.Errorf("failed to read user agent: %w", err)
	}

	account := &auth.Account{
		Name:        name,
		SessionID:   sessionID,
		LoginSecure: loginSecure,
		UserAgent:   userAgent,
	}
	if err := manager.Store(account); err != nil {
		return err
	}

	sanitized := auth.SanitizeAccount(account)
	ui.PrintSuccess("Account saved: " + name)
	ui.PrintInfo("sessionid", sanitized.SessionID)
	if loginSecure == "" {
		ui.PrintWarning("No steamLoginSecure given; removals may be refused without it")
	}
	return nil
}

func listAccounts(manager *auth.Manager) error {
	accounts, err := manager.List()
	if err != nil {
		return fmt.Errorf("failed to list accounts: %w", err)
	}
	if len(accounts) == 0 {
		ui.PrintInfo("No stored accounts", "Use 'licensepurge auth login' to add one")
		return nil
	}

	rows := make([][]string, 0, len(accounts))
	for _, account := range accounts {
		sanitized := auth.SanitizeAccount(account)
		modified := ""
		if !sanitized.LastModified.IsZero() {
			modified = sanitized.LastModified.Format("2006-01-02 15:04:05")
		}
		rows = append(rows, []string{sanitized.Name, sanitized.SessionID, sanitized.LoginSecure, modified})
	}

	ui.PrintHighlight("Stored Accounts")
	fmt.Fprintln(ui.Output, renderTable([]string{"Name", "sessionid", "steamLoginSecure", "Last Modified"}, rows, nil))
	return nil
}
