package auth

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"time"

	"licensepurge/pkg/config"
)

// DefaultAccountName is used when no account name is given
const DefaultAccountName = "default"

// Account holds the storefront session cookies of one login
type Account struct {
	Name         string    `json:"name"`
	SessionID    string    `json:"session_id"`
	LoginSecure  string    `json:"login_secure,omitempty"`
	UserAgent    string    `json:"user_agent,omitempty"`
	LastModified time.Time `json:"last_modified"`
}

// Validate checks that the account carries a session
func (a *Account) Validate() error {
	if a == nil || a.SessionID == "" {
		return fmt.Errorf("%w: session ID is required", ErrInvalidCredentials)
	}
	return nil
}

// Provider supplies the session credential for a run
type Provider interface {
	Account(ctx context.Context) (*Account, error)
}

// ProviderFunc adapts a function to Provider
type ProviderFunc func(ctx context.Context) (*Account, error)

// Account calls f
func (f ProviderFunc) Account(ctx context.Context) (*Account, error) {
	return f(ctx)
}

// StaticProvider always returns the same account
func StaticProvider(account *Account) Provider {
	return ProviderFunc(func(ctx context.Context) (*Account, error) {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		if err := account.Validate(); err != nil {
			return nil, err
		}
		acc := *account
		return &acc, nil
	})
}

// CredentialStore is the interface for storing and retrieving credentials
type CredentialStore interface {
	// Store saves credentials for a given account
	Store(account *Account) error

	// Retrieve gets credentials for a named account
	Retrieve(name string) (*Account, error)

	// List returns all stored accounts
	List() ([]*Account, error)

	// Delete removes credentials for a named account
	Delete(name string) error

	// Exists checks if credentials exist for a name
	Exists(name string) bool
}

// Manager handles credential storage with fallback mechanisms
type Manager struct {
	stores []CredentialStore
}

// ManagerOptions selects the stores a Manager consults
type ManagerOptions struct {
	// Dir holds the encrypted credential file. Defaults to the config dir.
	Dir string
	// CookiesFile is an optional Netscape cookies.txt export
	CookiesFile string
	// SkipKeyring disables the system keychain
	SkipKeyring bool
}

// NewManager creates a credential manager. Stores are consulted in order:
// system keyring, encrypted file, cookies.txt export, environment.
func NewManager(opts ManagerOptions) (*Manager, error) {
	var stores []CredentialStore

	if !opts.SkipKeyring {
		if keyringStore, err := NewKeyringStore(); err == nil {
			stores = append(stores, keyringStore)
		}
	}

	dir := opts.Dir
	if dir == "" {
		dir = config.ConfigDir()
	}
	encryptedStore, err := NewEncryptedFileStore(filepath.Join(dir, "credentials.enc"))
	if err != nil {
		return nil, fmt.Errorf("failed to create encrypted store: %w", err)
	}
	stores = append(stores, encryptedStore)

	if opts.CookiesFile != "" {
		stores = append(stores, NewCookieFileStore(opts.CookiesFile))
	}

	stores = append(stores, NewEnvironmentStore())

	return &Manager{stores: stores}, nil
}

// NewManagerWithStores creates a Manager over explicit stores
func NewManagerWithStores(stores ...CredentialStore) *Manager {
	return &Manager{stores: stores}
}

// Store saves credentials using the first store that accepts them
func (m *Manager) Store(account *Account) error {
	if err := account.Validate(); err != nil {
		return err
	}
	if account.Name == "" {
		account.Name = DefaultAccountName
	}
	account.LastModified = time.Now()

	var lastErr error
	for _, store := range m.stores {
		err := store.Store(account)
		if err == nil {
			return nil
		}
		lastErr = err
	}

	if lastErr != nil {
		return fmt.Errorf("failed to store credentials: %w", lastErr)
	}
	return ErrStoreUnavailable
}

// Retrieve gets credentials from the first store that has them
func (m *Manager) Retrieve(name string) (*Account, error) {
	if name == "" {
		name = DefaultAccountName
	}
	for _, store := range m.stores {
		if account, err := store.Retrieve(name); err == nil && account != nil {
			return account, nil
		}
	}
	return nil, fmt.Errorf("%w for account %q", ErrCredentialsNotFound, name)
}

// Provider returns a Provider that resolves the named account, falling
// back to any stored account when the name is empty.
func (m *Manager) Provider(name string) Provider {
	return ProviderFunc(func(ctx context.Context) (*Account, error) {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		if name != "" {
			return m.Retrieve(name)
		}
		if account, err := m.Retrieve(DefaultAccountName); err == nil {
			return account, nil
		}
		accounts, err := m.List()
		if err != nil {
			return nil, err
		}
		if len(accounts) == 0 {
			return nil, ErrCredentialsNotFound
		}
		return accounts[0], nil
	})
}

// List returns every stored account, keeping the most recently modified
// copy of each name, sorted by name.
func (m *Manager) List() ([]*Account, error) {
	accountMap := make(map[string]*Account)

	for _, store := range m.stores {
		accounts, err := store.List()
		if err != nil {
			continue
		}
		for _, account := range accounts {
			if existing, ok := accountMap[account.Name]; !ok || account.LastModified.After(existing.LastModified) {
				accountMap[account.Name] = account
			}
		}
	}

	result := make([]*Account, 0, len(accountMap))
	for _, account := range accountMap {
		result = append(result, account)
	}
	sort.Slice(result, func(i, j int) bool { return result[i].Name < result[j].Name })

	return result, nil
}

// Delete removes credentials from all stores
func (m *Manager) Delete(name string) error {
	if name == "" {
		name = DefaultAccountName
	}

	var deleted bool
	var lastErr error
	for _, store := range m.stores {
		err := store.Delete(name)
		switch {
		case err == nil:
			deleted = true
		case errors.Is(err, ErrStoreUnavailable), errors.Is(err, ErrCredentialsNotFound):
		default:
			lastErr = err
		}
	}

	if !deleted && lastErr != nil {
		return fmt.Errorf("failed to delete credentials: %w", lastErr)
	}
	if !deleted {
		return fmt.Errorf("%w for account %q", ErrCredentialsNotFound, name)
	}
	return nil
}

// SanitizeAccount creates a copy of the account with sensitive data masked
func SanitizeAccount(account *Account) *Account {
	if account == nil {
		return nil
	}

	return &Account{
		Name:         account.Name,
		SessionID:    maskString(account.SessionID),
		LoginSecure:  maskString(account.LoginSecure),
		UserAgent:    account.UserAgent,
		LastModified: account.LastModified,
	}
}

// maskString masks all but the first 4 and last 4 characters of a string
func maskString(s string) string {
	if s == "" {
		return ""
	}
	if len(s) <= 8 {
		return "********"
	}
	return s[:4] + "..." + s[len(s)-4:]
}

func ensureDir(dir string) error {
	if dir == "" || dir == "." {
		return nil
	}
	if err := os.MkdirAll(dir, 0700); err != nil {
		return fmt.Errorf("failed to create directory: %w", err)
	}
	return nil
}

// Errors
var (
	ErrCredentialsNotFound = errors.New("credentials not found")
	ErrInvalidCredentials  = errors.New("invalid credentials")
	ErrStoreUnavailable    = errors.New("credential store unavailable")
)
