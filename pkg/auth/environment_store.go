package auth

import (
	"os"
	"time"

	"licensepurge/pkg/config"
)

const (
	envSessionID   = config.EnvPrefix + "SESSION_ID"
	envLoginSecure = config.EnvPrefix + "LOGIN_SECURE"
	envUserAgent   = config.EnvPrefix + "USER_AGENT"
)

// EnvironmentStore implements CredentialStore using environment variables.
// It is read-only.
type EnvironmentStore struct{}

// NewEnvironmentStore creates a new environment-based credential store
func NewEnvironmentStore() *EnvironmentStore {
	return &EnvironmentStore{}
}

// Store is not supported for environment variables
func (e *EnvironmentStore) Store(account *Account) error {
	return ErrStoreUnavailable
}

// Retrieve gets credentials from environment variables
func (e *EnvironmentStore) Retrieve(name string) (*Account, error) {
	sessionID := os.Getenv(envSessionID)
	if sessionID == "" {
		return nil, ErrCredentialsNotFound
	}

	// The environment has no account names
	if name == "" {
		name = DefaultAccountName
	}

	return &Account{
		Name:         name,
		SessionID:    sessionID,
		LoginSecure:  os.Getenv(envLoginSecure),
		UserAgent:    os.Getenv(envUserAgent),
		LastModified: time.Now(),
	}, nil
}

// List returns a single account if the environment holds a session
func (e *EnvironmentStore) List() ([]*Account, error) {
	account, err := e.Retrieve("")
	if err != nil {
		return []*Account{}, nil
	}
	return []*Account{account}, nil
}

// Delete is not supported for environment variables
func (e *EnvironmentStore) Delete(name string) error {
	return ErrStoreUnavailable
}

// Exists checks if environment credentials exist
func (e *EnvironmentStore) Exists(name string) bool {
	return os.Getenv(envSessionID) != ""
}
