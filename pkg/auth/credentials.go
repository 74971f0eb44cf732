// Package auth stores Twitter account credentials: in the system keychain
// when one is available, in an encrypted file otherwise, with environment
// variables as a read-only last resort.
package auth

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"
)

var (
	// ErrInvalidCredentials indicates a malformed or incomplete account.
	ErrInvalidCredentials = errors.New("invalid credentials")

	// ErrCredentialsNotFound indicates no stored credentials for the account.
	ErrCredentialsNotFound = errors.New("credentials not found")

	// ErrStoreUnavailable indicates the backend cannot serve the operation.
	ErrStoreUnavailable = errors.New("credential store unavailable")
)

// Account holds one Twitter account's login material. AuthToken and
// CSRFToken come from the auth_token and ct0 cookies of a logged-in browser.
type Account struct {
	Username     string    `json:"username"`
	AuthToken    string    `json:"auth_token"`
	CSRFToken    string    `json:"csrf_token"`
	UserAgent    string    `json:"user_agent,omitempty"`
	LastModified time.Time `json:"last_modified"`
}

// validate checks the account has the required fields.
func (a *Account) validate() error {
	if a == nil || a.Username == "" || a.AuthToken == "" || a.CSRFToken == "" {
		return ErrInvalidCredentials
	}
	return nil
}

// CredentialStore is the interface for storing and retrieving credentials.
type CredentialStore interface {
	Store(account *Account) error
	Retrieve(username string) (*Account, error)
	List() ([]*Account, error)
	Delete(username string) error
}

// Manager chains credential stores, preferring the most secure available
// backend for writes and falling through on reads.
type Manager struct {
	stores []CredentialStore
}

// NewManager creates a manager with keychain, encrypted-file, and
// environment backends, in that order of preference.
func NewManager() (*Manager, error) {
	var stores []CredentialStore

	if keyringStore, err := NewKeyringStore(); err == nil {
		stores = append(stores, keyringStore)
	}

	configDir, err := getConfigDir()
	if err != nil {
		return nil, fmt.Errorf("failed to get config directory: %w", err)
	}
	encryptedStore, err := NewEncryptedFileStore(filepath.Join(configDir, "credentials.enc"))
	if err != nil {
		return nil, fmt.Errorf("failed to create encrypted store: %w", err)
	}
	stores = append(stores, encryptedStore)

	stores = append(stores, NewEnvironmentStore())

	return &Manager{stores: stores}, nil
}

// newManagerWithStores is used by tests to control the backend chain.
func newManagerWithStores(stores ...CredentialStore) *Manager {
	return &Manager{stores: stores}
}

// Store saves the account in the first store that accepts it.
func (m *Manager) Store(account *Account) error {
	if err := account.validate(); err != nil {
		return err
	}
	account.LastModified = time.Now()

	var lastErr error
	for _, store := range m.stores {
		if err := store.Store(account); err == nil {
			return nil
		} else if !errors.Is(err, ErrStoreUnavailable) {
			lastErr = err
		}
	}
	if lastErr != nil {
		return fmt.Errorf("all credential stores failed: %w", lastErr)
	}
	return ErrStoreUnavailable
}

// Retrieve returns the account from the first store that has it.
func (m *Manager) Retrieve(username string) (*Account, error) {
	for _, store := range m.stores {
		account, err := store.Retrieve(username)
		if err == nil {
			return account, nil
		}
	}
	return nil, ErrCredentialsNotFound
}

// List returns the union of accounts across all stores, first hit wins.
func (m *Manager) List() ([]*Account, error) {
	seen := make(map[string]bool)
	var accounts []*Account
	for _, store := range m.stores {
		stored, err := store.List()
		if err != nil {
			continue
		}
		for _, account := range stored {
			if !seen[account.Username] {
				seen[account.Username] = true
				accounts = append(accounts, account)
			}
		}
	}
	return accounts, nil
}

// Delete removes the account from every store that has it.
func (m *Manager) Delete(username string) error {
	deleted := false
	for _, store := range m.stores {
		if err := store.Delete(username); err == nil {
			deleted = true
		}
	}
	if !deleted {
		return ErrCredentialsNotFound
	}
	return nil
}

// getConfigDir returns the directory for the encrypted credential file.
func getConfigDir() (string, error) {
	if xdg := os.Getenv("XDG_CONFIG_HOME"); xdg != "" {
		return filepath.Join(xdg, "engagebot"), nil
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(home, ".config", "engagebot"), nil
}
