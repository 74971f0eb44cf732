package auth

import (
	"os"
	"time"
)

// EnvironmentStore reads credentials from environment variables. It is a
// read-only last resort for CI and containerized runs.
type EnvironmentStore struct{}

// NewEnvironmentStore creates an environment-backed store.
func NewEnvironmentStore() *EnvironmentStore {
	return &EnvironmentStore{}
}

// Store is not supported for environment variables.
func (e *EnvironmentStore) Store(account *Account) error {
	return ErrStoreUnavailable
}

// Retrieve builds an account from ENGAGEBOT_AUTH_TOKEN / ENGAGEBOT_CSRF_TOKEN.
func (e *EnvironmentStore) Retrieve(username string) (*Account, error) {
	authToken := os.Getenv("ENGAGEBOT_AUTH_TOKEN")
	csrfToken := os.Getenv("ENGAGEBOT_CSRF_TOKEN")
	if authToken == "" || csrfToken == "" {
		return nil, ErrCredentialsNotFound
	}

	if username == "" {
		username = os.Getenv("ENGAGEBOT_USERNAME")
	}
	if username == "" {
		username = "default"
	}

	return &Account{
		Username:     username,
		AuthToken:    authToken,
		CSRFToken:    csrfToken,
		UserAgent:    os.Getenv("ENGAGEBOT_USER_AGENT"),
		LastModified: time.Now(),
	}, nil
}

// List returns the single environment account when configured.
func (e *EnvironmentStore) List() ([]*Account, error) {
	account, err := e.Retrieve("")
	if err != nil {
		return []*Account{}, nil
	}
	return []*Account{account}, nil
}

// Delete is not supported for environment variables.
func (e *EnvironmentStore) Delete(username string) error {
	return ErrStoreUnavailable
}
