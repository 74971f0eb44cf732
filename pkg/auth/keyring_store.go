package auth

import (
	"encoding/json"
	"fmt"

	"github.com/zalando/go-keyring"
)

const (
	keyringService = "engagebot"
	keyringIndex   = "accounts_index"
	keyringPrefix  = "twitter_"
)

// KeyringStore keeps credentials in the system keychain. A separate index
// entry tracks stored usernames, since keychains cannot be enumerated.
type KeyringStore struct{}

// NewKeyringStore creates a keychain-backed store, probing availability
// with a throwaway entry.
func NewKeyringStore() (*KeyringStore, error) {
	probe := "availability_probe"
	if err := keyring.Set(keyringService, probe, "ok"); err != nil {
		return nil, fmt.Errorf("keyring not available: %w", err)
	}
	_ = keyring.Delete(keyringService, probe)
	return &KeyringStore{}, nil
}

// Store saves the account to the keychain and updates the username index.
func (k *KeyringStore) Store(account *Account) error {
	if err := account.validate(); err != nil {
		return err
	}

	data, err := json.Marshal(account)
	if err != nil {
		return fmt.Errorf("failed to marshal account: %w", err)
	}
	if err := keyring.Set(keyringService, keyringPrefix+account.Username, string(data)); err != nil {
		return fmt.Errorf("failed to store in keyring: %w", err)
	}

	return k.updateIndex(func(index map[string]bool) {
		index[account.Username] = true
	})
}

// Retrieve gets the account from the keychain.
func (k *KeyringStore) Retrieve(username string) (*Account, error) {
	if username == "" {
		return nil, ErrInvalidCredentials
	}

	data, err := keyring.Get(keyringService, keyringPrefix+username)
	if err != nil {
		return nil, ErrCredentialsNotFound
	}

	var account Account
	if err := json.Unmarshal([]byte(data), &account); err != nil {
		return nil, fmt.Errorf("failed to unmarshal account: %w", err)
	}
	return &account, nil
}

// List returns every account recorded in the username index.
func (k *KeyringStore) List() ([]*Account, error) {
	index, err := k.loadIndex()
	if err != nil {
		return []*Account{}, nil
	}

	var accounts []*Account
	for username := range index {
		if account, err := k.Retrieve(username); err == nil {
			accounts = append(accounts, account)
		}
	}
	return accounts, nil
}

// Delete removes the account and its index entry.
func (k *KeyringStore) Delete(username string) error {
	if username == "" {
		return ErrInvalidCredentials
	}
	if err := keyring.Delete(keyringService, keyringPrefix+username); err != nil {
		return ErrCredentialsNotFound
	}
	return k.updateIndex(func(index map[string]bool) {
		delete(index, username)
	})
}

func (k *KeyringStore) loadIndex() (map[string]bool, error) {
	index := make(map[string]bool)
	data, err := keyring.Get(keyringService, keyringIndex)
	if err != nil {
		return index, nil // no index yet
	}
	if err := json.Unmarshal([]byte(data), &index); err != nil {
		return nil, fmt.Errorf("corrupt keyring index: %w", err)
	}
	return index, nil
}

func (k *KeyringStore) updateIndex(mutate func(map[string]bool)) error {
	index, err := k.loadIndex()
	if err != nil {
		index = make(map[string]bool)
	}
	mutate(index)

	data, err := json.Marshal(index)
	if err != nil {
		return fmt.Errorf("failed to marshal keyring index: %w", err)
	}
	return keyring.Set(keyringService, keyringIndex, string(data))
}
