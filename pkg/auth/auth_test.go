package auth

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func testAccount(username string) *Account {
	return &Account{
		Username:  username,
		AuthToken: "auth-" + username,
		CSRFToken: "csrf-" + username,
		UserAgent: "test-agent",
	}
}

func newTestEncryptedStore(t *testing.T) *EncryptedFileStore {
	t.Helper()
	t.Setenv("ENGAGEBOT_PASSPHRASE", "test-passphrase")

	store, err := NewEncryptedFileStore(filepath.Join(t.TempDir(), "credentials.enc"))
	if err != nil {
		t.Fatalf("NewEncryptedFileStore() error = %v", err)
	}
	return store
}

func TestEncryptedStoreRoundTrip(t *testing.T) {
	store := newTestEncryptedStore(t)

	if err := store.Store(testAccount("alice")); err != nil {
		t.Fatalf("Store() error = %v", err)
	}

	got, err := store.Retrieve("alice")
	if err != nil {
		t.Fatalf("Retrieve() error = %v", err)
	}
	if got.AuthToken != "auth-alice" || got.CSRFToken != "csrf-alice" {
		t.Errorf("retrieved account = %+v", got)
	}
}

func TestEncryptedStoreFileIsOpaque(t *testing.T) {
	t.Setenv("ENGAGEBOT_PASSPHRASE", "test-passphrase")
	path := filepath.Join(t.TempDir(), "credentials.enc")

	store, err := NewEncryptedFileStore(path)
	if err != nil {
		t.Fatal(err)
	}
	if err := store.Store(testAccount("alice")); err != nil {
		t.Fatal(err)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatal(err)
	}
	// Tokens must never appear in the clear on disk.
	if strings.Contains(string(data), "auth-alice") || strings.Contains(string(data), "csrf-alice") {
		t.Error("plaintext token found in encrypted file")
	}
}

func TestEncryptedStoreWrongPassphrase(t *testing.T) {
	path := filepath.Join(t.TempDir(), "credentials.enc")

	t.Setenv("ENGAGEBOT_PASSPHRASE", "first")
	store, err := NewEncryptedFileStore(path)
	if err != nil {
		t.Fatal(err)
	}
	if err := store.Store(testAccount("alice")); err != nil {
		t.Fatal(err)
	}

	t.Setenv("ENGAGEBOT_PASSPHRASE", "second")
	other, err := NewEncryptedFileStore(path)
	if err != nil {
		t.Fatal(err)
	}
	if _, err := other.Retrieve("alice"); err == nil {
		t.Error("retrieve succeeded with the wrong passphrase")
	}
}

func TestEncryptedStoreListAndDelete(t *testing.T) {
	store := newTestEncryptedStore(t)

	if err := store.Store(testAccount("alice")); err != nil {
		t.Fatal(err)
	}
	if err := store.Store(testAccount("bob")); err != nil {
		t.Fatal(err)
	}

	accounts, err := store.List()
	if err != nil {
		t.Fatalf("List() error = %v", err)
	}
	if len(accounts) != 2 {
		t.Errorf("List() returned %d accounts, want 2", len(accounts))
	}

	if err := store.Delete("alice"); err != nil {
		t.Fatalf("Delete() error = %v", err)
	}
	if _, err := store.Retrieve("alice"); !errors.Is(err, ErrCredentialsNotFound) {
		t.Errorf("Retrieve() after delete = %v, want ErrCredentialsNotFound", err)
	}
	if _, err := store.Retrieve("bob"); err != nil {
		t.Errorf("unrelated account lost: %v", err)
	}
}

func TestManagerValidation(t *testing.T) {
	m := newManagerWithStores(newTestEncryptedStore(t))

	invalid := []*Account{
		nil,
		{Username: "", AuthToken: "a", CSRFToken: "c"},
		{Username: "u", AuthToken: "", CSRFToken: "c"},
		{Username: "u", AuthToken: "a", CSRFToken: ""},
	}
	for _, account := range invalid {
		if err := m.Store(account); !errors.Is(err, ErrInvalidCredentials) {
			t.Errorf("Store(%+v) = %v, want ErrInvalidCredentials", account, err)
		}
	}
}

func TestManagerFallsThroughStores(t *testing.T) {
	// First store rejects writes and holds nothing; the second accepts.
	m := newManagerWithStores(NewEnvironmentStore(), newTestEncryptedStore(t))

	if err := m.Store(testAccount("alice")); err != nil {
		t.Fatalf("Store() error = %v", err)
	}

	got, err := m.Retrieve("alice")
	if err != nil {
		t.Fatalf("Retrieve() error = %v", err)
	}
	if got.Username != "alice" {
		t.Errorf("retrieved %+v", got)
	}
}

func TestManagerStoreSetsLastModified(t *testing.T) {
	m := newManagerWithStores(newTestEncryptedStore(t))

	account := testAccount("alice")
	if err := m.Store(account); err != nil {
		t.Fatal(err)
	}
	if account.LastModified.IsZero() {
		t.Error("LastModified not stamped on store")
	}
}

func TestEnvironmentStore(t *testing.T) {
	t.Setenv("ENGAGEBOT_AUTH_TOKEN", "env-auth")
	t.Setenv("ENGAGEBOT_CSRF_TOKEN", "env-csrf")
	t.Setenv("ENGAGEBOT_USERNAME", "envuser")

	store := NewEnvironmentStore()

	account, err := store.Retrieve("")
	if err != nil {
		t.Fatalf("Retrieve() error = %v", err)
	}
	if account.Username != "envuser" || account.AuthToken != "env-auth" {
		t.Errorf("account = %+v", account)
	}

	if err := store.Store(testAccount("x")); !errors.Is(err, ErrStoreUnavailable) {
		t.Errorf("Store() = %v, want ErrStoreUnavailable", err)
	}
	if err := store.Delete("x"); !errors.Is(err, ErrStoreUnavailable) {
		t.Errorf("Delete() = %v, want ErrStoreUnavailable", err)
	}
}

func TestEnvironmentStoreMissingTokens(t *testing.T) {
	t.Setenv("ENGAGEBOT_AUTH_TOKEN", "")
	t.Setenv("ENGAGEBOT_CSRF_TOKEN", "")

	if _, err := NewEnvironmentStore().Retrieve("anyone"); !errors.Is(err, ErrCredentialsNotFound) {
		t.Errorf("Retrieve() = %v, want ErrCredentialsNotFound", err)
	}
}
