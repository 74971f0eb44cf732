// Package session manages the bot's authentication state: a durable cookie
// jar plus validity and refresh logic. The browser itself is an external
// collaborator; it is reached only through the LoginFunc hook.
package session

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	errs "engagebot/pkg/errors"
	"engagebot/pkg/logger"
)

// essentialCookies must all be present for a session to count as logged in.
var essentialCookies = []string{"auth_token", "ct0"}

// Cookie is a single browser cookie worth persisting between runs.
type Cookie struct {
	Name     string    `json:"name"`
	Value    string    `json:"value"`
	Domain   string    `json:"domain,omitempty"`
	Path     string    `json:"path,omitempty"`
	Expires  time.Time `json:"expires,omitempty"`
	Secure   bool      `json:"secure,omitempty"`
	HTTPOnly bool      `json:"http_only,omitempty"`
}

// jarFile is the on-disk shape of the cookie jar.
type jarFile struct {
	Cookies     []Cookie  `json:"cookies"`
	UserAgent   string    `json:"user_agent,omitempty"`
	LastUpdated time.Time `json:"last_updated"`
}

// LoginFunc performs a fresh login through the browser collaborator and
// returns the resulting cookies.
type LoginFunc func(ctx context.Context) ([]Cookie, error)

// Manager owns the persisted session state. IsValid and Refresh satisfy the
// session interface the orchestrator consumes.
type Manager struct {
	mu        sync.Mutex
	path      string
	maxAge    time.Duration
	userAgent string
	cookies   []Cookie
	updatedAt time.Time
	login     LoginFunc
	logger    logger.Logger
}

// NewManager creates a session manager backed by the given cookie file.
// maxAge bounds how old persisted cookies may be before they are considered
// stale; login is invoked by Refresh when the session needs rebuilding.
func NewManager(path string, maxAge time.Duration, login LoginFunc) *Manager {
	m := &Manager{
		path:   path,
		maxAge: maxAge,
		login:  login,
		logger: logger.GetLogger(),
	}
	m.loadLocked()
	return m
}

// loadLocked reads the cookie file. Missing or corrupt files leave the jar
// empty; the next Refresh rebuilds it.
func (m *Manager) loadLocked() {
	data, err := os.ReadFile(m.path)
	if err != nil {
		if !os.IsNotExist(err) {
			m.logger.WithError(err).Warn("failed to read cookie file")
		}
		return
	}

	var jar jarFile
	if err := json.Unmarshal(data, &jar); err != nil {
		m.logger.WithError(err).Warn("corrupt cookie file, ignoring")
		return
	}

	m.cookies = jar.Cookies
	m.userAgent = jar.UserAgent
	m.updatedAt = jar.LastUpdated
	m.logger.InfoWithFields("loaded session cookies", map[string]interface{}{
		"cookies": len(jar.Cookies),
		"age":     time.Since(jar.LastUpdated),
	})
}

// save writes the jar atomically. Callers must hold m.mu.
func (m *Manager) save() error {
	jar := jarFile{
		Cookies:     m.cookies,
		UserAgent:   m.userAgent,
		LastUpdated: m.updatedAt,
	}

	data, err := json.MarshalIndent(&jar, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to encode cookie jar: %w", err)
	}

	dir := filepath.Dir(m.path)
	if dir != "" && dir != "." {
		if err := os.MkdirAll(dir, 0700); err != nil {
			return fmt.Errorf("failed to create cookie directory: %w", err)
		}
	}

	tempPath := m.path + ".tmp"
	if err := os.WriteFile(tempPath, data, 0600); err != nil {
		return fmt.Errorf("failed to write cookie file: %w", err)
	}
	if err := os.Rename(tempPath, m.path); err != nil {
		os.Remove(tempPath)
		return fmt.Errorf("failed to replace cookie file: %w", err)
	}

	return nil
}

// IsValid reports whether the stored session looks usable: the essential
// cookies are present, none of them has expired, and the jar is not older
// than the configured maximum age.
func (m *Manager) IsValid() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.isValidLocked(time.Now())
}

func (m *Manager) isValidLocked(now time.Time) bool {
	if len(m.cookies) == 0 {
		return false
	}
	if m.maxAge > 0 && now.Sub(m.updatedAt) > m.maxAge {
		return false
	}

	byName := make(map[string]Cookie, len(m.cookies))
	for _, c := range m.cookies {
		byName[c.Name] = c
	}
	for _, name := range essentialCookies {
		c, ok := byName[name]
		if !ok {
			return false
		}
		if !c.Expires.IsZero() && c.Expires.Before(now) {
			return false
		}
	}
	return true
}

// Refresh performs a fresh login and persists the resulting cookies. The
// persisted write failing is logged, not returned: the in-memory session is
// still good for the running process.
func (m *Manager) Refresh(ctx context.Context) error {
	if m.login == nil {
		return errs.New(errs.ErrorTypeSession, "no login function configured")
	}

	cookies, err := m.login(ctx)
	if err != nil {
		return errs.Wrap(errs.ErrorTypeSession, "login failed", err)
	}

	m.mu.Lock()
	m.cookies = cookies
	m.updatedAt = time.Now()
	saveErr := m.save()
	m.mu.Unlock()

	if saveErr != nil {
		m.logger.WithError(saveErr).Error("failed to persist session cookies")
	}

	m.logger.InfoWithFields("session refreshed", map[string]interface{}{
		"cookies": len(cookies),
	})
	return nil
}

// Cookies returns a copy of the current jar.
func (m *Manager) Cookies() []Cookie {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]Cookie, len(m.cookies))
	copy(out, m.cookies)
	return out
}

// SetCookies replaces the jar contents and persists them, for callers that
// obtain cookies out of band (e.g. an interactive login).
func (m *Manager) SetCookies(cookies []Cookie, userAgent string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.cookies = cookies
	m.userAgent = userAgent
	m.updatedAt = time.Now()
	return m.save()
}

// Age returns how long ago the jar was last updated.
func (m *Manager) Age() time.Duration {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.updatedAt.IsZero() {
		return 0
	}
	return time.Since(m.updatedAt)
}
