package server

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
	log "github.com/go-pkgz/lgr"
	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"
	"gopkg.in/yaml.v3"
)

// defaultSessionCleanupInterval is the default interval for background cleanup of expired sessions.
const defaultSessionCleanupInterval = 1 * time.Hour

// sessionCookieNames defines cookie names for session authentication.
// __Host- prefix requires HTTPS, secure, path=/ (preferred for production).
// fallback cookie name works on HTTP for development.
var sessionCookieNames = []string{"__Host-shade-auth", "shade-auth"}

// AuthConfig represents the auth configuration file (shade-auth.yml).
type AuthConfig struct {
	Users  []UserConfig `yaml:"users,omitempty"`
	Tokens []string     `yaml:"tokens,omitempty"`
}

// UserConfig represents a user in the auth config file.
type UserConfig struct {
	Name     string `yaml:"name"`
	Password string `yaml:"password"` // bcrypt hash
}

// LoadAuthConfig reads, validates and parses the auth YAML file.
func LoadAuthConfig(path string) (*AuthConfig, error) {
	data, err := os.ReadFile(path) //nolint:gosec // path is from CLI flag, controlled by admin
	if err != nil {
		return nil, fmt.Errorf("failed to read auth config file: %w", err)
	}

	var cfg AuthConfig
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("failed to parse auth config file: %w", err)
	}

	for _, u := range cfg.Users {
		if u.Name == "" {
			return nil, errors.New("user name cannot be empty")
		}
		if u.Password == "" {
			return nil, fmt.Errorf("password hash cannot be empty for user %q", u.Name)
		}
	}

	if len(cfg.Users) == 0 && len(cfg.Tokens) == 0 {
		return nil, errors.New("auth config must have at least one user or token")
	}

	return &cfg, nil
}

// session holds an active login session.
type session struct {
	username  string
	expiresAt time.Time
}

// Auth handles authentication and authorization.
// A nil Auth means authentication is disabled.
type Auth struct {
	mu       sync.RWMutex      // protects users and tokens (config data)
	authFile string            // path to auth config file for reloading
	users    map[string]string // username -> bcrypt password hash
	tokens   map[string]bool   // API token set

	sessionsMu sync.RWMutex
	sessions   map[string]session // session token -> session

	loginTTL        time.Duration
	cleanupInterval time.Duration
}

// NewAuth creates a new Auth instance from configuration file.
// Returns nil if authFile is empty (authentication disabled).
func NewAuth(authFile string, loginTTL time.Duration) (*Auth, error) {
	if authFile == "" {
		return nil, nil //nolint:nilnil // nil auth means disabled, not an error
	}

	cfg, err := LoadAuthConfig(authFile)
	if err != nil {
		return nil, fmt.Errorf("failed to load auth config: %w", err)
	}

	if loginTTL == 0 {
		loginTTL = 30 * 24 * time.Hour // 30 days
	}

	a := &Auth{
		authFile:        authFile,
		sessions:        make(map[string]session),
		loginTTL:        loginTTL,
		cleanupInterval: defaultSessionCleanupInterval,
	}
	a.apply(cfg)
	return a, nil
}

// apply installs the parsed config as the active users and tokens.
func (a *Auth) apply(cfg *AuthConfig) {
	users := make(map[string]string, len(cfg.Users))
	for _, u := range cfg.Users {
		users[u.Name] = u.Password
	}
	tokens := make(map[string]bool, len(cfg.Tokens))
	for _, t := range cfg.Tokens {
		tokens[t] = true
	}

	a.mu.Lock()
	a.users = users
	a.tokens = tokens
	a.mu.Unlock()
}

// Enabled reports whether authentication is active.
func (a *Auth) Enabled() bool { return a != nil }

// IsValidUser checks the username and password against the configured users.
func (a *Auth) IsValidUser(username, password string) bool {
	a.mu.RLock()
	hash, ok := a.users[username]
	a.mu.RUnlock()
	if !ok {
		return false
	}
	return bcrypt.CompareHashAndPassword([]byte(hash), []byte(password)) == nil
}

// IsValidToken checks the token against the configured API tokens.
func (a *Auth) IsValidToken(token string) bool {
	a.mu.RLock()
	defer a.mu.RUnlock()
	return a.tokens[token]
}

// CreateSession creates a new login session for the user and returns its token.
func (a *Auth) CreateSession(username string) string {
	token := uuid.New().String()
	a.sessionsMu.Lock()
	a.sessions[token] = session{username: username, expiresAt: time.Now().Add(a.loginTTL)}
	a.sessionsMu.Unlock()
	return token
}

// GetSessionUser returns the username for a valid session token.
func (a *Auth) GetSessionUser(token string) (string, bool) {
	if a == nil {
		return "", false
	}
	a.sessionsMu.RLock()
	sess, ok := a.sessions[token]
	a.sessionsMu.RUnlock()
	if !ok || time.Now().After(sess.expiresAt) {
		return "", false
	}
	return sess.username, true
}

// InvalidateSession removes the session for the given token.
func (a *Auth) InvalidateSession(token string) {
	a.sessionsMu.Lock()
	delete(a.sessions, token)
	a.sessionsMu.Unlock()
}

// LoginTTL returns the configured session duration.
func (a *Auth) LoginTTL() time.Duration { return a.loginTTL }

// StartCleanup starts the background expired sessions cleanup, stopped by ctx.
func (a *Auth) StartCleanup(ctx context.Context) {
	go func() {
		ticker := time.NewTicker(a.cleanupInterval)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				removed := a.cleanupExpired()
				if removed > 0 {
					log.Printf("[DEBUG] removed %d expired sessions", removed)
				}
			}
		}
	}()
}

// cleanupExpired removes expired sessions and returns the number removed.
func (a *Auth) cleanupExpired() int {
	now := time.Now()
	a.sessionsMu.Lock()
	defer a.sessionsMu.Unlock()
	removed := 0
	for token, sess := range a.sessions {
		if now.After(sess.expiresAt) {
			delete(a.sessions, token)
			removed++
		}
	}
	return removed
}

// StartWatcher watches the auth config file and reloads it on change.
// Stops when the context is canceled.
func (a *Auth) StartWatcher(ctx context.Context) error {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("failed to create watcher: %w", err)
	}

	// watch the directory, editors often replace the file on save
	if err := watcher.Add(filepath.Dir(a.authFile)); err != nil {
		_ = watcher.Close()
		return fmt.Errorf("failed to watch auth config dir: %w", err)
	}

	go func() {
		defer watcher.Close()
		for {
			select {
			case <-ctx.Done():
				return
			case event, ok := <-watcher.Events:
				if !ok {
					return
				}
				if filepath.Clean(event.Name) != filepath.Clean(a.authFile) {
					continue
				}
				if !event.Has(fsnotify.Write) && !event.Has(fsnotify.Create) {
					continue
				}
				a.reload()
			case err, ok := <-watcher.Errors:
				if !ok {
					return
				}
				log.Printf("[WARN] auth config watcher error: %v", err)
			}
		}
	}()
	return nil
}

// reload re-reads the auth config, keeping the old one on failure.
func (a *Auth) reload() {
	cfg, err := LoadAuthConfig(a.authFile)
	if err != nil {
		log.Printf("[WARN] failed to reload auth config, keeping previous: %v", err)
		return
	}
	a.apply(cfg)
	log.Printf("[INFO] auth config reloaded, %d user(s), %d token(s)", len(cfg.Users), len(cfg.Tokens))
}

// NoopAuth is a pass-through middleware used when authentication is disabled.
func NoopAuth(next http.Handler) http.Handler { return next }

// SessionAuth returns middleware requiring a valid session cookie,
// redirecting to loginURL otherwise.
func (a *Auth) SessionAuth(loginURL string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			for _, cookieName := range sessionCookieNames {
				cookie, err := r.Cookie(cookieName)
				if err != nil {
					continue
				}
				if _, ok := a.GetSessionUser(cookie.Value); ok {
					next.ServeHTTP(w, r)
					return
				}
			}
			http.Redirect(w, r, loginURL, http.StatusSeeOther)
		})
	}
}

// TokenAuth is middleware requiring a valid Bearer token or session cookie.
func (a *Auth) TokenAuth(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		// browser clients with a valid session are allowed too
		for _, cookieName := range sessionCookieNames {
			if cookie, err := r.Cookie(cookieName); err == nil {
				if _, ok := a.GetSessionUser(cookie.Value); ok {
					next.ServeHTTP(w, r)
					return
				}
			}
		}

		authHeader := r.Header.Get("Authorization")
		if strings.HasPrefix(authHeader, "Bearer ") && a.IsValidToken(strings.TrimPrefix(authHeader, "Bearer ")) {
			next.ServeHTTP(w, r)
			return
		}

		http.Error(w, "unauthorized", http.StatusUnauthorized)
	})
}

// currentUser returns the username from the session cookie, or empty string if not logged in.
func (s *Server) currentUser(r *http.Request) string {
	if !s.auth.Enabled() {
		return ""
	}
	for _, cookieName := range sessionCookieNames {
		if cookie, err := r.Cookie(cookieName); err == nil {
			if username, ok := s.auth.GetSessionUser(cookie.Value); ok {
				return username
			}
		}
	}
	return ""
}
