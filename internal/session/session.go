// Package session owns the OAuth access-token lifecycle for the
// Google-backed providers: interactive sign-in, silent restore and renewal,
// expiry tracking, and sign-out. It is the only writer of the persisted
// token, expiry, email, and scope keys.
package session

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"sync"
	"time"

	"tabdash/internal/kvstore"
)

// Status is the session state. Transitions are documented on Manager.
type Status int

const (
	// StatusUnknown means the status has not been determined yet, e.g.
	// right after process start before a restore attempt.
	StatusUnknown Status = iota

	StatusSignedOut
	StatusAuthenticated
)

func (s Status) String() string {
	switch s {
	case StatusSignedOut:
		return "signed out"
	case StatusAuthenticated:
		return "authenticated"
	default:
		return "unknown"
	}
}

// Persisted key layout in the local storage area.
const (
	tokenKey       = "google_oauth_token"
	tokenExpiryKey = "google_oauth_token_expiry"
	userEmailKey   = "google_user_email"
	scopesKey      = "google_oauth_scopes"

	// Keys used before the token store was shared across Google backends.
	legacyTokenKey  = "google_tasks_token"
	legacyExpiryKey = "google_tasks_token_expiry"
)

const (
	// refreshBuffer triggers renewal this long before hard expiry.
	refreshBuffer = 5 * time.Minute

	// defaultExpiresIn is assumed when a grant omits its lifetime.
	defaultExpiresIn = 3600
)

var (
	// ErrNotSignedIn is returned when no token exists at all.
	ErrNotSignedIn = errors.New("not signed in")

	// ErrSessionExpired is returned once a token is both refresh-failed
	// and hard-expired. User-visible as a sign-in prompt.
	ErrSessionExpired = errors.New("session expired, please sign in again")

	// ErrCancelled is returned when the user closes the sign-in surface
	// before completing the flow.
	ErrCancelled = errors.New("sign in cancelled")

	// ErrStateMismatch is returned when a callback message echoes a state
	// nonce that does not match the one stored for the attempt.
	ErrStateMismatch = errors.New("oauth state mismatch")

	// ErrRefreshTimeout is returned when no matching callback message
	// arrives within the silent-refresh deadline.
	ErrRefreshTimeout = errors.New("silent refresh timed out")
)

// Grant is an access token with its declared lifetime in seconds.
type Grant struct {
	AccessToken string
	ExpiresIn   int64
}

// TokenAPI is a host-provided token facility. When present it replaces the
// surface-based implicit flow for both interactive and silent acquisition.
type TokenAPI interface {
	Token(ctx context.Context, interactive bool) (Grant, error)
	Revoke(ctx context.Context, token string) error
}

// Endpoints holds the remote endpoints the manager talks to. Zero values
// select the Google production endpoints; tests point them at a local server.
type Endpoints struct {
	Auth      string
	TokenInfo string
	UserInfo  string
	Revoke    string
}

func (e *Endpoints) applyDefaults() {
	if e.Auth == "" {
		e.Auth = "https://accounts.google.com/o/oauth2/v2/auth"
	}
	if e.TokenInfo == "" {
		e.TokenInfo = "https://www.googleapis.com/oauth2/v1/tokeninfo"
	}
	if e.UserInfo == "" {
		e.UserInfo = "https://www.googleapis.com/oauth2/v2/userinfo"
	}
	if e.Revoke == "" {
		e.Revoke = "https://oauth2.googleapis.com/revoke"
	}
}

// Config configures a Manager.
type Config struct {
	ClientID    string
	RedirectURI string
	Scopes      []string
	Endpoints   Endpoints

	// TokenAPI, when non-nil, handles acquisition instead of the
	// surface-based implicit flow.
	TokenAPI TokenAPI

	// Opener provides surfaces for the implicit flow. Required unless
	// TokenAPI is set.
	Opener Opener

	// HTTPClient is used for introspection, userinfo, and revocation.
	HTTPClient *http.Client
}

// Manager is the finite state machine over {SignedOut, Unknown,
// Authenticated}. All blocking operations take a context.
type Manager struct {
	store  kvstore.Store
	cfg    Config
	client *http.Client
	logger *slog.Logger
	now    func() time.Time

	mu     sync.Mutex
	status Status
	email  string
}

// New creates a manager in the Unknown state.
func New(store kvstore.Store, cfg Config, logger *slog.Logger) *Manager {
	cfg.Endpoints.applyDefaults()
	client := cfg.HTTPClient
	if client == nil {
		client = &http.Client{Timeout: 10 * time.Second}
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Manager{
		store:  store,
		cfg:    cfg,
		client: client,
		logger: logger,
		now:    time.Now,
	}
}

// SetClock replaces the clock for tests.
func (m *Manager) SetClock(now func() time.Time) { m.now = now }

// Init loads the last-known email without asserting token validity and
// migrates legacy storage keys. Status stays Unknown until a restore or
// sign-in attempt resolves it.
func (m *Manager) Init(ctx context.Context) error {
	if err := m.migrateStorageKeys(ctx); err != nil {
		m.logger.Warn("storage key migration failed", "error", err)
	}
	email, err := kvstore.Get(ctx, m.store, userEmailKey, "")
	if err != nil {
		return err
	}
	m.mu.Lock()
	m.email = email
	m.status = StatusUnknown
	m.mu.Unlock()
	m.logger.Debug("session initialized", "email", email, "status", StatusUnknown)
	return nil
}

// Status returns the current session state.
func (m *Manager) Status() Status {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.status
}

// Email returns the last-known account email, if any.
func (m *Manager) Email() string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.email
}

// IsSignedIn reports whether the session is authenticated. This is a
// synchronous snapshot read; it never triggers a network call.
func (m *Manager) IsSignedIn() bool {
	return m.Status() == StatusAuthenticated
}

// SignIn obtains a token interactively, validates it, fetches the account
// email, and transitions to Authenticated. Any failure transitions to
// SignedOut.
func (m *Manager) SignIn(ctx context.Context) error {
	m.logger.Info("starting sign in")

	grant, err := m.acquire(ctx, true)
	if err != nil {
		m.setSignedOut()
		return err
	}

	if err := m.validateToken(ctx, grant.AccessToken); err != nil {
		m.setSignedOut()
		return fmt.Errorf("token validation failed: %w", err)
	}

	email, err := m.fetchEmail(ctx, grant.AccessToken)
	if err != nil {
		// Email is informational; sign-in proceeds without it.
		m.logger.Warn("failed to fetch user email", "error", err)
	}

	if err := m.storeGrant(ctx, grant, email); err != nil {
		m.setSignedOut()
		return err
	}
	m.setAuthenticated(email)
	m.logger.Info("sign in complete", "email", email)
	return nil
}

// TrySilentRestore attempts non-interactive token acquisition, e.g. on
// process start. Returns true when the session was restored; any failure
// resolves the state to SignedOut without error.
func (m *Manager) TrySilentRestore(ctx context.Context) bool {
	m.logger.Debug("attempting silent session restore")

	grant, err := m.acquire(ctx, false)
	if err != nil {
		m.logger.Debug("silent restore failed", "error", err)
		m.setSignedOut()
		return false
	}

	if err := m.validateToken(ctx, grant.AccessToken); err != nil {
		m.logger.Debug("restored token failed validation", "error", err)
		m.setSignedOut()
		return false
	}

	email, err := kvstore.Get(ctx, m.store, userEmailKey, "")
	if err != nil {
		m.logger.Warn("failed to read stored email", "error", err)
	}
	if err := m.storeGrant(ctx, grant, email); err != nil {
		m.logger.Warn("failed to persist restored token", "error", err)
		m.setSignedOut()
		return false
	}
	m.setAuthenticated(email)
	m.logger.Info("session restored", "email", email)
	return true
}

// EnsureValidToken returns a token usable for API calls. Inside the refresh
// buffer it attempts a silent renewal; if renewal fails but the current
// token has not passed hard expiry, the stale-but-unexpired token is
// returned as a degraded fallback. A token that is both refresh-failed and
// hard-expired yields ErrSessionExpired and a SignedOut transition.
func (m *Manager) EnsureValidToken(ctx context.Context) (string, error) {
	token, err := kvstore.Get(ctx, m.store, tokenKey, "")
	if err != nil {
		return "", err
	}
	if token == "" {
		return "", ErrNotSignedIn
	}

	needs, err := m.needsRefresh(ctx)
	if err != nil {
		return "", err
	}
	if !needs {
		return token, nil
	}

	m.logger.Debug("token inside refresh buffer, attempting renewal")
	refreshed, refreshErr := m.refresh(ctx)
	if refreshErr == nil {
		return refreshed, nil
	}

	expired, err := m.isTokenExpired(ctx)
	if err != nil {
		return "", err
	}
	if !expired {
		m.logger.Warn("refresh failed, serving unexpired token", "error", refreshErr)
		return token, nil
	}

	m.logger.Error("refresh failed and token expired", "error", refreshErr)
	if err := m.clearTokens(ctx); err != nil {
		m.logger.Warn("failed to clear tokens", "error", err)
	}
	m.setSignedOut()
	return "", ErrSessionExpired
}

// SignOut revokes the cached token best-effort and clears all persisted
// session state. Sign-out always succeeds locally even when the remote
// revoke call fails.
func (m *Manager) SignOut(ctx context.Context) error {
	token, err := kvstore.Get(ctx, m.store, tokenKey, "")
	if err != nil {
		m.logger.Warn("failed to read token during sign out", "error", err)
	}
	if token != "" {
		if err := m.revoke(ctx, token); err != nil {
			m.logger.Warn("token revocation failed", "error", err)
		}
	}
	if err := m.clearTokens(ctx); err != nil {
		return err
	}
	m.setSignedOut()
	m.logger.Info("sign out complete")
	return nil
}

// HasScope reports whether the given scope was granted at last validation.
func (m *Manager) HasScope(ctx context.Context, scope string) (bool, error) {
	scopes, err := kvstore.Get(ctx, m.store, scopesKey, "")
	if err != nil {
		return false, err
	}
	for _, s := range strings.Fields(scopes) {
		if s == scope {
			return true, nil
		}
	}
	return false, nil
}

// refresh renews the token silently and persists the result.
func (m *Manager) refresh(ctx context.Context) (string, error) {
	grant, err := m.acquire(ctx, false)
	if err != nil {
		return "", err
	}
	email, err := kvstore.Get(ctx, m.store, userEmailKey, "")
	if err != nil {
		m.logger.Warn("failed to read stored email", "error", err)
	}
	if err := m.storeGrant(ctx, grant, email); err != nil {
		return "", err
	}
	m.setAuthenticated(email)
	m.logger.Debug("token refreshed")
	return grant.AccessToken, nil
}

// acquire obtains a grant, preferring the host token API over the
// surface-based implicit flow.
func (m *Manager) acquire(ctx context.Context, interactive bool) (Grant, error) {
	if m.cfg.TokenAPI != nil {
		return m.cfg.TokenAPI.Token(ctx, interactive)
	}
	if m.cfg.Opener == nil {
		return Grant{}, errors.New("session: no token API or opener configured")
	}
	if interactive {
		return m.popupGrant(ctx)
	}
	return m.silentGrant(ctx)
}

func (m *Manager) revoke(ctx context.Context, token string) error {
	if m.cfg.TokenAPI != nil {
		return m.cfg.TokenAPI.Revoke(ctx, token)
	}
	form := url.Values{"token": {token}}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, m.cfg.Endpoints.Revoke,
		strings.NewReader(form.Encode()))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	resp, err := m.client.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("revoke returned HTTP %d", resp.StatusCode)
	}
	return nil
}

// validateToken introspects the token and records the granted scopes.
func (m *Manager) validateToken(ctx context.Context, token string) error {
	u := m.cfg.Endpoints.TokenInfo + "?access_token=" + url.QueryEscape(token)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return err
	}
	resp, err := m.client.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("tokeninfo returned HTTP %d", resp.StatusCode)
	}

	var info struct {
		Scope string `json:"scope"`
	}
	if err := decodeJSON(resp.Body, &info); err != nil {
		return err
	}
	if info.Scope != "" {
		if err := m.store.Set(ctx, scopesKey, info.Scope); err != nil {
			m.logger.Warn("failed to record granted scopes", "error", err)
		}
	}
	return nil
}

func (m *Manager) fetchEmail(ctx context.Context, token string) (string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, m.cfg.Endpoints.UserInfo, nil)
	if err != nil {
		return "", err
	}
	req.Header.Set("Authorization", "Bearer "+token)
	resp, err := m.client.Do(req)
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("userinfo returned HTTP %d", resp.StatusCode)
	}
	var info struct {
		Email string `json:"email"`
	}
	if err := decodeJSON(resp.Body, &info); err != nil {
		return "", err
	}
	return info.Email, nil
}

// storeGrant persists the token, its computed expiry instant, and the email.
func (m *Manager) storeGrant(ctx context.Context, grant Grant, email string) error {
	expiresIn := grant.ExpiresIn
	if expiresIn <= 0 {
		expiresIn = defaultExpiresIn
	}
	expiry := m.now().Add(time.Duration(expiresIn) * time.Second)

	if err := m.store.Set(ctx, tokenKey, grant.AccessToken); err != nil {
		return err
	}
	if err := m.store.Set(ctx, tokenExpiryKey, strconv.FormatInt(expiry.UnixMilli(), 10)); err != nil {
		return err
	}
	if email != "" {
		if err := m.store.Set(ctx, userEmailKey, email); err != nil {
			return err
		}
	}
	m.logger.Debug("tokens stored", "email", email,
		"expires_in", time.Duration(expiresIn)*time.Second)
	return nil
}

func (m *Manager) clearTokens(ctx context.Context) error {
	for _, key := range []string{tokenKey, tokenExpiryKey, userEmailKey, scopesKey} {
		if err := m.store.Remove(ctx, key); err != nil {
			return err
		}
	}
	return nil
}

func (m *Manager) tokenExpiry(ctx context.Context) (time.Time, bool, error) {
	raw, err := kvstore.Get(ctx, m.store, tokenExpiryKey, "")
	if err != nil {
		return time.Time{}, false, err
	}
	if raw == "" {
		return time.Time{}, false, nil
	}
	millis, err := strconv.ParseInt(raw, 10, 64)
	if err != nil {
		return time.Time{}, false, nil
	}
	return time.UnixMilli(millis), true, nil
}

func (m *Manager) isTokenExpired(ctx context.Context) (bool, error) {
	expiry, ok, err := m.tokenExpiry(ctx)
	if err != nil {
		return false, err
	}
	if !ok {
		return true, nil
	}
	return m.now().After(expiry), nil
}

func (m *Manager) needsRefresh(ctx context.Context) (bool, error) {
	expiry, ok, err := m.tokenExpiry(ctx)
	if err != nil {
		return false, err
	}
	if !ok {
		return true, nil
	}
	return m.now().After(expiry.Add(-refreshBuffer)), nil
}

func (m *Manager) setAuthenticated(email string) {
	m.mu.Lock()
	m.status = StatusAuthenticated
	if email != "" {
		m.email = email
	}
	m.mu.Unlock()
}

func (m *Manager) setSignedOut() {
	m.mu.Lock()
	m.status = StatusSignedOut
	m.mu.Unlock()
}

// migrateStorageKeys moves values from the legacy per-backend keys to the
// shared ones, first writer wins.
func (m *Manager) migrateStorageKeys(ctx context.Context) error {
	pairs := [][2]string{
		{legacyTokenKey, tokenKey},
		{legacyExpiryKey, tokenExpiryKey},
	}
	for _, p := range pairs {
		old, err := kvstore.Get(ctx, m.store, p[0], "")
		if err != nil || old == "" {
			continue
		}
		current, err := kvstore.Get(ctx, m.store, p[1], "")
		if err != nil {
			return err
		}
		if current == "" {
			if err := m.store.Set(ctx, p[1], old); err != nil {
				return err
			}
		}
		if err := m.store.Remove(ctx, p[0]); err != nil {
			return err
		}
	}
	return nil
}

func decodeJSON(r io.Reader, dest any) error {
	return json.NewDecoder(io.LimitReader(r, 1<<20)).Decode(dest)
}
