package auth

import (
	"context"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/charmbracelet/log"
	"github.com/soniclayer/nowplayd/internal/shared"
	"golang.org/x/oauth2"
)

const (
	spotifyAuthURL  = "https://accounts.spotify.com/authorize"
	spotifyTokenURL = "https://accounts.spotify.com/api/token"

	// DefaultScopes covers the currently-playing and playback-state reads.
	DefaultScopes = "user-read-currently-playing user-read-playback-state"

	// expirySkew is subtracted from the token lifetime so a token about to
	// expire is refreshed before an API call can see a 401.
	expirySkew = time.Minute

	exchangeTimeout = 15 * time.Second
)

// Manager owns the token record and serializes every mutation of it behind
// one mutex: EnsureValid, Refresh, Authenticate and ClearTokens all take the
// same lock, so concurrent callers share a single in-flight refresh instead
// of issuing duplicates.
type Manager struct {
	store       *TokenStore
	redirectURI string
	scopes      string
	authURL     string
	tokenURL    string
	httpClient  *http.Client
	openURL     func(string) error
	cbTimeout   time.Duration
	logger      *log.Logger

	mu       sync.Mutex
	clientID string
	tokens   TokenRecord
}

// ManagerOpts configures a Manager. Zero values fall back to the Spotify
// endpoints and defaults.
type ManagerOpts struct {
	Store       *TokenStore
	ClientID    string
	RedirectURI string
	Scopes      string
	AuthURL     string
	TokenURL    string
	HTTPClient  *http.Client
	OpenURL     func(string) error
	// CallbackTimeout bounds Authenticate's wait for the browser redirect.
	CallbackTimeout time.Duration
	Logger          *log.Logger
}

// NewManager creates a Manager and loads any persisted token record.
func NewManager(opts ManagerOpts) *Manager {
	if opts.RedirectURI == "" {
		opts.RedirectURI = "http://127.0.0.1:4202/"
	}
	if opts.Scopes == "" {
		opts.Scopes = DefaultScopes
	}
	if opts.AuthURL == "" {
		opts.AuthURL = spotifyAuthURL
	}
	if opts.TokenURL == "" {
		opts.TokenURL = spotifyTokenURL
	}
	if opts.OpenURL == nil {
		opts.OpenURL = shared.OpenBrowser
	}
	if opts.CallbackTimeout <= 0 {
		opts.CallbackTimeout = DefaultCallbackTimeout
	}
	if opts.Logger == nil {
		opts.Logger = shared.NewLogger(nil)
	}

	m := &Manager{
		store:       opts.Store,
		clientID:    opts.ClientID,
		redirectURI: opts.RedirectURI,
		scopes:      opts.Scopes,
		authURL:     opts.AuthURL,
		tokenURL:    opts.TokenURL,
		httpClient:  opts.HTTPClient,
		openURL:     opts.OpenURL,
		cbTimeout:   opts.CallbackTimeout,
		logger:      opts.Logger,
	}

	if m.store != nil {
		record, err := m.store.Load()
		if err != nil {
			m.logger.Warnf("failed to load token record: %v", err)
		}
		m.tokens = record
	}

	return m
}

// IsAuthenticated reports whether a refresh token is present.
func (m *Manager) IsAuthenticated() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.tokens.RefreshToken != ""
}

// AccessToken returns the current access token.
func (m *Manager) AccessToken() string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.tokens.AccessToken
}

// ExpiresAt returns the current access token expiry.
func (m *Manager) ExpiresAt() time.Time {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.tokens.ExpiresAt
}

// SetClientID sets the application client id used for refresh grants.
func (m *Manager) SetClientID(clientID string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.clientID = clientID
}

// EnsureValid returns true without network activity when the access token
// expires more than a minute from now; otherwise it performs a single
// refresh and returns its outcome. Concurrent callers serialize on the token
// lock, so an already-completed refresh satisfies the waiters without
// duplicate network calls.
func (m *Manager) EnsureValid(ctx context.Context) bool {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.tokens.ExpiresAt.After(time.Now().Add(expirySkew)) {
		return true
	}

	return m.refreshLocked(ctx)
}

// Refresh unconditionally exchanges the refresh token for a new access
// token. The token record is unchanged on failure.
func (m *Manager) Refresh(ctx context.Context) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.refreshLocked(ctx)
}

func (m *Manager) refreshLocked(ctx context.Context) bool {
	if m.tokens.RefreshToken == "" || m.clientID == "" {
		return false
	}

	ctx = m.withHTTPClient(ctx)
	ctx, cancel := context.WithTimeout(ctx, exchangeTimeout)
	defer cancel()

	seed := &oauth2.Token{RefreshToken: m.tokens.RefreshToken}
	tok, err := m.oauthConfigLocked().TokenSource(ctx, seed).Token()
	if err != nil {
		m.logger.Warnf("token refresh failed: %v", err)
		return false
	}

	m.tokens.AccessToken = tok.AccessToken
	if tok.RefreshToken != "" {
		m.tokens.RefreshToken = tok.RefreshToken
	}
	if !tok.Expiry.IsZero() {
		m.tokens.ExpiresAt = tok.Expiry
	}

	m.persistLocked()
	return true
}

// Authenticate runs the full PKCE flow: generate a challenge, open the
// authorization URL in the system browser, await the loopback callback, and
// exchange the code for tokens. Every failure path resolves to false.
func (m *Manager) Authenticate(ctx context.Context, clientID string) bool {
	if clientID == "" {
		m.logger.Warn("cannot authenticate without a client id")
		return false
	}
	m.SetClientID(clientID)

	verifier, challenge, err := GenerateChallenge()
	if err != nil {
		m.logger.Errorf("pkce generation failed: %v", err)
		return false
	}

	state := shared.GenerateID()
	authURL := m.config().AuthCodeURL(state,
		oauth2.SetAuthURLParam("code_challenge_method", "S256"),
		oauth2.SetAuthURLParam("code_challenge", challenge),
	)

	listener := NewCallbackListener(m.redirectURI, state)
	if err := listener.Bind(); err != nil {
		m.logger.Errorf("callback listener failed: %v", err)
		return false
	}

	if err := m.openURL(authURL); err != nil {
		listener.Close()
		m.logger.Errorf("failed to open browser: %v", err)
		return false
	}

	code, err := listener.Wait(ctx, m.cbTimeout)
	if err != nil {
		m.logger.Warnf("authorization callback failed: %v", err)
		return false
	}
	if code == "" {
		return false
	}

	exchangeCtx, cancel := context.WithTimeout(m.withHTTPClient(ctx), exchangeTimeout)
	defer cancel()

	tok, err := m.config().Exchange(exchangeCtx, code, oauth2.VerifierOption(verifier))
	if err != nil {
		m.logger.Warnf("code exchange failed: %v", err)
		return false
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	m.tokens = TokenRecord{
		AccessToken:  tok.AccessToken,
		RefreshToken: tok.RefreshToken,
		ExpiresAt:    tok.Expiry,
	}
	m.persistLocked()
	return true
}

// ClearTokens resets to an empty token record and persists it. Used for
// explicit disconnect.
func (m *Manager) ClearTokens() error {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.tokens = TokenRecord{}
	if m.store == nil {
		return nil
	}
	return m.store.Save(m.tokens)
}

func (m *Manager) config() *oauth2.Config {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.oauthConfigLocked()
}

func (m *Manager) oauthConfigLocked() *oauth2.Config {
	return &oauth2.Config{
		ClientID:    m.clientID,
		RedirectURL: m.redirectURI,
		Scopes:      strings.Fields(m.scopes),
		Endpoint: oauth2.Endpoint{
			AuthURL:   m.authURL,
			TokenURL:  m.tokenURL,
			AuthStyle: oauth2.AuthStyleInParams,
		},
	}
}

func (m *Manager) withHTTPClient(ctx context.Context) context.Context {
	if m.httpClient == nil {
		return ctx
	}
	return context.WithValue(ctx, oauth2.HTTPClient, m.httpClient)
}

func (m *Manager) persistLocked() {
	if m.store == nil {
		return
	}
	if err := m.store.Save(m.tokens); err != nil {
		m.logger.Warnf("failed to persist tokens: %v", err)
	}
}
