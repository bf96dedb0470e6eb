package authsdk

import (
	"context"
	"crypto/subtle"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/lumilearn/lumiauth/pkg/cryptox"
)

// pendingFlowTTL bounds how long an authorization flow may sit between
// Authorize and HandleCallback before its state is discarded.
const pendingFlowTTL = 10 * time.Minute

// ErrStateMismatch is returned by HandleCallback when the state in the
// callback does not match any pending flow. Treat it as a possible CSRF
// attempt and restart the flow.
var ErrStateMismatch = fmt.Errorf("authorization state mismatch")

// SSOManager drives the authorization code flow for a single client:
// it generates state and PKCE material, tracks the pending flow,
// verifies the callback and persists the resulting tokens.
//
// A zero TokenStore is allowed; tokens then live only in the returned
// Session.
type SSOManager struct {
	Client      *SDKClient
	ClientID    string
	RedirectURI string
	Scopes      []string

	// Store persists tokens across restarts. Optional.
	Store TokenStore

	mu      sync.Mutex
	pending map[string]pendingFlow
}

type pendingFlow struct {
	verifier  string
	createdAt time.Time
}

// NewSSOManager creates a manager for one OAuth2 client registration.
func NewSSOManager(client *SDKClient, clientID, redirectURI string, scopes []string, store TokenStore) *SSOManager {
	return &SSOManager{
		Client:      client,
		ClientID:    clientID,
		RedirectURI: redirectURI,
		Scopes:      scopes,
		Store:       store,
		pending:     make(map[string]pendingFlow),
	}
}

// Authorize starts a new authorization flow and returns the URL to send
// the user's browser to. The state and PKCE verifier are held
// internally until HandleCallback consumes them.
func (m *SSOManager) Authorize() (authorizeURL string, err error) {
	state, err := cryptox.GenerateToken(cryptox.TokenSize128)
	if err != nil {
		return "", fmt.Errorf("failed to generate state: %w", err)
	}

	pkce, err := GeneratePKCEChallenge()
	if err != nil {
		return "", err
	}

	m.mu.Lock()
	m.expireLocked(time.Now())
	m.pending[state] = pendingFlow{verifier: pkce.Verifier, createdAt: time.Now()}
	m.mu.Unlock()

	return m.Client.BuildAuthorizeURL(m.ClientID, m.RedirectURI, state, m.Scopes, pkce), nil
}

// HandleCallback verifies the redirect callback, exchanges the code and
// returns a live session. The state parameter must match a pending flow
// started by Authorize; each flow is single-use.
func (m *SSOManager) HandleCallback(ctx context.Context, callbackURL string) (*Session, error) {
	code, state, err := ParseAuthorizationCallback(callbackURL)
	if err != nil {
		return nil, err
	}

	verifier, err := m.consumeState(state)
	if err != nil {
		return nil, err
	}

	tokenResp, err := m.Client.ExchangeAuthorizationCode(ctx, m.ClientID, "", code, m.RedirectURI, verifier)
	if err != nil {
		return nil, fmt.Errorf("failed to exchange authorization code: %w", err)
	}

	session := newSession(m.Client, m.ClientID, tokenResp)
	if err := m.persist(session); err != nil {
		return nil, err
	}

	return session, nil
}

// RestoreSession rebuilds a session from the token store. Returns
// (nil, nil) when nothing usable is stored and a fresh Authorize flow
// is needed. A stored-but-expired access token is refreshed eagerly so
// the caller gets a working session or a definite failure.
func (m *SSOManager) RestoreSession(ctx context.Context) (*Session, error) {
	if m.Store == nil {
		return nil, nil
	}

	stored, err := m.Store.Load()
	if err != nil {
		return nil, err
	}
	if stored == nil || stored.RefreshToken == "" {
		return nil, nil
	}

	if !stored.IsExpired() {
		session := &Session{
			client:       m.Client,
			clientID:     stored.ClientID,
			accessToken:  stored.AccessToken,
			refreshToken: stored.RefreshToken,
			expiresAt:    stored.ExpiresAt.Add(-refreshBuffer),
			scopes:       parseScopes(stored.Scope),
		}
		return session, nil
	}

	tokenResp, err := m.Client.RefreshGrant(ctx, stored.ClientID, stored.RefreshToken)
	if err != nil {
		// The stored refresh token is dead; drop it so the next attempt
		// goes straight to Authorize.
		_ = m.Store.Clear()
		return nil, fmt.Errorf("failed to refresh stored session: %w", err)
	}

	session := newSession(m.Client, stored.ClientID, tokenResp)
	if err := m.persist(session); err != nil {
		return nil, err
	}
	return session, nil
}

// Logout revokes the session server-side and clears the token store.
// The store is cleared even when revocation fails, so local state never
// outlives a logout.
func (m *SSOManager) Logout(ctx context.Context, session *Session) error {
	var revokeErr error
	if session != nil {
		revokeErr = session.Logout(ctx)
	}

	if m.Store != nil {
		if err := m.Store.Clear(); err != nil {
			return err
		}
	}
	return revokeErr
}

// Persist writes the session's current tokens to the store. Call after
// operations that rotate tokens if the stored copy must stay current.
func (m *SSOManager) Persist(session *Session) error {
	return m.persist(session)
}

func (m *SSOManager) persist(session *Session) error {
	if m.Store == nil {
		return nil
	}

	err := m.Store.Save(&StoredTokens{
		AccessToken:  session.AccessToken(),
		RefreshToken: session.RefreshToken(),
		ClientID:     m.ClientID,
		Scope:        strings.Join(session.Scopes(), " "),
		ExpiresAt:    session.ExpiresAt().Add(refreshBuffer),
	})
	if err != nil {
		return fmt.Errorf("failed to persist tokens: %w", err)
	}
	return nil
}

// consumeState removes and returns the pending flow for state. Constant
// time comparison over the map keys keeps the lookup timing-neutral.
func (m *SSOManager) consumeState(state string) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.expireLocked(time.Now())

	for candidate, flow := range m.pending {
		if subtle.ConstantTimeCompare([]byte(candidate), []byte(state)) == 1 {
			delete(m.pending, candidate)
			return flow.verifier, nil
		}
	}
	return "", ErrStateMismatch
}

func (m *SSOManager) expireLocked(now time.Time) {
	for state, flow := range m.pending {
		if now.Sub(flow.createdAt) > pendingFlowTTL {
			delete(m.pending, state)
		}
	}
}
