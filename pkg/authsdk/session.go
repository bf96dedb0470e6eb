package authsdk

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"
)

// refreshBuffer is subtracted from the advertised token lifetime so
// refreshes happen before the server actually rejects the token. Five
// minutes keeps long requests from straddling the expiry.
const refreshBuffer = 5 * time.Minute

// Session is an authenticated session with automatic token refresh. All
// Session methods transparently refresh the access token when it nears
// expiry.
type Session struct {
	client *SDKClient

	mu           sync.RWMutex
	accessToken  string
	refreshToken string
	clientID     string
	expiresAt    time.Time
	scopes       map[string]bool
}

// Revoke revokes the current refresh token, invalidating this session
// server-side.
func (s *Session) Revoke(ctx context.Context) error {
	s.mu.RLock()
	refreshToken := s.refreshToken
	clientID := s.clientID
	s.mu.RUnlock()

	if refreshToken == "" {
		return fmt.Errorf("no refresh token to revoke")
	}

	return s.client.RevokeToken(ctx, clientID, refreshToken)
}

func newSession(client *SDKClient, clientID string, tokenResp *TokenResponse) *Session {
	expiresAt := time.Now().Add(time.Duration(tokenResp.ExpiresIn) * time.Second)
	expiresAt = expiresAt.Add(-refreshBuffer)

	return &Session{
		client:       client,
		clientID:     clientID,
		accessToken:  tokenResp.AccessToken,
		refreshToken: tokenResp.RefreshToken,
		expiresAt:    expiresAt,
		scopes:       parseScopes(tokenResp.Scope),
	}
}

// parseScopes parses a space-delimited scope string into a set.
func parseScopes(scopeStr string) map[string]bool {
	if scopeStr == "" {
		return make(map[string]bool)
	}

	parts := strings.Fields(scopeStr)
	scopes := make(map[string]bool, len(parts))
	for _, scope := range parts {
		scopes[scope] = true
	}
	return scopes
}

// getValidToken returns a valid access token, refreshing first if the
// current one is inside the expiry buffer.
func (s *Session) getValidToken(ctx context.Context) (string, error) {
	s.mu.RLock()
	if time.Now().Before(s.expiresAt) {
		token := s.accessToken
		s.mu.RUnlock()
		return token, nil
	}
	s.mu.RUnlock()

	s.mu.Lock()
	defer s.mu.Unlock()

	// Another goroutine may have refreshed while we waited for the lock.
	if time.Now().Before(s.expiresAt) {
		return s.accessToken, nil
	}

	if s.refreshToken == "" {
		return "", fmt.Errorf("access token expired and no refresh token available")
	}

	tokenResp, err := s.client.RefreshGrant(ctx, s.clientID, s.refreshToken)
	if err != nil {
		return "", fmt.Errorf("failed to refresh token: %w", err)
	}

	s.accessToken = tokenResp.AccessToken
	s.refreshToken = tokenResp.RefreshToken
	s.expiresAt = time.Now().Add(time.Duration(tokenResp.ExpiresIn)*time.Second - refreshBuffer)
	s.scopes = parseScopes(tokenResp.Scope)

	return s.accessToken, nil
}

// ForceRefresh rotates the tokens immediately, regardless of expiry.
func (s *Session) ForceRefresh(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.refreshToken == "" {
		return fmt.Errorf("no refresh token available")
	}

	tokenResp, err := s.client.RefreshGrant(ctx, s.clientID, s.refreshToken)
	if err != nil {
		return err
	}

	s.accessToken = tokenResp.AccessToken
	s.refreshToken = tokenResp.RefreshToken
	s.expiresAt = time.Now().Add(time.Duration(tokenResp.ExpiresIn)*time.Second - refreshBuffer)
	s.scopes = parseScopes(tokenResp.Scope)
	return nil
}

// AccessToken returns the current access token without checking expiry.
// Prefer the Session methods, which refresh automatically.
func (s *Session) AccessToken() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.accessToken
}

// RefreshToken returns the current refresh token.
func (s *Session) RefreshToken() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.refreshToken
}

// ExpiresAt returns when the current access token stops being used
// (actual expiry minus the refresh buffer).
func (s *Session) ExpiresAt() time.Time {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.expiresAt
}

// Scopes returns a copy of the granted scopes.
func (s *Session) Scopes() []string {
	s.mu.RLock()
	defer s.mu.RUnlock()

	scopes := make([]string, 0, len(s.scopes))
	for scope := range s.scopes {
		scopes = append(scopes, scope)
	}
	return scopes
}

// HasScope reports whether the session holds the given scope.
func (s *Session) HasScope(scope string) bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.scopes[scope]
}

// HasAllScopes reports whether the session holds every given scope.
func (s *Session) HasAllScopes(scopes ...string) bool {
	s.mu.RLock()
	defer s.mu.RUnlock()

	for _, scope := range scopes {
		if !s.scopes[scope] {
			return false
		}
	}
	return true
}

// HasAnyScope reports whether the session holds at least one given scope.
func (s *Session) HasAnyScope(scopes ...string) bool {
	s.mu.RLock()
	defer s.mu.RUnlock()

	for _, scope := range scopes {
		if s.scopes[scope] {
			return true
		}
	}
	return false
}

func (s *Session) checkScopes(required ...string) error {
	if !s.client.CheckScopes {
		return nil
	}

	if len(required) == 0 {
		return nil
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	var missing []string
	for _, scope := range required {
		if !s.scopes[scope] {
			missing = append(missing, scope)
		}
	}

	if len(missing) > 0 {
		return fmt.Errorf("missing required scope(s): %s", strings.Join(missing, ", "))
	}

	return nil
}
