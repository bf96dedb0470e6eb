package authsdk

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"net/url"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

// tokenEndpointStub serves /v1/oauth2/token, recording the last form it
// received and handing out counters-based tokens.
type tokenEndpointStub struct {
	lastForm url.Values
	grants   int
	fail     bool
}

func (s *tokenEndpointStub) handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("POST /v1/oauth2/token", func(w http.ResponseWriter, r *http.Request) {
		_ = r.ParseForm()
		s.lastForm = r.PostForm
		s.grants++

		if s.fail {
			w.Header().Set("Content-Type", "application/json")
			w.WriteHeader(http.StatusBadRequest)
			_ = json.NewEncoder(w).Encode(map[string]string{
				"error":             "invalid_grant",
				"error_description": "refresh token revoked",
			})
			return
		}

		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(TokenResponse{
			AccessToken:  "access-" + s.lastForm.Get("grant_type"),
			RefreshToken: "refresh-new",
			TokenType:    "Bearer",
			ExpiresIn:    3600,
			Scope:        "profile courses.read",
		})
	})
	mux.HandleFunc("POST /v1/oauth2/revoke", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	})
	return mux
}

func newTestManager(t *testing.T, stub *tokenEndpointStub) (*SSOManager, *MemoryTokenStore) {
	t.Helper()

	srv := httptest.NewServer(stub.handler())
	t.Cleanup(srv.Close)

	store := NewMemoryTokenStore()
	client := NewSDKClient(srv.URL)
	mgr := NewSSOManager(client, "lumilearn-web", "https://app.lumilearn.example/callback",
		[]string{"profile", "courses.read"}, store)
	return mgr, store
}

func TestSSOManagerAuthorizeURL(t *testing.T) {
	t.Parallel()

	mgr, _ := newTestManager(t, &tokenEndpointStub{})

	authorizeURL, err := mgr.Authorize()
	require.NoError(t, err)

	parsed, err := url.Parse(authorizeURL)
	require.NoError(t, err)

	q := parsed.Query()
	require.Equal(t, "code", q.Get("response_type"))
	require.Equal(t, "lumilearn-web", q.Get("client_id"))
	require.NotEmpty(t, q.Get("state"))
	require.NotEmpty(t, q.Get("code_challenge"))
	require.Equal(t, "S256", q.Get("code_challenge_method"))

	// Every flow gets fresh state.
	secondURL, err := mgr.Authorize()
	require.NoError(t, err)
	second, err := url.Parse(secondURL)
	require.NoError(t, err)
	require.NotEqual(t, q.Get("state"), second.Query().Get("state"))
}

func TestSSOManagerHandleCallback(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	stub := &tokenEndpointStub{}
	mgr, store := newTestManager(t, stub)

	authorizeURL, err := mgr.Authorize()
	require.NoError(t, err)

	parsed, err := url.Parse(authorizeURL)
	require.NoError(t, err)
	state := parsed.Query().Get("state")

	callback := "https://app.lumilearn.example/callback?code=auth-code-1&state=" + state
	session, err := mgr.HandleCallback(ctx, callback)
	require.NoError(t, err)
	require.NotNil(t, session)

	// The exchange carried the code and the matching PKCE verifier.
	require.Equal(t, "authorization_code", stub.lastForm.Get("grant_type"))
	require.Equal(t, "auth-code-1", stub.lastForm.Get("code"))
	require.NotEmpty(t, stub.lastForm.Get("code_verifier"))

	// Tokens landed in the store.
	stored, err := store.Load()
	require.NoError(t, err)
	require.NotNil(t, stored)
	require.Equal(t, "access-authorization_code", stored.AccessToken)
	require.Equal(t, "refresh-new", stored.RefreshToken)
	require.False(t, stored.IsExpired())
}

func TestSSOManagerStateMismatch(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	stub := &tokenEndpointStub{}
	mgr, _ := newTestManager(t, stub)

	_, err := mgr.Authorize()
	require.NoError(t, err)

	callback := "https://app.lumilearn.example/callback?code=auth-code-1&state=attacker-state"
	_, err = mgr.HandleCallback(ctx, callback)
	require.ErrorIs(t, err, ErrStateMismatch)

	// No code exchange happened.
	require.Zero(t, stub.grants)
}

func TestSSOManagerStateSingleUse(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	mgr, _ := newTestManager(t, &tokenEndpointStub{})

	authorizeURL, err := mgr.Authorize()
	require.NoError(t, err)
	parsed, err := url.Parse(authorizeURL)
	require.NoError(t, err)

	callback := "https://app.lumilearn.example/callback?code=auth-code-1&state=" + parsed.Query().Get("state")
	_, err = mgr.HandleCallback(ctx, callback)
	require.NoError(t, err)

	// Replaying the callback fails; the flow was consumed.
	_, err = mgr.HandleCallback(ctx, callback)
	require.ErrorIs(t, err, ErrStateMismatch)
}

func TestSSOManagerRestoreSession(t *testing.T) {
	t.Parallel()

	ctx := context.Background()

	t.Run("empty store", func(t *testing.T) {
		mgr, _ := newTestManager(t, &tokenEndpointStub{})
		session, err := mgr.RestoreSession(ctx)
		require.NoError(t, err)
		require.Nil(t, session)
	})

	t.Run("fresh tokens restore without network", func(t *testing.T) {
		stub := &tokenEndpointStub{}
		mgr, store := newTestManager(t, stub)

		require.NoError(t, store.Save(&StoredTokens{
			AccessToken:  "stored-access",
			RefreshToken: "stored-refresh",
			ClientID:     "lumilearn-web",
			Scope:        "profile",
			ExpiresAt:    time.Now().Add(time.Hour),
		}))

		session, err := mgr.RestoreSession(ctx)
		require.NoError(t, err)
		require.NotNil(t, session)
		require.Equal(t, "stored-access", session.AccessToken())
		require.True(t, session.HasScope("profile"))
		require.Zero(t, stub.grants)
	})

	t.Run("expired tokens refresh eagerly", func(t *testing.T) {
		stub := &tokenEndpointStub{}
		mgr, store := newTestManager(t, stub)

		require.NoError(t, store.Save(&StoredTokens{
			AccessToken:  "stale-access",
			RefreshToken: "stored-refresh",
			ClientID:     "lumilearn-web",
			ExpiresAt:    time.Now().Add(-time.Minute),
		}))

		session, err := mgr.RestoreSession(ctx)
		require.NoError(t, err)
		require.NotNil(t, session)
		require.Equal(t, 1, stub.grants)
		require.Equal(t, "refresh_token", stub.lastForm.Get("grant_type"))
		require.Equal(t, "access-refresh_token", session.AccessToken())

		// The rotated tokens replaced the stale ones in the store.
		stored, err := store.Load()
		require.NoError(t, err)
		require.Equal(t, "refresh-new", stored.RefreshToken)
	})

	t.Run("dead refresh token clears the store", func(t *testing.T) {
		stub := &tokenEndpointStub{fail: true}
		mgr, store := newTestManager(t, stub)

		require.NoError(t, store.Save(&StoredTokens{
			AccessToken:  "stale-access",
			RefreshToken: "revoked-refresh",
			ClientID:     "lumilearn-web",
			ExpiresAt:    time.Now().Add(-time.Minute),
		}))

		_, err := mgr.RestoreSession(ctx)
		require.Error(t, err)

		stored, err := store.Load()
		require.NoError(t, err)
		require.Nil(t, stored)
	})
}

func TestSSOManagerLogoutClearsStore(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	mgr, store := newTestManager(t, &tokenEndpointStub{})

	authorizeURL, err := mgr.Authorize()
	require.NoError(t, err)
	parsed, err := url.Parse(authorizeURL)
	require.NoError(t, err)

	callback := "https://app.lumilearn.example/callback?code=auth-code-1&state=" + parsed.Query().Get("state")
	session, err := mgr.HandleCallback(ctx, callback)
	require.NoError(t, err)

	require.NoError(t, mgr.Logout(ctx, session))

	stored, err := store.Load()
	require.NoError(t, err)
	require.Nil(t, stored)
	require.Empty(t, session.AccessToken())
}
