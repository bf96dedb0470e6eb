package authsdk

import (
	"crypto/sha256"
	"encoding/base64"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestGeneratePKCEChallenge(t *testing.T) {
	t.Parallel()

	pkce, err := GeneratePKCEChallenge()
	require.NoError(t, err)
	require.NotNil(t, pkce)

	require.NotEmpty(t, pkce.Verifier)
	require.NotEmpty(t, pkce.Challenge)
	require.Equal(t, "S256", pkce.Method)

	// Challenge must be BASE64URL(SHA256(verifier)).
	hash := sha256.Sum256([]byte(pkce.Verifier))
	expectedChallenge := base64.RawURLEncoding.EncodeToString(hash[:])
	require.Equal(t, expectedChallenge, pkce.Challenge)

	// Each call produces fresh material.
	other, err := GeneratePKCEChallenge()
	require.NoError(t, err)
	require.NotEqual(t, pkce.Verifier, other.Verifier)
}

func TestBuildAuthorizeURL(t *testing.T) {
	t.Parallel()

	client := NewSDKClient("https://auth.lumilearn.example")

	t.Run("minimal parameters", func(t *testing.T) {
		url := client.BuildAuthorizeURL("lumilearn-web", "https://app.lumilearn.example/callback", "", nil, nil)
		require.Contains(t, url, "https://auth.lumilearn.example/v1/oauth2/authorize")
		require.Contains(t, url, "response_type=code")
		require.Contains(t, url, "client_id=lumilearn-web")
		require.Contains(t, url, "redirect_uri=https%3A%2F%2Fapp.lumilearn.example%2Fcallback")
	})

	t.Run("with state", func(t *testing.T) {
		url := client.BuildAuthorizeURL("lumilearn-web", "https://app.lumilearn.example/callback", "random-state", nil, nil)
		require.Contains(t, url, "state=random-state")
	})

	t.Run("with scopes", func(t *testing.T) {
		scopes := []string{"profile", "courses.read"}
		url := client.BuildAuthorizeURL("lumilearn-web", "https://app.lumilearn.example/callback", "", scopes, nil)
		require.Contains(t, url, "scope=profile+courses.read")
	})

	t.Run("with PKCE", func(t *testing.T) {
		pkce, err := GeneratePKCEChallenge()
		require.NoError(t, err)

		url := client.BuildAuthorizeURL("lumilearn-web", "https://app.lumilearn.example/callback", "", nil, pkce)
		require.Contains(t, url, "code_challenge="+pkce.Challenge)
		require.Contains(t, url, "code_challenge_method=S256")
	})
}

func TestParseAuthorizationCallback(t *testing.T) {
	t.Parallel()

	t.Run("success with code and state", func(t *testing.T) {
		callbackURL := "https://app.lumilearn.example/callback?code=auth-code-123&state=random-state"
		code, state, err := ParseAuthorizationCallback(callbackURL)
		require.NoError(t, err)
		require.Equal(t, "auth-code-123", code)
		require.Equal(t, "random-state", state)
	})

	t.Run("success with code only", func(t *testing.T) {
		callbackURL := "https://app.lumilearn.example/callback?code=auth-code-456"
		code, state, err := ParseAuthorizationCallback(callbackURL)
		require.NoError(t, err)
		require.Equal(t, "auth-code-456", code)
		require.Empty(t, state)
	})

	t.Run("error response", func(t *testing.T) {
		callbackURL := "https://app.lumilearn.example/callback?error=access_denied&error_description=User+denied+access"
		_, _, err := ParseAuthorizationCallback(callbackURL)
		require.Error(t, err)
		require.Contains(t, err.Error(), "access_denied")
		require.Contains(t, err.Error(), "User denied access")
	})

	t.Run("missing code", func(t *testing.T) {
		callbackURL := "https://app.lumilearn.example/callback?state=random-state"
		_, _, err := ParseAuthorizationCallback(callbackURL)
		require.Error(t, err)
		require.Contains(t, err.Error(), "missing authorization code")
	})

	t.Run("invalid URL", func(t *testing.T) {
		callbackURL := "://invalid-url"
		_, _, err := ParseAuthorizationCallback(callbackURL)
		require.Error(t, err)
		require.Contains(t, strings.ToLower(err.Error()), "parse")
	})
}
