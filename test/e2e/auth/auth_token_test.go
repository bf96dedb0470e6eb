package auth_test

import (
	"testing"

	"github.com/lumilearn/lumiauth/pkg/authsdk"
	"github.com/stretchr/testify/require"
)

// TestClientCredentialsGrant verifies machine-to-machine authentication
// with the bootstrap client.
func TestClientCredentialsGrant(t *testing.T) {
	baseURL, cleanup := setupAuthContainer(t)
	defer cleanup()

	client := authsdk.NewSDKClient(baseURL)
	clientID, clientSecret, _ := bootstrapService(t, client)

	tokenResp, err := client.ClientCredentialsGrant(t.Context(), clientID, clientSecret, []string{"courses.read"})
	require.NoError(t, err)
	require.NotEmpty(t, tokenResp.AccessToken)
	require.Empty(t, tokenResp.RefreshToken, "Client credentials grant should not return a refresh token")

	t.Logf("Client credentials grant succeeded with scope: %s", tokenResp.Scope)

	// Wrong secret is rejected
	_, err = client.ClientCredentialsGrant(t.Context(), clientID, "wrong-secret", nil)
	require.Error(t, err, "Wrong client secret should be rejected")
}

// TestScopeNarrowing verifies granted scopes are the intersection of the
// request, the client and the user's role.
func TestScopeNarrowing(t *testing.T) {
	baseURL, cleanup := setupAuthContainer(t)
	defer cleanup()

	client := authsdk.NewSDKClient(baseURL)
	clientID, clientSecret, _ := bootstrapService(t, client)

	signupUser(t, client, "student@lumilearn.test", "Student123!", "")

	// A student asking for grading and admin scopes only receives what
	// their role allows
	session := performLogin(t, client, clientID, clientSecret, "student@lumilearn.test", "Student123!",
		[]string{"profile", "courses.read", "assignments.grade", "clients.manage"})

	scope := session.Scopes()
	require.Contains(t, scope, "profile")
	require.Contains(t, scope, "courses.read")
	require.NotContains(t, scope, "assignments.grade")
	require.NotContains(t, scope, "clients.manage")

	// And the narrowed token cannot reach admin endpoints
	_, err := session.ListClients(t.Context())
	require.Error(t, err, "Student token should not access client management")
}

// TestRefreshTokenRotation verifies that refresh tokens are single use.
func TestRefreshTokenRotation(t *testing.T) {
	baseURL, cleanup := setupAuthContainer(t)
	defer cleanup()

	client := authsdk.NewSDKClient(baseURL)
	clientID, clientSecret, _ := bootstrapService(t, client)

	session := performLogin(t, client, clientID, clientSecret, adminEmail, adminPassword, adminScopes)
	oldRefresh := session.RefreshToken()

	refreshed, err := client.RefreshGrant(t.Context(), clientID, oldRefresh)
	require.NoError(t, err)
	assertTokenResponse(t, refreshed)
	require.NotEqual(t, oldRefresh, refreshed.RefreshToken, "Refresh token should rotate")

	// The consumed token must not work a second time
	_, err = client.RefreshGrant(t.Context(), clientID, oldRefresh)
	require.Error(t, err, "Used refresh token should be rejected")

	// The rotated token still works
	refreshed2, err := client.RefreshGrant(t.Context(), clientID, refreshed.RefreshToken)
	require.NoError(t, err)
	assertTokenResponse(t, refreshed2)
}

// TestRefreshTokenWrongClient verifies a refresh token is bound to the
// client it was issued to.
func TestRefreshTokenWrongClient(t *testing.T) {
	baseURL, cleanup := setupAuthContainer(t)
	defer cleanup()

	client := authsdk.NewSDKClient(baseURL)
	clientID, clientSecret, _ := bootstrapService(t, client)

	adminSession := performLogin(t, client, clientID, clientSecret, adminEmail, adminPassword, adminScopes)

	// Create a second public client
	created, err := adminSession.CreateClient(t.Context(), authsdk.CreateClientRequest{
		Name:         "second-client",
		Confidential: false,
		RedirectURIs: []string{redirectURI},
		Scopes:       []string{"profile"},
	})
	require.NoError(t, err)

	_, err = client.RefreshGrant(t.Context(), created.ClientID, adminSession.RefreshToken())
	require.Error(t, err, "Refresh token should be rejected for a different client")
}

// TestTokenRevocation verifies a revoked refresh token stops working.
func TestTokenRevocation(t *testing.T) {
	baseURL, cleanup := setupAuthContainer(t)
	defer cleanup()

	client := authsdk.NewSDKClient(baseURL)
	clientID, clientSecret, _ := bootstrapService(t, client)

	session := performLogin(t, client, clientID, clientSecret, adminEmail, adminPassword, adminScopes)
	refreshToken := session.RefreshToken()

	err := client.RevokeToken(t.Context(), clientID, refreshToken)
	require.NoError(t, err, "Revocation should succeed")

	_, err = client.RefreshGrant(t.Context(), clientID, refreshToken)
	require.Error(t, err, "Revoked refresh token should be rejected")

	// Revocation is idempotent per RFC 7009: revoking again still returns 200
	err = client.RevokeToken(t.Context(), clientID, refreshToken)
	require.NoError(t, err, "Revoking an already-revoked token should not error")
}

// TestInvalidLogin verifies wrong credentials never produce a code.
func TestInvalidLogin(t *testing.T) {
	baseURL, cleanup := setupAuthContainer(t)
	defer cleanup()

	client := authsdk.NewSDKClient(baseURL)
	clientID, clientSecret, _ := bootstrapService(t, client)

	_, err := client.AuthorizeAndExchange(t.Context(), clientID, clientSecret, redirectURI,
		adminEmail, "WrongPassword!", adminScopes)
	assertUnauthorized(t, err, "Wrong password should be rejected")

	_, err = client.AuthorizeAndExchange(t.Context(), clientID, clientSecret, redirectURI,
		"nobody@lumilearn.test", adminPassword, adminScopes)
	assertUnauthorized(t, err, "Unknown account should be rejected")
}
