package auth_test

import (
	"testing"

	"github.com/lumilearn/lumiauth/pkg/authsdk"
	"github.com/stretchr/testify/require"
)

// TestSessionListing verifies that each login creates a device session and
// the current one is flagged.
func TestSessionListing(t *testing.T) {
	baseURL, cleanup := setupAuthContainer(t)
	defer cleanup()

	client := authsdk.NewSDKClient(baseURL)
	clientID, clientSecret, _ := bootstrapService(t, client)

	signupUser(t, client, "devices@lumilearn.test", "Devices123!", "")

	performLogin(t, client, clientID, clientSecret, "devices@lumilearn.test", "Devices123!", studentScopes)
	second := performLogin(t, client, clientID, clientSecret, "devices@lumilearn.test", "Devices123!", studentScopes)

	listResp, err := second.ListSessions(t.Context())
	require.NoError(t, err)
	require.Len(t, listResp.Sessions, 2, "Both logins should appear as sessions")

	var currentCount int
	for _, s := range listResp.Sessions {
		require.True(t, s.Active, "Fresh sessions should be active")
		if s.Current {
			currentCount++
		}
	}
	require.Equal(t, 1, currentCount, "Exactly one session should be marked current")
}

// TestSessionHeartbeat verifies activity reporting keeps a session alive.
func TestSessionHeartbeat(t *testing.T) {
	baseURL, cleanup := setupAuthContainer(t)
	defer cleanup()

	client := authsdk.NewSDKClient(baseURL)
	clientID, clientSecret, _ := bootstrapService(t, client)

	session := performLogin(t, client, clientID, clientSecret, adminEmail, adminPassword, adminScopes)

	err := session.Heartbeat(t.Context())
	require.NoError(t, err, "Heartbeat should succeed for an active session")

	listResp, err := session.ListSessions(t.Context())
	require.NoError(t, err)
	require.NotEmpty(t, listResp.Sessions)
}

// TestSessionRevocation verifies revoking another device's session kills
// its refresh token.
func TestSessionRevocation(t *testing.T) {
	baseURL, cleanup := setupAuthContainer(t)
	defer cleanup()

	client := authsdk.NewSDKClient(baseURL)
	clientID, clientSecret, _ := bootstrapService(t, client)

	signupUser(t, client, "revoke@lumilearn.test", "Revoke123!", "")

	victim := performLogin(t, client, clientID, clientSecret, "revoke@lumilearn.test", "Revoke123!", studentScopes)
	controller := performLogin(t, client, clientID, clientSecret, "revoke@lumilearn.test", "Revoke123!", studentScopes)

	// Find the session that is not the controller's own
	listResp, err := controller.ListSessions(t.Context())
	require.NoError(t, err)
	require.Len(t, listResp.Sessions, 2)

	var victimSessionID string
	for _, s := range listResp.Sessions {
		if !s.Current {
			victimSessionID = s.ID
		}
	}
	require.NotEmpty(t, victimSessionID)

	err = controller.RevokeSession(t.Context(), victimSessionID)
	require.NoError(t, err)

	// The revoked device cannot refresh anymore
	_, err = client.RefreshGrant(t.Context(), clientID, victim.RefreshToken())
	require.Error(t, err, "Refresh should fail after session revocation")

	// Revoking an unknown session is a 404
	err = controller.RevokeSession(t.Context(), "01K0000000000000000000000K")
	require.Error(t, err, "Unknown session ID should return an error")
}

// TestSessionRevokeAll verifies the sign-out-everywhere operation.
func TestSessionRevokeAll(t *testing.T) {
	baseURL, cleanup := setupAuthContainer(t)
	defer cleanup()

	client := authsdk.NewSDKClient(baseURL)
	clientID, clientSecret, _ := bootstrapService(t, client)

	signupUser(t, client, "everywhere@lumilearn.test", "Everywhere123!", "")

	first := performLogin(t, client, clientID, clientSecret, "everywhere@lumilearn.test", "Everywhere123!", studentScopes)
	second := performLogin(t, client, clientID, clientSecret, "everywhere@lumilearn.test", "Everywhere123!", studentScopes)

	err := second.RevokeAllSessions(t.Context())
	require.NoError(t, err)

	_, err = client.RefreshGrant(t.Context(), clientID, first.RefreshToken())
	require.Error(t, err, "First device should be signed out")

	_, err = client.RefreshGrant(t.Context(), clientID, second.RefreshToken())
	require.Error(t, err, "Second device should be signed out too")

	// Logging in again still works
	performLogin(t, client, clientID, clientSecret, "everywhere@lumilearn.test", "Everywhere123!", studentScopes)
}

// TestLogout verifies logout revokes the session's refresh token.
func TestLogout(t *testing.T) {
	baseURL, cleanup := setupAuthContainer(t)
	defer cleanup()

	client := authsdk.NewSDKClient(baseURL)
	clientID, clientSecret, _ := bootstrapService(t, client)

	session := performLogin(t, client, clientID, clientSecret, adminEmail, adminPassword, adminScopes)
	refreshToken := session.RefreshToken()

	err := session.Logout(t.Context())
	require.NoError(t, err)

	_, err = client.RefreshGrant(t.Context(), clientID, refreshToken)
	require.Error(t, err, "Refresh token should be dead after logout")
}

// TestSessionIsolation verifies one user cannot see or revoke another
// user's sessions.
func TestSessionIsolation(t *testing.T) {
	baseURL, cleanup := setupAuthContainer(t)
	defer cleanup()

	client := authsdk.NewSDKClient(baseURL)
	clientID, clientSecret, _ := bootstrapService(t, client)

	signupUser(t, client, "usera@lumilearn.test", "UserA1234!", "")
	signupUser(t, client, "userb@lumilearn.test", "UserB1234!", "")

	sessionA := performLogin(t, client, clientID, clientSecret, "usera@lumilearn.test", "UserA1234!", studentScopes)
	sessionB := performLogin(t, client, clientID, clientSecret, "userb@lumilearn.test", "UserB1234!", studentScopes)

	listA, err := sessionA.ListSessions(t.Context())
	require.NoError(t, err)
	require.Len(t, listA.Sessions, 1, "User A should only see their own session")

	// B cannot revoke A's session
	err = sessionB.RevokeSession(t.Context(), listA.Sessions[0].ID)
	require.Error(t, err, "Revoking another user's session should fail")

	// A's session still works
	_, err = sessionA.GetProfile(t.Context())
	require.NoError(t, err)
}
