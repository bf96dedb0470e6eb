package auth_test

import (
	"testing"

	"github.com/lumilearn/lumiauth/pkg/authsdk"
	"github.com/stretchr/testify/require"
)

// TestIntrospectionActiveToken verifies introspection reflects the token's
// claims for a live token.
func TestIntrospectionActiveToken(t *testing.T) {
	baseURL, cleanup := setupAuthContainer(t)
	defer cleanup()

	client := authsdk.NewSDKClient(baseURL)
	clientID, clientSecret, adminUserID := bootstrapService(t, client)

	session := performLogin(t, client, clientID, clientSecret, adminEmail, adminPassword, adminScopes)

	introspect, err := session.IntrospectToken(t.Context(), session.AccessToken())
	require.NoError(t, err)
	require.True(t, introspect.Active)
	require.Equal(t, adminUserID, introspect.Sub)
	require.Equal(t, clientID, introspect.ClientID)
	require.NotEmpty(t, introspect.SessionID, "Introspection should carry the session ID")
	require.Greater(t, introspect.Exp, introspect.Iat)
}

// TestIntrospectionGarbageToken verifies malformed tokens come back as
// inactive rather than as an error (RFC 7662).
func TestIntrospectionGarbageToken(t *testing.T) {
	baseURL, cleanup := setupAuthContainer(t)
	defer cleanup()

	client := authsdk.NewSDKClient(baseURL)
	clientID, clientSecret, _ := bootstrapService(t, client)

	session := performLogin(t, client, clientID, clientSecret, adminEmail, adminPassword, adminScopes)

	introspect, err := session.IntrospectToken(t.Context(), "not-a-jwt")
	require.NoError(t, err)
	require.False(t, introspect.Active, "Garbage token should be inactive, not an error")
	require.Empty(t, introspect.Sub)
}

// TestIntrospectionAfterRevocation verifies a token whose session has been
// revoked introspects as inactive.
func TestIntrospectionAfterRevocation(t *testing.T) {
	baseURL, cleanup := setupAuthContainer(t)
	defer cleanup()

	client := authsdk.NewSDKClient(baseURL)
	clientID, clientSecret, _ := bootstrapService(t, client)

	victim := performLogin(t, client, clientID, clientSecret, adminEmail, adminPassword, adminScopes)
	victimToken := victim.AccessToken()

	controller := performLogin(t, client, clientID, clientSecret, adminEmail, adminPassword, adminScopes)

	listResp, err := controller.ListSessions(t.Context())
	require.NoError(t, err)

	for _, s := range listResp.Sessions {
		if !s.Current {
			require.NoError(t, controller.RevokeSession(t.Context(), s.ID))
		}
	}

	introspect, err := controller.IntrospectToken(t.Context(), victimToken)
	require.NoError(t, err)
	require.False(t, introspect.Active, "Token of a revoked session should be inactive")
}
