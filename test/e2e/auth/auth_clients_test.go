package auth_test

import (
	"testing"

	"github.com/lumilearn/lumiauth/pkg/authsdk"
	"github.com/stretchr/testify/require"
)

// TestClientManagementLifecycle walks create, list, get, rotate and delete
// for OAuth2 clients.
func TestClientManagementLifecycle(t *testing.T) {
	baseURL, cleanup := setupAuthContainer(t)
	defer cleanup()

	client := authsdk.NewSDKClient(baseURL)
	clientID, clientSecret, _ := bootstrapService(t, client)

	adminSession := performLogin(t, client, clientID, clientSecret, adminEmail, adminPassword, adminScopes)

	// Create a confidential client
	created, err := adminSession.CreateClient(t.Context(), authsdk.CreateClientRequest{
		Name:         "grade-sync",
		Confidential: true,
		RedirectURIs: []string{"https://sync.lumilearn.test/callback"},
		Scopes:       []string{"courses.read", "assignments.read"},
	})
	require.NoError(t, err)
	require.NotEmpty(t, created.ClientID)
	require.NotEmpty(t, created.ClientSecret, "Confidential client should receive a secret")

	// The new client can authenticate machine-to-machine
	tokenResp, err := client.ClientCredentialsGrant(t.Context(), created.ClientID, created.ClientSecret, nil)
	require.NoError(t, err)
	require.NotEmpty(t, tokenResp.AccessToken)

	// List includes bootstrap client and the new one
	list, err := adminSession.ListClients(t.Context())
	require.NoError(t, err)
	require.Len(t, list.Clients, 2)

	// Get returns the metadata but never the secret
	info, err := adminSession.GetClient(t.Context(), created.ClientID)
	require.NoError(t, err)
	require.Equal(t, "grade-sync", info.Name)
	require.True(t, info.HasSecret)
	require.False(t, info.Protected)

	// Rotation invalidates the old secret
	rotated, err := adminSession.RotateClientSecret(t.Context(), created.ClientID)
	require.NoError(t, err)
	require.NotEmpty(t, rotated.ClientSecret)
	require.NotEqual(t, created.ClientSecret, rotated.ClientSecret)

	_, err = client.ClientCredentialsGrant(t.Context(), created.ClientID, created.ClientSecret, nil)
	require.Error(t, err, "Old secret should be dead after rotation")

	_, err = client.ClientCredentialsGrant(t.Context(), created.ClientID, rotated.ClientSecret, nil)
	require.NoError(t, err, "New secret should work")

	// Delete removes the client
	err = adminSession.DeleteClient(t.Context(), created.ClientID)
	require.NoError(t, err)

	_, err = adminSession.GetClient(t.Context(), created.ClientID)
	require.Error(t, err, "Deleted client should be gone")
}

// TestBootstrapClientIsProtected verifies the bootstrap client cannot be
// deleted.
func TestBootstrapClientIsProtected(t *testing.T) {
	baseURL, cleanup := setupAuthContainer(t)
	defer cleanup()

	client := authsdk.NewSDKClient(baseURL)
	clientID, clientSecret, _ := bootstrapService(t, client)

	adminSession := performLogin(t, client, clientID, clientSecret, adminEmail, adminPassword, adminScopes)

	info, err := adminSession.GetClient(t.Context(), clientID)
	require.NoError(t, err)
	require.True(t, info.Protected, "Bootstrap client should be protected")

	err = adminSession.DeleteClient(t.Context(), clientID)
	require.Error(t, err, "Protected client should not be deletable")
}

// TestClientManagementRequiresScope verifies non-admin users cannot manage
// clients.
func TestClientManagementRequiresScope(t *testing.T) {
	baseURL, cleanup := setupAuthContainer(t)
	defer cleanup()

	client := authsdk.NewSDKClient(baseURL)
	clientID, clientSecret, _ := bootstrapService(t, client)

	signupUser(t, client, "plainuser@lumilearn.test", "Plain123!", "")
	session := performLogin(t, client, clientID, clientSecret, "plainuser@lumilearn.test", "Plain123!", studentScopes)

	_, err := session.ListClients(t.Context())
	require.Error(t, err, "Student should not list clients")

	_, err = session.ListRoles(t.Context())
	require.Error(t, err, "Student should not list roles")
}
