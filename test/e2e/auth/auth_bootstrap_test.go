package auth_test

import (
	"testing"

	"github.com/lumilearn/lumiauth/pkg/authsdk"
	"github.com/stretchr/testify/require"
)

// TestBootstrapSuccess verifies successful bootstrap creates the admin user
// and web client, and provisions the standard role set.
func TestBootstrapSuccess(t *testing.T) {
	baseURL, cleanup := setupAuthContainer(t)
	defer cleanup()

	client := authsdk.NewSDKClient(baseURL)

	clientID, clientSecret, adminUserID := bootstrapService(t, client)

	t.Logf("Bootstrap successful")
	t.Logf("Admin User ID: %s", adminUserID)
	t.Logf("Client ID: %s", clientID)

	// The admin can log in and see the default role set
	adminSession := performLogin(t, client, clientID, clientSecret, adminEmail, adminPassword, adminScopes)

	for _, role := range []string{"student", "parent", "teacher", "district_admin", "system_admin"} {
		roleID := findRoleByName(t, adminSession, role)
		require.NotEmpty(t, roleID, "Default role %s should exist", role)
	}
}

// TestBootstrapIdempotency verifies that bootstrap can only be called once.
func TestBootstrapIdempotency(t *testing.T) {
	baseURL, cleanup := setupAuthContainer(t)
	defer cleanup()

	client := authsdk.NewSDKClient(baseURL)

	// First bootstrap should succeed
	clientID, _, adminUserID := bootstrapService(t, client)

	t.Logf("First bootstrap successful")
	t.Logf("Admin User ID: %s", adminUserID)
	t.Logf("Client ID: %s", clientID)

	// Second bootstrap should fail with 401
	_, err := client.Bootstrap(t.Context(), bootstrapToken, authsdk.BootstrapRequest{
		AdminEmail:        "another-admin@lumilearn.test",
		AdminDisplayName:  "Another Admin",
		AdminPassword:     "AnotherPassword123!",
		ClientName:        "another-client",
		ClientRedirectURI: redirectURI,
		ClientScopes:      []string{"profile"},
	})

	assertUnauthorized(t, err, "Second bootstrap should be rejected")

	t.Logf("Second bootstrap correctly rejected")
}

// TestBootstrapInvalidToken verifies the bootstrap token is checked.
func TestBootstrapInvalidToken(t *testing.T) {
	baseURL, cleanup := setupAuthContainer(t)
	defer cleanup()

	client := authsdk.NewSDKClient(baseURL)

	_, err := client.Bootstrap(t.Context(), "wrong-token", authsdk.BootstrapRequest{
		AdminEmail:        adminEmail,
		AdminDisplayName:  adminDisplayName,
		AdminPassword:     adminPassword,
		ClientName:        clientName,
		ClientRedirectURI: redirectURI,
		ClientScopes:      clientScopes,
	})

	assertUnauthorized(t, err, "Bootstrap with wrong token should be rejected")
}

// TestBootstrapValidation verifies that malformed bootstrap requests are
// rejected before any state is created.
func TestBootstrapValidation(t *testing.T) {
	baseURL, cleanup := setupAuthContainer(t)
	defer cleanup()

	client := authsdk.NewSDKClient(baseURL)

	// Not a valid email address
	_, err := client.Bootstrap(t.Context(), bootstrapToken, authsdk.BootstrapRequest{
		AdminEmail:        "not-an-email",
		AdminDisplayName:  adminDisplayName,
		AdminPassword:     adminPassword,
		ClientName:        clientName,
		ClientRedirectURI: redirectURI,
		ClientScopes:      clientScopes,
	})
	require.Error(t, err, "Invalid admin email should be rejected")

	// A custom role set without system_admin has no admin role to attach
	// the first user to
	_, err = client.Bootstrap(t.Context(), bootstrapToken, authsdk.BootstrapRequest{
		AdminEmail:        adminEmail,
		AdminDisplayName:  adminDisplayName,
		AdminPassword:     adminPassword,
		ClientName:        clientName,
		ClientRedirectURI: redirectURI,
		ClientScopes:      clientScopes,
		Roles: []authsdk.RoleDefinition{
			{Name: "student", Scopes: []string{"profile"}},
		},
	})
	require.Error(t, err, "Role set without system_admin should be rejected")

	// The failed attempts must not have consumed the bootstrap
	bootstrapService(t, client)
}
