package auth_test

import (
	"testing"

	"github.com/lumilearn/lumiauth/pkg/authsdk"
	"github.com/stretchr/testify/require"
)

// TestSignupAndLogin verifies public self-registration followed by the
// authorization code flow.
func TestSignupAndLogin(t *testing.T) {
	baseURL, cleanup := setupAuthContainer(t)
	defer cleanup()

	client := authsdk.NewSDKClient(baseURL)
	clientID, clientSecret, _ := bootstrapService(t, client)

	profile := signupUser(t, client, "alice@lumilearn.test", "Student123!", "")
	require.Equal(t, "student", profile.Role, "Signup without a role should default to student")
	require.Equal(t, "alice", profile.DisplayName, "Display name should default to the email local part")

	session := performLogin(t, client, clientID, clientSecret, "alice@lumilearn.test", "Student123!", studentScopes)

	got, err := session.GetProfile(t.Context())
	require.NoError(t, err)
	require.Equal(t, profile.ID, got.ID)
	require.Equal(t, "alice@lumilearn.test", got.Email)
}

// TestSignupParentRole verifies the parent role can be chosen at signup.
func TestSignupParentRole(t *testing.T) {
	baseURL, cleanup := setupAuthContainer(t)
	defer cleanup()

	client := authsdk.NewSDKClient(baseURL)
	bootstrapService(t, client)

	profile := signupUser(t, client, "bob@lumilearn.test", "Parent123!", "parent")
	require.Equal(t, "parent", profile.Role)
}

// TestSignupRejectsPrivilegedRoles verifies that staff roles cannot be
// self-assigned through the public endpoint.
func TestSignupRejectsPrivilegedRoles(t *testing.T) {
	baseURL, cleanup := setupAuthContainer(t)
	defer cleanup()

	client := authsdk.NewSDKClient(baseURL)
	bootstrapService(t, client)

	for _, role := range []string{"teacher", "district_admin", "system_admin"} {
		_, err := client.Signup(t.Context(), authsdk.SignupRequest{
			Email:    "mallory@lumilearn.test",
			Password: "Mallory123!",
			Role:     role,
		})
		require.Error(t, err, "Signup with role %s should be rejected", role)
	}
}

// TestSignupDuplicateEmail verifies emails are unique, case-insensitively.
func TestSignupDuplicateEmail(t *testing.T) {
	baseURL, cleanup := setupAuthContainer(t)
	defer cleanup()

	client := authsdk.NewSDKClient(baseURL)
	bootstrapService(t, client)

	signupUser(t, client, "carol@lumilearn.test", "Carol123!", "")

	_, err := client.Signup(t.Context(), authsdk.SignupRequest{
		Email:    "Carol@Lumilearn.test",
		Password: "Carol123!",
	})
	require.Error(t, err, "Duplicate email should be rejected")
	require.Contains(t, err.Error(), "email_taken")
}

// TestSignupWeakPassword verifies the password policy applies to signup.
func TestSignupWeakPassword(t *testing.T) {
	baseURL, cleanup := setupAuthContainer(t)
	defer cleanup()

	client := authsdk.NewSDKClient(baseURL)
	bootstrapService(t, client)

	_, err := client.Signup(t.Context(), authsdk.SignupRequest{
		Email:    "dave@lumilearn.test",
		Password: "short",
	})
	require.Error(t, err, "Weak password should be rejected")
}
