package auth_test

import (
	"testing"

	"github.com/lumilearn/lumiauth/pkg/authsdk"
	"github.com/stretchr/testify/require"
)

// TestProfileReadAndUpdate verifies profile retrieval and partial updates.
func TestProfileReadAndUpdate(t *testing.T) {
	baseURL, cleanup := setupAuthContainer(t)
	defer cleanup()

	client := authsdk.NewSDKClient(baseURL)
	clientID, clientSecret, _ := bootstrapService(t, client)

	signupUser(t, client, "profile@lumilearn.test", "Profile123!", "")
	session := performLogin(t, client, clientID, clientSecret, "profile@lumilearn.test", "Profile123!", studentScopes)

	profile, err := session.GetProfile(t.Context())
	require.NoError(t, err)
	require.Equal(t, "profile@lumilearn.test", profile.Email)
	require.Equal(t, "student", profile.Role)
	require.False(t, profile.MFAEnabled)

	newName := "Profile Tester"
	newLocale := "en-AU"
	updated, err := session.UpdateProfile(t.Context(), authsdk.UpdateProfileRequest{
		DisplayName: &newName,
		Locale:      &newLocale,
	})
	require.NoError(t, err)
	require.Equal(t, newName, updated.DisplayName)
	require.Equal(t, newLocale, updated.Locale)

	// Omitted fields keep their value
	secondName := "Second Name"
	updated2, err := session.UpdateProfile(t.Context(), authsdk.UpdateProfileRequest{
		DisplayName: &secondName,
	})
	require.NoError(t, err)
	require.Equal(t, newLocale, updated2.Locale, "Locale should be unchanged")
}

// TestUserInfo verifies the OIDC-style userinfo endpoint mirrors the profile.
func TestUserInfo(t *testing.T) {
	baseURL, cleanup := setupAuthContainer(t)
	defer cleanup()

	client := authsdk.NewSDKClient(baseURL)
	clientID, clientSecret, _ := bootstrapService(t, client)

	session := performLogin(t, client, clientID, clientSecret, adminEmail, adminPassword, adminScopes)

	info, err := session.GetUserInfo(t.Context())
	require.NoError(t, err)
	require.Equal(t, adminEmail, info.Email)
	require.Equal(t, adminDisplayName, info.DisplayName)
	require.Equal(t, "system_admin", info.Role)
}

// TestChangePassword verifies password change revokes every session.
func TestChangePassword(t *testing.T) {
	baseURL, cleanup := setupAuthContainer(t)
	defer cleanup()

	client := authsdk.NewSDKClient(baseURL)
	clientID, clientSecret, _ := bootstrapService(t, client)

	signupUser(t, client, "changer@lumilearn.test", "OldPassword1!", "")

	other := performLogin(t, client, clientID, clientSecret, "changer@lumilearn.test", "OldPassword1!", studentScopes)
	session := performLogin(t, client, clientID, clientSecret, "changer@lumilearn.test", "OldPassword1!", studentScopes)

	// Wrong current password is rejected
	err := session.ChangePassword(t.Context(), "WrongPassword1!", "NewPassword1!")
	require.Error(t, err, "Wrong current password should be rejected")

	err = session.ChangePassword(t.Context(), "OldPassword1!", "NewPassword1!")
	require.NoError(t, err)

	// All sessions are revoked, including the other device
	_, err = client.RefreshGrant(t.Context(), clientID, other.RefreshToken())
	require.Error(t, err, "Other device should be signed out after password change")

	// Old password no longer works
	_, err = client.AuthorizeAndExchange(t.Context(), clientID, clientSecret, redirectURI,
		"changer@lumilearn.test", "OldPassword1!", studentScopes)
	assertUnauthorized(t, err, "Old password should be rejected")

	// New password works
	performLogin(t, client, clientID, clientSecret, "changer@lumilearn.test", "NewPassword1!", studentScopes)
}

// TestDeleteAccount verifies self-service account deletion.
func TestDeleteAccount(t *testing.T) {
	baseURL, cleanup := setupAuthContainer(t)
	defer cleanup()

	client := authsdk.NewSDKClient(baseURL)
	clientID, clientSecret, _ := bootstrapService(t, client)

	signupUser(t, client, "gone@lumilearn.test", "Goodbye123!", "")
	session := performLogin(t, client, clientID, clientSecret, "gone@lumilearn.test", "Goodbye123!", studentScopes)

	// Deletion requires the current password
	err := session.DeleteAccount(t.Context(), "WrongPassword!")
	require.Error(t, err, "Wrong password should block deletion")

	err = session.DeleteAccount(t.Context(), "Goodbye123!")
	require.NoError(t, err)

	// The account is gone
	_, err = client.AuthorizeAndExchange(t.Context(), clientID, clientSecret, redirectURI,
		"gone@lumilearn.test", "Goodbye123!", studentScopes)
	assertUnauthorized(t, err, "Deleted account should not log in")

	// And the email can be registered again
	signupUser(t, client, "gone@lumilearn.test", "Hello123!", "")
}

// TestPasswordResetRequestIsOpaque verifies the reset request endpoint
// accepts both known and unknown emails identically.
func TestPasswordResetRequestIsOpaque(t *testing.T) {
	baseURL, cleanup := setupAuthContainer(t)
	defer cleanup()

	client := authsdk.NewSDKClient(baseURL)
	bootstrapService(t, client)

	signupUser(t, client, "resetme@lumilearn.test", "ResetMe123!", "")

	err := client.RequestPasswordReset(t.Context(), "resetme@lumilearn.test")
	require.NoError(t, err, "Reset request for a known email should be accepted")

	err = client.RequestPasswordReset(t.Context(), "stranger@lumilearn.test")
	require.NoError(t, err, "Reset request for an unknown email should look identical")

	// A bogus reset token is rejected on confirm
	err = client.ConfirmPasswordReset(t.Context(), "not-a-real-token", "NewPassword1!")
	require.Error(t, err, "Bogus reset token should be rejected")
}
