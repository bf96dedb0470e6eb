package auth_test

import (
	"encoding/json"
	"testing"

	"github.com/lumilearn/lumiauth/pkg/authsdk"
	"github.com/stretchr/testify/require"
)

/*
 * Full passkey ceremonies need a browser authenticator, so end-to-end
 * coverage here sticks to the server-side surfaces: challenge issuance,
 * enumeration resistance and credential management plumbing. The ceremony
 * verification itself is covered by service-level tests.
 */

// TestWebAuthnRegistrationBegin verifies an authenticated user receives
// creation options for a new passkey.
func TestWebAuthnRegistrationBegin(t *testing.T) {
	baseURL, cleanup := setupAuthContainer(t)
	defer cleanup()

	client := authsdk.NewSDKClient(baseURL)
	clientID, clientSecret, _ := bootstrapService(t, client)

	session := performLogin(t, client, clientID, clientSecret, adminEmail, adminPassword, adminScopes)

	begin, err := session.BeginWebAuthnRegistration(t.Context())
	require.NoError(t, err)
	require.NotEmpty(t, begin.ChallengeID, "Challenge ID should be issued")
	require.NotNil(t, begin.Options, "Creation options should be present")

	// The options payload must be JSON a browser can hand to
	// navigator.credentials.create
	raw, err := json.Marshal(begin.Options)
	require.NoError(t, err)
	require.Contains(t, string(raw), "challenge")
}

// TestWebAuthnLoginBeginEnumerationResistance verifies unknown accounts and
// accounts without passkeys are indistinguishable at login begin.
func TestWebAuthnLoginBeginEnumerationResistance(t *testing.T) {
	baseURL, cleanup := setupAuthContainer(t)
	defer cleanup()

	client := authsdk.NewSDKClient(baseURL)
	bootstrapService(t, client)

	// A real account, but with no passkeys registered
	signupUser(t, client, "nopasskey@lumilearn.test", "NoPasskey123!", "")

	_, errKnown := client.BeginWebAuthnLogin(t.Context(), "nopasskey@lumilearn.test")
	require.Error(t, errKnown, "Account without passkeys should not get a challenge")

	_, errUnknown := client.BeginWebAuthnLogin(t.Context(), "ghost@lumilearn.test")
	require.Error(t, errUnknown, "Unknown account should not get a challenge")

	// Both failures must look the same to the caller
	require.Equal(t, errKnown.Error(), errUnknown.Error(),
		"Unknown accounts and passkey-less accounts must be indistinguishable")
}

// TestWebAuthnLoginFinishRejectsBogusCeremony verifies a login finish with
// an unknown challenge fails cleanly.
func TestWebAuthnLoginFinishRejectsBogusCeremony(t *testing.T) {
	baseURL, cleanup := setupAuthContainer(t)
	defer cleanup()

	client := authsdk.NewSDKClient(baseURL)
	clientID, _, _ := bootstrapService(t, client)

	_, err := client.FinishWebAuthnLogin(t.Context(), clientID, "no-such-challenge",
		json.RawMessage(`{"id":"bogus","rawId":"bogus","type":"public-key","response":{}}`))
	require.Error(t, err, "Unknown challenge should be rejected")
}

// TestWebAuthnCredentialListing verifies the credential list starts empty
// and deleting an unknown credential is a 404.
func TestWebAuthnCredentialListing(t *testing.T) {
	baseURL, cleanup := setupAuthContainer(t)
	defer cleanup()

	client := authsdk.NewSDKClient(baseURL)
	clientID, clientSecret, _ := bootstrapService(t, client)

	session := performLogin(t, client, clientID, clientSecret, adminEmail, adminPassword, adminScopes)

	list, err := session.ListWebAuthnCredentials(t.Context())
	require.NoError(t, err)
	require.Empty(t, list.Credentials, "No passkeys should be registered yet")

	err = session.DeleteWebAuthnCredential(t.Context(), "01K0000000000000000000000K")
	require.Error(t, err, "Deleting an unknown credential should fail")
}
