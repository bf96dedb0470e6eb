package auth_test

import (
	"testing"
	"time"

	"github.com/lumilearn/lumiauth/pkg/authsdk"
	"github.com/pquerna/otp/totp"
	"github.com/stretchr/testify/require"
)

// mfaTestUser represents a test user with MFA enrollment details.
type mfaTestUser struct {
	Email       string
	Password    string
	TOTPSecret  string
	BackupCodes []string
}

// TestMFAEnrollmentAndAuthentication tests the complete MFA enrollment and
// authentication flow.
func TestMFAEnrollmentAndAuthentication(t *testing.T) {
	baseURL, cleanup := setupAuthContainer(t)
	defer cleanup()

	client := authsdk.NewSDKClient(baseURL)
	clientID, clientSecret, _ := bootstrapService(t, client)

	user := createAndEnrollMFAUser(t, client, clientID, clientSecret, "mfa1@lumilearn.test", "MFAUser123!")
	t.Logf("MFA enrollment completed, received %d backup codes", len(user.BackupCodes))

	backupCode := user.BackupCodes[0]

	// Password login now yields an MFA challenge instead of a code
	challenge := authenticateWithMFA(t, client, clientID, user, studentScopes)
	require.Contains(t, challenge.Methods, "totp")
	require.Contains(t, challenge.Methods, "backup_code")

	// Complete the challenge with a TOTP code
	mfaTokenResp := completeMFAWithTOTP(t, client, challenge, user)
	t.Logf("Successfully authenticated with TOTP")

	mfaSession := client.NewSessionFromTokens(clientID, mfaTokenResp.AccessToken, mfaTokenResp.RefreshToken, mfaTokenResp.Scope, mfaTokenResp.ExpiresIn)
	introspect, err := mfaSession.IntrospectToken(t.Context(), mfaTokenResp.AccessToken)

	require.NoError(t, err)
	require.True(t, introspect.Active)
	require.Contains(t, introspect.AMR, "pwd", "Should have password AMR")
	require.Contains(t, introspect.AMR, "mfa", "Should have MFA AMR")

	// Complete a fresh challenge with a backup code
	challenge2 := authenticateWithMFA(t, client, clientID, user, studentScopes)
	backupTokenResp, err := client.MFAOTPGrant(t.Context(), *challenge2, "backup_code", backupCode)
	require.NoError(t, err)
	require.NotEmpty(t, backupTokenResp.AccessToken)
	t.Logf("Successfully authenticated with backup code")

	// Backup codes are single use
	challenge3 := authenticateWithMFA(t, client, clientID, user, studentScopes)
	_, err = client.MFAOTPGrant(t.Context(), *challenge3, "backup_code", backupCode)
	require.Error(t, err, "Should not be able to reuse backup code")
}

// TestMFARegenerateBackupCodes tests regenerating backup codes.
func TestMFARegenerateBackupCodes(t *testing.T) {
	baseURL, cleanup := setupAuthContainer(t)
	defer cleanup()

	client := authsdk.NewSDKClient(baseURL)
	clientID, clientSecret, _ := bootstrapService(t, client)

	user := createAndEnrollMFAUser(t, client, clientID, clientSecret, "mfa2@lumilearn.test", "MFAUser123!")
	oldBackupCode := user.BackupCodes[0]

	challenge := authenticateWithMFA(t, client, clientID, user, studentScopes)
	tokenResp := completeMFAWithTOTP(t, client, challenge, user)
	userSession := client.NewSessionFromTokens(clientID, tokenResp.AccessToken, tokenResp.RefreshToken, tokenResp.Scope, tokenResp.ExpiresIn)

	remaining, err := userSession.BackupCodeCount(t.Context())
	require.NoError(t, err)
	require.Equal(t, len(user.BackupCodes), remaining)

	totpCode := generateTOTP(t, user.TOTPSecret)
	backupResp, err := userSession.RegenerateBackupCodes(t.Context(), totpCode)

	require.NoError(t, err)
	require.Len(t, backupResp.Codes, 10, "Should receive 10 new backup codes")

	// Old backup code no longer works
	challenge2 := authenticateWithMFA(t, client, clientID, user, studentScopes)
	_, err = client.MFAOTPGrant(t.Context(), *challenge2, "backup_code", oldBackupCode)
	require.Error(t, err, "Old backup code should not work after regeneration")

	// New backup code works
	challenge3 := authenticateWithMFA(t, client, clientID, user, studentScopes)
	_, err = client.MFAOTPGrant(t.Context(), *challenge3, "backup_code", backupResp.Codes[0])
	require.NoError(t, err, "New backup code should work")
}

// TestMFARemoval tests removing MFA from a user account.
func TestMFARemoval(t *testing.T) {
	baseURL, cleanup := setupAuthContainer(t)
	defer cleanup()

	client := authsdk.NewSDKClient(baseURL)
	clientID, clientSecret, _ := bootstrapService(t, client)

	user := createAndEnrollMFAUser(t, client, clientID, clientSecret, "mfa3@lumilearn.test", "MFAUser123!")

	challenge := authenticateWithMFA(t, client, clientID, user, studentScopes)
	mfaTokenResp := completeMFAWithTOTP(t, client, challenge, user)
	mfaSession := client.NewSessionFromTokens(clientID, mfaTokenResp.AccessToken, mfaTokenResp.RefreshToken, mfaTokenResp.Scope, mfaTokenResp.ExpiresIn)

	totpCode := generateTOTP(t, user.TOTPSecret)
	err := mfaSession.RemoveTOTP(t.Context(), totpCode)
	require.NoError(t, err)

	t.Logf("MFA removed from account")

	// Password login works directly again, with no MFA AMR on the token
	session := performLogin(t, client, clientID, clientSecret, user.Email, user.Password, studentScopes)
	introspect, err := session.IntrospectToken(t.Context(), session.AccessToken())

	require.NoError(t, err)
	require.Contains(t, introspect.AMR, "pwd")
	require.NotContains(t, introspect.AMR, "mfa", "Should not have MFA AMR after removal")
}

// TestMFAInvalidScenarios tests various invalid MFA scenarios.
func TestMFAInvalidScenarios(t *testing.T) {
	baseURL, cleanup := setupAuthContainer(t)
	defer cleanup()

	client := authsdk.NewSDKClient(baseURL)
	clientID, clientSecret, _ := bootstrapService(t, client)

	user := createAndEnrollMFAUser(t, client, clientID, clientSecret, "mfa4@lumilearn.test", "MFAUser123!")

	// Invalid TOTP code
	challenge := authenticateWithMFA(t, client, clientID, user, studentScopes)
	_, err := client.MFAOTPGrant(t.Context(), *challenge, "totp", "000000")
	require.Error(t, err, "Should reject invalid TOTP code")

	// Invalid MFA token
	invalidMFAErr := authsdk.MFARequiredError{MFAToken: "invalid-mfa-token", Methods: []string{"totp"}}
	_, err = client.MFAOTPGrant(t.Context(), invalidMFAErr, "totp", "000000")
	require.Error(t, err, "Should reject invalid MFA token")

	// Verify without enrolling first
	signupUser(t, client, "nototp@lumilearn.test", "NoTotp123!", "")
	session := performLogin(t, client, clientID, clientSecret, "nototp@lumilearn.test", "NoTotp123!", studentScopes)

	_, err = session.VerifyTOTP(t.Context(), "123456")
	require.Error(t, err, "Should not be able to verify without enrolling first")

	// Double enrollment is rejected once MFA is enabled
	mfaChallenge := authenticateWithMFA(t, client, clientID, user, studentScopes)
	tokenResp := completeMFAWithTOTP(t, client, mfaChallenge, user)
	mfaSession := client.NewSessionFromTokens(clientID, tokenResp.AccessToken, tokenResp.RefreshToken, tokenResp.Scope, tokenResp.ExpiresIn)

	_, err = mfaSession.EnrollTOTP(t.Context())
	require.Error(t, err, "Should not re-enroll while MFA is enabled")
}

// TestMFATokenRefreshPreservesAMR tests that refreshing tokens preserves MFA AMR.
func TestMFATokenRefreshPreservesAMR(t *testing.T) {
	baseURL, cleanup := setupAuthContainer(t)
	defer cleanup()

	client := authsdk.NewSDKClient(baseURL)
	clientID, clientSecret, _ := bootstrapService(t, client)

	user := createAndEnrollMFAUser(t, client, clientID, clientSecret, "mfa5@lumilearn.test", "MFAUser123!")

	challenge := authenticateWithMFA(t, client, clientID, user, studentScopes)
	mfaTokenResp := completeMFAWithTOTP(t, client, challenge, user)
	mfaSession := client.NewSessionFromTokens(clientID, mfaTokenResp.AccessToken, mfaTokenResp.RefreshToken, mfaTokenResp.Scope, mfaTokenResp.ExpiresIn)

	introspect1, err := mfaSession.IntrospectToken(t.Context(), mfaTokenResp.AccessToken)
	require.NoError(t, err)
	require.Contains(t, introspect1.AMR, "pwd")
	require.Contains(t, introspect1.AMR, "mfa")

	refreshedResp, err := client.RefreshGrant(t.Context(), clientID, mfaTokenResp.RefreshToken)
	require.NoError(t, err)

	refreshedSession := client.NewSessionFromTokens(clientID, refreshedResp.AccessToken, refreshedResp.RefreshToken, refreshedResp.Scope, refreshedResp.ExpiresIn)
	introspect2, err := refreshedSession.IntrospectToken(t.Context(), refreshedResp.AccessToken)

	require.NoError(t, err)
	require.Contains(t, introspect2.AMR, "pwd", "Should preserve pwd AMR")
	require.Contains(t, introspect2.AMR, "mfa", "Should preserve mfa AMR")
	require.Contains(t, introspect2.AMR, "refresh", "Should add refresh AMR")
}

// TestMFAAttemptLimiting tests that MFA challenges are invalidated after 5
// failed attempts, preventing brute force of TOTP codes.
func TestMFAAttemptLimiting(t *testing.T) {
	baseURL, cleanup := setupAuthContainer(t)
	defer cleanup()

	client := authsdk.NewSDKClient(baseURL)
	clientID, clientSecret, _ := bootstrapService(t, client)

	user := createAndEnrollMFAUser(t, client, clientID, clientSecret, "mfa6@lumilearn.test", "MFAUser123!")

	challenge := authenticateWithMFA(t, client, clientID, user, studentScopes)

	for i := 1; i <= 5; i++ {
		_, err := client.MFAOTPGrant(t.Context(), *challenge, "totp", "000000")
		require.Error(t, err, "Attempt %d: Should reject invalid TOTP code", i)
	}

	// Even a valid code is rejected once the challenge is burned
	validCode := generateTOTP(t, user.TOTPSecret)
	_, err := client.MFAOTPGrant(t.Context(), *challenge, "totp", validCode)
	require.Error(t, err, "Should reject valid code after too many attempts")

	// A fresh challenge works
	challenge2 := authenticateWithMFA(t, client, clientID, user, studentScopes)
	validCode2 := generateTOTP(t, user.TOTPSecret)
	tokenResp, err := client.MFAOTPGrant(t.Context(), *challenge2, "totp", validCode2)
	require.NoError(t, err, "Should succeed with fresh MFA challenge")
	require.NotEmpty(t, tokenResp.AccessToken)
}

// ==============================
// Helper functions for MFA tests
// ==============================

// createAndEnrollMFAUser signs up a new student account and enrolls it in
// TOTP MFA. This is the common setup pattern in MFA tests.
func createAndEnrollMFAUser(t *testing.T, client *authsdk.SDKClient, clientID, clientSecret, email, password string) *mfaTestUser {
	t.Helper()

	signupUser(t, client, email, password, "")
	user := &mfaTestUser{Email: email, Password: password}

	session := performLogin(t, client, clientID, clientSecret, email, password, studentScopes)

	enrollResp, err := session.EnrollTOTP(t.Context())
	require.NoError(t, err)
	require.NotEmpty(t, enrollResp.Secret, "TOTP secret should be returned")
	require.NotEmpty(t, enrollResp.QRCode, "Provisioning URI should be returned")

	user.TOTPSecret = enrollResp.Secret

	totpCode := generateTOTP(t, user.TOTPSecret)
	backupResp, err := session.VerifyTOTP(t.Context(), totpCode)

	require.NoError(t, err)
	require.Len(t, backupResp.Codes, 10, "Should receive 10 backup codes")

	user.BackupCodes = backupResp.Codes
	return user
}

// generateTOTP generates a TOTP code for the given secret.
func generateTOTP(t *testing.T, secret string) string {
	t.Helper()

	code, err := totp.GenerateCode(secret, time.Now())
	require.NoError(t, err)

	return code
}

// authenticateWithMFA performs a password login for an MFA-enabled account
// and returns the resulting MFA challenge.
func authenticateWithMFA(t *testing.T, client *authsdk.SDKClient, clientID string, user *mfaTestUser, scopes []string) *authsdk.MFARequiredError {
	t.Helper()

	pkce, err := authsdk.GeneratePKCEChallenge()
	require.NoError(t, err)

	_, err = client.AuthorizeWithPassword(t.Context(), clientID, redirectURI, user.Email, user.Password, scopes, pkce)
	require.Error(t, err, "Should receive MFA error")

	var mfaErr *authsdk.MFARequiredError
	require.ErrorAs(t, err, &mfaErr, "Error should be MFARequiredError")
	require.NotEmpty(t, mfaErr.MFAToken, "MFA token should be present")
	require.NotEmpty(t, mfaErr.Methods, "MFA methods should be present")

	return mfaErr
}

// completeMFAWithTOTP completes an MFA challenge using a TOTP code.
func completeMFAWithTOTP(t *testing.T, client *authsdk.SDKClient, mfaErr *authsdk.MFARequiredError, user *mfaTestUser) *authsdk.TokenResponse {
	t.Helper()

	totpCode := generateTOTP(t, user.TOTPSecret)
	tokenResp, err := client.MFAOTPGrant(t.Context(), *mfaErr, "totp", totpCode)

	require.NoError(t, err)
	require.NotEmpty(t, tokenResp.AccessToken)
	require.NotEmpty(t, tokenResp.RefreshToken)

	return tokenResp
}
