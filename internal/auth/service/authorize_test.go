package service

import (
	"context"
	"crypto/sha256"
	"encoding/base64"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/lumilearn/lumiauth/internal/auth/domain"
)

func TestValidatePKCE(t *testing.T) {
	t.Parallel()

	confidential := domain.Client{SecretHash: "argon2:dummy"}
	public := domain.Client{}

	t.Run("public clients require challenge", func(t *testing.T) {
		_, _, err := validatePKCE("", "", public)
		require.ErrorIs(t, err, ErrInvalidRequest)
	})

	t.Run("confidential clients may omit challenge", func(t *testing.T) {
		challenge, method, err := validatePKCE("", "", confidential)
		require.NoError(t, err)
		require.Empty(t, challenge)
		require.Empty(t, method)
	})

	t.Run("defaults to S256 when method omitted", func(t *testing.T) {
		challenge, method, err := validatePKCE("pkce-challenge", "", public)
		require.NoError(t, err)
		require.Equal(t, "pkce-challenge", challenge)
		require.Equal(t, "S256", method)
	})

	t.Run("accepts case-insensitive methods", func(t *testing.T) {
		challenge, method, err := validatePKCE("abc", "plain", public)
		require.NoError(t, err)
		require.Equal(t, "abc", challenge)
		require.Equal(t, "plain", method)

		challenge, method, err = validatePKCE("xyz", "s256", public)
		require.NoError(t, err)
		require.Equal(t, "xyz", challenge)
		require.Equal(t, "S256", method)
	})

	t.Run("rejects unsupported methods", func(t *testing.T) {
		_, _, err := validatePKCE("abc", "S123", public)
		require.ErrorIs(t, err, ErrInvalidRequest)
	})
}

func TestVerifyCodeVerifier(t *testing.T) {
	t.Parallel()

	t.Run("plain verifier must match challenge", func(t *testing.T) {
		require.True(t, verifyCodeVerifier("verifier", "plain", "verifier"))
		require.False(t, verifyCodeVerifier("verifier", "plain", "other"))
	})

	t.Run("S256 verifier computes hash", func(t *testing.T) {
		verifier := "example-verifier"
		sum := sha256.Sum256([]byte(verifier))
		challenge := base64.RawURLEncoding.EncodeToString(sum[:])

		require.True(t, verifyCodeVerifier(challenge, "S256", verifier))
		require.False(t, verifyCodeVerifier(challenge, "S256", "wrong"))
	})

	t.Run("empty challenge accepts any verifier", func(t *testing.T) {
		require.True(t, verifyCodeVerifier("", "S256", ""))
		require.True(t, verifyCodeVerifier("", "", "anything"))
	})

	t.Run("missing verifier rejected when challenge present", func(t *testing.T) {
		sum := sha256.Sum256([]byte("data"))
		challenge := base64.RawURLEncoding.EncodeToString(sum[:])
		require.False(t, verifyCodeVerifier(challenge, "S256", ""))
	})
}

func TestIntersectThreeWay(t *testing.T) {
	t.Parallel()

	t.Run("returns intersection without duplicates", func(t *testing.T) {
		requested := []string{"profile", "profile", "courses.write", "unknown"}
		clientScopes := []string{"profile", "courses.write"}
		roleScopes := []string{"profile", "reports.read"}

		result := intersectThreeWay(requested, clientScopes, roleScopes)
		require.Equal(t, []string{"profile"}, result)
	})

	t.Run("returns empty slice when no overlap", func(t *testing.T) {
		requested := []string{"profile"}
		clientScopes := []string{"courses.write"}
		roleScopes := []string{"reports.read"}

		result := intersectThreeWay(requested, clientScopes, roleScopes)
		require.Empty(t, result)
	})
}

func TestIssueAuthorizationCodePasswordLogin(t *testing.T) {
	ctx := context.Background()
	st := newTestStore(t)
	fx := seedFixture(t, ctx, st)

	svc := &AuthorizeService{Store: st, SessionTTL: time.Hour}

	sum := sha256.Sum256([]byte("verifier"))
	challenge := base64.RawURLEncoding.EncodeToString(sum[:])

	req := AuthorizeRequest{
		ResponseType:  "code",
		ClientID:      fx.Client.ID,
		RedirectURI:   fx.Client.RedirectURIs[0],
		Scope:         []string{"profile", "courses.read"},
		State:         "xyzzy",
		CodeChallenge: challenge,
		Email:         fx.User.Email,
		Password:      fx.Password,
	}

	resp, err := svc.IssueAuthorizationCode(ctx, req)
	require.NoError(t, err)
	require.NotEmpty(t, resp.Code)
	require.Equal(t, "xyzzy", resp.State)

	// A session was created for the login.
	sessions, err := st.Sessions().ListUserSessions(ctx, fx.User.ID)
	require.NoError(t, err)
	require.Len(t, sessions, 1)
	require.True(t, sessions[0].Active(time.Now(), 30*time.Minute))

	t.Run("wrong password rejected", func(t *testing.T) {
		bad := req
		bad.Password = "nope"
		_, err := svc.IssueAuthorizationCode(ctx, bad)
		require.ErrorIs(t, err, ErrInvalidCredentials)
	})

	t.Run("unregistered redirect rejected", func(t *testing.T) {
		bad := req
		bad.RedirectURI = "https://evil.example/callback"
		_, err := svc.IssueAuthorizationCode(ctx, bad)
		require.ErrorIs(t, err, ErrInvalidRequest)
	})

	t.Run("no overlapping scopes rejected", func(t *testing.T) {
		bad := req
		bad.Scope = []string{"users.manage"}
		_, err := svc.IssueAuthorizationCode(ctx, bad)
		require.ErrorIs(t, err, ErrInvalidScope)
	})
}

func TestIssueAuthorizationCodeMFAChallenge(t *testing.T) {
	ctx := context.Background()
	st := newTestStore(t)
	fx := seedFixture(t, ctx, st)

	// Enable MFA for the user.
	require.NoError(t, st.Users().UpdateMFASecret(ctx, fx.User.ID, "JBSWY3DPEHPK3PXP"))
	require.NoError(t, st.Users().EnableMFA(ctx, fx.User.ID))

	svc := &AuthorizeService{Store: st, SessionTTL: time.Hour}

	sum := sha256.Sum256([]byte("verifier"))
	challenge := base64.RawURLEncoding.EncodeToString(sum[:])

	_, err := svc.IssueAuthorizationCode(ctx, AuthorizeRequest{
		ResponseType:  "code",
		ClientID:      fx.Client.ID,
		RedirectURI:   fx.Client.RedirectURIs[0],
		Scope:         []string{"profile"},
		CodeChallenge: challenge,
		Email:         fx.User.Email,
		Password:      fx.Password,
	})

	var mfaErr *MFARequiredError
	require.ErrorAs(t, err, &mfaErr)
	require.NotEmpty(t, mfaErr.MFAToken)
	require.Contains(t, mfaErr.Methods, "totp")
	require.Contains(t, mfaErr.Methods, "backup_code")

	// No session yet; it is only created once the challenge completes.
	sessions, listErr := st.Sessions().ListUserSessions(ctx, fx.User.ID)
	require.NoError(t, listErr)
	require.Empty(t, sessions)

	// The pending challenge is stored with the password AMR.
	mfaSession, getErr := st.MFASessions().GetMFASession(ctx, mfaErr.MFAToken)
	require.NoError(t, getErr)
	require.Equal(t, fx.User.ID, mfaSession.UserID)
	require.Equal(t, []string{"pwd"}, mfaSession.AMR)
}

func TestIssueAuthorizationCodeExistingSession(t *testing.T) {
	ctx := context.Background()
	st := newTestStore(t)
	fx := seedFixture(t, ctx, st)

	now := time.Now()
	sess := domain.Session{
		ID:             "01TESTSESSION0000000000000",
		UserID:         fx.User.ID,
		ClientID:       fx.Client.ID,
		CreatedAt:      now,
		LastActivityAt: now,
		ExpiresAt:      now.Add(time.Hour),
	}
	require.NoError(t, st.Sessions().CreateSession(ctx, sess))

	svc := &AuthorizeService{Store: st, SessionTTL: time.Hour}

	sum := sha256.Sum256([]byte("verifier"))
	challenge := base64.RawURLEncoding.EncodeToString(sum[:])

	resp, err := svc.IssueAuthorizationCode(ctx, AuthorizeRequest{
		ResponseType:  "code",
		ClientID:      fx.Client.ID,
		RedirectURI:   fx.Client.RedirectURIs[0],
		Scope:         []string{"profile"},
		CodeChallenge: challenge,
		Session: &SessionContext{
			UserID:    fx.User.ID,
			SessionID: sess.ID,
			AMR:       []string{"pwd", "otp", "mfa"},
			Scopes:    []string{"profile", "courses.read"},
		},
	})
	require.NoError(t, err)
	require.NotEmpty(t, resp.Code)

	// No second session; the existing one is reused.
	sessions, err := st.Sessions().ListUserSessions(ctx, fx.User.ID)
	require.NoError(t, err)
	require.Len(t, sessions, 1)
}

func TestIssueAuthorizationCodeRejectsUnknownClient(t *testing.T) {
	ctx := context.Background()
	st := newTestStore(t)
	seedFixture(t, ctx, st)

	svc := &AuthorizeService{Store: st}
	_, err := svc.IssueAuthorizationCode(ctx, AuthorizeRequest{
		ResponseType: "code",
		ClientID:     "missing",
		RedirectURI:  "https://app.lumilearn.example/callback",
	})
	require.True(t, errors.Is(err, ErrInvalidClient))
}
