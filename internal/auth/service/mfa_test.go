package service

import (
	"context"
	"regexp"
	"testing"
	"time"

	"github.com/pquerna/otp/totp"
	"github.com/stretchr/testify/require"

	"github.com/lumilearn/lumiauth/internal/auth/domain"
	"github.com/lumilearn/lumiauth/pkg/idx"
	"github.com/lumilearn/lumiauth/pkg/jwtx"
)

func TestMFAEnrollVerifyFlow(t *testing.T) {
	ctx := context.Background()
	st := newTestStore(t)
	fx := seedFixture(t, ctx, st)

	svc := &MFAService{Store: st, Issuer: "LumiLearn"}

	enroll, err := svc.EnrollTOTP(ctx, fx.User.ID, fx.User.Email)
	require.NoError(t, err)
	require.NotEmpty(t, enroll.Secret)
	require.Contains(t, enroll.QRCode, "otpauth://")

	t.Run("wrong code does not enable", func(t *testing.T) {
		_, err := svc.VerifyTOTP(ctx, fx.User.ID, "000000")
		require.ErrorIs(t, err, ErrInvalidTOTPCode)

		user, err := st.Users().GetUserByID(ctx, fx.User.ID)
		require.NoError(t, err)
		require.False(t, user.HasMFA())
	})

	t.Run("re-enroll before confirmation replaces secret", func(t *testing.T) {
		second, err := svc.EnrollTOTP(ctx, fx.User.ID, fx.User.Email)
		require.NoError(t, err)
		require.NotEqual(t, enroll.Secret, second.Secret)
		enroll = second
	})

	code, err := totp.GenerateCode(enroll.Secret, time.Now())
	require.NoError(t, err)

	codes, err := svc.VerifyTOTP(ctx, fx.User.ID, code)
	require.NoError(t, err)
	require.Len(t, codes, backupCodeCount)

	// "xxxxx-xxxxx" lowercase hex shape.
	shape := regexp.MustCompile(`^[0-9a-f]{5}-[0-9a-f]{5}$`)
	for _, c := range codes {
		require.Regexp(t, shape, c)
	}

	user, err := st.Users().GetUserByID(ctx, fx.User.ID)
	require.NoError(t, err)
	require.True(t, user.HasMFA())

	remaining, err := svc.CountBackupCodes(ctx, fx.User.ID)
	require.NoError(t, err)
	require.Equal(t, backupCodeCount, remaining)

	t.Run("enroll rejected once enabled", func(t *testing.T) {
		_, err := svc.EnrollTOTP(ctx, fx.User.ID, fx.User.Email)
		require.ErrorIs(t, err, ErrMFAAlreadyEnabled)
	})

	t.Run("regenerate replaces codes", func(t *testing.T) {
		code, err := totp.GenerateCode(enroll.Secret, time.Now())
		require.NoError(t, err)

		fresh, err := svc.RegenerateBackupCodes(ctx, fx.User.ID, code)
		require.NoError(t, err)
		require.Len(t, fresh, backupCodeCount)
		require.NotEqual(t, codes, fresh)
	})

	t.Run("remove disables MFA and deletes codes", func(t *testing.T) {
		code, err := totp.GenerateCode(enroll.Secret, time.Now())
		require.NoError(t, err)

		require.NoError(t, svc.RemoveMFA(ctx, fx.User.ID, code))

		user, err := st.Users().GetUserByID(ctx, fx.User.ID)
		require.NoError(t, err)
		require.False(t, user.HasMFA())

		remaining, err := svc.CountBackupCodes(ctx, fx.User.ID)
		require.NoError(t, err)
		require.Zero(t, remaining)
	})
}

func TestValidateTOTPCodeSkew(t *testing.T) {
	t.Parallel()

	secret := "JBSWY3DPEHPK3PXP"
	now := time.Now()

	previous, err := totp.GenerateCode(secret, now.Add(-30*time.Second))
	require.NoError(t, err)
	next, err := totp.GenerateCode(secret, now.Add(30*time.Second))
	require.NoError(t, err)
	far, err := totp.GenerateCode(secret, now.Add(-5*time.Minute))
	require.NoError(t, err)

	// One step either side is accepted, anything further is not.
	require.True(t, validateTOTPCode(previous, secret, now))
	require.True(t, validateTOTPCode(next, secret, now))
	require.False(t, validateTOTPCode(far, secret, now))
}

func TestNormalizeBackupCode(t *testing.T) {
	t.Parallel()

	require.Equal(t, "abc12def34", normalizeBackupCode(" ABC12-DEF34 "))
	require.Equal(t, "abc12def34", normalizeBackupCode("abc12 def34"))
	require.Equal(t, "abc12def34", normalizeBackupCode("abc12def34"))
}

func TestBackupCodeLoginIsSingleUse(t *testing.T) {
	ctx := context.Background()
	st := newTestStore(t)
	fx := seedFixture(t, ctx, st)

	mfaSvc := &MFAService{Store: st, Issuer: "LumiLearn"}

	enroll, err := mfaSvc.EnrollTOTP(ctx, fx.User.ID, fx.User.Email)
	require.NoError(t, err)
	code, err := totp.GenerateCode(enroll.Secret, time.Now())
	require.NoError(t, err)
	backupCodes, err := mfaSvc.VerifyTOTP(ctx, fx.User.ID, code)
	require.NoError(t, err)

	newChallenge := func() string {
		now := time.Now()
		token := idx.New().String()
		require.NoError(t, st.MFASessions().CreateMFASession(ctx, domain.MFASession{
			ID:        token,
			UserID:    fx.User.ID,
			ClientID:  fx.Client.ID,
			Scopes:    []string{"profile"},
			AMR:       []string{jwtx.AMRPassword},
			SessionID: idx.New().String(),
			CreatedAt: now,
			ExpiresAt: now.Add(5 * time.Minute),
		}))
		return token
	}

	tokenSvc := &TokenService{
		KeyManager:    newTestKeyManager(t, "test-issuer"),
		Store:         st,
		Issuer:        "test-issuer",
		AccessTTL:     time.Minute,
		RefreshTTL:    time.Hour,
		MaxInactivity: 30 * time.Minute,
		SessionTTL:    time.Hour,
	}

	// First use succeeds, in any pasted formatting.
	pair, err := tokenSvc.ExchangeMFAOTP(ctx, newChallenge(), "backup_code", "  "+backupCodes[0]+"  ")
	require.NoError(t, err)
	require.NotEmpty(t, pair.AccessToken)

	// Second use of the same code fails.
	_, err = tokenSvc.ExchangeMFAOTP(ctx, newChallenge(), "backup_code", backupCodes[0])
	require.ErrorIs(t, err, ErrInvalidGrant)

	remaining, err := mfaSvc.CountBackupCodes(ctx, fx.User.ID)
	require.NoError(t, err)
	require.Equal(t, backupCodeCount-1, remaining)
}
