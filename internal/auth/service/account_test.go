package service

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/lumilearn/lumiauth/internal/auth/domain"
	"github.com/lumilearn/lumiauth/pkg/idx"
)

func TestSignup(t *testing.T) {
	ctx := context.Background()
	st := newTestStore(t)
	seedFixture(t, ctx, st)

	// Signup requires self-service roles to exist.
	require.NoError(t, st.Roles().CreateRole(ctx, domain.Role{
		ID:     idx.New().String(),
		Name:   domain.RoleStudent,
		Scopes: []string{"profile", "courses.read"},
	}))

	svc := &AccountService{Store: st}

	profile, err := svc.Signup(ctx, SignupRequest{
		Email:       "Alex.Kim@Lumilearn.Example",
		Password:    "a-long-password",
		DisplayName: "Alex Kim",
	})
	require.NoError(t, err)
	require.Equal(t, "alex.kim@lumilearn.example", profile.Email)
	require.Equal(t, domain.RoleStudent, profile.Role)
	require.False(t, profile.MFAEnabled)

	t.Run("duplicate email rejected case-insensitively", func(t *testing.T) {
		_, err := svc.Signup(ctx, SignupRequest{
			Email:    "ALEX.KIM@lumilearn.example",
			Password: "another-password",
		})
		require.ErrorIs(t, err, ErrEmailTaken)
	})

	t.Run("short password rejected", func(t *testing.T) {
		_, err := svc.Signup(ctx, SignupRequest{
			Email:    "short@lumilearn.example",
			Password: "short",
		})
		require.ErrorIs(t, err, ErrWeakPassword)
	})

	t.Run("admin roles cannot be self-selected", func(t *testing.T) {
		_, err := svc.Signup(ctx, SignupRequest{
			Email:    "sneaky@lumilearn.example",
			Password: "a-long-password",
			Role:     domain.RoleSystemAdmin,
		})
		require.ErrorIs(t, err, ErrInvalidRole)
	})

	t.Run("malformed email rejected", func(t *testing.T) {
		_, err := svc.Signup(ctx, SignupRequest{
			Email:    "not-an-email",
			Password: "a-long-password",
		})
		require.ErrorIs(t, err, ErrInvalidEmail)
	})
}

func TestUpdateProfile(t *testing.T) {
	ctx := context.Background()
	st := newTestStore(t)
	fx := seedFixture(t, ctx, st)

	svc := &AccountService{Store: st}

	name := "Ms T Nguyen"
	profile, err := svc.UpdateProfile(ctx, fx.User.ID, UpdateProfileRequest{DisplayName: &name})
	require.NoError(t, err)
	require.Equal(t, name, profile.DisplayName)
	require.Equal(t, "en-AU", profile.Locale) // unchanged

	locale := "vi"
	profile, err = svc.UpdateProfile(ctx, fx.User.ID, UpdateProfileRequest{Locale: &locale})
	require.NoError(t, err)
	require.Equal(t, name, profile.DisplayName)
	require.Equal(t, "vi", profile.Locale)
}

func TestChangePasswordRevokesEverything(t *testing.T) {
	ctx := context.Background()
	st := newTestStore(t)
	fx := seedFixture(t, ctx, st)

	now := time.Now()
	require.NoError(t, st.Sessions().CreateSession(ctx, domain.Session{
		ID:             idx.New().String(),
		UserID:         fx.User.ID,
		ClientID:       fx.Client.ID,
		CreatedAt:      now,
		LastActivityAt: now,
		ExpiresAt:      now.Add(time.Hour),
	}))

	svc := &AccountService{Store: st}

	t.Run("wrong current password rejected", func(t *testing.T) {
		err := svc.ChangePassword(ctx, fx.User.ID, "wrong", "new-long-password")
		require.ErrorIs(t, err, ErrInvalidPassword)
	})

	t.Run("same password rejected", func(t *testing.T) {
		err := svc.ChangePassword(ctx, fx.User.ID, fx.Password, fx.Password)
		require.ErrorIs(t, err, ErrPasswordReuse)
	})

	require.NoError(t, svc.ChangePassword(ctx, fx.User.ID, fx.Password, "new-long-password"))

	// Old password no longer works, sessions are gone.
	err := svc.ChangePassword(ctx, fx.User.ID, fx.Password, "even-newer-password")
	require.ErrorIs(t, err, ErrInvalidPassword)

	sessions, err := st.Sessions().ListUserSessions(ctx, fx.User.ID)
	require.NoError(t, err)
	require.Empty(t, sessions)
}

func TestDeleteAccount(t *testing.T) {
	ctx := context.Background()
	st := newTestStore(t)
	fx := seedFixture(t, ctx, st)

	svc := &AccountService{Store: st}

	t.Run("requires the correct password", func(t *testing.T) {
		err := svc.DeleteAccount(ctx, fx.User.ID, "wrong")
		require.ErrorIs(t, err, ErrInvalidPassword)
	})

	require.NoError(t, svc.DeleteAccount(ctx, fx.User.ID, fx.Password))

	_, err := st.Users().GetUserByID(ctx, fx.User.ID)
	require.Error(t, err)
}
