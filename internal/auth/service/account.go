package service

import (
	"context"
	"errors"
	"fmt"
	"net/mail"
	"strings"
	"time"

	"github.com/lumilearn/lumiauth/internal/auth/domain"
	"github.com/lumilearn/lumiauth/internal/auth/store"
	"github.com/lumilearn/lumiauth/pkg/cryptox"
	"github.com/lumilearn/lumiauth/pkg/idx"
	"github.com/lumilearn/lumiauth/pkg/slogx"
)

const minPasswordLength = 8

var (
	ErrEmailTaken      = errors.New("email already registered")
	ErrInvalidEmail    = errors.New("invalid email address")
	ErrWeakPassword    = errors.New("password does not meet minimum requirements")
	ErrInvalidRole     = errors.New("invalid role")
	ErrPasswordReuse   = errors.New("new password must differ from the current one")
	ErrInvalidPassword = errors.New("current password is incorrect")
)

// Roles a user may self-select at signup. Staff and admin roles are
// assigned by an administrator, never self-service.
var signupRoles = map[string]bool{
	domain.RoleStudent: true,
	domain.RoleParent:  true,
}

// AccountService handles registration and profile lifecycle.
type AccountService struct {
	Store store.Store
}

type SignupRequest struct {
	Email       string
	Password    string
	DisplayName string
	Role        string // "student" or "parent"; defaults to student
	Locale      string // BCP 47 tag; defaults to "en"
}

// Profile is the user view returned to API clients. Sensitive columns
// never leave the service layer.
type Profile struct {
	ID          string     `json:"id"`
	Email       string     `json:"email"`
	DisplayName string     `json:"display_name"`
	Role        string     `json:"role"`
	Locale      string     `json:"locale"`
	MFAEnabled  bool       `json:"mfa_enabled"`
	CreatedAt   time.Time  `json:"created_at"`
	UpdatedAt   time.Time  `json:"updated_at"`
	MFASince    *time.Time `json:"mfa_since,omitempty"`
}

// Signup registers a new account. Emails are unique case-insensitively;
// a duplicate surfaces as ErrEmailTaken.
func (s *AccountService) Signup(ctx context.Context, req SignupRequest) (Profile, error) {
	log := slogx.FromContext(ctx)

	email := strings.ToLower(strings.TrimSpace(req.Email))
	if _, err := mail.ParseAddress(email); err != nil {
		return Profile{}, ErrInvalidEmail
	}
	if err := validatePassword(req.Password); err != nil {
		return Profile{}, err
	}

	displayName := strings.TrimSpace(req.DisplayName)
	if displayName == "" {
		displayName = email[:strings.Index(email, "@")]
	}

	roleName := strings.TrimSpace(req.Role)
	if roleName == "" {
		roleName = domain.RoleStudent
	}
	if !signupRoles[roleName] {
		return Profile{}, ErrInvalidRole
	}

	role, err := s.Store.Roles().GetRoleByName(ctx, roleName)
	if err != nil {
		return Profile{}, fmt.Errorf("failed to resolve role %q: %w", roleName, err)
	}

	hash, err := cryptox.HashPassword(req.Password)
	if err != nil {
		return Profile{}, fmt.Errorf("failed to hash password: %w", err)
	}

	locale := strings.TrimSpace(req.Locale)
	if locale == "" {
		locale = "en"
	}

	now := time.Now().UTC()
	user := domain.User{
		ID:           idx.New().String(),
		Email:        email,
		DisplayName:  displayName,
		PasswordHash: hash,
		RoleID:       role.ID,
		Locale:       locale,
		CreatedAt:    now,
		UpdatedAt:    now,
	}

	if err := s.Store.Users().CreateUser(ctx, user); err != nil {
		if errors.Is(err, store.ErrAlreadyExists) {
			return Profile{}, ErrEmailTaken
		}
		return Profile{}, fmt.Errorf("failed to create user: %w", err)
	}

	log.Info("user registered", "user_id", user.ID, "role", roleName)
	return profileOf(user, role.Name), nil
}

// GetProfile returns the profile for a user id.
func (s *AccountService) GetProfile(ctx context.Context, userID string) (Profile, error) {
	user, err := s.Store.Users().GetUserByID(ctx, userID)
	if err != nil {
		return Profile{}, err
	}
	role, err := s.Store.Roles().GetRoleByID(ctx, user.RoleID)
	if err != nil {
		return Profile{}, err
	}
	return profileOf(user, role.Name), nil
}

type UpdateProfileRequest struct {
	DisplayName *string
	Locale      *string
}

// UpdateProfile applies partial updates to display name and locale.
// Nil fields keep their current value.
func (s *AccountService) UpdateProfile(ctx context.Context, userID string, req UpdateProfileRequest) (Profile, error) {
	user, err := s.Store.Users().GetUserByID(ctx, userID)
	if err != nil {
		return Profile{}, err
	}

	displayName := user.DisplayName
	if req.DisplayName != nil {
		displayName = strings.TrimSpace(*req.DisplayName)
		if displayName == "" {
			return Profile{}, errors.New("display name cannot be empty")
		}
	}
	locale := user.Locale
	if req.Locale != nil && strings.TrimSpace(*req.Locale) != "" {
		locale = strings.TrimSpace(*req.Locale)
	}

	if err := s.Store.Users().UpdateProfile(ctx, userID, displayName, locale); err != nil {
		return Profile{}, err
	}

	return s.GetProfile(ctx, userID)
}

// ChangePassword verifies the current password before setting the new one,
// then revokes every session and refresh token so stolen credentials stop
// working everywhere at once.
func (s *AccountService) ChangePassword(ctx context.Context, userID, currentPassword, newPassword string) error {
	log := slogx.FromContext(ctx)

	user, err := s.Store.Users().GetUserByID(ctx, userID)
	if err != nil {
		return err
	}

	if cryptox.VerifyPassword(currentPassword, user.PasswordHash) != nil {
		return ErrInvalidPassword
	}
	if err := validatePassword(newPassword); err != nil {
		return err
	}
	if newPassword == currentPassword {
		return ErrPasswordReuse
	}

	hash, err := cryptox.HashPassword(newPassword)
	if err != nil {
		return fmt.Errorf("failed to hash password: %w", err)
	}

	err = s.Store.WithTx(ctx, func(tx store.Tx) error {
		if err := tx.Users().UpdatePasswordHash(ctx, userID, hash); err != nil {
			return err
		}
		if err := tx.Sessions().RevokeAllUserSessions(ctx, userID); err != nil {
			return err
		}
		return tx.RefreshTokens().RevokeAllUserRefreshTokens(ctx, userID)
	})
	if err != nil {
		return err
	}

	log.Info("password changed, all sessions revoked", "user_id", userID)
	return nil
}

// DeleteAccount permanently removes a user after re-verifying their
// password. The schema cascades to sessions, tokens, codes and
// credentials.
func (s *AccountService) DeleteAccount(ctx context.Context, userID, password string) error {
	log := slogx.FromContext(ctx)

	user, err := s.Store.Users().GetUserByID(ctx, userID)
	if err != nil {
		return err
	}
	if cryptox.VerifyPassword(password, user.PasswordHash) != nil {
		return ErrInvalidPassword
	}

	if err := s.Store.Users().DeleteUser(ctx, userID); err != nil {
		return err
	}

	log.Info("account deleted", "user_id", userID)
	return nil
}

func validatePassword(password string) error {
	if len(password) < minPasswordLength {
		return ErrWeakPassword
	}
	return nil
}

func profileOf(u domain.User, roleName string) Profile {
	return Profile{
		ID:          u.ID,
		Email:       u.Email,
		DisplayName: u.DisplayName,
		Role:        roleName,
		Locale:      u.Locale,
		MFAEnabled:  u.HasMFA(),
		CreatedAt:   u.CreatedAt,
		UpdatedAt:   u.UpdatedAt,
		MFASince:    u.MFAEnabled,
	}
}
