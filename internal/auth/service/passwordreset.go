package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/lumilearn/lumiauth/internal/auth/domain"
	"github.com/lumilearn/lumiauth/internal/auth/store"
	"github.com/lumilearn/lumiauth/pkg/cryptox"
	"github.com/lumilearn/lumiauth/pkg/idx"
	"github.com/lumilearn/lumiauth/pkg/slogx"
)

var ErrInvalidResetToken = errors.New("invalid or expired reset token")

// ResetMailer delivers the reset token to the user out of band. The
// default implementation just logs; deployments plug in real email.
type ResetMailer interface {
	SendPasswordReset(ctx context.Context, email, token string) error
}

// LogMailer writes reset tokens to the log instead of sending email.
// For development and tests only.
type LogMailer struct{}

func (LogMailer) SendPasswordReset(ctx context.Context, email, token string) error {
	slogx.FromContext(ctx).Info("password reset requested", "email", email, "token", token)
	return nil
}

// PasswordResetService implements the forgot-password flow: an opaque
// single-use token emailed to the user, stored only by fingerprint.
type PasswordResetService struct {
	Store  store.Store
	Mailer ResetMailer
	TTL    time.Duration // token lifetime, default 1 hour
}

// RequestReset issues a reset token for the account with the given email.
// Unknown emails return nil without side effects, so the endpoint cannot
// be used to probe which addresses are registered.
func (s *PasswordResetService) RequestReset(ctx context.Context, email string) error {
	log := slogx.FromContext(ctx)

	normalized := strings.ToLower(strings.TrimSpace(email))
	user, err := s.Store.Users().GetUserByEmail(ctx, normalized)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			log.Info("password reset requested for unknown email")
			return nil
		}
		return err
	}

	token, err := cryptox.GenerateToken(cryptox.TokenSize256)
	if err != nil {
		return fmt.Errorf("failed to generate reset token: %w", err)
	}

	ttl := s.TTL
	if ttl <= 0 {
		ttl = time.Hour
	}

	now := time.Now().UTC()
	record := domain.PasswordReset{
		ID:        idx.New().String(),
		UserID:    user.ID,
		TokenHash: cryptox.FingerprintToken(token),
		ExpiresAt: now.Add(ttl),
		CreatedAt: now,
	}

	if err := s.Store.PasswordResets().CreatePasswordReset(ctx, record); err != nil {
		return fmt.Errorf("failed to store reset token: %w", err)
	}

	mailer := s.Mailer
	if mailer == nil {
		mailer = LogMailer{}
	}
	return mailer.SendPasswordReset(ctx, user.Email, token)
}

// ConfirmReset redeems a reset token and sets the new password. All of
// the user's sessions and refresh tokens are revoked in the same
// transaction.
func (s *PasswordResetService) ConfirmReset(ctx context.Context, token, newPassword string) error {
	log := slogx.FromContext(ctx)

	if err := validatePassword(newPassword); err != nil {
		return err
	}

	reset, err := s.Store.PasswordResets().GetActivePasswordResetByTokenHash(ctx, cryptox.FingerprintToken(token))
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return ErrInvalidResetToken
		}
		return err
	}

	hash, err := cryptox.HashPassword(newPassword)
	if err != nil {
		return fmt.Errorf("failed to hash password: %w", err)
	}

	err = s.Store.WithTx(ctx, func(tx store.Tx) error {
		if err := tx.PasswordResets().MarkPasswordResetUsed(ctx, reset.ID); err != nil {
			return err
		}
		if err := tx.Users().UpdatePasswordHash(ctx, reset.UserID, hash); err != nil {
			return err
		}
		if err := tx.Sessions().RevokeAllUserSessions(ctx, reset.UserID); err != nil {
			return err
		}
		return tx.RefreshTokens().RevokeAllUserRefreshTokens(ctx, reset.UserID)
	})
	if err != nil {
		return err
	}

	log.Info("password reset completed, all sessions revoked", "user_id", reset.UserID)
	return nil
}
