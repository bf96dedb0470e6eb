package service

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"errors"
	"fmt"
	"time"

	"github.com/pquerna/otp"
	"github.com/pquerna/otp/totp"

	"github.com/lumilearn/lumiauth/internal/auth/domain"
	"github.com/lumilearn/lumiauth/internal/auth/store"
	"github.com/lumilearn/lumiauth/pkg/cryptox"
	"github.com/lumilearn/lumiauth/pkg/idx"
)

const (
	backupCodeCount = 10 // codes issued per generation
	backupCodeBytes = 5  // 40 bits each, rendered as xxxxx-xxxxx hex
)

var (
	ErrInvalidTOTPCode   = errors.New("invalid TOTP code")
	ErrMFANotEnabled     = errors.New("MFA not enabled for this user")
	ErrMFAAlreadyEnabled = errors.New("MFA already enabled for this user")
	ErrMFANotEnrolled    = errors.New("MFA not enrolled for this user")
)

type MFAService struct {
	Store  store.Store
	Issuer string // Issuer name shown in authenticator apps
}

// validateTOTPCode accepts the current time step plus one step either side,
// so codes survive modest clock drift between phone and server.
func validateTOTPCode(code, secret string, at time.Time) bool {
	ok, err := totp.ValidateCustom(code, secret, at, totp.ValidateOpts{
		Period:    30,
		Skew:      1,
		Digits:    otp.DigitsSix,
		Algorithm: otp.AlgorithmSHA1,
	})
	return err == nil && ok
}

// EnrollTOTP generates a TOTP secret for the user and returns it with an
// otpauth:// provisioning URL. MFA is NOT enabled yet; the user must
// confirm a code first via VerifyTOTP.
func (s *MFAService) EnrollTOTP(ctx context.Context, userID string, email string) (domain.MFAEnrollResponse, error) {
	mfaEnabled, _, err := s.Store.Users().GetMFAInfo(ctx, userID)
	if err != nil {
		return domain.MFAEnrollResponse{}, fmt.Errorf("failed to get MFA info: %w", err)
	}
	if mfaEnabled != nil && *mfaEnabled != "" {
		return domain.MFAEnrollResponse{}, ErrMFAAlreadyEnabled
	}

	key, err := totp.Generate(totp.GenerateOpts{
		Issuer:      s.Issuer,
		AccountName: email,
		Period:      30,
		Digits:      otp.DigitsSix,
		Algorithm:   otp.AlgorithmSHA1,
	})
	if err != nil {
		return domain.MFAEnrollResponse{}, fmt.Errorf("failed to generate TOTP key: %w", err)
	}

	// Store the secret but don't enable MFA yet. Re-enrolling before
	// confirmation simply replaces the pending secret.
	if err := s.Store.Users().UpdateMFASecret(ctx, userID, key.Secret()); err != nil {
		return domain.MFAEnrollResponse{}, fmt.Errorf("failed to store MFA secret: %w", err)
	}

	return domain.MFAEnrollResponse{
		Secret:  key.Secret(),
		QRCode:  key.URL(),
		Issuer:  s.Issuer,
		Account: email,
	}, nil
}

// VerifyTOTP confirms a code against the pending secret and enables MFA.
// It generates the user's backup codes and returns them in plaintext, the
// only time they are ever visible.
func (s *MFAService) VerifyTOTP(ctx context.Context, userID string, code string) ([]string, error) {
	mfaEnabledStr, mfaSecret, err := s.Store.Users().GetMFAInfo(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to get MFA info: %w", err)
	}

	if mfaSecret == nil || *mfaSecret == "" {
		return nil, ErrMFANotEnrolled
	}
	if mfaEnabledStr != nil && *mfaEnabledStr != "" {
		return nil, ErrMFAAlreadyEnabled
	}

	if !validateTOTPCode(code, *mfaSecret, time.Now()) {
		return nil, ErrInvalidTOTPCode
	}

	backupCodes, err := generateBackupCodes()
	if err != nil {
		return nil, err
	}

	// Store backup codes and enable MFA in one transaction.
	err = s.Store.WithTx(ctx, func(tx store.Tx) error {
		now := time.Now().UTC()
		for _, code := range backupCodes {
			record := domain.BackupCode{
				ID:        idx.New().String(),
				UserID:    userID,
				CodeHash:  cryptox.FingerprintToken(normalizeBackupCode(code)),
				CreatedAt: now,
			}
			if err := tx.BackupCodes().CreateBackupCode(ctx, record); err != nil {
				return fmt.Errorf("failed to store backup code: %w", err)
			}
		}
		if err := tx.Users().EnableMFA(ctx, userID); err != nil {
			return fmt.Errorf("failed to enable MFA: %w", err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	return backupCodes, nil
}

// RegenerateBackupCodes replaces the user's backup codes after verifying a
// TOTP code. Previously issued codes stop working.
func (s *MFAService) RegenerateBackupCodes(ctx context.Context, userID string, totpCode string) ([]string, error) {
	if err := s.verifyEnabledTOTP(ctx, userID, totpCode); err != nil {
		return nil, err
	}

	backupCodes, err := generateBackupCodes()
	if err != nil {
		return nil, err
	}

	err = s.Store.WithTx(ctx, func(tx store.Tx) error {
		if err := tx.BackupCodes().DeleteAllBackupCodes(ctx, userID); err != nil {
			return fmt.Errorf("failed to delete old backup codes: %w", err)
		}
		now := time.Now().UTC()
		for _, code := range backupCodes {
			record := domain.BackupCode{
				ID:        idx.New().String(),
				UserID:    userID,
				CodeHash:  cryptox.FingerprintToken(normalizeBackupCode(code)),
				CreatedAt: now,
			}
			if err := tx.BackupCodes().CreateBackupCode(ctx, record); err != nil {
				return fmt.Errorf("failed to store backup code: %w", err)
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	return backupCodes, nil
}

// RemoveMFA disables MFA for a user after verifying a TOTP code, deleting
// the secret and all backup codes.
func (s *MFAService) RemoveMFA(ctx context.Context, userID string, totpCode string) error {
	if err := s.verifyEnabledTOTP(ctx, userID, totpCode); err != nil {
		return err
	}

	return s.Store.WithTx(ctx, func(tx store.Tx) error {
		if err := tx.BackupCodes().DeleteAllBackupCodes(ctx, userID); err != nil {
			return fmt.Errorf("failed to delete backup codes: %w", err)
		}
		if err := tx.Users().DisableMFA(ctx, userID); err != nil {
			return fmt.Errorf("failed to disable MFA: %w", err)
		}
		return nil
	})
}

// CountBackupCodes reports how many unused backup codes remain, so the UI
// can nudge users to regenerate.
func (s *MFAService) CountBackupCodes(ctx context.Context, userID string) (int, error) {
	return s.Store.BackupCodes().CountActiveBackupCodes(ctx, userID)
}

func (s *MFAService) verifyEnabledTOTP(ctx context.Context, userID string, code string) error {
	mfaEnabledStr, mfaSecret, err := s.Store.Users().GetMFAInfo(ctx, userID)
	if err != nil {
		return fmt.Errorf("failed to get MFA info: %w", err)
	}

	if mfaEnabledStr == nil || *mfaEnabledStr == "" {
		return ErrMFANotEnabled
	}
	if mfaSecret == nil || *mfaSecret == "" {
		return ErrMFANotEnabled
	}

	if !validateTOTPCode(code, *mfaSecret, time.Now()) {
		return ErrInvalidTOTPCode
	}
	return nil
}

// generateBackupCodes produces codes in the "xxxxx-xxxxx" form users see
// in their recovery sheet.
func generateBackupCodes() ([]string, error) {
	codes := make([]string, backupCodeCount)
	for i := range codes {
		var b [backupCodeBytes]byte
		if _, err := rand.Read(b[:]); err != nil {
			return nil, fmt.Errorf("failed to generate backup code: %w", err)
		}
		raw := hex.EncodeToString(b[:])
		codes[i] = raw[:5] + "-" + raw[5:]
	}
	return codes, nil
}
