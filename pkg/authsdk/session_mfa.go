package authsdk

import (
	"context"
	"net/http"
)

// EnrollTOTP starts TOTP enrollment, returning the shared secret and the
// otpauth provisioning URI. Enrollment is pending until a valid code is
// verified via VerifyTOTP.
func (s *Session) EnrollTOTP(ctx context.Context) (*TOTPEnrollResponse, error) {
	resp, err := s.doAuthJSON(ctx, http.MethodPost, "/v1/mfa/totp/enroll", nil)
	if err != nil {
		return nil, err
	}

	var enroll TOTPEnrollResponse
	if err := decodeJSON(resp, &enroll, http.StatusOK); err != nil {
		return nil, err
	}

	return &enroll, nil
}

// VerifyTOTP confirms a pending TOTP enrollment with a code from the
// authenticator app and returns the account's backup codes, shown this
// one time only. MFA is enforced on subsequent logins once this succeeds.
func (s *Session) VerifyTOTP(ctx context.Context, code string) (*BackupCodesResponse, error) {
	resp, err := s.doAuthJSON(ctx, http.MethodPost, "/v1/mfa/totp/verify", TOTPVerifyRequest{Code: code})
	if err != nil {
		return nil, err
	}

	var codes BackupCodesResponse
	if err := decodeJSON(resp, &codes, http.StatusOK); err != nil {
		return nil, err
	}

	return &codes, nil
}

// RemoveTOTP disables MFA on the account. Requires a currently valid
// TOTP code or backup code.
func (s *Session) RemoveTOTP(ctx context.Context, code string) error {
	resp, err := s.doAuthJSON(ctx, http.MethodPost, "/v1/mfa/totp/remove", TOTPRemoveRequest{Code: code})
	if err != nil {
		return err
	}
	return checkStatusNoContent(resp)
}

// RegenerateBackupCodes replaces all backup codes with a new set,
// invalidating any unused codes from the old set. Requires a currently
// valid TOTP code.
func (s *Session) RegenerateBackupCodes(ctx context.Context, code string) (*BackupCodesResponse, error) {
	resp, err := s.doAuthJSON(ctx, http.MethodPost, "/v1/mfa/backup-codes/regenerate",
		BackupCodesRegenerateRequest{Code: code})
	if err != nil {
		return nil, err
	}

	var codes BackupCodesResponse
	if err := decodeJSON(resp, &codes, http.StatusOK); err != nil {
		return nil, err
	}

	return &codes, nil
}

// BackupCodeCount returns how many unused backup codes remain.
func (s *Session) BackupCodeCount(ctx context.Context) (int, error) {
	resp, err := s.doAuthRequest(ctx, http.MethodGet, "/v1/mfa/backup-codes", nil, nil)
	if err != nil {
		return 0, err
	}

	var count BackupCodeCountResponse
	if err := decodeJSON(resp, &count, http.StatusOK); err != nil {
		return 0, err
	}

	return count.Remaining, nil
}
