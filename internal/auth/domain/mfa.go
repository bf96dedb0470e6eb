package domain

import "time"

// MFAMaxAttempts caps failed code submissions per challenge before the
// challenge is invalidated and the user must log in again.
const MFAMaxAttempts = 5

// MFAChallengeResponse is returned when MFA is required during login.
type MFAChallengeResponse struct {
	MFARequired bool     `json:"mfa_required"` // always true
	MFAToken    string   `json:"mfa_token"`    // ULID reference token
	Methods     []string `json:"methods"`      // e.g. ["totp", "backup_code"]
}

// MFASession represents a pending MFA challenge between password login and
// code verification.
type MFASession struct {
	ID        string   // ULID (the mfa_token)
	UserID    string
	ClientID  string
	Scopes    []string
	AMR       []string // methods used so far, e.g. ["pwd"]
	SessionID string   // session to mint tokens against once verified
	Attempts  int      // failed code submissions so far
	CreatedAt time.Time
	ExpiresAt time.Time
}

// MFAEnrollResponse carries the provisioning material for a new TOTP
// enrolment. The secret is only shown once.
type MFAEnrollResponse struct {
	Secret  string // Base32 encoded secret for TOTP
	QRCode  string // otpauth:// URL for QR code generation
	Issuer  string // Issuer name shown in the authenticator app
	Account string // Account name (the user's email)
}

// BackupCode is a single-use recovery code. The plaintext is shown once at
// generation; only the SHA-256 fingerprint is stored, and UsedAt marks
// consumption.
type BackupCode struct {
	ID        string
	UserID    string
	CodeHash  string
	UsedAt    *time.Time
	CreatedAt time.Time
}
