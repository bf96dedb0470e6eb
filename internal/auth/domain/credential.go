package domain

import "time"

// WebAuthnCredential is a registered passkey or security key. The
// CredentialJSON blob holds the full webauthn.Credential structure so the
// library round-trips attestation data without us re-modelling it.
type WebAuthnCredential struct {
	ID             string
	UserID         string
	Name           string // user-facing label, e.g. "School Chromebook"
	CredentialID   []byte // raw credential ID from the authenticator
	CredentialJSON []byte
	SignCount      uint32
	CreatedAt      time.Time
	LastUsedAt     *time.Time
}

// WebAuthnChallenge stores in-flight ceremony state between the begin and
// finish steps of registration or login.
type WebAuthnChallenge struct {
	ID          string
	UserID      string
	Ceremony    string // "registration" or "login"
	SessionJSON []byte // serialized webauthn.SessionData
	ExpiresAt   time.Time
	CreatedAt   time.Time
}

const (
	CeremonyRegistration = "registration"
	CeremonyLogin        = "login"
)
