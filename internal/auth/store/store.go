package store

import (
	"context"
	"errors"

	"github.com/lumilearn/lumiauth/internal/auth/domain"
)

var (
	ErrNotFound      = errors.New("store: not found")
	ErrAlreadyExists = errors.New("store: already exists")
)

// Store is the root data access interface. Concrete drivers implement it.
// It exposes sub-repositories to keep concerns tidy and testable, and to
// stop callers accidentally nesting transactions.
type Store interface {
	Users() Users
	Clients() Clients
	Sessions() Sessions
	RefreshTokens() RefreshTokens
	Roles() Roles
	BackupCodes() BackupCodes
	MFASessions() MFASessions
	AuthorizationCodes() AuthorizationCodes
	Credentials() Credentials
	WebAuthnChallenges() WebAuthnChallenges
	PasswordResets() PasswordResets

	ApplyMigrations() error

	// Tx starts a read/write transaction and returns a Tx-scoped Store.
	// The caller MUST call Commit() or Rollback() on the returned Tx.
	Tx(ctx context.Context) (Tx, error)

	// WithTx executes fn within a transaction, committing when fn returns
	// nil and rolling back otherwise. Prefer this over Tx directly.
	WithTx(ctx context.Context, fn func(tx Tx) error) error

	// Close releases any underlying resources.
	Close() error

	// Ping verifies the database connection is still alive.
	Ping(ctx context.Context) error
}

// Tx is a transactional store. It embeds the same repos but adds
// Commit/Rollback.
type Tx interface {
	Store
	Commit() error
	Rollback() error
}

type Users interface {
	GetUserByID(ctx context.Context, id string) (domain.User, error)

	// GetUserByEmail is used during password login.
	GetUserByEmail(ctx context.Context, email string) (domain.User, error)

	// CreateUser inserts a new user (id is provided by app via ULID).
	CreateUser(ctx context.Context, u domain.User) error

	// UpdateProfile mutates display_name and locale, bumping updated_at.
	UpdateProfile(ctx context.Context, userID, displayName, locale string) error

	// UpdatePasswordHash sets the password_hash (argon2) and bumps updated_at.
	UpdatePasswordHash(ctx context.Context, userID string, newHash string) error

	// DeleteUser cascades to sessions, tokens and credentials (per schema).
	DeleteUser(ctx context.Context, userID string) error

	// IsEmpty returns true if there are no users.
	IsEmpty(ctx context.Context) (bool, error)

	// UpdateMFASecret stores the pending TOTP secret for a user.
	UpdateMFASecret(ctx context.Context, userID string, secret string) error

	// EnableMFA marks MFA as enabled (sets mfa_enabled timestamp).
	EnableMFA(ctx context.Context, userID string) error

	// DisableMFA clears mfa_enabled and mfa_secret.
	DisableMFA(ctx context.Context, userID string) error

	// GetMFAInfo returns the MFA-related columns for a user.
	GetMFAInfo(ctx context.Context, userID string) (mfaEnabled *string, mfaSecret *string, err error)
}

type Clients interface {
	GetClientByID(ctx context.Context, id string) (domain.Client, error)
	ListClients(ctx context.Context) ([]domain.Client, error)

	// CreateClient inserts a new client (secret_hash may be empty for
	// public clients).
	CreateClient(ctx context.Context, c domain.Client) error

	UpdateClientSecretHash(ctx context.Context, clientID, secretHash string) error
	UpdateClientScopes(ctx context.Context, clientID string, scopes []string) error
	UpdateClientName(ctx context.Context, clientID, name string) error

	// DeleteClient cascades to refresh_tokens (per schema).
	DeleteClient(ctx context.Context, clientID string) error

	IsEmpty(ctx context.Context) (bool, error)
}

type Sessions interface {
	CreateSession(ctx context.Context, s domain.Session) error
	GetSessionByID(ctx context.Context, id string) (domain.Session, error)

	// ListUserSessions returns all non-revoked sessions for a user,
	// newest first.
	ListUserSessions(ctx context.Context, userID string) ([]domain.Session, error)

	// TouchSession records activity, sliding the inactivity window.
	TouchSession(ctx context.Context, id string) error

	// RevokeSession marks the session revoked (logout).
	RevokeSession(ctx context.Context, id string) error

	// RevokeAllUserSessions bulk revocation, e.g. after a password reset.
	RevokeAllUserSessions(ctx context.Context, userID string) error

	// DeleteExpiredSessions removes sessions past their absolute expiry.
	DeleteExpiredSessions(ctx context.Context) error
}

type RefreshTokens interface {
	CreateRefreshToken(ctx context.Context, t domain.RefreshToken) error

	// GetRefreshTokenByHash returns the token by its SHA-256 fingerprint.
	GetRefreshTokenByHash(ctx context.Context, hash string) (domain.RefreshToken, error)

	// RevokeRefreshToken flips revoked=1, sets updated_at.
	RevokeRefreshToken(ctx context.Context, hash string) error

	// RevokeSessionRefreshTokens revokes every token tied to a session.
	RevokeSessionRefreshTokens(ctx context.Context, sessionID string) error

	// RevokeAllUserRefreshTokens bulk revocation for a user (password reset).
	RevokeAllUserRefreshTokens(ctx context.Context, userID string) error

	DeleteExpiredRefreshTokens(ctx context.Context) error
}

type Roles interface {
	GetRoleByID(ctx context.Context, id string) (domain.Role, error)

	// GetRoleByName fetches a role by its name (for bootstrap and signup).
	GetRoleByName(ctx context.Context, name string) (domain.Role, error)

	ListAll(ctx context.Context) ([]domain.Role, error)
	CreateRole(ctx context.Context, r domain.Role) error
	UpdateRoleScopes(ctx context.Context, roleID string, scopes []string) error

	// DeleteRole removes a role (fails while users still reference it).
	DeleteRole(ctx context.Context, roleID string) error

	IsEmpty(ctx context.Context) (bool, error)
}

type BackupCodes interface {
	// CreateBackupCode stores one code record (hash only).
	CreateBackupCode(ctx context.Context, c domain.BackupCode) error

	// GetActiveBackupCodeByHash returns an unused code matching the
	// fingerprint, or ErrNotFound.
	GetActiveBackupCodeByHash(ctx context.Context, userID, codeHash string) (domain.BackupCode, error)

	// MarkBackupCodeUsed consumes a code. Returns ErrNotFound if the code
	// was already used, so double-spends surface as failures.
	MarkBackupCodeUsed(ctx context.Context, id string) error

	// DeleteAllBackupCodes removes all codes for a user (regeneration or
	// MFA disable).
	DeleteAllBackupCodes(ctx context.Context, userID string) error

	// CountActiveBackupCodes returns how many unused codes remain.
	CountActiveBackupCodes(ctx context.Context, userID string) (int, error)
}

type MFASessions interface {
	CreateMFASession(ctx context.Context, session domain.MFASession) error

	// GetMFASession retrieves a challenge by its token (only if not expired).
	GetMFASession(ctx context.Context, mfaToken string) (domain.MFASession, error)

	// IncrementMFASessionAttempts bumps the failed attempt counter and
	// returns the updated session.
	IncrementMFASessionAttempts(ctx context.Context, mfaToken string) (domain.MFASession, error)

	DeleteMFASession(ctx context.Context, mfaToken string) error
	DeleteExpiredMFASessions(ctx context.Context) error
}

type AuthorizationCodes interface {
	CreateAuthorizationCode(ctx context.Context, code domain.AuthorizationCode) error

	// GetAuthorizationCodeByHash fetches a code by its fingerprint when
	// redeeming.
	GetAuthorizationCodeByHash(ctx context.Context, hash string) (domain.AuthorizationCode, error)

	// MarkAuthorizationCodeUsed marks a code as consumed to prevent re-use.
	MarkAuthorizationCodeUsed(ctx context.Context, id string) error

	DeleteExpiredAuthorizationCodes(ctx context.Context) error
}

type Credentials interface {
	CreateCredential(ctx context.Context, c domain.WebAuthnCredential) error
	ListUserCredentials(ctx context.Context, userID string) ([]domain.WebAuthnCredential, error)
	GetCredentialByCredentialID(ctx context.Context, credentialID []byte) (domain.WebAuthnCredential, error)

	// UpdateCredentialSignCount persists the authenticator's counter and
	// last_used_at after a successful assertion.
	UpdateCredentialSignCount(ctx context.Context, id string, signCount uint32) error

	DeleteCredential(ctx context.Context, id string) error
	DeleteAllUserCredentials(ctx context.Context, userID string) error
}

type WebAuthnChallenges interface {
	CreateWebAuthnChallenge(ctx context.Context, c domain.WebAuthnChallenge) error

	// GetWebAuthnChallenge fetches a pending ceremony by id (only if not
	// expired).
	GetWebAuthnChallenge(ctx context.Context, id string) (domain.WebAuthnChallenge, error)

	DeleteWebAuthnChallenge(ctx context.Context, id string) error
	DeleteExpiredWebAuthnChallenges(ctx context.Context) error
}

type PasswordResets interface {
	CreatePasswordReset(ctx context.Context, r domain.PasswordReset) error

	// GetActivePasswordResetByTokenHash returns a not-used, not-expired
	// reset by fingerprint.
	GetActivePasswordResetByTokenHash(ctx context.Context, hash string) (domain.PasswordReset, error)

	// MarkPasswordResetUsed consumes the token.
	MarkPasswordResetUsed(ctx context.Context, id string) error

	DeleteExpiredPasswordResets(ctx context.Context) error
}
