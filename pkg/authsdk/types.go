package authsdk

import (
	"encoding/json"

	"github.com/lumilearn/lumiauth/pkg/jwtx"
)

// ErrorResponse is the standard OAuth2 error body per RFC 6749, used
// internally when parsing HTTP error responses. Client code should work
// with OAuth2Error instead.
type ErrorResponse struct {
	Error            string `json:"error"`
	ErrorDescription string `json:"error_description"`
}

// ValidationErrorResponse is returned when request validation fails,
// typically from JSON endpoints such as signup and bootstrap.
type ValidationErrorResponse struct {
	// Code is the error code (e.g., "validation_error")
	Code string `json:"code"`

	// Message is a human-readable error message
	Message string `json:"message"`

	// Details maps field names to field-specific validation errors
	Details map[string]string `json:"details,omitempty"`
}

// TokenResponse is the OAuth2 token endpoint response per RFC 6749,
// returned from POST /v1/oauth2/token for every grant type.
type TokenResponse struct {
	// AccessToken is the JWT used to authenticate API requests
	AccessToken string `json:"access_token"`

	// RefreshToken is the opaque token used to obtain new access tokens
	RefreshToken string `json:"refresh_token,omitempty"`

	// TokenType is always "Bearer"
	TokenType string `json:"token_type"`

	// ExpiresIn is the access token lifetime in seconds
	ExpiresIn int `json:"expires_in"`

	// Scope is the space-delimited list of granted scopes
	Scope string `json:"scope,omitempty"`
}

// IntrospectionResponse is the RFC 7662 token introspection response.
// When the token is inactive only Active is populated.
type IntrospectionResponse struct {
	Active bool `json:"active"`

	Scope       string   `json:"scope,omitempty"`
	ClientID    string   `json:"client_id,omitempty"`
	TokenType   string   `json:"token_type,omitempty"`
	Exp         int64    `json:"exp,omitempty"`
	Iat         int64    `json:"iat,omitempty"`
	Nbf         int64    `json:"nbf,omitempty"`
	Sub         string   `json:"sub,omitempty"`
	Aud         []string `json:"aud,omitempty"`
	Iss         string   `json:"iss,omitempty"`
	Jti         string   `json:"jti,omitempty"`
	SessionID   string   `json:"sid,omitempty"`
	AMR         []string `json:"amr,omitempty"`
	Email       string   `json:"email,omitempty"`
	DisplayName string   `json:"display_name,omitempty"`
	Role        string   `json:"role,omitempty"`
}

// SignupRequest registers a new account.
type SignupRequest struct {
	// Email is the account email (unique, case-insensitive)
	Email string `json:"email"`

	// Password must be at least 8 characters
	Password string `json:"password"`

	// DisplayName is the user-facing name; defaults to the email local part
	DisplayName string `json:"display_name,omitempty"`

	// Role is "student" or "parent"; defaults to student
	Role string `json:"role,omitempty"`

	// Locale is a BCP 47 tag such as "en-AU"
	Locale string `json:"locale,omitempty"`
}

// ProfileResponse is the user profile returned from /v1/profile and
// /v1/userinfo.
type ProfileResponse struct {
	ID          string `json:"id"`
	Email       string `json:"email"`
	DisplayName string `json:"display_name"`
	Role        string `json:"role"`
	Locale      string `json:"locale"`
	MFAEnabled  bool   `json:"mfa_enabled"`
	CreatedAt   string `json:"created_at"`
	UpdatedAt   string `json:"updated_at"`
}

// UpdateProfileRequest applies partial profile updates; nil fields keep
// their current value.
type UpdateProfileRequest struct {
	DisplayName *string `json:"display_name,omitempty"`
	Locale      *string `json:"locale,omitempty"`
}

// ChangePasswordRequest rotates the account password. All sessions are
// revoked on success.
type ChangePasswordRequest struct {
	CurrentPassword string `json:"current_password"`
	NewPassword     string `json:"new_password"`
}

// DeleteAccountRequest permanently removes the account.
type DeleteAccountRequest struct {
	Password string `json:"password"`
}

// PasswordResetRequest starts the forgot-password flow.
type PasswordResetRequest struct {
	Email string `json:"email"`
}

// PasswordResetConfirmRequest redeems an emailed reset token.
type PasswordResetConfirmRequest struct {
	Token       string `json:"token"`
	NewPassword string `json:"new_password"`
}

// TOTPEnrollResponse carries the provisioning material for a new TOTP
// enrolment. The secret is only shown once.
type TOTPEnrollResponse struct {
	Secret  string `json:"secret" example:"JBSWY3DPEHPK3PXP"`
	QRCode  string `json:"qr_code" example:"otpauth://totp/LumiLearn:user@example.com?secret=JBSWY3DPEHPK3PXP&issuer=LumiLearn"`
	Issuer  string `json:"issuer"`
	Account string `json:"account"`
}

// MFAChallengeResponse is an MFA challenge issued during authentication.
type MFAChallengeResponse struct {
	MFARequired bool     `json:"mfa_required"`
	MFAToken    string   `json:"mfa_token"`
	Methods     []string `json:"methods"`
}

// BackupCodesResponse carries plaintext backup codes, shown once.
type BackupCodesResponse struct {
	Codes []string `json:"codes"`
}

// BackupCodeCountResponse reports remaining unused backup codes.
type BackupCodeCountResponse struct {
	Remaining int `json:"remaining"`
}

// TOTPVerifyRequest confirms a 6-digit TOTP code.
type TOTPVerifyRequest struct {
	Code string `json:"code"`
}

// TOTPRemoveRequest disables MFA after code verification.
type TOTPRemoveRequest struct {
	Code string `json:"code"`
}

// BackupCodesRegenerateRequest replaces all backup codes after code
// verification.
type BackupCodesRegenerateRequest struct {
	Code string `json:"code"`
}

// SessionInfo describes one logged-in device session.
type SessionInfo struct {
	ID             string `json:"id"`
	ClientID       string `json:"client_id"`
	IPAddress      string `json:"ip_address,omitempty"`
	UserAgent      string `json:"user_agent,omitempty"`
	CreatedAt      string `json:"created_at"`
	LastActivityAt string `json:"last_activity_at"`
	ExpiresAt      string `json:"expires_at"`
	Current        bool   `json:"current"`
	Active         bool   `json:"active"`
}

// ListSessionsResponse lists the account's sessions.
type ListSessionsResponse struct {
	Sessions []SessionInfo `json:"sessions"`
}

// WebAuthnBeginResponse carries browser ceremony options plus the
// challenge id to echo back on finish. Options is the raw JSON produced
// by the server's WebAuthn library, passed through untouched.
type WebAuthnBeginResponse struct {
	ChallengeID string `json:"challenge_id"`
	Options     any    `json:"options"`
}

// WebAuthnCredentialInfo describes a registered passkey.
type WebAuthnCredentialInfo struct {
	ID         string `json:"id"`
	Name       string `json:"name"`
	CreatedAt  string `json:"created_at"`
	LastUsedAt string `json:"last_used_at,omitempty"`
}

// ListCredentialsResponse lists registered passkeys.
type ListCredentialsResponse struct {
	Credentials []WebAuthnCredentialInfo `json:"credentials"`
}

// WebAuthnLoginBeginRequest starts a passkey login ceremony.
type WebAuthnLoginBeginRequest struct {
	Email string `json:"email"`
}

// WebAuthnFinishRequest completes a ceremony. Credential is the
// browser's PublicKeyCredential serialized to JSON, passed through
// untouched. ClientID is only used on login finish, where it selects the
// OAuth2 client the issued tokens belong to.
type WebAuthnFinishRequest struct {
	ChallengeID string          `json:"challenge_id"`
	Credential  json.RawMessage `json:"credential"`
	Label       string          `json:"label,omitempty"`
	ClientID    string          `json:"client_id,omitempty"`
}

// BootstrapRequest initializes a fresh deployment: the role set, the
// first system admin and the default web client.
type BootstrapRequest struct {
	AdminEmail        string           `json:"admin_email"`
	AdminDisplayName  string           `json:"admin_display_name"`
	AdminPassword     string           `json:"admin_password"`
	ClientName        string           `json:"client_name"`
	ClientRedirectURI string           `json:"client_redirect_uri"`
	ClientScopes      []string         `json:"client_scopes"`
	Roles             []RoleDefinition `json:"roles,omitempty"`
}

// RoleDefinition defines a role's name and its allowed scopes.
type RoleDefinition struct {
	Name   string   `json:"name"`
	Scopes []string `json:"scopes"`
}

// BootstrapResponse carries the created admin and client identifiers. The
// client secret is returned exactly once.
type BootstrapResponse struct {
	AdminUserID  string `json:"admin_user_id"`
	ClientID     string `json:"client_id"`
	ClientSecret string `json:"client_secret"`
}

// RoleInfo represents a single role.
type RoleInfo struct {
	ID     string   `json:"id"`
	Name   string   `json:"name"`
	Scopes []string `json:"scopes"`
}

// ListRolesResponse lists all roles.
type ListRolesResponse struct {
	Roles []RoleInfo `json:"roles"`
}

// CreateClientRequest registers a new OAuth2 client.
type CreateClientRequest struct {
	// Name is the human-readable client name
	Name string `json:"name"`

	// Confidential clients get a generated secret returned once; public
	// clients must use PKCE
	Confidential bool `json:"confidential"`

	// RedirectURIs is the exact-match allowlist for the authorize endpoint
	RedirectURIs []string `json:"redirect_uris"`

	// Scopes the client is authorized to grant
	Scopes []string `json:"scopes"`
}

// CreateClientResponse carries the created client's ID and, for
// confidential clients, its plaintext secret (shown once).
type CreateClientResponse struct {
	ClientID     string `json:"client_id"`
	ClientSecret string `json:"client_secret,omitempty"`
}

// ClientInfo describes an OAuth2 client.
type ClientInfo struct {
	ID           string   `json:"id"`
	Name         string   `json:"name"`
	RedirectURIs []string `json:"redirect_uris"`
	Scopes       []string `json:"scopes"`
	HasSecret    bool     `json:"has_secret"`
	Protected    bool     `json:"protected"`
	CreatedAt    string   `json:"created_at"`
}

// ListClientsResponse lists OAuth2 clients.
type ListClientsResponse struct {
	Clients []ClientInfo `json:"clients"`
}

// HealthResponse is shared by /livez and /readyz; readyz adds Checks.
type HealthResponse struct {
	Status  string        `json:"status"`
	Uptime  string        `json:"uptime,omitempty"`
	Version string        `json:"version,omitempty"`
	Checks  *HealthChecks `json:"checks,omitempty"`
}

// HealthChecks reports per-dependency readiness.
type HealthChecks struct {
	Database string `json:"database"`
	Signer   string `json:"signer"`
}

// JWKSResponse is the JSON Web Key Set from /.well-known/jwks.json.
type JWKSResponse jwtx.JWKS
