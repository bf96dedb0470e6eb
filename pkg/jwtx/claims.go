package jwtx

import (
	"crypto/rand"
	"encoding/base64"
	"slices"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// Default token TTLs for the platform's OAuth2 flows. Services can override
// these per-client, but the defaults are the ones the auth service issues.
const (
	// DefaultAccessTokenTTL keeps access tokens short-lived.
	DefaultAccessTokenTTL = 15 * time.Minute

	// DefaultRefreshTokenTTL bounds how long a session can go without a
	// fresh login.
	DefaultRefreshTokenTTL = 7 * 24 * time.Hour
)

// Authentication Methods Reference values recorded in the "amr" claim.
const (
	AMRPassword = "pwd"      // password login
	AMROTP      = "otp"      // one-time password (TOTP or backup code)
	AMRWebAuthn = "webauthn" // passkey / security key assertion
	AMRMFA      = "mfa"      // multi-factor auth was completed
	AMRRefresh  = "refresh"  // token minted via refresh grant
	AMRClient   = "client"   // client_credentials grant, no user involved
)

// Claims are the access-token claims shared across LumiLearn services.
// Changes must stay additive so resource services on older versions keep
// parsing tokens.
type Claims struct {
	jwt.RegisteredClaims

	// SID is the session this token belongs to. Revoking the session
	// invalidates the token at introspection time.
	SID string `json:"sid,omitempty"`

	// Scopes the token grants, e.g. "courses:read gradebook:write".
	Scopes []string `json:"scopes,omitempty"`

	// AMR lists how the user authenticated, e.g. ["pwd","mfa"].
	// Resource services use it to gate sensitive operations behind MFA.
	AMR []string `json:"amr,omitempty"`

	// Email of the authenticated user.
	Email string `json:"email,omitempty"`

	// DisplayName shown in classroom rosters.
	DisplayName string `json:"display_name,omitempty"`

	// Role is the user's platform role: student, parent, teacher,
	// district_admin or system_admin.
	Role string `json:"role,omitempty"`
}

// NewAccessClaims builds minimally-correct claims for an access token.
func NewAccessClaims(
	subject, sid string,
	scopes, amr []string,
	ttl time.Duration,
	issuer string,
	audience []string,
	email, displayName, role string,
	now time.Time,
) Claims {
	return Claims{
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    issuer,
			Subject:   subject,
			Audience:  jwt.ClaimStrings(audience),
			IssuedAt:  jwt.NewNumericDate(now),
			NotBefore: jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
			ID:        NewJTI(),
		},
		SID:         sid,
		Scopes:      scopes,
		AMR:         amr,
		Email:       email,
		DisplayName: displayName,
		Role:        role,
	}
}

// NewJTI returns a URL-safe random identifier for the "jti" claim.
func NewJTI() string {
	var b [20]byte
	_, _ = rand.Read(b[:])
	return base64.RawURLEncoding.EncodeToString(b[:])
}

// HasScope reports whether the token grants the given scope.
func (c *Claims) HasScope(scope string) bool {
	return slices.Contains(c.Scopes, scope)
}

// UsedMFA reports whether multi-factor auth was part of the login.
func (c *Claims) UsedMFA() bool {
	return slices.Contains(c.AMR, AMRMFA)
}

// ValidateIssuer checks the issuer matches the expected value.
func (c *Claims) ValidateIssuer(expected string) error {
	if expected == "" {
		return nil // nothing to enforce
	}
	if c.Issuer != expected {
		return ErrIssuer
	}
	return nil
}

// ValidateAudience checks at least one expected audience is present.
func (c *Claims) ValidateAudience(expected []string) error {
	if len(expected) == 0 {
		return nil // nothing to enforce
	}
	for _, want := range expected {
		if slices.Contains(c.Audience, want) {
			return nil
		}
	}
	return ErrAudience
}

// ValidateExpiry ensures the token hasn't expired (exp) and isn't used
// before it becomes valid (nbf).
func (c *Claims) ValidateExpiry() error {
	now := time.Now().UTC()

	if c.ExpiresAt != nil && now.After(c.ExpiresAt.Time) {
		return ErrExpired
	}
	if c.NotBefore != nil && now.Before(c.NotBefore.Time) {
		return ErrNotYetValid
	}
	return nil
}

// ValidateExpiryWithLeeway adds a small grace period for clock skew.
func (c *Claims) ValidateExpiryWithLeeway(leeway time.Duration) error {
	now := time.Now().UTC()

	if c.ExpiresAt != nil && now.After(c.ExpiresAt.Add(leeway)) {
		return ErrExpired
	}
	if c.NotBefore != nil && now.Before(c.NotBefore.Add(-leeway)) {
		return ErrNotYetValid
	}
	return nil
}
