package domain

import "time"

// TokenPair is what the token endpoint returns: the short-lived access
// token (JWT) and the opaque refresh token.
type TokenPair struct {
	AccessToken  string        `json:"access_token"`
	RefreshToken string        `json:"refresh_token"`
	TokenType    string        `json:"token_type,omitempty"` // typically "Bearer"
	ExpiresIn    time.Duration `json:"expires_in"`           // seconds until expiry
	Scope        string        `json:"scope,omitempty"`      // space-delimited
}

// RefreshToken models the stored refresh token record. Only the SHA-256
// fingerprint of the opaque token is kept.
type RefreshToken struct {
	ID        string
	UserID    string
	ClientID  string
	TokenHash string // deterministic fingerprint (base64url SHA-256)
	SessionID string // session the token belongs to, stable across rotations
	Scopes    []string
	AMR       []string // Authentication Method Reference history
	ExpiresAt time.Time
	Revoked   bool
	CreatedAt time.Time
	UpdatedAt time.Time
}
