package domain

import "time"

// PasswordReset is an emailed reset token. Single use; only the SHA-256
// fingerprint is stored.
type PasswordReset struct {
	ID        string
	UserID    string
	TokenHash string
	ExpiresAt time.Time
	UsedAt    *time.Time
	CreatedAt time.Time
}
