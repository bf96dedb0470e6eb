package domain

import "time"

// Platform roles, ordered roughly by privilege.
const (
	RoleStudent       = "student"
	RoleParent        = "parent"
	RoleTeacher       = "teacher"
	RoleDistrictAdmin = "district_admin"
	RoleSystemAdmin   = "system_admin"
)

type User struct {
	ID           string
	Email        string
	DisplayName  string
	PasswordHash string     // argon2 encoded
	RoleID       string     // Foreign key to roles table
	Locale       string     // BCP 47 tag, e.g. "en-AU"
	MFAEnabled   *time.Time // Timestamp when MFA was enabled (nullable)
	MFASecret    *string    // TOTP secret (nullable, base32 encoded)
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

// HasMFA reports whether the user has completed TOTP enrolment.
func (u *User) HasMFA() bool {
	return u.MFAEnabled != nil
}
