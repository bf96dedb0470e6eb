package domain

import "time"

// Session is a logged-in browser or device. A session stays valid only
// while both bounds hold: the absolute expiry has not passed, and the gap
// since the last recorded activity is within the inactivity limit.
type Session struct {
	ID             string
	UserID         string
	ClientID       string
	IPAddress      string
	UserAgent      string
	CreatedAt      time.Time
	LastActivityAt time.Time
	ExpiresAt      time.Time  // absolute lifetime bound
	RevokedAt      *time.Time // set on logout or admin revocation
}

// Active reports whether the session is still usable at now, given the
// platform's inactivity limit.
func (s *Session) Active(now time.Time, maxInactivity time.Duration) bool {
	if s.RevokedAt != nil {
		return false
	}
	if now.After(s.ExpiresAt) {
		return false
	}
	return now.Sub(s.LastActivityAt) <= maxInactivity
}
