package service

import (
	"context"
	"errors"
	"time"

	"github.com/lumilearn/lumiauth/internal/auth/domain"
	"github.com/lumilearn/lumiauth/internal/auth/store"
	"github.com/lumilearn/lumiauth/pkg/slogx"
)

var ErrSessionNotFound = errors.New("session not found")

// SessionService manages device sessions: listing, revocation and the
// activity timestamps the inactivity rule runs on.
type SessionService struct {
	Store         store.Store
	MaxInactivity time.Duration
}

// SessionView is what session listing endpoints return.
type SessionView struct {
	ID             string    `json:"id"`
	ClientID       string    `json:"client_id"`
	IPAddress      string    `json:"ip_address,omitempty"`
	UserAgent      string    `json:"user_agent,omitempty"`
	CreatedAt      time.Time `json:"created_at"`
	LastActivityAt time.Time `json:"last_activity_at"`
	ExpiresAt      time.Time `json:"expires_at"`
	Current        bool      `json:"current"`
	Active         bool      `json:"active"`
}

// ListSessions returns the user's non-revoked sessions, flagging the one
// matching currentSessionID.
func (s *SessionService) ListSessions(ctx context.Context, userID, currentSessionID string) ([]SessionView, error) {
	sessions, err := s.Store.Sessions().ListUserSessions(ctx, userID)
	if err != nil {
		return nil, err
	}

	now := time.Now()
	views := make([]SessionView, 0, len(sessions))
	for _, sess := range sessions {
		views = append(views, SessionView{
			ID:             sess.ID,
			ClientID:       sess.ClientID,
			IPAddress:      sess.IPAddress,
			UserAgent:      sess.UserAgent,
			CreatedAt:      sess.CreatedAt,
			LastActivityAt: sess.LastActivityAt,
			ExpiresAt:      sess.ExpiresAt,
			Current:        sess.ID == currentSessionID,
			Active:         sess.Active(now, s.MaxInactivity),
		})
	}
	return views, nil
}

// Touch records user activity on a session, sliding its inactivity
// window. Revoked or expired sessions are not revived.
func (s *SessionService) Touch(ctx context.Context, sessionID string) error {
	sess, err := s.Store.Sessions().GetSessionByID(ctx, sessionID)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return ErrSessionNotFound
		}
		return err
	}
	if !sess.Active(time.Now(), s.MaxInactivity) {
		return ErrSessionExpired
	}
	return s.Store.Sessions().TouchSession(ctx, sessionID)
}

// RevokeSession ends one session (logout) along with its refresh tokens.
// Users may only revoke their own sessions.
func (s *SessionService) RevokeSession(ctx context.Context, userID, sessionID string) error {
	log := slogx.FromContext(ctx)

	sess, err := s.Store.Sessions().GetSessionByID(ctx, sessionID)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return ErrSessionNotFound
		}
		return err
	}
	if sess.UserID != userID {
		return ErrSessionNotFound
	}

	err = s.Store.WithTx(ctx, func(tx store.Tx) error {
		if err := tx.Sessions().RevokeSession(ctx, sessionID); err != nil {
			return err
		}
		return tx.RefreshTokens().RevokeSessionRefreshTokens(ctx, sessionID)
	})
	if err != nil {
		return err
	}

	log.Info("session revoked", "user_id", userID, "session_id", sessionID)
	return nil
}

// RevokeAllSessions signs the user out everywhere.
func (s *SessionService) RevokeAllSessions(ctx context.Context, userID string) error {
	log := slogx.FromContext(ctx)

	err := s.Store.WithTx(ctx, func(tx store.Tx) error {
		if err := tx.Sessions().RevokeAllUserSessions(ctx, userID); err != nil {
			return err
		}
		return tx.RefreshTokens().RevokeAllUserRefreshTokens(ctx, userID)
	})
	if err != nil {
		return err
	}

	log.Info("all sessions revoked", "user_id", userID)
	return nil
}

// GetSession returns a session owned by the user.
func (s *SessionService) GetSession(ctx context.Context, userID, sessionID string) (domain.Session, error) {
	sess, err := s.Store.Sessions().GetSessionByID(ctx, sessionID)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return domain.Session{}, ErrSessionNotFound
		}
		return domain.Session{}, err
	}
	if sess.UserID != userID {
		return domain.Session{}, ErrSessionNotFound
	}
	return sess, nil
}
