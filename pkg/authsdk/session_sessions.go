package authsdk

import (
	"context"
	"fmt"
	"net/http"
)

// ListSessions returns every login session for the account, the current
// one flagged.
func (s *Session) ListSessions(ctx context.Context) (*ListSessionsResponse, error) {
	resp, err := s.doAuthRequest(ctx, http.MethodGet, "/v1/sessions", nil, nil)
	if err != nil {
		return nil, err
	}

	var sessions ListSessionsResponse
	if err := decodeJSON(resp, &sessions, http.StatusOK); err != nil {
		return nil, err
	}

	return &sessions, nil
}

// RevokeSession terminates another login session by ID, killing its
// refresh tokens. Use Logout to end the current session.
func (s *Session) RevokeSession(ctx context.Context, sessionID string) error {
	resp, err := s.doAuthRequest(ctx, http.MethodDelete, "/v1/sessions/"+sessionID, nil, nil)
	if err != nil {
		return err
	}
	return checkStatusNoContent(resp)
}

// RevokeAllSessions terminates every session on the account, including
// this one. The session is unusable afterwards.
func (s *Session) RevokeAllSessions(ctx context.Context) error {
	resp, err := s.doAuthRequest(ctx, http.MethodDelete, "/v1/sessions", nil, nil)
	if err != nil {
		return err
	}
	return checkStatusNoContent(resp)
}

// Heartbeat marks the session as active, sliding the server's
// inactivity window. The session monitor calls this on user activity;
// it can also be called directly.
func (s *Session) Heartbeat(ctx context.Context) error {
	resp, err := s.doAuthRequest(ctx, http.MethodPost, "/v1/sessions/heartbeat", nil, nil)
	if err != nil {
		return err
	}
	return checkStatusNoContent(resp)
}

// Logout revokes the current refresh token and drops the local token
// state. The access token stays valid until its natural expiry.
func (s *Session) Logout(ctx context.Context) error {
	s.mu.Lock()
	refreshToken := s.refreshToken
	clientID := s.clientID
	s.accessToken = ""
	s.refreshToken = ""
	s.scopes = make(map[string]bool)
	s.mu.Unlock()

	if refreshToken == "" {
		return nil
	}

	if err := s.client.RevokeToken(ctx, clientID, refreshToken); err != nil {
		return fmt.Errorf("failed to revoke refresh token: %w", err)
	}
	return nil
}
