package http

import (
	"errors"
	"net/http"
	"time"

	"github.com/lumilearn/lumiauth/internal/auth/service"
	"github.com/lumilearn/lumiauth/pkg/authsdk"
	"github.com/lumilearn/lumiauth/pkg/httpx"
	"github.com/lumilearn/lumiauth/pkg/slogx"
)

// SessionsHandler handles device session management for the
// authenticated user.
type SessionsHandler struct {
	SessionService *service.SessionService
}

// HandleList handles GET /v1/sessions
//
//	@Summary		List sessions
//	@Description	Returns the user's device sessions. The session backing the presented token is flagged as current.
//	@Tags			Sessions
//	@Security		BearerAuth
//	@Produce		json
//	@Success		200	{object}	authsdk.ListSessionsResponse	"The user's sessions"
//	@Failure		401	{object}	authsdk.ErrorResponse			"Invalid or missing access token"
//	@Failure		500	{object}	authsdk.ErrorResponse			"Internal server error"
//	@Router			/v1/sessions [get].
func (h *SessionsHandler) HandleList(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	log := slogx.FromContext(ctx)

	userID := httpx.UserIDFromCtx(ctx)
	if userID == "" {
		authsdk.ErrInvalidToken.WriteError(w)
		return
	}

	var currentSessionID string
	if claims, ok := httpx.ClaimsFromCtx(ctx); ok {
		currentSessionID = claims.SID
	}

	views, err := h.SessionService.ListSessions(ctx, userID, currentSessionID)
	if err != nil {
		log.Error("failed to list sessions", "user_id", userID, "err", err)
		authsdk.ErrServerError.WriteError(w)
		return
	}

	sessions := make([]authsdk.SessionInfo, len(views))
	for i, v := range views {
		sessions[i] = authsdk.SessionInfo{
			ID:             v.ID,
			ClientID:       v.ClientID,
			IPAddress:      v.IPAddress,
			UserAgent:      v.UserAgent,
			CreatedAt:      v.CreatedAt.Format(time.RFC3339),
			LastActivityAt: v.LastActivityAt.Format(time.RFC3339),
			ExpiresAt:      v.ExpiresAt.Format(time.RFC3339),
			Current:        v.Current,
			Active:         v.Active,
		}
	}

	httpx.NoCache(w)
	httpx.WriteJSON(w, http.StatusOK, authsdk.ListSessionsResponse{Sessions: sessions})
}

// HandleRevoke handles DELETE /v1/sessions/{id}
//
//	@Summary		Revoke a session
//	@Description	Ends one of the user's sessions along with its refresh tokens. Revoking the current session logs this device out.
//	@Tags			Sessions
//	@Security		BearerAuth
//	@Param			id	path	string	true	"Session ID (ULID)"
//	@Success		204	"Session revoked"
//	@Failure		401	{object}	authsdk.ErrorResponse	"Invalid or missing access token"
//	@Failure		404	{object}	authsdk.ErrorResponse	"Session not found"
//	@Failure		500	{object}	authsdk.ErrorResponse	"Internal server error"
//	@Router			/v1/sessions/{id} [delete].
func (h *SessionsHandler) HandleRevoke(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	log := slogx.FromContext(ctx)

	userID := httpx.UserIDFromCtx(ctx)
	if userID == "" {
		authsdk.ErrInvalidToken.WriteError(w)
		return
	}

	sessionID := r.PathValue("id")

	if err := h.SessionService.RevokeSession(ctx, userID, sessionID); err != nil {
		if errors.Is(err, service.ErrSessionNotFound) {
			httpx.WriteJSON(w, http.StatusNotFound, authsdk.ErrorResponse{
				Error:            "session_not_found",
				ErrorDescription: "Session not found",
			})
			return
		}
		log.Error("failed to revoke session", "user_id", userID, "session_id", sessionID, "err", err)
		authsdk.ErrServerError.WriteError(w)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

// HandleRevokeAll handles DELETE /v1/sessions
//
//	@Summary		Revoke all sessions
//	@Description	Signs the user out everywhere, including the current device.
//	@Tags			Sessions
//	@Security		BearerAuth
//	@Success		204	"All sessions revoked"
//	@Failure		401	{object}	authsdk.ErrorResponse	"Invalid or missing access token"
//	@Failure		500	{object}	authsdk.ErrorResponse	"Internal server error"
//	@Router			/v1/sessions [delete].
func (h *SessionsHandler) HandleRevokeAll(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	log := slogx.FromContext(ctx)

	userID := httpx.UserIDFromCtx(ctx)
	if userID == "" {
		authsdk.ErrInvalidToken.WriteError(w)
		return
	}

	if err := h.SessionService.RevokeAllSessions(ctx, userID); err != nil {
		log.Error("failed to revoke sessions", "user_id", userID, "err", err)
		authsdk.ErrServerError.WriteError(w)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

// HandleHeartbeat handles POST /v1/sessions/heartbeat
//
//	@Summary		Record session activity
//	@Description	Slides the current session's inactivity window. Clients send this on user activity so an in-use session never idles out.
//	@Tags			Sessions
//	@Security		BearerAuth
//	@Success		204	"Activity recorded"
//	@Failure		401	{object}	authsdk.ErrorResponse	"Invalid token, or the session has expired"
//	@Failure		404	{object}	authsdk.ErrorResponse	"Session not found"
//	@Failure		500	{object}	authsdk.ErrorResponse	"Internal server error"
//	@Router			/v1/sessions/heartbeat [post].
func (h *SessionsHandler) HandleHeartbeat(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	log := slogx.FromContext(ctx)

	claims, ok := httpx.ClaimsFromCtx(ctx)
	if !ok || claims.SID == "" {
		authsdk.ErrInvalidToken.WriteError(w)
		return
	}

	if err := h.SessionService.Touch(ctx, claims.SID); err != nil {
		switch {
		case errors.Is(err, service.ErrSessionNotFound):
			httpx.WriteJSON(w, http.StatusNotFound, authsdk.ErrorResponse{
				Error:            "session_not_found",
				ErrorDescription: "Session not found",
			})
		case errors.Is(err, service.ErrSessionExpired):
			authsdk.ErrSessionExpired.WriteError(w)
		default:
			log.Error("failed to touch session", "session_id", claims.SID, "err", err)
			authsdk.ErrServerError.WriteError(w)
		}
		return
	}

	w.WriteHeader(http.StatusNoContent)
}
