package http

import (
	"encoding/json"
	"errors"
	"net/http"
	"strings"

	"github.com/lumilearn/lumiauth/internal/auth/service"
	"github.com/lumilearn/lumiauth/pkg/authsdk"
	"github.com/lumilearn/lumiauth/pkg/httpx"
	"github.com/lumilearn/lumiauth/pkg/slogx"
)

// PasswordResetHandler handles the forgot-password flow.
type PasswordResetHandler struct {
	PasswordResetService *service.PasswordResetService
}

// HandleRequest handles POST /v1/password-reset/request
//
//	@Summary		Request a password reset
//	@Description	Sends a reset token to the given email if an account exists. Always returns 202 so the endpoint cannot be used to probe registered addresses.
//	@Tags			Accounts
//	@Accept			json
//	@Param			request	body	authsdk.PasswordResetRequest	true	"Account email"
//	@Success		202		"Reset requested"
//	@Failure		400		{object}	authsdk.ErrorResponse	"Invalid request body"
//	@Failure		500		{object}	authsdk.ErrorResponse	"Internal server error"
//	@Router			/v1/password-reset/request [post].
func (h *PasswordResetHandler) HandleRequest(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	log := slogx.FromContext(ctx)

	var req authsdk.PasswordResetRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		httpx.WriteJSON(w, http.StatusBadRequest, authsdk.ErrorResponse{
			Error:            "invalid_request",
			ErrorDescription: "Request body must be valid JSON",
		})
		return
	}
	if strings.TrimSpace(req.Email) == "" {
		httpx.WriteJSON(w, http.StatusBadRequest, authsdk.ErrorResponse{
			Error:            "invalid_request",
			ErrorDescription: "Email is required",
		})
		return
	}

	if err := h.PasswordResetService.RequestReset(ctx, req.Email); err != nil {
		log.Error("failed to process reset request", "err", err)
		authsdk.ErrServerError.WriteError(w)
		return
	}

	// Accepted whether or not the email exists.
	w.WriteHeader(http.StatusAccepted)
}

// HandleConfirm handles POST /v1/password-reset/confirm
//
//	@Summary		Confirm a password reset
//	@Description	Redeems a reset token and sets a new password. All sessions and refresh tokens are revoked.
//	@Tags			Accounts
//	@Accept			json
//	@Param			request	body	authsdk.PasswordResetConfirmRequest	true	"Reset token and new password"
//	@Success		204		"Password reset, all sessions revoked"
//	@Failure		400		{object}	authsdk.ErrorResponse	"Invalid token or weak password"
//	@Failure		500		{object}	authsdk.ErrorResponse	"Internal server error"
//	@Router			/v1/password-reset/confirm [post].
func (h *PasswordResetHandler) HandleConfirm(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	log := slogx.FromContext(ctx)

	var req authsdk.PasswordResetConfirmRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		httpx.WriteJSON(w, http.StatusBadRequest, authsdk.ErrorResponse{
			Error:            "invalid_request",
			ErrorDescription: "Request body must be valid JSON",
		})
		return
	}

	err := h.PasswordResetService.ConfirmReset(ctx, req.Token, req.NewPassword)
	if err != nil {
		switch {
		case errors.Is(err, service.ErrInvalidResetToken):
			httpx.WriteJSON(w, http.StatusBadRequest, authsdk.ErrorResponse{
				Error:            "invalid_token",
				ErrorDescription: "Reset token is invalid or has expired",
			})
		case errors.Is(err, service.ErrWeakPassword):
			httpx.WriteJSON(w, http.StatusBadRequest, authsdk.ErrorResponse{
				Error:            "weak_password",
				ErrorDescription: "New password must be at least 8 characters",
			})
		default:
			log.Error("failed to confirm password reset", "err", err)
			authsdk.ErrServerError.WriteError(w)
		}
		return
	}

	w.WriteHeader(http.StatusNoContent)
}
