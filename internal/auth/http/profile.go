package http

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/lumilearn/lumiauth/internal/auth/service"
	"github.com/lumilearn/lumiauth/pkg/authsdk"
	"github.com/lumilearn/lumiauth/pkg/httpx"
	"github.com/lumilearn/lumiauth/pkg/slogx"
)

// ProfileHandler handles the authenticated user's own profile.
type ProfileHandler struct {
	AccountService *service.AccountService
}

// HandleGet handles GET /v1/profile
//
//	@Summary		Get own profile
//	@Description	Returns the authenticated user's profile.
//	@Tags			Accounts
//	@Security		BearerAuth
//	@Produce		json
//	@Success		200	{object}	authsdk.ProfileResponse	"The profile"
//	@Failure		401	{object}	authsdk.ErrorResponse	"Invalid or missing access token"
//	@Failure		500	{object}	authsdk.ErrorResponse	"Internal server error"
//	@Router			/v1/profile [get].
func (h *ProfileHandler) HandleGet(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	log := slogx.FromContext(ctx)

	userID := httpx.UserIDFromCtx(ctx)
	if userID == "" {
		authsdk.ErrInvalidToken.WriteError(w)
		return
	}

	profile, err := h.AccountService.GetProfile(ctx, userID)
	if err != nil {
		log.Warn("failed to load profile", "user_id", userID, "err", err)
		authsdk.ErrServerError.WriteError(w)
		return
	}

	httpx.NoCache(w)
	httpx.WriteJSON(w, http.StatusOK, profileResponse(profile))
}

// HandleUpdate handles PATCH /v1/profile
//
//	@Summary		Update own profile
//	@Description	Applies partial updates to display name and locale. Omitted fields keep their current value.
//	@Tags			Accounts
//	@Security		BearerAuth
//	@Accept			json
//	@Produce		json
//	@Param			request	body		authsdk.UpdateProfileRequest	true	"Fields to update"
//	@Success		200		{object}	authsdk.ProfileResponse			"The updated profile"
//	@Failure		400		{object}	authsdk.ErrorResponse			"Invalid request body"
//	@Failure		401		{object}	authsdk.ErrorResponse			"Invalid or missing access token"
//	@Failure		500		{object}	authsdk.ErrorResponse			"Internal server error"
//	@Router			/v1/profile [patch].
func (h *ProfileHandler) HandleUpdate(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	log := slogx.FromContext(ctx)

	userID := httpx.UserIDFromCtx(ctx)
	if userID == "" {
		authsdk.ErrInvalidToken.WriteError(w)
		return
	}

	var req authsdk.UpdateProfileRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		httpx.WriteJSON(w, http.StatusBadRequest, authsdk.ErrorResponse{
			Error:            "invalid_request",
			ErrorDescription: "Request body must be valid JSON",
		})
		return
	}

	if req.DisplayName != nil && *req.DisplayName == "" {
		httpx.WriteJSON(w, http.StatusBadRequest, authsdk.ErrorResponse{
			Error:            "invalid_request",
			ErrorDescription: "Display name cannot be empty",
		})
		return
	}

	profile, err := h.AccountService.UpdateProfile(ctx, userID, service.UpdateProfileRequest{
		DisplayName: req.DisplayName,
		Locale:      req.Locale,
	})
	if err != nil {
		log.Error("failed to update profile", "user_id", userID, "err", err)
		authsdk.ErrServerError.WriteError(w)
		return
	}

	httpx.NoCache(w)
	httpx.WriteJSON(w, http.StatusOK, profileResponse(profile))
}

// HandleChangePassword handles POST /v1/profile/password
//
//	@Summary		Change password
//	@Description	Verifies the current password and sets a new one. All sessions and refresh tokens are revoked; the client must log in again.
//	@Tags			Accounts
//	@Security		BearerAuth
//	@Accept			json
//	@Param			request	body	authsdk.ChangePasswordRequest	true	"Current and new passwords"
//	@Success		204		"Password changed, all sessions revoked"
//	@Failure		400		{object}	authsdk.ErrorResponse	"Weak or reused new password"
//	@Failure		401		{object}	authsdk.ErrorResponse	"Current password incorrect"
//	@Failure		500		{object}	authsdk.ErrorResponse	"Internal server error"
//	@Router			/v1/profile/password [post].
func (h *ProfileHandler) HandleChangePassword(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	log := slogx.FromContext(ctx)

	userID := httpx.UserIDFromCtx(ctx)
	if userID == "" {
		authsdk.ErrInvalidToken.WriteError(w)
		return
	}

	var req authsdk.ChangePasswordRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		httpx.WriteJSON(w, http.StatusBadRequest, authsdk.ErrorResponse{
			Error:            "invalid_request",
			ErrorDescription: "Request body must be valid JSON",
		})
		return
	}

	err := h.AccountService.ChangePassword(ctx, userID, req.CurrentPassword, req.NewPassword)
	if err != nil {
		switch {
		case errors.Is(err, service.ErrInvalidPassword):
			httpx.WriteJSON(w, http.StatusUnauthorized, authsdk.ErrorResponse{
				Error:            "invalid_password",
				ErrorDescription: "Current password is incorrect",
			})
		case errors.Is(err, service.ErrWeakPassword):
			httpx.WriteJSON(w, http.StatusBadRequest, authsdk.ErrorResponse{
				Error:            "weak_password",
				ErrorDescription: "New password must be at least 8 characters",
			})
		case errors.Is(err, service.ErrPasswordReuse):
			httpx.WriteJSON(w, http.StatusBadRequest, authsdk.ErrorResponse{
				Error:            "password_reuse",
				ErrorDescription: "New password must differ from the current one",
			})
		default:
			log.Error("failed to change password", "user_id", userID, "err", err)
			authsdk.ErrServerError.WriteError(w)
		}
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

// HandleDelete handles DELETE /v1/profile
//
//	@Summary		Delete own account
//	@Description	Permanently removes the account after re-verifying the password. Sessions, tokens, backup codes and passkeys are removed with it.
//	@Tags			Accounts
//	@Security		BearerAuth
//	@Accept			json
//	@Param			request	body	authsdk.DeleteAccountRequest	true	"Password confirmation"
//	@Success		204		"Account deleted"
//	@Failure		400		{object}	authsdk.ErrorResponse	"Invalid request body"
//	@Failure		401		{object}	authsdk.ErrorResponse	"Password incorrect"
//	@Failure		500		{object}	authsdk.ErrorResponse	"Internal server error"
//	@Router			/v1/profile [delete].
func (h *ProfileHandler) HandleDelete(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	log := slogx.FromContext(ctx)

	userID := httpx.UserIDFromCtx(ctx)
	if userID == "" {
		authsdk.ErrInvalidToken.WriteError(w)
		return
	}

	var req authsdk.DeleteAccountRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		httpx.WriteJSON(w, http.StatusBadRequest, authsdk.ErrorResponse{
			Error:            "invalid_request",
			ErrorDescription: "Request body must be valid JSON",
		})
		return
	}

	if err := h.AccountService.DeleteAccount(ctx, userID, req.Password); err != nil {
		if errors.Is(err, service.ErrInvalidPassword) {
			httpx.WriteJSON(w, http.StatusUnauthorized, authsdk.ErrorResponse{
				Error:            "invalid_password",
				ErrorDescription: "Password is incorrect",
			})
			return
		}
		log.Error("failed to delete account", "user_id", userID, "err", err)
		authsdk.ErrServerError.WriteError(w)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}
