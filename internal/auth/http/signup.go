package http

import (
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/lumilearn/lumiauth/internal/auth/service"
	"github.com/lumilearn/lumiauth/pkg/authsdk"
	"github.com/lumilearn/lumiauth/pkg/httpx"
	"github.com/lumilearn/lumiauth/pkg/slogx"
)

// SignupHandler handles self-service account registration.
type SignupHandler struct {
	AccountService *service.AccountService
}

// ServeHTTP handles POST /v1/signup
//
//	@Summary		Register a new account
//	@Description	Creates a student or parent account. Teacher and admin accounts are provisioned by administrators.
//	@Tags			Accounts
//	@Accept			json
//	@Produce		json
//	@Param			request	body		authsdk.SignupRequest	true	"Account details"
//	@Success		201		{object}	authsdk.ProfileResponse	"The created profile"
//	@Failure		400		{object}	authsdk.ErrorResponse	"Invalid email, weak password or invalid role"
//	@Failure		409		{object}	authsdk.ErrorResponse	"Email already registered"
//	@Failure		500		{object}	authsdk.ErrorResponse	"Internal server error"
//	@Router			/v1/signup [post].
func (h *SignupHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	log := slogx.FromContext(ctx)

	var req authsdk.SignupRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		httpx.WriteJSON(w, http.StatusBadRequest, authsdk.ErrorResponse{
			Error:            "invalid_request",
			ErrorDescription: "Request body must be valid JSON",
		})
		return
	}

	profile, err := h.AccountService.Signup(ctx, service.SignupRequest{
		Email:       req.Email,
		Password:    req.Password,
		DisplayName: req.DisplayName,
		Role:        req.Role,
		Locale:      req.Locale,
	})
	if err != nil {
		switch {
		case errors.Is(err, service.ErrInvalidEmail):
			httpx.WriteJSON(w, http.StatusBadRequest, authsdk.ErrorResponse{
				Error:            "invalid_email",
				ErrorDescription: "A valid email address is required",
			})
		case errors.Is(err, service.ErrWeakPassword):
			httpx.WriteJSON(w, http.StatusBadRequest, authsdk.ErrorResponse{
				Error:            "weak_password",
				ErrorDescription: "Password must be at least 8 characters",
			})
		case errors.Is(err, service.ErrInvalidRole):
			httpx.WriteJSON(w, http.StatusBadRequest, authsdk.ErrorResponse{
				Error:            "invalid_role",
				ErrorDescription: "Role must be 'student' or 'parent'",
			})
		case errors.Is(err, service.ErrEmailTaken):
			httpx.WriteJSON(w, http.StatusConflict, authsdk.ErrorResponse{
				Error:            "email_taken",
				ErrorDescription: "An account with this email already exists",
			})
		default:
			log.Error("signup failed", "error", err)
			authsdk.ErrServerError.WriteError(w)
		}
		return
	}

	httpx.NoCache(w)
	httpx.WriteJSON(w, http.StatusCreated, profileResponse(profile))
}

func profileResponse(p service.Profile) authsdk.ProfileResponse {
	return authsdk.ProfileResponse{
		ID:          p.ID,
		Email:       p.Email,
		DisplayName: p.DisplayName,
		Role:        p.Role,
		Locale:      p.Locale,
		MFAEnabled:  p.MFAEnabled,
		CreatedAt:   p.CreatedAt.Format(time.RFC3339),
		UpdatedAt:   p.UpdatedAt.Format(time.RFC3339),
	}
}
