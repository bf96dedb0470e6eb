package http

import (
	"bytes"
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/lumilearn/lumiauth/internal/auth/domain"
	"github.com/lumilearn/lumiauth/internal/auth/service"
	"github.com/lumilearn/lumiauth/pkg/authsdk"
	"github.com/lumilearn/lumiauth/pkg/httpx"
	"github.com/lumilearn/lumiauth/pkg/slogx"
)

// WebAuthnHandler handles passkey registration, login and credential
// management. Login finish issues OAuth2 tokens directly since a passkey
// assertion satisfies both factors at once.
type WebAuthnHandler struct {
	WebAuthnService *service.WebAuthnService
	TokenService    *service.TokenService
}

// HandleRegisterBegin handles POST /v1/webauthn/register/begin
//
//	@Summary		Begin passkey registration
//	@Description	Starts adding a passkey for the authenticated user. The returned options go to navigator.credentials.create in the browser.
//	@Tags			WebAuthn
//	@Security		BearerAuth
//	@Produce		json
//	@Success		200	{object}	authsdk.WebAuthnBeginResponse	"Challenge ID and creation options"
//	@Failure		401	{object}	authsdk.ErrorResponse			"Invalid or missing access token"
//	@Failure		500	{object}	authsdk.ErrorResponse			"Internal server error"
//	@Router			/v1/webauthn/register/begin [post].
func (h *WebAuthnHandler) HandleRegisterBegin(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	log := slogx.FromContext(ctx)

	userID := httpx.UserIDFromCtx(ctx)
	if userID == "" {
		authsdk.ErrInvalidToken.WriteError(w)
		return
	}

	begin, err := h.WebAuthnService.BeginRegistration(ctx, userID)
	if err != nil {
		log.Error("failed to begin passkey registration", "user_id", userID, "err", err)
		authsdk.ErrServerError.WriteError(w)
		return
	}

	httpx.NoCache(w)
	httpx.WriteJSON(w, http.StatusOK, authsdk.WebAuthnBeginResponse{
		ChallengeID: begin.ChallengeID,
		Options:     begin.Options,
	})
}

// HandleRegisterFinish handles POST /v1/webauthn/register/finish
//
//	@Summary		Finish passkey registration
//	@Description	Validates the browser's attestation response and stores the new passkey under the given label.
//	@Tags			WebAuthn
//	@Security		BearerAuth
//	@Accept			json
//	@Produce		json
//	@Param			request	body		authsdk.WebAuthnFinishRequest	true	"Challenge ID, credential and label"
//	@Success		201		{object}	authsdk.WebAuthnCredentialInfo	"The registered passkey"
//	@Failure		400		{object}	authsdk.ErrorResponse			"Invalid ceremony or attestation rejected"
//	@Failure		401		{object}	authsdk.ErrorResponse			"Invalid or missing access token"
//	@Failure		500		{object}	authsdk.ErrorResponse			"Internal server error"
//	@Router			/v1/webauthn/register/finish [post].
func (h *WebAuthnHandler) HandleRegisterFinish(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	log := slogx.FromContext(ctx)

	userID := httpx.UserIDFromCtx(ctx)
	if userID == "" {
		authsdk.ErrInvalidToken.WriteError(w)
		return
	}

	var req authsdk.WebAuthnFinishRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		httpx.WriteJSON(w, http.StatusBadRequest, authsdk.ErrorResponse{
			Error:            "invalid_request",
			ErrorDescription: "Request body must be valid JSON",
		})
		return
	}

	record, err := h.WebAuthnService.FinishRegistration(ctx, userID, req.ChallengeID, req.Label, bytes.NewReader(req.Credential))
	if err != nil {
		switch {
		case errors.Is(err, service.ErrInvalidCeremony):
			httpx.WriteJSON(w, http.StatusBadRequest, authsdk.ErrorResponse{
				Error:            "invalid_ceremony",
				ErrorDescription: "Registration ceremony is invalid or has expired",
			})
		case errors.Is(err, service.ErrWebAuthnVerification):
			httpx.WriteJSON(w, http.StatusBadRequest, authsdk.ErrorResponse{
				Error:            "verification_failed",
				ErrorDescription: "Attestation response was rejected",
			})
		default:
			log.Error("failed to finish passkey registration", "user_id", userID, "err", err)
			authsdk.ErrServerError.WriteError(w)
		}
		return
	}

	httpx.NoCache(w)
	httpx.WriteJSON(w, http.StatusCreated, credentialInfo(record))
}

// HandleListCredentials handles GET /v1/webauthn/credentials
//
//	@Summary		List passkeys
//	@Description	Returns the user's registered passkeys.
//	@Tags			WebAuthn
//	@Security		BearerAuth
//	@Produce		json
//	@Success		200	{object}	authsdk.ListCredentialsResponse	"The registered passkeys"
//	@Failure		401	{object}	authsdk.ErrorResponse			"Invalid or missing access token"
//	@Failure		500	{object}	authsdk.ErrorResponse			"Internal server error"
//	@Router			/v1/webauthn/credentials [get].
func (h *WebAuthnHandler) HandleListCredentials(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	log := slogx.FromContext(ctx)

	userID := httpx.UserIDFromCtx(ctx)
	if userID == "" {
		authsdk.ErrInvalidToken.WriteError(w)
		return
	}

	records, err := h.WebAuthnService.ListCredentials(ctx, userID)
	if err != nil {
		log.Error("failed to list passkeys", "user_id", userID, "err", err)
		authsdk.ErrServerError.WriteError(w)
		return
	}

	credentials := make([]authsdk.WebAuthnCredentialInfo, len(records))
	for i, rec := range records {
		credentials[i] = credentialInfo(rec)
	}

	httpx.NoCache(w)
	httpx.WriteJSON(w, http.StatusOK, authsdk.ListCredentialsResponse{Credentials: credentials})
}

// HandleDeleteCredential handles DELETE /v1/webauthn/credentials/{id}
//
//	@Summary		Delete a passkey
//	@Description	Removes one of the user's registered passkeys.
//	@Tags			WebAuthn
//	@Security		BearerAuth
//	@Param			id	path	string	true	"Credential ID (ULID)"
//	@Success		204	"Passkey deleted"
//	@Failure		401	{object}	authsdk.ErrorResponse	"Invalid or missing access token"
//	@Failure		404	{object}	authsdk.ErrorResponse	"Credential not found"
//	@Failure		500	{object}	authsdk.ErrorResponse	"Internal server error"
//	@Router			/v1/webauthn/credentials/{id} [delete].
func (h *WebAuthnHandler) HandleDeleteCredential(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	log := slogx.FromContext(ctx)

	userID := httpx.UserIDFromCtx(ctx)
	if userID == "" {
		authsdk.ErrInvalidToken.WriteError(w)
		return
	}

	credentialID := r.PathValue("id")

	if err := h.WebAuthnService.DeleteCredential(ctx, userID, credentialID); err != nil {
		if errors.Is(err, service.ErrCredentialNotFound) {
			httpx.WriteJSON(w, http.StatusNotFound, authsdk.ErrorResponse{
				Error:            "credential_not_found",
				ErrorDescription: "Credential not found",
			})
			return
		}
		log.Error("failed to delete passkey", "user_id", userID, "credential_id", credentialID, "err", err)
		authsdk.ErrServerError.WriteError(w)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

// HandleLoginBegin handles POST /v1/webauthn/login/begin
//
//	@Summary		Begin passkey login
//	@Description	Starts a passkey login for the account with the given email. The returned options go to navigator.credentials.get in the browser.
//	@Tags			WebAuthn
//	@Accept			json
//	@Produce		json
//	@Param			request	body		authsdk.WebAuthnLoginBeginRequest	true	"Account email"
//	@Success		200		{object}	authsdk.WebAuthnBeginResponse		"Challenge ID and assertion options"
//	@Failure		400		{object}	authsdk.ErrorResponse				"Unknown account or no passkeys registered"
//	@Failure		500		{object}	authsdk.ErrorResponse				"Internal server error"
//	@Router			/v1/webauthn/login/begin [post].
func (h *WebAuthnHandler) HandleLoginBegin(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	log := slogx.FromContext(ctx)

	var req authsdk.WebAuthnLoginBeginRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		httpx.WriteJSON(w, http.StatusBadRequest, authsdk.ErrorResponse{
			Error:            "invalid_request",
			ErrorDescription: "Request body must be valid JSON",
		})
		return
	}

	begin, err := h.WebAuthnService.BeginLogin(ctx, req.Email)
	if err != nil {
		// One response for unknown accounts and accounts without
		// passkeys, so this endpoint cannot enumerate either.
		if errors.Is(err, service.ErrInvalidCredentials) || errors.Is(err, service.ErrNoCredentials) {
			httpx.WriteJSON(w, http.StatusBadRequest, authsdk.ErrorResponse{
				Error:            "passkey_unavailable",
				ErrorDescription: "Passkey login is not available for this account",
			})
			return
		}
		log.Error("failed to begin passkey login", "err", err)
		authsdk.ErrServerError.WriteError(w)
		return
	}

	httpx.NoCache(w)
	httpx.WriteJSON(w, http.StatusOK, authsdk.WebAuthnBeginResponse{
		ChallengeID: begin.ChallengeID,
		Options:     begin.Options,
	})
}

// HandleLoginFinish handles POST /v1/webauthn/login/finish
//
//	@Summary		Finish passkey login
//	@Description	Validates the browser's assertion and issues an OAuth2 token pair. Passkey login satisfies MFA; no OTP step follows.
//	@Tags			WebAuthn
//	@Accept			json
//	@Produce		json
//	@Param			request	body		authsdk.WebAuthnFinishRequest	true	"Challenge ID, credential and client_id"
//	@Success		200		{object}	authsdk.TokenResponse			"access_token, refresh_token, token_type, expires_in, scope"
//	@Failure		400		{object}	authsdk.ErrorResponse			"Invalid ceremony or client"
//	@Failure		401		{object}	authsdk.ErrorResponse			"Assertion rejected"
//	@Failure		500		{object}	authsdk.ErrorResponse			"Internal server error"
//	@Router			/v1/webauthn/login/finish [post].
func (h *WebAuthnHandler) HandleLoginFinish(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	log := slogx.FromContext(ctx)

	var req authsdk.WebAuthnFinishRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		httpx.WriteJSON(w, http.StatusBadRequest, authsdk.ErrorResponse{
			Error:            "invalid_request",
			ErrorDescription: "Request body must be valid JSON",
		})
		return
	}
	if req.ClientID == "" {
		httpx.WriteJSON(w, http.StatusBadRequest, authsdk.ErrorResponse{
			Error:            "invalid_request",
			ErrorDescription: "client_id is required",
		})
		return
	}

	result, err := h.WebAuthnService.FinishLogin(ctx, req.ChallengeID, bytes.NewReader(req.Credential),
		httpx.IPKeyExtractor(r), r.UserAgent())
	if err != nil {
		switch {
		case errors.Is(err, service.ErrInvalidCeremony):
			httpx.WriteJSON(w, http.StatusBadRequest, authsdk.ErrorResponse{
				Error:            "invalid_ceremony",
				ErrorDescription: "Login ceremony is invalid or has expired",
			})
		case errors.Is(err, service.ErrWebAuthnVerification):
			httpx.WriteJSON(w, http.StatusUnauthorized, authsdk.ErrorResponse{
				Error:            "verification_failed",
				ErrorDescription: "Assertion response was rejected",
			})
		default:
			log.Error("failed to finish passkey login", "err", err)
			authsdk.ErrServerError.WriteError(w)
		}
		return
	}

	pair, err := h.TokenService.IssuePasskeyTokens(ctx, result.User, req.ClientID, result.SessionID, result.AMR)
	if err != nil {
		switch {
		case errors.Is(err, service.ErrInvalidClient):
			authsdk.ErrInvalidClient.WriteError(w)
		case errors.Is(err, service.ErrInvalidScope):
			authsdk.ErrInvalidScope.WriteError(w)
		default:
			log.Error("failed to issue passkey tokens", "user_id", result.User.ID, "err", err)
			authsdk.ErrServerError.WriteError(w)
		}
		return
	}

	writeTokenResponse(w, pair.AccessToken, pair.RefreshToken, int(pair.ExpiresIn.Seconds()), pair.Scope)
}

func credentialInfo(rec domain.WebAuthnCredential) authsdk.WebAuthnCredentialInfo {
	info := authsdk.WebAuthnCredentialInfo{
		ID:        rec.ID,
		Name:      rec.Name,
		CreatedAt: rec.CreatedAt.Format(time.RFC3339),
	}
	if rec.LastUsedAt != nil {
		info.LastUsedAt = rec.LastUsedAt.Format(time.RFC3339)
	}
	return info
}
