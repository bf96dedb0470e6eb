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

// MFAHandler handles all MFA-related endpoints.
type MFAHandler struct {
	MFAService     *service.MFAService
	AccountService *service.AccountService
}

// HandleEnroll handles POST /v1/mfa/totp/enroll
//
//	@Summary		Enroll in TOTP MFA
//	@Description	Generates a TOTP secret for the authenticated user and returns it with a provisioning URL. MFA is not enforced until a code is verified.
//	@Tags			MFA
//	@Security		BearerAuth
//	@Produce		json
//	@Success		200	{object}	authsdk.TOTPEnrollResponse	"TOTP secret and provisioning URL"
//	@Failure		400	{object}	authsdk.ErrorResponse		"MFA already enabled"
//	@Failure		401	{object}	authsdk.ErrorResponse		"Invalid or missing access token"
//	@Failure		500	{object}	authsdk.ErrorResponse		"Internal server error"
//	@Router			/v1/mfa/totp/enroll [post].
func (h *MFAHandler) HandleEnroll(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	log := slogx.FromContext(ctx)

	userID := httpx.UserIDFromCtx(ctx)
	if userID == "" {
		authsdk.ErrInvalidToken.WriteError(w)
		return
	}

	// The authenticator app label is the account email.
	profile, err := h.AccountService.GetProfile(ctx, userID)
	if err != nil {
		log.Warn("failed to load user", "user_id", userID, "err", err)
		authsdk.ErrServerError.WriteError(w)
		return
	}

	enrollData, err := h.MFAService.EnrollTOTP(ctx, userID, profile.Email)
	if err != nil {
		if errors.Is(err, service.ErrMFAAlreadyEnabled) {
			log.Warn("MFA already enabled", "user_id", userID)
			httpx.WriteJSON(w, http.StatusBadRequest, authsdk.ErrorResponse{
				Error:            "mfa_already_enabled",
				ErrorDescription: "MFA is already enabled for this user",
			})
			return
		}
		log.Error("failed to enroll TOTP", "user_id", userID, "err", err)
		authsdk.ErrServerError.WriteError(w)
		return
	}

	httpx.NoCache(w)
	httpx.WriteJSON(w, http.StatusOK, authsdk.TOTPEnrollResponse{
		Secret:  enrollData.Secret,
		QRCode:  enrollData.QRCode,
		Issuer:  enrollData.Issuer,
		Account: enrollData.Account,
	})
}

// HandleVerify handles POST /v1/mfa/totp/verify
//
//	@Summary		Verify TOTP code and enable MFA
//	@Description	Verifies a TOTP code against the pending enrollment and enables MFA. Returns backup codes, shown once.
//	@Tags			MFA
//	@Security		BearerAuth
//	@Accept			json
//	@Produce		json
//	@Param			request	body		authsdk.TOTPVerifyRequest	true	"TOTP code"
//	@Success		200		{object}	authsdk.BackupCodesResponse	"Backup codes (shown once)"
//	@Failure		400		{object}	authsdk.ErrorResponse		"Invalid TOTP code or request"
//	@Failure		401		{object}	authsdk.ErrorResponse		"Invalid or missing access token"
//	@Failure		500		{object}	authsdk.ErrorResponse		"Internal server error"
//	@Router			/v1/mfa/totp/verify [post].
func (h *MFAHandler) HandleVerify(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	log := slogx.FromContext(ctx)

	userID := httpx.UserIDFromCtx(ctx)
	if userID == "" {
		authsdk.ErrInvalidToken.WriteError(w)
		return
	}

	var req authsdk.TOTPVerifyRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		httpx.WriteJSON(w, http.StatusBadRequest, authsdk.ErrorResponse{
			Error:            "invalid_request",
			ErrorDescription: "Request body must be valid JSON",
		})
		return
	}

	backupCodes, err := h.MFAService.VerifyTOTP(ctx, userID, req.Code)
	if err != nil {
		switch {
		case errors.Is(err, service.ErrInvalidTOTPCode):
			log.Warn("invalid TOTP code", "user_id", userID)
			httpx.WriteJSON(w, http.StatusBadRequest, authsdk.ErrorResponse{
				Error:            "invalid_code",
				ErrorDescription: "Invalid TOTP code",
			})
		case errors.Is(err, service.ErrMFANotEnrolled):
			httpx.WriteJSON(w, http.StatusBadRequest, authsdk.ErrorResponse{
				Error:            "mfa_not_enrolled",
				ErrorDescription: "No pending TOTP enrollment for this user",
			})
		case errors.Is(err, service.ErrMFAAlreadyEnabled):
			httpx.WriteJSON(w, http.StatusBadRequest, authsdk.ErrorResponse{
				Error:            "mfa_already_enabled",
				ErrorDescription: "MFA is already enabled for this user",
			})
		default:
			log.Error("failed to verify TOTP", "user_id", userID, "err", err)
			authsdk.ErrServerError.WriteError(w)
		}
		return
	}

	httpx.NoCache(w)
	httpx.WriteJSON(w, http.StatusOK, authsdk.BackupCodesResponse{
		Codes: backupCodes,
	})
}

// HandleRemove handles POST /v1/mfa/totp/remove
//
//	@Summary		Remove TOTP MFA
//	@Description	Disables MFA for the user. Requires a currently valid TOTP or backup code.
//	@Tags			MFA
//	@Security		BearerAuth
//	@Accept			json
//	@Param			request	body	authsdk.TOTPRemoveRequest	true	"TOTP code for verification"
//	@Success		204		"MFA removed"
//	@Failure		400		{object}	authsdk.ErrorResponse	"Invalid TOTP code or MFA not enabled"
//	@Failure		401		{object}	authsdk.ErrorResponse	"Invalid or missing access token"
//	@Failure		500		{object}	authsdk.ErrorResponse	"Internal server error"
//	@Router			/v1/mfa/totp/remove [post].
func (h *MFAHandler) HandleRemove(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	log := slogx.FromContext(ctx)

	userID := httpx.UserIDFromCtx(ctx)
	if userID == "" {
		authsdk.ErrInvalidToken.WriteError(w)
		return
	}

	var req authsdk.TOTPRemoveRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		httpx.WriteJSON(w, http.StatusBadRequest, authsdk.ErrorResponse{
			Error:            "invalid_request",
			ErrorDescription: "Request body must be valid JSON",
		})
		return
	}

	if err := h.MFAService.RemoveMFA(ctx, userID, req.Code); err != nil {
		switch {
		case errors.Is(err, service.ErrInvalidTOTPCode):
			log.Warn("invalid TOTP code", "user_id", userID)
			httpx.WriteJSON(w, http.StatusBadRequest, authsdk.ErrorResponse{
				Error:            "invalid_code",
				ErrorDescription: "Invalid TOTP code",
			})
		case errors.Is(err, service.ErrMFANotEnabled):
			httpx.WriteJSON(w, http.StatusBadRequest, authsdk.ErrorResponse{
				Error:            "mfa_not_enabled",
				ErrorDescription: "MFA is not enabled for this user",
			})
		default:
			log.Error("failed to remove MFA", "user_id", userID, "err", err)
			authsdk.ErrServerError.WriteError(w)
		}
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

// HandleRegenerateBackupCodes handles POST /v1/mfa/backup-codes/regenerate
//
//	@Summary		Regenerate backup codes
//	@Description	Replaces all backup codes with a new set, invalidating unused codes from the old set. Requires TOTP verification.
//	@Tags			MFA
//	@Security		BearerAuth
//	@Accept			json
//	@Produce		json
//	@Param			request	body		authsdk.BackupCodesRegenerateRequest	true	"TOTP code for verification"
//	@Success		200		{object}	authsdk.BackupCodesResponse				"New backup codes (shown once)"
//	@Failure		400		{object}	authsdk.ErrorResponse					"Invalid TOTP code or MFA not enabled"
//	@Failure		401		{object}	authsdk.ErrorResponse					"Invalid or missing access token"
//	@Failure		500		{object}	authsdk.ErrorResponse					"Internal server error"
//	@Router			/v1/mfa/backup-codes/regenerate [post].
func (h *MFAHandler) HandleRegenerateBackupCodes(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	log := slogx.FromContext(ctx)

	userID := httpx.UserIDFromCtx(ctx)
	if userID == "" {
		authsdk.ErrInvalidToken.WriteError(w)
		return
	}

	var req authsdk.BackupCodesRegenerateRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		httpx.WriteJSON(w, http.StatusBadRequest, authsdk.ErrorResponse{
			Error:            "invalid_request",
			ErrorDescription: "Request body must be valid JSON",
		})
		return
	}

	backupCodes, err := h.MFAService.RegenerateBackupCodes(ctx, userID, req.Code)
	if err != nil {
		switch {
		case errors.Is(err, service.ErrInvalidTOTPCode):
			log.Warn("invalid TOTP code", "user_id", userID)
			httpx.WriteJSON(w, http.StatusBadRequest, authsdk.ErrorResponse{
				Error:            "invalid_code",
				ErrorDescription: "Invalid TOTP code",
			})
		case errors.Is(err, service.ErrMFANotEnabled):
			httpx.WriteJSON(w, http.StatusBadRequest, authsdk.ErrorResponse{
				Error:            "mfa_not_enabled",
				ErrorDescription: "MFA is not enabled for this user",
			})
		default:
			log.Error("failed to regenerate backup codes", "user_id", userID, "err", err)
			authsdk.ErrServerError.WriteError(w)
		}
		return
	}

	httpx.NoCache(w)
	httpx.WriteJSON(w, http.StatusOK, authsdk.BackupCodesResponse{
		Codes: backupCodes,
	})
}

// HandleCountBackupCodes handles GET /v1/mfa/backup-codes
//
//	@Summary		Count remaining backup codes
//	@Description	Returns how many unused backup codes remain for the user.
//	@Tags			MFA
//	@Security		BearerAuth
//	@Produce		json
//	@Success		200	{object}	authsdk.BackupCodeCountResponse	"Remaining code count"
//	@Failure		401	{object}	authsdk.ErrorResponse			"Invalid or missing access token"
//	@Failure		500	{object}	authsdk.ErrorResponse			"Internal server error"
//	@Router			/v1/mfa/backup-codes [get].
func (h *MFAHandler) HandleCountBackupCodes(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	log := slogx.FromContext(ctx)

	userID := httpx.UserIDFromCtx(ctx)
	if userID == "" {
		authsdk.ErrInvalidToken.WriteError(w)
		return
	}

	remaining, err := h.MFAService.CountBackupCodes(ctx, userID)
	if err != nil {
		log.Error("failed to count backup codes", "user_id", userID, "err", err)
		authsdk.ErrServerError.WriteError(w)
		return
	}

	httpx.NoCache(w)
	httpx.WriteJSON(w, http.StatusOK, authsdk.BackupCodeCountResponse{
		Remaining: remaining,
	})
}
