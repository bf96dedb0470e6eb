package http

import (
	"encoding/json"
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/lumilearn/lumiauth/internal/auth/domain"
	"github.com/lumilearn/lumiauth/internal/auth/service"
	"github.com/lumilearn/lumiauth/pkg/authsdk"
	"github.com/lumilearn/lumiauth/pkg/httpx"
	"github.com/lumilearn/lumiauth/pkg/slogx"
)

// ClientsHandler handles all client management endpoints.
type ClientsHandler struct {
	ClientService *service.ClientService
}

// HandleCreate handles POST /v1/clients
//
//	@Summary		Create OAuth2 Client
//	@Description	Creates a new OAuth2 client. If confidential=true, auto-generates a secret returned once. Public clients must use PKCE.
//	@Tags			Clients
//	@Accept			json
//	@Produce		json
//	@Security		BearerAuth
//	@Param			request	body		authsdk.CreateClientRequest		true	"Client creation request"
//	@Success		201		{object}	authsdk.CreateClientResponse	"client_id and client_secret (if confidential)"
//	@Failure		400		{object}	authsdk.ErrorResponse			"error, error_description"
//	@Failure		401		{object}	authsdk.ErrorResponse			"error, error_description"
//	@Failure		403		{object}	authsdk.ErrorResponse			"error, error_description"
//	@Failure		500		{object}	authsdk.ErrorResponse			"error, error_description"
//	@Router			/v1/clients [post].
func (h *ClientsHandler) HandleCreate(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	log := slogx.FromContext(ctx)

	var req authsdk.CreateClientRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		httpx.WriteJSON(w, http.StatusBadRequest, authsdk.ErrorResponse{
			Error:            "invalid_request",
			ErrorDescription: "Invalid JSON in request body",
		})
		return
	}

	if strings.TrimSpace(req.Name) == "" {
		httpx.WriteJSON(w, http.StatusBadRequest, authsdk.ErrorResponse{
			Error:            "invalid_request",
			ErrorDescription: "Client name is required",
		})
		return
	}
	if len(req.Scopes) == 0 {
		httpx.WriteJSON(w, http.StatusBadRequest, authsdk.ErrorResponse{
			Error:            "invalid_request",
			ErrorDescription: "At least one scope is required",
		})
		return
	}

	clientID, secret, err := h.ClientService.CreateClient(
		ctx,
		req.Name,
		req.Confidential,
		req.RedirectURIs,
		req.Scopes,
	)
	if err != nil {
		if errors.Is(err, service.ErrNoRedirectURIs) {
			httpx.WriteJSON(w, http.StatusBadRequest, authsdk.ErrorResponse{
				Error:            "invalid_request",
				ErrorDescription: "At least one redirect URI is required",
			})
			return
		}
		log.Error("failed to create client", "error", err)
		httpx.WriteJSON(w, http.StatusInternalServerError, authsdk.ErrorResponse{
			Error:            "server_error",
			ErrorDescription: "Failed to create client",
		})
		return
	}

	// Secret is only returned once at creation time.
	httpx.NoCache(w)
	httpx.WriteJSON(w, http.StatusCreated, authsdk.CreateClientResponse{
		ClientID:     clientID,
		ClientSecret: secret,
	})
}

// HandleList handles GET /v1/clients
//
//	@Summary		List OAuth2 Clients
//	@Description	Returns all OAuth2 clients. Protected clients are flagged.
//	@Tags			Clients
//	@Produce		json
//	@Security		BearerAuth
//	@Success		200	{object}	authsdk.ListClientsResponse	"List of clients"
//	@Failure		401	{object}	authsdk.ErrorResponse		"error, error_description"
//	@Failure		403	{object}	authsdk.ErrorResponse		"error, error_description"
//	@Failure		500	{object}	authsdk.ErrorResponse		"error, error_description"
//	@Router			/v1/clients [get].
func (h *ClientsHandler) HandleList(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	log := slogx.FromContext(ctx)

	clients, err := h.ClientService.ListClients(ctx)
	if err != nil {
		log.Error("failed to list clients", "error", err)
		httpx.WriteJSON(w, http.StatusInternalServerError, authsdk.ErrorResponse{
			Error:            "server_error",
			ErrorDescription: "Failed to list clients",
		})
		return
	}

	clientResponses := make([]authsdk.ClientInfo, len(clients))
	for i, client := range clients {
		clientResponses[i] = clientInfo(client)
	}

	httpx.WriteJSON(w, http.StatusOK, authsdk.ListClientsResponse{
		Clients: clientResponses,
	})
}

// HandleGet handles GET /v1/clients/{id}
//
//	@Summary		Get OAuth2 Client
//	@Description	Returns a single OAuth2 client by ID.
//	@Tags			Clients
//	@Produce		json
//	@Security		BearerAuth
//	@Param			id	path		string					true	"Client ID (ULID)"
//	@Success		200	{object}	authsdk.ClientInfo		"The client"
//	@Failure		401	{object}	authsdk.ErrorResponse	"error, error_description"
//	@Failure		404	{object}	authsdk.ErrorResponse	"error, error_description"
//	@Failure		500	{object}	authsdk.ErrorResponse	"error, error_description"
//	@Router			/v1/clients/{id} [get].
func (h *ClientsHandler) HandleGet(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	log := slogx.FromContext(ctx)

	clientID := r.PathValue("id")

	client, err := h.ClientService.GetClient(ctx, clientID)
	if err != nil {
		if errors.Is(err, service.ErrClientNotFound) {
			httpx.WriteJSON(w, http.StatusNotFound, authsdk.ErrorResponse{
				Error:            "client_not_found",
				ErrorDescription: "Client not found",
			})
			return
		}
		log.Error("failed to get client", "error", err, "client_id", clientID)
		httpx.WriteJSON(w, http.StatusInternalServerError, authsdk.ErrorResponse{
			Error:            "server_error",
			ErrorDescription: "Failed to get client",
		})
		return
	}

	httpx.WriteJSON(w, http.StatusOK, clientInfo(client))
}

// HandleRotateSecret handles POST /v1/clients/{id}/rotate-secret
//
//	@Summary		Rotate client secret
//	@Description	Replaces a confidential client's secret. The new plaintext secret is returned once and never again.
//	@Tags			Clients
//	@Produce		json
//	@Security		BearerAuth
//	@Param			id	path		string							true	"Client ID (ULID)"
//	@Success		200	{object}	authsdk.CreateClientResponse	"client_id and the new client_secret"
//	@Failure		400	{object}	authsdk.ErrorResponse			"Public client has no secret"
//	@Failure		401	{object}	authsdk.ErrorResponse			"error, error_description"
//	@Failure		404	{object}	authsdk.ErrorResponse			"error, error_description"
//	@Failure		500	{object}	authsdk.ErrorResponse			"error, error_description"
//	@Router			/v1/clients/{id}/rotate-secret [post].
func (h *ClientsHandler) HandleRotateSecret(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	log := slogx.FromContext(ctx)

	clientID := r.PathValue("id")

	secret, err := h.ClientService.RotateClientSecret(ctx, clientID)
	if err != nil {
		if errors.Is(err, service.ErrClientNotFound) {
			httpx.WriteJSON(w, http.StatusNotFound, authsdk.ErrorResponse{
				Error:            "client_not_found",
				ErrorDescription: "Client not found",
			})
			return
		}
		log.Error("failed to rotate client secret", "error", err, "client_id", clientID)
		httpx.WriteJSON(w, http.StatusBadRequest, authsdk.ErrorResponse{
			Error:            "invalid_request",
			ErrorDescription: "Failed to rotate client secret",
		})
		return
	}

	httpx.NoCache(w)
	httpx.WriteJSON(w, http.StatusOK, authsdk.CreateClientResponse{
		ClientID:     clientID,
		ClientSecret: secret,
	})
}

// HandleDelete handles DELETE /v1/clients/{id}
//
//	@Summary		Delete OAuth2 Client
//	@Description	Deletes an OAuth2 client by ID. Protected clients cannot be deleted.
//	@Tags			Clients
//	@Produce		json
//	@Security		BearerAuth
//	@Param			id	path	string	true	"Client ID (ULID)"
//	@Success		204	"Client deleted successfully"
//	@Failure		401	{object}	authsdk.ErrorResponse	"error, error_description"
//	@Failure		403	{object}	authsdk.ErrorResponse	"error, error_description"
//	@Failure		404	{object}	authsdk.ErrorResponse	"error, error_description"
//	@Failure		500	{object}	authsdk.ErrorResponse	"error, error_description"
//	@Router			/v1/clients/{id} [delete].
func (h *ClientsHandler) HandleDelete(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	log := slogx.FromContext(ctx)

	clientID := r.PathValue("id")

	err := h.ClientService.DeleteClient(ctx, clientID)
	if err != nil {
		switch {
		case errors.Is(err, service.ErrClientNotFound):
			httpx.WriteJSON(w, http.StatusNotFound, authsdk.ErrorResponse{
				Error:            "client_not_found",
				ErrorDescription: "Client not found",
			})
		case errors.Is(err, service.ErrClientProtected):
			httpx.WriteJSON(w, http.StatusForbidden, authsdk.ErrorResponse{
				Error:            "client_protected",
				ErrorDescription: "Cannot delete protected client",
			})
		default:
			log.Error("failed to delete client", "error", err, "client_id", clientID)
			httpx.WriteJSON(w, http.StatusInternalServerError, authsdk.ErrorResponse{
				Error:            "server_error",
				ErrorDescription: "Failed to delete client",
			})
		}
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

func clientInfo(c domain.Client) authsdk.ClientInfo {
	return authsdk.ClientInfo{
		ID:           c.ID,
		Name:         c.Name,
		RedirectURIs: c.RedirectURIs,
		Scopes:       c.Scopes,
		HasSecret:    c.SecretHash != "",
		Protected:    c.Protected,
		CreatedAt:    c.CreatedAt.Format(time.RFC3339),
	}
}
