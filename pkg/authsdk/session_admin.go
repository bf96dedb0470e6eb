package authsdk

import (
	"context"
	"net/http"
)

// Admin operations for managing OAuth2 clients and roles. All require
// the corresponding management scope, which the default role set grants
// only to system admins.

// CreateClient registers a new OAuth2 client.
// Requires: clients.manage scope.
func (s *Session) CreateClient(ctx context.Context, req CreateClientRequest) (*CreateClientResponse, error) {
	resp, err := s.doAuthJSON(ctx, http.MethodPost, "/v1/clients", req, "clients.manage")
	if err != nil {
		return nil, err
	}

	var created CreateClientResponse
	if err := decodeJSON(resp, &created, http.StatusCreated); err != nil {
		return nil, err
	}

	return &created, nil
}

// ListClients lists all registered OAuth2 clients.
// Requires: clients.manage scope.
func (s *Session) ListClients(ctx context.Context) (*ListClientsResponse, error) {
	resp, err := s.doAuthRequest(ctx, http.MethodGet, "/v1/clients", nil, nil, "clients.manage")
	if err != nil {
		return nil, err
	}

	var clients ListClientsResponse
	if err := decodeJSON(resp, &clients, http.StatusOK); err != nil {
		return nil, err
	}

	return &clients, nil
}

// GetClient fetches a single OAuth2 client by ID.
// Requires: clients.manage scope.
func (s *Session) GetClient(ctx context.Context, clientID string) (*ClientInfo, error) {
	resp, err := s.doAuthRequest(ctx, http.MethodGet, "/v1/clients/"+clientID, nil, nil, "clients.manage")
	if err != nil {
		return nil, err
	}

	var client ClientInfo
	if err := decodeJSON(resp, &client, http.StatusOK); err != nil {
		return nil, err
	}

	return &client, nil
}

// RotateClientSecret replaces a confidential client's secret. The new
// plaintext secret is returned once and never again.
// Requires: clients.manage scope.
func (s *Session) RotateClientSecret(ctx context.Context, clientID string) (*CreateClientResponse, error) {
	resp, err := s.doAuthRequest(ctx, http.MethodPost, "/v1/clients/"+clientID+"/rotate-secret", nil, nil, "clients.manage")
	if err != nil {
		return nil, err
	}

	var rotated CreateClientResponse
	if err := decodeJSON(resp, &rotated, http.StatusOK); err != nil {
		return nil, err
	}

	return &rotated, nil
}

// DeleteClient removes an OAuth2 client. Protected clients, such as the
// one created at bootstrap, cannot be deleted.
// Requires: clients.manage scope.
func (s *Session) DeleteClient(ctx context.Context, clientID string) error {
	resp, err := s.doAuthRequest(ctx, http.MethodDelete, "/v1/clients/"+clientID, nil, nil, "clients.manage")
	if err != nil {
		return err
	}
	return checkStatusNoContent(resp)
}

// ListRoles lists all roles and their scope grants.
// Requires: roles.manage scope.
func (s *Session) ListRoles(ctx context.Context) (*ListRolesResponse, error) {
	resp, err := s.doAuthRequest(ctx, http.MethodGet, "/v1/roles", nil, nil, "roles.manage")
	if err != nil {
		return nil, err
	}

	var roles ListRolesResponse
	if err := decodeJSON(resp, &roles, http.StatusOK); err != nil {
		return nil, err
	}

	return &roles, nil
}
