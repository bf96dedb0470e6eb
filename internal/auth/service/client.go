package service

import (
	"context"
	"errors"

	"github.com/lumilearn/lumiauth/internal/auth/domain"
	"github.com/lumilearn/lumiauth/internal/auth/store"
	"github.com/lumilearn/lumiauth/pkg/cryptox"
	"github.com/lumilearn/lumiauth/pkg/idx"
	"github.com/lumilearn/lumiauth/pkg/slogx"
)

var (
	ErrClientNotFound  = errors.New("client not found")
	ErrClientProtected = errors.New("client is protected and cannot be deleted")
	ErrNoRedirectURIs  = errors.New("client requires at least one redirect URI")
)

// ClientService manages OAuth2 client registrations.
type ClientService struct {
	Store store.Store
}

// CreateClient registers a new OAuth2 client. Confidential clients get a
// generated secret returned in plaintext exactly once; public clients
// (SPAs, mobile apps) have none and must use PKCE.
func (s *ClientService) CreateClient(
	ctx context.Context,
	name string,
	confidential bool,
	redirectURIs []string,
	scopes []string,
) (clientID string, plaintextSecret string, err error) {
	l := slogx.FromContext(ctx)

	if len(redirectURIs) == 0 {
		return "", "", ErrNoRedirectURIs
	}

	var secretHash string
	if confidential {
		secret, err := cryptox.GenerateToken(cryptox.TokenSize256)
		if err != nil {
			l.Error("failed to generate client secret", "error", err)
			return "", "", err
		}
		plaintextSecret = secret

		secretHash, err = cryptox.HashPassword(secret)
		if err != nil {
			l.Error("failed to hash client secret", "error", err)
			return "", "", err
		}
	}

	clientID = idx.New().String()

	err = s.Store.Clients().CreateClient(ctx, domain.Client{
		ID:           clientID,
		Name:         name,
		SecretHash:   secretHash,
		RedirectURIs: redirectURIs,
		Scopes:       scopes,
		Protected:    false,
	})
	if err != nil {
		l.Error("failed to create client", "error", err)
		return "", "", err
	}

	l.Info("client created", "client_id", clientID, "name", name, "has_secret", confidential)
	return clientID, plaintextSecret, nil
}

// GetClient fetches a client by ID.
func (s *ClientService) GetClient(ctx context.Context, clientID string) (domain.Client, error) {
	client, err := s.Store.Clients().GetClientByID(ctx, clientID)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return domain.Client{}, ErrClientNotFound
		}
		return domain.Client{}, err
	}
	return client, nil
}

// ListClients returns all OAuth2 clients.
func (s *ClientService) ListClients(ctx context.Context) ([]domain.Client, error) {
	return s.Store.Clients().ListClients(ctx)
}

// RotateClientSecret replaces a confidential client's secret, returning
// the new plaintext once.
func (s *ClientService) RotateClientSecret(ctx context.Context, clientID string) (string, error) {
	l := slogx.FromContext(ctx)

	client, err := s.GetClient(ctx, clientID)
	if err != nil {
		return "", err
	}
	if client.SecretHash == "" {
		return "", errors.New("public clients have no secret to rotate")
	}

	secret, err := cryptox.GenerateToken(cryptox.TokenSize256)
	if err != nil {
		return "", err
	}
	hash, err := cryptox.HashPassword(secret)
	if err != nil {
		return "", err
	}
	if err := s.Store.Clients().UpdateClientSecretHash(ctx, clientID, hash); err != nil {
		return "", err
	}

	l.Info("client secret rotated", "client_id", clientID)
	return secret, nil
}

// DeleteClient removes a client. Protected clients (the bootstrap web
// client) cannot be deleted.
func (s *ClientService) DeleteClient(ctx context.Context, clientID string) error {
	l := slogx.FromContext(ctx)

	client, err := s.Store.Clients().GetClientByID(ctx, clientID)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return ErrClientNotFound
		}
		return err
	}

	if client.Protected {
		l.Warn("attempted to delete protected client", "client_id", clientID)
		return ErrClientProtected
	}

	if err := s.Store.Clients().DeleteClient(ctx, clientID); err != nil {
		l.Error("failed to delete client", "error", err, "client_id", clientID)
		return err
	}

	l.Info("client deleted", "client_id", clientID)
	return nil
}
