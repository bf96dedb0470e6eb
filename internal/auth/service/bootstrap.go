package service

import (
	"context"
	"errors"
	"log/slog"

	"github.com/lumilearn/lumiauth/internal/auth/domain"
	"github.com/lumilearn/lumiauth/internal/auth/store"
	"github.com/lumilearn/lumiauth/pkg/cryptox"
	"github.com/lumilearn/lumiauth/pkg/idx"
	"github.com/lumilearn/lumiauth/pkg/slogx"
)

var (
	ErrBootstrapAlready              = errors.New("system already bootstrapped")
	ErrBootstrapUnauthorized         = errors.New("unauthorized bootstrap attempt")
	ErrBootstrapFailedToCreateAdmin  = errors.New("failed to create admin user")
	ErrBootstrapFailedToCreateClient = errors.New("failed to create client")
)

// BootstrapService performs first-run initialization: platform roles, the
// initial system admin, and the default web client. Guarded by a
// pre-shared token so a freshly deployed instance cannot be claimed by a
// stranger.
type BootstrapService struct {
	Store store.Store
	Token string // Pre-configured bootstrap token
}

func (s *BootstrapService) IsBootstrapped(ctx context.Context) (bool, error) {
	userEmpty, err := s.Store.Users().IsEmpty(ctx)
	if err != nil {
		return false, err
	}
	clientEmpty, err := s.Store.Clients().IsEmpty(ctx)
	if err != nil {
		return false, err
	}
	return !userEmpty && !clientEmpty, nil
}

// Bootstrap provisions the system and returns the admin user id, client
// id and the generated client secret. The secret is shown exactly once.
func (s *BootstrapService) Bootstrap(
	ctx context.Context,
	token string,
	req domain.BootstrapData,
) (string, string, string, error) {
	var err error
	l := slogx.FromContext(ctx)

	if bootstrapped, _ := s.IsBootstrapped(ctx); bootstrapped {
		l.Warn("attempted bootstrap on already-bootstrapped system")
		return "", "", "", ErrBootstrapAlready
	}

	if token != s.Token {
		l.Warn("unauthorized bootstrap attempt")
		return "", "", "", ErrBootstrapUnauthorized
	}

	if err := validatePassword(req.AdminPassword); err != nil {
		return "", "", "", err
	}

	passHash, err := cryptox.HashPassword(req.AdminPassword)
	if err != nil {
		l.Error("failed to hash admin password", slog.Any("error", err))
		return "", "", "", ErrBootstrapFailedToCreateAdmin
	}

	clientSecret, err := cryptox.GenerateToken(cryptox.TokenSize256)
	if err != nil {
		l.Error("failed to generate client secret", slog.Any("error", err))
		return "", "", "", errors.New("failed to generate client secret")
	}

	clientSecretHash, err := cryptox.HashPassword(clientSecret)
	if err != nil {
		l.Error("failed to hash client secret", slog.Any("error", err))
		return "", "", "", errors.New("failed to hash client secret")
	}

	adminUserID := idx.New().String()
	clientID := idx.New().String()
	err = s.Store.WithTx(ctx, func(tx store.Tx) error {
		// Roles first, users reference them.
		roleIDMap := make(map[string]string)
		for _, roleDef := range req.Roles {
			roleID := idx.New().String()
			err := tx.Roles().CreateRole(ctx, domain.Role{
				ID:     roleID,
				Name:   roleDef.Name,
				Scopes: roleDef.Scopes,
			})
			if err != nil {
				l.Error("failed to create role",
					slog.String("role_name", roleDef.Name),
					slog.Any("error", err),
				)
				return errors.New("failed to create role")
			}
			roleIDMap[roleDef.Name] = roleID
		}

		adminRoleID, ok := roleIDMap[domain.RoleSystemAdmin]
		if !ok {
			l.Error("bootstrap requires the system_admin role")
			return errors.New("bootstrap must define the system_admin role")
		}

		err = tx.Users().CreateUser(ctx, domain.User{
			ID:           adminUserID,
			Email:        req.AdminEmail,
			DisplayName:  req.AdminDisplayName,
			PasswordHash: passHash,
			RoleID:       adminRoleID,
			Locale:       "en",
		})
		if err != nil {
			l.Error("failed to create admin user",
				slog.String("admin_user_id", adminUserID),
				slog.Any("error", err),
			)
			return ErrBootstrapFailedToCreateAdmin
		}

		// Confidential client, protected from deletion.
		err = tx.Clients().CreateClient(ctx, domain.Client{
			ID:           clientID,
			Name:         req.ClientName,
			SecretHash:   clientSecretHash,
			RedirectURIs: []string{req.ClientRedirectURI},
			Scopes:       req.ClientScopes,
			Protected:    true,
		})
		if err != nil {
			l.Error("failed to create client",
				slog.String("client_id", clientID),
				slog.Any("error", err),
			)
			return ErrBootstrapFailedToCreateClient
		}
		return nil
	})
	if err != nil {
		return "", "", "", err
	}

	l.Info("successfully bootstrapped system",
		slog.String("admin_user_id", adminUserID),
		slog.String("client_id", clientID),
	)
	return adminUserID, clientID, clientSecret, nil
}

// DefaultRoles is the standard LumiLearn role set used when the
// bootstrap request does not spell out its own.
func DefaultRoles() []domain.RoleDefinition {
	return []domain.RoleDefinition{
		{Name: domain.RoleStudent, Scopes: []string{"profile", "courses.read", "assignments.read", "assignments.submit"}},
		{Name: domain.RoleParent, Scopes: []string{"profile", "courses.read", "reports.read"}},
		{Name: domain.RoleTeacher, Scopes: []string{"profile", "courses.read", "courses.write", "assignments.read", "assignments.grade", "reports.read"}},
		{Name: domain.RoleDistrictAdmin, Scopes: []string{"profile", "courses.read", "courses.write", "reports.read", "users.manage"}},
		{Name: domain.RoleSystemAdmin, Scopes: []string{"profile", "courses.read", "courses.write", "assignments.read", "assignments.grade", "reports.read", "users.manage", "clients.manage", "roles.manage"}},
	}
}
