package service

import (
	"context"

	"github.com/lumilearn/lumiauth/internal/auth/domain"
	"github.com/lumilearn/lumiauth/internal/auth/store"
)

type RolesService struct {
	Store store.Store
}

// GetRoleByID fetches a role by its ID.
func (s *RolesService) GetRoleByID(ctx context.Context, roleID string) (domain.Role, error) {
	return s.Store.Roles().GetRoleByID(ctx, roleID)
}

// GetRoleByName fetches a role by name.
func (s *RolesService) GetRoleByName(ctx context.Context, name string) (domain.Role, error) {
	return s.Store.Roles().GetRoleByName(ctx, name)
}

// ListAll returns all roles in the system.
func (s *RolesService) ListAll(ctx context.Context) ([]domain.Role, error) {
	return s.Store.Roles().ListAll(ctx)
}

// UpdateRoleScopes replaces the scope set granted by a role. Takes effect
// on the next token issued; existing access tokens keep their scopes
// until they expire.
func (s *RolesService) UpdateRoleScopes(ctx context.Context, roleID string, scopes []string) error {
	return s.Store.Roles().UpdateRoleScopes(ctx, roleID, scopes)
}
