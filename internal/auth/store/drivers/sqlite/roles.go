package sqlite

import (
	"context"
	"database/sql"
	"time"

	"github.com/lumilearn/lumiauth/internal/auth/domain"
)

type rolesRepo struct {
	db dbtx
}

func scanRole(row *sql.Row) (domain.Role, error) {
	var r domain.Role
	var scopes string
	if err := row.Scan(&r.ID, &r.Name, &scopes, &r.CreatedAt, &r.UpdatedAt); err != nil {
		return domain.Role{}, mapNotFound(err)
	}
	r.Scopes = splitAndFilter(scopes)
	return r, nil
}

func (r *rolesRepo) GetRoleByID(ctx context.Context, id string) (domain.Role, error) {
	return scanRole(r.db.QueryRowContext(ctx,
		`SELECT id, name, scopes, created_at, updated_at FROM roles WHERE id = ?`, id))
}

func (r *rolesRepo) GetRoleByName(ctx context.Context, name string) (domain.Role, error) {
	return scanRole(r.db.QueryRowContext(ctx,
		`SELECT id, name, scopes, created_at, updated_at FROM roles WHERE name = ?`, name))
}

func (r *rolesRepo) ListAll(ctx context.Context) ([]domain.Role, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT id, name, scopes, created_at, updated_at FROM roles ORDER BY name`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []domain.Role
	for rows.Next() {
		var role domain.Role
		var scopes string
		if err := rows.Scan(&role.ID, &role.Name, &scopes, &role.CreatedAt, &role.UpdatedAt); err != nil {
			return nil, err
		}
		role.Scopes = splitAndFilter(scopes)
		out = append(out, role)
	}
	return out, rows.Err()
}

func (r *rolesRepo) CreateRole(ctx context.Context, role domain.Role) error {
	now := time.Now().UTC()
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO roles (id, name, scopes, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?)`,
		role.ID, role.Name, joinFields(role.Scopes), now, now,
	)
	return mapConstraint(err)
}

func (r *rolesRepo) UpdateRoleScopes(ctx context.Context, roleID string, scopes []string) error {
	_, err := r.db.ExecContext(ctx, `
		UPDATE roles SET scopes = ?, updated_at = ? WHERE id = ?`,
		joinFields(scopes), time.Now().UTC(), roleID,
	)
	return err
}

func (r *rolesRepo) DeleteRole(ctx context.Context, roleID string) error {
	// The users.role_id FK makes this fail while users still hold the role.
	_, err := r.db.ExecContext(ctx, `DELETE FROM roles WHERE id = ?`, roleID)
	return err
}

func (r *rolesRepo) IsEmpty(ctx context.Context) (bool, error) {
	var count int64
	if err := r.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM roles`).Scan(&count); err != nil {
		return false, err
	}
	return count == 0, nil
}
