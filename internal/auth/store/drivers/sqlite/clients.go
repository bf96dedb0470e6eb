package sqlite

import (
	"context"
	"database/sql"
	"time"

	"github.com/lumilearn/lumiauth/internal/auth/domain"
)

type clientsRepo struct {
	db dbtx
}

const clientColumns = `id, name, secret_hash, redirect_uris, scopes, protected, created_at, updated_at`

func scanClient(row *sql.Row) (domain.Client, error) {
	var c domain.Client
	var secretHash sql.NullString
	var redirectURIs, scopes string

	err := row.Scan(&c.ID, &c.Name, &secretHash, &redirectURIs, &scopes,
		&c.Protected, &c.CreatedAt, &c.UpdatedAt)
	if err != nil {
		return domain.Client{}, mapNotFound(err)
	}

	c.SecretHash = mapNullString(secretHash)
	c.RedirectURIs = splitAndFilter(redirectURIs)
	c.Scopes = splitAndFilter(scopes)
	return c, nil
}

func (r *clientsRepo) GetClientByID(ctx context.Context, id string) (domain.Client, error) {
	return scanClient(r.db.QueryRowContext(ctx,
		`SELECT `+clientColumns+` FROM clients WHERE id = ?`, id))
}

func (r *clientsRepo) ListClients(ctx context.Context) ([]domain.Client, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT `+clientColumns+` FROM clients ORDER BY created_at DESC`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []domain.Client
	for rows.Next() {
		var c domain.Client
		var secretHash sql.NullString
		var redirectURIs, scopes string
		if err := rows.Scan(&c.ID, &c.Name, &secretHash, &redirectURIs, &scopes,
			&c.Protected, &c.CreatedAt, &c.UpdatedAt); err != nil {
			return nil, err
		}
		c.SecretHash = mapNullString(secretHash)
		c.RedirectURIs = splitAndFilter(redirectURIs)
		c.Scopes = splitAndFilter(scopes)
		out = append(out, c)
	}
	return out, rows.Err()
}

func (r *clientsRepo) CreateClient(ctx context.Context, c domain.Client) error {
	now := time.Now().UTC()
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO clients (id, name, secret_hash, redirect_uris, scopes, protected, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		c.ID, c.Name, mapStringNull(c.SecretHash), joinFields(c.RedirectURIs),
		joinFields(c.Scopes), c.Protected, now, now,
	)
	return mapConstraint(err)
}

func (r *clientsRepo) UpdateClientSecretHash(ctx context.Context, clientID, secretHash string) error {
	_, err := r.db.ExecContext(ctx, `
		UPDATE clients SET secret_hash = ?, updated_at = ? WHERE id = ?`,
		mapStringNull(secretHash), time.Now().UTC(), clientID,
	)
	return err
}

func (r *clientsRepo) UpdateClientScopes(ctx context.Context, clientID string, scopes []string) error {
	_, err := r.db.ExecContext(ctx, `
		UPDATE clients SET scopes = ?, updated_at = ? WHERE id = ?`,
		joinFields(scopes), time.Now().UTC(), clientID,
	)
	return err
}

func (r *clientsRepo) UpdateClientName(ctx context.Context, clientID, name string) error {
	_, err := r.db.ExecContext(ctx, `
		UPDATE clients SET name = ?, updated_at = ? WHERE id = ?`,
		name, time.Now().UTC(), clientID,
	)
	return err
}

func (r *clientsRepo) DeleteClient(ctx context.Context, clientID string) error {
	_, err := r.db.ExecContext(ctx, `DELETE FROM clients WHERE id = ? AND protected = 0`, clientID)
	return err
}

func (r *clientsRepo) IsEmpty(ctx context.Context) (bool, error) {
	var count int64
	if err := r.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM clients`).Scan(&count); err != nil {
		return false, err
	}
	return count == 0, nil
}
