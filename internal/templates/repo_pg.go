package templates

import (
	"context"
	"database/sql"
	"errors"
)

// PGRepo implements Repo using Postgres.
type PGRepo struct {
	DB *sql.DB
}

// GetByID returns a template by ID.
func (r *PGRepo) GetByID(ctx context.Context, templateID string) (Template, error) {
	const query = `
SELECT id, name, premium, created_at
FROM templates
WHERE id = $1
LIMIT 1`
	var tpl Template
	err := r.DB.QueryRowContext(ctx, query, templateID).Scan(
		&tpl.ID,
		&tpl.Name,
		&tpl.Premium,
		&tpl.CreatedAt,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return Template{}, ErrNotFound
		}
		return Template{}, err
	}
	return tpl, nil
}

// IsEntitled reports whether the user may generate with the template.
func (r *PGRepo) IsEntitled(ctx context.Context, userID, templateID string) (bool, error) {
	tpl, err := r.GetByID(ctx, templateID)
	if err != nil {
		return false, err
	}
	if !tpl.Premium {
		return true, nil
	}
	const query = `
SELECT EXISTS (
    SELECT 1 FROM template_entitlements
    WHERE user_id = $1 AND template_id = $2
)`
	var entitled bool
	if err := r.DB.QueryRowContext(ctx, query, userID, templateID).Scan(&entitled); err != nil {
		return false, err
	}
	return entitled, nil
}

var _ Repo = (*PGRepo)(nil)
