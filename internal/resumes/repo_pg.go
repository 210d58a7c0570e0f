package resumes

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
)

// PGRepo implements Repo using Postgres.
type PGRepo struct {
	DB *sql.DB
}

// GetByID returns a resume by ID for a user.
func (r *PGRepo) GetByID(ctx context.Context, userID, resumeID string) (Resume, error) {
	const query = `
SELECT id, user_id, title, data, created_at
FROM resumes
WHERE id = $1
LIMIT 1`
	var (
		resume Resume
		raw    []byte
	)
	err := r.DB.QueryRowContext(ctx, query, resumeID).Scan(
		&resume.ID,
		&resume.UserID,
		&resume.Title,
		&raw,
		&resume.CreatedAt,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return Resume{}, ErrNotFound
		}
		return Resume{}, err
	}
	if resume.UserID != userID {
		return Resume{}, ErrForbidden
	}
	if len(raw) > 0 {
		if err := json.Unmarshal(raw, &resume.Data); err != nil {
			return Resume{}, err
		}
	}
	return resume, nil
}

var _ Repo = (*PGRepo)(nil)
