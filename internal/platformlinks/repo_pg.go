package platformlinks

import (
	"context"
	"database/sql"
	"errors"
)

// PGRepo implements Repo using Postgres.
type PGRepo struct {
	DB *sql.DB
}

// Get returns the link for a user and platform.
func (r *PGRepo) Get(ctx context.Context, userID, platform string) (PlatformLink, error) {
	const query = `
SELECT user_id, platform, access_token, linked_at
FROM platform_links
WHERE user_id = $1 AND platform = $2
LIMIT 1`
	var link PlatformLink
	err := r.DB.QueryRowContext(ctx, query, userID, platform).Scan(
		&link.UserID,
		&link.Platform,
		&link.AccessToken,
		&link.LinkedAt,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return PlatformLink{}, ErrNotLinked
		}
		return PlatformLink{}, err
	}
	return link, nil
}

// ListByUser returns all links for a user ordered by platform name.
func (r *PGRepo) ListByUser(ctx context.Context, userID string) ([]PlatformLink, error) {
	const query = `
SELECT user_id, platform, access_token, linked_at
FROM platform_links
WHERE user_id = $1
ORDER BY platform`
	rows, err := r.DB.QueryContext(ctx, query, userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []PlatformLink
	for rows.Next() {
		var link PlatformLink
		if err := rows.Scan(&link.UserID, &link.Platform, &link.AccessToken, &link.LinkedAt); err != nil {
			return nil, err
		}
		out = append(out, link)
	}
	return out, rows.Err()
}

// Upsert stores or replaces a link.
func (r *PGRepo) Upsert(ctx context.Context, link PlatformLink) error {
	const query = `
INSERT INTO platform_links (user_id, platform, access_token, linked_at)
VALUES ($1, $2, $3, $4)
ON CONFLICT (user_id, platform) DO UPDATE SET access_token = EXCLUDED.access_token, linked_at = EXCLUDED.linked_at`
	_, err := r.DB.ExecContext(ctx, query, link.UserID, link.Platform, link.AccessToken, link.LinkedAt)
	return err
}

var _ Repo = (*PGRepo)(nil)
