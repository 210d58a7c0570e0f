package deployments

import (
	"context"
	"database/sql"
	"errors"

	"github.com/jackc/pgx/v5/pgconn"
)

// PGRepo implements Repo using Postgres. The partial unique index on
// (session_id, platform) WHERE status = 'active' is the arbiter for
// the single-active invariant under concurrency.
type PGRepo struct {
	DB *sql.DB
}

const deploymentColumns = `id, session_id, user_id, platform, status, repo_name, custom_domain, live_url, remote_ref, credits_spent, deployed_at, replaced_at`

func scanDeployment(row interface{ Scan(...any) error }) (Deployment, error) {
	var dep Deployment
	err := row.Scan(
		&dep.ID,
		&dep.SessionID,
		&dep.UserID,
		&dep.Platform,
		&dep.Status,
		&dep.RepoName,
		&dep.CustomDomain,
		&dep.LiveURL,
		&dep.RemoteRef,
		&dep.CreditsSpent,
		&dep.DeployedAt,
		&dep.ReplacedAt,
	)
	return dep, err
}

// Create appends an attempt row.
func (r *PGRepo) Create(ctx context.Context, dep Deployment) error {
	return insertDeployment(ctx, r.DB, dep)
}

type execer interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
}

func insertDeployment(ctx context.Context, db execer, dep Deployment) error {
	_, err := db.ExecContext(ctx, `
INSERT INTO deployments (id, session_id, user_id, platform, status, repo_name, custom_domain, live_url, remote_ref, credits_spent, deployed_at)
VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)`,
		dep.ID,
		dep.SessionID,
		dep.UserID,
		dep.Platform,
		dep.Status,
		dep.RepoName,
		dep.CustomDomain,
		dep.LiveURL,
		dep.RemoteRef,
		dep.CreditsSpent,
		dep.DeployedAt,
	)
	if isUniqueViolation(err) {
		return ErrConflict
	}
	return err
}

func isUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == "23505"
}

// GetActive returns the active deployment of (session, platform).
func (r *PGRepo) GetActive(ctx context.Context, sessionID, platform string) (Deployment, error) {
	dep, err := scanDeployment(r.DB.QueryRowContext(ctx, `
SELECT `+deploymentColumns+`
FROM deployments
WHERE session_id = $1 AND platform = $2 AND status = 'active'
LIMIT 1`, sessionID, platform))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return Deployment{}, ErrNotFound
		}
		return Deployment{}, err
	}
	return dep, nil
}

// ActivateSuperseding retires the prior active row and inserts the new
// one in a single transaction. A racing deploy loses either on the
// conditional UPDATE or on the partial unique index.
func (r *PGRepo) ActivateSuperseding(ctx context.Context, dep Deployment, priorID string) error {
	tx, err := r.DB.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer func() { _ = tx.Rollback() }()

	if priorID != "" {
		res, err := tx.ExecContext(ctx, `
UPDATE deployments
SET status = 'replaced', replaced_at = NOW()
WHERE id = $1 AND status = 'active'`, priorID)
		if err != nil {
			return err
		}
		affected, err := res.RowsAffected()
		if err != nil {
			return err
		}
		if affected == 0 {
			return ErrConflict
		}
	}

	if err := insertDeployment(ctx, tx, dep); err != nil {
		return err
	}
	return tx.Commit()
}

// ListBySession returns the session's history, newest first.
func (r *PGRepo) ListBySession(ctx context.Context, sessionID string) ([]Deployment, error) {
	rows, err := r.DB.QueryContext(ctx, `
SELECT `+deploymentColumns+`
FROM deployments
WHERE session_id = $1
ORDER BY deployed_at DESC`, sessionID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []Deployment
	for rows.Next() {
		dep, err := scanDeployment(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, dep)
	}
	return out, rows.Err()
}

// TotalSpent sums credits spent across the session's history.
func (r *PGRepo) TotalSpent(ctx context.Context, sessionID string) (int, error) {
	var total int
	err := r.DB.QueryRowContext(ctx, `
SELECT COALESCE(SUM(credits_spent), 0)
FROM deployments
WHERE session_id = $1`, sessionID).Scan(&total)
	return total, err
}

// MarkDeleted flips active and replaced rows of the session to deleted.
func (r *PGRepo) MarkDeleted(ctx context.Context, sessionID string) error {
	_, err := r.DB.ExecContext(ctx, `
UPDATE deployments
SET status = 'deleted'
WHERE session_id = $1 AND status IN ('active', 'replaced')`, sessionID)
	return err
}

var _ Repo = (*PGRepo)(nil)
