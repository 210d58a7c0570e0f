package sessions

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

const sessionColumns = `id, user_id, resume_id, template_id, options, fingerprint, status, bundle_key, preview_html, created_at, deleted_at`

func scanSession(row interface{ Scan(...any) error }) (GenerationSession, error) {
	var (
		s       GenerationSession
		rawOpts []byte
	)
	err := row.Scan(
		&s.ID,
		&s.UserID,
		&s.ResumeID,
		&s.TemplateID,
		&rawOpts,
		&s.Fingerprint,
		&s.Status,
		&s.BundleKey,
		&s.PreviewHTML,
		&s.CreatedAt,
		&s.DeletedAt,
	)
	if err != nil {
		return GenerationSession{}, err
	}
	if len(rawOpts) > 0 {
		if err := json.Unmarshal(rawOpts, &s.Options); err != nil {
			return GenerationSession{}, err
		}
	}
	return s, nil
}

// CreateIfAbsent serializes racing identical requests with an advisory
// lock on the fingerprint, then checks and inserts inside one
// transaction.
func (r *PGRepo) CreateIfAbsent(ctx context.Context, session GenerationSession) (GenerationSession, bool, error) {
	tx, err := r.DB.BeginTx(ctx, nil)
	if err != nil {
		return GenerationSession{}, false, err
	}
	defer func() { _ = tx.Rollback() }()

	if _, err := tx.ExecContext(ctx,
		`SELECT pg_advisory_xact_lock(hashtext($1))`,
		session.UserID+"\x00"+session.Fingerprint,
	); err != nil {
		return GenerationSession{}, false, err
	}

	existing, err := scanSession(tx.QueryRowContext(ctx, `
SELECT `+sessionColumns+`
FROM generation_sessions
WHERE user_id = $1 AND fingerprint = $2 AND deleted_at IS NULL
ORDER BY created_at DESC
LIMIT 1`, session.UserID, session.Fingerprint))
	if err == nil {
		if cerr := tx.Commit(); cerr != nil {
			return GenerationSession{}, false, cerr
		}
		return existing, false, nil
	}
	if !errors.Is(err, sql.ErrNoRows) {
		return GenerationSession{}, false, err
	}

	if err := insertSession(ctx, tx, session); err != nil {
		return GenerationSession{}, false, err
	}
	if err := tx.Commit(); err != nil {
		return GenerationSession{}, false, err
	}
	return session, true, nil
}

// Create inserts unconditionally, used by forced regeneration.
func (r *PGRepo) Create(ctx context.Context, session GenerationSession) error {
	return insertSession(ctx, r.DB, session)
}

type execer interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
}

func insertSession(ctx context.Context, db execer, session GenerationSession) error {
	rawOpts, err := json.Marshal(session.Options)
	if err != nil {
		return err
	}
	_, err = db.ExecContext(ctx, `
INSERT INTO generation_sessions (id, user_id, resume_id, template_id, options, fingerprint, status, bundle_key, preview_html, created_at)
VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)`,
		session.ID,
		session.UserID,
		session.ResumeID,
		session.TemplateID,
		rawOpts,
		session.Fingerprint,
		session.Status,
		session.BundleKey,
		session.PreviewHTML,
		session.CreatedAt,
	)
	return err
}

// GetByID returns a live session by ID for a user.
func (r *PGRepo) GetByID(ctx context.Context, userID, sessionID string) (GenerationSession, error) {
	session, err := scanSession(r.DB.QueryRowContext(ctx, `
SELECT `+sessionColumns+`
FROM generation_sessions
WHERE id = $1 AND user_id = $2 AND deleted_at IS NULL
LIMIT 1`, sessionID, userID))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return GenerationSession{}, ErrNotFound
		}
		return GenerationSession{}, err
	}
	return session, nil
}

// GetByFingerprint returns the newest live session for (user, fingerprint).
func (r *PGRepo) GetByFingerprint(ctx context.Context, userID, fingerprint string) (GenerationSession, error) {
	session, err := scanSession(r.DB.QueryRowContext(ctx, `
SELECT `+sessionColumns+`
FROM generation_sessions
WHERE user_id = $1 AND fingerprint = $2 AND deleted_at IS NULL
ORDER BY created_at DESC
LIMIT 1`, userID, fingerprint))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return GenerationSession{}, ErrNotFound
		}
		return GenerationSession{}, err
	}
	return session, nil
}

// ListByUser returns the user's live sessions, newest first.
func (r *PGRepo) ListByUser(ctx context.Context, userID string) ([]GenerationSession, error) {
	rows, err := r.DB.QueryContext(ctx, `
SELECT `+sessionColumns+`
FROM generation_sessions
WHERE user_id = $1 AND deleted_at IS NULL
ORDER BY created_at DESC`, userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []GenerationSession
	for rows.Next() {
		session, err := scanSession(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, session)
	}
	return out, rows.Err()
}

// MarkDeleted soft-deletes the session.
func (r *PGRepo) MarkDeleted(ctx context.Context, userID, sessionID string) error {
	res, err := r.DB.ExecContext(ctx, `
UPDATE generation_sessions
SET deleted_at = NOW()
WHERE id = $1 AND user_id = $2 AND deleted_at IS NULL`, sessionID, userID)
	if err != nil {
		return err
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if affected == 0 {
		return ErrNotFound
	}
	return nil
}

var _ Repo = (*PGRepo)(nil)
