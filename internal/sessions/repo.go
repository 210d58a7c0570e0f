package sessions

import "context"

// Repo defines persistence operations for generation sessions.
type Repo interface {
	// CreateIfAbsent inserts the session unless another live session
	// with the same (user, fingerprint) already exists, in which case
	// the existing one is returned with created=false. The check and
	// insert are a single atomic step so concurrent identical
	// requests collapse to one session.
	CreateIfAbsent(ctx context.Context, session GenerationSession) (GenerationSession, bool, error)

	// Create inserts unconditionally, used by forced regeneration.
	Create(ctx context.Context, session GenerationSession) error

	GetByID(ctx context.Context, userID, sessionID string) (GenerationSession, error)
	GetByFingerprint(ctx context.Context, userID, fingerprint string) (GenerationSession, error)
	ListByUser(ctx context.Context, userID string) ([]GenerationSession, error)
	MarkDeleted(ctx context.Context, userID, sessionID string) error
}
