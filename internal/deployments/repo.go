package deployments

import "context"

// Repo defines persistence operations for the deployment history.
type Repo interface {
	// Create appends an attempt row, used for failed attempts.
	Create(ctx context.Context, dep Deployment) error

	// GetActive returns the single active deployment of a session on a
	// platform, or ErrNotFound.
	GetActive(ctx context.Context, sessionID, platform string) (Deployment, error)

	// ActivateSuperseding inserts dep as active and, when priorID is
	// set, marks the prior row replaced in the same atomic step. It
	// fails with ErrConflict when the prior row is no longer active or
	// another active row already holds the slot.
	ActivateSuperseding(ctx context.Context, dep Deployment, priorID string) error

	// ListBySession returns a session's history, newest first.
	ListBySession(ctx context.Context, sessionID string) ([]Deployment, error)

	// TotalSpent sums credits_spent across a session's history.
	TotalSpent(ctx context.Context, sessionID string) (int, error)

	// MarkDeleted flips every non-terminal row of a session to deleted.
	MarkDeleted(ctx context.Context, sessionID string) error
}
