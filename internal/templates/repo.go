package templates

import "context"

// Repo defines read operations for templates and entitlements.
type Repo interface {
	GetByID(ctx context.Context, templateID string) (Template, error)
	IsEntitled(ctx context.Context, userID, templateID string) (bool, error)
}
