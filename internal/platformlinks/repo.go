package platformlinks

import "context"

// Repo defines persistence operations for platform links.
type Repo interface {
	Get(ctx context.Context, userID, platform string) (PlatformLink, error)
	ListByUser(ctx context.Context, userID string) ([]PlatformLink, error)
	Upsert(ctx context.Context, link PlatformLink) error
}
