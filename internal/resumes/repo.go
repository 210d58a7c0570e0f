package resumes

import "context"

// Repo defines read operations for stored resumes.
type Repo interface {
	GetByID(ctx context.Context, userID, resumeID string) (Resume, error)
}
