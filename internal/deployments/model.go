package deployments

import "time"

// Deployment statuses. History is append-only: rows move from pending
// to a terminal state and are never rewritten into another attempt.
const (
	StatusPending  = "pending"
	StatusActive   = "active"
	StatusReplaced = "replaced"
	StatusFailed   = "failed"
	StatusDeleted  = "deleted"
)

// Deployment records one deploy attempt of a session to a platform.
// At most one row per (session, platform) is active at a time.
type Deployment struct {
	ID           string
	SessionID    string
	UserID       string
	Platform     string
	Status       string
	RepoName     string
	CustomDomain string
	LiveURL      string
	RemoteRef    string
	CreditsSpent int
	DeployedAt   time.Time
	ReplacedAt   *time.Time
}
