package sessions

import "time"

// Session statuses.
const (
	StatusPending   = "pending"
	StatusGenerated = "generated"
)

// GenerationSession is the unit of one generated portfolio artifact,
// identified by its fingerprint. Once generated it never changes; a
// forced regeneration creates a sibling session with a fresh id.
type GenerationSession struct {
	ID          string
	UserID      string
	ResumeID    string
	TemplateID  string
	Options     map[string]string
	Fingerprint string
	Status      string
	BundleKey   string
	PreviewHTML string
	CreatedAt   time.Time
	DeletedAt   *time.Time
}
