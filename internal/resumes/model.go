package resumes

import "time"

// Resume is a stored resume consulted by portfolio generation. The
// editing surface lives elsewhere; this service only reads it.
type Resume struct {
	ID        string
	UserID    string
	Title     string
	Data      map[string]any
	CreatedAt time.Time
}
