package templates

import "time"

// Template is a portfolio site template. Premium templates require a
// per-user entitlement before they can be used for generation.
type Template struct {
	ID        string
	Name      string
	Premium   bool
	CreatedAt time.Time
}
