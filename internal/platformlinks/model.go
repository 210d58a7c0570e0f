package platformlinks

import "time"

// Known hosting platforms.
const (
	PlatformGitHub  = "github"
	PlatformVercel  = "vercel"
	PlatformNetlify = "netlify"
)

// KnownPlatform reports whether name is a supported hosting platform.
func KnownPlatform(name string) bool {
	switch name {
	case PlatformGitHub, PlatformVercel, PlatformNetlify:
		return true
	default:
		return false
	}
}

// PlatformLink is a user's stored credential for one hosting platform.
// The deployment core consults links but never mutates them.
type PlatformLink struct {
	UserID      string    `json:"userId"`
	Platform    string    `json:"platform"`
	AccessToken string    `json:"-"`
	LinkedAt    time.Time `json:"linkedAt"`
}
