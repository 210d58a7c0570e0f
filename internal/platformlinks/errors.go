package platformlinks

import "errors"

// ErrNotLinked indicates the user has no credential for the platform.
var ErrNotLinked = errors.New("platform not linked")
