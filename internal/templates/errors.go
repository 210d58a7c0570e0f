package templates

import "errors"

// ErrNotFound indicates the template does not exist.
var ErrNotFound = errors.New("not found")
