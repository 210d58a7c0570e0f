package sessions

import "errors"

var (
	// ErrNotFound indicates the session does not exist.
	ErrNotFound = errors.New("not found")

	// ErrInvalidInput indicates validation or bad input, including
	// resume/template references that do not resolve.
	ErrInvalidInput = errors.New("invalid input")

	// ErrForbidden indicates the template is not entitled to the user.
	ErrForbidden = errors.New("forbidden")
)
