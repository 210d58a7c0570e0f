package deployments

import "errors"

var (
	// ErrNotFound indicates the deployment or session does not exist.
	ErrNotFound = errors.New("not found")

	// ErrInvalidInput indicates validation or bad input.
	ErrInvalidInput = errors.New("invalid input")

	// ErrConflict indicates a concurrent deploy won the race for the
	// single active slot of (session, platform).
	ErrConflict = errors.New("conflict")
)
