package credits

import (
	"errors"
	"fmt"
)

var (
	// ErrInsufficientCredits indicates the available balance is below
	// the required amount. Use errors.As to read the shortfall.
	ErrInsufficientCredits = errors.New("insufficient credits")

	// ErrReservationNotFound indicates an unknown reservation token.
	ErrReservationNotFound = errors.New("reservation not found")

	// ErrReservationResolved indicates the reservation was already
	// committed or released.
	ErrReservationResolved = errors.New("reservation already resolved")
)

// InsufficientCreditsError carries the shortfall for client messages.
type InsufficientCreditsError struct {
	Required  int
	Available int
}

func (e *InsufficientCreditsError) Error() string {
	return fmt.Sprintf("insufficient credits: need %d, have %d (short %d)",
		e.Required, e.Available, e.Shortfall())
}

// Shortfall returns how many credits are missing.
func (e *InsufficientCreditsError) Shortfall() int {
	return e.Required - e.Available
}

// Is lets errors.Is(err, ErrInsufficientCredits) match.
func (e *InsufficientCreditsError) Is(target error) bool {
	return target == ErrInsufficientCredits
}
