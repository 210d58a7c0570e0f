package credits

import "time"

// Reservation statuses.
const (
	ReservationHeld      = "held"
	ReservationCommitted = "committed"
	ReservationReleased  = "released"
)

// Balance is a user's credit position. Available credits are
// Balance - Reserved.
type Balance struct {
	UserID    string    `json:"userId"`
	Balance   int       `json:"balance"`
	Reserved  int       `json:"reserved"`
	UpdatedAt time.Time `json:"updatedAt"`
}

// Available returns the spendable portion of the balance.
func (b Balance) Available() int {
	return b.Balance - b.Reserved
}

// Reservation is a temporary hold on credits pending the outcome of an
// operation. Every reservation ends committed or released.
type Reservation struct {
	Token      string     `json:"token"`
	UserID     string     `json:"userId"`
	Amount     int        `json:"amount"`
	Reason     string     `json:"reason"`
	Status     string     `json:"status"`
	CreatedAt  time.Time  `json:"createdAt"`
	ResolvedAt *time.Time `json:"resolvedAt,omitempty"`
}

// LedgerEntry is one signed movement of a user's balance. The sum of a
// user's entries always reconciles with the current balance.
type LedgerEntry struct {
	ID           int64     `json:"id"`
	UserID       string    `json:"userId"`
	Amount       int       `json:"amount"`
	Reason       string    `json:"reason"`
	BalanceAfter int       `json:"balanceAfter"`
	CreatedAt    time.Time `json:"createdAt"`
}
