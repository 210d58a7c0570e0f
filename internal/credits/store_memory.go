package credits

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"
)

const startingGrantReason = "starting_grant"

type memoryStore struct {
	mu           sync.Mutex
	starting     int
	balances     map[string]Balance
	reservations map[string]Reservation
	ledger       map[string][]LedgerEntry
	nextEntryID  int64
}

func newMemoryStore(startingCredits int) *memoryStore {
	return &memoryStore{
		starting:     startingCredits,
		balances:     make(map[string]Balance),
		reservations: make(map[string]Reservation),
		ledger:       make(map[string][]LedgerEntry),
	}
}

func (s *memoryStore) Balance(ctx context.Context, userID string) (Balance, error) {
	if err := ctx.Err(); err != nil {
		return Balance{}, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.ensure(userID), nil
}

func (s *memoryStore) Reserve(ctx context.Context, userID string, amount int, reason string) (Reservation, error) {
	if err := ctx.Err(); err != nil {
		return Reservation{}, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	b := s.ensure(userID)
	if b.Available() < amount {
		return Reservation{}, &InsufficientCreditsError{Required: amount, Available: b.Available()}
	}

	b.Reserved += amount
	b.UpdatedAt = time.Now().UTC()
	s.balances[userID] = b

	res := Reservation{
		Token:     uuid.NewString(),
		UserID:    userID,
		Amount:    amount,
		Reason:    reason,
		Status:    ReservationHeld,
		CreatedAt: time.Now().UTC(),
	}
	s.reservations[res.Token] = res
	return res, nil
}

func (s *memoryStore) Commit(ctx context.Context, token string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	res, ok := s.reservations[token]
	if !ok {
		return ErrReservationNotFound
	}
	if res.Status != ReservationHeld {
		return ErrReservationResolved
	}

	b := s.ensure(res.UserID)
	b.Reserved -= res.Amount
	b.Balance -= res.Amount
	b.UpdatedAt = time.Now().UTC()
	s.balances[res.UserID] = b

	s.appendEntry(res.UserID, -res.Amount, res.Reason, b.Balance)
	s.resolve(res, ReservationCommitted)
	return nil
}

func (s *memoryStore) Release(ctx context.Context, token string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	res, ok := s.reservations[token]
	if !ok {
		return ErrReservationNotFound
	}
	if res.Status != ReservationHeld {
		return ErrReservationResolved
	}

	b := s.ensure(res.UserID)
	b.Reserved -= res.Amount
	b.UpdatedAt = time.Now().UTC()
	s.balances[res.UserID] = b

	s.resolve(res, ReservationReleased)
	return nil
}

func (s *memoryStore) Grant(ctx context.Context, userID string, amount int, reason string) (Balance, error) {
	if err := ctx.Err(); err != nil {
		return Balance{}, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	b := s.ensure(userID)
	b.Balance += amount
	b.UpdatedAt = time.Now().UTC()
	s.balances[userID] = b
	s.appendEntry(userID, amount, reason, b.Balance)
	return b, nil
}

func (s *memoryStore) Ledger(ctx context.Context, userID string, limit int) ([]LedgerEntry, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	entries := s.ledger[userID]
	out := make([]LedgerEntry, 0, len(entries))
	// Stored oldest-first; return newest-first.
	for i := len(entries) - 1; i >= 0; i-- {
		out = append(out, entries[i])
		if limit > 0 && len(out) >= limit {
			break
		}
	}
	return out, nil
}

// ensure must be called with the mutex held.
func (s *memoryStore) ensure(userID string) Balance {
	if b, ok := s.balances[userID]; ok {
		return b
	}
	b := Balance{
		UserID:    userID,
		Balance:   s.starting,
		UpdatedAt: time.Now().UTC(),
	}
	s.balances[userID] = b
	if s.starting > 0 {
		s.appendEntry(userID, s.starting, startingGrantReason, b.Balance)
	}
	return b
}

func (s *memoryStore) appendEntry(userID string, amount int, reason string, balanceAfter int) {
	s.nextEntryID++
	s.ledger[userID] = append(s.ledger[userID], LedgerEntry{
		ID:           s.nextEntryID,
		UserID:       userID,
		Amount:       amount,
		Reason:       reason,
		BalanceAfter: balanceAfter,
		CreatedAt:    time.Now().UTC(),
	})
}

func (s *memoryStore) resolve(res Reservation, status string) {
	now := time.Now().UTC()
	res.Status = status
	res.ResolvedAt = &now
	s.reservations[res.Token] = res
}
