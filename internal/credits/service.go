package credits

import "context"

type store interface {
	Balance(ctx context.Context, userID string) (Balance, error)
	Reserve(ctx context.Context, userID string, amount int, reason string) (Reservation, error)
	Commit(ctx context.Context, token string) error
	Release(ctx context.Context, token string) error
	Grant(ctx context.Context, userID string, amount int, reason string) (Balance, error)
	Ledger(ctx context.Context, userID string, limit int) ([]LedgerEntry, error)
}

// Service is the credit ledger client. Charging is two-phase: the
// orchestrator reserves before a platform call and commits only after
// the call confirms success, releasing otherwise.
type Service struct {
	store store
}

// NewService constructs a Service with an in-memory store.
func NewService(startingCredits int) *Service {
	return &Service{store: newMemoryStore(startingCredits)}
}

// NewPostgresService constructs a Service backed by Postgres.
func NewPostgresService(pgStore store) *Service {
	return &Service{store: pgStore}
}

// Balance returns the user's current position, seeding a new account
// with the starting grant if absent.
func (s *Service) Balance(ctx context.Context, userID string) (Balance, error) {
	return s.store.Balance(ctx, userID)
}

// Reserve places a hold of amount credits. Fails with
// ErrInsufficientCredits when the available balance is below amount.
func (s *Service) Reserve(ctx context.Context, userID string, amount int, reason string) (Reservation, error) {
	return s.store.Reserve(ctx, userID, amount, reason)
}

// Commit debits a held reservation and writes a ledger entry.
func (s *Service) Commit(ctx context.Context, token string) error {
	return s.store.Commit(ctx, token)
}

// Release drops a held reservation without debiting.
func (s *Service) Release(ctx context.Context, token string) error {
	return s.store.Release(ctx, token)
}

// Grant credits the user's balance and writes a ledger entry.
func (s *Service) Grant(ctx context.Context, userID string, amount int, reason string) (Balance, error) {
	return s.store.Grant(ctx, userID, amount, reason)
}

// Ledger returns recent ledger entries, newest first.
func (s *Service) Ledger(ctx context.Context, userID string, limit int) ([]LedgerEntry, error) {
	return s.store.Ledger(ctx, userID, limit)
}
