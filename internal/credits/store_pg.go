package credits

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/google/uuid"
)

type pgStore struct {
	DB       *sql.DB
	Starting int
}

// NewPGStore constructs a Postgres-backed credit store. New accounts
// are seeded with startingCredits on first touch.
func NewPGStore(db *sql.DB, startingCredits int) *pgStore {
	return &pgStore{DB: db, Starting: startingCredits}
}

func (s *pgStore) Balance(ctx context.Context, userID string) (Balance, error) {
	tx, err := s.DB.BeginTx(ctx, nil)
	if err != nil {
		return Balance{}, err
	}
	defer func() {
		if err != nil {
			tx.Rollback()
		}
	}()
	b, err := s.lockAndEnsure(ctx, tx, userID)
	if err != nil {
		return Balance{}, err
	}
	if err = tx.Commit(); err != nil {
		return Balance{}, err
	}
	return b, nil
}

func (s *pgStore) Reserve(ctx context.Context, userID string, amount int, reason string) (Reservation, error) {
	tx, err := s.DB.BeginTx(ctx, nil)
	if err != nil {
		return Reservation{}, err
	}
	defer func() {
		if err != nil {
			tx.Rollback()
		}
	}()

	b, err := s.lockAndEnsure(ctx, tx, userID)
	if err != nil {
		return Reservation{}, err
	}
	if b.Available() < amount {
		err = &InsufficientCreditsError{Required: amount, Available: b.Available()}
		return Reservation{}, err
	}

	now := time.Now().UTC()
	if _, err = tx.ExecContext(ctx, `
UPDATE credit_balances SET reserved = reserved + $1, updated_at = $2 WHERE user_id = $3`,
		amount, now, userID); err != nil {
		return Reservation{}, err
	}

	res := Reservation{
		Token:     uuid.NewString(),
		UserID:    userID,
		Amount:    amount,
		Reason:    reason,
		Status:    ReservationHeld,
		CreatedAt: now,
	}
	if _, err = tx.ExecContext(ctx, `
INSERT INTO credit_reservations (token, user_id, amount, reason, status, created_at)
VALUES ($1, $2, $3, $4, $5, $6)`,
		res.Token, res.UserID, res.Amount, res.Reason, res.Status, res.CreatedAt); err != nil {
		return Reservation{}, err
	}

	if err = tx.Commit(); err != nil {
		return Reservation{}, err
	}
	return res, nil
}

func (s *pgStore) Commit(ctx context.Context, token string) error {
	return s.resolve(ctx, token, ReservationCommitted)
}

func (s *pgStore) Release(ctx context.Context, token string) error {
	return s.resolve(ctx, token, ReservationReleased)
}

func (s *pgStore) resolve(ctx context.Context, token, status string) error {
	tx, err := s.DB.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer func() {
		if err != nil {
			tx.Rollback()
		}
	}()

	var res Reservation
	row := tx.QueryRowContext(ctx, `
SELECT token, user_id, amount, reason, status
FROM credit_reservations
WHERE token = $1
FOR UPDATE`, token)
	if err = row.Scan(&res.Token, &res.UserID, &res.Amount, &res.Reason, &res.Status); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			err = ErrReservationNotFound
		}
		return err
	}
	if res.Status != ReservationHeld {
		err = ErrReservationResolved
		return err
	}

	b, err := s.lockAndEnsure(ctx, tx, res.UserID)
	if err != nil {
		return err
	}

	now := time.Now().UTC()
	b.Reserved -= res.Amount
	if status == ReservationCommitted {
		b.Balance -= res.Amount
	}
	if _, err = tx.ExecContext(ctx, `
UPDATE credit_balances SET balance = $1, reserved = $2, updated_at = $3 WHERE user_id = $4`,
		b.Balance, b.Reserved, now, res.UserID); err != nil {
		return err
	}

	if status == ReservationCommitted {
		if _, err = tx.ExecContext(ctx, `
INSERT INTO credit_ledger (user_id, amount, reason, balance_after, created_at)
VALUES ($1, $2, $3, $4, $5)`,
			res.UserID, -res.Amount, res.Reason, b.Balance, now); err != nil {
			return err
		}
	}

	if _, err = tx.ExecContext(ctx, `
UPDATE credit_reservations SET status = $1, resolved_at = $2 WHERE token = $3`,
		status, now, token); err != nil {
		return err
	}

	return tx.Commit()
}

func (s *pgStore) Grant(ctx context.Context, userID string, amount int, reason string) (Balance, error) {
	tx, err := s.DB.BeginTx(ctx, nil)
	if err != nil {
		return Balance{}, err
	}
	defer func() {
		if err != nil {
			tx.Rollback()
		}
	}()

	b, err := s.lockAndEnsure(ctx, tx, userID)
	if err != nil {
		return Balance{}, err
	}

	now := time.Now().UTC()
	b.Balance += amount
	if _, err = tx.ExecContext(ctx, `
UPDATE credit_balances SET balance = $1, updated_at = $2 WHERE user_id = $3`,
		b.Balance, now, userID); err != nil {
		return Balance{}, err
	}
	if _, err = tx.ExecContext(ctx, `
INSERT INTO credit_ledger (user_id, amount, reason, balance_after, created_at)
VALUES ($1, $2, $3, $4, $5)`,
		userID, amount, reason, b.Balance, now); err != nil {
		return Balance{}, err
	}

	if err = tx.Commit(); err != nil {
		return Balance{}, err
	}
	return b, nil
}

func (s *pgStore) Ledger(ctx context.Context, userID string, limit int) ([]LedgerEntry, error) {
	if limit <= 0 {
		limit = 20
	}
	if limit > 100 {
		limit = 100
	}
	rows, err := s.DB.QueryContext(ctx, `
SELECT id, user_id, amount, reason, balance_after, created_at
FROM credit_ledger
WHERE user_id = $1
ORDER BY created_at DESC, id DESC
LIMIT $2`, userID, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []LedgerEntry
	for rows.Next() {
		var e LedgerEntry
		if err := rows.Scan(&e.ID, &e.UserID, &e.Amount, &e.Reason, &e.BalanceAfter, &e.CreatedAt); err != nil {
			return nil, err
		}
		out = append(out, e)
	}
	return out, rows.Err()
}

// lockAndEnsure locks the balance row for the transaction, seeding a
// new account with the starting grant.
func (s *pgStore) lockAndEnsure(ctx context.Context, tx *sql.Tx, userID string) (Balance, error) {
	var b Balance
	b.UserID = userID
	row := tx.QueryRowContext(ctx, `
SELECT balance, reserved, updated_at FROM credit_balances WHERE user_id = $1 FOR UPDATE`, userID)
	err := row.Scan(&b.Balance, &b.Reserved, &b.UpdatedAt)
	if err == nil {
		return b, nil
	}
	if !errors.Is(err, sql.ErrNoRows) {
		return Balance{}, err
	}

	now := time.Now().UTC()
	b.Balance = s.Starting
	b.Reserved = 0
	b.UpdatedAt = now
	// Two first-touch transactions can race the seed insert; the loser
	// waits on the conflict, then reads the winner's row.
	res, err := tx.ExecContext(ctx, `
INSERT INTO credit_balances (user_id, balance, reserved, updated_at) VALUES ($1, $2, $3, $4)
ON CONFLICT (user_id) DO NOTHING`,
		userID, b.Balance, b.Reserved, now)
	if err != nil {
		return Balance{}, err
	}
	inserted, err := res.RowsAffected()
	if err != nil {
		return Balance{}, err
	}
	if inserted == 0 {
		row := tx.QueryRowContext(ctx, `
SELECT balance, reserved, updated_at FROM credit_balances WHERE user_id = $1 FOR UPDATE`, userID)
		if err := row.Scan(&b.Balance, &b.Reserved, &b.UpdatedAt); err != nil {
			return Balance{}, err
		}
		return b, nil
	}
	if s.Starting > 0 {
		if _, err := tx.ExecContext(ctx, `
INSERT INTO credit_ledger (user_id, amount, reason, balance_after, created_at)
VALUES ($1, $2, $3, $4, $5)`,
			userID, s.Starting, startingGrantReason, b.Balance, now); err != nil {
			return Balance{}, err
		}
	}
	return b, nil
}

var _ store = (*pgStore)(nil)
