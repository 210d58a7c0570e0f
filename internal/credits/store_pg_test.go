package credits

import (
	"context"
	"database/sql"
	"errors"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
)

func balanceRows(balance, reserved int) *sqlmock.Rows {
	return sqlmock.NewRows([]string{"balance", "reserved", "updated_at"}).
		AddRow(balance, reserved, time.Now().UTC())
}

func TestPGStoreSeedsNewAccount(t *testing.T) {
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock.New: %v", err)
	}
	t.Cleanup(func() { _ = db.Close() })

	store := NewPGStore(db, 100)

	mock.ExpectBegin()
	mock.ExpectQuery("SELECT balance, reserved, updated_at FROM credit_balances").
		WithArgs("u1").
		WillReturnError(sql.ErrNoRows)
	mock.ExpectExec("INSERT INTO credit_balances").
		WithArgs("u1", 100, 0, sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec("INSERT INTO credit_ledger").
		WithArgs("u1", 100, startingGrantReason, 100, sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(1, 1))
	mock.ExpectCommit()

	b, err := store.Balance(context.Background(), "u1")
	if err != nil {
		t.Fatalf("Balance: %v", err)
	}
	if b.Balance != 100 || b.Reserved != 0 {
		t.Fatalf("unexpected seeded balance: %+v", b)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("ExpectationsWereMet: %v", err)
	}
}

func TestPGStoreSeedRaceRereadsWinnerRow(t *testing.T) {
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock.New: %v", err)
	}
	t.Cleanup(func() { _ = db.Close() })

	store := NewPGStore(db, 100)

	// The concurrent first-touch committed between our select and
	// insert: the insert affects no rows and no second starting grant
	// is written.
	mock.ExpectBegin()
	mock.ExpectQuery("SELECT balance, reserved, updated_at FROM credit_balances").
		WithArgs("u1").
		WillReturnError(sql.ErrNoRows)
	mock.ExpectExec("INSERT INTO credit_balances").
		WithArgs("u1", 100, 0, sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectQuery("SELECT balance, reserved, updated_at FROM credit_balances").
		WithArgs("u1").
		WillReturnRows(balanceRows(100, 0))
	mock.ExpectCommit()

	b, err := store.Balance(context.Background(), "u1")
	if err != nil {
		t.Fatalf("Balance: %v", err)
	}
	if b.Balance != 100 {
		t.Fatalf("unexpected balance after lost seed race: %+v", b)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("ExpectationsWereMet: %v", err)
	}
}

func TestPGStoreReserveHoldsCredits(t *testing.T) {
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock.New: %v", err)
	}
	t.Cleanup(func() { _ = db.Close() })

	store := NewPGStore(db, 100)

	mock.ExpectBegin()
	mock.ExpectQuery("SELECT balance, reserved, updated_at FROM credit_balances").
		WithArgs("u1").
		WillReturnRows(balanceRows(100, 0))
	mock.ExpectExec("UPDATE credit_balances SET reserved").
		WithArgs(5, sqlmock.AnyArg(), "u1").
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec("INSERT INTO credit_reservations").
		WithArgs(sqlmock.AnyArg(), "u1", 5, "deploy:vercel", ReservationHeld, sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(1, 1))
	mock.ExpectCommit()

	res, err := store.Reserve(context.Background(), "u1", 5, "deploy:vercel")
	if err != nil {
		t.Fatalf("Reserve: %v", err)
	}
	if res.Amount != 5 || res.Status != ReservationHeld {
		t.Fatalf("unexpected reservation: %+v", res)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("ExpectationsWereMet: %v", err)
	}
}

func TestPGStoreReserveInsufficient(t *testing.T) {
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock.New: %v", err)
	}
	t.Cleanup(func() { _ = db.Close() })

	store := NewPGStore(db, 100)

	mock.ExpectBegin()
	mock.ExpectQuery("SELECT balance, reserved, updated_at FROM credit_balances").
		WithArgs("u1").
		WillReturnRows(balanceRows(10, 8))
	mock.ExpectRollback()

	_, err = store.Reserve(context.Background(), "u1", 5, "deploy:vercel")
	if !errors.Is(err, ErrInsufficientCredits) {
		t.Fatalf("expected insufficient credits, got %v", err)
	}
	var short *InsufficientCreditsError
	if !errors.As(err, &short) || short.Available != 2 {
		t.Fatalf("unexpected shortfall detail: %v", err)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("ExpectationsWereMet: %v", err)
	}
}

func TestPGStoreCommitDebitsAndWritesLedger(t *testing.T) {
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock.New: %v", err)
	}
	t.Cleanup(func() { _ = db.Close() })

	store := NewPGStore(db, 100)

	mock.ExpectBegin()
	mock.ExpectQuery("SELECT token, user_id, amount, reason, status").
		WithArgs("tok-1").
		WillReturnRows(sqlmock.NewRows([]string{"token", "user_id", "amount", "reason", "status"}).
			AddRow("tok-1", "u1", 5, "deploy:vercel", ReservationHeld))
	mock.ExpectQuery("SELECT balance, reserved, updated_at FROM credit_balances").
		WithArgs("u1").
		WillReturnRows(balanceRows(100, 5))
	mock.ExpectExec("UPDATE credit_balances SET balance").
		WithArgs(95, 0, sqlmock.AnyArg(), "u1").
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec("INSERT INTO credit_ledger").
		WithArgs("u1", -5, "deploy:vercel", 95, sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(1, 1))
	mock.ExpectExec("UPDATE credit_reservations SET status").
		WithArgs(ReservationCommitted, sqlmock.AnyArg(), "tok-1").
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	if err := store.Commit(context.Background(), "tok-1"); err != nil {
		t.Fatalf("Commit: %v", err)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("ExpectationsWereMet: %v", err)
	}
}

func TestPGStoreReleaseSkipsLedger(t *testing.T) {
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock.New: %v", err)
	}
	t.Cleanup(func() { _ = db.Close() })

	store := NewPGStore(db, 100)

	mock.ExpectBegin()
	mock.ExpectQuery("SELECT token, user_id, amount, reason, status").
		WithArgs("tok-1").
		WillReturnRows(sqlmock.NewRows([]string{"token", "user_id", "amount", "reason", "status"}).
			AddRow("tok-1", "u1", 5, "deploy:vercel", ReservationHeld))
	mock.ExpectQuery("SELECT balance, reserved, updated_at FROM credit_balances").
		WithArgs("u1").
		WillReturnRows(balanceRows(100, 5))
	mock.ExpectExec("UPDATE credit_balances SET balance").
		WithArgs(100, 0, sqlmock.AnyArg(), "u1").
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec("UPDATE credit_reservations SET status").
		WithArgs(ReservationReleased, sqlmock.AnyArg(), "tok-1").
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	if err := store.Release(context.Background(), "tok-1"); err != nil {
		t.Fatalf("Release: %v", err)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("ExpectationsWereMet: %v", err)
	}
}
