package credits

import (
	"context"
	"errors"
	"testing"
)

func TestBalanceSeedsStartingGrant(t *testing.T) {
	svc := NewService(100)
	ctx := context.Background()

	b, err := svc.Balance(ctx, "u1")
	if err != nil {
		t.Fatalf("balance: %v", err)
	}
	if b.Balance != 100 || b.Reserved != 0 || b.Available() != 100 {
		t.Fatalf("unexpected seeded balance: %+v", b)
	}

	entries, err := svc.Ledger(ctx, "u1", 10)
	if err != nil {
		t.Fatalf("ledger: %v", err)
	}
	if len(entries) != 1 || entries[0].Reason != "starting_grant" || entries[0].Amount != 100 {
		t.Fatalf("expected starting grant entry, got %+v", entries)
	}
}

func TestReserveCommitDebits(t *testing.T) {
	svc := NewService(100)
	ctx := context.Background()

	res, err := svc.Reserve(ctx, "u1", 5, "deploy:vercel")
	if err != nil {
		t.Fatalf("reserve: %v", err)
	}

	b, _ := svc.Balance(ctx, "u1")
	if b.Balance != 100 || b.Reserved != 5 || b.Available() != 95 {
		t.Fatalf("unexpected held balance: %+v", b)
	}

	if err := svc.Commit(ctx, res.Token); err != nil {
		t.Fatalf("commit: %v", err)
	}
	b, _ = svc.Balance(ctx, "u1")
	if b.Balance != 95 || b.Reserved != 0 {
		t.Fatalf("unexpected committed balance: %+v", b)
	}

	entries, _ := svc.Ledger(ctx, "u1", 1)
	if len(entries) != 1 || entries[0].Amount != -5 || entries[0].BalanceAfter != 95 {
		t.Fatalf("expected debit entry, got %+v", entries)
	}
}

func TestReserveReleaseLeavesBalanceUntouched(t *testing.T) {
	svc := NewService(100)
	ctx := context.Background()

	res, err := svc.Reserve(ctx, "u1", 5, "deploy:vercel")
	if err != nil {
		t.Fatalf("reserve: %v", err)
	}
	if err := svc.Release(ctx, res.Token); err != nil {
		t.Fatalf("release: %v", err)
	}

	b, _ := svc.Balance(ctx, "u1")
	if b.Balance != 100 || b.Reserved != 0 {
		t.Fatalf("release changed balance: %+v", b)
	}

	// No debit entry was written.
	entries, _ := svc.Ledger(ctx, "u1", 10)
	if len(entries) != 1 {
		t.Fatalf("release wrote ledger entries: %+v", entries)
	}
}

func TestReserveCountsHeldCredits(t *testing.T) {
	svc := NewService(10)
	ctx := context.Background()

	if _, err := svc.Reserve(ctx, "u1", 7, "deploy:vercel"); err != nil {
		t.Fatalf("reserve: %v", err)
	}

	_, err := svc.Reserve(ctx, "u1", 5, "deploy:github")
	if !errors.Is(err, ErrInsufficientCredits) {
		t.Fatalf("expected insufficient credits, got %v", err)
	}
	var short *InsufficientCreditsError
	if !errors.As(err, &short) {
		t.Fatalf("expected typed error, got %T", err)
	}
	if short.Required != 5 || short.Available != 3 || short.Shortfall() != 2 {
		t.Fatalf("unexpected shortfall: %+v", short)
	}
}

func TestCommitTwiceFails(t *testing.T) {
	svc := NewService(100)
	ctx := context.Background()

	res, err := svc.Reserve(ctx, "u1", 5, "deploy:vercel")
	if err != nil {
		t.Fatalf("reserve: %v", err)
	}
	if err := svc.Commit(ctx, res.Token); err != nil {
		t.Fatalf("commit: %v", err)
	}
	if err := svc.Commit(ctx, res.Token); !errors.Is(err, ErrReservationResolved) {
		t.Fatalf("expected resolved error, got %v", err)
	}
	if err := svc.Release(ctx, res.Token); !errors.Is(err, ErrReservationResolved) {
		t.Fatalf("expected resolved error on release, got %v", err)
	}
	if err := svc.Commit(ctx, "no-such-token"); !errors.Is(err, ErrReservationNotFound) {
		t.Fatalf("expected not found, got %v", err)
	}
}

func TestGrantAppendsLedger(t *testing.T) {
	svc := NewService(100)
	ctx := context.Background()

	b, err := svc.Grant(ctx, "u1", 50, "promo")
	if err != nil {
		t.Fatalf("grant: %v", err)
	}
	if b.Balance != 150 {
		t.Fatalf("expected 150, got %d", b.Balance)
	}

	entries, _ := svc.Ledger(ctx, "u1", 1)
	if len(entries) != 1 || entries[0].Reason != "promo" || entries[0].Amount != 50 {
		t.Fatalf("expected promo entry newest-first, got %+v", entries)
	}
}
