package ledger

import (
	"context"
	"fmt"
	"sync"
	"testing"
)

func TestInMemoryLedger_BalanceIsSumOfEntries(t *testing.T) {
	l := NewInMemory()
	ctx := context.Background()
	SeedBalance(l, "w1", 1_000)

	if _, err := l.Credit(ctx, "w1", 500, ReasonCredit, "pi_1"); err != nil {
		t.Fatalf("credit failed: %v", err)
	}
	if _, err := l.Debit(ctx, "w1", 300, ReasonRide, "ride_1"); err != nil {
		t.Fatalf("debit failed: %v", err)
	}

	balance, err := l.Balance(ctx, "w1")
	if err != nil {
		t.Fatalf("balance failed: %v", err)
	}
	if balance != 1_200 {
		t.Fatalf("expected balance 1200, got %d", balance)
	}

	entries, err := l.Entries(ctx, "w1")
	if err != nil {
		t.Fatalf("entries failed: %v", err)
	}
	var sum int64
	for _, e := range entries {
		sum += e.Amount
	}
	if sum != balance {
		t.Fatalf("balance drifted from entry sum: balance=%d sum=%d", balance, sum)
	}
}

func TestInMemoryLedger_DebitInsufficientFunds(t *testing.T) {
	l := NewInMemory()
	ctx := context.Background()
	SeedBalance(l, "w1", 200)

	if _, err := l.Debit(ctx, "w1", 300, ReasonRide, "ride_1"); err != ErrInsufficientFunds {
		t.Fatalf("expected insufficient funds, got %v", err)
	}

	balance, _ := l.Balance(ctx, "w1")
	if balance != 200 {
		t.Fatalf("failed debit must not change balance, got %d", balance)
	}
}

func TestInMemoryLedger_DuplicateExternalRef(t *testing.T) {
	l := NewInMemory()
	ctx := context.Background()
	SeedBalance(l, "w1", 0)

	first, err := l.Credit(ctx, "w1", 500, ReasonCredit, "pi_dup")
	if err != nil {
		t.Fatalf("initial credit failed: %v", err)
	}
	again, err := l.Credit(ctx, "w1", 500, ReasonCredit, "pi_dup")
	if err != ErrDuplicateEntry {
		t.Fatalf("expected duplicate error, got %v", err)
	}
	if again.ID != first.ID {
		t.Fatalf("duplicate must return the original entry")
	}

	balance, _ := l.Balance(ctx, "w1")
	if balance != 500 {
		t.Fatalf("replay must not double-credit, balance=%d", balance)
	}
}

func TestInMemoryLedger_EmptyRefSkipsDedupe(t *testing.T) {
	l := NewInMemory()
	ctx := context.Background()
	SeedBalance(l, "w1", 0)

	if _, err := l.Credit(ctx, "w1", 100, ReasonAdjustment, ""); err != nil {
		t.Fatalf("first credit failed: %v", err)
	}
	if _, err := l.Credit(ctx, "w1", 100, ReasonAdjustment, ""); err != nil {
		t.Fatalf("second credit failed: %v", err)
	}

	balance, _ := l.Balance(ctx, "w1")
	if balance != 200 {
		t.Fatalf("expected balance 200, got %d", balance)
	}
}

func TestInMemoryLedger_ConcurrentDebits(t *testing.T) {
	l := NewInMemory()
	ctx := context.Background()
	SeedBalance(l, "w1", 10_000)

	const workers = 20
	const amount = int64(1_000)

	var wg sync.WaitGroup
	errs := make(chan error, workers)
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_, err := l.Debit(ctx, "w1", amount, ReasonRide, fmt.Sprintf("ride_%d", i))
			errs <- err
		}(i)
	}
	wg.Wait()
	close(errs)

	var ok, rejected int
	for err := range errs {
		switch err {
		case nil:
			ok++
		case ErrInsufficientFunds:
			rejected++
		default:
			t.Fatalf("unexpected error: %v", err)
		}
	}

	if ok != 10 || rejected != 10 {
		t.Fatalf("expected 10 successes and 10 rejections, got %d/%d", ok, rejected)
	}

	balance, _ := l.Balance(ctx, "w1")
	if balance != 0 {
		t.Fatalf("expected drained balance, got %d", balance)
	}
}

func TestInMemoryLedger_EntryByRef(t *testing.T) {
	l := NewInMemory()
	ctx := context.Background()
	SeedBalance(l, "w1", 5_000)

	posted, err := l.Debit(ctx, "w1", 300, ReasonRide, "ride_42")
	if err != nil {
		t.Fatalf("debit failed: %v", err)
	}

	found, err := l.EntryByRef(ctx, ReasonRide, "ride_42")
	if err != nil {
		t.Fatalf("lookup failed: %v", err)
	}
	if found.ID != posted.ID || found.Amount != -300 {
		t.Fatalf("unexpected entry: %+v", found)
	}

	if _, err := l.EntryByRef(ctx, ReasonRide, "missing"); err != ErrEntryNotFound {
		t.Fatalf("expected not found, got %v", err)
	}
}
