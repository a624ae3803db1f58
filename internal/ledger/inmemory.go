package ledger

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
)

type inMemoryLedger struct {
	mu      sync.RWMutex
	wallets map[string]struct{}
	entries []Entry
}

// NewInMemory creates a concurrency-safe in-memory ledger useful for unit tests.
func NewInMemory() Ledger {
	return &inMemoryLedger{wallets: make(map[string]struct{})}
}

// RegisterWallet makes the wallet known to the ledger. The Postgres backend
// derives this from the wallets table; the in-memory one tracks it explicitly.
func RegisterWallet(l Ledger, walletID string) {
	if mem, ok := l.(*inMemoryLedger); ok {
		mem.mu.Lock()
		defer mem.mu.Unlock()
		mem.wallets[walletID] = struct{}{}
	}
}

func (l *inMemoryLedger) EnsureWallet(_ context.Context, walletID string) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.wallets[walletID] = struct{}{}
	return nil
}

func (l *inMemoryLedger) Balance(_ context.Context, walletID string) (int64, error) {
	l.mu.RLock()
	defer l.mu.RUnlock()
	if _, ok := l.wallets[walletID]; !ok {
		return 0, ErrWalletNotFound
	}
	return l.sumLocked(walletID), nil
}

func (l *inMemoryLedger) Credit(_ context.Context, walletID string, amount int64, reason, externalRef string) (Entry, error) {
	return l.post(walletID, amount, reason, externalRef)
}

func (l *inMemoryLedger) Debit(_ context.Context, walletID string, amount int64, reason, externalRef string) (Entry, error) {
	return l.post(walletID, -amount, reason, externalRef)
}

func (l *inMemoryLedger) post(walletID string, amount int64, reason, externalRef string) (Entry, error) {
	if amount == 0 {
		return Entry{}, fmt.Errorf("amount must not be zero")
	}

	l.mu.Lock()
	defer l.mu.Unlock()

	if _, ok := l.wallets[walletID]; !ok {
		return Entry{}, ErrWalletNotFound
	}

	if externalRef != "" {
		for _, e := range l.entries {
			if e.Reason == reason && e.ExternalRef == externalRef {
				return e, ErrDuplicateEntry
			}
		}
	}

	if amount < 0 && l.sumLocked(walletID)+amount < 0 {
		return Entry{}, ErrInsufficientFunds
	}

	entry := Entry{
		ID:          uuid.NewString(),
		WalletID:    walletID,
		Amount:      amount,
		Reason:      reason,
		ExternalRef: externalRef,
		CreatedAt:   time.Now().UTC(),
	}
	l.entries = append(l.entries, entry)
	return entry, nil
}

func (l *inMemoryLedger) Entries(_ context.Context, walletID string) ([]Entry, error) {
	l.mu.RLock()
	defer l.mu.RUnlock()
	if _, ok := l.wallets[walletID]; !ok {
		return nil, ErrWalletNotFound
	}
	var entries []Entry
	for _, e := range l.entries {
		if e.WalletID == walletID {
			entries = append(entries, e)
		}
	}
	sort.SliceStable(entries, func(i, j int) bool {
		return entries[i].CreatedAt.After(entries[j].CreatedAt)
	})
	return entries, nil
}

func (l *inMemoryLedger) EntryByRef(_ context.Context, reason, externalRef string) (Entry, error) {
	l.mu.RLock()
	defer l.mu.RUnlock()
	for _, e := range l.entries {
		if e.Reason == reason && e.ExternalRef == externalRef {
			return e, nil
		}
	}
	return Entry{}, ErrEntryNotFound
}

func (l *inMemoryLedger) sumLocked(walletID string) int64 {
	var total int64
	for _, e := range l.entries {
		if e.WalletID == walletID {
			total += e.Amount
		}
	}
	return total
}
