package ledger

import (
	"context"
	"errors"
	"time"
)

var (
	// ErrInsufficientFunds occurs when a debit would push the wallet balance
	// below zero.
	ErrInsufficientFunds = errors.New("insufficient funds")

	// ErrDuplicateEntry indicates an entry with the same (reason, external_ref)
	// pair already exists and the operation should be treated as idempotent.
	ErrDuplicateEntry = errors.New("duplicate ledger entry")

	// ErrWalletNotFound occurs when the referenced wallet does not exist.
	ErrWalletNotFound = errors.New("wallet not found")

	// ErrEntryNotFound occurs when no entry matches the requested reference.
	ErrEntryNotFound = errors.New("ledger entry not found")
)

// Entry reasons. Every ledger entry is tagged with the business event that
// produced it.
const (
	ReasonRide         = "ride"
	ReasonCredit       = "credit"
	ReasonSubscription = "subscription"
	ReasonAdjustment   = "adjustment"
)

// Entry is a single immutable balance movement for a wallet. Credits are
// positive, debits negative. The wallet balance is always the signed sum of
// its entries; no other mutation path exists.
type Entry struct {
	ID          string
	WalletID    string
	Amount      int64
	Reason      string
	ExternalRef string
	CreatedAt   time.Time
}

// Ledger is the contract implemented by ledger backends (e.g. Postgres).
//
// Credit and Debit take positive amounts and record the sign themselves.
// Both deduplicate on (reason, externalRef) when externalRef is non-empty,
// returning the existing entry together with ErrDuplicateEntry so webhook
// replays can be acknowledged without double-posting.
type Ledger interface {
	EnsureWallet(ctx context.Context, walletID string) error
	Balance(ctx context.Context, walletID string) (int64, error)
	Credit(ctx context.Context, walletID string, amount int64, reason, externalRef string) (Entry, error)
	Debit(ctx context.Context, walletID string, amount int64, reason, externalRef string) (Entry, error)
	Entries(ctx context.Context, walletID string) ([]Entry, error)
	EntryByRef(ctx context.Context, reason, externalRef string) (Entry, error)
}
