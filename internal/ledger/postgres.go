package ledger

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// PostgresLedger persists wallet ledger entries in PostgreSQL. All
// read-then-write sequences run inside a transaction holding a row lock on
// the wallet, so concurrent debits serialize through the database.
type PostgresLedger struct {
	db *pgxpool.Pool
}

// NewPostgresLedger constructs a Postgres-backed ledger implementation.
func NewPostgresLedger(db *pgxpool.Pool) *PostgresLedger {
	return &PostgresLedger{db: db}
}

// EnsureWallet verifies the wallet row exists. The wallets table itself is
// the registry for the Postgres backend, so this is a read-only check.
func (l *PostgresLedger) EnsureWallet(ctx context.Context, walletID string) error {
	id, err := uuid.Parse(walletID)
	if err != nil {
		return ErrWalletNotFound
	}
	var exists bool
	if err := l.db.QueryRow(ctx, `SELECT EXISTS(SELECT 1 FROM wallets WHERE id = $1)`, id).Scan(&exists); err != nil {
		return err
	}
	if !exists {
		return ErrWalletNotFound
	}
	return nil
}

// Balance returns the summed balance for the wallet.
func (l *PostgresLedger) Balance(ctx context.Context, walletID string) (int64, error) {
	id, err := uuid.Parse(walletID)
	if err != nil {
		return 0, ErrWalletNotFound
	}
	var exists bool
	if err := l.db.QueryRow(ctx, `SELECT EXISTS(SELECT 1 FROM wallets WHERE id = $1)`, id).Scan(&exists); err != nil {
		return 0, err
	}
	if !exists {
		return 0, ErrWalletNotFound
	}
	var balance int64
	err = l.db.QueryRow(ctx, `SELECT COALESCE(SUM(amount), 0) FROM transactions WHERE wallet_id = $1`, id).Scan(&balance)
	return balance, err
}

// Credit records a positive entry for the wallet.
func (l *PostgresLedger) Credit(ctx context.Context, walletID string, amount int64, reason, externalRef string) (Entry, error) {
	return l.post(ctx, walletID, amount, reason, externalRef)
}

// Debit records a negative entry for the wallet, failing with
// ErrInsufficientFunds when the balance cannot cover it.
func (l *PostgresLedger) Debit(ctx context.Context, walletID string, amount int64, reason, externalRef string) (Entry, error) {
	return l.post(ctx, walletID, -amount, reason, externalRef)
}

func (l *PostgresLedger) post(ctx context.Context, walletID string, amount int64, reason, externalRef string) (Entry, error) {
	if amount == 0 {
		return Entry{}, fmt.Errorf("amount must not be zero")
	}

	id, err := uuid.Parse(walletID)
	if err != nil {
		return Entry{}, ErrWalletNotFound
	}

	tx, err := l.db.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return Entry{}, err
	}
	defer tx.Rollback(ctx) // nolint:errcheck

	if err := LockWalletTx(ctx, tx, id); err != nil {
		return Entry{}, err
	}

	if externalRef != "" {
		existing, err := FindEntryTx(ctx, tx, reason, externalRef)
		if err == nil {
			return existing, ErrDuplicateEntry
		}
		if !errors.Is(err, ErrEntryNotFound) {
			return Entry{}, err
		}
	}

	if amount < 0 {
		balance, err := BalanceTx(ctx, tx, id)
		if err != nil {
			return Entry{}, err
		}
		if balance+amount < 0 {
			return Entry{}, ErrInsufficientFunds
		}
	}

	entry := Entry{
		ID:          uuid.NewString(),
		WalletID:    walletID,
		Amount:      amount,
		Reason:      reason,
		ExternalRef: externalRef,
		CreatedAt:   time.Now().UTC(),
	}
	if err := InsertEntryTx(ctx, tx, entry); err != nil {
		return Entry{}, err
	}

	if err := tx.Commit(ctx); err != nil {
		return Entry{}, err
	}
	return entry, nil
}

// Entries lists all entries for a wallet, newest first.
func (l *PostgresLedger) Entries(ctx context.Context, walletID string) ([]Entry, error) {
	id, err := uuid.Parse(walletID)
	if err != nil {
		return nil, ErrWalletNotFound
	}
	rows, err := l.db.Query(ctx, `SELECT id, wallet_id, amount, reason, COALESCE(external_ref, ''), created_at
        FROM transactions WHERE wallet_id = $1 ORDER BY created_at DESC`, id)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var entries []Entry
	for rows.Next() {
		var (
			e         Entry
			entryID   uuid.UUID
			wID       uuid.UUID
			createdAt time.Time
		)
		if err := rows.Scan(&entryID, &wID, &e.Amount, &e.Reason, &e.ExternalRef, &createdAt); err != nil {
			return nil, err
		}
		e.ID = entryID.String()
		e.WalletID = wID.String()
		e.CreatedAt = createdAt.UTC()
		entries = append(entries, e)
	}
	return entries, rows.Err()
}

// EntryByRef fetches the entry recorded for an external reference, used to
// recover a ride's charged amount after completion.
func (l *PostgresLedger) EntryByRef(ctx context.Context, reason, externalRef string) (Entry, error) {
	row := l.db.QueryRow(ctx, `SELECT id, wallet_id, amount, reason, COALESCE(external_ref, ''), created_at
        FROM transactions WHERE reason = $1 AND external_ref = $2`, reason, externalRef)
	return scanEntry(row)
}

// LockWalletTx acquires a row lock on the wallet, serializing every
// balance-check-then-insert sequence against the same wallet.
func LockWalletTx(ctx context.Context, tx pgx.Tx, walletID uuid.UUID) error {
	var id uuid.UUID
	if err := tx.QueryRow(ctx, `SELECT id FROM wallets WHERE id = $1 FOR UPDATE`, walletID).Scan(&id); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return ErrWalletNotFound
		}
		return err
	}
	return nil
}

// BalanceTx sums the wallet's entries inside the caller's transaction.
func BalanceTx(ctx context.Context, tx pgx.Tx, walletID uuid.UUID) (int64, error) {
	var balance int64
	if err := tx.QueryRow(ctx, `SELECT COALESCE(SUM(amount), 0) FROM transactions WHERE wallet_id = $1`, walletID).Scan(&balance); err != nil {
		return 0, err
	}
	return balance, nil
}

// FindEntryTx looks up an entry by (reason, external_ref) inside the caller's
// transaction.
func FindEntryTx(ctx context.Context, tx pgx.Tx, reason, externalRef string) (Entry, error) {
	row := tx.QueryRow(ctx, `SELECT id, wallet_id, amount, reason, COALESCE(external_ref, ''), created_at
        FROM transactions WHERE reason = $1 AND external_ref = $2`, reason, externalRef)
	return scanEntry(row)
}

// InsertEntryTx appends an entry inside the caller's transaction. Used by the
// ride store so the end-of-ride debit and the ride update commit atomically.
func InsertEntryTx(ctx context.Context, tx pgx.Tx, e Entry) error {
	entryID, err := uuid.Parse(e.ID)
	if err != nil {
		return err
	}
	walletID, err := uuid.Parse(e.WalletID)
	if err != nil {
		return err
	}
	var ref any
	if e.ExternalRef != "" {
		ref = e.ExternalRef
	}
	_, err = tx.Exec(ctx, `INSERT INTO transactions (id, wallet_id, amount, reason, external_ref, created_at)
        VALUES ($1, $2, $3, $4, $5, $6)`, entryID, walletID, e.Amount, e.Reason, ref, e.CreatedAt.UTC())
	return err
}

func scanEntry(row pgx.Row) (Entry, error) {
	var (
		e         Entry
		entryID   uuid.UUID
		walletID  uuid.UUID
		createdAt time.Time
	)
	if err := row.Scan(&entryID, &walletID, &e.Amount, &e.Reason, &e.ExternalRef, &createdAt); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return Entry{}, ErrEntryNotFound
		}
		return Entry{}, err
	}
	e.ID = entryID.String()
	e.WalletID = walletID.String()
	e.CreatedAt = createdAt.UTC()
	return e, nil
}
