package wallet

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
)

var (
	// ErrNotFound occurs when no wallet matches the lookup.
	ErrNotFound = errors.New("wallet not found")

	// ErrNameTaken occurs when the owner already has a wallet with that name.
	ErrNameTaken = errors.New("wallet name already taken")

	// ErrPaymentMethodMismatch occurs when the payment method selected as
	// default does not belong to the wallet.
	ErrPaymentMethodMismatch = errors.New("payment method does not belong to wallet")
)

// Repository persists wallet metadata and the default-payment-method
// selection. The default is a side relation with at most one row per wallet,
// not a nullable column, so replacing it is a single atomic swap.
type Repository interface {
	Create(ctx context.Context, wallet Wallet) error
	Get(ctx context.Context, id string) (Wallet, error)
	GetByBillingRef(ctx context.Context, ref string) (Wallet, error)
	ForUser(ctx context.Context, userID string) ([]Wallet, error)
	Rename(ctx context.Context, id, name string) error
	SetBillingRef(ctx context.Context, id, ref string) error
	SetDefaultPaymentMethod(ctx context.Context, walletID, paymentMethodID string) error
	DefaultPaymentMethod(ctx context.Context, walletID string) (string, error)
}

// PostgresRepository stores wallets in PostgreSQL.
type PostgresRepository struct {
	db *pgxpool.Pool
}

// NewPostgresRepository builds a repository backed by PostgreSQL.
func NewPostgresRepository(db *pgxpool.Pool) *PostgresRepository {
	return &PostgresRepository{db: db}
}

// Create inserts a wallet record.
func (r *PostgresRepository) Create(ctx context.Context, wallet Wallet) error {
	walletID, err := uuid.Parse(wallet.ID)
	if err != nil {
		return err
	}
	userID, err := uuid.Parse(wallet.UserID)
	if err != nil {
		return err
	}
	_, err = r.db.Exec(ctx, `INSERT INTO wallets (id, user_id, name, created_at)
        VALUES ($1, $2, $3, $4)`, walletID, userID, wallet.Name, wallet.CreatedAt.UTC())
	if isUniqueViolation(err) {
		return ErrNameTaken
	}
	return err
}

// Get fetches wallet metadata by identifier.
func (r *PostgresRepository) Get(ctx context.Context, id string) (Wallet, error) {
	walletID, err := uuid.Parse(id)
	if err != nil {
		return Wallet{}, ErrNotFound
	}
	row := r.db.QueryRow(ctx, `SELECT id, user_id, name, COALESCE(billing_ref, ''), created_at
        FROM wallets WHERE id = $1`, walletID)
	return scanWallet(row)
}

// GetByBillingRef fetches the wallet provisioned under a provider customer id.
func (r *PostgresRepository) GetByBillingRef(ctx context.Context, ref string) (Wallet, error) {
	row := r.db.QueryRow(ctx, `SELECT id, user_id, name, COALESCE(billing_ref, ''), created_at
        FROM wallets WHERE billing_ref = $1`, ref)
	return scanWallet(row)
}

// ForUser lists wallets owned by a user.
func (r *PostgresRepository) ForUser(ctx context.Context, userID string) ([]Wallet, error) {
	id, err := uuid.Parse(userID)
	if err != nil {
		return nil, ErrNotFound
	}
	rows, err := r.db.Query(ctx, `SELECT id, user_id, name, COALESCE(billing_ref, ''), created_at
        FROM wallets WHERE user_id = $1 ORDER BY created_at`, id)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var wallets []Wallet
	for rows.Next() {
		w, err := scanWallet(rows)
		if err != nil {
			return nil, err
		}
		wallets = append(wallets, w)
	}
	return wallets, rows.Err()
}

// Rename updates the wallet display name.
func (r *PostgresRepository) Rename(ctx context.Context, id, name string) error {
	walletID, err := uuid.Parse(id)
	if err != nil {
		return ErrNotFound
	}
	cmd, err := r.db.Exec(ctx, `UPDATE wallets SET name = $1 WHERE id = $2`, name, walletID)
	if isUniqueViolation(err) {
		return ErrNameTaken
	}
	if err != nil {
		return err
	}
	if cmd.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

// SetBillingRef attaches the provider customer id. Overwriting with the same
// value is safe, which keeps customer.created replays harmless.
func (r *PostgresRepository) SetBillingRef(ctx context.Context, id, ref string) error {
	walletID, err := uuid.Parse(id)
	if err != nil {
		return ErrNotFound
	}
	cmd, err := r.db.Exec(ctx, `UPDATE wallets SET billing_ref = $1 WHERE id = $2`, ref, walletID)
	if err != nil {
		return err
	}
	if cmd.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

// SetDefaultPaymentMethod replaces the single default-selection row in one
// transaction. An empty paymentMethodID clears the default.
func (r *PostgresRepository) SetDefaultPaymentMethod(ctx context.Context, walletID, paymentMethodID string) error {
	wID, err := uuid.Parse(walletID)
	if err != nil {
		return ErrNotFound
	}

	tx, err := r.db.Begin(ctx)
	if err != nil {
		return err
	}
	defer tx.Rollback(ctx) // nolint:errcheck

	var exists bool
	if err := tx.QueryRow(ctx, `SELECT EXISTS(SELECT 1 FROM wallets WHERE id = $1)`, wID).Scan(&exists); err != nil {
		return err
	}
	if !exists {
		return ErrNotFound
	}

	if _, err := tx.Exec(ctx, `DELETE FROM wallet_default_payment_methods WHERE wallet_id = $1`, wID); err != nil {
		return err
	}

	if paymentMethodID != "" {
		pmID, err := uuid.Parse(paymentMethodID)
		if err != nil {
			return ErrPaymentMethodMismatch
		}
		var owned bool
		if err := tx.QueryRow(ctx, `SELECT EXISTS(SELECT 1 FROM payment_methods WHERE id = $1 AND wallet_id = $2)`,
			pmID, wID).Scan(&owned); err != nil {
			return err
		}
		if !owned {
			return ErrPaymentMethodMismatch
		}
		if _, err := tx.Exec(ctx, `INSERT INTO wallet_default_payment_methods (wallet_id, payment_method_id)
            VALUES ($1, $2)`, wID, pmID); err != nil {
			return err
		}
	}

	return tx.Commit(ctx)
}

// DefaultPaymentMethod returns the selected default payment method id, empty
// when none is set.
func (r *PostgresRepository) DefaultPaymentMethod(ctx context.Context, walletID string) (string, error) {
	wID, err := uuid.Parse(walletID)
	if err != nil {
		return "", ErrNotFound
	}
	var pmID uuid.UUID
	err = r.db.QueryRow(ctx, `SELECT payment_method_id FROM wallet_default_payment_methods WHERE wallet_id = $1`, wID).Scan(&pmID)
	if errors.Is(err, pgx.ErrNoRows) {
		return "", nil
	}
	if err != nil {
		return "", err
	}
	return pmID.String(), nil
}

func scanWallet(row pgx.Row) (Wallet, error) {
	var (
		w         Wallet
		id        uuid.UUID
		userID    uuid.UUID
		createdAt time.Time
	)
	if err := row.Scan(&id, &userID, &w.Name, &w.BillingRef, &createdAt); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return Wallet{}, ErrNotFound
		}
		return Wallet{}, err
	}
	w.ID = id.String()
	w.UserID = userID.String()
	w.CreatedAt = createdAt.UTC()
	return w, nil
}

func isUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == "23505"
}
