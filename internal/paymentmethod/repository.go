package paymentmethod

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// ErrNotFound occurs when no payment method matches the lookup.
var ErrNotFound = errors.New("payment method not found")

// Repository persists payment methods. All provider-keyed operations are
// idempotent: the settlement adapter may replay any event.
type Repository interface {
	UpsertByProviderID(ctx context.Context, pm PaymentMethod) (PaymentMethod, error)
	UpdateDataByProviderID(ctx context.Context, providerID string, data json.RawMessage) error
	DeleteByProviderID(ctx context.Context, providerID string) error
	Get(ctx context.Context, id string) (PaymentMethod, error)
	GetByProviderID(ctx context.Context, providerID string) (PaymentMethod, error)
	ForWallet(ctx context.Context, walletID string) ([]PaymentMethod, error)
}

// PostgresRepository stores payment methods in PostgreSQL.
type PostgresRepository struct {
	db *pgxpool.Pool
}

// NewPostgresRepository builds a repository backed by PostgreSQL.
func NewPostgresRepository(db *pgxpool.Pool) *PostgresRepository {
	return &PostgresRepository{db: db}
}

// UpsertByProviderID inserts the payment method unless one with the same
// provider id already exists, in which case the existing row is returned.
func (r *PostgresRepository) UpsertByProviderID(ctx context.Context, pm PaymentMethod) (PaymentMethod, error) {
	walletID, err := uuid.Parse(pm.WalletID)
	if err != nil {
		return PaymentMethod{}, err
	}
	if pm.ID == "" {
		pm.ID = uuid.NewString()
	}
	if pm.CreatedAt.IsZero() {
		pm.CreatedAt = time.Now().UTC()
	}
	id, err := uuid.Parse(pm.ID)
	if err != nil {
		return PaymentMethod{}, err
	}

	_, err = r.db.Exec(ctx, `INSERT INTO payment_methods (id, wallet_id, type, data, provider_id, created_at)
        VALUES ($1, $2, $3, $4, $5, $6)
        ON CONFLICT (provider_id) DO NOTHING`, id, walletID, pm.Type, pm.Data, pm.ProviderID, pm.CreatedAt)
	if err != nil {
		return PaymentMethod{}, err
	}
	return r.GetByProviderID(ctx, pm.ProviderID)
}

// UpdateDataByProviderID replaces the stored data blob. Missing rows are a
// no-op so event replays stay safe.
func (r *PostgresRepository) UpdateDataByProviderID(ctx context.Context, providerID string, data json.RawMessage) error {
	_, err := r.db.Exec(ctx, `UPDATE payment_methods SET data = $1 WHERE provider_id = $2`, data, providerID)
	return err
}

// DeleteByProviderID removes the payment method; deleting a missing row is a
// no-op. The default-selection row cascades away with it.
func (r *PostgresRepository) DeleteByProviderID(ctx context.Context, providerID string) error {
	_, err := r.db.Exec(ctx, `DELETE FROM payment_methods WHERE provider_id = $1`, providerID)
	return err
}

// Get fetches a payment method by identifier.
func (r *PostgresRepository) Get(ctx context.Context, id string) (PaymentMethod, error) {
	pmID, err := uuid.Parse(id)
	if err != nil {
		return PaymentMethod{}, ErrNotFound
	}
	row := r.db.QueryRow(ctx, `SELECT id, wallet_id, type, data, provider_id, created_at
        FROM payment_methods WHERE id = $1`, pmID)
	return scanPaymentMethod(row)
}

// GetByProviderID fetches a payment method by the processor's identifier.
func (r *PostgresRepository) GetByProviderID(ctx context.Context, providerID string) (PaymentMethod, error) {
	row := r.db.QueryRow(ctx, `SELECT id, wallet_id, type, data, provider_id, created_at
        FROM payment_methods WHERE provider_id = $1`, providerID)
	return scanPaymentMethod(row)
}

// ForWallet lists payment methods attached to a wallet.
func (r *PostgresRepository) ForWallet(ctx context.Context, walletID string) ([]PaymentMethod, error) {
	id, err := uuid.Parse(walletID)
	if err != nil {
		return nil, ErrNotFound
	}
	rows, err := r.db.Query(ctx, `SELECT id, wallet_id, type, data, provider_id, created_at
        FROM payment_methods WHERE wallet_id = $1 ORDER BY created_at`, id)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var methods []PaymentMethod
	for rows.Next() {
		pm, err := scanPaymentMethod(rows)
		if err != nil {
			return nil, err
		}
		methods = append(methods, pm)
	}
	return methods, rows.Err()
}

func scanPaymentMethod(row pgx.Row) (PaymentMethod, error) {
	var (
		pm        PaymentMethod
		id        uuid.UUID
		walletID  uuid.UUID
		createdAt time.Time
	)
	if err := row.Scan(&id, &walletID, &pm.Type, &pm.Data, &pm.ProviderID, &createdAt); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return PaymentMethod{}, ErrNotFound
		}
		return PaymentMethod{}, err
	}
	pm.ID = id.String()
	pm.WalletID = walletID.String()
	pm.CreatedAt = createdAt.UTC()
	return pm, nil
}
