package subscription

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
)

// ErrNotFound occurs when no subscription matches the lookup.
var ErrNotFound = errors.New("subscription not found")

// Repository persists mirrored subscription records. All operations are
// keyed by the provider id and are replay-safe.
type Repository interface {
	Upsert(ctx context.Context, sub Subscription) error
	DeleteByProviderID(ctx context.Context, providerID string) error
	ForWallet(ctx context.Context, walletID string) ([]Subscription, error)
}

// PostgresRepository stores subscription mirrors in PostgreSQL.
type PostgresRepository struct {
	db *pgxpool.Pool
}

// NewPostgresRepository builds a repository backed by PostgreSQL.
func NewPostgresRepository(db *pgxpool.Pool) *PostgresRepository {
	return &PostgresRepository{db: db}
}

// Upsert inserts or refreshes the mirror row for a provider subscription.
func (r *PostgresRepository) Upsert(ctx context.Context, sub Subscription) error {
	walletID, err := uuid.Parse(sub.WalletID)
	if err != nil {
		return err
	}
	if sub.ID == "" {
		sub.ID = uuid.NewString()
	}
	id, err := uuid.Parse(sub.ID)
	if err != nil {
		return err
	}
	_, err = r.db.Exec(ctx, `INSERT INTO subscriptions (id, wallet_id, provider_id, status, current_period_end, updated_at)
        VALUES ($1, $2, $3, $4, $5, $6)
        ON CONFLICT (provider_id) DO UPDATE SET
            status = EXCLUDED.status,
            current_period_end = EXCLUDED.current_period_end,
            updated_at = EXCLUDED.updated_at`,
		id, walletID, sub.ProviderID, sub.Status, sub.CurrentPeriodEnd.UTC(), time.Now().UTC())
	return err
}

// DeleteByProviderID removes the mirror row; missing rows are a no-op.
func (r *PostgresRepository) DeleteByProviderID(ctx context.Context, providerID string) error {
	_, err := r.db.Exec(ctx, `DELETE FROM subscriptions WHERE provider_id = $1`, providerID)
	return err
}

// ForWallet lists a wallet's mirrored subscriptions.
func (r *PostgresRepository) ForWallet(ctx context.Context, walletID string) ([]Subscription, error) {
	id, err := uuid.Parse(walletID)
	if err != nil {
		return nil, ErrNotFound
	}
	rows, err := r.db.Query(ctx, `SELECT id, wallet_id, provider_id, status, current_period_end, updated_at
        FROM subscriptions WHERE wallet_id = $1 ORDER BY updated_at DESC`, id)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var subs []Subscription
	for rows.Next() {
		var (
			s         Subscription
			subID     uuid.UUID
			wID       uuid.UUID
			periodEnd time.Time
			updatedAt time.Time
		)
		if err := rows.Scan(&subID, &wID, &s.ProviderID, &s.Status, &periodEnd, &updatedAt); err != nil {
			return nil, err
		}
		s.ID = subID.String()
		s.WalletID = wID.String()
		s.CurrentPeriodEnd = periodEnd.UTC()
		s.UpdatedAt = updatedAt.UTC()
		subs = append(subs, s)
	}
	return subs, rows.Err()
}
