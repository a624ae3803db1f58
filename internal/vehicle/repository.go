package vehicle

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// ErrNotFound occurs when no vehicle matches the lookup.
var ErrNotFound = errors.New("vehicle not found")

// Repository persists fleet vehicles.
type Repository interface {
	Create(ctx context.Context, v Vehicle) error
	Get(ctx context.Context, id string) (Vehicle, error)
	GetByToken(ctx context.Context, token string) (Vehicle, error)
	List(ctx context.Context) ([]Vehicle, error)
	SetAvailable(ctx context.Context, id string, available bool) error
	HasActiveRide(ctx context.Context, id string) (bool, error)
}

// PostgresRepository stores vehicles in PostgreSQL.
type PostgresRepository struct {
	db *pgxpool.Pool
}

// NewPostgresRepository builds a repository backed by PostgreSQL.
func NewPostgresRepository(db *pgxpool.Pool) *PostgresRepository {
	return &PostgresRepository{db: db}
}

// Create inserts a vehicle record.
func (r *PostgresRepository) Create(ctx context.Context, v Vehicle) error {
	id, err := uuid.Parse(v.ID)
	if err != nil {
		return err
	}
	_, err = r.db.Exec(ctx, `INSERT INTO vehicles (id, available, latitude, longitude, access_token, created_at)
        VALUES ($1, $2, $3, $4, $5, $6)`, id, v.Available, v.Latitude, v.Longitude, v.AccessToken, v.CreatedAt.UTC())
	return err
}

// Get fetches a vehicle by identifier.
func (r *PostgresRepository) Get(ctx context.Context, id string) (Vehicle, error) {
	vehicleID, err := uuid.Parse(id)
	if err != nil {
		return Vehicle{}, ErrNotFound
	}
	row := r.db.QueryRow(ctx, `SELECT id, available, latitude, longitude, access_token, created_at
        FROM vehicles WHERE id = $1`, vehicleID)
	return scanVehicle(row)
}

// GetByToken resolves a vehicle from its onboard access token.
func (r *PostgresRepository) GetByToken(ctx context.Context, token string) (Vehicle, error) {
	row := r.db.QueryRow(ctx, `SELECT id, available, latitude, longitude, access_token, created_at
        FROM vehicles WHERE access_token = $1`, token)
	return scanVehicle(row)
}

// List returns all vehicles.
func (r *PostgresRepository) List(ctx context.Context) ([]Vehicle, error) {
	rows, err := r.db.Query(ctx, `SELECT id, available, latitude, longitude, access_token, created_at
        FROM vehicles ORDER BY created_at`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var vehicles []Vehicle
	for rows.Next() {
		v, err := scanVehicle(rows)
		if err != nil {
			return nil, err
		}
		vehicles = append(vehicles, v)
	}
	return vehicles, rows.Err()
}

// SetAvailable flips the vehicle's fleet-availability flag.
func (r *PostgresRepository) SetAvailable(ctx context.Context, id string, available bool) error {
	vehicleID, err := uuid.Parse(id)
	if err != nil {
		return ErrNotFound
	}
	cmd, err := r.db.Exec(ctx, `UPDATE vehicles SET available = $1 WHERE id = $2`, available, vehicleID)
	if err != nil {
		return err
	}
	if cmd.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

// HasActiveRide reports whether a ride with no end time references the vehicle.
func (r *PostgresRepository) HasActiveRide(ctx context.Context, id string) (bool, error) {
	vehicleID, err := uuid.Parse(id)
	if err != nil {
		return false, ErrNotFound
	}
	var active bool
	err = r.db.QueryRow(ctx, `SELECT EXISTS(SELECT 1 FROM rides WHERE vehicle_id = $1 AND end_time IS NULL)`, vehicleID).Scan(&active)
	return active, err
}

func scanVehicle(row pgx.Row) (Vehicle, error) {
	var (
		v         Vehicle
		id        uuid.UUID
		createdAt time.Time
	)
	if err := row.Scan(&id, &v.Available, &v.Latitude, &v.Longitude, &v.AccessToken, &createdAt); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return Vehicle{}, ErrNotFound
		}
		return Vehicle{}, err
	}
	v.ID = id.String()
	v.CreatedAt = createdAt.UTC()
	return v, nil
}
