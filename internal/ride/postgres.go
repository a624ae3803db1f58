package ride

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/velora-mobility/velora/internal/ledger"
)

// PostgresStore runs the ride state machine against PostgreSQL. Every
// operation executes as a single transaction; the single-active-ride
// invariant is additionally backed by a partial unique index on
// rides(user_id) WHERE end_time IS NULL, so concurrent starts cannot slip
// between check and insert.
type PostgresStore struct {
	db *pgxpool.Pool
}

// NewPostgresStore builds a ride store backed by PostgreSQL.
func NewPostgresStore(db *pgxpool.Pool) *PostgresStore {
	return &PostgresStore{db: db}
}

const rideColumns = `r.id, r.user_id, r.vehicle_id, r.wallet_id, r.start_time, r.end_time, -t.amount`

const rideJoin = `FROM rides r
    LEFT JOIN transactions t ON t.reason = 'ride' AND t.external_ref = r.id::text`

// Start validates all preconditions and inserts the ride in one transaction.
func (s *PostgresStore) Start(ctx context.Context, params StartParams) (Ride, error) {
	userID, err := uuid.Parse(params.UserID)
	if err != nil {
		return Ride{}, ErrNotFound
	}
	vehicleID, err := uuid.Parse(params.VehicleID)
	if err != nil {
		return Ride{}, ErrVehicleNotFound
	}
	walletID, err := uuid.Parse(params.WalletID)
	if err != nil {
		return Ride{}, ledger.ErrWalletNotFound
	}

	tx, err := s.db.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return Ride{}, err
	}
	defer tx.Rollback(ctx) // nolint:errcheck

	// Wallet row lock serializes the balance read against concurrent debits.
	if err := ledger.LockWalletTx(ctx, tx, walletID); err != nil {
		return Ride{}, err
	}

	var hasActive bool
	if err := tx.QueryRow(ctx, `SELECT EXISTS(SELECT 1 FROM rides WHERE user_id = $1 AND end_time IS NULL)`, userID).Scan(&hasActive); err != nil {
		return Ride{}, err
	}
	if hasActive {
		return Ride{}, ErrActiveRideExists
	}

	var available bool
	if err := tx.QueryRow(ctx, `SELECT available FROM vehicles WHERE id = $1 FOR UPDATE`, vehicleID).Scan(&available); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return Ride{}, ErrVehicleNotFound
		}
		return Ride{}, err
	}
	if !available {
		return Ride{}, ErrVehicleUnavailable
	}
	var vehicleBusy bool
	if err := tx.QueryRow(ctx, `SELECT EXISTS(SELECT 1 FROM rides WHERE vehicle_id = $1 AND end_time IS NULL)`, vehicleID).Scan(&vehicleBusy); err != nil {
		return Ride{}, err
	}
	if vehicleBusy {
		return Ride{}, ErrVehicleUnavailable
	}

	balance, err := ledger.BalanceTx(ctx, tx, walletID)
	if err != nil {
		return Ride{}, err
	}
	if balance < params.MinBalance {
		return Ride{}, ErrInsufficientBalance
	}

	r := Ride{
		ID:        uuid.NewString(),
		UserID:    params.UserID,
		VehicleID: params.VehicleID,
		WalletID:  params.WalletID,
		StartTime: time.Now().UTC(),
	}
	if _, err := tx.Exec(ctx, `INSERT INTO rides (id, user_id, vehicle_id, wallet_id, start_time)
        VALUES ($1, $2, $3, $4, $5)`, uuid.MustParse(r.ID), userID, vehicleID, walletID, r.StartTime); err != nil {
		// The partial unique indexes fire when another start for the same
		// user or vehicle committed after our existence checks.
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == "23505" {
			if pgErr.ConstraintName == "rides_active_vehicle_idx" {
				return Ride{}, ErrVehicleUnavailable
			}
			return Ride{}, ErrActiveRideExists
		}
		return Ride{}, err
	}

	if err := tx.Commit(ctx); err != nil {
		return Ride{}, err
	}
	return r, nil
}

// Get fetches a ride, recovering the charged amount from the ledger entry
// recorded against the ride id.
func (s *PostgresStore) Get(ctx context.Context, id string) (Ride, error) {
	rideID, err := uuid.Parse(id)
	if err != nil {
		return Ride{}, ErrNotFound
	}
	row := s.db.QueryRow(ctx, `SELECT `+rideColumns+` `+rideJoin+` WHERE r.id = $1`, rideID)
	return scanRide(row)
}

// ForUser lists the user's rides, most recent first.
func (s *PostgresStore) ForUser(ctx context.Context, userID string) ([]Ride, error) {
	id, err := uuid.Parse(userID)
	if err != nil {
		return nil, ErrNotFound
	}
	rows, err := s.db.Query(ctx, `SELECT `+rideColumns+` `+rideJoin+` WHERE r.user_id = $1 ORDER BY r.start_time DESC`, id)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var rides []Ride
	for rows.Next() {
		r, err := scanRide(rows)
		if err != nil {
			return nil, err
		}
		rides = append(rides, r)
	}
	return rides, rows.Err()
}

// AddWaypoints bulk-inserts telemetry samples for an active ride.
func (s *PostgresStore) AddWaypoints(ctx context.Context, rideID string, points []WaypointInput) error {
	id, err := uuid.Parse(rideID)
	if err != nil {
		return ErrNotFound
	}

	tx, err := s.db.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return err
	}
	defer tx.Rollback(ctx) // nolint:errcheck

	var endTime *time.Time
	if err := tx.QueryRow(ctx, `SELECT end_time FROM rides WHERE id = $1 FOR UPDATE`, id).Scan(&endTime); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return ErrNotFound
		}
		return err
	}
	if endTime != nil {
		return ErrRideEnded
	}

	for _, p := range points {
		if _, err := tx.Exec(ctx, `INSERT INTO ride_waypoints (id, ride_id, latitude, longitude, recorded_at)
            VALUES ($1, $2, $3, $4, $5)`, uuid.New(), id, p.Location.Latitude, p.Location.Longitude, p.Timestamp.UTC()); err != nil {
			return err
		}
	}

	return tx.Commit(ctx)
}

// Waypoints lists the ride's telemetry ordered by the client timestamp.
func (s *PostgresStore) Waypoints(ctx context.Context, rideID string) ([]Waypoint, error) {
	id, err := uuid.Parse(rideID)
	if err != nil {
		return nil, ErrNotFound
	}
	rows, err := s.db.Query(ctx, `SELECT id, ride_id, latitude, longitude, recorded_at
        FROM ride_waypoints WHERE ride_id = $1 ORDER BY recorded_at`, id)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var points []Waypoint
	for rows.Next() {
		var (
			w          Waypoint
			wID        uuid.UUID
			rID        uuid.UUID
			recordedAt time.Time
		)
		if err := rows.Scan(&wID, &rID, &w.Location.Latitude, &w.Location.Longitude, &recordedAt); err != nil {
			return nil, err
		}
		w.ID = wID.String()
		w.RideID = rID.String()
		w.Timestamp = recordedAt.UTC()
		points = append(points, w)
	}
	return points, rows.Err()
}

// End closes the ride and debits its wallet in one transaction. If the debit
// cannot be posted the whole transaction rolls back and the ride stays
// active, surfaced as ErrBillingFailed.
func (s *PostgresStore) End(ctx context.Context, rideID string, pricing Pricing) (Ride, error) {
	id, err := uuid.Parse(rideID)
	if err != nil {
		return Ride{}, ErrNotFound
	}

	tx, err := s.db.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return Ride{}, err
	}
	defer tx.Rollback(ctx) // nolint:errcheck

	var (
		r        Ride
		userID   uuid.UUID
		vID      uuid.UUID
		wID      uuid.UUID
		endTime  *time.Time
		startRaw time.Time
	)
	row := tx.QueryRow(ctx, `SELECT user_id, vehicle_id, wallet_id, start_time, end_time
        FROM rides WHERE id = $1 FOR UPDATE`, id)
	if err := row.Scan(&userID, &vID, &wID, &startRaw, &endTime); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return Ride{}, ErrNotFound
		}
		return Ride{}, err
	}
	if endTime != nil {
		return Ride{}, ErrRideEnded
	}

	r = Ride{
		ID:        rideID,
		UserID:    userID.String(),
		VehicleID: vID.String(),
		WalletID:  wID.String(),
		StartTime: startRaw.UTC(),
	}

	now := time.Now().UTC()
	cost := pricing.CostFor(r.StartTime, now)

	if err := ledger.LockWalletTx(ctx, tx, wID); err != nil {
		return Ride{}, err
	}
	if _, err := ledger.FindEntryTx(ctx, tx, ledger.ReasonRide, rideID); err == nil {
		// A debit for this ride exists although the row was still open:
		// treat as already ended rather than charging twice.
		return Ride{}, ErrRideEnded
	} else if !errors.Is(err, ledger.ErrEntryNotFound) {
		return Ride{}, err
	}

	balance, err := ledger.BalanceTx(ctx, tx, wID)
	if err != nil {
		return Ride{}, err
	}
	if balance < cost {
		return Ride{}, ErrBillingFailed
	}

	entry := ledger.Entry{
		ID:          uuid.NewString(),
		WalletID:    r.WalletID,
		Amount:      -cost,
		Reason:      ledger.ReasonRide,
		ExternalRef: rideID,
		CreatedAt:   now,
	}
	if err := ledger.InsertEntryTx(ctx, tx, entry); err != nil {
		return Ride{}, err
	}

	if _, err := tx.Exec(ctx, `UPDATE rides SET end_time = $1 WHERE id = $2`, now, id); err != nil {
		return Ride{}, err
	}

	if err := tx.Commit(ctx); err != nil {
		return Ride{}, err
	}

	r.EndTime = &now
	r.Amount = &cost
	return r, nil
}

func scanRide(row pgx.Row) (Ride, error) {
	var (
		r       Ride
		id      uuid.UUID
		userID  uuid.UUID
		vID     uuid.UUID
		wID     uuid.UUID
		start   time.Time
		endTime *time.Time
		amount  *int64
	)
	if err := row.Scan(&id, &userID, &vID, &wID, &start, &endTime, &amount); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return Ride{}, ErrNotFound
		}
		return Ride{}, err
	}
	r.ID = id.String()
	r.UserID = userID.String()
	r.VehicleID = vID.String()
	r.WalletID = wID.String()
	r.StartTime = start.UTC()
	if endTime != nil {
		t := endTime.UTC()
		r.EndTime = &t
	}
	r.Amount = amount
	return r, nil
}
