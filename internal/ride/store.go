package ride

import "context"

// StartParams carries the precondition inputs for starting a ride.
type StartParams struct {
	UserID     string
	VehicleID  string
	WalletID   string
	MinBalance int64
}

// Store is the transactional backend for the ride state machine. Every
// operation that checks state and then writes must do both inside one storage
// transaction; the service layer never splits a check from its write.
type Store interface {
	Start(ctx context.Context, params StartParams) (Ride, error)
	Get(ctx context.Context, id string) (Ride, error)
	ForUser(ctx context.Context, userID string) ([]Ride, error)
	AddWaypoints(ctx context.Context, rideID string, points []WaypointInput) error
	Waypoints(ctx context.Context, rideID string) ([]Waypoint, error)
	End(ctx context.Context, rideID string, pricing Pricing) (Ride, error)
}

// AvailabilityGate answers whether a vehicle can be reserved. Satisfied by
// the vehicle service; consumed by the in-memory store (the Postgres store
// performs the equivalent check inside its transaction).
type AvailabilityGate interface {
	IsAvailable(ctx context.Context, vehicleID string) (bool, error)
}
