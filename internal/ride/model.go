package ride

import (
	"errors"
	"time"
)

var (
	// ErrActiveRideExists occurs when the user already has a ride in progress.
	ErrActiveRideExists = errors.New("user already has an active ride")

	// ErrVehicleUnavailable occurs when the vehicle cannot be reserved.
	ErrVehicleUnavailable = errors.New("vehicle unavailable")

	// ErrVehicleNotFound occurs when the referenced vehicle does not exist.
	ErrVehicleNotFound = errors.New("vehicle not found")

	// ErrInsufficientBalance occurs when the wallet balance is below the
	// minimum required to start a ride.
	ErrInsufficientBalance = errors.New("insufficient balance to start ride")

	// ErrRideEnded occurs when an operation requires an active ride but the
	// ride has already ended.
	ErrRideEnded = errors.New("ride already ended")

	// ErrNotFound occurs when no ride matches the lookup.
	ErrNotFound = errors.New("ride not found")

	// ErrNotOwner indicates the caller is not allowed to act on the ride.
	ErrNotOwner = errors.New("not owner of ride")

	// ErrInvalidInput marks a request the caller can correct, as opposed to
	// a fault on our side.
	ErrInvalidInput = errors.New("invalid ride input")

	// ErrBillingFailed indicates the end-of-ride debit could not be posted.
	// The transaction was rolled back and the ride is still active; the case
	// needs manual reconciliation.
	ErrBillingFailed = errors.New("ride billing failed")
)

// Location is a geographic coordinate reported by the vehicle.
type Location struct {
	Latitude  float64 `json:"latitude"`
	Longitude float64 `json:"longitude"`
}

// Ride is one rental of a vehicle paid through a wallet. A nil EndTime means
// the ride is active; at most one active ride exists per user. Amount is the
// charged cost recovered from the ledger entry keyed by the ride id, nil
// while the ride is active.
type Ride struct {
	ID        string
	UserID    string
	VehicleID string
	WalletID  string
	StartTime time.Time
	EndTime   *time.Time
	Amount    *int64
}

// Active reports whether the ride is still in progress.
func (r Ride) Active() bool {
	return r.EndTime == nil
}

// Waypoint is a single telemetry sample for a ride. Waypoints are append-only
// and ordered by their client-supplied timestamp, not by arrival.
type Waypoint struct {
	ID        string
	RideID    string
	Location  Location
	Timestamp time.Time
}

// WaypointInput is a telemetry sample as submitted by the vehicle.
type WaypointInput struct {
	Location  Location  `json:"location"`
	Timestamp time.Time `json:"timestamp"`
}

// Pricing holds the ride tariff in minor currency units.
type Pricing struct {
	BaseCost      int64
	PerMinuteCost int64
	MinBalance    int64
}

// CostFor computes the charge for a ride running from start to end: base cost
// plus the per-minute rate for each full elapsed minute, never below base.
func (p Pricing) CostFor(start, end time.Time) int64 {
	elapsed := end.Sub(start)
	if elapsed < 0 {
		elapsed = 0
	}
	return p.BaseCost + p.PerMinuteCost*int64(elapsed/time.Minute)
}
