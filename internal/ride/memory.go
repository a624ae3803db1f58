package ride

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/velora-mobility/velora/internal/ledger"
)

// memoryStore is an in-memory ride store for tests. A single mutex plays the
// role of the database transaction: every check-then-write runs under it.
type memoryStore struct {
	mu        sync.Mutex
	ledger    ledger.Ledger
	gate      AvailabilityGate
	rides     map[string]Ride
	waypoints map[string][]Waypoint
}

// NewMemoryStore builds an in-memory ride store on top of the given ledger
// and availability gate.
func NewMemoryStore(l ledger.Ledger, gate AvailabilityGate) Store {
	return &memoryStore{
		ledger:    l,
		gate:      gate,
		rides:     make(map[string]Ride),
		waypoints: make(map[string][]Waypoint),
	}
}

func (s *memoryStore) Start(ctx context.Context, params StartParams) (Ride, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, r := range s.rides {
		if r.UserID == params.UserID && r.Active() {
			return Ride{}, ErrActiveRideExists
		}
	}

	available, err := s.gate.IsAvailable(ctx, params.VehicleID)
	if err != nil {
		return Ride{}, err
	}
	if !available {
		return Ride{}, ErrVehicleUnavailable
	}
	for _, r := range s.rides {
		if r.VehicleID == params.VehicleID && r.Active() {
			return Ride{}, ErrVehicleUnavailable
		}
	}

	balance, err := s.ledger.Balance(ctx, params.WalletID)
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
	s.rides[r.ID] = r
	return r, nil
}

func (s *memoryStore) Get(ctx context.Context, id string) (Ride, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.getLocked(ctx, id)
}

func (s *memoryStore) getLocked(ctx context.Context, id string) (Ride, error) {
	r, ok := s.rides[id]
	if !ok {
		return Ride{}, ErrNotFound
	}
	if !r.Active() && r.Amount == nil {
		if entry, err := s.ledger.EntryByRef(ctx, ledger.ReasonRide, r.ID); err == nil {
			cost := -entry.Amount
			r.Amount = &cost
		}
	}
	return r, nil
}

func (s *memoryStore) ForUser(ctx context.Context, userID string) ([]Ride, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var rides []Ride
	for id, r := range s.rides {
		if r.UserID != userID {
			continue
		}
		withAmount, err := s.getLocked(ctx, id)
		if err != nil {
			return nil, err
		}
		rides = append(rides, withAmount)
	}
	sort.Slice(rides, func(i, j int) bool {
		return rides[i].StartTime.After(rides[j].StartTime)
	})
	return rides, nil
}

func (s *memoryStore) AddWaypoints(_ context.Context, rideID string, points []WaypointInput) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	r, ok := s.rides[rideID]
	if !ok {
		return ErrNotFound
	}
	if !r.Active() {
		return ErrRideEnded
	}

	for _, p := range points {
		s.waypoints[rideID] = append(s.waypoints[rideID], Waypoint{
			ID:        uuid.NewString(),
			RideID:    rideID,
			Location:  p.Location,
			Timestamp: p.Timestamp.UTC(),
		})
	}
	return nil
}

func (s *memoryStore) Waypoints(_ context.Context, rideID string) ([]Waypoint, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.rides[rideID]; !ok {
		return nil, ErrNotFound
	}
	points := append([]Waypoint(nil), s.waypoints[rideID]...)
	sort.SliceStable(points, func(i, j int) bool {
		return points[i].Timestamp.Before(points[j].Timestamp)
	})
	return points, nil
}

func (s *memoryStore) End(ctx context.Context, rideID string, pricing Pricing) (Ride, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	r, ok := s.rides[rideID]
	if !ok {
		return Ride{}, ErrNotFound
	}
	if !r.Active() {
		return Ride{}, ErrRideEnded
	}

	now := time.Now().UTC()
	cost := pricing.CostFor(r.StartTime, now)

	if _, err := s.ledger.Debit(ctx, r.WalletID, cost, ledger.ReasonRide, r.ID); err != nil {
		switch err {
		case ledger.ErrDuplicateEntry:
			return Ride{}, ErrRideEnded
		case ledger.ErrInsufficientFunds:
			return Ride{}, ErrBillingFailed
		default:
			return Ride{}, err
		}
	}

	r.EndTime = &now
	r.Amount = &cost
	s.rides[rideID] = r
	return r, nil
}
