package vehicle

import (
	"context"
	"time"

	"github.com/google/uuid"
)

// AvailabilityGate answers whether a vehicle can be reserved right now. The
// ride state machine treats the answer as authoritative; reservation itself
// is implied by the active ride that a successful start creates.
type AvailabilityGate interface {
	IsAvailable(ctx context.Context, vehicleID string) (bool, error)
}

// Service exposes fleet vehicle operations and implements AvailabilityGate.
type Service struct {
	repo Repository
}

// NewService creates a vehicle service.
func NewService(repo Repository) *Service {
	return &Service{repo: repo}
}

// Create registers a fleet vehicle with a fresh onboard access token.
func (s *Service) Create(ctx context.Context, lat, lon float64) (Vehicle, error) {
	v := Vehicle{
		ID:          uuid.NewString(),
		Available:   true,
		Latitude:    lat,
		Longitude:   lon,
		AccessToken: uuid.NewString(),
		CreatedAt:   time.Now().UTC(),
	}
	if err := s.repo.Create(ctx, v); err != nil {
		return Vehicle{}, err
	}
	return v, nil
}

// Get fetches a vehicle by identifier.
func (s *Service) Get(ctx context.Context, id string) (Vehicle, error) {
	return s.repo.Get(ctx, id)
}

// GetByToken resolves a vehicle from its onboard access token.
func (s *Service) GetByToken(ctx context.Context, token string) (Vehicle, error) {
	return s.repo.GetByToken(ctx, token)
}

// List returns all vehicles.
func (s *Service) List(ctx context.Context) ([]Vehicle, error) {
	return s.repo.List(ctx)
}

// SetAvailable flips the fleet-availability flag.
func (s *Service) SetAvailable(ctx context.Context, id string, available bool) error {
	return s.repo.SetAvailable(ctx, id, available)
}

// IsAvailable reports whether the vehicle can be reserved: its fleet flag is
// on and no active ride references it.
func (s *Service) IsAvailable(ctx context.Context, vehicleID string) (bool, error) {
	v, err := s.repo.Get(ctx, vehicleID)
	if err != nil {
		return false, err
	}
	if !v.Available {
		return false, nil
	}
	active, err := s.repo.HasActiveRide(ctx, vehicleID)
	if err != nil {
		return false, err
	}
	return !active, nil
}
