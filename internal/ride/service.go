package ride

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/velora-mobility/velora/internal/ledger"
	"github.com/velora-mobility/velora/internal/metrics"
	"github.com/velora-mobility/velora/internal/notification"
	"github.com/velora-mobility/velora/internal/wallet"
)

// Service drives the ride lifecycle: start, waypoint telemetry, end and
// billing. All state checks happen transactionally inside the store; the
// service adds ownership checks, pricing and side effects.
type Service struct {
	store    Store
	wallets  *wallet.Service
	notifier notification.Notifier
	pricing  Pricing
	logger   *slog.Logger
}

// NewService constructs a ride service.
func NewService(store Store, wallets *wallet.Service, notifier notification.Notifier, pricing Pricing, logger *slog.Logger) *Service {
	return &Service{store: store, wallets: wallets, notifier: notifier, pricing: pricing, logger: logger}
}

// Pricing returns the active tariff.
func (s *Service) Pricing() Pricing {
	return s.pricing
}

// Start begins a ride for the user on the given vehicle, paid through the
// given wallet.
func (s *Service) Start(ctx context.Context, userID, vehicleID, walletID string) (Ride, error) {
	w, err := s.wallets.Get(ctx, walletID)
	if err != nil {
		return Ride{}, err
	}
	if w.UserID != userID {
		return Ride{}, ErrNotOwner
	}

	r, err := s.store.Start(ctx, StartParams{
		UserID:     userID,
		VehicleID:  vehicleID,
		WalletID:   walletID,
		MinBalance: s.pricing.MinBalance,
	})
	if err != nil {
		return Ride{}, err
	}

	metrics.RecordRideStarted()
	s.logger.Info("ride started", "ride_id", r.ID, "user_id", userID, "vehicle_id", vehicleID)
	return r, nil
}

// Get fetches a ride after an ownership check.
func (s *Service) Get(ctx context.Context, rideID, requestorID string) (Ride, error) {
	r, err := s.store.Get(ctx, rideID)
	if err != nil {
		return Ride{}, err
	}
	if r.UserID != requestorID {
		return Ride{}, ErrNotOwner
	}
	return r, nil
}

// ForUser lists the user's rides.
func (s *Service) ForUser(ctx context.Context, userID string) ([]Ride, error) {
	return s.store.ForUser(ctx, userID)
}

// AddWaypoints records telemetry samples from the vehicle's onboard unit.
// The vehicle credential must match the ride's vehicle.
func (s *Service) AddWaypoints(ctx context.Context, rideID, vehicleID string, points []WaypointInput) error {
	if len(points) == 0 {
		return fmt.Errorf("%w: at least one waypoint is required", ErrInvalidInput)
	}
	r, err := s.store.Get(ctx, rideID)
	if err != nil {
		return err
	}
	if r.VehicleID != vehicleID {
		return ErrNotOwner
	}
	return s.store.AddWaypoints(ctx, rideID, points)
}

// Waypoints lists the ride's telemetry for its owner.
func (s *Service) Waypoints(ctx context.Context, rideID, requestorID string) ([]Waypoint, error) {
	r, err := s.store.Get(ctx, rideID)
	if err != nil {
		return nil, err
	}
	if r.UserID != requestorID {
		return nil, ErrNotOwner
	}
	return s.store.Waypoints(ctx, rideID)
}

// End closes the ride, debits the wallet and emits the receipt.
func (s *Service) End(ctx context.Context, rideID, requestorID string) (Ride, error) {
	r, err := s.store.Get(ctx, rideID)
	if err != nil {
		return Ride{}, err
	}
	if r.UserID != requestorID {
		return Ride{}, ErrNotOwner
	}

	ended, err := s.store.End(ctx, rideID, s.pricing)
	if err != nil {
		if errors.Is(err, ErrBillingFailed) {
			s.logger.Error("ride billing failed, ride left active for reconciliation",
				"ride_id", rideID, "wallet_id", r.WalletID)
		}
		return Ride{}, err
	}

	minutes := ended.EndTime.Sub(ended.StartTime).Minutes()
	metrics.RecordRideEnded(minutes)
	metrics.RecordLedgerEntry(ledger.ReasonRide)

	if s.notifier != nil {
		_ = s.notifier.Send(ctx, notification.Message{
			Kind:        notification.KindRideReceipt,
			Destination: ended.UserID,
			Body:        fmt.Sprintf("Ride %s ended after %s, charged %d", ended.ID, ended.EndTime.Sub(ended.StartTime).Round(time.Second), *ended.Amount),
		})
	}

	s.logger.Info("ride ended", "ride_id", ended.ID, "amount", *ended.Amount)
	return ended, nil
}
