package ride

import (
	"errors"
	"net/http"
	"time"

	"github.com/gofiber/fiber/v2"

	"github.com/velora-mobility/velora/internal/ledger"
	"github.com/velora-mobility/velora/internal/wallet"
)

// Handler exposes ride HTTP endpoints.
type Handler struct {
	service *Service
}

// NewHandler builds a ride HTTP handler.
func NewHandler(service *Service) *Handler {
	return &Handler{service: service}
}

type startRequest struct {
	Vehicle string `json:"vehicle"`
	Wallet  string `json:"wallet"`
}

type waypointsRequest struct {
	Waypoints []WaypointInput `json:"waypoints"`
}

type rideResponse struct {
	ID        string     `json:"id"`
	UserID    string     `json:"user"`
	VehicleID string     `json:"vehicle"`
	WalletID  string     `json:"wallet"`
	StartTime time.Time  `json:"start_time"`
	EndTime   *time.Time `json:"end_time"`
	Amount    *int64     `json:"amount"`
}

type waypointResponse struct {
	ID        string    `json:"id"`
	Location  Location  `json:"location"`
	Timestamp time.Time `json:"timestamp"`
}

func toResponse(r Ride) rideResponse {
	return rideResponse{
		ID:        r.ID,
		UserID:    r.UserID,
		VehicleID: r.VehicleID,
		WalletID:  r.WalletID,
		StartTime: r.StartTime,
		EndTime:   r.EndTime,
		Amount:    r.Amount,
	}
}

// Start creates a ride for the authenticated user.
func (h *Handler) Start(c *fiber.Ctx) error {
	userID, _ := c.Locals("user_id").(string)
	var req startRequest
	if err := c.BodyParser(&req); err != nil {
		return fiber.NewError(http.StatusBadRequest, err.Error())
	}
	r, err := h.service.Start(c.UserContext(), userID, req.Vehicle, req.Wallet)
	if err != nil {
		return mapError(err)
	}
	return c.Status(http.StatusCreated).JSON(toResponse(r))
}

// Get returns one of the user's rides.
func (h *Handler) Get(c *fiber.Ctx) error {
	userID, _ := c.Locals("user_id").(string)
	r, err := h.service.Get(c.UserContext(), c.Params("rideId"), userID)
	if err != nil {
		return mapError(err)
	}
	return c.JSON(toResponse(r))
}

// List returns the user's rides.
func (h *Handler) List(c *fiber.Ctx) error {
	userID, _ := c.Locals("user_id").(string)
	rides, err := h.service.ForUser(c.UserContext(), userID)
	if err != nil {
		return mapError(err)
	}
	out := make([]rideResponse, 0, len(rides))
	for _, r := range rides {
		out = append(out, toResponse(r))
	}
	return c.JSON(out)
}

// End closes the ride and returns it with the charged amount.
func (h *Handler) End(c *fiber.Ctx) error {
	userID, _ := c.Locals("user_id").(string)
	r, err := h.service.End(c.UserContext(), c.Params("rideId"), userID)
	if err != nil {
		return mapError(err)
	}
	return c.JSON(toResponse(r))
}

// AddWaypoints ingests telemetry pushed by the vehicle's onboard unit,
// authenticated by the vehicle-scoped credential.
func (h *Handler) AddWaypoints(c *fiber.Ctx) error {
	vehicleID, _ := c.Locals("vehicle_id").(string)
	var req waypointsRequest
	if err := c.BodyParser(&req); err != nil {
		return fiber.NewError(http.StatusBadRequest, err.Error())
	}
	if err := h.service.AddWaypoints(c.UserContext(), c.Params("rideId"), vehicleID, req.Waypoints); err != nil {
		return mapError(err)
	}
	return c.SendStatus(http.StatusNoContent)
}

// Waypoints lists the ride's telemetry for its owner.
func (h *Handler) Waypoints(c *fiber.Ctx) error {
	userID, _ := c.Locals("user_id").(string)
	points, err := h.service.Waypoints(c.UserContext(), c.Params("rideId"), userID)
	if err != nil {
		return mapError(err)
	}
	out := make([]waypointResponse, 0, len(points))
	for _, w := range points {
		out = append(out, waypointResponse{ID: w.ID, Location: w.Location, Timestamp: w.Timestamp})
	}
	return c.JSON(out)
}

func mapError(err error) error {
	switch {
	case errors.Is(err, ErrNotFound), errors.Is(err, ErrVehicleNotFound),
		errors.Is(err, wallet.ErrNotFound), errors.Is(err, ledger.ErrWalletNotFound):
		return fiber.NewError(http.StatusNotFound, err.Error())
	case errors.Is(err, ErrNotOwner):
		return fiber.NewError(http.StatusForbidden, err.Error())
	case errors.Is(err, ErrInsufficientBalance):
		return fiber.NewError(http.StatusForbidden, err.Error())
	case errors.Is(err, ErrActiveRideExists), errors.Is(err, ErrVehicleUnavailable), errors.Is(err, ErrRideEnded):
		return fiber.NewError(http.StatusConflict, err.Error())
	case errors.Is(err, ErrBillingFailed):
		return fiber.NewError(http.StatusInternalServerError, err.Error())
	case errors.Is(err, ErrInvalidInput):
		return fiber.NewError(http.StatusBadRequest, err.Error())
	default:
		// Anything unrecognized is an infrastructure fault. Do not echo the
		// internal error to the client.
		return fiber.NewError(http.StatusInternalServerError, "internal server error")
	}
}
