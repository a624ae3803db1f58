package vehicle

import (
	"errors"
	"net/http"

	"github.com/gofiber/fiber/v2"
)

// Handler exposes fleet HTTP endpoints.
type Handler struct {
	service *Service
}

// NewHandler builds a vehicle HTTP handler.
func NewHandler(service *Service) *Handler {
	return &Handler{service: service}
}

type createRequest struct {
	Latitude  float64 `json:"latitude"`
	Longitude float64 `json:"longitude"`
}

type vehicleResponse struct {
	ID        string  `json:"id"`
	Available bool    `json:"available"`
	Latitude  float64 `json:"latitude"`
	Longitude float64 `json:"longitude"`
}

// Create registers a vehicle. The access token is only revealed here; the
// fleet provisioning flow hands it to the onboard unit.
func (h *Handler) Create(c *fiber.Ctx) error {
	var req createRequest
	if err := c.BodyParser(&req); err != nil {
		return fiber.NewError(http.StatusBadRequest, err.Error())
	}
	v, err := h.service.Create(c.UserContext(), req.Latitude, req.Longitude)
	if err != nil {
		return fiber.NewError(http.StatusInternalServerError, "internal server error")
	}
	return c.Status(http.StatusCreated).JSON(fiber.Map{
		"id":           v.ID,
		"available":    v.Available,
		"latitude":     v.Latitude,
		"longitude":    v.Longitude,
		"access_token": v.AccessToken,
	})
}

// Get returns a vehicle's public state, including live reservability.
func (h *Handler) Get(c *fiber.Ctx) error {
	v, err := h.service.Get(c.UserContext(), c.Params("vehicleId"))
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return fiber.NewError(http.StatusNotFound, err.Error())
		}
		return fiber.NewError(http.StatusInternalServerError, "internal server error")
	}
	available, err := h.service.IsAvailable(c.UserContext(), v.ID)
	if err != nil {
		return fiber.NewError(http.StatusInternalServerError, "internal server error")
	}
	return c.JSON(vehicleResponse{ID: v.ID, Available: available, Latitude: v.Latitude, Longitude: v.Longitude})
}

// List returns all vehicles with their fleet flag.
func (h *Handler) List(c *fiber.Ctx) error {
	vehicles, err := h.service.List(c.UserContext())
	if err != nil {
		return fiber.NewError(http.StatusInternalServerError, "internal server error")
	}
	out := make([]vehicleResponse, 0, len(vehicles))
	for _, v := range vehicles {
		out = append(out, vehicleResponse{ID: v.ID, Available: v.Available, Latitude: v.Latitude, Longitude: v.Longitude})
	}
	return c.JSON(out)
}
