package routes

import (
	"github.com/gofiber/fiber/v2"

	"github.com/velora-mobility/velora/internal/vehicle"
)

// RegisterVehicleRoutes wires vehicle fleet endpoints.
func RegisterVehicleRoutes(r fiber.Router, h *vehicle.Handler) {
	r.Post("/vehicles", h.Create)
	r.Get("/vehicles", h.List)
	r.Get("/vehicles/:vehicleId", h.Get)
}
