package routes

import (
	"github.com/gofiber/fiber/v2"

	"github.com/velora-mobility/velora/internal/ride"
)

// RegisterRideRoutes wires rider-facing ride endpoints. Waypoint ingestion is
// registered separately because it authenticates with the vehicle token.
func RegisterRideRoutes(r fiber.Router, h *ride.Handler) {
	r.Post("/rides", h.Start)
	r.Get("/rides", h.List)
	r.Get("/rides/:rideId", h.Get)
	r.Post("/rides/:rideId/end", h.End)
	r.Get("/rides/:rideId/waypoints", h.Waypoints)
}
