package routes

import (
	"github.com/gofiber/fiber/v2"

	"github.com/velora-mobility/velora/internal/settlement"
)

// RegisterWebhookRoutes wires the payment provider callback. The endpoint is
// public; authenticity comes from the signature header.
func RegisterWebhookRoutes(r fiber.Router, h *settlement.Handler) {
	r.Post("/webhooks/payments", h.Receive)
}
