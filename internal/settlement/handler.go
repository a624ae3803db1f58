package settlement

import (
	"encoding/json"
	"errors"
	"log/slog"

	"github.com/gofiber/fiber/v2"
)

// Handler receives settlement webhooks from the payment provider.
type Handler struct {
	verifier  *Verifier
	processor *Processor
	logger    *slog.Logger
}

// NewHandler builds the webhook handler.
func NewHandler(verifier *Verifier, processor *Processor, logger *slog.Logger) *Handler {
	return &Handler{verifier: verifier, processor: processor, logger: logger}
}

// Receive verifies and applies a webhook delivery. A 2xx acknowledges the
// event; anything else makes the provider redeliver it.
func (h *Handler) Receive(c *fiber.Ctx) error {
	payload := c.Body()

	if err := h.verifier.Verify(payload, c.Get("Webhook-Signature")); err != nil {
		if errors.Is(err, ErrSignatureInvalid) {
			h.logger.Warn("webhook signature rejected", "ip", c.IP())
			return fiber.NewError(fiber.StatusForbidden, "invalid signature")
		}
		return err
	}

	var ev Event
	if err := json.Unmarshal(payload, &ev); err != nil {
		return fiber.NewError(fiber.StatusBadRequest, "malformed event")
	}

	if err := h.processor.Process(c.UserContext(), ev); err != nil {
		h.logger.Error("webhook processing failed", "event_id", ev.ID, "type", ev.Type, "error", err)
		return fiber.NewError(fiber.StatusInternalServerError, "event processing failed")
	}

	return c.JSON(fiber.Map{"received": true})
}
