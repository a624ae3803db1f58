package middleware

import (
	"net/http"
	"strings"

	"github.com/gofiber/fiber/v2"

	"github.com/velora-mobility/velora/internal/vehicle"
)

const vehicleTokenHeader = "X-Vehicle-Token"

// VehicleAuth authenticates onboard units by their access token. The resolved
// vehicle id is stored in locals for the handler.
func VehicleAuth(repo vehicle.Repository) fiber.Handler {
	return func(c *fiber.Ctx) error {
		token := strings.TrimSpace(c.Get(vehicleTokenHeader))
		if token == "" {
			return fiber.NewError(http.StatusUnauthorized, "missing vehicle token")
		}
		v, err := repo.GetByToken(c.UserContext(), token)
		if err != nil {
			return fiber.NewError(http.StatusUnauthorized, "invalid vehicle token")
		}
		c.Locals("vehicle_id", v.ID)
		return c.Next()
	}
}
