package subscription

import (
	"errors"
	"net/http"
	"time"

	"github.com/gofiber/fiber/v2"

	"github.com/velora-mobility/velora/internal/wallet"
)

// Handler exposes the mirrored subscriptions of a wallet.
type Handler struct {
	repo    Repository
	wallets *wallet.Service
}

// NewHandler builds a subscription HTTP handler.
func NewHandler(repo Repository, wallets *wallet.Service) *Handler {
	return &Handler{repo: repo, wallets: wallets}
}

type subscriptionResponse struct {
	ID               string    `json:"id"`
	ProviderID       string    `json:"provider_id"`
	Status           string    `json:"status"`
	CurrentPeriodEnd time.Time `json:"current_period_end"`
}

// ForWallet lists the wallet's subscriptions for its owner.
func (h *Handler) ForWallet(c *fiber.Ctx) error {
	userID, _ := c.Locals("user_id").(string)
	w, err := h.wallets.Get(c.UserContext(), c.Params("walletId"))
	if err != nil {
		if errors.Is(err, wallet.ErrNotFound) {
			return fiber.NewError(http.StatusNotFound, "wallet not found")
		}
		return err
	}
	if w.UserID != userID {
		return fiber.NewError(http.StatusForbidden, "wallet does not belong to user")
	}
	subs, err := h.repo.ForWallet(c.UserContext(), w.ID)
	if err != nil {
		return err
	}
	out := make([]subscriptionResponse, 0, len(subs))
	for _, s := range subs {
		out = append(out, subscriptionResponse{
			ID:               s.ID,
			ProviderID:       s.ProviderID,
			Status:           s.Status,
			CurrentPeriodEnd: s.CurrentPeriodEnd,
		})
	}
	return c.JSON(out)
}
