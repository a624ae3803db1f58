package routes

import (
	"github.com/gofiber/fiber/v2"

	"github.com/velora-mobility/velora/internal/subscription"
	"github.com/velora-mobility/velora/internal/wallet"
)

// RegisterWalletRoutes wires wallet-related endpoints.
func RegisterWalletRoutes(r fiber.Router, h *wallet.Handler, subs *subscription.Handler) {
	r.Post("/wallets", h.Create)
	r.Get("/wallets", h.List)
	r.Get("/wallets/:walletId", h.Get)
	r.Patch("/wallets/:walletId", h.Rename)
	r.Get("/wallets/:walletId/transactions", h.Transactions)
	r.Get("/wallets/:walletId/payment-methods", h.PaymentMethods)
	r.Put("/wallets/:walletId/payment-methods/default", h.SetDefaultPaymentMethod)
	r.Post("/wallets/:walletId/topup", h.TopUp)
	r.Get("/wallets/:walletId/subscriptions", subs.ForWallet)
}
