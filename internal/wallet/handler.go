package wallet

import (
	"errors"
	"net/http"
	"time"

	"github.com/gofiber/fiber/v2"

	"github.com/velora-mobility/velora/internal/ledger"
	"github.com/velora-mobility/velora/internal/paymentmethod"
)

// Handler exposes wallet HTTP endpoints.
type Handler struct {
	service *Service
}

// NewHandler builds a wallet HTTP handler.
func NewHandler(service *Service) *Handler {
	return &Handler{service: service}
}

type createRequest struct {
	Name string `json:"name"`
}

type renameRequest struct {
	Name string `json:"name"`
}

type defaultPaymentMethodRequest struct {
	PaymentMethod string `json:"payment_method"`
}

type topUpRequest struct {
	Amount   int64  `json:"amount"`
	Currency string `json:"currency"`
}

type walletResponse struct {
	ID         string `json:"id"`
	UserID     string `json:"user"`
	Name       string `json:"name"`
	Balance    int64  `json:"balance"`
	BillingRef string `json:"billing_ref,omitempty"`
}

type entryResponse struct {
	ID          string    `json:"id"`
	Amount      int64     `json:"amount"`
	Reason      string    `json:"reason"`
	ExternalRef string    `json:"external_ref,omitempty"`
	Timestamp   time.Time `json:"timestamp"`
}

type paymentMethodResponse struct {
	ID   string `json:"id"`
	Type string `json:"type"`
	Data any    `json:"data"`
}

// Create provisions a wallet for the authenticated user.
func (h *Handler) Create(c *fiber.Ctx) error {
	userID, _ := c.Locals("user_id").(string)
	var req createRequest
	if err := c.BodyParser(&req); err != nil {
		return fiber.NewError(http.StatusBadRequest, err.Error())
	}
	w, err := h.service.Create(c.UserContext(), CreateInput{UserID: userID, Name: req.Name})
	if err != nil {
		return mapError(err)
	}
	return c.Status(http.StatusCreated).JSON(walletResponse{
		ID:     w.ID,
		UserID: w.UserID,
		Name:   w.Name,
	})
}

// List returns the authenticated user's wallets with live balances.
func (h *Handler) List(c *fiber.Ctx) error {
	userID, _ := c.Locals("user_id").(string)
	wallets, err := h.service.ForUser(c.UserContext(), userID)
	if err != nil {
		return mapError(err)
	}
	out := make([]walletResponse, 0, len(wallets))
	for _, w := range wallets {
		balance, err := h.service.Balance(c.UserContext(), w.ID)
		if err != nil {
			return mapError(err)
		}
		out = append(out, walletResponse{ID: w.ID, UserID: w.UserID, Name: w.Name, Balance: balance.Amount, BillingRef: w.BillingRef})
	}
	return c.JSON(out)
}

// Get returns the wallet with its balance computed live from the ledger.
func (h *Handler) Get(c *fiber.Ctx) error {
	userID, _ := c.Locals("user_id").(string)
	w, err := h.service.Get(c.UserContext(), c.Params("walletId"))
	if err != nil {
		return mapError(err)
	}
	if w.UserID != userID {
		return fiber.NewError(http.StatusForbidden, "not owner of wallet")
	}
	balance, err := h.service.Balance(c.UserContext(), w.ID)
	if err != nil {
		return mapError(err)
	}
	return c.JSON(walletResponse{
		ID:         w.ID,
		UserID:     w.UserID,
		Name:       w.Name,
		Balance:    balance.Amount,
		BillingRef: w.BillingRef,
	})
}

// Rename updates the wallet display name.
func (h *Handler) Rename(c *fiber.Ctx) error {
	userID, _ := c.Locals("user_id").(string)
	var req renameRequest
	if err := c.BodyParser(&req); err != nil {
		return fiber.NewError(http.StatusBadRequest, err.Error())
	}
	if err := h.service.Rename(c.UserContext(), c.Params("walletId"), userID, req.Name); err != nil {
		return mapError(err)
	}
	return c.SendStatus(http.StatusNoContent)
}

// Transactions lists the wallet's ledger entries.
func (h *Handler) Transactions(c *fiber.Ctx) error {
	userID, _ := c.Locals("user_id").(string)
	entries, err := h.service.Transactions(c.UserContext(), c.Params("walletId"), userID)
	if err != nil {
		return mapError(err)
	}
	out := make([]entryResponse, 0, len(entries))
	for _, e := range entries {
		out = append(out, entryResponse{
			ID:          e.ID,
			Amount:      e.Amount,
			Reason:      e.Reason,
			ExternalRef: e.ExternalRef,
			Timestamp:   e.CreatedAt,
		})
	}
	return c.JSON(out)
}

// PaymentMethods lists payment methods attached to the wallet.
func (h *Handler) PaymentMethods(c *fiber.Ctx) error {
	userID, _ := c.Locals("user_id").(string)
	methods, err := h.service.PaymentMethods(c.UserContext(), c.Params("walletId"), userID)
	if err != nil {
		return mapError(err)
	}
	out := make([]paymentMethodResponse, 0, len(methods))
	for _, pm := range methods {
		out = append(out, paymentMethodResponse{ID: pm.ID, Type: pm.Type, Data: pm.Data})
	}
	return c.JSON(out)
}

// SetDefaultPaymentMethod replaces the wallet's default payment method.
func (h *Handler) SetDefaultPaymentMethod(c *fiber.Ctx) error {
	userID, _ := c.Locals("user_id").(string)
	var req defaultPaymentMethodRequest
	if err := c.BodyParser(&req); err != nil {
		return fiber.NewError(http.StatusBadRequest, err.Error())
	}
	if err := h.service.SetDefaultPaymentMethod(c.UserContext(), c.Params("walletId"), userID, req.PaymentMethod); err != nil {
		return mapError(err)
	}
	return c.SendStatus(http.StatusNoContent)
}

// TopUp creates a provider charge that will credit the wallet on settlement.
func (h *Handler) TopUp(c *fiber.Ctx) error {
	userID, _ := c.Locals("user_id").(string)
	var req topUpRequest
	if err := c.BodyParser(&req); err != nil {
		return fiber.NewError(http.StatusBadRequest, err.Error())
	}
	result, err := h.service.TopUp(c.UserContext(), TopUpInput{
		WalletID:    c.Params("walletId"),
		RequestorID: userID,
		Amount:      req.Amount,
		Currency:    req.Currency,
	})
	if err != nil {
		return mapError(err)
	}
	return c.Status(http.StatusAccepted).JSON(fiber.Map{
		"charge_id": result.ChargeID,
		"status":    result.Status,
	})
}

func mapError(err error) error {
	switch {
	case errors.Is(err, ErrNotFound), errors.Is(err, paymentmethod.ErrNotFound), errors.Is(err, ledger.ErrWalletNotFound):
		return fiber.NewError(http.StatusNotFound, err.Error())
	case errors.Is(err, ErrNotOwner):
		return fiber.NewError(http.StatusForbidden, err.Error())
	case errors.Is(err, ErrNameTaken), errors.Is(err, ErrPaymentMethodMismatch):
		return fiber.NewError(http.StatusConflict, err.Error())
	case errors.Is(err, ErrNoBillingAccount):
		return fiber.NewError(http.StatusConflict, err.Error())
	case errors.Is(err, ledger.ErrDuplicateEntry):
		return fiber.NewError(http.StatusConflict, err.Error())
	case errors.Is(err, ErrInvalidInput):
		return fiber.NewError(http.StatusBadRequest, err.Error())
	default:
		// Anything unrecognized is an infrastructure fault. Do not echo the
		// internal error to the client.
		return fiber.NewError(http.StatusInternalServerError, "internal server error")
	}
}
