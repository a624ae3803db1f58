package wallet

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/velora-mobility/velora/internal/billing"
	"github.com/velora-mobility/velora/internal/ledger"
	"github.com/velora-mobility/velora/internal/paymentmethod"
)

var (
	// ErrNotOwner indicates the caller does not own the wallet.
	ErrNotOwner = errors.New("not owner of wallet")

	// ErrNoBillingAccount indicates the wallet has no provider customer yet
	// and therefore cannot be charged.
	ErrNoBillingAccount = errors.New("wallet has no billing account")

	// ErrInvalidInput marks a request the caller can correct, as opposed to
	// a fault on our side.
	ErrInvalidInput = errors.New("invalid wallet input")
)

// Service exposes wallet operations backed by the ledger.
type Service struct {
	repo     Repository
	ledger   ledger.Ledger
	methods  paymentmethod.Repository
	provider billing.Provider
}

// NewService builds a wallet service instance.
func NewService(repo Repository, l ledger.Ledger, methods paymentmethod.Repository, provider billing.Provider) *Service {
	if provider == nil {
		provider = billing.StaticProvider{}
	}
	return &Service{repo: repo, ledger: l, methods: methods, provider: provider}
}

// CreateInput captures data required to create a wallet.
type CreateInput struct {
	UserID string
	Name   string
}

// Create provisions a wallet for the user.
func (s *Service) Create(ctx context.Context, input CreateInput) (Wallet, error) {
	if _, err := uuid.Parse(input.UserID); err != nil {
		return Wallet{}, fmt.Errorf("%w: invalid user id", ErrInvalidInput)
	}
	name := strings.TrimSpace(input.Name)
	if name == "" {
		return Wallet{}, fmt.Errorf("%w: wallet name is required", ErrInvalidInput)
	}

	w := Wallet{
		ID:        uuid.NewString(),
		UserID:    input.UserID,
		Name:      name,
		CreatedAt: time.Now().UTC(),
	}

	if err := s.repo.Create(ctx, w); err != nil {
		return Wallet{}, err
	}
	if err := s.ledger.EnsureWallet(ctx, w.ID); err != nil {
		return Wallet{}, err
	}
	return w, nil
}

// Get retrieves wallet metadata.
func (s *Service) Get(ctx context.Context, id string) (Wallet, error) {
	return s.repo.Get(ctx, id)
}

// ForUser lists the user's wallets.
func (s *Service) ForUser(ctx context.Context, userID string) ([]Wallet, error) {
	return s.repo.ForUser(ctx, userID)
}

// Rename updates the wallet display name after an ownership check.
func (s *Service) Rename(ctx context.Context, walletID, requestorID, name string) error {
	w, err := s.repo.Get(ctx, walletID)
	if err != nil {
		return err
	}
	if w.UserID != requestorID {
		return ErrNotOwner
	}
	name = strings.TrimSpace(name)
	if name == "" {
		return fmt.Errorf("%w: wallet name is required", ErrInvalidInput)
	}
	return s.repo.Rename(ctx, walletID, name)
}

// Balance returns the ledger-derived balance for the wallet.
func (s *Service) Balance(ctx context.Context, id string) (Balance, error) {
	w, err := s.repo.Get(ctx, id)
	if err != nil {
		return Balance{}, err
	}
	amount, err := s.ledger.Balance(ctx, w.ID)
	if err != nil {
		return Balance{}, err
	}
	return Balance{WalletID: w.ID, Amount: amount, AsOf: time.Now().UTC()}, nil
}

// Transactions lists the wallet's ledger entries, newest first.
func (s *Service) Transactions(ctx context.Context, walletID, requestorID string) ([]ledger.Entry, error) {
	w, err := s.repo.Get(ctx, walletID)
	if err != nil {
		return nil, err
	}
	if w.UserID != requestorID {
		return nil, ErrNotOwner
	}
	return s.ledger.Entries(ctx, w.ID)
}

// PaymentMethods lists payment methods attached to the wallet.
func (s *Service) PaymentMethods(ctx context.Context, walletID, requestorID string) ([]paymentmethod.PaymentMethod, error) {
	w, err := s.repo.Get(ctx, walletID)
	if err != nil {
		return nil, err
	}
	if w.UserID != requestorID {
		return nil, ErrNotOwner
	}
	return s.methods.ForWallet(ctx, w.ID)
}

// SetDefaultPaymentMethod replaces the wallet's default payment method; an
// empty paymentMethodID clears it.
func (s *Service) SetDefaultPaymentMethod(ctx context.Context, walletID, requestorID, paymentMethodID string) error {
	w, err := s.repo.Get(ctx, walletID)
	if err != nil {
		return err
	}
	if requestorID != "" && w.UserID != requestorID {
		return ErrNotOwner
	}
	if paymentMethodID != "" {
		pm, err := s.methods.Get(ctx, paymentMethodID)
		if err != nil {
			return err
		}
		if pm.WalletID != w.ID {
			return ErrPaymentMethodMismatch
		}
	}
	return s.repo.SetDefaultPaymentMethod(ctx, walletID, paymentMethodID)
}

// AttachBillingRef stores the provider customer id on the wallet. Replays with
// the same id are harmless overwrites.
func (s *Service) AttachBillingRef(ctx context.Context, walletID, ref string) error {
	return s.repo.SetBillingRef(ctx, walletID, ref)
}

// GetByBillingRef resolves a wallet from the provider customer id.
func (s *Service) GetByBillingRef(ctx context.Context, ref string) (Wallet, error) {
	return s.repo.GetByBillingRef(ctx, ref)
}

// TopUpInput captures a wallet top-up request.
type TopUpInput struct {
	WalletID    string
	RequestorID string
	Amount      int64
	Currency    string
}

// TopUpResult reports the charge created with the provider. The wallet is
// credited only when the settlement webhook confirms the payment.
type TopUpResult struct {
	ChargeID  string
	Status    string
	CreatedAt time.Time
}

// TopUp creates a charge against the wallet's default payment method.
func (s *Service) TopUp(ctx context.Context, input TopUpInput) (TopUpResult, error) {
	if input.Amount <= 0 {
		return TopUpResult{}, fmt.Errorf("%w: amount must be positive", ErrInvalidInput)
	}

	w, err := s.repo.Get(ctx, input.WalletID)
	if err != nil {
		return TopUpResult{}, err
	}
	if w.UserID != input.RequestorID {
		return TopUpResult{}, ErrNotOwner
	}
	if w.BillingRef == "" {
		return TopUpResult{}, ErrNoBillingAccount
	}

	var pmRef string
	if pmID, err := s.repo.DefaultPaymentMethod(ctx, w.ID); err == nil && pmID != "" {
		if pm, err := s.methods.Get(ctx, pmID); err == nil {
			pmRef = pm.ProviderID
		}
	}

	currency := input.Currency
	if currency == "" {
		currency = "EUR"
	}

	chargeID, err := s.provider.CreateCharge(ctx, billing.ChargeRequest{
		Amount:           input.Amount,
		Currency:         currency,
		CustomerRef:      w.BillingRef,
		PaymentMethodRef: pmRef,
		Metadata:         map[string]string{"wallet_id": w.ID},
	})
	if err != nil {
		return TopUpResult{}, fmt.Errorf("create charge: %w", err)
	}

	return TopUpResult{ChargeID: chargeID, Status: "pending", CreatedAt: time.Now().UTC()}, nil
}
