package wallet

import (
	"context"
	"errors"
	"testing"

	"github.com/google/uuid"

	"github.com/velora-mobility/velora/internal/billing"
	"github.com/velora-mobility/velora/internal/ledger"
	"github.com/velora-mobility/velora/internal/paymentmethod"
)

func newTestService(t *testing.T) (*Service, ledger.Ledger, paymentmethod.Repository) {
	t.Helper()
	l := ledger.NewInMemory()
	methods := paymentmethod.NewMemoryRepository()
	return NewService(NewMemoryRepository(), l, methods, billing.StaticProvider{}), l, methods
}

func TestCreateWalletStartsEmpty(t *testing.T) {
	svc, _, _ := newTestService(t)
	ctx := context.Background()

	w, err := svc.Create(ctx, CreateInput{UserID: uuid.NewString(), Name: "main"})
	if err != nil {
		t.Fatalf("create: %v", err)
	}

	balance, err := svc.Balance(ctx, w.ID)
	if err != nil {
		t.Fatalf("balance: %v", err)
	}
	if balance.Amount != 0 {
		t.Fatalf("expected zero opening balance, got %d", balance.Amount)
	}
}

func TestCreateWalletRejectsDuplicateName(t *testing.T) {
	svc, _, _ := newTestService(t)
	ctx := context.Background()
	userID := uuid.NewString()

	if _, err := svc.Create(ctx, CreateInput{UserID: userID, Name: "main"}); err != nil {
		t.Fatalf("create: %v", err)
	}
	if _, err := svc.Create(ctx, CreateInput{UserID: userID, Name: "main"}); !errors.Is(err, ErrNameTaken) {
		t.Fatalf("expected ErrNameTaken, got %v", err)
	}
	// The same name under another user is fine.
	if _, err := svc.Create(ctx, CreateInput{UserID: uuid.NewString(), Name: "main"}); err != nil {
		t.Fatalf("create for other user: %v", err)
	}
}

func TestBalanceIsSumOfLedgerEntries(t *testing.T) {
	svc, l, _ := newTestService(t)
	ctx := context.Background()

	w, err := svc.Create(ctx, CreateInput{UserID: uuid.NewString(), Name: "main"})
	if err != nil {
		t.Fatalf("create: %v", err)
	}

	if _, err := l.Credit(ctx, w.ID, 1500, ledger.ReasonCredit, "pi_1"); err != nil {
		t.Fatalf("credit: %v", err)
	}
	if _, err := l.Debit(ctx, w.ID, 300, ledger.ReasonRide, "ride-1"); err != nil {
		t.Fatalf("debit: %v", err)
	}

	balance, err := svc.Balance(ctx, w.ID)
	if err != nil {
		t.Fatalf("balance: %v", err)
	}
	if balance.Amount != 1200 {
		t.Fatalf("expected 1200, got %d", balance.Amount)
	}

	entries, err := svc.Transactions(ctx, w.ID, w.UserID)
	if err != nil {
		t.Fatalf("transactions: %v", err)
	}
	if len(entries) != 2 {
		t.Fatalf("expected 2 entries, got %d", len(entries))
	}
}

func TestTransactionsRequireOwnership(t *testing.T) {
	svc, _, _ := newTestService(t)
	ctx := context.Background()

	w, err := svc.Create(ctx, CreateInput{UserID: uuid.NewString(), Name: "main"})
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	if _, err := svc.Transactions(ctx, w.ID, uuid.NewString()); !errors.Is(err, ErrNotOwner) {
		t.Fatalf("expected ErrNotOwner, got %v", err)
	}
}

func TestTopUpRequiresBillingAccount(t *testing.T) {
	svc, _, _ := newTestService(t)
	ctx := context.Background()

	w, err := svc.Create(ctx, CreateInput{UserID: uuid.NewString(), Name: "main"})
	if err != nil {
		t.Fatalf("create: %v", err)
	}

	_, err = svc.TopUp(ctx, TopUpInput{WalletID: w.ID, RequestorID: w.UserID, Amount: 1000})
	if !errors.Is(err, ErrNoBillingAccount) {
		t.Fatalf("expected ErrNoBillingAccount, got %v", err)
	}
}

func TestTopUpCreatesPendingCharge(t *testing.T) {
	svc, l, _ := newTestService(t)
	ctx := context.Background()

	w, err := svc.Create(ctx, CreateInput{UserID: uuid.NewString(), Name: "main"})
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	if err := svc.AttachBillingRef(ctx, w.ID, "cus_123"); err != nil {
		t.Fatalf("attach billing ref: %v", err)
	}

	res, err := svc.TopUp(ctx, TopUpInput{WalletID: w.ID, RequestorID: w.UserID, Amount: 1000})
	if err != nil {
		t.Fatalf("topup: %v", err)
	}
	if res.ChargeID == "" || res.Status != "pending" {
		t.Fatalf("expected pending charge, got %+v", res)
	}

	// The wallet is only credited once the settlement webhook lands.
	balance, err := l.Balance(ctx, w.ID)
	if err != nil {
		t.Fatalf("balance: %v", err)
	}
	if balance != 0 {
		t.Fatalf("expected balance to remain 0 until settlement, got %d", balance)
	}
}

func TestSetDefaultPaymentMethodChecksWalletBinding(t *testing.T) {
	svc, _, methods := newTestService(t)
	ctx := context.Background()

	w, err := svc.Create(ctx, CreateInput{UserID: uuid.NewString(), Name: "main"})
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	other, err := svc.Create(ctx, CreateInput{UserID: uuid.NewString(), Name: "main"})
	if err != nil {
		t.Fatalf("create other: %v", err)
	}

	pm, err := methods.UpsertByProviderID(ctx, paymentmethod.PaymentMethod{WalletID: other.ID, Type: "card", ProviderID: "pm_1"})
	if err != nil {
		t.Fatalf("upsert: %v", err)
	}

	if err := svc.SetDefaultPaymentMethod(ctx, w.ID, w.UserID, pm.ID); !errors.Is(err, ErrPaymentMethodMismatch) {
		t.Fatalf("expected ErrPaymentMethodMismatch, got %v", err)
	}
}
