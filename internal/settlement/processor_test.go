package settlement

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"

	"github.com/velora-mobility/velora/internal/ledger"
	"github.com/velora-mobility/velora/internal/logging"
	"github.com/velora-mobility/velora/internal/paymentmethod"
	"github.com/velora-mobility/velora/internal/subscription"
	"github.com/velora-mobility/velora/internal/wallet"
)

type processorFixture struct {
	processor *Processor
	wallets   *wallet.Service
	methods   paymentmethod.Repository
	subs      subscription.Repository
	ledger    ledger.Ledger
}

func newProcessorFixture(t *testing.T) *processorFixture {
	t.Helper()
	l := ledger.NewInMemory()
	methods := paymentmethod.NewMemoryRepository()
	subs := subscription.NewMemoryRepository()
	wallets := wallet.NewService(wallet.NewMemoryRepository(), l, methods, nil)
	return &processorFixture{
		processor: NewProcessor(wallets, methods, subs, l, nil, logging.Discard()),
		wallets:   wallets,
		methods:   methods,
		subs:      subs,
		ledger:    l,
	}
}

func (f *processorFixture) createWallet(t *testing.T, billingRef string) wallet.Wallet {
	t.Helper()
	w, err := f.wallets.Create(context.Background(), wallet.CreateInput{
		UserID: uuid.NewString(),
		Name:   "main",
	})
	require.NoError(t, err)
	if billingRef != "" {
		require.NoError(t, f.wallets.AttachBillingRef(context.Background(), w.ID, billingRef))
		w.BillingRef = billingRef
	}
	return w
}

func makeEvent(t *testing.T, eventType string, object any) Event {
	t.Helper()
	raw, err := json.Marshal(object)
	require.NoError(t, err)
	return Event{ID: "evt_" + uuid.NewString(), Type: eventType, Data: EventData{Object: raw}}
}

func TestProcessorPaymentSucceededCreditsWallet(t *testing.T) {
	f := newProcessorFixture(t)
	w := f.createWallet(t, "cus_123")
	ctx := context.Background()

	ev := makeEvent(t, EventPaymentSucceeded, map[string]any{
		"id":       "pi_abc",
		"amount":   2500,
		"currency": "EUR",
		"customer": "cus_123",
	})
	require.NoError(t, f.processor.Process(ctx, ev))

	balance, err := f.ledger.Balance(ctx, w.ID)
	require.NoError(t, err)
	require.Equal(t, int64(2500), balance)
}

func TestProcessorPaymentSucceededReplayIsIdempotent(t *testing.T) {
	f := newProcessorFixture(t)
	w := f.createWallet(t, "cus_123")
	ctx := context.Background()

	ev := makeEvent(t, EventPaymentSucceeded, map[string]any{
		"id":       "pi_abc",
		"amount":   2500,
		"currency": "EUR",
		"customer": "cus_123",
	})
	require.NoError(t, f.processor.Process(ctx, ev))
	require.NoError(t, f.processor.Process(ctx, ev))
	require.NoError(t, f.processor.Process(ctx, ev))

	balance, err := f.ledger.Balance(ctx, w.ID)
	require.NoError(t, err)
	require.Equal(t, int64(2500), balance)

	entries, err := f.ledger.Entries(ctx, w.ID)
	require.NoError(t, err)
	require.Len(t, entries, 1)
}

func TestProcessorPaymentSucceededResolvesWalletFromMetadata(t *testing.T) {
	f := newProcessorFixture(t)
	w := f.createWallet(t, "")
	ctx := context.Background()

	ev := makeEvent(t, EventPaymentSucceeded, map[string]any{
		"id":       "pi_meta",
		"amount":   1000,
		"currency": "EUR",
		"metadata": map[string]string{"wallet_id": w.ID},
	})
	require.NoError(t, f.processor.Process(ctx, ev))

	balance, err := f.ledger.Balance(ctx, w.ID)
	require.NoError(t, err)
	require.Equal(t, int64(1000), balance)
}

func TestProcessorPaymentForUnknownCustomerIsAcked(t *testing.T) {
	f := newProcessorFixture(t)

	ev := makeEvent(t, EventPaymentSucceeded, map[string]any{
		"id":       "pi_orphan",
		"amount":   1000,
		"customer": "cus_missing",
	})
	require.NoError(t, f.processor.Process(context.Background(), ev))
}

func TestProcessorPaymentForUnknownMetadataWalletIsAcked(t *testing.T) {
	f := newProcessorFixture(t)

	ev := makeEvent(t, EventPaymentSucceeded, map[string]any{
		"id":       "pi_dangling",
		"amount":   1000,
		"metadata": map[string]string{"wallet_id": uuid.NewString()},
	})
	require.NoError(t, f.processor.Process(context.Background(), ev))
}

func TestProcessorCustomerCreatedAttachesBillingRef(t *testing.T) {
	f := newProcessorFixture(t)
	w := f.createWallet(t, "")
	ctx := context.Background()

	ev := makeEvent(t, EventCustomerCreated, map[string]any{
		"id":       "cus_new",
		"metadata": map[string]string{"wallet_id": w.ID},
	})
	require.NoError(t, f.processor.Process(ctx, ev))

	resolved, err := f.wallets.GetByBillingRef(ctx, "cus_new")
	require.NoError(t, err)
	require.Equal(t, w.ID, resolved.ID)
}

func TestProcessorPaymentMethodLifecycle(t *testing.T) {
	f := newProcessorFixture(t)
	w := f.createWallet(t, "cus_123")
	ctx := context.Background()

	attach := makeEvent(t, EventPaymentMethodAttached, map[string]any{
		"id":       "pm_1",
		"type":     "card",
		"customer": "cus_123",
	})
	require.NoError(t, f.processor.Process(ctx, attach))
	require.NoError(t, f.processor.Process(ctx, attach))

	methods, err := f.methods.ForWallet(ctx, w.ID)
	require.NoError(t, err)
	require.Len(t, methods, 1)
	require.Equal(t, "pm_1", methods[0].ProviderID)

	update := makeEvent(t, EventCustomerUpdated, map[string]any{
		"id":               "cus_123",
		"invoice_settings": map[string]string{"default_payment_method": "pm_1"},
	})
	require.NoError(t, f.processor.Process(ctx, update))

	detach := makeEvent(t, EventPaymentMethodDetached, map[string]any{
		"id":       "pm_1",
		"customer": "cus_123",
	})
	require.NoError(t, f.processor.Process(ctx, detach))
	require.NoError(t, f.processor.Process(ctx, detach))

	methods, err = f.methods.ForWallet(ctx, w.ID)
	require.NoError(t, err)
	require.Empty(t, methods)
}

func TestProcessorSubscriptionMirror(t *testing.T) {
	f := newProcessorFixture(t)
	w := f.createWallet(t, "cus_123")
	ctx := context.Background()
	periodEnd := time.Now().AddDate(0, 1, 0).Unix()

	created := makeEvent(t, EventSubscriptionCreated, map[string]any{
		"id":                 "sub_1",
		"customer":           "cus_123",
		"status":             "active",
		"current_period_end": periodEnd,
	})
	require.NoError(t, f.processor.Process(ctx, created))

	updated := makeEvent(t, EventSubscriptionUpdated, map[string]any{
		"id":                 "sub_1",
		"customer":           "cus_123",
		"status":             "past_due",
		"current_period_end": periodEnd,
	})
	require.NoError(t, f.processor.Process(ctx, updated))

	subs, err := f.subs.ForWallet(ctx, w.ID)
	require.NoError(t, err)
	require.Len(t, subs, 1)
	require.Equal(t, "past_due", subs[0].Status)

	deleted := makeEvent(t, EventSubscriptionDeleted, map[string]any{
		"id":       "sub_1",
		"customer": "cus_123",
	})
	require.NoError(t, f.processor.Process(ctx, deleted))

	subs, err = f.subs.ForWallet(ctx, w.ID)
	require.NoError(t, err)
	require.Empty(t, subs)
}

func TestProcessorIgnoresUnknownEventTypes(t *testing.T) {
	f := newProcessorFixture(t)
	ev := makeEvent(t, "invoice.finalized", map[string]any{"id": "in_1"})
	require.NoError(t, f.processor.Process(context.Background(), ev))
}
