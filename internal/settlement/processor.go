package settlement

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/velora-mobility/velora/internal/ledger"
	"github.com/velora-mobility/velora/internal/metrics"
	"github.com/velora-mobility/velora/internal/notification"
	"github.com/velora-mobility/velora/internal/paymentmethod"
	"github.com/velora-mobility/velora/internal/subscription"
	"github.com/velora-mobility/velora/internal/wallet"
)

// Processor applies settlement events to local state. Every handler is
// idempotent because the provider redelivers events until acknowledged.
type Processor struct {
	wallets  *wallet.Service
	methods  paymentmethod.Repository
	subs     subscription.Repository
	ledger   ledger.Ledger
	notifier notification.Notifier
	logger   *slog.Logger
}

// NewProcessor wires the settlement processor.
func NewProcessor(wallets *wallet.Service, methods paymentmethod.Repository, subs subscription.Repository, l ledger.Ledger, notifier notification.Notifier, logger *slog.Logger) *Processor {
	return &Processor{wallets: wallets, methods: methods, subs: subs, ledger: l, notifier: notifier, logger: logger}
}

// Process dispatches the event to its handler. Unknown event types are
// acknowledged so the provider stops redelivering them.
func (p *Processor) Process(ctx context.Context, ev Event) error {
	var err error
	switch ev.Type {
	case EventCustomerCreated:
		err = p.customerCreated(ctx, ev)
	case EventCustomerUpdated:
		err = p.customerUpdated(ctx, ev)
	case EventPaymentMethodAttached:
		err = p.paymentMethodAttached(ctx, ev)
	case EventPaymentMethodUpdated:
		err = p.paymentMethodUpdated(ctx, ev)
	case EventPaymentMethodDetached:
		err = p.paymentMethodDetached(ctx, ev)
	case EventPaymentSucceeded:
		err = p.paymentSucceeded(ctx, ev)
	case EventSubscriptionCreated, EventSubscriptionUpdated:
		err = p.subscriptionUpserted(ctx, ev)
	case EventSubscriptionDeleted:
		err = p.subscriptionDeleted(ctx, ev)
	default:
		p.logger.Info("settlement event ignored", "event_id", ev.ID, "type", ev.Type)
		metrics.RecordWebhookEvent(ev.Type, "ignored")
		return nil
	}
	if err != nil {
		metrics.RecordWebhookEvent(ev.Type, "error")
		return fmt.Errorf("%s: %w", ev.Type, err)
	}
	metrics.RecordWebhookEvent(ev.Type, "ok")
	return nil
}

func (p *Processor) customerCreated(ctx context.Context, ev Event) error {
	var obj customerObject
	if err := json.Unmarshal(ev.Data.Object, &obj); err != nil {
		return err
	}
	walletID := obj.Metadata["wallet_id"]
	if walletID == "" {
		p.logger.Warn("customer event without wallet metadata", "event_id", ev.ID, "customer", obj.ID)
		return nil
	}
	return p.wallets.AttachBillingRef(ctx, walletID, obj.ID)
}

func (p *Processor) customerUpdated(ctx context.Context, ev Event) error {
	var obj customerObject
	if err := json.Unmarshal(ev.Data.Object, &obj); err != nil {
		return err
	}
	w, err := p.wallets.GetByBillingRef(ctx, obj.ID)
	if err != nil {
		if errors.Is(err, wallet.ErrNotFound) {
			p.logger.Warn("customer update for unknown wallet", "event_id", ev.ID, "customer", obj.ID)
			return nil
		}
		return err
	}

	defaultRef := obj.InvoiceSettings.DefaultPaymentMethod
	if defaultRef == "" {
		return p.wallets.SetDefaultPaymentMethod(ctx, w.ID, "", "")
	}
	pm, err := p.methods.GetByProviderID(ctx, defaultRef)
	if err != nil {
		if errors.Is(err, paymentmethod.ErrNotFound) {
			p.logger.Warn("default payment method not attached yet", "event_id", ev.ID, "provider_id", defaultRef)
			return nil
		}
		return err
	}
	return p.wallets.SetDefaultPaymentMethod(ctx, w.ID, "", pm.ID)
}

func (p *Processor) paymentMethodAttached(ctx context.Context, ev Event) error {
	var obj paymentMethodObject
	if err := json.Unmarshal(ev.Data.Object, &obj); err != nil {
		return err
	}
	w, err := p.wallets.GetByBillingRef(ctx, obj.Customer)
	if err != nil {
		if errors.Is(err, wallet.ErrNotFound) {
			p.logger.Warn("payment method for unknown wallet", "event_id", ev.ID, "customer", obj.Customer)
			return nil
		}
		return err
	}
	_, err = p.methods.UpsertByProviderID(ctx, paymentmethod.PaymentMethod{
		WalletID:   w.ID,
		Type:       obj.Type,
		Data:       ev.Data.Object,
		ProviderID: obj.ID,
	})
	return err
}

func (p *Processor) paymentMethodUpdated(ctx context.Context, ev Event) error {
	var obj paymentMethodObject
	if err := json.Unmarshal(ev.Data.Object, &obj); err != nil {
		return err
	}
	return p.methods.UpdateDataByProviderID(ctx, obj.ID, ev.Data.Object)
}

func (p *Processor) paymentMethodDetached(ctx context.Context, ev Event) error {
	var obj paymentMethodObject
	if err := json.Unmarshal(ev.Data.Object, &obj); err != nil {
		return err
	}
	return p.methods.DeleteByProviderID(ctx, obj.ID)
}

// paymentSucceeded credits the wallet for a settled charge. The payment id
// doubles as the ledger external reference, so a redelivered event posts
// nothing new.
func (p *Processor) paymentSucceeded(ctx context.Context, ev Event) error {
	var obj paymentIntentObject
	if err := json.Unmarshal(ev.Data.Object, &obj); err != nil {
		return err
	}
	if obj.Amount <= 0 {
		p.logger.Warn("payment without positive amount", "event_id", ev.ID, "payment", obj.ID)
		return nil
	}

	walletID := obj.Metadata["wallet_id"]
	if walletID == "" {
		w, err := p.wallets.GetByBillingRef(ctx, obj.Customer)
		if err != nil {
			if errors.Is(err, wallet.ErrNotFound) {
				p.logger.Warn("payment for unknown wallet", "event_id", ev.ID, "customer", obj.Customer)
				return nil
			}
			return err
		}
		walletID = w.ID
	}

	reason := ledger.ReasonCredit
	if obj.Metadata["reason"] == ledger.ReasonSubscription {
		reason = ledger.ReasonSubscription
	}

	entry, err := p.ledger.Credit(ctx, walletID, obj.Amount, reason, obj.ID)
	if err != nil {
		if errors.Is(err, ledger.ErrDuplicateEntry) {
			p.logger.Info("payment already settled", "event_id", ev.ID, "payment", obj.ID)
			return nil
		}
		if errors.Is(err, ledger.ErrWalletNotFound) {
			// Redelivery cannot fix a dangling wallet reference; ack it.
			p.logger.Warn("payment for unknown wallet", "event_id", ev.ID, "wallet_id", walletID)
			return nil
		}
		return err
	}
	metrics.RecordLedgerEntry(reason)

	if p.notifier != nil {
		if err := p.notifier.Send(ctx, notification.Message{
			Kind:        notification.KindWalletCredit,
			Destination: walletID,
			Body:        fmt.Sprintf("wallet credited %d (%s)", entry.Amount, obj.Currency),
		}); err != nil {
			p.logger.Warn("credit notification failed", "wallet_id", walletID, "error", err)
		}
	}
	return nil
}

func (p *Processor) subscriptionUpserted(ctx context.Context, ev Event) error {
	var obj subscriptionObject
	if err := json.Unmarshal(ev.Data.Object, &obj); err != nil {
		return err
	}
	w, err := p.wallets.GetByBillingRef(ctx, obj.Customer)
	if err != nil {
		if errors.Is(err, wallet.ErrNotFound) {
			p.logger.Warn("subscription for unknown wallet", "event_id", ev.ID, "customer", obj.Customer)
			return nil
		}
		return err
	}
	return p.subs.Upsert(ctx, subscription.Subscription{
		WalletID:         w.ID,
		ProviderID:       obj.ID,
		Status:           obj.Status,
		CurrentPeriodEnd: time.Unix(obj.CurrentPeriodEnd, 0).UTC(),
	})
}

func (p *Processor) subscriptionDeleted(ctx context.Context, ev Event) error {
	var obj subscriptionObject
	if err := json.Unmarshal(ev.Data.Object, &obj); err != nil {
		return err
	}
	return p.subs.DeleteByProviderID(ctx, obj.ID)
}
