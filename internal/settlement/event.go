package settlement

import "encoding/json"

// Event types pushed by the payment provider. Delivery is at-least-once:
// every handler must tolerate replays.
const (
	EventCustomerCreated       = "customer.created"
	EventCustomerUpdated       = "customer.updated"
	EventPaymentMethodAttached = "payment_method.attached"
	EventPaymentMethodUpdated  = "payment_method.updated"
	EventPaymentMethodDetached = "payment_method.detached"
	EventPaymentSucceeded      = "payment_intent.succeeded"
	EventSubscriptionCreated   = "customer.subscription.created"
	EventSubscriptionUpdated   = "customer.subscription.updated"
	EventSubscriptionDeleted   = "customer.subscription.deleted"
)

// Event is the provider's webhook envelope.
type Event struct {
	ID   string    `json:"id"`
	Type string    `json:"type"`
	Data EventData `json:"data"`
}

// EventData wraps the event's object payload, decoded per event type.
type EventData struct {
	Object json.RawMessage `json:"object"`
}

type customerObject struct {
	ID              string            `json:"id"`
	Metadata        map[string]string `json:"metadata"`
	InvoiceSettings struct {
		DefaultPaymentMethod string `json:"default_payment_method"`
	} `json:"invoice_settings"`
}

type paymentMethodObject struct {
	ID       string `json:"id"`
	Type     string `json:"type"`
	Customer string `json:"customer"`
}

type paymentIntentObject struct {
	ID       string            `json:"id"`
	Amount   int64             `json:"amount"`
	Currency string            `json:"currency"`
	Customer string            `json:"customer"`
	Metadata map[string]string `json:"metadata"`
}

type subscriptionObject struct {
	ID               string `json:"id"`
	Customer         string `json:"customer"`
	Status           string `json:"status"`
	CurrentPeriodEnd int64  `json:"current_period_end"`
}
