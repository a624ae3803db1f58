package paymentmethod

import (
	"encoding/json"
	"time"
)

// PaymentMethod is a stored payment instrument attached to a wallet. Data is
// an opaque provider-specific blob; ProviderID is the processor's identifier
// used to correlate webhook events.
type PaymentMethod struct {
	ID         string
	WalletID   string
	Type       string
	Data       json.RawMessage
	ProviderID string
	CreatedAt  time.Time
}
