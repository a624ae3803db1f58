package subscription

import "time"

// Subscription mirrors the payment provider's subscription record for a
// wallet. The provider is the source of truth; this copy is best-effort and
// only maintained through settlement events.
type Subscription struct {
	ID               string
	WalletID         string
	ProviderID       string
	Status           string
	CurrentPeriodEnd time.Time
	UpdatedAt        time.Time
}
