package wallet

import "time"

// Wallet is a stored value account backed by the ledger. Balance is never a
// field here: it is always derived by summing the wallet's ledger entries.
type Wallet struct {
	ID         string
	UserID     string
	Name       string
	BillingRef string // payment-provider customer id, empty until provisioned
	CreatedAt  time.Time
}

// Balance encapsulates available funds for a wallet at a point in time.
type Balance struct {
	WalletID string
	Amount   int64
	AsOf     time.Time
}
