package ledger

// SeedBalance is a test helper that gives a wallet an opening balance when
// using the in-memory ledger. The balance is established through a regular
// adjustment entry so the sum-of-entries invariant keeps holding.
func SeedBalance(l Ledger, walletID string, amount int64) {
	RegisterWallet(l, walletID)
	if mem, ok := l.(*inMemoryLedger); ok && amount != 0 {
		_, _ = mem.post(walletID, amount, ReasonAdjustment, "")
	}
}
