package ledger

import "github.com/grandkuni/gkb/internal/money"

// SeedBalance is a test helper that overwrites the in-memory balance without
// recording a transaction or persisting, e.g. to simulate another tab spending.
func SeedBalance(e *Engine, amount money.Amount) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.balance = amount
}
