package hold

import "github.com/grandkuni/gkb/internal/money"

// FixedAmount is a Source for a plain yes/no confirmation of a single amount.
type FixedAmount struct {
	Amount      money.Amount
	Description string
	// Allow, when set, gates commit on the amount (e.g. against the balance).
	Allow func(money.Amount) bool
}

func (f FixedAmount) CanCommit() bool {
	if !f.Amount.IsPositive() {
		return false
	}
	return f.Allow == nil || f.Allow(f.Amount)
}

func (f FixedAmount) Total() money.Amount { return f.Amount }

func (f FixedAmount) Descriptions() []string {
	if f.Description == "" {
		return nil
	}
	return []string{f.Description}
}
