package ledger

import (
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/grandkuni/gkb/internal/money"
)

var (
	// ErrInsufficientFunds occurs when a debit exceeds the current balance.
	// The balance and the log are left untouched.
	ErrInsufficientFunds = errors.New("insufficient funds")

	// ErrInvalidAmount indicates a non-positive credit or debit amount.
	ErrInvalidAmount = errors.New("amount must be positive")

	// ErrBalanceOverflow means a credit would push the balance past money.MaxAmount.
	ErrBalanceOverflow = errors.New("balance would exceed the largest amount")
)

const (
	// BalanceKey holds the balance in its decimal string form.
	BalanceKey = "balance"
	// TransactionsKey holds the JSON transaction log, most recent first.
	TransactionsKey = "transactions"
)

// Kind is the direction of a transaction. The values are the persisted wire names.
type Kind string

const (
	KindCredit Kind = "add"
	KindDebit  Kind = "deduct"
)

// Transaction is an immutable ledger record.
type Transaction struct {
	ID          string
	Kind        Kind
	Amount      money.Amount
	Description string
	CreatedAt   time.Time
}

type record struct {
	ID          string       `json:"id"`
	Type        Kind         `json:"type"`
	Amount      money.Amount `json:"amount"`
	Description string       `json:"description"`
	Timestamp   int64        `json:"timestamp"`
}

// MarshalJSON writes the persisted layout with a millisecond epoch timestamp.
func (t Transaction) MarshalJSON() ([]byte, error) {
	return json.Marshal(record{
		ID:          t.ID,
		Type:        t.Kind,
		Amount:      t.Amount,
		Description: t.Description,
		Timestamp:   t.CreatedAt.UnixMilli(),
	})
}

// UnmarshalJSON reads the persisted layout.
func (t *Transaction) UnmarshalJSON(data []byte) error {
	var r record
	if err := json.Unmarshal(data, &r); err != nil {
		return err
	}
	*t = Transaction{
		ID:          r.ID,
		Kind:        r.Type,
		Amount:      r.Amount,
		Description: r.Description,
		CreatedAt:   time.UnixMilli(r.Timestamp).UTC(),
	}
	return nil
}

// Validate checks a restored record: a non-empty id, a known kind and a
// positive amount.
func (t Transaction) Validate() error {
	switch {
	case t.ID == "":
		return errors.New("transaction without id")
	case t.Kind != KindCredit && t.Kind != KindDebit:
		return fmt.Errorf("transaction %s: unknown type %q", t.ID, t.Kind)
	case !t.Amount.IsPositive():
		return fmt.Errorf("transaction %s: non-positive amount %s", t.ID, t.Amount)
	}
	return nil
}
