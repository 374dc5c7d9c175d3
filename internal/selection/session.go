package selection

import (
	"errors"
	"fmt"
	"math"
	"sync"

	"github.com/grandkuni/gkb/internal/catalog"
	"github.com/grandkuni/gkb/internal/money"
)

var (
	// ErrUnknownEntry means the id is not in the session's catalog.
	ErrUnknownEntry = errors.New("unknown catalog entry")
	// ErrUnselectable means a debit entry's base cost exceeds the balance.
	ErrUnselectable = errors.New("entry is not affordable")
	// ErrNotVariable means a quantity was set on a fixed-cost entry.
	ErrNotVariable = errors.New("entry has no adjustable quantity")
)

// BalanceReader exposes the live balance the session is checked against.
type BalanceReader interface {
	Balance() money.Amount
}

// Selection is one chosen entry and the amount it contributes.
type Selection struct {
	EntryID  int
	Label    string
	Amount   money.Amount
	Quantity int
}

// Session accumulates the entries chosen for one credit or debit transaction.
// It owns its selections; nothing outside the session mutates them.
type Session struct {
	mu         sync.Mutex
	catalog    *catalog.Catalog
	balance    BalanceReader
	selected   selections
	quantities map[int]int
}

// Open starts an empty session over cat.
func Open(cat *catalog.Catalog, balance BalanceReader) *Session {
	return &Session{
		catalog:    cat,
		balance:    balance,
		selected:   newSelections(),
		quantities: make(map[int]int),
	}
}

// Kind returns the kind of the session's catalog.
func (s *Session) Kind() catalog.Kind { return s.catalog.Kind() }

// Catalog returns the catalog the session selects from.
func (s *Session) Catalog() *catalog.Catalog { return s.catalog }

// Selectable reports whether id can currently be toggled on.
func (s *Session) Selectable(id int) bool {
	e, ok := s.catalog.Entry(id)
	if !ok {
		return false
	}
	return s.catalog.Affordable(e, s.balance.Balance())
}

// Toggle deselects id when selected, otherwise selects it. A sweep entry
// captures the balance at this moment; later balance changes do not move it.
// It reports whether the entry is selected afterwards.
func (s *Session) Toggle(id int) (bool, error) {
	e, ok := s.catalog.Entry(id)
	if !ok {
		return false, fmt.Errorf("%w: %d", ErrUnknownEntry, id)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if s.selected.has(id) {
		s.selected.remove(id)
		return false, nil
	}

	balance := s.balance.Balance()
	if !s.catalog.Affordable(e, balance) {
		return false, fmt.Errorf("%w: %d", ErrUnselectable, id)
	}

	amount, err := s.amountLocked(e, balance)
	if err != nil {
		return false, err
	}
	if !amount.IsPositive() {
		// sweeping an empty balance selects nothing
		return false, nil
	}
	if err := s.selected.insert(id, amount); err != nil {
		return false, fmt.Errorf("select %d: %w", id, err)
	}
	return true, nil
}

// SetQuantity sets the quantity of a variable entry, clamped to at least 1,
// and stores the recomputed amount. An unselected entry becomes selected.
// A quantity whose amount or total does not fit an Amount is refused with
// money.ErrRange and leaves the session unchanged.
func (s *Session) SetQuantity(id, quantity int) error {
	e, ok := s.catalog.Entry(id)
	if !ok {
		return fmt.Errorf("%w: %d", ErrUnknownEntry, id)
	}
	if !e.Variable {
		return fmt.Errorf("%w: %d", ErrNotVariable, id)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.catalog.Affordable(e, s.balance.Balance()) {
		return fmt.Errorf("%w: %d", ErrUnselectable, id)
	}

	if quantity < 1 {
		quantity = 1
	}
	amount, err := e.BaseCost.Times(quantity)
	if err != nil {
		return fmt.Errorf("quantity of %d: %w", id, err)
	}
	if err := s.selected.insert(id, amount); err != nil {
		return fmt.Errorf("quantity of %d: %w", id, err)
	}
	s.quantities[id] = quantity
	return nil
}

// AdjustQuantity moves the quantity of a variable entry by delta.
func (s *Session) AdjustQuantity(id, delta int) error {
	current := s.Quantity(id)
	if delta > 0 && current > math.MaxInt-delta {
		return fmt.Errorf("quantity of %d: %w", id, money.ErrRange)
	}
	return s.SetQuantity(id, current+delta)
}

// Quantity returns the configured quantity of id (1 when never set).
func (s *Session) Quantity(id int) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.quantityLocked(id)
}

// Total sums the selected amounts.
func (s *Session) Total() money.Amount {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.selected.total()
}

// Empty reports whether nothing is selected.
func (s *Session) Empty() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.selected.len() == 0
}

// CanCommit reports whether the session may be committed against balance.
// Debits must be covered by the balance; credits only need a positive total.
func (s *Session) CanCommit(balance money.Amount) bool {
	total := s.Total()
	if !total.IsPositive() {
		return false
	}
	if s.Kind() == catalog.KindDebit {
		return total <= balance
	}
	return true
}

// Descriptions lists the labels of the selected entries in selection order.
func (s *Session) Descriptions() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]string, 0, s.selected.len())
	for _, id := range s.selected.order {
		e, _ := s.catalog.Entry(id)
		out = append(out, e.Label)
	}
	return out
}

// Selections returns the selected entries in selection order.
func (s *Session) Selections() []Selection {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]Selection, 0, s.selected.len())
	for _, id := range s.selected.order {
		e, _ := s.catalog.Entry(id)
		sel := Selection{EntryID: id, Label: e.Label, Amount: s.selected.amounts[id]}
		if e.Variable {
			sel.Quantity = s.quantityLocked(id)
		}
		out = append(out, sel)
	}
	return out
}

func (s *Session) amountLocked(e catalog.Entry, balance money.Amount) (money.Amount, error) {
	switch {
	case e.Sweep:
		return balance, nil
	case e.Variable:
		return e.BaseCost.Times(s.quantityLocked(e.ID))
	default:
		return e.BaseCost, nil
	}
}

func (s *Session) quantityLocked(id int) int {
	if q, ok := s.quantities[id]; ok {
		return q
	}
	return 1
}
