package catalog

import (
	"errors"
	"fmt"

	"github.com/go-playground/validator/v10"

	"github.com/grandkuni/gkb/internal/money"
)

// ErrInvalidCatalog wraps every load-time validation failure.
var ErrInvalidCatalog = errors.New("invalid catalog")

// Kind distinguishes the credit ("earn") and debit ("spend") catalogs.
type Kind string

const (
	KindCredit Kind = "credit"
	KindDebit  Kind = "debit"
)

// ParseKind validates a kind name.
func ParseKind(s string) (Kind, error) {
	switch Kind(s) {
	case KindCredit, KindDebit:
		return Kind(s), nil
	default:
		return "", fmt.Errorf("unknown catalog kind %q", s)
	}
}

// Entry is one predefined reason with its cost.
type Entry struct {
	ID       int          `toml:"id" json:"id" validate:"gt=0"`
	Label    string       `toml:"label" json:"label" validate:"required"`
	Emoji    string       `toml:"emoji" json:"emoji,omitempty"`
	BaseCost money.Amount `toml:"base_cost" json:"base_cost" validate:"gte=0"`
	// Variable entries cost BaseCost per unit of a user-chosen quantity.
	Variable bool `toml:"variable" json:"variable"`
	// Sweep entries cost the whole balance at the moment they are selected.
	Sweep bool `toml:"sweep" json:"sweep"`
}

// Catalog is an immutable, validated list of entries of one kind.
type Catalog struct {
	kind    Kind
	entries []Entry
	index   map[int]int
}

var validate = validator.New()

// New validates entries and builds a catalog. Entry order is preserved.
func New(kind Kind, entries []Entry) (*Catalog, error) {
	if _, err := ParseKind(string(kind)); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidCatalog, err)
	}
	if len(entries) == 0 {
		return nil, fmt.Errorf("%w: %s catalog is empty", ErrInvalidCatalog, kind)
	}

	c := &Catalog{
		kind:    kind,
		entries: make([]Entry, len(entries)),
		index:   make(map[int]int, len(entries)),
	}
	copy(c.entries, entries)

	for i, e := range c.entries {
		if err := validate.Struct(e); err != nil {
			return nil, fmt.Errorf("%w: %s entry %d: %v", ErrInvalidCatalog, kind, e.ID, err)
		}
		if _, dup := c.index[e.ID]; dup {
			return nil, fmt.Errorf("%w: %s entry id %d is duplicated", ErrInvalidCatalog, kind, e.ID)
		}
		if e.Variable && !e.BaseCost.IsPositive() {
			return nil, fmt.Errorf("%w: %s entry %d is variable but has no unit cost", ErrInvalidCatalog, kind, e.ID)
		}
		if e.Sweep && (e.Variable || kind != KindDebit) {
			return nil, fmt.Errorf("%w: %s entry %d: sweep entries must be fixed debit entries", ErrInvalidCatalog, kind, e.ID)
		}
		if !e.Sweep && !e.BaseCost.IsPositive() {
			return nil, fmt.Errorf("%w: %s entry %d has no cost", ErrInvalidCatalog, kind, e.ID)
		}
		c.index[e.ID] = i
	}

	return c, nil
}

// Kind returns the catalog kind.
func (c *Catalog) Kind() Kind { return c.kind }

// Entries returns a copy of the entries in catalog order.
func (c *Catalog) Entries() []Entry {
	out := make([]Entry, len(c.entries))
	copy(out, c.entries)
	return out
}

// Entry looks an entry up by id.
func (c *Catalog) Entry(id int) (Entry, bool) {
	i, ok := c.index[id]
	if !ok {
		return Entry{}, false
	}
	return c.entries[i], true
}

// Affordable reports whether e can be selected against balance in this catalog.
// Credit entries are always affordable; a debit entry is not when its base cost
// alone exceeds the balance, unless it sweeps the balance.
func (c *Catalog) Affordable(e Entry, balance money.Amount) bool {
	if c.kind != KindDebit || e.Sweep {
		return true
	}
	return e.BaseCost <= balance
}

// Set holds the two catalogs loaded at start.
type Set struct {
	Credit *Catalog
	Debit  *Catalog
}

// For returns the catalog of the given kind.
func (s Set) For(kind Kind) (*Catalog, error) {
	switch kind {
	case KindCredit:
		return s.Credit, nil
	case KindDebit:
		return s.Debit, nil
	default:
		return nil, fmt.Errorf("unknown catalog kind %q", kind)
	}
}
