package bank

import (
	"github.com/grandkuni/gkb/internal/catalog"
	"github.com/grandkuni/gkb/internal/ledger"
	"github.com/grandkuni/gkb/internal/money"
)

// State is what a presentation layer renders.
type State struct {
	Balance      money.Amount         `json:"balance"`
	Transactions []ledger.Transaction `json:"transactions"`
	Session      *SessionState        `json:"session"`
	FaceSwipes   int                  `json:"face_swipes"`
	LastError    string               `json:"last_error,omitempty"`
}

// SessionState describes the open interaction.
type SessionState struct {
	Flow        Flow             `json:"flow"`
	Kind        catalog.Kind     `json:"kind"`
	Selections  []SelectionState `json:"selections"`
	Description string           `json:"description,omitempty"`
	Total       money.Amount     `json:"total"`
	CanCommit   bool             `json:"can_commit"`
	Hold        HoldState        `json:"hold"`
}

type SelectionState struct {
	EntryID  int          `json:"entry_id"`
	Label    string       `json:"label"`
	Amount   money.Amount `json:"amount"`
	Quantity int          `json:"quantity,omitempty"`
}

type HoldState struct {
	State    string `json:"state"`
	Progress int    `json:"progress"`
}

// EntryView is a catalog entry with its selectability against the live balance.
type EntryView struct {
	catalog.Entry
	Selectable bool `json:"selectable"`
	Selected   bool `json:"selected"`
	Quantity   int  `json:"quantity,omitempty"`
}

// Snapshot returns the current state.
func (c *Controller) Snapshot() State {
	c.mu.Lock()
	defer c.mu.Unlock()

	st := State{
		Balance:      c.ledger.Balance(),
		Transactions: c.ledger.Transactions(),
		FaceSwipes:   c.faceSwipes,
		LastError:    c.lastError,
	}
	if in := c.active; in != nil {
		ss := &SessionState{
			Flow:       in.flow,
			Kind:       in.kind,
			Selections: []SelectionState{},
			Hold:       HoldState{State: in.gesture.State().String(), Progress: in.gesture.Progress()},
		}
		if in.session != nil {
			for _, sel := range in.session.Selections() {
				ss.Selections = append(ss.Selections, SelectionState(sel))
			}
			ss.Total = in.session.Total()
			ss.CanCommit = in.session.CanCommit(st.Balance)
		} else {
			ss.Description = in.fixed.Description
			ss.Total = in.fixed.Total()
			ss.CanCommit = in.fixed.CanCommit()
		}
		st.Session = ss
	}
	return st
}

// Catalog lists the entries of kind. Selection details are filled in when the
// open session uses that catalog.
func (c *Controller) Catalog(kind catalog.Kind) ([]EntryView, error) {
	cat, err := c.catalogs.For(kind)
	if err != nil {
		return nil, err
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	balance := c.ledger.Balance()
	selected := map[int]bool{}
	var in *interaction
	if c.active != nil && c.active.session != nil && c.active.kind == kind {
		in = c.active
		for _, sel := range in.session.Selections() {
			selected[sel.EntryID] = true
		}
	}

	entries := cat.Entries()
	out := make([]EntryView, 0, len(entries))
	for _, e := range entries {
		v := EntryView{Entry: e, Selectable: cat.Affordable(e, balance), Selected: selected[e.ID]}
		if e.Variable {
			v.Quantity = 1
			if in != nil {
				v.Quantity = in.session.Quantity(e.ID)
			}
		}
		out = append(out, v)
	}
	return out, nil
}
