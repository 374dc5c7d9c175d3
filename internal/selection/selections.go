package selection

import "github.com/grandkuni/gkb/internal/money"

// selections maps entry ids to amounts and remembers insertion order, so the
// committed description lists entries in the order they were picked.
type selections struct {
	order   []int
	amounts map[int]money.Amount
}

func newSelections() selections {
	return selections{amounts: make(map[int]money.Amount)}
}

func (s *selections) has(id int) bool {
	_, ok := s.amounts[id]
	return ok
}

// insert adds id or overwrites its amount in place. It refuses an amount that
// would push the total out of range, so total never wraps.
func (s *selections) insert(id int, amount money.Amount) error {
	rest := s.total() - s.amounts[id]
	if _, err := rest.Add(amount); err != nil {
		return err
	}
	if !s.has(id) {
		s.order = append(s.order, id)
	}
	s.amounts[id] = amount
	return nil
}

func (s *selections) remove(id int) {
	if !s.has(id) {
		return
	}
	delete(s.amounts, id)
	for i, v := range s.order {
		if v == id {
			s.order = append(s.order[:i], s.order[i+1:]...)
			break
		}
	}
}

func (s *selections) len() int { return len(s.order) }

func (s *selections) total() money.Amount {
	var total money.Amount
	for _, a := range s.amounts {
		total += a
	}
	return total
}
