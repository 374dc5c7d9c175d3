package clock

import (
	"sync"
	"time"
)

// Manual is a Clock that only moves when Advance is called. Callbacks run on the
// goroutine calling Advance, in due-time order. It is meant for tests.
type Manual struct {
	mu     sync.Mutex
	now    time.Time
	seq    int
	events []*manualEvent
}

type manualEvent struct {
	clock    *Manual
	seq      int
	due      time.Time
	interval time.Duration
	f        func()
	stopped  bool
}

// NewManual returns a manual clock starting at start.
func NewManual(start time.Time) *Manual {
	return &Manual{now: start}
}

// Now returns the current manual time.
func (m *Manual) Now() time.Time {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.now
}

// Every schedules f every interval starting one interval from now.
func (m *Manual) Every(interval time.Duration, f func()) Stopper {
	return m.schedule(interval, interval, f)
}

// AfterFunc schedules f once after delay.
func (m *Manual) AfterFunc(delay time.Duration, f func()) Stopper {
	return m.schedule(delay, 0, f)
}

func (m *Manual) schedule(delay, interval time.Duration, f func()) Stopper {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.seq++
	ev := &manualEvent{clock: m, seq: m.seq, due: m.now.Add(delay), interval: interval, f: f}
	m.events = append(m.events, ev)
	return ev
}

func (e *manualEvent) Stop() {
	e.clock.mu.Lock()
	defer e.clock.mu.Unlock()
	e.stopped = true
}

// Pending returns the number of scheduled callbacks that have not been stopped or fired.
func (m *Manual) Pending() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	n := 0
	for _, ev := range m.events {
		if !ev.stopped {
			n++
		}
	}
	return n
}

// Advance moves the clock forward by d, firing every callback that falls due.
func (m *Manual) Advance(d time.Duration) {
	m.mu.Lock()
	target := m.now.Add(d)
	m.mu.Unlock()

	for {
		m.mu.Lock()
		ev := m.nextDueLocked(target)
		if ev == nil {
			m.now = target
			m.mu.Unlock()
			return
		}
		m.now = ev.due
		if ev.interval > 0 {
			ev.due = ev.due.Add(ev.interval)
		} else {
			ev.stopped = true
		}
		f := ev.f
		m.mu.Unlock()

		f()
	}
}

func (m *Manual) nextDueLocked(target time.Time) *manualEvent {
	live := m.events[:0]
	var next *manualEvent
	for _, ev := range m.events {
		if ev.stopped {
			continue
		}
		live = append(live, ev)
		if ev.due.After(target) {
			continue
		}
		if next == nil || ev.due.Before(next.due) || (ev.due.Equal(next.due) && ev.seq < next.seq) {
			next = ev
		}
	}
	m.events = live
	return next
}
