package hold

import (
	"errors"
	"sync"
	"time"

	"github.com/grandkuni/gkb/internal/clock"
	"github.com/grandkuni/gkb/internal/money"
)

// Complete is the progress value at which a hold commits.
const Complete = 100

var (
	// ErrNotCommittable is returned by Start when the source cannot commit.
	ErrNotCommittable = errors.New("nothing to commit")
	// ErrClosed is returned by Start after Close.
	ErrClosed = errors.New("gesture closed")
)

// State is the gesture's position in Idle -> Holding -> Committed.
type State int

const (
	Idle State = iota
	Holding
	Committed
)

func (s State) String() string {
	switch s {
	case Idle:
		return "idle"
	case Holding:
		return "holding"
	case Committed:
		return "committed"
	default:
		return "unknown"
	}
}

// Source is what the gesture confirms: a selection session or a fixed amount.
type Source interface {
	CanCommit() bool
	Total() money.Amount
	Descriptions() []string
}

// CommitFunc receives the total and descriptions captured when progress hit 100.
type CommitFunc func(total money.Amount, descriptions []string)

// Config tunes the gesture timing.
type Config struct {
	TickInterval time.Duration
	Step         int
	GraceDelay   time.Duration
}

// DefaultConfig fills 2% every 20ms (one second to complete) and waits 200ms
// before firing the commit so the completion effect can play.
func DefaultConfig() Config {
	return Config{TickInterval: 20 * time.Millisecond, Step: 2, GraceDelay: 200 * time.Millisecond}
}

// Gesture is the hold-to-confirm state machine. At most one tick timer runs at
// a time and every exit path stops it.
type Gesture struct {
	mu       sync.Mutex
	cfg      Config
	clock    clock.Clock
	source   Source
	onCommit CommitFunc

	state    State
	progress int
	ticker   clock.Stopper
	grace    clock.Stopper
	// generation invalidates callbacks from timers stopped while already queued.
	generation uint64
	fired      bool
	closed     bool
}

// New builds an idle gesture over source.
func New(cfg Config, clk clock.Clock, source Source, onCommit CommitFunc) *Gesture {
	if cfg.Step <= 0 {
		cfg.Step = DefaultConfig().Step
	}
	if cfg.TickInterval <= 0 {
		cfg.TickInterval = DefaultConfig().TickInterval
	}
	if clk == nil {
		clk = clock.Real()
	}
	return &Gesture{cfg: cfg, clock: clk, source: source, onCommit: onCommit}
}

// Start begins a hold. It is a no-op while already holding or committed, and
// is rejected without any state change when the source cannot commit.
func (g *Gesture) Start() error {
	g.mu.Lock()
	defer g.mu.Unlock()

	if g.closed {
		return ErrClosed
	}
	if g.state != Idle {
		return nil
	}
	if !g.source.CanCommit() {
		return ErrNotCommittable
	}

	g.generation++
	gen := g.generation
	g.state = Holding
	g.progress = 0
	g.ticker = g.clock.Every(g.cfg.TickInterval, func() { g.tick(gen) })
	return nil
}

// Release ends a hold early: the timer stops and progress returns to 0.
// It reports whether a hold was actually abandoned. Committed gestures are unaffected.
func (g *Gesture) Release() bool {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.releaseLocked()
}

// Revalidate releases an in-progress hold whose source can no longer commit,
// e.g. after the last entry was deselected.
func (g *Gesture) Revalidate() bool {
	g.mu.Lock()
	defer g.mu.Unlock()
	if g.state != Holding || g.source.CanCommit() {
		return false
	}
	return g.releaseLocked()
}

// Close stops every timer, including a pending commit, and disables the gesture.
func (g *Gesture) Close() {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.closed = true
	g.generation++
	g.stopTickerLocked()
	if g.grace != nil {
		g.grace.Stop()
		g.grace = nil
	}
	if g.state == Holding {
		g.state = Idle
		g.progress = 0
	}
}

// State returns the current state.
func (g *Gesture) State() State {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.state
}

// Progress returns the current progress, 0..100.
func (g *Gesture) Progress() int {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.progress
}

func (g *Gesture) releaseLocked() bool {
	if g.state != Holding {
		return false
	}
	g.generation++
	g.stopTickerLocked()
	g.state = Idle
	g.progress = 0
	return true
}

func (g *Gesture) stopTickerLocked() {
	if g.ticker != nil {
		g.ticker.Stop()
		g.ticker = nil
	}
}

func (g *Gesture) tick(gen uint64) {
	g.mu.Lock()
	defer g.mu.Unlock()

	if g.state != Holding || gen != g.generation {
		return
	}

	next := g.progress + g.cfg.Step
	if next < Complete {
		g.progress = next
		return
	}

	g.progress = Complete
	g.state = Committed
	g.stopTickerLocked()

	total := g.source.Total()
	descriptions := g.source.Descriptions()
	g.grace = g.clock.AfterFunc(g.cfg.GraceDelay, func() { g.fire(gen, total, descriptions) })
}

func (g *Gesture) fire(gen uint64, total money.Amount, descriptions []string) {
	g.mu.Lock()
	if g.fired || g.closed || gen != g.generation {
		g.mu.Unlock()
		return
	}
	g.fired = true
	g.grace = nil
	onCommit := g.onCommit
	g.mu.Unlock()

	if onCommit != nil {
		onCommit(total, descriptions)
	}
}
