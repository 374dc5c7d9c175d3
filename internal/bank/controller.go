package bank

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/grandkuni/gkb/internal/catalog"
	"github.com/grandkuni/gkb/internal/clock"
	"github.com/grandkuni/gkb/internal/hold"
	"github.com/grandkuni/gkb/internal/ledger"
	"github.com/grandkuni/gkb/internal/logging"
	"github.com/grandkuni/gkb/internal/metrics"
	"github.com/grandkuni/gkb/internal/money"
	"github.com/grandkuni/gkb/internal/notification"
	"github.com/grandkuni/gkb/internal/selection"
)

var (
	// ErrNoSession means the operation needs an open catalog session.
	ErrNoSession = errors.New("no active session")
	// ErrUnknownFlow means the flow name is not credit or debit.
	ErrUnknownFlow = errors.New("unknown flow")
)

// Flow names an interaction.
type Flow string

const (
	FlowCredit  Flow = "credit"
	FlowDebit   Flow = "debit"
	FlowConfirm Flow = "confirm"
)

// ParseFlow accepts the two catalog flows.
func ParseFlow(s string) (Flow, error) {
	switch Flow(s) {
	case FlowCredit, FlowDebit:
		return Flow(s), nil
	default:
		return "", fmt.Errorf("%w: %q", ErrUnknownFlow, s)
	}
}

func (f Flow) kind() catalog.Kind {
	if f == FlowCredit {
		return catalog.KindCredit
	}
	return catalog.KindDebit
}

// Options configures a Controller. Zero values pick the defaults.
type Options struct {
	Hold           hold.Config
	ConfirmHold    hold.Config
	SwipeWindow    time.Duration
	SwipesToCredit int
	Clock          clock.Clock
	Logger         *slog.Logger
	Notifier       notification.Notifier
}

// DefaultConfirmHold is the fixed-amount confirmation timing.
func DefaultConfirmHold() hold.Config {
	cfg := hold.DefaultConfig()
	cfg.GraceDelay = 300 * time.Millisecond
	return cfg
}

// interaction is the single open page: a catalog session or a fixed confirmation.
type interaction struct {
	id      uint64
	flow    Flow
	kind    catalog.Kind
	session *selection.Session
	fixed   *hold.FixedAmount
	gesture *hold.Gesture
}

// Controller owns the ledger reference and at most one active interaction.
// Lock order: Controller.mu, then the gesture, then the session.
type Controller struct {
	mu       sync.Mutex
	ledger   *ledger.Engine
	catalogs catalog.Set
	opts     Options
	clock    clock.Clock
	logger   *slog.Logger
	notifier notification.Notifier

	active    *interaction
	nextID    uint64
	lastError string

	faceSwipes int
	swipeReset clock.Stopper
	swipeGen   uint64

	closed bool
}

// New builds a controller over engine and the loaded catalogs.
func New(engine *ledger.Engine, catalogs catalog.Set, opts Options) *Controller {
	if opts.Hold == (hold.Config{}) {
		opts.Hold = hold.DefaultConfig()
	}
	if opts.ConfirmHold == (hold.Config{}) {
		opts.ConfirmHold = DefaultConfirmHold()
	}
	if opts.SwipeWindow <= 0 {
		opts.SwipeWindow = 2 * time.Second
	}
	if opts.SwipesToCredit <= 0 {
		opts.SwipesToCredit = 3
	}
	if opts.Clock == nil {
		opts.Clock = clock.Real()
	}
	if opts.Logger == nil {
		opts.Logger = logging.Discard()
	}
	if opts.Notifier == nil {
		opts.Notifier = notification.NewLoggerNotifier(opts.Logger)
	}
	return &Controller{
		ledger:   engine,
		catalogs: catalogs,
		opts:     opts,
		clock:    opts.Clock,
		logger:   opts.Logger.With("component", "bank"),
		notifier: opts.Notifier,
	}
}

// Ledger returns the engine the controller commits to.
func (c *Controller) Ledger() *ledger.Engine { return c.ledger }

// OpenCreditFlow opens an empty credit session, replacing any open interaction.
func (c *Controller) OpenCreditFlow() error { return c.OpenFlow(FlowCredit) }

// OpenDebitFlow opens an empty debit session, replacing any open interaction.
func (c *Controller) OpenDebitFlow() error { return c.OpenFlow(FlowDebit) }

// OpenFlow opens a catalog session for flow.
func (c *Controller) OpenFlow(flow Flow) error {
	if _, err := ParseFlow(string(flow)); err != nil {
		return err
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.openFlowLocked(flow)
}

func (c *Controller) openFlowLocked(flow Flow) error {
	if c.closed {
		return hold.ErrClosed
	}
	cat, err := c.catalogs.For(flow.kind())
	if err != nil {
		return err
	}

	in := &interaction{flow: flow, kind: cat.Kind(), session: selection.Open(cat, c.ledger)}
	c.replaceLocked(in)
	c.logger.Debug("flow opened", "flow", string(flow), "interaction", in.id)
	return nil
}

// OpenConfirmation opens a plain yes/no confirmation of a fixed amount. A debit
// confirmation can only be held while the amount is covered by the balance.
func (c *Controller) OpenConfirmation(kind catalog.Kind, amount money.Amount, description string) error {
	if _, err := catalog.ParseKind(string(kind)); err != nil {
		return err
	}
	if !amount.IsPositive() {
		return ledger.ErrInvalidAmount
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return hold.ErrClosed
	}

	fixed := &hold.FixedAmount{Amount: amount, Description: description}
	if kind == catalog.KindDebit {
		fixed.Allow = func(a money.Amount) bool { return a <= c.ledger.Balance() }
	}
	c.replaceLocked(&interaction{flow: FlowConfirm, kind: kind, fixed: fixed})
	return nil
}

// replaceLocked disposes the open interaction and installs in with a fresh gesture.
func (c *Controller) replaceLocked(in *interaction) {
	c.disposeLocked()
	c.nextID++
	in.id = c.nextID
	in.gesture = c.newGesture(in)
	c.active = in
	c.lastError = ""
}

func (c *Controller) newGesture(in *interaction) *hold.Gesture {
	id := in.id
	if in.fixed != nil {
		return hold.New(c.opts.ConfirmHold, c.clock, *in.fixed, func(total money.Amount, descriptions []string) {
			c.commit(id, total, descriptions)
		})
	}
	src := sessionSource{session: in.session, balance: c.ledger}
	return hold.New(c.opts.Hold, c.clock, src, func(total money.Amount, descriptions []string) {
		c.commit(id, total, descriptions)
	})
}

func (c *Controller) disposeLocked() {
	if c.active == nil {
		return
	}
	if c.active.gesture.State() == hold.Holding {
		metrics.HoldReleases.Inc()
	}
	c.active.gesture.Close()
	c.active = nil
}

// Cancel abandons the open interaction. It reports whether one was open.
func (c *Controller) Cancel() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	open := c.active != nil
	c.disposeLocked()
	c.lastError = ""
	return open
}

// Toggle toggles a catalog entry in the open session.
func (c *Controller) Toggle(id int) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	in, err := c.sessionLocked()
	if err != nil {
		return err
	}
	if _, err := in.session.Toggle(id); err != nil {
		return err
	}
	c.revalidateLocked(in)
	return nil
}

// AdjustQuantity moves a variable entry's quantity by delta, selecting it.
func (c *Controller) AdjustQuantity(id, delta int) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	in, err := c.sessionLocked()
	if err != nil {
		return err
	}
	if err := in.session.AdjustQuantity(id, delta); err != nil {
		return err
	}
	c.revalidateLocked(in)
	return nil
}

// SetQuantity sets a variable entry's quantity, selecting it.
func (c *Controller) SetQuantity(id, quantity int) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	in, err := c.sessionLocked()
	if err != nil {
		return err
	}
	if err := in.session.SetQuantity(id, quantity); err != nil {
		return err
	}
	c.revalidateLocked(in)
	return nil
}

func (c *Controller) sessionLocked() (*interaction, error) {
	if c.active == nil || c.active.session == nil {
		return nil, ErrNoSession
	}
	return c.active, nil
}

// revalidateLocked cancels a hold whose session can no longer commit.
func (c *Controller) revalidateLocked(in *interaction) {
	if in.gesture.Revalidate() {
		metrics.HoldReleases.Inc()
	}
}

// HoldStart begins the hold gesture on the open interaction.
func (c *Controller) HoldStart() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.active == nil {
		return ErrNoSession
	}
	return c.active.gesture.Start()
}

// HoldEnd releases the hold. Releasing a committed or idle gesture does nothing.
func (c *Controller) HoldEnd() {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.active == nil {
		return
	}
	if c.active.gesture.Release() {
		metrics.HoldReleases.Inc()
	}
}

// commit applies a completed hold. A refused debit keeps the interaction open
// with a fresh gesture and records the failure for the next snapshot.
func (c *Controller) commit(id uint64, total money.Amount, descriptions []string) {
	c.mu.Lock()
	in := c.active
	if c.closed || in == nil || in.id != id {
		c.mu.Unlock()
		return
	}

	description := strings.Join(descriptions, ", ")
	ctx := context.Background()

	var (
		tx  ledger.Transaction
		err error
		msg = notification.Message{Description: description}
	)
	if in.kind == catalog.KindCredit {
		tx, err = c.ledger.Credit(ctx, total, description)
		msg.Kind = notification.KindCredit
	} else {
		tx, err = c.ledger.Debit(ctx, total, description)
		msg.Kind = notification.KindDebit
	}

	if err != nil {
		c.lastError = err.Error()
		in.gesture.Close()
		in.gesture = c.newGesture(in)
		c.mu.Unlock()
		c.logger.Warn("commit refused", "flow", string(in.flow), "amount", total.String(), "error", err)
		return
	}

	metrics.HoldCommits.WithLabelValues(string(in.flow)).Inc()
	c.active = nil
	c.lastError = ""
	in.gesture.Close()
	c.mu.Unlock()

	msg.Amount = tx.Amount
	msg.Balance = c.ledger.Balance()
	if err := c.notifier.Send(ctx, msg); err != nil {
		c.logger.Warn("notify failed", "kind", msg.Kind, "error", err)
	}
}

// FaceSwipe counts a swipe on the face. Enough swipes inside the window open
// the credit flow; otherwise the count resets once the window passes quietly.
// It reports whether the credit flow was opened.
func (c *Controller) FaceSwipe() (bool, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return false, hold.ErrClosed
	}

	c.stopSwipeResetLocked()
	c.faceSwipes++
	if c.faceSwipes >= c.opts.SwipesToCredit {
		c.faceSwipes = 0
		if err := c.openFlowLocked(FlowCredit); err != nil {
			return false, err
		}
		return true, nil
	}

	gen := c.swipeGen
	c.swipeReset = c.clock.AfterFunc(c.opts.SwipeWindow, func() { c.resetSwipes(gen) })
	return false, nil
}

// TongueSwipe opens the debit flow.
func (c *Controller) TongueSwipe() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.openFlowLocked(FlowDebit)
}

func (c *Controller) resetSwipes(gen uint64) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if gen != c.swipeGen {
		return
	}
	c.faceSwipes = 0
	c.swipeReset = nil
}

func (c *Controller) stopSwipeResetLocked() {
	c.swipeGen++
	if c.swipeReset != nil {
		c.swipeReset.Stop()
		c.swipeReset = nil
	}
}

// Close cancels every timer and disables the controller.
func (c *Controller) Close() {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return
	}
	c.closed = true
	c.disposeLocked()
	c.stopSwipeResetLocked()
}

// sessionSource lets the gesture check a session against the live balance.
type sessionSource struct {
	session *selection.Session
	balance selection.BalanceReader
}

func (s sessionSource) CanCommit() bool        { return s.session.CanCommit(s.balance.Balance()) }
func (s sessionSource) Total() money.Amount    { return s.session.Total() }
func (s sessionSource) Descriptions() []string { return s.session.Descriptions() }
