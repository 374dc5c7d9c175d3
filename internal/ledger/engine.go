package ledger

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/grandkuni/gkb/internal/clock"
	"github.com/grandkuni/gkb/internal/logging"
	"github.com/grandkuni/gkb/internal/metrics"
	"github.com/grandkuni/gkb/internal/money"
	"github.com/grandkuni/gkb/internal/store"
)

const defaultWriteTimeout = 2 * time.Second

// Options tunes an Engine. Zero values pick sensible defaults.
type Options struct {
	// InitialBalance is used when nothing has been persisted yet.
	InitialBalance money.Amount
	Clock          clock.Clock
	Logger         *slog.Logger
	NewID          func() string
	WriteTimeout   time.Duration
}

// Engine owns the balance and the append-only transaction log. Every mutation
// is written through to the store; write failures are logged, never rolled back.
type Engine struct {
	mu      sync.RWMutex
	balance money.Amount
	log     []Transaction

	kv           store.Store
	clock        clock.Clock
	logger       *slog.Logger
	newID        func() string
	writeTimeout time.Duration
}

// Open restores engine state from kv.
func Open(ctx context.Context, kv store.Store, opts Options) (*Engine, error) {
	if opts.InitialBalance.IsNegative() {
		return nil, fmt.Errorf("initial balance must not be negative")
	}
	if opts.Clock == nil {
		opts.Clock = clock.Real()
	}
	if opts.Logger == nil {
		opts.Logger = logging.Discard()
	}
	if opts.NewID == nil {
		opts.NewID = uuid.NewString
	}
	if opts.WriteTimeout <= 0 {
		opts.WriteTimeout = defaultWriteTimeout
	}

	e := &Engine{
		balance:      opts.InitialBalance,
		log:          []Transaction{},
		kv:           kv,
		clock:        opts.Clock,
		logger:       opts.Logger.With("component", "ledger"),
		newID:        opts.NewID,
		writeTimeout: opts.WriteTimeout,
	}

	raw, ok, err := kv.Get(ctx, BalanceKey)
	if err != nil {
		return nil, fmt.Errorf("load balance: %w", err)
	}
	if ok {
		balance, err := money.Parse(raw)
		if err != nil {
			return nil, fmt.Errorf("load balance: %w", err)
		}
		if balance.IsNegative() {
			return nil, fmt.Errorf("load balance: negative balance %s", balance)
		}
		e.balance = balance
	}

	raw, ok, err = kv.Get(ctx, TransactionsKey)
	if err != nil {
		return nil, fmt.Errorf("load transactions: %w", err)
	}
	if ok && raw != "" {
		if err := json.Unmarshal([]byte(raw), &e.log); err != nil {
			return nil, fmt.Errorf("load transactions: %w", err)
		}
		if e.log == nil {
			e.log = []Transaction{}
		}
		for i, tx := range e.log {
			if err := tx.Validate(); err != nil {
				return nil, fmt.Errorf("load transactions: record %d: %w", i, err)
			}
		}
	}

	metrics.LedgerBalance.Set(e.balance.Float64())
	return e, nil
}

// Balance returns the current balance.
func (e *Engine) Balance() money.Amount {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return e.balance
}

// Transactions returns a copy of the log, most recent first.
func (e *Engine) Transactions() []Transaction {
	e.mu.RLock()
	defer e.mu.RUnlock()
	out := make([]Transaction, len(e.log))
	copy(out, e.log)
	return out
}

// Credit increases the balance. Credits are never balance-constrained, but
// one that would overflow the balance is refused with ErrBalanceOverflow.
func (e *Engine) Credit(ctx context.Context, amount money.Amount, description string) (Transaction, error) {
	if !amount.IsPositive() {
		return Transaction{}, ErrInvalidAmount
	}

	e.mu.Lock()
	defer e.mu.Unlock()

	balance, err := e.balance.Add(amount)
	if err != nil {
		e.logger.Warn("credit refused", "amount", amount.String(), "balance", e.balance.String())
		return Transaction{}, fmt.Errorf("%w: %w", ErrBalanceOverflow, err)
	}
	e.balance = balance
	return e.appendLocked(ctx, KindCredit, amount, description), nil
}

// Debit decreases the balance. It re-checks affordability itself rather than
// trusting the caller, and refuses the mutation with ErrInsufficientFunds.
func (e *Engine) Debit(ctx context.Context, amount money.Amount, description string) (Transaction, error) {
	if !amount.IsPositive() {
		return Transaction{}, ErrInvalidAmount
	}

	e.mu.Lock()
	defer e.mu.Unlock()

	if amount > e.balance {
		metrics.DebitsRejected.Inc()
		e.logger.Warn("debit refused", "amount", amount.String(), "balance", e.balance.String())
		return Transaction{}, ErrInsufficientFunds
	}

	e.balance -= amount
	return e.appendLocked(ctx, KindDebit, amount, description), nil
}

func (e *Engine) appendLocked(ctx context.Context, kind Kind, amount money.Amount, description string) Transaction {
	tx := Transaction{
		ID:          e.newID(),
		Kind:        kind,
		Amount:      amount,
		Description: description,
		CreatedAt:   e.clock.Now().UTC(),
	}
	e.log = append([]Transaction{tx}, e.log...)

	metrics.LedgerTransactions.WithLabelValues(string(kind)).Inc()
	metrics.LedgerAmount.WithLabelValues(string(kind)).Add(amount.Float64())
	metrics.LedgerBalance.Set(e.balance.Float64())

	e.logger.Info("transaction committed",
		"id", tx.ID,
		"kind", string(kind),
		"amount", amount.String(),
		"balance", e.balance.String(),
	)

	e.persistLocked(ctx)
	return tx
}

// persistLocked writes both keys. The in-memory state stays authoritative.
func (e *Engine) persistLocked(ctx context.Context) {
	ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), e.writeTimeout)
	defer cancel()

	if err := e.kv.Set(ctx, BalanceKey, e.balance.String()); err != nil {
		metrics.PersistFailures.Inc()
		e.logger.Warn("persist balance failed", slog.String("key", BalanceKey), slog.Any("error", err))
	}

	payload, err := json.Marshal(e.log)
	if err != nil {
		metrics.PersistFailures.Inc()
		e.logger.Error("encode transactions failed", slog.Any("error", err))
		return
	}
	if err := e.kv.Set(ctx, TransactionsKey, string(payload)); err != nil {
		metrics.PersistFailures.Inc()
		e.logger.Warn("persist transactions failed", slog.String("key", TransactionsKey), slog.Any("error", err))
	}
}
