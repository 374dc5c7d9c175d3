package notification

import (
	"context"
	"log/slog"

	"github.com/grandkuni/gkb/internal/money"
)

const (
	// KindCredit follows a committed credit.
	KindCredit = "credit_committed"
	// KindDebit follows a committed debit.
	KindDebit = "debit_committed"
)

// Message describes a successful commit.
type Message struct {
	Kind        string
	Amount      money.Amount
	Description string
	Balance     money.Amount
}

// Notifier receives success notifications (celebration, haptics). Delivery
// failures never affect the committed transaction.
type Notifier interface {
	Send(ctx context.Context, message Message) error
}

// NotifierFunc adapts a function to Notifier.
type NotifierFunc func(ctx context.Context, message Message) error

func (f NotifierFunc) Send(ctx context.Context, message Message) error { return f(ctx, message) }

// LoggerNotifier writes notifications to the structured logger.
type LoggerNotifier struct {
	logger *slog.Logger
}

// NewLoggerNotifier constructs a logging notifier.
func NewLoggerNotifier(logger *slog.Logger) *LoggerNotifier {
	return &LoggerNotifier{logger: logger}
}

// Send writes the message to the structured logger.
func (n *LoggerNotifier) Send(_ context.Context, message Message) error {
	if n == nil || n.logger == nil {
		return nil
	}
	n.logger.Info("notification",
		"kind", message.Kind,
		"amount", message.Amount.String(),
		"description", message.Description,
		"balance", message.Balance.String(),
	)
	return nil
}
