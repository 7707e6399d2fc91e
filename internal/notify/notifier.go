package notify

import (
	"context"
	"log/slog"
)

// Notifier delivers a single message. Delivery is best effort; callers never retry.
type Notifier interface {
	Notify(ctx context.Context, m Message) error
}

type NotifierFunc func(ctx context.Context, m Message) error

func (f NotifierFunc) Notify(ctx context.Context, m Message) error {
	return f(ctx, m)
}

// LogNotifier writes messages to the log instead of delivering them.
type LogNotifier struct {
	log *slog.Logger
}

func NewLogNotifier(log *slog.Logger) *LogNotifier {
	if log == nil {
		log = slog.Default()
	}
	return &LogNotifier{log: log.With(slog.String("component", "notify.log"))}
}

func (n *LogNotifier) Notify(ctx context.Context, m Message) error {
	n.log.InfoContext(ctx, "notification",
		slog.String("to", m.To),
		slog.String("kind", string(m.Kind)),
		slog.String("booking_id", m.BookingID.String()),
		slog.String("subject", m.Subject),
		slog.String("body", m.Body),
	)
	return nil
}
