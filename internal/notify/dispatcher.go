package notify

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"clinicbook/internal/metrics"
)

const (
	DefaultTimeout     = 5 * time.Second
	DefaultConcurrency = 8
)

// Dispatcher hands messages to a Notifier on background goroutines. Each message is
// attempted once; failures are logged and counted, never returned.
type Dispatcher struct {
	next    Notifier
	log     *slog.Logger
	metrics *metrics.Metrics
	timeout time.Duration
	sem     chan struct{}

	mu     sync.Mutex
	closed bool
	wg     sync.WaitGroup
}

type DispatcherOption func(*Dispatcher)

func WithTimeout(d time.Duration) DispatcherOption {
	return func(dp *Dispatcher) {
		if d > 0 {
			dp.timeout = d
		}
	}
}

func WithConcurrency(n int) DispatcherOption {
	return func(dp *Dispatcher) {
		if n > 0 {
			dp.sem = make(chan struct{}, n)
		}
	}
}

func WithMetrics(m *metrics.Metrics) DispatcherOption {
	return func(dp *Dispatcher) { dp.metrics = m }
}

func NewDispatcher(next Notifier, log *slog.Logger, opts ...DispatcherOption) *Dispatcher {
	if log == nil {
		log = slog.Default()
	}
	d := &Dispatcher{
		next:    next,
		log:     log.With(slog.String("component", "notify.dispatcher")),
		timeout: DefaultTimeout,
		sem:     make(chan struct{}, DefaultConcurrency),
	}
	for _, opt := range opts {
		opt(d)
	}
	return d
}

// Dispatch returns immediately. Cancelling ctx after Dispatch returns does not abort delivery.
func (d *Dispatcher) Dispatch(ctx context.Context, msgs ...Message) {
	base := context.WithoutCancel(ctx)

	d.mu.Lock()
	defer d.mu.Unlock()
	for _, m := range msgs {
		if d.closed {
			d.log.Warn("notification dropped after close",
				slog.String("booking_id", m.BookingID.String()),
				slog.String("kind", string(m.Kind)),
			)
			d.metrics.Notification(metrics.OutcomeDropped)
			continue
		}
		d.wg.Add(1)
		go d.deliver(base, m)
	}
}

func (d *Dispatcher) deliver(ctx context.Context, m Message) {
	defer d.wg.Done()

	d.sem <- struct{}{}
	defer func() { <-d.sem }()

	ctx, cancel := context.WithTimeout(ctx, d.timeout)
	defer cancel()

	if err := d.notify(ctx, m); err != nil {
		d.log.Warn("notification failed",
			slog.String("booking_id", m.BookingID.String()),
			slog.String("kind", string(m.Kind)),
			slog.String("to", m.To),
			slog.Any("err", err),
		)
		d.metrics.Notification(metrics.OutcomeFailed)
		return
	}
	d.metrics.Notification(metrics.OutcomeOK)
}

func (d *Dispatcher) notify(ctx context.Context, m Message) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("notifier panic: %v", r)
		}
	}()
	return d.next.Notify(ctx, m)
}

// Close stops accepting messages and waits for in-flight deliveries or ctx, whichever is first.
func (d *Dispatcher) Close(ctx context.Context) error {
	d.mu.Lock()
	d.closed = true
	d.mu.Unlock()

	done := make(chan struct{})
	go func() {
		d.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
