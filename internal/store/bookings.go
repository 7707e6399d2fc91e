package store

import (
	"context"
	"time"

	"github.com/google/uuid"

	"clinicbook/internal/domain"
)

// Window bounds scheduled_at. A zero Start or End leaves that side open; End is exclusive.
type Window struct {
	Start time.Time
	End   time.Time
}

func (w Window) Contains(t time.Time) bool {
	if !w.Start.IsZero() && t.Before(w.Start) {
		return false
	}
	if !w.End.IsZero() && !t.Before(w.End) {
		return false
	}
	return true
}

// DayWindow covers the calendar day starting at midnight day.
func DayWindow(day time.Time) Window {
	return Window{Start: day, End: day.AddDate(0, 0, 1)}
}

type BookingStore interface {
	// InsertIfAbsent stores b unless an active booking already holds (ProviderID, ScheduledAt).
	// The returned bool is false when the slot was taken; the check and insert are atomic.
	InsertIfAbsent(ctx context.Context, b domain.Booking) (domain.Booking, bool, error)
	// CompareAndSwapStatus moves the booking to next only if its status is still expected.
	CompareAndSwapStatus(ctx context.Context, id uuid.UUID, expected, next domain.Status) (domain.Booking, bool, error)
	AppendProviderNote(ctx context.Context, id uuid.UUID, note string) (domain.Booking, error)

	Get(ctx context.Context, id uuid.UUID) (domain.Booking, error)
	ListByProvider(ctx context.Context, providerID string, w Window) ([]domain.Booking, error)
	ListByRequester(ctx context.Context, requesterID string, w Window) ([]domain.Booking, error)
}

// AppendNote joins a new note onto existing provider notes, one per line.
func AppendNote(existing, note string) string {
	if existing == "" {
		return note
	}
	return existing + "\n" + note
}
