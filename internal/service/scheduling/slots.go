package scheduling

import (
	"context"
	"iter"
	"time"

	"clinicbook/internal/store"
)

// AvailableSlots yields the provider's open hours on day in ascending order. Only the
// calendar date of day is read. An hour is open when no pending or confirmed booking holds
// it and it is still strictly in the future when the sequence is iterated.
func (s *Service) AvailableSlots(ctx context.Context, providerID string, day time.Time) (iter.Seq[time.Time], error) {
	if providerID == "" {
		return nil, validationError("provider_id is required")
	}

	d := s.calendar.Day(day)
	candidates := s.calendar.SlotsOn(d)
	if len(candidates) == 0 {
		return func(func(time.Time) bool) {}, nil
	}

	existing, err := s.bookings.ListByProvider(ctx, providerID, store.DayWindow(d))
	if err != nil {
		return nil, s.storeFailure("list provider bookings", err)
	}
	held := make(map[int64]struct{}, len(existing))
	for _, b := range existing {
		if b.Status.Active() {
			held[b.ScheduledAt.Unix()] = struct{}{}
		}
	}

	return func(yield func(time.Time) bool) {
		now := s.now()
		for _, t := range candidates {
			if _, taken := held[t.Unix()]; taken || !t.After(now) {
				continue
			}
			if !yield(t) {
				return
			}
		}
	}, nil
}

func (s *Service) slotOpen(ctx context.Context, providerID string, at time.Time) (bool, error) {
	slots, err := s.AvailableSlots(ctx, providerID, at.In(s.location()))
	if err != nil {
		return false, err
	}
	for t := range slots {
		if t.Equal(at) {
			return true, nil
		}
	}
	return false, nil
}
