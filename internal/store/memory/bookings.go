package memory

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"clinicbook/internal/domain"
	"clinicbook/internal/store"
)

type slotKey struct {
	providerID string
	at         int64
}

// BookingStore keeps bookings in process memory. A single mutex makes every write atomic.
type BookingStore struct {
	mu     sync.RWMutex
	rows   map[uuid.UUID]domain.Booking
	active map[slotKey]uuid.UUID
	now    func() time.Time
}

func NewBookingStore() *BookingStore {
	return &BookingStore{
		rows:   make(map[uuid.UUID]domain.Booking),
		active: make(map[slotKey]uuid.UUID),
		now:    func() time.Time { return time.Now().UTC() },
	}
}

func keyOf(b domain.Booking) slotKey {
	return slotKey{providerID: b.ProviderID, at: b.ScheduledAt.UTC().UnixNano()}
}

func (s *BookingStore) InsertIfAbsent(ctx context.Context, b domain.Booking) (domain.Booking, bool, error) {
	if err := ctx.Err(); err != nil {
		return domain.Booking{}, false, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if b.Status == "" {
		b.Status = domain.StatusPending
	}
	k := keyOf(b)
	if b.Status.Active() {
		if _, taken := s.active[k]; taken {
			return domain.Booking{}, false, nil
		}
	}

	if b.ID == uuid.Nil {
		id, err := uuid.NewV7()
		if err != nil {
			return domain.Booking{}, false, err
		}
		b.ID = id
	}
	if _, exists := s.rows[b.ID]; exists {
		return domain.Booking{}, false, store.ErrConflict
	}

	now := s.now()
	if b.CreatedAt.IsZero() {
		b.CreatedAt = now
	}
	b.UpdatedAt = now

	s.rows[b.ID] = b
	if b.Status.Active() {
		s.active[k] = b.ID
	}
	return b, true, nil
}

func (s *BookingStore) CompareAndSwapStatus(ctx context.Context, id uuid.UUID, expected, next domain.Status) (domain.Booking, bool, error) {
	if err := ctx.Err(); err != nil {
		return domain.Booking{}, false, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	b, ok := s.rows[id]
	if !ok {
		return domain.Booking{}, false, store.ErrNotFound
	}
	if b.Status != expected {
		return b, false, nil
	}

	k := keyOf(b)
	if next.Active() && !expected.Active() {
		if holder, taken := s.active[k]; taken && holder != id {
			return b, false, store.ErrConflict
		}
	}

	b.Status = next
	b.UpdatedAt = s.now()
	s.rows[id] = b

	if next.Active() {
		s.active[k] = id
	} else if s.active[k] == id {
		delete(s.active, k)
	}
	return b, true, nil
}

func (s *BookingStore) AppendProviderNote(ctx context.Context, id uuid.UUID, note string) (domain.Booking, error) {
	if err := ctx.Err(); err != nil {
		return domain.Booking{}, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	b, ok := s.rows[id]
	if !ok {
		return domain.Booking{}, store.ErrNotFound
	}
	b.ProviderNote = store.AppendNote(b.ProviderNote, note)
	b.UpdatedAt = s.now()
	s.rows[id] = b
	return b, nil
}

func (s *BookingStore) Get(ctx context.Context, id uuid.UUID) (domain.Booking, error) {
	if err := ctx.Err(); err != nil {
		return domain.Booking{}, err
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	b, ok := s.rows[id]
	if !ok {
		return domain.Booking{}, store.ErrNotFound
	}
	return b, nil
}

func (s *BookingStore) ListByProvider(ctx context.Context, providerID string, w store.Window) ([]domain.Booking, error) {
	return s.list(ctx, w, func(b domain.Booking) bool { return b.ProviderID == providerID })
}

func (s *BookingStore) ListByRequester(ctx context.Context, requesterID string, w store.Window) ([]domain.Booking, error) {
	return s.list(ctx, w, func(b domain.Booking) bool { return b.RequesterID == requesterID })
}

func (s *BookingStore) list(ctx context.Context, w store.Window, match func(domain.Booking) bool) ([]domain.Booking, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	s.mu.RLock()
	out := make([]domain.Booking, 0)
	for _, b := range s.rows {
		if match(b) && w.Contains(b.ScheduledAt) {
			out = append(out, b)
		}
	}
	s.mu.RUnlock()

	sort.Slice(out, func(i, j int) bool {
		if out[i].ScheduledAt.Equal(out[j].ScheduledAt) {
			return out[i].CreatedAt.Before(out[j].CreatedAt)
		}
		return out[i].ScheduledAt.Before(out[j].ScheduledAt)
	})
	return out, nil
}

var _ store.BookingStore = (*BookingStore)(nil)
