package memory

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"

	"clinicbook/internal/domain"
	"clinicbook/internal/store"
)

var slot = time.Date(2025, 3, 10, 9, 0, 0, 0, time.UTC)

func pending(requesterID string, at time.Time) domain.Booking {
	return domain.Booking{
		RequesterID: requesterID,
		ProviderID:  "p1",
		ScheduledAt: at,
		Status:      domain.StatusPending,
	}
}

func TestInsertIfAbsent_AssignsIDAndRejectsTakenSlot(t *testing.T) {
	s := NewBookingStore()
	ctx := context.Background()

	b, ok, err := s.InsertIfAbsent(ctx, pending("r1", slot))
	if err != nil || !ok {
		t.Fatalf("InsertIfAbsent = %v, %v", ok, err)
	}
	if b.ID == uuid.Nil {
		t.Fatalf("expected id to be assigned")
	}
	if b.CreatedAt.IsZero() {
		t.Fatalf("expected created_at to be set")
	}

	_, ok, err = s.InsertIfAbsent(ctx, pending("r2", slot))
	if err != nil {
		t.Fatalf("InsertIfAbsent error: %v", err)
	}
	if ok {
		t.Fatalf("second insert into the same slot succeeded")
	}

	_, ok, err = s.InsertIfAbsent(ctx, pending("r2", slot.Add(time.Hour)))
	if err != nil || !ok {
		t.Fatalf("insert into a free slot = %v, %v", ok, err)
	}
}

func TestInsertIfAbsent_ConcurrentSameSlot(t *testing.T) {
	s := NewBookingStore()
	ctx := context.Background()

	const n = 32
	var (
		wg   sync.WaitGroup
		mu   sync.Mutex
		wins int
	)
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, ok, err := s.InsertIfAbsent(ctx, pending("r", slot))
			if err != nil {
				t.Errorf("InsertIfAbsent error: %v", err)
				return
			}
			if ok {
				mu.Lock()
				wins++
				mu.Unlock()
			}
		}()
	}
	wg.Wait()

	if wins != 1 {
		t.Fatalf("wins = %d, want 1", wins)
	}
}

func TestCompareAndSwapStatus(t *testing.T) {
	s := NewBookingStore()
	ctx := context.Background()

	b, _, err := s.InsertIfAbsent(ctx, pending("r1", slot))
	if err != nil {
		t.Fatalf("InsertIfAbsent error: %v", err)
	}

	got, ok, err := s.CompareAndSwapStatus(ctx, b.ID, domain.StatusConfirmed, domain.StatusAttended)
	if err != nil {
		t.Fatalf("CAS error: %v", err)
	}
	if ok {
		t.Fatalf("CAS with stale expected status succeeded")
	}
	if got.Status != domain.StatusPending {
		t.Fatalf("status = %s, want %s", got.Status, domain.StatusPending)
	}

	got, ok, err = s.CompareAndSwapStatus(ctx, b.ID, domain.StatusPending, domain.StatusConfirmed)
	if err != nil || !ok {
		t.Fatalf("CAS = %v, %v", ok, err)
	}
	if got.Status != domain.StatusConfirmed {
		t.Fatalf("status = %s, want %s", got.Status, domain.StatusConfirmed)
	}

	if _, _, err := s.CompareAndSwapStatus(ctx, uuid.New(), domain.StatusPending, domain.StatusConfirmed); !errors.Is(err, store.ErrNotFound) {
		t.Fatalf("err = %v, want ErrNotFound", err)
	}
}

func TestCompareAndSwapStatus_TerminalFreesSlot(t *testing.T) {
	s := NewBookingStore()
	ctx := context.Background()

	b, _, _ := s.InsertIfAbsent(ctx, pending("r1", slot))
	if _, ok, err := s.CompareAndSwapStatus(ctx, b.ID, domain.StatusPending, domain.StatusCancelledByRequester); err != nil || !ok {
		t.Fatalf("cancel = %v, %v", ok, err)
	}

	if _, ok, err := s.InsertIfAbsent(ctx, pending("r2", slot)); err != nil || !ok {
		t.Fatalf("re-request after cancel = %v, %v", ok, err)
	}

	rows, err := s.ListByProvider(ctx, "p1", store.DayWindow(time.Date(2025, 3, 10, 0, 0, 0, 0, time.UTC)))
	if err != nil {
		t.Fatalf("ListByProvider error: %v", err)
	}
	if len(rows) != 2 {
		t.Fatalf("len(rows) = %d, want 2 (history is kept)", len(rows))
	}
}

func TestList_FiltersAndOrders(t *testing.T) {
	s := NewBookingStore()
	ctx := context.Background()

	for _, at := range []time.Time{slot.Add(3 * time.Hour), slot, slot.AddDate(0, 0, 1)} {
		if _, ok, err := s.InsertIfAbsent(ctx, pending("r1", at)); err != nil || !ok {
			t.Fatalf("insert %s = %v, %v", at, ok, err)
		}
	}
	if _, ok, err := s.InsertIfAbsent(ctx, domain.Booking{RequesterID: "r2", ProviderID: "p2", ScheduledAt: slot}); err != nil || !ok {
		t.Fatalf("insert other provider = %v, %v", ok, err)
	}

	rows, err := s.ListByProvider(ctx, "p1", store.DayWindow(time.Date(2025, 3, 10, 0, 0, 0, 0, time.UTC)))
	if err != nil {
		t.Fatalf("ListByProvider error: %v", err)
	}
	if len(rows) != 2 {
		t.Fatalf("len(rows) = %d, want 2", len(rows))
	}
	if !rows[0].ScheduledAt.Before(rows[1].ScheduledAt) {
		t.Fatalf("rows not ascending: %s, %s", rows[0].ScheduledAt, rows[1].ScheduledAt)
	}

	rows, err = s.ListByRequester(ctx, "r1", store.Window{})
	if err != nil {
		t.Fatalf("ListByRequester error: %v", err)
	}
	if len(rows) != 3 {
		t.Fatalf("len(rows) = %d, want 3", len(rows))
	}
}

func TestAppendProviderNote(t *testing.T) {
	s := NewBookingStore()
	ctx := context.Background()

	b, _, _ := s.InsertIfAbsent(ctx, pending("r1", slot))
	if _, err := s.AppendProviderNote(ctx, b.ID, "first"); err != nil {
		t.Fatalf("AppendProviderNote error: %v", err)
	}
	got, err := s.AppendProviderNote(ctx, b.ID, "second")
	if err != nil {
		t.Fatalf("AppendProviderNote error: %v", err)
	}
	if got.ProviderNote != "first\nsecond" {
		t.Fatalf("provider_note = %q", got.ProviderNote)
	}
	if got.Status != domain.StatusPending {
		t.Fatalf("note changed status to %s", got.Status)
	}
}
