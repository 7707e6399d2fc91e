package postgres

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/uptrace/bun"

	"clinicbook/internal/domain"
	"clinicbook/internal/store"
)

func TestPostgresIntegration_BookingLifecycle(t *testing.T) {
	databaseURL := strings.TrimSpace(os.Getenv("CLINICBOOK_TEST_DATABASE_URL"))
	if databaseURL == "" {
		t.Skip("CLINICBOOK_TEST_DATABASE_URL not set")
	}

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	db, err := Open(ctx, databaseURL, PoolConfig{MaxOpenConns: 1})
	if err != nil {
		t.Fatalf("Open error: %v", err)
	}
	t.Cleanup(func() {
		_ = Close(db)
	})

	schema := "clinicbook_test_" + strings.ReplaceAll(uuid.NewString(), "-", "")[:16]
	schemaSQL := bookingsSchema(t)
	t.Cleanup(func() {
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		_, _ = db.NewRaw("DROP SCHEMA IF EXISTS " + schema + " CASCADE").Exec(ctx)
	})

	err = db.RunInTx(ctx, nil, func(ctx context.Context, tx bun.Tx) error {
		if _, err := tx.NewRaw("CREATE SCHEMA " + schema).Exec(ctx); err != nil {
			return err
		}
		if _, err := tx.NewRaw("SET LOCAL search_path TO " + schema).Exec(ctx); err != nil {
			return err
		}
		for _, stmt := range schemaSQL {
			if _, err := tx.NewRaw(stmt).Exec(ctx); err != nil {
				return fmt.Errorf("migration: %w", err)
			}
		}

		if _, err := tx.NewRaw(
			"INSERT INTO users (id, role, is_active, display_name, email) VALUES ('p1', 'provider', true, 'Dr. Osei', 'osei@example.test')",
		).Exec(ctx); err != nil {
			return err
		}
		if _, err := tx.NewRaw(
			"INSERT INTO users (id, role, is_active, assigned_provider_id, email) VALUES ('r1', 'requester', true, 'p1', 'r1@example.test')",
		).Exec(ctx); err != nil {
			return err
		}

		users := NewUserRepo(tx)
		u, err := users.GetUser(ctx, "r1")
		if err != nil {
			return err
		}
		if u.Role != domain.RoleRequester || u.AssignedProviderID != "p1" || !u.Active {
			return fmt.Errorf("user = %+v", u)
		}
		if _, err := users.GetUser(ctx, "nobody"); !errors.Is(err, store.ErrNotFound) {
			return fmt.Errorf("missing user err = %v, want ErrNotFound", err)
		}

		repo := NewBookingRepo(tx)
		at := time.Date(2030, 3, 11, 9, 0, 0, 0, time.UTC)

		b1, ok, err := repo.InsertIfAbsent(ctx, domain.Booking{
			RequesterID:   "r1",
			ProviderID:    "p1",
			ScheduledAt:   at,
			RequesterNote: "first visit",
		})
		if err != nil || !ok {
			return fmt.Errorf("first insert = %v, %v", ok, err)
		}
		if b1.ID == uuid.Nil || b1.Status != domain.StatusPending {
			return fmt.Errorf("inserted booking = %+v", b1)
		}

		_, ok, err = repo.InsertIfAbsent(ctx, domain.Booking{RequesterID: "r2", ProviderID: "p1", ScheduledAt: at})
		if err != nil {
			return err
		}
		if ok {
			return fmt.Errorf("second insert into the same slot succeeded")
		}

		got, ok, err := repo.CompareAndSwapStatus(ctx, b1.ID, domain.StatusConfirmed, domain.StatusAttended)
		if err != nil {
			return err
		}
		if ok || got.Status != domain.StatusPending {
			return fmt.Errorf("stale CAS = %v, status %s", ok, got.Status)
		}

		got, ok, err = repo.CompareAndSwapStatus(ctx, b1.ID, domain.StatusPending, domain.StatusConfirmed)
		if err != nil || !ok {
			return fmt.Errorf("confirm CAS = %v, %v", ok, err)
		}
		if got.Status != domain.StatusConfirmed {
			return fmt.Errorf("status = %s, want confirmed", got.Status)
		}

		if _, _, err := repo.CompareAndSwapStatus(ctx, uuid.New(), domain.StatusPending, domain.StatusConfirmed); !errors.Is(err, store.ErrNotFound) {
			return fmt.Errorf("unknown id CAS err = %v, want ErrNotFound", err)
		}

		noted, err := repo.AppendProviderNote(ctx, b1.ID, "[2030-03-01 10:00] bring referral")
		if err != nil {
			return err
		}
		noted, err = repo.AppendProviderNote(ctx, b1.ID, "[2030-03-02 10:00] referral received")
		if err != nil {
			return err
		}
		if noted.ProviderNote != "[2030-03-01 10:00] bring referral\n[2030-03-02 10:00] referral received" {
			return fmt.Errorf("provider_note = %q", noted.ProviderNote)
		}

		if _, ok, err := repo.CompareAndSwapStatus(ctx, b1.ID, domain.StatusConfirmed, domain.StatusCancelledByRequester); err != nil || !ok {
			return fmt.Errorf("cancel CAS = %v, %v", ok, err)
		}
		b2, ok, err := repo.InsertIfAbsent(ctx, domain.Booking{RequesterID: "r1", ProviderID: "p1", ScheduledAt: at})
		if err != nil || !ok {
			return fmt.Errorf("re-request after cancel = %v, %v", ok, err)
		}

		rows, err := repo.ListByProvider(ctx, "p1", store.DayWindow(time.Date(2030, 3, 11, 0, 0, 0, 0, time.UTC)))
		if err != nil {
			return err
		}
		if len(rows) != 2 {
			return fmt.Errorf("len(rows) = %d, want 2", len(rows))
		}
		if rows[0].ID != b1.ID || rows[1].ID != b2.ID {
			return fmt.Errorf("rows out of creation order within the same slot")
		}

		rows, err = repo.ListByRequester(ctx, "r1", store.Window{Start: at.Add(time.Hour)})
		if err != nil {
			return err
		}
		if len(rows) != 0 {
			return fmt.Errorf("len(rows) = %d, want 0", len(rows))
		}

		loaded, err := repo.Get(ctx, b2.ID)
		if err != nil {
			return err
		}
		if !loaded.ScheduledAt.Equal(at) {
			return fmt.Errorf("scheduled_at = %s, want %s", loaded.ScheduledAt, at)
		}
		return nil
	})
	if err != nil {
		t.Fatalf("tx error: %v", err)
	}
}

// bookingsSchema returns the statements of the bookings migration's goose Up section.
func bookingsSchema(t *testing.T) []string {
	t.Helper()
	_, file, _, _ := runtime.Caller(0)
	raw, err := os.ReadFile(filepath.Join(filepath.Dir(file), "..", "..", "..", "migrations", "00001_bookings.sql"))
	if err != nil {
		t.Fatalf("read migration: %v", err)
	}
	up, _, _ := strings.Cut(string(raw), "-- +goose Down")
	_, up, ok := strings.Cut(up, "-- +goose Up")
	if !ok {
		t.Fatalf("migration has no goose Up section")
	}

	var stmts []string
	for _, stmt := range strings.Split(up, ";") {
		if stmt = strings.TrimSpace(stmt); stmt != "" {
			stmts = append(stmts, stmt)
		}
	}
	return stmts
}
