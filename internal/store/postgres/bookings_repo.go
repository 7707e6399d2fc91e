package postgres

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/uptrace/bun"

	"clinicbook/internal/domain"
	"clinicbook/internal/store"
)

type BookingRepo struct {
	db bun.IDB
}

func NewBookingRepo(db bun.IDB) *BookingRepo {
	return &BookingRepo{db: db}
}

var activeStatuses = bun.In(domain.ActiveStatuses)

func (r *BookingRepo) InsertIfAbsent(ctx context.Context, b domain.Booking) (domain.Booking, bool, error) {
	m := domain.Booking{
		ID:            b.ID,
		RequesterID:   b.RequesterID,
		ProviderID:    b.ProviderID,
		ScheduledAt:   b.ScheduledAt.UTC(),
		Status:        b.Status,
		RequesterNote: b.RequesterNote,
		ProviderNote:  b.ProviderNote,
		CreatedAt:     b.CreatedAt,
		UpdatedAt:     b.UpdatedAt,
	}
	if m.Status == "" {
		m.Status = domain.StatusPending
	}

	inserted := false
	err := r.inProviderTransaction(ctx, m.ProviderID, func(ctx context.Context, tx bun.Tx) error {
		if m.Status.Active() {
			taken, err := tx.NewSelect().
				Model((*domain.Booking)(nil)).
				Where("provider_id = ?", m.ProviderID).
				Where("scheduled_at = ?", m.ScheduledAt).
				Where("status IN (?)", activeStatuses).
				Exists(ctx)
			if err != nil {
				return err
			}
			if taken {
				return nil
			}
		}

		if _, err := tx.NewInsert().Model(&m).Returning("*").Exec(ctx); err != nil {
			return err
		}
		inserted = true
		return nil
	})
	if err != nil {
		// The partial unique index backs the advisory lock for writers that bypass it.
		if isActiveSlotViolation(err) {
			return domain.Booking{}, false, nil
		}
		if isUniqueViolation(err) {
			return domain.Booking{}, false, store.ErrConflict
		}
		return domain.Booking{}, false, classify(err)
	}
	if !inserted {
		return domain.Booking{}, false, nil
	}
	return m, true, nil
}

func (r *BookingRepo) CompareAndSwapStatus(ctx context.Context, id uuid.UUID, expected, next domain.Status) (domain.Booking, bool, error) {
	var m domain.Booking
	res, err := r.db.NewUpdate().
		Model(&m).
		Set("status = ?", next).
		Set("updated_at = ?", time.Now().UTC()).
		Where("id = ?", id).
		Where("status = ?", expected).
		Returning("*").
		Exec(ctx)
	if err != nil {
		if isActiveSlotViolation(err) {
			return domain.Booking{}, false, store.ErrConflict
		}
		return domain.Booking{}, false, classify(err)
	}

	affected, err := res.RowsAffected()
	if err != nil {
		return domain.Booking{}, false, classify(err)
	}
	if affected == 0 {
		current, err := r.Get(ctx, id)
		if err != nil {
			return domain.Booking{}, false, err
		}
		return current, false, nil
	}
	return m, true, nil
}

func (r *BookingRepo) AppendProviderNote(ctx context.Context, id uuid.UUID, note string) (domain.Booking, error) {
	var m domain.Booking
	res, err := r.db.NewUpdate().
		Model(&m).
		Set("provider_note = CASE WHEN coalesce(provider_note, '') = '' THEN ? ELSE provider_note || chr(10) || ? END", note, note).
		Set("updated_at = ?", time.Now().UTC()).
		Where("id = ?", id).
		Returning("*").
		Exec(ctx)
	if err != nil {
		return domain.Booking{}, classify(err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return domain.Booking{}, classify(err)
	}
	if affected == 0 {
		return domain.Booking{}, store.ErrNotFound
	}
	return m, nil
}

func (r *BookingRepo) Get(ctx context.Context, id uuid.UUID) (domain.Booking, error) {
	var m domain.Booking
	err := r.db.NewSelect().
		Model(&m).
		Where("id = ?", id).
		Limit(1).
		Scan(ctx)
	if err != nil {
		return domain.Booking{}, classify(err)
	}
	return m, nil
}

func (r *BookingRepo) ListByProvider(ctx context.Context, providerID string, w store.Window) ([]domain.Booking, error) {
	return r.list(ctx, "provider_id", providerID, w)
}

func (r *BookingRepo) ListByRequester(ctx context.Context, requesterID string, w store.Window) ([]domain.Booking, error) {
	return r.list(ctx, "requester_id", requesterID, w)
}

func (r *BookingRepo) list(ctx context.Context, column, id string, w store.Window) ([]domain.Booking, error) {
	rows := make([]domain.Booking, 0)
	q := r.db.NewSelect().
		Model(&rows).
		Where("? = ?", bun.Ident(column), id)
	if !w.Start.IsZero() {
		q = q.Where("scheduled_at >= ?", w.Start.UTC())
	}
	if !w.End.IsZero() {
		q = q.Where("scheduled_at < ?", w.End.UTC())
	}
	if err := q.OrderExpr("scheduled_at ASC, created_at ASC").Scan(ctx); err != nil {
		return nil, classify(err)
	}
	return rows, nil
}

// inProviderTransaction serialises writers on one provider's calendar.
func (r *BookingRepo) inProviderTransaction(ctx context.Context, providerID string, fn func(ctx context.Context, tx bun.Tx) error) error {
	return r.db.RunInTx(ctx, nil, func(ctx context.Context, tx bun.Tx) error {
		if err := lockProviderCalendar(ctx, tx, providerID); err != nil {
			return err
		}
		return fn(ctx, tx)
	})
}

func lockProviderCalendar(ctx context.Context, tx bun.Tx, providerID string) error {
	_, err := tx.NewRaw("SELECT pg_advisory_xact_lock(hashtext(?))", providerID).Exec(ctx)
	return err
}

var _ store.BookingStore = (*BookingRepo)(nil)
