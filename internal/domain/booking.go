package domain

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/uptrace/bun"
)

type Status string

const (
	StatusPending              Status = "pending"
	StatusConfirmed            Status = "confirmed"
	StatusRejected             Status = "rejected"
	StatusAttended             Status = "attended"
	StatusNoShow               Status = "no_show"
	StatusCancelledByRequester Status = "cancelled_by_requester"
	StatusCancelledByProvider  Status = "cancelled_by_provider"
)

// ActiveStatuses hold a slot. At most one booking per (provider, time) may be in one of them.
var ActiveStatuses = []Status{StatusPending, StatusConfirmed}

func ParseStatus(s string) (Status, error) {
	switch st := Status(s); st {
	case StatusPending, StatusConfirmed, StatusRejected, StatusAttended, StatusNoShow,
		StatusCancelledByRequester, StatusCancelledByProvider:
		return st, nil
	}
	return "", fmt.Errorf("unknown booking status %q", s)
}

func (s Status) Active() bool {
	return s == StatusPending || s == StatusConfirmed
}

func (s Status) Terminal() bool {
	return !s.Active()
}

type Booking struct {
	bun.BaseModel `bun:"table:bookings"`

	ID            uuid.UUID `bun:"id,pk,type:uuid"`
	RequesterID   string    `bun:"requester_id,notnull"`
	ProviderID    string    `bun:"provider_id,notnull"`
	ScheduledAt   time.Time `bun:"scheduled_at,notnull"`
	Status        Status    `bun:"status,notnull"`
	RequesterNote string    `bun:"requester_note"`
	ProviderNote  string    `bun:"provider_note"`
	CreatedAt     time.Time `bun:"created_at,notnull"`
	UpdatedAt     time.Time `bun:"updated_at,notnull"`
}

func (b *Booking) BeforeAppendModel(ctx context.Context, query bun.Query) error {
	now := time.Now().UTC()
	switch query.(type) {
	case *bun.InsertQuery:
		if b.ID == uuid.Nil {
			id, err := uuid.NewV7()
			if err != nil {
				return err
			}
			b.ID = id
		}
		if b.Status == "" {
			b.Status = StatusPending
		}
		if b.CreatedAt.IsZero() {
			b.CreatedAt = now
		}
		if b.UpdatedAt.IsZero() {
			b.UpdatedAt = now
		}
	case *bun.UpdateQuery:
		b.UpdatedAt = now
	}
	return nil
}

// HasParty reports whether id is the requester or the provider of the booking.
func (b Booking) HasParty(id string) bool {
	return id != "" && (b.RequesterID == id || b.ProviderID == id)
}
