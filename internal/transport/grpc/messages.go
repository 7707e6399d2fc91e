package grpc

import (
	"time"

	"clinicbook/internal/domain"
)

type Booking struct {
	ID            string    `json:"id"`
	RequesterID   string    `json:"requester_id"`
	ProviderID    string    `json:"provider_id"`
	ScheduledAt   time.Time `json:"scheduled_at"`
	Status        string    `json:"status"`
	RequesterNote string    `json:"requester_note,omitempty"`
	ProviderNote  string    `json:"provider_note,omitempty"`
	CreatedAt     time.Time `json:"created_at"`
	UpdatedAt     time.Time `json:"updated_at"`
}

type BookingResponse struct {
	Booking *Booking `json:"booking"`
}

type RequestAppointmentRequest struct {
	RequesterID string     `json:"requester_id"`
	ProviderID  string     `json:"provider_id"`
	ScheduledAt *time.Time `json:"scheduled_at"`
	Note        string     `json:"note,omitempty"`
}

// BookingActionRequest drives provider transitions: confirm, reject, attended, no-show.
type BookingActionRequest struct {
	ProviderID string `json:"provider_id"`
	BookingID  string `json:"booking_id"`
}

type CancelAppointmentRequest struct {
	ActorID   string `json:"actor_id"`
	Role      string `json:"role"`
	BookingID string `json:"booking_id"`
}

type AddProviderNoteRequest struct {
	ProviderID string `json:"provider_id"`
	BookingID  string `json:"booking_id"`
	Note       string `json:"note"`
}

type GetBookingRequest struct {
	ActorID   string `json:"actor_id"`
	BookingID string `json:"booking_id"`
}

type ListUpcomingRequest struct {
	Role            string `json:"role"`
	ActorID         string `json:"actor_id"`
	UnconfirmedOnly bool   `json:"unconfirmed_only,omitempty"`
}

type ListUpcomingResponse struct {
	Bookings []*Booking `json:"bookings"`
}

// AvailableSlotsRequest.Day is a calendar date, YYYY-MM-DD.
type AvailableSlotsRequest struct {
	ProviderID string `json:"provider_id"`
	Day        string `json:"day"`
}

type AvailableSlotsResponse struct {
	Slots []time.Time `json:"slots"`
}

func toWireBooking(b domain.Booking) *Booking {
	return &Booking{
		ID:            b.ID.String(),
		RequesterID:   b.RequesterID,
		ProviderID:    b.ProviderID,
		ScheduledAt:   b.ScheduledAt.UTC(),
		Status:        string(b.Status),
		RequesterNote: b.RequesterNote,
		ProviderNote:  b.ProviderNote,
		CreatedAt:     b.CreatedAt.UTC(),
		UpdatedAt:     b.UpdatedAt.UTC(),
	}
}
