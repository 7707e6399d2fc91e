package notify

import (
	"fmt"
	"time"

	"github.com/google/uuid"

	"clinicbook/internal/domain"
)

// Kind names the booking event a message reports.
type Kind string

const (
	KindRequested            Kind = "requested"
	KindConfirmed            Kind = "confirmed"
	KindRejected             Kind = "rejected"
	KindCancelledByRequester Kind = "cancelled_by_requester"
	KindCancelledByProvider  Kind = "cancelled_by_provider"
	KindAttended             Kind = "attended"
	KindNoShow               Kind = "no_show"
)

// KindFor maps the status a booking just entered to the event it announces.
func KindFor(s domain.Status) Kind {
	if s == domain.StatusPending {
		return KindRequested
	}
	return Kind(s)
}

type Message struct {
	To        string
	Subject   string
	Body      string
	BookingID uuid.UUID
	Kind      Kind
}

const timeLayout = "Monday, 2 January 2006 at 15:04"

// FormatTime renders t the way providers read it, e.g. "Monday, 10 March 2025 at 09:00".
func FormatTime(t time.Time, loc *time.Location) string {
	if loc == nil {
		loc = time.Local
	}
	return t.In(loc).Format(timeLayout)
}

// Address is where messages for u are sent: the email on file, else the user id.
func Address(u domain.User) string {
	if u.Email != "" {
		return u.Email
	}
	return u.ID
}

// Compose builds one message for the requester and one for the provider, in that order.
func Compose(kind Kind, b domain.Booking, requester, provider domain.User, loc *time.Location) []Message {
	when := FormatTime(b.ScheduledAt, loc)
	rName, pName := requester.Name(), provider.Name()

	var subject, toRequester, toProvider string
	switch kind {
	case KindRequested:
		subject = "Appointment requested"
		toRequester = fmt.Sprintf("Your appointment request with %s for %s has been received and is awaiting confirmation.", pName, when)
		toProvider = fmt.Sprintf("%s has requested an appointment on %s.", rName, when)
	case KindConfirmed:
		subject = "Appointment confirmed"
		toRequester = fmt.Sprintf("Your appointment with %s on %s is confirmed.", pName, when)
		toProvider = fmt.Sprintf("You confirmed the appointment with %s on %s.", rName, when)
	case KindRejected:
		subject = "Appointment declined"
		toRequester = fmt.Sprintf("%s could not accept your appointment request for %s.", pName, when)
		toProvider = fmt.Sprintf("You declined the appointment request from %s for %s.", rName, when)
	case KindCancelledByRequester:
		subject = "Appointment cancelled"
		toRequester = fmt.Sprintf("You cancelled your appointment with %s on %s.", pName, when)
		toProvider = fmt.Sprintf("%s cancelled the appointment on %s.", rName, when)
	case KindCancelledByProvider:
		subject = "Appointment cancelled"
		toRequester = fmt.Sprintf("%s cancelled your appointment on %s.", pName, when)
		toProvider = fmt.Sprintf("You cancelled the appointment with %s on %s.", rName, when)
	case KindAttended:
		subject = "Appointment attended"
		toRequester = fmt.Sprintf("Your appointment with %s on %s was marked as attended.", pName, when)
		toProvider = fmt.Sprintf("The appointment with %s on %s was marked as attended.", rName, when)
	case KindNoShow:
		subject = "Appointment missed"
		toRequester = fmt.Sprintf("You were marked as not attending your appointment with %s on %s.", pName, when)
		toProvider = fmt.Sprintf("%s was marked as not attending the appointment on %s.", rName, when)
	default:
		subject = "Appointment updated"
		toRequester = fmt.Sprintf("Your appointment with %s on %s is now %s.", pName, when, b.Status)
		toProvider = fmt.Sprintf("The appointment with %s on %s is now %s.", rName, when, b.Status)
	}

	return []Message{
		{To: Address(requester), Subject: subject, Body: toRequester, BookingID: b.ID, Kind: kind},
		{To: Address(provider), Subject: subject, Body: toProvider, BookingID: b.ID, Kind: kind},
	}
}
