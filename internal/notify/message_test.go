package notify

import (
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"clinicbook/internal/domain"
)

func testParties() (domain.User, domain.User) {
	r := domain.User{ID: "r1", Role: domain.RoleRequester, Active: true, DisplayName: "Ada Patient", Email: "ada@example.com"}
	p := domain.User{ID: "p1", Role: domain.RoleProvider, Active: true, DisplayName: "Dr. Grace"}
	return r, p
}

func TestFormatTime(t *testing.T) {
	got := FormatTime(time.Date(2025, 3, 10, 9, 0, 0, 0, time.UTC), time.UTC)
	assert.Equal(t, "Monday, 10 March 2025 at 09:00", got)
}

func TestCompose_OneMessagePerParty(t *testing.T) {
	r, p := testParties()
	b := domain.Booking{
		ID:          uuid.MustParse("0190a1b2-0000-7000-8000-000000000001"),
		RequesterID: r.ID,
		ProviderID:  p.ID,
		ScheduledAt: time.Date(2025, 3, 10, 9, 0, 0, 0, time.UTC),
		Status:      domain.StatusConfirmed,
	}

	msgs := Compose(KindFor(b.Status), b, r, p, time.UTC)
	require.Len(t, msgs, 2)

	assert.Equal(t, "ada@example.com", msgs[0].To)
	assert.Equal(t, "p1", msgs[1].To, "provider without email falls back to id")
	for _, m := range msgs {
		assert.Equal(t, KindConfirmed, m.Kind)
		assert.Equal(t, b.ID, m.BookingID)
		assert.Equal(t, "Appointment confirmed", m.Subject)
		assert.Contains(t, m.Body, "Monday, 10 March 2025 at 09:00")
	}
	assert.Contains(t, msgs[0].Body, "Dr. Grace")
	assert.Contains(t, msgs[1].Body, "Ada Patient")
}

func TestKindFor(t *testing.T) {
	assert.Equal(t, KindRequested, KindFor(domain.StatusPending))
	assert.Equal(t, KindCancelledByProvider, KindFor(domain.StatusCancelledByProvider))
	assert.Equal(t, KindNoShow, KindFor(domain.StatusNoShow))
}
