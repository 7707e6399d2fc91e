package scheduling

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"slices"
	"strings"
	"time"

	"github.com/google/uuid"

	"clinicbook/internal/directory"
	"clinicbook/internal/domain"
	"clinicbook/internal/metrics"
	"clinicbook/internal/notify"
	"clinicbook/internal/store"
)

const actionRequest = "request"

type Service struct {
	bookings   store.BookingStore
	users      directory.Directory
	dispatcher *notify.Dispatcher
	calendar   domain.CalendarPolicy
	now        func() time.Time
	log        *slog.Logger
	metrics    *metrics.Metrics

	notifyTimeout     time.Duration
	notifyConcurrency int
}

type Option func(*Service)

func WithClock(now func() time.Time) Option {
	return func(s *Service) {
		if now != nil {
			s.now = now
		}
	}
}

func WithCalendar(p domain.CalendarPolicy) Option {
	return func(s *Service) { s.calendar = p }
}

func WithLogger(log *slog.Logger) Option {
	return func(s *Service) {
		if log != nil {
			s.log = log
		}
	}
}

func WithMetrics(m *metrics.Metrics) Option {
	return func(s *Service) { s.metrics = m }
}

func WithNotifyTimeout(d time.Duration) Option {
	return func(s *Service) { s.notifyTimeout = d }
}

func WithNotifyConcurrency(n int) Option {
	return func(s *Service) { s.notifyConcurrency = n }
}

// NewService wires the scheduler. A nil notifier logs messages instead of sending them.
func NewService(bookings store.BookingStore, users directory.Directory, notifier notify.Notifier, opts ...Option) *Service {
	s := &Service{
		bookings: bookings,
		users:    users,
		calendar: domain.DefaultCalendarPolicy(),
		now:      time.Now,
		log:      slog.Default(),
	}
	for _, opt := range opts {
		opt(s)
	}
	base := s.log
	s.log = base.With(slog.String("component", "scheduling"))

	if notifier == nil {
		notifier = notify.NewLogNotifier(base)
	}
	s.dispatcher = notify.NewDispatcher(notifier, base,
		notify.WithTimeout(s.notifyTimeout),
		notify.WithConcurrency(s.notifyConcurrency),
		notify.WithMetrics(s.metrics),
	)
	return s
}

func (s *Service) Calendar() domain.CalendarPolicy {
	return s.calendar
}

// Close waits for queued notifications to finish or for ctx to end.
func (s *Service) Close(ctx context.Context) error {
	return s.dispatcher.Close(ctx)
}

type RequestInput struct {
	RequesterID string
	ProviderID  string
	ScheduledAt time.Time
	Note        string
}

func (s *Service) RequestAppointment(ctx context.Context, in RequestInput) (b domain.Booking, err error) {
	defer func() { s.observe(actionRequest, err) }()

	if in.RequesterID == "" {
		return domain.Booking{}, validationError("requester_id is required")
	}
	if in.ProviderID == "" {
		return domain.Booking{}, validationError("provider_id is required")
	}
	at := in.ScheduledAt
	if err := s.calendar.CheckSlot(at, s.now()); err != nil {
		return domain.Booking{}, invalidSlot(err)
	}

	requester, err := s.lookup(ctx, in.RequesterID)
	if err != nil {
		return domain.Booking{}, err
	}
	if requester.Role != domain.RoleRequester {
		return domain.Booking{}, authorizationError("user %s is not a requester", requester.ID)
	}
	if !requester.Active {
		return domain.Booking{}, authorizationError("requester %s is not active", requester.ID)
	}
	if requester.AssignedProviderID != in.ProviderID {
		return domain.Booking{}, authorizationError("requester %s is not assigned to provider %s", requester.ID, in.ProviderID)
	}

	provider, err := s.lookup(ctx, in.ProviderID)
	if err != nil {
		return domain.Booking{}, err
	}
	if provider.Role != domain.RoleProvider {
		return domain.Booking{}, authorizationError("user %s is not a provider", provider.ID)
	}
	if !provider.Active {
		return domain.Booking{}, authorizationError("provider %s is not active", provider.ID)
	}

	open, err := s.slotOpen(ctx, in.ProviderID, at)
	if err != nil {
		return domain.Booking{}, err
	}
	if !open {
		return domain.Booking{}, fmt.Errorf("%w: %s", ErrSlotTaken, notify.FormatTime(at, s.calendar.Location))
	}

	created, inserted, err := s.bookings.InsertIfAbsent(ctx, domain.Booking{
		RequesterID:   requester.ID,
		ProviderID:    provider.ID,
		ScheduledAt:   at.UTC(),
		Status:        domain.StatusPending,
		RequesterNote: strings.TrimSpace(in.Note),
	})
	if err != nil {
		if errors.Is(err, store.ErrConflict) {
			return domain.Booking{}, fmt.Errorf("%w: %w", ErrSlotTaken, err)
		}
		return domain.Booking{}, s.storeFailure("insert booking", err)
	}
	if !inserted {
		return domain.Booking{}, fmt.Errorf("%w: %s", ErrSlotTaken, notify.FormatTime(at, s.calendar.Location))
	}

	s.log.InfoContext(ctx, "booking requested",
		slog.String("booking_id", created.ID.String()),
		slog.String("requester_id", created.RequesterID),
		slog.String("provider_id", created.ProviderID),
		slog.Time("scheduled_at", created.ScheduledAt),
	)
	s.announce(ctx, created, requester, provider)
	return created, nil
}

func (s *Service) ConfirmAppointment(ctx context.Context, providerID string, bookingID uuid.UUID) (domain.Booking, error) {
	return s.transition(ctx, domain.Actor{ID: providerID, Role: domain.RoleProvider}, bookingID, domain.ActionConfirm)
}

func (s *Service) RejectAppointment(ctx context.Context, providerID string, bookingID uuid.UUID) (domain.Booking, error) {
	return s.transition(ctx, domain.Actor{ID: providerID, Role: domain.RoleProvider}, bookingID, domain.ActionReject)
}

// CancelAppointment cancels on behalf of either party; role picks which cancelled status applies.
func (s *Service) CancelAppointment(ctx context.Context, actorID string, role domain.Role, bookingID uuid.UUID) (domain.Booking, error) {
	action, ok := domain.CancelActionFor(role)
	if !ok {
		err := authorizationError("role %q may not cancel appointments", role)
		s.observe("cancel", err)
		return domain.Booking{}, err
	}
	return s.transition(ctx, domain.Actor{ID: actorID, Role: role}, bookingID, action)
}

func (s *Service) MarkAttended(ctx context.Context, providerID string, bookingID uuid.UUID) (domain.Booking, error) {
	return s.transition(ctx, domain.Actor{ID: providerID, Role: domain.RoleProvider}, bookingID, domain.ActionMarkAttended)
}

func (s *Service) MarkNoShow(ctx context.Context, providerID string, bookingID uuid.UUID) (domain.Booking, error) {
	return s.transition(ctx, domain.Actor{ID: providerID, Role: domain.RoleProvider}, bookingID, domain.ActionMarkNoShow)
}

func (s *Service) transition(ctx context.Context, actor domain.Actor, id uuid.UUID, action domain.Action) (b domain.Booking, err error) {
	defer func() { s.observe(string(action), err) }()

	if actor.ID == "" {
		return domain.Booking{}, validationError("actor_id is required")
	}
	if id == uuid.Nil {
		return domain.Booking{}, validationError("booking_id is required")
	}

	current, err := s.bookings.Get(ctx, id)
	if err != nil {
		return domain.Booking{}, s.storeFailure("get booking", err)
	}
	next, err := domain.Next(current, actor, action)
	if err != nil {
		return domain.Booking{}, fromTransition(err)
	}

	updated, swapped, err := s.bookings.CompareAndSwapStatus(ctx, id, current.Status, next)
	if err != nil {
		if errors.Is(err, store.ErrConflict) {
			return domain.Booking{}, fmt.Errorf("%w: %w", ErrSlotTaken, err)
		}
		return domain.Booking{}, s.storeFailure("update booking status", err)
	}
	if !swapped {
		// Lost a race; updated holds the status that won.
		return domain.Booking{}, fmt.Errorf("%w: booking is now %s", ErrInvalidTransition, updated.Status)
	}

	s.log.InfoContext(ctx, "booking status changed",
		slog.String("booking_id", updated.ID.String()),
		slog.String("action", string(action)),
		slog.String("from", string(current.Status)),
		slog.String("to", string(updated.Status)),
	)
	s.announce(ctx, updated, s.party(ctx, updated.RequesterID), s.party(ctx, updated.ProviderID))
	return updated, nil
}

// AddProviderNote appends a note stamped with the current local time. Notes may be added
// in any status.
func (s *Service) AddProviderNote(ctx context.Context, providerID string, bookingID uuid.UUID, note string) (domain.Booking, error) {
	note = strings.TrimSpace(note)
	if providerID == "" {
		return domain.Booking{}, validationError("provider_id is required")
	}
	if bookingID == uuid.Nil {
		return domain.Booking{}, validationError("booking_id is required")
	}
	if note == "" {
		return domain.Booking{}, validationError("note is required")
	}

	current, err := s.bookings.Get(ctx, bookingID)
	if err != nil {
		return domain.Booking{}, s.storeFailure("get booking", err)
	}
	if current.ProviderID != providerID {
		return domain.Booking{}, authorizationError("only the assigned provider may add notes")
	}

	stamped := fmt.Sprintf("[%s] %s", s.now().In(s.location()).Format("2006-01-02 15:04"), note)
	updated, err := s.bookings.AppendProviderNote(ctx, bookingID, stamped)
	if err != nil {
		return domain.Booking{}, s.storeFailure("append provider note", err)
	}
	return updated, nil
}

// ListUpcoming returns every booking of the actor scheduled after now, in any status,
// earliest first.
func (s *Service) ListUpcoming(ctx context.Context, role domain.Role, actorID string) ([]domain.Booking, error) {
	if actorID == "" {
		return nil, validationError("actor_id is required")
	}

	now := s.now()
	w := store.Window{Start: now}
	var (
		rows []domain.Booking
		err  error
	)
	switch role {
	case domain.RoleRequester:
		rows, err = s.bookings.ListByRequester(ctx, actorID, w)
	case domain.RoleProvider:
		rows, err = s.bookings.ListByProvider(ctx, actorID, w)
	default:
		return nil, validationError("role must be requester or provider")
	}
	if err != nil {
		return nil, s.storeFailure("list bookings", err)
	}

	out := make([]domain.Booking, 0, len(rows))
	for _, b := range rows {
		if b.ScheduledAt.After(now) {
			out = append(out, b)
		}
	}
	slices.SortStableFunc(out, func(a, b domain.Booking) int {
		return a.ScheduledAt.Compare(b.ScheduledAt)
	})
	return out, nil
}

// Unconfirmed keeps the pending bookings of bookings, preserving order.
func Unconfirmed(bookings []domain.Booking) []domain.Booking {
	out := make([]domain.Booking, 0, len(bookings))
	for _, b := range bookings {
		if b.Status == domain.StatusPending {
			out = append(out, b)
		}
	}
	return out
}

// GetBooking returns a booking to either of its parties.
func (s *Service) GetBooking(ctx context.Context, actorID string, bookingID uuid.UUID) (domain.Booking, error) {
	if actorID == "" {
		return domain.Booking{}, validationError("actor_id is required")
	}
	if bookingID == uuid.Nil {
		return domain.Booking{}, validationError("booking_id is required")
	}
	b, err := s.bookings.Get(ctx, bookingID)
	if err != nil {
		return domain.Booking{}, s.storeFailure("get booking", err)
	}
	if !b.HasParty(actorID) {
		return domain.Booking{}, authorizationError("booking is not visible to %s", actorID)
	}
	return b, nil
}

func (s *Service) lookup(ctx context.Context, id string) (domain.User, error) {
	u, err := s.users.GetUser(ctx, id)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return domain.User{}, fmt.Errorf("user %s: %w", id, ErrNotFound)
		}
		return domain.User{}, s.storeFailure("get user", err)
	}
	return u, nil
}

// party resolves a notification recipient, falling back to the bare id.
func (s *Service) party(ctx context.Context, id string) domain.User {
	u, err := s.users.GetUser(ctx, id)
	if err != nil {
		s.log.WarnContext(ctx, "notification recipient lookup failed",
			slog.String("user_id", id),
			slog.Any("err", err),
		)
		return domain.User{ID: id}
	}
	return u
}

func (s *Service) announce(ctx context.Context, b domain.Booking, requester, provider domain.User) {
	s.dispatcher.Dispatch(ctx, notify.Compose(notify.KindFor(b.Status), b, requester, provider, s.location())...)
}

func (s *Service) storeFailure(op string, err error) error {
	if errors.Is(err, ErrStorageUnavailable) {
		s.log.Error("store unavailable", slog.String("op", op), slog.Any("err", err))
	}
	return err
}

func (s *Service) observe(action string, err error) {
	switch {
	case err == nil:
		s.metrics.Transition(action, metrics.OutcomeOK)
	case IsRetryable(err):
		s.metrics.Transition(action, metrics.OutcomeError)
	default:
		s.metrics.Transition(action, metrics.OutcomeRejected)
	}
}

func (s *Service) location() *time.Location {
	if s.calendar.Location == nil {
		return time.Local
	}
	return s.calendar.Location
}
