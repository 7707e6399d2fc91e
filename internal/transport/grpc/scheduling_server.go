package grpc

import (
	"context"
	"errors"
	"iter"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"
	"google.golang.org/genproto/googleapis/rpc/errdetails"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
	"google.golang.org/protobuf/types/known/durationpb"

	"clinicbook/internal/domain"
	"clinicbook/internal/service/scheduling"
)

const (
	errorDomain = "clinicbook"
	retryAfter  = time.Second
)

type SchedulingServer struct {
	svc schedulingService
	log *slog.Logger
}

type schedulingService interface {
	RequestAppointment(ctx context.Context, in scheduling.RequestInput) (domain.Booking, error)
	ConfirmAppointment(ctx context.Context, providerID string, bookingID uuid.UUID) (domain.Booking, error)
	RejectAppointment(ctx context.Context, providerID string, bookingID uuid.UUID) (domain.Booking, error)
	CancelAppointment(ctx context.Context, actorID string, role domain.Role, bookingID uuid.UUID) (domain.Booking, error)
	MarkAttended(ctx context.Context, providerID string, bookingID uuid.UUID) (domain.Booking, error)
	MarkNoShow(ctx context.Context, providerID string, bookingID uuid.UUID) (domain.Booking, error)
	AddProviderNote(ctx context.Context, providerID string, bookingID uuid.UUID, note string) (domain.Booking, error)
	GetBooking(ctx context.Context, actorID string, bookingID uuid.UUID) (domain.Booking, error)
	ListUpcoming(ctx context.Context, role domain.Role, actorID string) ([]domain.Booking, error)
	AvailableSlots(ctx context.Context, providerID string, day time.Time) (iter.Seq[time.Time], error)
	Calendar() domain.CalendarPolicy
}

func NewSchedulingServer(svc schedulingService, log *slog.Logger) *SchedulingServer {
	if log == nil {
		log = slog.Default()
	}
	return &SchedulingServer{
		svc: svc,
		log: log.With(slog.String("component", "grpc.scheduling")),
	}
}

func (s *SchedulingServer) RequestAppointment(ctx context.Context, req *RequestAppointmentRequest) (*BookingResponse, error) {
	log := s.log.With(slog.String("rpc", "RequestAppointment"))

	if req == nil {
		log.Warn("invalid request", slog.String("reason", "nil_request"))
		return nil, status.Error(codes.InvalidArgument, "request is required")
	}
	if req.ScheduledAt == nil {
		log.Warn("invalid request", slog.String("reason", "missing_time"), slog.String("requester_id", req.RequesterID))
		return nil, status.Error(codes.InvalidArgument, "scheduled_at is required")
	}

	b, err := s.svc.RequestAppointment(ctx, scheduling.RequestInput{
		RequesterID: req.RequesterID,
		ProviderID:  req.ProviderID,
		ScheduledAt: *req.ScheduledAt,
		Note:        req.Note,
	})
	if err != nil {
		return nil, s.statusError(log, err,
			slog.String("requester_id", req.RequesterID),
			slog.String("provider_id", req.ProviderID),
			slog.Time("scheduled_at", *req.ScheduledAt),
		)
	}

	log.Info("appointment requested",
		slog.String("booking_id", b.ID.String()),
		slog.String("requester_id", b.RequesterID),
		slog.String("provider_id", b.ProviderID),
		slog.Time("scheduled_at", b.ScheduledAt),
	)
	return &BookingResponse{Booking: toWireBooking(b)}, nil
}

func (s *SchedulingServer) ConfirmAppointment(ctx context.Context, req *BookingActionRequest) (*BookingResponse, error) {
	return s.providerAction(ctx, "ConfirmAppointment", req, s.svc.ConfirmAppointment)
}

func (s *SchedulingServer) RejectAppointment(ctx context.Context, req *BookingActionRequest) (*BookingResponse, error) {
	return s.providerAction(ctx, "RejectAppointment", req, s.svc.RejectAppointment)
}

func (s *SchedulingServer) MarkAttended(ctx context.Context, req *BookingActionRequest) (*BookingResponse, error) {
	return s.providerAction(ctx, "MarkAttended", req, s.svc.MarkAttended)
}

func (s *SchedulingServer) MarkNoShow(ctx context.Context, req *BookingActionRequest) (*BookingResponse, error) {
	return s.providerAction(ctx, "MarkNoShow", req, s.svc.MarkNoShow)
}

func (s *SchedulingServer) providerAction(
	ctx context.Context,
	rpc string,
	req *BookingActionRequest,
	do func(ctx context.Context, providerID string, bookingID uuid.UUID) (domain.Booking, error),
) (*BookingResponse, error) {
	log := s.log.With(slog.String("rpc", rpc))

	if req == nil {
		log.Warn("invalid request", slog.String("reason", "nil_request"))
		return nil, status.Error(codes.InvalidArgument, "request is required")
	}
	id, err := parseBookingID(req.BookingID)
	if err != nil {
		log.Warn("invalid request", slog.String("reason", "invalid_uuid"), slog.String("provider_id", req.ProviderID))
		return nil, err
	}

	b, err := do(ctx, req.ProviderID, id)
	if err != nil {
		return nil, s.statusError(log, err, slog.String("booking_id", id.String()), slog.String("provider_id", req.ProviderID))
	}

	log.Info("booking updated", slog.String("booking_id", b.ID.String()), slog.String("status", string(b.Status)))
	return &BookingResponse{Booking: toWireBooking(b)}, nil
}

func (s *SchedulingServer) CancelAppointment(ctx context.Context, req *CancelAppointmentRequest) (*BookingResponse, error) {
	log := s.log.With(slog.String("rpc", "CancelAppointment"))

	if req == nil {
		log.Warn("invalid request", slog.String("reason", "nil_request"))
		return nil, status.Error(codes.InvalidArgument, "request is required")
	}
	role, err := domain.ParseRole(strings.TrimSpace(req.Role))
	if err != nil {
		log.Warn("invalid request", slog.String("reason", "invalid_role"), slog.String("actor_id", req.ActorID))
		return nil, status.Error(codes.InvalidArgument, "role must be requester or provider")
	}
	id, err := parseBookingID(req.BookingID)
	if err != nil {
		log.Warn("invalid request", slog.String("reason", "invalid_uuid"), slog.String("actor_id", req.ActorID))
		return nil, err
	}

	b, err := s.svc.CancelAppointment(ctx, req.ActorID, role, id)
	if err != nil {
		return nil, s.statusError(log, err, slog.String("booking_id", id.String()), slog.String("actor_id", req.ActorID))
	}

	log.Info("booking cancelled", slog.String("booking_id", b.ID.String()), slog.String("status", string(b.Status)))
	return &BookingResponse{Booking: toWireBooking(b)}, nil
}

func (s *SchedulingServer) AddProviderNote(ctx context.Context, req *AddProviderNoteRequest) (*BookingResponse, error) {
	log := s.log.With(slog.String("rpc", "AddProviderNote"))

	if req == nil {
		log.Warn("invalid request", slog.String("reason", "nil_request"))
		return nil, status.Error(codes.InvalidArgument, "request is required")
	}
	id, err := parseBookingID(req.BookingID)
	if err != nil {
		log.Warn("invalid request", slog.String("reason", "invalid_uuid"), slog.String("provider_id", req.ProviderID))
		return nil, err
	}

	b, err := s.svc.AddProviderNote(ctx, req.ProviderID, id, req.Note)
	if err != nil {
		return nil, s.statusError(log, err, slog.String("booking_id", id.String()), slog.String("provider_id", req.ProviderID))
	}

	log.Debug("provider note added", slog.String("booking_id", b.ID.String()))
	return &BookingResponse{Booking: toWireBooking(b)}, nil
}

func (s *SchedulingServer) GetBooking(ctx context.Context, req *GetBookingRequest) (*BookingResponse, error) {
	log := s.log.With(slog.String("rpc", "GetBooking"))

	if req == nil {
		log.Warn("invalid request", slog.String("reason", "nil_request"))
		return nil, status.Error(codes.InvalidArgument, "request is required")
	}
	id, err := parseBookingID(req.BookingID)
	if err != nil {
		log.Warn("invalid request", slog.String("reason", "invalid_uuid"), slog.String("actor_id", req.ActorID))
		return nil, err
	}

	b, err := s.svc.GetBooking(ctx, req.ActorID, id)
	if err != nil {
		return nil, s.statusError(log, err, slog.String("booking_id", id.String()), slog.String("actor_id", req.ActorID))
	}
	return &BookingResponse{Booking: toWireBooking(b)}, nil
}

func (s *SchedulingServer) ListUpcoming(ctx context.Context, req *ListUpcomingRequest) (*ListUpcomingResponse, error) {
	log := s.log.With(slog.String("rpc", "ListUpcoming"))

	if req == nil {
		log.Warn("invalid request", slog.String("reason", "nil_request"))
		return nil, status.Error(codes.InvalidArgument, "request is required")
	}
	role, err := domain.ParseRole(strings.TrimSpace(req.Role))
	if err != nil {
		log.Warn("invalid request", slog.String("reason", "invalid_role"), slog.String("actor_id", req.ActorID))
		return nil, status.Error(codes.InvalidArgument, "role must be requester or provider")
	}

	bookings, err := s.svc.ListUpcoming(ctx, role, req.ActorID)
	if err != nil {
		return nil, s.statusError(log, err, slog.String("actor_id", req.ActorID), slog.String("role", string(role)))
	}
	if req.UnconfirmedOnly {
		bookings = scheduling.Unconfirmed(bookings)
	}

	out := make([]*Booking, 0, len(bookings))
	for _, b := range bookings {
		out = append(out, toWireBooking(b))
	}

	log.Debug("upcoming bookings listed",
		slog.String("actor_id", req.ActorID),
		slog.String("role", string(role)),
		slog.Int("count", len(out)),
	)
	return &ListUpcomingResponse{Bookings: out}, nil
}

func (s *SchedulingServer) AvailableSlots(ctx context.Context, req *AvailableSlotsRequest) (*AvailableSlotsResponse, error) {
	log := s.log.With(slog.String("rpc", "AvailableSlots"))

	if req == nil {
		log.Warn("invalid request", slog.String("reason", "nil_request"))
		return nil, status.Error(codes.InvalidArgument, "request is required")
	}
	loc := s.svc.Calendar().Location
	if loc == nil {
		loc = time.Local
	}
	day, err := time.ParseInLocation(time.DateOnly, strings.TrimSpace(req.Day), loc)
	if err != nil {
		log.Warn("invalid request", slog.String("reason", "invalid_day"), slog.String("provider_id", req.ProviderID))
		return nil, status.Error(codes.InvalidArgument, "day must be YYYY-MM-DD")
	}

	slots, err := s.svc.AvailableSlots(ctx, req.ProviderID, day)
	if err != nil {
		return nil, s.statusError(log, err, slog.String("provider_id", req.ProviderID), slog.String("day", req.Day))
	}

	out := make([]time.Time, 0)
	for t := range slots {
		out = append(out, t.UTC())
	}

	log.Debug("slots listed", slog.String("provider_id", req.ProviderID), slog.String("day", req.Day), slog.Int("count", len(out)))
	return &AvailableSlotsResponse{Slots: out}, nil
}

func parseBookingID(raw string) (uuid.UUID, error) {
	id, err := uuid.Parse(strings.TrimSpace(raw))
	if err != nil {
		return uuid.Nil, status.Error(codes.InvalidArgument, "booking_id must be a UUID")
	}
	return id, nil
}

// statusError maps service errors onto gRPC codes and logs them at a level matching the cause.
func (s *SchedulingServer) statusError(log *slog.Logger, err error, attrs ...any) error {
	args := append([]any{slog.Any("err", err)}, attrs...)

	var vErr *scheduling.ValidationError
	if errors.As(err, &vErr) {
		log.Warn("invalid request", args...)
		return status.Error(codes.InvalidArgument, vErr.Error())
	}
	var aErr *scheduling.AuthorizationError
	if errors.As(err, &aErr) {
		log.Warn("permission denied", args...)
		return status.Error(codes.PermissionDenied, aErr.Error())
	}

	switch {
	case errors.Is(err, scheduling.ErrSlotTaken):
		log.Info("slot taken", args...)
		return status.Error(codes.AlreadyExists, "That time was just booked. Pick a different slot.")
	case errors.Is(err, scheduling.ErrInvalidTransition):
		log.Info("invalid transition", args...)
		return status.Error(codes.FailedPrecondition, err.Error())
	case errors.Is(err, scheduling.ErrNotFound):
		log.Info("not found", args...)
		return status.Error(codes.NotFound, "booking or user not found")
	case scheduling.IsRetryable(err):
		log.Error("storage unavailable", args...)
		return unavailableStatus()
	case errors.Is(err, context.Canceled):
		return status.Error(codes.Canceled, "request cancelled")
	case errors.Is(err, context.DeadlineExceeded):
		log.Warn("request deadline exceeded", args...)
		return status.Error(codes.DeadlineExceeded, "request timed out")
	}

	log.Error("request failed", args...)
	return status.Error(codes.Internal, "internal error")
}

func unavailableStatus() error {
	st := status.New(codes.Unavailable, "Scheduling is temporarily unavailable. Try again shortly.")
	detailed, err := st.WithDetails(
		&errdetails.ErrorInfo{Reason: "STORAGE_UNAVAILABLE", Domain: errorDomain},
		&errdetails.RetryInfo{RetryDelay: durationpb.New(retryAfter)},
	)
	if err != nil {
		return st.Err()
	}
	return detailed.Err()
}

var _ SchedulingServiceServer = (*SchedulingServer)(nil)
