package grpc

import (
	"context"

	"google.golang.org/grpc"
)

const serviceName = "clinicbook.v1.SchedulingService"

type SchedulingServiceServer interface {
	RequestAppointment(context.Context, *RequestAppointmentRequest) (*BookingResponse, error)
	ConfirmAppointment(context.Context, *BookingActionRequest) (*BookingResponse, error)
	RejectAppointment(context.Context, *BookingActionRequest) (*BookingResponse, error)
	CancelAppointment(context.Context, *CancelAppointmentRequest) (*BookingResponse, error)
	MarkAttended(context.Context, *BookingActionRequest) (*BookingResponse, error)
	MarkNoShow(context.Context, *BookingActionRequest) (*BookingResponse, error)
	AddProviderNote(context.Context, *AddProviderNoteRequest) (*BookingResponse, error)
	GetBooking(context.Context, *GetBookingRequest) (*BookingResponse, error)
	ListUpcoming(context.Context, *ListUpcomingRequest) (*ListUpcomingResponse, error)
	AvailableSlots(context.Context, *AvailableSlotsRequest) (*AvailableSlotsResponse, error)
}

func unaryHandler[Req, Resp any](method string, call func(SchedulingServiceServer, context.Context, *Req) (*Resp, error)) func(srv any, ctx context.Context, dec func(any) error, interceptor grpc.UnaryServerInterceptor) (any, error) {
	fullMethod := "/" + serviceName + "/" + method
	return func(srv any, ctx context.Context, dec func(any) error, interceptor grpc.UnaryServerInterceptor) (any, error) {
		in := new(Req)
		if err := dec(in); err != nil {
			return nil, err
		}
		if interceptor == nil {
			return call(srv.(SchedulingServiceServer), ctx, in)
		}
		info := &grpc.UnaryServerInfo{Server: srv, FullMethod: fullMethod}
		handler := func(ctx context.Context, req any) (any, error) {
			return call(srv.(SchedulingServiceServer), ctx, req.(*Req))
		}
		return interceptor(ctx, in, info, handler)
	}
}

var SchedulingServiceDesc = grpc.ServiceDesc{
	ServiceName: serviceName,
	HandlerType: (*SchedulingServiceServer)(nil),
	Methods: []grpc.MethodDesc{
		{MethodName: "RequestAppointment", Handler: unaryHandler("RequestAppointment", SchedulingServiceServer.RequestAppointment)},
		{MethodName: "ConfirmAppointment", Handler: unaryHandler("ConfirmAppointment", SchedulingServiceServer.ConfirmAppointment)},
		{MethodName: "RejectAppointment", Handler: unaryHandler("RejectAppointment", SchedulingServiceServer.RejectAppointment)},
		{MethodName: "CancelAppointment", Handler: unaryHandler("CancelAppointment", SchedulingServiceServer.CancelAppointment)},
		{MethodName: "MarkAttended", Handler: unaryHandler("MarkAttended", SchedulingServiceServer.MarkAttended)},
		{MethodName: "MarkNoShow", Handler: unaryHandler("MarkNoShow", SchedulingServiceServer.MarkNoShow)},
		{MethodName: "AddProviderNote", Handler: unaryHandler("AddProviderNote", SchedulingServiceServer.AddProviderNote)},
		{MethodName: "GetBooking", Handler: unaryHandler("GetBooking", SchedulingServiceServer.GetBooking)},
		{MethodName: "ListUpcoming", Handler: unaryHandler("ListUpcoming", SchedulingServiceServer.ListUpcoming)},
		{MethodName: "AvailableSlots", Handler: unaryHandler("AvailableSlots", SchedulingServiceServer.AvailableSlots)},
	},
	Streams:  []grpc.StreamDesc{},
	Metadata: "clinicbook/v1/scheduling",
}

func RegisterSchedulingServiceServer(s grpc.ServiceRegistrar, srv SchedulingServiceServer) {
	s.RegisterService(&SchedulingServiceDesc, srv)
}

// SchedulingServiceClient calls the service with the JSON codec.
type SchedulingServiceClient struct {
	cc grpc.ClientConnInterface
}

func NewSchedulingServiceClient(cc grpc.ClientConnInterface) *SchedulingServiceClient {
	return &SchedulingServiceClient{cc: cc}
}

func invoke[Resp any](ctx context.Context, cc grpc.ClientConnInterface, method string, in any, opts []grpc.CallOption) (*Resp, error) {
	out := new(Resp)
	opts = append([]grpc.CallOption{grpc.CallContentSubtype(CodecName)}, opts...)
	if err := cc.Invoke(ctx, "/"+serviceName+"/"+method, in, out, opts...); err != nil {
		return nil, err
	}
	return out, nil
}

func (c *SchedulingServiceClient) RequestAppointment(ctx context.Context, in *RequestAppointmentRequest, opts ...grpc.CallOption) (*BookingResponse, error) {
	return invoke[BookingResponse](ctx, c.cc, "RequestAppointment", in, opts)
}

func (c *SchedulingServiceClient) ConfirmAppointment(ctx context.Context, in *BookingActionRequest, opts ...grpc.CallOption) (*BookingResponse, error) {
	return invoke[BookingResponse](ctx, c.cc, "ConfirmAppointment", in, opts)
}

func (c *SchedulingServiceClient) RejectAppointment(ctx context.Context, in *BookingActionRequest, opts ...grpc.CallOption) (*BookingResponse, error) {
	return invoke[BookingResponse](ctx, c.cc, "RejectAppointment", in, opts)
}

func (c *SchedulingServiceClient) CancelAppointment(ctx context.Context, in *CancelAppointmentRequest, opts ...grpc.CallOption) (*BookingResponse, error) {
	return invoke[BookingResponse](ctx, c.cc, "CancelAppointment", in, opts)
}

func (c *SchedulingServiceClient) MarkAttended(ctx context.Context, in *BookingActionRequest, opts ...grpc.CallOption) (*BookingResponse, error) {
	return invoke[BookingResponse](ctx, c.cc, "MarkAttended", in, opts)
}

func (c *SchedulingServiceClient) MarkNoShow(ctx context.Context, in *BookingActionRequest, opts ...grpc.CallOption) (*BookingResponse, error) {
	return invoke[BookingResponse](ctx, c.cc, "MarkNoShow", in, opts)
}

func (c *SchedulingServiceClient) AddProviderNote(ctx context.Context, in *AddProviderNoteRequest, opts ...grpc.CallOption) (*BookingResponse, error) {
	return invoke[BookingResponse](ctx, c.cc, "AddProviderNote", in, opts)
}

func (c *SchedulingServiceClient) GetBooking(ctx context.Context, in *GetBookingRequest, opts ...grpc.CallOption) (*BookingResponse, error) {
	return invoke[BookingResponse](ctx, c.cc, "GetBooking", in, opts)
}

func (c *SchedulingServiceClient) ListUpcoming(ctx context.Context, in *ListUpcomingRequest, opts ...grpc.CallOption) (*ListUpcomingResponse, error) {
	return invoke[ListUpcomingResponse](ctx, c.cc, "ListUpcoming", in, opts)
}

func (c *SchedulingServiceClient) AvailableSlots(ctx context.Context, in *AvailableSlotsRequest, opts ...grpc.CallOption) (*AvailableSlotsResponse, error) {
	return invoke[AvailableSlotsResponse](ctx, c.cc, "AvailableSlots", in, opts)
}
