package grpc

import (
	"context"

	grpcgo "google.golang.org/grpc"
)

const ServiceName = "slotkeeper.v1.BookingService"

type BookingServiceServer interface {
	ListAvailableSlots(ctx context.Context, req *ListAvailableSlotsRequest) (*ListAvailableSlotsResponse, error)
	CreateBooking(ctx context.Context, req *CreateBookingRequest) (*CreateBookingResponse, error)
	ConfirmBooking(ctx context.Context, req *ConfirmBookingRequest) (*ConfirmBookingResponse, error)
	CancelBooking(ctx context.Context, req *CancelBookingRequest) (*CancelBookingResponse, error)
	GetBooking(ctx context.Context, req *GetBookingRequest) (*GetBookingResponse, error)
	ListAppointmentTypes(ctx context.Context, req *ListAppointmentTypesRequest) (*ListAppointmentTypesResponse, error)
}

func RegisterBookingServiceServer(s grpcgo.ServiceRegistrar, srv BookingServiceServer) {
	s.RegisterService(&bookingServiceDesc, srv)
}

var bookingServiceDesc = grpcgo.ServiceDesc{
	ServiceName: ServiceName,
	HandlerType: (*BookingServiceServer)(nil),
	Methods: []grpcgo.MethodDesc{
		{MethodName: "ListAvailableSlots", Handler: unaryHandler("ListAvailableSlots", BookingServiceServer.ListAvailableSlots)},
		{MethodName: "CreateBooking", Handler: unaryHandler("CreateBooking", BookingServiceServer.CreateBooking)},
		{MethodName: "ConfirmBooking", Handler: unaryHandler("ConfirmBooking", BookingServiceServer.ConfirmBooking)},
		{MethodName: "CancelBooking", Handler: unaryHandler("CancelBooking", BookingServiceServer.CancelBooking)},
		{MethodName: "GetBooking", Handler: unaryHandler("GetBooking", BookingServiceServer.GetBooking)},
		{MethodName: "ListAppointmentTypes", Handler: unaryHandler("ListAppointmentTypes", BookingServiceServer.ListAppointmentTypes)},
	},
	Streams:  []grpcgo.StreamDesc{},
	Metadata: "slotkeeper/v1/booking",
}

func unaryHandler[Req, Resp any](method string, call func(BookingServiceServer, context.Context, *Req) (*Resp, error)) func(srv any, ctx context.Context, dec func(any) error, interceptor grpcgo.UnaryServerInterceptor) (any, error) {
	fullMethod := "/" + ServiceName + "/" + method
	return func(srv any, ctx context.Context, dec func(any) error, interceptor grpcgo.UnaryServerInterceptor) (any, error) {
		in := new(Req)
		if err := dec(in); err != nil {
			return nil, err
		}
		if interceptor == nil {
			return call(srv.(BookingServiceServer), ctx, in)
		}
		info := &grpcgo.UnaryServerInfo{Server: srv, FullMethod: fullMethod}
		handler := func(ctx context.Context, req any) (any, error) {
			return call(srv.(BookingServiceServer), ctx, req.(*Req))
		}
		return interceptor(ctx, in, info, handler)
	}
}

// BookingServiceClient calls BookingService with the JSON codec.
type BookingServiceClient struct {
	cc grpcgo.ClientConnInterface
}

func NewBookingServiceClient(cc grpcgo.ClientConnInterface) *BookingServiceClient {
	return &BookingServiceClient{cc: cc}
}

func invoke[Resp any](ctx context.Context, cc grpcgo.ClientConnInterface, method string, in any, opts []grpcgo.CallOption) (*Resp, error) {
	out := new(Resp)
	opts = append([]grpcgo.CallOption{grpcgo.CallContentSubtype(CodecName)}, opts...)
	if err := cc.Invoke(ctx, "/"+ServiceName+"/"+method, in, out, opts...); err != nil {
		return nil, err
	}
	return out, nil
}

func (c *BookingServiceClient) ListAvailableSlots(ctx context.Context, in *ListAvailableSlotsRequest, opts ...grpcgo.CallOption) (*ListAvailableSlotsResponse, error) {
	return invoke[ListAvailableSlotsResponse](ctx, c.cc, "ListAvailableSlots", in, opts)
}

func (c *BookingServiceClient) CreateBooking(ctx context.Context, in *CreateBookingRequest, opts ...grpcgo.CallOption) (*CreateBookingResponse, error) {
	return invoke[CreateBookingResponse](ctx, c.cc, "CreateBooking", in, opts)
}

func (c *BookingServiceClient) ConfirmBooking(ctx context.Context, in *ConfirmBookingRequest, opts ...grpcgo.CallOption) (*ConfirmBookingResponse, error) {
	return invoke[ConfirmBookingResponse](ctx, c.cc, "ConfirmBooking", in, opts)
}

func (c *BookingServiceClient) CancelBooking(ctx context.Context, in *CancelBookingRequest, opts ...grpcgo.CallOption) (*CancelBookingResponse, error) {
	return invoke[CancelBookingResponse](ctx, c.cc, "CancelBooking", in, opts)
}

func (c *BookingServiceClient) GetBooking(ctx context.Context, in *GetBookingRequest, opts ...grpcgo.CallOption) (*GetBookingResponse, error) {
	return invoke[GetBookingResponse](ctx, c.cc, "GetBooking", in, opts)
}

func (c *BookingServiceClient) ListAppointmentTypes(ctx context.Context, in *ListAppointmentTypesRequest, opts ...grpcgo.CallOption) (*ListAppointmentTypesResponse, error) {
	return invoke[ListAppointmentTypesResponse](ctx, c.cc, "ListAppointmentTypes", in, opts)
}
