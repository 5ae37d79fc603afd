// Package clobgrpc exposes one market's processor over grpc: the same
// PlaceOrder/Cancel/BookDepth operations internal/api serves over REST,
// plus a server-streaming trade feed for clients that want push updates
// instead of polling.
package clobgrpc

import (
	"context"
	"encoding/json"

	"github.com/ThreeDotsLabs/watermill/message"
	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"

	"github.com/abdoElHodaky/tradSys/internal/clob/block"
	"github.com/abdoElHodaky/tradSys/internal/clob/clobserr"
	"github.com/abdoElHodaky/tradSys/internal/events"
	"github.com/abdoElHodaky/tradSys/internal/processor"
	clobpb "github.com/abdoElHodaky/tradSys/proto/clob"
)

// ClobServer is the service interface internal/grpc/service.go
// dispatches incoming RPCs to.
type ClobServer interface {
	PlaceOrder(context.Context, *clobpb.PlaceOrderRequest) (*clobpb.PlaceOrderResponse, error)
	Cancel(context.Context, *clobpb.CancelRequest) (*clobpb.CancelResponse, error)
	BookDepth(context.Context, *clobpb.BookDepthRequest) (*clobpb.BookDepthResponse, error)
	StreamTrades(*clobpb.StreamTradesRequest, Clob_StreamTradesServer) error
}

// Clob_StreamTradesServer is the server-side handle for the
// StreamTrades RPC, matching the shape protoc-gen-go-grpc emits for a
// server-streaming method.
type Clob_StreamTradesServer interface {
	Send(*clobpb.TradeEvent) error
	grpc.ServerStream
}

type clobStreamTradesServer struct {
	grpc.ServerStream
}

func (x *clobStreamTradesServer) Send(m *clobpb.TradeEvent) error {
	return x.ServerStream.SendMsg(m)
}

// Service implements ClobServer against one processor.Processor and
// the subscriber side of the trade/cancel event bus.
type Service struct {
	proc       *processor.Processor
	subscriber message.Subscriber
}

// NewService builds a Service.
func NewService(proc *processor.Processor, subscriber message.Subscriber) *Service {
	return &Service{proc: proc, subscriber: subscriber}
}

func (s *Service) PlaceOrder(ctx context.Context, req *clobpb.PlaceOrderRequest) (*clobpb.PlaceOrderResponse, error) {
	result, correlationID, err := s.proc.PlaceOrder(ctx, processor.PlaceOrderRequest{
		ProtocolVersion: req.ProtocolVersion,
		TraderSeatIndex: req.TraderSeatIndex,
		NumBaseAtoms:    req.NumBaseAtoms,
		PriceMantissa:   req.PriceMantissa,
		PriceExponent:   int8(req.PriceExponent),
		IsBid:           req.IsBid,
		LastValidSlot:   req.LastValidSlot,
		OrderType:       uint8(req.OrderType),
		CurrentSlot:     req.CurrentSlot,
	})
	if err != nil {
		return nil, toStatus(correlationID, err)
	}
	return &clobpb.PlaceOrderResponse{
		CorrelationID:  correlationID,
		SequenceNumber: result.SequenceNumber,
		BaseTraded:     result.BaseTraded,
		QuoteTraded:    result.QuoteTraded,
		Resting:        result.RestingIndex != block.Nil,
	}, nil
}

func (s *Service) Cancel(ctx context.Context, req *clobpb.CancelRequest) (*clobpb.CancelResponse, error) {
	correlationID, err := s.proc.Cancel(ctx, processor.CancelRequest{
		ProtocolVersion: req.ProtocolVersion,
		TraderSeatIndex: req.TraderSeatIndex,
		OrderIndexHint:  req.OrderIndexHint,
	})
	if err != nil {
		return nil, toStatus(correlationID, err)
	}
	return &clobpb.CancelResponse{CorrelationID: correlationID}, nil
}

func (s *Service) BookDepth(ctx context.Context, _ *clobpb.BookDepthRequest) (*clobpb.BookDepthResponse, error) {
	bids, asks := s.proc.BookDepth()
	return &clobpb.BookDepthResponse{Bids: int32(bids), Asks: int32(asks)}, nil
}

// StreamTrades relays the same watermill topic internal/api/ws
// consumes, so a grpc client sees the identical trade feed a websocket
// client does without either transport touching the processor's mutex.
func (s *Service) StreamTrades(_ *clobpb.StreamTradesRequest, stream Clob_StreamTradesServer) error {
	ctx := stream.Context()
	messages, err := s.subscriber.Subscribe(ctx, events.TopicTrades)
	if err != nil {
		return status.Errorf(codes.Unavailable, "subscribe failed: %v", err)
	}
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case msg, ok := <-messages:
			if !ok {
				return nil
			}
			var placed events.OrderPlaced
			if err := json.Unmarshal(msg.Payload, &placed); err != nil {
				msg.Nack()
				continue
			}
			msg.Ack()
			if err := stream.Send(&clobpb.TradeEvent{
				Market:         placed.Market,
				Trader:         placed.Trader,
				SequenceNumber: placed.SequenceNumber,
				IsBid:          placed.IsBid,
				BaseTraded:     placed.BaseTraded,
				QuoteTraded:    placed.QuoteTraded,
				UnixNano:       placed.Timestamp.UnixNano(),
			}); err != nil {
				return err
			}
		}
	}
}

func toStatus(correlationID string, err error) error {
	code := codes.Internal
	if ce, ok := err.(*clobserr.Error); ok {
		switch ce.Code {
		case clobserr.ErrInsufficientFunds, clobserr.ErrWrongIndexHint:
			code = codes.PermissionDenied
		case clobserr.ErrInvalidMarketParameters:
			code = codes.InvalidArgument
		default:
			code = codes.FailedPrecondition
		}
	}
	return status.Errorf(code, "%s: %v", correlationID, err)
}

func _Clob_PlaceOrder_Handler(srv interface{}, ctx context.Context, dec func(interface{}) error, interceptor grpc.UnaryServerInterceptor) (interface{}, error) {
	in := new(clobpb.PlaceOrderRequest)
	if err := dec(in); err != nil {
		return nil, err
	}
	if interceptor == nil {
		return srv.(ClobServer).PlaceOrder(ctx, in)
	}
	info := &grpc.UnaryServerInfo{Server: srv, FullMethod: "/clob.Clob/PlaceOrder"}
	handler := func(ctx context.Context, req interface{}) (interface{}, error) {
		return srv.(ClobServer).PlaceOrder(ctx, req.(*clobpb.PlaceOrderRequest))
	}
	return interceptor(ctx, in, info, handler)
}

func _Clob_Cancel_Handler(srv interface{}, ctx context.Context, dec func(interface{}) error, interceptor grpc.UnaryServerInterceptor) (interface{}, error) {
	in := new(clobpb.CancelRequest)
	if err := dec(in); err != nil {
		return nil, err
	}
	if interceptor == nil {
		return srv.(ClobServer).Cancel(ctx, in)
	}
	info := &grpc.UnaryServerInfo{Server: srv, FullMethod: "/clob.Clob/Cancel"}
	handler := func(ctx context.Context, req interface{}) (interface{}, error) {
		return srv.(ClobServer).Cancel(ctx, req.(*clobpb.CancelRequest))
	}
	return interceptor(ctx, in, info, handler)
}

func _Clob_BookDepth_Handler(srv interface{}, ctx context.Context, dec func(interface{}) error, interceptor grpc.UnaryServerInterceptor) (interface{}, error) {
	in := new(clobpb.BookDepthRequest)
	if err := dec(in); err != nil {
		return nil, err
	}
	if interceptor == nil {
		return srv.(ClobServer).BookDepth(ctx, in)
	}
	info := &grpc.UnaryServerInfo{Server: srv, FullMethod: "/clob.Clob/BookDepth"}
	handler := func(ctx context.Context, req interface{}) (interface{}, error) {
		return srv.(ClobServer).BookDepth(ctx, req.(*clobpb.BookDepthRequest))
	}
	return interceptor(ctx, in, info, handler)
}

func _Clob_StreamTrades_Handler(srv interface{}, stream grpc.ServerStream) error {
	m := new(clobpb.StreamTradesRequest)
	if err := stream.RecvMsg(m); err != nil {
		return err
	}
	return srv.(ClobServer).StreamTrades(m, &clobStreamTradesServer{stream})
}

// ServiceDesc is the handwritten equivalent of what protoc-gen-go-grpc
// would emit from clob.proto.
var ServiceDesc = grpc.ServiceDesc{
	ServiceName: "clob.Clob",
	HandlerType: (*ClobServer)(nil),
	Methods: []grpc.MethodDesc{
		{MethodName: "PlaceOrder", Handler: _Clob_PlaceOrder_Handler},
		{MethodName: "Cancel", Handler: _Clob_Cancel_Handler},
		{MethodName: "BookDepth", Handler: _Clob_BookDepth_Handler},
	},
	Streams: []grpc.StreamDesc{
		{StreamName: "StreamTrades", Handler: _Clob_StreamTrades_Handler, ServerStreams: true},
	},
	Metadata: "clob.proto",
}
