package transport

import (
	"context"

	"github.com/distlock/txagent/types"
	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
	"google.golang.org/protobuf/types/known/structpb"
)

// Handler is the inbound side of the transport: the callbacks a listening
// process (a lockserver.Server or an Agent's peer-facing endpoint) supplies
// to answer RPCs this package's Server receives. One Handler typically
// fronts one lockserver.Server plus zero or more co-located agents, or vice
// versa, depending on which role a given listener plays.
type Handler interface {
	Lock(ctx context.Context, object types.ObjectPath, agentID types.AgentID, mode types.Mode) error
	Surrender(ctx context.Context, object types.ObjectPath, agentID types.AgentID) error
	NotifySurrendered(ctx context.Context, to, from types.AgentID, lockID types.LockID) error
	RelayLockState(ctx context.Context, to types.AgentID, update types.LockStateUpdate) error
	Ping(ctx context.Context) error
}

// serviceName is the fully-qualified gRPC service name this package's
// hand-rolled ServiceDesc registers under, in lieu of a protoc-generated
// one.
const serviceName = "txagent.Transport"

// rpcServer adapts a Handler to the decode/call/encode shape each unary
// method handler below needs.
type rpcServer struct{ h Handler }

func (s rpcServer) lock(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error) {
	object, agentID, mode, err := decodeLockRequest(req)
	if err != nil {
		return nil, status.Error(codes.InvalidArgument, err.Error())
	}
	if err := s.h.Lock(ctx, object, agentID, mode); err != nil {
		return nil, status.Error(codes.Unavailable, err.Error())
	}
	return encodeAck()
}

func (s rpcServer) surrender(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error) {
	object, agentID, err := decodeSurrenderRequest(req)
	if err != nil {
		return nil, status.Error(codes.InvalidArgument, err.Error())
	}
	if err := s.h.Surrender(ctx, object, agentID); err != nil {
		return nil, status.Error(codes.FailedPrecondition, err.Error())
	}
	return encodeAck()
}

func (s rpcServer) notifySurrendered(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error) {
	to, from, lockID, err := decodeNotifySurrendered(req)
	if err != nil {
		return nil, status.Error(codes.InvalidArgument, err.Error())
	}
	if err := s.h.NotifySurrendered(ctx, to, from, lockID); err != nil {
		return nil, status.Error(codes.Internal, err.Error())
	}
	return encodeAck()
}

func (s rpcServer) relayLockState(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error) {
	update, err := decodeLockStateUpdate(req)
	if err != nil {
		return nil, status.Error(codes.InvalidArgument, err.Error())
	}
	// The wire payload carries only the update; the recipient is implicit
	// in which connection/stream delivered it, so relayLockState does not
	// need a `to` field beyond what routed the call here.
	if err := s.h.RelayLockState(ctx, "", update); err != nil {
		return nil, status.Error(codes.Internal, err.Error())
	}
	return encodeAck()
}

func (s rpcServer) ping(ctx context.Context, _ *structpb.Struct) (*structpb.Struct, error) {
	if err := s.h.Ping(ctx); err != nil {
		return nil, status.Error(codes.Unavailable, err.Error())
	}
	return encodeAck()
}

func unaryHandler(call func(rpcServer, context.Context, *structpb.Struct) (*structpb.Struct, error)) func(
	srv any, ctx context.Context, dec func(any) error, interceptor grpc.UnaryServerInterceptor, fullMethod string,
) (any, error) {
	return func(srv any, ctx context.Context, dec func(any) error, interceptor grpc.UnaryServerInterceptor, fullMethod string) (any, error) {
		in := new(structpb.Struct)
		if err := dec(in); err != nil {
			return nil, err
		}
		rs := rpcServer{h: srv.(Handler)}
		if interceptor == nil {
			return call(rs, ctx, in)
		}
		info := &grpc.UnaryServerInfo{Server: srv, FullMethod: fullMethod}
		wrapped := func(ctx context.Context, req any) (any, error) {
			return call(rs, ctx, req.(*structpb.Struct))
		}
		return interceptor(ctx, in, info, wrapped)
	}
}

// serviceDesc is the hand-rolled stand-in for a protoc-generated
// grpc.ServiceDesc: every method carries a *structpb.Struct request and
// response, decoded/encoded by codec.go.
var serviceDesc = grpc.ServiceDesc{
	ServiceName: serviceName,
	HandlerType: (*Handler)(nil),
	Methods: []grpc.MethodDesc{
		{MethodName: "Lock", Handler: wrapMethod("Lock", rpcServer.lock)},
		{MethodName: "Surrender", Handler: wrapMethod("Surrender", rpcServer.surrender)},
		{MethodName: "NotifySurrendered", Handler: wrapMethod("NotifySurrendered", rpcServer.notifySurrendered)},
		{MethodName: "RelayLockState", Handler: wrapMethod("RelayLockState", rpcServer.relayLockState)},
		{MethodName: "Ping", Handler: wrapMethod("Ping", rpcServer.ping)},
	},
	Streams:  []grpc.StreamDesc{},
	Metadata: "txagent/transport.proto",
}

func wrapMethod(name string, call func(rpcServer, context.Context, *structpb.Struct) (*structpb.Struct, error)) func(any, context.Context, func(any) error, grpc.UnaryServerInterceptor) (any, error) {
	full := "/" + serviceName + "/" + name
	h := unaryHandler(call)
	return func(srv any, ctx context.Context, dec func(any) error, interceptor grpc.UnaryServerInterceptor) (any, error) {
		return h(srv, ctx, dec, interceptor, full)
	}
}

// RegisterHandler registers h to answer every RPC this package defines on
// grpcServer.
func RegisterHandler(grpcServer *grpc.Server, h Handler) {
	grpcServer.RegisterService(&serviceDesc, h)
}
