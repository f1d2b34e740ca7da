package rpcproto

import (
	"context"

	"google.golang.org/grpc"
)

// PeerControlServer is implemented by internal/peer and registered on the
// peer-control listener (internal/server).
type PeerControlServer interface {
	Register(ctx context.Context, req *RegisterPeerRequest) (*RegisterPeerResponse, error)
	GetKnownServers(ctx context.Context, req *Empty) (*GetKnownServersResponse, error)
}

const PeerControlServiceName = "distorage.PeerControl"

func _PeerControl_Register_Handler(srv any, ctx context.Context, dec func(any) error, interceptor grpc.UnaryServerInterceptor) (any, error) {
	in := new(RegisterPeerRequest)
	if err := dec(in); err != nil {
		return nil, err
	}
	if interceptor == nil {
		return srv.(PeerControlServer).Register(ctx, in)
	}
	info := &grpc.UnaryServerInfo{Server: srv, FullMethod: "/" + PeerControlServiceName + "/Register"}
	handler := func(ctx context.Context, req any) (any, error) {
		return srv.(PeerControlServer).Register(ctx, req.(*RegisterPeerRequest))
	}
	return interceptor(ctx, in, info, handler)
}

func _PeerControl_GetKnownServers_Handler(srv any, ctx context.Context, dec func(any) error, interceptor grpc.UnaryServerInterceptor) (any, error) {
	in := new(Empty)
	if err := dec(in); err != nil {
		return nil, err
	}
	if interceptor == nil {
		return srv.(PeerControlServer).GetKnownServers(ctx, in)
	}
	info := &grpc.UnaryServerInfo{Server: srv, FullMethod: "/" + PeerControlServiceName + "/GetKnownServers"}
	handler := func(ctx context.Context, req any) (any, error) {
		return srv.(PeerControlServer).GetKnownServers(ctx, req.(*Empty))
	}
	return interceptor(ctx, in, info, handler)
}

// PeerControlServiceDesc is the hand-built equivalent of what
// protoc-gen-go-grpc would generate from a PeerControl .proto service.
var PeerControlServiceDesc = grpc.ServiceDesc{
	ServiceName: PeerControlServiceName,
	HandlerType: (*PeerControlServer)(nil),
	Methods: []grpc.MethodDesc{
		{MethodName: "Register", Handler: _PeerControl_Register_Handler},
		{MethodName: "GetKnownServers", Handler: _PeerControl_GetKnownServers_Handler},
	},
	Streams:  []grpc.StreamDesc{},
	Metadata: "distorage/peercontrol.proto",
}

// --- client-side thin wrappers ---

func CallRegisterPeer(ctx context.Context, cc grpc.ClientConnInterface, req *RegisterPeerRequest, opts ...grpc.CallOption) (*RegisterPeerResponse, error) {
	out := new(RegisterPeerResponse)
	if err := cc.Invoke(ctx, "/"+PeerControlServiceName+"/Register", req, out, opts...); err != nil {
		return nil, err
	}
	return out, nil
}

func CallGetKnownServers(ctx context.Context, cc grpc.ClientConnInterface, opts ...grpc.CallOption) (*GetKnownServersResponse, error) {
	out := new(GetKnownServersResponse)
	if err := cc.Invoke(ctx, "/"+PeerControlServiceName+"/GetKnownServers", &Empty{}, out, opts...); err != nil {
		return nil, err
	}
	return out, nil
}
