package rpcproto

import (
	"context"

	"google.golang.org/grpc"
)

// DHTServer is implemented by internal/chordring's RPC-facing adapter and
// registered once per ring listener socket (both rings share the DHT port,
// tagged by RingKind inside RegisterDHTRequest — see spec §2).
type DHTServer interface {
	RegisterDHT(ctx context.Context, req *RegisterDHTRequest) (*RegisterPeerResponse, error)
	Join(ctx context.Context, req *JoinRequest) (*JoinResponse, error)
	FindSuccessor(ctx context.Context, req *FindSuccessorRequest) (*FindSuccessorResponse, error)
	GetPredecessor(ctx context.Context, req *GetPredecessorRequest) (*GetPredecessorResponse, error)
	Notify(ctx context.Context, req *NotifyRequest) (*Empty, error)
	Find(ctx context.Context, req *FindRequest) (*FindResponse, error)
	Store(ctx context.Context, req *StoreRequest) (*Response, error)
	StoreReplica(ctx context.Context, req *StoreReplicaRequest) (*Response, error)
	Remove(ctx context.Context, req *RemoveRequest) (*Response, error)
	RemoveReplica(ctx context.Context, req *RemoveRequest) (*Response, error)
}

const DHTServiceName = "distorage.DHT"

type dhtHandler struct {
	method string
	newReq func() any
	call   func(srv any, ctx context.Context, req any) (any, error)
}

func (h dhtHandler) handle(srv any, ctx context.Context, dec func(any) error, interceptor grpc.UnaryServerInterceptor) (any, error) {
	in := h.newReq()
	if err := dec(in); err != nil {
		return nil, err
	}
	if interceptor == nil {
		return h.call(srv, ctx, in)
	}
	info := &grpc.UnaryServerInfo{Server: srv, FullMethod: "/" + DHTServiceName + "/" + h.method}
	return interceptor(ctx, in, info, func(ctx context.Context, req any) (any, error) {
		return h.call(srv, ctx, req)
	})
}

var dhtHandlers = []dhtHandler{
	{"RegisterDHT", func() any { return new(RegisterDHTRequest) }, func(srv any, ctx context.Context, req any) (any, error) {
		return srv.(DHTServer).RegisterDHT(ctx, req.(*RegisterDHTRequest))
	}},
	{"Join", func() any { return new(JoinRequest) }, func(srv any, ctx context.Context, req any) (any, error) {
		return srv.(DHTServer).Join(ctx, req.(*JoinRequest))
	}},
	{"FindSuccessor", func() any { return new(FindSuccessorRequest) }, func(srv any, ctx context.Context, req any) (any, error) {
		return srv.(DHTServer).FindSuccessor(ctx, req.(*FindSuccessorRequest))
	}},
	{"GetPredecessor", func() any { return new(GetPredecessorRequest) }, func(srv any, ctx context.Context, req any) (any, error) {
		return srv.(DHTServer).GetPredecessor(ctx, req.(*GetPredecessorRequest))
	}},
	{"Notify", func() any { return new(NotifyRequest) }, func(srv any, ctx context.Context, req any) (any, error) {
		return srv.(DHTServer).Notify(ctx, req.(*NotifyRequest))
	}},
	{"Find", func() any { return new(FindRequest) }, func(srv any, ctx context.Context, req any) (any, error) {
		return srv.(DHTServer).Find(ctx, req.(*FindRequest))
	}},
	{"Store", func() any { return new(StoreRequest) }, func(srv any, ctx context.Context, req any) (any, error) {
		return srv.(DHTServer).Store(ctx, req.(*StoreRequest))
	}},
	{"StoreReplica", func() any { return new(StoreReplicaRequest) }, func(srv any, ctx context.Context, req any) (any, error) {
		return srv.(DHTServer).StoreReplica(ctx, req.(*StoreReplicaRequest))
	}},
	{"Remove", func() any { return new(RemoveRequest) }, func(srv any, ctx context.Context, req any) (any, error) {
		return srv.(DHTServer).Remove(ctx, req.(*RemoveRequest))
	}},
	{"RemoveReplica", func() any { return new(RemoveRequest) }, func(srv any, ctx context.Context, req any) (any, error) {
		return srv.(DHTServer).RemoveReplica(ctx, req.(*RemoveRequest))
	}},
}

// DHTServiceDesc is the hand-built equivalent of what protoc-gen-go-grpc
// would generate from the DHT .proto service (spec §6 "DHT RPC surface").
var DHTServiceDesc = grpc.ServiceDesc{
	ServiceName: DHTServiceName,
	HandlerType: (*DHTServer)(nil),
	Methods:     buildMethodDescs(),
	Streams:     []grpc.StreamDesc{},
	Metadata:    "distorage/dht.proto",
}

func buildMethodDescs() []grpc.MethodDesc {
	out := make([]grpc.MethodDesc, 0, len(dhtHandlers))
	for _, h := range dhtHandlers {
		h := h
		out = append(out, grpc.MethodDesc{
			MethodName: h.method,
			Handler: func(srv any, ctx context.Context, dec func(any) error, interceptor grpc.UnaryServerInterceptor) (any, error) {
				return h.handle(srv, ctx, dec, interceptor)
			},
		})
	}
	return out
}

// --- client-side thin wrappers ---

func CallRegisterDHT(ctx context.Context, cc grpc.ClientConnInterface, req *RegisterDHTRequest, opts ...grpc.CallOption) (*RegisterPeerResponse, error) {
	out := new(RegisterPeerResponse)
	return out, cc.Invoke(ctx, "/"+DHTServiceName+"/RegisterDHT", req, out, opts...)
}

func CallJoin(ctx context.Context, cc grpc.ClientConnInterface, req *JoinRequest, opts ...grpc.CallOption) (*JoinResponse, error) {
	out := new(JoinResponse)
	return out, cc.Invoke(ctx, "/"+DHTServiceName+"/Join", req, out, opts...)
}

func CallFindSuccessor(ctx context.Context, cc grpc.ClientConnInterface, req *FindSuccessorRequest, opts ...grpc.CallOption) (*FindSuccessorResponse, error) {
	out := new(FindSuccessorResponse)
	return out, cc.Invoke(ctx, "/"+DHTServiceName+"/FindSuccessor", req, out, opts...)
}

func CallGetPredecessor(ctx context.Context, cc grpc.ClientConnInterface, req *GetPredecessorRequest, opts ...grpc.CallOption) (*GetPredecessorResponse, error) {
	out := new(GetPredecessorResponse)
	return out, cc.Invoke(ctx, "/"+DHTServiceName+"/GetPredecessor", req, out, opts...)
}

func CallNotify(ctx context.Context, cc grpc.ClientConnInterface, req *NotifyRequest, opts ...grpc.CallOption) error {
	return cc.Invoke(ctx, "/"+DHTServiceName+"/Notify", req, new(Empty), opts...)
}

func CallFind(ctx context.Context, cc grpc.ClientConnInterface, req *FindRequest, opts ...grpc.CallOption) (*FindResponse, error) {
	out := new(FindResponse)
	return out, cc.Invoke(ctx, "/"+DHTServiceName+"/Find", req, out, opts...)
}

func CallStore(ctx context.Context, cc grpc.ClientConnInterface, req *StoreRequest, opts ...grpc.CallOption) (*Response, error) {
	out := new(Response)
	return out, cc.Invoke(ctx, "/"+DHTServiceName+"/Store", req, out, opts...)
}

func CallStoreReplica(ctx context.Context, cc grpc.ClientConnInterface, req *StoreReplicaRequest, opts ...grpc.CallOption) (*Response, error) {
	out := new(Response)
	return out, cc.Invoke(ctx, "/"+DHTServiceName+"/StoreReplica", req, out, opts...)
}

func CallRemove(ctx context.Context, cc grpc.ClientConnInterface, req *RemoveRequest, opts ...grpc.CallOption) (*Response, error) {
	out := new(Response)
	return out, cc.Invoke(ctx, "/"+DHTServiceName+"/Remove", req, out, opts...)
}

func CallRemoveReplica(ctx context.Context, cc grpc.ClientConnInterface, req *RemoveRequest, opts ...grpc.CallOption) (*Response, error) {
	out := new(Response)
	return out, cc.Invoke(ctx, "/"+DHTServiceName+"/RemoveReplica", req, out, opts...)
}
