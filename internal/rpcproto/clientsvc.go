package rpcproto

import (
	"context"

	"google.golang.org/grpc"
)

// ClientServer is implemented by internal/dispatch and registered on the
// client listener (spec §6 "Client RPC surface").
type ClientServer interface {
	Ping(ctx context.Context, req *Empty) (*Response, error)
	AvailableServers(ctx context.Context, req *Empty) (*AvailableServersResponse, error)
	Register(ctx context.Context, req *RegisterClientRequest) (*Response, error)
	Login(ctx context.Context, req *LoginRequest) (*Response, error)
	Upload(ctx context.Context, req *UploadRequest) (*Response, error)
	Download(ctx context.Context, req *DownloadRequest) (*DownloadResponse, error)
	Delete(ctx context.Context, req *DeleteFileRequest) (*Response, error)
	ListFiles(ctx context.Context, req *ListFilesRequest) (*ListFilesResponse, error)
}

const ClientServiceName = "distorage.Client"

type clientHandler struct {
	method string
	newReq func() any
	call   func(srv any, ctx context.Context, req any) (any, error)
}

func (h clientHandler) handle(srv any, ctx context.Context, dec func(any) error, interceptor grpc.UnaryServerInterceptor) (any, error) {
	in := h.newReq()
	if err := dec(in); err != nil {
		return nil, err
	}
	if interceptor == nil {
		return h.call(srv, ctx, in)
	}
	info := &grpc.UnaryServerInfo{Server: srv, FullMethod: "/" + ClientServiceName + "/" + h.method}
	return interceptor(ctx, in, info, func(ctx context.Context, req any) (any, error) {
		return h.call(srv, ctx, req)
	})
}

var clientHandlers = []clientHandler{
	{"Ping", func() any { return new(Empty) }, func(srv any, ctx context.Context, req any) (any, error) {
		return srv.(ClientServer).Ping(ctx, req.(*Empty))
	}},
	{"AvailableServers", func() any { return new(Empty) }, func(srv any, ctx context.Context, req any) (any, error) {
		return srv.(ClientServer).AvailableServers(ctx, req.(*Empty))
	}},
	{"Register", func() any { return new(RegisterClientRequest) }, func(srv any, ctx context.Context, req any) (any, error) {
		return srv.(ClientServer).Register(ctx, req.(*RegisterClientRequest))
	}},
	{"Login", func() any { return new(LoginRequest) }, func(srv any, ctx context.Context, req any) (any, error) {
		return srv.(ClientServer).Login(ctx, req.(*LoginRequest))
	}},
	{"Upload", func() any { return new(UploadRequest) }, func(srv any, ctx context.Context, req any) (any, error) {
		return srv.(ClientServer).Upload(ctx, req.(*UploadRequest))
	}},
	{"Download", func() any { return new(DownloadRequest) }, func(srv any, ctx context.Context, req any) (any, error) {
		return srv.(ClientServer).Download(ctx, req.(*DownloadRequest))
	}},
	{"Delete", func() any { return new(DeleteFileRequest) }, func(srv any, ctx context.Context, req any) (any, error) {
		return srv.(ClientServer).Delete(ctx, req.(*DeleteFileRequest))
	}},
	{"ListFiles", func() any { return new(ListFilesRequest) }, func(srv any, ctx context.Context, req any) (any, error) {
		return srv.(ClientServer).ListFiles(ctx, req.(*ListFilesRequest))
	}},
}

// ClientServiceDesc is the hand-built equivalent of what protoc-gen-go-grpc
// would generate from the client-facing .proto service.
var ClientServiceDesc = grpc.ServiceDesc{
	ServiceName: ClientServiceName,
	HandlerType: (*ClientServer)(nil),
	Methods:     buildClientMethodDescs(),
	Streams:     []grpc.StreamDesc{},
	Metadata:    "distorage/client.proto",
}

func buildClientMethodDescs() []grpc.MethodDesc {
	out := make([]grpc.MethodDesc, 0, len(clientHandlers))
	for _, h := range clientHandlers {
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

func CallPing(ctx context.Context, cc grpc.ClientConnInterface, opts ...grpc.CallOption) (*Response, error) {
	out := new(Response)
	return out, cc.Invoke(ctx, "/"+ClientServiceName+"/Ping", &Empty{}, out, opts...)
}

func CallAvailableServers(ctx context.Context, cc grpc.ClientConnInterface, opts ...grpc.CallOption) (*AvailableServersResponse, error) {
	out := new(AvailableServersResponse)
	return out, cc.Invoke(ctx, "/"+ClientServiceName+"/AvailableServers", &Empty{}, out, opts...)
}

func CallClientRegister(ctx context.Context, cc grpc.ClientConnInterface, req *RegisterClientRequest, opts ...grpc.CallOption) (*Response, error) {
	out := new(Response)
	return out, cc.Invoke(ctx, "/"+ClientServiceName+"/Register", req, out, opts...)
}

func CallClientLogin(ctx context.Context, cc grpc.ClientConnInterface, req *LoginRequest, opts ...grpc.CallOption) (*Response, error) {
	out := new(Response)
	return out, cc.Invoke(ctx, "/"+ClientServiceName+"/Login", req, out, opts...)
}

func CallUpload(ctx context.Context, cc grpc.ClientConnInterface, req *UploadRequest, opts ...grpc.CallOption) (*Response, error) {
	out := new(Response)
	return out, cc.Invoke(ctx, "/"+ClientServiceName+"/Upload", req, out, opts...)
}

func CallDownload(ctx context.Context, cc grpc.ClientConnInterface, req *DownloadRequest, opts ...grpc.CallOption) (*DownloadResponse, error) {
	out := new(DownloadResponse)
	return out, cc.Invoke(ctx, "/"+ClientServiceName+"/Download", req, out, opts...)
}

func CallDeleteFile(ctx context.Context, cc grpc.ClientConnInterface, req *DeleteFileRequest, opts ...grpc.CallOption) (*Response, error) {
	out := new(Response)
	return out, cc.Invoke(ctx, "/"+ClientServiceName+"/Delete", req, out, opts...)
}

func CallListFiles(ctx context.Context, cc grpc.ClientConnInterface, req *ListFilesRequest, opts ...grpc.CallOption) (*ListFilesResponse, error) {
	out := new(ListFilesResponse)
	return out, cc.Invoke(ctx, "/"+ClientServiceName+"/ListFiles", req, out, opts...)
}
