// Package server hosts the three gRPC listeners spec §6 requires — one
// each for peer-control, DHT, and client traffic — every one built with the
// shared rpcproto JSON codec and, when telemetry is enabled, chained
// otelgrpc + lookup-tracing interceptors.
package server

import (
	"fmt"
	"net"

	"go.opentelemetry.io/contrib/instrumentation/google.golang.org/grpc/otelgrpc"
	"google.golang.org/grpc"

	"distorage/internal/logger"
	"distorage/internal/rpcproto"
	"distorage/internal/telemetry/lookuptrace"
)

// Server wraps one gRPC listener hosting a single rpcproto.ServiceDesc.
type Server struct {
	grpcServer *grpc.Server
	listener   net.Listener
	lgr        logger.Logger
	extraOpts  []grpc.ServerOption
}

// Option configures a Server.
type Option func(*Server)

// WithLogger injects a custom logger.
func WithLogger(l logger.Logger) Option {
	return func(s *Server) {
		if l != nil {
			s.lgr = l
		}
	}
}

// WithTracing chains the otelgrpc and lookup-tracing unary interceptors
// onto the server, mirroring the teacher's conditional
// grpc.ChainUnaryInterceptor wiring in cmd/node/main.go.
func WithTracing(enabled bool) Option {
	return func(s *Server) {
		if !enabled {
			return
		}
		s.extraOpts = append(s.extraOpts,
			grpc.ChainUnaryInterceptor(
				otelgrpc.UnaryServerInterceptor(),
				lookuptrace.ServerInterceptor(),
			),
		)
	}
}

// New creates a Server bound to lis, hosting desc implemented by impl. It
// always registers the rpcproto JSON codec; WithTracing adds the otelgrpc
// and lookup-tracing interceptor chain when telemetry is enabled. One
// Server is built per listener (peer-control, DHT, client) by the caller.
func New(lis net.Listener, desc *grpc.ServiceDesc, impl any, opts ...Option) *Server {
	s := &Server{listener: lis, lgr: &logger.NopLogger{}}
	for _, o := range opts {
		o(s)
	}
	grpcOpts := append([]grpc.ServerOption{rpcproto.ServerOption()}, s.extraOpts...)
	s.grpcServer = grpc.NewServer(grpcOpts...)
	s.grpcServer.RegisterService(desc, impl)
	return s
}

// Start runs the gRPC server and blocks until it stops.
func (s *Server) Start() error {
	if err := s.grpcServer.Serve(s.listener); err != nil {
		return fmt.Errorf("gRPC server stopped: %w", err)
	}
	return nil
}

// Stop immediately stops the server and closes all active connections.
func (s *Server) Stop() { s.grpcServer.Stop() }

// GracefulStop waits for in-flight RPCs to complete before stopping.
func (s *Server) GracefulStop() { s.grpcServer.GracefulStop() }

// Addr returns the listener's bound address.
func (s *Server) Addr() net.Addr { return s.listener.Addr() }
