package client

import (
	"context"
	"errors"
	"fmt"

	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
)

var (
	// ErrNotInPool is returned by GetFromPool when addr has no active
	// reference-counted connection.
	ErrNotInPool = errors.New("client: connection not in pool")
	// ErrTimeout is returned when an RPC exceeds the pool's failure
	// timeout or the caller's own context deadline.
	ErrTimeout = errors.New("client: RPC timed out")
	// ErrAuth names a registration rejected for a bad shared secret. No
	// function in this package returns it: RegisterDHT and RegisterPeer
	// report a rejection as ok=false with the server's message.
	ErrAuth = errors.New("client: registration rejected")
)

// normalizeErr maps a context deadline or a DeadlineExceeded gRPC status to
// ErrTimeout, so callers can test for it with errors.Is; every other error
// is wrapped with the target address.
func normalizeErr(addr string, err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return ErrTimeout
	}
	if s, ok := status.FromError(err); ok && s.Code() == codes.DeadlineExceeded {
		return ErrTimeout
	}
	return fmt.Errorf("client: rpc to %s failed: %w", addr, err)
}
