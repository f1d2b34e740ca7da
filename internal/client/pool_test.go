package client

import (
	"net"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"google.golang.org/grpc"

	"distorage/internal/rpcproto"
)

func startTestServer(t *testing.T) string {
	t.Helper()
	lis, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	srv := grpc.NewServer(rpcproto.ServerOption())
	t.Cleanup(srv.Stop)
	go func() { _ = srv.Serve(lis) }()
	return lis.Addr().String()
}

func TestPoolAddRefReleaseLifecycle(t *testing.T) {
	addr := startTestServer(t)
	p := NewPool()

	require.NoError(t, p.AddRef(addr))
	require.NoError(t, p.AddRef(addr))

	conn, err := p.GetFromPool(addr)
	require.NoError(t, err)
	assert.NotNil(t, conn)

	require.NoError(t, p.Release(addr))
	conn2, err := p.GetFromPool(addr)
	require.NoError(t, err)
	assert.Same(t, conn, conn2)

	require.NoError(t, p.Release(addr))
	_, err = p.GetFromPool(addr)
	assert.ErrorIs(t, err, ErrNotInPool)
}

func TestPoolDialEphemeralNotTracked(t *testing.T) {
	addr := startTestServer(t)
	p := NewPool()

	conn, err := p.DialEphemeral(addr)
	require.NoError(t, err)
	defer conn.Close()

	_, err = p.GetFromPool(addr)
	assert.ErrorIs(t, err, ErrNotInPool)
}
