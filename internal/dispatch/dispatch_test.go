package dispatch

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"

	"distorage/internal/chordring"
	"distorage/internal/client"
	"distorage/internal/domain"
	"distorage/internal/peer"
	"distorage/internal/rpcproto"
)

func newTestDispatch(t *testing.T) *Dispatch {
	t.Helper()
	sp, err := domain.NewSpace(8)
	require.NoError(t, err)
	addr := "self"
	self := &domain.Node{ID: sp.NewIdFromString(addr), Addr: addr}
	pool := client.NewPool()
	ringClients := chordring.New(self, domain.RingClients, sp, "secret", t.TempDir(), pool)
	ringData := chordring.New(self, domain.RingData, sp, "secret", t.TempDir(), pool)
	mgr := peer.New(addr, "secret", pool, ringClients, ringData)
	return New(mgr, nil)
}

func TestRegisterThenLoginRoundTrip(t *testing.T) {
	ctx := context.Background()
	d := newTestDispatch(t)

	resp, err := d.Register(ctx, &rpcproto.RegisterClientRequest{Username: "alice", Password: "hunter2"})
	require.NoError(t, err)
	require.True(t, resp.Ok)

	login, err := d.Login(ctx, &rpcproto.LoginRequest{Username: "alice", Password: "hunter2"})
	require.NoError(t, err)
	require.True(t, login.Ok)

	bad, err := d.Login(ctx, &rpcproto.LoginRequest{Username: "alice", Password: "wrong"})
	require.NoError(t, err)
	require.False(t, bad.Ok)
}

func TestRegisterRejectsDuplicateUsername(t *testing.T) {
	ctx := context.Background()
	d := newTestDispatch(t)

	_, err := d.Register(ctx, &rpcproto.RegisterClientRequest{Username: "alice", Password: "a"})
	require.NoError(t, err)

	resp, err := d.Register(ctx, &rpcproto.RegisterClientRequest{Username: "alice", Password: "b"})
	require.NoError(t, err)
	require.False(t, resp.Ok)
}

func TestUploadDownloadListDeleteRoundTrip(t *testing.T) {
	ctx := context.Background()
	d := newTestDispatch(t)

	_, err := d.Register(ctx, &rpcproto.RegisterClientRequest{Username: "alice", Password: "a"})
	require.NoError(t, err)

	up, err := d.Upload(ctx, &rpcproto.UploadRequest{Username: "alice", SysPath: "notes.txt", Bytes: []byte("hello")})
	require.NoError(t, err)
	require.True(t, up.Ok)

	list, err := d.ListFiles(ctx, &rpcproto.ListFilesRequest{Username: "alice"})
	require.NoError(t, err)
	require.True(t, list.Ok)
	require.Equal(t, []string{"notes.txt"}, list.Files)

	down, err := d.Download(ctx, &rpcproto.DownloadRequest{Username: "alice", SysPath: "notes.txt"})
	require.NoError(t, err)
	require.True(t, down.Ok)
	require.Equal(t, []byte("hello"), down.Bytes)

	del, err := d.Delete(ctx, &rpcproto.DeleteFileRequest{Username: "alice", SysPath: "notes.txt"})
	require.NoError(t, err)
	require.True(t, del.Ok)

	list2, err := d.ListFiles(ctx, &rpcproto.ListFilesRequest{Username: "alice"})
	require.NoError(t, err)
	require.Empty(t, list2.Files)

	down2, err := d.Download(ctx, &rpcproto.DownloadRequest{Username: "alice", SysPath: "notes.txt"})
	require.NoError(t, err)
	require.False(t, down2.Ok)
}

func TestDownloadRejectsNonMemberFile(t *testing.T) {
	ctx := context.Background()
	d := newTestDispatch(t)

	_, err := d.Register(ctx, &rpcproto.RegisterClientRequest{Username: "alice", Password: "a"})
	require.NoError(t, err)

	down, err := d.Download(ctx, &rpcproto.DownloadRequest{Username: "alice", SysPath: "ghost.txt"})
	require.NoError(t, err)
	require.False(t, down.Ok)
}

func TestAvailableServersIncludesSelf(t *testing.T) {
	d := newTestDispatch(t)
	resp, err := d.AvailableServers(context.Background(), &rpcproto.Empty{})
	require.NoError(t, err)
	require.Contains(t, resp.Servers, "self")
}
