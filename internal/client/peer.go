package client

import (
	"context"

	"google.golang.org/grpc"

	"distorage/internal/rpcproto"
)

// RegisterPeer performs the peer-control listener's register handshake:
// declares selfAddr and the shared cluster secret, per spec §4.4.
func RegisterPeer(ctx context.Context, conn *grpc.ClientConn, selfAddr, secret string) (bool, string, error) {
	resp, err := rpcproto.CallRegisterPeer(ctx, conn, &rpcproto.RegisterPeerRequest{IP: selfAddr, Secret: secret})
	if err != nil {
		return false, "", normalizeErr(conn.Target(), err)
	}
	return resp.Ok, resp.Msg, nil
}

// GetKnownServers returns the remote peer's current known-peer set.
func GetKnownServers(ctx context.Context, conn *grpc.ClientConn) ([]string, error) {
	resp, err := rpcproto.CallGetKnownServers(ctx, conn)
	if err != nil {
		return nil, normalizeErr(conn.Target(), err)
	}
	return resp.Peers, nil
}
