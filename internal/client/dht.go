package client

import (
	"context"

	"google.golang.org/grpc"

	"distorage/internal/domain"
	"distorage/internal/rpcproto"
)

// RegisterDHT performs the DHT listener's register handshake: the acquiring
// side declares which ring it means to talk about and the shared cluster
// secret. Mirrors spec §6's DHT "register" RPC.
func RegisterDHT(ctx context.Context, conn *grpc.ClientConn, ring domain.RingKind, secret string) (bool, string, error) {
	resp, err := rpcproto.CallRegisterDHT(ctx, conn, &rpcproto.RegisterDHTRequest{RingKind: ring, Secret: secret})
	if err != nil {
		return false, "", normalizeErr(conn.Target(), err)
	}
	return resp.Ok, resp.Msg, nil
}

// Join asks the remote node (acting as bootstrap) for the successor of
// selfAddr on the given ring, per spec §4.1 "join".
func Join(ctx context.Context, conn *grpc.ClientConn, ring domain.RingKind, selfAddr string) (string, bool, string, error) {
	resp, err := rpcproto.CallJoin(ctx, conn, &rpcproto.JoinRequest{RingKind: ring, IP: selfAddr})
	if err != nil {
		return "", false, "", normalizeErr(conn.Target(), err)
	}
	return resp.IP, resp.Ok, resp.Msg, nil
}

// FindSuccessor asks the remote node to resolve target on the given ring,
// recursing through its own finger table if it isn't responsible.
func FindSuccessor(ctx context.Context, conn *grpc.ClientConn, ring domain.RingKind, target domain.ID) (string, bool, string, error) {
	resp, err := rpcproto.CallFindSuccessor(ctx, conn, &rpcproto.FindSuccessorRequest{RingKind: ring, ID: target.ToHexString(false)})
	if err != nil {
		return "", false, "", normalizeErr(conn.Target(), err)
	}
	return resp.IP, resp.Ok, resp.Msg, nil
}

// GetPredecessor returns the remote node's predecessor address on the given
// ring, or "" if it has none.
func GetPredecessor(ctx context.Context, conn *grpc.ClientConn, ring domain.RingKind) (string, error) {
	resp, err := rpcproto.CallGetPredecessor(ctx, conn, &rpcproto.GetPredecessorRequest{RingKind: ring})
	if err != nil {
		return "", normalizeErr(conn.Target(), err)
	}
	return resp.IP, nil
}

// Notify informs the remote node that selfAddr may be its predecessor on
// the given ring.
func Notify(ctx context.Context, conn *grpc.ClientConn, ring domain.RingKind, selfAddr string) error {
	err := rpcproto.CallNotify(ctx, conn, &rpcproto.NotifyRequest{RingKind: ring, IP: selfAddr})
	return normalizeErr(conn.Target(), err)
}

// Find retrieves a value by key from the remote node on the given ring,
// descending a single RPC hop (the remote node itself performs
// find_successor routing before answering, per spec §4.1 "find").
func Find(ctx context.Context, conn *grpc.ClientConn, ring domain.RingKind, key string, isFile bool) (domain.Value, bool, string, error) {
	resp, err := rpcproto.CallFind(ctx, conn, &rpcproto.FindRequest{RingKind: ring, Key: key, IsFile: isFile})
	if err != nil {
		return domain.Value{}, false, "", normalizeErr(conn.Target(), err)
	}
	return resp.Value.ToValue(), resp.Ok, resp.Msg, nil
}

// Store writes key/value at the node responsible for it on the given ring
// (possibly the remote node itself, possibly further forwarded on its
// side).
func Store(ctx context.Context, conn *grpc.ClientConn, ring domain.RingKind, key string, value domain.Value, overwrite, checkRemoved bool, persistPath string) (bool, string, error) {
	req := &rpcproto.StoreRequest{
		RingKind:     ring,
		Key:          key,
		Value:        rpcproto.ValueToDTO(value),
		Overwrite:    overwrite,
		CheckRemoved: checkRemoved,
		PersistPath:  persistPath,
	}
	resp, err := rpcproto.CallStore(ctx, conn, req)
	if err != nil {
		return false, "", normalizeErr(conn.Target(), err)
	}
	return resp.Ok, resp.Msg, nil
}

// StoreReplica writes key/value into the remote node's replica store on the
// given ring.
func StoreReplica(ctx context.Context, conn *grpc.ClientConn, ring domain.RingKind, key string, value domain.Value, persistPath string) (bool, string, error) {
	req := &rpcproto.StoreReplicaRequest{RingKind: ring, Key: key, Value: rpcproto.ValueToDTO(value), PersistPath: persistPath}
	resp, err := rpcproto.CallStoreReplica(ctx, conn, req)
	if err != nil {
		return false, "", normalizeErr(conn.Target(), err)
	}
	return resp.Ok, resp.Msg, nil
}

// Remove tombstones key at its owner on the given ring.
func Remove(ctx context.Context, conn *grpc.ClientConn, ring domain.RingKind, key string) (bool, string, error) {
	resp, err := rpcproto.CallRemove(ctx, conn, &rpcproto.RemoveRequest{RingKind: ring, Key: key})
	if err != nil {
		return false, "", normalizeErr(conn.Target(), err)
	}
	return resp.Ok, resp.Msg, nil
}

// RemoveReplica drops key from the remote node's replica store only, on the
// given ring.
func RemoveReplica(ctx context.Context, conn *grpc.ClientConn, ring domain.RingKind, key string) (bool, string, error) {
	resp, err := rpcproto.CallRemoveReplica(ctx, conn, &rpcproto.RemoveRequest{RingKind: ring, Key: key})
	if err != nil {
		return false, "", normalizeErr(conn.Target(), err)
	}
	return resp.Ok, resp.Msg, nil
}

// Ping opens and immediately tears down a call against the remote node's
// DHT listener, used by check_predecessor as a bare liveness probe.
func Ping(ctx context.Context, conn *grpc.ClientConn, ring domain.RingKind) error {
	_, err := GetPredecessor(ctx, conn, ring)
	return err
}
