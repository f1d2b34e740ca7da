package peer

import (
	"context"
	"fmt"
	"sync"

	"google.golang.org/grpc/peer"

	"distorage/internal/rpcproto"
)

// PeerControlAdapter exposes a Manager as an rpcproto.PeerControlServer.
type PeerControlAdapter struct {
	mgr *Manager

	muReg      sync.Mutex
	registered map[string]bool
}

// NewPeerControlAdapter wraps mgr for registration on the peer-control
// listener.
func NewPeerControlAdapter(mgr *Manager) *PeerControlAdapter {
	return &PeerControlAdapter{mgr: mgr, registered: make(map[string]bool)}
}

// Register implements the peer-control "register" RPC (spec §4.4).
func (a *PeerControlAdapter) Register(ctx context.Context, req *rpcproto.RegisterPeerRequest) (*rpcproto.RegisterPeerResponse, error) {
	ok, msg := a.mgr.Register(req.IP, req.Secret)
	if ok {
		if addr, found := callerAddr(ctx); found {
			a.muReg.Lock()
			a.registered[addr] = true
			a.muReg.Unlock()
		}
	}
	return &rpcproto.RegisterPeerResponse{Ok: ok, Msg: msg}, nil
}

// GetKnownServers returns this node's current known-peer set. Rejects
// callers that haven't completed Register yet (spec §6 NotRegistered).
func (a *PeerControlAdapter) GetKnownServers(ctx context.Context, req *rpcproto.Empty) (*rpcproto.GetKnownServersResponse, error) {
	if err := a.requireRegistered(ctx); err != nil {
		return &rpcproto.GetKnownServersResponse{}, nil
	}
	return &rpcproto.GetKnownServersResponse{Peers: a.mgr.KnownPeers()}, nil
}

// callerAddr identifies the remote side of ctx's connection, stable for
// that connection's lifetime.
func callerAddr(ctx context.Context) (string, bool) {
	p, ok := peer.FromContext(ctx)
	if !ok || p.Addr == nil {
		return "", false
	}
	return p.Addr.String(), true
}

func (a *PeerControlAdapter) requireRegistered(ctx context.Context) error {
	addr, ok := callerAddr(ctx)
	if !ok {
		return fmt.Errorf("not registered")
	}
	a.muReg.Lock()
	ok = a.registered[addr]
	a.muReg.Unlock()
	if !ok {
		return fmt.Errorf("not registered")
	}
	return nil
}
