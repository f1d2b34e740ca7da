package chordring

import (
	"context"
	"fmt"
	"sync"

	"google.golang.org/grpc/peer"

	"distorage/internal/domain"
	"distorage/internal/logger"
	"distorage/internal/rpcproto"
)

// DHTAdapter exposes two chordring.Nodes — one per ring — as a single
// rpcproto.DHTServer, since both rings share the DHT listener port (spec
// §2). Each RPC's RingKind field selects which Node handles it.
type DHTAdapter struct {
	lgr    logger.Logger
	secret string
	rings  map[domain.RingKind]*Node

	muReg      sync.Mutex
	registered map[dhtCallerKey]bool
}

// dhtCallerKey identifies one remote connection's registration state on one
// ring; the same TCP connection can carry traffic for both rings, so each
// must register separately (spec §4.3).
type dhtCallerKey struct {
	addr string
	ring domain.RingKind
}

// NewDHTAdapter builds the dispatcher for the given node set.
func NewDHTAdapter(secret string, clientsNode, dataNode *Node, lgr logger.Logger) *DHTAdapter {
	if lgr == nil {
		lgr = &logger.NopLogger{}
	}
	return &DHTAdapter{
		lgr:    lgr,
		secret: secret,
		rings: map[domain.RingKind]*Node{
			domain.RingClients: clientsNode,
			domain.RingData:    dataNode,
		},
		registered: make(map[dhtCallerKey]bool),
	}
}

// callerAddr identifies the remote side of ctx's connection, stable for
// that connection's lifetime. Used to track per-connection registration
// state since the RPCs themselves carry no session object.
func callerAddr(ctx context.Context) (string, bool) {
	p, ok := peer.FromContext(ctx)
	if !ok || p.Addr == nil {
		return "", false
	}
	return p.Addr.String(), true
}

// requireRegistered rejects RPCs from callers that haven't completed
// RegisterDHT for ring yet, per spec §6's NotRegistered error kind.
func (a *DHTAdapter) requireRegistered(ctx context.Context, ring domain.RingKind) error {
	addr, ok := callerAddr(ctx)
	if !ok {
		return fmt.Errorf("not registered")
	}
	a.muReg.Lock()
	ok = a.registered[dhtCallerKey{addr: addr, ring: ring}]
	a.muReg.Unlock()
	if !ok {
		return fmt.Errorf("not registered")
	}
	return nil
}

func (a *DHTAdapter) nodeFor(kind domain.RingKind) (*Node, error) {
	n, ok := a.rings[kind]
	if !ok {
		return nil, fmt.Errorf("unknown ring kind %d", kind)
	}
	return n, nil
}

// RegisterDHT validates the shared cluster secret for the declared ring,
// per spec §6 DHT "register".
func (a *DHTAdapter) RegisterDHT(ctx context.Context, req *rpcproto.RegisterDHTRequest) (*rpcproto.RegisterPeerResponse, error) {
	if _, err := a.nodeFor(req.RingKind); err != nil {
		return &rpcproto.RegisterPeerResponse{Ok: false, Msg: err.Error()}, nil
	}
	if req.Secret != a.secret {
		return &rpcproto.RegisterPeerResponse{Ok: false, Msg: "secret mismatch"}, nil
	}
	if addr, ok := callerAddr(ctx); ok {
		a.muReg.Lock()
		a.registered[dhtCallerKey{addr: addr, ring: req.RingKind}] = true
		a.muReg.Unlock()
	}
	return &rpcproto.RegisterPeerResponse{Ok: true, Msg: "registered"}, nil
}

func (a *DHTAdapter) Join(ctx context.Context, req *rpcproto.JoinRequest) (*rpcproto.JoinResponse, error) {
	n, err := a.nodeFor(req.RingKind)
	if err != nil {
		return &rpcproto.JoinResponse{Ok: false, Msg: err.Error()}, nil
	}
	if err := a.requireRegistered(ctx, req.RingKind); err != nil {
		return &rpcproto.JoinResponse{Ok: false, Msg: err.Error()}, nil
	}
	succ, err := n.HandleJoin(ctx, req.IP)
	if err != nil {
		return &rpcproto.JoinResponse{Ok: false, Msg: err.Error()}, nil
	}
	return &rpcproto.JoinResponse{IP: succ.Addr, Ok: true, Msg: "joined"}, nil
}

func (a *DHTAdapter) FindSuccessor(ctx context.Context, req *rpcproto.FindSuccessorRequest) (*rpcproto.FindSuccessorResponse, error) {
	n, err := a.nodeFor(req.RingKind)
	if err != nil {
		return &rpcproto.FindSuccessorResponse{Ok: false, Msg: err.Error()}, nil
	}
	if err := a.requireRegistered(ctx, req.RingKind); err != nil {
		return &rpcproto.FindSuccessorResponse{Ok: false, Msg: err.Error()}, nil
	}
	id, err := n.Space().FromHexString(req.ID)
	if err != nil {
		return &rpcproto.FindSuccessorResponse{Ok: false, Msg: "invalid id"}, nil
	}
	succ, err := n.FindSuccessor(ctx, id)
	if err != nil {
		return &rpcproto.FindSuccessorResponse{Ok: false, Msg: err.Error()}, nil
	}
	return &rpcproto.FindSuccessorResponse{IP: succ.Addr, Ok: true, Msg: "ok"}, nil
}

func (a *DHTAdapter) GetPredecessor(ctx context.Context, req *rpcproto.GetPredecessorRequest) (*rpcproto.GetPredecessorResponse, error) {
	n, err := a.nodeFor(req.RingKind)
	if err != nil {
		return &rpcproto.GetPredecessorResponse{}, nil
	}
	if err := a.requireRegistered(ctx, req.RingKind); err != nil {
		return &rpcproto.GetPredecessorResponse{}, nil
	}
	return &rpcproto.GetPredecessorResponse{IP: n.GetPredecessorAddr()}, nil
}

func (a *DHTAdapter) Notify(ctx context.Context, req *rpcproto.NotifyRequest) (*rpcproto.Empty, error) {
	n, err := a.nodeFor(req.RingKind)
	if err != nil {
		return &rpcproto.Empty{}, nil
	}
	if err := a.requireRegistered(ctx, req.RingKind); err != nil {
		return &rpcproto.Empty{}, nil
	}
	n.Notify(req.IP)
	return &rpcproto.Empty{}, nil
}

func (a *DHTAdapter) Find(ctx context.Context, req *rpcproto.FindRequest) (*rpcproto.FindResponse, error) {
	n, err := a.nodeFor(req.RingKind)
	if err != nil {
		return &rpcproto.FindResponse{Ok: false, Msg: err.Error()}, nil
	}
	if err := a.requireRegistered(ctx, req.RingKind); err != nil {
		return &rpcproto.FindResponse{Ok: false, Msg: err.Error()}, nil
	}
	val, ok, msg, err := n.Find(ctx, req.Key, req.IsFile)
	if err != nil {
		return &rpcproto.FindResponse{Ok: false, Msg: err.Error()}, nil
	}
	return &rpcproto.FindResponse{Value: rpcproto.ValueToDTO(val), Ok: ok, Msg: msg}, nil
}

func (a *DHTAdapter) Store(ctx context.Context, req *rpcproto.StoreRequest) (*rpcproto.Response, error) {
	n, err := a.nodeFor(req.RingKind)
	if err != nil {
		return &rpcproto.Response{Ok: false, Msg: err.Error()}, nil
	}
	if err := a.requireRegistered(ctx, req.RingKind); err != nil {
		return &rpcproto.Response{Ok: false, Msg: err.Error()}, nil
	}
	ok, msg, err := n.Store(ctx, req.Key, req.Value.ToValue(), req.Overwrite, req.CheckRemoved, req.PersistPath)
	if err != nil {
		return &rpcproto.Response{Ok: false, Msg: err.Error()}, nil
	}
	return &rpcproto.Response{Ok: ok, Msg: msg}, nil
}

func (a *DHTAdapter) StoreReplica(ctx context.Context, req *rpcproto.StoreReplicaRequest) (*rpcproto.Response, error) {
	n, err := a.nodeFor(req.RingKind)
	if err != nil {
		return &rpcproto.Response{Ok: false, Msg: err.Error()}, nil
	}
	if err := a.requireRegistered(ctx, req.RingKind); err != nil {
		return &rpcproto.Response{Ok: false, Msg: err.Error()}, nil
	}
	ok, msg, err := n.StoreReplica(req.Key, req.Value.ToValue(), req.PersistPath)
	if err != nil {
		return &rpcproto.Response{Ok: false, Msg: err.Error()}, nil
	}
	return &rpcproto.Response{Ok: ok, Msg: msg}, nil
}

func (a *DHTAdapter) Remove(ctx context.Context, req *rpcproto.RemoveRequest) (*rpcproto.Response, error) {
	n, err := a.nodeFor(req.RingKind)
	if err != nil {
		return &rpcproto.Response{Ok: false, Msg: err.Error()}, nil
	}
	if err := a.requireRegistered(ctx, req.RingKind); err != nil {
		return &rpcproto.Response{Ok: false, Msg: err.Error()}, nil
	}
	ok, msg, err := n.Remove(ctx, req.Key)
	if err != nil {
		return &rpcproto.Response{Ok: false, Msg: err.Error()}, nil
	}
	return &rpcproto.Response{Ok: ok, Msg: msg}, nil
}

func (a *DHTAdapter) RemoveReplica(ctx context.Context, req *rpcproto.RemoveRequest) (*rpcproto.Response, error) {
	n, err := a.nodeFor(req.RingKind)
	if err != nil {
		return &rpcproto.Response{Ok: false, Msg: err.Error()}, nil
	}
	if err := a.requireRegistered(ctx, req.RingKind); err != nil {
		return &rpcproto.Response{Ok: false, Msg: err.Error()}, nil
	}
	ok, msg, err := n.RemoveReplica(req.Key)
	if err != nil {
		return &rpcproto.Response{Ok: false, Msg: err.Error()}, nil
	}
	return &rpcproto.Response{Ok: ok, Msg: msg}, nil
}
