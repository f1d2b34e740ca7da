// Package client implements the scoped RPC sessions (DHT and peer-control)
// used by internal/chordring and internal/peer to talk to other nodes, plus
// the reference-counted connection pool both session types share.
package client

import (
	"context"
	"fmt"
	"sync"
	"time"

	"google.golang.org/grpc"
	"google.golang.org/grpc/credentials/insecure"

	"distorage/internal/logger"
	"distorage/internal/rpcproto"
)

// Pool manages reference-counted gRPC connections keyed by address. Ring
// maintenance loops call AddRef when a node enters their routing state and
// Release when it leaves, so a connection stays open exactly as long as
// something still points at it; ad-hoc callers that only need a connection
// for a single RPC use DialEphemeral instead and close it themselves.
type Pool struct {
	lgr           logger.Logger
	mu            sync.RWMutex
	entries       map[string]*poolEntry
	dialOpts      []grpc.DialOption
	failureTimeout time.Duration
}

type poolEntry struct {
	conn *grpc.ClientConn
	refs int
}

// Option configures a Pool.
type Option func(*Pool)

// WithLogger overrides the pool's logger.
func WithLogger(l logger.Logger) Option {
	return func(p *Pool) {
		if l != nil {
			p.lgr = l
		}
	}
}

// WithFailureTimeout overrides the default per-RPC timeout used to decide a
// remote peer is unreachable.
func WithFailureTimeout(d time.Duration) Option {
	return func(p *Pool) {
		if d > 0 {
			p.failureTimeout = d
		}
	}
}

// NewPool creates an empty connection pool. Connections use insecure
// transport credentials (no TLS) and the rpcproto JSON codec, matching the
// teacher's own "trusted network" dial defaults.
func NewPool(opts ...Option) *Pool {
	p := &Pool{
		lgr:            &logger.NopLogger{},
		entries:        make(map[string]*poolEntry),
		failureTimeout: 2 * time.Second,
		dialOpts: []grpc.DialOption{
			grpc.WithTransportCredentials(insecure.NewCredentials()),
			rpcproto.DialOption(),
		},
	}
	for _, o := range opts {
		o(p)
	}
	return p
}

// FailureTimeout returns the timeout callers should apply to a single RPC
// before treating the remote peer as unreachable.
func (p *Pool) FailureTimeout() time.Duration {
	return p.failureTimeout
}

// AddRef increments the reference count for addr, dialing a fresh
// connection if this is the first reference.
func (p *Pool) AddRef(addr string) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if e, ok := p.entries[addr]; ok {
		e.refs++
		return nil
	}
	conn, err := grpc.NewClient(addr, p.dialOpts...)
	if err != nil {
		return fmt.Errorf("client: dial %s: %w", addr, err)
	}
	p.entries[addr] = &poolEntry{conn: conn, refs: 1}
	p.lgr.Info("AddRef: new connection opened", logger.F("addr", addr))
	return nil
}

// Release decrements the reference count for addr, closing the underlying
// connection once it reaches zero.
func (p *Pool) Release(addr string) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	e, ok := p.entries[addr]
	if !ok {
		return nil
	}
	e.refs--
	if e.refs > 0 {
		return nil
	}
	delete(p.entries, addr)
	p.lgr.Info("Release: connection closed", logger.F("addr", addr))
	return e.conn.Close()
}

// GetFromPool returns the pooled connection for addr, or ErrNotInPool if no
// reference currently holds it open.
func (p *Pool) GetFromPool(addr string) (*grpc.ClientConn, error) {
	p.mu.RLock()
	defer p.mu.RUnlock()
	e, ok := p.entries[addr]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrNotInPool, addr)
	}
	return e.conn, nil
}

// DialEphemeral opens a one-off connection not tracked by the pool's
// refcounts. The caller owns the returned *grpc.ClientConn and must Close
// it once done; used for one-shot contacts (e.g. probing a node that is
// not yet part of any routing table).
func (p *Pool) DialEphemeral(addr string) (*grpc.ClientConn, error) {
	conn, err := grpc.NewClient(addr, p.dialOpts...)
	if err != nil {
		return nil, fmt.Errorf("client: ephemeral dial %s: %w", addr, err)
	}
	return conn, nil
}

// CloseAll closes every pooled connection regardless of refcount. Used on
// process shutdown.
func (p *Pool) CloseAll() {
	p.mu.Lock()
	defer p.mu.Unlock()
	for addr, e := range p.entries {
		_ = e.conn.Close()
		delete(p.entries, addr)
	}
}

// DebugLog emits a structured DEBUG-level snapshot of the pool's contents.
func (p *Pool) DebugLog() {
	p.mu.RLock()
	defer p.mu.RUnlock()
	entries := make([]map[string]any, 0, len(p.entries))
	for addr, e := range p.entries {
		entries = append(entries, map[string]any{"addr": addr, "refs": e.refs})
	}
	p.lgr.Debug("ClientPool snapshot", logger.F("count", len(entries)), logger.F("entries", entries))
}

// withTimeout returns ctx bounded by d, or ctx unchanged when d <= 0.
func withTimeout(ctx context.Context, d time.Duration) (context.Context, context.CancelFunc) {
	if d <= 0 {
		return ctx, func() {}
	}
	return context.WithTimeout(ctx, d)
}
