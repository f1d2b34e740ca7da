package peer

import (
	"context"
	"time"

	"google.golang.org/grpc"

	"distorage/internal/client"
)

// StartWorkers launches the three cluster-level background loops from spec
// §4.5: discovery, stale-peer sweep, successor repair. Mirrors
// internal/chordring's StartStabilizers ticker-per-loop pattern.
func (m *Manager) StartWorkers(ctx context.Context, discoverInterval, checkOldInterval, successorCheckInterval, discoverTimeout time.Duration) {
	go m.tickLoop(ctx, discoverInterval, "discovery", func() {
		m.Timeout(discoverTimeout)
		m.discover(ctx)
	})
	go m.tickLoop(ctx, checkOldInterval, "stale-peer sweep", func() { m.sweepOld(ctx) })
	go m.tickLoop(ctx, successorCheckInterval, "successor repair", func() {
		m.successorRepair(ctx, m.ringClients)
		m.successorRepair(ctx, m.ringData)
	})
}

func (m *Manager) tickLoop(ctx context.Context, interval time.Duration, name string, fn func()) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			m.lgr.Info(name + " loop stopped")
			return
		case <-ticker.C:
			fn()
		}
	}
}

// discover implements spec §4.5 "Discovery": for each known peer, pull its
// known set over a peer-control session and add every unseen entry.
func (m *Manager) discover(ctx context.Context) {
	for _, ip := range m.KnownPeers() {
		var peers []string
		err := m.withConn(ip, func(conn *grpc.ClientConn) error {
			callCtx, cancel := context.WithTimeout(ctx, m.pool.FailureTimeout())
			defer cancel()
			p, err := client.GetKnownServers(callCtx, conn)
			peers = p
			return err
		})
		if err != nil {
			continue
		}
		for _, p := range peers {
			m.AddKnown(p)
		}
	}
}

// sweepOld implements spec §4.5 "Stale-peer sweeper": on successful contact,
// drop the peer from old; gossip will re-add it if it rejoins.
func (m *Manager) sweepOld(ctx context.Context) {
	for _, ip := range m.OldPeers() {
		err := m.withConn(ip, func(conn *grpc.ClientConn) error {
			callCtx, cancel := context.WithTimeout(ctx, m.pool.FailureTimeout())
			defer cancel()
			_, err := client.GetKnownServers(callCtx, conn)
			return err
		})
		if err == nil {
			m.PromoteFromOld(ip)
		}
	}
}

// withConn runs fn against a connection to addr, registering over
// peer-control first (spec §4.4) exactly once per *grpc.ClientConn.
func (m *Manager) withConn(addr string, fn func(*grpc.ClientConn) error) error {
	if conn, err := m.pool.GetFromPool(addr); err == nil {
		if err := m.ensureRegistered(conn); err != nil {
			return err
		}
		return fn(conn)
	}
	conn, err := m.pool.DialEphemeral(addr)
	if err != nil {
		return err
	}
	defer func() {
		conn.Close()
		m.muReg.Lock()
		delete(m.registered, conn)
		m.muReg.Unlock()
	}()
	if err := m.ensureRegistered(conn); err != nil {
		return err
	}
	return fn(conn)
}
