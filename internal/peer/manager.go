// Package peer implements the cluster-wide peer manager (spec §4.2): the
// process-global state shared by both Chord rings, the shared-secret
// membership gossip (§4.4), and the three cluster-level background workers
// (§4.5 discovery, stale-peer sweep, successor repair).
package peer

import (
	"context"
	"fmt"
	"regexp"
	"sync"
	"time"

	"google.golang.org/grpc"

	"distorage/internal/chordring"
	"distorage/internal/client"
	"distorage/internal/domain"
	"distorage/internal/logger"
)

var ipPortPattern = regexp.MustCompile(`^[^:\s]+:\d+$`)

// peerInfo records when a known peer was last confirmed reachable.
type peerInfo struct {
	lastActive time.Time
}

// Manager holds the process-wide state a peer needs beyond its two ring
// nodes: host address, cluster secret, and the known/old peer tables, each
// guarded by its own mutex per spec §5's "independent locks" rule.
type Manager struct {
	lgr    logger.Logger
	selfIP string
	secret string
	pool   *client.Pool

	ringClients *chordring.Node
	ringData    *chordring.Node

	muKnown sync.Mutex
	known   map[string]*peerInfo

	muOld sync.Mutex
	old   map[string]struct{}

	started bool
	muStart sync.Mutex

	muReg      sync.Mutex
	registered map[*grpc.ClientConn]bool
}

// Option configures a Manager.
type Option func(*Manager)

// WithLogger overrides the manager's logger.
func WithLogger(l logger.Logger) Option {
	return func(m *Manager) {
		if l != nil {
			m.lgr = l
		}
	}
}

// New creates a Manager for a host that already owns its two ring nodes.
func New(selfIP, secret string, pool *client.Pool, ringClients, ringData *chordring.Node, opts ...Option) *Manager {
	m := &Manager{
		lgr:         &logger.NopLogger{},
		selfIP:      selfIP,
		secret:      secret,
		pool:        pool,
		ringClients: ringClients,
		ringData:    ringData,
		known:       make(map[string]*peerInfo),
		old:         make(map[string]struct{}),
		registered:  make(map[*grpc.ClientConn]bool),
	}
	for _, o := range opts {
		o(m)
	}
	return m
}

func (m *Manager) SelfIP() string  { return m.selfIP }
func (m *Manager) Secret() string  { return m.secret }

// RingFor returns the Chord node for the given ring kind.
func (m *Manager) RingFor(kind domain.RingKind) *chordring.Node {
	if kind == domain.RingData {
		return m.ringData
	}
	return m.ringClients
}

// MarkStarted flips server_started to true; cmd/server calls it once the
// three servers are up and the bootstrap join has run. Registration
// handling does not consult the flag; Started reports it.
func (m *Manager) MarkStarted() {
	m.muStart.Lock()
	m.started = true
	m.muStart.Unlock()
}

func (m *Manager) Started() bool {
	m.muStart.Lock()
	defer m.muStart.Unlock()
	return m.started
}

// AddKnown records ip as an actively-communicating peer, bumping its
// last-active time if already known. It also removes ip from old, since
// membership gossip re-adding a peer supersedes its stale status.
func (m *Manager) AddKnown(ip string) {
	if ip == m.selfIP {
		return
	}
	m.muKnown.Lock()
	if _, ok := m.known[ip]; !ok {
		m.lgr.Info("AddKnown: new peer", logger.F("ip", ip))
	}
	m.known[ip] = &peerInfo{lastActive: time.Now()}
	m.muKnown.Unlock()

	m.muOld.Lock()
	delete(m.old, ip)
	m.muOld.Unlock()
}

// KnownPeers returns a snapshot of every known peer address.
func (m *Manager) KnownPeers() []string {
	m.muKnown.Lock()
	defer m.muKnown.Unlock()
	out := make([]string, 0, len(m.known))
	for ip := range m.known {
		out = append(out, ip)
	}
	return out
}

// DropToOld moves ip from known into old, used when a peer stops responding.
func (m *Manager) DropToOld(ip string) {
	m.muKnown.Lock()
	delete(m.known, ip)
	m.muKnown.Unlock()

	m.muOld.Lock()
	m.old[ip] = struct{}{}
	m.muOld.Unlock()
	m.lgr.Info("DropToOld: peer marked stale", logger.F("ip", ip))
}

// PromoteFromOld removes ip from old without re-adding it to known; used
// once the stale-peer sweeper confirms ip is reachable again (membership
// gossip is what re-adds it to known).
func (m *Manager) PromoteFromOld(ip string) {
	m.muOld.Lock()
	delete(m.old, ip)
	m.muOld.Unlock()
}

// OldPeers returns a snapshot of every peer currently marked stale.
func (m *Manager) OldPeers() []string {
	m.muOld.Lock()
	defer m.muOld.Unlock()
	out := make([]string, 0, len(m.old))
	for ip := range m.old {
		out = append(out, ip)
	}
	return out
}

// Timeout sweeps known, dropping any peer whose last_active is older than
// d into old. Called by the stale-peer-adjacent discovery loop per spec
// §4.2's "timeout check (DISCOVER_TIMEOUT)".
func (m *Manager) Timeout(d time.Duration) {
	cutoff := time.Now().Add(-d)
	var stale []string
	m.muKnown.Lock()
	for ip, info := range m.known {
		if info.lastActive.Before(cutoff) {
			stale = append(stale, ip)
		}
	}
	for _, ip := range stale {
		delete(m.known, ip)
	}
	m.muKnown.Unlock()

	if len(stale) == 0 {
		return
	}
	m.muOld.Lock()
	for _, ip := range stale {
		m.old[ip] = struct{}{}
	}
	m.muOld.Unlock()
	m.lgr.Info("Timeout: peers moved to old", logger.F("count", len(stale)))
}

// Register implements the peer-control "register" RPC: accept if the
// secret matches, or the caller is already known (spec §4.4).
func (m *Manager) Register(ip, secret string) (bool, string) {
	m.muKnown.Lock()
	_, alreadyKnown := m.known[ip]
	m.muKnown.Unlock()

	if secret != m.secret && !alreadyKnown {
		return false, "secret mismatch"
	}
	m.AddKnown(ip)
	return true, "registered"
}

// Announce registers this node with the peer at addr over peer-control and,
// only once that succeeds, adds addr to known. Called against every
// bootstrap peer when joining a cluster, so the seed's own known set gains
// the joiner instead of membership gossip only ever flowing one way (spec
// §4.4/§4.5).
func (m *Manager) Announce(addr string) error {
	if addr == m.selfIP {
		return nil
	}
	if err := m.withConn(addr, func(conn *grpc.ClientConn) error { return nil }); err != nil {
		return err
	}
	m.AddKnown(addr)
	return nil
}

// ensureRegistered runs the peer-control register RPC against conn the
// first time it is used, and remembers success so later calls on the same
// connection skip it.
func (m *Manager) ensureRegistered(conn *grpc.ClientConn) error {
	m.muReg.Lock()
	done := m.registered[conn]
	m.muReg.Unlock()
	if done {
		return nil
	}

	ctx, cancel := context.WithTimeout(context.Background(), m.pool.FailureTimeout())
	defer cancel()
	ok, msg, err := client.RegisterPeer(ctx, conn, m.selfIP, m.secret)
	if err != nil {
		return err
	}
	if !ok {
		return fmt.Errorf("register: %s", msg)
	}

	m.muReg.Lock()
	m.registered[conn] = true
	m.muReg.Unlock()
	return nil
}

// successorRepair implements spec §4.5 "Successor repair": for a ring whose
// successor has collapsed to self while peers are still known, try to
// rejoin the ring through each known peer until one answers with a valid
// address.
func (m *Manager) successorRepair(ctx context.Context, ring *chordring.Node) {
	self := ring.Self()
	succ := ring.Table().GetSuccessor()
	if succ == nil || !succ.ID.Equal(self.ID) {
		return
	}
	peers := m.KnownPeers()
	if len(peers) == 0 {
		return
	}
	for _, ip := range peers {
		if err := ring.Join(ctx, ip); err != nil {
			continue
		}
		newSucc := ring.Table().GetSuccessor()
		if newSucc != nil && ipPortPattern.MatchString(newSucc.Addr) {
			m.lgr.Info("successorRepair: ring rejoined", logger.F("ring", ring.Ring().String()), logger.F("via", ip))
			return
		}
	}
	m.lgr.Warn("successorRepair: no known peer could repair ring", logger.F("ring", ring.Ring().String()))
}

// DebugLog emits a structured DEBUG-level snapshot of cluster membership.
func (m *Manager) DebugLog() {
	m.lgr.Debug("Manager snapshot",
		logger.F("self", m.selfIP),
		logger.F("known_count", len(m.KnownPeers())),
		logger.F("old_count", len(m.OldPeers())),
		logger.F("started", m.Started()),
	)
}
