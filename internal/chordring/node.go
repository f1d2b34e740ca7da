package chordring

import (
	"context"
	"fmt"
	"sync"
	"time"

	"google.golang.org/grpc"

	"distorage/internal/client"
	"distorage/internal/ctxutil"
	"distorage/internal/domain"
	"distorage/internal/logger"
	"distorage/internal/storage"
)

// Node is one Chord ring participant — either the clients ring or the data
// ring (spec §2). It owns ring-position state (Table), the local key-value
// store for its arc plus the replica store for the predecessor's arc
// (internal/storage), and talks to other peers through the shared
// connection pool (internal/client).
type Node struct {
	lgr    logger.Logger
	ring   domain.RingKind
	secret string

	table       *Table
	store       *storage.Store
	storageRoot string
	pool        *client.Pool

	muReg      sync.Mutex
	registered map[*grpc.ClientConn]bool
}

// Option configures a Node.
type Option func(*Node)

// WithLogger overrides the node's logger (and its table's).
func WithLogger(l logger.Logger) Option {
	return func(n *Node) {
		if l != nil {
			n.lgr = l
		}
	}
}

// New creates a Node for the given ring, initialized to single-node mode.
func New(self *domain.Node, ring domain.RingKind, space domain.Space, secret, storageRoot string, pool *client.Pool, opts ...Option) *Node {
	n := &Node{
		lgr:         &logger.NopLogger{},
		ring:        ring,
		secret:      secret,
		storageRoot: storageRoot,
		pool:        pool,
		registered:  make(map[*grpc.ClientConn]bool),
	}
	for _, o := range opts {
		o(n)
	}
	n.table = NewTable(self, space, WithTableLogger(n.lgr.Named(ring.String()+".table")))
	n.store = storage.New(storage.WithLogger(n.lgr.Named(ring.String() + ".store")))
	return n
}

func (n *Node) Ring() domain.RingKind { return n.ring }
func (n *Node) Self() *domain.Node    { return n.table.Self() }
func (n *Node) Space() domain.Space   { return n.table.Space() }
func (n *Node) Table() *Table         { return n.table }
func (n *Node) Secret() string        { return n.secret }

func (n *Node) nodeFromAddr(addr string) *domain.Node {
	return &domain.Node{ID: n.table.Space().NewIdFromString(addr), Addr: addr}
}

// withConn runs fn against a connection to addr, preferring the pool's
// reference-counted connection and falling back to a closed-after-use
// ephemeral dial for addresses the routing table doesn't (yet) hold open.
// Before fn runs, the connection performs the DHT register handshake
// (spec §4.3) exactly once per *grpc.ClientConn; acquisition fails closed
// if registration doesn't succeed.
func (n *Node) withConn(addr string, fn func(*grpc.ClientConn) error) error {
	if conn, err := n.pool.GetFromPool(addr); err == nil {
		if err := n.ensureRegistered(conn); err != nil {
			return err
		}
		return fn(conn)
	}
	conn, err := n.pool.DialEphemeral(addr)
	if err != nil {
		return err
	}
	defer func() {
		conn.Close()
		n.muReg.Lock()
		delete(n.registered, conn)
		n.muReg.Unlock()
	}()
	if err := n.ensureRegistered(conn); err != nil {
		return err
	}
	return fn(conn)
}

// ensureRegistered runs the register RPC against conn the first time it is
// used, and remembers success so later calls on the same connection skip
// it. Mirrors the Python original's per-session register-on-connect.
func (n *Node) ensureRegistered(conn *grpc.ClientConn) error {
	n.muReg.Lock()
	done := n.registered[conn]
	n.muReg.Unlock()
	if done {
		return nil
	}

	ctx, cancel := n.callTimeout(context.Background())
	defer cancel()
	ok, msg, err := client.RegisterDHT(ctx, conn, n.ring, n.secret)
	if err != nil {
		return err
	}
	if !ok {
		return fmt.Errorf("register: %s", msg)
	}

	n.muReg.Lock()
	n.registered[conn] = true
	n.muReg.Unlock()
	return nil
}

func (n *Node) callTimeout(ctx context.Context) (context.Context, context.CancelFunc) {
	if _, ok := ctx.Deadline(); ok {
		return ctx, func() {}
	}
	return context.WithTimeout(ctx, n.pool.FailureTimeout())
}

// FindSuccessor resolves id to the node responsible for it, per spec §4.1.
// If id lies in (self, successor] the successor is returned without any
// RPC; otherwise the lookup recurses through closest_preceding_
// node via a single DHT RPC (the remote peer runs the same algorithm and
// returns the eventual answer, so hop count stays server-side recursive
// rather than client-driven iterative).
func (n *Node) FindSuccessor(ctx context.Context, id domain.ID) (*domain.Node, error) {
	if err := ctxutil.CheckContext(ctx); err != nil {
		return nil, err
	}
	self := n.table.Self()
	succ := n.table.GetSuccessor()
	if succ == nil || succ.ID.Equal(self.ID) {
		return self, nil
	}
	if id.Between(self.ID, succ.ID) {
		return succ, nil
	}

	cpn := n.table.ClosestPrecedingNode(id)
	if cpn == nil || cpn.ID.Equal(self.ID) {
		return self, nil
	}

	var result *domain.Node
	err := n.withConn(cpn.Addr, func(conn *grpc.ClientConn) error {
		ctx, cancel := n.callTimeout(ctx)
		defer cancel()
		ip, ok, msg, err := client.FindSuccessor(ctx, conn, n.ring, id)
		if err != nil {
			return err
		}
		if !ok {
			return fmt.Errorf("find_successor: %s", msg)
		}
		result = n.nodeFromAddr(ip)
		return nil
	})
	if err != nil {
		return nil, err
	}
	return result, nil
}

// Join asks bootstrapAddr for the successor of self and adopts it, per
// spec §4.1 "join". The bootstrap node either adopts self as its own
// predecessor (single-node ring) or forwards the lookup into its ring.
func (n *Node) Join(ctx context.Context, bootstrapAddr string) error {
	self := n.table.Self()
	var newSucc *domain.Node
	err := n.withConn(bootstrapAddr, func(conn *grpc.ClientConn) error {
		ctx, cancel := n.callTimeout(ctx)
		defer cancel()
		ip, ok, msg, err := client.Join(ctx, conn, n.ring, self.Addr)
		if err != nil {
			return err
		}
		if !ok {
			return fmt.Errorf("join: %s", msg)
		}
		newSucc = n.nodeFromAddr(ip)
		return nil
	})
	if err != nil {
		return err
	}
	if err := n.pool.AddRef(newSucc.Addr); err != nil {
		n.lgr.Warn("Join: failed to addref new successor", logger.FNode("successor", newSucc), logger.F("err", err))
	}
	old := n.table.GetSuccessor()
	n.table.SetSuccessor(newSucc)
	if old != nil && !old.ID.Equal(self.ID) && !old.ID.Equal(newSucc.ID) {
		_ = n.pool.Release(old.Addr)
	}
	return nil
}

// HandleJoin answers another node's join RPC: if this ring has no one else,
// adopt the caller as predecessor and return self; otherwise forward the
// lookup (find_successor on the caller's derived ID) into the ring.
func (n *Node) HandleJoin(ctx context.Context, callerAddr string) (*domain.Node, error) {
	self := n.table.Self()
	succ := n.table.GetSuccessor()
	if succ == nil || succ.ID.Equal(self.ID) {
		caller := n.nodeFromAddr(callerAddr)
		n.applyNotify(ctx, caller)
		return self, nil
	}
	callerID := n.table.Space().NewIdFromString(callerAddr)
	return n.FindSuccessor(ctx, callerID)
}

// Stabilize verifies the current successor and adopts a closer one if the
// successor's own predecessor fits better, per spec §4.1 "stabilize".
func (n *Node) Stabilize(ctx context.Context) {
	self := n.table.Self()
	succ := n.table.GetSuccessor()
	if succ == nil || succ.ID.Equal(self.ID) {
		return
	}

	var predAddr string
	err := n.withConn(succ.Addr, func(conn *grpc.ClientConn) error {
		ctx, cancel := n.callTimeout(ctx)
		defer cancel()
		ip, err := client.GetPredecessor(ctx, conn, n.ring)
		if err != nil {
			return err
		}
		predAddr = ip
		return nil
	})
	if err != nil {
		n.lgr.Warn("Stabilize: successor unreachable, resetting to self", logger.FNode("successor", succ), logger.F("err", err))
		if err := n.pool.Release(succ.Addr); err != nil {
			n.lgr.Warn("Stabilize: failed to release dead successor", logger.F("err", err))
		}
		n.table.SetSuccessor(self)
		return
	}

	if predAddr != "" {
		cand := n.nodeFromAddr(predAddr)
		if cand.ID.Between(self.ID, succ.ID) {
			if err := n.pool.AddRef(cand.Addr); err != nil {
				n.lgr.Warn("Stabilize: failed to addref candidate successor", logger.F("err", err))
			}
			n.table.SetSuccessor(cand)
			if !succ.ID.Equal(cand.ID) {
				_ = n.pool.Release(succ.Addr)
			}
			succ = cand
			n.reseedReplicasAsync(succ)
		}
	}

	_ = n.withConn(succ.Addr, func(conn *grpc.ClientConn) error {
		ctx, cancel := n.callTimeout(ctx)
		defer cancel()
		return client.Notify(ctx, conn, n.ring, self.Addr)
	})
}

// Notify handles an incoming notify RPC: candidateAddr claims it might be
// our predecessor.
func (n *Node) Notify(candidateAddr string) {
	n.applyNotify(context.Background(), n.nodeFromAddr(candidateAddr))
}

// applyNotify implements spec's REDESIGN-bound notify rule: update the
// predecessor only when it is unset or genuinely changing, never on a
// repeat notification from the current predecessor.
func (n *Node) applyNotify(ctx context.Context, candidate *domain.Node) {
	self := n.table.Self()
	pred := n.table.GetPredecessor()

	if pred != nil && candidate.ID.Equal(pred.ID) {
		return
	}
	if pred != nil && !candidate.ID.Between(pred.ID, self.ID) {
		return
	}

	if err := n.pool.AddRef(candidate.Addr); err != nil {
		n.lgr.Warn("Notify: failed to addref candidate predecessor", logger.F("err", err))
	}
	n.table.SetPredecessor(candidate)
	if pred != nil && !pred.ID.Equal(self.ID) {
		_ = n.pool.Release(pred.Addr)
	}
	n.lgr.Info("Notify: predecessor updated", logger.FNode("predecessor", candidate))

	go n.handoffOwnership(ctx, candidate.ID)
}

// handoffOwnership scans elems for keys that no longer belong to this
// node's arc now that the predecessor has changed, and re-stores each at
// its rightful owner (spec §4.1 "Ownership handoff").
func (n *Node) handoffOwnership(ctx context.Context, predID domain.ID) {
	self := n.table.Self()
	for _, res := range n.store.Between(self.ID, predID) {
		// res.Key NOT in (predID, self.ID] means it belongs elsewhere now.
		if res.Key.Between(predID, self.ID) {
			continue
		}
		value := res.Value
		persistPath := ""
		if value.Kind == domain.KindPath {
			persistPath = value.Path
			bytes, err := storage.Load(n.storageRoot, value)
			if err != nil {
				n.lgr.Warn("handoffOwnership: failed to load file", logger.F("key", res.RawKey), logger.F("err", err))
				continue
			}
			value = domain.Value{Kind: domain.KindBytes, Bytes: bytes}
		}
		ok, msg, err := n.Store(ctx, res.RawKey, value, true, true, persistPath)
		if err != nil || !ok {
			n.lgr.Warn("handoffOwnership: re-store failed", logger.F("key", res.RawKey), logger.F("msg", msg), logger.F("err", err))
			continue
		}
		n.store.DeletePrimary(res.Key)
		if value.Kind != domain.KindPath {
			_ = storage.Evict(n.storageRoot, res.Value)
		}
		n.lgr.Info("handoffOwnership: key migrated off node", logger.F("key", res.RawKey))
	}
}

// reseedReplicasAsync resends every primary resource to the (new) successor
// as a replica, per spec's "When successor changes... re-send all elems".
func (n *Node) reseedReplicasAsync(succ *domain.Node) {
	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()
		for _, res := range n.store.AllPrimary() {
			persistPath := ""
			value := res.Value
			if value.Kind == domain.KindPath {
				persistPath = value.Path
			}
			if err := n.withConn(succ.Addr, func(conn *grpc.ClientConn) error {
				_, _, err := client.StoreReplica(ctx, conn, n.ring, res.RawKey, value, persistPath)
				return err
			}); err != nil {
				n.lgr.Warn("reseedReplicasAsync: failed", logger.F("key", res.RawKey), logger.F("err", err))
			}
		}
	}()
}

// FixFingers advances the rolling finger index and refreshes that slot,
// per spec §4.1. The canonical target is (self.ID + 2^i) mod 2^Bits
// (REDESIGN §0), not the de Bruijn target the teacher used.
func (n *Node) FixFingers(ctx context.Context) {
	i := n.table.NextFinger()
	target, err := n.table.Space().FingerTarget(n.table.Self().ID, i)
	if err != nil {
		n.lgr.Error("FixFingers: failed to compute target", logger.F("index", i), logger.F("err", err))
		return
	}
	succ, err := n.FindSuccessor(ctx, target)
	if err != nil {
		n.table.SetFinger(i, nil)
		return
	}
	n.table.SetFinger(i, succ)
}

// CheckPredecessor verifies the predecessor is alive; on failure it clears
// the pointer and promotes every held replica into primary ownership
// (spec §4.1 "check_predecessor").
func (n *Node) CheckPredecessor(ctx context.Context) {
	pred := n.table.GetPredecessor()
	if pred == nil || pred.ID.Equal(n.table.Self().ID) {
		return
	}

	err := n.withConn(pred.Addr, func(conn *grpc.ClientConn) error {
		ctx, cancel := n.callTimeout(ctx)
		defer cancel()
		return client.Ping(ctx, conn, n.ring)
	})
	if err == nil {
		return
	}

	n.lgr.Warn("CheckPredecessor: predecessor unresponsive, clearing", logger.FNode("predecessor", pred), logger.F("err", err))
	if err := n.pool.Release(pred.Addr); err != nil {
		n.lgr.Warn("CheckPredecessor: failed to release dead predecessor", logger.F("err", err))
	}
	n.table.SetPredecessor(nil)
	promoted := n.store.PromoteReplicas()
	if len(promoted) > 0 {
		n.lgr.Info("CheckPredecessor: promoted replicas to primary after predecessor loss", logger.F("count", len(promoted)))
	}
}

// Find resolves key_string to its stored value, per spec §4.1 "find".
func (n *Node) Find(ctx context.Context, keyString string, isFile bool) (domain.Value, bool, string, error) {
	sp := n.table.Space()
	key := sp.NewIdFromString(keyString)

	if res, ok := n.store.GetReplica(key); ok {
		return n.resolveValue(res.Value, isFile)
	}

	succ, err := n.FindSuccessor(ctx, key)
	if err != nil {
		return domain.Value{}, false, "", err
	}
	if succ.ID.Equal(n.table.Self().ID) {
		if n.store.Tombstoned(key) {
			return domain.Value{}, false, "not found", nil
		}
		if res, ok := n.store.Get(key); ok {
			return n.resolveValue(res.Value, isFile)
		}
		return domain.Value{}, false, "not found", nil
	}

	var (
		val domain.Value
		ok  bool
		msg string
	)
	err = n.withConn(succ.Addr, func(conn *grpc.ClientConn) error {
		ctx, cancel := n.callTimeout(ctx)
		defer cancel()
		v, o, m, e := client.Find(ctx, conn, n.ring, keyString, isFile)
		val, ok, msg = v, o, m
		return e
	})
	return val, ok, msg, err
}

func (n *Node) resolveValue(v domain.Value, isFile bool) (domain.Value, bool, string, error) {
	if isFile && v.Kind == domain.KindPath {
		data, err := storage.Load(n.storageRoot, v)
		if err != nil {
			return domain.Value{}, false, "", err
		}
		return domain.Value{Kind: domain.KindBytes, Bytes: data}, true, "", nil
	}
	return v, true, "", nil
}

// Store writes key/value at its owner, per spec §4.1 "store".
func (n *Node) Store(ctx context.Context, keyString string, value domain.Value, overwrite, checkRemoved bool, persistPath string) (bool, string, error) {
	if value.Kind == domain.KindBytes && value.Bytes == nil && value.Path == "" {
		return false, "value must not be nil", nil
	}
	sp := n.table.Space()
	key := sp.NewIdFromString(keyString)

	succ, err := n.FindSuccessor(ctx, key)
	if err != nil {
		return false, "", err
	}
	if !succ.ID.Equal(n.table.Self().ID) {
		var ok bool
		var msg string
		err := n.withConn(succ.Addr, func(conn *grpc.ClientConn) error {
			ctx, cancel := n.callTimeout(ctx)
			defer cancel()
			o, m, e := client.Store(ctx, conn, n.ring, keyString, value, overwrite, checkRemoved, persistPath)
			ok, msg = o, m
			return e
		})
		return ok, msg, err
	}

	if persistPath != "" {
		path, err := storage.Persist(n.storageRoot, persistPath, value.Bytes)
		if err != nil {
			return false, "", err
		}
		value = domain.Value{Kind: domain.KindPath, Path: path}
	}

	res := domain.Resource{Key: key, RawKey: keyString, Value: value}
	tomb, err := n.store.Put(res, overwrite, checkRemoved)
	if err != nil {
		return false, err.Error(), nil
	}
	if tomb {
		return true, "tombstoned", nil
	}

	n.replicateToSuccessorAsync(res, persistPath)
	return true, "stored", nil
}

// replicateToSuccessorAsync best-effort mirrors res onto the successor's
// replica store; failure is logged but never surfaced as a store failure
// (spec §4.1 "store").
func (n *Node) replicateToSuccessorAsync(res domain.Resource, persistPath string) {
	succ := n.table.GetSuccessor()
	if succ == nil || succ.ID.Equal(n.table.Self().ID) {
		return
	}
	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), n.pool.FailureTimeout())
		defer cancel()
		if err := n.withConn(succ.Addr, func(conn *grpc.ClientConn) error {
			_, _, err := client.StoreReplica(ctx, conn, n.ring, res.RawKey, res.Value, persistPath)
			return err
		}); err != nil {
			n.lgr.Warn("replicateToSuccessorAsync: store_replica failed", logger.F("key", res.RawKey), logger.FNode("successor", succ), logger.F("err", err))
		}
	}()
}

// StoreReplica writes directly into the local replica store; it is invoked
// as a direct RPC by the key's primary owner, so it performs no ring
// routing of its own (spec §4.1 "store_replica").
func (n *Node) StoreReplica(keyString string, value domain.Value, persistPath string) (bool, string, error) {
	sp := n.table.Space()
	key := sp.NewIdFromString(keyString)
	if persistPath != "" && value.Kind != domain.KindPath {
		path, err := storage.Persist(n.storageRoot, persistPath, value.Bytes)
		if err != nil {
			return false, "", err
		}
		value = domain.Value{Kind: domain.KindPath, Path: path}
	}
	n.store.PutReplica(domain.Resource{Key: key, RawKey: keyString, Value: value})
	return true, "stored", nil
}

// Remove tombstones key at its owner, per spec §4.1 "remove".
func (n *Node) Remove(ctx context.Context, keyString string) (bool, string, error) {
	sp := n.table.Space()
	key := sp.NewIdFromString(keyString)

	succ, err := n.FindSuccessor(ctx, key)
	if err != nil {
		return false, "", err
	}
	if !succ.ID.Equal(n.table.Self().ID) {
		var ok bool
		var msg string
		err := n.withConn(succ.Addr, func(conn *grpc.ClientConn) error {
			ctx, cancel := n.callTimeout(ctx)
			defer cancel()
			o, m, e := client.Remove(ctx, conn, n.ring, keyString)
			ok, msg = o, m
			return e
		})
		return ok, msg, err
	}

	if res, ok := n.store.Get(key); ok {
		_ = storage.Evict(n.storageRoot, res.Value)
	}
	n.store.Remove(key, keyString)

	if succ := n.table.GetSuccessor(); succ != nil && !succ.ID.Equal(n.table.Self().ID) {
		go func() {
			ctx, cancel := context.WithTimeout(context.Background(), n.pool.FailureTimeout())
			defer cancel()
			if err := n.withConn(succ.Addr, func(conn *grpc.ClientConn) error {
				_, _, err := client.RemoveReplica(ctx, conn, n.ring, keyString)
				return err
			}); err != nil {
				n.lgr.Warn("Remove: remove_replica failed", logger.F("key", keyString), logger.F("err", err))
			}
		}()
	}
	return true, "removed", nil
}

// RemoveReplica deletes key from the local replica store only.
func (n *Node) RemoveReplica(keyString string) (bool, string, error) {
	sp := n.table.Space()
	key := sp.NewIdFromString(keyString)
	n.store.RemoveReplica(key)
	return true, "removed", nil
}

// GetPredecessorAddr returns the predecessor's address, or "" if unset.
func (n *Node) GetPredecessorAddr() string {
	if p := n.table.GetPredecessor(); p != nil {
		return p.Addr
	}
	return ""
}
