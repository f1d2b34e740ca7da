// Package chordring implements one classic Chord ring participant: ring
// position state (successor, predecessor, finger table), the ownership
// handoff/promotion protocol, and the periodic stabilization loops. A peer
// instantiates two independent Nodes — one per spec's RingKind — sharing
// nothing but the process's connection pool and cluster secret.
package chordring

import (
	"fmt"
	"sync"

	"distorage/internal/domain"
	"distorage/internal/logger"
)

// entry is a single mutex-guarded routing-table slot, mirroring the
// teacher's per-field locking idiom (routingtable.go's routingEntry):
// independent slots so finger updates never contend with successor or
// predecessor writes.
type entry struct {
	node *domain.Node
	mu   sync.RWMutex
}

func (e *entry) get() *domain.Node {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return e.node
}

func (e *entry) set(n *domain.Node) {
	e.mu.Lock()
	e.node = n
	e.mu.Unlock()
}

// Table holds one Chord node's ring-position state: successor, predecessor,
// and the Bits-sized finger table. It does not own key storage (see
// internal/storage) or remote transport (see internal/client) — only ring
// topology, so it can be exercised in isolation by tests.
type Table struct {
	lgr   logger.Logger
	space domain.Space
	self  *domain.Node

	successor   *entry
	predecessor *entry
	fingers     []*entry

	muNext     sync.Mutex
	nextFinger int
}

// TableOption configures a Table.
type TableOption func(*Table)

// WithTableLogger overrides the table's logger.
func WithTableLogger(l logger.Logger) TableOption {
	return func(t *Table) {
		if l != nil {
			t.lgr = l
		}
	}
}

// NewTable creates a Table for self in the given identifier space,
// initialized to single-node mode (successor = self, no predecessor, empty
// finger table).
func NewTable(self *domain.Node, space domain.Space, opts ...TableOption) *Table {
	t := &Table{
		lgr:         &logger.NopLogger{},
		space:       space,
		self:        self,
		successor:   &entry{node: self},
		predecessor: &entry{},
		fingers:     make([]*entry, space.Bits),
	}
	for i := range t.fingers {
		t.fingers[i] = &entry{}
	}
	for _, o := range opts {
		o(t)
	}
	t.lgr.Debug("routing table initialized", logger.FNode("self", self))
	return t
}

func (t *Table) Space() domain.Space { return t.space }
func (t *Table) Self() *domain.Node  { return t.self }

func (t *Table) GetSuccessor() *domain.Node { return t.successor.get() }
func (t *Table) SetSuccessor(n *domain.Node) {
	t.successor.set(n)
	t.lgr.Debug("successor updated", logger.FNode("successor", n))
}

func (t *Table) GetPredecessor() *domain.Node { return t.predecessor.get() }
func (t *Table) SetPredecessor(n *domain.Node) {
	t.predecessor.set(n)
	t.lgr.Debug("predecessor updated", logger.FNode("predecessor", n))
}

// GetFinger returns the node at finger slot i, or nil if index is out of
// range or unset.
func (t *Table) GetFinger(i int) *domain.Node {
	if i < 0 || i >= len(t.fingers) {
		return nil
	}
	return t.fingers[i].get()
}

// SetFinger updates finger slot i.
func (t *Table) SetFinger(i int, n *domain.Node) {
	if i < 0 || i >= len(t.fingers) {
		t.lgr.Warn("SetFinger: index out of range", logger.F("index", i))
		return
	}
	t.fingers[i].set(n)
}

// NextFinger returns the rolling finger index to refresh on the next
// fix_fingers tick, then advances it (mod Bits) for the tick after that.
func (t *Table) NextFinger() int {
	t.muNext.Lock()
	defer t.muNext.Unlock()
	i := t.nextFinger
	t.nextFinger = (t.nextFinger + 1) % t.space.Bits
	return i
}

// ClosestPrecedingNode returns the highest-indexed finger whose ID lies in
// the open interval (self.ID, id), per spec §4.1. Returns self if no finger
// qualifies (the caller is then responsible for the key itself, or the
// ring is still too small to have useful fingers).
func (t *Table) ClosestPrecedingNode(id domain.ID) *domain.Node {
	for i := len(t.fingers) - 1; i >= 0; i-- {
		f := t.fingers[i].get()
		if f == nil {
			continue
		}
		if f.ID.Between(t.self.ID, id) && !f.ID.Equal(id) {
			return f
		}
	}
	return t.self
}

// DebugLog emits a structured DEBUG-level snapshot of the routing table.
func (t *Table) DebugLog() {
	succ := t.successor.get()
	pred := t.predecessor.get()
	set := 0
	for _, f := range t.fingers {
		if f.get() != nil {
			set++
		}
	}
	t.lgr.Debug("RoutingTable snapshot",
		logger.FNode("self", t.self),
		logger.FNode("successor", succ),
		logger.FNode("predecessor", pred),
		logger.F("fingers_set", fmt.Sprintf("%d/%d", set, len(t.fingers))),
	)
}
