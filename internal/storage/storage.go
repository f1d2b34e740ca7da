// Package storage implements the per-ring three-way resource store: primary
// elements (elems), replica elements (repl_elems) held on behalf of the
// predecessor, and tombstones (removed_elems) recording explicit deletions.
package storage

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"sync"

	"distorage/internal/domain"
	"distorage/internal/logger"
)

var (
	ErrAlreadyExists = errors.New("resource already exists")
	ErrNilValue      = errors.New("value must not be nil")
)

// Store is an in-memory, concurrency-safe implementation of the three-way
// ring storage described by the ownership/replication/tombstone model.
// A single Store instance backs one chordring.Node (one per ring).
type Store struct {
	lgr logger.Logger
	mu  sync.RWMutex

	elems      map[string]domain.Resource
	replElems  map[string]domain.Resource
	removed    map[string]struct{}
	removedRaw map[string]string // id -> rawKey, kept for diagnostics/listing
}

// New creates an empty Store. Logging defaults to NopLogger unless
// overridden with WithLogger.
func New(opts ...Option) *Store {
	s := &Store{
		lgr:        &logger.NopLogger{},
		elems:      make(map[string]domain.Resource),
		replElems:  make(map[string]domain.Resource),
		removed:    make(map[string]struct{}),
		removedRaw: make(map[string]string),
	}
	for _, o := range opts {
		o(s)
	}
	s.lgr.Debug("storage initialized")
	return s
}

// Option configures a Store.
type Option func(*Store)

// WithLogger overrides the store's logger.
func WithLogger(l logger.Logger) Option {
	return func(s *Store) {
		if l != nil {
			s.lgr = l
		}
	}
}

// Tombstoned reports whether key is recorded as explicitly removed.
func (s *Store) Tombstoned(key domain.ID) bool {
	s.mu.RLock()
	_, ok := s.removed[key.String()]
	s.mu.RUnlock()
	return ok
}

// Get returns the primary resource for key, if any.
func (s *Store) Get(key domain.ID) (domain.Resource, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	res, ok := s.elems[key.String()]
	return res, ok
}

// GetReplica returns the replica resource for key, if any.
func (s *Store) GetReplica(key domain.ID) (domain.Resource, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	res, ok := s.replElems[key.String()]
	return res, ok
}

// Put inserts or updates the primary resource for res.Key.
//
// overwrite=false rejects an existing entry with ErrAlreadyExists.
// checkRemoved=true short-circuits with (ok=true) and no write when the key
// is tombstoned, per spec's "suppress replication-driven resurrection" rule;
// the caller is expected to translate that into the "tombstoned" message.
// An explicit store (checkRemoved=false) always clears the tombstone.
func (s *Store) Put(res domain.Resource, overwrite, checkRemoved bool) (tombstoned bool, err error) {
	key := res.Key.String()

	s.mu.Lock()
	defer s.mu.Unlock()

	if checkRemoved {
		if _, removed := s.removed[key]; removed {
			return true, nil
		}
	}
	if !overwrite {
		if _, exists := s.elems[key]; exists {
			return false, ErrAlreadyExists
		}
	}

	s.elems[key] = res
	delete(s.removed, key)
	delete(s.removedRaw, key)
	s.lgr.Debug("Put: primary resource stored", logger.FResource("resource", res))
	return false, nil
}

// PutReplica inserts or updates the replica resource for res.Key. Tombstones
// are never consulted for replica writes.
func (s *Store) PutReplica(res domain.Resource) {
	s.mu.Lock()
	s.replElems[res.Key.String()] = res
	s.mu.Unlock()
	s.lgr.Debug("PutReplica: replica resource stored", logger.FResource("resource", res))
}

// Remove deletes key from both elems and repl_elems and records a tombstone.
func (s *Store) Remove(key domain.ID, rawKey string) {
	k := key.String()
	s.mu.Lock()
	delete(s.elems, k)
	delete(s.replElems, k)
	s.removed[k] = struct{}{}
	s.removedRaw[k] = rawKey
	s.mu.Unlock()
	s.lgr.Debug("Remove: resource tombstoned", logger.F("key", k))
}

// RemoveReplica deletes key from repl_elems only; tombstones are not touched
// since a replica removal is not an authoritative deletion.
func (s *Store) RemoveReplica(key domain.ID) {
	s.mu.Lock()
	delete(s.replElems, key.String())
	s.mu.Unlock()
	s.lgr.Debug("RemoveReplica: replica dropped", logger.F("key", key.String()))
}

// PromoteReplicas moves every repl_elems entry into elems and empties the
// replica store. Called when the predecessor disappears: its arc becomes
// ours, so the replicas we held for it become primaries.
func (s *Store) PromoteReplicas() []domain.Resource {
	s.mu.Lock()
	defer s.mu.Unlock()
	promoted := make([]domain.Resource, 0, len(s.replElems))
	for k, res := range s.replElems {
		s.elems[k] = res
		promoted = append(promoted, res)
	}
	s.replElems = make(map[string]domain.Resource)
	if len(promoted) > 0 {
		s.lgr.Info("PromoteReplicas: replicas promoted to primary", logger.F("count", len(promoted)))
	}
	return promoted
}

// Between returns every primary resource whose key lies in (from, to].
// Used by ownership-handoff scans on predecessor change.
func (s *Store) Between(from, to domain.ID) []domain.Resource {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []domain.Resource
	for _, res := range s.elems {
		if res.Key.Between(from, to) {
			out = append(out, res)
		}
	}
	return out
}

// DeletePrimary removes key from elems without tombstoning it; used once an
// ownership-handoff re-store at the new owner has succeeded.
func (s *Store) DeletePrimary(key domain.ID) {
	s.mu.Lock()
	delete(s.elems, key.String())
	s.mu.Unlock()
}

// AllPrimary returns a snapshot of every primary resource, used to reseed
// replicas on a successor change.
func (s *Store) AllPrimary() []domain.Resource {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]domain.Resource, 0, len(s.elems))
	for _, res := range s.elems {
		out = append(out, res)
	}
	return out
}

// Load resolves a Value into bytes, reading from disk when Kind is KindPath.
func Load(root string, v domain.Value) ([]byte, error) {
	switch v.Kind {
	case domain.KindPath:
		return os.ReadFile(filepath.Join(root, v.Path))
	default:
		return v.Bytes, nil
	}
}

// Persist writes bytes to root/relPath (creating parent directories) and
// returns the path to be stored in a KindPath Value.
func Persist(root, relPath string, data []byte) (string, error) {
	full := filepath.Join(root, relPath)
	if err := os.MkdirAll(filepath.Dir(full), 0o755); err != nil {
		return "", fmt.Errorf("persist: create dirs: %w", err)
	}
	if err := os.WriteFile(full, data, 0o644); err != nil {
		return "", fmt.Errorf("persist: write file: %w", err)
	}
	return relPath, nil
}

// Evict removes the persisted file backing a KindPath value, used once its
// bytes have been handed off to a new owner.
func Evict(root string, v domain.Value) error {
	if v.Kind != domain.KindPath {
		return nil
	}
	return os.Remove(filepath.Join(root, v.Path))
}

// DebugLog emits a structured DEBUG-level snapshot of the store contents.
func (s *Store) DebugLog() {
	s.mu.RLock()
	primary := make([]string, 0, len(s.elems))
	for k := range s.elems {
		primary = append(primary, k)
	}
	replica := make([]string, 0, len(s.replElems))
	for k := range s.replElems {
		replica = append(replica, k)
	}
	tombstones := len(s.removed)
	s.mu.RUnlock()

	sort.Strings(primary)
	sort.Strings(replica)
	s.lgr.Debug("Storage snapshot",
		logger.F("primary_count", len(primary)),
		logger.F("replica_count", len(replica)),
		logger.F("tombstone_count", tombstones),
		logger.F("primary_keys", primary),
		logger.F("replica_keys", replica),
	)
}
