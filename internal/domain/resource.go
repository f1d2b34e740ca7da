package domain

import "errors"

var (
	ErrResourceNotFound = errors.New("resource not found")
	ErrNotResponsible   = errors.New("node not responsible for the given key")
	ErrTombstoned       = errors.New("resource has been deleted")
)

// ValueKind tags the concrete representation carried by a Value.
type ValueKind int

const (
	// KindBytes holds raw payloads inline (file contents before they are
	// persisted, or when no persist path is given).
	KindBytes ValueKind = iota
	// KindJSON marks a Bytes payload that is itself a JSON document,
	// so callers can unmarshal it without guessing.
	KindJSON
	// KindPath defers to a file on the owning node's local disk; Path is
	// relative to the node's configured storage root.
	KindPath
)

// Value is the tagged-variant payload stored at a ring key.
type Value struct {
	Kind  ValueKind
	Bytes []byte
	Path  string
}

// Resource is a key/value pair as stored in the ring, plus the original
// (pre-hash) key string for diagnostics and listing.
type Resource struct {
	Key    ID
	RawKey string
	Value  Value
}
