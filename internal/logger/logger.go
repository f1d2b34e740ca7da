package logger

import "distorage/internal/domain"

// Field represents a structured key:value log field.
type Field struct {
	Key string
	Val any
}

// Logger is the minimal structured-logging interface every package in
// this tree depends on.
type Logger interface {
	Named(name string) Logger
	With(fields ...Field) Logger
	Debug(msg string, fields ...Field)
	Info(msg string, fields ...Field)
	Warn(msg string, fields ...Field)
	Error(msg string, fields ...Field)
}

// F is a concise helper for building a Field.
func F(key string, val any) Field { return Field{Key: key, Val: val} }

// FNode renders a *domain.Node as a readable structured field. A nil node
// (no successor, no predecessor) logs as a literal nil value rather than
// panicking, since routing-table pointers are frequently unset.
func FNode(key string, n *domain.Node) Field {
	if n == nil {
		return Field{Key: key, Val: nil}
	}
	return Field{
		Key: key,
		Val: map[string]any{
			"id":   n.ID.ToHexString(false),
			"addr": n.Addr,
		},
	}
}

// FResource renders a domain.Resource as a readable structured field,
// without leaking raw file bytes into the log line.
func FResource(key string, r domain.Resource) Field {
	v := map[string]any{"kind": r.Value.Kind}
	switch r.Value.Kind {
	case domain.KindPath:
		v["path"] = r.Value.Path
	default:
		v["bytes"] = len(r.Value.Bytes)
	}
	return Field{
		Key: key,
		Val: map[string]any{
			"key":    r.Key.ToHexString(false),
			"rawKey": r.RawKey,
			"value":  v,
		},
	}
}

// ----------------------------------------------------------------

// NopLogger is a Logger implementation that discards everything. It is
// the default used by every constructor until WithLogger is supplied.
type NopLogger struct{}

func (l *NopLogger) Named(name string) Logger          { return l }
func (l *NopLogger) With(fields ...Field) Logger       { return l }
func (l *NopLogger) Debug(msg string, fields ...Field) {}
func (l *NopLogger) Info(msg string, fields ...Field)  {}
func (l *NopLogger) Warn(msg string, fields ...Field)  {}
func (l *NopLogger) Error(msg string, fields ...Field) {}
