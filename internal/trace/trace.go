package trace

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"time"

	"distorage/internal/domain"
)

type traceKey struct{}

// GenerateTraceID creates a globally unique trace identifier in the form
// "<nodeID>-<unixnano>-<random>".
func GenerateTraceID(nodeID string) string {
	var buf [8]byte
	_, _ = rand.Read(buf[:])
	return fmt.Sprintf("%s-%d-%s", nodeID, time.Now().UTC().UnixNano(), hex.EncodeToString(buf[:]))
}

// AttachTraceID generates and stores a traceID in the context, derived
// from the provided nodeID. Returns the new context and the traceID.
func AttachTraceID(ctx context.Context, nodeID domain.ID) (context.Context, string) {
	traceID := GenerateTraceID(nodeID.String())
	return context.WithValue(ctx, traceKey{}, traceID), traceID
}

// GetTraceID retrieves the traceID from the context, or "" if absent.
func GetTraceID(ctx context.Context) string {
	if v := ctx.Value(traceKey{}); v != nil {
		if id, ok := v.(string); ok && id != "" {
			return id
		}
	}
	return ""
}
