// Package bootstrap resolves the initial peer set a node joins through,
// and optionally publishes/retracts the node's own address. Three
// implementations are provided: a static peer list, a local subnet scan,
// and (opt-in) AWS Route53 SRV records — a node always runs one of them.
package bootstrap

import (
	"context"

	"distorage/internal/domain"
)

// Bootstrap is implemented by every discovery strategy.
type Bootstrap interface {
	// Discover returns the addresses of peers the caller should try to
	// join through.
	Discover(ctx context.Context) ([]string, error)
	// Register publishes the node's address, if the strategy needs to
	// (e.g. Route53); static/subnet modes no-op.
	Register(ctx context.Context, node *domain.Node) error
	// Deregister retracts what Register published.
	Deregister(ctx context.Context, node *domain.Node) error
}
