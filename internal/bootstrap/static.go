package bootstrap

import (
	"context"

	"distorage/internal/domain"
)

// StaticBootstrap returns a fixed, configured peer list.
type StaticBootstrap struct {
	peers []string
}

func NewStaticBootstrap(peers []string) *StaticBootstrap {
	return &StaticBootstrap{peers: peers}
}

func (s *StaticBootstrap) Discover(ctx context.Context) ([]string, error) {
	return s.peers, nil
}

func (s *StaticBootstrap) Register(ctx context.Context, node *domain.Node) error {
	return nil
}

func (s *StaticBootstrap) Deregister(ctx context.Context, node *domain.Node) error {
	return nil
}
