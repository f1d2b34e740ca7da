package peer

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"distorage/internal/chordring"
	"distorage/internal/client"
	"distorage/internal/domain"
)

func newTestManager(t *testing.T, addr string) *Manager {
	t.Helper()
	sp, err := domain.NewSpace(8)
	require.NoError(t, err)
	self := &domain.Node{ID: sp.NewIdFromString(addr), Addr: addr}
	pool := client.NewPool()
	ringClients := chordring.New(self, domain.RingClients, sp, "secret", t.TempDir(), pool)
	ringData := chordring.New(self, domain.RingData, sp, "secret", t.TempDir(), pool)
	return New(addr, "secret", pool, ringClients, ringData)
}

func TestRegisterAcceptsMatchingSecret(t *testing.T) {
	m := newTestManager(t, "self")
	ok, msg := m.Register("peer-a", "secret")
	require.True(t, ok)
	require.NotEmpty(t, msg)
	require.Contains(t, m.KnownPeers(), "peer-a")
}

func TestRegisterRejectsBadSecretUnlessAlreadyKnown(t *testing.T) {
	m := newTestManager(t, "self")
	ok, _ := m.Register("peer-a", "wrong")
	require.False(t, ok)

	m.AddKnown("peer-b")
	ok, _ = m.Register("peer-b", "wrong")
	require.True(t, ok)
}

func TestDropToOldAndPromoteFromOld(t *testing.T) {
	m := newTestManager(t, "self")
	m.AddKnown("peer-a")
	m.DropToOld("peer-a")
	require.NotContains(t, m.KnownPeers(), "peer-a")
	require.Contains(t, m.OldPeers(), "peer-a")

	m.PromoteFromOld("peer-a")
	require.NotContains(t, m.OldPeers(), "peer-a")
}

func TestTimeoutMovesStalePeersToOld(t *testing.T) {
	m := newTestManager(t, "self")
	m.AddKnown("peer-a")

	m.Timeout(0)
	require.NotContains(t, m.KnownPeers(), "peer-a")
	require.Contains(t, m.OldPeers(), "peer-a")
}

func TestTimeoutKeepsFreshPeers(t *testing.T) {
	m := newTestManager(t, "self")
	m.AddKnown("peer-a")

	m.Timeout(time.Hour)
	require.Contains(t, m.KnownPeers(), "peer-a")
}
