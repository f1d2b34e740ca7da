package chordring

import (
	"testing"

	"github.com/stretchr/testify/require"

	"distorage/internal/domain"
)

func testSpace(t *testing.T) domain.Space {
	t.Helper()
	sp, err := domain.NewSpace(8)
	require.NoError(t, err)
	return sp
}

func nodeAt(sp domain.Space, addr string) *domain.Node {
	return &domain.Node{ID: sp.NewIdFromString(addr), Addr: addr}
}

func TestNewTableSingleNodeMode(t *testing.T) {
	sp := testSpace(t)
	self := nodeAt(sp, "n0")
	table := NewTable(self, sp)

	require.NotNil(t, table.GetSuccessor())
	require.True(t, table.GetSuccessor().ID.Equal(self.ID))
	require.Nil(t, table.GetPredecessor())
}

func TestClosestPrecedingNodeFallsBackToSelf(t *testing.T) {
	sp := testSpace(t)
	self := nodeAt(sp, "n0")
	table := NewTable(self, sp)

	got := table.ClosestPrecedingNode(sp.NewIdFromString("somekey"))
	require.True(t, got.ID.Equal(self.ID))
}

func TestClosestPrecedingNodePicksHighestQualifyingFinger(t *testing.T) {
	sp := testSpace(t)
	self := nodeAt(sp, "n0")
	table := NewTable(self, sp)

	target := sp.NewIdFromString("target")
	var want *domain.Node
	for i := 0; i < sp.Bits; i++ {
		ft, err := sp.FingerTarget(self.ID, i)
		require.NoError(t, err)
		candidate := &domain.Node{ID: ft, Addr: "finger"}
		table.SetFinger(i, candidate)
		if candidate.ID.Between(self.ID, target) && !candidate.ID.Equal(target) {
			want = candidate
		}
	}

	got := table.ClosestPrecedingNode(target)
	require.NotNil(t, got)
	if want != nil {
		require.True(t, got.ID.Equal(want.ID))
	}
}

func TestNextFingerAdvancesAndWraps(t *testing.T) {
	sp := testSpace(t)
	self := nodeAt(sp, "n0")
	table := NewTable(self, sp)

	seen := make(map[int]bool)
	for i := 0; i < sp.Bits*2; i++ {
		idx := table.NextFinger()
		require.GreaterOrEqual(t, idx, 0)
		require.Less(t, idx, sp.Bits)
		seen[idx] = true
	}
	require.Len(t, seen, sp.Bits)
}
