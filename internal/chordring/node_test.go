package chordring

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"

	"distorage/internal/client"
	"distorage/internal/domain"
)

func newTestNode(t *testing.T, addr string) *Node {
	t.Helper()
	sp := testSpace(t)
	self := &domain.Node{ID: sp.NewIdFromString(addr), Addr: addr}
	pool := client.NewPool()
	return New(self, domain.RingClients, sp, "secret", t.TempDir(), pool)
}

func TestSingleNodeFindSuccessorReturnsSelf(t *testing.T) {
	n := newTestNode(t, "solo")
	sp := n.Space()

	succ, err := n.FindSuccessor(context.Background(), sp.NewIdFromString("anykey"))
	require.NoError(t, err)
	require.True(t, succ.ID.Equal(n.Self().ID))
}

func TestNotifyAdoptsFirstPredecessorAndIgnoresRepeat(t *testing.T) {
	n := newTestNode(t, "self")

	n.Notify("candidate-a")
	pred := n.Table().GetPredecessor()
	require.NotNil(t, pred)
	require.Equal(t, "candidate-a", pred.Addr)

	// Repeating the same notify must not trigger another handoff/update path.
	n.Notify("candidate-a")
	require.Equal(t, "candidate-a", n.Table().GetPredecessor().Addr)
}

func TestStoreAndFindRoundTripWhenSelfOwnsKey(t *testing.T) {
	n := newTestNode(t, "owner")
	ctx := context.Background()

	ok, msg, err := n.Store(ctx, "file-key", domain.Value{Kind: domain.KindBytes, Bytes: []byte("hello")}, true, false, "")
	require.NoError(t, err)
	require.True(t, ok)
	require.Equal(t, "stored", msg)

	val, ok, _, err := n.Find(ctx, "file-key", false)
	require.NoError(t, err)
	require.True(t, ok)
	require.Equal(t, []byte("hello"), val.Bytes)
}

func TestStoreRejectsDuplicateWithoutOverwrite(t *testing.T) {
	n := newTestNode(t, "owner2")
	ctx := context.Background()

	_, _, err := n.Store(ctx, "k", domain.Value{Kind: domain.KindBytes, Bytes: []byte("a")}, true, false, "")
	require.NoError(t, err)

	ok, msg, err := n.Store(ctx, "k", domain.Value{Kind: domain.KindBytes, Bytes: []byte("b")}, false, false, "")
	require.NoError(t, err)
	require.False(t, ok)
	require.NotEmpty(t, msg)
}

func TestRemoveThenStoreSuppressesResurrectionWithCheckRemoved(t *testing.T) {
	n := newTestNode(t, "owner3")
	ctx := context.Background()

	_, _, err := n.Store(ctx, "k", domain.Value{Kind: domain.KindBytes, Bytes: []byte("a")}, true, false, "")
	require.NoError(t, err)

	ok, msg, err := n.Remove(ctx, "k")
	require.NoError(t, err)
	require.True(t, ok)
	require.Equal(t, "removed", msg)

	ok, msg, err = n.Store(ctx, "k", domain.Value{Kind: domain.KindBytes, Bytes: []byte("replicated")}, true, true, "")
	require.NoError(t, err)
	require.True(t, ok)
	require.Equal(t, "tombstoned", msg)

	_, found, _, err := n.Find(ctx, "k", false)
	require.NoError(t, err)
	require.False(t, found)
}

func TestRemoveThenExplicitStoreClearsTombstone(t *testing.T) {
	n := newTestNode(t, "owner4")
	ctx := context.Background()

	_, _, err := n.Store(ctx, "k", domain.Value{Kind: domain.KindBytes, Bytes: []byte("a")}, true, false, "")
	require.NoError(t, err)
	_, _, err = n.Remove(ctx, "k")
	require.NoError(t, err)

	ok, msg, err := n.Store(ctx, "k", domain.Value{Kind: domain.KindBytes, Bytes: []byte("new")}, true, false, "")
	require.NoError(t, err)
	require.True(t, ok)
	require.Equal(t, "stored", msg)

	val, found, _, err := n.Find(ctx, "k", false)
	require.NoError(t, err)
	require.True(t, found)
	require.Equal(t, []byte("new"), val.Bytes)
}

func TestCheckPredecessorWithNoPredecessorIsNoop(t *testing.T) {
	n := newTestNode(t, "lonely")
	n.CheckPredecessor(context.Background())
	require.Nil(t, n.Table().GetPredecessor())
}
