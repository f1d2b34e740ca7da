package storage

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"distorage/internal/domain"
)

func testSpace(t *testing.T) domain.Space {
	t.Helper()
	sp, err := domain.NewSpace(160)
	require.NoError(t, err)
	return sp
}

func res(t *testing.T, raw string) domain.Resource {
	t.Helper()
	sp := testSpace(t)
	id := sp.NewIdFromString(raw)
	return domain.Resource{Key: id, RawKey: raw, Value: domain.Value{Kind: domain.KindBytes, Bytes: []byte(raw)}}
}

func TestPutRejectsDuplicateWithoutOverwrite(t *testing.T) {
	s := New()
	r := res(t, "alice")

	_, err := s.Put(r, false, false)
	require.NoError(t, err)

	_, err = s.Put(r, false, false)
	assert.ErrorIs(t, err, ErrAlreadyExists)
}

func TestPutSuppressesResurrectionOfTombstone(t *testing.T) {
	s := New()
	r := res(t, "alice")
	s.Remove(r.Key, r.RawKey)

	tomb, err := s.Put(r, true, true)
	require.NoError(t, err)
	assert.True(t, tomb)
	_, ok := s.Get(r.Key)
	assert.False(t, ok)
}

func TestPutExplicitClearsTombstone(t *testing.T) {
	s := New()
	r := res(t, "alice")
	s.Remove(r.Key, r.RawKey)

	tomb, err := s.Put(r, true, false)
	require.NoError(t, err)
	assert.False(t, tomb)
	_, ok := s.Get(r.Key)
	assert.True(t, ok)
	assert.False(t, s.Tombstoned(r.Key))
}

func TestPromoteReplicasMovesAllIntoPrimary(t *testing.T) {
	s := New()
	r := res(t, "bob")
	s.PutReplica(r)

	promoted := s.PromoteReplicas()
	assert.Len(t, promoted, 1)
	_, ok := s.Get(r.Key)
	assert.True(t, ok)
	_, ok = s.GetReplica(r.Key)
	assert.False(t, ok)
}

func TestBetweenFiltersByArc(t *testing.T) {
	s := New()
	sp := testSpace(t)
	r := res(t, "carol")
	_, err := s.Put(r, true, false)
	require.NoError(t, err)

	lo := sp.Zero()
	hi := r.Key
	found := s.Between(lo, hi)
	require.Len(t, found, 1)
	assert.Equal(t, r.Key, found[0].Key)
}
