package domain

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSpaceNewIdFromStringDeterministic(t *testing.T) {
	sp, err := NewSpace(160)
	require.NoError(t, err)

	a := sp.NewIdFromString("127.0.0.1:9000")
	b := sp.NewIdFromString("127.0.0.1:9000")
	c := sp.NewIdFromString("127.0.0.1:9001")

	assert.True(t, a.Equal(b))
	assert.False(t, a.Equal(c))
	assert.Len(t, []byte(a), sp.ByteLen)
}

func TestSpaceNonByteAlignedMasksTopBits(t *testing.T) {
	sp, err := NewSpace(6)
	require.NoError(t, err)

	id := sp.NewIdFromString("anything")
	require.NoError(t, sp.IsValidID(id))
	assert.Equal(t, 1, sp.ByteLen)
}

func TestIDBetweenLinearAndWrapping(t *testing.T) {
	sp, err := NewSpace(8)
	require.NoError(t, err)

	a := sp.FromUint64(10)
	b := sp.FromUint64(20)
	x := sp.FromUint64(15)

	assert.True(t, x.Between(a, b), "linear interval (10,20] should contain 15")
	assert.False(t, a.Between(a, b), "interval is open at the left bound")
	assert.True(t, b.Between(a, b), "interval is closed at the right bound")

	// wrap-around: (200, 50]
	wrapLo := sp.FromUint64(200)
	wrapHi := sp.FromUint64(50)
	assert.True(t, sp.FromUint64(250).Between(wrapLo, wrapHi))
	assert.True(t, sp.FromUint64(10).Between(wrapLo, wrapHi))
	assert.False(t, sp.FromUint64(100).Between(wrapLo, wrapHi))
}

func TestIDBetweenFullRingWhenBoundsEqual(t *testing.T) {
	sp, err := NewSpace(8)
	require.NoError(t, err)
	a := sp.FromUint64(42)
	assert.True(t, sp.FromUint64(0).Between(a, a))
	assert.True(t, sp.FromUint64(255).Between(a, a))
}

func TestFingerTargetWraps(t *testing.T) {
	sp, err := NewSpace(8)
	require.NoError(t, err)

	id := sp.FromUint64(250)
	target, err := sp.FingerTarget(id, 3) // 250 + 8 = 258 mod 256 = 2
	require.NoError(t, err)
	assert.Equal(t, sp.FromUint64(2), target)
}

func TestFromHexStringRoundTrip(t *testing.T) {
	sp, err := NewSpace(160)
	require.NoError(t, err)

	id := sp.NewIdFromString("seed")
	parsed, err := sp.FromHexString(id.ToHexString(true))
	require.NoError(t, err)
	assert.True(t, id.Equal(parsed))
}
