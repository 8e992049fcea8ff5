package lsm

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/flashkv/flashkv/codec"
	"github.com/flashkv/flashkv/pool"
)

func newTestTable(t *testing.T, opts ...Option[uint64, uint64]) *Table[uint64, uint64] {
	t.Helper()
	p := pool.New(16)
	runsDir := filepath.Join(t.TempDir(), "disktables")
	allOpts := append([]Option[uint64, uint64]{WithRunsDir[uint64, uint64](runsDir)}, opts...)
	tbl, err := New[uint64, uint64]("t1", p, codec.Uint64Codec{}, codec.Uint64Codec{}, allOpts...)
	require.NoError(t, err)
	return tbl
}

// TestRoundTripNoSpill is scenario S1.
func TestRoundTripNoSpill(t *testing.T) {
	tbl := newTestTable(t)

	require.NoError(t, tbl.Put(1, codec.Some(uint64(10))))
	require.NoError(t, tbl.Put(2, codec.Some(uint64(20))))

	v, ok, err := tbl.Get(1)
	require.NoError(t, err)
	require.True(t, ok)
	require.Equal(t, uint64(10), v)

	v, ok, err = tbl.Get(2)
	require.NoError(t, err)
	require.True(t, ok)
	require.Equal(t, uint64(20), v)

	_, ok, err = tbl.Get(3)
	require.NoError(t, err)
	require.False(t, ok)
}

// TestTombstoneSurvivesMerge is scenario S2.
func TestTombstoneSurvivesMerge(t *testing.T) {
	tbl := newTestTable(t)

	require.NoError(t, tbl.Put(5, codec.Some(uint64(50))))
	require.NoError(t, tbl.Merge())
	require.NoError(t, tbl.rebuildIndex())

	require.NoError(t, tbl.Put(5, codec.None[uint64]()))

	_, ok, err := tbl.Get(5)
	require.NoError(t, err)
	require.False(t, ok)

	require.NoError(t, tbl.Merge())
	require.NoError(t, tbl.rebuildIndex())

	_, ok, err = tbl.Get(5)
	require.NoError(t, err)
	require.False(t, ok)
}

// TestUpdateAcrossMerge is scenario S3.
func TestUpdateAcrossMerge(t *testing.T) {
	tbl := newTestTable(t)

	require.NoError(t, tbl.Put(7, codec.Some(uint64(70))))
	require.NoError(t, tbl.Merge())
	require.NoError(t, tbl.rebuildIndex())

	require.NoError(t, tbl.Put(7, codec.Some(uint64(71))))
	v, ok, err := tbl.Get(7)
	require.NoError(t, err)
	require.True(t, ok)
	require.Equal(t, uint64(71), v)

	require.NoError(t, tbl.Merge())
	require.NoError(t, tbl.rebuildIndex())

	v, ok, err = tbl.Get(7)
	require.NoError(t, err)
	require.True(t, ok)
	require.Equal(t, uint64(71), v)
}

// TestSpillTriggersMergeAndKeepsIndexConsistent is scenario S4, adapted to
// uint64 keys (see DESIGN.md for why u128 was dropped).
func TestSpillTriggersMergeAndKeepsIndexConsistent(t *testing.T) {
	p := pool.New(4)
	runsDir := filepath.Join(t.TempDir(), "disktables")
	tbl, err := New[uint64, uint64]("spill", p, codec.Uint64Codec{}, codec.Uint64Codec{},
		WithRunsDir[uint64, uint64](runsDir), WithMergeThreshold[uint64, uint64](512))
	require.NoError(t, err)

	const n = 2000
	for i := uint64(0); i < n; i++ {
		require.NoError(t, tbl.Put(i, codec.Some(i+1)))
	}

	require.GreaterOrEqual(t, tbl.MergeCount(), 1)

	for i := uint64(0); i < n; i++ {
		v, ok, err := tbl.Get(i)
		require.NoError(t, err, "key %d", i)
		require.True(t, ok, "key %d", i)
		require.Equal(t, i+1, v)
	}
}

func TestGetMissingKeyReturnsFalse(t *testing.T) {
	tbl := newTestTable(t)
	_, ok, err := tbl.Get(42)
	require.NoError(t, err)
	require.False(t, ok)
}
