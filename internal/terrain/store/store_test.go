package store

import (
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func setupTestStore(t *testing.T) *Store {
	t.Helper()
	s, err := New(filepath.Join(t.TempDir(), "terrain.db"))
	require.NoError(t, err, "open store")
	t.Cleanup(func() { s.Close() })
	return s
}

func gridOf(res int, v float64) []float64 {
	values := make([]float64, res*res)
	for i := range values {
		values[i] = v
	}
	return values
}

func TestSerializeRoundTrip(t *testing.T) {
	in := []float64{0, 0.25, 0.5, 1}
	blob, err := serializeHeights(in)
	require.NoError(t, err)

	out, err := deserializeHeights(blob)
	require.NoError(t, err)
	assert.Equal(t, in, out)
}

func TestDeserializeRejectsGarbage(t *testing.T) {
	_, err := deserializeHeights(nil)
	assert.Error(t, err)
	_, err = deserializeHeights([]byte("not a gzip stream"))
	assert.Error(t, err)
}

func TestInsertAndLatestSnapshot(t *testing.T) {
	s := setupTestStore(t)

	_, err := s.LatestSnapshot()
	assert.ErrorIs(t, err, ErrNoSnapshot)

	id, err := s.InsertSnapshot(&Snapshot{
		Resolution: 4,
		Heights:    gridOf(4, 0.3),
		Reason:     "periodic",
	})
	require.NoError(t, err)
	assert.NotEmpty(t, id)

	snap, err := s.LatestSnapshot()
	require.NoError(t, err)
	assert.Equal(t, id, snap.SnapshotID)
	assert.Equal(t, 4, snap.Resolution)
	assert.Equal(t, "periodic", snap.Reason)
	assert.Equal(t, gridOf(4, 0.3), snap.Heights)
	assert.NotZero(t, snap.TakenUnixNanos)
}

func TestLatestSnapshotOrdersByTime(t *testing.T) {
	s := setupTestStore(t)

	base := time.Now().UnixNano()
	for i, v := range []float64{0.1, 0.2, 0.3} {
		_, err := s.InsertSnapshot(&Snapshot{
			TakenUnixNanos: base + int64(i),
			Resolution:     2,
			Heights:        gridOf(2, v),
			Reason:         "periodic",
		})
		require.NoError(t, err)
	}

	snap, err := s.LatestSnapshot()
	require.NoError(t, err)
	assert.Equal(t, gridOf(2, 0.3), snap.Heights)
}

func TestInsertRejectsMismatchedResolution(t *testing.T) {
	s := setupTestStore(t)
	_, err := s.InsertSnapshot(&Snapshot{Resolution: 4, Heights: gridOf(2, 0.5)})
	assert.Error(t, err)
}

func TestGetSnapshotByID(t *testing.T) {
	s := setupTestStore(t)

	id, err := s.InsertSnapshot(&Snapshot{Resolution: 2, Heights: gridOf(2, 0.7)})
	require.NoError(t, err)

	snap, err := s.GetSnapshot(id)
	require.NoError(t, err)
	assert.Equal(t, gridOf(2, 0.7), snap.Heights)

	_, err = s.GetSnapshot("no-such-id")
	assert.ErrorIs(t, err, ErrNoSnapshot)
}

func TestListSnapshotsMetadataOnly(t *testing.T) {
	s := setupTestStore(t)

	base := time.Now().UnixNano()
	for i := 0; i < 5; i++ {
		_, err := s.InsertSnapshot(&Snapshot{
			TakenUnixNanos: base + int64(i),
			Resolution:     2,
			Heights:        gridOf(2, float64(i)/10),
			Reason:         "periodic",
		})
		require.NoError(t, err)
	}

	snaps, err := s.ListSnapshots(3)
	require.NoError(t, err)
	require.Len(t, snaps, 3)
	assert.Nil(t, snaps[0].Heights, "listing should not decode blobs")
	assert.Greater(t, snaps[0].BlobBytes, 0)
	assert.Greater(t, snaps[0].TakenUnixNanos, snaps[1].TakenUnixNanos)
}

func TestPruneKeepsNewest(t *testing.T) {
	s := setupTestStore(t)

	base := time.Now().UnixNano()
	var last string
	for i := 0; i < 5; i++ {
		id, err := s.InsertSnapshot(&Snapshot{
			TakenUnixNanos: base + int64(i),
			Resolution:     2,
			Heights:        gridOf(2, float64(i)/10),
		})
		require.NoError(t, err)
		last = id
	}

	removed, err := s.Prune(2)
	require.NoError(t, err)
	assert.EqualValues(t, 3, removed)

	snaps, err := s.ListSnapshots(10)
	require.NoError(t, err)
	require.Len(t, snaps, 2)
	assert.Equal(t, last, snaps[0].SnapshotID)
}

func TestSnapshotStoreContract(t *testing.T) {
	s := setupTestStore(t)

	_, _, err := s.LoadLatestHeights()
	assert.ErrorIs(t, err, ErrNoSnapshot)

	require.NoError(t, s.SaveHeights(4, gridOf(4, 0.6), "shutdown"))

	res, values, err := s.LoadLatestHeights()
	require.NoError(t, err)
	assert.Equal(t, 4, res)
	assert.Equal(t, gridOf(4, 0.6), values)
}

func TestReopenPreservesData(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "terrain.db")

	s, err := New(path)
	require.NoError(t, err)
	require.NoError(t, s.SaveHeights(2, gridOf(2, 0.9), "shutdown"))
	require.NoError(t, s.Close())

	// Reopening runs migrations again; they must be idempotent.
	s2, err := New(path)
	require.NoError(t, err)
	defer s2.Close()

	res, values, err := s2.LoadLatestHeights()
	require.NoError(t, err)
	assert.Equal(t, 2, res)
	assert.Equal(t, gridOf(2, 0.9), values)
}
