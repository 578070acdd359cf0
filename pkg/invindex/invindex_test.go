package invindex

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/maxsimdb/maxsimdb/pkg/storage"
)

func openStore(t *testing.T) *storage.Store {
	t.Helper()
	s, err := storage.Open(filepath.Join(t.TempDir(), "engine.db"), storage.Options{})
	require.NoError(t, err)
	t.Cleanup(func() { _ = s.Close() })
	return s
}

func TestAdd_WritesPostingsAndCountsPerUniqueCentroid(t *testing.T) {
	s := openStore(t)
	require.NoError(t, s.Write(func(b *storage.Batch) error {
		return Add(b, 1, 42, map[uint32]int{3: 5, 7: 2})
	}))

	sn, err := s.View()
	require.NoError(t, err)
	defer sn.Close()

	docs, err := PostingList(sn, 1, 3)
	require.NoError(t, err)
	assert.Equal(t, []uint64{42}, docs)

	v, ok := sn.Get(storage.FamilyInvertedCounts, storage.TenantDocCentroid(1, 42, 3))
	require.True(t, ok)
	assert.Equal(t, uint32(5), beUint32(v))
}

func TestRemove_DeletesPostingsAndCounts(t *testing.T) {
	s := openStore(t)
	require.NoError(t, s.Write(func(b *storage.Batch) error {
		return Add(b, 1, 42, map[uint32]int{3: 5, 7: 2})
	}))

	require.NoError(t, s.Write(func(b *storage.Batch) error {
		return Remove(b, 1, 42)
	}))

	sn, err := s.View()
	require.NoError(t, err)
	defer sn.Close()

	docs, err := PostingList(sn, 1, 3)
	require.NoError(t, err)
	assert.Empty(t, docs)

	_, ok := sn.Get(storage.FamilyInvertedCounts, storage.TenantDocCentroid(1, 42, 3))
	assert.False(t, ok)
}

func TestGather_UnionsAcrossCentroidsAndDeduplicates(t *testing.T) {
	s := openStore(t)
	require.NoError(t, s.Write(func(b *storage.Batch) error {
		if err := Add(b, 1, 1, map[uint32]int{0: 1, 1: 1}); err != nil {
			return err
		}
		return Add(b, 1, 2, map[uint32]int{1: 1})
	}))

	sn, err := s.View()
	require.NoError(t, err)
	defer sn.Close()

	set, err := Gather(sn, 1, []uint32{0, 1})
	require.NoError(t, err)
	assert.Equal(t, uint64(2), set.GetCardinality())
	assert.True(t, set.Contains(1))
	assert.True(t, set.Contains(2))
}

func TestGather_RespectsTenantIsolation(t *testing.T) {
	s := openStore(t)
	require.NoError(t, s.Write(func(b *storage.Batch) error {
		return Add(b, 1, 99, map[uint32]int{0: 1})
	}))

	sn, err := s.View()
	require.NoError(t, err)
	defer sn.Close()

	set, err := Gather(sn, 2, []uint32{0})
	require.NoError(t, err)
	assert.Equal(t, uint64(0), set.GetCardinality())
}

func beUint32(b []byte) uint32 {
	return uint32(b[0])<<24 | uint32(b[1])<<16 | uint32(b[2])<<8 | uint32(b[3])
}
