package storage

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func openTemp(t *testing.T) *Store {
	t.Helper()
	path := filepath.Join(t.TempDir(), "engine.db")
	s, err := Open(path, Options{})
	require.NoError(t, err)
	t.Cleanup(func() { _ = s.Close() })
	return s
}

func TestOpen_CreatesAllFamilies(t *testing.T) {
	s := openTemp(t)
	sn, err := s.View()
	require.NoError(t, err)
	defer sn.Close()

	for _, f := range allFamilies {
		_, ok := sn.Get(f, []byte("missing"))
		assert.False(t, ok)
	}
}

func TestWrite_IsAtomicAcrossFamilies(t *testing.T) {
	s := openTemp(t)

	key := TenantCentroidDoc(1, 3, 42)
	err := s.Write(func(b *Batch) error {
		if err := b.Put(FamilyInverted, key, []byte{1}); err != nil {
			return err
		}
		return b.Put(FamilyDoclens, TenantDocField(1, 42, 0), PutUint32(7))
	})
	require.NoError(t, err)

	sn, err := s.View()
	require.NoError(t, err)
	defer sn.Close()

	v, ok := sn.Get(FamilyInverted, key)
	require.True(t, ok)
	assert.Equal(t, []byte{1}, v)

	v, ok = sn.Get(FamilyDoclens, TenantDocField(1, 42, 0))
	require.True(t, ok)
	assert.Equal(t, uint32(7), beUint32(v))
}

func TestWrite_AbortedBatchLeavesNoPartialState(t *testing.T) {
	s := openTemp(t)

	key := TenantCentroidDoc(1, 0, 1)
	writeErr := s.Write(func(b *Batch) error {
		_ = b.Put(FamilyInverted, key, []byte{1})
		return assert.AnError
	})
	require.Error(t, writeErr)

	sn, err := s.View()
	require.NoError(t, err)
	defer sn.Close()
	_, ok := sn.Get(FamilyInverted, key)
	assert.False(t, ok)
}

func TestScan_RespectsPrefixAndOrder(t *testing.T) {
	s := openTemp(t)

	err := s.Write(func(b *Batch) error {
		for _, doc := range []uint64{5, 1, 9, 3} {
			if err := b.Put(FamilyInverted, TenantCentroidDoc(1, 2, doc), []byte{1}); err != nil {
				return err
			}
		}
		// different centroid, must not appear in the scan below
		return b.Put(FamilyInverted, TenantCentroidDoc(1, 7, 99), []byte{1})
	})
	require.NoError(t, err)

	sn, err := s.View()
	require.NoError(t, err)
	defer sn.Close()

	var docs []uint64
	err = sn.Scan(FamilyInverted, TenantCentroidPrefix(1, 2), func(k, v []byte) bool {
		docs = append(docs, DocIDFromInvertedKey(k))
		return true
	})
	require.NoError(t, err)
	assert.Equal(t, []uint64{1, 3, 5, 9}, docs)
}

func TestDeleteRange_ClearsOnlyMatchingPrefix(t *testing.T) {
	s := openTemp(t)

	err := s.Write(func(b *Batch) error {
		if err := b.Put(FamilyDoclens, TenantDocField(1, 1, 0), PutUint32(1)); err != nil {
			return err
		}
		return b.Put(FamilyDoclens, TenantDocField(1, 2, 0), PutUint32(1))
	})
	require.NoError(t, err)

	err = s.Write(func(b *Batch) error {
		return b.DeleteRange(FamilyDoclens, TenantDocFieldPrefix(1, 1))
	})
	require.NoError(t, err)

	sn, err := s.View()
	require.NoError(t, err)
	defer sn.Close()

	_, ok := sn.Get(FamilyDoclens, TenantDocField(1, 1, 0))
	assert.False(t, ok)
	_, ok = sn.Get(FamilyDoclens, TenantDocField(1, 2, 0))
	assert.True(t, ok)
}

func TestView_IsSnapshotIsolatedFromLaterWrites(t *testing.T) {
	s := openTemp(t)
	key := TenantCentroidDoc(1, 0, 1)

	require.NoError(t, s.Write(func(b *Batch) error {
		return b.Put(FamilyInverted, key, []byte{1})
	}))

	sn, err := s.View()
	require.NoError(t, err)
	defer sn.Close()

	require.NoError(t, s.Write(func(b *Batch) error {
		return b.Put(FamilyInverted, key, []byte{2})
	}))

	v, ok := sn.Get(FamilyInverted, key)
	require.True(t, ok)
	assert.Equal(t, []byte{1}, v, "snapshot must not observe writes committed after it was taken")
}

func TestSetBulkLoad_TogglesWithoutError(t *testing.T) {
	s := openTemp(t)
	s.SetBulkLoad(true)
	require.NoError(t, s.Write(func(b *Batch) error {
		return b.Put(FamilyMeta, []byte("k"), []byte("v"))
	}))
	s.SetBulkLoad(false)
}

func beUint32(b []byte) uint32 {
	return uint32(b[0])<<24 | uint32(b[1])<<16 | uint32(b[2])<<8 | uint32(b[3])
}
