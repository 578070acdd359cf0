package forward

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/maxsimdb/maxsimdb/pkg/codec"
	"github.com/maxsimdb/maxsimdb/pkg/storage"
)

func TestEncodeDecode_RoundTripsCentroidIDsAndCodes(t *testing.T) {
	c := codec.NewNoopCodec(2)
	w := codec.NewBitWriter(c.BitsPerToken() * 2)
	require.NoError(t, c.EncodeToken(w, []float32{1, 2}))
	require.NoError(t, c.EncodeToken(w, []float32{3, 4}))

	data := Encode([]uint32{5, 9}, c.BitsPerToken(), w)
	rec, err := Decode(data, c.BitsPerToken())
	require.NoError(t, err)
	assert.Equal(t, []uint32{5, 9}, rec.CentroidIDs)

	residuals, err := rec.DecodeResiduals(c)
	require.NoError(t, err)
	assert.Equal(t, [][]float32{{1, 2}, {3, 4}}, residuals)
}

func TestDecode_RejectsTruncatedRecord(t *testing.T) {
	_, err := Decode([]byte{0, 0, 0, 2, 0, 0}, 8)
	require.Error(t, err)
}

func TestPutGetRemove_RoundTripThroughStorage(t *testing.T) {
	s, err := storage.Open(filepath.Join(t.TempDir(), "engine.db"), storage.Options{})
	require.NoError(t, err)
	defer s.Close()

	c := codec.NewNoopCodec(1)
	w := codec.NewBitWriter(c.BitsPerToken())
	require.NoError(t, c.EncodeToken(w, []float32{42}))

	require.NoError(t, s.Write(func(b *storage.Batch) error {
		if err := Put(b, 1, 7, 0, []uint32{3}, c.BitsPerToken(), w); err != nil {
			return err
		}
		return PutDoclen(b, 1, 7, 0, 1)
	}))

	sn, err := s.View()
	require.NoError(t, err)
	defer sn.Close()

	rec, ok, err := Get(sn, 1, 7, 0, c.BitsPerToken())
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, []uint32{3}, rec.CentroidIDs)

	require.NoError(t, s.Write(func(b *storage.Batch) error {
		return Remove(b, 1, 7)
	}))

	sn2, err := s.View()
	require.NoError(t, err)
	defer sn2.Close()
	_, ok, err = Get(sn2, 1, 7, 0, c.BitsPerToken())
	require.NoError(t, err)
	assert.False(t, ok)
}
