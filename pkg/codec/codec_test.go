package codec

import (
	"math/rand"
	"testing"

	eng "github.com/maxsimdb/maxsimdb/internal/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func sampleResiduals(n, dims int) [][]float32 {
	rng := rand.New(rand.NewSource(7))
	out := make([][]float32, n)
	for i := range out {
		v := make([]float32, dims)
		for d := range v {
			v[d] = float32(rng.NormFloat64())
		}
		out[i] = v
	}
	return out
}

func TestNoopCodec_RoundTripsExactly(t *testing.T) {
	c := NewNoopCodec(4)
	residual := []float32{1.5, -2.25, 0, 3.125}

	w := NewBitWriter(c.BitsPerToken())
	require.NoError(t, c.EncodeToken(w, residual))
	assert.Equal(t, c.BitsPerToken(), w.BitCount())

	r := NewBitReader(w.Bytes())
	decoded, err := c.DecodeToken(r)
	require.NoError(t, err)
	assert.Equal(t, residual, decoded)
}

func TestBinarizerCodec_RejectsEmptySample(t *testing.T) {
	_, err := TrainBinarizer(nil, 4, 2)
	require.Error(t, err)
	assert.Equal(t, eng.KindInvalidSchema, eng.GetKind(err))
}

func TestBinarizerCodec_BitsPerTokenMatchesNBitsTimesD(t *testing.T) {
	c, err := TrainBinarizer(sampleResiduals(64, 8), 8, 2)
	require.NoError(t, err)
	assert.Equal(t, 16, c.BitsPerToken())
}

func TestBinarizerCodec_EncodeDecodeProducesFiniteValues(t *testing.T) {
	residuals := sampleResiduals(128, 6)
	c, err := TrainBinarizer(residuals, 6, 3)
	require.NoError(t, err)

	w := NewBitWriter(c.BitsPerToken())
	require.NoError(t, c.EncodeToken(w, residuals[0]))

	r := NewBitReader(w.Bytes())
	decoded, err := c.DecodeToken(r)
	require.NoError(t, err)
	require.Len(t, decoded, 6)
	for _, x := range decoded {
		assert.False(t, isNaNOrInf(x))
	}
}

func TestBinarizerCodec_IsDeterministicAcrossRuns(t *testing.T) {
	residuals := sampleResiduals(64, 4)
	a, err := TrainBinarizer(residuals, 4, 2)
	require.NoError(t, err)
	b, err := TrainBinarizer(residuals, 4, 2)
	require.NoError(t, err)
	assert.Equal(t, a.cutoffs, b.cutoffs)
	assert.Equal(t, a.weights, b.weights)
}

func TestPQCodec_RejectsUnevenSubvectors(t *testing.T) {
	_, err := TrainPQ(sampleResiduals(16, 6), 6, 4, 2)
	require.Error(t, err)
}

func TestPQCodec_EncodesAndDecodesToNearestSubcentroid(t *testing.T) {
	residuals := sampleResiduals(256, 8)
	c, err := TrainPQ(residuals, 8, 2, 4)
	require.NoError(t, err)
	assert.Equal(t, 8, c.BitsPerToken()) // 2 subvectors * 4 bits

	w := NewBitWriter(c.BitsPerToken())
	require.NoError(t, c.EncodeToken(w, residuals[0]))

	r := NewBitReader(w.Bytes())
	decoded, err := c.DecodeToken(r)
	require.NoError(t, err)
	require.Len(t, decoded, 8)

	for m := 0; m < c.subvectors; m++ {
		sub := residuals[0][m*c.subWidth : (m+1)*c.subWidth]
		best := c.centroids[m][0]
		for _, cand := range c.centroids[m][1:] {
			if sqDist(sub, cand) < sqDist(sub, best) {
				best = cand
			}
		}
		assert.Equal(t, best, decoded[m*c.subWidth:(m+1)*c.subWidth])
	}
}

func TestPQCodec_MultiTokenBitstreamRoundTrips(t *testing.T) {
	residuals := sampleResiduals(256, 8)
	c, err := TrainPQ(residuals, 8, 2, 4)
	require.NoError(t, err)

	w := NewBitWriter(c.BitsPerToken() * 3)
	for i := 0; i < 3; i++ {
		require.NoError(t, c.EncodeToken(w, residuals[i]))
	}

	r := NewBitReader(w.Bytes())
	for i := 0; i < 3; i++ {
		decoded, err := c.DecodeToken(r)
		require.NoError(t, err)
		assert.Len(t, decoded, 8)
	}
}

func isNaNOrInf(x float32) bool {
	return x != x || x > 3.4e38 || x < -3.4e38
}
