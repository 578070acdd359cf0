package quantizer

import (
	"math/rand"
	"testing"

	eng "github.com/maxsimdb/maxsimdb/internal/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func clusteredSamples() [][]float32 {
	rng := rand.New(rand.NewSource(42))
	centers := [][]float32{{1, 0, 0}, {0, 1, 0}, {0, 0, 1}}
	var samples [][]float32
	for _, c := range centers {
		for i := 0; i < 20; i++ {
			v := make([]float32, 3)
			for d := range v {
				v[d] = c[d] + float32(rng.NormFloat64())*0.01
			}
			samples = append(samples, v)
		}
	}
	return samples
}

func TestTrain_RejectsEmptySample(t *testing.T) {
	_, err := Train(nil, TrainConfig{K: 2})
	require.Error(t, err)
	assert.Equal(t, eng.KindInvalidSchema, eng.GetKind(err))
}

func TestTrain_RejectsDimensionMismatchAcrossSamples(t *testing.T) {
	samples := [][]float32{{1, 0}, {1, 0, 0}}
	_, err := Train(samples, TrainConfig{K: 1})
	require.Error(t, err)
	assert.Equal(t, eng.KindDimensionMismatch, eng.GetKind(err))
}

func TestTrain_ProducesNormalizedCentroids(t *testing.T) {
	table, err := Train(clusteredSamples(), TrainConfig{K: 3, Iterations: 10, Rand: rand.New(rand.NewSource(1))})
	require.NoError(t, err)
	require.Len(t, table.Centroids, 3)

	for _, c := range table.Centroids {
		var sumSq float64
		for _, x := range c {
			sumSq += float64(x) * float64(x)
		}
		assert.InDelta(t, 1.0, sumSq, 0.01)
	}
}

func TestTrain_KGreaterThanSamplesClampsToSampleCount(t *testing.T) {
	samples := [][]float32{{1, 0}, {0, 1}}
	table, err := Train(samples, TrainConfig{K: 10, Iterations: 2})
	require.NoError(t, err)
	assert.Len(t, table.Centroids, 2)
}

func TestNearest_ReturnsAllCentroidsWhenNExceedsK(t *testing.T) {
	table, err := Train(clusteredSamples(), TrainConfig{K: 3, Iterations: 10, Rand: rand.New(rand.NewSource(1))})
	require.NoError(t, err)

	ids, scores, err := table.Nearest([]float32{1, 0, 0}, 10)
	require.NoError(t, err)
	assert.Len(t, ids, 3)
	assert.Len(t, scores, 3)
	assert.GreaterOrEqual(t, scores[0], scores[1])
	assert.GreaterOrEqual(t, scores[1], scores[2])
}

func TestScores_RejectsDimensionMismatch(t *testing.T) {
	table, err := Train(clusteredSamples(), TrainConfig{K: 3, Rand: rand.New(rand.NewSource(1))})
	require.NoError(t, err)

	_, err = table.Scores([]float32{1, 0})
	require.Error(t, err)
	assert.Equal(t, eng.KindDimensionMismatch, eng.GetKind(err))
}

func TestNearestBatch_AppliesPerRow(t *testing.T) {
	table, err := Train(clusteredSamples(), TrainConfig{K: 3, Iterations: 10, Rand: rand.New(rand.NewSource(1))})
	require.NoError(t, err)

	rows := [][]float32{{1, 0, 0}, {0, 1, 0}}
	out, err := table.NearestBatch(rows, 1)
	require.NoError(t, err)
	require.Len(t, out, 2)
	assert.NotEqual(t, out[0][0], out[1][0], "distinct query directions should prefer distinct centroids")
}
