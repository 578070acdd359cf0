package quantizer

import (
	"bytes"
	"math/rand"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCentroidTable_EncodeDecodeRoundTrips(t *testing.T) {
	table, err := Train(clusteredSamples(), TrainConfig{K: 2, Iterations: 5, Rand: rand.New(rand.NewSource(1))})
	require.NoError(t, err)

	var buf bytes.Buffer
	require.NoError(t, table.Encode(&buf))

	decoded, err := DecodeCentroidTable(&buf)
	require.NoError(t, err)
	assert.True(t, table.Equal(decoded))
}
