package codec

import (
	"testing"

	schemapkg "github.com/maxsimdb/maxsimdb/pkg/schema"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTrain_DispatchesOnQuantizationKind(t *testing.T) {
	residuals := sampleResiduals(64, 4)

	noop, err := Train(residuals, schemapkg.Params{Dimensions: 4, Quantization: schemapkg.QuantizationNone})
	require.NoError(t, err)
	assert.IsType(t, &NoopCodec{}, noop)

	bin, err := Train(residuals, schemapkg.Params{Dimensions: 4, Quantization: schemapkg.QuantizationBinarizer, BitsPerCode: 2})
	require.NoError(t, err)
	assert.IsType(t, &BinarizerCodec{}, bin)

	pq, err := Train(residuals, schemapkg.Params{Dimensions: 4, Quantization: schemapkg.QuantizationPQ, PQSubvectors: 2, BitsPerCode: 3})
	require.NoError(t, err)
	assert.IsType(t, &PQCodec{}, pq)
}
