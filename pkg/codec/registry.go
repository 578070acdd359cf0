package codec

import (
	schemapkg "github.com/maxsimdb/maxsimdb/pkg/schema"

	eng "github.com/maxsimdb/maxsimdb/internal/errors"
)

// Train builds the codec named by a field's quantization params from
// a sample of residual vectors, dispatching on schema.QuantizationKind.
func Train(residuals [][]float32, params schemapkg.Params) (Codec, error) {
	switch params.Quantization {
	case schemapkg.QuantizationNone:
		return NewNoopCodec(params.Dimensions), nil
	case schemapkg.QuantizationBinarizer:
		return TrainBinarizer(residuals, params.Dimensions, params.BitsPerCode)
	case schemapkg.QuantizationPQ:
		return TrainPQ(residuals, params.Dimensions, params.PQSubvectors, params.BitsPerCode)
	default:
		return nil, eng.InvalidSchema("unknown quantization kind", nil)
	}
}
