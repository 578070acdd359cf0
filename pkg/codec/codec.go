// Package codec implements the residual encoders of component B
// (§4.2): the no-op passthrough, the per-dimension binarizer, and the
// product quantizer. A Codec trains a fixed-size table from a sample
// of residual vectors (token minus its assigned centroid), then
// encodes/decodes one token's residual at a time into a shared,
// LSB-first packed bitstream — the forward record format of §4.5.
package codec

import (
	"io"

	eng "github.com/maxsimdb/maxsimdb/internal/errors"
)

// Codec is implemented by every residual encoder. Training must be
// deterministic given the same sample and parameters (§4.2).
type Codec interface {
	// Dimensions is the width of the vectors this codec was trained for.
	Dimensions() int

	// BitsPerToken is the fixed number of bits one token's encoded
	// residual occupies in the packed forward record.
	BitsPerToken() int

	// EncodeToken writes residual's code into w. len(residual) must
	// equal Dimensions.
	EncodeToken(w *BitWriter, residual []float32) error

	// DecodeToken reads one token's code from r and returns the
	// reconstructed residual (not yet added to its centroid).
	DecodeToken(r *BitReader) ([]float32, error)

	// Encode persists the codec's learned table per §6's wire format,
	// so Load (keyed by the field's schema quantization kind) can
	// reconstruct it.
	Encode(w io.Writer) error
}

func checkDimensions(expected int, v []float32) error {
	if len(v) != expected {
		return eng.DimensionMismatch(expected, len(v))
	}
	return nil
}
