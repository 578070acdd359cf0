package codec

import "math"

// NoopCodec stores raw float32 residuals, for debugging and for
// fields that opt out of quantization (§4.2 "No-op").
type NoopCodec struct {
	dimensions int
}

var _ Codec = (*NoopCodec)(nil)

// NewNoopCodec returns a codec that round-trips residuals exactly.
func NewNoopCodec(dimensions int) *NoopCodec {
	return &NoopCodec{dimensions: dimensions}
}

func (c *NoopCodec) Dimensions() int { return c.dimensions }

func (c *NoopCodec) BitsPerToken() int { return c.dimensions * 32 }

func (c *NoopCodec) EncodeToken(w *BitWriter, residual []float32) error {
	if err := checkDimensions(c.dimensions, residual); err != nil {
		return err
	}
	for _, x := range residual {
		w.WriteBits(uint64(math.Float32bits(x)), 32)
	}
	return nil
}

func (c *NoopCodec) DecodeToken(r *BitReader) ([]float32, error) {
	out := make([]float32, c.dimensions)
	for i := range out {
		out[i] = math.Float32frombits(uint32(r.ReadBits(32)))
	}
	return out, nil
}
