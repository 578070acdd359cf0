package codec

import (
	"sort"

	eng "github.com/maxsimdb/maxsimdb/internal/errors"
)

// BinarizerCodec quantizes each dimension independently against a
// learned set of nbits cutoffs, per §4.2: `bucket_cutoffs[nbits*D]`
// and `bucket_weights[nbits*D]` plus a scalar `avg_residual`. Each
// dimension contributes nbits bits to the packed code — one per
// cutoff it exceeds — so BitsPerToken is nbits*D.
type BinarizerCodec struct {
	dimensions int
	nbits      int

	// cutoffs[d*nbits+b] is the b-th threshold for dimension d,
	// ascending within a dimension.
	cutoffs []float32
	// weights[d*nbits+b] is the reconstruction weight attributed to
	// dimension d when bit b is set.
	weights     []float32
	avgResidual float32
}

var _ Codec = (*BinarizerCodec)(nil)

func (c *BinarizerCodec) Dimensions() int   { return c.dimensions }
func (c *BinarizerCodec) BitsPerToken() int { return c.dimensions * c.nbits }

// TrainBinarizer fits cutoffs and weights from a sample of residual
// vectors. Determinism (§4.2) follows from sorting each dimension's
// sampled values and picking evenly spaced quantile positions, which
// depends only on the input sample, never on map iteration order or
// randomness.
func TrainBinarizer(residuals [][]float32, dimensions, nbits int) (*BinarizerCodec, error) {
	if len(residuals) == 0 {
		return nil, eng.InvalidSchema("cannot train binarizer on an empty residual sample", nil).
			WithDetail("reason", "empty_training_sample")
	}
	if nbits <= 0 {
		return nil, eng.InvalidSchema("binarizer requires nbits > 0", nil)
	}
	for _, v := range residuals {
		if err := checkDimensions(dimensions, v); err != nil {
			return nil, err
		}
	}

	cutoffs := make([]float32, dimensions*nbits)
	weights := make([]float32, dimensions*nbits)
	var totalAbs float64
	var totalCount int

	column := make([]float32, len(residuals))
	for d := 0; d < dimensions; d++ {
		for i, v := range residuals {
			column[i] = v[d]
			totalAbs += absF32(v[d])
			totalCount++
		}
		sorted := append([]float32(nil), column...)
		sort.Slice(sorted, func(a, b int) bool { return sorted[a] < sorted[b] })

		for b := 0; b < nbits; b++ {
			// evenly spaced quantile positions across the sorted column
			q := float64(b+1) / float64(nbits+1)
			idx := int(q * float64(len(sorted)-1))
			cutoff := sorted[idx]
			cutoffs[d*nbits+b] = cutoff

			// weight: signed mean of values on the side this bit
			// represents (at or above the cutoff), used at decode to
			// reconstruct a representative value for a set bit.
			var sum float64
			var count int
			for _, x := range sorted {
				if x >= cutoff {
					sum += float64(x)
					count++
				}
			}
			if count > 0 {
				weights[d*nbits+b] = float32(sum / float64(count))
			}
		}
	}

	var avgResidual float32
	if totalCount > 0 {
		avgResidual = float32(totalAbs / float64(totalCount))
	}

	return &BinarizerCodec{
		dimensions:  dimensions,
		nbits:       nbits,
		cutoffs:     cutoffs,
		weights:     weights,
		avgResidual: avgResidual,
	}, nil
}

func (c *BinarizerCodec) EncodeToken(w *BitWriter, residual []float32) error {
	if err := checkDimensions(c.dimensions, residual); err != nil {
		return err
	}
	for d := 0; d < c.dimensions; d++ {
		v := residual[d]
		for b := 0; b < c.nbits; b++ {
			w.WriteBit(v >= c.cutoffs[d*c.nbits+b])
		}
	}
	return nil
}

func (c *BinarizerCodec) DecodeToken(r *BitReader) ([]float32, error) {
	out := make([]float32, c.dimensions)
	for d := 0; d < c.dimensions; d++ {
		var sum float32
		var set int
		for b := 0; b < c.nbits; b++ {
			if r.ReadBit() {
				sum += c.weights[d*c.nbits+b]
				set++
			}
		}
		if set > 0 {
			out[d] = sum / float32(set)
		} else {
			out[d] = -c.avgResidual
		}
	}
	return out, nil
}

func absF32(v float32) float64 {
	if v < 0 {
		return float64(-v)
	}
	return float64(v)
}
