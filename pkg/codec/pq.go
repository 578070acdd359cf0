package codec

import (
	"math/rand"

	eng "github.com/maxsimdb/maxsimdb/internal/errors"
)

// PQCodec splits each residual into M equal-width sub-vectors and
// encodes each as the index of its nearest sub-centroid, learned
// independently per sub-vector by k-means over 2^nbits sub-centroids
// (§4.2 "Product Quantizer").
type PQCodec struct {
	dimensions int
	subvectors int // M
	nbits      int // bits per sub-vector index
	subWidth   int // D / M

	// centroids[m] holds 2^nbits sub-centroids of width subWidth for
	// sub-vector m.
	centroids [][][]float32
}

var _ Codec = (*PQCodec)(nil)

func (c *PQCodec) Dimensions() int   { return c.dimensions }
func (c *PQCodec) BitsPerToken() int { return c.subvectors * c.nbits }

// TrainPQ fits M independent sub-codebooks from a sample of residual
// vectors.
func TrainPQ(residuals [][]float32, dimensions, subvectors, nbits int) (*PQCodec, error) {
	if len(residuals) == 0 {
		return nil, eng.InvalidSchema("cannot train product quantizer on an empty residual sample", nil).
			WithDetail("reason", "empty_training_sample")
	}
	if subvectors <= 0 || dimensions%subvectors != 0 {
		return nil, eng.InvalidSchema("product quantizer requires subvectors > 0 dividing dimensions evenly", nil)
	}
	if nbits <= 0 || nbits > 16 {
		return nil, eng.InvalidSchema("product quantizer requires 0 < nbits <= 16", nil)
	}
	for _, v := range residuals {
		if err := checkDimensions(dimensions, v); err != nil {
			return nil, err
		}
	}

	subWidth := dimensions / subvectors
	numCentroids := 1 << uint(nbits)
	rng := rand.New(rand.NewSource(1))

	centroids := make([][][]float32, subvectors)
	for m := 0; m < subvectors; m++ {
		sub := make([][]float32, len(residuals))
		for i, v := range residuals {
			sub[i] = v[m*subWidth : (m+1)*subWidth]
		}
		centroids[m] = trainSubCodebook(sub, numCentroids, subWidth, rng)
	}

	return &PQCodec{
		dimensions: dimensions,
		subvectors: subvectors,
		nbits:      nbits,
		subWidth:   subWidth,
		centroids:  centroids,
	}, nil
}

// trainSubCodebook runs k-means++ init followed by a fixed number of
// Lloyd iterations, without the coarse quantizer's L2-normalization
// step — sub-centroids represent residual magnitudes, not directions
// used for cosine similarity.
func trainSubCodebook(samples [][]float32, k, width int, rng *rand.Rand) [][]float32 {
	if k > len(samples) {
		k = len(samples)
	}

	centroids := make([][]float32, 0, k)
	first := make([]float32, width)
	copy(first, samples[rng.Intn(len(samples))])
	centroids = append(centroids, first)

	minDist := make([]float64, len(samples))
	for i, v := range samples {
		minDist[i] = sqDist(v, first)
	}
	for len(centroids) < k {
		var total float64
		for _, d := range minDist {
			total += d
		}
		var next []float32
		if total == 0 {
			next = append([]float32(nil), samples[rng.Intn(len(samples))]...)
		} else {
			target := rng.Float64() * total
			var cum float64
			selected := len(samples) - 1
			for i, d := range minDist {
				cum += d
				if cum >= target {
					selected = i
					break
				}
			}
			next = append([]float32(nil), samples[selected]...)
		}
		centroids = append(centroids, next)
		for i, v := range samples {
			d := sqDist(v, next)
			if d < minDist[i] {
				minDist[i] = d
			}
		}
	}

	assignments := make([]int, len(samples))
	for iter := 0; iter < 10; iter++ {
		changed := false
		for i, v := range samples {
			best := 0
			bestDist := sqDist(v, centroids[0])
			for c := 1; c < len(centroids); c++ {
				d := sqDist(v, centroids[c])
				if d < bestDist {
					bestDist = d
					best = c
				}
			}
			if assignments[i] != best {
				changed = true
				assignments[i] = best
			}
		}

		sums := make([][]float64, len(centroids))
		counts := make([]int, len(centroids))
		for c := range sums {
			sums[c] = make([]float64, width)
		}
		for i, v := range samples {
			c := assignments[i]
			counts[c]++
			for d := 0; d < width; d++ {
				sums[c][d] += float64(v[d])
			}
		}
		for c := range centroids {
			if counts[c] == 0 {
				continue
			}
			for d := 0; d < width; d++ {
				centroids[c][d] = float32(sums[c][d] / float64(counts[c]))
			}
		}
		if !changed && iter > 0 {
			break
		}
	}
	return centroids
}

func sqDist(a, b []float32) float64 {
	var sum float64
	for i := range a {
		diff := float64(a[i] - b[i])
		sum += diff * diff
	}
	return sum
}

func (c *PQCodec) EncodeToken(w *BitWriter, residual []float32) error {
	if err := checkDimensions(c.dimensions, residual); err != nil {
		return err
	}
	for m := 0; m < c.subvectors; m++ {
		sub := residual[m*c.subWidth : (m+1)*c.subWidth]
		best := 0
		bestDist := sqDist(sub, c.centroids[m][0])
		for i := 1; i < len(c.centroids[m]); i++ {
			d := sqDist(sub, c.centroids[m][i])
			if d < bestDist {
				bestDist = d
				best = i
			}
		}
		w.WriteBits(uint64(best), c.nbits)
	}
	return nil
}

func (c *PQCodec) DecodeToken(r *BitReader) ([]float32, error) {
	out := make([]float32, 0, c.dimensions)
	for m := 0; m < c.subvectors; m++ {
		idx := int(r.ReadBits(c.nbits))
		if idx >= len(c.centroids[m]) {
			idx = len(c.centroids[m]) - 1
		}
		out = append(out, c.centroids[m][idx]...)
	}
	return out, nil
}
