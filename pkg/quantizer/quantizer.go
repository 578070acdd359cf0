// Package quantizer implements the coarse quantizer (component C,
// §4.3): a k-means codebook of centroids trained on L2-normalized
// token vectors, used both to assign each stored token to a centroid
// and to answer nearest-centroid lookups for a query token at search
// time.
package quantizer

import (
	"math/rand"
	"sort"

	"github.com/chewxy/math32"
	"github.com/viterin/vek"

	eng "github.com/maxsimdb/maxsimdb/internal/errors"
)

// TrainConfig controls k-means training.
type TrainConfig struct {
	K          int // number of centroids
	Iterations int // Lloyd's iterations after k-means++ init; default 10
	Rand       *rand.Rand
}

// CentroidTable is a trained, L2-normalized codebook. Because every
// centroid and every indexed vector is L2-normalized, inner product
// equals cosine similarity (§4.3).
type CentroidTable struct {
	Dimensions int
	Centroids  [][]float32 // K x Dimensions, each row L2-normalized
}

// Train fits K centroids on samples using k-means++ initialization
// (grounded on the nearest-neighbor-index k-means used elsewhere in
// the pack) followed by Lloyd's algorithm, then L2-normalizes the
// resulting centroids.
func Train(samples [][]float32, cfg TrainConfig) (*CentroidTable, error) {
	if len(samples) == 0 {
		return nil, eng.InvalidSchema("cannot train coarse quantizer on an empty sample", nil).
			WithDetail("reason", "empty_training_sample")
	}
	if cfg.K <= 0 {
		return nil, eng.InvalidSchema("training requires K > 0 centroids", nil)
	}
	dims := len(samples[0])
	for _, v := range samples {
		if len(v) != dims {
			return nil, eng.DimensionMismatch(dims, len(v))
		}
	}

	k := cfg.K
	if k > len(samples) {
		k = len(samples)
	}
	iterations := cfg.Iterations
	if iterations <= 0 {
		iterations = 10
	}
	rng := cfg.Rand
	if rng == nil {
		rng = rand.New(rand.NewSource(1))
	}

	centroids := initKMeansPlusPlus(samples, k, rng)
	assignments := make([]int, len(samples))

	for iter := 0; iter < iterations; iter++ {
		changed := assign(samples, centroids, assignments)
		updateCentroids(samples, assignments, centroids, dims)
		if !changed && iter > 0 {
			break
		}
	}

	for _, c := range centroids {
		normalizeInPlace(c)
	}

	return &CentroidTable{Dimensions: dims, Centroids: centroids}, nil
}

// initKMeansPlusPlus seeds centroids proportional to squared distance
// from the nearest already-chosen centroid.
func initKMeansPlusPlus(samples [][]float32, k int, rng *rand.Rand) [][]float32 {
	n := len(samples)
	dims := len(samples[0])

	centroids := make([][]float32, 0, k)
	first := make([]float32, dims)
	copy(first, samples[rng.Intn(n)])
	centroids = append(centroids, first)

	minDist := make([]float64, n)
	for i, v := range samples {
		minDist[i] = squaredDistance(v, first)
	}

	for len(centroids) < k {
		var total float64
		for _, d := range minDist {
			total += d
		}
		if total == 0 {
			// all remaining samples coincide with a chosen centroid;
			// fall back to uniform pick to avoid dividing by zero.
			idx := rng.Intn(n)
			next := make([]float32, dims)
			copy(next, samples[idx])
			centroids = append(centroids, next)
			continue
		}

		target := rng.Float64() * total
		var cum float64
		selected := n - 1
		for i, d := range minDist {
			cum += d
			if cum >= target {
				selected = i
				break
			}
		}

		next := make([]float32, dims)
		copy(next, samples[selected])
		centroids = append(centroids, next)

		for i, v := range samples {
			d := squaredDistance(v, next)
			if d < minDist[i] {
				minDist[i] = d
			}
		}
	}
	return centroids
}

func assign(samples [][]float32, centroids [][]float32, assignments []int) bool {
	changed := false
	for i, v := range samples {
		best := 0
		bestDist := squaredDistance(v, centroids[0])
		for c := 1; c < len(centroids); c++ {
			d := squaredDistance(v, centroids[c])
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
	return changed
}

func updateCentroids(samples [][]float32, assignments []int, centroids [][]float32, dims int) {
	sums := make([][]float64, len(centroids))
	counts := make([]int, len(centroids))
	for c := range sums {
		sums[c] = make([]float64, dims)
	}
	for i, v := range samples {
		c := assignments[i]
		counts[c]++
		for d := 0; d < dims; d++ {
			sums[c][d] += float64(v[d])
		}
	}
	for c := range centroids {
		if counts[c] == 0 {
			continue // keep previous centroid position; empty cluster
		}
		for d := 0; d < dims; d++ {
			centroids[c][d] = float32(sums[c][d] / float64(counts[c]))
		}
	}
}

func squaredDistance(a, b []float32) float64 {
	var sum float64
	for i := range a {
		diff := float64(a[i] - b[i])
		sum += diff * diff
	}
	return sum
}

func normalizeInPlace(v []float32) {
	norm := math32.Sqrt(vek.Dot(v, v))
	if norm == 0 {
		return
	}
	for i := range v {
		v[i] /= norm
	}
}

// Equal reports whether two centroid tables are identical, used by
// merge (§4.6) to enforce its documented precondition that merged
// indexes share a codebook.
func (t *CentroidTable) Equal(other *CentroidTable) bool {
	if other == nil || t.Dimensions != other.Dimensions || len(t.Centroids) != len(other.Centroids) {
		return false
	}
	for i, row := range t.Centroids {
		otherRow := other.Centroids[i]
		if len(row) != len(otherRow) {
			return false
		}
		for d := range row {
			if row[d] != otherRow[d] {
				return false
			}
		}
	}
	return true
}

// Scores computes the inner product of v against every centroid.
func (t *CentroidTable) Scores(v []float32) ([]float32, error) {
	if len(v) != t.Dimensions {
		return nil, eng.DimensionMismatch(t.Dimensions, len(v))
	}
	out := make([]float32, len(t.Centroids))
	for i, c := range t.Centroids {
		out[i] = vek.Dot(v, c)
	}
	return out, nil
}

// BatchScores computes Scores for every row of rows, i.e. the
// Tq x K matrix S = Q * Cᵀ used by retriever Stage 0 (§4.7).
func (t *CentroidTable) BatchScores(rows [][]float32) ([][]float32, error) {
	out := make([][]float32, len(rows))
	for i, row := range rows {
		s, err := t.Scores(row)
		if err != nil {
			return nil, err
		}
		out[i] = s
	}
	return out, nil
}

// Nearest returns the IDs and scores of the n centroids with the
// highest inner product against v, descending by score. If
// n > len(Centroids), every centroid is returned (§4.3 edge case).
func (t *CentroidTable) Nearest(v []float32, n int) ([]int, []float32, error) {
	scores, err := t.Scores(v)
	if err != nil {
		return nil, nil, err
	}
	if n > len(scores) {
		n = len(scores)
	}

	idx := make([]int, len(scores))
	for i := range idx {
		idx[i] = i
	}
	sort.Slice(idx, func(a, b int) bool { return scores[idx[a]] > scores[idx[b]] })

	ids := make([]int, n)
	top := make([]float32, n)
	for i := 0; i < n; i++ {
		ids[i] = idx[i]
		top[i] = scores[idx[i]]
	}
	return ids, top, nil
}

// NearestBatch applies Nearest independently to each row, used by
// Stage 1's per-query-token centroid probing (§4.7, §9).
func (t *CentroidTable) NearestBatch(rows [][]float32, n int) ([][]int, error) {
	out := make([][]int, len(rows))
	for i, row := range rows {
		ids, _, err := t.Nearest(row, n)
		if err != nil {
			return nil, err
		}
		out[i] = ids
	}
	return out, nil
}
