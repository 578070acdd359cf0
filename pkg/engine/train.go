package engine

import (
	"log/slog"
	"math"
	"math/rand"

	eng "github.com/maxsimdb/maxsimdb/internal/errors"
	"github.com/maxsimdb/maxsimdb/pkg/codec"
	"github.com/maxsimdb/maxsimdb/pkg/quantizer"
)

// trainSeed fixes k-means initialization so the coarse quantizer is
// deterministic given the same sample, per §4.2's determinism
// requirement. PQ training seeds its own generator in pkg/codec.
const trainSeed = 1

// Sample is one training document: indexed tensor rows keyed by field
// name. Stored/context field values play no part in training.
type Sample struct {
	Tensors map[string][][]float32
}

// Train fits the coarse quantizer and residual codec for every
// indexed tensor field from samples, then persists both to META
// (§4.9). Train is callable only once; a second call on an already
// trained index is rejected.
func (e *Engine) Train(samples []Sample) error {
	e.mu.Lock()
	defer e.mu.Unlock()

	if e.trained {
		return eng.InvalidSchema("index is already trained", nil)
	}

	fields := e.schema.IndexedTensorFields()
	models := make(map[string]Model, len(fields))

	for _, f := range fields {
		var tokens [][]float32
		for _, sample := range samples {
			rows, ok := sample.Tensors[f.Name]
			if !ok {
				continue
			}
			for _, row := range rows {
				if len(row) != f.Params.Dimensions {
					return eng.DimensionMismatch(f.Params.Dimensions, len(row))
				}
				tokens = append(tokens, normalize(row))
			}
		}
		if len(tokens) == 0 {
			return eng.InvalidSchema("no training rows supplied for field "+f.Name, nil).
				WithDetail("reason", "empty_training_sample")
		}

		iterations := f.Params.TrainIterations
		if iterations <= 0 {
			iterations = e.cfg.Training.Iterations
		}
		table, err := quantizer.Train(tokens, quantizer.TrainConfig{
			K:          f.Params.NumCentroids,
			Iterations: iterations,
			Rand:       rand.New(rand.NewSource(trainSeed)),
		})
		if err != nil {
			return err
		}

		residuals := make([][]float32, len(tokens))
		for i, tok := range tokens {
			ids, _, err := table.Nearest(tok, 1)
			if err != nil {
				return err
			}
			centroid := table.Centroids[ids[0]]
			residual := make([]float32, len(tok))
			for d := range tok {
				residual[d] = tok[d] - centroid[d]
			}
			residuals[i] = residual
		}

		c, err := codec.Train(residuals, f.Params)
		if err != nil {
			return err
		}

		models[f.Name] = Model{Centroids: table, Codec: c}
	}

	if err := persistModels(e.store, models); err != nil {
		return err
	}

	e.models = models
	e.trained = true
	e.rebuildComponents()

	e.logger.Info("index trained", slog.Int("fields", len(models)), slog.Int("samples", len(samples)))
	return nil
}

// normalize L2-normalizes v, matching the writer's per-token
// normalization so training and indexing assign tokens to centroids
// under the same convention (§4.3: inner product == cosine).
func normalize(v []float32) []float32 {
	var sumSq float64
	for _, x := range v {
		sumSq += float64(x) * float64(x)
	}
	if sumSq == 0 {
		return append([]float32(nil), v...)
	}
	norm := float32(math.Sqrt(sumSq))
	out := make([]float32, len(v))
	for i, x := range v {
		out[i] = x / norm
	}
	return out
}
