// Package retriever implements component H (§4.7): the PLAID-style
// two-stage retrieval pipeline over a query tensor — centroid
// scoring, candidate gathering, a centroid-score pre-filter, exact
// MaxSim over the survivors, and result hydration.
package retriever

import (
	"context"
	"runtime"
	"sort"

	"github.com/RoaringBitmap/roaring/v2/roaring64"
	lru "github.com/hashicorp/golang-lru/v2"
	"golang.org/x/sync/errgroup"
	"golang.org/x/sync/semaphore"

	eng "github.com/maxsimdb/maxsimdb/internal/errors"
	"github.com/maxsimdb/maxsimdb/pkg/codec"
	"github.com/maxsimdb/maxsimdb/pkg/fieldstore"
	"github.com/maxsimdb/maxsimdb/pkg/forward"
	"github.com/maxsimdb/maxsimdb/pkg/invindex"
	"github.com/maxsimdb/maxsimdb/pkg/quantizer"
	"github.com/maxsimdb/maxsimdb/pkg/schema"
	"github.com/maxsimdb/maxsimdb/pkg/storage"
)

// FieldModel bundles the trained centroid table and codec a retriever
// needs to search one indexed tensor field.
type FieldModel struct {
	Centroids *quantizer.CentroidTable
	Codec     codec.Codec
}

// Result is one hydrated search hit.
type Result struct {
	DocID  uint64
	Score  float32
	Fields map[string]fieldstore.Value
}

// Retriever answers Search calls over one schema's indexed tensor
// fields. It holds the storage engine and schema by read-only
// reference, per §9's "no back-pointers" design note.
type Retriever struct {
	store       *storage.Store
	schema      *schema.Schema
	models      map[string]FieldModel
	decodeCache *lru.Cache[decodeKey, [][]float32]
}

// New builds a Retriever bound to an already-trained schema.
func New(store *storage.Store, s *schema.Schema, models map[string]FieldModel) *Retriever {
	cache, _ := lru.New[decodeKey, [][]float32](DefaultDecodeCacheSize)
	return &Retriever{store: store, schema: s, models: models, decodeCache: cache}
}

// Search runs the PLAID-style pipeline of §4.7 against field's
// trained model for a row-normalized query tensor, returning the
// top-k documents hydrated with storedFields.
func (r *Retriever) Search(ctx context.Context, tenant uint64, field string, query [][]float32, k int, opts Options, storedFields []string) ([]Result, error) {
	opts = ResolveOptions(opts, k)

	f, ok := r.schema.Field(field)
	if !ok {
		return nil, eng.UnknownField(field)
	}
	model, ok := r.models[field]
	if !ok {
		return nil, eng.IndexUntrained("field " + field + " has not been trained")
	}

	for _, row := range query {
		if len(row) != f.Params.Dimensions {
			return nil, eng.DimensionMismatch(f.Params.Dimensions, len(row))
		}
	}

	snap, err := r.store.View()
	if err != nil {
		return nil, err
	}
	defer snap.Close()

	// Stage 0 — centroid scoring: S = Q * Cᵀ, shape Tq x K.
	if err := checkCancelled(ctx); err != nil {
		return nil, err
	}
	scores, err := model.Centroids.BatchScores(query)
	if err != nil {
		return nil, err
	}

	// Stage 1 — candidate gathering: union postings under each query
	// row's top n_probe centroids (n_probe is per-token, per §9).
	if err := checkCancelled(ctx); err != nil {
		return nil, err
	}
	candidates, err := gatherCandidates(snap, tenant, model.Centroids, query, opts.NProbe)
	if err != nil {
		return nil, err
	}
	if candidates.IsEmpty() {
		return nil, nil // empty tenant/field space returns an empty list, not an error
	}

	// Stage 2 — centroid-score pre-filter.
	if err := checkCancelled(ctx); err != nil {
		return nil, err
	}
	survivors, err := preFilter(snap, tenant, candidates, f, model, scores, opts)
	if err != nil {
		return nil, err
	}

	// Stage 3 — exact MaxSim over survivors.
	if err := checkCancelled(ctx); err != nil {
		return nil, err
	}
	results, err := r.exactMaxSim(ctx, snap, tenant, survivors, f, model, query, opts)
	if err != nil {
		return nil, err
	}

	// top-k by score, ties broken by ascending doc ID (§4.7 ordering guarantee).
	sort.Slice(results, func(i, j int) bool {
		if results[i].Score != results[j].Score {
			return results[i].Score > results[j].Score
		}
		return results[i].DocID < results[j].DocID
	})
	if len(results) > k {
		results = results[:k]
	}

	// Stage 4 — hydration.
	if err := checkCancelled(ctx); err != nil {
		return nil, err
	}
	fields, err := r.resolveStoredFields(storedFields)
	if err != nil {
		return nil, err
	}
	for i := range results {
		hydrated, err := fieldstore.GetAll(snap, tenant, results[i].DocID, fields)
		if err != nil {
			return nil, err
		}
		results[i].Fields = hydrated
	}

	return results, nil
}

// checkCancelled reports eng.Cancelled() if ctx has been cancelled,
// the cooperative cancellation checkpoint required between retrieval
// stages by §5.
func checkCancelled(ctx context.Context) error {
	select {
	case <-ctx.Done():
		return eng.Cancelled()
	default:
		return nil
	}
}

func (r *Retriever) resolveStoredFields(names []string) ([]schema.Field, error) {
	out := make([]schema.Field, 0, len(names))
	for _, name := range names {
		f, err := r.schema.MustField(name)
		if err != nil {
			return nil, err
		}
		out = append(out, f)
	}
	return out, nil
}

func gatherCandidates(snap *storage.Snapshot, tenant uint64, table *quantizer.CentroidTable, query [][]float32, nProbe int) (*roaring64.Bitmap, error) {
	set := roaring64.New()
	for _, row := range query {
		ids, _, err := table.Nearest(row, nProbe)
		if err != nil {
			return nil, err
		}
		centroidIDs := make([]uint32, len(ids))
		for i, id := range ids {
			centroidIDs[i] = uint32(id)
		}
		union, err := invindex.Gather(snap, tenant, centroidIDs)
		if err != nil {
			return nil, err
		}
		set.Or(union)
	}
	return set, nil
}

type candidateScore struct {
	docID uint64
	score float32
}

// preFilter computes an approximate score per candidate using only
// centroid scores (no residual decoding), keeping the top
// NumSecondPass candidates, per §4.7 Stage 2.
func preFilter(snap *storage.Snapshot, tenant uint64, candidates *roaring64.Bitmap, f schema.Field, model FieldModel, scores [][]float32, opts Options) ([]uint64, error) {
	var approx []candidateScore

	it := candidates.Iterator()
	for it.HasNext() {
		docID := it.Next()
		rec, ok, err := forward.Get(snap, tenant, docID, uint32(f.ID), model.Codec.BitsPerToken())
		if err != nil {
			return nil, err
		}
		if !ok {
			continue
		}

		var total float32
		for _, rowScores := range scores {
			best, found := bestAboveThreshold(rowScores, rec.CentroidIDs, opts.KTopCentroids, opts.CentroidScoreThreshold)
			if found {
				total += best
			}
		}
		approx = append(approx, candidateScore{docID: docID, score: total})
	}

	sort.Slice(approx, func(i, j int) bool {
		if approx[i].score != approx[j].score {
			return approx[i].score > approx[j].score
		}
		return approx[i].docID < approx[j].docID
	})
	if len(approx) > opts.NumSecondPass {
		approx = approx[:opts.NumSecondPass]
	}

	out := make([]uint64, len(approx))
	for i, c := range approx {
		out[i] = c.docID
	}
	return out, nil
}

// bestAboveThreshold restricts a document's distinct token centroids
// to the top k by this query row's centroid score, then returns the
// highest of those scores that clears threshold (§4.7 Stage 2,
// `k_top_centroids`). Because the list is sorted descending, the result
// is the document's best centroid score for the row whenever k >= 1.
func bestAboveThreshold(rowScores []float32, docCentroids []uint32, k int, threshold float32) (float32, bool) {
	seen := make(map[uint32]bool, len(docCentroids))
	var distinct []float32
	for _, c := range docCentroids {
		if seen[c] {
			continue
		}
		seen[c] = true
		distinct = append(distinct, rowScores[c])
	}
	sort.Slice(distinct, func(i, j int) bool { return distinct[i] > distinct[j] })
	if len(distinct) > k {
		distinct = distinct[:k]
	}

	best := float32(0)
	found := false
	for _, s := range distinct {
		if s >= threshold && (!found || s > best) {
			best = s
			found = true
		}
	}
	return best, found
}

// exactMaxSim reconstructs token vectors for every survivor and
// computes the true MaxSim score, per §4.7 Stage 3. Scoring runs
// concurrently across survivors, bounded by opts.Parallelism.
func (r *Retriever) exactMaxSim(ctx context.Context, snap *storage.Snapshot, tenant uint64, survivors []uint64, f schema.Field, model FieldModel, query [][]float32, opts Options) ([]Result, error) {
	parallelism := opts.Parallelism
	if parallelism <= 0 {
		parallelism = runtime.NumCPU()
	}

	results := make([]Result, len(survivors))
	sem := semaphore.NewWeighted(int64(parallelism))
	g, gctx := errgroup.WithContext(ctx)

	for i, docID := range survivors {
		i, docID := i, docID
		g.Go(func() error {
			if err := sem.Acquire(gctx, 1); err != nil {
				return eng.Cancelled()
			}
			defer sem.Release(1)

			rec, ok, err := forward.Get(snap, tenant, docID, uint32(f.ID), model.Codec.BitsPerToken())
			if err != nil {
				return err
			}
			if !ok {
				return nil
			}

			docTokens, err := r.decodeTokens(decodeKey{tenant: tenant, docID: docID, fieldID: uint32(f.ID)}, rec, model)
			if err != nil {
				return err
			}

			var score float32
			for _, qRow := range query {
				best := float32(0)
				first := true
				for _, dTok := range docTokens {
					s := dot(qRow, dTok)
					if first || s > best {
						best = s
						first = false
					}
				}
				score += best
			}

			results[i] = Result{DocID: docID, Score: score}
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return nil, err
	}
	return results, nil
}

func dot(a, b []float32) float32 {
	var sum float32
	for i := range a {
		sum += a[i] * b[i]
	}
	return sum
}
