package retriever

import (
	lru "github.com/hashicorp/golang-lru/v2"

	"github.com/maxsimdb/maxsimdb/pkg/forward"
)

// DefaultDecodeCacheSize bounds the number of decoded token-vector
// sets kept in memory, trading a bounded amount of memory for
// skipping residual decode on documents that recur across searches
// (grounded on the teacher's embed.CachedEmbedder — an LRU wrapping
// an expensive per-key computation).
const DefaultDecodeCacheSize = 4096

type decodeKey struct {
	tenant  uint64
	docID   uint64
	fieldID uint32
}

// decodeTokens returns field's reconstructed token vectors for a
// document (centroid + residual, per token), using rec's residual
// codes as the cache-miss source. Upserts and removes invalidate the
// whole cache via Invalidate rather than tracking per-key
// staleness — simpler, and decode is cheap enough that an occasional
// over-eager purge costs nothing an application would notice.
func (r *Retriever) decodeTokens(key decodeKey, rec *forward.Record, model FieldModel) ([][]float32, error) {
	if cached, ok := r.decodeCache.Get(key); ok {
		return cached, nil
	}

	residuals, err := rec.DecodeResiduals(model.Codec)
	if err != nil {
		return nil, err
	}

	tokens := make([][]float32, len(residuals))
	for t, residual := range residuals {
		centroid := model.Centroids.Centroids[rec.CentroidIDs[t]]
		token := make([]float32, len(centroid))
		for d := range token {
			token[d] = centroid[d] + residual[d]
		}
		tokens[t] = token
	}

	r.decodeCache.Add(key, tokens)
	return tokens, nil
}

// Invalidate purges every cached decode, called by the engine after
// any Add/Remove/Update so stale token reconstructions are never
// served for a document that has since been upserted or deleted.
func (r *Retriever) Invalidate() {
	r.decodeCache.Purge()
}
