// Package writer implements component G (§4.6): the single-writer
// mutation path that validates documents against the schema, assigns
// tensor tokens to centroids, encodes residuals, and commits forward,
// inverted, doclen and stored-field entries as one atomic batch.
package writer

import (
	"math"
	"sync"

	eng "github.com/maxsimdb/maxsimdb/internal/errors"
	"github.com/maxsimdb/maxsimdb/pkg/codec"
	"github.com/maxsimdb/maxsimdb/pkg/fieldstore"
	"github.com/maxsimdb/maxsimdb/pkg/forward"
	"github.com/maxsimdb/maxsimdb/pkg/invindex"
	"github.com/maxsimdb/maxsimdb/pkg/quantizer"
	"github.com/maxsimdb/maxsimdb/pkg/schema"
	"github.com/maxsimdb/maxsimdb/pkg/storage"
	"github.com/maxsimdb/maxsimdb/pkg/termindex"
)

// Document is one caller-supplied record: indexed tensor rows keyed
// by field name, and scalar values for stored/context fields.
type Document struct {
	ID      uint64
	Tensors map[string][][]float32
	Fields  map[string]fieldstore.Value
}

// FieldModel bundles the trained centroid table and codec a writer
// needs to index one indexed tensor field.
type FieldModel struct {
	Centroids *quantizer.CentroidTable
	Codec     codec.Codec
}

// Writer mutates one index. Per §4.9 / §5, only one Writer goroutine
// may hold the engine-wide write lock at a time; the caller (pkg/engine)
// is responsible for acquiring it before calling Add/Remove/Update/Merge.
type Writer struct {
	mu     sync.Mutex
	store  *storage.Store
	schema *schema.Schema
	models map[string]FieldModel // field name -> trained model
}

// New builds a Writer bound to an already-trained schema.
func New(store *storage.Store, s *schema.Schema, models map[string]FieldModel) *Writer {
	return &Writer{store: store, schema: s, models: models}
}

// Add validates and indexes documents for tenant, per §4.6's four
// steps: validate, assign/residual-encode, clear-then-write per doc,
// commit atomically.
func (w *Writer) Add(tenant uint64, docs []Document) error {
	w.mu.Lock()
	defer w.mu.Unlock()

	for _, doc := range docs {
		if err := w.validate(doc); err != nil {
			return err
		}
	}

	return w.store.Write(func(b *storage.Batch) error {
		for _, doc := range docs {
			if err := w.clearDocument(b, tenant, doc.ID); err != nil {
				return err
			}
			if err := w.writeDocument(b, tenant, doc); err != nil {
				return err
			}
		}
		return nil
	})
}

// Remove deletes every indexed trace of the given document IDs for
// tenant in one atomic batch.
func (w *Writer) Remove(tenant uint64, ids []uint64) error {
	w.mu.Lock()
	defer w.mu.Unlock()

	return w.store.Write(func(b *storage.Batch) error {
		for _, id := range ids {
			if err := w.clearDocument(b, tenant, id); err != nil {
				return err
			}
		}
		return nil
	})
}

// Update removes then re-adds the given documents in the same batch
// (§4.6: "update = remove followed by add").
func (w *Writer) Update(tenant uint64, docs []Document) error {
	w.mu.Lock()
	defer w.mu.Unlock()

	for _, doc := range docs {
		if err := w.validate(doc); err != nil {
			return err
		}
	}

	return w.store.Write(func(b *storage.Batch) error {
		for _, doc := range docs {
			if err := w.clearDocument(b, tenant, doc.ID); err != nil {
				return err
			}
			if err := w.writeDocument(b, tenant, doc); err != nil {
				return err
			}
		}
		return nil
	})
}

// clearDocument removes every trace of a document, including its
// term postings — which requires reading back each indexed scalar
// field's prior value before fieldstore.Remove deletes it, since
// term postings are keyed by value rather than by document.
func (w *Writer) clearDocument(b *storage.Batch, tenant, docID uint64) error {
	for _, f := range w.schema.IndexedScalarFields() {
		data, ok := b.Get(storage.FamilyStoredFields, storage.TenantDocField(tenant, docID, uint32(f.ID)))
		if !ok {
			continue
		}
		v, err := fieldstore.Decode(f.Type, data)
		if err != nil {
			return err
		}
		if err := termindex.Remove(b, tenant, docID, f, v); err != nil {
			return err
		}
	}

	if err := invindex.Remove(b, tenant, docID); err != nil {
		return err
	}
	if err := forward.Remove(b, tenant, docID); err != nil {
		return err
	}
	if err := fieldstore.Remove(b, tenant, docID); err != nil {
		return err
	}
	return nil
}

// validate checks every required indexed field is present with
// matching dimensionality, per §4.6 step 1.
func (w *Writer) validate(doc Document) error {
	for _, f := range w.schema.IndexedTensorFields() {
		rows, ok := doc.Tensors[f.Name]
		if !ok {
			return eng.InvalidSchema("document missing required indexed field "+f.Name, nil)
		}
		for _, row := range rows {
			if len(row) != f.Params.Dimensions {
				return eng.DimensionMismatch(f.Params.Dimensions, len(row))
			}
		}
		if _, ok := w.models[f.Name]; !ok {
			return eng.IndexUntrained("field " + f.Name + " has not been trained")
		}
	}
	return nil
}

// writeDocument assigns every indexed tensor row to its nearest
// centroid, encodes the residual, and writes forward/inverted/doclen
// entries, then every stored/context field value (§4.6 step 2-3).
func (w *Writer) writeDocument(b *storage.Batch, tenant uint64, doc Document) error {
	for _, f := range w.schema.IndexedTensorFields() {
		rows := doc.Tensors[f.Name]
		model := w.models[f.Name]

		centroidIDs := make([]uint32, 0, len(rows))
		counts := make(map[uint32]int, len(rows))
		bw := codec.NewBitWriter(model.Codec.BitsPerToken() * len(rows))

		for _, row := range rows {
			normalized := normalize(row)
			ids, _, err := model.Centroids.Nearest(normalized, 1)
			if err != nil {
				return err
			}
			centroidID := uint32(ids[0])

			residual := make([]float32, len(normalized))
			for d := range normalized {
				residual[d] = normalized[d] - model.Centroids.Centroids[ids[0]][d]
			}
			if err := model.Codec.EncodeToken(bw, residual); err != nil {
				return err
			}

			centroidIDs = append(centroidIDs, centroidID)
			counts[centroidID]++
		}

		if err := invindex.Add(b, tenant, doc.ID, counts); err != nil {
			return err
		}
		if err := forward.Put(b, tenant, doc.ID, uint32(f.ID), centroidIDs, model.Codec.BitsPerToken(), bw); err != nil {
			return err
		}
		if err := forward.PutDoclen(b, tenant, doc.ID, uint32(f.ID), len(rows)); err != nil {
			return err
		}
	}

	for name, value := range doc.Fields {
		f, ok := w.schema.Field(name)
		if !ok {
			return eng.UnknownField(name)
		}
		if err := fieldstore.Put(b, tenant, doc.ID, f, value); err != nil {
			return err
		}
		if f.Role.Has(schema.RoleIndexed) && f.Type != schema.FieldTypeTensor {
			if err := termindex.Put(b, tenant, doc.ID, f, value); err != nil {
				return err
			}
		}
	}
	return nil
}

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

// Merge copies every key-value pair of the document column families
// (all but META) from a foreign, already-opened read-only store into
// w's store, per §4.6: the caller must have
// already verified the two indexes share a schema, and must pass the
// foreign centroid models so Merge can reject a mismatched codebook
// before copying anything.
func (w *Writer) Merge(foreign *storage.Store, foreignModels map[string]FieldModel) error {
	w.mu.Lock()
	defer w.mu.Unlock()

	for name, model := range w.models {
		foreignModel, ok := foreignModels[name]
		if !ok || !model.Centroids.Equal(foreignModel.Centroids) {
			return eng.MergeIncompatible("centroid tables differ for field " + name)
		}
	}

	families := []storage.Family{
		storage.FamilyInverted,
		storage.FamilyInvertedCounts,
		storage.FamilyForwardCodes,
		storage.FamilyDoclens,
		storage.FamilyStoredFields,
		storage.FamilyTermPostings,
	}

	snap, err := foreign.View()
	if err != nil {
		return err
	}
	defer snap.Close()

	return w.store.Write(func(b *storage.Batch) error {
		for _, family := range families {
			var scanErr error
			err := snap.Scan(family, nil, func(k, v []byte) bool {
				if putErr := b.Put(family, append([]byte(nil), k...), append([]byte(nil), v...)); putErr != nil {
					scanErr = putErr
					return false
				}
				return true
			})
			if err != nil {
				return err
			}
			if scanErr != nil {
				return scanErr
			}
		}
		return nil
	})
}
