package engine

import (
	eng "github.com/maxsimdb/maxsimdb/internal/errors"
	"github.com/maxsimdb/maxsimdb/pkg/fieldstore"
	"github.com/maxsimdb/maxsimdb/pkg/writer"
)

// Document is one caller-supplied record passed to Add/Update.
type Document struct {
	ID      uint64
	Tensors map[string][][]float32
	Fields  map[string]fieldstore.Value
}

func toWriterDocs(docs []Document) []writer.Document {
	out := make([]writer.Document, len(docs))
	for i, d := range docs {
		out[i] = writer.Document{ID: d.ID, Tensors: d.Tensors, Fields: d.Fields}
	}
	return out
}

// Add validates and atomically upserts docs for tenant (§4.6).
// Requires every indexed tensor field to have been trained.
func (e *Engine) Add(tenant uint64, docs []Document) error {
	e.mu.Lock()
	defer e.mu.Unlock()

	if !e.trained && len(e.schema.IndexedTensorFields()) > 0 {
		return eng.IndexUntrained("index has not been trained")
	}

	if err := e.writer.Add(tenant, toWriterDocs(docs)); err != nil {
		return err
	}
	e.retriever.Invalidate()
	return nil
}

// Remove deletes every indexed trace of ids for tenant (§4.6).
func (e *Engine) Remove(tenant uint64, ids []uint64) error {
	e.mu.Lock()
	defer e.mu.Unlock()

	if err := e.writer.Remove(tenant, ids); err != nil {
		return err
	}
	e.retriever.Invalidate()
	return nil
}

// Update removes then re-adds docs in the same atomic batch (§4.6).
func (e *Engine) Update(tenant uint64, docs []Document) error {
	e.mu.Lock()
	defer e.mu.Unlock()

	if !e.trained && len(e.schema.IndexedTensorFields()) > 0 {
		return eng.IndexUntrained("index has not been trained")
	}

	if err := e.writer.Update(tenant, toWriterDocs(docs)); err != nil {
		return err
	}
	e.retriever.Invalidate()
	return nil
}
