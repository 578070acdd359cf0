package engine

import (
	"bytes"
	"path/filepath"

	"github.com/gofrs/flock"

	eng "github.com/maxsimdb/maxsimdb/internal/errors"
	"github.com/maxsimdb/maxsimdb/pkg/schema"
	"github.com/maxsimdb/maxsimdb/pkg/storage"
	"github.com/maxsimdb/maxsimdb/pkg/writer"
)

// Merge copies every document key-value pair (all column families but
// META) from the index at otherPath into e, rejecting the merge if the two indexes' schemas or centroid
// tables differ (§4.6's documented precondition).
func (e *Engine) Merge(otherPath string) error {
	e.mu.Lock()
	defer e.mu.Unlock()

	foreignVersion, foreignSchema, err := readSchemaFile(otherPath)
	if err != nil {
		return err
	}
	if !schemasEqual(foreignVersion, foreignSchema, e.version, e.schema) {
		return eng.MergeIncompatible("foreign index schema does not match")
	}

	foreignLock := flock.New(filepath.Join(otherPath, lockFileName))
	locked, err := foreignLock.TryRLock()
	if err != nil {
		return eng.StorageError("acquire foreign index directory lock", err)
	}
	if !locked {
		return eng.MergeIncompatible("foreign index is locked by a concurrent writer")
	}
	defer foreignLock.Unlock()

	foreignStore, err := storage.Open(filepath.Join(otherPath, dbFileName), storage.Options{ReadOnly: true})
	if err != nil {
		return err
	}
	defer foreignStore.Close()

	_, foreignModels, err := loadModels(foreignStore, foreignSchema)
	if err != nil {
		return err
	}

	foreignWriterModels := make(map[string]writer.FieldModel, len(foreignModels))
	for name, m := range foreignModels {
		foreignWriterModels[name] = writer.FieldModel{Centroids: m.Centroids, Codec: m.Codec}
	}

	if err := e.writer.Merge(foreignStore, foreignWriterModels); err != nil {
		return err
	}
	e.retriever.Invalidate()
	return nil
}

func schemasEqual(av schema.Version, a *schema.Schema, bv schema.Version, b *schema.Schema) bool {
	var bufA, bufB bytes.Buffer
	if err := schema.Encode(&bufA, av, a); err != nil {
		return false
	}
	if err := schema.Encode(&bufB, bv, b); err != nil {
		return false
	}
	return bytes.Equal(bufA.Bytes(), bufB.Bytes())
}
