package engine

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"

	eng "github.com/maxsimdb/maxsimdb/internal/errors"
	"github.com/maxsimdb/maxsimdb/pkg/codec"
	"github.com/maxsimdb/maxsimdb/pkg/quantizer"
	"github.com/maxsimdb/maxsimdb/pkg/schema"
	"github.com/maxsimdb/maxsimdb/pkg/storage"
)

// writeSchemaFile atomically persists the version + schema blob to
// the index directory's "schema" file (§6's on-disk layout, readable
// by external tooling that never opens the bbolt file directly).
func writeSchemaFile(dir string, v schema.Version, s *schema.Schema) error {
	var buf bytes.Buffer
	if err := schema.Encode(&buf, v, s); err != nil {
		return eng.StorageError("encode schema blob", err)
	}
	return storage.WriteMetaAtomic(dir, schemaFileName, buf.Bytes())
}

// readSchemaFile reads back the blob written by writeSchemaFile.
func readSchemaFile(dir string) (schema.Version, *schema.Schema, error) {
	data, err := os.ReadFile(filepath.Join(dir, schemaFileName))
	if err != nil {
		return schema.Version{}, nil, eng.StorageError("read schema blob", err)
	}
	v, s, err := schema.Decode(bytes.NewReader(data))
	if err != nil {
		return schema.Version{}, nil, eng.StorageError("decode schema blob", err)
	}
	return v, s, nil
}

const metaTrainedKey = "trained"

func metaCentroidsKey(field string) []byte { return []byte("centroids:" + field) }
func metaCodecKey(field string) []byte     { return []byte("codec:" + field) }

// loadModels reads every indexed tensor field's persisted centroid
// table and codec from the META column family. The index is
// considered trained only if every such field has both artifacts
// present.
func loadModels(store *storage.Store, s *schema.Schema) (bool, map[string]Model, error) {
	snap, err := store.View()
	if err != nil {
		return false, nil, err
	}
	defer snap.Close()

	fields := s.IndexedTensorFields()
	models := make(map[string]Model, len(fields))

	_, trained := snap.Get(storage.FamilyMeta, []byte(metaTrainedKey))
	if !trained || len(fields) == 0 {
		return trained, models, nil
	}

	for _, f := range fields {
		centroidData, ok := snap.Get(storage.FamilyMeta, metaCentroidsKey(f.Name))
		if !ok {
			return false, models, nil
		}
		table, err := quantizer.DecodeCentroidTable(bytes.NewReader(centroidData))
		if err != nil {
			return false, nil, eng.StorageError(fmt.Sprintf("decode centroid table for field %q", f.Name), err)
		}

		codecData, ok := snap.Get(storage.FamilyMeta, metaCodecKey(f.Name))
		if !ok {
			return false, models, nil
		}
		c, err := codec.Load(bytes.NewReader(codecData), f.Params.Quantization, f.Params.Dimensions)
		if err != nil {
			return false, nil, eng.StorageError(fmt.Sprintf("decode codec for field %q", f.Name), err)
		}

		models[f.Name] = Model{Centroids: table, Codec: c}
	}

	return true, models, nil
}

// persistModels writes every field's trained centroid table and
// codec into the META column family as one atomic batch, then marks
// the index trained.
func persistModels(store *storage.Store, models map[string]Model) error {
	return store.Write(func(b *storage.Batch) error {
		for name, m := range models {
			var centroidBuf bytes.Buffer
			if err := m.Centroids.Encode(&centroidBuf); err != nil {
				return err
			}
			if err := b.Put(storage.FamilyMeta, metaCentroidsKey(name), centroidBuf.Bytes()); err != nil {
				return err
			}

			var codecBuf bytes.Buffer
			if err := m.Codec.Encode(&codecBuf); err != nil {
				return err
			}
			if err := b.Put(storage.FamilyMeta, metaCodecKey(name), codecBuf.Bytes()); err != nil {
				return err
			}
		}
		return b.Put(storage.FamilyMeta, []byte(metaTrainedKey), []byte{1})
	})
}
