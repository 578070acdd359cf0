package writer

import (
	"math/rand"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/maxsimdb/maxsimdb/pkg/codec"
	eng "github.com/maxsimdb/maxsimdb/internal/errors"
	"github.com/maxsimdb/maxsimdb/pkg/fieldstore"
	"github.com/maxsimdb/maxsimdb/pkg/quantizer"
	"github.com/maxsimdb/maxsimdb/pkg/schema"
	"github.com/maxsimdb/maxsimdb/pkg/storage"
	"github.com/maxsimdb/maxsimdb/pkg/termindex"
)

func testSchema(t *testing.T) *schema.Schema {
	t.Helper()
	s, err := schema.New([]schema.Field{
		{
			Name: "embedding",
			Type: schema.FieldTypeTensor,
			Role: schema.RoleIndexed,
			Params: schema.Params{
				Dimensions:      3,
				Quantization:    schema.QuantizationNone,
				NumCentroids:    2,
				TrainIterations: 5,
			},
		},
		{Name: "title", Type: schema.FieldTypeText, Role: schema.RoleStored},
		{Name: "category", Type: schema.FieldTypeText, Role: schema.RoleIndexed},
	})
	require.NoError(t, err)
	return s
}

func testModels(t *testing.T) map[string]FieldModel {
	t.Helper()
	rng := rand.New(rand.NewSource(3))
	samples := [][]float32{{1, 0, 0}, {0.9, 0.1, 0}, {0, 1, 0}, {0.1, 0.9, 0}}
	table, err := quantizer.Train(samples, quantizer.TrainConfig{K: 2, Iterations: 5, Rand: rng})
	require.NoError(t, err)
	return map[string]FieldModel{
		"embedding": {Centroids: table, Codec: codec.NewNoopCodec(3)},
	}
}

func openWriter(t *testing.T) (*Writer, *storage.Store) {
	t.Helper()
	s, err := storage.Open(filepath.Join(t.TempDir(), "engine.db"), storage.Options{})
	require.NoError(t, err)
	t.Cleanup(func() { _ = s.Close() })
	return New(s, testSchema(t), testModels(t)), s
}

func TestAdd_RejectsMissingRequiredField(t *testing.T) {
	w, _ := openWriter(t)
	err := w.Add(1, []Document{{ID: 1, Fields: map[string]fieldstore.Value{"title": {Text: "x"}}}})
	require.Error(t, err)
	assert.Equal(t, eng.KindInvalidSchema, eng.GetKind(err))
}

func TestAdd_RejectsDimensionMismatch(t *testing.T) {
	w, _ := openWriter(t)
	err := w.Add(1, []Document{{
		ID:      1,
		Tensors: map[string][][]float32{"embedding": {{1, 0}}},
	}})
	require.Error(t, err)
	assert.Equal(t, eng.KindDimensionMismatch, eng.GetKind(err))
}

func TestAdd_ThenRemove_ClearsAllTraces(t *testing.T) {
	w, s := openWriter(t)
	doc := Document{
		ID:      1,
		Tensors: map[string][][]float32{"embedding": {{1, 0, 0}, {0, 1, 0}}},
		Fields:  map[string]fieldstore.Value{"title": {Text: "doc one"}},
	}
	require.NoError(t, w.Add(1, []Document{doc}))

	sn, err := s.View()
	require.NoError(t, err)
	_, ok := sn.Get(storage.FamilyForwardCodes, storage.TenantDocField(1, 1, 0))
	assert.True(t, ok)
	sn.Close()

	require.NoError(t, w.Remove(1, []uint64{1}))

	sn2, err := s.View()
	require.NoError(t, err)
	defer sn2.Close()
	_, ok = sn2.Get(storage.FamilyForwardCodes, storage.TenantDocField(1, 1, 0))
	assert.False(t, ok)
}

func TestAdd_UpsertReplacesPriorPostings(t *testing.T) {
	w, s := openWriter(t)
	first := Document{ID: 1, Tensors: map[string][][]float32{"embedding": {{1, 0, 0}}}}
	require.NoError(t, w.Add(1, []Document{first}))

	second := Document{ID: 1, Tensors: map[string][][]float32{"embedding": {{0, 1, 0}, {0, 0, 1}}}}
	require.NoError(t, w.Add(1, []Document{second}))

	sn, err := s.View()
	require.NoError(t, err)
	defer sn.Close()

	data, ok := sn.Get(storage.FamilyDoclens, storage.TenantDocField(1, 1, 0))
	require.True(t, ok)
	assert.Equal(t, uint32(2), beUint32(data))
}

func TestAdd_WritesTermPostingForIndexedScalarField(t *testing.T) {
	w, s := openWriter(t)
	doc := Document{
		ID:      1,
		Tensors: map[string][][]float32{"embedding": {{1, 0, 0}}},
		Fields:  map[string]fieldstore.Value{"category": {Text: "news"}},
	}
	require.NoError(t, w.Add(1, []Document{doc}))

	sn, err := s.View()
	require.NoError(t, err)
	defer sn.Close()

	f, ok := testSchema(t).Field("category")
	require.True(t, ok)
	docs, err := termindex.Lookup(sn, 1, f, fieldstore.Value{Text: "news"})
	require.NoError(t, err)
	assert.Equal(t, []uint64{1}, docs)
}

func TestAdd_ThenRemove_ClearsTermPosting(t *testing.T) {
	w, s := openWriter(t)
	doc := Document{
		ID:      1,
		Tensors: map[string][][]float32{"embedding": {{1, 0, 0}}},
		Fields:  map[string]fieldstore.Value{"category": {Text: "news"}},
	}
	require.NoError(t, w.Add(1, []Document{doc}))
	require.NoError(t, w.Remove(1, []uint64{1}))

	sn, err := s.View()
	require.NoError(t, err)
	defer sn.Close()

	f, ok := testSchema(t).Field("category")
	require.True(t, ok)
	docs, err := termindex.Lookup(sn, 1, f, fieldstore.Value{Text: "news"})
	require.NoError(t, err)
	assert.Empty(t, docs)
}

func TestMerge_RejectsMismatchedCentroidTables(t *testing.T) {
	w, _ := openWriter(t)

	otherStore, err := storage.Open(filepath.Join(t.TempDir(), "other.db"), storage.Options{})
	require.NoError(t, err)
	defer otherStore.Close()

	otherModels := map[string]FieldModel{
		"embedding": {Centroids: &quantizer.CentroidTable{Dimensions: 3, Centroids: [][]float32{{1, 0, 0}}}, Codec: codec.NewNoopCodec(3)},
	}

	err = w.Merge(otherStore, otherModels)
	require.Error(t, err)
	assert.Equal(t, eng.KindMergeIncompatible, eng.GetKind(err))
}

func beUint32(b []byte) uint32 {
	return uint32(b[0])<<24 | uint32(b[1])<<16 | uint32(b[2])<<8 | uint32(b[3])
}
