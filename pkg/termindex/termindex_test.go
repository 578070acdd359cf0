package termindex

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/maxsimdb/maxsimdb/pkg/fieldstore"
	"github.com/maxsimdb/maxsimdb/pkg/schema"
	"github.com/maxsimdb/maxsimdb/pkg/storage"
)

func openStore(t *testing.T) *storage.Store {
	t.Helper()
	s, err := storage.Open(filepath.Join(t.TempDir(), "engine.db"), storage.Options{})
	require.NoError(t, err)
	t.Cleanup(func() { _ = s.Close() })
	return s
}

func categoryField() schema.Field {
	return schema.Field{ID: 3, Name: "category", Type: schema.FieldTypeText, Role: schema.RoleIndexed}
}

func TestPutLookup_ReturnsDocsForExactValue(t *testing.T) {
	s := openStore(t)
	f := categoryField()

	require.NoError(t, s.Write(func(b *storage.Batch) error {
		if err := Put(b, 1, 10, f, fieldstore.Value{Text: "news"}); err != nil {
			return err
		}
		if err := Put(b, 1, 11, f, fieldstore.Value{Text: "news"}); err != nil {
			return err
		}
		return Put(b, 1, 12, f, fieldstore.Value{Text: "sports"})
	}))

	sn, err := s.View()
	require.NoError(t, err)
	defer sn.Close()

	docs, err := Lookup(sn, 1, f, fieldstore.Value{Text: "news"})
	require.NoError(t, err)
	assert.Equal(t, []uint64{10, 11}, docs)
}

func TestLookup_DistinguishesValuesThatArePrefixesOfEachOther(t *testing.T) {
	s := openStore(t)
	f := categoryField()

	require.NoError(t, s.Write(func(b *storage.Batch) error {
		if err := Put(b, 1, 1, f, fieldstore.Value{Text: "ab"}); err != nil {
			return err
		}
		return Put(b, 1, 2, f, fieldstore.Value{Text: "abc"})
	}))

	sn, err := s.View()
	require.NoError(t, err)
	defer sn.Close()

	docs, err := Lookup(sn, 1, f, fieldstore.Value{Text: "ab"})
	require.NoError(t, err)
	assert.Equal(t, []uint64{1}, docs)
}

func TestRemove_DeletesOnlyMatchingPosting(t *testing.T) {
	s := openStore(t)
	f := categoryField()

	require.NoError(t, s.Write(func(b *storage.Batch) error {
		if err := Put(b, 1, 10, f, fieldstore.Value{Text: "news"}); err != nil {
			return err
		}
		return Put(b, 1, 11, f, fieldstore.Value{Text: "news"})
	}))
	require.NoError(t, s.Write(func(b *storage.Batch) error {
		return Remove(b, 1, 10, f, fieldstore.Value{Text: "news"})
	}))

	sn, err := s.View()
	require.NoError(t, err)
	defer sn.Close()

	docs, err := Lookup(sn, 1, f, fieldstore.Value{Text: "news"})
	require.NoError(t, err)
	assert.Equal(t, []uint64{11}, docs)
}

func TestLookup_RespectsTenantIsolation(t *testing.T) {
	s := openStore(t)
	f := categoryField()

	require.NoError(t, s.Write(func(b *storage.Batch) error {
		if err := Put(b, 1, 10, f, fieldstore.Value{Text: "news"}); err != nil {
			return err
		}
		return Put(b, 2, 10, f, fieldstore.Value{Text: "news"})
	}))

	sn, err := s.View()
	require.NoError(t, err)
	defer sn.Close()

	docs, err := Lookup(sn, 1, f, fieldstore.Value{Text: "news"})
	require.NoError(t, err)
	assert.Equal(t, []uint64{10}, docs)
}
