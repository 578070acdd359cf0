package fieldstore

import (
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/maxsimdb/maxsimdb/pkg/schema"
	"github.com/maxsimdb/maxsimdb/pkg/storage"
)

func TestEncodeDecode_RoundTripsEveryFieldType(t *testing.T) {
	now := time.Unix(1700000000, 0).UTC()
	cases := []struct {
		fieldType schema.FieldType
		value     Value
	}{
		{schema.FieldTypeInteger, Value{Integer: -7}},
		{schema.FieldTypeFloat, Value{Float: 3.25}},
		{schema.FieldTypeText, Value{Text: "hello"}},
		{schema.FieldTypeDatetime, Value{Datetime: now}},
	}
	for _, c := range cases {
		data, err := Encode(c.fieldType, c.value)
		require.NoError(t, err)
		decoded, err := Decode(c.fieldType, data)
		require.NoError(t, err)
		switch c.fieldType {
		case schema.FieldTypeInteger:
			assert.Equal(t, c.value.Integer, decoded.Integer)
		case schema.FieldTypeFloat:
			assert.Equal(t, c.value.Float, decoded.Float)
		case schema.FieldTypeText:
			assert.Equal(t, c.value.Text, decoded.Text)
		case schema.FieldTypeDatetime:
			assert.True(t, c.value.Datetime.Equal(decoded.Datetime))
		}
	}
}

func TestEncode_RejectsUnsupportedType(t *testing.T) {
	_, err := Encode(schema.FieldTypeTensor, Value{})
	require.Error(t, err)
}

func TestPutGetAllRemove_RoundTripThroughStorage(t *testing.T) {
	s, err := storage.Open(filepath.Join(t.TempDir(), "engine.db"), storage.Options{})
	require.NoError(t, err)
	defer s.Close()

	title := schema.Field{ID: 0, Name: "title", Type: schema.FieldTypeText, Role: schema.RoleStored}

	require.NoError(t, s.Write(func(b *storage.Batch) error {
		return Put(b, 1, 10, title, Value{Text: "a document"})
	}))

	sn, err := s.View()
	require.NoError(t, err)
	defer sn.Close()

	all, err := GetAll(sn, 1, 10, []schema.Field{title})
	require.NoError(t, err)
	assert.Equal(t, "a document", all["title"].Text)

	require.NoError(t, s.Write(func(b *storage.Batch) error {
		return Remove(b, 1, 10)
	}))

	sn2, err := s.View()
	require.NoError(t, err)
	defer sn2.Close()
	_, ok, err := Get(sn2, 1, 10, title)
	require.NoError(t, err)
	assert.False(t, ok)
}
