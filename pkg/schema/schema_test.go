package schema

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func tokenField() Field {
	return Field{
		Name: "embedding",
		Type: FieldTypeTensor,
		Role: RoleIndexed,
		Params: Params{
			Dimensions:      128,
			Quantization:    QuantizationBinarizer,
			NumCentroids:    5,
			TrainIterations: 10,
			BitsPerCode:     1,
		},
	}
}

func TestNew_AssignsIDsInOrder(t *testing.T) {
	s, err := New([]Field{tokenField(), {Name: "title", Type: FieldTypeText, Role: RoleStored}})
	require.NoError(t, err)
	assert.Equal(t, 0, s.Fields[0].ID)
	assert.Equal(t, 1, s.Fields[1].ID)
}

func TestNew_RejectsDuplicateNames(t *testing.T) {
	_, err := New([]Field{tokenField(), tokenField()})
	require.Error(t, err)
}

func TestNew_RejectsEmptySchema(t *testing.T) {
	_, err := New(nil)
	require.Error(t, err)
}

func TestNew_RejectsIndexedTensorWithoutCentroids(t *testing.T) {
	f := tokenField()
	f.Params.NumCentroids = 0
	_, err := New([]Field{f})
	require.Error(t, err)
}

func TestNew_RejectsPQWithUnevenSubvectors(t *testing.T) {
	f := tokenField()
	f.Params.Quantization = QuantizationPQ
	f.Params.PQSubvectors = 5
	f.Params.BitsPerCode = 4
	_, err := New([]Field{f})
	require.Error(t, err)
}

func TestSchema_FieldLookup(t *testing.T) {
	s, err := New([]Field{tokenField()})
	require.NoError(t, err)

	_, ok := s.Field("embedding")
	assert.True(t, ok)

	_, err = s.MustField("missing")
	require.Error(t, err)
}

func TestSchema_IndexedTensorFields(t *testing.T) {
	s, err := New([]Field{tokenField(), {Name: "title", Type: FieldTypeText, Role: RoleStored}})
	require.NoError(t, err)
	fields := s.IndexedTensorFields()
	require.Len(t, fields, 1)
	assert.Equal(t, "embedding", fields[0].Name)
}

func TestSchema_IndexedScalarFields(t *testing.T) {
	s, err := New([]Field{
		tokenField(),
		{Name: "title", Type: FieldTypeText, Role: RoleStored},
		{Name: "category", Type: FieldTypeText, Role: RoleIndexed},
	})
	require.NoError(t, err)
	fields := s.IndexedScalarFields()
	require.Len(t, fields, 1)
	assert.Equal(t, "category", fields[0].Name)
}

func TestVersion_SupportsRejectsNewerMajor(t *testing.T) {
	current := Version{Major: 1, Minor: 0, Revision: 0}
	assert.True(t, current.Supports(Version{Major: 1, Minor: 5, Revision: 0}))
	assert.False(t, current.Supports(Version{Major: 2, Minor: 0, Revision: 0}))
}

func TestEncodeDecode_RoundTrips(t *testing.T) {
	s, err := New([]Field{tokenField(), {Name: "title", Type: FieldTypeText, Role: RoleStored | RoleContext}})
	require.NoError(t, err)

	var buf bytes.Buffer
	require.NoError(t, Encode(&buf, CurrentVersion, s))

	v, decoded, err := Decode(&buf)
	require.NoError(t, err)
	assert.Equal(t, CurrentVersion, v)
	require.Len(t, decoded.Fields, 2)
	assert.Equal(t, s.Fields[0].Name, decoded.Fields[0].Name)
	assert.Equal(t, s.Fields[0].Params, decoded.Fields[0].Params)
	assert.Equal(t, s.Fields[1].Role, decoded.Fields[1].Role)
}
