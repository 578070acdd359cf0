package codec

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/maxsimdb/maxsimdb/pkg/schema"
)

func TestNoopCodec_EncodeLoadRoundTrips(t *testing.T) {
	c := NewNoopCodec(4)
	var buf bytes.Buffer
	require.NoError(t, c.Encode(&buf))

	loaded, err := Load(&buf, schema.QuantizationNone, 4)
	require.NoError(t, err)
	assert.Equal(t, 4, loaded.Dimensions())
	assert.Equal(t, c.BitsPerToken(), loaded.BitsPerToken())
}

func TestBinarizerCodec_EncodeLoadRoundTrips(t *testing.T) {
	residuals := sampleResiduals(20, 4)
	trained, err := TrainBinarizer(residuals, 4, 2)
	require.NoError(t, err)

	var buf bytes.Buffer
	require.NoError(t, trained.Encode(&buf))

	loaded, err := Load(&buf, schema.QuantizationBinarizer, 4)
	require.NoError(t, err)
	require.IsType(t, &BinarizerCodec{}, loaded)

	bw := NewBitWriter(trained.BitsPerToken())
	require.NoError(t, trained.EncodeToken(bw, residuals[0]))
	wantRes, err := trained.DecodeToken(NewBitReader(bw.Bytes()))
	require.NoError(t, err)

	bw2 := NewBitWriter(loaded.BitsPerToken())
	require.NoError(t, loaded.EncodeToken(bw2, residuals[0]))
	gotRes, err := loaded.DecodeToken(NewBitReader(bw2.Bytes()))
	require.NoError(t, err)

	assert.Equal(t, wantRes, gotRes)
}

func TestPQCodec_EncodeLoadRoundTrips(t *testing.T) {
	residuals := sampleResiduals(30, 4)
	trained, err := TrainPQ(residuals, 4, 2, 3)
	require.NoError(t, err)

	var buf bytes.Buffer
	require.NoError(t, trained.Encode(&buf))

	loaded, err := Load(&buf, schema.QuantizationPQ, 4)
	require.NoError(t, err)
	require.IsType(t, &PQCodec{}, loaded)
	assert.Equal(t, trained.BitsPerToken(), loaded.BitsPerToken())

	bw := NewBitWriter(trained.BitsPerToken())
	require.NoError(t, trained.EncodeToken(bw, residuals[0]))
	wantRes, err := trained.DecodeToken(NewBitReader(bw.Bytes()))
	require.NoError(t, err)

	bw2 := NewBitWriter(loaded.BitsPerToken())
	require.NoError(t, loaded.EncodeToken(bw2, residuals[0]))
	gotRes, err := loaded.DecodeToken(NewBitReader(bw2.Bytes()))
	require.NoError(t, err)

	assert.Equal(t, wantRes, gotRes)
}
