package store

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEncodeEmbeddingCompact(t *testing.T) {
	blob, err := EncodeEmbedding([]float64{0.9, 0.1, -0.5})
	require.NoError(t, err)
	assert.Equal(t, "[0.9,0.1,-0.5]", string(blob))
}

func TestEncodeEmbeddingMinimalRepresentation(t *testing.T) {
	blob, err := EncodeEmbedding([]float64{1, 0, 0.25})
	require.NoError(t, err)
	assert.Equal(t, "[1,0,0.25]", string(blob))
}

func TestEncodeEmbeddingRejectsNonFinite(t *testing.T) {
	for _, v := range []float64{math.NaN(), math.Inf(1), math.Inf(-1)} {
		_, err := EncodeEmbedding([]float64{0.5, v})
		assert.Error(t, err)
	}
}

func TestDecodeEmbeddingRoundTrip(t *testing.T) {
	vector := []float64{0.123456789, -0.987654321, 0.5}
	blob, err := EncodeEmbedding(vector)
	require.NoError(t, err)

	decoded, err := DecodeEmbedding(blob, 3)
	require.NoError(t, err)
	assert.Equal(t, vector, decoded)
}

func TestDecodeEmbeddingDimensionMismatch(t *testing.T) {
	blob, err := EncodeEmbedding([]float64{0.1, 0.2})
	require.NoError(t, err)

	_, err = DecodeEmbedding(blob, 3)
	assert.Error(t, err)
}

func TestDecodeEmbeddingInvalidPayloads(t *testing.T) {
	_, err := DecodeEmbedding(nil, 0)
	assert.Error(t, err)

	_, err = DecodeEmbedding([]byte("not json"), 1)
	assert.Error(t, err)

	_, err = DecodeEmbedding([]byte(`{"a":1}`), 1)
	assert.Error(t, err)
}
