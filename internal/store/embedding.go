package store

import (
	"encoding/json"
	"fmt"
	"math"
)

// EncodeEmbedding renders a vector as the UTF-8 bytes of a compact JSON
// array of doubles: no whitespace, minimal numeric representation. NaN and
// ±Infinity are rejected.
func EncodeEmbedding(vector []float64) ([]byte, error) {
	for i, v := range vector {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return nil, fmt.Errorf("embedding element %d is not finite", i)
		}
	}

	blob, err := json.Marshal(vector)
	if err != nil {
		return nil, fmt.Errorf("encode embedding: %w", err)
	}

	return blob, nil
}

// DecodeEmbedding parses an embedding BLOB and verifies the element count
// against the row's embedding_dimensions.
func DecodeEmbedding(blob []byte, dimensions int) ([]float64, error) {
	if len(blob) == 0 {
		return nil, fmt.Errorf("embedding blob is empty")
	}

	var vector []float64
	if err := json.Unmarshal(blob, &vector); err != nil {
		return nil, fmt.Errorf("decode embedding: %w", err)
	}

	if len(vector) != dimensions {
		return nil, fmt.Errorf("embedding has %d elements, expected %d", len(vector), dimensions)
	}

	return vector, nil
}
