package embed

import (
	"context"
	"crypto/sha256"
	"encoding/binary"
	"errors"
	"math"
)

// LocalProvider is the dependency-free fallback: a deterministic embedder
// seeded from the model name and the text bytes. Identical inputs always
// produce identical vectors, which keeps index runs reproducible without a
// model runtime.
type LocalProvider struct {
	model      string
	dimensions int
}

// NewLocalProvider creates the local embedder.
func NewLocalProvider(model string, dimensions int) *LocalProvider {
	if model == "" {
		model = "Xenova/all-MiniLM-L6-v2"
	}
	if dimensions <= 0 {
		dimensions = 384
	}
	return &LocalProvider{model: model, dimensions: dimensions}
}

// GenerateEmbedding produces a unit-normalized deterministic vector.
func (p *LocalProvider) GenerateEmbedding(_ context.Context, text string) ([]float64, error) {
	if p.dimensions <= 0 {
		return nil, errors.New("embedding dimensions must be greater than 0")
	}

	vector := make([]float64, p.dimensions)
	seed := sha256.Sum256([]byte(p.model + "\n" + text))

	// Stretch the seed with counter-mode hashing until the vector is full.
	var block [32]byte = seed
	idx := 0
	counter := uint64(0)
	for idx < p.dimensions {
		for off := 0; off+8 <= len(block) && idx < p.dimensions; off += 8 {
			bits := binary.BigEndian.Uint64(block[off : off+8])
			// Map to (-1, 1).
			vector[idx] = float64(int64(bits))/float64(math.MaxInt64)
			idx++
		}
		counter++
		var next [40]byte
		copy(next[:32], block[:])
		binary.BigEndian.PutUint64(next[32:], counter)
		block = sha256.Sum256(next[:])
	}

	normalize(vector)
	return vector, nil
}

// GenerateEmbeddings embeds each text in order.
func (p *LocalProvider) GenerateEmbeddings(ctx context.Context, texts []string) ([][]float64, error) {
	out := make([][]float64, len(texts))
	for i, text := range texts {
		vector, err := p.GenerateEmbedding(ctx, text)
		if err != nil {
			return nil, err
		}
		out[i] = vector
	}
	return out, nil
}

// GetDimensions returns the configured dimension.
func (p *LocalProvider) GetDimensions() int {
	return p.dimensions
}

// GetName returns the provider name.
func (p *LocalProvider) GetName() string {
	return "transformers"
}

func normalize(vector []float64) {
	var sumSquares float64
	for _, v := range vector {
		sumSquares += v * v
	}

	magnitude := math.Sqrt(sumSquares)
	if magnitude == 0 {
		return
	}

	for i := range vector {
		vector[i] /= magnitude
	}
}
