package embed

import (
	"context"
	"crypto/sha1"
	"encoding/hex"
	"fmt"

	lru "github.com/hashicorp/golang-lru/v2"
)

// defaultCacheSize bounds the embedding cache in long-lived processes.
const defaultCacheSize = 4096

// CachedProvider wraps a provider with an LRU keyed by SHA-1 of the text, so
// repeated queries and re-chunked identical content skip provider calls.
type CachedProvider struct {
	inner Provider
	cache *lru.Cache[string, []float64]
}

// NewCachedProvider wraps inner with a cache of the given size.
func NewCachedProvider(inner Provider, size int) (*CachedProvider, error) {
	if size <= 0 {
		size = defaultCacheSize
	}

	cache, err := lru.New[string, []float64](size)
	if err != nil {
		return nil, fmt.Errorf("create embedding cache: %w", err)
	}

	return &CachedProvider{inner: inner, cache: cache}, nil
}

func cacheKey(text string) string {
	sum := sha1.Sum([]byte(text))
	return hex.EncodeToString(sum[:])
}

// GenerateEmbedding returns the cached vector when available.
func (p *CachedProvider) GenerateEmbedding(ctx context.Context, text string) ([]float64, error) {
	key := cacheKey(text)
	if vector, ok := p.cache.Get(key); ok {
		return vector, nil
	}

	vector, err := p.inner.GenerateEmbedding(ctx, text)
	if err != nil {
		return nil, err
	}

	p.cache.Add(key, vector)
	return vector, nil
}

// GenerateEmbeddings serves cached entries and batches the misses.
func (p *CachedProvider) GenerateEmbeddings(ctx context.Context, texts []string) ([][]float64, error) {
	out := make([][]float64, len(texts))

	var missTexts []string
	var missIndexes []int
	for i, text := range texts {
		if vector, ok := p.cache.Get(cacheKey(text)); ok {
			out[i] = vector
			continue
		}
		missTexts = append(missTexts, text)
		missIndexes = append(missIndexes, i)
	}

	if len(missTexts) == 0 {
		return out, nil
	}

	vectors, err := p.inner.GenerateEmbeddings(ctx, missTexts)
	if err != nil {
		return nil, err
	}
	if len(vectors) != len(missTexts) {
		return nil, fmt.Errorf("provider returned %d vectors for %d inputs", len(vectors), len(missTexts))
	}

	for j, vector := range vectors {
		out[missIndexes[j]] = vector
		p.cache.Add(cacheKey(missTexts[j]), vector)
	}

	return out, nil
}

// GetDimensions delegates to the wrapped provider.
func (p *CachedProvider) GetDimensions() int {
	return p.inner.GetDimensions()
}

// GetName delegates to the wrapped provider.
func (p *CachedProvider) GetName() string {
	return p.inner.GetName()
}
