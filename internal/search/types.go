// Package search implements the hybrid query pipeline: query embedding,
// brute-force cosine over the dimension-compatible corpus, BM25 over the
// indexed metadata, Reciprocal Rank Fusion, symbol boosting, optional
// reranking, and a deterministic final ordering.
package search

// Options control one search invocation.
type Options struct {
	// Limit caps the result count (default 10).
	Limit int
	// PathGlobs filter results by forward-slash path globs.
	PathGlobs []string
	// Languages filter results by language tag.
	Languages []string
	// Tags require every listed tag on the chunk.
	Tags []string
	// Hybrid fuses BM25 and vector rankings via RRF; off means vector only.
	Hybrid bool
	// BM25 enables lexical candidate generation.
	BM25 bool
	// SymbolBoost applies path_weight and query-token boosts.
	SymbolBoost bool
	// Reranker selects the rerank stage: "off", "transformers" or "api".
	Reranker string
}

// DefaultOptions returns the CLI defaults.
func DefaultOptions() Options {
	return Options{
		Limit:       10,
		Hybrid:      true,
		BM25:        true,
		SymbolBoost: true,
		Reranker:    "off",
	}
}

// Result is one search hit.
type Result struct {
	ID        string   `json:"id"`
	SHA       string   `json:"sha"`
	Path      string   `json:"path"`
	Lang      string   `json:"lang"`
	Score     float64  `json:"score"`
	StartLine int      `json:"start_line,omitempty"`
	EndLine   int      `json:"end_line,omitempty"`
	Symbol    string   `json:"symbol,omitempty"`
	Tags      []string `json:"tags,omitempty"`
}
