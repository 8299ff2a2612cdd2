// Package store is the persistence layer: the SQLite database holding chunk
// rows with their embedding BLOBs, the auxiliary learning tables, and the
// in-memory BM25 index built from those rows at query time.
package store

// ChunkRow is one row of the code_chunks table.
//
// Symbol is never NULL in the database; a chunk without a symbol stores the
// empty string (the codemap renders that as JSON null). JSON-typed columns
// are either valid JSON of the expected shape or NULL, never "".
type ChunkRow struct {
	ID                  string
	FilePath            string
	Symbol              string
	SHA                 string
	Lang                string
	ChunkType           string
	Embedding           []byte
	EmbeddingProvider   *string
	EmbeddingDimensions *int
	PampaTags           *string
	PampaIntent         *string
	PampaDescription    *string
	DocComments         *string
	VariablesUsed       *string
	ContextInfo         *string
	CreatedAt           string
	UpdatedAt           string
}

// Intention is a learned mapping from a normalized query to a chunk SHA.
type Intention struct {
	Query      string
	TargetSHA  string
	Confidence float64
	UsageCount int
}

// QueryPattern tracks how often a normalized query shape has been seen.
type QueryPattern struct {
	Pattern   string
	Frequency int
}

// Document is a unit of content fed to the BM25 index.
type Document struct {
	ID      string
	Content string
}

// BM25Result is a single BM25 hit.
type BM25Result struct {
	DocID string
	Score float64
}

// BM25Config tunes the BM25 ranking function.
type BM25Config struct {
	// K1 is the term frequency saturation parameter.
	K1 float64
	// B is the length normalization parameter.
	B float64
	// StopWords are filtered out during tokenization.
	StopWords []string
	// MinTokenLength is the minimum token length to index.
	MinTokenLength int
}

// DefaultBM25Config returns the tuning used for code corpora.
func DefaultBM25Config() BM25Config {
	return BM25Config{
		K1:             1.2,
		B:              0.75,
		StopWords:      DefaultCodeStopWords,
		MinTokenLength: 2,
	}
}

// DefaultCodeStopWords contains programming keywords and filler identifiers
// that carry no ranking signal.
var DefaultCodeStopWords = []string{
	"var", "let", "const", "func", "function", "def", "class",
	"return", "if", "else", "for", "while",
	"data", "result", "value", "item", "key", "err", "ctx", "tmp",
}
