package store

import (
	"math"
	"sort"
)

// BM25Index scores documents with the classical BM25 function over the
// code-aware tokenizer. It is built in memory from the database rows at
// query time: the portable artifact set has no auxiliary index files, so
// the lexical index is always derived from the DB.
type BM25Index struct {
	config    BM25Config
	stopWords map[string]struct{}

	docIDs     []string
	docTokens  []map[string]int
	docLengths []int
	docFreq    map[string]int
	totalLen   int
}

// NewBM25Index creates an empty index with the given configuration.
func NewBM25Index(config BM25Config) *BM25Index {
	if config.K1 <= 0 {
		config.K1 = 1.2
	}
	if config.B <= 0 {
		config.B = 0.75
	}
	if config.MinTokenLength <= 0 {
		config.MinTokenLength = 2
	}

	return &BM25Index{
		config:    config,
		stopWords: BuildStopWordMap(config.StopWords),
		docFreq:   make(map[string]int),
	}
}

// Add indexes documents. Documents are scored in the order they are added;
// ranking ties are broken by ascending document ID.
func (idx *BM25Index) Add(docs []Document) {
	for _, doc := range docs {
		counts := make(map[string]int)
		length := 0

		for _, token := range idx.tokenize(doc.Content) {
			counts[token]++
			length++
		}

		idx.docIDs = append(idx.docIDs, doc.ID)
		idx.docTokens = append(idx.docTokens, counts)
		idx.docLengths = append(idx.docLengths, length)
		idx.totalLen += length

		for token := range counts {
			idx.docFreq[token]++
		}
	}
}

// Count returns the number of indexed documents.
func (idx *BM25Index) Count() int {
	return len(idx.docIDs)
}

// Search returns documents scored by BM25, descending; only documents with a
// positive score appear. Limit <= 0 means no cap.
func (idx *BM25Index) Search(query string, limit int) []BM25Result {
	queryTokens := idx.tokenize(query)
	if len(queryTokens) == 0 || len(idx.docIDs) == 0 {
		return []BM25Result{}
	}

	n := float64(len(idx.docIDs))
	avgLen := float64(idx.totalLen) / n

	results := make([]BM25Result, 0, len(idx.docIDs))
	for i, docID := range idx.docIDs {
		score := 0.0
		docLen := float64(idx.docLengths[i])

		for _, token := range queryTokens {
			tf := float64(idx.docTokens[i][token])
			if tf == 0 {
				continue
			}

			df := float64(idx.docFreq[token])
			idf := math.Log(1 + (n-df+0.5)/(df+0.5))

			denom := tf + idx.config.K1*(1-idx.config.B+idx.config.B*docLen/avgLen)
			score += idf * tf * (idx.config.K1 + 1) / denom
		}

		if score > 0 {
			results = append(results, BM25Result{DocID: docID, Score: score})
		}
	}

	sort.Slice(results, func(i, j int) bool {
		if results[i].Score != results[j].Score {
			return results[i].Score > results[j].Score
		}
		return results[i].DocID < results[j].DocID
	})

	if limit > 0 && len(results) > limit {
		results = results[:limit]
	}

	return results
}

func (idx *BM25Index) tokenize(text string) []string {
	raw := TokenizeCode(text)
	out := make([]string, 0, len(raw))
	for _, token := range raw {
		if len(token) < idx.config.MinTokenLength {
			continue
		}
		if _, stop := idx.stopWords[token]; stop {
			continue
		}
		out = append(out, token)
	}
	return out
}
