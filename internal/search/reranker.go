package search

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"sort"
	"time"

	"github.com/pampax/pampax/internal/store"
)

// Reranker rescores the top candidates. Implementations must be stable with
// respect to the incoming order on score ties.
type Reranker interface {
	// Rerank returns scores aligned with docs; higher is better.
	Rerank(ctx context.Context, query string, docs []string) ([]float64, error)
	// Name identifies the reranker in logs.
	Name() string
}

// LexicalReranker is the local "transformers" stage: token-overlap scoring
// with the code tokenizer. It needs no model runtime and is fully
// deterministic.
type LexicalReranker struct{}

// Rerank scores each document by the fraction of query tokens it contains.
func (r *LexicalReranker) Rerank(_ context.Context, query string, docs []string) ([]float64, error) {
	queryTokens := store.TokenizeCode(query)
	querySet := make(map[string]struct{}, len(queryTokens))
	for _, token := range queryTokens {
		querySet[token] = struct{}{}
	}

	scores := make([]float64, len(docs))
	if len(querySet) == 0 {
		return scores, nil
	}

	for i, doc := range docs {
		docSet := make(map[string]struct{})
		for _, token := range store.TokenizeCode(doc) {
			docSet[token] = struct{}{}
		}

		matched := 0
		for token := range querySet {
			if _, ok := docSet[token]; ok {
				matched++
			}
		}
		scores[i] = float64(matched) / float64(len(querySet))
	}

	return scores, nil
}

// Name identifies the reranker.
func (r *LexicalReranker) Name() string { return "transformers" }

// APIReranker posts candidates to an external rerank endpoint.
type APIReranker struct {
	client   *http.Client
	endpoint string
	model    string
	apiKey   string
}

// NewAPIReranker builds the reranker from the PAMPAX_RERANKER_* settings map.
func NewAPIReranker(settings map[string]string) (*APIReranker, error) {
	endpoint := settings["endpoint"]
	if endpoint == "" {
		return nil, fmt.Errorf("api reranker requires an endpoint")
	}

	return &APIReranker{
		client:   &http.Client{Timeout: 30 * time.Second},
		endpoint: endpoint,
		model:    settings["model"],
		apiKey:   settings["api_key"],
	}, nil
}

type apiRerankRequest struct {
	Model     string   `json:"model,omitempty"`
	Query     string   `json:"query"`
	Documents []string `json:"documents"`
}

type apiRerankResponse struct {
	Results []struct {
		Index          int     `json:"index"`
		RelevanceScore float64 `json:"relevance_score"`
	} `json:"results"`
}

// Rerank calls the endpoint and maps relevance scores back by index.
func (r *APIReranker) Rerank(ctx context.Context, query string, docs []string) ([]float64, error) {
	body, err := json.Marshal(apiRerankRequest{Model: r.model, Query: query, Documents: docs})
	if err != nil {
		return nil, fmt.Errorf("encode rerank request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, r.endpoint, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("create rerank request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	if r.apiKey != "" {
		req.Header.Set("Authorization", "Bearer "+r.apiKey)
	}

	resp, err := r.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("call reranker: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode != http.StatusOK {
		raw, _ := io.ReadAll(resp.Body)
		return nil, fmt.Errorf("reranker returned %d: %s", resp.StatusCode, string(raw))
	}

	var decoded apiRerankResponse
	if err := json.NewDecoder(resp.Body).Decode(&decoded); err != nil {
		return nil, fmt.Errorf("decode rerank response: %w", err)
	}

	scores := make([]float64, len(docs))
	for _, item := range decoded.Results {
		if item.Index >= 0 && item.Index < len(scores) {
			scores[item.Index] = item.RelevanceScore
		}
	}

	return scores, nil
}

// Name identifies the reranker.
func (r *APIReranker) Name() string { return "api" }

// applyReranker rescores results in place and stably re-sorts them by the
// rerank score; prior order survives ties.
func applyReranker(ctx context.Context, reranker Reranker, query string, results []Result, docs []string) ([]Result, error) {
	scores, err := reranker.Rerank(ctx, query, docs)
	if err != nil {
		return nil, err
	}
	if len(scores) != len(results) {
		return nil, fmt.Errorf("reranker returned %d scores for %d candidates", len(scores), len(results))
	}

	type scored struct {
		result Result
		score  float64
	}

	items := make([]scored, len(results))
	for i := range results {
		items[i] = scored{result: results[i], score: scores[i]}
	}

	sort.SliceStable(items, func(i, j int) bool {
		return items[i].score > items[j].score
	})

	out := make([]Result, len(items))
	for i, item := range items {
		out[i] = item.result
		out[i].Score = item.score
	}

	return out, nil
}
