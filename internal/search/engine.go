package search

import (
	"context"
	"encoding/json"
	stderrors "errors"
	"runtime"
	"sort"
	"strings"

	"github.com/go-git/go-git/v5/plumbing/format/gitignore"
	"github.com/rs/zerolog/log"
	"golang.org/x/sync/errgroup"

	"github.com/pampax/pampax/internal/chunkstore"
	"github.com/pampax/pampax/internal/embed"
	pampaxerrors "github.com/pampax/pampax/internal/errors"
	"github.com/pampax/pampax/internal/store"
)

// Symbol boost coefficients: the final weight is score × path_weight plus a
// small additive boost per query token found in the symbol or tags.
const (
	symbolTokenBoost = 0.05
	tagTokenBoost    = 0.03
)

// rerankPoolMultiplier sizes the candidate pool handed to the reranker.
const rerankPoolMultiplier = 3

// Engine executes hybrid searches over the database and chunk store.
type Engine struct {
	db       *store.Store
	provider embed.Provider
	chunks   *chunkstore.Store
	reranker Reranker
}

// New creates an Engine. chunks may be nil when content retrieval is not
// needed (reranking then scores metadata only). reranker may be nil.
func New(db *store.Store, provider embed.Provider, chunks *chunkstore.Store, reranker Reranker) *Engine {
	return &Engine{db: db, provider: provider, chunks: chunks, reranker: reranker}
}

// candidate is a chunk row prepared for scoring.
type candidate struct {
	id         string
	sha        string
	path       string
	lang       string
	symbol     string
	tags       []string
	startLine  int
	endLine    int
	pathWeight float64
	embedding  []float64
	docText    string
}

// contextInfo is the slice of context_info the engine understands.
type contextInfo struct {
	StartLine  int      `json:"start_line"`
	EndLine    int      `json:"end_line"`
	PathWeight *float64 `json:"path_weight"`
}

// Search runs the full pipeline and returns at most opts.Limit results in a
// deterministic total order: score descending, then path ascending, then ID
// ascending.
func (e *Engine) Search(ctx context.Context, query string, opts Options) ([]Result, error) {
	trimmed := strings.TrimSpace(query)
	if trimmed == "" {
		return nil, pampaxerrors.InvalidInput("query cannot be empty")
	}
	if e.provider == nil {
		return nil, pampaxerrors.SearchError("embedding provider is required", nil)
	}

	limit := opts.Limit
	if limit <= 0 {
		limit = 10
	}

	queryEmbedding, err := e.provider.GenerateEmbedding(ctx, trimmed)
	if err != nil {
		return nil, pampaxerrors.EmbeddingError("generate query embedding", err)
	}

	rows, err := e.db.AllChunks(ctx)
	if err != nil {
		return nil, err
	}

	candidates := e.buildCandidates(rows, opts)
	if len(candidates) == 0 {
		return []Result{}, nil
	}

	vecRanked, err := e.rankByCosine(ctx, candidates, queryEmbedding)
	if err != nil {
		return nil, err
	}

	var bm25Ranked []rankedID
	if opts.BM25 {
		bm25Ranked = e.rankByBM25(candidates, trimmed)
	}

	var ranked []rankedID
	if opts.Hybrid && len(bm25Ranked) > 0 {
		ranked = fuseRRF(bm25Ranked, vecRanked, DefaultRRFConstant)
	} else {
		ranked = vecRanked
	}

	byID := make(map[string]*candidate, len(candidates))
	for i := range candidates {
		byID[candidates[i].id] = &candidates[i]
	}

	queryTokens := store.TokenizeCode(trimmed)

	results := make([]Result, 0, len(ranked))
	for _, r := range ranked {
		c, ok := byID[r.ID]
		if !ok {
			continue
		}

		score := r.Score
		if opts.SymbolBoost {
			score = score*c.pathWeight + boost(queryTokens, c)
		}

		results = append(results, Result{
			ID:        c.id,
			SHA:       c.sha,
			Path:      c.path,
			Lang:      c.lang,
			Score:     score,
			StartLine: c.startLine,
			EndLine:   c.endLine,
			Symbol:    c.symbol,
			Tags:      c.tags,
		})
	}

	sortResults(results)

	if reranker := e.resolveReranker(opts.Reranker); reranker != nil {
		pool := limit * rerankPoolMultiplier
		if pool > len(results) {
			pool = len(results)
		}

		head, err := e.rerankHead(ctx, reranker, trimmed, results[:pool], byID)
		if err != nil {
			if stderrors.Is(err, chunkstore.ErrChunkNotFound) {
				return nil, pampaxerrors.NotFound(err.Error()).
					WithHint("a referenced chunk file is missing; run 'pampax index' to rebuild")
			}
			if stderrors.Is(err, chunkstore.ErrKeyRequired) {
				return nil, pampaxerrors.ConfigError(err.Error(), err).
					WithHint("set PAMPAX_ENCRYPTION_KEY or pass --encryption-key")
			}
			return nil, pampaxerrors.SearchError("rerank results", err)
		}
		sortResults(head)
		results = append(head, results[pool:]...)
	}

	if len(results) > limit {
		results = results[:limit]
	}

	// Learning signal only; failures never affect search correctness.
	if err := e.db.RecordPattern(ctx, trimmed); err != nil {
		log.Debug().Err(err).Msg("record_query_pattern_failed")
	}

	return results, nil
}

// buildCandidates converts rows to candidates, applying the declared filters.
func (e *Engine) buildCandidates(rows []store.ChunkRow, opts Options) []candidate {
	globs := compileGlobs(opts.PathGlobs)

	langSet := make(map[string]struct{}, len(opts.Languages))
	for _, lang := range opts.Languages {
		langSet[strings.ToLower(strings.TrimSpace(lang))] = struct{}{}
	}

	var out []candidate
	for _, row := range rows {
		if len(langSet) > 0 {
			if _, ok := langSet[strings.ToLower(row.Lang)]; !ok {
				continue
			}
		}

		if len(globs) > 0 && !matchesAnyGlob(globs, row.FilePath) {
			continue
		}

		tags := parseStringArray(row.PampaTags)
		if !containsAll(tags, opts.Tags) {
			continue
		}

		c := candidate{
			id:         row.ID,
			sha:        row.SHA,
			path:       row.FilePath,
			lang:       row.Lang,
			symbol:     row.Symbol,
			tags:       tags,
			pathWeight: 1,
			docText:    buildDocText(row, tags),
		}

		if row.ContextInfo != nil {
			var info contextInfo
			if err := json.Unmarshal([]byte(*row.ContextInfo), &info); err == nil {
				c.startLine = info.StartLine
				c.endLine = info.EndLine
				if info.PathWeight != nil && *info.PathWeight > 0 {
					c.pathWeight = *info.PathWeight
				}
			}
		}

		if len(row.Embedding) > 0 && row.EmbeddingDimensions != nil {
			if vector, err := store.DecodeEmbedding(row.Embedding, *row.EmbeddingDimensions); err == nil {
				c.embedding = vector
			}
		}

		out = append(out, c)
	}

	return out
}

// rankByCosine scores every dimension-compatible candidate in parallel
// shards and returns them ranked by similarity. Chunks without a compatible
// embedding are silently skipped.
func (e *Engine) rankByCosine(ctx context.Context, candidates []candidate, queryEmbedding []float64) ([]rankedID, error) {
	shards := runtime.NumCPU()
	if shards < 1 {
		shards = 1
	}
	if shards > len(candidates) {
		shards = len(candidates)
	}

	scored := make([]rankedID, len(candidates))
	matched := make([]bool, len(candidates))

	group, _ := errgroup.WithContext(ctx)
	chunkSize := (len(candidates) + shards - 1) / shards

	for s := 0; s < shards; s++ {
		start := s * chunkSize
		end := start + chunkSize
		if end > len(candidates) {
			end = len(candidates)
		}
		if start >= end {
			break
		}

		group.Go(func() error {
			for i := start; i < end; i++ {
				c := &candidates[i]
				if len(c.embedding) == 0 || len(c.embedding) != len(queryEmbedding) {
					continue
				}
				scored[i] = rankedID{ID: c.id, Score: CosineSimilarity(queryEmbedding, c.embedding)}
				matched[i] = true
			}
			return nil
		})
	}

	if err := group.Wait(); err != nil {
		return nil, pampaxerrors.SearchError("score candidates", err)
	}

	out := make([]rankedID, 0, len(candidates))
	for i := range scored {
		if matched[i] {
			out = append(out, scored[i])
		}
	}

	sort.Slice(out, func(i, j int) bool {
		if out[i].Score != out[j].Score {
			return out[i].Score > out[j].Score
		}
		return out[i].ID < out[j].ID
	})

	return out, nil
}

// rankByBM25 builds the lexical index over the candidates' indexed text.
func (e *Engine) rankByBM25(candidates []candidate, query string) []rankedID {
	idx := store.NewBM25Index(store.DefaultBM25Config())

	docs := make([]store.Document, len(candidates))
	for i, c := range candidates {
		docs[i] = store.Document{ID: c.id, Content: c.docText}
	}
	idx.Add(docs)

	hits := idx.Search(query, 0)
	out := make([]rankedID, len(hits))
	for i, hit := range hits {
		out[i] = rankedID{ID: hit.DocID, Score: hit.Score}
	}

	return out
}

// rerankHead rescores the head of the result list with chunk content when the
// chunk store is available, falling back to indexed metadata text.
func (e *Engine) rerankHead(ctx context.Context, reranker Reranker, query string, head []Result, byID map[string]*candidate) ([]Result, error) {
	docs := make([]string, len(head))
	for i, r := range head {
		text := ""
		if c, ok := byID[r.ID]; ok {
			text = c.docText
		}

		if e.chunks != nil {
			content, err := e.chunks.Read(r.SHA)
			if err != nil {
				return nil, err
			}
			text = content
		}

		docs[i] = text
	}

	return applyReranker(ctx, reranker, query, head, docs)
}

func (e *Engine) resolveReranker(mode string) Reranker {
	switch strings.ToLower(strings.TrimSpace(mode)) {
	case "transformers":
		return &LexicalReranker{}
	case "api":
		return e.reranker
	default:
		return nil
	}
}

// boost adds the symbol/tag token overlap bonus.
func boost(queryTokens []string, c *candidate) float64 {
	if len(queryTokens) == 0 {
		return 0
	}

	symbolTokens := make(map[string]struct{})
	for _, token := range store.TokenizeCode(c.symbol) {
		symbolTokens[token] = struct{}{}
	}

	tagTokens := make(map[string]struct{})
	for _, tag := range c.tags {
		for _, token := range store.TokenizeCode(tag) {
			tagTokens[token] = struct{}{}
		}
	}

	var bonus float64
	for _, token := range queryTokens {
		if _, ok := symbolTokens[token]; ok {
			bonus += symbolTokenBoost
		}
		if _, ok := tagTokens[token]; ok {
			bonus += tagTokenBoost
		}
	}

	return bonus
}

// sortResults applies the deterministic total order.
func sortResults(results []Result) {
	sort.Slice(results, func(i, j int) bool {
		if results[i].Score != results[j].Score {
			return results[i].Score > results[j].Score
		}
		if results[i].Path != results[j].Path {
			return results[i].Path < results[j].Path
		}
		return results[i].ID < results[j].ID
	})
}

// buildDocText concatenates the indexed metadata fields that feed BM25.
func buildDocText(row store.ChunkRow, tags []string) string {
	var parts []string

	if row.Symbol != "" {
		parts = append(parts, row.Symbol)
	}
	parts = append(parts, row.FilePath)
	parts = append(parts, tags...)

	for _, field := range []*string{row.PampaIntent, row.PampaDescription, row.DocComments} {
		if field != nil && *field != "" {
			parts = append(parts, *field)
		}
	}

	if row.VariablesUsed != nil {
		parts = append(parts, parseJSONArrayText(*row.VariablesUsed)...)
	}

	return strings.Join(parts, " ")
}

func parseStringArray(raw *string) []string {
	if raw == nil {
		return nil
	}
	return parseJSONArrayText(*raw)
}

func parseJSONArrayText(raw string) []string {
	var values []string
	if err := json.Unmarshal([]byte(raw), &values); err != nil {
		return nil
	}
	return values
}

func containsAll(have, want []string) bool {
	if len(want) == 0 {
		return true
	}

	haveSet := make(map[string]struct{}, len(have))
	for _, tag := range have {
		haveSet[strings.ToLower(tag)] = struct{}{}
	}

	for _, tag := range want {
		if _, ok := haveSet[strings.ToLower(strings.TrimSpace(tag))]; !ok {
			return false
		}
	}

	return true
}

// compileGlobs reuses the gitignore pattern engine for path_glob filters, so
// ** and directory globs behave the same way everywhere.
func compileGlobs(globs []string) []gitignore.Pattern {
	out := make([]gitignore.Pattern, 0, len(globs))
	for _, glob := range globs {
		trimmed := strings.TrimSpace(glob)
		if trimmed == "" {
			continue
		}
		out = append(out, gitignore.ParsePattern(trimmed, nil))
	}
	return out
}

func matchesAnyGlob(patterns []gitignore.Pattern, path string) bool {
	parts := strings.Split(path, "/")
	for _, pattern := range patterns {
		if pattern.Match(parts, false) == gitignore.Exclude {
			return true
		}
	}
	return false
}
