// Package indexer orchestrates a full index run under one consistent view:
// discover files, chunk them, embed in batches, persist the chunk store and
// database, and rewrite the codemap. A run holds the repository lock;
// concurrent processes indexing the same repository are not supported.
package indexer

import (
	"context"
	"encoding/json"
	stderrors "errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/gofrs/flock"
	"github.com/rs/zerolog/log"

	"github.com/pampax/pampax/internal/chunk"
	"github.com/pampax/pampax/internal/chunkstore"
	"github.com/pampax/pampax/internal/codemap"
	"github.com/pampax/pampax/internal/discovery"
	"github.com/pampax/pampax/internal/embed"
	pampaxerrors "github.com/pampax/pampax/internal/errors"
	"github.com/pampax/pampax/internal/store"
)

// Layout constants for the per-repository artifacts.
const (
	PampaDirName    = ".pampa"
	DBFileName      = "pampa.db"
	ChunksDirName   = "chunks"
	CodemapFileName = "pampa.codemap.json"
	lockFileName    = "lock"
)

// Options configure an index run.
type Options struct {
	// Root is the repository root.
	Root string
	// Provider supplies embeddings.
	Provider embed.Provider
	// Encrypt stores chunk files in the encrypted format.
	Encrypt bool
	// MasterKey is required when Encrypt is set.
	MasterKey []byte
	// Workers sizes the discovery pool (default: host parallelism).
	Workers int
	// BatchSize sizes embedding batches (default 32).
	BatchSize int
}

// Summary reports what an index run did.
type Summary struct {
	Path              string              `json:"path"`
	Provider          string              `json:"provider"`
	Dimensions        int                 `json:"dimensions"`
	Encrypted         bool                `json:"encrypted"`
	FilesIndexed      int                 `json:"files_indexed"`
	FilesSkipped      int                 `json:"files_skipped"`
	ChunksIndexed     int                 `json:"chunks_indexed"`
	EmbeddingFailures int                 `json:"embedding_failures"`
	DurationMS        int64               `json:"duration_ms"`
	Warnings          []discovery.Warning `json:"warnings"`
}

// DBPath returns the database path for a repository root.
func DBPath(root string) string {
	return filepath.Join(root, PampaDirName, DBFileName)
}

// ChunksDir returns the chunk directory for a repository root.
func ChunksDir(root string) string {
	return filepath.Join(root, PampaDirName, ChunksDirName)
}

// CodemapPath returns the codemap path for a repository root.
func CodemapPath(root string) string {
	return filepath.Join(root, CodemapFileName)
}

// Run executes a full index (index and update share this path; update is a
// full reindex in v1).
func Run(ctx context.Context, opts Options) (*Summary, error) {
	started := time.Now()

	root, err := filepath.Abs(opts.Root)
	if err != nil {
		return nil, pampaxerrors.IOError("resolve repository root", err)
	}

	if opts.Provider == nil {
		return nil, pampaxerrors.ConfigError("embedding provider is required", nil)
	}
	if opts.Encrypt && len(opts.MasterKey) != 32 {
		return nil, pampaxerrors.ConfigError("encryption requested without a valid key", nil).
			WithHint("set PAMPAX_ENCRYPTION_KEY or pass --encryption-key")
	}

	pampaDir := filepath.Join(root, PampaDirName)
	if err := os.MkdirAll(pampaDir, 0o755); err != nil {
		return nil, pampaxerrors.IOError("create .pampa directory", err)
	}

	// Lock contention gets a brief bounded retry before surfacing IO_ERROR.
	repoLock := flock.New(filepath.Join(pampaDir, lockFileName))
	lockCtx, cancelLock := context.WithTimeout(ctx, 2*time.Second)
	locked, err := repoLock.TryLockContext(lockCtx, 100*time.Millisecond)
	cancelLock()
	if err != nil && !stderrors.Is(err, context.DeadlineExceeded) {
		return nil, pampaxerrors.IOError("acquire repository lock", err)
	}
	if !locked {
		return nil, pampaxerrors.IOError("repository is locked by another pampax process", nil).
			WithHint("wait for the other run to finish or remove .pampa/lock if stale")
	}
	defer func() { _ = repoLock.Unlock() }()

	matcher, err := discovery.NewIgnoreMatcher(root)
	if err != nil {
		return nil, pampaxerrors.IOError("build ignore matcher", err)
	}

	walkResult, err := discovery.Walk(ctx, discovery.WalkOptions{
		Root:    root,
		Workers: opts.Workers,
		Matcher: matcher,
	})
	if err != nil {
		return nil, pampaxerrors.IOError("walk repository", err)
	}

	log.Info().
		Int("files", len(walkResult.Paths)).
		Int("warnings", len(walkResult.Warnings)).
		Msg("discovery_complete")

	db, err := store.Open(DBPath(root))
	if err != nil {
		return nil, err
	}
	defer func() { _ = db.Close() }()

	chunks := chunkstore.New(ChunksDir(root), opts.MasterKey)
	chunker := chunk.NewChunker()
	defer chunker.Close()

	summary := &Summary{
		Path:       root,
		Provider:   opts.Provider.GetName(),
		Dimensions: opts.Provider.GetDimensions(),
		Encrypted:  opts.Encrypt,
		Warnings:   walkResult.Warnings,
	}

	// Chunk every file in the deterministic path order; the codemap and DB
	// iteration order both derive from this.
	var pendings []pendingChunk
	seenIDs := make(map[string]struct{})

	for _, relPath := range walkResult.Paths {
		if err := ctx.Err(); err != nil {
			return nil, pampaxerrors.IOError("index run cancelled", err)
		}

		source, readErr := os.ReadFile(filepath.Join(root, filepath.FromSlash(relPath)))
		if readErr != nil {
			summary.FilesSkipped++
			summary.Warnings = append(summary.Warnings, discovery.Warning{
				Code:    discovery.WarningStatFailed,
				Path:    relPath,
				Message: fmt.Sprintf("failed to read file: %v", readErr),
			})
			continue
		}

		fileChunks, chunkErr := chunker.ChunkFile(ctx, relPath, source)
		if chunkErr != nil {
			summary.FilesSkipped++
			summary.Warnings = append(summary.Warnings, discovery.Warning{
				Code:    discovery.WarningStatFailed,
				Path:    relPath,
				Message: chunkErr.Error(),
			})
			continue
		}
		if len(fileChunks) == 0 {
			summary.FilesSkipped++
			continue
		}

		filePendings := buildFileEntries(relPath, fileChunks, opts, seenIDs)
		pendings = append(pendings, filePendings...)
		summary.FilesIndexed++
	}

	// Embed in provider-sized batches; a failed batch is retried once, then
	// each chunk individually. Chunks whose embedding still fails are
	// persisted with a NULL blob and excluded from vector search.
	batchSize := opts.BatchSize
	if batchSize <= 0 {
		batchSize = embed.DefaultBatchSize
	}

	for start := 0; start < len(pendings); start += batchSize {
		if err := ctx.Err(); err != nil {
			return nil, pampaxerrors.IOError("index run cancelled", err)
		}

		end := start + batchSize
		if end > len(pendings) {
			end = len(pendings)
		}

		texts := make([]string, end-start)
		for i := start; i < end; i++ {
			texts[i-start] = pendings[i].text
		}

		vectors, embedErr := opts.Provider.GenerateEmbeddings(ctx, texts)
		if embedErr != nil {
			log.Warn().Err(embedErr).Int("batch_start", start).Msg("embedding_batch_failed_retrying")
			vectors, embedErr = opts.Provider.GenerateEmbeddings(ctx, texts)
		}

		if embedErr != nil {
			// Per-chunk fallback after the batch retry.
			for i := start; i < end; i++ {
				vector, singleErr := opts.Provider.GenerateEmbedding(ctx, pendings[i].text)
				if singleErr != nil {
					summary.EmbeddingFailures++
					log.Warn().Str("chunk", pendings[i].row.ID).Err(singleErr).Msg("embedding_failed")
					continue
				}
				attachEmbedding(&pendings[i].row, vector, opts.Provider)
			}
			continue
		}

		for i := start; i < end; i++ {
			attachEmbedding(&pendings[i].row, vectors[i-start], opts.Provider)
		}
	}

	// Chunk files are written before the DB rows that reference them.
	referenced := make(map[string]struct{}, len(pendings))
	for i := range pendings {
		if err := ctx.Err(); err != nil {
			return nil, pampaxerrors.IOError("index run cancelled", err)
		}

		sha := pendings[i].row.SHA
		if _, done := referenced[sha]; !done {
			if err := chunks.Write(sha, pendings[i].text, opts.Encrypt); err != nil {
				return nil, pampaxerrors.IOError(fmt.Sprintf("write chunk %s", sha), err)
			}
			referenced[sha] = struct{}{}
		}
	}

	rows := make([]store.ChunkRow, len(pendings))
	keepIDs := make([]string, len(pendings))
	for i := range pendings {
		rows[i] = pendings[i].row
		keepIDs[i] = pendings[i].row.ID
	}

	if err := db.ReplaceChunks(ctx, rows); err != nil {
		return nil, err
	}

	// Rows from prior runs that this run no longer references are removed,
	// along with any chunk files nothing points at anymore.
	orphanSHAs, err := db.DeleteChunksNotIn(ctx, keepIDs)
	if err != nil {
		return nil, err
	}
	for _, sha := range orphanSHAs {
		if _, stillReferenced := referenced[sha]; stillReferenced {
			continue
		}
		if err := chunks.Remove(sha); err != nil {
			log.Warn().Str("sha", sha).Err(err).Msg("orphan_chunk_remove_failed")
		}
	}

	storedSHAs, err := chunks.ListSHAs()
	if err == nil {
		for _, sha := range storedSHAs {
			if _, ok := referenced[sha]; !ok {
				if err := chunks.Remove(sha); err != nil {
					log.Warn().Str("sha", sha).Err(err).Msg("orphan_chunk_remove_failed")
				}
			}
		}
	}

	// The codemap is replaced last via temp-file rename; a run is complete
	// only once the DB and codemap agree.
	cm := codemap.NewOrderedMap()
	for i := range pendings {
		cm.Set(pendings[i].row.ID, pendings[i].meta)
	}
	if err := codemap.Write(CodemapPath(root), cm); err != nil {
		return nil, pampaxerrors.IOError("write codemap", err)
	}

	summary.ChunksIndexed = len(pendings)
	summary.DurationMS = time.Since(started).Milliseconds()
	if summary.Warnings == nil {
		summary.Warnings = []discovery.Warning{}
	}

	log.Info().
		Int("files", summary.FilesIndexed).
		Int("chunks", summary.ChunksIndexed).
		Int("embedding_failures", summary.EmbeddingFailures).
		Int64("duration_ms", summary.DurationMS).
		Msg("index_complete")

	return summary, nil
}

// pendingChunk carries one chunk through embedding and persistence.
type pendingChunk struct {
	row  store.ChunkRow
	meta codemap.ChunkMetadata
	text string
}

// buildFileEntries turns a file's chunks into DB rows and codemap entries.
// Call edges are resolved within the file: a chunk's call that names another
// chunk's symbol becomes a call target there and a caller edge back.
func buildFileEntries(relPath string, fileChunks []chunk.Chunk, opts Options, seenIDs map[string]struct{}) []pendingChunk {
	symbolsInFile := make(map[string]int)
	for i, c := range fileChunks {
		if c.HasSymbol {
			symbolsInFile[c.Name] = i
		}
	}

	callers := make(map[int][]string)
	for _, c := range fileChunks {
		if c.Symbol == nil || !c.HasSymbol {
			continue
		}
		for _, call := range c.Symbol.Calls {
			if target, ok := symbolsInFile[call]; ok && fileChunks[target].Name != c.Name {
				callers[target] = append(callers[target], c.Name)
			}
		}
	}

	var out []pendingChunk
	for i, c := range fileChunks {
		sha := chunkstore.ComputeSHA(c.Text)
		id := fmt.Sprintf("%s:%s:%s", relPath, c.Name, sha[:8])
		if _, dup := seenIDs[id]; dup {
			continue
		}
		seenIDs[id] = struct{}{}

		symbol := ""
		var symbolPtr *string
		if c.HasSymbol {
			symbol = c.Name
			symbolPtr = &fileChunks[i].Name
		}

		providerName := opts.Provider.GetName()
		dims := opts.Provider.GetDimensions()

		contextJSON, _ := json.Marshal(map[string]any{
			"start_line": c.StartLine,
			"end_line":   c.EndLine,
		})
		contextInfo := string(contextJSON)

		tagsJSON, _ := json.Marshal(deriveTags(relPath, c.Lang))
		tags := string(tagsJSON)

		row := store.ChunkRow{
			ID:                  id,
			FilePath:            relPath,
			Symbol:              symbol,
			SHA:                 sha,
			Lang:                c.Lang,
			ChunkType:           string(c.ChunkType),
			EmbeddingProvider:   &providerName,
			EmbeddingDimensions: &dims,
			PampaTags:           &tags,
			ContextInfo:         &contextInfo,
		}

		meta := codemap.ChunkMetadata{
			File:         relPath,
			Symbol:       symbolPtr,
			SHA:          sha,
			Lang:         c.Lang,
			ChunkType:    string(c.ChunkType),
			Provider:     providerName,
			Dimensions:   dims,
			HasPampaTags: true,
			Encrypted:    opts.Encrypt,
		}

		if c.Symbol != nil {
			meta.SymbolSignature = c.Symbol.Signature
			meta.SymbolParameters = c.Symbol.Parameters
			meta.SymbolReturn = c.Symbol.Return
			meta.SymbolCalls = c.Symbol.Calls
			meta.SymbolNeighbors = c.Symbol.Neighbors

			var targets []string
			for _, call := range c.Symbol.Calls {
				if _, ok := symbolsInFile[call]; ok && call != c.Name {
					targets = append(targets, call)
				}
			}
			meta.SymbolCallTargets = targets
			meta.SymbolCallers = callers[i]
		}

		out = append(out, pendingChunk{row: row, meta: meta, text: c.Text})
	}

	return out
}

// deriveTags produces the baseline tag set: language plus the top-level
// directory when the file is nested.
func deriveTags(relPath, lang string) []string {
	tags := []string{lang}
	if idx := strings.IndexByte(relPath, '/'); idx > 0 {
		tags = append(tags, relPath[:idx])
	}
	return tags
}

func attachEmbedding(row *store.ChunkRow, vector []float64, provider embed.Provider) {
	blob, err := store.EncodeEmbedding(vector)
	if err != nil {
		log.Warn().Str("chunk", row.ID).Err(err).Msg("embedding_encode_failed")
		return
	}

	row.Embedding = blob
	dims := len(vector)
	row.EmbeddingDimensions = &dims
	name := provider.GetName()
	row.EmbeddingProvider = &name
}
