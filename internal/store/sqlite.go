package store

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	_ "modernc.org/sqlite" // pure Go SQLite driver, no CGO

	pampaxerrors "github.com/pampax/pampax/internal/errors"
)

// schemaStatements is the frozen v1 schema.
var schemaStatements = []string{
	`CREATE TABLE IF NOT EXISTS code_chunks (
		id TEXT PRIMARY KEY,
		file_path TEXT NOT NULL,
		symbol TEXT NOT NULL,
		sha TEXT NOT NULL,
		lang TEXT NOT NULL,
		chunk_type TEXT NOT NULL DEFAULT 'function',
		embedding BLOB,
		embedding_provider TEXT,
		embedding_dimensions INTEGER,
		pampa_tags TEXT,
		pampa_intent TEXT,
		pampa_description TEXT,
		doc_comments TEXT,
		variables_used TEXT,
		context_info TEXT,
		created_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP,
		updated_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP
	)`,
	`CREATE TABLE IF NOT EXISTS intention_cache (
		query TEXT PRIMARY KEY,
		target_sha TEXT NOT NULL,
		confidence REAL NOT NULL DEFAULT 0,
		usage_count INTEGER NOT NULL DEFAULT 1,
		created_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP,
		updated_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP
	)`,
	`CREATE TABLE IF NOT EXISTS query_patterns (
		pattern TEXT PRIMARY KEY,
		frequency INTEGER NOT NULL DEFAULT 1,
		created_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP,
		updated_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP
	)`,
	`CREATE INDEX IF NOT EXISTS idx_code_chunks_file_path ON code_chunks(file_path)`,
	`CREATE INDEX IF NOT EXISTS idx_code_chunks_symbol ON code_chunks(symbol)`,
	`CREATE INDEX IF NOT EXISTS idx_code_chunks_lang ON code_chunks(lang)`,
	`CREATE INDEX IF NOT EXISTS idx_code_chunks_provider ON code_chunks(embedding_provider)`,
	`CREATE INDEX IF NOT EXISTS idx_code_chunks_chunk_type ON code_chunks(chunk_type)`,
	`CREATE INDEX IF NOT EXISTS idx_code_chunks_pampa_tags ON code_chunks(pampa_tags)`,
	`CREATE INDEX IF NOT EXISTS idx_code_chunks_pampa_intent ON code_chunks(pampa_intent)`,
	`CREATE INDEX IF NOT EXISTS idx_code_chunks_lang_provider_dims
		ON code_chunks(lang, embedding_provider, embedding_dimensions)`,
	`CREATE INDEX IF NOT EXISTS idx_intention_cache_target_sha ON intention_cache(target_sha)`,
	`CREATE INDEX IF NOT EXISTS idx_query_patterns_frequency ON query_patterns(frequency)`,
}

// creationPragmas are applied when a database is created. Existing databases
// with other page sizes stay readable; page_size only takes effect before the
// first page is written.
var creationPragmas = []string{
	"PRAGMA page_size = 4096",
	"PRAGMA journal_mode = delete",
	"PRAGMA encoding = 'UTF-8'",
	"PRAGMA foreign_keys = OFF",
}

// Store wraps the SQLite database. The connection is single-writer,
// multi-reader within one process.
type Store struct {
	db   *sql.DB
	path string
}

// Open opens (or creates) the database at path and ensures the v1 schema.
func Open(path string) (*Store, error) {
	if dir := filepath.Dir(path); dir != "" && dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, pampaxerrors.IOError("create database directory", err)
		}
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, pampaxerrors.DBError("open database", err)
	}

	// Single writer prevents lock contention under the driver.
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)
	db.SetConnMaxLifetime(0)

	for _, pragma := range creationPragmas {
		if _, err := db.Exec(pragma); err != nil {
			_ = db.Close()
			return nil, pampaxerrors.DBError("set pragma", err)
		}
	}

	for _, stmt := range schemaStatements {
		if _, err := db.Exec(stmt); err != nil {
			_ = db.Close()
			return nil, pampaxerrors.DBError("create schema", err)
		}
	}

	return &Store{db: db, path: path}, nil
}

// Path returns the database file path.
func (s *Store) Path() string {
	return s.path
}

// Close closes the database.
func (s *Store) Close() error {
	return s.db.Close()
}

// ReplaceChunks inserts or replaces rows in a single transaction. JSON-typed
// fields are validated first; invalid values are warned about and stored as
// NULL without aborting the insert.
func (s *Store) ReplaceChunks(ctx context.Context, rows []ChunkRow) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return pampaxerrors.DBError("begin transaction", err)
	}
	defer func() { _ = tx.Rollback() }()

	stmt, err := tx.PrepareContext(ctx, `
		INSERT INTO code_chunks (
			id, file_path, symbol, sha, lang, chunk_type,
			embedding, embedding_provider, embedding_dimensions,
			pampa_tags, pampa_intent, pampa_description,
			doc_comments, variables_used, context_info, updated_at
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, CURRENT_TIMESTAMP)
		ON CONFLICT(id) DO UPDATE SET
			file_path = excluded.file_path,
			symbol = excluded.symbol,
			sha = excluded.sha,
			lang = excluded.lang,
			chunk_type = excluded.chunk_type,
			embedding = excluded.embedding,
			embedding_provider = excluded.embedding_provider,
			embedding_dimensions = excluded.embedding_dimensions,
			pampa_tags = excluded.pampa_tags,
			pampa_intent = excluded.pampa_intent,
			pampa_description = excluded.pampa_description,
			doc_comments = excluded.doc_comments,
			variables_used = excluded.variables_used,
			context_info = excluded.context_info,
			updated_at = CURRENT_TIMESTAMP`)
	if err != nil {
		return pampaxerrors.DBError("prepare insert", err)
	}
	defer func() { _ = stmt.Close() }()

	for _, row := range rows {
		validated := ValidateChunkJSONFields(row.PampaTags, row.VariablesUsed, row.ContextInfo)

		chunkType := row.ChunkType
		if chunkType == "" {
			chunkType = "function"
		}

		if _, err := stmt.ExecContext(ctx,
			row.ID, row.FilePath, row.Symbol, row.SHA, row.Lang, chunkType,
			nullableBytes(row.Embedding), nullableString(row.EmbeddingProvider),
			nullableInt(row.EmbeddingDimensions),
			nullableString(validated.PampaTags),
			nullableString(row.PampaIntent),
			nullableString(row.PampaDescription),
			nullableString(row.DocComments),
			nullableString(validated.VariablesUsed),
			nullableString(validated.ContextInfo),
		); err != nil {
			return pampaxerrors.DBError(fmt.Sprintf("insert chunk %s", row.ID), err)
		}
	}

	if err := tx.Commit(); err != nil {
		return pampaxerrors.DBError("commit transaction", err)
	}

	return nil
}

// DeleteChunksNotIn removes rows whose ID is not in keep and returns the SHAs
// that are no longer referenced by any surviving row, so the chunk files can
// be deleted.
func (s *Store) DeleteChunksNotIn(ctx context.Context, keep []string) ([]string, error) {
	keepSet := make(map[string]struct{}, len(keep))
	for _, id := range keep {
		keepSet[id] = struct{}{}
	}

	rows, err := s.db.QueryContext(ctx, `SELECT id, sha FROM code_chunks`)
	if err != nil {
		return nil, pampaxerrors.DBError("list chunks", err)
	}

	var deleteIDs []string
	doomedSHAs := make(map[string]struct{})
	survivorSHAs := make(map[string]struct{})

	for rows.Next() {
		var id, sha string
		if err := rows.Scan(&id, &sha); err != nil {
			_ = rows.Close()
			return nil, pampaxerrors.DBError("scan chunk row", err)
		}
		if _, ok := keepSet[id]; ok {
			survivorSHAs[sha] = struct{}{}
		} else {
			deleteIDs = append(deleteIDs, id)
			doomedSHAs[sha] = struct{}{}
		}
	}
	if err := rows.Err(); err != nil {
		_ = rows.Close()
		return nil, pampaxerrors.DBError("iterate chunk rows", err)
	}
	_ = rows.Close()

	if len(deleteIDs) == 0 {
		return nil, nil
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, pampaxerrors.DBError("begin transaction", err)
	}
	defer func() { _ = tx.Rollback() }()

	stmt, err := tx.PrepareContext(ctx, `DELETE FROM code_chunks WHERE id = ?`)
	if err != nil {
		return nil, pampaxerrors.DBError("prepare delete", err)
	}
	defer func() { _ = stmt.Close() }()

	for _, id := range deleteIDs {
		if _, err := stmt.ExecContext(ctx, id); err != nil {
			return nil, pampaxerrors.DBError("delete chunk", err)
		}
	}

	if err := tx.Commit(); err != nil {
		return nil, pampaxerrors.DBError("commit delete", err)
	}

	var orphans []string
	for sha := range doomedSHAs {
		if _, ok := survivorSHAs[sha]; !ok {
			orphans = append(orphans, sha)
		}
	}

	return orphans, nil
}

// chunkColumns casts the timestamps to TEXT so the driver returns SQLite's
// stored "YYYY-MM-DD HH:MM:SS" form rather than parsing TIMESTAMP columns.
const chunkColumns = `id, file_path, symbol, sha, lang, chunk_type,
	embedding, embedding_provider, embedding_dimensions,
	pampa_tags, pampa_intent, pampa_description,
	doc_comments, variables_used, context_info,
	CAST(created_at AS TEXT), CAST(updated_at AS TEXT)`

// AllChunks returns every chunk row ordered by (file_path, id) for
// deterministic iteration.
func (s *Store) AllChunks(ctx context.Context) ([]ChunkRow, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT `+chunkColumns+` FROM code_chunks ORDER BY file_path, id`)
	if err != nil {
		return nil, pampaxerrors.DBError("query chunks", err)
	}
	defer func() { _ = rows.Close() }()

	var out []ChunkRow
	for rows.Next() {
		row, err := scanChunkRow(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, row)
	}

	if err := rows.Err(); err != nil {
		return nil, pampaxerrors.DBError("iterate chunks", err)
	}

	return out, nil
}

// ChunkBySHA returns the first chunk row carrying the given SHA.
func (s *Store) ChunkBySHA(ctx context.Context, sha string) (*ChunkRow, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT `+chunkColumns+` FROM code_chunks WHERE sha = ? ORDER BY id LIMIT 1`, sha)
	if err != nil {
		return nil, pampaxerrors.DBError("query chunk by sha", err)
	}
	defer func() { _ = rows.Close() }()

	if !rows.Next() {
		if err := rows.Err(); err != nil {
			return nil, pampaxerrors.DBError("iterate chunk by sha", err)
		}
		return nil, pampaxerrors.NotFound(fmt.Sprintf("chunk with sha %s not found", sha))
	}

	row, err := scanChunkRow(rows)
	if err != nil {
		return nil, err
	}

	return &row, nil
}

// CountChunks returns the number of chunk rows.
func (s *Store) CountChunks(ctx context.Context) (int, error) {
	var count int
	if err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM code_chunks`).Scan(&count); err != nil {
		return 0, pampaxerrors.DBError("count chunks", err)
	}
	return count, nil
}

// CountFiles returns the number of distinct file paths.
func (s *Store) CountFiles(ctx context.Context) (int, error) {
	var count int
	if err := s.db.QueryRowContext(ctx, `SELECT COUNT(DISTINCT file_path) FROM code_chunks`).Scan(&count); err != nil {
		return 0, pampaxerrors.DBError("count files", err)
	}
	return count, nil
}

// LanguageCounts returns chunk counts keyed by language.
func (s *Store) LanguageCounts(ctx context.Context) (map[string]int, error) {
	return s.groupCounts(ctx, `SELECT lang, COUNT(*) FROM code_chunks GROUP BY lang`)
}

// ProviderCounts returns chunk counts keyed by embedding provider.
func (s *Store) ProviderCounts(ctx context.Context) (map[string]int, error) {
	return s.groupCounts(ctx,
		`SELECT COALESCE(embedding_provider, ''), COUNT(*) FROM code_chunks GROUP BY embedding_provider`)
}

func (s *Store) groupCounts(ctx context.Context, query string) (map[string]int, error) {
	rows, err := s.db.QueryContext(ctx, query)
	if err != nil {
		return nil, pampaxerrors.DBError("group counts", err)
	}
	defer func() { _ = rows.Close() }()

	out := make(map[string]int)
	for rows.Next() {
		var key string
		var count int
		if err := rows.Scan(&key, &count); err != nil {
			return nil, pampaxerrors.DBError("scan group count", err)
		}
		out[key] = count
	}

	if err := rows.Err(); err != nil {
		return nil, pampaxerrors.DBError("iterate group counts", err)
	}

	return out, nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanChunkRow(rows rowScanner) (ChunkRow, error) {
	var row ChunkRow
	var embedding []byte
	var provider, tags, intent, description, docComments, variablesUsed, contextInfo sql.NullString
	var dimensions sql.NullInt64

	if err := rows.Scan(
		&row.ID, &row.FilePath, &row.Symbol, &row.SHA, &row.Lang, &row.ChunkType,
		&embedding, &provider, &dimensions,
		&tags, &intent, &description,
		&docComments, &variablesUsed, &contextInfo,
		&row.CreatedAt, &row.UpdatedAt,
	); err != nil {
		return ChunkRow{}, pampaxerrors.DBError("scan chunk", err)
	}

	row.Embedding = embedding
	row.EmbeddingProvider = stringPtr(provider)
	row.EmbeddingDimensions = intPtr(dimensions)
	row.PampaTags = stringPtr(tags)
	row.PampaIntent = stringPtr(intent)
	row.PampaDescription = stringPtr(description)
	row.DocComments = stringPtr(docComments)
	row.VariablesUsed = stringPtr(variablesUsed)
	row.ContextInfo = stringPtr(contextInfo)

	return row, nil
}

func stringPtr(v sql.NullString) *string {
	if !v.Valid {
		return nil
	}
	s := v.String
	return &s
}

func intPtr(v sql.NullInt64) *int {
	if !v.Valid {
		return nil
	}
	i := int(v.Int64)
	return &i
}

func nullableString(v *string) any {
	if v == nil {
		return nil
	}
	return *v
}

func nullableInt(v *int) any {
	if v == nil {
		return nil
	}
	return *v
}

func nullableBytes(v []byte) any {
	if len(v) == 0 {
		return nil
	}
	return v
}

// NormalizeQuery canonicalizes a query for the intention cache.
func NormalizeQuery(query string) string {
	return strings.Join(strings.Fields(strings.ToLower(strings.TrimSpace(query))), " ")
}

// GetIntention looks up a cached intention for a normalized query.
func (s *Store) GetIntention(ctx context.Context, query string) (*Intention, error) {
	normalized := NormalizeQuery(query)

	var out Intention
	err := s.db.QueryRowContext(ctx,
		`SELECT query, target_sha, confidence, usage_count FROM intention_cache WHERE query = ?`,
		normalized).Scan(&out.Query, &out.TargetSHA, &out.Confidence, &out.UsageCount)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, pampaxerrors.DBError("query intention cache", err)
	}

	return &out, nil
}

// RecordIntention stores or reinforces a query→SHA mapping.
func (s *Store) RecordIntention(ctx context.Context, query, targetSHA string, confidence float64) error {
	normalized := NormalizeQuery(query)
	if normalized == "" || targetSHA == "" {
		return nil
	}

	_, err := s.db.ExecContext(ctx, `
		INSERT INTO intention_cache (query, target_sha, confidence)
		VALUES (?, ?, ?)
		ON CONFLICT(query) DO UPDATE SET
			target_sha = excluded.target_sha,
			confidence = excluded.confidence,
			usage_count = usage_count + 1,
			updated_at = CURRENT_TIMESTAMP`,
		normalized, targetSHA, confidence)
	if err != nil {
		return pampaxerrors.DBError("record intention", err)
	}

	return nil
}

// RecordPattern upserts a query pattern, bumping its frequency.
func (s *Store) RecordPattern(ctx context.Context, pattern string) error {
	normalized := NormalizeQuery(pattern)
	if normalized == "" {
		return nil
	}

	_, err := s.db.ExecContext(ctx, `
		INSERT INTO query_patterns (pattern)
		VALUES (?)
		ON CONFLICT(pattern) DO UPDATE SET
			frequency = frequency + 1,
			updated_at = CURRENT_TIMESTAMP`,
		normalized)
	if err != nil {
		return pampaxerrors.DBError("record query pattern", err)
	}

	return nil
}

// GetPattern returns a query pattern row, or nil when absent.
func (s *Store) GetPattern(ctx context.Context, pattern string) (*QueryPattern, error) {
	normalized := NormalizeQuery(pattern)

	var out QueryPattern
	err := s.db.QueryRowContext(ctx,
		`SELECT pattern, frequency FROM query_patterns WHERE pattern = ?`,
		normalized).Scan(&out.Pattern, &out.Frequency)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, pampaxerrors.DBError("query patterns", err)
	}

	return &out, nil
}
