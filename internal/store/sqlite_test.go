package store

import (
	"context"
	"path/filepath"
	"regexp"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	pampaxerrors "github.com/pampax/pampax/internal/errors"
)

func openTestStore(t *testing.T) *Store {
	t.Helper()
	s, err := Open(filepath.Join(t.TempDir(), "pampa.db"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = s.Close() })
	return s
}

func strRef(s string) *string { return &s }
func intRef(i int) *int       { return &i }

func sampleRow(id, filePath, symbol, sha string) ChunkRow {
	return ChunkRow{
		ID:       id,
		FilePath: filePath,
		Symbol:   symbol,
		SHA:      sha,
		Lang:     "go",
	}
}

func TestOpenCreatesSchema(t *testing.T) {
	s := openTestStore(t)

	count, err := s.CountChunks(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 0, count)
}

func TestReplaceChunksInsertAndOverwrite(t *testing.T) {
	ctx := context.Background()
	s := openTestStore(t)

	row := sampleRow("main.go:Run:aaaaaaaa", "main.go", "Run", "aaaaaaaa00000000000000000000000000000000")
	require.NoError(t, s.ReplaceChunks(ctx, []ChunkRow{row}))

	row.Lang = "go"
	row.Symbol = "RunServer"
	require.NoError(t, s.ReplaceChunks(ctx, []ChunkRow{row}))

	all, err := s.AllChunks(ctx)
	require.NoError(t, err)
	require.Len(t, all, 1)
	assert.Equal(t, "RunServer", all[0].Symbol)
}

func TestSymbolNeverNull(t *testing.T) {
	ctx := context.Background()
	s := openTestStore(t)

	row := sampleRow("lib.py:group_1:bbbbbbbb", "lib.py", "", "bbbbbbbb00000000000000000000000000000000")
	require.NoError(t, s.ReplaceChunks(ctx, []ChunkRow{row}))

	all, err := s.AllChunks(ctx)
	require.NoError(t, err)
	require.Len(t, all, 1)
	assert.Equal(t, "", all[0].Symbol)
}

func TestChunkTypeDefault(t *testing.T) {
	ctx := context.Background()
	s := openTestStore(t)

	require.NoError(t, s.ReplaceChunks(ctx, []ChunkRow{
		sampleRow("a.go:A:cccccccc", "a.go", "A", "cccccccc00000000000000000000000000000000"),
	}))

	all, err := s.AllChunks(ctx)
	require.NoError(t, err)
	assert.Equal(t, "function", all[0].ChunkType)
}

func TestInvalidJSONFieldStoredAsNull(t *testing.T) {
	ctx := context.Background()
	s := openTestStore(t)

	row := sampleRow("a.go:A:dddddddd", "a.go", "A", "dddddddd00000000000000000000000000000000")
	row.PampaTags = strRef("{not valid json")
	row.VariablesUsed = strRef(`{"object":"not array"}`)
	row.ContextInfo = strRef(`["array","not","object"]`)

	require.NoError(t, s.ReplaceChunks(ctx, []ChunkRow{row}))

	all, err := s.AllChunks(ctx)
	require.NoError(t, err)
	require.Len(t, all, 1)
	assert.Nil(t, all[0].PampaTags)
	assert.Nil(t, all[0].VariablesUsed)
	assert.Nil(t, all[0].ContextInfo)
}

func TestValidJSONFieldsStored(t *testing.T) {
	ctx := context.Background()
	s := openTestStore(t)

	row := sampleRow("a.go:A:eeeeeeee", "a.go", "A", "eeeeeeee00000000000000000000000000000000")
	row.PampaTags = strRef(`["auth","http"]`)
	row.VariablesUsed = strRef(`["req","resp"]`)
	row.ContextInfo = strRef(`{"package":"main"}`)

	require.NoError(t, s.ReplaceChunks(ctx, []ChunkRow{row}))

	all, err := s.AllChunks(ctx)
	require.NoError(t, err)
	require.NotNil(t, all[0].PampaTags)
	assert.Equal(t, `["auth","http"]`, *all[0].PampaTags)
	require.NotNil(t, all[0].ContextInfo)
	assert.Equal(t, `{"package":"main"}`, *all[0].ContextInfo)
}

func TestEmbeddingRoundTripThroughDB(t *testing.T) {
	ctx := context.Background()
	s := openTestStore(t)

	vector := []float64{0.25, -0.5, 0.125}
	blob, err := EncodeEmbedding(vector)
	require.NoError(t, err)

	row := sampleRow("a.go:A:ffffffff", "a.go", "A", "ffffffff00000000000000000000000000000000")
	row.Embedding = blob
	row.EmbeddingProvider = strRef("openai")
	row.EmbeddingDimensions = intRef(3)

	require.NoError(t, s.ReplaceChunks(ctx, []ChunkRow{row}))

	all, err := s.AllChunks(ctx)
	require.NoError(t, err)
	require.NotNil(t, all[0].EmbeddingDimensions)

	decoded, err := DecodeEmbedding(all[0].Embedding, *all[0].EmbeddingDimensions)
	require.NoError(t, err)
	assert.Equal(t, vector, decoded)
}

func TestTimestampFormat(t *testing.T) {
	ctx := context.Background()
	s := openTestStore(t)

	require.NoError(t, s.ReplaceChunks(ctx, []ChunkRow{
		sampleRow("a.go:A:00000001", "a.go", "A", "0000000100000000000000000000000000000000"),
	}))

	all, err := s.AllChunks(ctx)
	require.NoError(t, err)

	// SQLite default CURRENT_TIMESTAMP: YYYY-MM-DD HH:MM:SS, no Z.
	format := regexp.MustCompile(`^\d{4}-\d{2}-\d{2} \d{2}:\d{2}:\d{2}$`)
	assert.Regexp(t, format, all[0].CreatedAt)
	assert.Regexp(t, format, all[0].UpdatedAt)
}

func TestDeleteChunksNotIn(t *testing.T) {
	ctx := context.Background()
	s := openTestStore(t)

	rows := []ChunkRow{
		sampleRow("a.go:A:00000001", "a.go", "A", "0000000100000000000000000000000000000000"),
		sampleRow("b.go:B:00000002", "b.go", "B", "0000000200000000000000000000000000000000"),
		sampleRow("c.go:C:00000002", "c.go", "C", "0000000200000000000000000000000000000000"),
	}
	require.NoError(t, s.ReplaceChunks(ctx, rows))

	// Keep a.go and c.go; b.go's SHA is shared with c.go so it is not orphaned.
	orphans, err := s.DeleteChunksNotIn(ctx, []string{"a.go:A:00000001", "c.go:C:00000002"})
	require.NoError(t, err)
	assert.Empty(t, orphans)

	// Now drop c.go too; its SHA becomes orphaned.
	orphans, err = s.DeleteChunksNotIn(ctx, []string{"a.go:A:00000001"})
	require.NoError(t, err)
	assert.Equal(t, []string{"0000000200000000000000000000000000000000"}, orphans)

	count, err := s.CountChunks(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, count)
}

func TestChunkBySHA(t *testing.T) {
	ctx := context.Background()
	s := openTestStore(t)

	require.NoError(t, s.ReplaceChunks(ctx, []ChunkRow{
		sampleRow("a.go:A:00000001", "a.go", "A", "0000000100000000000000000000000000000000"),
	}))

	row, err := s.ChunkBySHA(ctx, "0000000100000000000000000000000000000000")
	require.NoError(t, err)
	assert.Equal(t, "a.go", row.FilePath)

	_, err = s.ChunkBySHA(ctx, "ffffffffffffffffffffffffffffffffffffffff")
	require.Error(t, err)
	assert.Equal(t, pampaxerrors.CodeNotFound, pampaxerrors.CodeOf(err))
}

func TestIntentionCache(t *testing.T) {
	ctx := context.Background()
	s := openTestStore(t)

	missing, err := s.GetIntention(ctx, "where is auth")
	require.NoError(t, err)
	assert.Nil(t, missing)

	require.NoError(t, s.RecordIntention(ctx, "  Where IS   auth ", "0000000100000000000000000000000000000000", 0.8))

	got, err := s.GetIntention(ctx, "where is auth")
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, "where is auth", got.Query)
	assert.Equal(t, 1, got.UsageCount)
	assert.InDelta(t, 0.8, got.Confidence, 1e-9)

	require.NoError(t, s.RecordIntention(ctx, "where is auth", "0000000100000000000000000000000000000000", 0.9))
	got, err = s.GetIntention(ctx, "where is auth")
	require.NoError(t, err)
	assert.Equal(t, 2, got.UsageCount)
}

func TestQueryPatterns(t *testing.T) {
	ctx := context.Background()
	s := openTestStore(t)

	require.NoError(t, s.RecordPattern(ctx, "find handler"))
	require.NoError(t, s.RecordPattern(ctx, "find handler"))

	got, err := s.GetPattern(ctx, "find handler")
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, 2, got.Frequency)
}

func TestLanguageAndProviderCounts(t *testing.T) {
	ctx := context.Background()
	s := openTestStore(t)

	a := sampleRow("a.go:A:00000001", "a.go", "A", "0000000100000000000000000000000000000000")
	a.EmbeddingProvider = strRef("openai")
	b := sampleRow("b.py:B:00000002", "b.py", "B", "0000000200000000000000000000000000000000")
	b.Lang = "python"

	require.NoError(t, s.ReplaceChunks(ctx, []ChunkRow{a, b}))

	langs, err := s.LanguageCounts(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, langs["go"])
	assert.Equal(t, 1, langs["python"])

	providers, err := s.ProviderCounts(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, providers["openai"])
}
