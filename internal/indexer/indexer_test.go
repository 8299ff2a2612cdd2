package indexer

import (
	"context"
	"crypto/rand"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pampax/pampax/internal/chunkstore"
	"github.com/pampax/pampax/internal/codemap"
	"github.com/pampax/pampax/internal/embed"
	"github.com/pampax/pampax/internal/store"
)

func writeRepoFile(t *testing.T, root, rel, content string) {
	t.Helper()
	path := filepath.Join(root, filepath.FromSlash(rel))
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
}

func testProvider() embed.Provider {
	return embed.NewLocalProvider("test-model", 32)
}

func runIndex(t *testing.T, root string, mutate func(*Options)) *Summary {
	t.Helper()

	opts := Options{Root: root, Provider: testProvider()}
	if mutate != nil {
		mutate(&opts)
	}

	summary, err := Run(context.Background(), opts)
	require.NoError(t, err)
	return summary
}

const repoGoFile = `package app

func Login(user string) error {
	return validate(user)
}

func validate(user string) error {
	return nil
}
`

func TestRunProducesAllArtifacts(t *testing.T) {
	root := t.TempDir()
	writeRepoFile(t, root, "app/auth.go", repoGoFile)
	writeRepoFile(t, root, "README.md", "# App\n\ndocs here\n")

	summary := runIndex(t, root, nil)

	assert.Equal(t, 2, summary.FilesIndexed)
	assert.Greater(t, summary.ChunksIndexed, 0)
	assert.Zero(t, summary.EmbeddingFailures)

	_, err := os.Stat(DBPath(root))
	assert.NoError(t, err)
	_, err = os.Stat(CodemapPath(root))
	assert.NoError(t, err)

	entries, err := os.ReadDir(ChunksDir(root))
	require.NoError(t, err)
	assert.NotEmpty(t, entries)
}

func TestRunChunkIDsAndRows(t *testing.T) {
	root := t.TempDir()
	writeRepoFile(t, root, "app/auth.go", repoGoFile)

	runIndex(t, root, nil)

	db, err := store.Open(DBPath(root))
	require.NoError(t, err)
	defer func() { _ = db.Close() }()

	rows, err := db.AllChunks(context.Background())
	require.NoError(t, err)
	require.NotEmpty(t, rows)

	var found bool
	for _, row := range rows {
		if row.Symbol == "Login" {
			found = true
			assert.Equal(t, "app/auth.go", row.FilePath)
			assert.Len(t, row.SHA, 40)
			assert.Equal(t, "app/auth.go:Login:"+row.SHA[:8], row.ID)
			assert.Equal(t, "go", row.Lang)
			assert.Equal(t, "function", row.ChunkType)
			require.NotNil(t, row.EmbeddingDimensions)
			assert.Equal(t, 32, *row.EmbeddingDimensions)

			vector, err := store.DecodeEmbedding(row.Embedding, 32)
			require.NoError(t, err)
			assert.Len(t, vector, 32)
		}
	}
	assert.True(t, found, "Login chunk missing")
}

func TestRunChunkFilesMatchDBRows(t *testing.T) {
	root := t.TempDir()
	writeRepoFile(t, root, "app/auth.go", repoGoFile)

	runIndex(t, root, nil)

	db, err := store.Open(DBPath(root))
	require.NoError(t, err)
	defer func() { _ = db.Close() }()

	rows, err := db.AllChunks(context.Background())
	require.NoError(t, err)

	cs := chunkstore.New(ChunksDir(root), nil)
	for _, row := range rows {
		text, err := cs.Read(row.SHA)
		require.NoError(t, err, "chunk file for %s", row.ID)
		assert.Equal(t, row.SHA, chunkstore.ComputeSHA(text))
	}
}

func TestRunCodemapEntries(t *testing.T) {
	root := t.TempDir()
	writeRepoFile(t, root, "app/auth.go", repoGoFile)

	runIndex(t, root, nil)

	cm, err := codemap.Read(CodemapPath(root))
	require.NoError(t, err)
	require.Greater(t, cm.Len(), 0)

	var loginMeta *codemap.ChunkMetadata
	for _, key := range cm.Keys() {
		value, ok := cm.Get(key)
		require.True(t, ok)
		meta := value.(codemap.ChunkMetadata)
		if meta.Symbol != nil && *meta.Symbol == "Login" {
			loginMeta = &meta
		}
	}

	require.NotNil(t, loginMeta)
	assert.Equal(t, "app/auth.go", loginMeta.File)
	assert.Contains(t, loginMeta.SymbolCalls, "validate")
	assert.Contains(t, loginMeta.SymbolCallTargets, "validate")
	assert.Contains(t, loginMeta.SymbolNeighbors, "validate")
}

func TestRunCallersEdge(t *testing.T) {
	root := t.TempDir()
	writeRepoFile(t, root, "app/auth.go", repoGoFile)

	runIndex(t, root, nil)

	cm, err := codemap.Read(CodemapPath(root))
	require.NoError(t, err)

	for _, key := range cm.Keys() {
		value, _ := cm.Get(key)
		meta := value.(codemap.ChunkMetadata)
		if meta.Symbol != nil && *meta.Symbol == "validate" {
			assert.Contains(t, meta.SymbolCallers, "Login")
		}
	}
}

func TestRunIdempotent(t *testing.T) {
	root := t.TempDir()
	writeRepoFile(t, root, "app/auth.go", repoGoFile)
	writeRepoFile(t, root, "docs.md", "# Docs\n\nsection body\n")

	runIndex(t, root, nil)
	firstCodemap, err := os.ReadFile(CodemapPath(root))
	require.NoError(t, err)

	runIndex(t, root, nil)
	secondCodemap, err := os.ReadFile(CodemapPath(root))
	require.NoError(t, err)

	assert.Equal(t, string(firstCodemap), string(secondCodemap),
		"two runs over identical inputs must produce a byte-identical codemap")
}

func TestRunRemovesOrphanedChunks(t *testing.T) {
	root := t.TempDir()
	writeRepoFile(t, root, "keep.go", "package a\n\nfunc Keep() {}\n")
	writeRepoFile(t, root, "gone.go", "package a\n\nfunc Gone() {}\n")

	runIndex(t, root, nil)
	require.NoError(t, os.Remove(filepath.Join(root, "gone.go")))
	runIndex(t, root, nil)

	db, err := store.Open(DBPath(root))
	require.NoError(t, err)
	defer func() { _ = db.Close() }()

	rows, err := db.AllChunks(context.Background())
	require.NoError(t, err)
	for _, row := range rows {
		assert.NotEqual(t, "gone.go", row.FilePath)
	}

	cs := chunkstore.New(ChunksDir(root), nil)
	shas, err := cs.ListSHAs()
	require.NoError(t, err)

	referenced := make(map[string]bool)
	for _, row := range rows {
		referenced[row.SHA] = true
	}
	for _, sha := range shas {
		assert.True(t, referenced[sha], "orphan chunk file %s survived reindex", sha)
	}
}

func TestRunEncryptedChunks(t *testing.T) {
	key := make([]byte, 32)
	_, err := rand.Read(key)
	require.NoError(t, err)

	root := t.TempDir()
	writeRepoFile(t, root, "secret.go", "package s\n\nfunc Hidden() {}\n")

	runIndex(t, root, func(o *Options) {
		o.Encrypt = true
		o.MasterKey = key
	})

	entries, err := os.ReadDir(ChunksDir(root))
	require.NoError(t, err)
	require.NotEmpty(t, entries)
	for _, entry := range entries {
		assert.True(t, filepath.Ext(entry.Name()) == ".enc", "expected only encrypted chunks, got %s", entry.Name())
	}

	// Content reads back with the key.
	cs := chunkstore.New(ChunksDir(root), key)
	db, err := store.Open(DBPath(root))
	require.NoError(t, err)
	defer func() { _ = db.Close() }()

	rows, err := db.AllChunks(context.Background())
	require.NoError(t, err)
	for _, row := range rows {
		_, err := cs.Read(row.SHA)
		assert.NoError(t, err)
	}
}

func TestRunEncryptWithoutKeyFails(t *testing.T) {
	root := t.TempDir()
	writeRepoFile(t, root, "a.go", "package a\n")

	_, err := Run(context.Background(), Options{
		Root:     root,
		Provider: testProvider(),
		Encrypt:  true,
	})
	assert.Error(t, err)
}

func TestRunRespectsIgnoreRules(t *testing.T) {
	root := t.TempDir()
	writeRepoFile(t, root, "src/main.go", "package main\n\nfunc main() {}\n")
	writeRepoFile(t, root, "node_modules/dep/index.js", "module.exports = 1\n")
	writeRepoFile(t, root, "config.json", `{"a":1}`)
	writeRepoFile(t, root, ".pampignore", "src/skip_me.go\n")
	writeRepoFile(t, root, "src/skip_me.go", "package main\n")

	runIndex(t, root, nil)

	db, err := store.Open(DBPath(root))
	require.NoError(t, err)
	defer func() { _ = db.Close() }()

	rows, err := db.AllChunks(context.Background())
	require.NoError(t, err)
	for _, row := range rows {
		assert.Equal(t, "src/main.go", row.FilePath)
	}
	assert.NotEmpty(t, rows)
}

func TestRunCancelledContext(t *testing.T) {
	root := t.TempDir()
	writeRepoFile(t, root, "a.go", "package a\n")

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := Run(ctx, Options{Root: root, Provider: testProvider()})
	assert.Error(t, err)
}

func TestUpdateIsFullReindex(t *testing.T) {
	root := t.TempDir()
	writeRepoFile(t, root, "a.go", "package a\n\nfunc A() {}\n")

	first := runIndex(t, root, nil)

	writeRepoFile(t, root, "a.go", "package a\n\nfunc A() {}\n\nfunc B() {}\n")
	second := runIndex(t, root, nil)

	assert.Greater(t, second.ChunksIndexed, first.ChunksIndexed)
}
