package cmd

import (
	"bytes"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// execute runs the CLI with args and returns stdout.
func execute(t *testing.T, args ...string) (string, error) {
	t.Helper()

	root := NewRootCommand()
	var buf bytes.Buffer
	root.SetOut(&buf)
	root.SetErr(&buf)
	root.SetArgs(args)

	err := root.Execute()
	return buf.String(), err
}

func setupRepo(t *testing.T) string {
	t.Helper()
	root := t.TempDir()
	require.NoError(t, os.MkdirAll(filepath.Join(root, "app"), 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(root, "app", "auth.go"), []byte(
		"package app\n\nfunc Login(user string) error {\n\treturn nil\n}\n"), 0o644))
	return root
}

func TestIndexCommandEmitsSummaryJSON(t *testing.T) {
	root := setupRepo(t)

	out, err := execute(t, "index", root, "--provider", "local")
	require.NoError(t, err)

	var summary map[string]any
	require.NoError(t, json.Unmarshal([]byte(out), &summary))
	assert.Equal(t, float64(1), summary["files_indexed"])
	assert.Equal(t, "transformers", summary["provider"])
	assert.NotNil(t, summary["warnings"])
}

func TestUpdateCommandReindexes(t *testing.T) {
	root := setupRepo(t)

	_, err := execute(t, "index", root, "--provider", "local")
	require.NoError(t, err)

	out, err := execute(t, "update", root, "--provider", "local")
	require.NoError(t, err)

	var summary map[string]any
	require.NoError(t, json.Unmarshal([]byte(out), &summary))
	assert.Equal(t, float64(1), summary["files_indexed"])
}

func TestSearchCommandEnvelope(t *testing.T) {
	root := setupRepo(t)

	_, err := execute(t, "index", root, "--provider", "local")
	require.NoError(t, err)

	out, err := execute(t, "search", "login user", root, "--provider", "local")
	require.NoError(t, err)

	var envelope map[string]any
	require.NoError(t, json.Unmarshal([]byte(out), &envelope))
	assert.Equal(t, "login user", envelope["query"])
	assert.NotNil(t, envelope["results"])
	assert.NotNil(t, envelope["filters"])
}

func TestSearchWithoutIndexFails(t *testing.T) {
	root := t.TempDir()

	out, err := execute(t, "search", "anything", root, "--provider", "local")
	require.Error(t, err)

	var envelope map[string]any
	require.NoError(t, json.Unmarshal([]byte(out), &envelope))
	errObj := envelope["error"].(map[string]any)
	assert.Equal(t, "INDEX_MISSING", errObj["code"])
	assert.NotEmpty(t, errObj["hint"])
}

func TestInvalidToggleRejectedBeforeWork(t *testing.T) {
	root := setupRepo(t)

	out, err := execute(t, "search", "query", root, "--hybrid", "maybe")
	require.Error(t, err)

	var envelope map[string]any
	require.NoError(t, json.Unmarshal([]byte(out), &envelope))
	errObj := envelope["error"].(map[string]any)
	assert.Equal(t, "INVALID_INPUT", errObj["code"])
}

func TestInvalidRerankerRejected(t *testing.T) {
	root := setupRepo(t)

	out, err := execute(t, "search", "query", root, "--reranker", "quantum")
	require.Error(t, err)

	var envelope map[string]any
	require.NoError(t, json.Unmarshal([]byte(out), &envelope))
	errObj := envelope["error"].(map[string]any)
	assert.Equal(t, "INVALID_INPUT", errObj["code"])
}

func TestInvalidEncryptionKeyRejected(t *testing.T) {
	root := setupRepo(t)

	out, err := execute(t, "index", root, "--provider", "local",
		"--encrypt", "on", "--encryption-key", "too-short")
	require.Error(t, err)

	var envelope map[string]any
	require.NoError(t, json.Unmarshal([]byte(out), &envelope))
	errObj := envelope["error"].(map[string]any)
	assert.Equal(t, "CONFIG_ERROR", errObj["code"])
}

func TestValidateToggle(t *testing.T) {
	assert.NoError(t, validateToggle("hybrid", "on"))
	assert.NoError(t, validateToggle("hybrid", "off"))
	assert.Error(t, validateToggle("hybrid", "true"))
	assert.Error(t, validateToggle("hybrid", ""))
}
