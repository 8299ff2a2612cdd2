package pathutil

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNormalize(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want string
	}{
		{"backslashes", `src\app\main.go`, "src/app/main.go"},
		{"leading dot slash", "./src/main.go", "src/main.go"},
		{"leading slash", "/src/main.go", "src/main.go"},
		{"already normal", "src/main.go", "src/main.go"},
		{"mixed separators", `src\app/main.go`, "src/app/main.go"},
		{"utf8 preserved", "src/ünïcode/café.go", "src/ünïcode/café.go"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Normalize(tt.in))
		})
	}
}

func TestRelativeTo(t *testing.T) {
	root := t.TempDir()
	full := filepath.Join(root, "pkg", "util.go")

	rel, err := RelativeTo(root, full)
	require.NoError(t, err)
	assert.Equal(t, "pkg/util.go", rel)
}

func TestWriteFileAtomic(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "out.json")

	require.NoError(t, WriteFileAtomic(path, []byte("first"), 0o644))
	require.NoError(t, WriteFileAtomic(path, []byte("second"), 0o644))

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, "second", string(data))

	// No temp files left behind.
	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	assert.Len(t, entries, 1)
}

func TestRemoveIfExists(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "gone")

	assert.NoError(t, RemoveIfExists(path))

	require.NoError(t, os.WriteFile(path, []byte("x"), 0o644))
	assert.NoError(t, RemoveIfExists(path))
	_, err := os.Stat(path)
	assert.True(t, os.IsNotExist(err))
}
