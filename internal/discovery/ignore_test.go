package discovery

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeFile(t *testing.T, root, rel, content string) {
	t.Helper()
	path := filepath.Join(root, filepath.FromSlash(rel))
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
}

func TestDefaultPatternsExclude(t *testing.T) {
	root := t.TempDir()
	matcher, err := NewIgnoreMatcher(root)
	require.NoError(t, err)

	tests := []struct {
		path  string
		isDir bool
	}{
		{"config.json", false},
		{"script.sh", false},
		{"src/node_modules/lib.js", false},
		{"vendor/pkg/mod.go", false},
		{".pampa/pampa.db", false},
		{"pampa.codemap.json", false},
		{"examples/demo.py", false},
	}

	for _, tt := range tests {
		decision := matcher.DecisionFor(tt.path, tt.isDir)
		assert.True(t, decision.Excluded, "expected %s excluded", tt.path)
		assert.Equal(t, RuleSourceDefault, decision.Source, tt.path)
	}
}

func TestSourceFilesIncluded(t *testing.T) {
	root := t.TempDir()
	matcher, err := NewIgnoreMatcher(root)
	require.NoError(t, err)

	for _, path := range []string{"main.go", "src/app.py", "lib/util.ts"} {
		decision := matcher.DecisionFor(path, false)
		assert.False(t, decision.Excluded, "expected %s included", path)
		assert.Equal(t, RuleSourceNone, decision.Source)
	}
}

func TestGitignoreOverridesDefaults(t *testing.T) {
	root := t.TempDir()
	writeFile(t, root, ".gitignore", "!data.json\n")

	matcher, err := NewIgnoreMatcher(root)
	require.NoError(t, err)

	decision := matcher.DecisionFor("data.json", false)
	assert.False(t, decision.Excluded)
	assert.Equal(t, RuleSourceGitIgnore, decision.Source)
	assert.True(t, decision.Negated)
}

func TestPampignoreOverridesGitignore(t *testing.T) {
	root := t.TempDir()
	writeFile(t, root, ".gitignore", "!data.json\n")
	writeFile(t, root, ".pampignore", "data.json\n")

	matcher, err := NewIgnoreMatcher(root)
	require.NoError(t, err)

	decision := matcher.DecisionFor("data.json", false)
	assert.True(t, decision.Excluded)
	assert.Equal(t, RuleSourcePampIgnore, decision.Source)
	assert.Equal(t, ".pampignore", decision.IgnoreFile)
}

func TestLastMatchWinsWithinLayer(t *testing.T) {
	root := t.TempDir()
	writeFile(t, root, ".gitignore", "*.log\n!keep.log\n")

	matcher, err := NewIgnoreMatcher(root)
	require.NoError(t, err)

	assert.True(t, matcher.DecisionFor("debug.log", false).Excluded)
	assert.False(t, matcher.DecisionFor("keep.log", false).Excluded)
}

func TestNestedIgnoreFileScopedToDirectory(t *testing.T) {
	root := t.TempDir()
	writeFile(t, root, "sub/.gitignore", "secret.go\n")

	matcher, err := NewIgnoreMatcher(root)
	require.NoError(t, err)

	assert.True(t, matcher.DecisionFor("sub/secret.go", false).Excluded)
	assert.False(t, matcher.DecisionFor("secret.go", false).Excluded)
}

func TestAnchoredPattern(t *testing.T) {
	root := t.TempDir()
	writeFile(t, root, ".gitignore", "/generated.go\n")

	matcher, err := NewIgnoreMatcher(root)
	require.NoError(t, err)

	assert.True(t, matcher.DecisionFor("generated.go", false).Excluded)
	assert.False(t, matcher.DecisionFor("pkg/generated.go", false).Excluded)
}

func TestDirectoryOnlyPattern(t *testing.T) {
	root := t.TempDir()
	writeFile(t, root, ".gitignore", "cache/\n")

	matcher, err := NewIgnoreMatcher(root)
	require.NoError(t, err)

	assert.True(t, matcher.DecisionFor("cache", true).Excluded)
	assert.True(t, matcher.DecisionFor("cache/entry.go", false).Excluded)
}

func TestDecisionRecordFields(t *testing.T) {
	root := t.TempDir()
	matcher, err := NewIgnoreMatcher(root)
	require.NoError(t, err)

	decision := matcher.DecisionFor("config.json", false)
	assert.True(t, decision.Matched)
	assert.Equal(t, "**/*.json", decision.Pattern)
	assert.Equal(t, "<default>", decision.IgnoreFile)
	assert.False(t, decision.Negated)
}
