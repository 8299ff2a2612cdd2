package discovery

import "strings"

// defaultIgnorePatterns is the frozen v1 default rule set. It sits below
// .gitignore and .pampignore in precedence, so a repository can re-include
// anything here with a negation in either file.
var defaultIgnorePatterns = []string{
	"**/vendor/**",
	"**/node_modules/**",
	"**/.git/**",
	"**/storage/**",
	"**/dist/**",
	"**/build/**",
	"**/tmp/**",
	"**/temp/**",
	"**/.npm/**",
	"**/.yarn/**",
	"**/Library/**",
	"**/System/**",
	"**/.Trash/**",
	"**/.pampa/**",
	"**/pampa.codemap.json",
	"**/pampa.codemap.json.backup-*",
	"**/package-lock.json",
	"**/yarn.lock",
	"**/pnpm-lock.yaml",
	"**/*.json",
	"**/*.sh",
	"**/examples/**",
	"**/assets/**",
}

// DefaultIgnorePatterns returns a copy of the frozen default rule set.
func DefaultIgnorePatterns() []string {
	out := make([]string, len(defaultIgnorePatterns))
	copy(out, defaultIgnorePatterns)
	return out
}

var defaultLanguageExtensions = []string{
	".php", ".py", ".js", ".jsx", ".ts", ".tsx", ".go", ".java", ".cs",
	".rs", ".rb", ".cpp", ".hpp", ".cc", ".c", ".h", ".scala", ".swift",
	".sh", ".bash", ".kt", ".lua", ".html", ".htm", ".css", ".json",
	".ml", ".mli", ".hs", ".ex", ".exs", ".md", ".markdown",
}

// DefaultSupportedExtensions returns the v1 supported language extension set.
func DefaultSupportedExtensions() map[string]struct{} {
	exts := make(map[string]struct{}, len(defaultLanguageExtensions))
	for _, ext := range defaultLanguageExtensions {
		exts[strings.ToLower(ext)] = struct{}{}
	}
	return exts
}
