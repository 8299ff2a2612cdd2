package discovery

import (
	"bufio"
	"fmt"
	"os"
	"path/filepath"
	"slices"
	"strings"

	"github.com/go-git/go-git/v5/plumbing/format/gitignore"

	"github.com/pampax/pampax/internal/pathutil"
)

type compiledRule struct {
	source     RuleSource
	pattern    string
	ignoreFile string
	matcher    gitignore.Pattern
}

// IgnoreMatcher layers default rules, .gitignore files and .pampignore files
// with fixed precedence: defaults < gitignore < pampignore. Within a layer
// the last matching rule wins and a negation re-includes.
type IgnoreMatcher struct {
	root         string
	defaultRules []compiledRule
	gitRules     []compiledRule
	pampRules    []compiledRule
}

// NewIgnoreMatcher compiles the default rules and every .gitignore and
// .pampignore found under root. Nested ignore files apply to paths at or
// below their directory. Ignore files inside ignored directories are still
// honored, matching the reference behavior.
func NewIgnoreMatcher(root string) (*IgnoreMatcher, error) {
	absRoot, err := filepath.Abs(root)
	if err != nil {
		return nil, fmt.Errorf("resolve matcher root: %w", err)
	}

	matcher := &IgnoreMatcher{root: absRoot}

	for _, pattern := range DefaultIgnorePatterns() {
		rule, ok := compileRule(pattern, RuleSourceDefault, "", "<default>")
		if !ok {
			continue
		}
		matcher.defaultRules = append(matcher.defaultRules, rule)
	}

	gitFiles, pampFiles, err := collectIgnoreFiles(absRoot)
	if err != nil {
		return nil, err
	}

	for _, ignoreFile := range gitFiles {
		rules, parseErr := parseIgnoreFile(absRoot, ignoreFile, RuleSourceGitIgnore)
		if parseErr != nil {
			return nil, parseErr
		}
		matcher.gitRules = append(matcher.gitRules, rules...)
	}

	for _, ignoreFile := range pampFiles {
		rules, parseErr := parseIgnoreFile(absRoot, ignoreFile, RuleSourcePampIgnore)
		if parseErr != nil {
			return nil, parseErr
		}
		matcher.pampRules = append(matcher.pampRules, rules...)
	}

	return matcher, nil
}

// ShouldSkipDir reports whether a directory subtree is excluded.
func (m *IgnoreMatcher) ShouldSkipDir(relativePath string) bool {
	return m.DecisionFor(relativePath, true).Excluded
}

// ShouldSkipFile reports whether a file is excluded.
func (m *IgnoreMatcher) ShouldSkipFile(relativePath string) bool {
	return m.DecisionFor(relativePath, false).Excluded
}

// DecisionFor returns the full decision record for a path, naming the
// winning layer, pattern and ignore file.
func (m *IgnoreMatcher) DecisionFor(relativePath string, isDir bool) IgnoreDecision {
	normalized := pathutil.Normalize(relativePath)
	decision := IgnoreDecision{Path: normalized, IsDir: isDir, Source: RuleSourceNone}

	best, negated := m.lastMatch(normalized, isDir)
	if best == nil {
		return decision
	}

	decision.Matched = true
	decision.Source = best.source
	decision.Pattern = best.pattern
	decision.IgnoreFile = best.ignoreFile
	decision.Negated = negated
	decision.Excluded = !negated
	return decision
}

// lastMatch resolves the layered precedence: the highest layer that has any
// match wins outright, even when its match is a negation.
func (m *IgnoreMatcher) lastMatch(relativePath string, isDir bool) (*compiledRule, bool) {
	if match, negated := lastMatchingRule(m.pampRules, relativePath, isDir); match != nil {
		return match, negated
	}
	if match, negated := lastMatchingRule(m.gitRules, relativePath, isDir); match != nil {
		return match, negated
	}
	return lastMatchingRule(m.defaultRules, relativePath, isDir)
}

func collectIgnoreFiles(root string) ([]string, []string, error) {
	var gitFiles []string
	var pampFiles []string

	err := filepath.WalkDir(root, func(path string, d os.DirEntry, walkErr error) error {
		if walkErr != nil {
			return nil
		}

		if d.Type()&os.ModeSymlink != 0 {
			if d.IsDir() {
				return filepath.SkipDir
			}
			return nil
		}

		if d.IsDir() {
			return nil
		}

		switch d.Name() {
		case ".gitignore":
			gitFiles = append(gitFiles, path)
		case ".pampignore":
			pampFiles = append(pampFiles, path)
		}

		return nil
	})
	if err != nil {
		return nil, nil, fmt.Errorf("walk ignore files: %w", err)
	}

	normalizeSort := func(paths []string) {
		slices.SortFunc(paths, func(a, b string) int {
			aRel, _ := filepath.Rel(root, a)
			bRel, _ := filepath.Rel(root, b)
			return strings.Compare(pathutil.Normalize(aRel), pathutil.Normalize(bRel))
		})
	}

	normalizeSort(gitFiles)
	normalizeSort(pampFiles)

	return gitFiles, pampFiles, nil
}

func parseIgnoreFile(root, ignoreFile string, source RuleSource) ([]compiledRule, error) {
	file, err := os.Open(ignoreFile)
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", ignoreFile, err)
	}
	defer file.Close()

	baseDirRel, err := filepath.Rel(root, filepath.Dir(ignoreFile))
	if err != nil {
		return nil, fmt.Errorf("resolve ignore base dir for %s: %w", ignoreFile, err)
	}
	baseDir := pathutil.Normalize(baseDirRel)
	if baseDir == "." {
		baseDir = ""
	}

	ignoreFileRel, err := filepath.Rel(root, ignoreFile)
	if err != nil {
		return nil, fmt.Errorf("resolve ignore file path %s: %w", ignoreFile, err)
	}

	var rules []compiledRule
	scanner := bufio.NewScanner(file)
	for scanner.Scan() {
		rule, ok := compileRule(scanner.Text(), source, baseDir, pathutil.Normalize(ignoreFileRel))
		if !ok {
			continue
		}
		rules = append(rules, rule)
	}

	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("scan %s: %w", ignoreFile, err)
	}

	return rules, nil
}

func compileRule(line string, source RuleSource, baseDir, ignoreFile string) (compiledRule, bool) {
	raw := strings.TrimSpace(line)
	if raw == "" {
		return compiledRule{}, false
	}

	if strings.HasPrefix(raw, "#") && !strings.HasPrefix(raw, `\#`) {
		return compiledRule{}, false
	}

	return compiledRule{
		source:     source,
		pattern:    line,
		ignoreFile: ignoreFile,
		matcher:    gitignore.ParsePattern(raw, splitPathParts(baseDir)),
	}, true
}

func lastMatchingRule(rules []compiledRule, relativePath string, isDir bool) (*compiledRule, bool) {
	var match *compiledRule
	negated := false

	for i := range rules {
		rule := &rules[i]
		ruleMatched, ruleNegated := ruleMatches(rule, relativePath, isDir)
		if !ruleMatched {
			continue
		}
		match = rule
		negated = ruleNegated
	}

	return match, negated
}

func ruleMatches(rule *compiledRule, relativePath string, isDir bool) (bool, bool) {
	parts := splitPathParts(relativePath)
	if len(parts) == 0 {
		return false, false
	}

	switch rule.matcher.Match(parts, isDir) {
	case gitignore.Exclude:
		return true, false
	case gitignore.Include:
		return true, true
	default:
		return false, false
	}
}

func splitPathParts(relativePath string) []string {
	normalized := pathutil.Normalize(relativePath)
	if normalized == "" {
		return nil
	}

	parts := strings.Split(normalized, "/")
	filtered := make([]string, 0, len(parts))
	for _, part := range parts {
		if part == "" || part == "." {
			continue
		}
		filtered = append(filtered, part)
	}

	return filtered
}
