package chunk

import (
	"regexp"
	"strconv"
	"strings"
)

var headingRegex = regexp.MustCompile(`^#{1,6}\s+(.*)$`)

// ChunkMarkdown splits markdown into one chunk per heading section. Content
// before the first heading becomes section_preamble. Chunk text is the
// byte-exact slice from the heading line to the line before the next heading.
func ChunkMarkdown(source []byte, language string) []Chunk {
	text := string(source)
	lines := strings.SplitAfter(text, "\n")

	type section struct {
		name      string
		startLine int // 0-indexed
		start     int // byte offset
		end       int // byte offset, exclusive
	}

	var sections []section
	current := section{name: "section_preamble", startLine: 0, start: 0}
	offset := 0
	usedNames := make(map[string]int)

	for i, line := range lines {
		trimmed := strings.TrimRight(line, "\n")
		if match := headingRegex.FindStringSubmatch(trimmed); match != nil {
			if offset > current.start {
				current.end = offset
				sections = append(sections, current)
			}

			name := "section_" + slugify(match[1])
			usedNames[name]++
			if usedNames[name] > 1 {
				// Repeated headings stay unique and stable.
				name = name + "_" + strconv.Itoa(usedNames[name])
			}

			current = section{name: name, startLine: i, start: offset}
		}
		offset += len(line)
	}

	if offset > current.start {
		current.end = offset
		sections = append(sections, current)
	}

	var chunks []Chunk
	for _, s := range sections {
		body := text[s.start:s.end]
		if strings.TrimSpace(body) == "" {
			continue
		}

		chunks = append(chunks, Chunk{
			Text:      body,
			Name:      s.name,
			HasSymbol: false,
			Lang:      language,
			ChunkType: TypeSection,
			StartLine: s.startLine + 1,
			EndLine:   s.startLine + strings.Count(strings.TrimSuffix(body, "\n"), "\n") + 1,
		})
	}

	return chunks
}

// slugify lowercases a heading and maps non-alphanumerics to underscores.
func slugify(heading string) string {
	var b strings.Builder
	lastUnderscore := false

	for _, r := range strings.ToLower(strings.TrimSpace(heading)) {
		switch {
		case r >= 'a' && r <= 'z', r >= '0' && r <= '9':
			b.WriteRune(r)
			lastUnderscore = false
		default:
			if !lastUnderscore && b.Len() > 0 {
				b.WriteByte('_')
				lastUnderscore = true
			}
		}
	}

	out := strings.TrimSuffix(b.String(), "_")
	if out == "" {
		out = "untitled"
	}
	return out
}
