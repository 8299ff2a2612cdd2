package chunk

import (
	"fmt"
	"regexp"
	"strings"
)

var assignmentRegex = regexp.MustCompile(`^\s*[A-Za-z_][\w.$]*\s*[:+]?=`)

// ChunkGeneric splits a file into blank-line separated groups. Single-line
// assignments are named "assignment"; other groups get stable group_N
// identifiers numbered in file order.
func ChunkGeneric(source []byte, language string) []Chunk {
	text := string(source)
	lines := strings.SplitAfter(text, "\n")

	type group struct {
		startLine int // 0-indexed
		start     int
		end       int
	}

	var groups []group
	offset := 0
	inGroup := false
	var current group

	for i, line := range lines {
		blank := strings.TrimSpace(line) == ""

		if blank {
			if inGroup {
				current.end = offset
				groups = append(groups, current)
				inGroup = false
			}
		} else if !inGroup {
			current = group{startLine: i, start: offset}
			inGroup = true
		}

		offset += len(line)
	}

	if inGroup {
		current.end = offset
		groups = append(groups, current)
	}

	var chunks []Chunk
	groupCounter := 0

	for _, g := range groups {
		body := text[g.start:g.end]
		trimmed := strings.TrimSpace(body)
		if trimmed == "" {
			continue
		}

		lineCount := strings.Count(strings.TrimSuffix(body, "\n"), "\n") + 1

		var name string
		chunkType := TypeGroup
		if lineCount == 1 && assignmentRegex.MatchString(trimmed) {
			name = "assignment"
			chunkType = TypeAssignment
		} else {
			groupCounter++
			name = fmt.Sprintf("group_%d", groupCounter)
		}

		chunks = append(chunks, Chunk{
			Text:      body,
			Name:      name,
			HasSymbol: false,
			Lang:      language,
			ChunkType: chunkType,
			StartLine: g.startLine + 1,
			EndLine:   g.startLine + lineCount,
		})
	}

	return chunks
}
