package chunk

import (
	"context"
	"fmt"
	"unicode/utf8"

	"github.com/rs/zerolog/log"
)

// ErrInvalidUTF8 marks files excluded because their bytes are not valid UTF-8.
var ErrInvalidUTF8 = fmt.Errorf("file is not valid UTF-8")

// Chunker dispatches a file to the right chunking strategy.
type Chunker struct {
	code *CodeChunker
}

// NewChunker creates a Chunker.
func NewChunker() *Chunker {
	return &Chunker{code: NewCodeChunker()}
}

// Close releases parser resources.
func (c *Chunker) Close() {
	c.code.Close()
}

// ChunkFile splits a file's bytes into chunks. The language is detected from
// the path; unsupported extensions yield no chunks. Invalid UTF-8 excludes
// the file with ErrInvalidUTF8.
func (c *Chunker) ChunkFile(ctx context.Context, relPath string, source []byte) ([]Chunk, error) {
	language := DetectLanguage(relPath)
	if language == "" {
		return nil, nil
	}

	if !utf8.Valid(source) {
		return nil, fmt.Errorf("%s: %w", relPath, ErrInvalidUTF8)
	}

	if language == "markdown" {
		return ChunkMarkdown(source, language), nil
	}

	if c.code.Supports(language) {
		chunks, err := c.code.Chunk(ctx, source, language)
		if err != nil {
			// A parse failure downgrades to the generic chunker rather than
			// dropping the file.
			log.Warn().Str("path", relPath).Err(err).Msg("tree_sitter_parse_failed")
			return ChunkGeneric(source, language), nil
		}
		if len(chunks) == 0 {
			return ChunkGeneric(source, language), nil
		}
		return chunks, nil
	}

	return ChunkGeneric(source, language), nil
}
