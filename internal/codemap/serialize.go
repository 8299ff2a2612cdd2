package codemap

import (
	"bytes"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"github.com/pampax/pampax/internal/pathutil"
)

// Marshal renders the codemap with two-space indentation, LF newlines and a
// trailing newline, preserving top-level insertion order.
func Marshal(codemap *OrderedMap) ([]byte, error) {
	raw, err := json.Marshal(codemap)
	if err != nil {
		return nil, fmt.Errorf("marshal codemap: %w", err)
	}

	var out bytes.Buffer
	if err := json.Indent(&out, raw, "", "  "); err != nil {
		return nil, fmt.Errorf("format codemap json: %w", err)
	}

	out.WriteByte('\n')
	return out.Bytes(), nil
}

// Write atomically replaces the codemap file at path.
func Write(path string, codemap *OrderedMap) error {
	payload, err := Marshal(codemap)
	if err != nil {
		return err
	}

	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("create codemap directory: %w", err)
	}

	if err := pathutil.WriteFileAtomic(path, payload, 0o644); err != nil {
		return fmt.Errorf("write codemap file: %w", err)
	}

	return nil
}

// Parse reads serialized codemap bytes back into an OrderedMap of
// ChunkMetadata, preserving the top-level key order.
func Parse(data []byte) (*OrderedMap, error) {
	decoder := json.NewDecoder(bytes.NewReader(data))

	tok, err := decoder.Token()
	if err != nil {
		return nil, fmt.Errorf("parse codemap: %w", err)
	}
	if delim, ok := tok.(json.Delim); !ok || delim != '{' {
		return nil, fmt.Errorf("parse codemap: expected top-level object")
	}

	out := NewOrderedMap()
	for decoder.More() {
		keyTok, err := decoder.Token()
		if err != nil {
			return nil, fmt.Errorf("parse codemap key: %w", err)
		}
		key, ok := keyTok.(string)
		if !ok {
			return nil, fmt.Errorf("parse codemap: non-string key")
		}

		var meta ChunkMetadata
		if err := decoder.Decode(&meta); err != nil {
			return nil, fmt.Errorf("parse codemap entry %q: %w", key, err)
		}

		out.Set(key, meta)
	}

	if _, err := decoder.Token(); err != nil {
		return nil, fmt.Errorf("parse codemap close: %w", err)
	}

	return out, nil
}

// Read loads and parses the codemap file at path.
func Read(path string) (*OrderedMap, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read codemap file: %w", err)
	}
	return Parse(data)
}
