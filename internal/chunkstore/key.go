package chunkstore

import (
	"encoding/base64"
	"encoding/hex"
	"fmt"
	"strings"
)

const (
	base64KeyLength = 44
	hexKeyLength    = 64
)

// ParseMasterKey decodes a master key given as standard base64 (44 chars) or
// lowercase/uppercase hex (64 chars) of exactly 32 raw bytes. Any other
// length or encoding is rejected so misconfiguration fails at load time.
func ParseMasterKey(encoded string) ([]byte, error) {
	trimmed := strings.TrimSpace(encoded)
	if trimmed == "" {
		return nil, fmt.Errorf("encryption key is empty")
	}

	switch len(trimmed) {
	case base64KeyLength:
		raw, err := base64.StdEncoding.DecodeString(trimmed)
		if err != nil {
			return nil, fmt.Errorf("decode base64 encryption key: %w", err)
		}
		if len(raw) != 32 {
			return nil, fmt.Errorf("base64 encryption key decodes to %d bytes, want 32", len(raw))
		}
		return raw, nil

	case hexKeyLength:
		raw, err := hex.DecodeString(trimmed)
		if err != nil {
			return nil, fmt.Errorf("decode hex encryption key: %w", err)
		}
		return raw, nil

	default:
		return nil, fmt.Errorf("encryption key must be 44 base64 chars or 64 hex chars, got %d chars", len(trimmed))
	}
}
