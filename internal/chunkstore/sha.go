package chunkstore

import (
	"crypto/sha1"
	"encoding/hex"
)

// ComputeSHA returns the lowercase hex SHA-1 of the raw UTF-8 bytes of text.
// Line endings and any BOM are hashed verbatim.
func ComputeSHA(text string) string {
	sum := sha1.Sum([]byte(text))
	return hex.EncodeToString(sum[:])
}
