package codemap

import (
	"encoding/json"
	"strings"

	"github.com/pampax/pampax/internal/pathutil"
)

// ChunkMetadata is the per-chunk value object in the codemap.
//
// Presence rules on serialization:
//   - symbol is always present, null when absent, never "".
//   - synonyms, symbol_calls, symbol_call_targets, symbol_callers and
//     symbol_neighbors are always present, possibly [].
//   - symbol_parameters is omitted entirely when empty.
//   - optional strings (chunkType, provider, last_used_at,
//     symbol_signature, symbol_return) are omitted when empty.
type ChunkMetadata struct {
	File              string
	Symbol            *string
	SHA               string
	Lang              string
	ChunkType         string
	Provider          string
	Dimensions        int
	HasPampaTags      bool
	HasIntent         bool
	HasDocumentation  bool
	VariableCount     int
	Synonyms          []string
	PathWeight        float64
	LastUsedAt        string
	SuccessRate       float64
	Encrypted         bool
	SymbolSignature   string
	SymbolParameters  []string
	SymbolReturn      string
	SymbolCalls       []string
	SymbolCallTargets []string
	SymbolCallers     []string
	SymbolNeighbors   []string
}

// NormalizeChunkMetadata applies the storage normalization rules: trimmed
// strings, deduplicated arrays preserving first occurrence, forward-slash
// paths, clamped numeric defaults.
func NormalizeChunkMetadata(input ChunkMetadata) ChunkMetadata {
	out := input
	out.File = pathutil.Normalize(out.File)
	out.Symbol = normalizeSymbol(out.Symbol)
	out.Synonyms = sanitizeStringArray(out.Synonyms)
	out.SymbolCalls = sanitizeStringArray(out.SymbolCalls)
	out.SymbolCallTargets = sanitizeStringArray(out.SymbolCallTargets)
	out.SymbolCallers = sanitizeStringArray(out.SymbolCallers)
	out.SymbolNeighbors = sanitizeStringArray(out.SymbolNeighbors)

	params := sanitizeStringArray(out.SymbolParameters)
	if len(params) > 0 {
		out.SymbolParameters = params
	} else {
		out.SymbolParameters = nil
	}

	out.SymbolSignature = strings.TrimSpace(out.SymbolSignature)
	out.SymbolReturn = strings.TrimSpace(out.SymbolReturn)

	if out.VariableCount < 0 {
		out.VariableCount = 0
	}

	if out.PathWeight < 0 {
		out.PathWeight = 0
	}
	if out.PathWeight == 0 {
		out.PathWeight = 1
	}

	if out.SuccessRate < 0 {
		out.SuccessRate = 0
	}
	if out.SuccessRate > 1 {
		out.SuccessRate = 1
	}

	return out
}

// MarshalJSON emits the value object with the presence rules applied.
// encoding/json sorts map keys, which yields the required lexicographic
// ordering of value-object keys.
func (m ChunkMetadata) MarshalJSON() ([]byte, error) {
	normalized := NormalizeChunkMetadata(m)

	payload := map[string]any{
		"file":                normalized.File,
		"symbol":              normalized.Symbol,
		"sha":                 normalized.SHA,
		"lang":                normalized.Lang,
		"hasPampaTags":        normalized.HasPampaTags,
		"hasIntent":           normalized.HasIntent,
		"hasDocumentation":    normalized.HasDocumentation,
		"variableCount":       normalized.VariableCount,
		"synonyms":            normalized.Synonyms,
		"path_weight":         normalized.PathWeight,
		"success_rate":        normalized.SuccessRate,
		"encrypted":           normalized.Encrypted,
		"symbol_calls":        normalized.SymbolCalls,
		"symbol_call_targets": normalized.SymbolCallTargets,
		"symbol_callers":      normalized.SymbolCallers,
		"symbol_neighbors":    normalized.SymbolNeighbors,
	}

	if normalized.ChunkType != "" {
		payload["chunkType"] = normalized.ChunkType
	}
	if normalized.Provider != "" {
		payload["provider"] = normalized.Provider
	}
	if normalized.Dimensions > 0 {
		payload["dimensions"] = normalized.Dimensions
	}
	if normalized.LastUsedAt != "" {
		payload["last_used_at"] = normalized.LastUsedAt
	}
	if normalized.SymbolSignature != "" {
		payload["symbol_signature"] = normalized.SymbolSignature
	}
	if len(normalized.SymbolParameters) > 0 {
		payload["symbol_parameters"] = normalized.SymbolParameters
	}
	if normalized.SymbolReturn != "" {
		payload["symbol_return"] = normalized.SymbolReturn
	}

	return json.Marshal(payload)
}

// chunkMetadataWire mirrors the serialized field set for decoding.
type chunkMetadataWire struct {
	File              string   `json:"file"`
	Symbol            *string  `json:"symbol"`
	SHA               string   `json:"sha"`
	Lang              string   `json:"lang"`
	ChunkType         string   `json:"chunkType"`
	Provider          string   `json:"provider"`
	Dimensions        int      `json:"dimensions"`
	HasPampaTags      bool     `json:"hasPampaTags"`
	HasIntent         bool     `json:"hasIntent"`
	HasDocumentation  bool     `json:"hasDocumentation"`
	VariableCount     int      `json:"variableCount"`
	Synonyms          []string `json:"synonyms"`
	PathWeight        float64  `json:"path_weight"`
	LastUsedAt        string   `json:"last_used_at"`
	SuccessRate       float64  `json:"success_rate"`
	Encrypted         bool     `json:"encrypted"`
	SymbolSignature   string   `json:"symbol_signature"`
	SymbolParameters  []string `json:"symbol_parameters"`
	SymbolReturn      string   `json:"symbol_return"`
	SymbolCalls       []string `json:"symbol_calls"`
	SymbolCallTargets []string `json:"symbol_call_targets"`
	SymbolCallers     []string `json:"symbol_callers"`
	SymbolNeighbors   []string `json:"symbol_neighbors"`
}

// UnmarshalJSON decodes a value object and re-applies normalization so a
// parse-then-serialize round trip reproduces the same bytes.
func (m *ChunkMetadata) UnmarshalJSON(data []byte) error {
	var wire chunkMetadataWire
	if err := json.Unmarshal(data, &wire); err != nil {
		return err
	}

	*m = NormalizeChunkMetadata(ChunkMetadata{
		File:              wire.File,
		Symbol:            wire.Symbol,
		SHA:               wire.SHA,
		Lang:              wire.Lang,
		ChunkType:         wire.ChunkType,
		Provider:          wire.Provider,
		Dimensions:        wire.Dimensions,
		HasPampaTags:      wire.HasPampaTags,
		HasIntent:         wire.HasIntent,
		HasDocumentation:  wire.HasDocumentation,
		VariableCount:     wire.VariableCount,
		Synonyms:          wire.Synonyms,
		PathWeight:        wire.PathWeight,
		LastUsedAt:        wire.LastUsedAt,
		SuccessRate:       wire.SuccessRate,
		Encrypted:         wire.Encrypted,
		SymbolSignature:   wire.SymbolSignature,
		SymbolParameters:  wire.SymbolParameters,
		SymbolReturn:      wire.SymbolReturn,
		SymbolCalls:       wire.SymbolCalls,
		SymbolCallTargets: wire.SymbolCallTargets,
		SymbolCallers:     wire.SymbolCallers,
		SymbolNeighbors:   wire.SymbolNeighbors,
	})

	return nil
}

func normalizeSymbol(symbol *string) *string {
	if symbol == nil {
		return nil
	}

	trimmed := strings.TrimSpace(*symbol)
	if trimmed == "" {
		return nil
	}

	normalized := trimmed
	return &normalized
}

func sanitizeStringArray(values []string) []string {
	if len(values) == 0 {
		return []string{}
	}

	seen := make(map[string]struct{}, len(values))
	out := make([]string, 0, len(values))

	for _, value := range values {
		trimmed := strings.TrimSpace(value)
		if trimmed == "" {
			continue
		}

		if _, exists := seen[trimmed]; exists {
			continue
		}

		seen[trimmed] = struct{}{}
		out = append(out, trimmed)
	}

	if len(out) == 0 {
		return []string{}
	}

	return out
}
