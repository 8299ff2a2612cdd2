// Package chunk splits source files into symbol-aware chunks. Languages with
// tree-sitter grammars (go, javascript, jsx, typescript, tsx, python) get one
// chunk per top-level declaration with symbol metadata; markdown is split on
// headings; everything else falls back to deterministic blank-line groups.
// Chunk text is always a byte-exact slice of the file, and chunking the same
// input always yields the same chunks.
package chunk

// Type classifies a chunk.
type Type string

const (
	TypeFunction   Type = "function"
	TypeMethod     Type = "method"
	TypeClass      Type = "class"
	TypeInterface  Type = "interface"
	TypeTypeDef    Type = "type"
	TypeVariable   Type = "variable"
	TypeConstant   Type = "constant"
	TypeSection    Type = "section"
	TypeGroup      Type = "group"
	TypeAssignment Type = "assignment"
)

// SymbolMetadata carries optional symbol details extracted by the parser.
type SymbolMetadata struct {
	Signature  string
	Parameters []string
	Return     string
	Calls      []string
	Neighbors  []string
}

// Chunk is one indexable slice of a file.
type Chunk struct {
	// Text is the byte-exact content slice.
	Text string
	// Name is the symbol name, or a generated identifier
	// (group_N, section_..., assignment) when HasSymbol is false.
	Name string
	// HasSymbol distinguishes real symbols from generated identifiers.
	HasSymbol bool
	// Lang is the language tag.
	Lang string
	// ChunkType classifies the chunk.
	ChunkType Type
	// StartLine and EndLine are 1-indexed, inclusive.
	StartLine int
	EndLine   int
	// Symbol holds optional symbol metadata.
	Symbol *SymbolMetadata
}

// Point is a row/column position in a source file.
type Point struct {
	Row    uint32
	Column uint32
}

// Node is a language-neutral view of a tree-sitter syntax node.
type Node struct {
	Type      string
	StartByte uint32
	EndByte   uint32
	StartPoint Point
	EndPoint   Point
	HasError  bool
	Children  []*Node
}
