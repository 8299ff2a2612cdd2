package chunk

import (
	"context"
	"fmt"
	"strings"
)

// nameNodeTypes are the node types that can carry a declaration's name,
// checked in order.
var nameNodeTypes = []string{
	"identifier",
	"field_identifier",
	"type_identifier",
	"property_identifier",
	"name",
}

// parameterListTypes are the node types holding a declaration's parameters.
var parameterListTypes = []string{
	"parameter_list",
	"formal_parameters",
	"parameters",
}

// CodeChunker produces symbol-aware chunks using tree-sitter.
type CodeChunker struct {
	parser   *Parser
	registry *LanguageRegistry
}

// NewCodeChunker creates a chunker over the default registry.
func NewCodeChunker() *CodeChunker {
	return &CodeChunker{
		parser:   NewParser(),
		registry: DefaultRegistry(),
	}
}

// Close releases the underlying parser.
func (c *CodeChunker) Close() {
	c.parser.Close()
}

// Supports reports whether language has a tree-sitter grammar registered.
func (c *CodeChunker) Supports(language string) bool {
	_, ok := c.registry.GetTreeSitterLanguage(language)
	return ok
}

// Chunk splits source into one chunk per top-level declaration. Declarations
// the grammar cannot name get stable generated identifiers.
func (c *CodeChunker) Chunk(ctx context.Context, source []byte, language string) ([]Chunk, error) {
	config, ok := c.registry.GetByName(language)
	if !ok {
		return nil, fmt.Errorf("unsupported language: %s", language)
	}

	root, err := c.parser.Parse(ctx, source, language)
	if err != nil {
		return nil, err
	}

	declTypes := declarationTypes(config)

	var chunks []Chunk
	groupCounter := 0

	for _, child := range root.Children {
		chunkType, isDecl := declTypes[child.Type]
		if !isDecl {
			continue
		}

		text := child.Content(source)
		if strings.TrimSpace(text) == "" {
			continue
		}

		name, hasSymbol := declarationName(child, source)
		if !hasSymbol {
			groupCounter++
			if chunkType == TypeVariable || chunkType == TypeConstant {
				name = "assignment"
				chunkType = TypeAssignment
			} else {
				name = fmt.Sprintf("group_%d", groupCounter)
			}
		}

		meta := &SymbolMetadata{
			Signature:  extractSignature(text),
			Parameters: extractParameters(child, source),
			Return:     extractReturn(child, source, language),
			Calls:      extractCalls(child, source),
		}

		chunks = append(chunks, Chunk{
			Text:      text,
			Name:      name,
			HasSymbol: hasSymbol,
			Lang:      language,
			ChunkType: chunkType,
			StartLine: int(child.StartPoint.Row) + 1,
			EndLine:   int(child.EndPoint.Row) + 1,
			Symbol:    meta,
		})
	}

	// Python methods live inside class bodies; hoist them as method chunks
	// so functions inside classes are individually searchable.
	if language == "python" {
		chunks = append(chunks, pythonMethods(root, source, language)...)
	}

	fillNeighbors(chunks)

	return chunks, nil
}

// declarationTypes flattens a language config into nodeType -> chunk type.
func declarationTypes(config *LanguageConfig) map[string]Type {
	out := make(map[string]Type)
	for _, t := range config.FunctionTypes {
		out[t] = TypeFunction
	}
	for _, t := range config.MethodTypes {
		out[t] = TypeMethod
	}
	for _, t := range config.ClassTypes {
		out[t] = TypeClass
	}
	for _, t := range config.InterfaceTypes {
		out[t] = TypeInterface
	}
	for _, t := range config.TypeDefTypes {
		out[t] = TypeTypeDef
	}
	for _, t := range config.ConstantTypes {
		out[t] = TypeConstant
	}
	for _, t := range config.VariableTypes {
		out[t] = TypeVariable
	}
	return out
}

// declarationName finds the declared name by scanning for the first
// name-bearing node near the top of the declaration.
func declarationName(decl *Node, source []byte) (string, bool) {
	for _, nameType := range nameNodeTypes {
		if child := decl.FindChildByType(nameType); child != nil {
			name := strings.TrimSpace(child.Content(source))
			if name != "" {
				return name, true
			}
		}
	}

	// One level deeper covers wrappers like go type_declaration -> type_spec
	// and js lexical_declaration -> variable_declarator.
	for _, child := range decl.Children {
		for _, nameType := range nameNodeTypes {
			if grandchild := child.FindChildByType(nameType); grandchild != nil {
				name := strings.TrimSpace(grandchild.Content(source))
				if name != "" {
					return name, true
				}
			}
		}
	}

	return "", false
}

// extractSignature returns the declaration's first line up to the body brace
// or colon.
func extractSignature(text string) string {
	line := text
	if idx := strings.IndexByte(line, '\n'); idx >= 0 {
		line = line[:idx]
	}

	line = strings.TrimSuffix(strings.TrimSpace(line), "{")
	line = strings.TrimSuffix(strings.TrimSpace(line), ":")
	return strings.TrimSpace(line)
}

// extractParameters splits the last parameter list into trimmed entries.
func extractParameters(decl *Node, source []byte) []string {
	// The last matching list skips a method's receiver list.
	var list *Node
	for _, child := range decl.Children {
		for _, plType := range parameterListTypes {
			if child.Type == plType {
				list = child
			}
		}
	}
	if list == nil {
		return nil
	}

	inner := strings.TrimSpace(list.Content(source))
	inner = strings.TrimPrefix(inner, "(")
	inner = strings.TrimSuffix(inner, ")")
	if strings.TrimSpace(inner) == "" {
		return nil
	}

	parts := splitTopLevel(inner, ',')
	params := make([]string, 0, len(parts))
	for _, part := range parts {
		trimmed := strings.TrimSpace(part)
		if trimmed != "" {
			params = append(params, trimmed)
		}
	}

	return params
}

// splitTopLevel splits on sep outside of any bracket nesting.
func splitTopLevel(s string, sep byte) []string {
	var parts []string
	depth := 0
	start := 0

	for i := 0; i < len(s); i++ {
		switch s[i] {
		case '(', '[', '{', '<':
			depth++
		case ')', ']', '}', '>':
			if depth > 0 {
				depth--
			}
		case sep:
			if depth == 0 {
				parts = append(parts, s[start:i])
				start = i + 1
			}
		}
	}

	parts = append(parts, s[start:])
	return parts
}

// extractReturn reads the declared return type when the grammar exposes one.
func extractReturn(decl *Node, source []byte, language string) string {
	switch language {
	case "go":
		// The result sits between the last parameter_list and the block.
		lastParams := -1
		for i, child := range decl.Children {
			if child.Type == "parameter_list" {
				lastParams = i
			}
		}
		if lastParams >= 0 && lastParams+1 < len(decl.Children) {
			next := decl.Children[lastParams+1]
			if next.Type != "block" {
				return strings.TrimSpace(next.Content(source))
			}
		}
	case "typescript", "tsx":
		if ann := decl.FindChildByType("type_annotation"); ann != nil {
			return strings.TrimSpace(strings.TrimPrefix(ann.Content(source), ":"))
		}
	case "python":
		if ann := decl.FindChildByType("type"); ann != nil {
			return strings.TrimSpace(ann.Content(source))
		}
	}
	return ""
}

// callNodeTypes mark invocation expressions across the registered grammars.
var callNodeTypes = map[string]struct{}{
	"call_expression": {},
	"call":            {},
}

// extractCalls collects the identifiers invoked within a declaration body,
// deduplicated preserving first occurrence.
func extractCalls(decl *Node, source []byte) []string {
	seen := make(map[string]struct{})
	var calls []string

	decl.Walk(func(n *Node) bool {
		if _, ok := callNodeTypes[n.Type]; !ok {
			return true
		}
		if len(n.Children) == 0 {
			return true
		}

		callee := calleeName(n.Children[0], source)
		if callee == "" {
			return true
		}

		if _, exists := seen[callee]; !exists {
			seen[callee] = struct{}{}
			calls = append(calls, callee)
		}
		return true
	})

	return calls
}

// calleeName resolves the trailing identifier of a call target, so both
// plain calls and selector calls (pkg.Fn, obj.method) yield a name.
func calleeName(target *Node, source []byte) string {
	content := strings.TrimSpace(target.Content(source))
	if content == "" {
		return ""
	}

	if idx := strings.LastIndexByte(content, '.'); idx >= 0 && idx+1 < len(content) {
		content = content[idx+1:]
	}

	// Reject anything that is not a bare identifier.
	for _, r := range content {
		if !isIdentRune(r) {
			return ""
		}
	}

	return content
}

func isIdentRune(r rune) bool {
	return r == '_' || (r >= 'a' && r <= 'z') || (r >= 'A' && r <= 'Z') || (r >= '0' && r <= '9')
}

// pythonMethods hoists function definitions nested in class bodies.
func pythonMethods(root *Node, source []byte, language string) []Chunk {
	var out []Chunk

	for _, child := range root.Children {
		if child.Type != "class_definition" {
			continue
		}

		child.Walk(func(n *Node) bool {
			if n == child {
				return true
			}
			if n.Type != "function_definition" {
				return true
			}

			name, ok := declarationName(n, source)
			if !ok {
				return false
			}

			text := n.Content(source)
			out = append(out, Chunk{
				Text:      text,
				Name:      name,
				HasSymbol: true,
				Lang:      language,
				ChunkType: TypeMethod,
				StartLine: int(n.StartPoint.Row) + 1,
				EndLine:   int(n.EndPoint.Row) + 1,
				Symbol: &SymbolMetadata{
					Signature:  extractSignature(text),
					Parameters: extractParameters(n, source),
					Calls:      extractCalls(n, source),
				},
			})
			return false
		})
	}

	return out
}

// fillNeighbors records, for each symbol chunk, the other symbols declared in
// the same file.
func fillNeighbors(chunks []Chunk) {
	var names []string
	for _, c := range chunks {
		if c.HasSymbol {
			names = append(names, c.Name)
		}
	}

	for i := range chunks {
		if chunks[i].Symbol == nil {
			continue
		}

		var neighbors []string
		for _, name := range names {
			if name != chunks[i].Name {
				neighbors = append(neighbors, name)
			}
		}
		chunks[i].Symbol.Neighbors = neighbors
	}
}
