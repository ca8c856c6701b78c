//go:build cgo

package symbols

import (
	"context"
	"fmt"

	sitter "github.com/smacker/go-tree-sitter"
	"github.com/smacker/go-tree-sitter/golang"
	"github.com/smacker/go-tree-sitter/java"
	"github.com/smacker/go-tree-sitter/javascript"
	"github.com/smacker/go-tree-sitter/kotlin"
	"github.com/smacker/go-tree-sitter/python"
	"github.com/smacker/go-tree-sitter/rust"
	"github.com/smacker/go-tree-sitter/typescript/tsx"
	"github.com/smacker/go-tree-sitter/typescript/typescript"
)

// Extractor parses source files and reports declaration spans.
type Extractor struct {
	parser *sitter.Parser
}

// NewExtractor creates a span extractor.
func NewExtractor() *Extractor {
	return &Extractor{parser: sitter.NewParser()}
}

// Spans parses source and returns all named declaration spans in it.
// Nested declarations produce nested spans; callers pick with Enclosing.
func (e *Extractor) Spans(ctx context.Context, source []byte, lang Language) ([]Span, error) {
	grammar, err := grammarFor(lang)
	if err != nil {
		return nil, err
	}

	e.parser.SetLanguage(grammar)
	tree, err := e.parser.ParseCtx(ctx, nil, source)
	if err != nil {
		return nil, fmt.Errorf("parse %s source: %w", lang, err)
	}

	declTypes := declarationNodeTypes(lang)
	var spans []Span

	var walk func(*sitter.Node)
	walk = func(node *sitter.Node) {
		if node == nil {
			return
		}
		if kind, ok := declTypes[node.Type()]; ok {
			name := declarationName(node, source, lang)
			if name != "" {
				spans = append(spans, Span{
					Name:      name,
					Kind:      kind,
					StartLine: int(node.StartPoint().Row) + 1,
					EndLine:   int(node.EndPoint().Row) + 1,
				})
			}
		}
		for i := uint32(0); i < node.ChildCount(); i++ {
			walk(node.Child(int(i)))
		}
	}
	walk(tree.RootNode())

	return spans, nil
}

// grammarFor returns the tree-sitter grammar for a language identifier.
func grammarFor(lang Language) (*sitter.Language, error) {
	switch lang {
	case LangGo:
		return golang.GetLanguage(), nil
	case LangJavaScript:
		return javascript.GetLanguage(), nil
	case LangTypeScript:
		return typescript.GetLanguage(), nil
	case LangTSX:
		return tsx.GetLanguage(), nil
	case LangPython:
		return python.GetLanguage(), nil
	case LangRust:
		return rust.GetLanguage(), nil
	case LangJava:
		return java.GetLanguage(), nil
	case LangKotlin:
		return kotlin.GetLanguage(), nil
	default:
		return nil, fmt.Errorf("unsupported language: %s", lang)
	}
}

// declarationNodeTypes maps AST node types to span kinds for a language.
// Only named declarations are listed; anonymous functions fall back to the
// caller's fixed window.
func declarationNodeTypes(lang Language) map[string]string {
	switch lang {
	case LangGo:
		return map[string]string{
			"function_declaration": "function",
			"method_declaration":   "method",
			"type_declaration":     "type",
		}
	case LangJavaScript, LangTypeScript, LangTSX:
		return map[string]string{
			"function_declaration":           "function",
			"generator_function_declaration": "function",
			"method_definition":              "method",
			"class_declaration":              "type",
			"interface_declaration":          "type",
		}
	case LangPython:
		return map[string]string{
			"function_definition": "function",
			"class_definition":    "type",
		}
	case LangRust:
		return map[string]string{
			"function_item": "function",
			"struct_item":   "type",
			"enum_item":     "type",
			"trait_item":    "type",
			"impl_item":     "type",
		}
	case LangJava:
		return map[string]string{
			"method_declaration":      "method",
			"constructor_declaration": "method",
			"class_declaration":       "type",
			"interface_declaration":   "type",
			"enum_declaration":        "type",
		}
	case LangKotlin:
		return map[string]string{
			"function_declaration":  "function",
			"class_declaration":     "type",
			"interface_declaration": "type",
			"object_declaration":    "type",
		}
	default:
		return nil
	}
}

// declarationName extracts the declared name from a node.
func declarationName(node *sitter.Node, source []byte, lang Language) string {
	if nameNode := node.ChildByFieldName("name"); nameNode != nil {
		return string(source[nameNode.StartByte():nameNode.EndByte()])
	}

	switch {
	case lang == LangGo && node.Type() == "type_declaration":
		// The name lives on the type_spec child.
		for i := uint32(0); i < node.ChildCount(); i++ {
			child := node.Child(int(i))
			if child != nil && child.Type() == "type_spec" {
				if nameNode := child.ChildByFieldName("name"); nameNode != nil {
					return string(source[nameNode.StartByte():nameNode.EndByte()])
				}
			}
		}

	case lang == LangRust && node.Type() == "impl_item":
		for i := uint32(0); i < node.ChildCount(); i++ {
			child := node.Child(int(i))
			if child != nil && child.Type() == "type_identifier" {
				return string(source[child.StartByte():child.EndByte()])
			}
		}

	case lang == LangKotlin:
		for i := uint32(0); i < node.ChildCount(); i++ {
			child := node.Child(int(i))
			if child != nil && child.Type() == "simple_identifier" {
				return string(source[child.StartByte():child.EndByte()])
			}
		}
	}

	return ""
}

// IsAvailable reports whether span extraction is compiled in.
func IsAvailable() bool {
	return true
}
