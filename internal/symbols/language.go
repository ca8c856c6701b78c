// Package symbols locates declaration spans in source files using
// tree-sitter. The search provider uses spans to widen line hits to the
// enclosing function or type instead of a fixed context window.
package symbols

import (
	"path/filepath"
	"strings"
)

// Language identifies a grammar supported by the parser.
type Language string

const (
	LangGo         Language = "go"
	LangJavaScript Language = "javascript"
	LangTypeScript Language = "typescript"
	LangTSX        Language = "tsx"
	LangPython     Language = "python"
	LangRust       Language = "rust"
	LangJava       Language = "java"
	LangKotlin     Language = "kotlin"
)

// LanguageForPath returns the grammar for a file path based on its extension.
func LanguageForPath(path string) (Language, bool) {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".go":
		return LangGo, true
	case ".js", ".mjs", ".cjs", ".jsx":
		return LangJavaScript, true
	case ".ts", ".mts", ".cts":
		return LangTypeScript, true
	case ".tsx":
		return LangTSX, true
	case ".py", ".pyw":
		return LangPython, true
	case ".rs":
		return LangRust, true
	case ".java":
		return LangJava, true
	case ".kt", ".kts":
		return LangKotlin, true
	default:
		return "", false
	}
}

// Span is a named declaration region within a file.
// Lines are 1-indexed and inclusive.
type Span struct {
	Name      string `json:"name"`
	Kind      string `json:"kind"` // "function", "method", "type"
	StartLine int    `json:"startLine"`
	EndLine   int    `json:"endLine"`
}

func (s Span) size() int {
	return s.EndLine - s.StartLine
}

// Enclosing returns the innermost span that contains the given line.
func Enclosing(spans []Span, line int) (Span, bool) {
	best := -1
	for i, s := range spans {
		if line < s.StartLine || line > s.EndLine {
			continue
		}
		if best == -1 || s.size() < spans[best].size() {
			best = i
		}
	}
	if best == -1 {
		return Span{}, false
	}
	return spans[best], true
}
