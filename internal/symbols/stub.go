//go:build !cgo

package symbols

import "context"

// Extractor parses source files and reports declaration spans.
// This stub is compiled when CGO is disabled.
type Extractor struct{}

// NewExtractor returns nil when CGO is disabled.
func NewExtractor() *Extractor {
	return nil
}

// Spans returns no spans when CGO is disabled.
func (e *Extractor) Spans(ctx context.Context, source []byte, lang Language) ([]Span, error) {
	return nil, nil
}

// IsAvailable reports whether span extraction is compiled in.
func IsAvailable() bool {
	return false
}
