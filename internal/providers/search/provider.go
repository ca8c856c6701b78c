// Package search surfaces full-text hits from the worktree as evidence.
// Hits widen to the enclosing declaration when tree-sitter grammars are
// compiled in, and fall back to a fixed context window otherwise.
package search

import (
	"bytes"
	"context"
	"io/fs"
	"os"
	"path/filepath"
	"regexp"
	"sort"
	"strings"

	"github.com/bmatcuk/doublestar/v4"
	"github.com/google/uuid"
	"github.com/sahilm/fuzzy"

	"ctxrank/internal/evidence"
	"ctxrank/internal/logging"
	"ctxrank/internal/signal"
	"ctxrank/internal/symbols"
)

const (
	// Weight ranks raw text hits below diff and lsp evidence.
	Weight = 60

	defaultContextLines = 3
	defaultMaxFileBytes = 512 * 1024
	maxFilesScanned     = 2000
	binarySniffLen      = 8192
)

// Always skipped regardless of configured ignore globs.
var skipDirs = map[string]bool{
	".git":         true,
	".ctxrank":     true,
	"node_modules": true,
	"vendor":       true,
	"dist":         true,
	"target":       true,
	"__pycache__":  true,
}

// Provider scans the worktree for signal terms. Symbol signals match on
// word boundaries, error tokens case-insensitively; path signals do not
// match content but pull matching files to the front of the scan order.
type Provider struct {
	repoRoot     string
	ignoreGlobs  []string
	maxFileBytes int64
	extractor    *symbols.Extractor
	logger       *logging.Logger
}

// NewProvider creates a search provider rooted at repoRoot. ignoreGlobs
// are doublestar patterns matched against slash-relative paths.
func NewProvider(repoRoot string, ignoreGlobs []string, logger *logging.Logger) *Provider {
	if logger == nil {
		logger = logging.Nop()
	}
	return &Provider{
		repoRoot:     repoRoot,
		ignoreGlobs:  ignoreGlobs,
		maxFileBytes: defaultMaxFileBytes,
		extractor:    symbols.NewExtractor(),
		logger:       logger.WithComponent("search"),
	}
}

// SetMaxFileBytes overrides the per-file scan cap. Values <= 0 keep the
// current cap.
func (p *Provider) SetMaxFileBytes(n int64) {
	if n > 0 {
		p.maxFileBytes = n
	}
}

func (p *Provider) Type() evidence.ProviderType { return evidence.TypeSearch }

func (p *Provider) Name() string { return "text-search" }

func (p *Provider) BaseWeight() float64 { return Weight }

// IsAvailable reports whether the worktree root is a readable directory.
func (p *Provider) IsAvailable() bool {
	info, err := os.Stat(p.repoRoot)
	return err == nil && info.IsDir()
}

// Query scans for symbol and error-token signals. With no content-bearing
// signals there is nothing to search for and the result is empty.
func (p *Provider) Query(ctx context.Context, signals []signal.Signal, opts evidence.QueryOptions) ([]evidence.Evidence, error) {
	matchers := buildMatchers(signals)
	if len(matchers) == 0 {
		return nil, nil
	}

	contextLines := opts.ContextLines
	if contextLines <= 0 {
		contextLines = defaultContextLines
	}

	paths := p.collectPaths(ctx, opts)
	paths = orderByAffinity(paths, signal.Filter(signals, signal.TypePath))

	var results []evidence.Evidence
	for _, rel := range paths {
		if ctx.Err() != nil {
			break
		}
		if opts.MaxResults > 0 && len(results) >= opts.MaxResults {
			break
		}
		results = append(results, p.scanFile(ctx, rel, matchers, contextLines)...)
	}

	if opts.MaxResults > 0 && len(results) > opts.MaxResults {
		results = results[:opts.MaxResults]
	}
	if opts.MaxTokens > 0 {
		results = evidence.ApplyTokenBudget(results, opts.MaxTokens)
	}

	return results, nil
}

// collectPaths walks the worktree and returns scan candidates in walk
// order, bounded by maxFilesScanned.
func (p *Provider) collectPaths(ctx context.Context, opts evidence.QueryOptions) []string {
	var paths []string

	_ = filepath.WalkDir(p.repoRoot, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return nil
		}
		if ctx.Err() != nil {
			return fs.SkipAll
		}

		name := d.Name()
		if d.IsDir() {
			if path != p.repoRoot && (skipDirs[name] || strings.HasPrefix(name, ".")) {
				return fs.SkipDir
			}
			return nil
		}

		rel, err := filepath.Rel(p.repoRoot, path)
		if err != nil {
			return nil
		}
		rel = filepath.ToSlash(rel)

		if p.ignored(rel) {
			return nil
		}
		if !evidence.MatchesFilters(rel, opts.IncludePatterns, opts.ExcludePatterns) {
			return nil
		}
		if info, err := d.Info(); err != nil || info.Size() > p.maxFileBytes {
			return nil
		}

		paths = append(paths, rel)
		if len(paths) >= maxFilesScanned {
			return fs.SkipAll
		}
		return nil
	})

	return paths
}

func (p *Provider) ignored(rel string) bool {
	for _, glob := range p.ignoreGlobs {
		if ok, err := doublestar.Match(glob, rel); err == nil && ok {
			return true
		}
	}
	return false
}

// scanFile reads one file and returns evidence for every merged hit window.
func (p *Provider) scanFile(ctx context.Context, rel string, matchers []contentMatcher, contextLines int) []evidence.Evidence {
	data, err := os.ReadFile(filepath.Join(p.repoRoot, filepath.FromSlash(rel)))
	if err != nil || isBinary(data) {
		return nil
	}

	lines := splitLines(string(data))

	type hit struct {
		line int // 1-based
		sig  signal.Signal
	}
	var hits []hit
	for n, line := range lines {
		for _, m := range matchers {
			if m.match(line) {
				hits = append(hits, hit{line: n + 1, sig: m.sig})
			}
		}
	}
	if len(hits) == 0 {
		return nil
	}

	spans := p.fileSpans(ctx, rel, data)

	type window struct {
		start, end int
		symbol     string
	}
	windows := make([]window, 0, len(hits))
	for _, h := range hits {
		w := window{start: h.line - contextLines, end: h.line + contextLines}
		if span, ok := symbols.Enclosing(spans, h.line); ok {
			w = window{start: span.StartLine, end: span.EndLine, symbol: span.Name}
		}
		if w.start < 1 {
			w.start = 1
		}
		if w.end > len(lines) {
			w.end = len(lines)
		}
		windows = append(windows, w)
	}

	sort.Slice(windows, func(i, j int) bool { return windows[i].start < windows[j].start })

	merged := windows[:1]
	for _, w := range windows[1:] {
		last := &merged[len(merged)-1]
		if w.start <= last.end+1 {
			if w.end > last.end {
				last.end = w.end
			}
			if last.symbol == "" {
				last.symbol = w.symbol
			}
			continue
		}
		merged = append(merged, w)
	}

	var results []evidence.Evidence
	for _, w := range merged {
		var matched []signal.Signal
		for _, h := range hits {
			if h.line >= w.start && h.line <= w.end {
				matched = append(matched, h.sig)
			}
		}
		matched = signal.Dedup(matched)

		content := strings.Join(lines[w.start-1:w.end], "\n")
		results = append(results, evidence.Evidence{
			ID:             uuid.NewString(),
			Provider:       evidence.TypeSearch,
			Path:           rel,
			Range:          [2]int{w.start, w.end},
			Content:        content,
			Tokens:         evidence.EstimateTokens(content),
			BaseScore:      Weight,
			MatchedSignals: matched,
			Metadata:       evidence.Metadata{Symbol: w.symbol},
		})
	}
	return results
}

// fileSpans extracts declaration spans when a grammar covers the file.
// Without CGO the extractor is nil and the stub returns nothing.
func (p *Provider) fileSpans(ctx context.Context, rel string, data []byte) []symbols.Span {
	lang, ok := symbols.LanguageForPath(rel)
	if !ok {
		return nil
	}
	spans, err := p.extractor.Spans(ctx, data, lang)
	if err != nil {
		p.logger.Debug("span extraction failed", logging.Fields{"path": rel, "error": err.Error()})
		return nil
	}
	return spans
}

// contentMatcher pairs a signal with its precompiled line predicate.
type contentMatcher struct {
	sig   signal.Signal
	match func(line string) bool
}

func buildMatchers(signals []signal.Signal) []contentMatcher {
	var matchers []contentMatcher
	for _, sig := range signals {
		switch sig.Type {
		case signal.TypeSymbol:
			re, err := regexp.Compile(`\b` + regexp.QuoteMeta(sig.Value) + `\b`)
			if err != nil {
				value := sig.Value
				matchers = append(matchers, contentMatcher{sig: sig, match: func(line string) bool {
					return strings.Contains(line, value)
				}})
				continue
			}
			matchers = append(matchers, contentMatcher{sig: sig, match: re.MatchString})

		case signal.TypeErrorToken:
			lower := strings.ToLower(sig.Value)
			matchers = append(matchers, contentMatcher{sig: sig, match: func(line string) bool {
				return strings.Contains(strings.ToLower(line), lower)
			}})
		}
	}
	return matchers
}

// orderByAffinity pulls files fuzzy-matching a path signal to the front.
// Ties and unmatched files keep walk order.
func orderByAffinity(paths []string, pathSignals []signal.Signal) []string {
	if len(pathSignals) == 0 || len(paths) == 0 {
		return paths
	}

	scores := make(map[int]int)
	for _, sig := range pathSignals {
		for _, m := range fuzzy.Find(sig.Value, paths) {
			scores[m.Index] += m.Score
		}
	}
	if len(scores) == 0 {
		return paths
	}

	order := make([]int, len(paths))
	for i := range order {
		order[i] = i
	}
	sort.SliceStable(order, func(a, b int) bool {
		return scores[order[a]] > scores[order[b]]
	})

	out := make([]string, len(paths))
	for i, j := range order {
		out[i] = paths[j]
	}
	return out
}

func isBinary(data []byte) bool {
	n := len(data)
	if n > binarySniffLen {
		n = binarySniffLen
	}
	return bytes.IndexByte(data[:n], 0) >= 0
}

func splitLines(s string) []string {
	lines := strings.Split(s, "\n")
	if n := len(lines); n > 0 && lines[n-1] == "" {
		lines = lines[:n-1]
	}
	return lines
}
