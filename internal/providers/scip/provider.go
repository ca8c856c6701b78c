package scip

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/google/uuid"

	"ctxrank/internal/evidence"
	"ctxrank/internal/logging"
	"ctxrank/internal/signal"
)

const (
	// Weight ranks lsp evidence below diff but above search hits.
	Weight = 80

	// DefaultIndexPath is where ctxrank init points the indexer.
	DefaultIndexPath = ".ctxrank/index.scip"

	defaultContextLines = 3

	// Hot symbols are referenced everywhere; definitions carry the
	// ranking weight, so references are capped per signal.
	maxReferencesPerSignal = 8
)

// Provider serves definition and reference evidence from a SCIP index.
// The index is loaded lazily on first query and held for the process
// lifetime; staleness against HEAD is the caller's concern via Stale.
type Provider struct {
	repoRoot  string
	indexPath string
	logger    *logging.Logger

	once    sync.Once
	idx     *Index
	loadErr error
}

// NewProvider creates a SCIP provider rooted at repoRoot. A relative
// indexPath is resolved against repoRoot; empty means the default
// .ctxrank/index.scip location.
func NewProvider(repoRoot, indexPath string, logger *logging.Logger) *Provider {
	if logger == nil {
		logger = logging.Nop()
	}
	if indexPath == "" {
		indexPath = DefaultIndexPath
	}
	if !filepath.IsAbs(indexPath) {
		indexPath = filepath.Join(repoRoot, indexPath)
	}
	return &Provider{
		repoRoot:  repoRoot,
		indexPath: indexPath,
		logger:    logger.WithComponent("scip"),
	}
}

func (p *Provider) Type() evidence.ProviderType { return evidence.TypeLSP }

func (p *Provider) Name() string { return "scip-index" }

func (p *Provider) BaseWeight() float64 { return Weight }

// IsAvailable reports whether the index file exists. Parse failures are
// discovered (and degraded) at query time.
func (p *Provider) IsAvailable() bool {
	_, err := os.Stat(p.indexPath)
	return err == nil
}

// Stale reports whether the loaded index predates head.
func (p *Provider) Stale(head string) bool {
	idx, err := p.load()
	if err != nil {
		return true
	}
	return idx.Stale(head)
}

func (p *Provider) load() (*Index, error) {
	p.once.Do(func() {
		p.idx, p.loadErr = Load(p.indexPath)
		if p.loadErr == nil {
			p.logger.Debug("scip index loaded", logging.Fields{
				"path":      p.indexPath,
				"documents": len(p.idx.Documents),
			})
		}
	})
	return p.idx, p.loadErr
}

// Query surfaces definitions and references for symbol signals and the
// definitions of documents matched by path signals. Definitions order
// before references. Error-token signals are not served here.
func (p *Provider) Query(ctx context.Context, signals []signal.Signal, opts evidence.QueryOptions) ([]evidence.Evidence, error) {
	idx, err := p.load()
	if err != nil {
		p.logger.Warn("scip index unavailable", logging.Fields{"error": err.Error()})
		return nil, nil
	}

	contextLines := opts.ContextLines
	if contextLines <= 0 {
		contextLines = defaultContextLines
	}

	files := newFileCache(p.repoRoot)
	var defs, refs []evidence.Evidence

	for _, sig := range signals {
		if ctx.Err() != nil {
			break
		}

		switch sig.Type {
		case signal.TypeSymbol:
			refsForSignal := 0
			for _, doc := range idx.Documents {
				if !evidence.MatchesFilters(doc.Path, opts.IncludePatterns, opts.ExcludePatterns) {
					continue
				}
				for _, occ := range doc.Occurrences {
					if occ.Name != sig.Value {
						continue
					}
					if !occ.Definition && refsForSignal >= maxReferencesPerSignal {
						continue
					}
					ev, ok := p.buildEvidence(files, doc, occ, sig, contextLines)
					if !ok {
						continue
					}
					if occ.Definition {
						defs = append(defs, ev)
					} else {
						refs = append(refs, ev)
						refsForSignal++
					}
				}
			}

		case signal.TypePath:
			for _, doc := range idx.Documents {
				if !sig.MatchesPath(doc.Path) {
					continue
				}
				if !evidence.MatchesFilters(doc.Path, opts.IncludePatterns, opts.ExcludePatterns) {
					continue
				}
				for _, occ := range doc.Occurrences {
					if !occ.Definition {
						continue
					}
					if ev, ok := p.buildEvidence(files, doc, occ, sig, contextLines); ok {
						defs = append(defs, ev)
					}
				}
			}
		}
	}

	results := evidence.Dedup(append(defs, refs...))

	if opts.MaxResults > 0 && len(results) > opts.MaxResults {
		results = results[:opts.MaxResults]
	}
	if opts.MaxTokens > 0 {
		results = evidence.ApplyTokenBudget(results, opts.MaxTokens)
	}

	return results, nil
}

// buildEvidence excerpts the worktree file around an occurrence. Occurrences
// past the end of the current file (index drift) are dropped.
func (p *Provider) buildEvidence(files *fileCache, doc Document, occ Occurrence, sig signal.Signal, contextLines int) (evidence.Evidence, bool) {
	lines, err := files.lines(doc.Path)
	if err != nil {
		return evidence.Evidence{}, false
	}
	if occ.StartLine >= len(lines) {
		return evidence.Evidence{}, false
	}

	start := occ.StartLine + 1 - contextLines
	if start < 1 {
		start = 1
	}
	end := occ.EndLine + 1 + contextLines
	if end > len(lines) {
		end = len(lines)
	}

	kind := evidence.KindReference
	if occ.Definition {
		kind = evidence.KindDefinition
	}

	content := strings.Join(lines[start-1:end], "\n")
	return evidence.Evidence{
		ID:             uuid.NewString(),
		Provider:       evidence.TypeLSP,
		Path:           doc.Path,
		Range:          [2]int{start, end},
		Content:        content,
		Tokens:         evidence.EstimateTokens(content),
		BaseScore:      Weight,
		MatchedSignals: []signal.Signal{sig},
		Metadata:       evidence.Metadata{Kind: kind, Symbol: occ.Name},
	}, true
}

// fileCache reads worktree files once per query cycle.
type fileCache struct {
	root   string
	cached map[string][]string
	failed map[string]error
}

func newFileCache(root string) *fileCache {
	return &fileCache{
		root:   root,
		cached: make(map[string][]string),
		failed: make(map[string]error),
	}
}

func (c *fileCache) lines(rel string) ([]string, error) {
	if lines, ok := c.cached[rel]; ok {
		return lines, nil
	}
	if err, ok := c.failed[rel]; ok {
		return nil, err
	}

	data, err := os.ReadFile(filepath.Join(c.root, filepath.FromSlash(rel)))
	if err != nil {
		c.failed[rel] = err
		return nil, err
	}

	lines := strings.Split(string(data), "\n")
	if n := len(lines); n > 0 && lines[n-1] == "" {
		lines = lines[:n-1]
	}
	c.cached[rel] = lines
	return lines, nil
}
