// Package diff surfaces recently changed file content as evidence.
package diff

import (
	"context"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"ctxrank/internal/evidence"
	"ctxrank/internal/logging"
	"ctxrank/internal/signal"
	"ctxrank/internal/snapshot"
)

const (
	// Weight is the static base score for diff evidence. Recent edits are
	// the most trusted context source, so diff ranks above lsp and search.
	Weight = 100

	probeTimeout = 2 * time.Second
)

// Provider wraps a snapshot diff service. All failure paths degrade to an
// empty result; Query never returns an error.
type Provider struct {
	service snapshot.Service
	logger  *logging.Logger

	mu   sync.RWMutex
	base string
}

// NewProvider creates a diff provider. The snapshot reference starts unset;
// callers set it with SetSnapshot before the first query.
func NewProvider(service snapshot.Service, logger *logging.Logger) *Provider {
	if logger == nil {
		logger = logging.Nop()
	}
	return &Provider{
		service: service,
		logger:  logger.WithComponent("diff"),
	}
}

func (p *Provider) Type() evidence.ProviderType { return evidence.TypeDiff }

func (p *Provider) Name() string { return "git-diff" }

func (p *Provider) BaseWeight() float64 { return Weight }

// SetSnapshot updates the reference all future queries diff against.
// No validation happens here; IsAvailable is the validation path.
func (p *Provider) SetSnapshot(base string) {
	p.mu.Lock()
	p.base = base
	p.mu.Unlock()
}

// Snapshot returns the current snapshot reference, or "" if unset.
func (p *Provider) Snapshot() string {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.base
}

// IsAvailable reports false when no snapshot reference is set, otherwise
// probes the backend with a bounded timeout.
func (p *Provider) IsAvailable() bool {
	base := p.Snapshot()
	if base == "" {
		return false
	}

	ctx, cancel := context.WithTimeout(context.Background(), probeTimeout)
	defer cancel()

	if _, err := p.service.Patch(ctx, base); err != nil {
		p.logger.Debug("diff backend probe failed", logging.Fields{"error": err.Error()})
		return false
	}
	return true
}

// Query returns one evidence record per changed file that passes the path
// filters and matches at least one signal (zero signals admit every file).
func (p *Provider) Query(ctx context.Context, signals []signal.Signal, opts evidence.QueryOptions) ([]evidence.Evidence, error) {
	base := p.Snapshot()
	if base == "" {
		return nil, nil
	}

	diffs, err := p.service.FullDiff(ctx, base)
	if err != nil {
		p.logger.Warn("diff backend unavailable", logging.Fields{
			"snapshot": base,
			"error":    err.Error(),
		})
		return nil, nil
	}

	var results []evidence.Evidence
	for _, fd := range diffs {
		if !evidence.MatchesFilters(fd.Path, opts.IncludePatterns, opts.ExcludePatterns) {
			continue
		}

		content := fd.After
		if fd.Kind == snapshot.Deleted {
			content = fd.Before
		}

		matched := matchSignals(signals, fd, content)
		if len(signals) > 0 && len(matched) == 0 {
			continue
		}
		if len(matched) == 0 {
			matched = signals
		}

		results = append(results, evidence.Evidence{
			ID:             uuid.NewString(),
			Provider:       evidence.TypeDiff,
			Path:           fd.Path,
			Range:          [2]int{1, lineCount(content)},
			Content:        content,
			Tokens:         evidence.EstimateTokens(content),
			BaseScore:      Weight,
			MatchedSignals: matched,
			Metadata: evidence.Metadata{
				ChangeType: changeType(fd.Kind),
				OldPath:    fd.OldPath,
			},
		})
	}

	if opts.MaxResults > 0 && len(results) > opts.MaxResults {
		results = results[:opts.MaxResults]
	}
	if opts.MaxTokens > 0 {
		results = evidence.ApplyTokenBudget(results, opts.MaxTokens)
	}

	return results, nil
}

// matchSignals returns the subset of signals that match this file. Path
// signals consider the old path too for renames; symbol and error-token
// signals search the surviving content.
func matchSignals(signals []signal.Signal, fd snapshot.FileDiff, content string) []signal.Signal {
	var matched []signal.Signal
	for _, sig := range signals {
		ok := false
		switch sig.Type {
		case signal.TypePath:
			ok = sig.MatchesPath(fd.Path)
			if !ok && fd.Kind == snapshot.Renamed {
				ok = sig.MatchesPath(fd.OldPath)
			}
		case signal.TypeSymbol:
			ok = sig.MatchesSymbol(content)
		case signal.TypeErrorToken:
			ok = sig.MatchesErrorToken(content)
		}
		if ok {
			matched = append(matched, sig)
		}
	}
	return matched
}

// changeType collapses renames into modifications.
func changeType(kind snapshot.ChangeKind) evidence.ChangeType {
	switch kind {
	case snapshot.Added:
		return evidence.ChangeAdded
	case snapshot.Deleted:
		return evidence.ChangeDeleted
	default:
		return evidence.ChangeModified
	}
}

func lineCount(content string) int {
	n := strings.Count(content, "\n")
	if !strings.HasSuffix(content, "\n") {
		n++
	}
	return n
}
