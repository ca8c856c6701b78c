// Package retrieval ties the classifier, strategy provider, and evidence
// providers into one ranked, budget-constrained evidence list per cycle.
package retrieval

import (
	"context"
	"fmt"
	"sort"
	"time"

	"golang.org/x/sync/errgroup"

	"ctxrank/internal/classify"
	"ctxrank/internal/errors"
	"ctxrank/internal/evidence"
	"ctxrank/internal/logging"
	"ctxrank/internal/signal"
	"ctxrank/internal/storage"
	"ctxrank/internal/strategy"
)

// DefaultProviderTimeout bounds each provider query when the caller does
// not configure one.
const DefaultProviderTimeout = 5 * time.Second

// Request is one evidence-retrieval cycle.
type Request struct {
	// Task is the free-text task description.
	Task string

	// Context carries situational flags observed by the caller.
	Context signal.TaskContext

	// Signals drive provider matching; extracted from Task and Context
	// when empty.
	Signals []signal.Signal

	// TotalBudget is the token budget across all providers. Zero yields
	// an empty result; negative is invalid.
	TotalBudget int

	// BaseWeights is the scoring baseline. The zero value selects
	// strategy.DefaultWeights.
	BaseWeights strategy.RerankerWeights
}

// Contribution records one provider's share of a cycle.
type Contribution struct {
	Provider evidence.ProviderType `json:"provider"`
	Name     string                `json:"name"`
	Budget   int                   `json:"budget"`
	Count    int                   `json:"count"`
	Tokens   int                   `json:"tokens"`
	Duration time.Duration         `json:"duration"`
	Skipped  bool                  `json:"skipped,omitempty"`
	Err      string                `json:"error,omitempty"`
}

// Result is the outcome of one cycle: the classification, the strategy it
// selected, and the globally ranked evidence list.
type Result struct {
	Classification classify.Result          `json:"classification"`
	Strategy       strategy.IntentStrategy  `json:"strategy"`
	Weights        strategy.RerankerWeights `json:"weights"`
	Evidence       []ScoredEvidence         `json:"evidence"`
	Contributions  []Contribution           `json:"contributions"`
	TotalTokens    int                      `json:"totalTokens"`
	Duration       time.Duration            `json:"duration"`
}

// MetricsRecorder persists per-cycle metrics; optional.
type MetricsRecorder interface {
	RecordCycle(ctx context.Context, m storage.CycleMetrics) error
}

// Options configures an Orchestrator.
type Options struct {
	Classifier *classify.Classifier
	Strategies *strategy.Provider
	Providers  []evidence.Provider
	Logger     *logging.Logger

	// ProviderTimeout bounds each provider query; DefaultProviderTimeout
	// when zero.
	ProviderTimeout time.Duration

	// ProviderTimeouts overrides the deadline per provider type. Types
	// without an entry use ProviderTimeout.
	ProviderTimeouts map[evidence.ProviderType]time.Duration

	// Metrics receives one record per cycle when set.
	Metrics MetricsRecorder
}

// Orchestrator is the single entry point for evidence retrieval.
type Orchestrator struct {
	classifier *classify.Classifier
	strategies *strategy.Provider
	providers  map[evidence.ProviderType]evidence.Provider
	registered []evidence.ProviderType
	logger     *logging.Logger
	timeout    time.Duration
	timeouts   map[evidence.ProviderType]time.Duration
	metrics    MetricsRecorder
}

// New wires an orchestrator. At most one provider per type is used; a
// duplicate registration keeps the first and logs the rest.
func New(opts Options) (*Orchestrator, error) {
	if opts.Classifier == nil || opts.Strategies == nil {
		return nil, errors.NewCtxError(
			errors.InvalidInput,
			"orchestrator requires a classifier and a strategy provider",
			nil,
			nil,
		)
	}

	logger := opts.Logger
	if logger == nil {
		logger = logging.Nop()
	}
	logger = logger.WithComponent("retrieval")

	timeout := opts.ProviderTimeout
	if timeout <= 0 {
		timeout = DefaultProviderTimeout
	}

	timeouts := make(map[evidence.ProviderType]time.Duration, len(opts.ProviderTimeouts))
	for pt, d := range opts.ProviderTimeouts {
		if d > 0 {
			timeouts[pt] = d
		}
	}

	providers := make(map[evidence.ProviderType]evidence.Provider, len(opts.Providers))
	var registered []evidence.ProviderType
	for _, p := range opts.Providers {
		if p == nil {
			continue
		}
		if _, dup := providers[p.Type()]; dup {
			logger.Warn("duplicate provider type registered, keeping the first", logging.Fields{
				"type": string(p.Type()),
				"name": p.Name(),
			})
			continue
		}
		providers[p.Type()] = p
		registered = append(registered, p.Type())
	}

	return &Orchestrator{
		classifier: opts.Classifier,
		strategies: opts.Strategies,
		providers:  providers,
		registered: registered,
		logger:     logger,
		timeout:    timeout,
		timeouts:   timeouts,
		metrics:    opts.Metrics,
	}, nil
}

// Retrieve runs one cycle: classify, select a strategy, fan out to the
// providers, then merge, trim, and rank. Provider failures and timeouts
// degrade to less evidence; an invalid request is the only error.
func (o *Orchestrator) Retrieve(ctx context.Context, req Request) (*Result, error) {
	started := time.Now()

	weights := req.BaseWeights
	if weights == (strategy.RerankerWeights{}) {
		weights = strategy.DefaultWeights
	}
	if err := validateRequest(req, weights); err != nil {
		return nil, err
	}

	cls := o.classifier.ClassifyWithContext(req.Task, req.Context)
	strat := o.strategies.Strategy(cls.Intent)
	effective := o.strategies.ApplyWeightModifiers(weights, cls.Intent)

	signals := req.Signals
	if len(signals) == 0 {
		signals = signal.Extract(req.Task, req.Context)
	}

	o.logger.Debug("cycle classified", logging.Fields{
		"intent":     string(cls.Intent),
		"confidence": cls.Confidence,
		"signals":    len(signals),
	})

	plan := o.planQueries(strat, req.TotalBudget, signals)
	contribs := make([]Contribution, len(plan))
	results := make([][]evidence.Evidence, len(plan))

	g, gctx := errgroup.WithContext(ctx)
	for i, q := range plan {
		i, q := i, q
		g.Go(func() error {
			contribs[i], results[i] = o.runQuery(gctx, q)
			return nil
		})
	}
	// Queries degrade instead of failing, so Wait only observes parent
	// cancellation having stopped in-flight work.
	_ = g.Wait()

	var merged []evidence.Evidence
	for _, items := range results {
		merged = append(merged, items...)
	}
	merged = evidence.Dedup(merged)
	trimmed := evidence.ApplyTokenBudget(merged, req.TotalBudget)

	scored := make([]ScoredEvidence, len(trimmed))
	totalTokens := 0
	for i, e := range trimmed {
		scored[i] = ScoredEvidence{Evidence: e, Score: compositeScore(e, effective)}
		totalTokens += e.Tokens
	}
	sort.SliceStable(scored, func(a, b int) bool {
		if scored[a].Score != scored[b].Score {
			return scored[a].Score > scored[b].Score
		}
		if scored[a].BaseScore != scored[b].BaseScore {
			return scored[a].BaseScore > scored[b].BaseScore
		}
		return scored[a].Path < scored[b].Path
	})

	res := &Result{
		Classification: cls,
		Strategy:       strat,
		Weights:        effective,
		Evidence:       scored,
		Contributions:  contribs,
		TotalTokens:    totalTokens,
		Duration:       time.Since(started),
	}

	o.logger.Info("evidence retrieved", logging.Fields{
		"intent":    string(cls.Intent),
		"providers": len(plan),
		"evidence":  len(scored),
		"tokens":    totalTokens,
		"ms":        res.Duration.Milliseconds(),
	})

	if o.metrics != nil {
		m := storage.CycleMetrics{
			Intent:        string(cls.Intent),
			Confidence:    cls.Confidence,
			Providers:     len(plan),
			EvidenceCount: len(scored),
			TokensUsed:    totalTokens,
			Duration:      res.Duration,
		}
		if err := o.metrics.RecordCycle(ctx, m); err != nil {
			o.logger.Warn("cycle metrics write failed", logging.Fields{
				"error": err.Error(),
			})
		}
	}

	return res, nil
}

// ReportOutcome closes the feedback loop for a completed task.
func (o *Orchestrator) ReportOutcome(ctx context.Context, intent classify.Intent, fb strategy.Feedback) error {
	return o.strategies.Update(ctx, intent, fb)
}

// Providers returns the registered providers in registration order.
func (o *Orchestrator) Providers() []evidence.Provider {
	out := make([]evidence.Provider, 0, len(o.registered))
	for _, pt := range o.registered {
		out = append(out, o.providers[pt])
	}
	return out
}

type providerQuery struct {
	provider evidence.Provider
	budget   int
	signals  []signal.Signal
}

// planQueries lays out the fan-out: strategy priority order first, then
// any registered provider type the strategy does not mention. Each
// provider gets a static floor share of the total budget; unused shares
// are not reallocated.
func (o *Orchestrator) planQueries(strat strategy.IntentStrategy, total int, signals []signal.Signal) []providerQuery {
	types := append([]evidence.ProviderType(nil), strat.ProviderPriority...)
	for _, pt := range o.registered {
		found := false
		for _, t := range types {
			if t == pt {
				found = true
				break
			}
		}
		if !found {
			types = append(types, pt)
		}
	}

	seen := make(map[evidence.ProviderType]bool, len(types))
	var plan []providerQuery
	for _, pt := range types {
		if seen[pt] {
			continue
		}
		seen[pt] = true
		p, ok := o.providers[pt]
		if !ok {
			continue
		}
		plan = append(plan, providerQuery{
			provider: p,
			budget:   providerBudget(total, strat.BudgetRatios, pt),
			signals:  subsetFor(pt, signals),
		})
	}
	return plan
}

func providerBudget(total int, r strategy.BudgetRatios, pt evidence.ProviderType) int {
	var ratio float64
	switch pt {
	case evidence.TypeDiff:
		ratio = r.Diff
	case evidence.TypeLSP:
		ratio = r.LSP
	case evidence.TypeSearch:
		ratio = r.Search
	}
	if ratio <= 0 || total <= 0 {
		return 0
	}
	return int(float64(total) * ratio)
}

// subsetFor narrows the signal set per provider type: the symbol provider
// only acts on symbol and path signals, the others see everything.
func subsetFor(pt evidence.ProviderType, signals []signal.Signal) []signal.Signal {
	if pt == evidence.TypeLSP {
		return signal.Filter(signals, signal.TypeSymbol, signal.TypePath)
	}
	return signals
}

// runQuery executes one provider query under its own deadline. Failures
// and timeouts contribute nothing and never abort the cycle.
func (o *Orchestrator) runQuery(ctx context.Context, q providerQuery) (Contribution, []evidence.Evidence) {
	c := Contribution{Provider: q.provider.Type(), Name: q.provider.Name(), Budget: q.budget}

	if q.budget <= 0 {
		c.Skipped = true
		return c, nil
	}
	if !q.provider.IsAvailable() {
		c.Skipped = true
		o.logger.Debug("provider unavailable", logging.Fields{
			"provider": c.Name,
		})
		return c, nil
	}

	qctx, cancel := context.WithTimeout(ctx, o.timeoutFor(q.provider.Type()))
	defer cancel()

	started := time.Now()
	items, err := q.provider.Query(qctx, q.signals, evidence.QueryOptions{MaxTokens: q.budget})
	c.Duration = time.Since(started)
	if err != nil {
		c.Err = err.Error()
		o.logger.Warn("provider query degraded", logging.Fields{
			"provider": c.Name,
			"error":    err.Error(),
		})
		return c, nil
	}

	c.Count = len(items)
	c.Tokens = evidence.TotalTokens(items)
	return c, items
}

func (o *Orchestrator) timeoutFor(pt evidence.ProviderType) time.Duration {
	if d, ok := o.timeouts[pt]; ok {
		return d
	}
	return o.timeout
}

func validateRequest(req Request, w strategy.RerankerWeights) error {
	if req.TotalBudget < 0 {
		return errors.NewCtxError(
			errors.InvalidInput,
			fmt.Sprintf("token budget must be non-negative, got %d", req.TotalBudget),
			nil,
			nil,
		)
	}
	if w.StackDepthDecay < 0 || w.StackDepthDecay > 1 {
		return errors.NewCtxError(
			errors.InvalidInput,
			fmt.Sprintf("stack depth decay must be in [0,1], got %g", w.StackDepthDecay),
			nil,
			nil,
		)
	}
	if w.Diff < 0 || w.StackFrame < 0 || w.Definition < 0 ||
		w.Reference < 0 || w.Keyword < 0 || w.WorkingSet < 0 {
		return errors.NewCtxError(
			errors.InvalidInput,
			"reranker weights must be non-negative",
			nil,
			nil,
		)
	}
	return nil
}
