// Package strategy maps task intents to budgeting and ranking parameters,
// and adapts them over the process lifetime via outcome feedback.
package strategy

import (
	"context"
	"fmt"
	"math"
	"sync"

	"ctxrank/internal/classify"
	"ctxrank/internal/errors"
	"ctxrank/internal/evidence"
	"ctxrank/internal/logging"
)

// RatioTolerance bounds how far budget ratios may drift from summing to 1.
const RatioTolerance = 0.1

// BudgetRatios split a token budget across provider types.
type BudgetRatios struct {
	Diff   float64 `json:"diff" toml:"diff"`
	LSP    float64 `json:"lsp" toml:"lsp"`
	Search float64 `json:"search" toml:"search"`
}

func (r BudgetRatios) Sum() float64 {
	return r.Diff + r.LSP + r.Search
}

// Valid reports whether the ratios sum to 1 within tolerance.
func (r BudgetRatios) Valid() bool {
	return math.Abs(r.Sum()-1) <= RatioTolerance
}

// RerankerWeights are the per-dimension multipliers for composite scoring.
// Callers supply a baseline; ApplyWeightModifiers never mutates it.
type RerankerWeights struct {
	Diff            float64 `json:"diff"`
	StackFrame      float64 `json:"stackFrame"`
	Definition      float64 `json:"definition"`
	Reference       float64 `json:"reference"`
	Keyword         float64 `json:"keyword"`
	WorkingSet      float64 `json:"workingSet"`
	StackDepthDecay float64 `json:"stackDepthDecay"` // 0..1, per frame depth
}

// WeightModifiers are absolute overrides. A nil field keeps the caller's
// base value; "not present" and "set to the base value" are distinct.
type WeightModifiers struct {
	Diff            *float64 `json:"diff,omitempty" toml:"diff"`
	StackFrame      *float64 `json:"stackFrame,omitempty" toml:"stack_frame"`
	Definition      *float64 `json:"definition,omitempty" toml:"definition"`
	Reference       *float64 `json:"reference,omitempty" toml:"reference"`
	Keyword         *float64 `json:"keyword,omitempty" toml:"keyword"`
	WorkingSet      *float64 `json:"workingSet,omitempty" toml:"working_set"`
	StackDepthDecay *float64 `json:"stackDepthDecay,omitempty" toml:"stack_depth_decay"`
}

// Float builds a modifier value in place.
func Float(v float64) *float64 { return &v }

// IntentStrategy is the full parameter set for one intent.
type IntentStrategy struct {
	BudgetRatios      BudgetRatios            `json:"budgetRatios"`
	WeightModifiers   WeightModifiers         `json:"weightModifiers"`
	ProviderPriority  []evidence.ProviderType `json:"providerPriority"`
	AdditionalContext []string                `json:"additionalContext,omitempty"`
}

// Patch overrides whole fields of an IntentStrategy. Each non-nil field
// replaces the corresponding strategy field entirely; fields are never
// merged element-wise.
type Patch struct {
	BudgetRatios      *BudgetRatios           `json:"budgetRatios,omitempty"`
	WeightModifiers   *WeightModifiers        `json:"weightModifiers,omitempty"`
	ProviderPriority  []evidence.ProviderType `json:"providerPriority,omitempty"`
	AdditionalContext []string                `json:"additionalContext,omitempty"`
}

// Feedback is one task outcome report.
type Feedback struct {
	Success     bool
	Adjustments *Patch
}

// FeedbackRecord is the rolling outcome tally for one intent.
type FeedbackRecord struct {
	SampleCount int     `json:"sampleCount"`
	SuccessRate float64 `json:"successRate"`
}

// OutcomeStore persists outcome reports; the provider works without one.
type OutcomeStore interface {
	RecordOutcome(ctx context.Context, intent string, success bool) error
}

type feedbackState struct {
	samples   int
	successes int
}

// Options configures a Provider.
type Options struct {
	// Custom strategies merge field-wise over the defaults per intent.
	Custom map[classify.Intent]Patch

	// Store receives a write-through copy of every outcome report.
	Store OutcomeStore

	Logger *logging.Logger
}

// Provider owns the live per-intent strategies and feedback records.
// Reads and writes may race from concurrent cycles; all state is guarded.
type Provider struct {
	logger *logging.Logger
	store  OutcomeStore

	mu       sync.RWMutex
	base     map[classify.Intent]IntentStrategy
	live     map[classify.Intent]IntentStrategy
	feedback map[classify.Intent]*feedbackState
}

// New validates and merges custom strategies over the built-in defaults.
func New(opts Options) (*Provider, error) {
	logger := opts.Logger
	if logger == nil {
		logger = logging.Nop()
	}

	base := defaultStrategies()
	for intent, patch := range opts.Custom {
		current, ok := base[intent]
		if !ok {
			return nil, errors.NewCtxError(
				errors.ConfigError,
				fmt.Sprintf("custom strategy for unknown intent %q", intent),
				nil,
				nil,
			)
		}
		base[intent] = merge(current, patch)
	}
	for intent, s := range base {
		if !s.BudgetRatios.Valid() {
			return nil, errors.NewCtxError(
				errors.ConfigError,
				fmt.Sprintf("budget ratios for %q sum to %.2f, want 1 within %.1f", intent, s.BudgetRatios.Sum(), RatioTolerance),
				nil,
				nil,
			)
		}
	}

	return &Provider{
		logger:   logger.WithComponent("strategy"),
		store:    opts.Store,
		base:     base,
		live:     cloneStrategies(base),
		feedback: make(map[classify.Intent]*feedbackState),
	}, nil
}

// Strategy returns the live strategy for an intent. Unrecognized intents
// fall back to the unknown strategy. The result is a detached copy.
func (p *Provider) Strategy(intent classify.Intent) IntentStrategy {
	p.mu.RLock()
	defer p.mu.RUnlock()

	s, ok := p.live[intent]
	if !ok {
		s = p.live[classify.IntentUnknown]
	}
	return cloneStrategy(s)
}

// BudgetRatios is shorthand for Strategy(intent).BudgetRatios.
func (p *Provider) BudgetRatios(intent classify.Intent) BudgetRatios {
	return p.Strategy(intent).BudgetRatios
}

// ApplyWeightModifiers returns a new weight set with the intent's modifier
// fields replacing the base values; unnamed fields pass through unchanged.
func (p *Provider) ApplyWeightModifiers(base RerankerWeights, intent classify.Intent) RerankerWeights {
	m := p.Strategy(intent).WeightModifiers

	out := base
	if m.Diff != nil {
		out.Diff = *m.Diff
	}
	if m.StackFrame != nil {
		out.StackFrame = *m.StackFrame
	}
	if m.Definition != nil {
		out.Definition = *m.Definition
	}
	if m.Reference != nil {
		out.Reference = *m.Reference
	}
	if m.Keyword != nil {
		out.Keyword = *m.Keyword
	}
	if m.WorkingSet != nil {
		out.WorkingSet = *m.WorkingSet
	}
	if m.StackDepthDecay != nil {
		out.StackDepthDecay = *m.StackDepthDecay
	}
	return out
}

// Update folds a task outcome into the intent's feedback record and applies
// any live-strategy adjustments. Adjusted budget ratios must stay valid or
// the whole call is rejected.
func (p *Provider) Update(ctx context.Context, intent classify.Intent, fb Feedback) error {
	p.mu.Lock()

	if fb.Adjustments != nil {
		current, ok := p.live[intent]
		if !ok {
			p.mu.Unlock()
			return errors.NewCtxError(
				errors.InvalidInput,
				fmt.Sprintf("cannot adjust strategy for unknown intent %q", intent),
				nil,
				nil,
			)
		}
		next := merge(current, *fb.Adjustments)
		if !next.BudgetRatios.Valid() {
			p.mu.Unlock()
			return errors.NewCtxError(
				errors.InvalidInput,
				fmt.Sprintf("adjusted budget ratios sum to %.2f, want 1 within %.1f", next.BudgetRatios.Sum(), RatioTolerance),
				nil,
				nil,
			)
		}
		p.live[intent] = next
	}

	state := p.feedback[intent]
	if state == nil {
		state = &feedbackState{}
		p.feedback[intent] = state
	}
	state.samples++
	if fb.Success {
		state.successes++
	}
	p.mu.Unlock()

	if p.store != nil {
		if err := p.store.RecordOutcome(ctx, string(intent), fb.Success); err != nil {
			p.logger.Warn("outcome write-through failed", logging.Fields{
				"intent": string(intent),
				"error":  err.Error(),
			})
		}
	}
	return nil
}

// FeedbackStats returns the rolling record for an intent; ok is false
// until the first Update call for it.
func (p *Provider) FeedbackStats(intent classify.Intent) (FeedbackRecord, bool) {
	p.mu.RLock()
	defer p.mu.RUnlock()

	state, ok := p.feedback[intent]
	if !ok || state.samples == 0 {
		return FeedbackRecord{}, false
	}
	return FeedbackRecord{
		SampleCount: state.samples,
		SuccessRate: float64(state.successes) / float64(state.samples),
	}, true
}

// Reset discards feedback and live adjustments, restoring the strategies
// the provider was constructed with.
func (p *Provider) Reset() {
	p.mu.Lock()
	defer p.mu.Unlock()

	p.live = cloneStrategies(p.base)
	p.feedback = make(map[classify.Intent]*feedbackState)
}

func merge(base IntentStrategy, patch Patch) IntentStrategy {
	out := cloneStrategy(base)
	if patch.BudgetRatios != nil {
		out.BudgetRatios = *patch.BudgetRatios
	}
	if patch.WeightModifiers != nil {
		out.WeightModifiers = cloneModifiers(*patch.WeightModifiers)
	}
	if patch.ProviderPriority != nil {
		out.ProviderPriority = append([]evidence.ProviderType(nil), patch.ProviderPriority...)
	}
	if patch.AdditionalContext != nil {
		out.AdditionalContext = append([]string(nil), patch.AdditionalContext...)
	}
	return out
}

func cloneStrategy(s IntentStrategy) IntentStrategy {
	out := s
	out.WeightModifiers = cloneModifiers(s.WeightModifiers)
	out.ProviderPriority = append([]evidence.ProviderType(nil), s.ProviderPriority...)
	if s.AdditionalContext != nil {
		out.AdditionalContext = append([]string(nil), s.AdditionalContext...)
	}
	return out
}

func cloneStrategies(in map[classify.Intent]IntentStrategy) map[classify.Intent]IntentStrategy {
	out := make(map[classify.Intent]IntentStrategy, len(in))
	for intent, s := range in {
		out[intent] = cloneStrategy(s)
	}
	return out
}

func cloneModifiers(m WeightModifiers) WeightModifiers {
	out := WeightModifiers{}
	if m.Diff != nil {
		out.Diff = Float(*m.Diff)
	}
	if m.StackFrame != nil {
		out.StackFrame = Float(*m.StackFrame)
	}
	if m.Definition != nil {
		out.Definition = Float(*m.Definition)
	}
	if m.Reference != nil {
		out.Reference = Float(*m.Reference)
	}
	if m.Keyword != nil {
		out.Keyword = Float(*m.Keyword)
	}
	if m.WorkingSet != nil {
		out.WorkingSet = Float(*m.WorkingSet)
	}
	if m.StackDepthDecay != nil {
		out.StackDepthDecay = Float(*m.StackDepthDecay)
	}
	return out
}
