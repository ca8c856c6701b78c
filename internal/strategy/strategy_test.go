package strategy

import (
	"context"
	"fmt"
	"testing"

	"ctxrank/internal/classify"
	"ctxrank/internal/errors"
	"ctxrank/internal/evidence"
)

func newProvider(t *testing.T, opts Options) *Provider {
	t.Helper()
	p, err := New(opts)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	return p
}

func TestDefaultRatiosSumToOne(t *testing.T) {
	p := newProvider(t, Options{})

	intents := append(classify.Intents(), classify.IntentUnknown)
	for _, intent := range intents {
		r := p.BudgetRatios(intent)
		if !r.Valid() {
			t.Errorf("%s: ratios %+v sum to %.3f", intent, r, r.Sum())
		}
	}
}

func TestDefaultDebugStrategy(t *testing.T) {
	p := newProvider(t, Options{})

	s := p.Strategy(classify.IntentDebug)
	if s.BudgetRatios != (BudgetRatios{Diff: 0.5, LSP: 0.3, Search: 0.2}) {
		t.Errorf("ratios = %+v", s.BudgetRatios)
	}
	if s.WeightModifiers.Diff == nil || *s.WeightModifiers.Diff != 150 {
		t.Errorf("diff modifier = %v, want 150", s.WeightModifiers.Diff)
	}
	if s.WeightModifiers.StackFrame == nil || *s.WeightModifiers.StackFrame != 120 {
		t.Errorf("stackFrame modifier = %v, want 120", s.WeightModifiers.StackFrame)
	}
	if len(s.ProviderPriority) != 3 || s.ProviderPriority[0] != evidence.TypeDiff {
		t.Errorf("priority = %v", s.ProviderPriority)
	}
	if len(s.AdditionalContext) == 0 {
		t.Error("debug should request additional context")
	}
}

func TestDefaultUnknownStrategy(t *testing.T) {
	p := newProvider(t, Options{})

	s := p.Strategy(classify.IntentUnknown)
	if s.AdditionalContext != nil {
		t.Errorf("unknown additionalContext = %v, want none", s.AdditionalContext)
	}
	if s.WeightModifiers != (WeightModifiers{}) {
		t.Errorf("unknown modifiers = %+v, want none", s.WeightModifiers)
	}
}

func TestApplyWeightModifiers(t *testing.T) {
	p := newProvider(t, Options{})
	base := RerankerWeights{
		Diff:            100,
		StackFrame:      80,
		Definition:      90,
		Reference:       70,
		Keyword:         60,
		WorkingSet:      75,
		StackDepthDecay: 0.1,
	}

	got := p.ApplyWeightModifiers(base, classify.IntentDebug)

	if got.Diff != 150 {
		t.Errorf("Diff = %v, want 150", got.Diff)
	}
	if got.StackFrame != 120 {
		t.Errorf("StackFrame = %v, want 120", got.StackFrame)
	}
	// Fields the debug modifiers do not name keep their base values.
	rest := got
	rest.Diff, rest.StackFrame = base.Diff, base.StackFrame
	if rest != base {
		t.Errorf("unmodified fields changed: got %+v base %+v", got, base)
	}
	if base.Diff != 100 {
		t.Errorf("base mutated: %+v", base)
	}
}

func TestApplyWeightModifiersUnknownIntent(t *testing.T) {
	p := newProvider(t, Options{})
	base := RerankerWeights{Diff: 100, StackFrame: 80}

	if got := p.ApplyWeightModifiers(base, classify.IntentUnknown); got != base {
		t.Errorf("got %+v, want base passthrough %+v", got, base)
	}
}

func TestCustomPatchReplacesWholeFields(t *testing.T) {
	p := newProvider(t, Options{
		Custom: map[classify.Intent]Patch{
			classify.IntentDebug: {
				WeightModifiers: &WeightModifiers{Keyword: Float(200)},
			},
		},
	})

	s := p.Strategy(classify.IntentDebug)
	if s.WeightModifiers.Keyword == nil || *s.WeightModifiers.Keyword != 200 {
		t.Errorf("keyword modifier = %v, want 200", s.WeightModifiers.Keyword)
	}
	// The modifiers field is replaced as a whole, not merged entry-wise.
	if s.WeightModifiers.Diff != nil || s.WeightModifiers.StackFrame != nil {
		t.Errorf("default modifiers survived replacement: %+v", s.WeightModifiers)
	}
	// Unpatched fields keep their defaults.
	if s.BudgetRatios != (BudgetRatios{Diff: 0.5, LSP: 0.3, Search: 0.2}) {
		t.Errorf("ratios = %+v", s.BudgetRatios)
	}
}

func TestCustomPatchInvalidRatios(t *testing.T) {
	_, err := New(Options{
		Custom: map[classify.Intent]Patch{
			classify.IntentExplore: {
				BudgetRatios: &BudgetRatios{Diff: 0.5, LSP: 0.5, Search: 0.5},
			},
		},
	})
	if err == nil {
		t.Fatal("expected error for ratios summing to 1.5")
	}
	if !errors.HasCode(err, errors.ConfigError) {
		t.Errorf("error code = %v, want ConfigError", err)
	}
}

func TestCustomPatchUnknownIntent(t *testing.T) {
	_, err := New(Options{
		Custom: map[classify.Intent]Patch{
			classify.Intent("deploy"): {},
		},
	})
	if err == nil || !errors.HasCode(err, errors.ConfigError) {
		t.Fatalf("err = %v, want ConfigError", err)
	}
}

func TestFeedbackStats(t *testing.T) {
	p := newProvider(t, Options{})
	ctx := context.Background()

	if _, ok := p.FeedbackStats(classify.IntentDebug); ok {
		t.Fatal("expected no stats before any update")
	}

	for _, success := range []bool{true, true, false} {
		if err := p.Update(ctx, classify.IntentDebug, Feedback{Success: success}); err != nil {
			t.Fatalf("Update: %v", err)
		}
	}

	rec, ok := p.FeedbackStats(classify.IntentDebug)
	if !ok {
		t.Fatal("expected stats after updates")
	}
	if rec.SampleCount != 3 {
		t.Errorf("SampleCount = %d, want 3", rec.SampleCount)
	}
	if want := 2.0 / 3.0; rec.SuccessRate != want {
		t.Errorf("SuccessRate = %v, want %v", rec.SuccessRate, want)
	}

	// Other intents are unaffected.
	if _, ok := p.FeedbackStats(classify.IntentTest); ok {
		t.Error("test intent should have no stats")
	}
}

func TestUpdateAdjustsLiveStrategy(t *testing.T) {
	p := newProvider(t, Options{})
	ctx := context.Background()

	adj := &Patch{
		BudgetRatios: &BudgetRatios{Diff: 0.6, LSP: 0.25, Search: 0.15},
	}
	if err := p.Update(ctx, classify.IntentDebug, Feedback{Success: true, Adjustments: adj}); err != nil {
		t.Fatalf("Update: %v", err)
	}

	if got := p.BudgetRatios(classify.IntentDebug); got != *adj.BudgetRatios {
		t.Errorf("ratios = %+v, want %+v", got, *adj.BudgetRatios)
	}
	// Modifiers were not patched and keep the defaults.
	s := p.Strategy(classify.IntentDebug)
	if s.WeightModifiers.Diff == nil || *s.WeightModifiers.Diff != 150 {
		t.Errorf("diff modifier = %v, want 150", s.WeightModifiers.Diff)
	}
}

func TestUpdateRejectsInvalidAdjustment(t *testing.T) {
	p := newProvider(t, Options{})
	ctx := context.Background()

	err := p.Update(ctx, classify.IntentDebug, Feedback{
		Success:     true,
		Adjustments: &Patch{BudgetRatios: &BudgetRatios{Diff: 1, LSP: 1, Search: 1}},
	})
	if err == nil || !errors.HasCode(err, errors.InvalidInput) {
		t.Fatalf("err = %v, want InvalidInput", err)
	}

	// A rejected call leaves both the strategy and the tally untouched.
	if got := p.BudgetRatios(classify.IntentDebug); got != (BudgetRatios{Diff: 0.5, LSP: 0.3, Search: 0.2}) {
		t.Errorf("ratios changed: %+v", got)
	}
	if _, ok := p.FeedbackStats(classify.IntentDebug); ok {
		t.Error("rejected update should not count as a sample")
	}
}

func TestReset(t *testing.T) {
	p := newProvider(t, Options{})
	ctx := context.Background()

	adj := &Patch{BudgetRatios: &BudgetRatios{Diff: 0.8, LSP: 0.1, Search: 0.1}}
	if err := p.Update(ctx, classify.IntentReview, Feedback{Success: false, Adjustments: adj}); err != nil {
		t.Fatalf("Update: %v", err)
	}

	p.Reset()

	if got := p.BudgetRatios(classify.IntentReview); got != (BudgetRatios{Diff: 0.6, LSP: 0.2, Search: 0.2}) {
		t.Errorf("ratios after reset = %+v", got)
	}
	if _, ok := p.FeedbackStats(classify.IntentReview); ok {
		t.Error("stats should be cleared by reset")
	}
}

func TestStrategyReturnsDetachedCopy(t *testing.T) {
	p := newProvider(t, Options{})

	s := p.Strategy(classify.IntentDebug)
	s.ProviderPriority[0] = evidence.TypeSearch
	*s.WeightModifiers.Diff = 1

	fresh := p.Strategy(classify.IntentDebug)
	if fresh.ProviderPriority[0] != evidence.TypeDiff {
		t.Errorf("priority mutated through copy: %v", fresh.ProviderPriority)
	}
	if *fresh.WeightModifiers.Diff != 150 {
		t.Errorf("modifier mutated through copy: %v", *fresh.WeightModifiers.Diff)
	}
}

func TestStrategyFallsBackToUnknown(t *testing.T) {
	p := newProvider(t, Options{})

	got := p.Strategy(classify.Intent("deploy"))
	want := p.Strategy(classify.IntentUnknown)
	if got.BudgetRatios != want.BudgetRatios {
		t.Errorf("got %+v, want unknown fallback %+v", got.BudgetRatios, want.BudgetRatios)
	}
}

type recordingStore struct {
	intents   []string
	successes []bool
	err       error
}

func (s *recordingStore) RecordOutcome(_ context.Context, intent string, success bool) error {
	s.intents = append(s.intents, intent)
	s.successes = append(s.successes, success)
	return s.err
}

func TestUpdateWritesThroughToStore(t *testing.T) {
	store := &recordingStore{}
	p := newProvider(t, Options{Store: store})
	ctx := context.Background()

	if err := p.Update(ctx, classify.IntentImplement, Feedback{Success: true}); err != nil {
		t.Fatalf("Update: %v", err)
	}
	if err := p.Update(ctx, classify.IntentImplement, Feedback{Success: false}); err != nil {
		t.Fatalf("Update: %v", err)
	}

	if len(store.intents) != 2 || store.intents[0] != "implement" {
		t.Errorf("store intents = %v", store.intents)
	}
	if !store.successes[0] || store.successes[1] {
		t.Errorf("store successes = %v", store.successes)
	}
}

func TestUpdateToleratesStoreFailure(t *testing.T) {
	store := &recordingStore{err: fmt.Errorf("disk full")}
	p := newProvider(t, Options{Store: store})

	if err := p.Update(context.Background(), classify.IntentDebug, Feedback{Success: true}); err != nil {
		t.Fatalf("Update should not surface store errors, got %v", err)
	}
	if rec, ok := p.FeedbackStats(classify.IntentDebug); !ok || rec.SampleCount != 1 {
		t.Errorf("stats = %+v ok=%v, want one sample", rec, ok)
	}
}
