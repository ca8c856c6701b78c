package strategy

import (
	"ctxrank/internal/classify"
	"ctxrank/internal/evidence"
)

// DefaultWeights is the baseline the orchestrator feeds through
// ApplyWeightModifiers before scoring.
var DefaultWeights = RerankerWeights{
	Diff:            100,
	StackFrame:      80,
	Definition:      90,
	Reference:       70,
	Keyword:         60,
	WorkingSet:      75,
	StackDepthDecay: 0.1,
}

// defaultStrategies returns a fresh strategy table. Every call allocates
// new slices and modifier pointers so callers can mutate their copy freely.
func defaultStrategies() map[classify.Intent]IntentStrategy {
	return map[classify.Intent]IntentStrategy{
		classify.IntentDebug: {
			BudgetRatios: BudgetRatios{Diff: 0.5, LSP: 0.3, Search: 0.2},
			WeightModifiers: WeightModifiers{
				Diff:       Float(150),
				StackFrame: Float(120),
			},
			ProviderPriority: []evidence.ProviderType{
				evidence.TypeDiff, evidence.TypeLSP, evidence.TypeSearch,
			},
			AdditionalContext: []string{"error_logs", "recent_changes"},
		},
		classify.IntentImplement: {
			BudgetRatios: BudgetRatios{Diff: 0.25, LSP: 0.45, Search: 0.3},
			WeightModifiers: WeightModifiers{
				Definition: Float(120),
			},
			ProviderPriority: []evidence.ProviderType{
				evidence.TypeLSP, evidence.TypeDiff, evidence.TypeSearch,
			},
			AdditionalContext: []string{"related_definitions"},
		},
		classify.IntentRefactor: {
			BudgetRatios: BudgetRatios{Diff: 0.2, LSP: 0.5, Search: 0.3},
			WeightModifiers: WeightModifiers{
				Reference: Float(120),
			},
			ProviderPriority: []evidence.ProviderType{
				evidence.TypeLSP, evidence.TypeDiff, evidence.TypeSearch,
			},
			AdditionalContext: []string{"usage_sites"},
		},
		classify.IntentExplore: {
			BudgetRatios: BudgetRatios{Diff: 0.15, LSP: 0.35, Search: 0.5},
			WeightModifiers: WeightModifiers{
				Keyword: Float(110),
			},
			ProviderPriority: []evidence.ProviderType{
				evidence.TypeSearch, evidence.TypeLSP, evidence.TypeDiff,
			},
			AdditionalContext: []string{"project_layout"},
		},
		classify.IntentTest: {
			BudgetRatios: BudgetRatios{Diff: 0.4, LSP: 0.3, Search: 0.3},
			WeightModifiers: WeightModifiers{
				WorkingSet: Float(110),
			},
			ProviderPriority: []evidence.ProviderType{
				evidence.TypeDiff, evidence.TypeSearch, evidence.TypeLSP,
			},
			AdditionalContext: []string{"test_conventions"},
		},
		classify.IntentReview: {
			BudgetRatios: BudgetRatios{Diff: 0.6, LSP: 0.2, Search: 0.2},
			WeightModifiers: WeightModifiers{
				Diff: Float(130),
			},
			ProviderPriority: []evidence.ProviderType{
				evidence.TypeDiff, evidence.TypeLSP, evidence.TypeSearch,
			},
			AdditionalContext: []string{"commit_history"},
		},
		classify.IntentUnknown: {
			BudgetRatios: BudgetRatios{Diff: 0.34, LSP: 0.33, Search: 0.33},
			ProviderPriority: []evidence.ProviderType{
				evidence.TypeDiff, evidence.TypeLSP, evidence.TypeSearch,
			},
		},
	}
}
