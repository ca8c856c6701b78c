package main

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"

	"ctxrank/internal/classify"
	"ctxrank/internal/evidence"
	"ctxrank/internal/storage"
	"ctxrank/internal/strategy"
)

// recentCycleLimit caps the cycle history shown by --stats.
const recentCycleLimit = 10

var (
	strategyStats  bool
	strategyReset  bool
	strategyFormat string
)

var strategyCmd = &cobra.Command{
	Use:   "strategy [intent]",
	Short: "Show retrieval strategies",
	Long: `Show the retrieval strategy for one intent, or for all intents when no
argument is given. Strategies reflect any file overrides and feedback-driven
adjustments made in this process.

--reset restores the construction-time strategies and deletes the recorded
outcome history.

Examples:
  ctxrank strategy
  ctxrank strategy debug
  ctxrank strategy debug --stats
  ctxrank strategy --reset
  ctxrank strategy --format json`,
	Args: cobra.MaximumNArgs(1),
	Run:  runStrategy,
}

func init() {
	strategyCmd.Flags().BoolVar(&strategyStats, "stats", false, "Include provider status, feedback statistics, and recent cycles")
	strategyCmd.Flags().BoolVar(&strategyReset, "reset", false, "Restore default strategies and clear recorded outcomes")
	strategyCmd.Flags().StringVar(&strategyFormat, "format", "text", "Output format (json, text)")
	rootCmd.AddCommand(strategyCmd)
}

func runStrategy(cmd *cobra.Command, args []string) {
	logger := newLogger(strategyFormat)

	repoRoot := mustGetRepoRoot()
	a := mustGetApp(repoRoot, logger)
	ctx := newContext()

	if strategyReset {
		runStrategyReset(ctx, a)
		return
	}

	var intents []classify.Intent
	if len(args) == 1 {
		intent, ok := parseIntent(args[0])
		if !ok {
			fmt.Fprintf(os.Stderr, "Error: unknown intent %q (valid: %s)\n", args[0], intentNames())
			os.Exit(1)
		}
		intents = []classify.Intent{intent}
	} else {
		intents = append(classify.Intents(), classify.IntentUnknown)
	}

	resp := &StrategyResponseCLI{}
	for _, intent := range intents {
		resp.Strategies = append(resp.Strategies, convertStrategy(string(intent), a.strategies.Strategy(intent)))
	}

	if strategyStats {
		resp.Providers = providerStatus(ctx, a)

		recorded := make(map[string]storage.OutcomeStats)
		if a.feedback != nil {
			all, err := a.feedback.AllStats(ctx)
			if err != nil {
				fmt.Fprintf(os.Stderr, "Error reading feedback stats: %v\n", err)
				os.Exit(1)
			}
			for _, s := range all {
				recorded[s.Intent] = s
			}
		}

		for _, intent := range intents {
			st := FeedbackStatsCLI{Intent: string(intent)}
			if a.feedback != nil {
				rec := recorded[string(intent)]
				st.SampleCount = int(rec.SampleCount)
				st.SuccessRate = rec.SuccessRate()
			} else if rec, ok := a.strategies.FeedbackStats(intent); ok {
				st.SampleCount = rec.SampleCount
				st.SuccessRate = rec.SuccessRate
			}
			resp.Stats = append(resp.Stats, st)
		}

		if a.metrics != nil {
			cycles, err := a.metrics.RecentCycles(ctx, recentCycleLimit)
			if err != nil {
				fmt.Fprintf(os.Stderr, "Error reading cycle history: %v\n", err)
				os.Exit(1)
			}
			for _, c := range cycles {
				resp.Cycles = append(resp.Cycles, CycleCLI{
					Intent:        c.Intent,
					EvidenceCount: c.EvidenceCount,
					TokensUsed:    c.TokensUsed,
					DurationMs:    c.DurationMs,
					RecordedAt:    c.RecordedAt.Format(time.RFC3339),
				})
			}
		}
	}

	output, err := FormatResponse(resp, OutputFormat(strategyFormat))
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error formatting output: %v\n", err)
		os.Exit(1)
	}

	fmt.Println(output)
}

// runStrategyReset restores the construction-time strategies and clears
// the persisted outcome history.
func runStrategyReset(ctx context.Context, a *app) {
	a.strategies.Reset()

	cleared := int64(0)
	if a.feedback != nil {
		n, err := a.feedback.Clear(ctx)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error clearing outcome history: %v\n", err)
			os.Exit(1)
		}
		cleared = n
	}

	resp := &StrategyResetCLI{Reset: true, ClearedOutcomes: cleared}
	output, err := FormatResponse(resp, OutputFormat(strategyFormat))
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error formatting output: %v\n", err)
		os.Exit(1)
	}
	fmt.Println(output)
}

// providerStatus probes each registered provider. The SCIP index is also
// checked against HEAD when both resolve.
func providerStatus(ctx context.Context, a *app) []ProviderStatusCLI {
	head := ""
	if h, err := a.git.Head(ctx); err == nil {
		head = h
	}

	var out []ProviderStatusCLI
	for _, p := range a.orchestrator.Providers() {
		st := ProviderStatusCLI{
			Name:      p.Name(),
			Type:      string(p.Type()),
			Available: p.IsAvailable(),
		}
		if a.scip != nil && p.Type() == evidence.TypeLSP && st.Available && head != "" {
			stale := a.scip.Stale(head)
			st.IndexStale = &stale
		}
		out = append(out, st)
	}
	return out
}

// StrategyResponseCLI contains strategies and optional stats for CLI output
type StrategyResponseCLI struct {
	Strategies []StrategyCLI       `json:"strategies"`
	Providers  []ProviderStatusCLI `json:"providers,omitempty"`
	Stats      []FeedbackStatsCLI  `json:"stats,omitempty"`
	Cycles     []CycleCLI          `json:"recentCycles,omitempty"`
}

// ProviderStatusCLI reports one provider's availability
type ProviderStatusCLI struct {
	Name      string `json:"name"`
	Type      string `json:"type"`
	Available bool   `json:"available"`

	// IndexStale is set for the SCIP provider when HEAD is known: true
	// means the index predates the current commit.
	IndexStale *bool `json:"indexStale,omitempty"`
}

// CycleCLI is one recorded retrieval cycle
type CycleCLI struct {
	Intent        string `json:"intent"`
	EvidenceCount int    `json:"evidenceCount"`
	TokensUsed    int    `json:"tokensUsed"`
	DurationMs    int64  `json:"durationMs"`
	RecordedAt    string `json:"recordedAt"`
}

// StrategyResetCLI confirms a strategy reset
type StrategyResetCLI struct {
	Reset           bool  `json:"reset"`
	ClearedOutcomes int64 `json:"clearedOutcomes"`
}

// StrategyCLI represents one intent strategy
type StrategyCLI struct {
	Intent            string             `json:"intent"`
	BudgetRatios      map[string]float64 `json:"budgetRatios"`
	WeightModifiers   map[string]float64 `json:"weightModifiers,omitempty"`
	ProviderPriority  []string           `json:"providerPriority"`
	AdditionalContext []string           `json:"additionalContext,omitempty"`
}

// FeedbackStatsCLI is the recorded outcome tally for one intent
type FeedbackStatsCLI struct {
	Intent      string  `json:"intent"`
	SampleCount int     `json:"sampleCount"`
	SuccessRate float64 `json:"successRate"`
}

func convertStrategy(intent string, s strategy.IntentStrategy) StrategyCLI {
	priority := make([]string, 0, len(s.ProviderPriority))
	for _, p := range s.ProviderPriority {
		priority = append(priority, string(p))
	}

	mods := make(map[string]float64)
	for name, v := range map[string]*float64{
		"diff":            s.WeightModifiers.Diff,
		"stackFrame":      s.WeightModifiers.StackFrame,
		"definition":      s.WeightModifiers.Definition,
		"reference":       s.WeightModifiers.Reference,
		"keyword":         s.WeightModifiers.Keyword,
		"workingSet":      s.WeightModifiers.WorkingSet,
		"stackDepthDecay": s.WeightModifiers.StackDepthDecay,
	} {
		if v != nil {
			mods[name] = *v
		}
	}

	return StrategyCLI{
		Intent: intent,
		BudgetRatios: map[string]float64{
			"diff":   s.BudgetRatios.Diff,
			"lsp":    s.BudgetRatios.LSP,
			"search": s.BudgetRatios.Search,
		},
		WeightModifiers:   mods,
		ProviderPriority:  priority,
		AdditionalContext: s.AdditionalContext,
	}
}

// parseIntent resolves an intent name, including "unknown".
func parseIntent(name string) (classify.Intent, bool) {
	for _, intent := range classify.Intents() {
		if string(intent) == name {
			return intent, true
		}
	}
	if name == string(classify.IntentUnknown) {
		return classify.IntentUnknown, true
	}
	return "", false
}

func intentNames() string {
	names := ""
	for i, intent := range append(classify.Intents(), classify.IntentUnknown) {
		if i > 0 {
			names += ", "
		}
		names += string(intent)
	}
	return names
}
