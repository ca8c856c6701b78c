package main

import (
	"strings"
	"testing"
)

func TestFormatResponse_JSON(t *testing.T) {
	resp := map[string]interface{}{
		"key": "value",
		"num": 42,
	}

	result, err := FormatResponse(resp, FormatJSON)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if !strings.Contains(result, `"key": "value"`) {
		t.Error("JSON output missing expected key")
	}
	if !strings.Contains(result, `"num": 42`) {
		t.Error("JSON output missing expected number")
	}
}

func TestFormatResponse_UnsupportedFormat(t *testing.T) {
	resp := map[string]string{"key": "value"}

	_, err := FormatResponse(resp, "xml")
	if err == nil {
		t.Error("expected error for unsupported format")
	}
	if !strings.Contains(err.Error(), "unsupported format") {
		t.Errorf("error should mention unsupported format, got: %v", err)
	}
}

func TestFormatJSON(t *testing.T) {
	resp := struct {
		Name  string `json:"name"`
		Value int    `json:"value"`
	}{
		Name:  "test",
		Value: 123,
	}

	result, err := formatJSON(resp)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if !strings.Contains(result, `"name": "test"`) {
		t.Error("missing name field")
	}
	if !strings.Contains(result, `"value": 123`) {
		t.Error("missing value field")
	}
}

func TestFormatText_UnknownType(t *testing.T) {
	// Unknown types fall back to JSON
	resp := struct {
		Foo string `json:"foo"`
	}{Foo: "bar"}

	result, err := formatText(resp)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if !strings.Contains(result, `"foo": "bar"`) {
		t.Error("missing JSON content")
	}
}

func TestFormatRetrieveText(t *testing.T) {
	resp := &RetrieveResponseCLI{
		Task:       "fix the login bug",
		Intent:     "debug",
		Confidence: 0.72,
		Strategy: StrategyCLI{
			Intent:           "debug",
			BudgetRatios:     map[string]float64{"diff": 0.5, "lsp": 0.3, "search": 0.2},
			ProviderPriority: []string{"diff", "lsp", "search"},
		},
		Contributions: []ContributionCLI{
			{Provider: "diff", Name: "git-diff", Budget: 2000, Count: 3, Tokens: 420, DurationMs: 12},
			{Provider: "lsp", Name: "scip", Skipped: true},
			{Provider: "search", Name: "text-search", Error: "walk failed"},
		},
		Evidence: []EvidenceCLI{
			{
				Provider:  "diff",
				Path:      "internal/auth/login.go",
				StartLine: 10,
				EndLine:   30,
				Score:     75.0,
				Tokens:    220,
				Symbol:    "Login",
				Signals:   []string{"path:internal/auth/login.go"},
				Content:   "func Login(w http.ResponseWriter, r *http.Request) {\n\t...\n}",
			},
		},
		TotalTokens: 420,
		DurationMs:  45,
	}

	result, err := formatRetrieveText(resp)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if !strings.Contains(result, "Context for: fix the login bug") {
		t.Error("missing header")
	}
	if !strings.Contains(result, "Intent: debug (confidence 0.72)") {
		t.Error("missing intent line")
	}
	if !strings.Contains(result, "diff 50%, lsp 30%, search 20%") {
		t.Error("missing budget line")
	}
	if !strings.Contains(result, "✓ diff: 3 items, 420 tokens (budget 2000), 12ms") {
		t.Error("missing diff contribution")
	}
	if !strings.Contains(result, "- lsp: skipped (unavailable)") {
		t.Error("missing skipped provider")
	}
	if !strings.Contains(result, "✗ search: walk failed") {
		t.Error("missing failed provider")
	}
	if !strings.Contains(result, "1. internal/auth/login.go:10-30 [diff] score 75.0, 220 tokens") {
		t.Error("missing evidence line")
	}
	if !strings.Contains(result, "Symbol: Login") {
		t.Error("missing symbol line")
	}
	if !strings.Contains(result, "Signals: path:internal/auth/login.go") {
		t.Error("missing signals line")
	}
	if !strings.Contains(result, "func Login(w http.ResponseWriter") {
		t.Error("missing content excerpt")
	}
	if !strings.Contains(result, "Evidence (1 items, 420 tokens)") {
		t.Error("missing evidence summary")
	}
}

func TestFormatRetrieveText_NoEvidence(t *testing.T) {
	resp := &RetrieveResponseCLI{
		Task:       "anything",
		Intent:     "unknown",
		Confidence: 0,
		Strategy: StrategyCLI{
			BudgetRatios:     map[string]float64{"diff": 0.34, "lsp": 0.33, "search": 0.33},
			ProviderPriority: []string{"diff", "lsp", "search"},
		},
	}

	result, err := formatRetrieveText(resp)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if !strings.Contains(result, "No evidence found.") {
		t.Error("missing empty message")
	}
}

func TestFormatClassifyText(t *testing.T) {
	resp := &ClassifyResponseCLI{
		Task:            "fix the crash in parser",
		Intent:          "debug",
		Confidence:      0.8,
		SecondaryIntent: "test",
		Signals:         []string{"fix", "crash"},
	}

	result, err := formatClassifyText(resp)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if !strings.Contains(result, "Task: fix the crash in parser") {
		t.Error("missing task")
	}
	if !strings.Contains(result, "Intent:     debug") {
		t.Error("missing intent")
	}
	if !strings.Contains(result, "Confidence: 0.80") {
		t.Error("missing confidence")
	}
	if !strings.Contains(result, "Secondary:  test") {
		t.Error("missing secondary intent")
	}
	if !strings.Contains(result, "Signals:    fix, crash") {
		t.Error("missing signals")
	}
}

func TestFormatClassifyText_MinimalFields(t *testing.T) {
	resp := &ClassifyResponseCLI{
		Task:       "hello",
		Intent:     "unknown",
		Confidence: 0,
	}

	result, err := formatClassifyText(resp)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if strings.Contains(result, "Secondary:") {
		t.Error("should not show secondary when empty")
	}
	if strings.Contains(result, "Signals:") {
		t.Error("should not show signals when empty")
	}
}

func TestFormatStrategyText(t *testing.T) {
	stale := true
	resp := &StrategyResponseCLI{
		Strategies: []StrategyCLI{
			{
				Intent:            "debug",
				BudgetRatios:      map[string]float64{"diff": 0.5, "lsp": 0.3, "search": 0.2},
				WeightModifiers:   map[string]float64{"diff": 150, "stackFrame": 120},
				ProviderPriority:  []string{"diff", "lsp", "search"},
				AdditionalContext: []string{"error_logs", "recent_changes"},
			},
		},
		Providers: []ProviderStatusCLI{
			{Name: "git-diff", Type: "diff", Available: true},
			{Name: "scip-index", Type: "lsp", Available: true, IndexStale: &stale},
			{Name: "text-search", Type: "search", Available: false},
		},
		Stats: []FeedbackStatsCLI{
			{Intent: "debug", SampleCount: 4, SuccessRate: 0.75},
			{Intent: "test", SampleCount: 0},
		},
		Cycles: []CycleCLI{
			{Intent: "debug", EvidenceCount: 12, TokensUsed: 3800, DurationMs: 420, RecordedAt: "2025-01-02T15:04:05Z"},
		},
	}

	result, err := formatStrategyText(resp)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if !strings.Contains(result, "Retrieval Strategies") {
		t.Error("missing header")
	}
	if !strings.Contains(result, "debug:") {
		t.Error("missing intent heading")
	}
	if !strings.Contains(result, "Budget:   diff 50%, lsp 30%, search 20%") {
		t.Error("missing budget line")
	}
	if !strings.Contains(result, "Priority: diff > lsp > search") {
		t.Error("missing priority line")
	}
	if !strings.Contains(result, "Boosts:   diff=150%, stackFrame=120%") {
		t.Error("missing boosts line")
	}
	if !strings.Contains(result, "Context:  error_logs, recent_changes") {
		t.Error("missing context line")
	}
	if !strings.Contains(result, "✓ git-diff (diff): available") {
		t.Error("missing available provider line")
	}
	if !strings.Contains(result, "✓ scip-index (lsp): available, index behind HEAD") {
		t.Error("missing stale index line")
	}
	if !strings.Contains(result, "✗ text-search (search): unavailable") {
		t.Error("missing unavailable provider line")
	}
	if !strings.Contains(result, "debug: 4 samples, 75% success") {
		t.Error("missing stats line")
	}
	if !strings.Contains(result, "test: no feedback recorded") {
		t.Error("missing no-data stats line")
	}
	if !strings.Contains(result, "2025-01-02T15:04:05Z  debug: 12 items, 3800 tokens, 420ms") {
		t.Error("missing cycle line")
	}
}

func TestFormatStrategyText_NoStats(t *testing.T) {
	resp := &StrategyResponseCLI{
		Strategies: []StrategyCLI{
			{
				Intent:           "explore",
				BudgetRatios:     map[string]float64{"diff": 0.2, "lsp": 0.3, "search": 0.5},
				ProviderPriority: []string{"search", "lsp", "diff"},
			},
		},
	}

	result, err := formatStrategyText(resp)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if strings.Contains(result, "Providers:") {
		t.Error("should not show providers without stats")
	}
	if strings.Contains(result, "Feedback:") {
		t.Error("should not show feedback without stats")
	}
	if strings.Contains(result, "Recent cycles:") {
		t.Error("should not show cycles without stats")
	}
}

func TestFormatStrategyResetText(t *testing.T) {
	resp := &StrategyResetCLI{Reset: true, ClearedOutcomes: 7}

	result, err := formatStrategyResetText(resp)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !strings.Contains(result, "Strategies restored to defaults; cleared 7 recorded outcomes") {
		t.Errorf("unexpected output: %q", result)
	}

	bare, err := formatStrategyResetText(&StrategyResetCLI{Reset: true})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if strings.Contains(bare, "cleared") {
		t.Errorf("should not mention outcomes when none were cleared: %q", bare)
	}
}

func TestFormatFeedbackHistoryText(t *testing.T) {
	resp := &FeedbackHistoryCLI{
		Intent: "debug",
		Outcomes: []OutcomeCLI{
			{Success: true, RecordedAt: "2025-01-02T15:04:05Z"},
			{Success: false, RecordedAt: "2025-01-01T09:00:00Z"},
		},
	}

	result, err := formatFeedbackHistoryText(resp)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !strings.Contains(result, "Outcomes for intent 'debug' (newest first):") {
		t.Error("missing header")
	}
	if !strings.Contains(result, "2025-01-02T15:04:05Z  ✓ success") {
		t.Error("missing success row")
	}
	if !strings.Contains(result, "2025-01-01T09:00:00Z  ✗ failure") {
		t.Error("missing failure row")
	}

	empty, err := formatFeedbackHistoryText(&FeedbackHistoryCLI{Intent: "review"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !strings.Contains(empty, "No outcomes recorded for intent 'review'") {
		t.Errorf("unexpected empty output: %q", empty)
	}
}

func TestFormatFeedbackText(t *testing.T) {
	resp := &FeedbackResponseCLI{
		Intent:      "debug",
		Success:     true,
		SampleCount: 3,
		SuccessRate: 0.67,
	}

	result, err := formatFeedbackText(resp)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if !strings.Contains(result, "Recorded success for intent 'debug'") {
		t.Error("missing confirmation")
	}
	if !strings.Contains(result, "History: 3 samples, 67% success") {
		t.Error("missing history line")
	}
}

func TestFormatFeedbackText_Failure(t *testing.T) {
	resp := &FeedbackResponseCLI{
		Intent:  "refactor",
		Success: false,
	}

	result, err := formatFeedbackText(resp)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if !strings.Contains(result, "Recorded failure for intent 'refactor'") {
		t.Error("missing confirmation")
	}
	if strings.Contains(result, "History:") {
		t.Error("should not show history without samples")
	}
}

func TestFormatBudgetLine(t *testing.T) {
	s := StrategyCLI{
		BudgetRatios:     map[string]float64{"diff": 0.25, "lsp": 0.45, "search": 0.3},
		ProviderPriority: []string{"lsp", "diff", "search"},
	}

	got := formatBudgetLine(s)
	want := "lsp 45%, diff 25%, search 30%"
	if got != want {
		t.Errorf("formatBudgetLine() = %q, want %q", got, want)
	}
}

func TestFirstLine(t *testing.T) {
	tests := []struct {
		name    string
		content string
		want    string
	}{
		{"single line", "hello world", "hello world"},
		{"multi line", "first\nsecond", "first"},
		{"leading blank lines", "\n\n  \nactual", "actual"},
		{"trims whitespace", "  padded  \nnext", "padded"},
		{"empty", "", ""},
		{"only whitespace", "  \n\t\n", ""},
		{"long line truncated", strings.Repeat("x", 100), strings.Repeat("x", 80) + "..."},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := firstLine(tt.content)
			if got != tt.want {
				t.Errorf("firstLine(%q) = %q, want %q", tt.content, got, tt.want)
			}
		})
	}
}
