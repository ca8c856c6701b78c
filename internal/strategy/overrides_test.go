package strategy

import (
	"os"
	"path/filepath"
	"testing"

	"ctxrank/internal/classify"
	"ctxrank/internal/errors"
	"ctxrank/internal/evidence"
)

func writeOverrides(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "strategy.toml")
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("write overrides: %v", err)
	}
	return path
}

func TestLoadPatches(t *testing.T) {
	path := writeOverrides(t, `
[debug]
provider_priority = ["search", "diff", "lsp"]
additional_context = ["error_logs"]

[debug.budget_ratios]
diff = 0.6
lsp = 0.2
search = 0.2

[debug.weight_modifiers]
diff = 170.0
stack_depth_decay = 0.2

[review.weight_modifiers]
working_set = 90.0
`)

	patches, err := LoadPatches(path)
	if err != nil {
		t.Fatalf("LoadPatches: %v", err)
	}
	if len(patches) != 2 {
		t.Fatalf("got %d patches, want 2", len(patches))
	}

	debug := patches[classify.IntentDebug]
	if debug.BudgetRatios == nil || *debug.BudgetRatios != (BudgetRatios{Diff: 0.6, LSP: 0.2, Search: 0.2}) {
		t.Errorf("debug ratios = %+v", debug.BudgetRatios)
	}
	if m := debug.WeightModifiers; m == nil {
		t.Fatal("debug modifiers missing")
	} else {
		if m.Diff == nil || *m.Diff != 170 {
			t.Errorf("diff modifier = %v, want 170", m.Diff)
		}
		if m.StackDepthDecay == nil || *m.StackDepthDecay != 0.2 {
			t.Errorf("decay modifier = %v, want 0.2", m.StackDepthDecay)
		}
		if m.StackFrame != nil || m.Keyword != nil {
			t.Errorf("unexpected modifier fields set: %+v", m)
		}
	}
	wantPriority := []evidence.ProviderType{evidence.TypeSearch, evidence.TypeDiff, evidence.TypeLSP}
	if len(debug.ProviderPriority) != 3 {
		t.Fatalf("priority = %v", debug.ProviderPriority)
	}
	for i, pt := range wantPriority {
		if debug.ProviderPriority[i] != pt {
			t.Errorf("priority[%d] = %s, want %s", i, debug.ProviderPriority[i], pt)
		}
	}
	if len(debug.AdditionalContext) != 1 || debug.AdditionalContext[0] != "error_logs" {
		t.Errorf("additionalContext = %v", debug.AdditionalContext)
	}

	review := patches[classify.IntentReview]
	if review.BudgetRatios != nil || review.ProviderPriority != nil {
		t.Errorf("review patch set more than modifiers: %+v", review)
	}
	if review.WeightModifiers == nil || review.WeightModifiers.WorkingSet == nil || *review.WeightModifiers.WorkingSet != 90 {
		t.Errorf("review modifiers = %+v", review.WeightModifiers)
	}
}

func TestLoadPatchesIntoProvider(t *testing.T) {
	path := writeOverrides(t, `
[debug.budget_ratios]
diff = 0.6
lsp = 0.2
search = 0.2

[debug.weight_modifiers]
diff = 170.0
`)

	patches, err := LoadPatches(path)
	if err != nil {
		t.Fatalf("LoadPatches: %v", err)
	}
	p := newProvider(t, Options{Custom: patches})

	if got := p.BudgetRatios(classify.IntentDebug); got != (BudgetRatios{Diff: 0.6, LSP: 0.2, Search: 0.2}) {
		t.Errorf("ratios = %+v", got)
	}

	weights := p.ApplyWeightModifiers(RerankerWeights{Diff: 100, StackFrame: 80}, classify.IntentDebug)
	if weights.Diff != 170 {
		t.Errorf("Diff = %v, want 170", weights.Diff)
	}
	// The file's modifier table replaces the default one wholesale, so the
	// default stackFrame override no longer applies.
	if weights.StackFrame != 80 {
		t.Errorf("StackFrame = %v, want base 80", weights.StackFrame)
	}
}

func TestLoadPatchesUnknownIntent(t *testing.T) {
	path := writeOverrides(t, `
[deploy]
additional_context = ["x"]
`)
	_, err := LoadPatches(path)
	if err == nil || !errors.HasCode(err, errors.ConfigError) {
		t.Fatalf("err = %v, want ConfigError", err)
	}
}

func TestLoadPatchesUnknownKey(t *testing.T) {
	path := writeOverrides(t, `
[debug]
budget = 5
`)
	_, err := LoadPatches(path)
	if err == nil || !errors.HasCode(err, errors.ConfigError) {
		t.Fatalf("err = %v, want ConfigError", err)
	}
}

func TestLoadPatchesBadProvider(t *testing.T) {
	for _, priority := range []string{`["grep"]`, `["diff", "diff"]`} {
		path := writeOverrides(t, "[debug]\nprovider_priority = "+priority+"\n")
		_, err := LoadPatches(path)
		if err == nil || !errors.HasCode(err, errors.ConfigError) {
			t.Fatalf("priority %s: err = %v, want ConfigError", priority, err)
		}
	}
}

func TestLoadPatchesInvalidRatios(t *testing.T) {
	path := writeOverrides(t, `
[debug.budget_ratios]
diff = 0.9
lsp = 0.9
search = 0.9
`)
	_, err := LoadPatches(path)
	if err == nil || !errors.HasCode(err, errors.ConfigError) {
		t.Fatalf("err = %v, want ConfigError", err)
	}
}

func TestLoadPatchesMissingFile(t *testing.T) {
	_, err := LoadPatches(filepath.Join(t.TempDir(), "absent.toml"))
	if err == nil || !errors.HasCode(err, errors.ConfigError) {
		t.Fatalf("err = %v, want ConfigError", err)
	}
}
