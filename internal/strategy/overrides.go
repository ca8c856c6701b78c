package strategy

import (
	"bytes"
	"fmt"
	"os"

	"github.com/pelletier/go-toml/v2"

	"ctxrank/internal/classify"
	"ctxrank/internal/errors"
	"ctxrank/internal/evidence"
)

// DefaultOverridePath is where an operator drops strategy overrides.
const DefaultOverridePath = ".ctxrank/strategy.toml"

// patchDoc is the on-disk shape of one intent override. Keys mirror the
// Patch fields; absent tables leave the default field untouched.
type patchDoc struct {
	BudgetRatios      *BudgetRatios    `toml:"budget_ratios"`
	WeightModifiers   *WeightModifiers `toml:"weight_modifiers"`
	ProviderPriority  []string         `toml:"provider_priority"`
	AdditionalContext []string         `toml:"additional_context"`
}

// LoadPatches reads per-intent strategy overrides from a TOML file, one
// top-level table per intent:
//
//	[debug]
//	provider_priority = ["diff", "search", "lsp"]
//	[debug.budget_ratios]
//	diff = 0.6
//	lsp = 0.2
//	search = 0.2
//
// The result feeds Options.Custom. Unknown intents, unknown keys, and
// invalid provider names are configuration errors.
func LoadPatches(path string) (map[classify.Intent]Patch, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, errors.NewCtxError(
			errors.ConfigError,
			fmt.Sprintf("cannot read strategy overrides at %s", path),
			err,
			nil,
		)
	}

	var doc map[string]patchDoc
	dec := toml.NewDecoder(bytes.NewReader(data))
	dec.DisallowUnknownFields()
	if err := dec.Decode(&doc); err != nil {
		return nil, errors.NewCtxError(
			errors.ConfigError,
			fmt.Sprintf("invalid strategy overrides in %s", path),
			err,
			nil,
		)
	}

	known := make(map[string]classify.Intent)
	for _, intent := range classify.Intents() {
		known[string(intent)] = intent
	}
	known[string(classify.IntentUnknown)] = classify.IntentUnknown

	patches := make(map[classify.Intent]Patch, len(doc))
	for name, pd := range doc {
		intent, ok := known[name]
		if !ok {
			return nil, errors.NewCtxError(
				errors.ConfigError,
				fmt.Sprintf("unknown intent %q in %s", name, path),
				nil,
				nil,
			)
		}

		patch := Patch{
			BudgetRatios:      pd.BudgetRatios,
			WeightModifiers:   pd.WeightModifiers,
			AdditionalContext: pd.AdditionalContext,
		}
		if pd.BudgetRatios != nil && !pd.BudgetRatios.Valid() {
			return nil, errors.NewCtxError(
				errors.ConfigError,
				fmt.Sprintf("budget ratios for %q in %s sum to %.2f, want 1 within %.1f",
					name, path, pd.BudgetRatios.Sum(), RatioTolerance),
				nil,
				nil,
			)
		}
		if pd.ProviderPriority != nil {
			priority, err := parsePriority(pd.ProviderPriority)
			if err != nil {
				return nil, errors.NewCtxError(
					errors.ConfigError,
					fmt.Sprintf("invalid provider_priority for %q in %s", name, path),
					err,
					nil,
				)
			}
			patch.ProviderPriority = priority
		}
		patches[intent] = patch
	}
	return patches, nil
}

func parsePriority(names []string) ([]evidence.ProviderType, error) {
	out := make([]evidence.ProviderType, 0, len(names))
	seen := make(map[evidence.ProviderType]bool)
	for _, name := range names {
		var pt evidence.ProviderType
		switch name {
		case string(evidence.TypeDiff):
			pt = evidence.TypeDiff
		case string(evidence.TypeLSP):
			pt = evidence.TypeLSP
		case string(evidence.TypeSearch):
			pt = evidence.TypeSearch
		default:
			return nil, fmt.Errorf("unknown provider type %q", name)
		}
		if seen[pt] {
			return nil, fmt.Errorf("duplicate provider type %q", name)
		}
		seen[pt] = true
		out = append(out, pt)
	}
	return out, nil
}
