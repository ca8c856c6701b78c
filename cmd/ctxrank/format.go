package main

import (
	"encoding/json"
	"fmt"
	"sort"
	"strings"
)

// OutputFormat represents the output format type
type OutputFormat string

const (
	FormatJSON OutputFormat = "json"
	FormatText OutputFormat = "text"
)

// FormatResponse formats a response according to the specified format
func FormatResponse(resp interface{}, format OutputFormat) (string, error) {
	switch format {
	case FormatJSON:
		return formatJSON(resp)
	case FormatText:
		return formatText(resp)
	default:
		return "", fmt.Errorf("unsupported format: %s", format)
	}
}

// formatJSON formats the response as JSON
func formatJSON(resp interface{}) (string, error) {
	data, err := json.MarshalIndent(resp, "", "  ")
	if err != nil {
		return "", fmt.Errorf("failed to marshal JSON: %w", err)
	}
	return string(data), nil
}

// formatText formats the response as human-readable text
func formatText(resp interface{}) (string, error) {
	switch v := resp.(type) {
	case *RetrieveResponseCLI:
		return formatRetrieveText(v)
	case *ClassifyResponseCLI:
		return formatClassifyText(v)
	case *StrategyResponseCLI:
		return formatStrategyText(v)
	case *StrategyResetCLI:
		return formatStrategyResetText(v)
	case *FeedbackResponseCLI:
		return formatFeedbackText(v)
	case *FeedbackHistoryCLI:
		return formatFeedbackHistoryText(v)
	default:
		// For unknown types, fall back to JSON
		return formatJSON(resp)
	}
}

// formatRetrieveText formats a RetrieveResponseCLI as human-readable text
func formatRetrieveText(resp *RetrieveResponseCLI) (string, error) {
	var b strings.Builder

	b.WriteString(fmt.Sprintf("Context for: %s\n", resp.Task))
	b.WriteString(strings.Repeat("=", 60) + "\n\n")

	b.WriteString(fmt.Sprintf("Intent: %s (confidence %.2f)\n", resp.Intent, resp.Confidence))
	if resp.SecondaryIntent != "" {
		b.WriteString(fmt.Sprintf("Secondary: %s\n", resp.SecondaryIntent))
	}
	b.WriteString(fmt.Sprintf("Budget: %s\n", formatBudgetLine(resp.Strategy)))
	b.WriteString("\n")

	if len(resp.Contributions) > 0 {
		b.WriteString("Providers:\n")
		for _, c := range resp.Contributions {
			switch {
			case c.Skipped:
				b.WriteString(fmt.Sprintf("  - %s: skipped (unavailable)\n", c.Provider))
			case c.Error != "":
				b.WriteString(fmt.Sprintf("  ✗ %s: %s\n", c.Provider, c.Error))
			default:
				b.WriteString(fmt.Sprintf("  ✓ %s: %d items, %d tokens (budget %d), %dms\n",
					c.Provider, c.Count, c.Tokens, c.Budget, c.DurationMs))
			}
		}
		b.WriteString("\n")
	}

	if len(resp.Evidence) == 0 {
		b.WriteString("No evidence found.\n")
		return b.String(), nil
	}

	b.WriteString(fmt.Sprintf("Evidence (%d items, %d tokens):\n", len(resp.Evidence), resp.TotalTokens))
	for i, ev := range resp.Evidence {
		b.WriteString(fmt.Sprintf("%d. %s:%d-%d [%s] score %.1f, %d tokens\n",
			i+1, ev.Path, ev.StartLine, ev.EndLine, ev.Provider, ev.Score, ev.Tokens))
		if ev.Symbol != "" {
			b.WriteString(fmt.Sprintf("   Symbol: %s\n", ev.Symbol))
		}
		if len(ev.Signals) > 0 {
			b.WriteString(fmt.Sprintf("   Signals: %s\n", strings.Join(ev.Signals, ", ")))
		}
		if excerpt := firstLine(ev.Content); excerpt != "" {
			b.WriteString(fmt.Sprintf("   %s\n", excerpt))
		}
	}

	b.WriteString(fmt.Sprintf("\nCompleted in %dms\n", resp.DurationMs))

	return b.String(), nil
}

// formatClassifyText formats a ClassifyResponseCLI as human-readable text
func formatClassifyText(resp *ClassifyResponseCLI) (string, error) {
	var b strings.Builder

	b.WriteString(fmt.Sprintf("Task: %s\n", resp.Task))
	b.WriteString(strings.Repeat("=", 60) + "\n\n")

	b.WriteString(fmt.Sprintf("Intent:     %s\n", resp.Intent))
	b.WriteString(fmt.Sprintf("Confidence: %.2f\n", resp.Confidence))
	if resp.SecondaryIntent != "" {
		b.WriteString(fmt.Sprintf("Secondary:  %s\n", resp.SecondaryIntent))
	}
	if len(resp.Signals) > 0 {
		b.WriteString(fmt.Sprintf("Signals:    %s\n", strings.Join(resp.Signals, ", ")))
	}

	return b.String(), nil
}

// formatStrategyText formats a StrategyResponseCLI as human-readable text
func formatStrategyText(resp *StrategyResponseCLI) (string, error) {
	var b strings.Builder

	b.WriteString("Retrieval Strategies\n")
	b.WriteString(strings.Repeat("=", 60) + "\n\n")

	for _, s := range resp.Strategies {
		b.WriteString(fmt.Sprintf("%s:\n", s.Intent))
		b.WriteString(fmt.Sprintf("  Budget:   %s\n", formatBudgetLine(s)))
		b.WriteString(fmt.Sprintf("  Priority: %s\n", strings.Join(s.ProviderPriority, " > ")))
		if len(s.WeightModifiers) > 0 {
			keys := make([]string, 0, len(s.WeightModifiers))
			for k := range s.WeightModifiers {
				keys = append(keys, k)
			}
			sort.Strings(keys)
			mods := make([]string, 0, len(keys))
			for _, k := range keys {
				mods = append(mods, fmt.Sprintf("%s=%.0f%%", k, s.WeightModifiers[k]))
			}
			b.WriteString(fmt.Sprintf("  Boosts:   %s\n", strings.Join(mods, ", ")))
		}
		if len(s.AdditionalContext) > 0 {
			b.WriteString(fmt.Sprintf("  Context:  %s\n", strings.Join(s.AdditionalContext, ", ")))
		}
		b.WriteString("\n")
	}

	if len(resp.Providers) > 0 {
		b.WriteString("Providers:\n")
		for _, p := range resp.Providers {
			switch {
			case !p.Available:
				b.WriteString(fmt.Sprintf("  ✗ %s (%s): unavailable\n", p.Name, p.Type))
			case p.IndexStale != nil && *p.IndexStale:
				b.WriteString(fmt.Sprintf("  ✓ %s (%s): available, index behind HEAD\n", p.Name, p.Type))
			default:
				b.WriteString(fmt.Sprintf("  ✓ %s (%s): available\n", p.Name, p.Type))
			}
		}
		b.WriteString("\n")
	}

	if len(resp.Stats) > 0 {
		b.WriteString("Feedback:\n")
		for _, st := range resp.Stats {
			if st.SampleCount == 0 {
				b.WriteString(fmt.Sprintf("  %s: no feedback recorded\n", st.Intent))
				continue
			}
			b.WriteString(fmt.Sprintf("  %s: %d samples, %.0f%% success\n",
				st.Intent, st.SampleCount, st.SuccessRate*100))
		}
	}

	if len(resp.Cycles) > 0 {
		b.WriteString("\nRecent cycles:\n")
		for _, c := range resp.Cycles {
			b.WriteString(fmt.Sprintf("  %s  %s: %d items, %d tokens, %dms\n",
				c.RecordedAt, c.Intent, c.EvidenceCount, c.TokensUsed, c.DurationMs))
		}
	}

	return b.String(), nil
}

// formatStrategyResetText formats a StrategyResetCLI as human-readable text
func formatStrategyResetText(resp *StrategyResetCLI) (string, error) {
	if resp.ClearedOutcomes > 0 {
		return fmt.Sprintf("Strategies restored to defaults; cleared %d recorded outcomes\n", resp.ClearedOutcomes), nil
	}
	return "Strategies restored to defaults\n", nil
}

// formatFeedbackText formats a FeedbackResponseCLI as human-readable text
func formatFeedbackText(resp *FeedbackResponseCLI) (string, error) {
	var b strings.Builder

	outcome := "failure"
	if resp.Success {
		outcome = "success"
	}
	b.WriteString(fmt.Sprintf("Recorded %s for intent '%s'\n", outcome, resp.Intent))
	if resp.SampleCount > 0 {
		b.WriteString(fmt.Sprintf("History: %d samples, %.0f%% success\n",
			resp.SampleCount, resp.SuccessRate*100))
	}

	return b.String(), nil
}

// formatFeedbackHistoryText formats a FeedbackHistoryCLI as human-readable text
func formatFeedbackHistoryText(resp *FeedbackHistoryCLI) (string, error) {
	if len(resp.Outcomes) == 0 {
		return fmt.Sprintf("No outcomes recorded for intent '%s'\n", resp.Intent), nil
	}

	var b strings.Builder
	b.WriteString(fmt.Sprintf("Outcomes for intent '%s' (newest first):\n", resp.Intent))
	for _, o := range resp.Outcomes {
		mark := "✗ failure"
		if o.Success {
			mark = "✓ success"
		}
		b.WriteString(fmt.Sprintf("  %s  %s\n", o.RecordedAt, mark))
	}
	return b.String(), nil
}

// formatBudgetLine renders budget ratios in provider priority order.
func formatBudgetLine(s StrategyCLI) string {
	parts := make([]string, 0, len(s.ProviderPriority))
	for _, p := range s.ProviderPriority {
		parts = append(parts, fmt.Sprintf("%s %.0f%%", p, s.BudgetRatios[p]*100))
	}
	return strings.Join(parts, ", ")
}

// firstLine returns the first non-empty line of content, truncated for display.
func firstLine(content string) string {
	for _, line := range strings.Split(content, "\n") {
		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}
		if len(line) > 80 {
			line = line[:80] + "..."
		}
		return line
	}
	return ""
}
