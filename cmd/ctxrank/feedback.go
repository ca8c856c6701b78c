package main

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"

	"ctxrank/internal/classify"
	"ctxrank/internal/strategy"
)

// feedbackHistoryLimit caps the outcome listing shown by --history.
const feedbackHistoryLimit = 20

var (
	feedbackSuccess bool
	feedbackFailure bool
	feedbackHistory bool
	feedbackFormat  string
)

var feedbackCmd = &cobra.Command{
	Use:   "feedback <intent>",
	Short: "Record a task outcome for an intent",
	Long: `Record whether a task with the given intent succeeded. Outcomes feed the
per-intent success tally which future strategy tuning reads.

Exactly one of --success or --failure is required. With --history the
command lists the recorded outcomes for the intent instead.

Examples:
  ctxrank feedback debug --success
  ctxrank feedback refactor --failure
  ctxrank feedback debug --history`,
	Args: cobra.ExactArgs(1),
	Run:  runFeedback,
}

func init() {
	feedbackCmd.Flags().BoolVar(&feedbackSuccess, "success", false, "The task outcome was successful")
	feedbackCmd.Flags().BoolVar(&feedbackFailure, "failure", false, "The task outcome was unsuccessful")
	feedbackCmd.Flags().BoolVar(&feedbackHistory, "history", false, "List recorded outcomes instead of recording one")
	feedbackCmd.Flags().StringVar(&feedbackFormat, "format", "text", "Output format (json, text)")
	rootCmd.AddCommand(feedbackCmd)
}

func runFeedback(cmd *cobra.Command, args []string) {
	logger := newLogger(feedbackFormat)

	if feedbackHistory && (feedbackSuccess || feedbackFailure) {
		fmt.Fprintln(os.Stderr, "Error: --history cannot be combined with --success or --failure")
		os.Exit(1)
	}
	if !feedbackHistory && feedbackSuccess == feedbackFailure {
		fmt.Fprintln(os.Stderr, "Error: exactly one of --success or --failure is required")
		os.Exit(1)
	}

	intent, ok := parseIntent(args[0])
	if !ok {
		fmt.Fprintf(os.Stderr, "Error: unknown intent %q (valid: %s)\n", args[0], intentNames())
		os.Exit(1)
	}

	repoRoot := mustGetRepoRoot()
	a := mustGetApp(repoRoot, logger)
	ctx := newContext()

	if feedbackHistory {
		runFeedbackHistory(ctx, a, intent)
		return
	}

	if err := a.orchestrator.ReportOutcome(ctx, intent, strategy.Feedback{Success: feedbackSuccess}); err != nil {
		fmt.Fprintf(os.Stderr, "Error recording feedback: %v\n", err)
		os.Exit(1)
	}

	cliResponse := &FeedbackResponseCLI{
		Intent:  string(intent),
		Success: feedbackSuccess,
	}
	if a.feedback != nil {
		rec, err := a.feedback.Stats(ctx, string(intent))
		if err == nil {
			cliResponse.SampleCount = int(rec.SampleCount)
			cliResponse.SuccessRate = rec.SuccessRate()
		}
	} else if rec, ok := a.strategies.FeedbackStats(intent); ok {
		cliResponse.SampleCount = rec.SampleCount
		cliResponse.SuccessRate = rec.SuccessRate
	}

	output, err := FormatResponse(cliResponse, OutputFormat(feedbackFormat))
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error formatting output: %v\n", err)
		os.Exit(1)
	}

	fmt.Println(output)
}

// runFeedbackHistory lists the recorded outcomes for an intent, newest
// first. Requires the outcome store.
func runFeedbackHistory(ctx context.Context, a *app, intent classify.Intent) {
	if a.feedback == nil {
		fmt.Fprintln(os.Stderr, "Error: outcome history requires storage (set storage.enabled)")
		os.Exit(1)
	}

	records, err := a.feedback.History(ctx, string(intent), feedbackHistoryLimit)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error reading outcome history: %v\n", err)
		os.Exit(1)
	}

	resp := &FeedbackHistoryCLI{Intent: string(intent)}
	for _, r := range records {
		resp.Outcomes = append(resp.Outcomes, OutcomeCLI{
			Success:    r.Success,
			RecordedAt: r.RecordedAt.Format(time.RFC3339),
		})
	}

	output, err := FormatResponse(resp, OutputFormat(feedbackFormat))
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error formatting output: %v\n", err)
		os.Exit(1)
	}
	fmt.Println(output)
}

// FeedbackResponseCLI contains a recorded outcome for CLI output
type FeedbackResponseCLI struct {
	Intent      string  `json:"intent"`
	Success     bool    `json:"success"`
	SampleCount int     `json:"sampleCount,omitempty"`
	SuccessRate float64 `json:"successRate,omitempty"`
}

// FeedbackHistoryCLI lists recorded outcomes for one intent
type FeedbackHistoryCLI struct {
	Intent   string       `json:"intent"`
	Outcomes []OutcomeCLI `json:"outcomes"`
}

// OutcomeCLI is one recorded outcome
type OutcomeCLI struct {
	Success    bool   `json:"success"`
	RecordedAt string `json:"recordedAt"`
}
