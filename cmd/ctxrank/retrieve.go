package main

import (
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"ctxrank/internal/logging"
	"ctxrank/internal/retrieval"
	"ctxrank/internal/signal"
)

var (
	retrieveTask        string
	retrieveBudget      int
	retrieveSnapshot    string
	retrieveContextFile string
	retrieveFormat      string
)

var retrieveCmd = &cobra.Command{
	Use:   "retrieve",
	Short: "Retrieve ranked context for a task",
	Long: `Run one retrieval cycle: classify the task, select a strategy, query the
evidence providers in parallel, and print the token-budgeted, scored evidence.

The diff provider compares the working tree against --snapshot, which defaults
to HEAD (uncommitted changes).

Examples:
  ctxrank retrieve --task "fix the TypeError in auth.ts"
  ctxrank retrieve --task "add pagination to the user list" --budget 2000
  ctxrank retrieve --task "refactor the session store" --snapshot HEAD~3
  ctxrank retrieve --task "why does the test fail" --context-file ctx.yaml --format json`,
	Run: runRetrieve,
}

func init() {
	retrieveCmd.Flags().StringVar(&retrieveTask, "task", "", "Task description to retrieve context for (required)")
	retrieveCmd.Flags().IntVar(&retrieveBudget, "budget", 0, "Total token budget (default: from config)")
	retrieveCmd.Flags().StringVar(&retrieveSnapshot, "snapshot", "HEAD", "Git reference the diff provider compares against")
	retrieveCmd.Flags().StringVar(&retrieveContextFile, "context-file", "", "YAML file with task context (errors, test file, recent files)")
	retrieveCmd.Flags().StringVar(&retrieveFormat, "format", "text", "Output format (json, text)")
	_ = retrieveCmd.MarkFlagRequired("task")
	rootCmd.AddCommand(retrieveCmd)
}

func runRetrieve(cmd *cobra.Command, args []string) {
	start := time.Now()
	logger := newLogger(retrieveFormat)

	repoRoot := mustGetRepoRoot()
	a := mustGetApp(repoRoot, logger)
	ctx := newContext()

	taskCtx, err := loadTaskContext(retrieveContextFile)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}

	if a.diff != nil {
		a.diff.SetSnapshot(retrieveSnapshot)
	}

	req := retrieval.Request{
		Task:        retrieveTask,
		Context:     taskCtx,
		TotalBudget: retrieveBudget,
		BaseWeights: baseWeights(a.cfg),
	}
	if req.TotalBudget <= 0 {
		req.TotalBudget = a.cfg.Budget.TotalTokens
	}

	result, err := a.orchestrator.Retrieve(ctx, req)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error retrieving context: %v\n", err)
		os.Exit(1)
	}

	cliResponse := convertRetrieveResponse(retrieveTask, result)

	output, err := FormatResponse(cliResponse, OutputFormat(retrieveFormat))
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error formatting output: %v\n", err)
		os.Exit(1)
	}

	fmt.Println(output)

	a.logger.Debug("Retrieval cycle completed", logging.Fields{
		"intent":   string(result.Classification.Intent),
		"evidence": len(result.Evidence),
		"tokens":   result.TotalTokens,
		"duration": time.Since(start).Milliseconds(),
	})
}

// taskContextFile is the YAML shape accepted by --context-file.
type taskContextFile struct {
	ErrorPresent bool     `yaml:"errorPresent"`
	ErrorText    string   `yaml:"errorText"`
	TestFile     bool     `yaml:"testFile"`
	RecentFiles  []string `yaml:"recentFiles"`
}

func loadTaskContext(path string) (signal.TaskContext, error) {
	if path == "" {
		return signal.TaskContext{}, nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return signal.TaskContext{}, fmt.Errorf("failed to read context file: %w", err)
	}
	var tc taskContextFile
	if err := yaml.Unmarshal(data, &tc); err != nil {
		return signal.TaskContext{}, fmt.Errorf("failed to parse context file: %w", err)
	}
	return signal.TaskContext{
		ErrorPresent: tc.ErrorPresent,
		ErrorText:    tc.ErrorText,
		TestFile:     tc.TestFile,
		RecentFiles:  tc.RecentFiles,
	}, nil
}

// RetrieveResponseCLI contains one retrieval cycle for CLI output
type RetrieveResponseCLI struct {
	Task            string            `json:"task"`
	Intent          string            `json:"intent"`
	Confidence      float64           `json:"confidence"`
	SecondaryIntent string            `json:"secondaryIntent,omitempty"`
	Strategy        StrategyCLI       `json:"strategy"`
	Evidence        []EvidenceCLI     `json:"evidence"`
	Contributions   []ContributionCLI `json:"contributions"`
	TotalTokens     int               `json:"totalTokens"`
	DurationMs      int64             `json:"durationMs"`
}

// EvidenceCLI represents one ranked evidence item
type EvidenceCLI struct {
	Provider  string   `json:"provider"`
	Path      string   `json:"path"`
	StartLine int      `json:"startLine"`
	EndLine   int      `json:"endLine"`
	Score     float64  `json:"score"`
	Tokens    int      `json:"tokens"`
	Symbol    string   `json:"symbol,omitempty"`
	Signals   []string `json:"signals,omitempty"`
	Content   string   `json:"content,omitempty"`
}

// ContributionCLI summarizes one provider's part of the cycle
type ContributionCLI struct {
	Provider   string `json:"provider"`
	Name       string `json:"name"`
	Budget     int    `json:"budget"`
	Count      int    `json:"count"`
	Tokens     int    `json:"tokens"`
	DurationMs int64  `json:"durationMs"`
	Skipped    bool   `json:"skipped,omitempty"`
	Error      string `json:"error,omitempty"`
}

func convertRetrieveResponse(task string, result *retrieval.Result) *RetrieveResponseCLI {
	evidenceList := make([]EvidenceCLI, 0, len(result.Evidence))
	for _, ev := range result.Evidence {
		signals := make([]string, 0, len(ev.MatchedSignals))
		for _, s := range ev.MatchedSignals {
			signals = append(signals, fmt.Sprintf("%s:%s", s.Type, s.Value))
		}
		evidenceList = append(evidenceList, EvidenceCLI{
			Provider:  string(ev.Provider),
			Path:      ev.Path,
			StartLine: ev.Range[0],
			EndLine:   ev.Range[1],
			Score:     ev.Score,
			Tokens:    ev.Tokens,
			Symbol:    ev.Metadata.Symbol,
			Signals:   signals,
			Content:   ev.Content,
		})
	}

	contributions := make([]ContributionCLI, 0, len(result.Contributions))
	for _, c := range result.Contributions {
		contributions = append(contributions, ContributionCLI{
			Provider:   string(c.Provider),
			Name:       c.Name,
			Budget:     c.Budget,
			Count:      c.Count,
			Tokens:     c.Tokens,
			DurationMs: c.Duration.Milliseconds(),
			Skipped:    c.Skipped,
			Error:      c.Err,
		})
	}

	return &RetrieveResponseCLI{
		Task:            task,
		Intent:          string(result.Classification.Intent),
		Confidence:      result.Classification.Confidence,
		SecondaryIntent: string(result.Classification.SecondaryIntent),
		Strategy:        convertStrategy(string(result.Classification.Intent), result.Strategy),
		Evidence:        evidenceList,
		Contributions:   contributions,
		TotalTokens:     result.TotalTokens,
		DurationMs:      result.Duration.Milliseconds(),
	}
}
