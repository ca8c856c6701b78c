package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

var (
	classifyContextFile string
	classifyFormat      string
)

var classifyCmd = &cobra.Command{
	Use:   "classify <task>",
	Short: "Classify a task description",
	Long: `Classify a task description into an intent (debug, implement, refactor,
explore, test, review) without running retrieval.

Examples:
  ctxrank classify "fix the nil pointer panic in server.go"
  ctxrank classify "add dark mode to settings" --format json
  ctxrank classify "why is login slow" --context-file ctx.yaml`,
	Args: cobra.ExactArgs(1),
	Run:  runClassify,
}

func init() {
	classifyCmd.Flags().StringVar(&classifyContextFile, "context-file", "", "YAML file with task context (errors, test file, recent files)")
	classifyCmd.Flags().StringVar(&classifyFormat, "format", "text", "Output format (json, text)")
	rootCmd.AddCommand(classifyCmd)
}

func runClassify(cmd *cobra.Command, args []string) {
	logger := newLogger(classifyFormat)
	task := args[0]

	repoRoot := mustGetRepoRoot()
	a := mustGetApp(repoRoot, logger)

	taskCtx, err := loadTaskContext(classifyContextFile)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}

	result := a.classifier.ClassifyWithContext(task, taskCtx)

	cliResponse := &ClassifyResponseCLI{
		Task:            task,
		Intent:          string(result.Intent),
		Confidence:      result.Confidence,
		SecondaryIntent: string(result.SecondaryIntent),
		Signals:         result.Signals,
	}

	output, err := FormatResponse(cliResponse, OutputFormat(classifyFormat))
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error formatting output: %v\n", err)
		os.Exit(1)
	}

	fmt.Println(output)
}

// ClassifyResponseCLI contains a classification result for CLI output
type ClassifyResponseCLI struct {
	Task            string   `json:"task"`
	Intent          string   `json:"intent"`
	Confidence      float64  `json:"confidence"`
	SecondaryIntent string   `json:"secondaryIntent,omitempty"`
	Signals         []string `json:"signals,omitempty"`
}
