package main

import (
	"ctxrank/internal/version"

	"github.com/spf13/cobra"
)

var rootCmd = &cobra.Command{
	Use:   "ctxrank",
	Short: "ctxrank - context evidence retrieval and ranking",
	Long: `ctxrank retrieves and ranks code context for coding tasks. It classifies
the task intent, picks a retrieval strategy, queries evidence providers (git diff,
SCIP index, text search) in parallel, and returns a token-budgeted, scored
evidence list.`,
	// Info appends the short commit when one was linked in, so --version
	// says which build this is.
	Version: version.Info(),
}

func init() {
	rootCmd.SetVersionTemplate("ctxrank version {{.Version}}\n")
}
