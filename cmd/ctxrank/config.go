package main

import (
	"encoding/json"
	"fmt"
	"os"
	"sort"
	"strings"

	"github.com/spf13/cobra"

	"ctxrank/internal/config"
)

var (
	configFormat   string
	configShowDiff bool
)

var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Manage ctxrank configuration",
	Long:  "View and manage ctxrank configuration stored in .ctxrank/config.json",
}

var configShowCmd = &cobra.Command{
	Use:   "show",
	Short: "Show current configuration",
	Long: `Display the current ctxrank configuration.

Examples:
  ctxrank config show                # Pretty-print current config
  ctxrank config show --format json  # Raw JSON output
  ctxrank config show --diff         # Only show non-default values`,
	Run: runConfigShow,
}

var configEnvCmd = &cobra.Command{
	Use:   "env",
	Short: "List supported environment variables",
	Long:  "Display all supported ctxrank environment variable overrides",
	Run:   runConfigEnv,
}

func init() {
	configShowCmd.Flags().StringVar(&configFormat, "format", "text", "Output format (json, text)")
	configShowCmd.Flags().BoolVar(&configShowDiff, "diff", false, "Only show non-default values")

	configCmd.AddCommand(configShowCmd)
	configCmd.AddCommand(configEnvCmd)
	rootCmd.AddCommand(configCmd)
}

// ConfigShowResponse is the response format for config show
type ConfigShowResponse struct {
	ConfigPath   string                 `json:"configPath,omitempty"`
	UsedDefaults bool                   `json:"usedDefaults"`
	EnvOverrides []config.EnvOverride   `json:"envOverrides,omitempty"`
	Config       map[string]interface{} `json:"config"`
}

func runConfigShow(cmd *cobra.Command, args []string) {
	repoRoot := mustGetRepoRoot()

	// Load config with details
	result, err := config.LoadConfigWithDetails(repoRoot)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error loading config: %v\n", err)
		os.Exit(1)
	}

	if configFormat == "json" {
		outputConfigJSON(result, configShowDiff)
	} else {
		outputConfigText(result, configShowDiff)
	}
}

func outputConfigJSON(result *config.LoadResult, diffOnly bool) {
	// Convert config to map for JSON output
	configBytes, err := json.Marshal(result.Config)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error marshaling config: %v\n", err)
		os.Exit(1)
	}

	var configMap map[string]interface{}
	if err := json.Unmarshal(configBytes, &configMap); err != nil {
		fmt.Fprintf(os.Stderr, "Error unmarshaling config: %v\n", err)
		os.Exit(1)
	}

	if diffOnly {
		// Get defaults and compute diff
		defaultBytes, _ := json.Marshal(config.DefaultConfig())
		var defaultMap map[string]interface{}
		json.Unmarshal(defaultBytes, &defaultMap)
		configMap = computeDiff(configMap, defaultMap)
	}

	response := ConfigShowResponse{
		ConfigPath:   result.ConfigPath,
		UsedDefaults: result.UsedDefaults,
		EnvOverrides: result.EnvOverrides,
		Config:       configMap,
	}

	output, err := json.MarshalIndent(response, "", "  ")
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error formatting output: %v\n", err)
		os.Exit(1)
	}

	fmt.Println(string(output))
}

func outputConfigText(result *config.LoadResult, diffOnly bool) {
	// Header
	fmt.Println("ctxrank Configuration")
	fmt.Println(strings.Repeat("─", 50))

	// Source info
	if result.UsedDefaults {
		fmt.Println("Source: defaults (no config file found)")
	} else if result.ConfigPath != "" {
		fmt.Printf("Source: %s\n", result.ConfigPath)
	}

	// Env overrides
	if len(result.EnvOverrides) > 0 {
		fmt.Println("\nEnvironment Overrides:")
		for _, ov := range result.EnvOverrides {
			fmt.Printf("  %s=%s → %s\n", ov.EnvVar, ov.FromValue, ov.Path)
		}
	}

	fmt.Println()

	// Config content
	cfg := result.Config
	defaults := config.DefaultConfig()

	if diffOnly {
		fmt.Println("Modified Settings (differs from defaults):")
		fmt.Println()
		printConfigDiff(cfg, defaults)
	} else {
		printConfigSection("version", cfg.Version, defaults.Version)
		printConfigSection("repoRoot", valueOrDefault(cfg.RepoRoot, "."), ".")

		fmt.Println("\nproviders:")
		printConfigSection("  diff.enabled", cfg.Providers.Diff.Enabled, defaults.Providers.Diff.Enabled)
		printConfigSection("  diff.cacheSize", cfg.Providers.Diff.CacheSize, defaults.Providers.Diff.CacheSize)
		printConfigSection("  lsp.enabled", cfg.Providers.Lsp.Enabled, defaults.Providers.Lsp.Enabled)
		printConfigSection("  lsp.indexPath", cfg.Providers.Lsp.IndexPath, defaults.Providers.Lsp.IndexPath)
		printConfigSection("  search.enabled", cfg.Providers.Search.Enabled, defaults.Providers.Search.Enabled)
		printConfigSection("  search.maxFileSizeBytes", cfg.Providers.Search.MaxFileSizeBytes, defaults.Providers.Search.MaxFileSizeBytes)

		fmt.Println("\nbudget:")
		printConfigSection("  totalTokens", cfg.Budget.TotalTokens, defaults.Budget.TotalTokens)

		fmt.Println("\nweights:")
		printConfigSection("  diff", cfg.Weights.Diff, defaults.Weights.Diff)
		printConfigSection("  stackFrame", cfg.Weights.StackFrame, defaults.Weights.StackFrame)
		printConfigSection("  definition", cfg.Weights.Definition, defaults.Weights.Definition)
		printConfigSection("  reference", cfg.Weights.Reference, defaults.Weights.Reference)
		printConfigSection("  keyword", cfg.Weights.Keyword, defaults.Weights.Keyword)
		printConfigSection("  workingSet", cfg.Weights.WorkingSet, defaults.Weights.WorkingSet)
		printConfigSection("  stackDepthDecay", cfg.Weights.StackDepthDecay, defaults.Weights.StackDepthDecay)

		fmt.Println("\nclassifier:")
		printConfigSection("  minConfidence", cfg.Classifier.MinConfidence, defaults.Classifier.MinConfidence)
		printConfigSection("  keywordsPath", valueOrDefault(cfg.Classifier.KeywordsPath, "(none)"), "(none)")

		fmt.Println("\nstrategy:")
		printConfigSection("  overridesPath", cfg.Strategy.OverridesPath, defaults.Strategy.OverridesPath)

		fmt.Println("\nstorage:")
		printConfigSection("  enabled", cfg.Storage.Enabled, defaults.Storage.Enabled)

		fmt.Println("\nlogging:")
		printConfigSection("  level", cfg.Logging.Level, defaults.Logging.Level)
		printConfigSection("  format", cfg.Logging.Format, defaults.Logging.Format)
	}

	fmt.Println()
	fmt.Println("Use 'ctxrank config show --format json' for full configuration")
	fmt.Println("Use 'ctxrank config env' to see supported environment variables")
}

func printConfigSection(name string, value, defaultValue interface{}) {
	modified := ""
	if !isEqual(value, defaultValue) {
		modified = fmt.Sprintf(" (default: %v)", defaultValue)
	}
	fmt.Printf("%s: %v%s\n", name, value, modified)
}

func printConfigDiff(cfg, defaults *config.Config) {
	diffs := []string{}

	if cfg.Version != defaults.Version {
		diffs = append(diffs, fmt.Sprintf("version: %d (default: %d)", cfg.Version, defaults.Version))
	}
	if cfg.RepoRoot != defaults.RepoRoot && cfg.RepoRoot != "" {
		diffs = append(diffs, fmt.Sprintf("repoRoot: %s (default: %s)", cfg.RepoRoot, defaults.RepoRoot))
	}

	// Providers
	if cfg.Providers.Diff.Enabled != defaults.Providers.Diff.Enabled {
		diffs = append(diffs, fmt.Sprintf("providers.diff.enabled: %v (default: %v)", cfg.Providers.Diff.Enabled, defaults.Providers.Diff.Enabled))
	}
	if cfg.Providers.Diff.CacheSize != defaults.Providers.Diff.CacheSize {
		diffs = append(diffs, fmt.Sprintf("providers.diff.cacheSize: %d (default: %d)", cfg.Providers.Diff.CacheSize, defaults.Providers.Diff.CacheSize))
	}
	if cfg.Providers.Lsp.Enabled != defaults.Providers.Lsp.Enabled {
		diffs = append(diffs, fmt.Sprintf("providers.lsp.enabled: %v (default: %v)", cfg.Providers.Lsp.Enabled, defaults.Providers.Lsp.Enabled))
	}
	if cfg.Providers.Lsp.IndexPath != defaults.Providers.Lsp.IndexPath {
		diffs = append(diffs, fmt.Sprintf("providers.lsp.indexPath: %s (default: %s)", cfg.Providers.Lsp.IndexPath, defaults.Providers.Lsp.IndexPath))
	}
	if cfg.Providers.Search.Enabled != defaults.Providers.Search.Enabled {
		diffs = append(diffs, fmt.Sprintf("providers.search.enabled: %v (default: %v)", cfg.Providers.Search.Enabled, defaults.Providers.Search.Enabled))
	}
	if cfg.Providers.Search.MaxFileSizeBytes != defaults.Providers.Search.MaxFileSizeBytes {
		diffs = append(diffs, fmt.Sprintf("providers.search.maxFileSizeBytes: %d (default: %d)", cfg.Providers.Search.MaxFileSizeBytes, defaults.Providers.Search.MaxFileSizeBytes))
	}

	// Budget
	if cfg.Budget.TotalTokens != defaults.Budget.TotalTokens {
		diffs = append(diffs, fmt.Sprintf("budget.totalTokens: %d (default: %d)", cfg.Budget.TotalTokens, defaults.Budget.TotalTokens))
	}

	// Weights
	if cfg.Weights != defaults.Weights {
		diffs = append(diffs, fmt.Sprintf("weights: %+v (default: %+v)", cfg.Weights, defaults.Weights))
	}

	// Classifier
	if cfg.Classifier.MinConfidence != defaults.Classifier.MinConfidence {
		diffs = append(diffs, fmt.Sprintf("classifier.minConfidence: %.2f (default: %.2f)", cfg.Classifier.MinConfidence, defaults.Classifier.MinConfidence))
	}
	if cfg.Classifier.KeywordsPath != defaults.Classifier.KeywordsPath {
		diffs = append(diffs, fmt.Sprintf("classifier.keywordsPath: %s (default: none)", cfg.Classifier.KeywordsPath))
	}

	// Strategy
	if cfg.Strategy.OverridesPath != defaults.Strategy.OverridesPath {
		diffs = append(diffs, fmt.Sprintf("strategy.overridesPath: %s (default: %s)", cfg.Strategy.OverridesPath, defaults.Strategy.OverridesPath))
	}

	// Storage
	if cfg.Storage.Enabled != defaults.Storage.Enabled {
		diffs = append(diffs, fmt.Sprintf("storage.enabled: %v (default: %v)", cfg.Storage.Enabled, defaults.Storage.Enabled))
	}

	// Logging
	if cfg.Logging.Level != defaults.Logging.Level {
		diffs = append(diffs, fmt.Sprintf("logging.level: %s (default: %s)", cfg.Logging.Level, defaults.Logging.Level))
	}
	if cfg.Logging.Format != defaults.Logging.Format {
		diffs = append(diffs, fmt.Sprintf("logging.format: %s (default: %s)", cfg.Logging.Format, defaults.Logging.Format))
	}

	if len(diffs) == 0 {
		fmt.Println("  (no modifications - using all defaults)")
	} else {
		for _, d := range diffs {
			fmt.Printf("  %s\n", d)
		}
	}
}

func runConfigEnv(cmd *cobra.Command, args []string) {
	fmt.Println("Supported ctxrank Environment Variables")
	fmt.Println(strings.Repeat("─", 50))
	fmt.Println()

	// Group by category
	categories := map[string][]envVarInfo{
		"General": {
			{"CTXRANK_CONFIG_PATH", "Path to config file", "string"},
			{"CTXRANK_REPO", "Repository root (overrides working directory)", "string"},
		},
		"Logging": {
			{"CTXRANK_LOG_LEVEL", "Log level (debug, info, warn, error)", "string"},
			{"CTXRANK_LOG_FORMAT", "Log format (human, json)", "string"},
		},
		"Budget": {
			{"CTXRANK_BUDGET_TOTAL_TOKENS", "Total token budget per cycle", "int"},
		},
		"Providers": {
			{"CTXRANK_PROVIDERS_DIFF_ENABLED", "Enable the diff provider", "bool"},
			{"CTXRANK_PROVIDERS_LSP_ENABLED", "Enable the SCIP symbol provider", "bool"},
			{"CTXRANK_PROVIDERS_SEARCH_ENABLED", "Enable the text search provider", "bool"},
			{"CTXRANK_LSP_INDEX_PATH", "Path to the SCIP index file", "string"},
			{"CTXRANK_SEARCH_MAX_FILE_BYTES", "Per-file scan cap for text search", "int"},
		},
		"Tuning": {
			{"CTXRANK_CLASSIFIER_MIN_CONFIDENCE", "Minimum classification confidence", "float"},
			{"CTXRANK_STRATEGY_OVERRIDES", "Path to strategy overrides file", "string"},
			{"CTXRANK_STORAGE_ENABLED", "Enable feedback/metrics storage", "bool"},
		},
	}

	order := []string{"General", "Logging", "Budget", "Providers", "Tuning"}
	for _, cat := range order {
		vars := categories[cat]
		fmt.Printf("%s:\n", cat)
		for _, v := range vars {
			fmt.Printf("  %-38s %s (%s)\n", v.name, v.desc, v.varType)
		}
		fmt.Println()
	}

	fmt.Println("Example usage:")
	fmt.Println("  CTXRANK_BUDGET_TOTAL_TOKENS=2000 ctxrank retrieve --task \"fix login\"")
	fmt.Println("  CTXRANK_LOG_LEVEL=debug ctxrank retrieve --task \"fix login\"")
	fmt.Println("  CTXRANK_CONFIG_PATH=/etc/ctxrank/config.json ctxrank config show")
}

type envVarInfo struct {
	name    string
	desc    string
	varType string
}

func valueOrDefault(value, defaultValue string) string {
	if value == "" {
		return defaultValue
	}
	return value
}

func isEqual(a, b interface{}) bool {
	return fmt.Sprintf("%v", a) == fmt.Sprintf("%v", b)
}

func computeDiff(current, defaults map[string]interface{}) map[string]interface{} {
	diff := make(map[string]interface{})
	computeDiffRecursive(current, defaults, diff, "")
	return diff
}

func computeDiffRecursive(current, defaults map[string]interface{}, diff map[string]interface{}, prefix string) {
	for key, currentVal := range current {
		defaultVal, exists := defaults[key]

		// If key doesn't exist in defaults or values differ
		if !exists {
			diff[key] = currentVal
			continue
		}

		// Check if both are maps (nested objects)
		currentMap, currentIsMap := currentVal.(map[string]interface{})
		defaultMap, defaultIsMap := defaultVal.(map[string]interface{})

		if currentIsMap && defaultIsMap {
			nestedDiff := make(map[string]interface{})
			computeDiffRecursive(currentMap, defaultMap, nestedDiff, prefix+key+".")
			if len(nestedDiff) > 0 {
				diff[key] = nestedDiff
			}
		} else if fmt.Sprintf("%v", currentVal) != fmt.Sprintf("%v", defaultVal) {
			diff[key] = currentVal
		}
	}
}

// GetEnvVarMappings returns the list of supported env vars for documentation
func GetEnvVarMappings() []string {
	vars := config.GetSupportedEnvVars()
	sort.Strings(vars)
	return vars
}
