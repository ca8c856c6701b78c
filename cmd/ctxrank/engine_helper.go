package main

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"ctxrank/internal/classify"
	"ctxrank/internal/config"
	"ctxrank/internal/evidence"
	"ctxrank/internal/logging"
	"ctxrank/internal/providers/diff"
	"ctxrank/internal/providers/scip"
	"ctxrank/internal/providers/search"
	"ctxrank/internal/retrieval"
	"ctxrank/internal/snapshot"
	"ctxrank/internal/storage"
	"ctxrank/internal/strategy"
)

// app bundles the shared retrieval stack used by all commands.
type app struct {
	cfg          *config.Config
	logger       *logging.Logger
	classifier   *classify.Classifier
	strategies   *strategy.Provider
	orchestrator *retrieval.Orchestrator

	// diff is the diff provider instance, nil when disabled. Kept so
	// retrieve can point it at a snapshot reference.
	diff *diff.Provider

	// scip is the SCIP provider instance, nil when disabled. Kept so
	// strategy --stats can check the index against HEAD.
	scip *scip.Provider

	// git resolves snapshot references outside the diff provider.
	git *snapshot.GitService

	db       *storage.DB
	feedback *storage.FeedbackStore
	metrics  *storage.MetricsStore
}

var (
	appOnce   sync.Once
	sharedApp *app
	appErr    error
)

// getApp returns the shared retrieval stack.
// The stack is lazily initialized on first use.
func getApp(repoRoot string, logger *logging.Logger) (*app, error) {
	appOnce.Do(func() {
		sharedApp, appErr = buildApp(repoRoot, logger)
	})
	return sharedApp, appErr
}

// mustGetApp returns the shared retrieval stack or exits on error.
func mustGetApp(repoRoot string, logger *logging.Logger) *app {
	a, err := getApp(repoRoot, logger)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error initializing: %v\n", err)
		os.Exit(1)
	}
	return a
}

func buildApp(repoRoot string, logger *logging.Logger) (*app, error) {
	// Load configuration
	cfg, err := config.LoadConfig(repoRoot)
	if err != nil {
		logger.Warn("Failed to load config, using defaults", logging.Fields{
			"error": err.Error(),
		})
		cfg = config.DefaultConfig()
	}

	log := loggerFromConfig(cfg)

	// Classifier
	clsCfg := classify.Config{MinConfidence: cfg.Classifier.MinConfidence}
	if cfg.Classifier.KeywordsPath != "" {
		keywords, err := classify.LoadKeywords(resolvePath(repoRoot, cfg.Classifier.KeywordsPath))
		if err != nil {
			return nil, fmt.Errorf("failed to load keyword pack: %w", err)
		}
		clsCfg.Keywords = keywords
	}
	classifier, err := classify.New(clsCfg)
	if err != nil {
		return nil, fmt.Errorf("failed to create classifier: %w", err)
	}

	// Storage: feedback history and cycle metrics
	var (
		db       *storage.DB
		feedback *storage.FeedbackStore
		metrics  *storage.MetricsStore
	)
	if cfg.Storage.Enabled {
		db, err = storage.Open(repoRoot, log)
		if err != nil {
			return nil, fmt.Errorf("failed to open database: %w", err)
		}
		feedback = storage.NewFeedbackStore(db)
		metrics = storage.NewMetricsStore(db)

		// Opportunistic prune keeps the cycle table bounded without a daemon.
		if cfg.Storage.RetentionDays > 0 {
			retention := time.Duration(cfg.Storage.RetentionDays) * 24 * time.Hour
			if removed, err := metrics.CleanupOldCycles(context.Background(), retention); err != nil {
				log.Warn("Failed to prune old retrieval cycles", logging.Fields{
					"error": err.Error(),
				})
			} else if removed > 0 {
				log.Debug("Pruned old retrieval cycles", logging.Fields{
					"removed": removed,
				})
			}
		}
	}

	// Strategy provider, with file overrides when present
	stratOpts := strategy.Options{Logger: log}
	if feedback != nil {
		stratOpts.Store = feedback
	}
	if cfg.Strategy.OverridesPath != "" {
		overridesPath := resolvePath(repoRoot, cfg.Strategy.OverridesPath)
		if _, statErr := os.Stat(overridesPath); statErr == nil {
			patches, err := strategy.LoadPatches(overridesPath)
			if err != nil {
				return nil, fmt.Errorf("failed to load strategy overrides: %w", err)
			}
			stratOpts.Custom = patches
		}
	}
	strategies, err := strategy.New(stratOpts)
	if err != nil {
		return nil, fmt.Errorf("failed to create strategy provider: %w", err)
	}

	// Evidence providers per config
	git := snapshot.NewGitService(repoRoot, time.Duration(cfg.Providers.Diff.GitTimeoutMs)*time.Millisecond, log)

	var (
		providers    []evidence.Provider
		diffProvider *diff.Provider
		scipProvider *scip.Provider
	)
	if cfg.Providers.Diff.Enabled {
		svc, err := snapshot.NewCachedService(git, cfg.Providers.Diff.CacheSize)
		if err != nil {
			return nil, fmt.Errorf("failed to create snapshot cache: %w", err)
		}
		diffProvider = diff.NewProvider(svc, log)
		providers = append(providers, diffProvider)
	}
	if cfg.Providers.Lsp.Enabled {
		scipProvider = scip.NewProvider(repoRoot, cfg.Providers.Lsp.IndexPath, log)
		providers = append(providers, scipProvider)
	}
	if cfg.Providers.Search.Enabled {
		sp := search.NewProvider(repoRoot, cfg.Providers.Search.IgnoreGlobs, log)
		sp.SetMaxFileBytes(int64(cfg.Providers.Search.MaxFileSizeBytes))
		providers = append(providers, sp)
	}

	timeouts := make(map[evidence.ProviderType]time.Duration, len(cfg.Budget.TimeoutMs))
	for name, ms := range cfg.Budget.TimeoutMs {
		timeouts[evidence.ProviderType(name)] = time.Duration(ms) * time.Millisecond
	}

	orchOpts := retrieval.Options{
		Classifier:       classifier,
		Strategies:       strategies,
		Providers:        providers,
		Logger:           log,
		ProviderTimeouts: timeouts,
	}
	if metrics != nil {
		orchOpts.Metrics = metrics
	}
	orchestrator, err := retrieval.New(orchOpts)
	if err != nil {
		return nil, fmt.Errorf("failed to create orchestrator: %w", err)
	}

	return &app{
		cfg:          cfg,
		logger:       log,
		classifier:   classifier,
		strategies:   strategies,
		orchestrator: orchestrator,
		diff:         diffProvider,
		scip:         scipProvider,
		git:          git,
		db:           db,
		feedback:     feedback,
		metrics:      metrics,
	}, nil
}

// baseWeights converts the configured scoring weights into the engine form.
func baseWeights(cfg *config.Config) strategy.RerankerWeights {
	return strategy.RerankerWeights{
		Diff:            cfg.Weights.Diff,
		StackFrame:      cfg.Weights.StackFrame,
		Definition:      cfg.Weights.Definition,
		Reference:       cfg.Weights.Reference,
		Keyword:         cfg.Weights.Keyword,
		WorkingSet:      cfg.Weights.WorkingSet,
		StackDepthDecay: cfg.Weights.StackDepthDecay,
	}
}

func loggerFromConfig(cfg *config.Config) *logging.Logger {
	format := logging.HumanFormat
	if cfg.Logging.Format == "json" {
		format = logging.JSONFormat
	}
	return logging.NewLogger(logging.Config{
		Format: format,
		Level:  logging.ParseLevel(cfg.Logging.Level),
	})
}

func resolvePath(repoRoot, path string) string {
	if filepath.IsAbs(path) {
		return path
	}
	return filepath.Join(repoRoot, path)
}

// getRepoRoot returns the repository root directory.
func getRepoRoot() (string, error) {
	if repo := os.Getenv("CTXRANK_REPO"); repo != "" {
		return repo, nil
	}
	return os.Getwd()
}

// mustGetRepoRoot returns the repository root or exits on error.
func mustGetRepoRoot() string {
	repoRoot, err := getRepoRoot()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
	return repoRoot
}

// newContext creates a new context for command execution.
func newContext() context.Context {
	return context.Background()
}

// newLogger creates a logger with the specified format.
func newLogger(format string) *logging.Logger {
	logFormat := logging.HumanFormat
	if format == "json" {
		logFormat = logging.JSONFormat
	}
	return logging.NewLogger(logging.Config{
		Format: logFormat,
		Level:  logging.LevelInfo,
	})
}
