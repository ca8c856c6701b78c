package config

import (
	"encoding/json"
	"os"
	"path/filepath"
	"sort"
	"strconv"

	"github.com/spf13/viper"
)

// ConfigPathEnvVar points Load at a config file outside the repo's
// .ctxrank directory.
const ConfigPathEnvVar = "CTXRANK_CONFIG_PATH"

// SupportedConfigVersions lists the schema versions Load understands.
var SupportedConfigVersions = []int{1}

// Config represents the complete ctxrank configuration (v1 schema)
type Config struct {
	Version  int    `json:"version" mapstructure:"version"`
	RepoRoot string `json:"repoRoot" mapstructure:"repoRoot"`

	Providers  ProvidersConfig  `json:"providers" mapstructure:"providers"`
	Budget     BudgetConfig     `json:"budget" mapstructure:"budget"`
	Weights    WeightsConfig    `json:"weights" mapstructure:"weights"`
	Classifier ClassifierConfig `json:"classifier" mapstructure:"classifier"`
	Strategy   StrategyConfig   `json:"strategy" mapstructure:"strategy"`
	Storage    StorageConfig    `json:"storage" mapstructure:"storage"`
	Logging    LoggingConfig    `json:"logging" mapstructure:"logging"`
}

// ProvidersConfig contains per-provider configuration
type ProvidersConfig struct {
	Diff   DiffConfig   `json:"diff" mapstructure:"diff"`
	Lsp    LspConfig    `json:"lsp" mapstructure:"lsp"`
	Search SearchConfig `json:"search" mapstructure:"search"`
}

// DiffConfig contains diff provider configuration
type DiffConfig struct {
	Enabled      bool `json:"enabled" mapstructure:"enabled"`
	CacheSize    int  `json:"cacheSize" mapstructure:"cacheSize"`
	GitTimeoutMs int  `json:"gitTimeoutMs" mapstructure:"gitTimeoutMs"`
}

// LspConfig contains symbol provider configuration
type LspConfig struct {
	Enabled   bool   `json:"enabled" mapstructure:"enabled"`
	IndexPath string `json:"indexPath" mapstructure:"indexPath"`
}

// SearchConfig contains text search provider configuration
type SearchConfig struct {
	Enabled          bool     `json:"enabled" mapstructure:"enabled"`
	IgnoreGlobs      []string `json:"ignoreGlobs" mapstructure:"ignoreGlobs"`
	MaxFileSizeBytes int      `json:"maxFileSizeBytes" mapstructure:"maxFileSizeBytes"`
}

// BudgetConfig contains the token budget and provider deadlines
type BudgetConfig struct {
	TotalTokens int            `json:"totalTokens" mapstructure:"totalTokens"`
	TimeoutMs   map[string]int `json:"timeoutMs" mapstructure:"timeoutMs"`
}

// WeightsConfig contains the base reranker weights
type WeightsConfig struct {
	Diff            float64 `json:"diff" mapstructure:"diff"`
	StackFrame      float64 `json:"stackFrame" mapstructure:"stackFrame"`
	Definition      float64 `json:"definition" mapstructure:"definition"`
	Reference       float64 `json:"reference" mapstructure:"reference"`
	Keyword         float64 `json:"keyword" mapstructure:"keyword"`
	WorkingSet      float64 `json:"workingSet" mapstructure:"workingSet"`
	StackDepthDecay float64 `json:"stackDepthDecay" mapstructure:"stackDepthDecay"`
}

// ClassifierConfig contains intent classifier tuning
type ClassifierConfig struct {
	MinConfidence float64 `json:"minConfidence" mapstructure:"minConfidence"`
	KeywordsPath  string  `json:"keywordsPath" mapstructure:"keywordsPath"`
}

// StrategyConfig points at the operator strategy overrides file
type StrategyConfig struct {
	OverridesPath string `json:"overridesPath" mapstructure:"overridesPath"`
}

// StorageConfig toggles feedback and metrics persistence
type StorageConfig struct {
	Enabled bool `json:"enabled" mapstructure:"enabled"`
	// RetentionDays bounds how long retrieval cycles are kept.
	// Zero disables pruning.
	RetentionDays int `json:"retentionDays" mapstructure:"retentionDays"`
}

// LoggingConfig contains logging configuration
type LoggingConfig struct {
	Format string `json:"format" mapstructure:"format"`
	Level  string `json:"level" mapstructure:"level"`
}

// DefaultConfig returns the default configuration
func DefaultConfig() *Config {
	return &Config{
		Version:  1,
		RepoRoot: ".",
		Providers: ProvidersConfig{
			Diff: DiffConfig{
				Enabled:      true,
				CacheSize:    8,
				GitTimeoutMs: 5000,
			},
			Lsp: LspConfig{
				Enabled:   true,
				IndexPath: ".ctxrank/index.scip",
			},
			Search: SearchConfig{
				Enabled:          true,
				IgnoreGlobs:      []string{},
				MaxFileSizeBytes: 512 * 1024,
			},
		},
		Budget: BudgetConfig{
			TotalTokens: 4000,
			TimeoutMs: map[string]int{
				"diff":   5000,
				"lsp":    5000,
				"search": 5000,
			},
		},
		Weights: WeightsConfig{
			Diff:            100,
			StackFrame:      80,
			Definition:      90,
			Reference:       70,
			Keyword:         60,
			WorkingSet:      75,
			StackDepthDecay: 0.1,
		},
		Classifier: ClassifierConfig{
			MinConfidence: 0.1,
		},
		Strategy: StrategyConfig{
			OverridesPath: ".ctxrank/strategy.toml",
		},
		Storage: StorageConfig{
			Enabled:       true,
			RetentionDays: 30,
		},
		Logging: LoggingConfig{
			Format: "human",
			Level:  "info",
		},
	}
}

// LoadResult is the outcome of LoadConfigWithDetails: the effective
// config plus where it came from.
type LoadResult struct {
	Config       *Config
	ConfigPath   string
	UsedDefaults bool
	EnvOverrides []EnvOverride
}

// LoadConfig loads configuration from .ctxrank/config.json, honoring
// CTXRANK_CONFIG_PATH and environment overrides.
func LoadConfig(repoRoot string) (*Config, error) {
	result, err := LoadConfigWithDetails(repoRoot)
	if err != nil {
		return nil, err
	}
	return result.Config, nil
}

// LoadConfigWithDetails loads the configuration and reports its source.
// Missing files fall back to defaults; a file named by CTXRANK_CONFIG_PATH
// must exist.
func LoadConfigWithDetails(repoRoot string) (*LoadResult, error) {
	result := &LoadResult{}

	if path := os.Getenv(ConfigPathEnvVar); path != "" {
		cfg, err := loadConfigFromPath(path)
		if err != nil {
			return nil, err
		}
		result.Config = cfg
		result.ConfigPath = path
	} else {
		cfg, path, err := loadConfigFromRepo(repoRoot)
		if err != nil {
			return nil, err
		}
		result.Config = cfg
		result.ConfigPath = path
		result.UsedDefaults = path == ""
	}

	result.EnvOverrides = applyEnvOverrides(result.Config)
	return result, nil
}

// loadConfigFromRepo reads .ctxrank/config.json under repoRoot via viper.
// File settings merge over defaults; absent sections keep default values.
func loadConfigFromRepo(repoRoot string) (*Config, string, error) {
	v := viper.New()
	v.SetConfigName("config")
	v.SetConfigType("json")
	v.AddConfigPath(filepath.Join(repoRoot, ".ctxrank"))

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); ok {
			return DefaultConfig(), "", nil
		}
		return nil, "", err
	}

	cfg := DefaultConfig()
	if err := v.Unmarshal(cfg); err != nil {
		return nil, "", err
	}
	return cfg, v.ConfigFileUsed(), nil
}

// loadConfigFromPath reads a config file from an explicit location.
func loadConfigFromPath(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	cfg := DefaultConfig()
	if err := json.Unmarshal(data, cfg); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Save writes the configuration to .ctxrank/config.json
func (c *Config) Save(repoRoot string) error {
	configPath := filepath.Join(repoRoot, ".ctxrank", "config.json")

	data, err := json.MarshalIndent(c, "", "  ")
	if err != nil {
		return err
	}

	return os.WriteFile(configPath, data, 0644)
}

// Validate checks if the configuration is valid
func (c *Config) Validate() error {
	supported := false
	for _, v := range SupportedConfigVersions {
		if c.Version == v {
			supported = true
			break
		}
	}
	if !supported {
		return &ConfigError{Field: "version", Message: "unsupported config version"}
	}

	if c.Budget.TotalTokens < 0 {
		return &ConfigError{Field: "budget.totalTokens", Message: "must be non-negative"}
	}
	if c.Classifier.MinConfidence < 0 || c.Classifier.MinConfidence > 1 {
		return &ConfigError{Field: "classifier.minConfidence", Message: "must be in [0,1]"}
	}
	if c.Weights.StackDepthDecay < 0 || c.Weights.StackDepthDecay > 1 {
		return &ConfigError{Field: "weights.stackDepthDecay", Message: "must be in [0,1]"}
	}
	if c.Weights.Diff < 0 || c.Weights.StackFrame < 0 || c.Weights.Definition < 0 ||
		c.Weights.Reference < 0 || c.Weights.Keyword < 0 || c.Weights.WorkingSet < 0 {
		return &ConfigError{Field: "weights", Message: "dimension weights must be non-negative"}
	}
	if c.Storage.RetentionDays < 0 {
		return &ConfigError{Field: "storage.retentionDays", Message: "must be non-negative"}
	}

	return nil
}

// ConfigError represents a configuration error
type ConfigError struct {
	Field   string
	Message string
}

func (e *ConfigError) Error() string {
	return "config error in field '" + e.Field + "': " + e.Message
}

// EnvOverride records one environment variable applied over the loaded
// configuration.
type EnvOverride struct {
	EnvVar    string `json:"envVar"`
	Path      string `json:"path"`
	FromValue string `json:"fromValue"`
}

type envVarMapping struct {
	path    string
	varType string // string, int, bool, float
}

var envVarMappings = map[string]envVarMapping{
	"CTXRANK_REPO":                      {path: "repoRoot", varType: "string"},
	"CTXRANK_LOG_LEVEL":                 {path: "logging.level", varType: "string"},
	"CTXRANK_LOG_FORMAT":                {path: "logging.format", varType: "string"},
	"CTXRANK_BUDGET_TOTAL_TOKENS":       {path: "budget.totalTokens", varType: "int"},
	"CTXRANK_PROVIDERS_DIFF_ENABLED":    {path: "providers.diff.enabled", varType: "bool"},
	"CTXRANK_PROVIDERS_LSP_ENABLED":     {path: "providers.lsp.enabled", varType: "bool"},
	"CTXRANK_PROVIDERS_SEARCH_ENABLED":  {path: "providers.search.enabled", varType: "bool"},
	"CTXRANK_LSP_INDEX_PATH":            {path: "providers.lsp.indexPath", varType: "string"},
	"CTXRANK_SEARCH_MAX_FILE_BYTES":     {path: "providers.search.maxFileSizeBytes", varType: "int"},
	"CTXRANK_CLASSIFIER_MIN_CONFIDENCE": {path: "classifier.minConfidence", varType: "float"},
	"CTXRANK_STRATEGY_OVERRIDES":        {path: "strategy.overridesPath", varType: "string"},
	"CTXRANK_STORAGE_ENABLED":           {path: "storage.enabled", varType: "bool"},
	"CTXRANK_STORAGE_RETENTION_DAYS":    {path: "storage.retentionDays", varType: "int"},
}

// applyEnvOverrides layers environment variables over cfg and returns the
// overrides that took effect. Unparseable values are skipped.
func applyEnvOverrides(cfg *Config) []EnvOverride {
	names := make([]string, 0, len(envVarMappings))
	for name := range envVarMappings {
		names = append(names, name)
	}
	sort.Strings(names)

	var overrides []EnvOverride
	for _, name := range names {
		raw, ok := os.LookupEnv(name)
		if !ok || raw == "" {
			continue
		}
		m := envVarMappings[name]
		value, ok := parseEnvValue(raw, m.varType)
		if !ok {
			continue
		}
		if applyOverride(cfg, m.path, value) {
			overrides = append(overrides, EnvOverride{EnvVar: name, Path: m.path, FromValue: raw})
		}
	}
	return overrides
}

func parseEnvValue(raw, varType string) (interface{}, bool) {
	switch varType {
	case "string":
		return raw, true
	case "int":
		n, err := strconv.Atoi(raw)
		if err != nil {
			return nil, false
		}
		return n, true
	case "bool":
		b, err := strconv.ParseBool(raw)
		if err != nil {
			return nil, false
		}
		return b, true
	case "float":
		f, err := strconv.ParseFloat(raw, 64)
		if err != nil {
			return nil, false
		}
		return f, true
	}
	return nil, false
}

// applyOverride sets one dotted config path to value, reporting whether
// the path was recognized and the value had the right type.
func applyOverride(cfg *Config, path string, value interface{}) bool {
	switch path {
	case "repoRoot":
		s, ok := value.(string)
		if !ok {
			return false
		}
		cfg.RepoRoot = s
	case "logging.level":
		s, ok := value.(string)
		if !ok {
			return false
		}
		cfg.Logging.Level = s
	case "logging.format":
		s, ok := value.(string)
		if !ok {
			return false
		}
		cfg.Logging.Format = s
	case "budget.totalTokens":
		n, ok := value.(int)
		if !ok {
			return false
		}
		cfg.Budget.TotalTokens = n
	case "providers.diff.enabled":
		b, ok := value.(bool)
		if !ok {
			return false
		}
		cfg.Providers.Diff.Enabled = b
	case "providers.lsp.enabled":
		b, ok := value.(bool)
		if !ok {
			return false
		}
		cfg.Providers.Lsp.Enabled = b
	case "providers.search.enabled":
		b, ok := value.(bool)
		if !ok {
			return false
		}
		cfg.Providers.Search.Enabled = b
	case "providers.lsp.indexPath":
		s, ok := value.(string)
		if !ok {
			return false
		}
		cfg.Providers.Lsp.IndexPath = s
	case "providers.search.maxFileSizeBytes":
		n, ok := value.(int)
		if !ok {
			return false
		}
		cfg.Providers.Search.MaxFileSizeBytes = n
	case "classifier.minConfidence":
		f, ok := value.(float64)
		if !ok {
			return false
		}
		cfg.Classifier.MinConfidence = f
	case "strategy.overridesPath":
		s, ok := value.(string)
		if !ok {
			return false
		}
		cfg.Strategy.OverridesPath = s
	case "storage.enabled":
		b, ok := value.(bool)
		if !ok {
			return false
		}
		cfg.Storage.Enabled = b
	case "storage.retentionDays":
		n, ok := value.(int)
		if !ok {
			return false
		}
		cfg.Storage.RetentionDays = n
	default:
		return false
	}
	return true
}

// GetSupportedEnvVars returns the environment variables Load understands,
// sorted for stable display.
func GetSupportedEnvVars() []string {
	vars := make([]string, 0, len(envVarMappings)+1)
	vars = append(vars, ConfigPathEnvVar)
	for name := range envVarMappings {
		vars = append(vars, name)
	}
	sort.Strings(vars)
	return vars
}
