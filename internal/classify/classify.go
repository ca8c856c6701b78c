// Package classify maps free-text task descriptions to task intents.
// Classification is deterministic and rule-based: keyword lists per intent,
// confidence normalized by token count, optional situational boosts.
package classify

import (
	"fmt"
	"strings"

	"github.com/bmatcuk/doublestar/v4"

	"ctxrank/internal/errors"
	"ctxrank/internal/signal"
)

// Intent is the classified purpose of a task.
type Intent string

const (
	IntentDebug     Intent = "debug"
	IntentImplement Intent = "implement"
	IntentRefactor  Intent = "refactor"
	IntentExplore   Intent = "explore"
	IntentTest      Intent = "test"
	IntentReview    Intent = "review"
	IntentUnknown   Intent = "unknown"
)

// classificationOrder fixes tie-breaking: earlier intents win equal scores.
var classificationOrder = []Intent{
	IntentDebug,
	IntentImplement,
	IntentTest,
	IntentRefactor,
	IntentExplore,
	IntentReview,
}

// Intents returns every classifiable intent in tie-break order.
func Intents() []Intent {
	out := make([]Intent, len(classificationOrder))
	copy(out, classificationOrder)
	return out
}

const (
	// DefaultMinConfidence is the floor below which results collapse
	// to unknown.
	DefaultMinConfidence = 0.1

	// contextBoostPoints is added to an intent's raw score per applied
	// situational flag; dividing by token count spreads it over the text.
	contextBoostPoints = 1.0

	// secondaryRatio: the runner-up is reported only when its confidence
	// reaches this fraction of the winner's.
	secondaryRatio = 0.6

	// minSubstringKeywordLen keeps short keywords like "pr" or "add" from
	// half-matching inside unrelated tokens ("improve", "address"). Exact
	// token matches are unaffected.
	minSubstringKeywordLen = 4

	tokenCutset = ".,;:!?()[]{}<>\"'"
)

// Result is the outcome of one classification call.
type Result struct {
	Intent          Intent   `json:"intent"`
	Confidence      float64  `json:"confidence"`
	Signals         []string `json:"signals,omitempty"`
	SecondaryIntent Intent   `json:"secondaryIntent,omitempty"`
}

// Config carries construction-time tuning. Zero values select defaults.
type Config struct {
	// MinConfidence in [0,1]; winners below it classify as unknown.
	MinConfidence float64

	// Keywords replaces default keyword lists per intent (whole-list
	// replacement, never merged element-wise).
	Keywords map[Intent][]string

	// TestFilePatterns are doublestar globs marking test files in
	// recent-file lists.
	TestFilePatterns []string
}

// Classifier is stateless aside from its construction-time configuration;
// identical input always yields identical output.
type Classifier struct {
	minConfidence    float64
	keywords         map[Intent][]string
	testFilePatterns []string
}

// New builds a classifier, validating the confidence floor.
func New(cfg Config) (*Classifier, error) {
	if cfg.MinConfidence < 0 || cfg.MinConfidence > 1 {
		return nil, errors.NewCtxError(
			errors.InvalidInput,
			fmt.Sprintf("minConfidence must be in [0,1], got %v", cfg.MinConfidence),
			nil,
			nil,
		)
	}

	minConfidence := cfg.MinConfidence
	if minConfidence == 0 {
		minConfidence = DefaultMinConfidence
	}

	keywords := make(map[Intent][]string, len(defaultKeywords))
	for intent, list := range defaultKeywords {
		keywords[intent] = list
	}
	for intent, list := range cfg.Keywords {
		if len(list) > 0 {
			keywords[intent] = lowercase(list)
		}
	}

	patterns := cfg.TestFilePatterns
	if len(patterns) == 0 {
		patterns = defaultTestFilePatterns
	}

	return &Classifier{
		minConfidence:    minConfidence,
		keywords:         keywords,
		testFilePatterns: patterns,
	}, nil
}

// Classify maps text to an intent without situational context.
func (c *Classifier) Classify(text string) Result {
	return c.classify(text, signal.TaskContext{})
}

// ClassifyWithContext additionally applies situational boosts: an error in
// the environment boosts debug, a test file in focus boosts test, and
// recently touched test files boost test. Boosts stack and each records a
// "context:<flag>" signal.
func (c *Classifier) ClassifyWithContext(text string, tc signal.TaskContext) Result {
	return c.classify(text, tc)
}

func (c *Classifier) classify(text string, tc signal.TaskContext) Result {
	if strings.TrimSpace(text) == "" {
		return Result{Intent: IntentUnknown, Confidence: 0}
	}

	tokens := tokenize(text)
	if len(tokens) == 0 {
		return Result{Intent: IntentUnknown, Confidence: 0}
	}

	type tally struct {
		score   float64
		matched []string
	}
	scores := make(map[Intent]*tally, len(classificationOrder))
	for _, intent := range classificationOrder {
		t := &tally{}
		for _, tok := range tokens {
			for _, kw := range c.keywords[intent] {
				if tok == kw {
					t.score++
					t.matched = append(t.matched, tok)
				} else if len(kw) >= minSubstringKeywordLen && len(kw) < len(tok) && strings.Contains(tok, kw) {
					t.score += 0.5
					t.matched = append(t.matched, tok)
				}
			}
		}
		scores[intent] = t
	}

	var contextSignals []string
	if tc.ErrorPresent {
		scores[IntentDebug].score += contextBoostPoints
		contextSignals = append(contextSignals, "context:errorPresent")
	}
	if tc.TestFile {
		scores[IntentTest].score += contextBoostPoints
		contextSignals = append(contextSignals, "context:testFile")
	}
	if c.hasTestFiles(tc.RecentFiles) {
		scores[IntentTest].score += contextBoostPoints
		contextSignals = append(contextSignals, "context:recentTestFiles")
	}

	n := float64(len(tokens))
	var best, second Intent
	var bestConf, secondConf float64
	for _, intent := range classificationOrder {
		conf := scores[intent].score / n
		if conf > 1 {
			conf = 1
		}
		switch {
		case conf > bestConf:
			second, secondConf = best, bestConf
			best, bestConf = intent, conf
		case conf > secondConf:
			second, secondConf = intent, conf
		}
	}

	if best == "" || bestConf < c.minConfidence {
		return Result{Intent: IntentUnknown, Confidence: bestConf}
	}

	result := Result{
		Intent:     best,
		Confidence: bestConf,
		Signals:    dedupStrings(append(scores[best].matched, contextSignals...)),
	}
	if second != "" && secondConf > 0 && secondConf >= secondaryRatio*bestConf {
		result.SecondaryIntent = second
	}
	return result
}

func (c *Classifier) hasTestFiles(paths []string) bool {
	for _, p := range paths {
		norm := signal.NormalizePath(p)
		for _, pattern := range c.testFilePatterns {
			if ok, err := doublestar.Match(pattern, norm); err == nil && ok {
				return true
			}
		}
	}
	return false
}

func tokenize(text string) []string {
	fields := strings.Fields(strings.ToLower(text))
	tokens := fields[:0]
	for _, f := range fields {
		if tok := strings.Trim(f, tokenCutset); tok != "" {
			tokens = append(tokens, tok)
		}
	}
	return tokens
}

func lowercase(list []string) []string {
	out := make([]string, len(list))
	for i, s := range list {
		out[i] = strings.ToLower(s)
	}
	return out
}

func dedupStrings(in []string) []string {
	if len(in) == 0 {
		return nil
	}
	seen := make(map[string]bool, len(in))
	out := in[:0]
	for _, s := range in {
		if !seen[s] {
			seen[s] = true
			out = append(out, s)
		}
	}
	return out
}
