package classify

import (
	"fmt"

	"github.com/BurntSushi/toml"

	"ctxrank/internal/errors"
)

// defaultKeywords seed the per-intent scoring lists. Entries are lowercase;
// matching is exact-token or keyword-inside-token (half weight).
var defaultKeywords = map[Intent][]string{
	IntentDebug: {
		"fix", "debug", "error", "bug", "crash", "broken",
		"fail", "failing", "failure", "exception", "typeerror",
		"panic", "stack", "trace", "wrong", "undefined", "nan",
	},
	IntentImplement: {
		"implement", "add", "create", "build", "make", "write",
		"new", "feature", "support", "introduce",
	},
	IntentTest: {
		"test", "tests", "testing", "spec", "coverage",
		"unit", "assert", "mock", "verify",
	},
	IntentRefactor: {
		"refactor", "rename", "restructure", "cleanup", "clean",
		"simplify", "extract", "reorganize", "dedupe", "tidy",
	},
	IntentExplore: {
		"explore", "find", "search", "where", "how", "what",
		"understand", "look", "locate", "show", "explain",
	},
	IntentReview: {
		"review", "pr", "approve", "feedback", "comment",
		"diff", "critique", "lgtm",
	},
}

// defaultTestFilePatterns mark test files in recent-file lists.
var defaultTestFilePatterns = []string{
	"**/*.test.*",
	"**/*.spec.*",
	"**/*_test.go",
	"**/test_*.py",
}

// keywordFile is the on-disk TOML shape: one array per intent, for example
//
//	debug = ["fix", "crash"]
//	review = ["lgtm"]
type keywordFile struct {
	Debug     []string `toml:"debug"`
	Implement []string `toml:"implement"`
	Test      []string `toml:"test"`
	Refactor  []string `toml:"refactor"`
	Explore   []string `toml:"explore"`
	Review    []string `toml:"review"`
}

// LoadKeywords reads a keyword pack. Only intents present in the file are
// returned; feed the result to Config.Keywords for whole-list replacement
// over the defaults.
func LoadKeywords(path string) (map[Intent][]string, error) {
	var kf keywordFile
	md, err := toml.DecodeFile(path, &kf)
	if err != nil {
		return nil, errors.NewCtxError(
			errors.ConfigError,
			fmt.Sprintf("failed to parse keyword pack %s", path),
			err,
			errors.GetSuggestedFixes(errors.ConfigError),
		)
	}
	if undecoded := md.Undecoded(); len(undecoded) > 0 {
		return nil, errors.NewCtxError(
			errors.ConfigError,
			fmt.Sprintf("unknown keys in keyword pack %s: %v", path, undecoded),
			nil,
			errors.GetSuggestedFixes(errors.ConfigError),
		)
	}

	out := make(map[Intent][]string)
	for intent, list := range map[Intent][]string{
		IntentDebug:     kf.Debug,
		IntentImplement: kf.Implement,
		IntentTest:      kf.Test,
		IntentRefactor:  kf.Refactor,
		IntentExplore:   kf.Explore,
		IntentReview:    kf.Review,
	} {
		if len(list) > 0 {
			out[intent] = lowercase(list)
		}
	}
	return out, nil
}
