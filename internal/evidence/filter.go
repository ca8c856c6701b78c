package evidence

import (
	"regexp"
	"strings"

	"ctxrank/internal/signal"
)

// MatchesFilters applies include/exclude patterns to a path. Matching is
// case-insensitive on the slash-normalized path; `*` in a pattern matches
// any run of characters, and patterns without wildcards match as plain
// substrings anywhere in the path. Exclude always wins; an empty include
// list admits every path.
func MatchesFilters(path string, include, exclude []string) bool {
	for _, pat := range exclude {
		if matchPattern(pat, path) {
			return false
		}
	}
	if len(include) == 0 {
		return true
	}
	for _, pat := range include {
		if matchPattern(pat, path) {
			return true
		}
	}
	return false
}

func matchPattern(pattern, path string) bool {
	pat := signal.NormalizePath(strings.TrimSpace(pattern))
	if pat == "" {
		return false
	}
	p := signal.NormalizePath(path)

	if !strings.Contains(pat, "*") {
		return strings.Contains(p, pat)
	}

	parts := strings.Split(pat, "*")
	for i := range parts {
		parts[i] = regexp.QuoteMeta(parts[i])
	}
	re, err := regexp.Compile(strings.Join(parts, ".*"))
	if err != nil {
		return strings.Contains(p, strings.ReplaceAll(pat, "*", ""))
	}
	return re.MatchString(p)
}
