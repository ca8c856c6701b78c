// Package signal defines the typed facts the engine extracts from task
// text and the surrounding environment. Signals drive provider queries
// and evidence scoring; they are immutable once constructed.
package signal

import (
	"regexp"
	"strconv"
	"strings"
)

// Type identifies what kind of fact a signal carries
type Type string

const (
	// TypePath is a file path mentioned by the user or environment
	TypePath Type = "path"
	// TypeSymbol is a code symbol name
	TypeSymbol Type = "symbol"
	// TypeErrorToken is an error class or panic marker
	TypeErrorToken Type = "error_token"
)

// Provenance labels for Signal.Source.
const (
	SourceTaskText   = "task_text"
	SourceWorkingSet = "working_set"
	SourceStackTrace = "stack_trace"
)

// Signal is a single typed fact with provenance and confidence.
type Signal struct {
	Type       Type              `json:"type"`
	Value      string            `json:"value"`
	Source     string            `json:"source"`
	Confidence float64           `json:"confidence"`
	Metadata   map[string]string `json:"metadata,omitempty"`
}

// TaskContext carries situational flags supplied by the caller alongside
// the task text: whether an error is on screen, the raw error text, whether
// the active file is a test, and the recently touched files.
type TaskContext struct {
	ErrorPresent bool     `json:"errorPresent,omitempty"`
	ErrorText    string   `json:"errorText,omitempty"`
	TestFile     bool     `json:"testFile,omitempty"`
	RecentFiles  []string `json:"recentFiles,omitempty"`
}

// IsZero reports whether no context flag is set.
func (tc TaskContext) IsZero() bool {
	return !tc.ErrorPresent && tc.ErrorText == "" && !tc.TestFile && len(tc.RecentFiles) == 0
}

// Depth returns the stack-frame depth recorded for stack-trace signals,
// or 0 when absent.
func (s Signal) Depth() int {
	if s.Metadata == nil {
		return 0
	}
	d, err := strconv.Atoi(s.Metadata["depth"])
	if err != nil || d < 0 {
		return 0
	}
	return d
}

// NormalizePath converts a path to the canonical matching form:
// forward slashes, lowercased.
func NormalizePath(p string) string {
	return strings.ToLower(strings.ReplaceAll(p, "\\", "/"))
}

// MatchesPath reports whether a path signal matches the given file path.
// The path is compared in normalized form: exact match, a path ending in
// "/<value>", or the value appearing anywhere as a substring.
func (s Signal) MatchesPath(path string) bool {
	if s.Type != TypePath {
		return false
	}
	p := NormalizePath(path)
	v := NormalizePath(s.Value)
	if v == "" {
		return false
	}
	if p == v {
		return true
	}
	if strings.HasSuffix(p, "/"+v) {
		return true
	}
	return strings.Contains(p, v)
}

// MatchesSymbol reports whether a symbol signal occurs in content on a
// word boundary. Plain substring hits inside longer identifiers do not
// count.
func (s Signal) MatchesSymbol(content string) bool {
	if s.Type != TypeSymbol || s.Value == "" {
		return false
	}
	return wordBoundaryMatch(content, s.Value)
}

// MatchesErrorToken reports whether an error-token signal occurs in
// content as a case-insensitive substring.
func (s Signal) MatchesErrorToken(content string) bool {
	if s.Type != TypeErrorToken || s.Value == "" {
		return false
	}
	return strings.Contains(strings.ToLower(content), strings.ToLower(s.Value))
}

func wordBoundaryMatch(content, word string) bool {
	re, err := regexp.Compile(`\b` + regexp.QuoteMeta(word) + `\b`)
	if err != nil {
		return strings.Contains(content, word)
	}
	return re.MatchString(content)
}

// Dedup removes duplicate (type, value) pairs, keeping the highest
// confidence occurrence and preserving first-seen order.
func Dedup(signals []Signal) []Signal {
	type key struct {
		t Type
		v string
	}
	best := make(map[key]int, len(signals))
	out := make([]Signal, 0, len(signals))
	for _, s := range signals {
		k := key{s.Type, s.Value}
		if i, ok := best[k]; ok {
			if s.Confidence > out[i].Confidence {
				out[i] = s
			}
			continue
		}
		best[k] = len(out)
		out = append(out, s)
	}
	return out
}

// Filter returns the signals whose type is in the allowed set. A nil or
// empty set allows everything.
func Filter(signals []Signal, allowed ...Type) []Signal {
	if len(allowed) == 0 {
		return signals
	}
	out := make([]Signal, 0, len(signals))
	for _, s := range signals {
		for _, t := range allowed {
			if s.Type == t {
				out = append(out, s)
				break
			}
		}
	}
	return out
}
