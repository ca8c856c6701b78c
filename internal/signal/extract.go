package signal

import (
	"regexp"
	"strconv"
	"strings"
)

var (
	backtickRe  = regexp.MustCompile("`([^`]+)`")
	fileTokenRe = regexp.MustCompile(`^[\w-]+(?:\.[\w-]+)*\.[A-Za-z]{1,5}$`)
	errClassRe  = regexp.MustCompile(`^[A-Z][A-Za-z]*(?:Error|Exception)$`)
	camelFlipRe = regexp.MustCompile(`[a-z][A-Z]`)
	identRe     = regexp.MustCompile(`^[A-Za-z][A-Za-z0-9_]*$`)
	snakeRe     = regexp.MustCompile(`^[a-z][a-z0-9]*(?:_[a-z0-9]+)+$`)
	frameRe     = regexp.MustCompile(`([\w./\\-]+\.[A-Za-z]{1,5}):(\d+)`)
	traceErrRe  = regexp.MustCompile(`\b([A-Z][A-Za-z]*(?:Error|Exception))\b`)
)

const tokenCutset = ".,;:!?()[]{}<>\"'"

// Extract derives signals from free-form task text and the situational
// context. Used by the orchestrator when the caller supplies no explicit
// signal set, and by the CLI.
func Extract(task string, tc TaskContext) []Signal {
	var out []Signal

	for _, m := range backtickRe.FindAllStringSubmatch(task, -1) {
		out = append(out, Signal{
			Type:       TypeSymbol,
			Value:      m[1],
			Source:     SourceTaskText,
			Confidence: 0.9,
		})
	}

	for _, raw := range strings.Fields(task) {
		if raw == "panic:" {
			out = append(out, Signal{
				Type:       TypeErrorToken,
				Value:      "panic",
				Source:     SourceTaskText,
				Confidence: 0.9,
			})
			continue
		}

		tok := strings.Trim(raw, tokenCutset)
		if tok == "" || strings.Contains(tok, "`") {
			continue
		}

		switch {
		case errClassRe.MatchString(tok):
			out = append(out, Signal{
				Type:       TypeErrorToken,
				Value:      tok,
				Source:     SourceTaskText,
				Confidence: 0.9,
			})
		case strings.Contains(tok, "/"):
			out = append(out, Signal{
				Type:       TypePath,
				Value:      tok,
				Source:     SourceTaskText,
				Confidence: 0.8,
			})
		case fileTokenRe.MatchString(tok):
			out = append(out, Signal{
				Type:       TypePath,
				Value:      tok,
				Source:     SourceTaskText,
				Confidence: 0.8,
			})
		case identRe.MatchString(tok) && camelFlipRe.MatchString(tok):
			out = append(out, Signal{
				Type:       TypeSymbol,
				Value:      tok,
				Source:     SourceTaskText,
				Confidence: 0.6,
			})
		case snakeRe.MatchString(tok):
			out = append(out, Signal{
				Type:       TypeSymbol,
				Value:      tok,
				Source:     SourceTaskText,
				Confidence: 0.6,
			})
		}
	}

	for _, f := range tc.RecentFiles {
		if f == "" {
			continue
		}
		out = append(out, Signal{
			Type:       TypePath,
			Value:      f,
			Source:     SourceWorkingSet,
			Confidence: 0.5,
		})
	}

	out = append(out, extractTrace(tc.ErrorText)...)

	return Dedup(out)
}

// extractTrace parses error text line by line: the first recognizable
// error class becomes an error_token signal, and each file:line frame
// becomes a path signal carrying its frame depth.
func extractTrace(text string) []Signal {
	if text == "" {
		return nil
	}

	var out []Signal
	if m := traceErrRe.FindStringSubmatch(text); m != nil {
		out = append(out, Signal{
			Type:       TypeErrorToken,
			Value:      m[1],
			Source:     SourceStackTrace,
			Confidence: 0.95,
		})
	}

	depth := 0
	for _, line := range strings.Split(text, "\n") {
		m := frameRe.FindStringSubmatch(line)
		if m == nil {
			continue
		}
		conf := 0.9 - 0.1*float64(depth)
		if conf < 0.3 {
			conf = 0.3
		}
		out = append(out, Signal{
			Type:       TypePath,
			Value:      m[1],
			Source:     SourceStackTrace,
			Confidence: conf,
			Metadata:   map[string]string{"depth": strconv.Itoa(depth)},
		})
		depth++
	}
	return out
}
