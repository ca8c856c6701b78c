package retrieval

import (
	"math"

	"ctxrank/internal/evidence"
	"ctxrank/internal/signal"
	"ctxrank/internal/strategy"
)

// signalBonusPoints is the additive score bonus per matched signal.
const signalBonusPoints = 2.5

// ScoredEvidence pairs an evidence item with its composite score.
type ScoredEvidence struct {
	evidence.Evidence
	Score float64 `json:"score"`
}

// compositeScore ranks one evidence item under the effective weights:
// the base score scaled by the item's dimension weight, decayed per
// stack-frame depth for stack-trace evidence, plus a bonus per matched
// signal. Never negative.
func compositeScore(e evidence.Evidence, w strategy.RerankerWeights) float64 {
	weight, decayDepth := effectiveWeight(e, w)
	score := e.BaseScore * weight / 100
	if decayDepth >= 0 {
		score *= math.Pow(1-w.StackDepthDecay, float64(decayDepth))
	}
	score += signalBonusPoints * float64(len(e.MatchedSignals))
	if score < 0 {
		return 0
	}
	return score
}

// effectiveWeight selects the weight dimension for an item. Evidence
// matched by a stack-trace signal scores on the stackFrame dimension and
// decays by the shallowest matched frame depth; decayDepth is -1 when no
// decay applies. Provider types outside the known set score neutrally.
func effectiveWeight(e evidence.Evidence, w strategy.RerankerWeights) (weight float64, decayDepth int) {
	if depth, ok := stackDepth(e.MatchedSignals); ok {
		return w.StackFrame, depth
	}
	switch e.Provider {
	case evidence.TypeDiff:
		return w.Diff, -1
	case evidence.TypeLSP:
		if e.Metadata.Kind == evidence.KindReference {
			return w.Reference, -1
		}
		return w.Definition, -1
	case evidence.TypeSearch:
		if matchedWorkingSet(e.MatchedSignals) {
			return w.WorkingSet, -1
		}
		return w.Keyword, -1
	}
	return 100, -1
}

func stackDepth(signals []signal.Signal) (int, bool) {
	best, found := 0, false
	for _, s := range signals {
		if s.Source != signal.SourceStackTrace {
			continue
		}
		if d := s.Depth(); !found || d < best {
			best, found = d, true
		}
	}
	return best, found
}

func matchedWorkingSet(signals []signal.Signal) bool {
	for _, s := range signals {
		if s.Source == signal.SourceWorkingSet {
			return true
		}
	}
	return false
}
