package evidence

// EstimateTokens estimates the token cost of a text using the 4-chars-
// per-token heuristic, rounded up.
func EstimateTokens(text string) int {
	if len(text) == 0 {
		return 0
	}
	return (len(text) + 3) / 4
}

// ApplyTokenBudget trims items to fit budget, walking the list in order
// and keeping each item whose tokens still fit. The first candidate is
// kept even when it alone exceeds a positive budget, so a non-empty
// input never trims to nothing. A non-positive budget yields an empty
// result.
func ApplyTokenBudget(items []Evidence, budget int) []Evidence {
	if budget <= 0 || len(items) == 0 {
		return nil
	}

	out := make([]Evidence, 0, len(items))
	total := 0
	for i, e := range items {
		if i == 0 && e.Tokens > budget {
			out = append(out, e)
			total += e.Tokens
			continue
		}
		if total+e.Tokens <= budget {
			out = append(out, e)
			total += e.Tokens
		}
	}
	return out
}

// TotalTokens sums the token estimates of a result list.
func TotalTokens(items []Evidence) int {
	total := 0
	for _, e := range items {
		total += e.Tokens
	}
	return total
}
