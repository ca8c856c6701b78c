package evidence

import (
	"strings"
	"testing"
)

func TestEstimateTokens(t *testing.T) {
	tests := []struct {
		text string
		want int
	}{
		{"", 0},
		{"a", 1},
		{"abcd", 1},
		{"abcde", 2},
		{strings.Repeat("x", 8), 2},
		{strings.Repeat("x", 9), 3},
		{strings.Repeat("x", 400), 100},
	}

	for _, tt := range tests {
		if got := EstimateTokens(tt.text); got != tt.want {
			t.Errorf("EstimateTokens(len=%d) = %d, want %d", len(tt.text), got, tt.want)
		}
	}
}

func items(tokens ...int) []Evidence {
	out := make([]Evidence, len(tokens))
	for i, n := range tokens {
		out[i] = Evidence{ID: string(rune('a' + i)), Tokens: n}
	}
	return out
}

func TestApplyTokenBudget(t *testing.T) {
	t.Run("zero budget yields empty", func(t *testing.T) {
		if got := ApplyTokenBudget(items(5, 5), 0); len(got) != 0 {
			t.Errorf("got %d items, want 0", len(got))
		}
	})

	t.Run("empty input yields empty", func(t *testing.T) {
		if got := ApplyTokenBudget(nil, 100); len(got) != 0 {
			t.Errorf("got %d items, want 0", len(got))
		}
	})

	t.Run("first candidate kept even when oversized", func(t *testing.T) {
		got := ApplyTokenBudget(items(50), 10)
		if len(got) != 1 {
			t.Fatalf("got %d items, want 1", len(got))
		}
		if got[0].Tokens != 50 {
			t.Errorf("unexpected item kept: %+v", got[0])
		}
	})

	t.Run("oversized first blocks the rest", func(t *testing.T) {
		got := ApplyTokenBudget(items(50, 1), 10)
		if len(got) != 1 {
			t.Errorf("got %d items, want 1", len(got))
		}
	})

	t.Run("walk keeps later items that still fit", func(t *testing.T) {
		got := ApplyTokenBudget(items(6, 5, 4), 10)
		if len(got) != 2 {
			t.Fatalf("got %d items, want 2", len(got))
		}
		if got[0].Tokens != 6 || got[1].Tokens != 4 {
			t.Errorf("unexpected selection: %+v", got)
		}
	})

	t.Run("idempotent", func(t *testing.T) {
		first := ApplyTokenBudget(items(6, 5, 4, 3), 12)
		second := ApplyTokenBudget(first, 12)
		if len(first) != len(second) {
			t.Fatalf("lengths differ: %d vs %d", len(first), len(second))
		}
		for i := range first {
			if first[i].ID != second[i].ID {
				t.Errorf("item %d differs after reapplication", i)
			}
		}
	})

	t.Run("monotone in budget", func(t *testing.T) {
		in := items(6, 5, 4, 3, 2)
		prev := -1
		for _, budget := range []int{1, 3, 5, 8, 11, 15, 21} {
			total := TotalTokens(ApplyTokenBudget(in, budget))
			if prev > total {
				t.Errorf("cumulative tokens dropped as budget grew: budget=%d total=%d prev=%d",
					budget, total, prev)
			}
			prev = total
		}
	})
}

func TestTotalTokens(t *testing.T) {
	if got := TotalTokens(items(3, 4, 5)); got != 12 {
		t.Errorf("TotalTokens = %d, want 12", got)
	}
	if got := TotalTokens(nil); got != 0 {
		t.Errorf("TotalTokens(nil) = %d, want 0", got)
	}
}
