package signal

import (
	"testing"
)

func TestMatchesPath(t *testing.T) {
	tests := []struct {
		name   string
		signal Signal
		path   string
		want   bool
	}{
		{
			name:   "exact match",
			signal: Signal{Type: TypePath, Value: "src/auth.ts"},
			path:   "src/auth.ts",
			want:   true,
		},
		{
			name:   "suffix match",
			signal: Signal{Type: TypePath, Value: "auth.ts"},
			path:   "src/auth.ts",
			want:   true,
		},
		{
			name:   "substring match",
			signal: Signal{Type: TypePath, Value: "auth"},
			path:   "src/auth/session.ts",
			want:   true,
		},
		{
			name:   "case insensitive",
			signal: Signal{Type: TypePath, Value: "Auth.TS"},
			path:   "src/auth.ts",
			want:   true,
		},
		{
			name:   "backslash normalization",
			signal: Signal{Type: TypePath, Value: "auth.ts"},
			path:   "src\\auth.ts",
			want:   true,
		},
		{
			name:   "no match",
			signal: Signal{Type: TypePath, Value: "billing.ts"},
			path:   "src/auth.ts",
			want:   false,
		},
		{
			name:   "wrong type never matches",
			signal: Signal{Type: TypeSymbol, Value: "auth.ts"},
			path:   "src/auth.ts",
			want:   false,
		},
		{
			name:   "empty value never matches",
			signal: Signal{Type: TypePath, Value: ""},
			path:   "src/auth.ts",
			want:   false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.signal.MatchesPath(tt.path); got != tt.want {
				t.Errorf("MatchesPath(%q) = %v, want %v", tt.path, got, tt.want)
			}
		})
	}
}

func TestMatchesSymbol(t *testing.T) {
	tests := []struct {
		name    string
		value   string
		content string
		want    bool
	}{
		{
			name:    "whole word",
			value:   "handleAuth",
			content: "func handleAuth(w http.ResponseWriter) {",
			want:    true,
		},
		{
			name:    "substring of longer identifier does not match",
			value:   "Auth",
			content: "func handleAuthToken() {",
			want:    false,
		},
		{
			name:    "match at line start",
			value:   "validate",
			content: "validate(input)",
			want:    true,
		},
		{
			name:    "case sensitive",
			value:   "handleauth",
			content: "func handleAuth() {",
			want:    false,
		},
		{
			name:    "dotted symbol",
			value:   "auth.Verify",
			content: "ok := auth.Verify(token)",
			want:    true,
		},
		{
			name:    "absent",
			value:   "refund",
			content: "func handleAuth() {",
			want:    false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := Signal{Type: TypeSymbol, Value: tt.value}
			if got := s.MatchesSymbol(tt.content); got != tt.want {
				t.Errorf("MatchesSymbol(%q in %q) = %v, want %v", tt.value, tt.content, got, tt.want)
			}
		})
	}
}

func TestMatchesErrorToken(t *testing.T) {
	s := Signal{Type: TypeErrorToken, Value: "TypeError"}

	if !s.MatchesErrorToken("caught typeerror in handler") {
		t.Error("error token match should be case-insensitive")
	}
	if !s.MatchesErrorToken("TypeErrorHandler") {
		t.Error("error token match is plain substring, not word boundary")
	}
	if s.MatchesErrorToken("nil pointer dereference") {
		t.Error("absent token should not match")
	}
}

func TestDepth(t *testing.T) {
	tests := []struct {
		name   string
		signal Signal
		want   int
	}{
		{"no metadata", Signal{}, 0},
		{"depth set", Signal{Metadata: map[string]string{"depth": "3"}}, 3},
		{"garbage depth", Signal{Metadata: map[string]string{"depth": "x"}}, 0},
		{"negative depth", Signal{Metadata: map[string]string{"depth": "-2"}}, 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.signal.Depth(); got != tt.want {
				t.Errorf("Depth() = %d, want %d", got, tt.want)
			}
		})
	}
}

func TestDedup(t *testing.T) {
	in := []Signal{
		{Type: TypePath, Value: "a.go", Confidence: 0.5},
		{Type: TypeSymbol, Value: "a.go", Confidence: 0.6},
		{Type: TypePath, Value: "a.go", Confidence: 0.9, Source: SourceStackTrace},
		{Type: TypePath, Value: "b.go", Confidence: 0.4},
	}

	out := Dedup(in)

	if len(out) != 3 {
		t.Fatalf("len = %d, want 3", len(out))
	}
	if out[0].Confidence != 0.9 || out[0].Source != SourceStackTrace {
		t.Errorf("dedup should keep the higher-confidence copy, got %+v", out[0])
	}
	if out[1].Type != TypeSymbol {
		t.Errorf("same value under a different type is a distinct signal")
	}
	if out[2].Value != "b.go" {
		t.Errorf("order should be preserved, got %+v", out[2])
	}
}

func TestFilter(t *testing.T) {
	in := []Signal{
		{Type: TypePath, Value: "a.go"},
		{Type: TypeSymbol, Value: "Run"},
		{Type: TypeErrorToken, Value: "TypeError"},
	}

	got := Filter(in, TypePath, TypeSymbol)
	if len(got) != 2 {
		t.Fatalf("len = %d, want 2", len(got))
	}
	if got[0].Type != TypePath || got[1].Type != TypeSymbol {
		t.Errorf("unexpected filter result: %+v", got)
	}

	if all := Filter(in); len(all) != 3 {
		t.Errorf("empty allowed set should pass everything, got %d", len(all))
	}
}
