package evidence

import (
	"testing"
)

func TestMatchesFilters(t *testing.T) {
	tests := []struct {
		name    string
		path    string
		include []string
		exclude []string
		want    bool
	}{
		{
			name: "no patterns admits everything",
			path: "src/auth.ts",
			want: true,
		},
		{
			name:    "plain substring include",
			path:    "src/auth/session.ts",
			include: []string{"auth"},
			want:    true,
		},
		{
			name:    "include miss",
			path:    "src/billing.ts",
			include: []string{"auth"},
			want:    false,
		},
		{
			name:    "case insensitive",
			path:    "src/Auth.TS",
			include: []string{"auth.ts"},
			want:    true,
		},
		{
			name:    "wildcard suffix",
			path:    "src/foo.test.ts",
			include: []string{"*.test.ts"},
			want:    true,
		},
		{
			name:    "wildcard directory",
			path:    "src/api/routes.go",
			include: []string{"src/*"},
			want:    true,
		},
		{
			name:    "wildcard middle",
			path:    "internal/providers/diff/provider.go",
			include: []string{"providers/*/provider.go"},
			want:    true,
		},
		{
			name:    "exclude wins over include",
			path:    "src/auth.test.ts",
			include: []string{"auth"},
			exclude: []string{"*.test.ts"},
			want:    false,
		},
		{
			name:    "exclude alone",
			path:    "vendor/lib.go",
			exclude: []string{"vendor/"},
			want:    false,
		},
		{
			name:    "backslash path normalized",
			path:    "src\\auth.ts",
			include: []string{"src/auth"},
			want:    true,
		},
		{
			name:    "empty pattern matches nothing",
			path:    "src/auth.ts",
			include: []string{""},
			want:    false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := MatchesFilters(tt.path, tt.include, tt.exclude)
			if got != tt.want {
				t.Errorf("MatchesFilters(%q, %v, %v) = %v, want %v",
					tt.path, tt.include, tt.exclude, got, tt.want)
			}
		})
	}
}
