package symbols

import "testing"

func TestLanguageForPath(t *testing.T) {
	tests := []struct {
		path string
		want Language
		ok   bool
	}{
		{"internal/server/handler.go", LangGo, true},
		{"src/app.ts", LangTypeScript, true},
		{"src/App.TSX", LangTSX, true},
		{"lib/util.mjs", LangJavaScript, true},
		{"components/Nav.jsx", LangJavaScript, true},
		{"scripts/deploy.py", LangPython, true},
		{"core/src/lib.rs", LangRust, true},
		{"Main.java", LangJava, true},
		{"app/Build.kts", LangKotlin, true},
		{"README.md", "", false},
		{"Makefile", "", false},
	}

	for _, tt := range tests {
		got, ok := LanguageForPath(tt.path)
		if got != tt.want || ok != tt.ok {
			t.Errorf("LanguageForPath(%q) = (%q, %v), want (%q, %v)", tt.path, got, ok, tt.want, tt.ok)
		}
	}
}

func TestEnclosing(t *testing.T) {
	spans := []Span{
		{Name: "Session", Kind: "type", StartLine: 1, EndLine: 40},
		{Name: "refresh", Kind: "method", StartLine: 10, EndLine: 20},
		{Name: "login", Kind: "function", StartLine: 45, EndLine: 60},
	}

	tests := []struct {
		name string
		line int
		want string
		ok   bool
	}{
		{"innermost wins", 15, "refresh", true},
		{"outer only", 5, "Session", true},
		{"boundary start", 10, "refresh", true},
		{"boundary end", 20, "refresh", true},
		{"second top level", 50, "login", true},
		{"between spans", 42, "", false},
		{"past the end", 99, "", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, ok := Enclosing(spans, tt.line)
			if ok != tt.ok {
				t.Fatalf("Enclosing(%d) ok = %v, want %v", tt.line, ok, tt.ok)
			}
			if ok && got.Name != tt.want {
				t.Errorf("Enclosing(%d) = %q, want %q", tt.line, got.Name, tt.want)
			}
		})
	}
}

func TestEnclosingEmpty(t *testing.T) {
	if _, ok := Enclosing(nil, 10); ok {
		t.Error("Enclosing with no spans should report false")
	}
}
