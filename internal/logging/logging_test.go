package logging

import (
	"bytes"
	"encoding/json"
	"strings"
	"testing"
)

func TestNewLogger(t *testing.T) {
	t.Run("with default output", func(t *testing.T) {
		logger := NewLogger(Config{Level: LevelInfo})
		if logger == nil {
			t.Fatal("NewLogger returned nil")
		}
	})

	t.Run("with custom output", func(t *testing.T) {
		buf := &bytes.Buffer{}
		logger := NewLogger(Config{Level: LevelInfo, Output: buf})
		if logger.writer != buf {
			t.Error("logger should use provided output writer")
		}
	})
}

func TestLevelFiltering(t *testing.T) {
	tests := []struct {
		name      string
		configLvl Level
		logLvl    Level
		shouldLog bool
	}{
		{"debug logs debug", LevelDebug, LevelDebug, true},
		{"debug logs error", LevelDebug, LevelError, true},
		{"info skips debug", LevelInfo, LevelDebug, false},
		{"info logs info", LevelInfo, LevelInfo, true},
		{"warn skips info", LevelWarn, LevelInfo, false},
		{"warn logs warn", LevelWarn, LevelWarn, true},
		{"error skips warn", LevelError, LevelWarn, false},
		{"error logs error", LevelError, LevelError, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			buf := &bytes.Buffer{}
			logger := NewLogger(Config{Level: tt.configLvl, Output: buf})

			logger.log(tt.logLvl, "test message", nil)

			hasOutput := buf.Len() > 0
			if hasOutput != tt.shouldLog {
				t.Errorf("shouldLog = %v, but hasOutput = %v", tt.shouldLog, hasOutput)
			}
		})
	}
}

func TestParseLevel(t *testing.T) {
	tests := []struct {
		in   string
		want Level
	}{
		{"debug", LevelDebug},
		{"info", LevelInfo},
		{"", LevelInfo},
		{"warn", LevelWarn},
		{"warning", LevelWarn},
		{"ERROR", LevelError},
		{"  Info ", LevelInfo},
		{"bogus", LevelInfo},
	}

	for _, tt := range tests {
		if got := ParseLevel(tt.in); got != tt.want {
			t.Errorf("ParseLevel(%q) = %v, want %v", tt.in, got, tt.want)
		}
	}
}

func TestJSONFormat(t *testing.T) {
	buf := &bytes.Buffer{}
	logger := NewLogger(Config{
		Level:     LevelInfo,
		Format:    JSONFormat,
		Component: "retrieval",
		Output:    buf,
	})

	logger.Info("test message", Fields{
		"count": 42,
		"name":  "test",
	})

	var e map[string]interface{}
	if err := json.Unmarshal(buf.Bytes(), &e); err != nil {
		t.Fatalf("output is not valid JSON: %v\noutput: %s", err, buf.String())
	}

	if e["level"] != "info" {
		t.Errorf("level = %v, want 'info'", e["level"])
	}
	if e["component"] != "retrieval" {
		t.Errorf("component = %v, want 'retrieval'", e["component"])
	}
	if e["message"] != "test message" {
		t.Errorf("message = %v, want 'test message'", e["message"])
	}
	if e["timestamp"] == nil {
		t.Error("timestamp should be present")
	}

	fields, ok := e["fields"].(map[string]interface{})
	if !ok {
		t.Fatal("fields should be a map")
	}
	if fields["count"] != float64(42) { // JSON numbers are float64
		t.Errorf("fields.count = %v, want 42", fields["count"])
	}
}

func TestHumanFormat(t *testing.T) {
	buf := &bytes.Buffer{}
	logger := NewLogger(Config{
		Level:  LevelInfo,
		Format: HumanFormat,
		Output: buf,
	})

	logger.Info("human readable", Fields{
		"key": "value",
	})

	output := buf.String()
	if !strings.Contains(output, "[info]") {
		t.Errorf("output should contain '[info]', got: %s", output)
	}
	if !strings.Contains(output, "human readable") {
		t.Errorf("output should contain message, got: %s", output)
	}
	if !strings.Contains(output, "key=value") {
		t.Errorf("output should contain field, got: %s", output)
	}
}

func TestHumanFormatNoFields(t *testing.T) {
	buf := &bytes.Buffer{}
	logger := NewLogger(Config{
		Level:  LevelInfo,
		Format: HumanFormat,
		Output: buf,
	})

	logger.Info("no fields", nil)

	if strings.Contains(buf.String(), "|") {
		t.Errorf("output without fields should not contain '|', got: %s", buf.String())
	}
}

func TestHumanFormatFieldsSorted(t *testing.T) {
	buf := &bytes.Buffer{}
	logger := NewLogger(Config{
		Level:  LevelInfo,
		Format: HumanFormat,
		Output: buf,
	})

	logger.Info("test", Fields{"c": 3, "a": 1, "b": 2})

	output := buf.String()
	ai := strings.Index(output, "a=1")
	bi := strings.Index(output, "b=2")
	ci := strings.Index(output, "c=3")
	if ai < 0 || bi < 0 || ci < 0 {
		t.Fatalf("missing fields in output: %s", output)
	}
	if !(ai < bi && bi < ci) {
		t.Errorf("fields should be key-sorted, got: %s", output)
	}
}

func TestWithComponent(t *testing.T) {
	buf := &bytes.Buffer{}
	base := NewLogger(Config{Level: LevelInfo, Format: HumanFormat, Output: buf})

	scoped := base.WithComponent("diff")
	scoped.Info("probe", nil)

	if !strings.Contains(buf.String(), "diff:") {
		t.Errorf("output should contain component tag, got: %s", buf.String())
	}

	buf.Reset()
	base.Info("plain", nil)
	if strings.Contains(buf.String(), "diff:") {
		t.Errorf("base logger should be unchanged, got: %s", buf.String())
	}
}

func TestNop(t *testing.T) {
	logger := Nop()
	logger.Error("dropped", Fields{"k": "v"})
}
