package logging

import (
	"bytes"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/rs/zerolog"
)

// TestFieldHelpers tests the Field constructor functions.
func TestFieldHelpers(t *testing.T) {
	testErr := errors.New("boom")

	tests := []struct {
		name      string
		field     Field
		wantKey   string
		wantValue any
	}{
		{"String", String("key", "value"), "key", "value"},
		{"Int", Int("count", 42), "count", 42},
		{"Int64", Int64("start", -7), "start", int64(-7)},
		{"Uint64", Uint64("n", 12345678901234567890), "n", uint64(12345678901234567890)},
		{"Bool", Bool("ok", true), "ok", true},
		{"Duration", Duration("took", time.Second), "took", time.Second},
		{"Err", Err(testErr), "error", testErr},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if tt.field.Key != tt.wantKey {
				t.Errorf("Key = %q, want %q", tt.field.Key, tt.wantKey)
			}
			if tt.field.Value != tt.wantValue {
				t.Errorf("Value = %v, want %v", tt.field.Value, tt.wantValue)
			}
		})
	}

	t.Run("Err with nil error", func(t *testing.T) {
		if f := Err(nil); f.Key != "error" || f.Value != nil {
			t.Errorf("Err(nil) = %+v", f)
		}
	})
}

// TestNewLogger tests the component-tagged JSON logger.
func TestNewLogger(t *testing.T) {
	var buf bytes.Buffer
	logger := NewLogger(&buf, "test-component")

	logger.Info("hello", Int64("start", 1), Int64("end", 4))
	output := buf.String()

	for _, want := range []string{`"component":"test-component"`, `"message":"hello"`, `"start":1`, `"end":4`} {
		if !strings.Contains(output, want) {
			t.Errorf("output missing %s: %s", want, output)
		}
	}
}

func TestZerologAdapter_Levels(t *testing.T) {
	tests := []struct {
		name  string
		log   func(Logger)
		level string
	}{
		{"debug", func(l Logger) { l.Debug("d") }, `"level":"debug"`},
		{"info", func(l Logger) { l.Info("i") }, `"level":"info"`},
		{"warn", func(l Logger) { l.Warn("w") }, `"level":"warn"`},
		{"error", func(l Logger) { l.Error("e", errors.New("connection refused")) }, `"level":"error"`},
		{"printf", func(l Logger) { l.Printf("sum=%d", 10) }, `"message":"sum=10"`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var buf bytes.Buffer
			logger := NewZerologAdapter(zerolog.New(&buf).Level(zerolog.DebugLevel))
			tt.log(logger)
			if !strings.Contains(buf.String(), tt.level) {
				t.Errorf("expected %s in %s", tt.level, buf.String())
			}
		})
	}
}

func TestZerologAdapter_ErrorIncludesCause(t *testing.T) {
	var buf bytes.Buffer
	logger := NewLogger(&buf, "test")

	logger.Error("task failed", errors.New("timeout"), String("range", "[1,4]"))

	output := buf.String()
	if !strings.Contains(output, "timeout") || !strings.Contains(output, "[1,4]") {
		t.Errorf("unexpected output: %s", output)
	}
}

// TestZerologAdapter_applyFields tests field application with all supported types.
func TestZerologAdapter_applyFields(t *testing.T) {
	tests := []struct {
		name     string
		field    Field
		contains string
	}{
		{"string field", Field{Key: "str", Value: "hello"}, "hello"},
		{"int field", Field{Key: "num", Value: 42}, "42"},
		{"int64 field", Field{Key: "big", Value: int64(9223372036854775807)}, "9223372036854775807"},
		{"uint64 field", Field{Key: "huge", Value: uint64(18446744073709551615)}, "18446744073709551615"},
		{"float64 field", Field{Key: "pi", Value: 3.14}, "3.14"},
		{"error field", Field{Key: "err", Value: errors.New("oops")}, "oops"},
		{"bool field", Field{Key: "flag", Value: true}, "true"},
		{"duration field", Field{Key: "took", Value: 1500 * time.Millisecond}, "took"},
		{"interface field", Field{Key: "data", Value: struct{ X int }{X: 1}}, "1"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var buf bytes.Buffer
			logger := NewLogger(&buf, "test")
			logger.Info("msg", tt.field)
			if !strings.Contains(buf.String(), tt.contains) {
				t.Errorf("applyFields should handle %s, output: %s", tt.name, buf.String())
			}
		})
	}
}

func TestNewConsoleLogger(t *testing.T) {
	var buf bytes.Buffer
	logger := NewConsoleLogger(&buf, "rangesum", zerolog.InfoLevel)

	logger.Debug("hidden")
	logger.Info("Computing..., start: 1, end: 4")

	output := buf.String()
	if strings.Contains(output, "hidden") {
		t.Errorf("debug line should be filtered at info level: %s", output)
	}
	if !strings.Contains(output, "Computing..., start: 1, end: 4") {
		t.Errorf("missing info line: %s", output)
	}
}

func TestNop(t *testing.T) {
	logger := Nop()
	logger.Info("discarded")
	logger.Error("discarded", errors.New("x"))
}

func TestParseLevel(t *testing.T) {
	tests := []struct {
		in      string
		want    zerolog.Level
		wantErr bool
	}{
		{"", zerolog.InfoLevel, false},
		{"debug", zerolog.DebugLevel, false},
		{"warn", zerolog.WarnLevel, false},
		{"loud", zerolog.InfoLevel, true},
	}

	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, err := ParseLevel(tt.in)
			if (err != nil) != tt.wantErr {
				t.Fatalf("ParseLevel(%q) err = %v", tt.in, err)
			}
			if got != tt.want {
				t.Errorf("ParseLevel(%q) = %v, want %v", tt.in, got, tt.want)
			}
		})
	}
}
