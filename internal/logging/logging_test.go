package logging

import (
	"bytes"
	"context"
	"encoding/json"
	"strings"
	"testing"
	"time"
)

// captureLogOutput redirects the global logger to a buffer at debug level
// for the duration of f.
func captureLogOutput(f func()) string {
	var buf bytes.Buffer

	oldLogger := defaultLogger
	Init(&buf, LevelDebug, FormatJSON)

	f()

	defaultLogger = oldLogger
	return buf.String()
}

// decodeLine parses a single JSON log line.
func decodeLine(t *testing.T, line string) map[string]any {
	t.Helper()
	var m map[string]any
	if err := json.Unmarshal([]byte(strings.TrimSpace(line)), &m); err != nil {
		t.Fatalf("log line is not JSON: %q: %v", line, err)
	}
	return m
}

func TestInit(t *testing.T) {
	tests := []struct {
		name     string
		level    Level
		format   Format
		logDebug bool
		logInfo  bool
		wantJSON bool
	}{
		{"debug json", LevelDebug, FormatJSON, true, true, true},
		{"info json", LevelInfo, FormatJSON, false, true, true},
		{"warn text", LevelWarn, FormatText, false, false, false},
		{"error text", LevelError, FormatText, false, false, false},
		{"invalid level defaults to info", Level(999), FormatJSON, false, true, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var buf bytes.Buffer
			Init(&buf, tt.level, tt.format)
			defer InitLogger(LevelInfo, FormatText)

			Debug("debug-msg")
			InfoContext(context.Background(), "info-msg")

			out := buf.String()
			if got := strings.Contains(out, "debug-msg"); got != tt.logDebug {
				t.Errorf("debug logged = %v, want %v", got, tt.logDebug)
			}
			if got := strings.Contains(out, "info-msg"); got != tt.logInfo {
				t.Errorf("info logged = %v, want %v", got, tt.logInfo)
			}
			if tt.logInfo {
				if got := strings.HasPrefix(out, "{"); got != tt.wantJSON {
					t.Errorf("json output = %v, want %v: %q", got, tt.wantJSON, out)
				}
			}
		})
	}
}

func TestInit_TimestampFormat(t *testing.T) {
	var buf bytes.Buffer
	Init(&buf, LevelInfo, FormatJSON)
	defer InitLogger(LevelInfo, FormatText)

	InfoContext(context.Background(), "stamp")
	m := decodeLine(t, buf.String())
	ts, ok := m["time"].(string)
	if !ok {
		t.Fatalf("time attribute missing: %v", m)
	}
	if _, err := time.Parse(time.RFC3339, ts); err != nil {
		t.Errorf("time %q is not RFC 3339: %v", ts, err)
	}
}

func TestParseLevel(t *testing.T) {
	tests := []struct {
		in      string
		want    Level
		wantErr bool
	}{
		{"debug", LevelDebug, false},
		{"INFO", LevelInfo, false},
		{"", LevelInfo, false},
		{" warn ", LevelWarn, false},
		{"warning", LevelWarn, false},
		{"error", LevelError, false},
		{"trace", LevelInfo, true},
	}

	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, err := ParseLevel(tt.in)
			if got != tt.want || (err != nil) != tt.wantErr {
				t.Errorf("ParseLevel(%q) = %v, %v; want %v, err=%v", tt.in, got, err, tt.want, tt.wantErr)
			}
		})
	}
}

func TestParseFormat(t *testing.T) {
	tests := []struct {
		in      string
		want    Format
		wantErr bool
	}{
		{"json", FormatJSON, false},
		{"JSON", FormatJSON, false},
		{"text", FormatText, false},
		{"", FormatText, false},
		{"logfmt", FormatText, true},
	}

	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, err := ParseFormat(tt.in)
			if got != tt.want || (err != nil) != tt.wantErr {
				t.Errorf("ParseFormat(%q) = %v, %v; want %v, err=%v", tt.in, got, err, tt.want, tt.wantErr)
			}
		})
	}
}

func TestGetRunID(t *testing.T) {
	tests := []struct {
		name     string
		ctx      context.Context
		expected string
	}{
		{
			name:     "Context with run ID",
			ctx:      WithRunID(context.Background(), "run-1"),
			expected: "run-1",
		},
		{
			name:     "Context without run ID",
			ctx:      context.Background(),
			expected: "",
		},
		{
			name:     "Context with wrong type value",
			ctx:      context.WithValue(context.Background(), RunIDKey, 12345),
			expected: "",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := GetRunID(tt.ctx); got != tt.expected {
				t.Errorf("GetRunID() = %q, want %q", got, tt.expected)
			}
		})
	}
}

func TestContextLoggingFunctions(t *testing.T) {
	ctx := WithRunID(context.Background(), "test-run-id")

	tests := []struct {
		name string
		fn   func()
	}{
		{"InfoContext", func() { InfoContext(ctx, "info message", "key", "value") }},
		{"WarnContext", func() { WarnContext(ctx, "warning message", "key", "value") }},
		{"ErrorContext", func() { ErrorContext(ctx, "error message", "key", "value") }},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			output := captureLogOutput(tt.fn)
			if !strings.Contains(output, "test-run-id") {
				t.Errorf("Expected output to contain run ID: %q", output)
			}
		})
	}
}

func TestLoggingFunctions(t *testing.T) {
	tests := []struct {
		name  string
		fn    func()
		level string
	}{
		{"Debug", func() { Debug("debug message") }, "DEBUG"},
		{"InfoContext", func() { InfoContext(context.Background(), "info message") }, "INFO"},
		{"WarnContext", func() { WarnContext(context.Background(), "warning message") }, "WARN"},
		{"Error", func() { Error("error message") }, "ERROR"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			m := decodeLine(t, captureLogOutput(tt.fn))
			if m["level"] != tt.level {
				t.Errorf("level = %v, want %s", m["level"], tt.level)
			}
		})
	}
}

func TestConversionEvents(t *testing.T) {
	ctx := WithRunID(context.Background(), "run-42")

	t.Run("ConversionStarted", func(t *testing.T) {
		m := decodeLine(t, captureLogOutput(func() {
			ConversionStarted(ctx, "King James Version", "data/input_bible.json")
		}))
		if m["msg"] != "conversion_started" || m["translation"] != "King James Version" || m["run_id"] != "run-42" {
			t.Errorf("record = %v", m)
		}
	})

	t.Run("BookNormalized", func(t *testing.T) {
		m := decodeLine(t, captureLogOutput(func() { BookNormalized("Psalm", "Psalms") }))
		if m["msg"] != "book_normalized" || m["from"] != "Psalm" || m["to"] != "Psalms" || m["level"] != "DEBUG" {
			t.Errorf("record = %v", m)
		}
	})

	t.Run("BookUnrecognized", func(t *testing.T) {
		m := decodeLine(t, captureLogOutput(func() { BookUnrecognized("Enoch", 3) }))
		if m["msg"] != "book_unrecognized" || m["book"] != "Enoch" || m["book_number"] != float64(3) || m["level"] != "WARN" {
			t.Errorf("record = %v", m)
		}
	})

	t.Run("BookDuplicated", func(t *testing.T) {
		m := decodeLine(t, captureLogOutput(func() { BookDuplicated("Psalms", 19) }))
		if m["msg"] != "book_duplicated" || m["book"] != "Psalms" || m["book_number"] != float64(19) || m["level"] != "WARN" {
			t.Errorf("record = %v", m)
		}
	})

	t.Run("ConversionFinished", func(t *testing.T) {
		m := decodeLine(t, captureLogOutput(func() {
			ConversionFinished(ctx, 66, 1189, 31102, 1500*time.Millisecond, "unrecognized", 0)
		}))
		if m["verses"] != float64(31102) || m["duration_ms"] != float64(1500) || m["unrecognized"] != float64(0) {
			t.Errorf("record = %v", m)
		}
	})

	t.Run("ArtifactWritten", func(t *testing.T) {
		m := decodeLine(t, captureLogOutput(func() {
			ArtifactWritten(ctx, "json", "out.json", 1024, "blake3", "abc")
		}))
		if m["msg"] != "artifact_written" || m["kind"] != "json" || m["size_bytes"] != float64(1024) || m["blake3"] != "abc" {
			t.Errorf("record = %v", m)
		}
	})

	t.Run("ArtifactPublished", func(t *testing.T) {
		m := decodeLine(t, captureLogOutput(func() {
			ArtifactPublished(ctx, "bibles", "kjv/out.json", 2048)
		}))
		if m["msg"] != "artifact_published" || m["bucket"] != "bibles" || m["key"] != "kjv/out.json" {
			t.Errorf("record = %v", m)
		}
	})
}
