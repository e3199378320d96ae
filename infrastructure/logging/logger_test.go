package logging

import (
	"bytes"
	"context"
	"encoding/json"
	"strings"
	"testing"
	"time"
)

func TestNew(t *testing.T) {
	tests := []struct {
		name   string
		level  string
		format string
	}{
		{"json format", "debug", "json"},
		{"text format", "info", "text"},
		{"invalid level falls back to info", "nope", "json"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			logger := New("kernel", tt.level, tt.format)
			if logger == nil {
				t.Fatal("New() returned nil")
			}
			if logger.component != "kernel" {
				t.Errorf("component = %q, want kernel", logger.component)
			}
		})
	}
}

func TestWithContext(t *testing.T) {
	var buf bytes.Buffer
	logger := New("kernel", "debug", "json")
	logger.SetOutput(&buf)

	ctx := context.Background()
	ctx = WithRunID(ctx, "run-123")
	ctx = WithSpeaker(ctx, "Alice")
	ctx = WithSpeakerID(ctx, 1)

	logger.WithContext(ctx).Info("hello")

	var record map[string]interface{}
	if err := json.Unmarshal(buf.Bytes(), &record); err != nil {
		t.Fatalf("output is not JSON: %v", err)
	}
	if record["run_id"] != "run-123" {
		t.Errorf("run_id = %v, want run-123", record["run_id"])
	}
	if record["speaker"] != "Alice" {
		t.Errorf("speaker = %v, want Alice", record["speaker"])
	}
	if record["component"] != "kernel" {
		t.Errorf("component = %v, want kernel", record["component"])
	}
}

func TestContextHelpers(t *testing.T) {
	ctx := context.Background()

	if got := GetRunID(ctx); got != "" {
		t.Errorf("GetRunID on empty context = %q, want empty", got)
	}
	if got := GetSpeakerID(ctx); got != -1 {
		t.Errorf("GetSpeakerID on empty context = %d, want -1", got)
	}

	ctx = WithRunID(ctx, "abc")
	ctx = WithSpeakerID(ctx, 7)

	if got := GetRunID(ctx); got != "abc" {
		t.Errorf("GetRunID = %q, want abc", got)
	}
	if got := GetSpeakerID(ctx); got != 7 {
		t.Errorf("GetSpeakerID = %d, want 7", got)
	}
}

func TestNewRunID(t *testing.T) {
	a := NewRunID()
	b := NewRunID()
	if a == "" || b == "" {
		t.Fatal("NewRunID returned empty string")
	}
	if a == b {
		t.Errorf("NewRunID produced duplicates: %s", a)
	}
}

func TestLogBreak(t *testing.T) {
	var buf bytes.Buffer
	logger := New("kernel", "warn", "json")
	logger.SetOutput(&buf)

	logger.LogBreak(context.Background(), "write_violation", "write_ownership_violation")

	out := buf.String()
	if !strings.Contains(out, "write_ownership_violation") {
		t.Errorf("break reason missing from output: %s", out)
	}
	if !strings.Contains(out, "kernel break") {
		t.Errorf("message missing from output: %s", out)
	}
}

func TestLogEvaluationBelowLevel(t *testing.T) {
	var buf bytes.Buffer
	logger := New("kernel", "info", "json")
	logger.SetOutput(&buf)

	logger.LogEvaluation(context.Background(), 3, "active", 2*time.Millisecond)

	if buf.Len() != 0 {
		t.Errorf("debug-level evaluation logged at info level: %s", buf.String())
	}
}

func TestDefault(t *testing.T) {
	defaultLogger = nil
	logger := Default()
	if logger == nil {
		t.Fatal("Default() returned nil")
	}

	InitDefault("bridge", "debug", "json")
	if Default().component != "bridge" {
		t.Errorf("component = %q, want bridge", Default().component)
	}
}
