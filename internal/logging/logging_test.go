package logging

import (
	"bytes"
	"log"
	"os"
	"strings"
	"testing"
)

func TestParseLevel(t *testing.T) {
	tests := []struct {
		name     string
		input    string
		expected LogLevel
		ok       bool
	}{
		{name: "debug", input: "debug", expected: LevelDebug, ok: true},
		{name: "info", input: "info", expected: LevelInfo, ok: true},
		{name: "warn", input: "warn", expected: LevelWarn, ok: true},
		{name: "warning alias", input: "warning", expected: LevelWarn, ok: true},
		{name: "error", input: "error", expected: LevelError, ok: true},
		{name: "case insensitive", input: "DEBUG", expected: LevelDebug, ok: true},
		{name: "surrounding space", input: " error ", expected: LevelError, ok: true},
		{name: "unknown falls back to info", input: "loud", expected: LevelInfo, ok: false},
		{name: "empty", input: "", expected: LevelInfo, ok: false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, ok := ParseLevel(tt.input)
			if got != tt.expected || ok != tt.ok {
				t.Errorf("ParseLevel(%q) = (%v, %v), want (%v, %v)", tt.input, got, ok, tt.expected, tt.ok)
			}
		})
	}
}

func TestLogLevelConstants(t *testing.T) {
	if LevelDebug >= LevelInfo {
		t.Error("LevelDebug should be less than LevelInfo")
	}
	if LevelInfo >= LevelWarn {
		t.Error("LevelInfo should be less than LevelWarn")
	}
	if LevelWarn >= LevelError {
		t.Error("LevelWarn should be less than LevelError")
	}
}

func TestLogLevelString(t *testing.T) {
	tests := []struct {
		level    LogLevel
		expected string
	}{
		{LevelDebug, "debug"},
		{LevelInfo, "info"},
		{LevelWarn, "warn"},
		{LevelError, "error"},
		{LogLevel(42), "unknown(42)"},
	}

	for _, tt := range tests {
		if got := tt.level.String(); got != tt.expected {
			t.Errorf("LogLevel(%d).String() = %q, want %q", tt.level, got, tt.expected)
		}
	}
}

func captureOutput(t *testing.T, fn func()) string {
	t.Helper()
	var buf bytes.Buffer
	log.SetOutput(&buf)
	flags := log.Flags()
	log.SetFlags(0)
	defer func() {
		log.SetOutput(os.Stderr)
		log.SetFlags(flags)
	}()
	fn()
	return buf.String()
}

func TestSetLevelFiltersMessages(t *testing.T) {
	original := GetLevel()
	defer SetLevel(original)

	SetLevel(LevelWarn)
	out := captureOutput(t, func() {
		Debug("hidden debug")
		Info("hidden info")
		Warn("visible warn")
		Error("visible error")
	})

	if strings.Contains(out, "hidden") {
		t.Errorf("messages below warn should be filtered, got %q", out)
	}
	if !strings.Contains(out, "[WARN] visible warn") {
		t.Errorf("expected warn line, got %q", out)
	}
	if !strings.Contains(out, "[ERROR] visible error") {
		t.Errorf("expected error line, got %q", out)
	}
}

func TestComponentPrefix(t *testing.T) {
	original := GetLevel()
	defer SetLevel(original)
	SetLevel(LevelDebug)

	c := Component("tasks")
	out := captureOutput(t, func() {
		c.Debug("batch %d", 7)
		c.Error("failed: %s", "boom")
	})

	if !strings.Contains(out, "[DEBUG] tasks: batch 7") {
		t.Errorf("missing component debug line in %q", out)
	}
	if !strings.Contains(out, "[ERROR] tasks: failed: boom") {
		t.Errorf("missing component error line in %q", out)
	}
}
