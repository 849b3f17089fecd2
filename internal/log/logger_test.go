package log

import (
	"bytes"
	"encoding/json"
	"log/slog"
	"strings"
	"sync"
	"testing"
)

func reset() {
	logger = nil
	once = *new(sync.Once)
}

func TestSetupWriterJSON(t *testing.T) {
	reset()
	defer reset()

	var buf bytes.Buffer
	SetupWriter(&buf, "DEBUG", "json")
	if logger == nil {
		t.Fatal("Logger should not be nil")
	}

	Debug("resolved", "units", 3)

	var out map[string]any
	if err := json.Unmarshal(buf.Bytes(), &out); err != nil {
		t.Fatalf("Failed to decode JSON: %v", err)
	}
	if out["msg"] != "resolved" {
		t.Errorf("Expected msg 'resolved', got %v", out["msg"])
	}
	if out["units"] != float64(3) {
		t.Errorf("Expected units 3, got %v", out["units"])
	}
}

func TestSetupWriterText(t *testing.T) {
	reset()
	defer reset()

	var buf bytes.Buffer
	SetupWriter(&buf, "info", "text")
	Debug("hidden")
	Info("shown")

	s := buf.String()
	if strings.Contains(s, "hidden") {
		t.Errorf("debug line should be filtered at INFO: %q", s)
	}
	if !strings.Contains(s, "msg=shown") {
		t.Errorf("expected text handler output, got %q", s)
	}
}

func TestParseLevel(t *testing.T) {
	tests := map[string]slog.Level{
		"debug":   slog.LevelDebug,
		"WARN":    slog.LevelWarn,
		"error":   slog.LevelError,
		"info":    slog.LevelInfo,
		"verbose": slog.LevelInfo,
		"":        slog.LevelInfo,
	}
	for in, want := range tests {
		if got := ParseLevel(in); got != want {
			t.Errorf("ParseLevel(%q) = %v, want %v", in, got, want)
		}
	}
}

func TestContextHelpers(t *testing.T) {
	tests := []struct {
		name  string
		build func() *slog.Logger
		key   string
		want  any
	}{
		{"component", func() *slog.Logger { return WithComponent("engine") }, "component", "engine"},
		{"module", func() *slog.Logger { return WithModule("graphics") }, "module", "graphics"},
		{"system", func() *slog.Logger { return WithSystem("render_setup") }, "system", "render_setup"},
		{"tick", func() *slog.Logger { return WithTick(nil, 42) }, "tick", float64(42)},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var buf bytes.Buffer
			logger = slog.New(slog.NewJSONHandler(&buf, nil))
			defer reset()

			tt.build().Info("hello")

			var out map[string]any
			if err := json.Unmarshal(buf.Bytes(), &out); err != nil {
				t.Fatalf("Failed to decode JSON: %v", err)
			}
			if out[tt.key] != tt.want {
				t.Errorf("Expected %s %v, got %v", tt.key, tt.want, out[tt.key])
			}
		})
	}
}
