package logging

import (
	"bytes"
	"log/slog"
	"strings"
	"testing"

	"github.com/matmuruaga/sales-advisor-app-sub002/internal/config"
)

func TestNew_JSONRespectsLevel(t *testing.T) {
	prev := slog.Default()
	t.Cleanup(func() { slog.SetDefault(prev) })

	buf := &bytes.Buffer{}
	logger := newWithWriter(config.LogConfig{Level: "warn", Format: "json"}, buf)

	logger.Info("hidden")
	logger.Warn("visible", "org_id", "org-1")

	out := buf.String()
	if strings.Contains(out, "hidden") {
		t.Fatalf("info line should be filtered at warn level: %s", out)
	}
	if !strings.Contains(out, `"msg":"visible"`) || !strings.Contains(out, `"org_id":"org-1"`) {
		t.Fatalf("expected json warn line, got %s", out)
	}
}

func TestParseLevel(t *testing.T) {
	tests := map[string]slog.Level{
		"debug":   slog.LevelDebug,
		" WARN ":  slog.LevelWarn,
		"warning": slog.LevelWarn,
		"error":   slog.LevelError,
		"":        slog.LevelInfo,
		"verbose": slog.LevelInfo,
	}
	for input, want := range tests {
		if got := parseLevel(input); got != want {
			t.Fatalf("parseLevel(%q) = %v, want %v", input, got, want)
		}
	}
}
