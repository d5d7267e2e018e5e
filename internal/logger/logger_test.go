package logger

import (
	"bufio"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"go.uber.org/zap/zapcore"

	"github.com/obot-platform/botmaker/internal/config"
)

func TestParseLevel(t *testing.T) {
	tests := []struct {
		in   string
		want zapcore.Level
	}{
		{"debug", zapcore.DebugLevel},
		{"info", zapcore.InfoLevel},
		{"warn", zapcore.WarnLevel},
		{"error", zapcore.ErrorLevel},
		{"", zapcore.InfoLevel},
		{"verbose", zapcore.InfoLevel},
	}

	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			if got := parseLevel(tt.in); got != tt.want {
				t.Errorf("parseLevel(%q) = %v, want %v", tt.in, got, tt.want)
			}
		})
	}
}

func TestNew_JSONFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "server.log")

	log, err := New(config.LoggingConfig{Level: "info", Format: "json", File: path})
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}
	log.Debug("hidden", "k", "v")
	log.With("component", "test").Info("bot generated", "template", "basic")
	_ = log.Close()

	f, err := os.Open(path)
	if err != nil {
		t.Fatalf("open log file: %v", err)
	}
	defer f.Close()

	var lines []map[string]any
	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		var entry map[string]any
		if err := json.Unmarshal(scanner.Bytes(), &entry); err != nil {
			t.Fatalf("log line is not JSON: %q", scanner.Text())
		}
		lines = append(lines, entry)
	}

	if len(lines) != 1 {
		t.Fatalf("got %d log lines, want 1 (debug should be filtered)", len(lines))
	}
	if lines[0]["msg"] != "bot generated" {
		t.Errorf("msg = %v, want %q", lines[0]["msg"], "bot generated")
	}
	if lines[0]["template"] != "basic" {
		t.Errorf("template = %v, want basic", lines[0]["template"])
	}
	if lines[0]["component"] != "test" {
		t.Errorf("component = %v, want test", lines[0]["component"])
	}
}

func TestNop(t *testing.T) {
	log := Nop()
	log.Info("discarded")
	log.Error("discarded", "err", "boom")
}
