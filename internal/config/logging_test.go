package config

import (
	"bytes"
	"encoding/json"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestParseLevel(t *testing.T) {
	tests := []struct {
		in      string
		want    slog.Level
		wantErr bool
	}{
		{"", slog.LevelInfo, false},
		{"DEBUG", slog.LevelDebug, false},
		{"warning", slog.LevelWarn, false},
		{"error", slog.LevelError, false},
		{"verbose", slog.LevelInfo, true},
	}
	for _, tt := range tests {
		got, err := ParseLevel(tt.in)
		if (err != nil) != tt.wantErr {
			t.Errorf("ParseLevel(%q) err = %v, wantErr %v", tt.in, err, tt.wantErr)
		}
		if got != tt.want {
			t.Errorf("ParseLevel(%q) = %v, want %v", tt.in, got, tt.want)
		}
	}
}

func TestFanoutLoggerWritesBoth(t *testing.T) {
	var stdout, file bytes.Buffer
	logger := newFanoutLogger(&stdout, &file, slog.LevelInfo)

	logger.Debug("hidden")
	logger.Info("turn committed", "user_id", "u1")

	for name, buf := range map[string]*bytes.Buffer{"stdout": &stdout, "file": &file} {
		lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
		if len(lines) != 1 {
			t.Fatalf("%s: expected 1 record, got %d: %q", name, len(lines), buf.String())
		}
		var rec map[string]any
		if err := json.Unmarshal([]byte(lines[0]), &rec); err != nil {
			t.Fatalf("%s: invalid JSON: %v", name, err)
		}
		if rec["msg"] != "turn committed" || rec["user_id"] != "u1" {
			t.Fatalf("%s: unexpected record %v", name, rec)
		}
	}
}

func TestSetupLoggerFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "edem.log")
	logger, cleanup := SetupLogger(path, slog.LevelInfo)
	logger.Info("written to file")
	if err := cleanup(); err != nil {
		t.Fatalf("cleanup failed: %v", err)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("read log file: %v", err)
	}
	if !strings.Contains(string(data), "written to file") {
		t.Fatalf("log file missing record: %q", data)
	}
}

func TestSetupLoggerWithoutFile(t *testing.T) {
	logger, cleanup := SetupLogger("", slog.LevelInfo)
	if logger == nil {
		t.Fatal("expected logger")
	}
	if err := cleanup(); err != nil {
		t.Fatalf("cleanup failed: %v", err)
	}
}
