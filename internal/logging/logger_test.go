package logging

import (
	"bufio"
	"os"
	"path/filepath"
	"testing"

	"github.com/goccy/go-json"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

func TestNewLogger_WritesJSONLines(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "logs")
	log, err := NewLogger(dir, Options{})
	if err != nil {
		t.Fatalf("NewLogger: %v", err)
	}

	log.Info("monitor_start", zap.String("target", "8.8.8.8"))
	log.Debug("dropped_below_level")
	_ = log.Sync()

	f, err := os.Open(filepath.Join(dir, "uptime.log"))
	if err != nil {
		t.Fatalf("log file missing: %v", err)
	}
	defer f.Close()

	var lines []map[string]any
	sc := bufio.NewScanner(f)
	for sc.Scan() {
		var m map[string]any
		if err := json.Unmarshal(sc.Bytes(), &m); err != nil {
			t.Fatalf("line is not JSON: %q", sc.Text())
		}
		lines = append(lines, m)
	}
	if len(lines) != 1 {
		t.Fatalf("lines = %d, want 1", len(lines))
	}
	if lines[0]["msg"] != "monitor_start" || lines[0]["target"] != "8.8.8.8" {
		t.Fatalf("unexpected entry: %v", lines[0])
	}
	if _, ok := lines[0]["ts"]; !ok {
		t.Fatalf("missing ts key: %v", lines[0])
	}
}

func TestNewLogger_LevelAndFileName(t *testing.T) {
	dir := t.TempDir()
	log, err := NewLogger(dir, Options{File: "api.log", Level: zapcore.DebugLevel, Stdout: true})
	if err != nil {
		t.Fatalf("NewLogger: %v", err)
	}
	if !log.Core().Enabled(zapcore.DebugLevel) {
		t.Fatal("debug level not enabled")
	}
	log.Debug("hello")
	_ = log.Sync()
	if _, err := os.Stat(filepath.Join(dir, "api.log")); err != nil {
		t.Fatalf("api.log missing: %v", err)
	}
}
