package logger

import (
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestNewWritesJSONToFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "logs", "plannerd.log")
	log, err := New(Config{Level: "debug", Encoding: "json", File: path})
	if err != nil {
		t.Fatalf("new logger: %v", err)
	}
	log.Debug("reminder fired")
	_ = log.Sync()

	raw, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("read log: %v", err)
	}
	var entry map[string]any
	if err := json.Unmarshal([]byte(strings.TrimSpace(string(raw))), &entry); err != nil {
		t.Fatalf("decode entry %q: %v", raw, err)
	}
	if entry["msg"] != "reminder fired" || entry["timestamp"] == nil {
		t.Fatalf("unexpected entry: %v", entry)
	}
}

func TestNewFallsBackToInfo(t *testing.T) {
	log, err := New(Config{Level: "chatty", Encoding: "console", File: filepath.Join(t.TempDir(), "x.log")})
	if err != nil {
		t.Fatalf("new logger: %v", err)
	}
	if log.Core().Enabled(-1) {
		t.Fatal("debug must be disabled when the level does not parse")
	}
	if !log.Core().Enabled(0) {
		t.Fatal("info must be enabled")
	}
}

func TestOrNop(t *testing.T) {
	if OrNop(nil) == nil {
		t.Fatal("expected a logger")
	}
}
