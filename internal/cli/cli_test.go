package cli

import (
	"bytes"
	"context"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/sandeepkv93/plannerd/internal/commands"
	"github.com/sandeepkv93/plannerd/internal/deps"
	"github.com/sandeepkv93/plannerd/internal/model"
	"github.com/sandeepkv93/plannerd/internal/storage"
)

func TestPreviewRuleStopsAtTimes(t *testing.T) {
	var out bytes.Buffer
	series := commands.RemindArgs{When: "2024-01-15T09:00", Title: "preview", Every: "weekly:mon", Times: 3}
	now := time.Date(2024, 1, 10, 12, 0, 0, 0, time.UTC)

	if err := previewRule(&out, series, now, 10); err != nil {
		t.Fatalf("previewRule failed: %v", err)
	}

	lines := strings.Split(strings.TrimSpace(out.String()), "\n")
	if len(lines) != 4 {
		t.Fatalf("expected header and 3 occurrences, got:\n%s", out.String())
	}
	if lines[0] != "weekly:mon (times:3)" {
		t.Errorf("unexpected header %q", lines[0])
	}
	for i, day := range []string{"2024-01-15", "2024-01-22", "2024-01-29"} {
		if !strings.Contains(lines[i+1], day+" 09:00") {
			t.Errorf("line %d = %q, want %s", i+1, lines[i+1], day)
		}
	}
}

func TestPreviewRuleRejectsUntilAndTimes(t *testing.T) {
	series := commands.RemindArgs{Every: "daily", Until: "2024-02-01", Times: 2}
	if err := previewRule(&bytes.Buffer{}, series, time.Now(), 5); err == nil {
		t.Fatal("expected error when both --until and --times are set")
	}
}

func TestPreviewRuleRejectsUnknownRule(t *testing.T) {
	series := commands.RemindArgs{Every: "hourly"}
	if err := previewRule(&bytes.Buffer{}, series, time.Now(), 5); err == nil {
		t.Fatal("expected error for unknown rule")
	}
}

func sampleTasks() []model.Task {
	done := time.Date(2026, 2, 1, 0, 0, 0, 0, time.UTC)
	return []model.Task{
		{ID: "a", Title: "design", Completed: true, CompletedAt: &done},
		{ID: "b", Title: "build", Dependencies: []string{"a"}},
		{ID: "c", Title: "ship", Dependencies: []string{"b"}},
	}
}

func TestPrintTasksShowsState(t *testing.T) {
	tasks := sampleTasks()
	var out bytes.Buffer
	printTasks(&out, tasks, deps.BlockedSet(tasks))

	got := out.String()
	for _, want := range []string{"a            done     design", "b            ready    build  (needs a)", "c            blocked  ship  (needs b)"} {
		if !strings.Contains(got, want) {
			t.Errorf("expected %q in:\n%s", want, got)
		}
	}
}

func TestPrintBlocked(t *testing.T) {
	var out bytes.Buffer
	if err := printBlocked(&out, sampleTasks()); err != nil {
		t.Fatalf("printBlocked failed: %v", err)
	}
	if got := strings.TrimSpace(out.String()); got != "c            waits on b" {
		t.Fatalf("unexpected output %q", got)
	}

	out.Reset()
	if err := printBlocked(&out, sampleTasks()[:2]); err != nil {
		t.Fatalf("printBlocked failed: %v", err)
	}
	if !strings.Contains(out.String(), "Nothing is blocked.") {
		t.Fatalf("unexpected output %q", out.String())
	}
}

func TestPrintOrder(t *testing.T) {
	var out bytes.Buffer
	if err := printOrder(&out, sampleTasks()); err != nil {
		t.Fatalf("printOrder failed: %v", err)
	}
	lines := strings.Split(strings.TrimSpace(out.String()), "\n")
	if len(lines) != 3 || !strings.Contains(lines[0], "a") || !strings.Contains(lines[2], "ship") {
		t.Fatalf("unexpected order:\n%s", out.String())
	}
}

func TestPrintOrderReportsCycle(t *testing.T) {
	tasks := []model.Task{
		{ID: "x", Dependencies: []string{"y"}},
		{ID: "y", Dependencies: []string{"x"}},
	}
	err := printOrder(&bytes.Buffer{}, tasks)
	if err == nil || !strings.Contains(err.Error(), "cycle") {
		t.Fatalf("expected cycle error, got %v", err)
	}
}

func TestTickFiresDueReminders(t *testing.T) {
	dbPath := filepath.Join(t.TempDir(), "plannerd.db")
	t.Setenv("PLANNERD_CONFIG", "")
	t.Setenv("PLANNERD_STORAGE_BACKEND", "bolt")
	t.Setenv("PLANNERD_STORAGE_PATH", dbPath)
	t.Setenv("PLANNERD_TIMEZONE", "UTC")
	t.Setenv("PLANNERD_LOG_LEVEL", "error")

	store, err := storage.Open(storage.BackendBolt, dbPath, time.UTC)
	if err != nil {
		t.Fatalf("open store: %v", err)
	}
	rem := model.Reminder{ID: "r-1", Title: "water plants", FireAt: time.Date(2026, 2, 9, 9, 0, 0, 0, time.UTC)}
	if err := store.SaveReminder(context.Background(), rem); err != nil {
		t.Fatalf("save reminder: %v", err)
	}
	if err := store.Close(); err != nil {
		t.Fatalf("close store: %v", err)
	}

	var out bytes.Buffer
	tickCmd.SetOut(&out)
	tickCmd.SetContext(context.Background())
	if err := tickCmd.Flags().Set("at", "2026-02-09T09:05:00Z"); err != nil {
		t.Fatalf("set flag: %v", err)
	}
	t.Cleanup(func() { _ = tickCmd.Flags().Set("at", "") })

	if err := runTick(tickCmd, nil); err != nil {
		t.Fatalf("tick failed: %v", err)
	}
	if !strings.Contains(out.String(), "fired      r-1") || !strings.Contains(out.String(), "water plants") {
		t.Fatalf("unexpected tick output:\n%s", out.String())
	}

	out.Reset()
	if err := runTick(tickCmd, nil); err != nil {
		t.Fatalf("second tick failed: %v", err)
	}
	if !strings.Contains(out.String(), "Nothing due.") {
		t.Fatalf("reminder fired twice:\n%s", out.String())
	}
}
