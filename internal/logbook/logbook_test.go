package logbook

import (
	"path/filepath"
	"strings"
	"testing"
	"time"
)

func TestLogbookAppendsLeveledLines(t *testing.T) {
	path := filepath.Join(t.TempDir(), "logbook.log")
	fixed := time.Date(2026, 3, 2, 8, 0, 0, 0, time.UTC)
	book, err := New(path, WithClock(func() time.Time { return fixed }))
	if err != nil {
		t.Fatalf("new: %v", err)
	}
	defer book.Close()
	book.Info("process %s started", "powder-processing")
	book.Warn("breakpoint raised")
	book.Error("task failed: %v", "boom")

	lines := book.Tail(10)
	if len(lines) != 3 {
		t.Fatalf("expected 3 lines, got %d", len(lines))
	}
	if !strings.Contains(lines[0], "INFO") || !strings.Contains(lines[0], "powder-processing") {
		t.Fatalf("unexpected first line: %s", lines[0])
	}
	if !strings.HasPrefix(lines[1], "2026-03-02T08:00:00Z WARN") {
		t.Fatalf("unexpected second line: %s", lines[1])
	}
}

func TestLogbookTailLimitsLines(t *testing.T) {
	path := filepath.Join(t.TempDir(), "logbook.log")
	book, err := New(path)
	if err != nil {
		t.Fatalf("new: %v", err)
	}
	defer book.Close()
	for i := 0; i < 20; i++ {
		book.Info("entry %d", i)
	}
	lines := book.Tail(5)
	if len(lines) != 5 {
		t.Fatalf("expected 5 lines, got %d", len(lines))
	}
	if !strings.Contains(lines[4], "entry 19") {
		t.Fatalf("expected newest entry last, got %s", lines[4])
	}
}

func TestLogbookNilReceiverIsSafe(t *testing.T) {
	var book *Logbook
	book.Info("ignored")
	book.Warn("ignored")
	book.Error("ignored")
	if book.Tail(3) != nil {
		t.Fatalf("expected nil tail")
	}
	if book.Path() != "" {
		t.Fatalf("expected empty path")
	}
	if err := book.Close(); err != nil {
		t.Fatalf("close: %v", err)
	}
}
