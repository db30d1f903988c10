package memory

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestContextEmptyWhenNoFiles(t *testing.T) {
	s := New(t.TempDir())
	if got := s.Context(); got != "" {
		t.Errorf("Context() = %q, want empty", got)
	}
}

func TestContextIncludesLongTermAndToday(t *testing.T) {
	ws := t.TempDir()
	s := New(ws)

	if err := os.WriteFile(s.LongTermFile(), []byte("likes dark mode"), 0644); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(s.DailyFile(""), []byte("deployed v2 at noon"), 0644); err != nil {
		t.Fatal(err)
	}

	got := s.Context()
	if !strings.Contains(got, "likes dark mode") || !strings.Contains(got, "deployed v2 at noon") {
		t.Errorf("Context() missing expected content: %q", got)
	}
}

func TestDailyFileDefaultsToToday(t *testing.T) {
	ws := t.TempDir()
	s := New(ws)
	path := s.DailyFile("")
	if filepath.Dir(path) != filepath.Join(ws, "memory") {
		t.Errorf("DailyFile dir = %q", filepath.Dir(path))
	}
}
