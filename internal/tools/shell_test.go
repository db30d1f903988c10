package tools

import (
	"context"
	"regexp"
	"strings"
	"testing"
	"time"
)

func TestExecDeniesDangerousPattern(t *testing.T) {
	tool := NewExecTool(t.TempDir(), true, time.Second)
	result := tool.Execute(context.Background(), map[string]interface{}{
		"command": "rm -rf /",
	})
	if !result.IsError {
		t.Fatal("expected an error result for a denied command")
	}
	if !strings.HasPrefix(result.ForLLM, "Error: command blocked by safety guard") {
		t.Errorf("ForLLM = %q, want prefix %q", result.ForLLM, "Error: command blocked by safety guard")
	}
	if !strings.Contains(result.ForLLM, "dangerous pattern detected") {
		t.Errorf("ForLLM = %q, want to mention dangerous pattern detected", result.ForLLM)
	}
}

func TestExecRejectsCommandNotInAllowlist(t *testing.T) {
	tool := NewExecTool(t.TempDir(), true, time.Second)
	tool.SetAllowlist([]*regexp.Regexp{regexp.MustCompile(`^echo\b`)})

	result := tool.Execute(context.Background(), map[string]interface{}{
		"command": "ls -la",
	})
	if !result.IsError {
		t.Fatal("expected an error result for a command outside the allowlist")
	}
	if !strings.HasPrefix(result.ForLLM, "Error: command blocked by safety guard") {
		t.Errorf("ForLLM = %q, want prefix %q", result.ForLLM, "Error: command blocked by safety guard")
	}
	if !strings.Contains(result.ForLLM, "not in allowlist") {
		t.Errorf("ForLLM = %q, want to mention not in allowlist", result.ForLLM)
	}
}

func TestExecRunsAllowedCommand(t *testing.T) {
	tool := NewExecTool(t.TempDir(), true, 5*time.Second)
	tool.SetAllowlist([]*regexp.Regexp{regexp.MustCompile(`^echo\b`)})

	result := tool.Execute(context.Background(), map[string]interface{}{
		"command": "echo hello",
	})
	if result.IsError {
		t.Fatalf("unexpected error result: %s", result.ForLLM)
	}
	if !strings.Contains(result.ForLLM, "hello") {
		t.Errorf("ForLLM = %q, want to contain hello", result.ForLLM)
	}
}

func TestExecRequiresCommand(t *testing.T) {
	tool := NewExecTool(t.TempDir(), true, time.Second)
	result := tool.Execute(context.Background(), map[string]interface{}{})
	if !result.IsError {
		t.Fatal("expected an error result when command is missing")
	}
}
