package tools

import (
	"context"
	"testing"

	"github.com/clawcore/runtime/internal/bus"
)

func newTestSubagentManager(msgBus *bus.MessageBus) *SubagentManager {
	return NewSubagentManager(nil, "test-model", msgBus, func() *Registry {
		return NewRegistry()
	}, DefaultSubagentConfig())
}

func TestSubagentToolRequiresTask(t *testing.T) {
	tool := NewSubagentTool(newTestSubagentManager(bus.New()))
	result := tool.Execute(context.Background(), map[string]interface{}{})
	if !result.IsError {
		t.Fatal("expected an error result when task is missing")
	}
}

func TestSubagentToolUsesBoundContext(t *testing.T) {
	mgr := newTestSubagentManager(bus.New())
	tool := NewSubagentTool(mgr)
	tool.SetContext("telegram", "12345")

	result := tool.Execute(context.Background(), map[string]interface{}{
		"task":  "write a haiku",
		"label": "haiku",
	})
	if result.IsError {
		t.Fatalf("unexpected error result: %s", result.ForLLM)
	}
	if !result.Silent {
		t.Error("expected a silent acknowledgement result")
	}
	if result.ForLLM == "" {
		t.Error("expected a non-empty acknowledgement")
	}

	mgr.mu.RLock()
	defer mgr.mu.RUnlock()
	if len(mgr.tasks) != 1 {
		t.Fatalf("tasks = %d, want 1", len(mgr.tasks))
	}
	for _, task := range mgr.tasks {
		if task.OriginChannel != "telegram" || task.OriginChatID != "12345" {
			t.Errorf("origin = %s:%s, want telegram:12345", task.OriginChannel, task.OriginChatID)
		}
	}
}

func TestSubagentToolName(t *testing.T) {
	tool := NewSubagentTool(newTestSubagentManager(bus.New()))
	if tool.Name() != "spawn" {
		t.Errorf("Name() = %q, want spawn", tool.Name())
	}
}
