package tools

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/clawcore/runtime/internal/scheduler"
)

func newTestCronTool(t *testing.T) *CronTool {
	t.Helper()
	storePath := filepath.Join(t.TempDir(), "jobs.json")
	sched := scheduler.New(storePath, nil)
	return NewCronTool(sched)
}

func TestCronAddRequiresBoundContext(t *testing.T) {
	tool := newTestCronTool(t)
	at := time.Now().Add(time.Hour).UnixMilli()

	result := tool.Execute(context.Background(), map[string]interface{}{
		"action":  "add",
		"kind":    "at",
		"at_ms":   float64(at),
		"message": "remind me",
	})
	if !result.IsError {
		t.Fatal("expected an error when no channel/chat_id is bound")
	}
}

func TestCronAddListRemove(t *testing.T) {
	tool := newTestCronTool(t)
	tool.SetContext("telegram", "12345")

	at := time.Now().Add(time.Hour).UnixMilli()
	added := tool.Execute(context.Background(), map[string]interface{}{
		"action":  "add",
		"kind":    "at",
		"at_ms":   float64(at),
		"message": "remind me",
	})
	if added.IsError {
		t.Fatalf("add failed: %s", added.ForLLM)
	}

	listed := tool.Execute(context.Background(), map[string]interface{}{"action": "list"})
	if listed.IsError {
		t.Fatalf("list failed: %s", listed.ForLLM)
	}

	jobs := tool.sched.ListJobs(true)
	if len(jobs) != 1 {
		t.Fatalf("expected 1 job, got %d", len(jobs))
	}
	if jobs[0].Payload.Delivery == nil || jobs[0].Payload.Delivery.Channel != "telegram" {
		t.Errorf("expected delivery bound to telegram, got %+v", jobs[0].Payload.Delivery)
	}

	removed := tool.Execute(context.Background(), map[string]interface{}{
		"action": "remove",
		"id":     jobs[0].ID,
	})
	if removed.IsError {
		t.Fatalf("remove failed: %s", removed.ForLLM)
	}
	if len(tool.sched.ListJobs(true)) != 0 {
		t.Error("expected no jobs after removal")
	}
}

func TestCronUnknownAction(t *testing.T) {
	tool := newTestCronTool(t)
	result := tool.Execute(context.Background(), map[string]interface{}{"action": "bogus"})
	if !result.IsError {
		t.Fatal("expected an error for an unknown action")
	}
}
