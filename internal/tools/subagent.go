package tools

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/clawcore/runtime/internal/bus"
	"github.com/clawcore/runtime/internal/providers"
)

// Subagent task status values.
const (
	TaskStatusRunning   = "running"
	TaskStatusCompleted = "completed"
	TaskStatusFailed    = "error"
)

const (
	defaultMaxIterations = 15
	defaultArchiveAfter  = 30 * time.Minute
)

// SubagentConfig configures the subagent manager.
type SubagentConfig struct {
	MaxConcurrent int
	MaxSpawnDepth int
	MaxIterations int
	ArchiveAfter  time.Duration
}

// DefaultSubagentConfig returns the manager's defaults.
func DefaultSubagentConfig() SubagentConfig {
	return SubagentConfig{
		MaxConcurrent: 8,
		MaxSpawnDepth: 1,
		MaxIterations: defaultMaxIterations,
		ArchiveAfter:  defaultArchiveAfter,
	}
}

// SubagentTask tracks one spawned background task.
type SubagentTask struct {
	ID            string
	Task          string
	Label         string
	Status        string
	Result        string
	Depth         int
	OriginChannel string
	OriginChatID  string
	CreatedAt     time.Time
	CompletedAt   time.Time
}

// subagentDenyAlways lists tools a subagent's isolated registry never gets,
// regardless of depth: a subagent has no conversational identity of its
// own and must not re-enter the cross-agent mechanisms that assume one.
var subagentDenyAlways = []string{"message", "spawn", "cron"}

// SubagentManager spawns and tracks background agent-loop executions that
// report their result back to the parent conversation via the bus.
type SubagentManager struct {
	mu       sync.RWMutex
	tasks    map[string]*SubagentTask
	config   SubagentConfig
	provider providers.Provider
	model    string
	msgBus   *bus.MessageBus

	// newRegistry builds an isolated tool registry for a subagent run.
	newRegistry func() *Registry
}

// NewSubagentManager creates a subagent manager. newRegistry must return a
// freshly built registry each call, independent of the parent's.
func NewSubagentManager(provider providers.Provider, model string, msgBus *bus.MessageBus, newRegistry func() *Registry, cfg SubagentConfig) *SubagentManager {
	if cfg.MaxIterations <= 0 {
		cfg.MaxIterations = defaultMaxIterations
	}
	if cfg.ArchiveAfter <= 0 {
		cfg.ArchiveAfter = defaultArchiveAfter
	}
	return &SubagentManager{
		tasks:       make(map[string]*SubagentTask),
		config:      cfg,
		provider:    provider,
		model:       model,
		msgBus:      msgBus,
		newRegistry: newRegistry,
	}
}

// generateTaskID returns an 8-character opaque task identifier.
func generateTaskID() string {
	return strings.ReplaceAll(uuid.NewString(), "-", "")[:8]
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n] + "..."
}

// CountRunning returns the number of tasks currently running.
func (sm *SubagentManager) CountRunning() int {
	sm.mu.RLock()
	defer sm.mu.RUnlock()
	n := 0
	for _, t := range sm.tasks {
		if t.Status == TaskStatusRunning {
			n++
		}
	}
	return n
}

// Get returns a task snapshot by id.
func (sm *SubagentManager) Get(id string) (SubagentTask, bool) {
	sm.mu.RLock()
	defer sm.mu.RUnlock()
	t, ok := sm.tasks[id]
	if !ok {
		return SubagentTask{}, false
	}
	return *t, true
}

// Spawn starts a background subagent task and returns immediately with an
// acknowledgement string carrying the task id.
func (sm *SubagentManager) Spawn(ctx context.Context, task, label, originChannel, originChatID string) (string, error) {
	sm.mu.Lock()
	running := 0
	for _, t := range sm.tasks {
		if t.Status == TaskStatusRunning {
			running++
		}
	}
	if running >= sm.config.MaxConcurrent {
		sm.mu.Unlock()
		return "", fmt.Errorf("max concurrent subagents reached (%d/%d)", running, sm.config.MaxConcurrent)
	}

	id := generateTaskID()
	if label == "" {
		label = truncate(task, 50)
	}

	t := &SubagentTask{
		ID:            id,
		Task:          task,
		Label:         label,
		Status:        TaskStatusRunning,
		OriginChannel: originChannel,
		OriginChatID:  originChatID,
		CreatedAt:     time.Now(),
	}
	sm.tasks[id] = t
	sm.mu.Unlock()

	slog.Info("subagent spawned", "id", id, "label", label)

	detached := context.Background()
	go sm.run(detached, t)

	return fmt.Sprintf("Spawned subagent '%s' (id=%s) for task: %s", label, id, truncate(task, 100)), nil
}

func (sm *SubagentManager) run(ctx context.Context, t *SubagentTask) {
	defer func() {
		if rec := recover(); rec != nil {
			sm.mu.Lock()
			t.Status = TaskStatusFailed
			t.Result = fmt.Sprintf("subagent panicked: %v", rec)
			t.CompletedAt = time.Now()
			sm.mu.Unlock()
			slog.Error("subagent panicked", "id", t.ID, "panic", rec)
		}
		sm.announce(t)
		if sm.config.ArchiveAfter > 0 {
			go sm.scheduleArchive(t.ID, sm.config.ArchiveAfter)
		}
	}()

	iterations, finalContent, err := sm.execute(ctx, t)

	sm.mu.Lock()
	t.CompletedAt = time.Now()
	if err != nil {
		t.Status = TaskStatusFailed
		t.Result = err.Error()
	} else {
		t.Status = TaskStatusCompleted
		t.Result = finalContent
	}
	sm.mu.Unlock()

	slog.Info("subagent finished", "id", t.ID, "status", t.Status, "iterations", iterations)
}

func (sm *SubagentManager) execute(ctx context.Context, t *SubagentTask) (int, string, error) {
	reg := sm.newRegistry()
	for _, name := range subagentDenyAlways {
		reg.Unregister(name)
	}

	messages := []providers.Message{
		{Role: "system", Content: sm.buildSystemPrompt(t)},
		{Role: "user", Content: t.Task},
	}

	iteration := 0
	for iteration < sm.config.MaxIterations {
		iteration++

		if ctx.Err() != nil {
			return iteration, "", fmt.Errorf("cancelled during execution")
		}

		resp, err := sm.provider.Chat(ctx, providers.ChatRequest{
			Messages: messages,
			Tools:    reg.Definitions(),
			Model:    sm.model,
		})
		if err != nil {
			return iteration, "", fmt.Errorf("LLM error at iteration %d: %w", iteration, err)
		}
		if resp.FinishReason == "error" {
			return iteration, "", fmt.Errorf("LLM error at iteration %d: %s", iteration, resp.Content)
		}

		if len(resp.ToolCalls) == 0 {
			return iteration, resp.Content, nil
		}

		messages = append(messages, providers.Message{
			Role:      "assistant",
			Content:   resp.Content,
			ToolCalls: resp.ToolCalls,
		})

		for _, tc := range resp.ToolCalls {
			result := reg.Execute(ctx, tc.Name, tc.Arguments)
			messages = append(messages, providers.Message{
				Role:       "tool",
				Content:    result.ForLLM,
				ToolCallID: tc.ID,
			})
		}
	}

	return iteration, "Task execution stopped after reaching step limit.", nil
}

func (sm *SubagentManager) buildSystemPrompt(t *SubagentTask) string {
	return fmt.Sprintf(`You are a subagent spawned by the main agent for a specific task.

Your task: %s

Rules:
- Stay focused on this task alone; you have no conversation with the user.
- Your final response is the deliverable that will be reported back to the main agent.
- Output the finished content directly. Do not describe what you would write — write it.
- You cannot spawn further subagents, send messages, or schedule jobs.`, t.Task)
}

// announce publishes the task's completion as an InboundMessage on the
// internal "system" channel, addressed back to the originating session via
// a compound chat id. The main agent loop picks this up like any other
// inbound turn (its own channel adapter has no "system" subscriber to
// deliver it to) and summarizes it for the user in the original
// conversation.
func (sm *SubagentManager) announce(t *SubagentTask) {
	if sm.msgBus == nil || t.OriginChannel == "" {
		return
	}

	statusText := "completed successfully"
	if t.Status != TaskStatusCompleted {
		statusText = "failed"
	}

	content := fmt.Sprintf(
		"[Task %s]\n\nTask:\n%s\n\nResult:\n%s\n\nSummarize this naturally for the user in 1-2 sentences. Do not mention internal agent mechanics.",
		statusText, t.Task, t.Result,
	)

	sm.msgBus.PublishInbound(bus.InboundMessage{
		Channel:  "system",
		SenderID: "subagent",
		ChatID:   t.OriginChannel + ":" + t.OriginChatID,
		Content:  content,
		Metadata: map[string]string{
			"subagent_id":    t.ID,
			"subagent_label": t.Label,
			"status":         t.Status,
		},
	})
}

// scheduleArchive drops a completed task from memory after ttl elapses.
func (sm *SubagentManager) scheduleArchive(id string, ttl time.Duration) {
	time.Sleep(ttl)
	sm.mu.Lock()
	defer sm.mu.Unlock()
	if t, ok := sm.tasks[id]; ok && t.Status != TaskStatusRunning {
		delete(sm.tasks, id)
	}
}
