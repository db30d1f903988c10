package tools

import (
	"context"
	"sync"
)

// SubagentTool exposes SubagentManager.Spawn to the LLM as the "spawn" tool.
type SubagentTool struct {
	mu      sync.RWMutex
	manager *SubagentManager
	channel string
	chatID  string
}

func NewSubagentTool(manager *SubagentManager) *SubagentTool {
	return &SubagentTool{manager: manager}
}

// SetContext implements ContextSetter.
func (t *SubagentTool) SetContext(channel, chatID string) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.channel = channel
	t.chatID = chatID
}

func (t *SubagentTool) Name() string { return "spawn" }

func (t *SubagentTool) Description() string {
	return "Spawn a background subagent to work a task independently and report back when done"
}

func (t *SubagentTool) Parameters() map[string]interface{} {
	return map[string]interface{}{
		"type": "object",
		"properties": map[string]interface{}{
			"task": map[string]interface{}{
				"type":        "string",
				"description": "the task for the subagent to complete",
			},
			"label": map[string]interface{}{
				"type":        "string",
				"description": "short human-readable label for the task, optional",
			},
		},
		"required": []string{"task"},
	}
}

func (t *SubagentTool) Execute(ctx context.Context, args map[string]interface{}) *Result {
	task, _ := args["task"].(string)
	if task == "" {
		return ErrorResult("Error: invalid parameters for tool 'spawn': task is required")
	}
	label, _ := args["label"].(string)

	t.mu.RLock()
	channel, chatID := t.channel, t.chatID
	t.mu.RUnlock()

	ack, err := t.manager.Spawn(ctx, task, label, channel, chatID)
	if err != nil {
		return ErrorResult("Error: " + err.Error())
	}
	return SilentResult(ack)
}
