package tools

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"

	"github.com/clawcore/runtime/internal/scheduler"
)

// CronTool exposes scheduler mutations (add/list/remove/run) to the LLM.
// Adding a job binds its delivery routing to the channel and chat_id that
// invoked the tool.
type CronTool struct {
	mu      sync.RWMutex
	sched   *scheduler.Scheduler
	channel string
	chatID  string
}

func NewCronTool(sched *scheduler.Scheduler) *CronTool {
	return &CronTool{sched: sched}
}

// SetContext implements ContextSetter.
func (t *CronTool) SetContext(channel, chatID string) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.channel = channel
	t.chatID = chatID
}

func (t *CronTool) Name() string        { return "cron" }
func (t *CronTool) Description() string { return "Add, list, remove, or run scheduled jobs" }

func (t *CronTool) Parameters() map[string]interface{} {
	return map[string]interface{}{
		"type": "object",
		"properties": map[string]interface{}{
			"action": map[string]interface{}{
				"type":        "string",
				"enum":        []string{"add", "list", "remove", "run"},
				"description": "operation to perform",
			},
			"id": map[string]interface{}{
				"type":        "string",
				"description": "job id, required for remove/run",
			},
			"name": map[string]interface{}{
				"type":        "string",
				"description": "job name, for add",
			},
			"kind": map[string]interface{}{
				"type":        "string",
				"enum":        []string{"at", "every", "cron"},
				"description": "schedule kind, for add",
			},
			"at_ms": map[string]interface{}{
				"type":        "integer",
				"description": "absolute epoch ms run time, for kind=at",
			},
			"every_ms": map[string]interface{}{
				"type":        "integer",
				"description": "interval in ms, for kind=every",
			},
			"expr": map[string]interface{}{
				"type":        "string",
				"description": "cron expression, for kind=cron",
			},
			"tz": map[string]interface{}{
				"type":        "string",
				"description": "IANA timezone for kind=cron, optional",
			},
			"message": map[string]interface{}{
				"type":        "string",
				"description": "message delivered to the agent when the job fires",
			},
			"delete_after_run": map[string]interface{}{
				"type":        "boolean",
				"description": "for kind=at: remove the job after it fires instead of disabling it",
			},
			"include_disabled": map[string]interface{}{
				"type":        "boolean",
				"description": "for list: include disabled jobs",
			},
		},
		"required": []string{"action"},
	}
}

func (t *CronTool) Execute(ctx context.Context, args map[string]interface{}) *Result {
	action, _ := args["action"].(string)

	switch action {
	case "add":
		return t.add(args)
	case "list":
		includeDisabled, _ := args["include_disabled"].(bool)
		jobs := t.sched.ListJobs(includeDisabled)
		encoded, err := json.MarshalIndent(jobs, "", "  ")
		if err != nil {
			return ErrorResult(fmt.Sprintf("Error: failed to encode jobs: %v", err))
		}
		return SilentResult(string(encoded))
	case "remove":
		id, _ := args["id"].(string)
		if id == "" {
			return ErrorResult("Error: invalid parameters for tool 'cron': id is required")
		}
		if !t.sched.RemoveJob(id) {
			return ErrorResult(fmt.Sprintf("Error: job '%s' not found", id))
		}
		return SilentResult(fmt.Sprintf("removed job %s", id))
	case "run":
		id, _ := args["id"].(string)
		if id == "" {
			return ErrorResult("Error: invalid parameters for tool 'cron': id is required")
		}
		if err := t.sched.RunJob(id); err != nil {
			return ErrorResult("Error: " + err.Error())
		}
		return SilentResult(fmt.Sprintf("triggered job %s", id))
	default:
		return ErrorResult("Error: invalid parameters for tool 'cron': unknown action")
	}
}

func (t *CronTool) add(args map[string]interface{}) *Result {
	kind, _ := args["kind"].(string)
	message, _ := args["message"].(string)
	if kind == "" || message == "" {
		return ErrorResult("Error: invalid parameters for tool 'cron': kind and message are required")
	}

	t.mu.RLock()
	channel, chatID := t.channel, t.chatID
	t.mu.RUnlock()
	if channel == "" || chatID == "" {
		return ErrorResult("Error: cron add requires a bound delivery channel and chat_id")
	}

	sched := scheduler.Schedule{Kind: kind}
	switch kind {
	case scheduler.KindAt:
		ms, ok := intField(args, "at_ms")
		if !ok {
			return ErrorResult("Error: invalid parameters for tool 'cron': at_ms is required for kind=at")
		}
		sched.AtMS = &ms
	case scheduler.KindEvery:
		ms, ok := intField(args, "every_ms")
		if !ok || ms <= 0 {
			return ErrorResult("Error: invalid parameters for tool 'cron': every_ms is required for kind=every")
		}
		sched.EveryMS = &ms
	case scheduler.KindCron:
		expr, _ := args["expr"].(string)
		if expr == "" {
			return ErrorResult("Error: invalid parameters for tool 'cron': expr is required for kind=cron")
		}
		sched.Expr = expr
		if tz, ok := args["tz"].(string); ok {
			sched.TZ = tz
		}
	default:
		return ErrorResult("Error: invalid parameters for tool 'cron': unknown kind")
	}

	name, _ := args["name"].(string)
	if name == "" {
		name = message
	}
	deleteAfterRun, _ := args["delete_after_run"].(bool)

	job, err := t.sched.AddJob(scheduler.Job{
		Name:     name,
		Schedule: sched,
		Payload: scheduler.Payload{
			Kind:    scheduler.PayloadAgentTurn,
			Message: message,
			Delivery: &scheduler.Delivery{
				Channel: channel,
				To:      chatID,
				Deliver: true,
			},
		},
		DeleteAfterRun: deleteAfterRun,
	})
	if err != nil {
		return ErrorResult("Error: " + err.Error())
	}

	encoded, _ := json.MarshalIndent(job, "", "  ")
	return SilentResult(string(encoded))
}

func intField(args map[string]interface{}, key string) (int64, bool) {
	v, ok := args[key]
	if !ok {
		return 0, false
	}
	switch n := v.(type) {
	case float64:
		return int64(n), true
	case int64:
		return n, true
	case int:
		return int64(n), true
	}
	return 0, false
}
