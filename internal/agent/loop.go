// Package agent implements the core turn-by-turn orchestration of LLM calls
// and tool invocations: one inbound message in, one reasoning loop, one
// final reply out.
package agent

import (
	"context"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/clawcore/runtime/internal/bus"
	"github.com/clawcore/runtime/internal/providers"
	"github.com/clawcore/runtime/internal/sessions"
	"github.com/clawcore/runtime/internal/tools"
)

// defaultMaxSteps bounds a single turn's tool-call iterations.
const defaultMaxSteps = 20

// stepLimitReply is returned verbatim when a turn exhausts its step budget
// without the model producing a final answer.
const stepLimitReply = "Task execution stopped after reaching step limit."

// Loop runs the core agent state machine against a single workspace.
type Loop struct {
	workspace string
	provider  providers.Provider
	model     string
	maxSteps  int

	sessions *sessions.Manager
	tools    *tools.Registry
	msgBus   *bus.MessageBus
	context  *ContextBuilder

	turnMu sync.Mutex // serializes turns across all callers
}

// New creates a Loop. maxSteps <= 0 uses the default of 20.
func New(workspace string, provider providers.Provider, model string, maxSteps int, sess *sessions.Manager, reg *tools.Registry, msgBus *bus.MessageBus) *Loop {
	if maxSteps <= 0 {
		maxSteps = defaultMaxSteps
	}
	return &Loop{
		workspace: workspace,
		provider:  provider,
		model:     model,
		maxSteps:  maxSteps,
		sessions:  sess,
		tools:     reg,
		msgBus:    msgBus,
		context:   NewContextBuilder(workspace, reg.Names()),
	}
}

// Run handles one inbound message end to end: session lookup, tool routing,
// the reasoning loop, session persistence, and outbound delivery on the
// originating channel. A message on the "system" channel (a subagent
// completion report) carries "<origin_channel>:<origin_chat_id>" as its
// chat_id; it runs in that origin session and its reply goes to that chat.
func (l *Loop) Run(ctx context.Context, msg bus.InboundMessage) error {
	channel, chatID, sessionKey := msg.Channel, msg.ChatID, msg.SessionKey()
	if msg.Channel == "system" {
		if i := strings.Index(msg.ChatID, ":"); i > 0 {
			channel, chatID, sessionKey = msg.ChatID[:i], msg.ChatID[i+1:], msg.ChatID
		}
	}
	reply, err := l.ProcessDirect(ctx, sessionKey, channel, chatID, msg.Content, msg.Media)
	if err != nil {
		return err
	}
	if l.msgBus != nil {
		l.msgBus.PublishOutbound(bus.OutboundMessage{
			Channel: channel,
			ChatID:  chatID,
			Content: reply,
		})
	}
	return nil
}

// ProcessDirect runs the reasoning loop for one turn without publishing an
// outbound message — used by Run, and called directly by the scheduler and
// heartbeat handlers, each of which decides delivery for itself. Only one
// turn runs at a time; concurrent callers wait their turn.
func (l *Loop) ProcessDirect(ctx context.Context, sessionKey, channel, chatID, content string, media []string) (string, error) {
	l.turnMu.Lock()
	defer l.turnMu.Unlock()

	session := l.sessions.GetOrCreate(sessionKey)
	l.tools.SetContext(channel, chatID)

	messages := l.buildMessages(session, content, media)

	reply, err := l.reason(ctx, messages)
	if err != nil {
		return "", err
	}

	now := time.Now()
	l.sessions.AddMessage(sessionKey, sessions.StoredMessage{Role: "user", Content: content, Timestamp: now})
	l.sessions.AddMessage(sessionKey, sessions.StoredMessage{Role: "assistant", Content: reply, Timestamp: now})
	if err := l.sessions.Save(sessionKey); err != nil {
		slog.Error("failed to persist session", "session", sessionKey, "error", err)
	}

	return reply, nil
}

func (l *Loop) buildMessages(session *sessions.Session, content string, media []string) []providers.Message {
	messages := []providers.Message{
		{Role: "system", Content: l.context.BuildSystemPrompt()},
	}
	messages = append(messages, l.sessions.GetHistory(session.Key)...)
	messages = append(messages, BuildUserMessage(content, media))
	return messages
}

// reason is the LLM/tool loop: step 4 of the agent loop state machine.
// Tool calls within a single turn execute sequentially in the order the
// model produced them; a tool's error is reported back as its result rather
// than aborting the turn.
func (l *Loop) reason(ctx context.Context, messages []providers.Message) (string, error) {
	for step := 0; step < l.maxSteps; step++ {
		resp, err := l.provider.Chat(ctx, providers.ChatRequest{
			Messages: messages,
			Tools:    l.tools.Definitions(),
			Model:    l.model,
		})
		if err != nil {
			return "", err
		}

		if len(resp.ToolCalls) == 0 {
			return resp.Content, nil
		}

		messages = append(messages, providers.Message{
			Role:      "assistant",
			Content:   resp.Content,
			ToolCalls: resp.ToolCalls,
		})

		for _, tc := range resp.ToolCalls {
			result := l.tools.Execute(ctx, tc.Name, tc.Arguments)
			messages = append(messages, providers.Message{
				Role:       "tool",
				Content:    result.ForLLM,
				ToolCallID: tc.ID,
			})
		}
	}

	slog.Warn("agent loop hit step limit", "max_steps", l.maxSteps)
	return stepLimitReply, nil
}
