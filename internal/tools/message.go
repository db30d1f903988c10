package tools

import (
	"context"
	"sync"

	"github.com/clawcore/runtime/internal/bus"
)

// MessageTool sends a reply through the message bus, either on the
// channel/chat bound to it for the current turn or on an explicitly named
// channel/chat_id.
type MessageTool struct {
	mu      sync.RWMutex
	msgBus  *bus.MessageBus
	channel string
	chatID  string
}

func NewMessageTool(msgBus *bus.MessageBus) *MessageTool {
	return &MessageTool{msgBus: msgBus}
}

// SetContext implements ContextSetter: the registry calls this before every
// turn so message defaults to replying on the invoking conversation.
func (t *MessageTool) SetContext(channel, chatID string) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.channel = channel
	t.chatID = chatID
}

func (t *MessageTool) Name() string        { return "message" }
func (t *MessageTool) Description() string { return "Send a message on a chat channel" }
func (t *MessageTool) Parameters() map[string]interface{} {
	return map[string]interface{}{
		"type": "object",
		"properties": map[string]interface{}{
			"content": map[string]interface{}{"type": "string", "description": "message text to send"},
			"channel": map[string]interface{}{"type": "string", "description": "optional channel override; defaults to the current conversation"},
			"chat_id": map[string]interface{}{"type": "string", "description": "optional chat id override; defaults to the current conversation"},
		},
		"required": []string{"content"},
	}
}

func (t *MessageTool) Execute(ctx context.Context, args map[string]interface{}) *Result {
	content, _ := args["content"].(string)
	if content == "" {
		return ErrorResult("Error: invalid parameters for tool 'message': content is required")
	}

	t.mu.RLock()
	channel, chatID := t.channel, t.chatID
	t.mu.RUnlock()

	if ch, ok := args["channel"].(string); ok && ch != "" {
		channel = ch
	}
	if cid, ok := args["chat_id"].(string); ok && cid != "" {
		chatID = cid
	}

	if channel == "" || chatID == "" {
		return ErrorResult("Error: no bound channel/chat_id and none provided")
	}

	t.msgBus.PublishOutbound(bus.OutboundMessage{
		Channel: channel,
		ChatID:  chatID,
		Content: content,
	})

	return SilentResult("message sent")
}
