// Package channels provides the channel abstraction layer connecting
// external chat platforms to the agent runtime via the message bus.
package channels

import (
	"context"
	"strings"

	"github.com/clawcore/runtime/internal/bus"
)

// InternalChannels are system channels that are never recorded as the
// heartbeat's last-active delivery target.
var InternalChannels = map[string]bool{
	"cli":      true,
	"system":   true,
	"subagent": true,
}

// IsInternalChannel reports whether name is a system channel.
func IsInternalChannel(name string) bool {
	return InternalChannels[name]
}

// Channel is the interface every platform adapter implements.
type Channel interface {
	// Name returns the channel identifier (e.g. "telegram", "discord").
	Name() string

	// Start begins listening for messages. Non-blocking after setup.
	Start(ctx context.Context) error

	// Stop gracefully shuts down the channel.
	Stop(ctx context.Context) error

	// Send delivers an outbound message to the channel.
	Send(ctx context.Context, msg bus.OutboundMessage) error

	// IsRunning reports whether the channel is actively processing messages.
	IsRunning() bool

	// IsAllowed reports whether a sender is permitted by the channel's
	// allowlist. An empty allowlist allows everyone.
	IsAllowed(senderID string) bool
}

// BaseChannel provides the allowlist gating and bus wiring shared by every
// adapter. Concrete channels embed this struct.
type BaseChannel struct {
	name      string
	bus       *bus.MessageBus
	running   bool
	allowList []string
}

// NewBaseChannel creates a BaseChannel bound to msgBus, gated by allowList.
func NewBaseChannel(name string, msgBus *bus.MessageBus, allowList []string) *BaseChannel {
	return &BaseChannel{
		name:      name,
		bus:       msgBus,
		allowList: allowList,
	}
}

func (c *BaseChannel) Name() string { return c.name }

func (c *BaseChannel) IsRunning() bool { return c.running }

func (c *BaseChannel) SetRunning(running bool) { c.running = running }

func (c *BaseChannel) Bus() *bus.MessageBus { return c.bus }

func (c *BaseChannel) HasAllowList() bool { return len(c.allowList) > 0 }

// IsAllowed reports whether senderID is permitted. Supports the compound
// "id|username" form some platforms pass, matching either side.
func (c *BaseChannel) IsAllowed(senderID string) bool {
	if len(c.allowList) == 0 {
		return true
	}

	idPart, userPart := splitSenderID(senderID)

	for _, allowed := range c.allowList {
		trimmed := strings.TrimPrefix(allowed, "@")
		allowedID, allowedUser := splitSenderID(trimmed)

		if senderID == allowed || senderID == trimmed ||
			idPart == allowed || idPart == trimmed || idPart == allowedID ||
			(userPart != "" && (userPart == allowed || userPart == trimmed)) ||
			(allowedUser != "" && userPart == allowedUser) {
			return true
		}
	}
	return false
}

func splitSenderID(s string) (id, user string) {
	if idx := strings.IndexByte(s, '|'); idx > 0 {
		return s[:idx], s[idx+1:]
	}
	return s, ""
}

// HandleMessage builds an InboundMessage and publishes it to the bus if
// senderID passes the allowlist.
func (c *BaseChannel) HandleMessage(senderID, chatID, content string, media []string, metadata map[string]string) {
	if !c.IsAllowed(senderID) {
		return
	}

	c.bus.PublishInbound(bus.InboundMessage{
		Channel:  c.name,
		SenderID: senderID,
		ChatID:   chatID,
		Content:  content,
		Media:    media,
		Metadata: metadata,
	})
}

// Truncate shortens s to maxLen, appending "..." if truncated.
func Truncate(s string, maxLen int) string {
	if len(s) <= maxLen {
		return s
	}
	return s[:maxLen] + "..."
}
