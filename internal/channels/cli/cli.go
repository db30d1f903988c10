// Package cli implements the local stdin/stdout channel: always available,
// used for interactive use and for testing a workspace without a platform
// bot token configured.
package cli

import (
	"bufio"
	"context"
	"fmt"
	"os"
	"strings"

	"github.com/clawcore/runtime/internal/bus"
	"github.com/clawcore/runtime/internal/channels"
)

const localChatID = "local"

// Channel reads lines from stdin and writes replies to stdout.
type Channel struct {
	*channels.BaseChannel
	cancel context.CancelFunc
	done   chan struct{}
}

// New creates a CLI channel.
func New(msgBus *bus.MessageBus) *Channel {
	return &Channel{BaseChannel: channels.NewBaseChannel("cli", msgBus, nil)}
}

// Start launches the stdin read loop.
func (c *Channel) Start(ctx context.Context) error {
	runCtx, cancel := context.WithCancel(ctx)
	c.cancel = cancel
	c.done = make(chan struct{})
	c.SetRunning(true)

	fmt.Fprintln(os.Stderr, "cli channel ready — type a message and press Enter")

	go func() {
		defer close(c.done)
		scanner := bufio.NewScanner(os.Stdin)
		for {
			select {
			case <-runCtx.Done():
				return
			default:
			}

			fmt.Fprint(os.Stderr, "> ")
			if !scanner.Scan() {
				return
			}
			line := strings.TrimSpace(scanner.Text())
			if line == "" {
				continue
			}
			c.HandleMessage(localChatID, localChatID, line, nil, nil)
		}
	}()
	return nil
}

// Stop cancels the read loop. The underlying stdin read itself cannot be
// interrupted, so Stop does not block waiting for the goroutine to exit.
func (c *Channel) Stop(_ context.Context) error {
	c.SetRunning(false)
	if c.cancel != nil {
		c.cancel()
	}
	return nil
}

// Send writes the reply to stdout.
func (c *Channel) Send(_ context.Context, msg bus.OutboundMessage) error {
	fmt.Printf("\n%s\n\n", msg.Content)
	return nil
}

var _ channels.Channel = (*Channel)(nil)
