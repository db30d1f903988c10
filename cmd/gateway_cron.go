package cmd

import (
	"context"
	"fmt"
	"sync"

	"github.com/clawcore/runtime/internal/agent"
	"github.com/clawcore/runtime/internal/bus"
	"github.com/clawcore/runtime/internal/scheduler"
	"github.com/clawcore/runtime/internal/sessions"
)

// loopHolder lets the scheduler and heartbeat handler closures be built
// before the agent loop exists: scheduler.New and heartbeat.New both take
// their callback at construction time, but that callback needs a fully
// wired *agent.Loop, which in turn needs a registry built from the very
// scheduler being constructed. The closures only ever fire after Start()
// is called, by which point set has already run.
type loopHolder struct {
	mu   sync.RWMutex
	loop *agent.Loop
}

func (h *loopHolder) set(l *agent.Loop) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.loop = l
}

func (h *loopHolder) get() *agent.Loop {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return h.loop
}

// lastChannelTracker records the most recently active external channel and
// chat, so the heartbeat handler has somewhere to address its reply when no
// job-level delivery target is configured.
type lastChannelTracker struct {
	mu      sync.RWMutex
	channel string
	chatID  string
}

func (t *lastChannelTracker) set(channel, chatID string) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.channel = channel
	t.chatID = chatID
}

func (t *lastChannelTracker) get() (channel, chatID string) {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return t.channel, t.chatID
}

// makeCronJobHandler builds the scheduler.Handler that runs a job's payload
// as an agent turn and, when the job requests delivery, publishes the reply
// on the configured channel.
func makeCronJobHandler(holder *loopHolder, msgBus *bus.MessageBus) scheduler.Handler {
	return func(job *scheduler.Job) (string, error) {
		loop := holder.get()
		if loop == nil {
			return "", fmt.Errorf("agent loop not ready")
		}

		channel, chatID := "system", "cron:"+job.ID
		if job.Payload.Delivery != nil && job.Payload.Delivery.Channel != "" {
			channel, chatID = job.Payload.Delivery.Channel, job.Payload.Delivery.To
		}

		sessionKey := sessions.CronSessionKey(job.ID)
		reply, err := loop.ProcessDirect(context.Background(), sessionKey, channel, chatID, job.Payload.Message, nil)
		if err != nil {
			return "", err
		}

		if job.Payload.Delivery != nil && job.Payload.Delivery.Deliver {
			msgBus.PublishOutbound(bus.OutboundMessage{
				Channel: job.Payload.Delivery.Channel,
				ChatID:  job.Payload.Delivery.To,
				Content: reply,
			})
		}

		return reply, nil
	}
}

// makeHeartbeatHandler builds the heartbeat.Handler that runs the periodic
// check-in prompt as an agent turn addressed to the most recently active
// channel.
func makeHeartbeatHandler(holder *loopHolder, tracker *lastChannelTracker) func(prompt string) (string, error) {
	return func(prompt string) (string, error) {
		loop := holder.get()
		if loop == nil {
			return "", fmt.Errorf("agent loop not ready")
		}

		channel, chatID := tracker.get()
		if channel == "" {
			return "", fmt.Errorf("no active channel to heartbeat")
		}

		return loop.ProcessDirect(context.Background(), sessions.HeartbeatSessionKey, channel, chatID, prompt, nil)
	}
}
