package bus

import (
	"context"
	"log/slog"
	"sync"
)

// defaultQueueSize bounds each queue; publishers block once a queue is full,
// giving the runtime natural backpressure instead of unbounded memory growth.
const defaultQueueSize = 256

// MessageBus is the single process-local broker connecting channel adapters
// to the agent loop. It owns two bounded queues (inbound, outbound) and a
// per-channel list of outbound subscribers.
//
// Architecture: channel -> inbound -> agent loop -> {llm, tools} -> outbound -> dispatcher -> channel.
type MessageBus struct {
	inbound  chan InboundMessage
	outbound chan OutboundMessage

	mu          sync.RWMutex
	subscribers map[string][]OutboundHandler

	runMu   sync.Mutex
	running bool
	cancel  context.CancelFunc
	done    chan struct{}

	log *slog.Logger
}

// Option configures a MessageBus at construction time.
type Option func(*MessageBus)

// WithQueueSizes overrides the default bounded-queue capacities.
func WithQueueSizes(inboundSize, outboundSize int) Option {
	return func(b *MessageBus) {
		if inboundSize > 0 {
			b.inbound = make(chan InboundMessage, inboundSize)
		}
		if outboundSize > 0 {
			b.outbound = make(chan OutboundMessage, outboundSize)
		}
	}
}

// New creates a MessageBus. The dispatcher is not started until Start is called.
func New(opts ...Option) *MessageBus {
	b := &MessageBus{
		inbound:     make(chan InboundMessage, defaultQueueSize),
		outbound:    make(chan OutboundMessage, defaultQueueSize),
		subscribers: make(map[string][]OutboundHandler),
		log:         slog.Default().With("component", "bus"),
	}
	for _, o := range opts {
		o(b)
	}
	return b
}

// PublishInbound enqueues a message from a channel into the agent pipeline.
// It blocks if the inbound queue is full (backpressure).
func (b *MessageBus) PublishInbound(msg InboundMessage) {
	b.inbound <- msg
}

// ConsumeInbound blocks until the next inbound message is available or ctx
// is done. ok is false when ctx was cancelled first.
func (b *MessageBus) ConsumeInbound(ctx context.Context) (msg InboundMessage, ok bool) {
	select {
	case msg = <-b.inbound:
		return msg, true
	case <-ctx.Done():
		return InboundMessage{}, false
	}
}

// PublishOutbound enqueues a reply for delivery to its channel's subscribers.
func (b *MessageBus) PublishOutbound(msg OutboundMessage) {
	b.outbound <- msg
}

// Subscribe registers a handler invoked for every outbound message published
// on the given channel. Subscriptions cannot be revoked; adapters subscribe
// once at startup for their lifetime.
func (b *MessageBus) Subscribe(channel string, handler OutboundHandler) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.subscribers[channel] = append(b.subscribers[channel], handler)
}

// InboundQueueLen reports the current depth of the inbound queue.
func (b *MessageBus) InboundQueueLen() int { return len(b.inbound) }

// OutboundQueueLen reports the current depth of the outbound queue.
func (b *MessageBus) OutboundQueueLen() int { return len(b.outbound) }

// Start launches the outbound dispatcher goroutine. Idempotent: a second
// call while already running is a no-op.
func (b *MessageBus) Start(ctx context.Context) {
	b.runMu.Lock()
	defer b.runMu.Unlock()
	if b.running {
		return
	}
	dispatchCtx, cancel := context.WithCancel(ctx)
	b.cancel = cancel
	b.done = make(chan struct{})
	b.running = true
	go b.dispatchLoop(dispatchCtx)
}

// Stop signals the dispatcher to exit and waits for it to do so. Idempotent.
func (b *MessageBus) Stop() {
	b.runMu.Lock()
	if !b.running {
		b.runMu.Unlock()
		return
	}
	cancel := b.cancel
	done := b.done
	b.running = false
	b.runMu.Unlock()

	cancel()
	<-done
}

func (b *MessageBus) dispatchLoop(ctx context.Context) {
	defer close(b.done)
	b.log.Info("dispatcher started")
	for {
		select {
		case <-ctx.Done():
			b.log.Info("dispatcher stopped")
			return
		case msg := <-b.outbound:
			b.dispatch(msg)
		}
	}
}

func (b *MessageBus) dispatch(msg OutboundMessage) {
	b.mu.RLock()
	handlers := append([]OutboundHandler(nil), b.subscribers[msg.Channel]...)
	b.mu.RUnlock()

	if len(handlers) == 0 {
		b.log.Warn("no outbound subscriber for channel", "channel", msg.Channel)
		return
	}

	var wg sync.WaitGroup
	for _, h := range handlers {
		wg.Add(1)
		go func(h OutboundHandler) {
			defer wg.Done()
			b.safeCall(h, msg)
		}(h)
	}
	wg.Wait()
}

// safeCall isolates one subscriber's failure (panic or error) from its
// siblings, per the bus's error-boundary contract.
func (b *MessageBus) safeCall(h OutboundHandler, msg OutboundMessage) {
	defer func() {
		if r := recover(); r != nil {
			b.log.Error("outbound subscriber panicked", "channel", msg.Channel, "panic", r)
		}
	}()
	if err := h(msg); err != nil {
		b.log.Error("outbound subscriber failed", "channel", msg.Channel, "error", err)
	}
}
