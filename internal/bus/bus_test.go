package bus

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"
)

func TestPublishConsumeInbound(t *testing.T) {
	b := New()
	msg := InboundMessage{Channel: "cli", ChatID: "default", Content: "hi"}
	b.PublishInbound(msg)

	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()

	got, ok := b.ConsumeInbound(ctx)
	if !ok {
		t.Fatal("expected a message, got none")
	}
	if got.SessionKey() != "cli:default" {
		t.Errorf("session key = %q, want %q", got.SessionKey(), "cli:default")
	}
}

func TestConsumeInboundCancelled(t *testing.T) {
	b := New()
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, ok := b.ConsumeInbound(ctx)
	if ok {
		t.Fatal("expected ok=false for a cancelled context")
	}
}

func TestDispatchFanoutAllSubscribersRun(t *testing.T) {
	b := New()
	var n int32
	var wg sync.WaitGroup
	wg.Add(3)
	for i := 0; i < 3; i++ {
		b.Subscribe("cli", func(OutboundMessage) error {
			atomic.AddInt32(&n, 1)
			wg.Done()
			return nil
		})
	}

	b.Start(context.Background())
	defer b.Stop()

	b.PublishOutbound(OutboundMessage{Channel: "cli", Content: "reply"})

	done := make(chan struct{})
	go func() { wg.Wait(); close(done) }()
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("not all subscribers ran")
	}

	if atomic.LoadInt32(&n) != 3 {
		t.Errorf("n = %d, want 3", n)
	}
}

func TestFailingSubscriberDoesNotBlockSiblings(t *testing.T) {
	b := New()
	var ok1, ok2 int32
	b.Subscribe("cli", func(OutboundMessage) error {
		panic("boom")
	})
	b.Subscribe("cli", func(OutboundMessage) error {
		return errors.New("fail")
	})
	b.Subscribe("cli", func(OutboundMessage) error {
		atomic.StoreInt32(&ok1, 1)
		return nil
	})
	b.Subscribe("cli", func(OutboundMessage) error {
		atomic.StoreInt32(&ok2, 1)
		return nil
	})

	b.Start(context.Background())
	b.PublishOutbound(OutboundMessage{Channel: "cli"})
	b.Stop()

	if atomic.LoadInt32(&ok1) != 1 || atomic.LoadInt32(&ok2) != 1 {
		t.Error("sibling subscribers did not run after a panicking/erroring subscriber")
	}
}

func TestNoSubscriberDropsSilently(t *testing.T) {
	b := New()
	b.Start(context.Background())
	defer b.Stop()

	b.PublishOutbound(OutboundMessage{Channel: "nobody-listens"})
	time.Sleep(50 * time.Millisecond) // dispatch runs in background; nothing should block or panic
}

func TestStartIdempotent(t *testing.T) {
	b := New()
	ctx := context.Background()
	b.Start(ctx)
	b.Start(ctx) // second call must be a no-op, not a second dispatcher
	b.Stop()
}

func TestStopWaitsForDispatcher(t *testing.T) {
	b := New()
	b.Start(context.Background())
	b.Stop()
	// Stop() must fully join the dispatcher goroutine; calling it twice is safe.
	b.Stop()
}
