package cli

import (
	"context"
	"testing"
	"time"

	"github.com/clawcore/runtime/internal/bus"
)

func TestChannelName(t *testing.T) {
	c := New(bus.New())
	if c.Name() != "cli" {
		t.Errorf("Name() = %q, want cli", c.Name())
	}
}

func TestStartStop(t *testing.T) {
	c := New(bus.New())
	if err := c.Start(context.Background()); err != nil {
		t.Fatalf("Start: %v", err)
	}
	if !c.IsRunning() {
		t.Error("expected channel to be running after Start")
	}
	if err := c.Stop(context.Background()); err != nil {
		t.Fatalf("Stop: %v", err)
	}
	if c.IsRunning() {
		t.Error("expected channel to be stopped after Stop")
	}
}

func TestSendDoesNotBlock(t *testing.T) {
	c := New(bus.New())
	done := make(chan struct{})
	go func() {
		_ = c.Send(context.Background(), bus.OutboundMessage{Content: "hello"})
		close(done)
	}()
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("Send did not return")
	}
}
