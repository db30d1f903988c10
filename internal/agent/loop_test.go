package agent

import (
	"context"
	"testing"

	"github.com/clawcore/runtime/internal/bus"
	"github.com/clawcore/runtime/internal/providers"
	"github.com/clawcore/runtime/internal/sessions"
	"github.com/clawcore/runtime/internal/tools"
)

// scriptedProvider returns one canned response per call, in order.
type scriptedProvider struct {
	responses []providers.ChatResponse
	calls     int
	seen      [][]providers.Message
}

func (p *scriptedProvider) Chat(ctx context.Context, req providers.ChatRequest) (*providers.ChatResponse, error) {
	p.seen = append(p.seen, req.Messages)
	resp := p.responses[p.calls]
	p.calls++
	return &resp, nil
}
func (p *scriptedProvider) DefaultModel() string { return "test-model" }
func (p *scriptedProvider) Name() string         { return "scripted" }

type echoTool struct{ calls int }

func (t *echoTool) Name() string        { return "echo" }
func (t *echoTool) Description() string { return "echoes its input" }
func (t *echoTool) Parameters() map[string]interface{} {
	return map[string]interface{}{
		"type":       "object",
		"properties": map[string]interface{}{"text": map[string]interface{}{"type": "string"}},
	}
}
func (t *echoTool) Execute(ctx context.Context, args map[string]interface{}) *tools.Result {
	t.calls++
	return tools.NewResult("echo: " + args["text"].(string))
}

func newTestLoop(t *testing.T, provider providers.Provider) (*Loop, *tools.Registry) {
	t.Helper()
	reg := tools.NewRegistry()
	sess := sessions.NewManager("")
	msgBus := bus.New()
	l := New(t.TempDir(), provider, "test-model", 0, sess, reg, msgBus)
	return l, reg
}

func TestProcessDirectReturnsDirectAnswer(t *testing.T) {
	provider := &scriptedProvider{responses: []providers.ChatResponse{
		{Content: "hello there", FinishReason: "stop"},
	}}
	l, _ := newTestLoop(t, provider)

	reply, err := l.ProcessDirect(context.Background(), "cli:default", "cli", "default", "hi", nil)
	if err != nil {
		t.Fatalf("ProcessDirect error: %v", err)
	}
	if reply != "hello there" {
		t.Errorf("reply = %q, want %q", reply, "hello there")
	}
	if provider.calls != 1 {
		t.Errorf("provider called %d times, want 1", provider.calls)
	}
}

func TestProcessDirectExecutesToolCallsThenAnswers(t *testing.T) {
	provider := &scriptedProvider{responses: []providers.ChatResponse{
		{
			Content: "",
			ToolCalls: []providers.ToolCall{
				{ID: "call-1", Name: "echo", Arguments: map[string]interface{}{"text": "ping"}},
			},
			FinishReason: "tool_calls",
		},
		{Content: "done", FinishReason: "stop"},
	}}
	l, reg := newTestLoop(t, provider)
	et := &echoTool{}
	reg.Register(et)

	reply, err := l.ProcessDirect(context.Background(), "cli:default", "cli", "default", "do it", nil)
	if err != nil {
		t.Fatalf("ProcessDirect error: %v", err)
	}
	if reply != "done" {
		t.Errorf("reply = %q, want %q", reply, "done")
	}
	if et.calls != 1 {
		t.Errorf("tool called %d times, want 1", et.calls)
	}

	// Second call's messages must contain the assistant tool-call turn and
	// the tool result turn produced by the first.
	secondTurn := provider.seen[1]
	foundToolResult := false
	for _, m := range secondTurn {
		if m.Role == "tool" && m.ToolCallID == "call-1" && m.Content == "echo: ping" {
			foundToolResult = true
		}
	}
	if !foundToolResult {
		t.Error("expected tool result turn to be present in the follow-up request")
	}
}

func TestProcessDirectStopsAtStepLimit(t *testing.T) {
	// Every response requests another tool call, so the loop never naturally ends.
	responses := make([]providers.ChatResponse, 3)
	for i := range responses {
		responses[i] = providers.ChatResponse{
			ToolCalls: []providers.ToolCall{
				{ID: "c", Name: "echo", Arguments: map[string]interface{}{"text": "x"}},
			},
			FinishReason: "tool_calls",
		}
	}
	provider := &scriptedProvider{responses: responses}
	reg := tools.NewRegistry()
	reg.Register(&echoTool{})
	sess := sessions.NewManager("")
	msgBus := bus.New()
	l := New(t.TempDir(), provider, "test-model", 3, sess, reg, msgBus)

	reply, err := l.ProcessDirect(context.Background(), "cli:default", "cli", "default", "loop forever", nil)
	if err != nil {
		t.Fatalf("ProcessDirect error: %v", err)
	}
	if reply != stepLimitReply {
		t.Errorf("reply = %q, want %q", reply, stepLimitReply)
	}
}

func TestRunPublishesOutboundReply(t *testing.T) {
	provider := &scriptedProvider{responses: []providers.ChatResponse{
		{Content: "pong", FinishReason: "stop"},
	}}
	l, _ := newTestLoop(t, provider)

	msgBus := bus.New()
	l.msgBus = msgBus

	var got bus.OutboundMessage
	received := make(chan struct{})
	msgBus.Subscribe("cli", func(m bus.OutboundMessage) error {
		got = m
		close(received)
		return nil
	})
	msgBus.Start(context.Background())
	defer msgBus.Stop()

	err := l.Run(context.Background(), bus.InboundMessage{Channel: "cli", ChatID: "default", Content: "ping"})
	if err != nil {
		t.Fatalf("Run error: %v", err)
	}

	<-received
	if got.Content != "pong" {
		t.Errorf("outbound content = %q, want %q", got.Content, "pong")
	}
}
