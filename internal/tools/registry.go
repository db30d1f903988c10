package tools

import (
	"context"
	"fmt"
	"log/slog"
	"sort"
	"sync"

	"github.com/clawcore/runtime/internal/providers"
)

// Tool is a named, side-effecting capability exposed to the LLM.
type Tool interface {
	Name() string
	Description() string
	Parameters() map[string]interface{}
	Execute(ctx context.Context, args map[string]interface{}) *Result
}

// ContextSetter is implemented by tools that route their effects (replies,
// spawned work, scheduled jobs) back through the channel/chat that invoked
// them. The agent loop calls Registry.SetContext at the start of each turn,
// which forwards the routing to every such tool, so a stateful tool sees the
// current turn's routing, not a stale one.
type ContextSetter interface {
	SetContext(channel, chatID string)
}

// Registry holds the tools available to a single agent loop invocation and
// dispatches calls to them by name.
type Registry struct {
	mu    sync.RWMutex
	tools map[string]Tool
}

// NewRegistry creates an empty registry.
func NewRegistry() *Registry {
	return &Registry{tools: make(map[string]Tool)}
}

// Register adds or replaces a tool under its own name.
func (r *Registry) Register(t Tool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.tools[t.Name()] = t
}

// Unregister removes a tool by name, if present.
func (r *Registry) Unregister(name string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.tools, name)
}

// Get returns a tool by name.
func (r *Registry) Get(name string) (Tool, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	t, ok := r.tools[name]
	return t, ok
}

// SetContext propagates channel/chatID routing to every registered tool
// that implements ContextSetter.
func (r *Registry) SetContext(channel, chatID string) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	for _, t := range r.tools {
		if cs, ok := t.(ContextSetter); ok {
			cs.SetContext(channel, chatID)
		}
	}
}

// Names returns every registered tool name, sorted.
func (r *Registry) Names() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	names := make([]string, 0, len(r.tools))
	for name := range r.tools {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Definitions exports every tool as a function-call descriptor suitable for
// a provider.ChatRequest.Tools.
func (r *Registry) Definitions() []providers.ToolDefinition {
	r.mu.RLock()
	defer r.mu.RUnlock()
	defs := make([]providers.ToolDefinition, 0, len(r.tools))
	names := make([]string, 0, len(r.tools))
	for name := range r.tools {
		names = append(names, name)
	}
	sort.Strings(names)
	for _, name := range names {
		t := r.tools[name]
		defs = append(defs, providers.ToolDefinition{
			Type: "function",
			Function: providers.ToolFunctionSchema{
				Name:        t.Name(),
				Description: t.Description(),
				Parameters:  t.Parameters(),
			},
		})
	}
	return defs
}

// Execute validates args against the named tool's schema and dispatches to
// it, recovering from any panic so a single misbehaving tool cannot bring
// down the agent loop.
func (r *Registry) Execute(ctx context.Context, name string, args map[string]interface{}) (result *Result) {
	t, ok := r.Get(name)
	if !ok {
		return ErrorResult(fmt.Sprintf("Error: tool '%s' is not registered", name))
	}

	if err := validateArgs(t.Parameters(), args); err != nil {
		return ErrorResult(fmt.Sprintf("Error: invalid parameters for tool '%s': %s", name, err.Error()))
	}

	defer func() {
		if rec := recover(); rec != nil {
			slog.Error("tool panicked", "tool", name, "panic", rec)
			result = ErrorResult(fmt.Sprintf("Error: tool '%s' execution failed: %v", name, rec))
		}
	}()

	if args == nil {
		args = map[string]interface{}{}
	}
	return t.Execute(ctx, args)
}

// ProviderDefs is an alias for Definitions kept for call-site readability
// at chat-request construction points.
func (r *Registry) ProviderDefs() []providers.ToolDefinition {
	return r.Definitions()
}
