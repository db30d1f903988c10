package agent

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/clawcore/runtime/internal/bootstrap"
	"github.com/clawcore/runtime/internal/memory"
	"github.com/clawcore/runtime/internal/providers"
	"github.com/clawcore/runtime/internal/skills"
)

// bootstrapDocs are read from the workspace root, in display order, if present.
var bootstrapDocs = []string{
	bootstrap.IdentityFile,
	bootstrap.AgentsFile,
	bootstrap.ToolsFile,
	bootstrap.UserFile,
	bootstrap.SoulFile,
}

// ContextBuilder assembles the system prompt and message list for a turn.
type ContextBuilder struct {
	workspace string
	memory    *memory.Store
	skills    *skills.Loader
	toolNames []string
}

// NewContextBuilder creates a builder rooted at workspace. toolNames is the
// registry's tool list, shown in the identity block.
func NewContextBuilder(workspace string, toolNames []string) *ContextBuilder {
	return &ContextBuilder{
		workspace: workspace,
		memory:    memory.New(workspace),
		skills:    skills.New(workspace),
		toolNames: toolNames,
	}
}

// BuildSystemPrompt assembles the full system prompt: identity, bootstrap
// documents, memory snapshot, always-on skill bodies, and a discoverable
// skills index — each section separated by a horizontal rule.
func (cb *ContextBuilder) BuildSystemPrompt() string {
	var sections []string

	sections = append(sections, cb.identity())

	if docs := cb.loadBootstrapDocs(); docs != "" {
		sections = append(sections, docs)
	}

	if mem := cb.memory.Context(); mem != "" {
		sections = append(sections, "# Memory\n\n"+mem)
	}

	if always := cb.alwaysOnSkills(); always != "" {
		sections = append(sections, always)
	}

	if index := cb.skills.Index(); index != "" {
		sections = append(sections, "# Available Skills\n\nTo use a skill, read its SKILL.md file and follow the instructions inside. Some require dependencies that may not be installed.\n\n"+index)
	}

	return strings.Join(sections, "\n\n---\n\n")
}

func (cb *ContextBuilder) identity() string {
	abs, err := filepath.Abs(cb.workspace)
	if err != nil {
		abs = cb.workspace
	}
	now := time.Now().Format("2006-01-02 15:04 (Monday)")

	return fmt.Sprintf(`# Personal Assistant

You are a personal AI assistant. You plan tasks, execute tools, and carry
actions through to completion rather than describing what you would do.

## Current Time
%s

## Workspace
%s

- Memory: %s/memory/MEMORY.md and %s/memory/YYYY-MM-DD.md
- Skills: %s/skills/<name>/SKILL.md

## Tools
%s

## Rules
- Use a tool whenever one is needed to complete the request; never pretend to act.
- Prefer a direct answer when no tool is required.
- Record anything worth remembering long-term into MEMORY.md.`,
		now, abs, abs, abs, abs, strings.Join(cb.toolNames, ", "))
}

func (cb *ContextBuilder) loadBootstrapDocs() string {
	var parts []string
	for _, name := range bootstrapDocs {
		data, err := os.ReadFile(filepath.Join(cb.workspace, name))
		if err != nil {
			continue
		}
		parts = append(parts, "## "+name+"\n\n"+strings.TrimSpace(string(data)))
	}
	return strings.Join(parts, "\n\n")
}

func (cb *ContextBuilder) alwaysOnSkills() string {
	always := cb.skills.AlwaysOn()
	if len(always) == 0 {
		return ""
	}
	var parts []string
	for _, s := range always {
		parts = append(parts, "## Skill: "+s.Name+"\n\n"+s.Content)
	}
	return "# Active Skills\n\n" + strings.Join(parts, "\n\n---\n\n")
}

// BuildUserMessage assembles the current turn's user message. If media
// contains local paths with a recognized image MIME type, the images are
// attached as base64 data URLs alongside the text; otherwise content is a
// plain string.
func BuildUserMessage(content string, media []string) providers.Message {
	msg := providers.Message{Role: "user", Content: content}
	msg.Images = loadImages(media)
	return msg
}
