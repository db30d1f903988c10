package config

import (
	"encoding/json"
	"fmt"
	"sync"
)

// FlexibleStringSlice accepts both ["str"] and [123] in JSON.
type FlexibleStringSlice []string

func (f *FlexibleStringSlice) UnmarshalJSON(data []byte) error {
	var ss []string
	if err := json.Unmarshal(data, &ss); err == nil {
		*f = ss
		return nil
	}
	var raw []interface{}
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	result := make([]string, 0, len(raw))
	for _, v := range raw {
		switch val := v.(type) {
		case string:
			result = append(result, val)
		case float64:
			result = append(result, fmt.Sprintf("%.0f", val))
		default:
			result = append(result, fmt.Sprintf("%v", val))
		}
	}
	*f = result
	return nil
}

// Config is the root configuration for the runtime gateway.
type Config struct {
	Agents    AgentsConfig    `json:"agents"`
	Channels  ChannelsConfig  `json:"channels"`
	Providers ProvidersConfig `json:"providers"`
	Gateway   GatewayConfig   `json:"gateway"`
	Tools     ToolsConfig     `json:"tools"`
	Sessions  SessionsConfig  `json:"sessions"`
	mu        sync.RWMutex
}

// AgentsConfig contains the single agent's default settings.
type AgentsConfig struct {
	Defaults AgentDefaults `json:"defaults"`
}

// AgentDefaults are the settings applied to every session's agent loop.
type AgentDefaults struct {
	Workspace           string           `json:"workspace"`
	RestrictToWorkspace bool             `json:"restrictToWorkspace"`
	Provider            string           `json:"provider"`
	Model               string           `json:"model"`
	MaxTokens           int              `json:"maxTokens"`
	Temperature         float64          `json:"temperature"`
	MaxToolIterations   int              `json:"maxToolIterations"`
	ContextWindow       int              `json:"contextWindow"`
	Subagents           *SubagentsConfig `json:"subagents,omitempty"`
	Heartbeat           *HeartbeatConfig `json:"heartbeat,omitempty"`
}

// SubagentsConfig bounds the subagent manager.
type SubagentsConfig struct {
	MaxConcurrent int `json:"maxConcurrent,omitempty"` // default 8
	MaxSpawnDepth int `json:"maxSpawnDepth,omitempty"` // default 1
}

// HeartbeatConfig configures the periodic heartbeat service.
type HeartbeatConfig struct {
	Every       string             `json:"every,omitempty"`       // duration string, "0m" disables (default "30m")
	ActiveHours *ActiveHoursConfig `json:"activeHours,omitempty"` // restrict to a time window
}

// ActiveHoursConfig restricts heartbeats to a time-of-day window.
type ActiveHoursConfig struct {
	Start    string `json:"start,omitempty"`    // "HH:MM" inclusive
	End      string `json:"end,omitempty"`      // "HH:MM" exclusive
	Timezone string `json:"timezone,omitempty"` // IANA timezone (default: local)
}

// SessionsConfig controls where session transcripts are stored.
type SessionsConfig struct {
	Storage string `json:"storage"` // directory for session .jsonl files
}

// ReplaceFrom copies all data fields from src into c, preserving c's mutex.
func (c *Config) ReplaceFrom(src *Config) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.Agents = src.Agents
	c.Channels = src.Channels
	c.Providers = src.Providers
	c.Gateway = src.Gateway
	c.Tools = src.Tools
	c.Sessions = src.Sessions
}
