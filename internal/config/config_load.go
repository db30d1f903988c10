package config

import (
	"crypto/sha256"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strconv"

	"github.com/titanous/json5"
)

// Default returns a Config with sensible defaults.
func Default() *Config {
	return &Config{
		Agents: AgentsConfig{
			Defaults: AgentDefaults{
				Workspace:           "~/.clawcore/workspace",
				RestrictToWorkspace: true,
				Provider:            "anthropic",
				Model:               "claude-sonnet-4-5-20250929",
				MaxTokens:           8192,
				Temperature:         0.7,
				MaxToolIterations:   20,
				ContextWindow:       200000,
				Subagents: &SubagentsConfig{
					MaxConcurrent: 8,
					MaxSpawnDepth: 1,
				},
				Heartbeat: &HeartbeatConfig{
					Every: "30m",
				},
			},
		},
		Channels: ChannelsConfig{
			CLI: CLIConfig{Enabled: true},
		},
		Gateway: GatewayConfig{
			Host: "0.0.0.0",
			Port: 18790,
		},
		Tools: ToolsConfig{
			RestrictToWorkspace: true,
			Exec: ExecToolsCfg{
				TimeoutSec: 60,
			},
		},
		Sessions: SessionsConfig{
			Storage: "~/.clawcore/sessions",
		},
	}
}

// Load reads config from a JSON5 file, then overlays env vars. A missing
// file falls back to defaults rather than erroring.
func Load(path string) (*Config, error) {
	cfg := Default()

	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			cfg.applyEnvOverrides()
			return cfg, nil
		}
		return nil, fmt.Errorf("read config: %w", err)
	}

	if err := json5.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parse config: %w", err)
	}

	cfg.applyEnvOverrides()
	return cfg, nil
}

// applyEnvOverrides overlays env vars onto the config. Env vars take
// precedence over file values; secrets may come from either source.
func (c *Config) applyEnvOverrides() {
	envStr := func(key string, dst *string) {
		if v := os.Getenv(key); v != "" {
			*dst = v
		}
	}
	envStr("CLAWCORE_ANTHROPIC_API_KEY", &c.Providers.Anthropic.APIKey)
	envStr("CLAWCORE_ANTHROPIC_BASE_URL", &c.Providers.Anthropic.APIBase)
	envStr("CLAWCORE_OPENAI_API_KEY", &c.Providers.OpenAI.APIKey)
	envStr("CLAWCORE_OPENROUTER_API_KEY", &c.Providers.OpenRouter.APIKey)
	envStr("CLAWCORE_DEEPSEEK_API_KEY", &c.Providers.DeepSeek.APIKey)
	envStr("CLAWCORE_GROQ_API_KEY", &c.Providers.Groq.APIKey)
	envStr("CLAWCORE_ZHIPU_API_KEY", &c.Providers.Zhipu.APIKey)
	envStr("CLAWCORE_GEMINI_API_KEY", &c.Providers.Gemini.APIKey)
	envStr("CLAWCORE_MOONSHOT_API_KEY", &c.Providers.Moonshot.APIKey)
	envStr("CLAWCORE_VLLM_API_KEY", &c.Providers.Vllm.APIKey)

	envStr("CLAWCORE_TELEGRAM_TOKEN", &c.Channels.Telegram.Token)
	envStr("CLAWCORE_DISCORD_TOKEN", &c.Channels.Discord.Token)
	envStr("CLAWCORE_WHATSAPP_BRIDGE_URL", &c.Channels.WhatsApp.BridgeURL)
	envStr("CLAWCORE_FEISHU_APP_ID", &c.Channels.Feishu.AppID)
	envStr("CLAWCORE_FEISHU_APP_SECRET", &c.Channels.Feishu.AppSecret)
	envStr("CLAWCORE_FEISHU_ENCRYPT_KEY", &c.Channels.Feishu.EncryptKey)
	envStr("CLAWCORE_FEISHU_VERIFICATION_TOKEN", &c.Channels.Feishu.VerificationToken)

	if c.Channels.Telegram.Token != "" {
		c.Channels.Telegram.Enabled = true
	}
	if c.Channels.Discord.Token != "" {
		c.Channels.Discord.Enabled = true
	}
	if c.Channels.WhatsApp.BridgeURL != "" {
		c.Channels.WhatsApp.Enabled = true
	}
	if c.Channels.Feishu.AppID != "" && c.Channels.Feishu.AppSecret != "" {
		c.Channels.Feishu.Enabled = true
	}

	envStr("CLAWCORE_PROVIDER", &c.Agents.Defaults.Provider)
	envStr("CLAWCORE_MODEL", &c.Agents.Defaults.Model)
	envStr("CLAWCORE_WORKSPACE", &c.Agents.Defaults.Workspace)
	envStr("CLAWCORE_SESSIONS_STORAGE", &c.Sessions.Storage)

	envStr("CLAWCORE_HOST", &c.Gateway.Host)
	if v := os.Getenv("CLAWCORE_PORT"); v != "" {
		if port, err := strconv.Atoi(v); err == nil && port > 0 {
			c.Gateway.Port = port
		}
	}

	envStr("CLAWCORE_WEB_SEARCH_API_KEY", &c.Tools.Web.Search.APIKey)
}

// Save writes the config to a JSON file.
func Save(path string, cfg *Config) error {
	cfg.mu.RLock()
	defer cfg.mu.RUnlock()

	data, err := json.MarshalIndent(cfg, "", "  ")
	if err != nil {
		return err
	}

	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return err
	}

	return os.WriteFile(path, data, 0600)
}

// Hash returns a short SHA-256 hash of the config for change detection.
func (c *Config) Hash() string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	data, _ := json.Marshal(c)
	h := sha256.Sum256(data)
	return fmt.Sprintf("%x", h[:8])
}

// WorkspacePath returns the expanded workspace path.
func (c *Config) WorkspacePath() string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return ExpandHome(c.Agents.Defaults.Workspace)
}

// ApplyEnvOverrides re-applies environment variable overrides onto the
// config. Call after mutating config in-place to restore runtime secrets.
func (c *Config) ApplyEnvOverrides() {
	c.applyEnvOverrides()
}

// ExpandHome replaces a leading ~ with the user home directory.
func ExpandHome(path string) string {
	if path == "" || path[0] != '~' {
		return path
	}
	home, _ := os.UserHomeDir()
	if len(path) > 1 && path[1] == '/' {
		return home + path[1:]
	}
	return home
}
