package config

// ChannelsConfig contains per-channel configuration.
type ChannelsConfig struct {
	CLI      CLIConfig      `json:"cli"`
	Telegram TelegramConfig `json:"telegram"`
	Discord  DiscordConfig  `json:"discord"`
	WhatsApp WhatsAppConfig `json:"whatsapp"`
	Feishu   FeishuConfig   `json:"feishu"`
}

// CLIConfig configures the local stdin/stdout adapter.
type CLIConfig struct {
	Enabled bool `json:"enabled"`
}

type TelegramConfig struct {
	Enabled   bool                `json:"enabled"`
	Token     string              `json:"token"`
	AllowFrom FlexibleStringSlice `json:"allowFrom"`
}

type DiscordConfig struct {
	Enabled   bool                `json:"enabled"`
	Token     string              `json:"token"`
	AllowFrom FlexibleStringSlice `json:"allowFrom"`
}

type WhatsAppConfig struct {
	Enabled   bool                `json:"enabled"`
	BridgeURL string              `json:"bridgeUrl"`
	AllowFrom FlexibleStringSlice `json:"allowFrom"`
}

type FeishuConfig struct {
	Enabled           bool                `json:"enabled"`
	AppID             string              `json:"appId"`
	AppSecret         string              `json:"appSecret"`
	EncryptKey        string              `json:"encryptKey,omitempty"`
	VerificationToken string              `json:"verificationToken,omitempty"`
	AllowFrom         FlexibleStringSlice `json:"allowFrom"`
}

// ProvidersConfig maps provider name to its config. Only anthropic has a
// concrete adapter wired; the remaining entries are accepted on disk so a
// config file written against the full vendor list still loads cleanly.
type ProvidersConfig struct {
	Anthropic  ProviderConfig `json:"anthropic"`
	OpenAI     ProviderConfig `json:"openai"`
	OpenRouter ProviderConfig `json:"openrouter"`
	DeepSeek   ProviderConfig `json:"deepseek"`
	Groq       ProviderConfig `json:"groq"`
	Zhipu      ProviderConfig `json:"zhipu"`
	Gemini     ProviderConfig `json:"gemini"`
	Moonshot   ProviderConfig `json:"moonshot"`
	Vllm       ProviderConfig `json:"vllm"`
}

type ProviderConfig struct {
	APIKey  string `json:"apiKey"`
	APIBase string `json:"apiBase,omitempty"`
}

// HasAnyProvider returns true if at least one provider has an API key configured.
func (c *Config) HasAnyProvider() bool {
	p := c.Providers
	return p.Anthropic.APIKey != "" ||
		p.OpenAI.APIKey != "" ||
		p.OpenRouter.APIKey != "" ||
		p.DeepSeek.APIKey != "" ||
		p.Groq.APIKey != "" ||
		p.Zhipu.APIKey != "" ||
		p.Gemini.APIKey != "" ||
		p.Moonshot.APIKey != "" ||
		p.Vllm.APIKey != ""
}

// GatewayConfig controls the gateway process.
type GatewayConfig struct {
	Host string `json:"host"`
	Port int    `json:"port"`
}

// ToolsConfig controls built-in tool availability and limits.
type ToolsConfig struct {
	RestrictToWorkspace bool         `json:"restrictToWorkspace"`
	Web                 WebToolsCfg  `json:"web"`
	Exec                ExecToolsCfg `json:"exec"`
}

// WebToolsCfg configures the web_search and web_fetch tools.
type WebToolsCfg struct {
	Search WebSearchCfg `json:"search"`
}

type WebSearchCfg struct {
	APIKey string `json:"apiKey,omitempty"`
}

// ExecToolsCfg configures the exec tool.
type ExecToolsCfg struct {
	TimeoutSec int `json:"timeout"`
}
