// Package feishu implements the Feishu/Lark channel using a native HTTP
// client and an event webhook. Supports DM + group chats, mentions, and
// markdown-card rendering for content that benefits from it.
package feishu

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/clawcore/runtime/internal/bus"
	"github.com/clawcore/runtime/internal/channels"
	"github.com/clawcore/runtime/internal/config"
)

const (
	defaultTextChunkLimit = 4000
	defaultWebhookPort    = 3000
	defaultWebhookPath    = "/feishu/events"
	senderCacheTTL        = 10 * time.Minute
)

// Channel connects to Feishu/Lark via native HTTP + an event webhook.
type Channel struct {
	*channels.BaseChannel
	cfg         config.FeishuConfig
	client      *LarkClient
	botOpenID   string
	senderCache sync.Map // open_id → *senderCacheEntry
	dedup       sync.Map // message_id → struct{}
	httpServer  *http.Server
}

type senderCacheEntry struct {
	name      string
	expiresAt time.Time
}

// New creates a Feishu/Lark channel.
func New(cfg config.FeishuConfig, msgBus *bus.MessageBus) (*Channel, error) {
	if cfg.AppID == "" || cfg.AppSecret == "" {
		return nil, fmt.Errorf("feishu appId and appSecret are required")
	}

	return &Channel{
		BaseChannel: channels.NewBaseChannel("feishu", msgBus, cfg.AllowFrom),
		cfg:         cfg,
		client:      NewLarkClient(cfg.AppID, cfg.AppSecret, "https://open.larksuite.com"),
	}, nil
}

// Start probes the bot's identity and opens the event webhook.
func (c *Channel) Start(ctx context.Context) error {
	slog.Info("starting feishu/lark bot")

	if openID, err := c.client.GetBotInfo(ctx); err != nil {
		slog.Warn("feishu bot probe failed (will continue)", "error", err)
	} else {
		c.botOpenID = openID
		slog.Info("feishu bot connected", "bot_open_id", openID)
	}

	handler := NewWebhookHandler(c.cfg.VerificationToken, c.cfg.EncryptKey, c.handleMessageEvent)
	mux := http.NewServeMux()
	mux.HandleFunc(defaultWebhookPath, handler)

	c.httpServer = &http.Server{Addr: fmt.Sprintf(":%d", defaultWebhookPort), Handler: mux}
	go func() {
		if err := c.httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			slog.Error("feishu webhook server error", "error", err)
		}
	}()

	c.SetRunning(true)
	slog.Info("feishu webhook listening", "port", defaultWebhookPort, "path", defaultWebhookPath)
	return nil
}

// Stop shuts down the Feishu webhook server.
func (c *Channel) Stop(ctx context.Context) error {
	slog.Info("stopping feishu/lark bot")
	c.SetRunning(false)
	if c.httpServer != nil {
		return c.httpServer.Shutdown(ctx)
	}
	return nil
}

// Send delivers an outbound message to a Feishu chat, rendering as a
// markdown card when the content benefits from it (code blocks, tables).
func (c *Channel) Send(ctx context.Context, msg bus.OutboundMessage) error {
	if !c.IsRunning() {
		return fmt.Errorf("feishu bot not running")
	}
	if msg.ChatID == "" {
		return fmt.Errorf("empty chat ID for feishu send")
	}
	if msg.Content == "" {
		return nil
	}

	receiveIDType := resolveReceiveIDType(msg.ChatID)

	for _, path := range msg.Media {
		if err := c.sendMediaFile(ctx, receiveIDType, msg.ChatID, path); err != nil {
			slog.Warn("feishu send media failed", "path", path, "error", err)
		}
	}

	if shouldUseCard(msg.Content) {
		return c.sendMarkdownCard(ctx, msg.ChatID, receiveIDType, msg.Content)
	}
	return c.sendChunkedText(ctx, msg.ChatID, receiveIDType, msg.Content, defaultTextChunkLimit)
}

// sendMediaFile routes a local media path to the image or generic file
// upload API based on its extension.
func (c *Channel) sendMediaFile(ctx context.Context, receiveIDType, chatID, path string) error {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".png", ".jpg", ".jpeg", ".gif", ".webp":
		return c.sendImage(ctx, receiveIDType, chatID, path)
	default:
		return c.sendFile(ctx, receiveIDType, chatID, path)
	}
}

func (c *Channel) sendChunkedText(ctx context.Context, chatID, receiveIDType, text string, chunkLimit int) error {
	for len(text) > 0 {
		chunk := text
		if len(chunk) > chunkLimit {
			cutAt := chunkLimit
			if idx := strings.LastIndex(text[:chunkLimit], "\n"); idx > chunkLimit/2 {
				cutAt = idx + 1
			}
			chunk = text[:cutAt]
			text = text[cutAt:]
		} else {
			text = ""
		}
		if err := c.sendText(ctx, chatID, receiveIDType, chunk); err != nil {
			return err
		}
	}
	return nil
}

func (c *Channel) sendText(ctx context.Context, chatID, receiveIDType, text string) error {
	if _, err := c.client.SendMessage(ctx, receiveIDType, chatID, "post", buildPostContent(text)); err != nil {
		return fmt.Errorf("feishu send text: %w", err)
	}
	return nil
}

func (c *Channel) sendMarkdownCard(ctx context.Context, chatID, receiveIDType, text string) error {
	cardJSON, err := json.Marshal(buildMarkdownCard(text))
	if err != nil {
		return fmt.Errorf("marshal card: %w", err)
	}
	if _, err := c.client.SendMessage(ctx, receiveIDType, chatID, "interactive", string(cardJSON)); err != nil {
		return fmt.Errorf("feishu send card: %w", err)
	}
	return nil
}

func resolveReceiveIDType(id string) string {
	switch {
	case strings.HasPrefix(id, "ou_"):
		return "open_id"
	case strings.HasPrefix(id, "on_"):
		return "union_id"
	default:
		return "chat_id"
	}
}

func buildPostContent(text string) string {
	content := map[string]interface{}{
		"zh_cn": map[string]interface{}{
			"content": [][]map[string]interface{}{
				{{"tag": "md", "text": text}},
			},
		},
	}
	data, _ := json.Marshal(content)
	return string(data)
}

func buildMarkdownCard(text string) map[string]interface{} {
	return map[string]interface{}{
		"schema": "2.0",
		"config": map[string]interface{}{"wide_screen_mode": true},
		"body": map[string]interface{}{
			"elements": []map[string]interface{}{
				{"tag": "markdown", "content": text},
			},
		},
	}
}

func shouldUseCard(text string) bool {
	return strings.Contains(text, "```") ||
		strings.Contains(text, "| --- ") ||
		strings.Contains(text, "|---|")
}

// isDuplicate returns true if messageID was already processed within the
// dedup window.
func (c *Channel) isDuplicate(messageID string) bool {
	_, loaded := c.dedup.LoadOrStore(messageID, struct{}{})
	if !loaded {
		go func() {
			time.Sleep(5 * time.Minute)
			c.dedup.Delete(messageID)
		}()
	}
	return loaded
}

var _ channels.Channel = (*Channel)(nil)
