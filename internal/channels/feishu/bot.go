package feishu

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/clawcore/runtime/internal/channels"
)

// messageContext holds parsed information from a Feishu message event.
type messageContext struct {
	ChatID       string
	MessageID    string
	SenderID     string
	ChatType     string // "p2p" or "group"
	Content      string
	MentionedBot bool
	Mentions     []mentionInfo
}

type mentionInfo struct {
	Key    string // @_user_N placeholder
	OpenID string
	Name   string
}

// handleMessageEvent processes an incoming Feishu message event, gating on
// the shared allowlist and forwarding it to the bus.
func (c *Channel) handleMessageEvent(event *MessageEvent) {
	if event == nil {
		return
	}

	messageID := event.Event.Message.MessageID
	if messageID == "" || c.isDuplicate(messageID) {
		return
	}

	mc := c.parseMessageEvent(event)
	if mc.ChatType == "group" && !mc.MentionedBot {
		return
	}
	if !c.IsAllowed(mc.SenderID) {
		slog.Debug("feishu message rejected by allowlist", "sender_id", mc.SenderID)
		return
	}

	ctx := context.Background()
	senderName := c.resolveSenderName(ctx, mc.SenderID)
	media := c.resolveMedia(ctx, mc, event.Event.Message.Content, event.Event.Message.MessageType)

	content := mc.Content
	if content == "" {
		content = "[empty message]"
	}
	if mc.ChatType == "group" && senderName != "" {
		content = fmt.Sprintf("[From: %s]\n%s", senderName, content)
	}

	metadata := map[string]string{
		"message_id":    messageID,
		"chat_type":     mc.ChatType,
		"sender_name":   senderName,
		"mentioned_bot": fmt.Sprintf("%t", mc.MentionedBot),
	}

	slog.Debug("feishu message received",
		"sender_id", mc.SenderID,
		"chat_id", mc.ChatID,
		"chat_type", mc.ChatType,
		"preview", channels.Truncate(content, 50),
	)

	c.HandleMessage(mc.SenderID, mc.ChatID, content, media, metadata)
}

func (c *Channel) parseMessageEvent(event *MessageEvent) *messageContext {
	msg := &event.Event.Message
	sender := &event.Event.Sender

	content := parseMessageContent(msg.Content, msg.MessageType)

	var mentions []mentionInfo
	mentionedBot := false
	for _, m := range msg.Mentions {
		mi := mentionInfo{Key: m.Key, OpenID: m.ID.OpenID, Name: m.Name}
		mentions = append(mentions, mi)
		if c.botOpenID != "" && mi.OpenID == c.botOpenID {
			mentionedBot = true
		}
	}
	if mentionedBot && c.botOpenID != "" {
		content = stripBotMention(content, mentions, c.botOpenID)
	}

	return &messageContext{
		ChatID:       msg.ChatID,
		MessageID:    msg.MessageID,
		SenderID:     sender.SenderID.OpenID,
		ChatType:     msg.ChatType,
		Content:      content,
		MentionedBot: mentionedBot,
		Mentions:     mentions,
	}
}

// --- Content parsing ---

func parseMessageContent(rawContent, messageType string) string {
	if rawContent == "" {
		return ""
	}

	switch messageType {
	case "text":
		var textMsg struct {
			Text string `json:"text"`
		}
		if err := json.Unmarshal([]byte(rawContent), &textMsg); err == nil {
			return textMsg.Text
		}
		return rawContent

	case "post":
		return parsePostContent(rawContent)

	case "image":
		return "[image]"

	case "file":
		var fileMsg struct {
			FileName string `json:"file_name"`
		}
		if err := json.Unmarshal([]byte(rawContent), &fileMsg); err == nil {
			return fmt.Sprintf("[file: %s]", fileMsg.FileName)
		}
		return "[file]"

	default:
		return fmt.Sprintf("[%s message]", messageType)
	}
}

func parsePostContent(rawContent string) string {
	var post map[string]interface{}
	if err := json.Unmarshal([]byte(rawContent), &post); err != nil {
		return rawContent
	}

	var langContent interface{}
	for _, lang := range []string{"zh_cn", "en_us"} {
		if lc, ok := post[lang]; ok {
			langContent = lc
			break
		}
	}
	if langContent == nil {
		for _, v := range post {
			langContent = v
			break
		}
	}
	langMap, ok := langContent.(map[string]interface{})
	if !ok {
		return rawContent
	}
	contentArr, ok := langMap["content"].([]interface{})
	if !ok {
		return rawContent
	}

	var textParts []string
	for _, para := range contentArr {
		paraArr, ok := para.([]interface{})
		if !ok {
			continue
		}
		var lineParts []string
		for _, elem := range paraArr {
			elemMap, ok := elem.(map[string]interface{})
			if !ok {
				continue
			}
			switch elemMap["tag"] {
			case "text", "md":
				if t, ok := elemMap["text"].(string); ok {
					lineParts = append(lineParts, t)
				}
			case "at":
				if name, ok := elemMap["user_name"].(string); ok {
					lineParts = append(lineParts, "@"+name)
				}
			case "a":
				if href, ok := elemMap["href"].(string); ok {
					text, _ := elemMap["text"].(string)
					if text != "" {
						lineParts = append(lineParts, fmt.Sprintf("[%s](%s)", text, href))
					} else {
						lineParts = append(lineParts, href)
					}
				}
			case "img":
				lineParts = append(lineParts, "[image]")
			}
		}
		if len(lineParts) > 0 {
			textParts = append(textParts, strings.Join(lineParts, ""))
		}
	}
	return strings.Join(textParts, "\n")
}

func stripBotMention(text string, mentions []mentionInfo, botOpenID string) string {
	for _, m := range mentions {
		if m.OpenID == botOpenID && m.Key != "" {
			text = strings.ReplaceAll(text, m.Key, "")
		}
	}
	return strings.TrimSpace(text)
}

// --- Sender name resolution ---

func (c *Channel) resolveSenderName(ctx context.Context, openID string) string {
	if openID == "" {
		return ""
	}
	if entry, ok := c.senderCache.Load(openID); ok {
		e := entry.(*senderCacheEntry)
		if time.Now().Before(e.expiresAt) {
			return e.name
		}
		c.senderCache.Delete(openID)
	}

	name, err := c.client.GetUser(ctx, openID, "open_id")
	if err != nil {
		slog.Debug("feishu fetch sender name failed", "open_id", openID, "error", err)
		return ""
	}
	if name != "" {
		c.senderCache.Store(openID, &senderCacheEntry{name: name, expiresAt: time.Now().Add(senderCacheTTL)})
	}
	return name
}
