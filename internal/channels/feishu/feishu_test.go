package feishu

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
)

func TestParseMessageContentText(t *testing.T) {
	raw := `{"text":"hello world"}`
	if got := parseMessageContent(raw, "text"); got != "hello world" {
		t.Errorf("got %q", got)
	}
}

func TestParsePostContent(t *testing.T) {
	raw := `{"zh_cn":{"content":[[{"tag":"text","text":"line one"}]]}}`
	if got := parsePostContent(raw); got != "line one" {
		t.Errorf("got %q", got)
	}
}

func TestStripBotMention(t *testing.T) {
	mentions := []mentionInfo{{Key: "@_user_1", OpenID: "ou_bot"}}
	got := stripBotMention("@_user_1 hello", mentions, "ou_bot")
	if got != "hello" {
		t.Errorf("got %q", got)
	}
}

func TestShouldUseCard(t *testing.T) {
	if !shouldUseCard("```go\ncode\n```") {
		t.Error("expected code block to trigger card rendering")
	}
	if shouldUseCard("plain text") {
		t.Error("expected plain text not to trigger card rendering")
	}
}

func TestResolveReceiveIDType(t *testing.T) {
	cases := map[string]string{
		"ou_abc": "open_id",
		"on_abc": "union_id",
		"oc_abc": "chat_id",
	}
	for id, want := range cases {
		if got := resolveReceiveIDType(id); got != want {
			t.Errorf("resolveReceiveIDType(%q) = %q, want %q", id, got, want)
		}
	}
}

func TestWebhookHandlerURLVerification(t *testing.T) {
	handler := NewWebhookHandler("my-token", "", func(*MessageEvent) {})

	body, _ := json.Marshal(challengePayload{Type: "url_verification", Token: "my-token", Challenge: "abc123"})
	req := httptest.NewRequest(http.MethodPost, "/feishu/events", strings.NewReader(string(body)))
	rec := httptest.NewRecorder()

	handler(rec, req)

	var resp map[string]string
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if resp["challenge"] != "abc123" {
		t.Errorf("challenge = %q, want abc123", resp["challenge"])
	}
}

func TestWebhookHandlerRejectsBadToken(t *testing.T) {
	handler := NewWebhookHandler("my-token", "", func(*MessageEvent) {})

	body, _ := json.Marshal(challengePayload{Type: "url_verification", Token: "wrong", Challenge: "abc123"})
	req := httptest.NewRequest(http.MethodPost, "/feishu/events", strings.NewReader(string(body)))
	rec := httptest.NewRecorder()

	handler(rec, req)

	if rec.Code != http.StatusUnauthorized {
		t.Errorf("status = %d, want 401", rec.Code)
	}
}

func TestResolveMediaIgnoresNonMediaTypes(t *testing.T) {
	c := &Channel{client: NewLarkClient("id", "secret", "https://open.larksuite.com")}
	mc := &messageContext{MessageID: "om_1"}

	got := c.resolveMedia(context.Background(), mc, `{"text":"hi"}`, "text")
	if got != nil {
		t.Errorf("got %v, want nil for a text message", got)
	}
}

func TestResolveMediaIgnoresMalformedContent(t *testing.T) {
	c := &Channel{client: NewLarkClient("id", "secret", "https://open.larksuite.com")}
	mc := &messageContext{MessageID: "om_1"}

	if got := c.resolveMedia(context.Background(), mc, `not-json`, "image"); got != nil {
		t.Errorf("got %v, want nil for malformed image content", got)
	}
	if got := c.resolveMedia(context.Background(), mc, `{}`, "file"); got != nil {
		t.Errorf("got %v, want nil when file_key is missing", got)
	}
}
