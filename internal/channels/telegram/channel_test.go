package telegram

import "testing"

func TestParseChatID(t *testing.T) {
	id, err := parseChatID("-100123456")
	if err != nil {
		t.Fatalf("parseChatID error: %v", err)
	}
	if id != -100123456 {
		t.Errorf("id = %d, want -100123456", id)
	}
}

func TestParseChatIDInvalid(t *testing.T) {
	if _, err := parseChatID("not-a-number"); err == nil {
		t.Error("expected error for non-numeric chat id")
	}
}

func TestSplitMessageUnderLimit(t *testing.T) {
	chunks := splitMessage("hello", 4096)
	if len(chunks) != 1 || chunks[0] != "hello" {
		t.Errorf("chunks = %v", chunks)
	}
}

func TestSplitMessageOverLimit(t *testing.T) {
	content := ""
	for i := 0; i < 10; i++ {
		content += "0123456789"
	}
	chunks := splitMessage(content, 30)
	if len(chunks) != 4 {
		t.Fatalf("got %d chunks, want 4", len(chunks))
	}
	joined := ""
	for _, c := range chunks {
		joined += c
	}
	if joined != content {
		t.Error("chunks do not reconstruct original content")
	}
}
