package discord

import "testing"

func TestChunkMessageUnderLimit(t *testing.T) {
	chunks := chunkMessage("hello", 2000)
	if len(chunks) != 1 || chunks[0] != "hello" {
		t.Errorf("chunks = %v", chunks)
	}
}

func TestChunkMessageBreaksOnNewline(t *testing.T) {
	content := "line one\n" + strRepeat("x", 20)
	chunks := chunkMessage(content, 10)
	if len(chunks) < 2 {
		t.Fatalf("expected multiple chunks, got %d", len(chunks))
	}
	if chunks[0] != "line one\n" {
		t.Errorf("first chunk = %q, want break at newline", chunks[0])
	}
}

func strRepeat(s string, n int) string {
	out := ""
	for i := 0; i < n; i++ {
		out += s
	}
	return out
}
