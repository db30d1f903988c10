package whatsapp

import (
	"testing"
	"time"

	"github.com/clawcore/runtime/internal/config"
)

func TestMinDuration(t *testing.T) {
	if got := minDuration(time.Second, 2*time.Second); got != time.Second {
		t.Errorf("minDuration = %v, want 1s", got)
	}
	if got := minDuration(5*time.Second, 2*time.Second); got != 2*time.Second {
		t.Errorf("minDuration = %v, want 2s", got)
	}
}

func TestNewRequiresBridgeURL(t *testing.T) {
	if _, err := New(config.WhatsAppConfig{}, nil); err == nil {
		t.Error("expected error for empty bridge URL")
	}
}
