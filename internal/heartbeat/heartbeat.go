// Package heartbeat implements a periodic self-wake loop that reads
// HEARTBEAT.md and hands it to the agent for an actionable reply.
package heartbeat

import (
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/clawcore/runtime/internal/bootstrap"
	"github.com/clawcore/runtime/internal/bus"
)

const (
	minInterval     = 5 * time.Minute
	defaultInterval = 30 * time.Minute
	dedupWindow     = 24 * time.Hour
	okToken         = "HEARTBEAT_OK"
)

// ActiveHours restricts periodic (not externally requested) wakeups to a
// window of the day in a given timezone.
type ActiveHours struct {
	Start    string // "HH:MM"
	End      string // "HH:MM"
	Timezone string // IANA timezone
}

// Handler processes one heartbeat tick's prompt and returns the agent's
// reply text.
type Handler func(prompt string) (reply string, err error)

// Service runs the periodic heartbeat loop.
type Service struct {
	workspace string
	interval  time.Duration
	msgBus    *bus.MessageBus
	handler   Handler

	mu          sync.Mutex
	activeHours *ActiveHours
	lastChannel string
	lastChatID  string
	lastReply   string
	lastSentAt  time.Time

	wakeCh chan struct{}
	stopCh chan struct{}
	doneCh chan struct{}
	log    *slog.Logger
}

// New creates a heartbeat service. intervalMinutes below the 5-minute
// floor is clamped up to it; zero uses the 30-minute default.
func New(workspace string, intervalMinutes int, msgBus *bus.MessageBus, handler Handler) *Service {
	interval := time.Duration(intervalMinutes) * time.Minute
	if intervalMinutes == 0 {
		interval = defaultInterval
	} else if interval < minInterval {
		interval = minInterval
	}
	return &Service{
		workspace: workspace,
		interval:  interval,
		msgBus:    msgBus,
		handler:   handler,
		wakeCh:    make(chan struct{}, 1),
		log:       slog.Default().With("component", "heartbeat"),
	}
}

// SetActiveHours configures the active-hours window. Pass nil to clear it.
func (s *Service) SetActiveHours(ah *ActiveHours) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.activeHours = ah
}

// SetLastChannel records the most recently active channel/chat_id, used as
// the delivery target for unsolicited heartbeat replies.
func (s *Service) SetLastChannel(channel, chatID string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.lastChannel = channel
	s.lastChatID = chatID
}

// Start launches the tick loop. Idempotent.
func (s *Service) Start() {
	s.mu.Lock()
	if s.stopCh != nil {
		s.mu.Unlock()
		return
	}
	s.stopCh = make(chan struct{})
	s.doneCh = make(chan struct{})
	stopCh, doneCh := s.stopCh, s.doneCh
	s.mu.Unlock()

	go s.runLoop(stopCh, doneCh)
}

// Stop cancels the tick loop and waits for it to exit.
func (s *Service) Stop() {
	s.mu.Lock()
	if s.stopCh == nil {
		s.mu.Unlock()
		return
	}
	stopCh, doneCh := s.stopCh, s.doneCh
	s.stopCh = nil
	s.mu.Unlock()

	close(stopCh)
	<-doneCh
}

// Wake triggers an immediate out-of-cycle tick, e.g. from an external event.
func (s *Service) Wake() {
	select {
	case s.wakeCh <- struct{}{}:
	default:
	}
}

func (s *Service) runLoop(stopCh, doneCh chan struct{}) {
	defer close(doneCh)
	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	for {
		select {
		case <-stopCh:
			return
		case <-ticker.C:
			s.tick(true)
		case <-s.wakeCh:
			s.tick(false)
		}
	}
}

// tick runs one heartbeat check; periodic is false for Wake-triggered ticks,
// which the active-hours window does not suppress.
func (s *Service) tick(periodic bool) {
	prompt, actionable := s.buildPrompt()
	if !actionable {
		return
	}

	if periodic && !s.isWithinActiveHours() {
		s.log.Info("skipped, outside active hours")
		return
	}

	if s.handler == nil {
		s.log.Error("no handler configured")
		return
	}

	reply, err := s.handler(prompt)
	if err != nil {
		s.log.Error("handler failed", "error", err)
		return
	}

	text, ok := s.isOK(reply)
	if ok {
		s.log.Info("ok", "reply", text)
		return
	}
	if text == "" {
		return
	}

	if s.isDuplicate(text) {
		s.log.Info("suppressed duplicate", "reply", text)
		return
	}
	s.recordReply(text)
	s.deliver(text)
}

// buildPrompt reads HEARTBEAT.md and decides whether it is actionable.
func (s *Service) buildPrompt() (prompt string, actionable bool) {
	path := filepath.Join(s.workspace, bootstrap.HeartbeatFile)
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			if content, rerr := bootstrap.ReadTemplate(bootstrap.HeartbeatFile); rerr == nil {
				_ = os.WriteFile(path, []byte(content), 0o644)
			}
		} else {
			s.log.Error("failed to read HEARTBEAT.md", "error", err)
		}
		return "", false
	}

	content := strings.TrimSpace(string(data))
	if content == "" || !isActionable(content) {
		return "", false
	}

	now := time.Now()
	tz, _ := now.Zone()
	return content + "\n\nCurrent time: " + now.Format("2006-01-02 15:04:05") + " (" + tz + ")\n\n" +
		"Read this file and act on anything actionable. If there is nothing to do, reply exactly " + okToken + ".", true
}

// isActionable reports whether content has at least one line that isn't a
// markdown header, an HTML comment, or an empty checkbox template.
func isActionable(content string) bool {
	for _, line := range strings.Split(content, "\n") {
		line = strings.TrimSpace(line)
		switch {
		case line == "":
		case strings.HasPrefix(line, "#"):
		case strings.HasPrefix(line, "<!--"):
		case isEmptyChecklistItem(line):
		default:
			return true
		}
	}
	return false
}

func isEmptyChecklistItem(line string) bool {
	for _, prefix := range []string{"- [ ]", "* [ ]", "+ [ ]", "-", "*", "+"} {
		if line == prefix {
			return true
		}
		if strings.HasPrefix(line, prefix) {
			rest := strings.TrimSpace(strings.TrimPrefix(line, prefix))
			if rest == "" || strings.HasPrefix(rest, "(") {
				return true
			}
		}
	}
	return false
}

// isOK normalizes a reply (uppercase, strip underscores) and detects the
// HEARTBEAT_OK token, returning the remaining text and whether it is OK.
func (s *Service) isOK(reply string) (text string, ok bool) {
	normalized := strings.ToUpper(reply)
	normalized = strings.ReplaceAll(normalized, "_", "")
	if strings.Contains(normalized, strings.ReplaceAll(okToken, "_", "")) {
		return strings.TrimSpace(reply), true
	}
	return strings.TrimSpace(reply), false
}

func (s *Service) isWithinActiveHours() bool {
	s.mu.Lock()
	ah := s.activeHours
	s.mu.Unlock()

	if ah == nil || ah.Start == "" || ah.End == "" {
		return true
	}

	loc := time.UTC
	if ah.Timezone != "" {
		if l, err := time.LoadLocation(ah.Timezone); err == nil {
			loc = l
		} else {
			s.log.Error("invalid active_hours timezone", "timezone", ah.Timezone, "error", err)
			return true
		}
	}

	now := time.Now().In(loc)
	cur := now.Hour()*60 + now.Minute()
	start, sok := parseHHMM(ah.Start)
	end, eok := parseHHMM(ah.End)
	if !sok || !eok {
		s.log.Error("invalid active_hours window", "start", ah.Start, "end", ah.End)
		return true
	}
	if start <= end {
		return cur >= start && cur < end
	}
	return cur >= start || cur < end // overnight window
}

func parseHHMM(s string) (int, bool) {
	parts := strings.SplitN(s, ":", 2)
	if len(parts) != 2 {
		return 0, false
	}
	h, err1 := time.Parse("15", parts[0])
	m, err2 := time.Parse("04", parts[1])
	if err1 != nil || err2 != nil {
		return 0, false
	}
	return h.Hour()*60 + m.Minute(), true
}

func (s *Service) isDuplicate(text string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.lastReply != "" && text == s.lastReply && time.Since(s.lastSentAt) < dedupWindow
}

func (s *Service) recordReply(text string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.lastReply = text
	s.lastSentAt = time.Now()
}

func (s *Service) deliver(text string) {
	s.mu.Lock()
	channel, chatID := s.lastChannel, s.lastChatID
	s.mu.Unlock()

	if s.msgBus == nil || channel == "" || chatID == "" {
		s.log.Info("no delivery target, heartbeat reply dropped", "reply", text)
		return
	}

	s.msgBus.PublishOutbound(bus.OutboundMessage{
		Channel: channel,
		ChatID:  chatID,
		Content: text,
	})
}
