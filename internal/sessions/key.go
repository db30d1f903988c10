// Package sessions implements the JSONL-backed transcript store keyed by
// the bus's session key ("<channel>:<chat_id>").
package sessions

import "strings"

// CronSessionKey returns the session key used for a scheduled job's run.
func CronSessionKey(jobID string) string {
	return "cron:" + jobID
}

// HeartbeatSessionKey is the fixed session key used by the heartbeat service.
const HeartbeatSessionKey = "heartbeat"

// SafeFileName converts a session key into a filesystem-safe file stem:
// ":" becomes "_" and any remaining path-unsafe character is replaced too.
func SafeFileName(key string) string {
	var b strings.Builder
	b.Grow(len(key))
	for _, r := range key {
		switch {
		case r == ':':
			b.WriteByte('_')
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9', r == '_', r == '-', r == '.':
			b.WriteRune(r)
		default:
			b.WriteByte('_')
		}
	}
	return b.String()
}
