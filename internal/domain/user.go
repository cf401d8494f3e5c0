package domain

import (
	"strings"
	"time"
)

// User is the agent who owns leads, integrations and communications.
type User struct {
	ID            int64       `json:"id"`
	Name          string      `json:"name"`
	Email         string      `json:"email"`
	Phone         string      `json:"phone,omitempty"`
	BrokerageName string      `json:"brokerage_name,omitempty"`
	DrewName      string      `json:"drew_name,omitempty"`
	VoiceAccent   VoiceAccent `json:"drew_voice_accent"`
	CreatedAt     time.Time   `json:"created_at"`
}

// VoiceAccent holds the per-user voice agent settings.
type VoiceAccent struct {
	OutboundDrewID string `json:"outbound_drew_id,omitempty"`
}

// FirstName returns the first whitespace-separated word of name, or name
// itself when it has none.
func FirstName(name string) string {
	fields := strings.Fields(name)
	if len(fields) == 0 {
		return name
	}
	return fields[0]
}
