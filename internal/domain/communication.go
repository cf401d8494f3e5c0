package domain

import (
	"encoding/json"
	"fmt"
	"strings"
	"time"
)

// Communication kinds.
const (
	KindCall    = "CALL"
	KindSMS     = "SMS"
	KindEmail   = "EMAIL"
	KindMeeting = "MEETING"
)

// Status values written by the workflows.
const (
	CommStatusScheduled = "SCHEDULED"
	CommStatusCompleted = "COMPLETED"
	CommStatusSent      = "sent"
)

// DrewAgentID identifies the voice agent on records created by workflows.
const DrewAgentID = "agent_drew"

// Channel names the participants of a communication, which selects the
// table it is stored in.
type Channel string

const (
	ChannelDrewLead Channel = "DrewLeadCommunication"
	ChannelUserLead Channel = "UserLeadCommunication"
	ChannelUserDrew Channel = "UserDrewCommunication"
)

// ChannelFor picks the channel from the participants present. It returns
// false when neither a lead nor a drew agent is given.
func ChannelFor(leadID *int64, drewID string) (Channel, bool) {
	switch {
	case leadID != nil && drewID != "":
		return ChannelDrewLead, true
	case leadID != nil:
		return ChannelUserLead, true
	case drewID != "":
		return ChannelUserDrew, true
	default:
		return "", false
	}
}

// Communication is one interaction attempt with a lead or a drew agent.
type Communication struct {
	ID        int64          `json:"id"`
	Channel   Channel        `json:"communication_type"`
	UserID    int64          `json:"user_id"`
	LeadID    *int64         `json:"lead_id"`
	DrewID    string         `json:"drew_id,omitempty"`
	Type      string         `json:"type"`
	Status    string         `json:"status"`
	Details   map[string]any `json:"details"`
	CreatedAt time.Time      `json:"created_at"`
	UpdatedAt time.Time      `json:"updated_at"`
}

// IsDrew reports whether the voice agent took part.
func (c *Communication) IsDrew() bool {
	return c.Channel == ChannelDrewLead || c.Channel == ChannelUserDrew
}

// StringDetail returns details[key] as a string, or fallback when the key is
// missing or not a string.
func (c *Communication) StringDetail(key, fallback string) string {
	if v, ok := c.Details[key].(string); ok {
		return v
	}
	return fallback
}

// MeetingDetails is the detail record of a booked meeting.
type MeetingDetails struct {
	Notes       string  `json:"notes"`
	Platform    string  `json:"platform"`
	MeetingLink *string `json:"meeting_link"`
	Location    *string `json:"location"`
}

// CallDetails is the detail record of a call started by the call workflow.
type CallDetails struct {
	Notes    string `json:"notes"`
	CallTime string `json:"call_time"`
}

// MessageDetails is the detail record of an outbound SMS or email.
type MessageDetails struct {
	MessageContent string `json:"message_content"`
	MessageType    string `json:"message_type"`
	Timestamp      string `json:"timestamp"`
}

// DetailsMap converts a typed detail record into the loose form stored in
// the details column.
func DetailsMap(v any) (map[string]any, error) {
	raw, err := json.Marshal(v)
	if err != nil {
		return nil, fmt.Errorf("marshal details: %w", err)
	}
	out := map[string]any{}
	if err := json.Unmarshal(raw, &out); err != nil {
		return nil, fmt.Errorf("unmarshal details: %w", err)
	}
	return out, nil
}

// Message types accepted by the send-message workflow.
const (
	MessageTypeSMS   = KindSMS
	MessageTypeEmail = KindEmail
)

// NormalizeMessageType upper-cases t and reports whether it is SMS or EMAIL.
func NormalizeMessageType(t string) (string, bool) {
	up := strings.ToUpper(t)
	return up, up == MessageTypeSMS || up == MessageTypeEmail
}
