package domain

import (
	"fmt"
	"time"
)

// Call status values.
const (
	CallStatusInitiated  = "initiated"
	CallStatusSuccessful = "successful"
	CallStatusMissed     = "missed"
)

// Call is a voice call record. Duration is in seconds; CallID is the id of
// the call in the external dialing system.
type Call struct {
	ID        int64     `json:"id"`
	UserID    int64     `json:"user_id"`
	CallTime  time.Time `json:"call_time"`
	Status    string    `json:"status"`
	Duration  int       `json:"duration"`
	CallID    string    `json:"call_id"`
	CreatedAt time.Time `json:"created_at"`
}

// GeneratedCallID builds the external call id used by the call workflow.
func GeneratedCallID(now time.Time) string {
	return fmt.Sprintf("call_%d", now.Unix())
}
