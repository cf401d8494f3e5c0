package domain

import (
	"fmt"
	"time"
)

// Lead status constants used by the summary metrics.
const (
	LeadStatusNew       = "new"
	LeadStatusContacted = "contacted"
	LeadStatusQualified = "qualified"
	LeadStatusClosed    = "closed"
)

// TrackedLeadStatuses lists the statuses counted in lead metrics, in order.
func TrackedLeadStatuses() []string {
	return []string{LeadStatusNew, LeadStatusContacted, LeadStatusQualified, LeadStatusClosed}
}

// Lead is a prospective client owned by a user.
type Lead struct {
	ID          int64          `json:"id"`
	UserID      int64          `json:"user_id"`
	ExternalID  string         `json:"external_id,omitempty"`
	Source      string         `json:"source,omitempty"`
	Name        string         `json:"name"`
	Email       string         `json:"email,omitempty"`
	Phone       string         `json:"phone,omitempty"`
	Status      string         `json:"status,omitempty"`
	LeadDetails map[string]any `json:"lead_details,omitempty"`
	CreatedAt   *time.Time     `json:"created_at,omitempty"`
	UpdatedAt   *time.Time     `json:"updated_at,omitempty"`
}

// AmbiguousMatchError reports that a name lookup matched more than one lead.
// It is a request for disambiguation rather than a failure.
type AmbiguousMatchError struct {
	Term    string
	Matches []Lead
}

func (e *AmbiguousMatchError) Error() string {
	return fmt.Sprintf("%d leads match %q", len(e.Matches), e.Term)
}

// NoMatchError reports that a name lookup matched no lead.
type NoMatchError struct {
	Term string
}

func (e *NoMatchError) Error() string {
	return fmt.Sprintf("no leads match %q", e.Term)
}
