package repository

import (
	"context"
	"time"

	"github.com/adebanjo23/DREW-AI-BACKEND/internal/domain"
)

// DateRange optionally bounds a query by creation or appointment time.
type DateRange struct {
	Start *time.Time
	End   *time.Time
}

// UserRepository reads users.
type UserRepository interface {
	// GetByID returns ErrNotFound when the user does not exist.
	GetByID(ctx context.Context, id int64) (*domain.User, error)
}

// LeadRepository reads leads.
type LeadRepository interface {
	GetByID(ctx context.Context, id int64) (*domain.Lead, error)

	// SearchByName returns the user's leads whose name contains term,
	// case-insensitively, ordered by id.
	SearchByName(ctx context.Context, userID int64, term string) ([]domain.Lead, error)
}

// IntegrationRepository persists credential bundles and integration status.
type IntegrationRepository interface {
	// Get returns ErrNotFound when no bundle is stored.
	Get(ctx context.Context, userID int64, platform string) (*domain.Bundle, error)

	// Save upserts the bundle and marks the integration active, atomically.
	Save(ctx context.Context, userID int64, platform string, bundle *domain.Bundle, checkedAt time.Time) error

	// SetStatus upserts the integration status row only.
	SetStatus(ctx context.Context, userID int64, platform, status string, checkedAt time.Time) error

	// ListUserIDs returns every user with a stored bundle for platform.
	ListUserIDs(ctx context.Context, platform string) ([]int64, error)
}

// CommunicationRepository persists communications and the records created
// together with them.
type CommunicationRepository interface {
	// Create inserts c into the table for c.Channel and sets its ID.
	Create(ctx context.Context, c *domain.Communication) error

	// CreateWithCall inserts c and call in one transaction.
	CreateWithCall(ctx context.Context, c *domain.Communication, call *domain.Call) error

	// CreateWithAppointment inserts c and a in one transaction.
	CreateWithAppointment(ctx context.Context, c *domain.Communication, a *domain.Appointment) error

	// HasDrewLeadCommunication reports whether the voice agent has any
	// recorded communication with the lead.
	HasDrewLeadCommunication(ctx context.Context, leadID int64) (bool, error)

	// ListByLead returns drew-lead and user-lead communications for the
	// lead, oldest first.
	ListByLead(ctx context.Context, leadID int64) ([]domain.Communication, error)
}

// AppointmentRepository updates appointments created by the booking workflow.
type AppointmentRepository interface {
	// SetMeetingLink writes the join link into the participant snapshot.
	SetMeetingLink(ctx context.Context, id int64, link string) error
}

// SummaryRepository answers the aggregate queries behind the communications
// summary. Every method is scoped to one user and an optional DateRange.
type SummaryRepository interface {
	CallStats(ctx context.Context, userID int64, r DateRange) (domain.CallStats, error)

	// LeadStatusCounts returns the total lead count and a count per status.
	LeadStatusCounts(ctx context.Context, userID int64, r DateRange, statuses []string) (int, map[string]int, error)

	// LeadInteractions returns lead-facing communications, newest first.
	LeadInteractions(ctx context.Context, userID int64, r DateRange) ([]domain.LeadInteraction, error)

	// RecentAppointments returns up to limit appointments, latest first.
	RecentAppointments(ctx context.Context, userID int64, r DateRange, limit int) ([]domain.Appointment, error)

	CountLeadsCreatedSince(ctx context.Context, userID int64, r DateRange, since time.Time) (int, error)

	// CountLeadsNeedingFollowUp counts new or contacted leads created at or
	// before olderThan.
	CountLeadsNeedingFollowUp(ctx context.Context, userID int64, r DateRange, olderThan time.Time) (int, error)

	// CountUpcomingAppointments counts scheduled appointments at or after now.
	CountUpcomingAppointments(ctx context.Context, userID int64, r DateRange, now time.Time) (int, error)
}
