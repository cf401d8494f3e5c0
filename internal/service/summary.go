package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math"
	"time"

	"github.com/adebanjo23/DREW-AI-BACKEND/internal/domain"
	"github.com/adebanjo23/DREW-AI-BACKEND/internal/repository"
	apperrors "github.com/adebanjo23/DREW-AI-BACKEND/pkg/errors"
)

const (
	latestInteractionsLimit = 5
	recentAppointmentsLimit = 5
	newLeadWindow           = 30 * 24 * time.Hour
	followUpAge             = 7 * 24 * time.Hour
)

// CallMetrics summarizes the user's calls.
type CallMetrics struct {
	TotalCalls      int           `json:"total_calls"`
	CallsByStatus   CallsByStatus `json:"calls_by_status"`
	AverageDuration float64       `json:"average_duration"`
}

// CallsByStatus counts calls per terminal status.
type CallsByStatus struct {
	Successful int `json:"successful"`
	Missed     int `json:"missed"`
}

// InteractionSummary is one lead-facing communication in the summary.
type InteractionSummary struct {
	LeadID            *int64         `json:"lead_id"`
	LeadName          string         `json:"lead_name"`
	LeadEmail         *string        `json:"lead_email"`
	Type              string         `json:"type"`
	Status            string         `json:"status"`
	CreatedAt         string         `json:"created_at"`
	Details           map[string]any `json:"details"`
	CommunicationType domain.Channel `json:"communication_type"`
}

// ActiveLead is the lead with the most interactions.
type ActiveLead struct {
	ID               int64  `json:"id"`
	Name             string `json:"name"`
	Email            string `json:"email"`
	Status           string `json:"status"`
	InteractionCount int    `json:"interaction_count"`
	CreatedAt        string `json:"created_at"`
}

// LeadMetrics summarizes the user's leads.
type LeadMetrics struct {
	TotalLeads         int                  `json:"total_leads"`
	LeadsByStatus      map[string]int       `json:"leads_by_status"`
	LatestInteractions []InteractionSummary `json:"latest_interactions"`
	MostActiveLead     *ActiveLead          `json:"most_active_lead"`
}

// AppointmentSummary is one appointment in the summary.
type AppointmentSummary struct {
	ID                 int64               `json:"id"`
	AppointmentTime    string              `json:"appointment_time"`
	Status             string              `json:"status"`
	ParticipantDetails domain.Participants `json:"participant_details"`
	CreatedAt          string              `json:"created_at"`
}

// AppointmentMetrics lists recent appointments.
type AppointmentMetrics struct {
	RecentAppointments []AppointmentSummary `json:"recent_appointments"`
	UpcomingCount      int                  `json:"upcoming_count"`
}

// ActionableMetrics are the figures an agent acts on.
type ActionableMetrics struct {
	NewLeadsLast30Days         int     `json:"new_leads_last_30_days"`
	SuccessfulCallsRate        float64 `json:"successful_calls_rate"`
	AverageInteractionsPerLead float64 `json:"average_interactions_per_lead"`
	LeadsNeedingFollowUp       int     `json:"leads_needing_followup"`
	UpcomingAppointments       int     `json:"upcoming_appointments"`
}

// Metrics is the communications summary of one user.
type Metrics struct {
	CallMetrics       CallMetrics        `json:"call_metrics"`
	LeadMetrics       LeadMetrics        `json:"lead_metrics"`
	Appointments      AppointmentMetrics `json:"appointments"`
	ActionableMetrics ActionableMetrics  `json:"actionable_metrics"`
}

// SummaryService aggregates calls, leads and appointments for a user.
type SummaryService struct {
	users   repository.UserRepository
	leads   repository.LeadRepository
	summary repository.SummaryRepository
	now     func() time.Time
	logger  *slog.Logger
}

// NewSummaryService creates a new summary service.
func NewSummaryService(
	users repository.UserRepository,
	leads repository.LeadRepository,
	summary repository.SummaryRepository,
	logger *slog.Logger,
) *SummaryService {
	return &SummaryService{
		users:   users,
		leads:   leads,
		summary: summary,
		now:     time.Now,
		logger:  logger,
	}
}

// Summary computes the metrics for userID within dr.
func (s *SummaryService) Summary(ctx context.Context, userID int64, dr repository.DateRange) (*Metrics, error) {
	if _, err := s.users.GetByID(ctx, userID); err != nil {
		if errors.Is(err, apperrors.ErrNotFound) {
			return nil, apperrors.NotFoundMessage(MsgUserNotFound)
		}
		return nil, fmt.Errorf("get user: %w", err)
	}

	now := s.now().UTC()

	calls, err := s.summary.CallStats(ctx, userID, dr)
	if err != nil {
		return nil, err
	}

	totalLeads, byStatus, err := s.summary.LeadStatusCounts(ctx, userID, dr, domain.TrackedLeadStatuses())
	if err != nil {
		return nil, err
	}

	interactions, err := s.summary.LeadInteractions(ctx, userID, dr)
	if err != nil {
		return nil, err
	}

	mostActive, err := s.mostActiveLead(ctx, interactions)
	if err != nil {
		return nil, err
	}

	appts, err := s.summary.RecentAppointments(ctx, userID, dr, recentAppointmentsLimit)
	if err != nil {
		return nil, err
	}

	newLeads, err := s.summary.CountLeadsCreatedSince(ctx, userID, dr, now.Add(-newLeadWindow))
	if err != nil {
		return nil, err
	}
	followUp, err := s.summary.CountLeadsNeedingFollowUp(ctx, userID, dr, now.Add(-followUpAge))
	if err != nil {
		return nil, err
	}
	upcoming, err := s.summary.CountUpcomingAppointments(ctx, userID, dr, now)
	if err != nil {
		return nil, err
	}

	m := &Metrics{
		CallMetrics: CallMetrics{
			TotalCalls:      calls.Total,
			CallsByStatus:   CallsByStatus{Successful: calls.Successful, Missed: calls.Missed},
			AverageDuration: round2(calls.AverageDuration),
		},
		LeadMetrics: LeadMetrics{
			TotalLeads:         totalLeads,
			LeadsByStatus:      byStatus,
			LatestInteractions: latestInteractions(interactions),
			MostActiveLead:     mostActive,
		},
		Appointments: AppointmentMetrics{
			RecentAppointments: appointmentSummaries(appts),
			UpcomingCount:      upcoming,
		},
		ActionableMetrics: ActionableMetrics{
			NewLeadsLast30Days:   newLeads,
			LeadsNeedingFollowUp: followUp,
			UpcomingAppointments: upcoming,
		},
	}
	if calls.Total > 0 {
		m.ActionableMetrics.SuccessfulCallsRate = round2(float64(calls.Successful) / float64(calls.Total) * 100)
	}
	if totalLeads > 0 {
		m.ActionableMetrics.AverageInteractionsPerLead = round2(float64(len(interactions)) / float64(totalLeads))
	}
	return m, nil
}

// mostActiveLead picks the lead with the most interactions. Ties go to the
// lead seen first in the newest-first interaction list.
func (s *SummaryService) mostActiveLead(ctx context.Context, interactions []domain.LeadInteraction) (*ActiveLead, error) {
	counts := map[int64]int{}
	var (
		bestID    int64
		bestCount int
		order     []int64
	)
	for _, li := range interactions {
		if li.LeadID == nil {
			continue
		}
		if _, seen := counts[*li.LeadID]; !seen {
			order = append(order, *li.LeadID)
		}
		counts[*li.LeadID]++
	}
	for _, id := range order {
		if counts[id] > bestCount {
			bestID, bestCount = id, counts[id]
		}
	}
	if bestCount == 0 {
		return nil, nil
	}

	lead, err := s.leads.GetByID(ctx, bestID)
	if err != nil {
		if errors.Is(err, apperrors.ErrNotFound) {
			return nil, nil
		}
		return nil, fmt.Errorf("get most active lead: %w", err)
	}

	active := &ActiveLead{
		ID:               lead.ID,
		Name:             lead.Name,
		Email:            lead.Email,
		Status:           lead.Status,
		InteractionCount: bestCount,
	}
	if lead.CreatedAt != nil {
		active.CreatedAt = domain.FormatISO(lead.CreatedAt.UTC())
	}
	return active, nil
}

func latestInteractions(all []domain.LeadInteraction) []InteractionSummary {
	n := min(len(all), latestInteractionsLimit)
	out := make([]InteractionSummary, 0, n)
	for _, li := range all[:n] {
		out = append(out, InteractionSummary{
			LeadID:            li.LeadID,
			LeadName:          li.LeadName,
			LeadEmail:         li.LeadEmail,
			Type:              li.Type,
			Status:            li.Status,
			CreatedAt:         domain.FormatISO(li.CreatedAt.UTC()),
			Details:           li.Details,
			CommunicationType: li.Channel,
		})
	}
	return out
}

func appointmentSummaries(appts []domain.Appointment) []AppointmentSummary {
	out := make([]AppointmentSummary, 0, len(appts))
	for _, a := range appts {
		out = append(out, AppointmentSummary{
			ID:                 a.ID,
			AppointmentTime:    domain.FormatISO(a.Time.UTC()),
			Status:             a.Status,
			ParticipantDetails: a.Participants,
			CreatedAt:          domain.FormatISO(a.CreatedAt.UTC()),
		})
	}
	return out
}

func round2(v float64) float64 {
	return math.Round(v*100) / 100
}
