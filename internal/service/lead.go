package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/adebanjo23/DREW-AI-BACKEND/internal/domain"
	"github.com/adebanjo23/DREW-AI-BACKEND/internal/repository"
	apperrors "github.com/adebanjo23/DREW-AI-BACKEND/pkg/errors"
)

// LeadService implements lead lookup and interaction history.
type LeadService struct {
	leads  repository.LeadRepository
	comms  repository.CommunicationRepository
	logger *slog.Logger
}

// NewLeadService creates a new lead service.
func NewLeadService(leads repository.LeadRepository, comms repository.CommunicationRepository, logger *slog.Logger) *LeadService {
	return &LeadService{
		leads:  leads,
		comms:  comms,
		logger: logger,
	}
}

// Resolve finds the single lead of userID whose name contains name. It
// returns a *domain.NoMatchError when nothing matches and a
// *domain.AmbiguousMatchError listing every match when more than one does.
func (s *LeadService) Resolve(ctx context.Context, userID int64, name string) (*domain.Lead, error) {
	matches, err := s.leads.SearchByName(ctx, userID, name)
	if err != nil {
		return nil, fmt.Errorf("resolve lead: %w", err)
	}

	switch len(matches) {
	case 0:
		return nil, &domain.NoMatchError{Term: name}
	case 1:
		return &matches[0], nil
	default:
		s.logger.InfoContext(ctx, "lead name is ambiguous",
			slog.String("term", name),
			slog.Int("matches", len(matches)),
		)
		return nil, &domain.AmbiguousMatchError{Term: name, Matches: matches}
	}
}

// Search returns every lead of userID whose name contains term.
func (s *LeadService) Search(ctx context.Context, userID int64, term string) ([]domain.Lead, error) {
	if term == "" {
		return nil, apperrors.InvalidInput("search_term is required")
	}
	leads, err := s.leads.SearchByName(ctx, userID, term)
	if err != nil {
		return nil, fmt.Errorf("search leads: %w", err)
	}
	return leads, nil
}

// InteractionHistory is a lead with its rendered communications, oldest
// first.
type InteractionHistory struct {
	Lead       *domain.Lead
	Entries    []string
	DrewCount  int
	AgentCount int
}

// Interactions renders the drew and agent communications with a lead.
func (s *LeadService) Interactions(ctx context.Context, leadID int64) (*InteractionHistory, error) {
	lead, err := s.leads.GetByID(ctx, leadID)
	if err != nil {
		if errors.Is(err, apperrors.ErrNotFound) {
			return nil, apperrors.NotFoundMessage("Lead not found")
		}
		return nil, fmt.Errorf("get lead: %w", err)
	}

	comms, err := s.comms.ListByLead(ctx, leadID)
	if err != nil {
		return nil, fmt.Errorf("list communications: %w", err)
	}

	h := &InteractionHistory{Lead: lead, Entries: []string{}}
	for i := range comms {
		c := &comms[i]
		if c.IsDrew() {
			h.DrewCount++
		} else {
			h.AgentCount++
		}
		if entry, ok := RenderInteraction(c); ok {
			h.Entries = append(h.Entries, entry)
		}
	}
	return h, nil
}

// RenderInteraction formats a call, email or SMS as one history line.
// Other communication types are not rendered.
func RenderInteraction(c *domain.Communication) (string, bool) {
	who := "Agent"
	if c.IsDrew() {
		who = "Drew"
	}
	when := domain.FormatHuman(c.CreatedAt)

	switch c.Type {
	case domain.KindCall:
		return fmt.Sprintf("[%s Call on %s] %s", who, when, c.StringDetail("notes", "No notes available")), true
	case domain.KindEmail:
		return fmt.Sprintf("[%s Email sent on %s]\nSubject: %s\nContent: %s", who, when,
			c.StringDetail("subject", "No subject"),
			c.StringDetail("body", "No content")), true
	case domain.KindSMS:
		msg := c.StringDetail("message", c.StringDetail("message_content", "No message content"))
		return fmt.Sprintf("[%s SMS on %s] %s", who, when, msg), true
	default:
		return "", false
	}
}
