package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/adebanjo23/DREW-AI-BACKEND/internal/domain"
	"github.com/adebanjo23/DREW-AI-BACKEND/internal/repository"
	apperrors "github.com/adebanjo23/DREW-AI-BACKEND/pkg/errors"
)

// Save communication error messages.
const (
	MsgUserNotFound        = "User not found"
	MsgMissingParticipant  = "Either lead_id or drew_id must be provided"
	MsgMissingCallMetadata = "Duration and call_id are required for call records"
)

// CommunicationService records communications reported by clients.
type CommunicationService struct {
	users  repository.UserRepository
	comms  repository.CommunicationRepository
	now    func() time.Time
	logger *slog.Logger
}

// NewCommunicationService creates a new communication service.
func NewCommunicationService(users repository.UserRepository, comms repository.CommunicationRepository, logger *slog.Logger) *CommunicationService {
	return &CommunicationService{
		users:  users,
		comms:  comms,
		now:    time.Now,
		logger: logger,
	}
}

// SaveCommunicationInput holds the parameters for recording a communication.
// Duration and CallID are required when Type is CALL; CallTime defaults to
// now.
type SaveCommunicationInput struct {
	UserID   int64
	LeadID   *int64
	DrewID   string
	Type     string
	Status   string
	Details  map[string]any
	Duration *int
	CallID   *string
	CallTime *time.Time
}

// SaveCommunicationResult identifies the stored records.
type SaveCommunicationResult struct {
	CommunicationID int64
	CallID          *int64
}

// Save validates input and stores the communication, plus a call record for
// calls, in one transaction. Nothing is written when validation fails.
func (s *CommunicationService) Save(ctx context.Context, in *SaveCommunicationInput) (*SaveCommunicationResult, error) {
	if _, err := s.users.GetByID(ctx, in.UserID); err != nil {
		if errors.Is(err, apperrors.ErrNotFound) {
			return nil, apperrors.NotFoundMessage(MsgUserNotFound)
		}
		return nil, fmt.Errorf("get user: %w", err)
	}

	channel, ok := domain.ChannelFor(in.LeadID, in.DrewID)
	if !ok {
		return nil, apperrors.InvalidInput(MsgMissingParticipant)
	}

	isCall := strings.EqualFold(in.Type, domain.KindCall)
	if isCall && (in.Duration == nil || in.CallID == nil) {
		return nil, apperrors.InvalidInput(MsgMissingCallMetadata)
	}

	details := in.Details
	if details == nil {
		details = map[string]any{}
	}
	c := &domain.Communication{
		Channel: channel,
		UserID:  in.UserID,
		LeadID:  in.LeadID,
		DrewID:  in.DrewID,
		Type:    in.Type,
		Status:  in.Status,
		Details: details,
	}

	if !isCall {
		if err := s.comms.Create(ctx, c); err != nil {
			return nil, fmt.Errorf("save communication: %w", err)
		}
		s.logger.InfoContext(ctx, "communication saved",
			slog.Int64("communication_id", c.ID),
			slog.String("channel", string(channel)),
		)
		return &SaveCommunicationResult{CommunicationID: c.ID}, nil
	}

	callTime := s.now().UTC()
	if in.CallTime != nil {
		callTime = in.CallTime.UTC()
	}
	call := &domain.Call{
		UserID:   in.UserID,
		CallTime: callTime,
		Status:   in.Status,
		Duration: *in.Duration,
		CallID:   *in.CallID,
	}
	if err := s.comms.CreateWithCall(ctx, c, call); err != nil {
		return nil, fmt.Errorf("save call communication: %w", err)
	}

	s.logger.InfoContext(ctx, "call communication saved",
		slog.Int64("communication_id", c.ID),
		slog.Int64("call_id", call.ID),
		slog.String("channel", string(channel)),
	)
	return &SaveCommunicationResult{CommunicationID: c.ID, CallID: &call.ID}, nil
}
