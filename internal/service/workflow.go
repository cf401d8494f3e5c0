package service

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/adebanjo23/DREW-AI-BACKEND/internal/domain"
	"github.com/adebanjo23/DREW-AI-BACKEND/internal/workflow"
	apperrors "github.com/adebanjo23/DREW-AI-BACKEND/pkg/errors"
)

// MsgInvalidMessageType is returned for message types other than SMS and EMAIL.
const MsgInvalidMessageType = "Invalid message_type. Allowed values are 'SMS' or 'Email'."

// Submitter queues background tasks.
type Submitter interface {
	Submit(ctx context.Context, task workflow.Task) error
}

// TimeFormatError reports a timestamp that is not ISO-8601.
type TimeFormatError struct {
	Field string
	Err   error
}

func (e *TimeFormatError) Error() string {
	return fmt.Sprintf("invalid %s: %v", e.Field, e.Err)
}

func (e *TimeFormatError) Unwrap() error { return e.Err }

// WorkflowService validates workflow requests, resolves the lead they refer
// to and hands them to the background runner.
type WorkflowService struct {
	leads  *LeadService
	runner Submitter
	logger *slog.Logger
}

// NewWorkflowService creates a new workflow service.
func NewWorkflowService(leads *LeadService, runner Submitter, logger *slog.Logger) *WorkflowService {
	return &WorkflowService{
		leads:  leads,
		runner: runner,
		logger: logger,
	}
}

// BookInput holds the parameters for booking a meeting.
type BookInput struct {
	UserID      int64
	LeadName    string
	StartTime   string
	MeetingType string
	Description string
	Location    string
}

// Book resolves the lead and queues a booking task.
func (s *WorkflowService) Book(ctx context.Context, in BookInput) (*workflow.BookingTask, error) {
	lead, err := s.leads.Resolve(ctx, in.UserID, in.LeadName)
	if err != nil {
		return nil, err
	}

	start, err := domain.ParseTime(in.StartTime)
	if err != nil {
		return nil, &TimeFormatError{Field: "start_time", Err: err}
	}

	task := workflow.BookingTask{
		UserID:      in.UserID,
		Lead:        *lead,
		Start:       start,
		MeetingType: in.MeetingType,
		Description: in.Description,
		Location:    in.Location,
	}
	if err := s.submit(ctx, task); err != nil {
		return nil, err
	}
	return &task, nil
}

// CallInput holds the parameters for starting a call.
type CallInput struct {
	UserID           int64
	ContactName      string
	CallTime         string
	DiscussionPoints string
}

// Call resolves the contact and queues a call task.
func (s *WorkflowService) Call(ctx context.Context, in CallInput) (*workflow.CallTask, error) {
	lead, err := s.leads.Resolve(ctx, in.UserID, in.ContactName)
	if err != nil {
		return nil, err
	}

	callTime, err := domain.ParseTime(in.CallTime)
	if err != nil {
		return nil, &TimeFormatError{Field: "call_time", Err: err}
	}

	task := workflow.CallTask{
		UserID:           in.UserID,
		Lead:             *lead,
		CallTime:         callTime,
		DiscussionPoints: in.DiscussionPoints,
	}
	if err := s.submit(ctx, task); err != nil {
		return nil, err
	}
	return &task, nil
}

// MessageInput holds the parameters for sending a message.
type MessageInput struct {
	UserID         int64
	LeadName       string
	MessageType    string
	MessageContent string
}

// Message validates the message type, resolves the lead and queues a
// message task.
func (s *WorkflowService) Message(ctx context.Context, in MessageInput) (*workflow.MessageTask, error) {
	msgType, ok := domain.NormalizeMessageType(in.MessageType)
	if !ok {
		return nil, apperrors.InvalidInput(MsgInvalidMessageType)
	}

	lead, err := s.leads.Resolve(ctx, in.UserID, in.LeadName)
	if err != nil {
		return nil, err
	}

	task := workflow.MessageTask{
		UserID:  in.UserID,
		Lead:    *lead,
		Type:    msgType,
		Content: in.MessageContent,
	}
	if err := s.submit(ctx, task); err != nil {
		return nil, err
	}
	return &task, nil
}

func (s *WorkflowService) submit(ctx context.Context, task workflow.Task) error {
	if err := s.runner.Submit(ctx, task); err != nil {
		return fmt.Errorf("queue %s task: %w", task.Kind(), err)
	}
	s.logger.InfoContext(ctx, "workflow task queued",
		slog.String("task", task.Kind()),
		slog.Int64("user_id", task.Owner()),
	)
	return nil
}

// IsImmediate reports whether t is due now rather than in the future.
func IsImmediate(t, now time.Time) bool {
	return !t.After(now)
}
