package event

import (
	"context"
	"fmt"
	"log/slog"
	"strconv"
	"time"

	pkgkafka "github.com/adebanjo23/DREW-AI-BACKEND/pkg/kafka"
	"github.com/adebanjo23/DREW-AI-BACKEND/pkg/logger"
)

// Kafka topic constants for CRM domain events.
const (
	TopicIntegrationConnected = "crm.integration.connected"
	TopicAppointmentScheduled = "crm.appointment.scheduled"
	TopicCallInitiated        = "crm.call.initiated"
	TopicMessageSent          = "crm.message.sent"
)

// Aggregate type constants.
const (
	AggregateTypeIntegration   = "integration"
	AggregateTypeAppointment   = "appointment"
	AggregateTypeCall          = "call"
	AggregateTypeCommunication = "communication"
)

// SourceCRMService identifies events originating from this service.
const SourceCRMService = "drew-crm"

// IntegrationConnectedData is the payload for an integration.connected event.
type IntegrationConnectedData struct {
	UserID   int64  `json:"user_id"`
	Platform string `json:"platform_name"`
	Email    string `json:"email"`
}

// AppointmentScheduledData is the payload for an appointment.scheduled event.
type AppointmentScheduledData struct {
	AppointmentID   int64     `json:"appointment_id"`
	CommunicationID int64     `json:"communication_id"`
	UserID          int64     `json:"user_id"`
	LeadID          int64     `json:"lead_id"`
	Platform        string    `json:"platform"`
	AppointmentTime time.Time `json:"appointment_time"`
	MeetingLink     string    `json:"meeting_link,omitempty"`
	InvitationSent  bool      `json:"invitation_sent"`
}

// CallInitiatedData is the payload for a call.initiated event.
type CallInitiatedData struct {
	CallID           string `json:"call_id"`
	CommunicationID  int64  `json:"communication_id"`
	UserID           int64  `json:"user_id"`
	LeadID           int64  `json:"lead_id"`
	AgentID          string `json:"agent_id"`
	FirstInteraction bool   `json:"first_interaction"`
}

// MessageSentData is the payload for a message.sent event.
type MessageSentData struct {
	CommunicationID int64  `json:"communication_id"`
	UserID          int64  `json:"user_id"`
	LeadID          int64  `json:"lead_id"`
	MessageType     string `json:"message_type"`
	Delivered       bool   `json:"delivered"`
}

// Producer publishes CRM domain events to Kafka. A producer built without a
// Kafka client drops every event.
type Producer struct {
	kafka  *pkgkafka.Producer
	logger *slog.Logger
}

// NewProducer creates a new event producer.
func NewProducer(kafka *pkgkafka.Producer, logger *slog.Logger) *Producer {
	return &Producer{
		kafka:  kafka,
		logger: logger,
	}
}

// PublishIntegrationConnected publishes an integration.connected event.
func (p *Producer) PublishIntegrationConnected(ctx context.Context, data IntegrationConnectedData) error {
	return p.publish(ctx, TopicIntegrationConnected, strconv.FormatInt(data.UserID, 10), AggregateTypeIntegration, data)
}

// PublishAppointmentScheduled publishes an appointment.scheduled event.
func (p *Producer) PublishAppointmentScheduled(ctx context.Context, data AppointmentScheduledData) error {
	return p.publish(ctx, TopicAppointmentScheduled, strconv.FormatInt(data.AppointmentID, 10), AggregateTypeAppointment, data)
}

// PublishCallInitiated publishes a call.initiated event.
func (p *Producer) PublishCallInitiated(ctx context.Context, data CallInitiatedData) error {
	return p.publish(ctx, TopicCallInitiated, data.CallID, AggregateTypeCall, data)
}

// PublishMessageSent publishes a message.sent event.
func (p *Producer) PublishMessageSent(ctx context.Context, data MessageSentData) error {
	return p.publish(ctx, TopicMessageSent, strconv.FormatInt(data.CommunicationID, 10), AggregateTypeCommunication, data)
}

func (p *Producer) publish(ctx context.Context, topic, aggregateID, aggregateType string, data any) error {
	if p == nil || p.kafka == nil {
		return nil
	}

	event, err := pkgkafka.NewEvent(topic, aggregateID, aggregateType, SourceCRMService, data)
	if err != nil {
		return fmt.Errorf("create %s event: %w", topic, err)
	}
	if id := logger.CorrelationIDFromContext(ctx); id != "" {
		event.WithCorrelationID(id)
	}

	if err := p.kafka.Publish(ctx, topic, event); err != nil {
		return fmt.Errorf("publish %s event: %w", topic, err)
	}

	p.logger.DebugContext(ctx, "published event",
		slog.String("topic", topic),
		slog.String("aggregate_id", aggregateID),
	)
	return nil
}
