package workflow

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strconv"
	"time"

	"github.com/adebanjo23/DREW-AI-BACKEND/internal/credential"
	"github.com/adebanjo23/DREW-AI-BACKEND/internal/dispatch"
	"github.com/adebanjo23/DREW-AI-BACKEND/internal/domain"
	"github.com/adebanjo23/DREW-AI-BACKEND/internal/drafting"
	"github.com/adebanjo23/DREW-AI-BACKEND/internal/event"
	"github.com/adebanjo23/DREW-AI-BACKEND/internal/google"
	"github.com/adebanjo23/DREW-AI-BACKEND/internal/repository"
	"github.com/adebanjo23/DREW-AI-BACKEND/pkg/database"
	apperrors "github.com/adebanjo23/DREW-AI-BACKEND/pkg/errors"
	"github.com/adebanjo23/DREW-AI-BACKEND/pkg/logger"
)

// DefaultAgentID is the outbound voice agent used when the user has not
// configured one.
const DefaultAgentID = "agent_6467d8b24bd7e6990475ef462b"

const botNameFallback = "N/A"

// Repositories are the stores a task works with, bound to its connection.
type Repositories struct {
	Users          repository.UserRepository
	Communications repository.CommunicationRepository
	Appointments   repository.AppointmentRepository
	Integrations   repository.IntegrationRepository
}

// RepositoryFactory binds repositories to a connection.
type RepositoryFactory func(db database.DBTX) Repositories

// Calendar creates video meetings.
type Calendar interface {
	CreateMeeting(ctx context.Context, b *domain.Bundle, m google.Meeting) (*google.CreatedEvent, error)
}

// Drafter writes outbound copy.
type Drafter interface {
	DraftSMS(ctx context.Context, sender domain.User, recipient domain.Lead, content string) (string, error)
	DraftEmailMessage(ctx context.Context, sender domain.User, recipient domain.Lead, content string) (string, error)
	DraftInvitation(ctx context.Context, sender domain.User, meetingType string, meetingTime time.Time, details domain.MeetingDetails, extra string) (*drafting.Invitation, error)
}

// Mailer sends emails from the user's mailbox.
type Mailer interface {
	SendEmail(ctx context.Context, b *domain.Bundle, senderEmail, recipientEmail string, ev domain.EventDetails) bool
}

// SMSSender sends text messages.
type SMSSender interface {
	Send(ctx context.Context, phone, message string) error
}

// Dialer places outbound voice agent calls.
type Dialer interface {
	Dial(ctx context.Context, req dispatch.DialRequest) error
}

// InPersonHook runs after an in-person meeting is recorded.
type InPersonHook func(ctx context.Context, task BookingTask, appt *domain.Appointment) error

// CallSettings configure the dial request.
type CallSettings struct {
	DefaultAgentID      string
	InboundVariablesURL string
}

// Dependencies are the collaborators shared by every task.
type Dependencies struct {
	Repositories RepositoryFactory
	Credentials  *credential.Store
	Calendar     Calendar
	Drafter      Drafter
	Mailer       Mailer
	SMS          SMSSender
	Dialer       Dialer
	Producer     *event.Producer
	Call         CallSettings
	InPerson     InPersonHook
}

// Processor runs the booking, call and message workflows. Steps run
// in order and the first failing step aborts the task; earlier writes stay
// committed.
type Processor struct {
	deps Dependencies
	now  func() time.Time
}

// NewProcessor creates a Processor.
func NewProcessor(deps Dependencies) *Processor {
	if deps.InPerson == nil {
		deps.InPerson = func(context.Context, BookingTask, *domain.Appointment) error { return nil }
	}
	if deps.Call.DefaultAgentID == "" {
		deps.Call.DefaultAgentID = DefaultAgentID
	}
	return &Processor{deps: deps, now: time.Now}
}

// Execute runs task against db.
func (p *Processor) Execute(ctx context.Context, db database.DBTX, task Task) error {
	repos := p.deps.Repositories(db)
	store := p.deps.Credentials.WithRepository(repos.Integrations)

	switch t := task.(type) {
	case BookingTask:
		return p.book(ctx, repos, store, t)
	case CallTask:
		return p.call(ctx, repos, t)
	case MessageTask:
		return p.message(ctx, repos, store, t)
	default:
		return fmt.Errorf("unknown task %T", task)
	}
}

func (p *Processor) book(ctx context.Context, repos Repositories, store *credential.Store, t BookingTask) error {
	log := logger.FromContext(ctx)
	details := t.MeetingDetails()

	detailsMap, err := domain.DetailsMap(details)
	if err != nil {
		return err
	}

	leadID := t.Lead.ID
	comm := &domain.Communication{
		Channel: domain.ChannelDrewLead,
		UserID:  t.UserID,
		LeadID:  &leadID,
		DrewID:  domain.DrewAgentID,
		Type:    domain.KindMeeting,
		Status:  domain.CommStatusScheduled,
		Details: detailsMap,
	}
	appt := &domain.Appointment{
		UserID: t.UserID,
		Time:   t.Start.UTC(),
		Status: domain.AppointmentStatusScheduled,
		Participants: domain.Participants{Lead: domain.ParticipantLead{
			ID:             t.Lead.ID,
			Name:           t.Lead.Name,
			MeetingDetails: details,
			Duration:       int(domain.DefaultMeetingDuration.Seconds()),
		}},
	}
	if err := repos.Communications.CreateWithAppointment(ctx, comm, appt); err != nil {
		return fmt.Errorf("record booking: %w", err)
	}
	log.InfoContext(ctx, "booking recorded",
		slog.Int64("communication_id", comm.ID),
		slog.Int64("appointment_id", appt.ID),
	)

	scheduled := event.AppointmentScheduledData{
		AppointmentID:   appt.ID,
		CommunicationID: comm.ID,
		UserID:          t.UserID,
		LeadID:          t.Lead.ID,
		Platform:        details.Platform,
		AppointmentTime: appt.Time,
	}

	if t.InPerson() {
		if err := p.deps.InPerson(ctx, t, appt); err != nil {
			return fmt.Errorf("in-person hook: %w", err)
		}
		p.publish(ctx, "appointment.scheduled", p.deps.Producer.PublishAppointmentScheduled(ctx, scheduled))
		return nil
	}

	bundle, err := store.Usable(ctx, t.UserID, domain.PlatformGoogleCalendar)
	if err != nil {
		return fmt.Errorf("load credentials: %w", err)
	}

	summary := "Meeting with " + t.Lead.Name
	created, err := p.deps.Calendar.CreateMeeting(ctx, bundle, google.Meeting{
		Summary:     summary,
		Description: details.Notes,
		Start:       t.Start,
		End:         t.End(),
	})
	if err != nil {
		return fmt.Errorf("create calendar event: %w", err)
	}

	link := created.HangoutLink
	details.MeetingLink = &link
	if err := repos.Appointments.SetMeetingLink(ctx, appt.ID, link); err != nil {
		return fmt.Errorf("store meeting link: %w", err)
	}
	scheduled.MeetingLink = link
	log.InfoContext(ctx, "calendar event created", slog.String("event_id", created.ID))

	user, err := repos.Users.GetByID(ctx, t.UserID)
	if err != nil {
		return fmt.Errorf("load user: %w", err)
	}

	meetingType := t.MeetingType
	if meetingType == "" {
		meetingType = domain.DefaultMeetingType
	}
	inv, err := p.deps.Drafter.DraftInvitation(ctx, *user, meetingType, t.Start, details, t.Description)
	if err != nil {
		return err
	}

	body := inv.HTML
	if body == "" {
		body = details.Notes
	}
	scheduled.InvitationSent = p.deps.Mailer.SendEmail(ctx, bundle, senderEmail(bundle), t.Lead.Email, domain.EventDetails{
		Summary:     summary,
		StartTime:   domain.FormatISO(t.Start),
		EndTime:     domain.FormatISO(t.End()),
		Description: body,
		Location:    domain.PlatformVideo,
		HTMLLink:    link,
	})

	p.publish(ctx, "appointment.scheduled", p.deps.Producer.PublishAppointmentScheduled(ctx, scheduled))
	return nil
}

func (p *Processor) call(ctx context.Context, repos Repositories, t CallTask) error {
	hasPrior, err := repos.Communications.HasDrewLeadCommunication(ctx, t.Lead.ID)
	if err != nil {
		return fmt.Errorf("check prior communications: %w", err)
	}
	first := !hasPrior

	detailsMap, err := domain.DetailsMap(domain.CallDetails{
		Notes:    t.Notes(),
		CallTime: domain.FormatISO(t.CallTime),
	})
	if err != nil {
		return err
	}

	leadID := t.Lead.ID
	comm := &domain.Communication{
		Channel: domain.ChannelDrewLead,
		UserID:  t.UserID,
		LeadID:  &leadID,
		DrewID:  domain.DrewAgentID,
		Type:    domain.KindCall,
		Status:  domain.CommStatusCompleted,
		Details: detailsMap,
	}
	call := &domain.Call{
		UserID:   t.UserID,
		CallTime: t.CallTime.UTC(),
		Status:   domain.CallStatusInitiated,
		CallID:   domain.GeneratedCallID(p.now()),
	}
	if err := repos.Communications.CreateWithCall(ctx, comm, call); err != nil {
		return fmt.Errorf("record call: %w", err)
	}

	user, err := repos.Users.GetByID(ctx, t.UserID)
	if err != nil {
		return fmt.Errorf("load user: %w", err)
	}

	agentID := user.VoiceAccent.OutboundDrewID
	if agentID == "" {
		agentID = p.deps.Call.DefaultAgentID
	}
	botName := user.DrewName
	if botName == "" {
		botName = botNameFallback
	}

	err = p.deps.Dialer.Dial(ctx, dispatch.DialRequest{
		InboundVariablesURL: p.deps.Call.InboundVariablesURL,
		AgentID:             agentID,
		ToNumber:            t.Lead.Phone,
		Variables: dispatch.DialVariables{
			LeadName:         t.Lead.Name,
			LeadID:           strconv.FormatInt(t.Lead.ID, 10),
			UserID:           strconv.FormatInt(t.UserID, 10),
			BotName:          botName,
			BrokerageName:    user.BrokerageName,
			CommunicationID:  strconv.FormatInt(comm.ID, 10),
			AdditionalInfo:   t.DiscussionPoints,
			FirstInteraction: strconv.FormatBool(first),
		},
	})
	if err != nil {
		return fmt.Errorf("dial: %w", err)
	}

	p.publish(ctx, "call.initiated", p.deps.Producer.PublishCallInitiated(ctx, event.CallInitiatedData{
		CallID:           call.CallID,
		CommunicationID:  comm.ID,
		UserID:           t.UserID,
		LeadID:           t.Lead.ID,
		AgentID:          agentID,
		FirstInteraction: first,
	}))
	return nil
}

func (p *Processor) message(ctx context.Context, repos Repositories, store *credential.Store, t MessageTask) error {
	now := p.now().UTC()

	detailsMap, err := domain.DetailsMap(domain.MessageDetails{
		MessageContent: t.Content,
		MessageType:    t.Type,
		Timestamp:      domain.FormatISO(now),
	})
	if err != nil {
		return err
	}

	leadID := t.Lead.ID
	comm := &domain.Communication{
		Channel: domain.ChannelDrewLead,
		UserID:  t.UserID,
		LeadID:  &leadID,
		DrewID:  domain.DrewAgentID,
		Type:    t.Type,
		Status:  domain.CommStatusSent,
		Details: detailsMap,
	}
	if err := repos.Communications.Create(ctx, comm); err != nil {
		return fmt.Errorf("record message: %w", err)
	}

	user, err := repos.Users.GetByID(ctx, t.UserID)
	if err != nil {
		return fmt.Errorf("load user: %w", err)
	}

	var delivered bool
	switch t.Type {
	case domain.MessageTypeSMS:
		text, err := p.deps.Drafter.DraftSMS(ctx, *user, t.Lead, t.Content)
		if err != nil {
			return err
		}
		if err := p.deps.SMS.Send(ctx, t.Lead.Phone, text); err != nil {
			return fmt.Errorf("send sms: %w", err)
		}
		delivered = true

	case domain.MessageTypeEmail:
		html, err := p.deps.Drafter.DraftEmailMessage(ctx, *user, t.Lead, t.Content)
		if err != nil {
			return err
		}
		// Missing or stale credentials still reach the mailer, which reports
		// the email as undelivered.
		bundle, err := store.Usable(ctx, t.UserID, domain.PlatformGoogleCalendar)
		if err != nil {
			if !errors.Is(err, apperrors.ErrUnauthorized) {
				return fmt.Errorf("load credentials: %w", err)
			}
			logger.FromContext(ctx).WarnContext(ctx, "message email has no usable credentials",
				slog.Int64("user_id", t.UserID),
				slog.String("error", err.Error()),
			)
		}
		delivered = p.deps.Mailer.SendEmail(ctx, bundle, senderEmail(bundle), t.Lead.Email, domain.EventDetails{
			Summary:     "Message from " + user.Name,
			StartTime:   domain.FormatISO(now),
			EndTime:     domain.FormatISO(now.Add(time.Hour)),
			Description: html,
		})

	default:
		return fmt.Errorf("unsupported message type %q", t.Type)
	}

	logger.FromContext(ctx).InfoContext(ctx, "message processed",
		slog.Int64("communication_id", comm.ID),
		slog.String("message_type", t.Type),
		slog.Bool("delivered", delivered),
	)

	p.publish(ctx, "message.sent", p.deps.Producer.PublishMessageSent(ctx, event.MessageSentData{
		CommunicationID: comm.ID,
		UserID:          t.UserID,
		LeadID:          t.Lead.ID,
		MessageType:     t.Type,
		Delivered:       delivered,
	}))
	return nil
}

func (p *Processor) publish(ctx context.Context, name string, err error) {
	if err == nil {
		return
	}
	logger.FromContext(ctx).ErrorContext(ctx, "failed to publish "+name+" event",
		slog.String("error", err.Error()),
	)
}

func senderEmail(b *domain.Bundle) string {
	if b != nil && b.Email != "" {
		return b.Email
	}
	return dispatch.DefaultSender
}
