package http

import (
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/adebanjo23/DREW-AI-BACKEND/internal/domain"
	"github.com/adebanjo23/DREW-AI-BACKEND/internal/service"
	apperrors "github.com/adebanjo23/DREW-AI-BACKEND/pkg/errors"
	"github.com/adebanjo23/DREW-AI-BACKEND/pkg/httputil"
)

// WorkflowHandler accepts booking, call and message requests. Every accepted
// request answers 202 while the work continues in the background.
type WorkflowHandler struct {
	service *service.WorkflowService
	now     func() time.Time
	logger  *slog.Logger
}

// NewWorkflowHandler creates a new workflow HTTP handler.
func NewWorkflowHandler(svc *service.WorkflowService, logger *slog.Logger) *WorkflowHandler {
	return &WorkflowHandler{
		service: svc,
		now:     time.Now,
		logger:  logger,
	}
}

// --- Request DTOs ---

// Keys each workflow request must carry. Values may be empty.
var (
	bookFields    = []string{"user_id", "lead_name", "start_time"}
	callFields    = []string{"user_id", "contact_name", "call_time"}
	messageFields = []string{"user_id", "lead_name", "message_type", "message_content"}
)

// BookAppointmentRequest is the JSON request body for booking a meeting.
type BookAppointmentRequest struct {
	UserID      flexibleID `json:"user_id"`
	LeadName    string     `json:"lead_name"`
	StartTime   string     `json:"start_time"`
	MeetingType string     `json:"meeting_type"`
	Description string     `json:"description"`
	Location    string     `json:"location"`
}

// InitiateCallRequest is the JSON request body for starting a call.
type InitiateCallRequest struct {
	UserID           flexibleID `json:"user_id"`
	ContactName      string     `json:"contact_name"`
	CallTime         string     `json:"call_time"`
	DiscussionPoints string     `json:"discussion_points"`
}

// SendMessageRequest is the JSON request body for sending a message.
type SendMessageRequest struct {
	UserID         flexibleID `json:"user_id"`
	LeadName       string     `json:"lead_name"`
	MessageType    string     `json:"message_type"`
	MessageContent string     `json:"message_content"`
}

// --- Response DTOs ---

// workflowResponse is the flat body of every workflow endpoint. Only the
// fields relevant to an outcome are set.
type workflowResponse struct {
	Status             string         `json:"status"`
	Message            string         `json:"message"`
	ContextForLLM      string         `json:"context_for_llm,omitempty"`
	Suggestion         string         `json:"suggestion,omitempty"`
	ErrorDetails       string         `json:"error_details,omitempty"`
	RequiredFields     []string       `json:"required_fields,omitempty"`
	MatchingLeads      []leadMatch    `json:"matching_leads,omitempty"`
	MatchingContacts   []contactMatch `json:"matching_contacts,omitempty"`
	LeadDetails        any            `json:"lead_details,omitempty"`
	ContactDetails     any            `json:"contact_details,omitempty"`
	AppointmentDetails any            `json:"appointment_details,omitempty"`
	CallDetails        any            `json:"call_details,omitempty"`
	MessageDetails     any            `json:"message_details,omitempty"`
}

type leadMatch struct {
	LeadID int64  `json:"lead_id"`
	Name   string `json:"name"`
	Email  string `json:"email"`
	Phone  string `json:"phone"`
	Status string `json:"status"`
	Source string `json:"source"`
}

type contactMatch struct {
	ContactID int64  `json:"contact_id"`
	Name      string `json:"name"`
	Email     string `json:"email"`
	Phone     string `json:"phone"`
	Status    string `json:"status"`
	Source    string `json:"source"`
}

type bookedLead struct {
	LeadID int64  `json:"lead_id"`
	Name   string `json:"name"`
	Email  string `json:"email"`
	Status string `json:"status"`
}

type appointmentDetails struct {
	StartTime   string `json:"start_time"`
	EndTime     string `json:"end_time"`
	Location    string `json:"location"`
	Description string `json:"description"`
}

type contactDetails struct {
	ContactID int64  `json:"contact_id"`
	Name      string `json:"name"`
	Email     string `json:"email"`
	Phone     string `json:"phone"`
	Status    string `json:"status"`
}

type callDetails struct {
	CallTime         string `json:"call_time"`
	DiscussionPoints string `json:"discussion_points"`
}

type messageLead struct {
	LeadID int64  `json:"lead_id"`
	Name   string `json:"name"`
	Email  string `json:"email"`
	Phone  string `json:"phone"`
	Status string `json:"status"`
}

type messageDetails struct {
	MessageType    string `json:"message_type"`
	MessageContent string `json:"message_content"`
}

func leadMatches(leads []domain.Lead) []leadMatch {
	out := make([]leadMatch, 0, len(leads))
	for _, l := range leads {
		out = append(out, leadMatch{LeadID: l.ID, Name: l.Name, Email: l.Email, Phone: l.Phone, Status: l.Status, Source: l.Source})
	}
	return out
}

func contactMatches(leads []domain.Lead) []contactMatch {
	out := make([]contactMatch, 0, len(leads))
	for _, l := range leads {
		out = append(out, contactMatch{ContactID: l.ID, Name: l.Name, Email: l.Email, Phone: l.Phone, Status: l.Status, Source: l.Source})
	}
	return out
}

// --- Handlers ---

// BookAppointment handles POST /api/v1/book_appointment
func (h *WorkflowHandler) BookAppointment(w http.ResponseWriter, r *http.Request) {
	var req BookAppointmentRequest
	fields, ok := decodeFields(w, r, &req)
	if !ok {
		return
	}

	if !hasFields(fields, bookFields) {
		httputil.WriteJSON(w, http.StatusBadRequest, workflowResponse{
			Status:         "error",
			Message:        "Missing required fields. Please provide user_id, lead_name, and start_time.",
			RequiredFields: bookFields,
		})
		return
	}
	userID, ok := parseUserID(w, req.UserID)
	if !ok {
		return
	}

	task, err := h.service.Book(r.Context(), service.BookInput{
		UserID:      userID,
		LeadName:    req.LeadName,
		StartTime:   req.StartTime,
		MeetingType: req.MeetingType,
		Description: req.Description,
		Location:    req.Location,
	})

	var (
		noMatch   *domain.NoMatchError
		ambiguous *domain.AmbiguousMatchError
		badTime   *service.TimeFormatError
	)
	switch {
	case err == nil:
	case errors.As(err, &noMatch):
		httputil.WriteJSON(w, http.StatusNotFound, workflowResponse{
			Status:        "error",
			Message:       fmt.Sprintf("No leads found with the name '%s'.", req.LeadName),
			ContextForLLM: fmt.Sprintf("I couldn't find any leads matching the name '%s' in the database.", req.LeadName),
			Suggestion:    "Consider creating a new lead on the dashboard before scheduling an appointment.",
		})
		return
	case errors.As(err, &ambiguous):
		httputil.WriteJSON(w, http.StatusMultipleChoices, workflowResponse{
			Status:        "multiple_matches",
			Message:       fmt.Sprintf("Found %d leads with the name '%s'.", len(ambiguous.Matches), req.LeadName),
			ContextForLLM: "Please provide additional information to identify the specific lead.",
			MatchingLeads: leadMatches(ambiguous.Matches),
		})
		return
	case errors.As(err, &badTime):
		httputil.WriteJSON(w, http.StatusBadRequest, workflowResponse{
			Status:  "error",
			Message: "Invalid date/time format",
			ContextForLLM: fmt.Sprintf("There was an error processing the appointment time: %v. "+
				"Please ensure the time is in ISO format (YYYY-MM-DDTHH:MM:SS).", badTime.Err),
			ErrorDetails: badTime.Err.Error(),
		})
		return
	default:
		h.writeInternal(w, r, err,
			"Internal server error",
			"An unexpected error occurred while scheduling the appointment. Please try again or contact support.")
		return
	}

	platform := "via Google Meet"
	location := domain.PlatformVideo
	if task.InPerson() {
		platform = "in-person"
		location = task.Location
	}

	httputil.WriteJSON(w, http.StatusAccepted, workflowResponse{
		Status:  "success",
		Message: fmt.Sprintf("Appointment scheduling initiated with %s", task.Lead.Name),
		ContextForLLM: fmt.Sprintf("I've found the lead '%s' and started scheduling an appointment for %s. "+
			"The appointment will be %s. Please check your dashboard for notifications.",
			task.Lead.Name, domain.FormatHuman(task.Start), platform),
		LeadDetails: bookedLead{LeadID: task.Lead.ID, Name: task.Lead.Name, Email: task.Lead.Email, Status: task.Lead.Status},
		AppointmentDetails: appointmentDetails{
			StartTime:   domain.FormatISO(task.Start),
			EndTime:     domain.FormatISO(task.End()),
			Location:    location,
			Description: task.Notes(),
		},
	})
}

// InitiateCall handles POST /api/v1/initiate_call
func (h *WorkflowHandler) InitiateCall(w http.ResponseWriter, r *http.Request) {
	var req InitiateCallRequest
	fields, ok := decodeFields(w, r, &req)
	if !ok {
		return
	}

	if !hasFields(fields, callFields) {
		httputil.WriteJSON(w, http.StatusBadRequest, workflowResponse{
			Status:         "error",
			Message:        "Missing required fields. Please provide user_id, contact_name, and call_time.",
			RequiredFields: callFields,
		})
		return
	}
	userID, ok := parseUserID(w, req.UserID)
	if !ok {
		return
	}

	task, err := h.service.Call(r.Context(), service.CallInput{
		UserID:           userID,
		ContactName:      req.ContactName,
		CallTime:         req.CallTime,
		DiscussionPoints: req.DiscussionPoints,
	})

	var (
		noMatch   *domain.NoMatchError
		ambiguous *domain.AmbiguousMatchError
		badTime   *service.TimeFormatError
	)
	switch {
	case err == nil:
	case errors.As(err, &noMatch):
		httputil.WriteJSON(w, http.StatusNotFound, workflowResponse{
			Status:  "error",
			Message: fmt.Sprintf("No contacts found with the name '%s'.", req.ContactName),
			ContextForLLM: fmt.Sprintf("I couldn't find any contacts matching the name '%s' in the database. "+
				"Please verify the contact name or add a new contact first.", req.ContactName),
			Suggestion: "Consider adding a new contact before initiating a call.",
		})
		return
	case errors.As(err, &ambiguous):
		httputil.WriteJSON(w, http.StatusMultipleChoices, workflowResponse{
			Status:  "multiple_matches",
			Message: fmt.Sprintf("Found %d contacts with the name '%s'.", len(ambiguous.Matches), req.ContactName),
			ContextForLLM: fmt.Sprintf("I found %d different contacts matching the name '%s'. "+
				"To avoid confusion, please specify which one you would like to call.", len(ambiguous.Matches), req.ContactName),
			MatchingContacts: contactMatches(ambiguous.Matches),
			Suggestion:       "Please provide additional details to identify the specific contact.",
		})
		return
	case errors.As(err, &badTime):
		httputil.WriteJSON(w, http.StatusBadRequest, workflowResponse{
			Status:  "error",
			Message: "Invalid date/time format for call_time.",
			ContextForLLM: "The provided call_time is not in the correct ISO format (YYYY-MM-DDTHH:MM:SS). " +
				"Please provide a valid call time.",
			ErrorDetails: badTime.Err.Error(),
		})
		return
	default:
		h.writeInternal(w, r, err,
			"Internal server error.",
			"I encountered an unexpected error while trying to initiate the call. Please try again or contact support if the issue persists.")
		return
	}

	message := fmt.Sprintf("Call scheduled with %s for %s.", task.Lead.Name, domain.FormatHuman(task.CallTime))
	timing := "scheduled"
	if service.IsImmediate(task.CallTime, h.now()) {
		message = fmt.Sprintf("I'm calling %s now.", task.Lead.Name)
		timing = "starting immediately"
	}

	httputil.WriteJSON(w, http.StatusAccepted, workflowResponse{
		Status:  "success",
		Message: message,
		ContextForLLM: fmt.Sprintf("I found the contact '%s' and initiated the call. The call is %s; "+
			"the process is running in the background and will update once completed.", task.Lead.Name, timing),
		ContactDetails: contactDetails{
			ContactID: task.Lead.ID,
			Name:      task.Lead.Name,
			Email:     task.Lead.Email,
			Phone:     task.Lead.Phone,
			Status:    task.Lead.Status,
		},
		CallDetails: callDetails{
			CallTime:         domain.FormatISO(task.CallTime),
			DiscussionPoints: task.DiscussionPoints,
		},
	})
}

// SendMessage handles POST /api/v1/send_message
func (h *WorkflowHandler) SendMessage(w http.ResponseWriter, r *http.Request) {
	var req SendMessageRequest
	fields, ok := decodeFields(w, r, &req)
	if !ok {
		return
	}

	if !hasFields(fields, messageFields) {
		httputil.WriteJSON(w, http.StatusBadRequest, workflowResponse{
			Status:         "error",
			Message:        "Missing required fields. Please provide user_id, lead_name, message_type, and message_content.",
			RequiredFields: messageFields,
		})
		return
	}
	userID, ok := parseUserID(w, req.UserID)
	if !ok {
		return
	}

	task, err := h.service.Message(r.Context(), service.MessageInput{
		UserID:         userID,
		LeadName:       req.LeadName,
		MessageType:    req.MessageType,
		MessageContent: req.MessageContent,
	})

	var (
		noMatch   *domain.NoMatchError
		ambiguous *domain.AmbiguousMatchError
	)
	switch {
	case err == nil:
	case errors.Is(err, apperrors.ErrInvalidInput):
		_, message := errorMessage(r, err, h.logger)
		httputil.WriteJSON(w, http.StatusBadRequest, workflowResponse{Status: "error", Message: message})
		return
	case errors.As(err, &noMatch):
		httputil.WriteJSON(w, http.StatusNotFound, workflowResponse{
			Status:  "error",
			Message: fmt.Sprintf("No leads found with the name '%s'.", req.LeadName),
			ContextForLLM: fmt.Sprintf("I couldn't find any leads matching the name '%s' in the database. "+
				"Please verify the lead name or create a new lead first.", req.LeadName),
			Suggestion: "Consider creating a new lead before sending a message.",
		})
		return
	case errors.As(err, &ambiguous):
		httputil.WriteJSON(w, http.StatusMultipleChoices, workflowResponse{
			Status:  "multiple_matches",
			Message: fmt.Sprintf("Found %d leads with the name '%s'.", len(ambiguous.Matches), req.LeadName),
			ContextForLLM: fmt.Sprintf("I found multiple leads matching the name '%s'. "+
				"Please specify which lead to send the message to.", req.LeadName),
			MatchingLeads: leadMatches(ambiguous.Matches),
			Suggestion:    "Provide additional information to uniquely identify the target lead.",
		})
		return
	default:
		h.writeInternal(w, r, err,
			"Internal server error.",
			"I encountered an unexpected error while trying to send the message. Please try again or contact support if the issue persists.")
		return
	}

	httputil.WriteJSON(w, http.StatusAccepted, workflowResponse{
		Status:  "success",
		Message: fmt.Sprintf("Message sending initiated to %s.", task.Lead.Name),
		ContextForLLM: fmt.Sprintf("I found the lead '%s' and initiated sending a %s message. "+
			"The process is running in the background and will update once completed.", task.Lead.Name, task.Type),
		LeadDetails: messageLead{
			LeadID: task.Lead.ID,
			Name:   task.Lead.Name,
			Email:  task.Lead.Email,
			Phone:  task.Lead.Phone,
			Status: task.Lead.Status,
		},
		MessageDetails: messageDetails{
			MessageType:    task.Type,
			MessageContent: task.Content,
		},
	})
}

func (h *WorkflowHandler) writeInternal(w http.ResponseWriter, r *http.Request, err error, message, llmContext string) {
	errorMessage(r, err, h.logger)
	httputil.WriteJSON(w, http.StatusInternalServerError, workflowResponse{
		Status:        "error",
		Message:       message,
		ContextForLLM: llmContext,
		ErrorDetails:  err.Error(),
	})
}

// parseUserID converts a present user_id to an integer. On failure it writes
// a 400 and returns false.
func parseUserID(w http.ResponseWriter, id flexibleID) (int64, bool) {
	v, err := id.Int64()
	if err != nil || strings.TrimSpace(string(id)) == "" {
		httputil.WriteJSON(w, http.StatusBadRequest, errorBody{Error: MsgInvalidUserID})
		return 0, false
	}
	return v, true
}
