package http

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/adebanjo23/DREW-AI-BACKEND/internal/domain"
	"github.com/adebanjo23/DREW-AI-BACKEND/internal/repository"
	"github.com/adebanjo23/DREW-AI-BACKEND/internal/service"
	apperrors "github.com/adebanjo23/DREW-AI-BACKEND/pkg/errors"
	"github.com/adebanjo23/DREW-AI-BACKEND/pkg/httputil"
	"github.com/adebanjo23/DREW-AI-BACKEND/pkg/validator"
)

// CRMHandler serves the lead and communication read/write endpoints.
type CRMHandler struct {
	leads          *service.LeadService
	communications *service.CommunicationService
	summary        *service.SummaryService
	logger         *slog.Logger
}

// NewCRMHandler creates a new CRM HTTP handler.
func NewCRMHandler(
	leads *service.LeadService,
	communications *service.CommunicationService,
	summary *service.SummaryService,
	logger *slog.Logger,
) *CRMHandler {
	return &CRMHandler{
		leads:          leads,
		communications: communications,
		summary:        summary,
		logger:         logger,
	}
}

// --- Request DTOs ---

// saveCommunicationFields must be present in a save request.
var saveCommunicationFields = []string{"user_id", "type", "status", "details"}

// SaveCommunicationRequest is the JSON request body for recording a
// communication. Duration and call_id are required for CALL records.
type SaveCommunicationRequest struct {
	UserID   flexibleID     `json:"user_id"`
	LeadID   *int64         `json:"lead_id"`
	DrewID   string         `json:"drew_id"`
	Type     string         `json:"type"`
	Status   string         `json:"status"`
	Details  map[string]any `json:"details"`
	Duration *int           `json:"duration"`
	CallID   *string        `json:"call_id"`
	CallTime *string        `json:"call_time"`
}

// SearchLeadsRequest is the JSON request body for a lead search.
type SearchLeadsRequest struct {
	UserID     flexibleID `json:"user_id" validate:"required"`
	SearchTerm string     `json:"search_term" validate:"required"`
}

// --- Response DTOs ---

type saveCommunicationResponse struct {
	Status          string `json:"status"`
	CommunicationID int64  `json:"communication_id"`
	CallID          *int64 `json:"call_id,omitempty"`
}

type filtersApplied struct {
	StartDate *string `json:"start_date"`
	EndDate   *string `json:"end_date"`
}

type summaryResponse struct {
	Status         string           `json:"status"`
	Metrics        *service.Metrics `json:"metrics"`
	FiltersApplied filtersApplied   `json:"filters_applied"`
}

type leadInfo struct {
	Name        string         `json:"name"`
	Email       string         `json:"email"`
	Phone       string         `json:"phone"`
	Status      string         `json:"status"`
	Source      string         `json:"source"`
	LeadDetails map[string]any `json:"lead_details"`
}

type interactionCounts struct {
	Drew  int `json:"drew"`
	Agent int `json:"agent"`
}

type leadInteractionsResponse struct {
	LeadInfo           leadInfo          `json:"lead_info"`
	InteractionHistory []string          `json:"interaction_history"`
	TotalInteractions  int               `json:"total_interactions"`
	InteractionCounts  interactionCounts `json:"interaction_counts"`
}

type leadSummary struct {
	LeadID      int64          `json:"lead_id"`
	Name        string         `json:"name"`
	Status      string         `json:"status"`
	Email       string         `json:"email"`
	Phone       string         `json:"phone"`
	ExternalID  string         `json:"external_id"`
	Source      string         `json:"source"`
	CreatedAt   *string        `json:"created_at"`
	UpdatedAt   *string        `json:"updated_at"`
	LeadDetails map[string]any `json:"lead_details"`
}

func isoOrNil(t *time.Time) *string {
	if t == nil {
		return nil
	}
	s := domain.FormatISO(t.UTC())
	return &s
}

// --- Handlers ---

// SaveCommunication handles POST /api/v1/save_communication
func (h *CRMHandler) SaveCommunication(w http.ResponseWriter, r *http.Request) {
	var req SaveCommunicationRequest
	fields, ok := decodeFields(w, r, &req)
	if !ok {
		return
	}

	if !hasFields(fields, saveCommunicationFields) {
		httputil.WriteJSON(w, http.StatusBadRequest, errorBody{
			Error:          "Missing required fields",
			RequiredFields: saveCommunicationFields,
		})
		return
	}
	userID, ok := parseUserID(w, req.UserID)
	if !ok {
		return
	}

	input := &service.SaveCommunicationInput{
		UserID:   userID,
		LeadID:   req.LeadID,
		DrewID:   req.DrewID,
		Type:     req.Type,
		Status:   req.Status,
		Details:  req.Details,
		Duration: req.Duration,
		CallID:   req.CallID,
	}
	if req.CallTime != nil && *req.CallTime != "" {
		t, err := domain.ParseTime(*req.CallTime)
		if err != nil {
			httputil.WriteJSON(w, http.StatusBadRequest, errorBody{Error: "Invalid call_time format"})
			return
		}
		input.CallTime = &t
	}

	res, err := h.communications.Save(r.Context(), input)
	if err != nil {
		writeFlatError(w, r, err, h.logger)
		return
	}

	httputil.WriteJSON(w, http.StatusCreated, saveCommunicationResponse{
		Status:          "success",
		CommunicationID: res.CommunicationID,
		CallID:          res.CallID,
	})
}

// GetUserCommunications handles GET /api/v1/get_user_communications/{user_id}
func (h *CRMHandler) GetUserCommunications(w http.ResponseWriter, r *http.Request) {
	userID, ok := httputil.ParseID(w, "user_id", chi.URLParam(r, "user_id"))
	if !ok {
		return
	}

	var (
		dr      repository.DateRange
		filters filtersApplied
	)
	for _, p := range []struct {
		name   string
		target **time.Time
		echo   **string
	}{
		{"start_date", &dr.Start, &filters.StartDate},
		{"end_date", &dr.End, &filters.EndDate},
	} {
		raw := r.URL.Query().Get(p.name)
		if raw == "" {
			continue
		}
		t, err := domain.ParseTime(raw)
		if err != nil {
			httputil.WriteJSON(w, http.StatusBadRequest, statusBody{
				Status:  "error",
				Message: "Invalid " + p.name + " format. Use ISO format (YYYY-MM-DDTHH:MM:SS).",
			})
			return
		}
		utc := t.UTC()
		*p.target = &utc
		*p.echo = &raw
	}

	metrics, err := h.summary.Summary(r.Context(), userID, dr)
	if err != nil {
		writeStatusError(w, r, err, h.logger)
		return
	}

	httputil.WriteJSON(w, http.StatusOK, summaryResponse{
		Status:         "success",
		Metrics:        metrics,
		FiltersApplied: filters,
	})
}

// GetLeadInteractions handles GET /api/v1/get_lead_interactions/{lead_id}
func (h *CRMHandler) GetLeadInteractions(w http.ResponseWriter, r *http.Request) {
	leadID, ok := httputil.ParseID(w, "lead_id", chi.URLParam(r, "lead_id"))
	if !ok {
		return
	}

	history, err := h.leads.Interactions(r.Context(), leadID)
	if err != nil {
		writeFlatError(w, r, err, h.logger)
		return
	}

	lead := history.Lead
	details := lead.LeadDetails
	if details == nil {
		details = map[string]any{}
	}
	httputil.WriteJSON(w, http.StatusOK, leadInteractionsResponse{
		LeadInfo: leadInfo{
			Name:        lead.Name,
			Email:       lead.Email,
			Phone:       lead.Phone,
			Status:      lead.Status,
			Source:      lead.Source,
			LeadDetails: details,
		},
		InteractionHistory: history.Entries,
		TotalInteractions:  len(history.Entries),
		InteractionCounts:  interactionCounts{Drew: history.DrewCount, Agent: history.AgentCount},
	})
}

// SearchLeads handles POST /api/v1/search_leads
func (h *CRMHandler) SearchLeads(w http.ResponseWriter, r *http.Request) {
	var req SearchLeadsRequest
	if !decodeBody(w, r, &req) {
		return
	}

	if err := validator.Validate(req); err != nil {
		httputil.WriteJSON(w, http.StatusBadRequest, errorBody{
			Error: "Missing required fields: 'user_id' and 'search_term' must be provided.",
		})
		return
	}
	userID, err := req.UserID.Int64()
	if err != nil {
		writeFlatError(w, r, apperrors.InvalidInput(MsgInvalidUserID), h.logger)
		return
	}

	leads, err := h.leads.Search(r.Context(), userID, req.SearchTerm)
	if err != nil {
		writeFlatError(w, r, err, h.logger)
		return
	}

	out := make([]leadSummary, 0, len(leads))
	for _, l := range leads {
		out = append(out, leadSummary{
			LeadID:      l.ID,
			Name:        l.Name,
			Status:      l.Status,
			Email:       l.Email,
			Phone:       l.Phone,
			ExternalID:  l.ExternalID,
			Source:      l.Source,
			CreatedAt:   isoOrNil(l.CreatedAt),
			UpdatedAt:   isoOrNil(l.UpdatedAt),
			LeadDetails: l.LeadDetails,
		})
	}
	httputil.WriteJSON(w, http.StatusOK, out)
}
