package http

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/adebanjo23/DREW-AI-BACKEND/internal/oauth"
	"github.com/adebanjo23/DREW-AI-BACKEND/internal/service"
	"github.com/adebanjo23/DREW-AI-BACKEND/pkg/httputil"
)

const connectLinkLabel = "Connect with Google Calendar"

// IntegrationHandler serves the Google connect flow and calendar reads.
type IntegrationHandler struct {
	oauth    *oauth.Coordinator
	calendar *service.CalendarService
	logger   *slog.Logger
}

// NewIntegrationHandler creates a new integration HTTP handler.
func NewIntegrationHandler(coordinator *oauth.Coordinator, calendar *service.CalendarService, logger *slog.Logger) *IntegrationHandler {
	return &IntegrationHandler{
		oauth:    coordinator,
		calendar: calendar,
		logger:   logger,
	}
}

type connectedResponse struct {
	Status  string `json:"status"`
	Message string `json:"message"`
	UserID  int64  `json:"user_id"`
}

// InitiateAuth handles GET /api/v1/auth/google?user_id=
func (h *IntegrationHandler) InitiateAuth(w http.ResponseWriter, r *http.Request) {
	url, err := h.oauth.AuthorizationURL(r.URL.Query().Get("user_id"))
	if err != nil {
		writeFlatError(w, r, err, h.logger)
		return
	}
	httputil.WriteLink(w, http.StatusOK, url, connectLinkLabel)
}

// AuthCallback handles GET /api/v1/auth/google/callback
func (h *IntegrationHandler) AuthCallback(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	userID, err := h.oauth.Complete(r.Context(), q.Get("code"), q.Get("state"))
	if err != nil {
		writeFlatError(w, r, err, h.logger)
		return
	}

	httputil.WriteJSON(w, http.StatusOK, connectedResponse{
		Status:  "success",
		Message: oauth.MsgConnected,
		UserID:  userID,
	})
}

// GetAvailableTimes handles GET /api/v1/get_available_times/{user_id}
func (h *IntegrationHandler) GetAvailableTimes(w http.ResponseWriter, r *http.Request) {
	userID, ok := httputil.ParseID(w, "user_id", chi.URLParam(r, "user_id"))
	if !ok {
		return
	}

	availability, err := h.calendar.AvailableTimes(r.Context(), userID)
	if err != nil {
		writeFlatError(w, r, err, h.logger)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, availability)
}
