package http

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/adebanjo23/DREW-AI-BACKEND/internal/oauth"
	"github.com/adebanjo23/DREW-AI-BACKEND/internal/service"
	"github.com/adebanjo23/DREW-AI-BACKEND/pkg/health"
	"github.com/adebanjo23/DREW-AI-BACKEND/pkg/middleware"
)

const serviceName = "crm"

// Services groups what the API endpoints call into.
type Services struct {
	OAuth          *oauth.Coordinator
	Workflows      *service.WorkflowService
	Leads          *service.LeadService
	Communications *service.CommunicationService
	Summary        *service.SummaryService
	Calendar       *service.CalendarService
}

// RateLimit is the per-client request budget for /api/v1. A zero RPS
// disables it.
type RateLimit struct {
	RPS   int
	Burst int
}

// NewRouter creates a chi router with all CRM routes registered.
func NewRouter(svc Services, limit RateLimit, healthHandler *health.Handler, logger *slog.Logger) http.Handler {
	r := chi.NewRouter()

	// Global middleware
	r.Use(CORS)
	r.Use(middleware.Recovery(logger))
	r.Use(chimw.Compress(5))
	r.Use(chimw.Timeout(30 * time.Second))
	r.Use(middleware.RequestLogging(logger))
	r.Use(middleware.PrometheusMetrics(serviceName))
	r.Use(middleware.Tracing(serviceName))
	r.Use(middleware.RequestLogger(logger))

	// Health check endpoints
	r.Get("/health/live", healthHandler.LivenessHandler())
	r.Get("/health/ready", healthHandler.ReadinessHandler())
	r.Get("/metrics", func(w http.ResponseWriter, r *http.Request) {
		promhttp.Handler().ServeHTTP(w, r)
	})

	integrationHandler := NewIntegrationHandler(svc.OAuth, svc.Calendar, logger)
	workflowHandler := NewWorkflowHandler(svc.Workflows, logger)
	crmHandler := NewCRMHandler(svc.Leads, svc.Communications, svc.Summary, logger)

	r.Route("/api/v1", func(r chi.Router) {
		r.Use(middleware.RateLimit(limit.RPS, limit.Burst, logger))
		r.Use(ContentTypeJSON)

		r.Get("/auth/google", integrationHandler.InitiateAuth)
		r.Get("/auth/google/callback", integrationHandler.AuthCallback)
		r.Get("/get_available_times/{user_id}", integrationHandler.GetAvailableTimes)

		r.Post("/book_appointment", workflowHandler.BookAppointment)
		r.Post("/initiate_call", workflowHandler.InitiateCall)
		r.Post("/send_message", workflowHandler.SendMessage)

		r.Post("/save_communication", crmHandler.SaveCommunication)
		r.Get("/get_user_communications/{user_id}", crmHandler.GetUserCommunications)
		r.Get("/get_lead_interactions/{lead_id}", crmHandler.GetLeadInteractions)
		r.Post("/search_leads", crmHandler.SearchLeads)
	})

	return r
}
