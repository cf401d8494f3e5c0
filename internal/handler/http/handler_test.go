package http

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"golang.org/x/oauth2"

	"github.com/adebanjo23/DREW-AI-BACKEND/internal/domain"
	"github.com/adebanjo23/DREW-AI-BACKEND/internal/event"
	"github.com/adebanjo23/DREW-AI-BACKEND/internal/oauth"
	"github.com/adebanjo23/DREW-AI-BACKEND/internal/repository"
	"github.com/adebanjo23/DREW-AI-BACKEND/internal/service"
	"github.com/adebanjo23/DREW-AI-BACKEND/internal/workflow"
	apperrors "github.com/adebanjo23/DREW-AI-BACKEND/pkg/errors"
	"github.com/adebanjo23/DREW-AI-BACKEND/pkg/health"
)

// ---------------------------------------------------------------------------
// Mocks
// ---------------------------------------------------------------------------

type mockUserRepo struct {
	mock.Mock
}

func (m *mockUserRepo) GetByID(ctx context.Context, id int64) (*domain.User, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.User), args.Error(1)
}

type mockLeadRepo struct {
	mock.Mock
}

func (m *mockLeadRepo) GetByID(ctx context.Context, id int64) (*domain.Lead, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Lead), args.Error(1)
}

func (m *mockLeadRepo) SearchByName(ctx context.Context, userID int64, term string) ([]domain.Lead, error) {
	args := m.Called(ctx, userID, term)
	return args.Get(0).([]domain.Lead), args.Error(1)
}

type mockCommunicationRepo struct {
	mock.Mock
}

func (m *mockCommunicationRepo) Create(ctx context.Context, c *domain.Communication) error {
	return m.Called(ctx, c).Error(0)
}

func (m *mockCommunicationRepo) CreateWithCall(ctx context.Context, c *domain.Communication, call *domain.Call) error {
	return m.Called(ctx, c, call).Error(0)
}

func (m *mockCommunicationRepo) CreateWithAppointment(ctx context.Context, c *domain.Communication, a *domain.Appointment) error {
	return m.Called(ctx, c, a).Error(0)
}

func (m *mockCommunicationRepo) HasDrewLeadCommunication(ctx context.Context, leadID int64) (bool, error) {
	args := m.Called(ctx, leadID)
	return args.Bool(0), args.Error(1)
}

func (m *mockCommunicationRepo) ListByLead(ctx context.Context, leadID int64) ([]domain.Communication, error) {
	args := m.Called(ctx, leadID)
	return args.Get(0).([]domain.Communication), args.Error(1)
}

type mockSummaryRepo struct {
	mock.Mock
}

func (m *mockSummaryRepo) CallStats(ctx context.Context, userID int64, r repository.DateRange) (domain.CallStats, error) {
	args := m.Called(ctx, userID, r)
	return args.Get(0).(domain.CallStats), args.Error(1)
}

func (m *mockSummaryRepo) LeadStatusCounts(ctx context.Context, userID int64, r repository.DateRange, statuses []string) (int, map[string]int, error) {
	args := m.Called(ctx, userID, r, statuses)
	return args.Int(0), args.Get(1).(map[string]int), args.Error(2)
}

func (m *mockSummaryRepo) LeadInteractions(ctx context.Context, userID int64, r repository.DateRange) ([]domain.LeadInteraction, error) {
	args := m.Called(ctx, userID, r)
	return args.Get(0).([]domain.LeadInteraction), args.Error(1)
}

func (m *mockSummaryRepo) RecentAppointments(ctx context.Context, userID int64, r repository.DateRange, limit int) ([]domain.Appointment, error) {
	args := m.Called(ctx, userID, r, limit)
	return args.Get(0).([]domain.Appointment), args.Error(1)
}

func (m *mockSummaryRepo) CountLeadsCreatedSince(ctx context.Context, userID int64, r repository.DateRange, since time.Time) (int, error) {
	args := m.Called(ctx, userID, r, since)
	return args.Int(0), args.Error(1)
}

func (m *mockSummaryRepo) CountLeadsNeedingFollowUp(ctx context.Context, userID int64, r repository.DateRange, olderThan time.Time) (int, error) {
	args := m.Called(ctx, userID, r, olderThan)
	return args.Int(0), args.Error(1)
}

func (m *mockSummaryRepo) CountUpcomingAppointments(ctx context.Context, userID int64, r repository.DateRange, now time.Time) (int, error) {
	args := m.Called(ctx, userID, r, now)
	return args.Int(0), args.Error(1)
}

type mockCredentials struct {
	mock.Mock
}

func (m *mockCredentials) Usable(ctx context.Context, userID int64, platform string) (*domain.Bundle, error) {
	args := m.Called(ctx, userID, platform)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Bundle), args.Error(1)
}

type mockCalendar struct {
	mock.Mock
}

func (m *mockCalendar) BusySlots(ctx context.Context, b *domain.Bundle) ([]domain.BusySlot, int, error) {
	args := m.Called(ctx, b)
	return args.Get(0).([]domain.BusySlot), args.Int(1), args.Error(2)
}

func (m *mockCalendar) TimeZone(ctx context.Context, b *domain.Bundle) (string, error) {
	args := m.Called(ctx, b)
	return args.String(0), args.Error(1)
}

type mockSubmitter struct {
	mock.Mock
}

func (m *mockSubmitter) Submit(ctx context.Context, task workflow.Task) error {
	return m.Called(ctx, task).Error(0)
}

type noIdentity struct{}

func (noIdentity) Email(context.Context, *oauth2.Token) (string, error) { return "", nil }

type noSaver struct{}

func (noSaver) Save(context.Context, int64, string, *domain.Bundle) error { return nil }

// ---------------------------------------------------------------------------
// Fixture
// ---------------------------------------------------------------------------

type fixture struct {
	router   http.Handler
	users    *mockUserRepo
	leads    *mockLeadRepo
	comms    *mockCommunicationRepo
	summary  *mockSummaryRepo
	creds    *mockCredentials
	calendar *mockCalendar
	runner   *mockSubmitter
}

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func newFixture() *fixture {
	return newLimitedFixture(RateLimit{})
}

func newLimitedFixture(limit RateLimit) *fixture {
	f := &fixture{
		users:    new(mockUserRepo),
		leads:    new(mockLeadRepo),
		comms:    new(mockCommunicationRepo),
		summary:  new(mockSummaryRepo),
		creds:    new(mockCredentials),
		calendar: new(mockCalendar),
		runner:   new(mockSubmitter),
	}
	log := testLogger()

	coordinator := oauth.NewCoordinator(oauth.Config{
		ClientID:     "client-id",
		ClientSecret: "client-secret",
		RedirectURL:  "https://crm.example.com/api/v1/auth/google/callback",
		Endpoint: oauth2.Endpoint{
			AuthURL:  "https://accounts.example.com/o/oauth2/auth",
			TokenURL: "https://accounts.example.com/token",
		},
	}, noIdentity{}, noSaver{}, event.NewProducer(nil, log), log)

	leadSvc := service.NewLeadService(f.leads, f.comms, log)
	f.router = NewRouter(Services{
		OAuth:          coordinator,
		Workflows:      service.NewWorkflowService(leadSvc, f.runner, log),
		Leads:          leadSvc,
		Communications: service.NewCommunicationService(f.users, f.comms, log),
		Summary:        service.NewSummaryService(f.users, f.leads, f.summary, log),
		Calendar:       service.NewCalendarService(f.creds, f.calendar, log),
	}, limit, health.NewHandler(), log)
	return f
}

func (f *fixture) do(t *testing.T, method, path string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	rec := httptest.NewRecorder()
	f.router.ServeHTTP(rec, req)
	return rec
}

func decode(t *testing.T, rec *httptest.ResponseRecorder) map[string]any {
	t.Helper()
	var out map[string]any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &out))
	return out
}

var (
	jane = domain.Lead{ID: 3, Name: "Jane Doe", Email: "jane@example.com", Phone: "+15550100", Status: "new", Source: "zillow"}
	john = domain.Lead{ID: 4, Name: "John Doe", Email: "john@example.com", Status: "contacted"}
)

// ---------------------------------------------------------------------------
// Workflow endpoints
// ---------------------------------------------------------------------------

func TestBookAppointment_MissingFields(t *testing.T) {
	f := newFixture()

	rec := f.do(t, http.MethodPost, "/api/v1/book_appointment", map[string]any{"user_id": 1, "lead_name": "Jane"})

	assert.Equal(t, http.StatusBadRequest, rec.Code)
	body := decode(t, rec)
	assert.Equal(t, "error", body["status"])
	assert.Equal(t, []any{"user_id", "lead_name", "start_time"}, body["required_fields"])
}

func TestBookAppointment_EmptyLeadNameIsPresent(t *testing.T) {
	f := newFixture()
	f.leads.On("SearchByName", mock.Anything, int64(1), "").Return([]domain.Lead{}, nil)

	rec := f.do(t, http.MethodPost, "/api/v1/book_appointment",
		map[string]any{"user_id": 1, "lead_name": "", "start_time": "2024-01-15T14:00:00"})

	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.NotContains(t, decode(t, rec), "required_fields")
}

func TestBookAppointment_NoMatch(t *testing.T) {
	f := newFixture()
	f.leads.On("SearchByName", mock.Anything, int64(1), "Ghost").Return([]domain.Lead{}, nil)

	rec := f.do(t, http.MethodPost, "/api/v1/book_appointment",
		map[string]any{"user_id": "1", "lead_name": "Ghost", "start_time": "2024-01-15T14:00:00"})

	assert.Equal(t, http.StatusNotFound, rec.Code)
	body := decode(t, rec)
	assert.Equal(t, "No leads found with the name 'Ghost'.", body["message"])
	assert.Contains(t, body, "suggestion")
}

func TestBookAppointment_Ambiguous(t *testing.T) {
	f := newFixture()
	f.leads.On("SearchByName", mock.Anything, int64(1), "Doe").Return([]domain.Lead{jane, john}, nil)

	rec := f.do(t, http.MethodPost, "/api/v1/book_appointment",
		map[string]any{"user_id": 1, "lead_name": "Doe", "start_time": "2024-01-15T14:00:00"})

	assert.Equal(t, http.StatusMultipleChoices, rec.Code)
	body := decode(t, rec)
	assert.Equal(t, "multiple_matches", body["status"])
	assert.Equal(t, "Found 2 leads with the name 'Doe'.", body["message"])
	matches := body["matching_leads"].([]any)
	require.Len(t, matches, 2)
	assert.Equal(t, float64(3), matches[0].(map[string]any)["lead_id"])
	f.runner.AssertNotCalled(t, "Submit", mock.Anything, mock.Anything)
}

func TestBookAppointment_InvalidTime(t *testing.T) {
	f := newFixture()
	f.leads.On("SearchByName", mock.Anything, int64(1), "Jane").Return([]domain.Lead{jane}, nil)

	rec := f.do(t, http.MethodPost, "/api/v1/book_appointment",
		map[string]any{"user_id": 1, "lead_name": "Jane", "start_time": "next tuesday"})

	assert.Equal(t, http.StatusBadRequest, rec.Code)
	body := decode(t, rec)
	assert.Equal(t, "Invalid date/time format", body["message"])
	assert.Contains(t, body["context_for_llm"], "YYYY-MM-DDTHH:MM:SS")
}

func TestBookAppointment_Accepted(t *testing.T) {
	f := newFixture()
	f.leads.On("SearchByName", mock.Anything, int64(1), "Jane").Return([]domain.Lead{jane}, nil)
	f.runner.On("Submit", mock.Anything, mock.AnythingOfType("workflow.BookingTask")).Return(nil)

	rec := f.do(t, http.MethodPost, "/api/v1/book_appointment",
		map[string]any{"user_id": 1, "lead_name": "Jane", "start_time": "2024-01-15T14:00:00"})

	require.Equal(t, http.StatusAccepted, rec.Code)
	body := decode(t, rec)
	assert.Equal(t, "success", body["status"])
	assert.Equal(t, "Appointment scheduling initiated with Jane Doe", body["message"])
	assert.Contains(t, body["context_for_llm"], "January 15, 2024 at 02:00 PM")
	assert.Contains(t, body["context_for_llm"], "via Google Meet")

	appt := body["appointment_details"].(map[string]any)
	assert.Equal(t, "2024-01-15T14:00:00+00:00", appt["start_time"])
	assert.Equal(t, "2024-01-15T15:00:00+00:00", appt["end_time"])
	assert.Equal(t, "Google Meet", appt["location"])
	assert.Equal(t, "Scheduled meeting", appt["description"])
	f.runner.AssertExpectations(t)
}

func TestBookAppointment_QueueFailure(t *testing.T) {
	f := newFixture()
	f.leads.On("SearchByName", mock.Anything, int64(1), "Jane").Return([]domain.Lead{jane}, nil)
	f.runner.On("Submit", mock.Anything, mock.Anything).Return(workflow.ErrStopped)

	rec := f.do(t, http.MethodPost, "/api/v1/book_appointment",
		map[string]any{"user_id": 1, "lead_name": "Jane", "start_time": "2024-01-15T14:00:00"})

	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	assert.Equal(t, "Internal server error", decode(t, rec)["message"])
}

func TestInitiateCall_Messages(t *testing.T) {
	tests := []struct {
		name     string
		callTime string
		message  string
	}{
		{"past time calls now", "2020-01-01T10:00:00", "I'm calling Jane Doe now."},
		{"future time is scheduled", "2999-01-01T10:00:00", "Call scheduled with Jane Doe for January 01, 2999 at 10:00 AM."},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newFixture()
			f.leads.On("SearchByName", mock.Anything, int64(1), "Jane").Return([]domain.Lead{jane}, nil)
			f.runner.On("Submit", mock.Anything, mock.AnythingOfType("workflow.CallTask")).Return(nil)

			rec := f.do(t, http.MethodPost, "/api/v1/initiate_call",
				map[string]any{"user_id": 1, "contact_name": "Jane", "call_time": tt.callTime, "discussion_points": "pricing"})

			require.Equal(t, http.StatusAccepted, rec.Code)
			body := decode(t, rec)
			assert.Equal(t, tt.message, body["message"])
			contact := body["contact_details"].(map[string]any)
			assert.Equal(t, float64(3), contact["contact_id"])
			assert.Equal(t, "pricing", body["call_details"].(map[string]any)["discussion_points"])
		})
	}
}

func TestInitiateCall_Ambiguous(t *testing.T) {
	f := newFixture()
	f.leads.On("SearchByName", mock.Anything, int64(1), "Doe").Return([]domain.Lead{jane, john}, nil)

	rec := f.do(t, http.MethodPost, "/api/v1/initiate_call",
		map[string]any{"user_id": 1, "contact_name": "Doe", "call_time": "2024-01-15T14:00:00"})

	assert.Equal(t, http.StatusMultipleChoices, rec.Code)
	body := decode(t, rec)
	assert.Equal(t, "Found 2 contacts with the name 'Doe'.", body["message"])
	assert.Len(t, body["matching_contacts"], 2)
}

func TestInitiateCall_InvalidTime(t *testing.T) {
	f := newFixture()
	f.leads.On("SearchByName", mock.Anything, int64(1), "Jane").Return([]domain.Lead{jane}, nil)

	rec := f.do(t, http.MethodPost, "/api/v1/initiate_call",
		map[string]any{"user_id": 1, "contact_name": "Jane", "call_time": "soon"})

	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "Invalid date/time format for call_time.", decode(t, rec)["message"])
}

func TestSendMessage_InvalidType(t *testing.T) {
	f := newFixture()

	rec := f.do(t, http.MethodPost, "/api/v1/send_message",
		map[string]any{"user_id": 1, "lead_name": "Jane", "message_type": "fax", "message_content": "hi"})

	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, service.MsgInvalidMessageType, decode(t, rec)["message"])
	f.leads.AssertNotCalled(t, "SearchByName", mock.Anything, mock.Anything, mock.Anything)
}

func TestSendMessage_Accepted(t *testing.T) {
	f := newFixture()
	f.leads.On("SearchByName", mock.Anything, int64(1), "Jane").Return([]domain.Lead{jane}, nil)
	f.runner.On("Submit", mock.Anything, mock.AnythingOfType("workflow.MessageTask")).Return(nil)

	rec := f.do(t, http.MethodPost, "/api/v1/send_message",
		map[string]any{"user_id": 1, "lead_name": "Jane", "message_type": "sms", "message_content": "hi"})

	require.Equal(t, http.StatusAccepted, rec.Code)
	body := decode(t, rec)
	assert.Equal(t, "Message sending initiated to Jane Doe.", body["message"])
	assert.Equal(t, "SMS", body["message_details"].(map[string]any)["message_type"])
}

func TestSendMessage_MissingFields(t *testing.T) {
	f := newFixture()

	rec := f.do(t, http.MethodPost, "/api/v1/send_message", map[string]any{"user_id": 1})

	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Len(t, decode(t, rec)["required_fields"], 4)
}

// ---------------------------------------------------------------------------
// CRM endpoints
// ---------------------------------------------------------------------------

func TestSaveCommunication_MissingFields(t *testing.T) {
	f := newFixture()

	rec := f.do(t, http.MethodPost, "/api/v1/save_communication", map[string]any{"user_id": 1, "type": "SMS"})

	assert.Equal(t, http.StatusBadRequest, rec.Code)
	body := decode(t, rec)
	assert.Equal(t, "Missing required fields", body["error"])
	assert.Equal(t, []any{"user_id", "type", "status", "details"}, body["required_fields"])
}

func TestSaveCommunication_NullDetailsAndEmptyStatus(t *testing.T) {
	f := newFixture()
	f.users.On("GetByID", mock.Anything, int64(1)).Return(&domain.User{ID: 1}, nil)
	var saved *domain.Communication
	f.comms.On("Create", mock.Anything, mock.Anything).Run(func(args mock.Arguments) {
		saved = args.Get(1).(*domain.Communication)
		saved.ID = 21
	}).Return(nil)

	rec := f.do(t, http.MethodPost, "/api/v1/save_communication",
		map[string]any{"user_id": 1, "lead_id": 3, "type": "SMS", "status": "", "details": nil})

	require.Equal(t, http.StatusCreated, rec.Code)
	assert.Equal(t, float64(21), decode(t, rec)["communication_id"])
	require.NotNil(t, saved)
	assert.Empty(t, saved.Status)
	assert.Empty(t, saved.Details)
}

func TestSaveCommunication_CallWithoutMetadata(t *testing.T) {
	f := newFixture()
	f.users.On("GetByID", mock.Anything, int64(1)).Return(&domain.User{ID: 1}, nil)

	rec := f.do(t, http.MethodPost, "/api/v1/save_communication",
		map[string]any{"user_id": 1, "lead_id": 3, "type": "CALL", "status": "done", "details": map[string]any{}})

	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, service.MsgMissingCallMetadata, decode(t, rec)["error"])
}

func TestSaveCommunication_Call(t *testing.T) {
	f := newFixture()
	f.users.On("GetByID", mock.Anything, int64(1)).Return(&domain.User{ID: 1}, nil)
	f.comms.On("CreateWithCall", mock.Anything, mock.Anything, mock.Anything).Run(func(args mock.Arguments) {
		args.Get(1).(*domain.Communication).ID = 11
		args.Get(2).(*domain.Call).ID = 12
	}).Return(nil)

	rec := f.do(t, http.MethodPost, "/api/v1/save_communication", map[string]any{
		"user_id": 1, "lead_id": 3, "drew_id": "agent_x", "type": "CALL", "status": "successful",
		"details": map[string]any{"notes": "ok"}, "duration": 90, "call_id": "ext-9",
		"call_time": "2024-01-15T14:00:00Z",
	})

	require.Equal(t, http.StatusCreated, rec.Code)
	body := decode(t, rec)
	assert.Equal(t, "success", body["status"])
	assert.Equal(t, float64(11), body["communication_id"])
	assert.Equal(t, float64(12), body["call_id"])
}

func TestSaveCommunication_UserNotFound(t *testing.T) {
	f := newFixture()
	f.users.On("GetByID", mock.Anything, int64(9)).Return(nil, apperrors.ErrNotFound)

	rec := f.do(t, http.MethodPost, "/api/v1/save_communication",
		map[string]any{"user_id": 9, "lead_id": 3, "type": "SMS", "status": "sent", "details": map[string]any{}})

	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.Equal(t, "User not found", decode(t, rec)["error"])
}

func TestGetUserCommunications_UserNotFound(t *testing.T) {
	f := newFixture()
	f.users.On("GetByID", mock.Anything, int64(9)).Return(nil, apperrors.ErrNotFound)

	rec := f.do(t, http.MethodGet, "/api/v1/get_user_communications/9", nil)

	assert.Equal(t, http.StatusNotFound, rec.Code)
	body := decode(t, rec)
	assert.Equal(t, "error", body["status"])
	assert.Equal(t, "User not found", body["message"])
}

func TestGetUserCommunications_InvalidDate(t *testing.T) {
	f := newFixture()

	rec := f.do(t, http.MethodGet, "/api/v1/get_user_communications/1?start_date=yesterday", nil)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
	f.users.AssertNotCalled(t, "GetByID", mock.Anything, mock.Anything)
}

func TestGetUserCommunications_Success(t *testing.T) {
	f := newFixture()
	start := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	dr := mock.MatchedBy(func(r repository.DateRange) bool {
		return r.Start != nil && r.Start.Equal(start) && r.End == nil
	})

	f.users.On("GetByID", mock.Anything, int64(1)).Return(&domain.User{ID: 1}, nil)
	f.summary.On("CallStats", mock.Anything, int64(1), dr).Return(domain.CallStats{Total: 2, Successful: 1, Missed: 1, AverageDuration: 60}, nil)
	f.summary.On("LeadStatusCounts", mock.Anything, int64(1), dr, mock.Anything).Return(1, map[string]int{"new": 1}, nil)
	f.summary.On("LeadInteractions", mock.Anything, int64(1), dr).Return([]domain.LeadInteraction{}, nil)
	f.summary.On("RecentAppointments", mock.Anything, int64(1), dr, 5).Return([]domain.Appointment{}, nil)
	f.summary.On("CountLeadsCreatedSince", mock.Anything, int64(1), dr, mock.Anything).Return(1, nil)
	f.summary.On("CountLeadsNeedingFollowUp", mock.Anything, int64(1), dr, mock.Anything).Return(0, nil)
	f.summary.On("CountUpcomingAppointments", mock.Anything, int64(1), dr, mock.Anything).Return(0, nil)

	rec := f.do(t, http.MethodGet, "/api/v1/get_user_communications/1?start_date=2024-01-01T00:00:00", nil)

	require.Equal(t, http.StatusOK, rec.Code)
	body := decode(t, rec)
	assert.Equal(t, "success", body["status"])
	filters := body["filters_applied"].(map[string]any)
	assert.Equal(t, "2024-01-01T00:00:00", filters["start_date"])
	assert.Nil(t, filters["end_date"])
	calls := body["metrics"].(map[string]any)["call_metrics"].(map[string]any)
	assert.Equal(t, float64(2), calls["total_calls"])
	actionable := body["metrics"].(map[string]any)["actionable_metrics"].(map[string]any)
	assert.Equal(t, float64(50), actionable["successful_calls_rate"])
}

func TestGetLeadInteractions(t *testing.T) {
	f := newFixture()
	at := time.Date(2024, 1, 15, 14, 0, 0, 0, time.UTC)
	f.leads.On("GetByID", mock.Anything, int64(3)).Return(&jane, nil)
	f.comms.On("ListByLead", mock.Anything, int64(3)).Return([]domain.Communication{
		{Channel: domain.ChannelDrewLead, Type: domain.KindCall, Details: map[string]any{"notes": "Intro"}, CreatedAt: at},
	}, nil)

	rec := f.do(t, http.MethodGet, "/api/v1/get_lead_interactions/3", nil)

	require.Equal(t, http.StatusOK, rec.Code)
	body := decode(t, rec)
	assert.Equal(t, "Jane Doe", body["lead_info"].(map[string]any)["name"])
	assert.Equal(t, []any{"[Drew Call on January 15, 2024 at 02:00 PM] Intro"}, body["interaction_history"])
	assert.Equal(t, float64(1), body["total_interactions"])
	assert.Equal(t, map[string]any{"drew": float64(1), "agent": float64(0)}, body["interaction_counts"])
}

func TestGetLeadInteractions_NotFound(t *testing.T) {
	f := newFixture()
	f.leads.On("GetByID", mock.Anything, int64(8)).Return(nil, apperrors.ErrNotFound)

	rec := f.do(t, http.MethodGet, "/api/v1/get_lead_interactions/8", nil)

	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.Equal(t, "Lead not found", decode(t, rec)["error"])
}

func TestGetLeadInteractions_InvalidID(t *testing.T) {
	f := newFixture()

	rec := f.do(t, http.MethodGet, "/api/v1/get_lead_interactions/abc", nil)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestSearchLeads(t *testing.T) {
	f := newFixture()
	created := time.Date(2024, 1, 2, 3, 4, 5, 0, time.UTC)
	withDates := jane
	withDates.CreatedAt = &created
	f.leads.On("SearchByName", mock.Anything, int64(1), "doe").Return([]domain.Lead{withDates, john}, nil)

	rec := f.do(t, http.MethodPost, "/api/v1/search_leads", map[string]any{"user_id": "1", "search_term": "doe"})

	require.Equal(t, http.StatusOK, rec.Code)
	var out []map[string]any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &out))
	require.Len(t, out, 2)
	assert.Equal(t, "2024-01-02T03:04:05+00:00", out[0]["created_at"])
	assert.Nil(t, out[0]["updated_at"])
	assert.Nil(t, out[1]["created_at"])
}

func TestSearchLeads_Errors(t *testing.T) {
	tests := []struct {
		name string
		body map[string]any
		want string
	}{
		{"missing term", map[string]any{"user_id": 1}, "Missing required fields: 'user_id' and 'search_term' must be provided."},
		{"non numeric user", map[string]any{"user_id": "abc", "search_term": "x"}, MsgInvalidUserID},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newFixture()
			rec := f.do(t, http.MethodPost, "/api/v1/search_leads", tt.body)
			assert.Equal(t, http.StatusBadRequest, rec.Code)
			assert.Equal(t, tt.want, decode(t, rec)["error"])
		})
	}
}

// ---------------------------------------------------------------------------
// Integration endpoints
// ---------------------------------------------------------------------------

func TestInitiateAuth(t *testing.T) {
	f := newFixture()

	rec := f.do(t, http.MethodGet, "/api/v1/auth/google?user_id=42", nil)

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Header().Get("Content-Type"), "text/html")
	assert.Contains(t, rec.Body.String(), "accounts.example.com")
	assert.Contains(t, rec.Body.String(), "Connect with Google Calendar")
}

func TestInitiateAuth_MissingUser(t *testing.T) {
	f := newFixture()

	rec := f.do(t, http.MethodGet, "/api/v1/auth/google", nil)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, oauth.MsgMissingUserID, decode(t, rec)["error"])
}

func TestAuthCallback_NoState(t *testing.T) {
	f := newFixture()

	rec := f.do(t, http.MethodGet, "/api/v1/auth/google/callback?code=abc", nil)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, oauth.MsgNoUserID, decode(t, rec)["error"])
}

func TestGetAvailableTimes(t *testing.T) {
	f := newFixture()
	b := &domain.Bundle{Token: "tok"}
	f.creds.On("Usable", mock.Anything, int64(1), domain.PlatformGoogleCalendar).Return(b, nil)
	f.calendar.On("BusySlots", mock.Anything, b).Return([]domain.BusySlot{}, 0, nil)
	f.calendar.On("TimeZone", mock.Anything, b).Return("UTC", nil)

	rec := f.do(t, http.MethodGet, "/api/v1/get_available_times/1", nil)

	require.Equal(t, http.StatusOK, rec.Code)
	body := decode(t, rec)
	assert.Equal(t, []any{}, body["busy_times"])
	assert.Equal(t, "primary", body["calendar_id"])
}

func TestGetAvailableTimes_Unauthorized(t *testing.T) {
	f := newFixture()
	f.creds.On("Usable", mock.Anything, int64(1), domain.PlatformGoogleCalendar).
		Return(nil, apperrors.Unauthorized("Google Calendar integration not found"))

	rec := f.do(t, http.MethodGet, "/api/v1/get_available_times/1", nil)

	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.Equal(t, "Google Calendar integration not found", decode(t, rec)["error"])
}

func TestGetAvailableTimes_CalendarFailure(t *testing.T) {
	f := newFixture()
	b := &domain.Bundle{Token: "tok"}
	f.creds.On("Usable", mock.Anything, int64(1), domain.PlatformGoogleCalendar).Return(b, nil)
	f.calendar.On("BusySlots", mock.Anything, b).Return([]domain.BusySlot{}, 0, assert.AnError)

	rec := f.do(t, http.MethodGet, "/api/v1/get_available_times/1", nil)

	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	assert.Equal(t, service.MsgCalendarFetchFailed, decode(t, rec)["error"])
}

// ---------------------------------------------------------------------------
// Router
// ---------------------------------------------------------------------------

func TestRouter_RejectsNonJSONBody(t *testing.T) {
	f := newFixture()
	req := httptest.NewRequest(http.MethodPost, "/api/v1/search_leads", strings.NewReader("user_id=1"))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	rec := httptest.NewRecorder()

	f.router.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusUnsupportedMediaType, rec.Code)
}

func TestRouter_MalformedBody(t *testing.T) {
	f := newFixture()
	req := httptest.NewRequest(http.MethodPost, "/api/v1/search_leads", strings.NewReader(`{"user_id":`))
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()

	f.router.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
	body := decode(t, rec)
	errBody, ok := body["error"].(map[string]any)
	require.True(t, ok)
	assert.Equal(t, "INVALID_INPUT", errBody["code"])
	assert.Contains(t, errBody["message"], "invalid request body")
}

func TestRouter_Health(t *testing.T) {
	f := newFixture()

	rec := f.do(t, http.MethodGet, "/health/live", nil)

	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestRouter_CorrelationHeader(t *testing.T) {
	f := newFixture()

	rec := f.do(t, http.MethodGet, "/health/live", nil)

	assert.NotEmpty(t, rec.Header().Get("X-Correlation-ID"))
}

func TestFlexibleID(t *testing.T) {
	tests := []struct {
		in   string
		want flexibleID
		err  bool
	}{
		{`{"id": 12}`, "12", false},
		{`{"id": "12"}`, "12", false},
		{`{"id": null}`, "", false},
		{`{"id": true}`, "", true},
	}
	for _, tt := range tests {
		var v struct {
			ID flexibleID `json:"id"`
		}
		err := json.Unmarshal([]byte(tt.in), &v)
		if tt.err {
			assert.Error(t, err, tt.in)
			continue
		}
		require.NoError(t, err, tt.in)
		assert.Equal(t, tt.want, v.ID, tt.in)
	}
}

func TestRouter_RateLimitsAPIPerClient(t *testing.T) {
	f := newLimitedFixture(RateLimit{RPS: 1, Burst: 1})

	first := f.do(t, http.MethodGet, "/api/v1/get_user_communications/abc", nil)
	assert.Equal(t, http.StatusBadRequest, first.Code)

	second := f.do(t, http.MethodGet, "/api/v1/get_user_communications/abc", nil)
	assert.Equal(t, http.StatusTooManyRequests, second.Code)
	errBody, ok := decode(t, second)["error"].(map[string]any)
	require.True(t, ok)
	assert.Equal(t, "RATE_LIMITED", errBody["code"])

	live := f.do(t, http.MethodGet, "/health/live", nil)
	assert.Equal(t, http.StatusOK, live.Code)
}
