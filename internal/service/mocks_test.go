package service

import (
	"context"
	"log/slog"
	"os"
	"time"

	"github.com/stretchr/testify/mock"

	"github.com/adebanjo23/DREW-AI-BACKEND/internal/domain"
	"github.com/adebanjo23/DREW-AI-BACKEND/internal/repository"
	"github.com/adebanjo23/DREW-AI-BACKEND/internal/workflow"
)

// --- Mock Repositories ---

type mockUserRepository struct {
	mock.Mock
}

func (m *mockUserRepository) GetByID(ctx context.Context, id int64) (*domain.User, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.User), args.Error(1)
}

type mockLeadRepository struct {
	mock.Mock
}

func (m *mockLeadRepository) GetByID(ctx context.Context, id int64) (*domain.Lead, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Lead), args.Error(1)
}

func (m *mockLeadRepository) SearchByName(ctx context.Context, userID int64, term string) ([]domain.Lead, error) {
	args := m.Called(ctx, userID, term)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]domain.Lead), args.Error(1)
}

type mockCommunicationRepository struct {
	mock.Mock
}

func (m *mockCommunicationRepository) Create(ctx context.Context, c *domain.Communication) error {
	args := m.Called(ctx, c)
	return args.Error(0)
}

func (m *mockCommunicationRepository) CreateWithCall(ctx context.Context, c *domain.Communication, call *domain.Call) error {
	args := m.Called(ctx, c, call)
	return args.Error(0)
}

func (m *mockCommunicationRepository) CreateWithAppointment(ctx context.Context, c *domain.Communication, a *domain.Appointment) error {
	args := m.Called(ctx, c, a)
	return args.Error(0)
}

func (m *mockCommunicationRepository) HasDrewLeadCommunication(ctx context.Context, leadID int64) (bool, error) {
	args := m.Called(ctx, leadID)
	return args.Bool(0), args.Error(1)
}

func (m *mockCommunicationRepository) ListByLead(ctx context.Context, leadID int64) ([]domain.Communication, error) {
	args := m.Called(ctx, leadID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]domain.Communication), args.Error(1)
}

type mockSummaryRepository struct {
	mock.Mock
}

func (m *mockSummaryRepository) CallStats(ctx context.Context, userID int64, r repository.DateRange) (domain.CallStats, error) {
	args := m.Called(ctx, userID, r)
	return args.Get(0).(domain.CallStats), args.Error(1)
}

func (m *mockSummaryRepository) LeadStatusCounts(ctx context.Context, userID int64, r repository.DateRange, statuses []string) (int, map[string]int, error) {
	args := m.Called(ctx, userID, r, statuses)
	if args.Get(1) == nil {
		return args.Int(0), nil, args.Error(2)
	}
	return args.Int(0), args.Get(1).(map[string]int), args.Error(2)
}

func (m *mockSummaryRepository) LeadInteractions(ctx context.Context, userID int64, r repository.DateRange) ([]domain.LeadInteraction, error) {
	args := m.Called(ctx, userID, r)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]domain.LeadInteraction), args.Error(1)
}

func (m *mockSummaryRepository) RecentAppointments(ctx context.Context, userID int64, r repository.DateRange, limit int) ([]domain.Appointment, error) {
	args := m.Called(ctx, userID, r, limit)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]domain.Appointment), args.Error(1)
}

func (m *mockSummaryRepository) CountLeadsCreatedSince(ctx context.Context, userID int64, r repository.DateRange, since time.Time) (int, error) {
	args := m.Called(ctx, userID, r, since)
	return args.Int(0), args.Error(1)
}

func (m *mockSummaryRepository) CountLeadsNeedingFollowUp(ctx context.Context, userID int64, r repository.DateRange, olderThan time.Time) (int, error) {
	args := m.Called(ctx, userID, r, olderThan)
	return args.Int(0), args.Error(1)
}

func (m *mockSummaryRepository) CountUpcomingAppointments(ctx context.Context, userID int64, r repository.DateRange, now time.Time) (int, error) {
	args := m.Called(ctx, userID, r, now)
	return args.Int(0), args.Error(1)
}

// --- Mock Collaborators ---

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

type mockCalendarReader struct {
	mock.Mock
}

func (m *mockCalendarReader) BusySlots(ctx context.Context, b *domain.Bundle) ([]domain.BusySlot, int, error) {
	args := m.Called(ctx, b)
	if args.Get(0) == nil {
		return nil, args.Int(1), args.Error(2)
	}
	return args.Get(0).([]domain.BusySlot), args.Int(1), args.Error(2)
}

func (m *mockCalendarReader) TimeZone(ctx context.Context, b *domain.Bundle) (string, error) {
	args := m.Called(ctx, b)
	return args.String(0), args.Error(1)
}

type mockSubmitter struct {
	mock.Mock
}

func (m *mockSubmitter) Submit(ctx context.Context, task workflow.Task) error {
	args := m.Called(ctx, task)
	return args.Error(0)
}

// --- Test Helpers ---

func newTestLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelError}))
}

func int64Ptr(v int64) *int64 { return &v }

func strPtr(v string) *string { return &v }

func timePtr(v time.Time) *time.Time { return &v }
