package service

import (
	"context"
	"log/slog"

	"github.com/adebanjo23/DREW-AI-BACKEND/internal/domain"
	"github.com/adebanjo23/DREW-AI-BACKEND/internal/google"
	apperrors "github.com/adebanjo23/DREW-AI-BACKEND/pkg/errors"
)

const (
	workdayStart = "09:00"
	workdayEnd   = "17:00"
)

// MsgCalendarFetchFailed is reported when the calendar API call fails.
const MsgCalendarFetchFailed = "Failed to fetch calendar events"

// Credentials hands out usable bundles.
type Credentials interface {
	Usable(ctx context.Context, userID int64, platform string) (*domain.Bundle, error)
}

// CalendarReader reads the user's primary calendar.
type CalendarReader interface {
	BusySlots(ctx context.Context, b *domain.Bundle) ([]domain.BusySlot, int, error)
	TimeZone(ctx context.Context, b *domain.Bundle) (string, error)
}

// WorkingHours are the hours the agent takes meetings in.
type WorkingHours struct {
	Start    string `json:"start"`
	End      string `json:"end"`
	Timezone string `json:"timezone"`
}

// Availability lists the busy slots on the user's calendar.
type Availability struct {
	BusyTimes    []domain.BusySlot `json:"busy_times"`
	WorkingHours WorkingHours      `json:"working_hours"`
	CalendarID   string            `json:"calendar_id"`
	Timezone     string            `json:"timezone"`
	TotalEvents  int               `json:"total_events"`
}

// CalendarService reads calendar availability.
type CalendarService struct {
	credentials Credentials
	calendar    CalendarReader
	logger      *slog.Logger
}

// NewCalendarService creates a new calendar service.
func NewCalendarService(credentials Credentials, calendar CalendarReader, logger *slog.Logger) *CalendarService {
	return &CalendarService{
		credentials: credentials,
		calendar:    calendar,
		logger:      logger,
	}
}

// AvailableTimes returns every event on the user's primary calendar as busy
// slots. Missing or unrefreshable credentials are reported as Unauthorized.
func (s *CalendarService) AvailableTimes(ctx context.Context, userID int64) (*Availability, error) {
	b, err := s.credentials.Usable(ctx, userID, domain.PlatformGoogleCalendar)
	if err != nil {
		return nil, err
	}

	slots, total, err := s.calendar.BusySlots(ctx, b)
	if err != nil {
		return nil, calendarError(err)
	}

	tz, err := s.calendar.TimeZone(ctx, b)
	if err != nil {
		return nil, calendarError(err)
	}

	s.logger.InfoContext(ctx, "calendar availability loaded",
		slog.Int64("user_id", userID),
		slog.Int("events", total),
	)

	return &Availability{
		BusyTimes:    slots,
		WorkingHours: WorkingHours{Start: workdayStart, End: workdayEnd, Timezone: tz},
		CalendarID:   google.PrimaryCalendar,
		Timezone:     tz,
		TotalEvents:  total,
	}, nil
}

func calendarError(err error) error {
	appErr := apperrors.ExternalService("google calendar", err)
	appErr.Message = MsgCalendarFetchFailed
	return appErr
}
