package service

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/adebanjo23/DREW-AI-BACKEND/internal/domain"
	apperrors "github.com/adebanjo23/DREW-AI-BACKEND/pkg/errors"
)

func TestAvailableTimes_Success(t *testing.T) {
	creds := new(mockCredentials)
	cal := new(mockCalendarReader)
	svc := NewCalendarService(creds, cal, newTestLogger())
	ctx := context.Background()
	b := &domain.Bundle{Token: "tok"}

	slots := []domain.BusySlot{{Start: "2024-01-15T09:00:00Z", End: "2024-01-15T10:00:00Z", Summary: "Standup"}}
	creds.On("Usable", ctx, int64(1), domain.PlatformGoogleCalendar).Return(b, nil)
	cal.On("BusySlots", ctx, b).Return(slots, 1, nil)
	cal.On("TimeZone", ctx, b).Return("America/New_York", nil)

	got, err := svc.AvailableTimes(ctx, 1)
	require.NoError(t, err)
	assert.Equal(t, slots, got.BusyTimes)
	assert.Equal(t, "primary", got.CalendarID)
	assert.Equal(t, "America/New_York", got.Timezone)
	assert.Equal(t, WorkingHours{Start: "09:00", End: "17:00", Timezone: "America/New_York"}, got.WorkingHours)
	assert.Equal(t, 1, got.TotalEvents)
}

func TestAvailableTimes_Unauthorized(t *testing.T) {
	creds := new(mockCredentials)
	cal := new(mockCalendarReader)
	svc := NewCalendarService(creds, cal, newTestLogger())

	creds.On("Usable", mock.Anything, int64(1), domain.PlatformGoogleCalendar).
		Return(nil, apperrors.Unauthorized("Google Calendar integration not found"))

	_, err := svc.AvailableTimes(context.Background(), 1)
	assert.Equal(t, 401, apperrors.HTTPStatus(err))
	cal.AssertNotCalled(t, "BusySlots", mock.Anything, mock.Anything)
}

func TestAvailableTimes_CalendarFailure(t *testing.T) {
	creds := new(mockCredentials)
	cal := new(mockCalendarReader)
	svc := NewCalendarService(creds, cal, newTestLogger())
	b := &domain.Bundle{Token: "tok"}

	creds.On("Usable", mock.Anything, int64(1), domain.PlatformGoogleCalendar).Return(b, nil)
	cal.On("BusySlots", mock.Anything, b).Return(nil, 0, errors.New("503"))

	_, err := svc.AvailableTimes(context.Background(), 1)
	assert.ErrorIs(t, err, apperrors.ErrExternalService)
	assert.Equal(t, 500, apperrors.HTTPStatus(err))
}
