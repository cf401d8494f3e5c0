package google

import (
	"context"
	"fmt"
	"sort"
	"time"

	"github.com/google/uuid"
	"google.golang.org/api/calendar/v3"

	"github.com/adebanjo23/DREW-AI-BACKEND/internal/domain"
)

const (
	eventsPageSize  = 2500
	defaultTimeZone = "UTC"
	defaultSummary  = "Busy"
)

// Meeting describes a video meeting to put on the primary calendar.
type Meeting struct {
	Summary     string
	Description string
	Start       time.Time
	End         time.Time
}

// CreatedEvent is the part of an inserted event the workflows use.
type CreatedEvent struct {
	ID          string
	HangoutLink string
	HTMLLink    string
}

// CreateMeeting inserts an event with a Google Meet conference attached.
func (c *Client) CreateMeeting(ctx context.Context, b *domain.Bundle, m Meeting) (*CreatedEvent, error) {
	svc, err := calendar.NewService(ctx, c.bundleOptions(b)...)
	if err != nil {
		return nil, fmt.Errorf("create calendar service: %w", err)
	}

	ev, err := svc.Events.Insert(PrimaryCalendar, meetingEvent(m, uuid.NewString())).
		ConferenceDataVersion(1).
		Context(ctx).
		Do()
	if err != nil {
		return nil, fmt.Errorf("insert calendar event: %w", err)
	}

	return &CreatedEvent{ID: ev.Id, HangoutLink: ev.HangoutLink, HTMLLink: ev.HtmlLink}, nil
}

func meetingEvent(m Meeting, requestID string) *calendar.Event {
	return &calendar.Event{
		Summary:     m.Summary,
		Description: m.Description,
		Start: &calendar.EventDateTime{
			DateTime: m.Start.UTC().Format(time.RFC3339),
			TimeZone: defaultTimeZone,
		},
		End: &calendar.EventDateTime{
			DateTime: m.End.UTC().Format(time.RFC3339),
			TimeZone: defaultTimeZone,
		},
		ConferenceData: &calendar.ConferenceData{
			CreateRequest: &calendar.CreateConferenceRequest{
				RequestId:             requestID,
				ConferenceSolutionKey: &calendar.ConferenceSolutionKey{Type: "hangoutsMeet"},
			},
		},
	}
}

// BusySlots lists every event on the primary calendar, following pagination,
// and returns the occupied slots sorted by start along with the raw event
// count.
func (c *Client) BusySlots(ctx context.Context, b *domain.Bundle) ([]domain.BusySlot, int, error) {
	svc, err := calendar.NewService(ctx, c.bundleOptions(b)...)
	if err != nil {
		return nil, 0, fmt.Errorf("create calendar service: %w", err)
	}

	var events []*calendar.Event
	err = svc.Events.List(PrimaryCalendar).
		SingleEvents(true).
		OrderBy("startTime").
		MaxResults(eventsPageSize).
		Pages(ctx, func(page *calendar.Events) error {
			events = append(events, page.Items...)
			return nil
		})
	if err != nil {
		return nil, 0, fmt.Errorf("list calendar events: %w", err)
	}

	return busySlots(events), len(events), nil
}

// TimeZone returns the primary calendar's time zone, UTC when unset.
func (c *Client) TimeZone(ctx context.Context, b *domain.Bundle) (string, error) {
	svc, err := calendar.NewService(ctx, c.bundleOptions(b)...)
	if err != nil {
		return "", fmt.Errorf("create calendar service: %w", err)
	}

	cal, err := svc.Calendars.Get(PrimaryCalendar).Context(ctx).Do()
	if err != nil {
		return "", fmt.Errorf("get calendar: %w", err)
	}
	if cal.TimeZone == "" {
		return defaultTimeZone, nil
	}
	return cal.TimeZone, nil
}

// busySlots converts events to slots. Events without a start or end are
// skipped.
func busySlots(events []*calendar.Event) []domain.BusySlot {
	slots := make([]domain.BusySlot, 0, len(events))
	for _, ev := range events {
		start, end := eventTime(ev.Start), eventTime(ev.End)
		if start == "" || end == "" {
			continue
		}

		slot := domain.BusySlot{
			Start:          start,
			End:            end,
			Summary:        ev.Summary,
			ID:             ev.Id,
			Status:         ev.Status,
			Created:        ev.Created,
			Updated:        ev.Updated,
			AttendeesCount: len(ev.Attendees),
			Description:    ev.Description,
		}
		if slot.Summary == "" {
			slot.Summary = defaultSummary
		}
		if ev.Organizer != nil {
			slot.Organizer = ev.Organizer.Email
		}
		slots = append(slots, slot)
	}

	sort.SliceStable(slots, func(i, j int) bool { return slots[i].Start < slots[j].Start })
	return slots
}

func eventTime(t *calendar.EventDateTime) string {
	if t == nil {
		return ""
	}
	if t.DateTime != "" {
		return t.DateTime
	}
	return t.Date
}
