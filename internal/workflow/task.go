package workflow

import (
	"time"

	"github.com/adebanjo23/DREW-AI-BACKEND/internal/domain"
)

// Task names, used as log fields and metric labels.
const (
	TaskBooking = "booking"
	TaskCall    = "call"
	TaskMessage = "message"
)

const (
	defaultMeetingNotes = "Scheduled meeting"
	defaultCallNotes    = "Call initiated"
)

// Task is a value payload describing one unit of background work. Tasks
// carry everything the workflow needs; they never reference request state.
type Task interface {
	Kind() string
	Owner() int64
}

// BookingTask books a meeting with a lead.
type BookingTask struct {
	UserID      int64
	Lead        domain.Lead
	Start       time.Time
	MeetingType string
	Description string
	Location    string
}

func (t BookingTask) Kind() string { return TaskBooking }
func (t BookingTask) Owner() int64 { return t.UserID }

// End is the end of the meeting; every meeting lasts DefaultMeetingDuration.
func (t BookingTask) End() time.Time {
	return t.Start.Add(domain.DefaultMeetingDuration)
}

// InPerson reports whether a location was given. Meetings without one are
// held over video.
func (t BookingTask) InPerson() bool {
	return t.Location != ""
}

// Notes is the description, or a generic note when none was given.
func (t BookingTask) Notes() string {
	if t.Description == "" {
		return defaultMeetingNotes
	}
	return t.Description
}

// MeetingDetails is the detail record written with the booking. The
// meeting link is left empty until the calendar event exists.
func (t BookingTask) MeetingDetails() domain.MeetingDetails {
	d := domain.MeetingDetails{Notes: t.Notes(), Platform: domain.PlatformVideo}
	if t.InPerson() {
		loc := t.Location
		d.Platform = domain.PlatformInPerson
		d.Location = &loc
	}
	return d
}

// CallTask starts an outbound voice agent call to a lead.
type CallTask struct {
	UserID           int64
	Lead             domain.Lead
	CallTime         time.Time
	DiscussionPoints string
}

func (t CallTask) Kind() string { return TaskCall }
func (t CallTask) Owner() int64 { return t.UserID }

// Notes is the discussion points, or a generic note when none were given.
func (t CallTask) Notes() string {
	if t.DiscussionPoints == "" {
		return defaultCallNotes
	}
	return t.DiscussionPoints
}

// MessageTask sends an SMS or email to a lead. Type is already normalized
// to MessageTypeSMS or MessageTypeEmail.
type MessageTask struct {
	UserID  int64
	Lead    domain.Lead
	Type    string
	Content string
}

func (t MessageTask) Kind() string { return TaskMessage }
func (t MessageTask) Owner() int64 { return t.UserID }
