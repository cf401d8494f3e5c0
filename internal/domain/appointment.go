package domain

import "time"

// Meeting platforms.
const (
	PlatformVideo    = "Google Meet"
	PlatformInPerson = "In-person"
)

// AppointmentStatusScheduled is the status of a newly booked appointment.
const AppointmentStatusScheduled = "scheduled"

// DefaultMeetingDuration is the length of every booked meeting.
const DefaultMeetingDuration = time.Hour

// DefaultMeetingType is used when a booking does not name one.
const DefaultMeetingType = "follow-up"

// Appointment is a scheduled meeting with a snapshot of its participants.
type Appointment struct {
	ID           int64        `json:"id"`
	UserID       int64        `json:"user_id"`
	Time         time.Time    `json:"appointment_time"`
	Status       string       `json:"status"`
	Participants Participants `json:"participant_details"`
	CreatedAt    time.Time    `json:"created_at"`
}

// Participants is the participant snapshot stored with an appointment.
type Participants struct {
	Lead ParticipantLead `json:"lead"`
}

// ParticipantLead is the lead side of the snapshot. Duration is in seconds.
type ParticipantLead struct {
	ID             int64          `json:"id"`
	Name           string         `json:"name"`
	MeetingDetails MeetingDetails `json:"meeting_details"`
	Duration       int            `json:"duration"`
}

// MeetingLink returns the stored join link, or "" before the calendar call
// has completed.
func (a *Appointment) MeetingLink() string {
	if l := a.Participants.Lead.MeetingDetails.MeetingLink; l != nil {
		return *l
	}
	return ""
}
