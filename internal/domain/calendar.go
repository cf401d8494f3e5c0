package domain

// BusySlot is one occupied interval on a calendar. Start and End are passed
// through as the calendar returned them (date-time or all-day date).
type BusySlot struct {
	Start          string `json:"start"`
	End            string `json:"end"`
	Summary        string `json:"summary"`
	ID             string `json:"id"`
	Status         string `json:"status"`
	Organizer      string `json:"organizer,omitempty"`
	Created        string `json:"created"`
	Updated        string `json:"updated"`
	AttendeesCount int    `json:"attendees_count"`
	Description    string `json:"description"`
}

// EventDetails is what an email notification is built from.
type EventDetails struct {
	Summary     string
	StartTime   string
	EndTime     string
	Description string
	Location    string
	HTMLLink    string
}
