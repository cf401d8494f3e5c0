package domain

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseTime(t *testing.T) {
	tests := []struct {
		name  string
		input string
		want  time.Time
	}{
		{"zulu", "2024-01-15T14:00:00Z", time.Date(2024, 1, 15, 14, 0, 0, 0, time.UTC)},
		{"offset", "2024-01-15T09:00:00-05:00", time.Date(2024, 1, 15, 14, 0, 0, 0, time.UTC)},
		{"naive", "2024-01-15T14:00:00", time.Date(2024, 1, 15, 14, 0, 0, 0, time.UTC)},
		{"naive minutes", "2024-01-15T14:00", time.Date(2024, 1, 15, 14, 0, 0, 0, time.UTC)},
		{"fractional", "2024-01-15T14:00:00.250Z", time.Date(2024, 1, 15, 14, 0, 0, 250_000_000, time.UTC)},
		{"date only", "2024-01-15", time.Date(2024, 1, 15, 0, 0, 0, 0, time.UTC)},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ParseTime(tt.input)
			require.NoError(t, err)
			assert.True(t, tt.want.Equal(got), "got %s", got)
		})
	}
}

func TestParseTime_Invalid(t *testing.T) {
	_, err := ParseTime("next tuesday")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "invalid isoformat string")
}

func TestFormatISO(t *testing.T) {
	utc := time.Date(2024, 1, 15, 14, 0, 0, 0, time.UTC)
	assert.Equal(t, "2024-01-15T14:00:00+00:00", FormatISO(utc))
	assert.Equal(t, "2024-01-15T15:00:00+00:00", FormatISO(utc.Add(DefaultMeetingDuration)))

	est := time.Date(2024, 1, 15, 9, 0, 0, 0, time.FixedZone("", -5*3600))
	assert.Equal(t, "2024-01-15T09:00:00-05:00", FormatISO(est))

	micro := time.Date(2024, 1, 15, 14, 0, 0, 1500, time.UTC)
	assert.Equal(t, "2024-01-15T14:00:00.000001+00:00", FormatISO(micro))
}

func TestHumanFormats(t *testing.T) {
	ts := time.Date(2024, 3, 5, 9, 7, 0, 0, time.UTC)
	assert.Equal(t, "March 05, 2024 at 09:07 AM", FormatHuman(ts))
	assert.Equal(t, "09:07 AM on March 05, 2024", FormatInvitationTime(ts))
}

func TestBundle_Expired(t *testing.T) {
	now := time.Date(2024, 1, 15, 12, 0, 0, 0, time.UTC)
	at := func(d time.Duration) *time.Time {
		v := now.Add(d)
		return &v
	}

	assert.False(t, (&Bundle{}).Expired(now), "no expiry never expires")
	assert.False(t, (&Bundle{Expiry: at(time.Hour)}).Expired(now))
	assert.True(t, (&Bundle{Expiry: at(-time.Minute)}).Expired(now))
	assert.True(t, (&Bundle{Expiry: at(5 * time.Second)}).Expired(now), "inside the expiry delta")
	assert.True(t, (&Bundle{Expiry: at(10 * time.Second)}).Expired(now))
	assert.False(t, (&Bundle{Expiry: at(11 * time.Second)}).Expired(now))
}

func TestChannelFor(t *testing.T) {
	lead := int64(4)

	ch, ok := ChannelFor(&lead, "agent_drew")
	assert.True(t, ok)
	assert.Equal(t, ChannelDrewLead, ch)

	ch, ok = ChannelFor(&lead, "")
	assert.True(t, ok)
	assert.Equal(t, ChannelUserLead, ch)

	ch, ok = ChannelFor(nil, "agent_drew")
	assert.True(t, ok)
	assert.Equal(t, ChannelUserDrew, ch)

	_, ok = ChannelFor(nil, "")
	assert.False(t, ok)
}

func TestDetailsMap(t *testing.T) {
	link := "https://meet.google.com/abc-defg-hij"
	m, err := DetailsMap(MeetingDetails{Notes: "Tour", Platform: PlatformVideo, MeetingLink: &link})
	require.NoError(t, err)

	assert.Equal(t, map[string]any{
		"notes":        "Tour",
		"platform":     "Google Meet",
		"meeting_link": link,
		"location":     nil,
	}, m)
}

func TestCommunication_StringDetail(t *testing.T) {
	c := Communication{Details: map[string]any{"notes": "Called back", "duration": 30.0}}
	assert.Equal(t, "Called back", c.StringDetail("notes", "none"))
	assert.Equal(t, "none", c.StringDetail("duration", "none"))
	assert.Equal(t, "none", c.StringDetail("missing", "none"))
}

func TestNormalizeMessageType(t *testing.T) {
	for _, in := range []string{"sms", "SMS", "Email", "email"} {
		_, ok := NormalizeMessageType(in)
		assert.True(t, ok, in)
	}
	up, ok := NormalizeMessageType("fax")
	assert.False(t, ok)
	assert.Equal(t, "FAX", up)
}

func TestFirstName(t *testing.T) {
	assert.Equal(t, "Jane", FirstName("Jane Smith"))
	assert.Equal(t, "Jane", FirstName("  Jane  "))
	assert.Equal(t, "", FirstName(""))
}

func TestAmbiguousMatchError(t *testing.T) {
	err := &AmbiguousMatchError{Term: "smith", Matches: []Lead{{ID: 1}, {ID: 2}}}
	assert.Equal(t, `2 leads match "smith"`, err.Error())
}

func TestAppointment_MeetingLink(t *testing.T) {
	a := &Appointment{}
	assert.Equal(t, "", a.MeetingLink())

	link := "https://meet.google.com/x"
	a.Participants.Lead.MeetingDetails.MeetingLink = &link
	assert.Equal(t, link, a.MeetingLink())
}

func TestGeneratedCallID(t *testing.T) {
	assert.Equal(t, "call_1705327200", GeneratedCallID(time.Date(2024, 1, 15, 14, 0, 0, 0, time.UTC)))
}
