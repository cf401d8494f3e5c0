package domain

import "time"

// PlatformGoogleCalendar is the platform name of the Google integration.
const PlatformGoogleCalendar = "google_calendar"

// Integration status values.
const (
	IntegrationActive   = "active"
	IntegrationInactive = "inactive"
	IntegrationError    = "error"
)

// expiryDelta treats a token as expired slightly before its real expiry so
// it does not lapse in flight.
const expiryDelta = 10 * time.Second

// Bundle is the OAuth token material for one user and platform.
type Bundle struct {
	Token        string
	RefreshToken string
	TokenURI     string
	ClientID     string
	ClientSecret string
	Scopes       []string
	Expiry       *time.Time // UTC; nil when the provider gave none
	Email        string
}

// Expired reports whether the access token must be refreshed before use.
func (b *Bundle) Expired(now time.Time) bool {
	if b.Expiry == nil {
		return false
	}
	return !now.Before(b.Expiry.Add(-expiryDelta))
}

// IntegrationStatus tracks the health of a user's integration.
type IntegrationStatus struct {
	UserID      int64     `json:"user_id"`
	Platform    string    `json:"platform_name"`
	Status      string    `json:"status"`
	LastChecked time.Time `json:"last_checked"`
}
