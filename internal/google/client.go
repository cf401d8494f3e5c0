// Package google wraps the Google Calendar, Gmail and userinfo APIs behind
// calls that take a stored credential bundle.
package google

import (
	"golang.org/x/oauth2"
	"google.golang.org/api/option"

	"github.com/adebanjo23/DREW-AI-BACKEND/internal/credential"
	"github.com/adebanjo23/DREW-AI-BACKEND/internal/domain"
)

// PrimaryCalendar is the calendar every call operates on.
const PrimaryCalendar = "primary"

// Client builds per-call API services authenticated with an access token.
// Extra options are appended to every service; tests use them to point the
// client at a local server.
type Client struct {
	opts []option.ClientOption
}

// NewClient creates a Google API client.
func NewClient(opts ...option.ClientOption) *Client {
	return &Client{opts: opts}
}

func (c *Client) options(tok *oauth2.Token) []option.ClientOption {
	out := make([]option.ClientOption, 0, len(c.opts)+1)
	out = append(out, option.WithTokenSource(oauth2.StaticTokenSource(tok)))
	return append(out, c.opts...)
}

func (c *Client) bundleOptions(b *domain.Bundle) []option.ClientOption {
	return c.options(credential.OAuthToken(b))
}
