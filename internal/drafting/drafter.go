// Package drafting produces SMS, email and invitation copy with a language model.
package drafting

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"
	"unicode"
	"unicode/utf8"

	"github.com/adebanjo23/DREW-AI-BACKEND/internal/domain"
)

const (
	smsSystemPrompt        = "You are a professional assistant that drafts concise and creative SMS messages."
	emailSystemPrompt      = "You are a professional email assistant that drafts creative, HTML-formatted email messages."
	invitationSystemPrompt = "You are a professional email assistant who drafts HTML-formatted email invitations."

	noPlaceholders = "Do not include any placeholder text such as [brokerage_name] or invent additional contact details."
)

// Invitation is a drafted meeting invitation.
type Invitation struct {
	Subject string
	HTML    string
}

// Drafter turns short instructions into outbound copy.
type Drafter struct {
	completer Completer
}

// NewDrafter creates a drafter around completer.
func NewDrafter(completer Completer) *Drafter {
	return &Drafter{completer: completer}
}

// DraftSMS writes a short text to recipient that mentions the sender's
// brokerage and is signed with the sender's first name.
func (d *Drafter) DraftSMS(ctx context.Context, sender domain.User, recipient domain.Lead, content string) (string, error) {
	prompt := fmt.Sprintf(
		"Generate a concise SMS message addressed to %s. "+
			"Include a friendly greeting and incorporate the following content: %s. "+
			"Mention the sender's brokerage, %s, appropriately. "+
			"Sign off the message using the sender's first name: %s. "+noPlaceholders,
		domain.FirstName(recipient.Name), content, sender.BrokerageName, domain.FirstName(sender.Name),
	)

	text, err := d.completer.Complete(ctx, smsSystemPrompt, prompt)
	if err != nil {
		return "", fmt.Errorf("draft sms: %w", err)
	}
	return strings.TrimSpace(text), nil
}

// DraftEmailMessage writes an HTML email body to recipient.
func (d *Drafter) DraftEmailMessage(ctx context.Context, sender domain.User, recipient domain.Lead, content string) (string, error) {
	prompt := fmt.Sprintf(
		"Generate an HTML-formatted email message that begins with a greeting like: "+
			"'Hello, this is <b>%s</b> from <b>%s</b>.' "+
			"Address the email to %s and incorporate the following content: %s. "+
			"Ensure no placeholder text (such as [brokerage_name]) is used and do not invent additional contact details.",
		sender.Name, sender.BrokerageName, recipient.Name, content,
	)

	text, err := d.completer.Complete(ctx, emailSystemPrompt, prompt)
	if err != nil {
		return "", fmt.Errorf("draft email: %w", err)
	}
	return Clean(text), nil
}

// DraftInvitation writes an HTML invitation for a meeting at meetingTime.
// An empty meetingType is treated as a follow-up.
func (d *Drafter) DraftInvitation(ctx context.Context, sender domain.User, meetingType string, meetingTime time.Time, details domain.MeetingDetails, extra string) (*Invitation, error) {
	if meetingType == "" {
		meetingType = domain.DefaultMeetingType
	}

	detailsJSON, err := json.Marshal(details)
	if err != nil {
		return nil, fmt.Errorf("marshal meeting details: %w", err)
	}

	prompt := fmt.Sprintf(
		"Draft a professional HTML-formatted email invitation for a %s meeting with the following details: %s. "+
			"Begin with a greeting like: 'Hello, this is <b>%s</b> from <b>%s</b>.' "+
			"Then mention that we are scheduling a %s meeting at %s. "+
			"Incorporate the following additional details: %s. "+
			"Ensure key details are emphasized using <b> tags, and do not include any placeholder text such as [brokerage_name].",
		meetingType, detailsJSON, sender.Name, sender.BrokerageName,
		meetingType, domain.FormatInvitationTime(meetingTime), extra,
	)

	text, err := d.completer.Complete(ctx, invitationSystemPrompt, prompt)
	if err != nil {
		return nil, fmt.Errorf("draft invitation: %w", err)
	}

	return &Invitation{
		Subject: capitalize(meetingType) + " Meeting Invitation",
		HTML:    Clean(text),
	}, nil
}

// Clean strips surrounding markdown fences and leading "html" language lines
// from model output, repeating until nothing more comes off.
func Clean(text string) string {
	text = strings.TrimSpace(text)
	for {
		next := cleanOnce(text)
		if next == text {
			return text
		}
		text = next
	}
}

func cleanOnce(text string) string {
	if strings.HasPrefix(text, "```") && strings.HasSuffix(text, "```") {
		if len(text) < 6 {
			return ""
		}
		text = strings.TrimSpace(text[3 : len(text)-3])
	}

	if first, rest, found := strings.Cut(text, "\n"); strings.ToLower(strings.TrimSpace(first)) == "html" {
		if !found {
			rest = ""
		}
		text = strings.TrimSpace(rest)
	}
	return text
}

// capitalize upper-cases the first letter and lower-cases the rest.
func capitalize(s string) string {
	r, size := utf8.DecodeRuneInString(s)
	if r == utf8.RuneError {
		return s
	}
	return string(unicode.ToUpper(r)) + strings.ToLower(s[size:])
}
