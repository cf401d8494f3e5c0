// Package dispatch delivers notifications to leads: invitation and message
// emails through the user's Gmail mailbox, SMS and outbound calls through
// the messaging platform webhooks.
package dispatch

import (
	"bytes"
	"context"
	"fmt"
	"log/slog"
	"mime"
	"mime/multipart"
	"mime/quotedprintable"
	"net/textproto"

	"github.com/adebanjo23/DREW-AI-BACKEND/internal/domain"
)

// DefaultSender is the From address used when the integration has no email.
const DefaultSender = "noreply@example.com"

// RawSender submits an RFC 5322 message on behalf of the bundle's account.
type RawSender interface {
	SendRaw(ctx context.Context, b *domain.Bundle, raw []byte) error
}

// Mailer sends calendar invitation emails.
type Mailer struct {
	sender RawSender
	logger *slog.Logger
}

// NewMailer creates a Mailer.
func NewMailer(sender RawSender, logger *slog.Logger) *Mailer {
	return &Mailer{sender: sender, logger: logger}
}

// SendEmail builds the invitation for ev and sends it from senderEmail to
// recipientEmail. Failures are logged and reported as false.
func (m *Mailer) SendEmail(ctx context.Context, b *domain.Bundle, senderEmail, recipientEmail string, ev domain.EventDetails) bool {
	raw, err := BuildInvitation(senderEmail, recipientEmail, ev)
	if err != nil {
		m.logger.ErrorContext(ctx, "failed to build email",
			slog.String("recipient", recipientEmail),
			slog.String("error", err.Error()),
		)
		return false
	}

	if b == nil {
		m.logger.ErrorContext(ctx, "failed to send email",
			slog.String("recipient", recipientEmail),
			slog.String("error", "no google credentials"),
		)
		return false
	}

	if err := m.sender.SendRaw(ctx, b, raw); err != nil {
		m.logger.ErrorContext(ctx, "failed to send email",
			slog.String("recipient", recipientEmail),
			slog.String("error", err.Error()),
		)
		return false
	}

	m.logger.InfoContext(ctx, "email sent",
		slog.String("recipient", recipientEmail),
		slog.String("summary", ev.Summary),
	)
	return true
}

// BuildInvitation renders ev as a multipart/alternative message with the
// plain text part before the HTML part.
func BuildInvitation(from, to string, ev domain.EventDetails) ([]byte, error) {
	var body bytes.Buffer
	mw := multipart.NewWriter(&body)

	if err := writePart(mw, "text/plain", invitationText(ev)); err != nil {
		return nil, err
	}
	if err := writePart(mw, "text/html", invitationHTML(ev)); err != nil {
		return nil, err
	}
	if err := mw.Close(); err != nil {
		return nil, fmt.Errorf("close multipart: %w", err)
	}

	var msg bytes.Buffer
	fmt.Fprintf(&msg, "From: %s\r\n", from)
	fmt.Fprintf(&msg, "To: %s\r\n", to)
	fmt.Fprintf(&msg, "Subject: %s\r\n", mime.QEncoding.Encode("utf-8", "Calendar Invitation: "+ev.Summary))
	msg.WriteString("MIME-Version: 1.0\r\n")
	fmt.Fprintf(&msg, "Content-Type: multipart/alternative; boundary=%q\r\n\r\n", mw.Boundary())
	msg.Write(body.Bytes())
	return msg.Bytes(), nil
}

func writePart(mw *multipart.Writer, contentType, content string) error {
	h := textproto.MIMEHeader{}
	h.Set("Content-Type", contentType+`; charset="utf-8"`)
	h.Set("Content-Transfer-Encoding", "quoted-printable")

	pw, err := mw.CreatePart(h)
	if err != nil {
		return fmt.Errorf("create %s part: %w", contentType, err)
	}
	qp := quotedprintable.NewWriter(pw)
	if _, err := qp.Write([]byte(content)); err != nil {
		return fmt.Errorf("write %s part: %w", contentType, err)
	}
	return qp.Close()
}

func invitationText(ev domain.EventDetails) string {
	details := ev.Description
	if details == "" {
		details = "No additional details provided."
	}
	link := ev.HTMLLink
	if link == "" {
		link = "N/A"
	}
	return fmt.Sprintf("Calendar Invitation: %s\n\nDetails:\n%s\n\nMeeting Link: %s\n\nThis is an automated message. Please do not reply.",
		ev.Summary, details, link)
}

// invitationHTML wraps the drafted description, which is already HTML.
func invitationHTML(ev domain.EventDetails) string {
	return "<!DOCTYPE html><html><head><meta charset='UTF-8'></head>" +
		"<body style='font-family: Arial, sans-serif;'>" + ev.Description + "</body></html>"
}
