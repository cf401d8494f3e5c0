package google

import (
	"context"
	"encoding/base64"
	"fmt"

	"google.golang.org/api/gmail/v1"

	"github.com/adebanjo23/DREW-AI-BACKEND/internal/domain"
)

// SendRaw submits an RFC 5322 message through the authenticated user's
// mailbox.
func (c *Client) SendRaw(ctx context.Context, b *domain.Bundle, raw []byte) error {
	svc, err := gmail.NewService(ctx, c.bundleOptions(b)...)
	if err != nil {
		return fmt.Errorf("create gmail service: %w", err)
	}

	msg := &gmail.Message{Raw: base64.URLEncoding.EncodeToString(raw)}
	if _, err := svc.Users.Messages.Send("me", msg).Context(ctx).Do(); err != nil {
		return fmt.Errorf("send gmail message: %w", err)
	}
	return nil
}
