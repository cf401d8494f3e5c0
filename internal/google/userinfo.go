package google

import (
	"context"
	"fmt"

	"golang.org/x/oauth2"
	oauth2api "google.golang.org/api/oauth2/v2"
)

// Email returns the address of the account that granted tok.
func (c *Client) Email(ctx context.Context, tok *oauth2.Token) (string, error) {
	svc, err := oauth2api.NewService(ctx, c.options(tok)...)
	if err != nil {
		return "", fmt.Errorf("create userinfo service: %w", err)
	}

	info, err := svc.Userinfo.Get().Context(ctx).Do()
	if err != nil {
		return "", fmt.Errorf("get userinfo: %w", err)
	}
	return info.Email, nil
}
