package credential

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"golang.org/x/oauth2"

	"github.com/adebanjo23/DREW-AI-BACKEND/internal/domain"
)

// OAuthRefresher refreshes bundles against the token endpoint recorded in
// the bundle itself.
type OAuthRefresher struct {
	client *http.Client
}

// NewOAuthRefresher creates a refresher. A nil client uses http.DefaultClient.
func NewOAuthRefresher(client *http.Client) *OAuthRefresher {
	return &OAuthRefresher{client: client}
}

// Refresh performs a refresh_token grant and returns a new bundle. The
// refresh token is kept when the endpoint does not rotate it.
func (r *OAuthRefresher) Refresh(ctx context.Context, b *domain.Bundle) (*domain.Bundle, error) {
	if r.client != nil {
		ctx = context.WithValue(ctx, oauth2.HTTPClient, r.client)
	}

	cfg := &oauth2.Config{
		ClientID:     b.ClientID,
		ClientSecret: b.ClientSecret,
		Endpoint:     oauth2.Endpoint{TokenURL: b.TokenURI},
		Scopes:       b.Scopes,
	}

	// A past expiry forces the token source to hit the endpoint.
	stale := &oauth2.Token{
		AccessToken:  b.Token,
		RefreshToken: b.RefreshToken,
		Expiry:       time.Unix(1, 0),
	}

	tok, err := cfg.TokenSource(ctx, stale).Token()
	if err != nil {
		return nil, fmt.Errorf("refresh token: %w", err)
	}

	out := BundleFromToken(tok, cfg, b.Email)
	if out.RefreshToken == "" {
		out.RefreshToken = b.RefreshToken
	}
	return out, nil
}

// BundleFromToken builds a bundle from a token issued for cfg.
func BundleFromToken(tok *oauth2.Token, cfg *oauth2.Config, email string) *domain.Bundle {
	b := &domain.Bundle{
		Token:        tok.AccessToken,
		RefreshToken: tok.RefreshToken,
		TokenURI:     cfg.Endpoint.TokenURL,
		ClientID:     cfg.ClientID,
		ClientSecret: cfg.ClientSecret,
		Scopes:       append([]string(nil), cfg.Scopes...),
		Email:        email,
	}
	if !tok.Expiry.IsZero() {
		exp := tok.Expiry.UTC()
		b.Expiry = &exp
	}
	return b
}

// OAuthToken converts a bundle into a token usable as an oauth2 token source.
func OAuthToken(b *domain.Bundle) *oauth2.Token {
	tok := &oauth2.Token{
		AccessToken:  b.Token,
		RefreshToken: b.RefreshToken,
		TokenType:    "Bearer",
	}
	if b.Expiry != nil {
		tok.Expiry = *b.Expiry
	}
	return tok
}
