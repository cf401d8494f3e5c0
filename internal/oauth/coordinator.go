package oauth

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"golang.org/x/oauth2"
	googleoauth "golang.org/x/oauth2/google"
	"google.golang.org/api/calendar/v3"
	"google.golang.org/api/gmail/v1"
	oauth2api "google.golang.org/api/oauth2/v2"

	"github.com/adebanjo23/DREW-AI-BACKEND/internal/credential"
	"github.com/adebanjo23/DREW-AI-BACKEND/internal/domain"
	"github.com/adebanjo23/DREW-AI-BACKEND/internal/event"
	apperrors "github.com/adebanjo23/DREW-AI-BACKEND/pkg/errors"
	"github.com/adebanjo23/DREW-AI-BACKEND/pkg/logger"
)

// Scopes requested from Google.
var Scopes = []string{
	calendar.CalendarScope,
	oauth2api.UserinfoEmailScope,
	gmail.GmailSendScope,
	oauth2api.OpenIDScope,
}

// Client-facing messages.
const (
	MsgMissingClientConfig = "Missing Google credentials. Please check your .env file."
	MsgMissingUserID       = "Missing user_id parameter"
	MsgNoUserID            = "No user ID provided"
	MsgNoCode              = "No authorization code received"
	MsgNoRefreshToken      = "No refresh token received. Please revoke application access and try again."
	MsgConnected           = "Successfully connected to Google Calendar"
)

// IdentityFetcher looks up the email address of the account that granted a token.
type IdentityFetcher interface {
	Email(ctx context.Context, tok *oauth2.Token) (string, error)
}

// CredentialSaver persists the bundle obtained from a completed flow.
type CredentialSaver interface {
	Save(ctx context.Context, userID int64, platform string, b *domain.Bundle) error
}

// Config configures the authorization-code flow.
type Config struct {
	ClientID     string
	ClientSecret string
	RedirectURL  string

	// Endpoint defaults to Google's.
	Endpoint oauth2.Endpoint

	// HTTPClient is used for the code exchange. Nil uses http.DefaultClient.
	HTTPClient *http.Client
}

// Coordinator runs the Google authorization-code flow.
type Coordinator struct {
	cfg      *oauth2.Config
	client   *http.Client
	identity IdentityFetcher
	store    CredentialSaver
	producer *event.Producer
	now      func() time.Time
	logger   *slog.Logger
}

// NewCoordinator creates a new OAuth flow coordinator.
func NewCoordinator(cfg Config, identity IdentityFetcher, store CredentialSaver, producer *event.Producer, logger *slog.Logger) *Coordinator {
	endpoint := cfg.Endpoint
	if endpoint.TokenURL == "" {
		endpoint = googleoauth.Endpoint
	}

	return &Coordinator{
		cfg: &oauth2.Config{
			ClientID:     cfg.ClientID,
			ClientSecret: cfg.ClientSecret,
			RedirectURL:  cfg.RedirectURL,
			Scopes:       Scopes,
			Endpoint:     endpoint,
		},
		client:   cfg.HTTPClient,
		identity: identity,
		store:    store,
		producer: producer,
		now:      time.Now,
		logger:   logger,
	}
}

// AuthorizationURL returns the consent page URL for userID. Offline access
// and a forced consent prompt make Google issue a refresh token every time.
func (c *Coordinator) AuthorizationURL(userID string) (string, error) {
	if c.cfg.ClientID == "" || c.cfg.ClientSecret == "" {
		return "", apperrors.InvalidInput(MsgMissingClientConfig)
	}
	if userID == "" {
		return "", apperrors.InvalidInput(MsgMissingUserID)
	}

	state := EncodeState(State{UserID: userID, Prompt: "consent"})
	return c.cfg.AuthCodeURL(state,
		oauth2.AccessTypeOffline,
		oauth2.SetAuthURLParam("include_granted_scopes", "true"),
		oauth2.SetAuthURLParam("prompt", "consent"),
	), nil
}

// Complete handles the provider callback: it exchanges code for tokens,
// resolves the account email and stores the bundle for the user named in
// state. It returns that user's id.
func (c *Coordinator) Complete(ctx context.Context, code, state string) (int64, error) {
	st, err := DecodeState(state)
	if err != nil || st.UserID == "" {
		return 0, apperrors.InvalidInput(MsgNoUserID)
	}
	userID, err := strconv.ParseInt(st.UserID, 10, 64)
	if err != nil {
		return 0, apperrors.InvalidInput(fmt.Sprintf("invalid user_id %q in state", st.UserID))
	}
	if code == "" {
		return 0, apperrors.InvalidInput(MsgNoCode)
	}

	log := logger.WithContext(ctx, c.logger).With(slog.Int64("user_id", userID))

	if c.client != nil {
		ctx = context.WithValue(ctx, oauth2.HTTPClient, c.client)
	}
	tok, err := c.cfg.Exchange(ctx, code)
	if err != nil {
		return 0, apperrors.ExternalService("google oauth", err)
	}
	if tok.RefreshToken == "" {
		return 0, apperrors.InvalidInput(MsgNoRefreshToken)
	}

	email, err := c.identity.Email(ctx, tok)
	if err != nil || email == "" {
		if err != nil {
			log.WarnContext(ctx, "userinfo lookup failed", slog.String("error", err.Error()))
		}
		email = fmt.Sprintf("user_%d", c.now().Unix())
	}

	bundle := credential.BundleFromToken(tok, c.cfg, email)
	if err := c.store.Save(ctx, userID, domain.PlatformGoogleCalendar, bundle); err != nil {
		return 0, fmt.Errorf("store google credentials: %w", err)
	}

	if err := c.producer.PublishIntegrationConnected(ctx, event.IntegrationConnectedData{
		UserID:   userID,
		Platform: domain.PlatformGoogleCalendar,
		Email:    email,
	}); err != nil {
		log.WarnContext(ctx, "failed to publish integration connected event", slog.String("error", err.Error()))
	}

	log.InfoContext(ctx, "google integration connected")
	return userID, nil
}
