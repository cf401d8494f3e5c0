package postgres

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"

	"github.com/adebanjo23/DREW-AI-BACKEND/internal/domain"
	"github.com/adebanjo23/DREW-AI-BACKEND/pkg/database"
	apperrors "github.com/adebanjo23/DREW-AI-BACKEND/pkg/errors"
)

// expiryLayout is the naive UTC form the expiry is stored in.
const expiryLayout = "2006-01-02T15:04:05.999999"

// storedBundle is the JSON shape of integrations.credentials.
type storedBundle struct {
	Token        string   `json:"token"`
	RefreshToken string   `json:"refresh_token"`
	TokenURI     string   `json:"token_uri"`
	ClientID     string   `json:"client_id"`
	ClientSecret string   `json:"client_secret"`
	Scopes       []string `json:"scopes"`
	Expiry       *string  `json:"expiry"`
	Email        string   `json:"email,omitempty"`
}

func encodeBundle(b *domain.Bundle) ([]byte, error) {
	s := storedBundle{
		Token:        b.Token,
		RefreshToken: b.RefreshToken,
		TokenURI:     b.TokenURI,
		ClientID:     b.ClientID,
		ClientSecret: b.ClientSecret,
		Scopes:       b.Scopes,
		Email:        b.Email,
	}
	if s.Scopes == nil {
		s.Scopes = []string{}
	}
	if b.Expiry != nil {
		v := b.Expiry.UTC().Format(expiryLayout)
		s.Expiry = &v
	}
	return json.Marshal(s)
}

func decodeBundle(raw []byte) (*domain.Bundle, error) {
	var s storedBundle
	if err := json.Unmarshal(raw, &s); err != nil {
		return nil, fmt.Errorf("unmarshal credentials: %w", err)
	}

	b := &domain.Bundle{
		Token:        s.Token,
		RefreshToken: s.RefreshToken,
		TokenURI:     s.TokenURI,
		ClientID:     s.ClientID,
		ClientSecret: s.ClientSecret,
		Scopes:       s.Scopes,
		Email:        s.Email,
	}
	if s.Expiry != nil && *s.Expiry != "" {
		t, err := domain.ParseTime(*s.Expiry)
		if err != nil {
			return nil, fmt.Errorf("parse expiry: %w", err)
		}
		utc := t.UTC()
		b.Expiry = &utc
	}
	return b, nil
}

// IntegrationRepository implements repository.IntegrationRepository using PostgreSQL.
type IntegrationRepository struct {
	db database.DBTX
}

// NewIntegrationRepository creates a new PostgreSQL-backed integration repository.
func NewIntegrationRepository(db database.DBTX) *IntegrationRepository {
	return &IntegrationRepository{db: db}
}

// Get loads the stored bundle for the user and platform.
func (r *IntegrationRepository) Get(ctx context.Context, userID int64, platform string) (b *domain.Bundle, err error) {
	query := `SELECT credentials FROM integrations WHERE user_id = $1 AND platform_name = $2`

	ctx, end := database.TraceQuery(ctx, "GetIntegration", query)
	defer func() { end(err) }()

	var raw []byte
	if err = r.db.QueryRow(ctx, query, userID, platform).Scan(&raw); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperrors.ErrNotFound
		}
		return nil, fmt.Errorf("scan integration: %w", err)
	}
	if len(raw) == 0 || string(raw) == "null" {
		return nil, apperrors.ErrNotFound
	}
	return decodeBundle(raw)
}

const upsertIntegrationQuery = `
	INSERT INTO integrations (user_id, platform_name, credentials, created_at)
	VALUES ($1, $2, $3, $4)
	ON CONFLICT (user_id, platform_name) DO UPDATE SET credentials = EXCLUDED.credentials`

const upsertStatusQuery = `
	INSERT INTO integration_status (user_id, platform_name, status, last_checked, created_at, updated_at)
	VALUES ($1, $2, $3, $4, $4, $4)
	ON CONFLICT (user_id, platform_name) DO UPDATE
	SET status = EXCLUDED.status, last_checked = EXCLUDED.last_checked, updated_at = EXCLUDED.updated_at`

// Save upserts the bundle and sets the integration status to active in a
// single transaction.
func (r *IntegrationRepository) Save(ctx context.Context, userID int64, platform string, b *domain.Bundle, checkedAt time.Time) error {
	raw, err := encodeBundle(b)
	if err != nil {
		return fmt.Errorf("marshal credentials: %w", err)
	}
	checkedAt = checkedAt.UTC()

	return database.InTx(ctx, r.db, func(tx pgx.Tx) error {
		if _, err := tx.Exec(ctx, upsertIntegrationQuery, userID, platform, raw, checkedAt); err != nil {
			return fmt.Errorf("upsert integration: %w", err)
		}
		if _, err := tx.Exec(ctx, upsertStatusQuery, userID, platform, domain.IntegrationActive, checkedAt); err != nil {
			return fmt.Errorf("upsert integration status: %w", err)
		}
		return nil
	})
}

// SetStatus records the integration status without touching the bundle.
func (r *IntegrationRepository) SetStatus(ctx context.Context, userID int64, platform, status string, checkedAt time.Time) error {
	if _, err := r.db.Exec(ctx, upsertStatusQuery, userID, platform, status, checkedAt.UTC()); err != nil {
		return fmt.Errorf("upsert integration status: %w", err)
	}
	return nil
}

// ListUserIDs returns the users that have a bundle stored for platform.
func (r *IntegrationRepository) ListUserIDs(ctx context.Context, platform string) ([]int64, error) {
	rows, err := r.db.Query(ctx,
		`SELECT user_id FROM integrations WHERE platform_name = $1 ORDER BY user_id`, platform)
	if err != nil {
		return nil, fmt.Errorf("list integrations: %w", err)
	}
	defer rows.Close()

	ids := []int64{}
	for rows.Next() {
		var id int64
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("scan integration user: %w", err)
		}
		ids = append(ids, id)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate integrations: %w", err)
	}
	return ids, nil
}
