package postgres

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/jackc/pgx/v5"

	"github.com/adebanjo23/DREW-AI-BACKEND/internal/domain"
	"github.com/adebanjo23/DREW-AI-BACKEND/pkg/database"
	apperrors "github.com/adebanjo23/DREW-AI-BACKEND/pkg/errors"
)

// LeadRepository implements repository.LeadRepository using PostgreSQL.
type LeadRepository struct {
	db database.DBTX
}

// NewLeadRepository creates a new PostgreSQL-backed lead repository.
func NewLeadRepository(db database.DBTX) *LeadRepository {
	return &LeadRepository{db: db}
}

const leadColumns = `id, user_id, COALESCE(external_id, ''), COALESCE(source, ''), COALESCE(name, ''),
	COALESCE(email, ''), COALESCE(phone, ''), COALESCE(status, ''), lead_details, created_at, updated_at`

var likeEscaper = strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)

// containsPattern builds an ILIKE pattern matching term as a literal substring.
func containsPattern(term string) string {
	return "%" + likeEscaper.Replace(term) + "%"
}

// GetByID retrieves a lead by id.
func (r *LeadRepository) GetByID(ctx context.Context, id int64) (*domain.Lead, error) {
	query := `SELECT ` + leadColumns + ` FROM leads WHERE id = $1`

	lead, err := scanLead(r.db.QueryRow(ctx, query, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperrors.ErrNotFound
		}
		return nil, fmt.Errorf("scan lead: %w", err)
	}
	return lead, nil
}

// SearchByName returns the user's leads whose name contains term.
func (r *LeadRepository) SearchByName(ctx context.Context, userID int64, term string) (leads []domain.Lead, err error) {
	query := `SELECT ` + leadColumns + ` FROM leads WHERE user_id = $1 AND name ILIKE $2 ORDER BY id`

	ctx, end := database.TraceQuery(ctx, "SearchLeads", query)
	defer func() { end(err) }()

	rows, err := r.db.Query(ctx, query, userID, containsPattern(term))
	if err != nil {
		return nil, fmt.Errorf("search leads: %w", err)
	}
	defer rows.Close()

	leads = []domain.Lead{}
	for rows.Next() {
		lead, err := scanLead(rows)
		if err != nil {
			return nil, fmt.Errorf("scan lead: %w", err)
		}
		leads = append(leads, *lead)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate leads: %w", err)
	}
	return leads, nil
}

func scanLead(row pgx.Row) (*domain.Lead, error) {
	var (
		l          domain.Lead
		detailsRaw []byte
	)
	if err := row.Scan(
		&l.ID,
		&l.UserID,
		&l.ExternalID,
		&l.Source,
		&l.Name,
		&l.Email,
		&l.Phone,
		&l.Status,
		&detailsRaw,
		&l.CreatedAt,
		&l.UpdatedAt,
	); err != nil {
		return nil, err
	}

	if len(detailsRaw) > 0 && string(detailsRaw) != "null" {
		if err := json.Unmarshal(detailsRaw, &l.LeadDetails); err != nil {
			return nil, fmt.Errorf("unmarshal lead_details: %w", err)
		}
	}
	return &l, nil
}
