package postgres

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"

	"github.com/adebanjo23/DREW-AI-BACKEND/internal/domain"
	"github.com/adebanjo23/DREW-AI-BACKEND/pkg/database"
)

type queryRower interface {
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

// CommunicationRepository implements repository.CommunicationRepository using PostgreSQL.
type CommunicationRepository struct {
	db database.DBTX
}

// NewCommunicationRepository creates a new PostgreSQL-backed communication repository.
func NewCommunicationRepository(db database.DBTX) *CommunicationRepository {
	return &CommunicationRepository{db: db}
}

// Create inserts a single communication.
func (r *CommunicationRepository) Create(ctx context.Context, c *domain.Communication) (err error) {
	ctx, end := database.TraceQuery(ctx, "CreateCommunication", string(c.Channel))
	defer func() { end(err) }()

	return insertCommunication(ctx, r.db, c)
}

// CreateWithCall inserts the communication and its call record atomically.
func (r *CommunicationRepository) CreateWithCall(ctx context.Context, c *domain.Communication, call *domain.Call) error {
	return database.InTx(ctx, r.db, func(tx pgx.Tx) error {
		if err := insertCommunication(ctx, tx, c); err != nil {
			return err
		}
		return insertCall(ctx, tx, call)
	})
}

// CreateWithAppointment inserts the communication and its appointment atomically.
func (r *CommunicationRepository) CreateWithAppointment(ctx context.Context, c *domain.Communication, a *domain.Appointment) error {
	return database.InTx(ctx, r.db, func(tx pgx.Tx) error {
		if err := insertCommunication(ctx, tx, c); err != nil {
			return err
		}
		return insertAppointment(ctx, tx, a)
	})
}

// HasDrewLeadCommunication reports whether any drew-lead record exists for the lead.
func (r *CommunicationRepository) HasDrewLeadCommunication(ctx context.Context, leadID int64) (bool, error) {
	var exists bool
	err := r.db.QueryRow(ctx,
		`SELECT EXISTS(SELECT 1 FROM drew_lead_communications WHERE lead_id = $1)`, leadID,
	).Scan(&exists)
	if err != nil {
		return false, fmt.Errorf("check drew lead communications: %w", err)
	}
	return exists, nil
}

const listByLeadQuery = `
	SELECT 'DrewLeadCommunication' AS channel, id, user_id, lead_id, drew_id, type, status, details, created_at, updated_at
	FROM drew_lead_communications WHERE lead_id = $1
	UNION ALL
	SELECT 'UserLeadCommunication' AS channel, id, user_id, lead_id, NULL, type, status, details, created_at, updated_at
	FROM user_lead_communications WHERE lead_id = $1
	ORDER BY created_at, channel, id`

// ListByLead returns every lead-facing communication for the lead, oldest first.
func (r *CommunicationRepository) ListByLead(ctx context.Context, leadID int64) (comms []domain.Communication, err error) {
	ctx, end := database.TraceQuery(ctx, "ListCommunicationsByLead", listByLeadQuery)
	defer func() { end(err) }()

	rows, err := r.db.Query(ctx, listByLeadQuery, leadID)
	if err != nil {
		return nil, fmt.Errorf("list communications: %w", err)
	}
	defer rows.Close()

	comms = []domain.Communication{}
	for rows.Next() {
		c, err := scanCommunication(rows)
		if err != nil {
			return nil, err
		}
		comms = append(comms, *c)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate communications: %w", err)
	}
	return comms, nil
}

func scanCommunication(row pgx.Row, extra ...any) (*domain.Communication, error) {
	var (
		c          domain.Communication
		channel    string
		drewID     *string
		detailsRaw []byte
	)
	dest := []any{
		&channel, &c.ID, &c.UserID, &c.LeadID, &drewID,
		&c.Type, &c.Status, &detailsRaw, &c.CreatedAt, &c.UpdatedAt,
	}
	if err := row.Scan(append(dest, extra...)...); err != nil {
		return nil, fmt.Errorf("scan communication: %w", err)
	}

	c.Channel = domain.Channel(channel)
	if drewID != nil {
		c.DrewID = *drewID
	}
	c.Details = map[string]any{}
	if len(detailsRaw) > 0 && string(detailsRaw) != "null" {
		if err := json.Unmarshal(detailsRaw, &c.Details); err != nil {
			return nil, fmt.Errorf("unmarshal communication details: %w", err)
		}
	}
	return &c, nil
}

func insertCommunication(ctx context.Context, q queryRower, c *domain.Communication) error {
	details, err := json.Marshal(c.Details)
	if err != nil {
		return fmt.Errorf("marshal communication details: %w", err)
	}
	if c.CreatedAt.IsZero() {
		c.CreatedAt = time.Now().UTC()
	}
	c.UpdatedAt = c.CreatedAt

	var row pgx.Row
	switch c.Channel {
	case domain.ChannelDrewLead:
		row = q.QueryRow(ctx, `
			INSERT INTO drew_lead_communications (user_id, lead_id, drew_id, type, status, details, created_at, updated_at)
			VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
			RETURNING id`,
			c.UserID, c.LeadID, c.DrewID, c.Type, c.Status, details, c.CreatedAt, c.UpdatedAt)
	case domain.ChannelUserLead:
		row = q.QueryRow(ctx, `
			INSERT INTO user_lead_communications (user_id, lead_id, type, status, details, created_at, updated_at)
			VALUES ($1, $2, $3, $4, $5, $6, $7)
			RETURNING id`,
			c.UserID, c.LeadID, c.Type, c.Status, details, c.CreatedAt, c.UpdatedAt)
	case domain.ChannelUserDrew:
		row = q.QueryRow(ctx, `
			INSERT INTO user_drew_communications (user_id, drew_id, type, status, details, created_at, updated_at)
			VALUES ($1, $2, $3, $4, $5, $6, $7)
			RETURNING id`,
			c.UserID, c.DrewID, c.Type, c.Status, details, c.CreatedAt, c.UpdatedAt)
	default:
		return fmt.Errorf("unknown communication channel %q", c.Channel)
	}

	if err := row.Scan(&c.ID); err != nil {
		return fmt.Errorf("insert communication: %w", err)
	}
	return nil
}

func insertCall(ctx context.Context, q queryRower, call *domain.Call) error {
	if call.CreatedAt.IsZero() {
		call.CreatedAt = time.Now().UTC()
	}
	err := q.QueryRow(ctx, `
		INSERT INTO calls (user_id, call_time, status, duration, call_id, created_at)
		VALUES ($1, $2, $3, $4, $5, $6)
		RETURNING id`,
		call.UserID, call.CallTime.UTC(), call.Status, call.Duration, call.CallID, call.CreatedAt,
	).Scan(&call.ID)
	if err != nil {
		return fmt.Errorf("insert call: %w", err)
	}
	return nil
}

func insertAppointment(ctx context.Context, q queryRower, a *domain.Appointment) error {
	participants, err := json.Marshal(a.Participants)
	if err != nil {
		return fmt.Errorf("marshal participant details: %w", err)
	}
	if a.CreatedAt.IsZero() {
		a.CreatedAt = time.Now().UTC()
	}
	err = q.QueryRow(ctx, `
		INSERT INTO appointments (user_id, appointment_time, status, participant_details, created_at)
		VALUES ($1, $2, $3, $4, $5)
		RETURNING id`,
		a.UserID, a.Time.UTC(), a.Status, participants, a.CreatedAt,
	).Scan(&a.ID)
	if err != nil {
		return fmt.Errorf("insert appointment: %w", err)
	}
	return nil
}
