package postgres

import (
	"context"
	"fmt"

	"github.com/adebanjo23/DREW-AI-BACKEND/pkg/database"
	apperrors "github.com/adebanjo23/DREW-AI-BACKEND/pkg/errors"
)

// AppointmentRepository implements repository.AppointmentRepository using PostgreSQL.
type AppointmentRepository struct {
	db database.DBTX
}

// NewAppointmentRepository creates a new PostgreSQL-backed appointment repository.
func NewAppointmentRepository(db database.DBTX) *AppointmentRepository {
	return &AppointmentRepository{db: db}
}

// SetMeetingLink stores the join link inside the participant snapshot.
func (r *AppointmentRepository) SetMeetingLink(ctx context.Context, id int64, link string) error {
	tag, err := r.db.Exec(ctx, `
		UPDATE appointments
		SET participant_details = jsonb_set(participant_details, '{lead,meeting_details,meeting_link}', to_jsonb($2::text))
		WHERE id = $1`,
		id, link,
	)
	if err != nil {
		return fmt.Errorf("update meeting link: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return apperrors.NotFound("appointment", id)
	}
	return nil
}
