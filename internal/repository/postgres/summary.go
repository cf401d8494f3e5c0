package postgres

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/adebanjo23/DREW-AI-BACKEND/internal/domain"
	"github.com/adebanjo23/DREW-AI-BACKEND/internal/repository"
	"github.com/adebanjo23/DREW-AI-BACKEND/pkg/database"
)

// SummaryRepository implements repository.SummaryRepository using PostgreSQL.
type SummaryRepository struct {
	db database.DBTX
}

// NewSummaryRepository creates a new PostgreSQL-backed summary repository.
func NewSummaryRepository(db database.DBTX) *SummaryRepository {
	return &SummaryRepository{db: db}
}

// scope builds "user_id = $1" plus the optional range bounds on column.
// The returned args always start with userID.
func scope(userID int64, column string, r repository.DateRange) (string, []any) {
	conditions := []string{"user_id = $1"}
	args := []any{userID}

	if r.Start != nil {
		args = append(args, r.Start.UTC())
		conditions = append(conditions, fmt.Sprintf("%s >= $%d", column, len(args)))
	}
	if r.End != nil {
		args = append(args, r.End.UTC())
		conditions = append(conditions, fmt.Sprintf("%s <= $%d", column, len(args)))
	}
	return strings.Join(conditions, " AND "), args
}

// CallStats counts the user's calls by outcome and averages their duration.
func (r *SummaryRepository) CallStats(ctx context.Context, userID int64, dr repository.DateRange) (domain.CallStats, error) {
	where, args := scope(userID, "created_at", dr)
	query := `
		SELECT COUNT(*),
			COUNT(*) FILTER (WHERE status = 'successful'),
			COUNT(*) FILTER (WHERE status = 'missed'),
			COALESCE(AVG(duration), 0)::float8
		FROM calls WHERE ` + where

	var s domain.CallStats
	if err := r.db.QueryRow(ctx, query, args...).Scan(&s.Total, &s.Successful, &s.Missed, &s.AverageDuration); err != nil {
		return domain.CallStats{}, fmt.Errorf("call stats: %w", err)
	}
	return s, nil
}

// LeadStatusCounts returns the total number of leads and the count for each
// of statuses. Statuses without leads report zero.
func (r *SummaryRepository) LeadStatusCounts(ctx context.Context, userID int64, dr repository.DateRange, statuses []string) (int, map[string]int, error) {
	where, args := scope(userID, "created_at", dr)
	query := `SELECT COALESCE(status, ''), COUNT(*) FROM leads WHERE ` + where + ` GROUP BY status`

	rows, err := r.db.Query(ctx, query, args...)
	if err != nil {
		return 0, nil, fmt.Errorf("lead status counts: %w", err)
	}
	defer rows.Close()

	byStatus := make(map[string]int, len(statuses))
	for _, s := range statuses {
		byStatus[s] = 0
	}

	total := 0
	for rows.Next() {
		var (
			status string
			count  int
		)
		if err := rows.Scan(&status, &count); err != nil {
			return 0, nil, fmt.Errorf("scan lead status count: %w", err)
		}
		total += count
		if _, tracked := byStatus[status]; tracked {
			byStatus[status] = count
		}
	}
	if err := rows.Err(); err != nil {
		return 0, nil, fmt.Errorf("iterate lead status counts: %w", err)
	}
	return total, byStatus, nil
}

// LeadInteractions returns the user's lead-facing communications, newest first.
func (r *SummaryRepository) LeadInteractions(ctx context.Context, userID int64, dr repository.DateRange) (out []domain.LeadInteraction, err error) {
	where, args := scope(userID, "created_at", dr)
	query := `
		SELECT c.channel, c.id, c.user_id, c.lead_id, c.drew_id, c.type, c.status, c.details,
			c.created_at, c.updated_at, COALESCE(l.name, 'Unknown'), l.email
		FROM (
			SELECT 'DrewLeadCommunication' AS channel, id, user_id, lead_id, drew_id, type, status, details, created_at, updated_at
			FROM drew_lead_communications WHERE ` + where + `
			UNION ALL
			SELECT 'UserLeadCommunication' AS channel, id, user_id, lead_id, NULL, type, status, details, created_at, updated_at
			FROM user_lead_communications WHERE ` + where + `
		) c
		LEFT JOIN leads l ON l.id = c.lead_id
		ORDER BY c.created_at DESC, c.id DESC`

	ctx, end := database.TraceQuery(ctx, "LeadInteractions", query)
	defer func() { end(err) }()

	rows, err := r.db.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("lead interactions: %w", err)
	}
	defer rows.Close()

	out = []domain.LeadInteraction{}
	for rows.Next() {
		var li domain.LeadInteraction
		c, err := scanCommunication(rows, &li.LeadName, &li.LeadEmail)
		if err != nil {
			return nil, err
		}
		li.Communication = *c
		out = append(out, li)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate lead interactions: %w", err)
	}
	return out, nil
}

// RecentAppointments returns the user's latest appointments by appointment time.
func (r *SummaryRepository) RecentAppointments(ctx context.Context, userID int64, dr repository.DateRange, limit int) ([]domain.Appointment, error) {
	where, args := scope(userID, "appointment_time", dr)
	args = append(args, limit)
	query := fmt.Sprintf(`
		SELECT id, user_id, appointment_time, COALESCE(status, ''), participant_details, created_at
		FROM appointments WHERE %s
		ORDER BY appointment_time DESC
		LIMIT $%d`, where, len(args))

	rows, err := r.db.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("recent appointments: %w", err)
	}
	defer rows.Close()

	appts := []domain.Appointment{}
	for rows.Next() {
		var (
			a   domain.Appointment
			raw []byte
		)
		if err := rows.Scan(&a.ID, &a.UserID, &a.Time, &a.Status, &raw, &a.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan appointment: %w", err)
		}
		if len(raw) > 0 && string(raw) != "null" {
			if err := json.Unmarshal(raw, &a.Participants); err != nil {
				return nil, fmt.Errorf("unmarshal participant details: %w", err)
			}
		}
		appts = append(appts, a)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate appointments: %w", err)
	}
	return appts, nil
}

// CountLeadsCreatedSince counts leads created at or after since.
func (r *SummaryRepository) CountLeadsCreatedSince(ctx context.Context, userID int64, dr repository.DateRange, since time.Time) (int, error) {
	where, args := scope(userID, "created_at", dr)
	args = append(args, since.UTC())
	query := fmt.Sprintf(`SELECT COUNT(*) FROM leads WHERE %s AND created_at >= $%d`, where, len(args))
	return r.count(ctx, "count new leads", query, args)
}

// CountLeadsNeedingFollowUp counts new or contacted leads created at or before olderThan.
func (r *SummaryRepository) CountLeadsNeedingFollowUp(ctx context.Context, userID int64, dr repository.DateRange, olderThan time.Time) (int, error) {
	where, args := scope(userID, "created_at", dr)
	args = append(args, olderThan.UTC())
	query := fmt.Sprintf(`SELECT COUNT(*) FROM leads WHERE %s AND status IN ('new', 'contacted') AND created_at <= $%d`,
		where, len(args))
	return r.count(ctx, "count leads needing follow-up", query, args)
}

// CountUpcomingAppointments counts scheduled appointments at or after now.
func (r *SummaryRepository) CountUpcomingAppointments(ctx context.Context, userID int64, dr repository.DateRange, now time.Time) (int, error) {
	where, args := scope(userID, "appointment_time", dr)
	args = append(args, now.UTC())
	query := fmt.Sprintf(`SELECT COUNT(*) FROM appointments WHERE %s AND appointment_time >= $%d AND status = 'scheduled'`,
		where, len(args))
	return r.count(ctx, "count upcoming appointments", query, args)
}

func (r *SummaryRepository) count(ctx context.Context, op, query string, args []any) (int, error) {
	var n int
	if err := r.db.QueryRow(ctx, query, args...).Scan(&n); err != nil {
		return 0, fmt.Errorf("%s: %w", op, err)
	}
	return n, nil
}
