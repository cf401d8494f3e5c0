package postgres

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"

	"github.com/adebanjo23/DREW-AI-BACKEND/internal/domain"
	"github.com/adebanjo23/DREW-AI-BACKEND/pkg/database"
	apperrors "github.com/adebanjo23/DREW-AI-BACKEND/pkg/errors"
)

// UserRepository implements repository.UserRepository using PostgreSQL.
type UserRepository struct {
	db database.DBTX
}

// NewUserRepository creates a new PostgreSQL-backed user repository.
func NewUserRepository(db database.DBTX) *UserRepository {
	return &UserRepository{db: db}
}

const getUserQuery = `
	SELECT id, name, email, COALESCE(phone, ''), COALESCE(brokerage_name, ''),
		COALESCE(drew_name, ''), drew_voice_accent, created_at
	FROM users
	WHERE id = $1`

// GetByID retrieves a user by id.
func (r *UserRepository) GetByID(ctx context.Context, id int64) (u *domain.User, err error) {
	ctx, end := database.TraceQuery(ctx, "GetUser", getUserQuery)
	defer func() { end(err) }()

	var (
		user      domain.User
		accentRaw []byte
	)
	err = r.db.QueryRow(ctx, getUserQuery, id).Scan(
		&user.ID,
		&user.Name,
		&user.Email,
		&user.Phone,
		&user.BrokerageName,
		&user.DrewName,
		&accentRaw,
		&user.CreatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperrors.ErrNotFound
		}
		return nil, fmt.Errorf("scan user: %w", err)
	}

	if len(accentRaw) > 0 && string(accentRaw) != "null" {
		if err := json.Unmarshal(accentRaw, &user.VoiceAccent); err != nil {
			return nil, fmt.Errorf("unmarshal drew_voice_accent: %w", err)
		}
	}

	return &user, nil
}
