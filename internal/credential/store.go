package credential

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/adebanjo23/DREW-AI-BACKEND/internal/domain"
	"github.com/adebanjo23/DREW-AI-BACKEND/internal/repository"
	apperrors "github.com/adebanjo23/DREW-AI-BACKEND/pkg/errors"
	"github.com/adebanjo23/DREW-AI-BACKEND/pkg/logger"
)

var (
	// ErrNoRefreshToken is returned when an expired bundle cannot be refreshed
	// because it carries no refresh token.
	ErrNoRefreshToken = errors.New("credential: no refresh token")

	// ErrRefreshFailed is returned when the token endpoint rejects a refresh.
	ErrRefreshFailed = errors.New("credential: refresh failed")
)

// Messages returned to HTTP callers when no usable credentials exist.
const (
	MsgIntegrationNotFound = "Google Calendar integration not found"
	MsgRefreshFailed       = "Failed to refresh credentials"
)

// Refresher exchanges a refresh token for a new access token.
type Refresher interface {
	Refresh(ctx context.Context, b *domain.Bundle) (*domain.Bundle, error)
}

// Locker serializes work on a key. Lock blocks until the key is held or ctx
// is done and returns the release function.
type Locker interface {
	Lock(ctx context.Context, key string) (func(), error)
}

// Store manages the lifecycle of stored OAuth bundles.
type Store struct {
	repo      repository.IntegrationRepository
	refresher Refresher
	locker    Locker
	now       func() time.Time
	logger    *slog.Logger
}

// NewStore creates a credential store.
func NewStore(repo repository.IntegrationRepository, refresher Refresher, locker Locker, logger *slog.Logger) *Store {
	return &Store{
		repo:      repo,
		refresher: refresher,
		locker:    locker,
		now:       time.Now,
		logger:    logger,
	}
}

// WithRepository returns a copy of the store reading and writing through repo.
// Background tasks use it to bind the store to their own connection.
func (s *Store) WithRepository(repo repository.IntegrationRepository) *Store {
	c := *s
	c.repo = repo
	return &c
}

// Save persists the bundle and marks the integration active in one transaction.
func (s *Store) Save(ctx context.Context, userID int64, platform string, b *domain.Bundle) error {
	if err := s.repo.Save(ctx, userID, platform, b, s.now().UTC()); err != nil {
		return fmt.Errorf("save credentials: %w", err)
	}
	return nil
}

// Get returns the stored bundle, or nil when the user has none.
func (s *Store) Get(ctx context.Context, userID int64, platform string) (*domain.Bundle, error) {
	b, err := s.repo.Get(ctx, userID, platform)
	if err != nil {
		if errors.Is(err, apperrors.ErrNotFound) {
			return nil, nil
		}
		return nil, fmt.Errorf("get credentials: %w", err)
	}
	return b, nil
}

// RefreshIfExpired returns b unchanged while its access token is valid.
// Otherwise it refreshes the token, persists the result and returns it. A
// failed refresh leaves the stored bundle untouched and marks the
// integration as errored.
func (s *Store) RefreshIfExpired(ctx context.Context, userID int64, platform string, b *domain.Bundle) (*domain.Bundle, error) {
	if !b.Expired(s.now()) {
		return b, nil
	}
	if b.RefreshToken == "" {
		return nil, ErrNoRefreshToken
	}

	unlock, err := s.locker.Lock(ctx, lockKey(userID, platform))
	if err != nil {
		return nil, fmt.Errorf("acquire refresh lock: %w", err)
	}
	defer unlock()

	// Another worker may have refreshed while we waited for the lock.
	current, err := s.Get(ctx, userID, platform)
	if err != nil {
		return nil, err
	}
	if current != nil {
		if !current.Expired(s.now()) {
			return current, nil
		}
		if current.RefreshToken != "" {
			b = current
		}
	}

	log := logger.WithContext(ctx, s.logger).With(
		slog.Int64("user_id", userID),
		slog.String("platform", platform),
	)

	refreshed, err := s.refresher.Refresh(ctx, b)
	if err != nil {
		log.WarnContext(ctx, "credential refresh failed", slog.String("error", err.Error()))
		if serr := s.repo.SetStatus(ctx, userID, platform, domain.IntegrationError, s.now().UTC()); serr != nil {
			log.ErrorContext(ctx, "failed to mark integration errored", slog.String("error", serr.Error()))
		}
		return nil, fmt.Errorf("%w: %v", ErrRefreshFailed, err)
	}

	if refreshed.RefreshToken == "" {
		refreshed.RefreshToken = b.RefreshToken
	}
	refreshed.Email = b.Email

	if err := s.Save(ctx, userID, platform, refreshed); err != nil {
		return nil, err
	}

	log.InfoContext(ctx, "credentials refreshed")
	return refreshed, nil
}

// Usable returns a bundle that can be used right now. Missing credentials and
// failed refreshes are reported as Unauthorized.
func (s *Store) Usable(ctx context.Context, userID int64, platform string) (*domain.Bundle, error) {
	b, err := s.Get(ctx, userID, platform)
	if err != nil {
		return nil, err
	}
	if b == nil {
		return nil, apperrors.Unauthorized(MsgIntegrationNotFound)
	}

	fresh, err := s.RefreshIfExpired(ctx, userID, platform, b)
	if err != nil {
		if errors.Is(err, ErrRefreshFailed) || errors.Is(err, ErrNoRefreshToken) {
			return nil, apperrors.Unauthorized(MsgRefreshFailed)
		}
		return nil, err
	}
	return fresh, nil
}

// Check refreshes the bundle if needed and records the integration's health.
func (s *Store) Check(ctx context.Context, userID int64, platform string) error {
	now := s.now().UTC()

	b, err := s.Get(ctx, userID, platform)
	if err != nil {
		return err
	}
	if b == nil {
		return s.repo.SetStatus(ctx, userID, platform, domain.IntegrationInactive, now)
	}

	if _, err := s.RefreshIfExpired(ctx, userID, platform, b); err != nil {
		if errors.Is(err, ErrNoRefreshToken) {
			if serr := s.repo.SetStatus(ctx, userID, platform, domain.IntegrationError, now); serr != nil {
				return fmt.Errorf("set integration status: %w", serr)
			}
		}
		return err
	}

	if err := s.repo.SetStatus(ctx, userID, platform, domain.IntegrationActive, now); err != nil {
		return fmt.Errorf("set integration status: %w", err)
	}
	return nil
}

func lockKey(userID int64, platform string) string {
	return fmt.Sprintf("refresh:%d:%s", userID, platform)
}
