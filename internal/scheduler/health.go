// Package scheduler runs the periodic integration health check.
package scheduler

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/go-co-op/gocron"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"github.com/adebanjo23/DREW-AI-BACKEND/internal/domain"
)

var integrationChecksTotal = promauto.NewCounterVec(
	prometheus.CounterOpts{
		Name: "integration_checks_total",
		Help: "Total number of integration health checks by outcome",
	},
	[]string{"outcome"},
)

// IntegrationLister lists the users connected to a platform.
type IntegrationLister interface {
	ListUserIDs(ctx context.Context, platform string) ([]int64, error)
}

// CredentialChecker refreshes a bundle if needed and stamps its status.
type CredentialChecker interface {
	Check(ctx context.Context, userID int64, platform string) error
}

// HealthJob periodically checks every connected Google integration.
type HealthJob struct {
	scheduler *gocron.Scheduler
	lister    IntegrationLister
	checker   CredentialChecker
	interval  time.Duration
	ctx       context.Context
	cancel    context.CancelFunc
	logger    *slog.Logger
}

// NewHealthJob creates a job that runs every interval once started.
func NewHealthJob(lister IntegrationLister, checker CredentialChecker, interval time.Duration, logger *slog.Logger) *HealthJob {
	ctx, cancel := context.WithCancel(context.Background())
	return &HealthJob{
		scheduler: gocron.NewScheduler(time.UTC),
		lister:    lister,
		checker:   checker,
		interval:  interval,
		ctx:       ctx,
		cancel:    cancel,
		logger:    logger,
	}
}

// Start schedules the job and returns immediately. The first run happens at
// the first interval, not at startup.
func (j *HealthJob) Start() error {
	_, err := j.scheduler.Every(j.interval).SingletonMode().WaitForSchedule().Do(func() {
		j.RunOnce(j.ctx)
	})
	if err != nil {
		return fmt.Errorf("schedule integration health job: %w", err)
	}
	j.scheduler.StartAsync()
	j.logger.Info("integration health job started", slog.Duration("interval", j.interval))
	return nil
}

// Stop cancels a running check and stops the scheduler.
func (j *HealthJob) Stop() {
	j.cancel()
	j.scheduler.Stop()
}

// RunOnce checks every connected integration in turn. A failing integration
// is logged and does not stop the others.
func (j *HealthJob) RunOnce(ctx context.Context) (checked, failed int) {
	userIDs, err := j.lister.ListUserIDs(ctx, domain.PlatformGoogleCalendar)
	if err != nil {
		j.logger.ErrorContext(ctx, "failed to list integrations", slog.String("error", err.Error()))
		return 0, 0
	}

	for _, userID := range userIDs {
		if ctx.Err() != nil {
			break
		}
		checked++
		if err := j.checker.Check(ctx, userID, domain.PlatformGoogleCalendar); err != nil {
			failed++
			integrationChecksTotal.WithLabelValues("failure").Inc()
			j.logger.WarnContext(ctx, "integration health check failed",
				slog.Int64("user_id", userID),
				slog.String("error", err.Error()),
			)
			continue
		}
		integrationChecksTotal.WithLabelValues("success").Inc()
	}

	j.logger.InfoContext(ctx, "integration health check finished",
		slog.Int("checked", checked),
		slog.Int("failed", failed),
	)
	return checked, failed
}
