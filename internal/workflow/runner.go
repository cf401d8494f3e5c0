// Package workflow runs the booking, call and message workflows in the
// background, one pooled database connection per task.
package workflow

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"runtime/debug"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"github.com/adebanjo23/DREW-AI-BACKEND/pkg/database"
	"github.com/adebanjo23/DREW-AI-BACKEND/pkg/logger"
)

// ErrStopped is returned by Submit once Stop has been called.
var ErrStopped = errors.New("workflow runner stopped")

const (
	outcomeSuccess = "success"
	outcomeFailure = "failure"
	outcomePanic   = "panic"
)

var (
	tasksTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "workflow_tasks_total",
			Help: "Total number of background workflow tasks by outcome",
		},
		[]string{"task", "outcome"},
	)

	taskDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "workflow_task_duration_seconds",
			Help:    "Background workflow task duration in seconds",
			Buckets: []float64{0.1, 0.5, 1, 2.5, 5, 10, 30, 60},
		},
		[]string{"task"},
	)

	tasksQueued = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "workflow_tasks_queued",
			Help: "Tasks waiting for a worker",
		},
	)
)

// Executor performs one task on a dedicated database connection.
type Executor interface {
	Execute(ctx context.Context, db database.DBTX, task Task) error
}

// RunnerConfig sizes the worker pool.
type RunnerConfig struct {
	Workers   int
	QueueSize int
}

type job struct {
	ctx  context.Context
	task Task
}

// Runner is a fixed pool of workers fed by a buffered queue. Tasks run once;
// a failed or panicking task is logged and dropped.
type Runner struct {
	sessions database.SessionSource
	exec     Executor
	queue    chan job
	workers  int
	logger   *slog.Logger

	wg     sync.WaitGroup
	mu     sync.RWMutex
	closed bool
}

// NewRunner creates a Runner. Call Start to launch the workers.
func NewRunner(sessions database.SessionSource, exec Executor, cfg RunnerConfig, logger *slog.Logger) *Runner {
	if cfg.Workers < 1 {
		cfg.Workers = 1
	}
	if cfg.QueueSize < 0 {
		cfg.QueueSize = 0
	}
	return &Runner{
		sessions: sessions,
		exec:     exec,
		queue:    make(chan job, cfg.QueueSize),
		workers:  cfg.Workers,
		logger:   logger,
	}
}

// Start launches the workers.
func (r *Runner) Start() {
	for i := 0; i < r.workers; i++ {
		r.wg.Add(1)
		go func() {
			defer r.wg.Done()
			for j := range r.queue {
				tasksQueued.Dec()
				r.run(j)
			}
		}()
	}
	r.logger.Info("workflow runner started", slog.Int("workers", r.workers))
}

// Submit queues task, blocking until there is room or ctx is done. The task
// runs on a background context that keeps only the logging identity of ctx.
func (r *Runner) Submit(ctx context.Context, task Task) error {
	r.mu.RLock()
	defer r.mu.RUnlock()

	if r.closed {
		return ErrStopped
	}

	tasksQueued.Inc()
	select {
	case r.queue <- job{ctx: logger.Detach(ctx), task: task}:
		return nil
	case <-ctx.Done():
		tasksQueued.Dec()
		return fmt.Errorf("submit %s task: %w", task.Kind(), ctx.Err())
	}
}

// Stop stops accepting tasks and waits for queued and running ones to finish
// or for ctx to be done.
func (r *Runner) Stop(ctx context.Context) error {
	r.mu.Lock()
	if !r.closed {
		r.closed = true
		close(r.queue)
	}
	r.mu.Unlock()

	done := make(chan struct{})
	go func() {
		r.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		r.logger.Info("workflow runner stopped")
		return nil
	case <-ctx.Done():
		return fmt.Errorf("wait for workflow tasks: %w", ctx.Err())
	}
}

func (r *Runner) run(j job) {
	start := time.Now()
	kind := j.task.Kind()

	log := logger.WithContext(j.ctx, r.logger).With(
		slog.String("task", kind),
		slog.Int64("owner_id", j.task.Owner()),
	)
	ctx := logger.NewContext(j.ctx, log)

	outcome := outcomeSuccess
	defer func() {
		if rec := recover(); rec != nil {
			outcome = outcomePanic
			log.Error("workflow task panicked",
				slog.Any("panic", rec),
				slog.String("stack", string(debug.Stack())),
			)
		}
		tasksTotal.WithLabelValues(kind, outcome).Inc()
		taskDuration.WithLabelValues(kind).Observe(time.Since(start).Seconds())
	}()

	if err := r.execute(ctx, j.task); err != nil {
		outcome = outcomeFailure
		log.ErrorContext(ctx, "workflow task failed", slog.String("error", err.Error()))
		return
	}

	log.InfoContext(ctx, "workflow task completed", slog.Duration("duration", time.Since(start)))
}

func (r *Runner) execute(ctx context.Context, task Task) error {
	sess, err := r.sessions.Acquire(ctx)
	if err != nil {
		return err
	}
	defer sess.Release()

	return r.exec.Execute(ctx, sess, task)
}
