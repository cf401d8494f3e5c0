package app

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/redis/go-redis/v9"

	"github.com/adebanjo23/DREW-AI-BACKEND/internal/config"
	"github.com/adebanjo23/DREW-AI-BACKEND/internal/credential"
	"github.com/adebanjo23/DREW-AI-BACKEND/internal/dispatch"
	"github.com/adebanjo23/DREW-AI-BACKEND/internal/drafting"
	"github.com/adebanjo23/DREW-AI-BACKEND/internal/event"
	"github.com/adebanjo23/DREW-AI-BACKEND/internal/google"
	handler "github.com/adebanjo23/DREW-AI-BACKEND/internal/handler/http"
	"github.com/adebanjo23/DREW-AI-BACKEND/internal/oauth"
	"github.com/adebanjo23/DREW-AI-BACKEND/internal/repository/postgres"
	redisrepo "github.com/adebanjo23/DREW-AI-BACKEND/internal/repository/redis"
	"github.com/adebanjo23/DREW-AI-BACKEND/internal/scheduler"
	"github.com/adebanjo23/DREW-AI-BACKEND/internal/service"
	"github.com/adebanjo23/DREW-AI-BACKEND/internal/workflow"
	"github.com/adebanjo23/DREW-AI-BACKEND/migrations"
	"github.com/adebanjo23/DREW-AI-BACKEND/pkg/database"
	"github.com/adebanjo23/DREW-AI-BACKEND/pkg/health"
	"github.com/adebanjo23/DREW-AI-BACKEND/pkg/httpclient"
	pkgkafka "github.com/adebanjo23/DREW-AI-BACKEND/pkg/kafka"
	"github.com/adebanjo23/DREW-AI-BACKEND/pkg/tracing"
)

const serviceName = "crm"

// App wires together all dependencies and runs the CRM service.
type App struct {
	cfg            *config.Config
	logger         *slog.Logger
	pool           *pgxpool.Pool
	rdb            *redis.Client
	producer       *pkgkafka.Producer
	runner         *workflow.Runner
	healthJob      *scheduler.HealthJob
	httpServer     *http.Server
	tracerShutdown func(context.Context) error
}

// repositories binds the workflow repositories to one database session.
func repositories(db database.DBTX) workflow.Repositories {
	return workflow.Repositories{
		Users:          postgres.NewUserRepository(db),
		Communications: postgres.NewCommunicationRepository(db),
		Appointments:   postgres.NewAppointmentRepository(db),
		Integrations:   postgres.NewIntegrationRepository(db),
	}
}

// NewApp creates a new application instance, initializing all dependencies.
func NewApp(cfg *config.Config, logger *slog.Logger) (*App, error) {
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	// Initialize OpenTelemetry tracing.
	tracerShutdown, err := tracing.InitTracer(ctx, tracing.Config{
		ServiceName:    serviceName,
		ServiceVersion: "0.1.0",
		Environment:    cfg.Environment,
		OTLPEndpoint:   cfg.OTELEndpoint,
		SampleRate:     cfg.OTELSampleRate,
		Enabled:        cfg.OTELEnabled,
	})
	if err != nil {
		return nil, fmt.Errorf("init tracer: %w", err)
	}

	// Initialize PostgreSQL connection pool.
	pgCfg := database.PostgresConfig{
		Host:            cfg.PostgresHost,
		Port:            cfg.PostgresPort,
		User:            cfg.PostgresUser,
		Password:        cfg.PostgresPass,
		DBName:          cfg.PostgresDB,
		SSLMode:         cfg.PostgresSSL,
		MaxConns:        cfg.DBMaxConns,
		MinConns:        cfg.DBMinConns,
		MaxConnLifetime: time.Duration(cfg.DBMaxConnLifetimeMins) * time.Minute,
		MaxConnIdleTime: time.Duration(cfg.DBMaxConnIdleTimeMins) * time.Minute,
	}

	pool, err := database.NewPostgresPool(ctx, &pgCfg, logger)
	if err != nil {
		return nil, fmt.Errorf("connect to postgres: %w", err)
	}
	logger.Info("connected to PostgreSQL",
		slog.String("host", cfg.PostgresHost),
		slog.Int("port", cfg.PostgresPort),
		slog.String("database", cfg.PostgresDB),
	)
	database.RegisterPoolMetrics(pool, serviceName)

	// Run database migrations.
	if err := database.RunMigrations(ctx, pool, migrations.FS, logger); err != nil {
		pool.Close()
		return nil, fmt.Errorf("run migrations: %w", err)
	}
	logger.Info("database migrations completed")

	if cfg.SlowQueryThresholdMs > 0 {
		database.SetSlowQueryLogging(time.Duration(cfg.SlowQueryThresholdMs)*time.Millisecond, logger)
	}

	// Refresh lock: Redis when several instances share the database,
	// otherwise an in-process keyed mutex.
	var (
		rdb    *redis.Client
		locker credential.Locker
	)
	if cfg.RedisEnabled {
		rdb, err = database.NewRedisClient(ctx, database.RedisConfig{
			Host:     cfg.RedisHost,
			Port:     cfg.RedisPort,
			Password: cfg.RedisPass,
			DB:       cfg.RedisDB,
			Timeout:  cfg.RedisTimeout,
			PoolSize: cfg.RedisPoolSize,
		}, logger)
		if err != nil {
			pool.Close()
			return nil, fmt.Errorf("connect to redis: %w", err)
		}
		locker = redisrepo.NewLocker(rdb, cfg.RefreshLockTTL)
	} else {
		locker = credential.NewKeyedMutex()
	}

	// Initialize Kafka producer. Domain events are skipped without brokers.
	var producer *pkgkafka.Producer
	if len(cfg.KafkaBrokers) > 0 {
		producer = pkgkafka.NewProducer(pkgkafka.DefaultProducerConfig(cfg.KafkaBrokers), logger)
		logger.Info("kafka producer initialized", slog.Any("brokers", cfg.KafkaBrokers))
	}
	eventProducer := event.NewProducer(producer, logger)

	// Outbound HTTP clients.
	oauthHTTP := &http.Client{Timeout: cfg.WebhookTimeout}
	webhookHTTP := httpclient.New(httpclient.Config{Timeout: cfg.WebhookTimeout, MaxConnsPerHost: 20})
	smsClient := httpclient.NewCircuitBreakerClient(webhookHTTP, httpclient.DefaultCircuitBreakerConfig("sms-webhook"), logger)
	dialClient := httpclient.NewCircuitBreakerClient(webhookHTTP, httpclient.DefaultCircuitBreakerConfig("dial-webhook"), logger)

	// Build the dependency graph.
	userRepo := postgres.NewUserRepository(pool)
	leadRepo := postgres.NewLeadRepository(pool)
	commRepo := postgres.NewCommunicationRepository(pool)
	summaryRepo := postgres.NewSummaryRepository(pool)
	integrationRepo := postgres.NewIntegrationRepository(pool)

	store := credential.NewStore(integrationRepo, credential.NewOAuthRefresher(oauthHTTP), locker, logger)
	googleClient := google.NewClient()
	coordinator := oauth.NewCoordinator(oauth.Config{
		ClientID:     cfg.GoogleClientID,
		ClientSecret: cfg.GoogleClientSecret,
		RedirectURL:  cfg.GoogleRedirectURI,
		HTTPClient:   oauthHTTP,
	}, googleClient, store, eventProducer, logger)

	drafter := drafting.NewDrafter(drafting.NewOpenAICompleter(cfg.OpenAIAPIKey, cfg.OpenAIModel))
	processor := workflow.NewProcessor(workflow.Dependencies{
		Repositories: repositories,
		Credentials:  store,
		Calendar:     googleClient,
		Drafter:      drafter,
		Mailer:       dispatch.NewMailer(googleClient, logger),
		SMS:          dispatch.NewSMSWebhook(smsClient, cfg.SMSWebhookURL, cfg.GHLKey, logger),
		Dialer:       dispatch.NewDialer(dialClient, cfg.DialWebhookURL, cfg.GHLKey, cfg.CallFromNumber, logger),
		Producer:     eventProducer,
		Call: workflow.CallSettings{
			DefaultAgentID:      cfg.DefaultAgentID,
			InboundVariablesURL: cfg.InboundVariablesWebhookURL,
		},
	})
	runner := workflow.NewRunner(database.PoolSessions{Pool: pool}, processor, workflow.RunnerConfig{
		Workers:   cfg.WorkflowWorkers,
		QueueSize: cfg.WorkflowQueueSize,
	}, logger)

	leadService := service.NewLeadService(leadRepo, commRepo, logger)
	services := handler.Services{
		OAuth:          coordinator,
		Workflows:      service.NewWorkflowService(leadService, runner, logger),
		Leads:          leadService,
		Communications: service.NewCommunicationService(userRepo, commRepo, logger),
		Summary:        service.NewSummaryService(userRepo, leadRepo, summaryRepo, logger),
		Calendar:       service.NewCalendarService(store, googleClient, logger),
	}

	healthJob := scheduler.NewHealthJob(integrationRepo, store, cfg.IntegrationCheckInterval, logger)

	// Health checks.
	healthHandler := health.NewHandler()
	healthHandler.RegisterCritical("postgres", func(ctx context.Context) error {
		return pool.Ping(ctx)
	})
	if rdb != nil {
		healthHandler.RegisterNonCritical("redis", func(ctx context.Context) error {
			return rdb.Ping(ctx).Err()
		})
	}
	if producer != nil {
		healthHandler.RegisterNonCritical("kafka", func(ctx context.Context) error {
			return producer.Ping(ctx)
		})
	}

	logger.Info("health checks registered", slog.Any("checks", healthHandler.Names()))

	// HTTP router.
	router := handler.NewRouter(services,
		handler.RateLimit{RPS: cfg.RateLimitRPS, Burst: cfg.RateLimitBurst},
		healthHandler, logger)

	httpServer := &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.HTTPPort),
		Handler:           router,
		ReadTimeout:       15 * time.Second,
		WriteTimeout:      35 * time.Second,
		IdleTimeout:       60 * time.Second,
		ReadHeaderTimeout: 10 * time.Second,
	}

	return &App{
		cfg:            cfg,
		logger:         logger,
		pool:           pool,
		rdb:            rdb,
		producer:       producer,
		runner:         runner,
		healthJob:      healthJob,
		httpServer:     httpServer,
		tracerShutdown: tracerShutdown,
	}, nil
}

// Run starts the workers, the health job and the HTTP server and blocks
// until the context is canceled.
func (a *App) Run(ctx context.Context) error {
	a.runner.Start()
	if err := a.healthJob.Start(); err != nil {
		return err
	}

	errCh := make(chan error, 1)

	go func() {
		a.logger.Info("starting HTTP server",
			slog.String("addr", a.httpServer.Addr),
		)
		if err := a.httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			errCh <- fmt.Errorf("http server: %w", err)
		}
	}()

	select {
	case <-ctx.Done():
		a.logger.Info("shutdown signal received")
	case err := <-errCh:
		_ = a.Shutdown()
		return err
	}

	return a.Shutdown()
}

// Shutdown gracefully stops all components in the correct order:
// 1. HTTP server (no new tasks are accepted)
// 2. Health job and workflow runner (queued tasks finish)
// 3. Tracer
// 4. Kafka producer, Redis client and PostgreSQL pool
func (a *App) Shutdown() error {
	a.logger.Info("shutting down application...")

	var errs []error

	// 1. Drain in-flight HTTP requests (5s budget).
	httpCtx, httpCancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer httpCancel()
	if err := a.httpServer.Shutdown(httpCtx); err != nil {
		a.logger.Error("http server shutdown error", slog.String("error", err.Error()))
		errs = append(errs, err)
	}

	// 2. Stop background work (20s budget for queued workflow tasks).
	a.healthJob.Stop()
	runnerCtx, runnerCancel := context.WithTimeout(context.Background(), 20*time.Second)
	defer runnerCancel()
	if err := a.runner.Stop(runnerCtx); err != nil {
		a.logger.Error("workflow runner shutdown error", slog.String("error", err.Error()))
		errs = append(errs, err)
	}

	// 3. Flush pending spans after the workers so task spans are captured.
	if a.tracerShutdown != nil {
		tracerCtx, tracerCancel := context.WithTimeout(context.Background(), 3*time.Second)
		defer tracerCancel()
		if err := a.tracerShutdown(tracerCtx); err != nil {
			a.logger.Error("tracer shutdown error", slog.String("error", err.Error()))
			errs = append(errs, err)
		}
	}

	// 4. Close connections.
	if a.producer != nil {
		if err := a.producer.Close(); err != nil {
			a.logger.Error("kafka producer close error", slog.String("error", err.Error()))
			errs = append(errs, err)
		}
	}
	if a.rdb != nil {
		if err := a.rdb.Close(); err != nil {
			a.logger.Error("redis close error", slog.String("error", err.Error()))
			errs = append(errs, err)
		}
	}
	a.pool.Close()

	a.logger.Info("application shutdown complete")
	return errors.Join(errs...)
}
