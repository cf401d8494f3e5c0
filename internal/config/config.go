package config

import (
	"fmt"
	"net/url"
	"time"

	pkgconfig "github.com/adebanjo23/DREW-AI-BACKEND/pkg/config"
)

// Config holds all configuration for the CRM service.
type Config struct {
	Environment string `env:"ENVIRONMENT" envDefault:"development"`
	LogLevel    string `env:"LOG_LEVEL" envDefault:"info"`

	// HTTP server. RATE_LIMIT_RPS=0 turns the per-client API limit off.
	HTTPPort       int `env:"HTTP_PORT" envDefault:"8000"`
	RateLimitRPS   int `env:"RATE_LIMIT_RPS" envDefault:"20"`
	RateLimitBurst int `env:"RATE_LIMIT_BURST" envDefault:"40"`

	// PostgreSQL
	PostgresHost          string `env:"POSTGRES_HOST" envDefault:"localhost"`
	PostgresPort          int    `env:"POSTGRES_PORT" envDefault:"5432"`
	PostgresUser          string `env:"POSTGRES_USER" envDefault:"drew"`
	PostgresPass          string `env:"POSTGRES_PASSWORD" envDefault:"drew_secret"`
	PostgresDB            string `env:"POSTGRES_DB" envDefault:"drew_crm"`
	PostgresSSL           string `env:"POSTGRES_SSL_MODE" envDefault:"disable"`
	DBMaxConns            int32  `env:"DB_MAX_CONNS" envDefault:"25"`
	DBMinConns            int32  `env:"DB_MIN_CONNS" envDefault:"2"`
	DBMaxConnLifetimeMins int    `env:"DB_MAX_CONN_LIFETIME_MINUTES" envDefault:"60"`
	DBMaxConnIdleTimeMins int    `env:"DB_MAX_CONN_IDLE_TIME_MINUTES" envDefault:"30"`
	SlowQueryThresholdMs  int    `env:"LOG_SLOW_QUERY_MS" envDefault:"500"`

	// Redis backs the cross-instance refresh lock. When disabled the lock is
	// held in process.
	RedisEnabled   bool          `env:"REDIS_ENABLED" envDefault:"false"`
	RedisHost      string        `env:"REDIS_HOST" envDefault:"localhost"`
	RedisPort      int           `env:"REDIS_PORT" envDefault:"6379"`
	RedisPass      string        `env:"REDIS_PASSWORD" envDefault:""`
	RedisDB        int           `env:"REDIS_DB" envDefault:"0"`
	RedisTimeout   time.Duration `env:"REDIS_TIMEOUT" envDefault:"2s"`
	RedisPoolSize  int           `env:"REDIS_POOL_SIZE" envDefault:"10"`
	RefreshLockTTL time.Duration `env:"REFRESH_LOCK_TTL" envDefault:"30s"`

	// Kafka. An empty list disables domain events.
	KafkaBrokers []string `env:"KAFKA_BROKERS" envSeparator:","`

	// OpenTelemetry
	OTELEnabled    bool    `env:"OTEL_ENABLED" envDefault:"false"`
	OTELEndpoint   string  `env:"OTEL_EXPORTER_OTLP_ENDPOINT" envDefault:"localhost:4318"`
	OTELSampleRate float64 `env:"OTEL_SAMPLE_RATE" envDefault:"1.0"`

	// Google OAuth
	GoogleClientID     string `env:"GOOGLE_CLIENT_ID"`
	GoogleClientSecret string `env:"GOOGLE_CLIENT_SECRET"`
	GoogleRedirectURI  string `env:"GOOGLE_REDIRECT_URI" envDefault:"http://localhost:8000/api/v1/auth/google/callback"`

	// OpenAI
	OpenAIAPIKey string `env:"OPENAI_API_KEY"`
	OpenAIModel  string `env:"OPENAI_MODEL" envDefault:"gpt-4o"`

	// Outbound webhooks
	GHLKey                     string        `env:"GHL_KEY"`
	DialWebhookURL             string        `env:"DIAL_WEBHOOK_URL"`
	SMSWebhookURL              string        `env:"SMS_WEBHOOK_URL"`
	InboundVariablesWebhookURL string        `env:"INBOUND_VARIABLES_WEBHOOK_URL"`
	CallFromNumber             string        `env:"CALL_FROM_NUMBER"`
	DefaultAgentID             string        `env:"DEFAULT_AGENT_ID"`
	WebhookTimeout             time.Duration `env:"WEBHOOK_TIMEOUT" envDefault:"30s"`

	// Workflow runner
	WorkflowWorkers   int `env:"WORKFLOW_WORKERS" envDefault:"4"`
	WorkflowQueueSize int `env:"WORKFLOW_QUEUE_SIZE" envDefault:"100"`

	// Integration health job
	IntegrationCheckInterval time.Duration `env:"INTEGRATION_CHECK_INTERVAL" envDefault:"1h"`
}

// Load reads configuration from environment variables.
func Load() (*Config, error) {
	cfg := &Config{}
	if err := pkgconfig.Load(cfg); err != nil {
		return nil, fmt.Errorf("load crm config: %w", err)
	}
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// IsDevelopment reports whether the service runs in development mode.
func (c *Config) IsDevelopment() bool {
	return c.Environment == "development"
}

// validate checks configuration invariants.
func (c *Config) validate() error {
	if c.HTTPPort < 1 || c.HTTPPort > 65535 {
		return fmt.Errorf("invalid HTTP port: %d", c.HTTPPort)
	}
	if c.RateLimitRPS < 0 || c.RateLimitBurst < 0 {
		return fmt.Errorf("RATE_LIMIT_RPS and RATE_LIMIT_BURST must not be negative")
	}
	if c.RedisEnabled && c.RefreshLockTTL <= c.RedisTimeout {
		return fmt.Errorf("REFRESH_LOCK_TTL (%s) must exceed REDIS_TIMEOUT (%s)", c.RefreshLockTTL, c.RedisTimeout)
	}
	if c.PostgresHost == "" {
		return fmt.Errorf("POSTGRES_HOST is required")
	}
	if c.PostgresUser == "" {
		return fmt.Errorf("POSTGRES_USER is required")
	}
	if c.OTELSampleRate < 0 || c.OTELSampleRate > 1.0 {
		return fmt.Errorf("OTEL_SAMPLE_RATE must be between 0.0 and 1.0, got %f", c.OTELSampleRate)
	}
	if c.WorkflowWorkers < 1 {
		return fmt.Errorf("WORKFLOW_WORKERS must be at least 1, got %d", c.WorkflowWorkers)
	}
	if c.WorkflowQueueSize < 0 {
		return fmt.Errorf("WORKFLOW_QUEUE_SIZE must not be negative, got %d", c.WorkflowQueueSize)
	}
	if c.IntegrationCheckInterval <= 0 {
		return fmt.Errorf("INTEGRATION_CHECK_INTERVAL must be positive, got %s", c.IntegrationCheckInterval)
	}

	for name, rawURL := range map[string]string{
		"GOOGLE_REDIRECT_URI":           c.GoogleRedirectURI,
		"DIAL_WEBHOOK_URL":              c.DialWebhookURL,
		"SMS_WEBHOOK_URL":               c.SMSWebhookURL,
		"INBOUND_VARIABLES_WEBHOOK_URL": c.InboundVariablesWebhookURL,
	} {
		if rawURL == "" {
			continue
		}
		if _, err := url.ParseRequestURI(rawURL); err != nil {
			return fmt.Errorf("%s is not a valid URL: %w", name, err)
		}
	}

	// Outside development the integrations must be configured explicitly.
	if !c.IsDevelopment() {
		for name, v := range map[string]string{
			"GOOGLE_CLIENT_ID":     c.GoogleClientID,
			"GOOGLE_CLIENT_SECRET": c.GoogleClientSecret,
			"OPENAI_API_KEY":       c.OpenAIAPIKey,
		} {
			if v == "" {
				return fmt.Errorf("%s must be set in %q mode", name, c.Environment)
			}
		}
	}
	return nil
}
