package database

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestConnectBackoff_ExponentialWithJitter(t *testing.T) {
	for attempt := 0; attempt < 3; attempt++ {
		base := connectBaseWait << attempt
		minExpected := time.Duration(float64(base) * (1 - retryJitterFraction))
		maxExpected := time.Duration(float64(base) * (1 + retryJitterFraction))

		for i := 0; i < 20; i++ {
			d := connectBackoff(attempt)
			assert.GreaterOrEqual(t, d, minExpected)
			assert.LessOrEqual(t, d, maxExpected)
		}
	}
}

func TestConnectBackoff_NegativeAttempt(t *testing.T) {
	d := connectBackoff(-1)
	assert.GreaterOrEqual(t, d, time.Duration(float64(connectBaseWait)*(1-retryJitterFraction)))
	assert.LessOrEqual(t, d, time.Duration(float64(connectBaseWait)*(1+retryJitterFraction)))
}

func TestPostgresConfig_DSN(t *testing.T) {
	cfg := PostgresConfig{Host: "db", Port: 5433, User: "drew", Password: "pw", DBName: "crm", SSLMode: "disable"}
	assert.Equal(t, "postgres://drew:pw@db:5433/crm?sslmode=disable", cfg.DSN())
}
