package database

import (
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/prometheus/client_golang/prometheus"
)

// PoolStatsCollector exports pgxpool statistics. Background workflows hold a
// connection each, so acquired and empty-acquire counts show queue pressure.
type PoolStatsCollector struct {
	pool    *pgxpool.Pool
	service string

	acquiredConns *prometheus.Desc
	idleConns     *prometheus.Desc
	totalConns    *prometheus.Desc
	maxConns      *prometheus.Desc
	acquireCount  *prometheus.Desc
	emptyAcquires *prometheus.Desc
	acquireTime   *prometheus.Desc
}

// NewPoolStatsCollector creates a collector for pool.
func NewPoolStatsCollector(pool *pgxpool.Pool, service string) *PoolStatsCollector {
	labels := []string{"service"}
	desc := func(name, help string) *prometheus.Desc {
		return prometheus.NewDesc(name, help, labels, nil)
	}
	return &PoolStatsCollector{
		pool:          pool,
		service:       service,
		acquiredConns: desc("db_pool_acquired_connections", "Number of currently acquired connections"),
		idleConns:     desc("db_pool_idle_connections", "Number of currently idle connections"),
		totalConns:    desc("db_pool_total_connections", "Total number of connections in the pool"),
		maxConns:      desc("db_pool_max_connections", "Maximum number of connections allowed"),
		acquireCount:  desc("db_pool_acquire_count_total", "Total number of connection acquires"),
		emptyAcquires: desc("db_pool_empty_acquire_count_total", "Total number of acquires that had to wait for a connection"),
		acquireTime:   desc("db_pool_acquire_duration_seconds_total", "Total time spent acquiring connections in seconds"),
	}
}

// Describe implements prometheus.Collector.
func (c *PoolStatsCollector) Describe(ch chan<- *prometheus.Desc) {
	ch <- c.acquiredConns
	ch <- c.idleConns
	ch <- c.totalConns
	ch <- c.maxConns
	ch <- c.acquireCount
	ch <- c.emptyAcquires
	ch <- c.acquireTime
}

// Collect implements prometheus.Collector.
func (c *PoolStatsCollector) Collect(ch chan<- prometheus.Metric) {
	stat := c.pool.Stat()

	gauge := func(d *prometheus.Desc, v float64) {
		ch <- prometheus.MustNewConstMetric(d, prometheus.GaugeValue, v, c.service)
	}
	counter := func(d *prometheus.Desc, v float64) {
		ch <- prometheus.MustNewConstMetric(d, prometheus.CounterValue, v, c.service)
	}

	gauge(c.acquiredConns, float64(stat.AcquiredConns()))
	gauge(c.idleConns, float64(stat.IdleConns()))
	gauge(c.totalConns, float64(stat.TotalConns()))
	gauge(c.maxConns, float64(stat.MaxConns()))
	counter(c.acquireCount, float64(stat.AcquireCount()))
	counter(c.emptyAcquires, float64(stat.EmptyAcquireCount()))
	counter(c.acquireTime, stat.AcquireDuration().Seconds())
}

// RegisterPoolMetrics registers a pool collector with the default registry.
func RegisterPoolMetrics(pool *pgxpool.Pool, service string) {
	prometheus.MustRegister(NewPoolStatsCollector(pool, service))
}
