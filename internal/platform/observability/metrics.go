package observability

import (
	"context"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"gorm.io/gorm"

	"github.com/yungbote/casefile-backend/internal/domain/jobs"
	"github.com/yungbote/casefile-backend/internal/platform/envutil"
	"github.com/yungbote/casefile-backend/internal/platform/logger"
)

// Pinger is anything with a health round trip, such as the cache store.
type Pinger interface {
	Ping(ctx context.Context) error
}

// Metrics holds the process collectors. Every method is safe on a nil
// receiver so call sites need not check Enabled.
type Metrics struct {
	reg *prometheus.Registry

	apiRequests *prometheus.CounterVec
	apiLatency  *prometheus.HistogramVec
	apiInflight prometheus.Gauge

	searchLatency *prometheus.HistogramVec
	searchTotals  *prometheus.CounterVec
	bulkItems     *prometheus.CounterVec
	activityRows  *prometheus.CounterVec
	accessDenied  *prometheus.CounterVec
	revisions     *prometheus.CounterVec
	jobDuration   *prometheus.HistogramVec
	graphMirror   *prometheus.CounterVec

	queueDepth *prometheus.GaugeVec
	pgStats    *prometheus.GaugeVec
	redisUp    prometheus.Gauge
	redisPing  prometheus.Gauge
}

var (
	initOnce sync.Once
	instance *Metrics
)

func Enabled() bool {
	return envutil.Bool("METRICS_ENABLED", false)
}

func Current() *Metrics {
	return instance
}

func scrapeInterval() time.Duration {
	d := envutil.Duration("METRICS_SCRAPE_INTERVAL_SECONDS", 10*time.Second)
	if d <= 0 {
		return 10 * time.Second
	}
	return d
}

// Init returns nil unless METRICS_ENABLED is set.
func Init(log *logger.Logger) *Metrics {
	if !Enabled() {
		return nil
	}
	initOnce.Do(func() {
		instance = New()
		log.Info("metrics enabled")
	})
	return instance
}

// New builds a Metrics on a private registry.
func New() *Metrics {
	reg := prometheus.NewRegistry()
	m := &Metrics{
		reg: reg,
		apiRequests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "cf_api_requests_total",
			Help: "Total API requests by method/route/status.",
		}, []string{"method", "route", "status"}),
		apiLatency: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "cf_api_request_duration_seconds",
			Help:    "API request latency in seconds by method/route.",
			Buckets: []float64{0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2, 5, 10, 30},
		}, []string{"method", "route"}),
		apiInflight: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "cf_api_inflight_requests",
			Help: "In-flight API requests.",
		}),
		searchLatency: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "cf_search_duration_seconds",
			Help:    "Search latency by entity kind.",
			Buckets: prometheus.DefBuckets,
		}, []string{"kind"}),
		searchTotals: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "cf_search_totals_total",
			Help: "Searches by entity kind and total type (exact/estimated).",
		}, []string{"kind", "total_type"}),
		bulkItems: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "cf_bulk_items_total",
			Help: "Bulk update items by kind and outcome.",
		}, []string{"kind", "outcome"}),
		activityRows: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "cf_activity_rows_total",
			Help: "Activity rows written by action and status.",
		}, []string{"action", "status"}),
		accessDenied: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "cf_access_denied_total",
			Help: "Denied entity operations by kind and operation.",
		}, []string{"kind", "op"}),
		revisions: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "cf_revisions_total",
			Help: "History revisions appended by kind.",
		}, []string{"kind"}),
		jobDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "cf_job_duration_seconds",
			Help:    "Job handler duration by type and final status.",
			Buckets: []float64{0.1, 0.5, 1, 5, 15, 60, 300, 900, 3600},
		}, []string{"job_type", "status"}),
		graphMirror: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "cf_graph_mirror_writes_total",
			Help: "Relationship graph mirror writes by outcome.",
		}, []string{"op", "outcome"}),
		queueDepth: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Name: "cf_job_queue_depth",
			Help: "Job runs by status.",
		}, []string{"status"}),
		pgStats: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Name: "cf_postgres_pool",
			Help: "database/sql pool statistics.",
		}, []string{"stat"}),
		redisUp: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "cf_cache_up",
			Help: "1 when the cache store answered the last ping.",
		}),
		redisPing: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "cf_cache_ping_seconds",
			Help: "Last cache ping round trip.",
		}),
	}
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
		m.apiRequests, m.apiLatency, m.apiInflight,
		m.searchLatency, m.searchTotals, m.bulkItems, m.activityRows,
		m.accessDenied, m.revisions, m.jobDuration, m.graphMirror,
		m.queueDepth, m.pgStats, m.redisUp, m.redisPing,
	)
	return m
}

// Handler serves the registry in the Prometheus text format.
func (m *Metrics) Handler() http.Handler {
	if m == nil {
		return http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
			w.WriteHeader(http.StatusServiceUnavailable)
		})
	}
	return promhttp.HandlerFor(m.reg, promhttp.HandlerOpts{})
}

// Registry exposes the underlying registry for tests.
func (m *Metrics) Registry() *prometheus.Registry {
	if m == nil {
		return nil
	}
	return m.reg
}

func (m *Metrics) ObserveAPI(method, route, status string, dur time.Duration) {
	if m == nil {
		return
	}
	m.apiRequests.WithLabelValues(method, route, status).Inc()
	m.apiLatency.WithLabelValues(method, route).Observe(dur.Seconds())
}

func (m *Metrics) ApiInflightInc() {
	if m != nil {
		m.apiInflight.Inc()
	}
}

func (m *Metrics) ApiInflightDec() {
	if m != nil {
		m.apiInflight.Dec()
	}
}

func (m *Metrics) ObserveSearch(kind, totalType string, dur time.Duration) {
	if m == nil {
		return
	}
	m.searchLatency.WithLabelValues(kind).Observe(dur.Seconds())
	m.searchTotals.WithLabelValues(kind, totalType).Inc()
}

func (m *Metrics) AddBulkItems(kind, outcome string, n int) {
	if m == nil || n <= 0 {
		return
	}
	m.bulkItems.WithLabelValues(kind, outcome).Add(float64(n))
}

func (m *Metrics) IncActivity(action, status string) {
	if m != nil {
		m.activityRows.WithLabelValues(action, status).Inc()
	}
}

func (m *Metrics) IncAccessDenied(kind, op string) {
	if m != nil {
		m.accessDenied.WithLabelValues(kind, op).Inc()
	}
}

func (m *Metrics) IncRevision(kind string) {
	if m != nil {
		m.revisions.WithLabelValues(kind).Inc()
	}
}

func (m *Metrics) ObserveJob(jobType, status string, dur time.Duration) {
	if m != nil {
		m.jobDuration.WithLabelValues(jobType, status).Observe(dur.Seconds())
	}
}

func (m *Metrics) IncGraphMirror(op, outcome string) {
	if m != nil {
		m.graphMirror.WithLabelValues(op, outcome).Inc()
	}
}

func (m *Metrics) StartPostgresCollector(ctx context.Context, log *logger.Logger, db *gorm.DB) {
	if m == nil || db == nil {
		return
	}
	go tick(ctx, scrapeInterval(), func() {
		sqlDB, err := db.DB()
		if err != nil {
			log.Warn("metrics: postgres stats unavailable", "error", err)
			return
		}
		stats := sqlDB.Stats()
		m.pgStats.WithLabelValues("open_connections").Set(float64(stats.OpenConnections))
		m.pgStats.WithLabelValues("in_use").Set(float64(stats.InUse))
		m.pgStats.WithLabelValues("idle").Set(float64(stats.Idle))
		m.pgStats.WithLabelValues("wait_count").Set(float64(stats.WaitCount))
		m.pgStats.WithLabelValues("wait_duration_seconds").Set(stats.WaitDuration.Seconds())
		m.pgStats.WithLabelValues("max_open_connections").Set(float64(stats.MaxOpenConnections))
	})
}

func (m *Metrics) StartCacheCollector(ctx context.Context, log *logger.Logger, store Pinger) {
	if m == nil || store == nil {
		return
	}
	go tick(ctx, scrapeInterval(), func() {
		start := time.Now()
		if err := store.Ping(ctx); err != nil {
			m.redisUp.Set(0)
			log.Warn("metrics: cache ping failed", "error", err)
			return
		}
		m.redisUp.Set(1)
		m.redisPing.Set(time.Since(start).Seconds())
	})
}

func (m *Metrics) StartJobQueueCollector(ctx context.Context, log *logger.Logger, db *gorm.DB) {
	if m == nil || db == nil {
		return
	}
	statuses := []string{jobs.StatusQueued, jobs.StatusRunning, jobs.StatusSucceeded, jobs.StatusFailed, jobs.StatusCanceled}
	go tick(ctx, scrapeInterval(), func() {
		var rows []struct {
			Status string
			Count  int64
		}
		if err := db.WithContext(ctx).
			Model(&jobs.JobRun{}).
			Select("status, count(*) as count").
			Group("status").
			Scan(&rows).Error; err != nil {
			log.Warn("metrics: job queue depth query failed", "error", err)
			return
		}
		for _, s := range statuses {
			m.queueDepth.WithLabelValues(s).Set(0)
		}
		for _, row := range rows {
			status := strings.TrimSpace(row.Status)
			if status == "" {
				status = "unknown"
			}
			m.queueDepth.WithLabelValues(status).Set(float64(row.Count))
		}
	})
}

func tick(ctx context.Context, interval time.Duration, fn func()) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			fn()
		}
	}
}
