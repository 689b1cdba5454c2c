package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Collector provides application metrics collection
type Collector struct {
	// API Metrics
	APIRequestsTotal   *prometheus.CounterVec
	APIRequestDuration *prometheus.HistogramVec
	APIErrorsTotal     *prometheus.CounterVec

	// GeoQuery Metrics
	GeoSourceRequestsTotal *prometheus.CounterVec
	GeoSourceDuration      *prometheus.HistogramVec
	GeoSourceErrorsTotal   *prometheus.CounterVec

	// Extraction Metrics
	ExtractionRequestsTotal prometheus.Counter
	ExtractionDuration      prometheus.Histogram
	ExtractionErrorsTotal   *prometheus.CounterVec
	DocumentFetchBytes      prometheus.Histogram

	// Rule Cache Metrics
	CacheHitsTotal   prometheus.Counter
	CacheMissesTotal *prometheus.CounterVec

	// Database Metrics
	DBQueryDuration  *prometheus.HistogramVec
	DBConnectionPool *prometheus.GaugeVec
	DBErrorsTotal    *prometheus.CounterVec
}

// NewCollector creates a new metrics collector
func NewCollector(namespace string) *Collector {
	return &Collector{
		APIRequestsTotal: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "api_requests_total",
				Help:      "Total number of API requests by endpoint, method, and status",
			},
			[]string{"endpoint", "method", "status"},
		),

		APIRequestDuration: promauto.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Name:      "api_request_duration_seconds",
				Help:      "API request duration in seconds",
				Buckets:   []float64{0.01, 0.05, 0.1, 0.25, 0.5, 1.0, 2.5, 5.0, 10.0, 30.0},
			},
			[]string{"endpoint"},
		),

		APIErrorsTotal: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "api_errors_total",
				Help:      "Total number of API errors by type",
			},
			[]string{"error_type", "endpoint"},
		),

		GeoSourceRequestsTotal: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "geo_source_requests_total",
				Help:      "Total number of geospatial source queries by source and outcome",
			},
			[]string{"source", "status"},
		),

		GeoSourceDuration: promauto.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Name:      "geo_source_duration_seconds",
				Help:      "Geospatial source query duration in seconds",
				Buckets:   []float64{0.05, 0.1, 0.25, 0.5, 1.0, 2.5, 5.0, 10.0, 20.0},
			},
			[]string{"source"},
		),

		GeoSourceErrorsTotal: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "geo_source_errors_total",
				Help:      "Total number of geospatial source failures replaced by neutral fallbacks",
			},
			[]string{"source"},
		),

		ExtractionRequestsTotal: promauto.NewCounter(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "extraction_requests_total",
				Help:      "Total number of structured rule extractions attempted",
			},
		),

		ExtractionDuration: promauto.NewHistogram(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Name:      "extraction_duration_seconds",
				Help:      "End-to-end rule extraction duration in seconds",
				Buckets:   []float64{1, 2.5, 5, 10, 20, 30, 60, 120},
			},
		),

		ExtractionErrorsTotal: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "extraction_errors_total",
				Help:      "Total number of extraction failures by type",
			},
			[]string{"error_type"},
		),

		DocumentFetchBytes: promauto.NewHistogram(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Name:      "document_fetch_bytes",
				Help:      "Size of fetched règlement documents in bytes",
				Buckets:   prometheus.ExponentialBuckets(64*1024, 4, 8),
			},
		),

		CacheHitsTotal: promauto.NewCounter(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "rule_cache_hits_total",
				Help:      "Total number of regulatory cache hits with usable signal",
			},
		),

		CacheMissesTotal: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "rule_cache_misses_total",
				Help:      "Total number of regulatory cache misses by reason",
			},
			[]string{"reason"}, // "absent", "expired", "no_signal"
		),

		DBQueryDuration: promauto.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Name:      "db_query_duration_seconds",
				Help:      "Database query duration in seconds by query type",
				Buckets:   []float64{0.001, 0.002, 0.005, 0.01, 0.02, 0.05, 0.1, 0.2, 0.5},
			},
			[]string{"query_type"},
		),

		DBConnectionPool: promauto.NewGaugeVec(
			prometheus.GaugeOpts{
				Namespace: namespace,
				Name:      "db_connection_pool",
				Help:      "Database connection pool statistics",
			},
			[]string{"state"}, // "in_use", "idle", "total"
		),

		DBErrorsTotal: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "db_errors_total",
				Help:      "Total number of database errors by type",
			},
			[]string{"error_type"},
		),
	}
}

// Timer provides timing functionality for operations
type Timer struct {
	start    time.Time
	observer prometheus.Observer
}

// NewTimer creates a new timer
func (c *Collector) NewTimer(histogram prometheus.Observer) *Timer {
	return &Timer{
		start:    time.Now(),
		observer: histogram,
	}
}

// ObserveDuration records the elapsed time since timer creation
func (t *Timer) ObserveDuration() time.Duration {
	duration := time.Since(t.start)
	if t.observer != nil {
		t.observer.Observe(duration.Seconds())
	}
	return duration
}

// RecordAPIRequest increments API request counter
func (c *Collector) RecordAPIRequest(endpoint, method, status string) {
	c.APIRequestsTotal.WithLabelValues(endpoint, method, status).Inc()
}

// RecordAPIError increments API error counter
func (c *Collector) RecordAPIError(errorType, endpoint string) {
	c.APIErrorsTotal.WithLabelValues(errorType, endpoint).Inc()
}

// RecordGeoSourceRequest records one source query outcome and its duration
func (c *Collector) RecordGeoSourceRequest(source, status string, duration time.Duration) {
	c.GeoSourceRequestsTotal.WithLabelValues(source, status).Inc()
	c.GeoSourceDuration.WithLabelValues(source).Observe(duration.Seconds())
}

// RecordGeoSourceError increments the per-source fallback counter
func (c *Collector) RecordGeoSourceError(source string) {
	c.GeoSourceErrorsTotal.WithLabelValues(source).Inc()
}

// RecordExtractionError increments extraction error counter
func (c *Collector) RecordExtractionError(errorType string) {
	c.ExtractionErrorsTotal.WithLabelValues(errorType).Inc()
}

// RecordCacheHit increments the cache hit counter
func (c *Collector) RecordCacheHit() {
	c.CacheHitsTotal.Inc()
}

// RecordCacheMiss increments the cache miss counter for a reason
func (c *Collector) RecordCacheMiss(reason string) {
	c.CacheMissesTotal.WithLabelValues(reason).Inc()
}

// RecordDBError increments database error counter
func (c *Collector) RecordDBError(errorType string) {
	c.DBErrorsTotal.WithLabelValues(errorType).Inc()
}

// UpdateDBConnectionPool updates database connection pool metrics
func (c *Collector) UpdateDBConnectionPool(inUse, idle, total int) {
	c.DBConnectionPool.WithLabelValues("in_use").Set(float64(inUse))
	c.DBConnectionPool.WithLabelValues("idle").Set(float64(idle))
	c.DBConnectionPool.WithLabelValues("total").Set(float64(total))
}
