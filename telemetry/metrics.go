// Package telemetry provides Prometheus metrics, OpenTelemetry
// tracing, and correlation-id aware logging helpers.
package telemetry

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	once sync.Once

	// Counters
	AuthHandshakes      prometheus.Counter
	GuideFetches        prometheus.Counter
	CacheHits           prometheus.Counter
	CacheMisses         prometheus.Counter
	RecordingsStarted   prometheus.Counter
	RecordingsSucceeded prometheus.Counter
	RecordingsFailed    prometheus.Counter
	TaggingFallbacks    prometheus.Counter

	// Histograms (seconds)
	RecordDuration prometheus.Observer
)

// Init registers metrics (idempotent).
func Init() {
	once.Do(func() {
		AuthHandshakes = promauto.NewCounter(prometheus.CounterOpts{Name: "timefree_auth_handshakes_total", Help: "Number of completed authentication handshakes"})
		GuideFetches = promauto.NewCounter(prometheus.CounterOpts{Name: "timefree_guide_fetches_total", Help: "Number of program-guide network fetches issued"})
		CacheHits = promauto.NewCounter(prometheus.CounterOpts{Name: "timefree_guide_cache_hits_total", Help: "Number of guide lookups served from a fresh cache entry"})
		CacheMisses = promauto.NewCounter(prometheus.CounterOpts{Name: "timefree_guide_cache_misses_total", Help: "Number of guide lookups that needed a network fetch"})
		RecordingsStarted = promauto.NewCounter(prometheus.CounterOpts{Name: "timefree_recordings_started_total", Help: "Number of recording jobs started"})
		RecordingsSucceeded = promauto.NewCounter(prometheus.CounterOpts{Name: "timefree_recordings_succeeded_total", Help: "Number of recording jobs that produced a final file"})
		RecordingsFailed = promauto.NewCounter(prometheus.CounterOpts{Name: "timefree_recordings_failed_total", Help: "Number of recording jobs that failed"})
		TaggingFallbacks = promauto.NewCounter(prometheus.CounterOpts{Name: "timefree_tagging_fallbacks_total", Help: "Number of jobs that kept the raw recording after a tagging failure"})
		RecordDuration = promauto.NewHistogram(prometheus.HistogramOpts{Name: "timefree_record_duration_seconds", Help: "End-to-end recording job duration seconds", Buckets: prometheus.DefBuckets})
	})
}

// The Inc helpers are nil-guarded so library code records metrics
// whether or not Init has run (tests exercise packages directly).

func IncAuthHandshake() { inc(AuthHandshakes) }

func IncGuideFetch() { inc(GuideFetches) }

func IncCacheHit() { inc(CacheHits) }

func IncCacheMiss() { inc(CacheMisses) }

func IncRecordingStarted() { inc(RecordingsStarted) }

func IncRecordingSucceeded() { inc(RecordingsSucceeded) }

func IncRecordingFailed() { inc(RecordingsFailed) }

func IncTaggingFallback() { inc(TaggingFallbacks) }

func inc(c prometheus.Counter) {
	if c != nil {
		c.Inc()
	}
}

// ObserveRecordDuration records a job duration if metrics are up.
func ObserveRecordDuration(d time.Duration) {
	if RecordDuration != nil {
		RecordDuration.Observe(d.Seconds())
	}
}

// Correlation ID helpers ----------------------------------------------------

type corrKeyType struct{}

var corrKey corrKeyType

// WithCorrelation returns a new context embedding the correlation id.
func WithCorrelation(ctx context.Context, id string) context.Context {
	return context.WithValue(ctx, corrKey, id)
}

// GetCorrelation returns the correlation id or empty string.
func GetCorrelation(ctx context.Context) string {
	if s, ok := ctx.Value(corrKey).(string); ok {
		return s
	}
	return ""
}

// LoggerWithCorr returns a logger carrying the corr attribute if present.
func LoggerWithCorr(ctx context.Context) *slog.Logger {
	if id := GetCorrelation(ctx); id != "" {
		return slog.Default().With(slog.String("corr", id))
	}
	return slog.Default()
}
