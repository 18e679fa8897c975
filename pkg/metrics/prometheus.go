package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Recorder implements domain repository.Metrics using Prometheus.
type Recorder struct {
	cacheHits      *prometheus.CounterVec
	cacheMisses    *prometheus.CounterVec
	sourceFailures *prometheus.CounterVec
	staleServed    *prometheus.CounterVec
	storedBars     prometheus.Gauge
	latency        *prometheus.HistogramVec
}

// New creates a new Prometheus metrics recorder.
func New() *Recorder {
	return &Recorder{
		cacheHits: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "marketlab_cache_hits_total",
				Help: "Total historical cache hits",
			},
			[]string{"symbol"},
		),
		cacheMisses: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "marketlab_cache_misses_total",
				Help: "Total historical cache misses",
			},
			[]string{"symbol"},
		),
		sourceFailures: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "marketlab_source_failures_total",
				Help: "Total data source fetch failures",
			},
			[]string{"source"},
		),
		staleServed: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "marketlab_stale_served_total",
				Help: "Total lookups answered with a stale cache entry",
			},
			[]string{"symbol"},
		),
		storedBars: promauto.NewGauge(
			prometheus.GaugeOpts{
				Name: "marketlab_stored_bars",
				Help: "Total bars held in the historical store",
			},
		),
		latency: promauto.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "marketlab_operation_duration_seconds",
				Help:    "Duration of fetch/train/backtest operations in seconds",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"operation"},
		),
	}
}

// RecordCacheHit records a cache hit for a symbol.
func (r *Recorder) RecordCacheHit(symbol string) {
	r.cacheHits.WithLabelValues(symbol).Inc()
}

// RecordCacheMiss records a cache miss for a symbol.
func (r *Recorder) RecordCacheMiss(symbol string) {
	r.cacheMisses.WithLabelValues(symbol).Inc()
}

// RecordSourceFailure records one failed source fetch.
func (r *Recorder) RecordSourceFailure(source string) {
	r.sourceFailures.WithLabelValues(source).Inc()
}

// RecordStaleServed records a stale entry served after source exhaustion.
func (r *Recorder) RecordStaleServed(symbol string) {
	r.staleServed.WithLabelValues(symbol).Inc()
}

// RecordStoredBars records the total stored bar count.
func (r *Recorder) RecordStoredBars(count int) {
	r.storedBars.Set(float64(count))
}

// RecordLatency records operation latency in seconds.
func (r *Recorder) RecordLatency(op string, seconds float64) {
	r.latency.WithLabelValues(op).Observe(seconds)
}
