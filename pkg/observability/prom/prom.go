// Package prom implements the observability hooks on top of Prometheus.
package prom

import (
	"context"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"github.com/matzehuels/relay/pkg/observability"
)

// Metrics records upstream HTTP calls, retry decisions and cache activity.
// A single value satisfies every hook interface, so main can register it
// for all three categories.
type Metrics struct {
	requests    *prometheus.CounterVec
	responses   *prometheus.CounterVec
	errors      *prometheus.CounterVec
	latency     *prometheus.HistogramVec
	retries     *prometheus.CounterVec
	retryDelay  *prometheus.HistogramVec
	giveUps     *prometheus.CounterVec
	cacheEvents *prometheus.CounterVec
}

var (
	_ observability.HTTPHooks  = (*Metrics)(nil)
	_ observability.RetryHooks = (*Metrics)(nil)
	_ observability.CacheHooks = (*Metrics)(nil)
)

// New registers the relay collectors with reg.
// Registering twice against the same registerer panics, as with promauto.
func New(reg prometheus.Registerer) *Metrics {
	f := promauto.With(reg)
	return &Metrics{
		requests: f.NewCounterVec(prometheus.CounterOpts{
			Name: "relay_upstream_requests_total",
			Help: "Total number of upstream HTTP requests",
		}, []string{"method", "host"}),
		responses: f.NewCounterVec(prometheus.CounterOpts{
			Name: "relay_upstream_responses_total",
			Help: "Total number of upstream HTTP responses by status code",
		}, []string{"method", "host", "code"}),
		errors: f.NewCounterVec(prometheus.CounterOpts{
			Name: "relay_upstream_errors_total",
			Help: "Total number of upstream transport errors",
		}, []string{"method", "host"}),
		latency: f.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "relay_upstream_latency_seconds",
			Help:    "Upstream request latency in seconds",
			Buckets: prometheus.DefBuckets,
		}, []string{"method", "host"}),
		retries: f.NewCounterVec(prometheus.CounterOpts{
			Name: "relay_retries_total",
			Help: "Total number of retried attempts by error kind",
		}, []string{"op", "kind"}),
		retryDelay: f.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "relay_retry_delay_seconds",
			Help:    "Delay applied before a retry",
			Buckets: []float64{0.1, 0.5, 1, 2, 4, 8, 16, 32, 60},
		}, []string{"kind"}),
		giveUps: f.NewCounterVec(prometheus.CounterOpts{
			Name: "relay_retry_giveups_total",
			Help: "Total number of logical requests that failed",
		}, []string{"op", "kind"}),
		cacheEvents: f.NewCounterVec(prometheus.CounterOpts{
			Name: "relay_cache_events_total",
			Help: "Cache hits, misses and writes",
		}, []string{"type", "event"}),
	}
}

func (m *Metrics) OnRequest(_ context.Context, method, host, _ string) {
	m.requests.WithLabelValues(method, host).Inc()
}

func (m *Metrics) OnResponse(_ context.Context, method, host, _ string, statusCode int, d time.Duration) {
	m.responses.WithLabelValues(method, host, statusClass(statusCode)).Inc()
	m.latency.WithLabelValues(method, host).Observe(d.Seconds())
}

func (m *Metrics) OnError(_ context.Context, method, host, _ string, _ error) {
	m.errors.WithLabelValues(method, host).Inc()
}

func (m *Metrics) OnRetry(_ context.Context, op string, _ int, kind string, delay time.Duration) {
	m.retries.WithLabelValues(op, kind).Inc()
	m.retryDelay.WithLabelValues(kind).Observe(delay.Seconds())
}

func (m *Metrics) OnGiveUp(_ context.Context, op string, _ int, kind string) {
	m.giveUps.WithLabelValues(op, kind).Inc()
}

func (m *Metrics) OnCacheHit(_ context.Context, keyType string) {
	m.cacheEvents.WithLabelValues(keyType, "hit").Inc()
}

func (m *Metrics) OnCacheMiss(_ context.Context, keyType string) {
	m.cacheEvents.WithLabelValues(keyType, "miss").Inc()
}

func (m *Metrics) OnCacheSet(_ context.Context, keyType string, _ int) {
	m.cacheEvents.WithLabelValues(keyType, "set").Inc()
}

// statusClass collapses status codes to "2xx", "4xx", ... to bound label
// cardinality.
func statusClass(code int) string {
	if code < 100 || code > 599 {
		return "other"
	}
	return string(rune('0'+code/100)) + "xx"
}
