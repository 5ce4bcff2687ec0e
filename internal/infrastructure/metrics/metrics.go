package metrics

import (
	"net/http"
	"strconv"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"vulntrack/internal/domain/authz"
)

const namespace = "vulntrack"

// Collector owns every vulntrack metric and the registry they live in.
type Collector struct {
	registry *prometheus.Registry

	authzDecisions     *prometheus.CounterVec
	authzCache         *prometheus.CounterVec
	transitions        *prometheus.CounterVec
	validationFailures *prometheus.CounterVec
	httpRequests       *prometheus.CounterVec
	httpDuration       *prometheus.HistogramVec
}

// New builds a collector on a fresh registry that also carries the Go
// runtime and process collectors.
func New() *Collector {
	c := &Collector{
		registry: prometheus.NewRegistry(),
		authzDecisions: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "authz_decisions_total",
			Help:      "Authorization decisions by level and result.",
		}, []string{"level", "result"}),
		authzCache: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "authz_cache_total",
			Help:      "Policy cache lookups by outcome.",
		}, []string{"result"}),
		transitions: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "treatment_transitions_total",
			Help:      "Treatment entries appended, by new status.",
		}, []string{"status"}),
		validationFailures: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "validation_failures_total",
			Help:      "Rejected mutations by failed guard.",
		}, []string{"code"}),
		httpRequests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "http_requests_total",
			Help:      "Total number of HTTP requests.",
		}, []string{"method", "route", "status"}),
		httpDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "http_request_duration_seconds",
			Help:      "HTTP request latencies in seconds.",
			Buckets:   prometheus.DefBuckets,
		}, []string{"method", "route"}),
	}

	c.registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
		c.authzDecisions,
		c.authzCache,
		c.transitions,
		c.validationFailures,
		c.httpRequests,
		c.httpDuration,
	)
	return c
}

func (c *Collector) Handler() http.Handler {
	return promhttp.HandlerFor(c.registry, promhttp.HandlerOpts{Registry: c.registry})
}

func (c *Collector) Registry() *prometheus.Registry { return c.registry }

func (c *Collector) ObserveDecision(level authz.Level, allowed bool) {
	result := "deny"
	if allowed {
		result = "allow"
	}
	c.authzDecisions.WithLabelValues(string(level), result).Inc()
}

func (c *Collector) ObserveCache(result string) {
	c.authzCache.WithLabelValues(result).Inc()
}

func (c *Collector) ObserveTransition(status string) {
	c.transitions.WithLabelValues(status).Inc()
}

func (c *Collector) ObserveValidationFailure(code string) {
	c.validationFailures.WithLabelValues(code).Inc()
}

// ObserveRequest records one served request. route is the matched pattern,
// not the raw path, so ids do not explode cardinality.
func (c *Collector) ObserveRequest(method, route string, status int, seconds float64) {
	c.httpRequests.WithLabelValues(method, route, strconv.Itoa(status)).Inc()
	c.httpDuration.WithLabelValues(method, route).Observe(seconds)
}
