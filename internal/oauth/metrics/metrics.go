// Package metrics exposes the authorization server's Prometheus collectors.
// A nil *Metrics is valid and records nothing.
package metrics

import (
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "oauthd"

type Metrics struct {
	registry *prometheus.Registry

	grants        *prometheus.CounterVec
	reused        *prometheus.CounterVec
	retries       *prometheus.CounterVec
	failures      *prometheus.CounterVec
	codesIssued   prometheus.Counter
	revocations   prometheus.Counter
	introspection *prometheus.CounterVec
	housekeeping  *prometheus.CounterVec

	httpRequests *prometheus.CounterVec
	httpDuration *prometheus.HistogramVec
}

// New registers every collector on a fresh registry, together with the Go
// runtime and process collectors.
func New() (*Metrics, error) {
	m := &Metrics{
		registry: prometheus.NewRegistry(),

		grants: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "grants_total",
			Help:      "Access tokens issued, by grant type.",
		}, []string{"grant_type"}),

		reused: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "tokens_reused_total",
			Help:      "Grants answered with an existing token instead of a new one.",
		}, []string{"grant_type"}),

		retries: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "grant_retries_total",
			Help:      "Grant units of work retried after a storage conflict.",
		}, []string{"grant_type"}),

		failures: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "grant_failures_total",
			Help:      "Failed grants, by grant type and OAuth error code.",
		}, []string{"grant_type", "error"}),

		codesIssued: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "authorization_codes_issued_total",
			Help:      "Authorization codes issued.",
		}),

		revocations: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "revocations_total",
			Help:      "Access tokens revoked.",
		}),

		introspection: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "introspections_total",
			Help:      "Introspection requests, by result.",
		}, []string{"active"}),

		housekeeping: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "housekeeping_deleted_total",
			Help:      "Expired rows removed by housekeeping, by table.",
		}, []string{"table"}),

		httpRequests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "http_requests_total",
			Help:      "HTTP requests processed.",
		}, []string{"route", "method", "code"}),

		httpDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "http_request_duration_seconds",
			Help:      "HTTP request latency.",
			Buckets:   prometheus.DefBuckets,
		}, []string{"route", "method"}),
	}

	for _, c := range []prometheus.Collector{
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
		m.grants, m.reused, m.retries, m.failures, m.codesIssued,
		m.revocations, m.introspection, m.housekeeping,
		m.httpRequests, m.httpDuration,
	} {
		if err := m.registry.Register(c); err != nil {
			var are prometheus.AlreadyRegisteredError
			if !errors.As(err, &are) {
				return nil, err
			}
		}
	}

	return m, nil
}

// Registry is the registry all collectors are registered on.
func (m *Metrics) Registry() *prometheus.Registry {
	return m.registry
}

// Handler serves the registry in the Prometheus exposition format.
func (m *Metrics) Handler() http.Handler {
	if m == nil {
		return http.NotFoundHandler()
	}
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{Registry: m.registry})
}

func (m *Metrics) GrantIssued(grantType string) {
	if m != nil {
		m.grants.WithLabelValues(grantType).Inc()
	}
}

func (m *Metrics) TokenReused(grantType string) {
	if m != nil {
		m.reused.WithLabelValues(grantType).Inc()
	}
}

func (m *Metrics) GrantRetried(grantType string) {
	if m != nil {
		m.retries.WithLabelValues(grantType).Inc()
	}
}

func (m *Metrics) GrantFailed(grantType, code string) {
	if m != nil {
		m.failures.WithLabelValues(grantType, code).Inc()
	}
}

func (m *Metrics) CodeIssued() {
	if m != nil {
		m.codesIssued.Inc()
	}
}

func (m *Metrics) TokenRevoked() {
	if m != nil {
		m.revocations.Inc()
	}
}

func (m *Metrics) Introspected(active bool) {
	if m != nil {
		m.introspection.WithLabelValues(strconv.FormatBool(active)).Inc()
	}
}

func (m *Metrics) HousekeepingDeleted(table string, n int64) {
	if m != nil && n > 0 {
		m.housekeeping.WithLabelValues(table).Add(float64(n))
	}
}

// HTTPMiddleware records request counts and latency under a fixed route
// label, so path parameters never explode label cardinality.
func (m *Metrics) HTTPMiddleware(route string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		if m == nil {
			return next
		}
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()
			rw := &statusWriter{ResponseWriter: w, status: http.StatusOK}
			next.ServeHTTP(rw, r)

			m.httpRequests.WithLabelValues(route, r.Method, strconv.Itoa(rw.status)).Inc()
			m.httpDuration.WithLabelValues(route, r.Method).Observe(time.Since(start).Seconds())
		})
	}
}

type statusWriter struct {
	http.ResponseWriter
	status int
}

func (w *statusWriter) WriteHeader(code int) {
	w.status = code
	w.ResponseWriter.WriteHeader(code)
}
