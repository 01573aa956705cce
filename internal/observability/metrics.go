package observability

import (
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/spec-kit/exim-session/internal/domain"
	"github.com/spec-kit/exim-session/internal/session"
)

// Metrics holds the Prometheus collectors for the API and the session coordinator.
type Metrics struct {
	requests         *prometheus.CounterVec
	duration         *prometheus.HistogramVec
	errors           *prometheus.CounterVec
	validations      *prometheus.CounterVec
	broadcasts       *prometheus.CounterVec
	listenerFailures prometheus.Counter
	sessionEvents    *prometheus.CounterVec
}

// NewMetrics creates collectors and registers them with reg, reusing any
// already registered under the same name.
func NewMetrics(reg prometheus.Registerer) (*Metrics, error) {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}

	m := &Metrics{
		requests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "exim", Subsystem: "http", Name: "requests_total",
			Help: "HTTP requests partitioned by method, route and status.",
		}, []string{"method", "route", "status"}),
		duration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: "exim", Subsystem: "http", Name: "request_duration_seconds",
			Help:    "HTTP request latency in seconds.",
			Buckets: prometheus.DefBuckets,
		}, []string{"method", "route"}),
		errors: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "exim", Subsystem: "http", Name: "errors_total",
			Help: "Error responses partitioned by route, method and error code.",
		}, []string{"route", "method", "code"}),
		validations: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "exim", Subsystem: "session", Name: "validations_total",
			Help: "Session validity checks partitioned by credential kind and outcome.",
		}, []string{"kind", "outcome"}),
		broadcasts: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "exim", Subsystem: "session", Name: "expiry_broadcasts_total",
			Help: "Expiry fan-outs partitioned by credential kind.",
		}, []string{"kind"}),
		listenerFailures: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "exim", Subsystem: "session", Name: "listener_failures_total",
			Help: "Expiry listeners that returned an error or panicked.",
		}),
		sessionEvents: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "exim", Subsystem: "auth", Name: "events_total",
			Help: "Authentication events partitioned by type.",
		}, []string{"type"}),
	}

	var err error
	if m.requests, err = register(reg, m.requests); err != nil {
		return nil, err
	}
	if m.duration, err = register(reg, m.duration); err != nil {
		return nil, err
	}
	if m.errors, err = register(reg, m.errors); err != nil {
		return nil, err
	}
	if m.validations, err = register(reg, m.validations); err != nil {
		return nil, err
	}
	if m.broadcasts, err = register(reg, m.broadcasts); err != nil {
		return nil, err
	}
	if m.listenerFailures, err = register(reg, m.listenerFailures); err != nil {
		return nil, err
	}
	if m.sessionEvents, err = register(reg, m.sessionEvents); err != nil {
		return nil, err
	}
	return m, nil
}

func register[C prometheus.Collector](reg prometheus.Registerer, c C) (C, error) {
	if err := reg.Register(c); err != nil {
		var already prometheus.AlreadyRegisteredError
		if errors.As(err, &already) {
			if existing, ok := already.ExistingCollector.(C); ok {
				return existing, nil
			}
			return c, fmt.Errorf("existing collector has unexpected type %T", already.ExistingCollector)
		}
		return c, fmt.Errorf("register collector: %w", err)
	}
	return c, nil
}

// RecordRequest increments counters for requests.
func (m *Metrics) RecordRequest(route, method string, status int, duration time.Duration) {
	if m == nil {
		return
	}
	m.requests.WithLabelValues(method, route, strconv.Itoa(status)).Inc()
	m.duration.WithLabelValues(method, route).Observe(duration.Seconds())
}

// RecordError increments error counters.
func (m *Metrics) RecordError(route, method, code string) {
	if m == nil {
		return
	}
	m.errors.WithLabelValues(route, method, code).Inc()
}

// RecordSessionEvent counts an audited authentication event.
func (m *Metrics) RecordSessionEvent(eventType string) {
	if m == nil {
		return
	}
	m.sessionEvents.WithLabelValues(eventType).Inc()
}

// Validation implements session.Recorder.
func (m *Metrics) Validation(kind domain.CredentialKind, outcome session.Outcome) {
	if m == nil {
		return
	}
	m.validations.WithLabelValues(kind.String(), string(outcome)).Inc()
}

// Broadcast implements session.Recorder.
func (m *Metrics) Broadcast(kind domain.CredentialKind, _ int) {
	if m == nil {
		return
	}
	m.broadcasts.WithLabelValues(kind.String()).Inc()
}

// ListenerFailure implements session.Recorder.
func (m *Metrics) ListenerFailure() {
	if m == nil {
		return
	}
	m.listenerFailures.Inc()
}
