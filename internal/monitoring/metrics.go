package monitoring

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics collects the service's Prometheus metrics on its own registry.
type Metrics struct {
	registry *prometheus.Registry

	authSuccess prometheus.Counter
	authFailure *prometheus.CounterVec

	nicknameReserved  prometheus.Counter
	nicknameConflicts prometheus.Counter
	nicknameExhausted prometheus.Counter

	requestDuration *prometheus.HistogramVec
}

func New() *Metrics {
	m := &Metrics{registry: prometheus.NewRegistry()}

	m.authSuccess = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "initdata_auth_success_total",
		Help: "Init data validations that produced a principal",
	})
	m.authFailure = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "initdata_auth_failure_total",
		Help: "Init data validations rejected, by failure kind",
	}, []string{"reason"})

	m.nicknameReserved = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "nickname_reservations_total",
		Help: "Nicknames reserved or claimed",
	})
	m.nicknameConflicts = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "nickname_conflicts_total",
		Help: "Nickname claims refused because another profile holds the name",
	})
	m.nicknameExhausted = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "nickname_exhaustion_total",
		Help: "Generation runs that hit the attempt cap",
	})

	m.requestDuration = prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "http_request_duration_seconds",
		Help:    "HTTP request duration",
		Buckets: prometheus.DefBuckets,
	}, []string{"method", "path", "status"})

	m.registry.MustRegister(
		m.authSuccess, m.authFailure,
		m.nicknameReserved, m.nicknameConflicts, m.nicknameExhausted,
		m.requestDuration,
	)
	return m
}

func (m *Metrics) AuthSuccess() { m.authSuccess.Inc() }

func (m *Metrics) AuthFailure(reason string) { m.authFailure.WithLabelValues(reason).Inc() }

func (m *Metrics) NicknameReserved() { m.nicknameReserved.Inc() }

func (m *Metrics) NicknameConflict() { m.nicknameConflicts.Inc() }

func (m *Metrics) NicknameExhausted() { m.nicknameExhausted.Inc() }

// Handler serves the /metrics endpoint.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

// Middleware records request durations per route pattern.
func (m *Metrics) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		sw := &statusWriter{ResponseWriter: w, status: http.StatusOK}
		next.ServeHTTP(sw, r)
		m.requestDuration.WithLabelValues(r.Method, r.URL.Path, strconv.Itoa(sw.status)).
			Observe(time.Since(start).Seconds())
	})
}

type statusWriter struct {
	http.ResponseWriter
	status int
}

func (w *statusWriter) WriteHeader(code int) {
	w.status = code
	w.ResponseWriter.WriteHeader(code)
}
