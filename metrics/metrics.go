package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	chiMiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Доменные счётчики
var (
	MatchSubmissions = prometheus.NewCounterVec(
		prometheus.CounterOpts{Name: "matchday_match_submissions_total", Help: "Match submissions by result."},
		[]string{"result"},
	)
	PartialWrites = prometheus.NewCounterVec(
		prometheus.CounterOpts{Name: "matchday_match_partial_writes_total", Help: "Secondary match writes that failed and were deferred to repair."},
		[]string{"part"},
	)
	ConsensusDecisions = prometheus.NewCounterVec(
		prometheus.CounterOpts{Name: "matchday_consensus_decisions_total", Help: "Confirm/reject decisions by outcome."},
		[]string{"action", "result"},
	)
	RequestAccepts = prometheus.NewCounterVec(
		prometheus.CounterOpts{Name: "matchday_request_accepts_total", Help: "Operations request accept attempts by outcome."},
		[]string{"result"},
	)
	DrawsStarted = prometheus.NewCounterVec(
		prometheus.CounterOpts{Name: "matchday_draws_total", Help: "Tournament draw attempts by outcome."},
		[]string{"result"},
	)
	RepairedIntents = prometheus.NewCounterVec(
		prometheus.CounterOpts{Name: "matchday_submission_repairs_total", Help: "Reconciliation outcomes for incomplete submissions."},
		[]string{"result"},
	)
	NotificationsDropped = prometheus.NewCounter(
		prometheus.CounterOpts{Name: "matchday_notifications_dropped_total", Help: "Fire-and-forget notifications that failed."},
	)
)

// Общие HTTP-метрики
var (
	httpInFlight = prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "http_in_flight_requests",
		Help: "In-flight HTTP requests.",
	})

	httpRequestDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "http_request_duration_seconds",
			Help:    "HTTP request latencies in seconds.",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"method", "route", "status"},
	)
)

// Register регистрирует все метрики в переданном регистре (или в default при nil).
func Register(reg prometheus.Registerer) {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	reg.MustRegister(
		MatchSubmissions, PartialWrites, ConsensusDecisions, RequestAccepts,
		DrawsStarted, RepairedIntents, NotificationsDropped,
		httpInFlight, httpRequestDuration,
	)
}

// Handler - хэндлер Prometheus.
func Handler() http.Handler {
	return promhttp.Handler()
}

// Instrument измеряет latency и число запросов в полёте. Метка route берётся из шаблона chi,
// чтобы id в пути не раздували кардинальность.
func Instrument(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		httpInFlight.Inc()
		defer httpInFlight.Dec()

		start := time.Now()
		// Обёртка chi сохраняет http.Hijacker и http.Flusher, без них не работает /ws
		ww := chiMiddleware.NewWrapResponseWriter(w, r.ProtoMajor)
		next.ServeHTTP(ww, r)

		status := ww.Status()
		if status == 0 {
			status = http.StatusOK
		}

		route := r.URL.Path
		if rctx := chi.RouteContext(r.Context()); rctx != nil && rctx.RoutePattern() != "" {
			route = rctx.RoutePattern()
		}
		httpRequestDuration.WithLabelValues(r.Method, route, strconv.Itoa(status)).Observe(time.Since(start).Seconds())
	})
}
