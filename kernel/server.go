package kernel

import (
	"encoding/json"
	"net/http"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/golang-jwt/jwt/v5"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"
)

// Metrics holds the kernel's Prometheus instrumentation, grounded on the
// teacher's internal/metrics.Collector pattern (a struct of pre-registered
// vectors, built once via promauto).
type Metrics struct {
	scriptExecutions *prometheus.CounterVec
	scriptDuration    prometheus.Histogram
	healthChecks      prometheus.Counter
}

// NewMetrics registers the kernel's metrics under namespace.
func NewMetrics(namespace string) *Metrics {
	return &Metrics{
		scriptExecutions: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "script_executions_total",
			Help:      "Total script executions by outcome.",
		}, []string{"outcome"}),
		scriptDuration: promauto.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "script_execution_duration_seconds",
			Help:      "Script execution latency.",
		}),
		healthChecks: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "health_checks_total",
			Help:      "Total /health requests served.",
		}),
	}
}

// RecordExecution records a script execution's outcome and duration.
func (m *Metrics) RecordExecution(outcome string, seconds float64) {
	m.scriptExecutions.WithLabelValues(outcome).Inc()
	m.scriptDuration.Observe(seconds)
}

// ServerConfig configures the kernel's HTTP surface.
type ServerConfig struct {
	Addr      string
	JWTSecret []byte // empty disables auth
}

// Server is the kernel's go-chi HTTP surface: /health (also /healthz),
// /metrics, /diagnostics and /diagnostics/level. It registers no websocket
// upgrade endpoint; connections reach the Router only through Register.
type Server struct {
	cfg         ServerConfig
	router      *Router
	monitor     *Monitor
	diagnostics *Diagnostics
	metrics     *Metrics
	logger      *zap.Logger

	mux *chi.Mux
}

// NewServer builds the kernel's HTTP surface.
func NewServer(cfg ServerConfig, router *Router, monitor *Monitor, diagnostics *Diagnostics, metrics *Metrics, logger *zap.Logger) *Server {
	if logger == nil {
		logger = zap.NewNop()
	}
	s := &Server{cfg: cfg, router: router, monitor: monitor, diagnostics: diagnostics, metrics: metrics, logger: logger}
	s.mux = chi.NewRouter()
	s.mux.Use(middleware.Recoverer)
	s.mux.Use(middleware.RequestID)

	s.mux.Get("/health", s.handleHealth)
	s.mux.Get("/healthz", s.handleHealth)
	s.mux.Handle("/metrics", promhttp.Handler())

	s.mux.Group(func(r chi.Router) {
		if len(cfg.JWTSecret) > 0 {
			r.Use(s.authMiddleware)
		}
		r.Get("/diagnostics", s.handleDiagnostics)
		r.Post("/diagnostics/level", s.handleSetLevel)
	})

	return s
}

// Handler returns the composed chi.Mux for use with http.Server or tests.
func (s *Server) Handler() http.Handler { return s.mux }

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	if s.metrics != nil {
		s.metrics.healthChecks.Inc()
	}
	report := s.monitor.Check(r.Context())
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(report.Status.HTTPStatusCode())
	json.NewEncoder(w).Encode(report)
}

func (s *Server) handleDiagnostics(w http.ResponseWriter, r *http.Request) {
	limit := 0
	if v := r.URL.Query().Get("limit"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			limit = n
		}
	}
	entries := s.diagnostics.CapturedEntries(limit)
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(entries)
}

func (s *Server) handleSetLevel(w http.ResponseWriter, r *http.Request) {
	var body struct {
		Level string `json:"level"`
	}
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		http.Error(w, "invalid body", http.StatusBadRequest)
		return
	}
	level, ok := parseLevel(body.Level)
	if !ok {
		http.Error(w, "unknown level", http.StatusBadRequest)
		return
	}
	s.diagnostics.SetLevel(level)
	w.WriteHeader(http.StatusNoContent)
}

func parseLevel(s string) (LogLevel, bool) {
	switch strings.ToLower(s) {
	case "trace":
		return LevelTrace, true
	case "debug":
		return LevelDebug, true
	case "info":
		return LevelInfo, true
	case "warn":
		return LevelWarn, true
	case "error":
		return LevelError, true
	case "off":
		return LevelOff, true
	default:
		return 0, false
	}
}

// authMiddleware requires a valid HS256 bearer token signed with the
// server's configured secret, for the diagnostics surface only — health
// and metrics stay unauthenticated so orchestrators can probe them.
func (s *Server) authMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		authHeader := r.Header.Get("Authorization")
		tokenStr := strings.TrimPrefix(authHeader, "Bearer ")
		if tokenStr == authHeader {
			http.Error(w, "missing bearer token", http.StatusUnauthorized)
			return
		}

		token, err := jwt.Parse(tokenStr, func(t *jwt.Token) (interface{}, error) {
			return s.cfg.JWTSecret, nil
		}, jwt.WithValidMethods([]string{"HS256"}))
		if err != nil || !token.Valid {
			http.Error(w, "invalid token", http.StatusUnauthorized)
			return
		}
		next.ServeHTTP(w, r)
	})
}
