// Package server exposes a dispatcher as an authenticated webhook that a
// host authentication system calls instead of sending email itself.
package server

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/dmitrymomot/magiclink/pkg/health"
	"github.com/dmitrymomot/magiclink/pkg/metrics"
	"github.com/dmitrymomot/magiclink/pkg/verification"
)

const (
	// WebhookPath receives verification requests.
	WebhookPath = "/v1/verification-requests"

	maxBodyBytes = 64 << 10
)

// Server routes webhook, health and metrics requests.
type Server struct {
	provider *verification.Provider
	logger   *slog.Logger
	metrics  *metrics.Metrics
	checks   health.Checks
	token    string
}

// Option configures a Server.
type Option func(*Server)

// WithLogger sets the request and error logger.
func WithLogger(l *slog.Logger) Option {
	return func(s *Server) {
		if l != nil {
			s.logger = l
		}
	}
}

// WithToken requires "Authorization: Bearer <token>" on the webhook.
// An empty token leaves the webhook open.
func WithToken(token string) Option {
	return func(s *Server) {
		s.token = token
	}
}

// WithMetrics instruments HTTP traffic and serves /metrics.
func WithMetrics(m *metrics.Metrics) Option {
	return func(s *Server) {
		s.metrics = m
	}
}

// WithCheck adds a named readiness check.
func WithCheck(name string, fn health.CheckFunc) Option {
	return func(s *Server) {
		if fn != nil {
			s.checks[name] = fn
		}
	}
}

// WithMaxAge sets the link lifetime applied to requests without "expires".
func WithMaxAge(d time.Duration) Option {
	return func(s *Server) {
		verification.WithMaxAge(d)(s.provider)
	}
}

// New creates a server delivering through d.
func New(d verification.Dispatcher, opts ...Option) *Server {
	s := &Server{
		provider: verification.NewProvider(verification.SendFuncOf(d)),
		logger:   slog.New(slog.DiscardHandler),
		checks:   health.Checks{},
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Handler returns the routed HTTP handler.
func (s *Server) Handler() http.Handler {
	r := chi.NewRouter()

	r.Use(requestID)
	if s.metrics != nil {
		r.Use(s.metrics.HTTP)
	}
	r.Use(s.accessLog)
	r.Use(s.recoverer)

	r.Get("/health/live", health.LivenessHandler())
	r.Get("/health/ready", health.ReadinessHandler(s.checks, health.WithLogger(s.logger)))
	if s.metrics != nil {
		r.Method(http.MethodGet, "/metrics", s.metrics.Handler())
	}

	r.Group(func(r chi.Router) {
		r.Use(bearerAuth(s.token))
		r.Use(requireJSON)
		r.Post(WebhookPath, s.handleVerificationRequest)
	})

	r.NotFound(func(w http.ResponseWriter, r *http.Request) {
		writeError(w, r, http.StatusNotFound, "not found", nil)
	})
	r.MethodNotAllowed(func(w http.ResponseWriter, r *http.Request) {
		writeError(w, r, http.StatusMethodNotAllowed, "method not allowed", nil)
	})

	return r
}
