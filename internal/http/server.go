package http

import (
	"context"
	"net/http"
	"sync"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	applog "expensetracker/internal/log"
	"expensetracker/internal/metrics"
	"expensetracker/internal/middleware/ratelimit"
	"expensetracker/internal/middleware/security"
	"expensetracker/internal/middleware/trace"
	"expensetracker/internal/services"
)

// Options configures NewServer. Zero values fall back to sensible defaults.
type Options struct {
	Addr               string
	CurrencyLabel      string
	RateLimitPerMinute int
	Logger             *applog.Logger
	// Metrics enables /metrics and request observation when set.
	Metrics *metrics.Recorder
	// Ready backs /readyz; nil means always ready.
	Ready func(context.Context) error
}

type Server struct {
	http.Server
	tracker       *services.Tracker
	currencyLabel string
	logger        *applog.Logger
	rateLimiter   *ratelimit.Limiter
	ready         func(context.Context) error

	shutdownOnce sync.Once
}

// NewServer wires routes and middleware around tracker.
func NewServer(tracker *services.Tracker, opts Options) *Server {
	if opts.Logger == nil {
		opts.Logger = applog.New(applog.DefaultConfig())
	}
	if opts.CurrencyLabel == "" {
		opts.CurrencyLabel = "RM"
	}

	s := &Server{
		tracker:       tracker,
		currencyLabel: opts.CurrencyLabel,
		logger:        opts.Logger.WithComponent(applog.ComponentHTTP),
		rateLimiter:   ratelimit.NewLimiter(ratelimit.Config{RequestsPerMinute: opts.RateLimitPerMinute}),
		ready:         opts.Ready,
	}

	ipResolver := security.NewClientIPResolver()
	var observer trace.Observer
	if opts.Metrics != nil {
		observer = opts.Metrics
	}
	tracer := trace.NewMiddleware(opts.Logger, ipResolver.ClientIP, observer)

	r := chi.NewRouter()
	r.Use(middleware.Recoverer)
	r.Use(tracer.Handler)
	r.Use(applog.Middleware(s.logger))
	r.Use(applog.RequestIDMiddleware(trace.GetRequestID))
	r.Use(security.Headers(security.DefaultHeadersConfig()))

	r.Get("/healthz", handleHealth)
	r.Get("/readyz", s.handleReady)
	if opts.Metrics != nil {
		r.Method(http.MethodGet, "/metrics", opts.Metrics.Handler())
	}

	r.Route("/api", func(r chi.Router) {
		r.Get("/expenses", s.handleListExpenses)
		r.Get("/years", s.handleYears)

		r.Group(func(r chi.Router) {
			r.Use(s.rateLimiter.Middleware(ipResolver.ClientIP, s.onRateLimited))
			r.Post("/expenses", s.handleSubmitExpense)
			r.Post("/expenses/{index}/edit", s.handleBeginEdit)
			r.Delete("/expenses/{index}", s.handleDeleteExpense)
			r.Post("/edit/cancel", s.handleCancelEdit)
		})
	})

	s.Server = http.Server{
		Addr:              opts.Addr,
		Handler:           r,
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       15 * time.Second,
		WriteTimeout:      15 * time.Second,
		IdleTimeout:       60 * time.Second,
	}
	return s
}

// Shutdown stops the rate limiter and gracefully shuts down the server.
func (s *Server) Shutdown(ctx context.Context) error {
	var shutdownErr error
	s.shutdownOnce.Do(func() {
		s.rateLimiter.Stop()
		shutdownErr = s.Server.Shutdown(ctx)
	})
	return shutdownErr
}

func (s *Server) onRateLimited(w http.ResponseWriter, r *http.Request) {
	applog.FromContext(r.Context()).WarnContext(r.Context(), "Rate limit exceeded",
		applog.FieldMethod, r.Method,
		applog.FieldPath, r.URL.Path)
	ErrorResponse(http.StatusTooManyRequests, "Rate limit exceeded. Please try again later.").Write(w)
}
