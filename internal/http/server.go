package http

import (
	"context"
	"net/http"
	"sync"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"strafen/internal/core"
	"strafen/internal/ledger"
	"strafen/internal/log"
	"strafen/internal/middleware/ratelimit"
	"strafen/internal/middleware/security"
	"strafen/internal/middleware/trace"
)

// Ledger is the engine surface served over HTTP.
type Ledger interface {
	Record(ctx context.Context, sub core.Submission) (ledger.Result, error)
	Balance(ctx context.Context, member string) (core.BalanceSummary, []core.LedgerRow, error)
	Entries(ctx context.Context, member string) ([]core.LedgerRow, error)
	Catalog(ctx context.Context) (core.Catalog, error)
}

// Options tunes the server. The zero value is usable.
type Options struct {
	// RateLimitRPM limits POST requests per client and minute. Zero uses the
	// limiter default.
	RateLimitRPM int
	// RequestTimeout bounds each request context. Zero means 30s.
	RequestTimeout time.Duration
	// Ready reports backend readiness for /readyz. When nil the catalog is
	// loaded instead.
	Ready func(ctx context.Context) error
	// Logger defaults to the slog default logger.
	Logger *log.Logger
}

type Server struct {
	http.Server
	ledger   Ledger
	ready    func(ctx context.Context) error
	logger   *log.Logger
	events   *log.StructuredLogger
	limiter  *ratelimit.Limiter
	detector *security.Detector

	shutdownOnce sync.Once
}

// NewServer builds the server listening on addr.
func NewServer(addr string, l Ledger, opts Options) *Server {
	if opts.RequestTimeout <= 0 {
		opts.RequestTimeout = 30 * time.Second
	}
	logger := opts.Logger
	if logger == nil {
		logger = log.FromContext(context.Background()).WithComponent(log.ComponentHTTP)
	}

	s := &Server{
		ledger: l,
		ready:  opts.Ready,
		logger: logger,
		events: log.NewStructuredLogger(logger),
		limiter: ratelimit.NewLimiter(ratelimit.Config{
			RequestsPerMinute: opts.RateLimitRPM,
			CleanupInterval:   5 * time.Minute,
		}),
	}
	s.detector = security.NewDetector(func(r *http.Request) {
		suspiciousRequests.Inc()
		s.logger.WithComponent(log.ComponentSecurity).WarnContext(r.Context(), "Suspicious request detected",
			log.FieldMethod, r.Method,
			log.FieldPath, r.URL.Path,
			log.FieldUserAgent, r.UserAgent(),
			log.FieldClientIP, s.detector.ExtractClientIP(r))
	})

	s.Addr = addr
	s.Handler = s.routes(opts.RequestTimeout)
	s.ReadTimeout = 10 * time.Second
	s.WriteTimeout = 10 * time.Second
	s.IdleTimeout = 60 * time.Second
	s.MaxHeaderBytes = 64 << 10
	return s
}

func (s *Server) routes(timeout time.Duration) http.Handler {
	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(trace.Middleware)
	r.Use(log.Middleware(s.logger, s.detector.ExtractClientIP))
	r.Use(middleware.Recoverer)
	r.Use(security.NewHeadersMiddleware(security.DefaultHeadersConfig()).Middleware)
	r.Use(s.detector.Middleware)
	r.Use(middleware.Timeout(timeout))

	r.Get("/healthz", s.handleHealth)
	r.Get("/readyz", s.handleReady)
	r.Handle("/metrics", promhttp.Handler())

	r.Get("/get-saldo", s.handleGetSaldo)
	r.Get("/get-eintraege", s.handleGetEintraege)
	r.With(s.limiter.Middleware(s.detector.ExtractClientIP, s.handleRateLimited)).
		Post("/add-entry", s.handleAddEntry)

	return r
}

func (s *Server) handleRateLimited(w http.ResponseWriter, r *http.Request) {
	rateLimited.Inc()
	s.logger.WithComponent(log.ComponentRateLimit).WarnContext(r.Context(), "Rate limit exceeded",
		log.FieldClientIP, s.detector.ExtractClientIP(r),
		log.FieldPath, r.URL.Path)
	writeError(w, http.StatusTooManyRequests, "rate limit exceeded, try again later")
}

// Shutdown stops background work and gracefully shuts down the listener.
func (s *Server) Shutdown(ctx context.Context) error {
	s.shutdownOnce.Do(s.limiter.Stop)
	return s.Server.Shutdown(ctx)
}
