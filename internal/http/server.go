// Package http exposes the ledger as a JSON API.
package http

import (
	"context"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"organize/internal/core"
	"organize/internal/ledger"
	"organize/internal/log"
	"organize/internal/middleware/ratelimit"
	"organize/internal/middleware/security"
	"organize/internal/middleware/trace"
	"organize/internal/services"
)

// Ledger is the set of service operations the API serves.
type Ledger interface {
	Submit(ctx context.Context, p ledger.Purchase, confirmed bool) (services.Result, error)
	Edit(ctx context.Context, id string, e ledger.Edit, confirmed bool) (services.Result, error)
	Anticipate(ctx context.Context, id string) (services.Result, error)
	DeleteGroup(ctx context.Context, id string) (services.Result, error)
	TransferBalance(ctx context.Context, month core.MonthKey) (services.Result, error)

	SaveCard(ctx context.Context, c core.Card) (core.Card, error)
	DeleteCard(ctx context.Context, id string) error
	Settings(ctx context.Context) (core.UserSettings, error)
	UpdateSettings(ctx context.Context, settings core.UserSettings) (core.UserSettings, error)

	MonthSummary(ctx context.Context, month core.MonthKey) (services.MonthSummary, error)
	MonthTransactions(ctx context.Context, month core.MonthKey) ([]core.Transaction, error)
	Cards(ctx context.Context) ([]ledger.CardStatus, error)
	CardInvoices(ctx context.Context, cardID string, month core.MonthKey) (ledger.CardStatus, error)
	Breakdown(ctx context.Context, f ledger.BreakdownFilter) (ledger.BreakdownResult, error)
	Series(ctx context.Context, from, to core.MonthKey) ([]core.MonthTotals, error)
	Integrity(ctx context.Context) ([]ledger.Violation, error)
}

// Options tunes a Server. Zero values fall back to defaults.
type Options struct {
	Logger             *log.Logger
	RateLimitPerMinute int
	// Ready reports whether the backing store is reachable.
	Ready func(ctx context.Context) error
	Now   func() time.Time
}

type Server struct {
	http.Server
	ledger   Ledger
	logger   *log.Logger
	ready    func(ctx context.Context) error
	now      func() time.Time
	limiter  *ratelimit.Limiter
	detector *security.Detector
	tracer   *trace.Middleware

	shutdownOnce sync.Once
}

// NewServer configures routes and middleware, returning a ready-to-run http.Server.
func NewServer(addr string, l Ledger, opts Options) *Server {
	if opts.Logger == nil {
		opts.Logger = log.FromSlog(slog.Default(), log.ComponentHTTP)
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}
	cfg := ratelimit.DefaultConfig()
	if opts.RateLimitPerMinute > 0 {
		cfg.RequestsPerMinute = opts.RateLimitPerMinute
	}

	s := &Server{
		ledger:   l,
		logger:   opts.Logger,
		ready:    opts.Ready,
		now:      opts.Now,
		limiter:  ratelimit.NewLimiter(cfg),
		detector: security.NewDetector(),
		tracer:   trace.NewMiddleware(),
	}

	mux := http.NewServeMux()
	mux.HandleFunc("GET /healthz", handleHealth)
	mux.HandleFunc("GET /readyz", s.handleReady)
	mux.HandleFunc("GET /api/metrics", s.handleMetrics)

	mux.HandleFunc("POST /api/transactions", s.handleSubmit)
	mux.HandleFunc("PUT /api/transactions/{id}", s.handleEdit)
	mux.HandleFunc("DELETE /api/transactions/{id}", s.handleDelete)
	mux.HandleFunc("POST /api/transactions/{id}/anticipate", s.handleAnticipate)
	mux.HandleFunc("POST /api/transfers", s.handleTransfer)

	mux.HandleFunc("GET /api/months/{month}/summary", s.handleMonthSummary)
	mux.HandleFunc("GET /api/months/{month}/transactions", s.handleMonthTransactions)

	mux.HandleFunc("GET /api/cards", s.handleCards)
	mux.HandleFunc("PUT /api/cards/{id}", s.handleSaveCard)
	mux.HandleFunc("DELETE /api/cards/{id}", s.handleDeleteCard)
	mux.HandleFunc("GET /api/cards/{id}/invoices", s.handleCardInvoices)

	mux.HandleFunc("GET /api/reports/breakdown", s.handleBreakdown)
	mux.HandleFunc("GET /api/reports/series", s.handleSeries)
	mux.HandleFunc("GET /api/integrity", s.handleIntegrity)

	mux.HandleFunc("GET /api/settings", s.handleSettings)
	mux.HandleFunc("PUT /api/settings", s.handleUpdateSettings)

	s.Server = http.Server{
		Addr:              addr,
		Handler:           s.chain(mux),
		ReadHeaderTimeout: 10 * time.Second,
	}
	return s
}

// chain wraps h with tracing, request logging, request screening, security
// headers and write rate limiting, outermost first.
func (s *Server) chain(h http.Handler) http.Handler {
	headers := security.NewHeadersMiddleware(security.DefaultHeadersConfig())
	limited := s.limiter.Middleware(s.detector.ExtractClientIP, func(w http.ResponseWriter, r *http.Request) {
		s.logger.WarnContext(r.Context(), "Rate limit exceeded",
			log.FieldClientIP, s.detector.ExtractClientIP(r),
			log.FieldMethod, r.Method,
			log.FieldPath, r.URL.Path)
		ErrorResponse(http.StatusTooManyRequests, "rate limit exceeded").Write(w)
	})(h)
	screened := s.detector.Middleware(s.logger.Logger)(headers.Middleware(limited))
	logged := log.Middleware(s.logger, trace.RequestID, s.detector.ExtractClientIP)(screened)
	return s.tracer.Middleware(logged)
}

// Shutdown gracefully shuts down the server and the limiter cleanup routine.
func (s *Server) Shutdown(ctx context.Context) error {
	var shutdownErr error
	s.shutdownOnce.Do(func() {
		s.limiter.Stop()
		shutdownErr = s.Server.Shutdown(ctx)
	})
	return shutdownErr
}

// Metrics snapshots the middleware counters.
type Metrics struct {
	Trace     trace.Metrics             `json:"trace"`
	RateLimit ratelimit.Metrics         `json:"rateLimit"`
	Security  security.DetectionMetrics `json:"security"`
}

func (s *Server) Metrics() Metrics {
	return Metrics{
		Trace:     s.tracer.GetMetrics(),
		RateLimit: s.limiter.GetMetrics(),
		Security:  s.detector.GetMetrics(),
	}
}

func handleHealth(w http.ResponseWriter, r *http.Request) {
	NewJSONResponse().Body(map[string]string{"status": "ok"}).Write(w)
}

func (s *Server) handleReady(w http.ResponseWriter, r *http.Request) {
	if s.ready != nil {
		ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
		defer cancel()
		if err := s.ready(ctx); err != nil {
			s.logger.WarnContext(r.Context(), "Readiness check failed", log.FieldError, err.Error())
			ErrorResponse(http.StatusServiceUnavailable, "not ready").Write(w)
			return
		}
	}
	NewJSONResponse().Body(map[string]string{"status": "ready"}).Write(w)
}

func (s *Server) handleMetrics(w http.ResponseWriter, r *http.Request) {
	NewJSONResponse().Body(s.Metrics()).Write(w)
}
