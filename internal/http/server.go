package http

import (
	"context"
	"net/http"
	"sync"
	"time"

	applog "cotizador/internal/log"
	"cotizador/internal/middleware/ratelimit"
	"cotizador/internal/middleware/security"
	"cotizador/internal/middleware/trace"
	"cotizador/internal/services"
)

// Pinger reports whether the backing store is reachable.
type Pinger interface {
	Ping(ctx context.Context) error
}

// Services are the application services the API exposes.
type Services struct {
	Materials *services.MaterialService
	Quotes    *services.QuoteService
	Dashboard *services.DashboardService
	Store     Pinger
}

// Options configure the middleware chain.
type Options struct {
	Logger      *applog.Logger
	Development bool
	CORSOrigin  string
	RateLimit   ratelimit.Config
}

type Server struct {
	http.Server
	materials *services.MaterialService
	quotes    *services.QuoteService
	dashboard *services.DashboardService
	store     Pinger

	limiter  *ratelimit.Limiter
	detector *security.Detector
	dev      bool
	started  time.Time

	shutdownOnce sync.Once
}

func NewServer(addr string, svc Services, opts Options) *Server {
	logger := opts.Logger
	if logger == nil {
		logger = applog.New(applog.DefaultConfig()).WithComponent(applog.ComponentHTTP)
	}

	s := &Server{
		materials: svc.Materials,
		quotes:    svc.Quotes,
		dashboard: svc.Dashboard,
		store:     svc.Store,
		limiter:   ratelimit.NewLimiter(opts.RateLimit),
		detector:  security.NewDetector(),
		dev:       opts.Development,
		started:   time.Now(),
	}

	mux := http.NewServeMux()
	s.routes(mux)

	// trace -> security headers -> detection -> CORS -> rate limit -> mux
	var handler http.Handler = mux
	handler = s.limiter.Middleware(s.detector.ExtractClientIP, s.handleRateLimited)(handler)
	handler = security.CORS(opts.CORSOrigin)(handler)
	handler = s.detector.Middleware(handler)
	handler = security.NewHeadersMiddleware(security.DefaultHeadersConfig()).Middleware(handler)
	handler = trace.NewMiddleware(logger, s.detector.ExtractClientIP).Middleware(handler)

	s.Server = http.Server{
		Addr:              addr,
		Handler:           handler,
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       30 * time.Second,
		WriteTimeout:      30 * time.Second,
		IdleTimeout:       120 * time.Second,
	}
	return s
}

func (s *Server) routes(mux *http.ServeMux) {
	mux.HandleFunc("GET /{$}", s.handleIndex)
	mux.HandleFunc("GET /health", s.handleHealth)
	mux.HandleFunc("GET /readyz", s.handleReady)

	mux.HandleFunc("GET /api/materials", s.handleListMaterials)
	mux.HandleFunc("POST /api/materials", s.handleCreateMaterial)
	mux.HandleFunc("GET /api/materials/active", s.handleActiveMaterials)
	mux.HandleFunc("GET /api/materials/stats", s.handleMaterialStats)
	mux.HandleFunc("GET /api/materials/{id}", s.handleGetMaterial)
	mux.HandleFunc("PUT /api/materials/{id}", s.handleUpdateMaterial)
	mux.HandleFunc("DELETE /api/materials/{id}", s.handleDeleteMaterial)

	mux.HandleFunc("GET /api/quotes", s.handleListQuotes)
	mux.HandleFunc("POST /api/quotes", s.handleCreateQuote)
	mux.HandleFunc("GET /api/quotes/stats", s.handleQuoteStats)
	mux.HandleFunc("GET /api/quotes/recent", s.handleRecentQuotes)
	mux.HandleFunc("GET /api/quotes/client/{client}", s.handleQuotesByClient)
	mux.HandleFunc("GET /api/quotes/number/{number}", s.handleGetQuoteByNumber)
	mux.HandleFunc("GET /api/quotes/{id}", s.handleGetQuote)
	mux.HandleFunc("PUT /api/quotes/{id}", s.handleUpdateQuote)
	mux.HandleFunc("PATCH /api/quotes/{id}/status", s.handleUpdateQuoteStatus)
	mux.HandleFunc("DELETE /api/quotes/{id}", s.handleDeleteQuote)

	mux.HandleFunc("GET /api/dashboard/stats", s.handleDashboardStats)
	mux.HandleFunc("GET /api/dashboard/recent-activity", s.handleRecentActivity)
	mux.HandleFunc("GET /api/dashboard/summary", s.handleDashboardSummary)

	mux.HandleFunc("/", s.handleNotFound)
}

// Shutdown stops the rate limiter and drains the HTTP server once.
func (s *Server) Shutdown(ctx context.Context) error {
	var shutdownErr error
	s.shutdownOnce.Do(func() {
		s.limiter.Stop()
		shutdownErr = s.Server.Shutdown(ctx)
	})
	return shutdownErr
}

func (s *Server) handleRateLimited(w http.ResponseWriter, r *http.Request) {
	ErrorResponse(http.StatusTooManyRequests, "Too many requests, please try again later").Write(w)
}

func (s *Server) handleNotFound(w http.ResponseWriter, r *http.Request) {
	NotFoundError("Route " + r.Method + " " + r.URL.Path + " not found").Write(w)
}
