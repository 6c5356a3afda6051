// Package http exposes the advisor over a JSON API, an HTMX dashboard and a
// websocket chat endpoint.
package http

import (
	"context"
	"html/template"
	"io/fs"
	"net/http"
	"time"

	"github.com/gorilla/websocket"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"finadvisor/internal/core"
	"finadvisor/internal/log"
	"finadvisor/internal/middleware/ratelimit"
	"finadvisor/internal/middleware/security"
	"finadvisor/internal/middleware/trace"
	"finadvisor/internal/nlu"
	"finadvisor/internal/services"
	appweb "finadvisor/web"
)

// Advisor is the set of operations served over HTTP.
// *services.AdvisorService satisfies it.
type Advisor interface {
	Chat(ctx context.Context, message string, persona any) (*services.ChatResponse, error)
	BudgetSummary(ctx context.Context, raw core.RawBudget) (*services.BudgetSummaryResponse, error)
	SpendingInsights(ctx context.Context, raw core.RawBudget, goals []string) (*services.SpendingInsightsResponse, error)
	AnalyzeText(ctx context.Context, text string) (nlu.Result, error)
	Status() services.Status
	Features() services.Features
}

// Options configures the server. Zero values get working defaults.
type Options struct {
	Version     string
	RateLimiter *ratelimit.Limiter
	Detector    *security.Detector
	Headers     *security.HeadersConfig
	Logger      *log.Logger
	// RequestTimeout bounds every advisor operation.
	RequestTimeout time.Duration
}

type Server struct {
	http.Server
	advisor   Advisor
	templates *template.Template
	limiter   *ratelimit.Limiter
	detector  *security.Detector
	upgrader  websocket.Upgrader
	logger    *log.Logger
	version   string
	startedAt time.Time
	timeout   time.Duration
}

const maxBodyBytes = 64 << 10

// NewServer configures routes, templates and middleware, returning a
// ready-to-run server.
func NewServer(addr string, advisor Advisor, opts Options) *Server {
	if opts.Version == "" {
		opts.Version = "dev"
	}
	if opts.RateLimiter == nil {
		opts.RateLimiter = ratelimit.NewLimiter(ratelimit.DefaultConfig())
	}
	if opts.Detector == nil {
		opts.Detector = security.NewDetector()
	}
	if opts.Headers == nil {
		h := security.DefaultHeadersConfig()
		opts.Headers = &h
	}
	if opts.Logger == nil {
		opts.Logger = log.FromContext(context.Background())
	}
	if opts.RequestTimeout <= 0 {
		opts.RequestTimeout = 60 * time.Second
	}

	s := &Server{
		advisor:   advisor,
		limiter:   opts.RateLimiter,
		detector:  opts.Detector,
		logger:    opts.Logger.WithComponent(log.ComponentHTTP),
		version:   opts.Version,
		startedAt: time.Now(),
		timeout:   opts.RequestTimeout,
	}
	s.upgrader = websocket.Upgrader{
		ReadBufferSize:  4096,
		WriteBufferSize: 4096,
	}

	t, err := template.New("").Funcs(templateFuncs).ParseFS(appweb.TemplatesFS, "templates/*.html")
	if err != nil {
		s.logger.Warn("Failed parsing templates", log.FieldError, err)
	} else {
		s.templates = t
	}

	mux := http.NewServeMux()

	if sub, err := fs.Sub(appweb.StaticFS, "static"); err == nil {
		static := http.StripPrefix("/static/", http.FileServer(http.FS(sub)))
		mux.Handle("GET /static/", security.StaticAssetMiddleware(3600)(static))
	} else {
		s.logger.Warn("Failed to mount embedded static FS", log.FieldError, err)
	}

	mux.HandleFunc("GET /{$}", s.handleRoot)
	mux.HandleFunc("GET /health", s.handleHealth)
	mux.HandleFunc("GET /ready", s.handleReady)
	mux.HandleFunc("GET /features", s.handleFeatures)
	mux.Handle("GET /metrics", promhttp.Handler())

	mux.HandleFunc("POST /chat", s.handleChat)
	mux.HandleFunc("POST /budget-summary", s.handleBudgetSummary)
	mux.HandleFunc("POST /spending-insights", s.handleSpendingInsights)
	mux.HandleFunc("POST /nlu", s.handleNLU)
	mux.Handle("GET /ws/chat", log.ComponentMiddleware(log.ComponentWebSocket)(http.HandlerFunc(s.handleWebSocketChat)))

	dashboard := log.ComponentMiddleware(log.ComponentDashboard)
	mux.Handle("GET /dashboard", dashboard(http.HandlerFunc(s.handleDashboard)))
	mux.Handle("GET /dashboard/status", dashboard(http.HandlerFunc(s.handleDashboardStatus)))
	mux.Handle("POST /dashboard/chat", dashboard(http.HandlerFunc(s.handleDashboardChat)))
	mux.Handle("POST /dashboard/budget", dashboard(http.HandlerFunc(s.handleDashboardBudget)))
	mux.Handle("POST /dashboard/insights", dashboard(http.HandlerFunc(s.handleDashboardInsights)))
	mux.Handle("POST /dashboard/nlu", dashboard(http.HandlerFunc(s.handleDashboardNLU)))

	headers := security.NewHeadersMiddleware(*opts.Headers)
	tracer := trace.NewMiddleware(s.detector.ExtractClientIP, opts.Logger)
	limit := s.limiter.Middleware(s.detector.ExtractClientIP, s.handleRateLimited)

	s.Server = http.Server{
		Addr:              addr,
		Handler:           chain(mux, tracer.Middleware, s.detector.Middleware, limit, headers.Middleware),
		ReadHeaderTimeout: 10 * time.Second,
		IdleTimeout:       120 * time.Second,
	}
	return s
}

// chain applies middleware so that the first one listed runs first.
func chain(h http.Handler, middleware ...func(http.Handler) http.Handler) http.Handler {
	for i := len(middleware) - 1; i >= 0; i-- {
		h = middleware[i](h)
	}
	return h
}

func (s *Server) handleRateLimited(w http.ResponseWriter, r *http.Request) {
	log.FromContext(r.Context()).WarnContext(r.Context(), "Rate limit exceeded",
		log.FieldClientIP, s.detector.ExtractClientIP(r),
		log.FieldPath, r.URL.Path)
	s.writeError(w, r, http.StatusTooManyRequests, "Rate limit exceeded. Please try again later.")
}

// operationContext bounds an advisor call.
func (s *Server) operationContext(r *http.Request) (context.Context, context.CancelFunc) {
	return context.WithTimeout(r.Context(), s.timeout)
}
