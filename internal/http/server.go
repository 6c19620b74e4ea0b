package http

import (
	"context"
	"html/template"
	"io/fs"
	"net/http"
	"sync"
	"sync/atomic"
	"time"

	"financas/internal/auth"
	"financas/internal/cache"
	"financas/internal/core"
	"financas/internal/ledger"
	applog "financas/internal/log"
	"financas/internal/middleware/ratelimit"
	"financas/internal/middleware/security"
	"financas/internal/middleware/trace"
	"financas/internal/services"
	appweb "financas/web"
)

// storeTimeout bounds every store call made while serving a request.
const storeTimeout = 7 * time.Second

// Pinger is implemented by stores that can report readiness.
type Pinger interface {
	Ping(ctx context.Context) error
}

// BusHealth reports whether the event publisher can reach its broker.
type BusHealth interface {
	Healthy() bool
}

// Deps are the collaborators a Server needs. ListCache, Pinger and Bus may
// be nil.
type Deps struct {
	Transactions  *services.TransactionService
	Plans         *services.PlanService
	FixedExpenses ledger.FixedExpenseStore
	ListCache     *cache.LRUCache[[]core.Transaction]
	Pinger        Pinger
	Bus           BusHealth
	Verifier      *auth.Verifier
	Logger        *applog.Logger

	RateLimitPerMinute int
	// Now defaults to time.Now.
	Now func() time.Time
}

type Server struct {
	http.Server
	templates *template.Template
	logger    *applog.Logger
	events    *applog.StructuredLogger

	txs       *services.TransactionService
	plans     *services.PlanService
	fixed     ledger.FixedExpenseStore
	listCache *cache.LRUCache[[]core.Transaction]
	pinger    Pinger
	bus       BusHealth
	verifier  *auth.Verifier
	now       func() time.Time

	cacheManager     *cache.Manager
	rateLimiter      *ratelimit.Limiter
	securityDetector *security.Detector
	traceMiddleware  *trace.Middleware
	appMetrics       *appMetrics

	shutdownOnce sync.Once
}

type appMetrics struct {
	uptime              time.Time
	transactionsCreated atomic.Int64
	transactionsDeleted atomic.Int64
	planUpgrades        atomic.Int64
	gateDenials         atomic.Int64
}

// NewServer configures routes and templates, returning a ready-to-run
// server. A template parse failure is logged and leaves the page routes
// answering 500 so health checks still work.
func NewServer(addr string, deps Deps) *Server {
	logger := deps.Logger
	if logger == nil {
		logger = applog.New(applog.DefaultConfig())
	}
	logger = logger.WithComponent(applog.ComponentHTTP)
	now := deps.Now
	if now == nil {
		now = time.Now
	}

	s := &Server{
		logger:           logger,
		events:           applog.NewStructuredLogger(logger),
		txs:              deps.Transactions,
		plans:            deps.Plans,
		fixed:            deps.FixedExpenses,
		listCache:        deps.ListCache,
		pinger:           deps.Pinger,
		bus:              deps.Bus,
		verifier:         deps.Verifier,
		now:              now,
		cacheManager:     cache.NewManager(),
		rateLimiter:      ratelimit.NewLimiter(ratelimit.Config{RequestsPerMinute: deps.RateLimitPerMinute}),
		securityDetector: security.NewDetector(),
		appMetrics:       &appMetrics{uptime: time.Now()},
	}
	s.traceMiddleware = trace.NewMiddleware(s.securityDetector.ExtractClientIP, logger)

	if s.listCache != nil {
		s.cacheManager.Register(s.listCache)
		s.cacheManager.StartCleanup(10 * time.Minute)
	}

	t, err := template.New("financas").Funcs(templateFuncs).ParseFS(appweb.TemplatesFS, "templates/*.html")
	if err != nil {
		logger.Warn("Failed parsing templates", applog.FieldError, err)
	} else {
		s.templates = t
	}

	mux := http.NewServeMux()

	if sub, err := fs.Sub(appweb.StaticFS, "static"); err == nil {
		static := http.StripPrefix("/static/", http.FileServer(http.FS(sub)))
		mux.Handle("GET /static/", security.StaticAssetMiddleware(3600)(static))
	} else {
		logger.Warn("Failed to mount embedded static FS", applog.FieldError, err)
	}

	mux.HandleFunc("GET /healthz", s.handleHealth)
	mux.HandleFunc("GET /readyz", s.handleReady)
	mux.HandleFunc("GET /metrics", s.handleMetrics)

	mux.Handle("GET /{$}", s.protect(s.handleIndex))
	mux.Handle("GET /ui/summary", s.protect(s.handleSummaryCard))
	mux.Handle("GET /ui/categories", s.protect(s.handleCategoriesCard))
	mux.Handle("GET /ui/transactions", s.protect(s.handleTransactionsCard))
	mux.Handle("GET /ui/fixed-expenses", s.protect(s.handleFixedExpensesCard))
	mux.Handle("GET /ui/trend", s.protect(s.handleTrendCard))

	mux.Handle("POST /transactions", s.protect(s.handleCreateTransaction))
	mux.Handle("DELETE /transactions/{id}", s.protect(s.handleDeleteTransaction))
	mux.Handle("POST /fixed-expenses", s.protect(s.handleCreateFixedExpense))
	mux.Handle("DELETE /fixed-expenses/{id}", s.protect(s.handleDeleteFixedExpense))
	mux.Handle("POST /plan/upgrade", s.protect(s.handleUpgrade))

	mux.Handle("GET /api/summary", s.protect(s.handleAPISummary))
	mux.Handle("GET /api/categories/spending", s.protect(s.handleAPICategorySpending))
	mux.Handle("GET /api/categories", s.protect(s.handleAPICategories))
	mux.Handle("GET /api/trend", s.protect(s.handleAPITrend))
	mux.Handle("GET /api/plan", s.protect(s.handleAPIPlan))

	limited := s.rateLimiter.Middleware(s.securityDetector.ExtractClientIP, s.onRateLimit,
		http.MethodPost, http.MethodDelete)

	var handler http.Handler = mux
	handler = limited(handler)
	handler = s.detectSuspicious(handler)
	handler = security.NewHeadersMiddleware(security.DefaultHeadersConfig()).Middleware(handler)
	handler = s.traceMiddleware.Middleware(handler)
	handler = applog.Middleware(logger)(handler)

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

// ownedHandler receives the authenticated owner id.
type ownedHandler func(w http.ResponseWriter, r *http.Request, ownerID string)

func (s *Server) protect(h ownedHandler) http.Handler {
	return s.verifier.Middleware(s.onUnauthorized)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		owner, _ := auth.OwnerID(r.Context())
		h(w, r, owner)
	}))
}

func (s *Server) onUnauthorized(w http.ResponseWriter, r *http.Request, err error) {
	s.logger.WarnContext(r.Context(), "Unauthorized request", applog.FieldPath, r.URL.Path, applog.FieldError, err)
	if wantsJSON(r) {
		writeJSONError(w, http.StatusUnauthorized, "unauthorized")
		return
	}
	UnauthorizedError("Sessão inválida ou expirada").Write(w)
}

func (s *Server) onRateLimit(w http.ResponseWriter, r *http.Request) {
	s.logger.WarnContext(r.Context(), "Rate limit exceeded", applog.FieldMethod, r.Method, applog.FieldPath, r.URL.Path)
	if wantsJSON(r) {
		writeJSONError(w, http.StatusTooManyRequests, "rate limit exceeded")
		return
	}
	ErrorResponse(http.StatusTooManyRequests, "Muitas requisições. Tente novamente em instantes.").Write(w)
}

// detectSuspicious only counts and logs; blocking is left to the proxy.
func (s *Server) detectSuspicious(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if s.securityDetector.DetectSuspiciousRequest(r) {
			applog.FromContext(r.Context()).WithComponent(applog.ComponentSecurity).WarnContext(r.Context(),
				"Suspicious request", applog.FieldMethod, r.Method, applog.FieldPath, r.URL.Path,
				applog.FieldUserAgent, r.Header.Get("User-Agent"))
		}
		next.ServeHTTP(w, r)
	})
}

// Shutdown stops background cleanup then drains the HTTP server.
func (s *Server) Shutdown(ctx context.Context) error {
	var err error
	s.shutdownOnce.Do(func() {
		s.cacheManager.Stop()
		s.rateLimiter.Stop()
		err = s.Server.Shutdown(ctx)
	})
	return err
}

// storeContext applies storeTimeout to a request context.
func storeContext(r *http.Request) (context.Context, context.CancelFunc) {
	return context.WithTimeout(r.Context(), storeTimeout)
}
