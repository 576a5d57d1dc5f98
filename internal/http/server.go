package http

import (
	"context"
	"net/http"
	"sync"
	"time"

	"fintrack/internal/identity"
	applog "fintrack/internal/log"
	"fintrack/internal/metrics"
	"fintrack/internal/middleware/ratelimit"
	"fintrack/internal/middleware/security"
	"fintrack/internal/middleware/trace"
	"fintrack/internal/services"
)

// Deps are the collaborators the API serves. Metrics, BlobHandler and Ready
// are optional.
type Deps struct {
	Auth         identity.Authenticator
	Transactions *services.TransactionService
	Profiles     *services.ProfileService
	Analytics    *services.AnalyticsService
	Feed         services.Subscriber
	Metrics      *metrics.Metrics
	Logger       *applog.Logger

	// BlobHandler serves locally stored avatars under /blobs/.
	BlobHandler http.Handler
	// Ready reports whether backing services are reachable.
	Ready func(ctx context.Context) error

	RateLimitPerMinute int
	// KeepAlive is the interval of comment frames on idle streams.
	KeepAlive time.Duration
}

// Server is the JSON API over net/http.
type Server struct {
	http.Server

	deps     Deps
	logger   *applog.Logger
	limiter  *ratelimit.Limiter
	detector *security.Detector
	tracer   *trace.Middleware
	started  time.Time

	// streams is cancelled by Shutdown so open event streams end.
	streams     context.Context
	stopStreams context.CancelFunc

	shutdownOnce sync.Once
}

// NewServer configures routes and middleware, returning a ready-to-run http.Server.
func NewServer(addr string, deps Deps) *Server {
	if deps.KeepAlive <= 0 {
		deps.KeepAlive = 25 * time.Second
	}

	s := &Server{
		deps:    deps,
		logger:  deps.Logger.WithComponent(applog.ComponentHTTP),
		started: time.Now(),
		limiter: ratelimit.NewLimiter(ratelimit.Config{
			RequestsPerMinute: deps.RateLimitPerMinute,
		}),
	}
	s.streams, s.stopStreams = context.WithCancel(context.Background())
	s.detector = security.NewDetector(deps.Metrics.Suspicious)
	s.tracer = trace.NewMiddleware(deps.Logger, s.detector.ClientIP, deps.Metrics)

	mux := http.NewServeMux()

	mux.HandleFunc("GET /healthz", s.handleHealth)
	mux.HandleFunc("GET /readyz", s.handleReady)
	mux.Handle("GET /metrics", deps.Metrics.Handler())
	if deps.BlobHandler != nil {
		mux.Handle("GET /blobs/", http.StripPrefix("/blobs/", deps.BlobHandler))
	}

	mux.HandleFunc("POST /api/v1/auth/signup", s.handleSignUp)
	mux.HandleFunc("POST /api/v1/auth/signin", s.handleSignIn)
	mux.HandleFunc("POST /api/v1/auth/signout", s.authed(s.handleSignOut))
	mux.HandleFunc("POST /api/v1/auth/password", s.authed(s.handleChangePassword))

	mux.HandleFunc("GET /api/v1/profile", s.authed(s.handleGetProfile))
	mux.HandleFunc("PATCH /api/v1/profile", s.authed(s.handleUpdateProfile))
	mux.HandleFunc("PUT /api/v1/profile/photo", s.authed(s.handleUploadPhoto))
	mux.HandleFunc("GET /api/v1/categories", s.authed(s.handleCategories))

	mux.HandleFunc("GET /api/v1/transactions", s.authed(s.handleListTransactions))
	mux.HandleFunc("POST /api/v1/transactions", s.authed(s.handleCreateTransaction))
	mux.HandleFunc("GET /api/v1/transactions/stream", s.authed(s.handleStream))
	mux.HandleFunc("GET /api/v1/transactions/{id}", s.authed(s.handleGetTransaction))
	mux.HandleFunc("PUT /api/v1/transactions/{id}", s.authed(s.handleUpdateTransaction))
	mux.HandleFunc("DELETE /api/v1/transactions/{id}", s.authed(s.handleDeleteTransaction))

	mux.HandleFunc("GET /api/v1/summary", s.authed(s.handleSummary))
	mux.HandleFunc("GET /api/v1/dashboard", s.authed(s.handleDashboard))

	// Outermost first: trace sees the final status of every request.
	var handler http.Handler = mux
	handler = s.limiter.Middleware(s.detector.ClientIP, s.onRateLimited,
		http.MethodPost, http.MethodPut, http.MethodPatch, http.MethodDelete)(handler)
	handler = s.detector.Middleware(handler)
	handler = security.NewHeadersMiddleware(security.DefaultHeadersConfig()).Middleware(handler)
	handler = s.tracer.Middleware(handler)

	s.Server = http.Server{
		Addr:              addr,
		Handler:           handler,
		ReadHeaderTimeout: 10 * time.Second,
		IdleTimeout:       120 * time.Second,
	}
	return s
}

// Shutdown ends open event streams, then gracefully shuts down the server
// and the rate limiter cleanup.
func (s *Server) Shutdown(ctx context.Context) error {
	var shutdownErr error

	s.shutdownOnce.Do(func() {
		s.stopStreams()
		s.limiter.Stop()
		shutdownErr = s.Server.Shutdown(ctx)
	})

	return shutdownErr
}

func (s *Server) onRateLimited(w http.ResponseWriter, r *http.Request) {
	s.deps.Metrics.RateLimited()
	s.logger.WarnContext(r.Context(), "Rate limit exceeded",
		applog.FieldClientIP, s.detector.ClientIP(r),
		applog.FieldMethod, r.Method,
		applog.FieldPath, r.URL.Path,
	)
	ErrorResponse(http.StatusTooManyRequests, "rate_limited", "rate limit exceeded, please try again later").Write(w)
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	NewJSONResponse().JSON(map[string]any{
		"status":    "ok",
		"timestamp": time.Now().Format(time.RFC3339),
		"uptime":    time.Since(s.started).Round(time.Second).String(),
	}).Write(w)
}

// handleReady performs readiness check with dependency verification
func (s *Server) handleReady(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 3*time.Second)
	defer cancel()

	status := "ready"
	httpStatus := http.StatusOK
	checks := make(map[string]any)

	if s.deps.Ready != nil {
		if err := s.deps.Ready(ctx); err != nil {
			s.logger.WarnContext(r.Context(), "Readiness check failed", applog.FieldError, err.Error())
			checks["store"] = "failed: " + err.Error()
			status = "not_ready"
			httpStatus = http.StatusServiceUnavailable
		} else {
			checks["store"] = "ok"
		}
	} else {
		checks["store"] = "not_configured"
	}

	checks["rate_limiter"] = map[string]any{
		"active_clients": s.limiter.ActiveClients(),
		"status":         "ok",
	}
	checks["requests"] = s.tracer.TotalRequests()

	NewJSONResponse().Status(httpStatus).JSON(map[string]any{
		"status":    status,
		"timestamp": time.Now().Format(time.RFC3339),
		"checks":    checks,
	}).Write(w)
}
