package http

import (
	"context"
	"net/http"
	"sync"
	"time"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"

	"organify/internal/auth"
	"organify/internal/core"
	applog "organify/internal/log"
	"organify/internal/middleware/ratelimit"
	"organify/internal/middleware/security"
	"organify/internal/middleware/trace"
)

// Ledger is the transaction and aggregation surface used by the handlers.
type Ledger interface {
	GetSummaryTotals(ctx context.Context, userID string, ref time.Time) (core.SummaryTotals, error)
	GetRunningBalance(ctx context.Context, userID string, ref time.Time) (core.RunningBalance, error)
	GetTransactions(ctx context.Context, userID string, typ core.TransactionType, ref time.Time) ([]core.Transaction, error)
	CreateTransaction(ctx context.Context, userID string, t core.Transaction) (core.Transaction, error)
	UpdateTransaction(ctx context.Context, userID, id string, p core.TransactionPatch) (core.Transaction, error)
	DeleteTransaction(ctx context.Context, userID, id string) error
}

type Debts interface {
	CreateDebt(ctx context.Context, userID string, d core.Debt) (core.DebtView, error)
	GetDebts(ctx context.Context, userID string) ([]core.DebtView, error)
	GetDebt(ctx context.Context, userID, id string) (core.DebtView, error)
	GetDebtsSummary(ctx context.Context, userID string) (core.DebtsSummary, error)
	UpdateDebt(ctx context.Context, userID, id string, p core.DebtPatch) (core.DebtView, error)
	DeleteDebt(ctx context.Context, userID, id string) error
	AddPayment(ctx context.Context, userID, debtID string, p core.DebtPayment) (core.DebtPayment, error)
	UpdatePayment(ctx context.Context, userID, paymentID, debtID string, p core.PaymentPatch) (core.DebtPayment, error)
	DeletePayment(ctx context.Context, userID, paymentID string) error
}

type Categories interface {
	ListCategories(ctx context.Context, userID string) ([]core.Category, error)
	CreateCategory(ctx context.Context, userID string, c core.Category) (core.Category, error)
	UpdateCategory(ctx context.Context, userID, id string, p core.CategoryPatch) (core.Category, error)
	DeleteCategory(ctx context.Context, userID, id string) error
	SeedDefaultCategories(ctx context.Context, userID string) (int, error)
}

type Planned interface {
	CreateOrUpdatePlannedPurchase(ctx context.Context, userID string, p core.PlannedPurchase) (core.PlannedPurchase, error)
	ListPlannedPurchases(ctx context.Context, userID string, ref time.Time) ([]core.PlannedPurchase, error)
	TogglePlannedPurchaseStatus(ctx context.Context, userID, id string) (core.PlannedPurchase, error)
	DeletePlannedPurchase(ctx context.Context, userID, id string) error
}

type Accounts interface {
	GetAccount(ctx context.Context, userID string) (core.User, error)
	CompleteOnboarding(ctx context.Context, userID string, plan core.Plan) (core.User, error)
}

type Exports interface {
	MonthlyStatement(ctx context.Context, userID string, ref time.Time) ([]byte, error)
}

// Pinger reports whether the backing store is reachable.
type Pinger interface {
	Ping(ctx context.Context) error
}

// Services groups the application services behind the API.
type Services struct {
	Ledger     Ledger
	Debts      Debts
	Categories Categories
	Planned    Planned
	Accounts   Accounts
	Exports    Exports
}

// Options configures the server's middleware chain.
type Options struct {
	Addr           string
	Tokens         *auth.Tokens
	Logger         *applog.Logger
	RateLimit      ratelimit.Config
	TrustedProxies []string
	Ready          Pinger
}

type Server struct {
	http.Server
	svc      Services
	ready    Pinger
	limiter  *ratelimit.Limiter
	detector *security.Detector
	tracer   *trace.Middleware

	shutdownOnce sync.Once
}

// NewServer configures routes and middleware, returning a ready-to-run http.Server.
func NewServer(opts Options, svc Services) *Server {
	logger := opts.Logger
	if logger == nil {
		logger = applog.New(applog.DefaultConfig())
	}
	s := &Server{
		svc:      svc,
		ready:    opts.Ready,
		limiter:  ratelimit.NewLimiter(opts.RateLimit),
		detector: security.NewDetector(),
		tracer:   trace.NewMiddleware(),
	}
	for _, cidr := range opts.TrustedProxies {
		if err := s.detector.AddTrustedProxy(cidr); err != nil {
			logger.Warn("Ignoring invalid trusted proxy", "cidr", cidr, "error", err)
		}
	}

	r := chi.NewRouter()
	r.Use(chimw.Recoverer)
	r.Use(s.tracer.Middleware)
	r.Use(applog.RequestLogger(logger, trace.FromRequest, s.detector.ExtractClientIP))
	r.Use(security.NewHeadersMiddleware(security.DefaultHeadersConfig()).Middleware)
	r.Use(s.detector.Middleware)

	r.NotFound(func(w http.ResponseWriter, r *http.Request) {
		NotFoundError("route not found").Write(w)
	})
	r.MethodNotAllowed(func(w http.ResponseWriter, r *http.Request) {
		ErrorResponse(http.StatusMethodNotAllowed, "method not allowed").Write(w)
	})

	r.Get("/healthz", handleHealth)
	r.Get("/readyz", s.handleReady)

	r.Route("/api", func(r chi.Router) {
		r.Use(s.limiter.Middleware(s.detector.ExtractClientIP, handleRateLimited))
		r.Use(opts.Tokens.Middleware)

		r.Route("/transactions", func(r chi.Router) {
			r.Get("/", s.handleListTransactions)
			r.Post("/", s.handleCreateTransaction)
			r.Put("/{id}", s.handleUpdateTransaction)
			r.Delete("/{id}", s.handleDeleteTransaction)
		})
		r.Get("/summary", s.handleSummary)
		r.Get("/running-balance", s.handleRunningBalance)

		r.Route("/categories", func(r chi.Router) {
			r.Get("/", s.handleListCategories)
			r.Post("/", s.handleCreateCategory)
			r.Post("/seed", s.handleSeedCategories)
			r.Put("/{id}", s.handleUpdateCategory)
			r.Delete("/{id}", s.handleDeleteCategory)
		})

		r.Route("/debts", func(r chi.Router) {
			r.Get("/", s.handleListDebts)
			r.Post("/", s.handleCreateDebt)
			r.Get("/summary", s.handleDebtsSummary)
			r.Get("/{id}", s.handleGetDebt)
			r.Put("/{id}", s.handleUpdateDebt)
			r.Delete("/{id}", s.handleDeleteDebt)
			r.Post("/{id}/payments", s.handleAddPayment)
		})
		r.Put("/payments/{id}", s.handleUpdatePayment)
		r.Delete("/payments/{id}", s.handleDeletePayment)

		r.Route("/planned-purchases", func(r chi.Router) {
			r.Get("/", s.handleListPlanned)
			r.Post("/", s.handleSavePlanned)
			r.Post("/{id}/toggle", s.handleTogglePlanned)
			r.Delete("/{id}", s.handleDeletePlanned)
		})

		r.Get("/account", s.handleGetAccount)
		r.Post("/account/onboarding", s.handleOnboarding)
		r.Get("/exports/statement.xlsx", s.handleStatementExport)
	})

	s.Server = http.Server{
		Addr:              opts.Addr,
		Handler:           r,
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       30 * time.Second,
		WriteTimeout:      60 * time.Second,
		IdleTimeout:       120 * time.Second,
	}
	return s
}

// Shutdown gracefully shuts down the server and the limiter janitor.
func (s *Server) Shutdown(ctx context.Context) error {
	var shutdownErr error
	s.shutdownOnce.Do(func() {
		s.limiter.Stop()
		shutdownErr = s.Server.Shutdown(ctx)
	})
	return shutdownErr
}

func handleHealth(w http.ResponseWriter, r *http.Request) {
	OK(map[string]string{"status": "ok"}).Write(w)
}

func (s *Server) handleReady(w http.ResponseWriter, r *http.Request) {
	if s.ready != nil {
		ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
		defer cancel()
		if err := s.ready.Ping(ctx); err != nil {
			applog.FromContext(r.Context()).WarnContext(r.Context(), "Readiness check failed", applog.FieldError, err)
			ErrorResponse(http.StatusServiceUnavailable, "database unavailable").Write(w)
			return
		}
	}
	OK(map[string]string{"status": "ready"}).Write(w)
}

func handleRateLimited(w http.ResponseWriter, r *http.Request) {
	ErrorResponse(http.StatusTooManyRequests, "rate limit exceeded, please try again later").Write(w)
}

// userID returns the caller's id or writes a 401.
func userID(w http.ResponseWriter, r *http.Request) (string, bool) {
	uid, err := auth.UserIDFromContext(r.Context())
	if err != nil {
		writeError(w, r, "authenticate", err)
		return "", false
	}
	return uid, true
}

// decodeOrFail decodes the body and writes a 400 on failure.
func decodeOrFail(w http.ResponseWriter, r *http.Request, dst any) bool {
	if err := decodeJSON(w, r, dst); err != nil {
		applog.FromContext(r.Context()).DebugContext(r.Context(), "Rejected request body", applog.FieldError, err)
		BadRequestError("invalid request body").Write(w)
		return false
	}
	return true
}
