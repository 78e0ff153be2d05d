package app

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/stockward/stockward/internal/auth"
	"github.com/stockward/stockward/internal/ledger"
	"github.com/stockward/stockward/internal/observability"
	"github.com/stockward/stockward/internal/products"
	"github.com/stockward/stockward/internal/reconcile"
	"github.com/stockward/stockward/jobs"
)

// RouterParams groups dependencies for building the HTTP router.
type RouterParams struct {
	Logger           *slog.Logger
	Config           *Config
	TokenManager     *auth.TokenManager
	AuthHandler      *auth.Handler
	ProductHandler   *products.Handler
	LedgerHandler    *ledger.Handler
	ReconcileHandler *reconcile.Handler
	JobHandler       *jobs.Handler
	Pool             *pgxpool.Pool
	Metrics          *observability.Metrics
}

// NewRouter constructs the chi.Router with Stockward defaults.
func NewRouter(params RouterParams) http.Handler {
	r := chi.NewRouter()

	for _, mw := range MiddlewareStack(MiddlewareConfig{
		Logger:  params.Logger,
		Config:  params.Config,
		Metrics: params.Metrics,
	}) {
		r.Use(mw)
	}

	r.Get("/healthz", func(w http.ResponseWriter, req *http.Request) {
		status := http.StatusOK
		body := `{"status":"ok"}`
		if params.Pool != nil {
			if err := params.Pool.Ping(req.Context()); err != nil {
				params.Logger.Error("health check db ping failed", slog.Any("error", err))
				status = http.StatusServiceUnavailable
				body = `{"status":"degraded"}`
			}
		}
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(status)
		_, _ = w.Write([]byte(body))
	})

	if params.Metrics != nil {
		r.Method(http.MethodGet, "/metrics", params.Metrics.Handler())
	}

	r.Route("/api/v1", func(r chi.Router) {
		r.Route("/auth", func(r chi.Router) {
			params.AuthHandler.MountRoutes(r)
			r.Group(func(r chi.Router) {
				r.Use(auth.RequireAccount(params.TokenManager))
				params.AuthHandler.MountProtectedRoutes(r)
			})
		})

		r.Group(func(r chi.Router) {
			r.Use(auth.RequireAccount(params.TokenManager))

			r.Route("/products", func(r chi.Router) {
				params.ProductHandler.MountRoutes(r)
				params.LedgerHandler.MountStockRoutes(r)
			})
			r.Route("/sales", params.LedgerHandler.MountSaleRoutes)
			r.Route("/imports", params.ReconcileHandler.MountRoutes)
			if params.JobHandler != nil {
				r.Route("/jobs", params.JobHandler.MountRoutes)
			}
		})
	})

	return r
}
