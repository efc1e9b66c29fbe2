package app

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/evergreen-pos/evergreen-pos/internal/auth"
	"github.com/evergreen-pos/evergreen-pos/internal/barcode"
	"github.com/evergreen-pos/evergreen-pos/internal/catalog/customers"
	"github.com/evergreen-pos/evergreen-pos/internal/catalog/products"
	"github.com/evergreen-pos/evergreen-pos/internal/catalog/suppliers"
	"github.com/evergreen-pos/evergreen-pos/internal/inventory"
	"github.com/evergreen-pos/evergreen-pos/internal/observability"
	"github.com/evergreen-pos/evergreen-pos/internal/payments"
	"github.com/evergreen-pos/evergreen-pos/internal/reports"
	"github.com/evergreen-pos/evergreen-pos/internal/sales"
	"github.com/evergreen-pos/evergreen-pos/internal/users"
	"github.com/evergreen-pos/evergreen-pos/jobs"
)

// RouterParams groups dependencies for building the HTTP router.
type RouterParams struct {
	Logger           *slog.Logger
	Config           *Config
	Auth             auth.Middleware
	AuthHandler      *auth.Handler
	ProductsHandler  *products.Handler
	SuppliersHandler *suppliers.Handler
	CustomersHandler *customers.Handler
	SalesHandler     *sales.Handler
	InventoryHandler *inventory.Handler
	PaymentsHandler  *payments.Handler
	BarcodeHandler   *barcode.Handler
	ReportsHandler   *reports.Handler
	UsersHandler     *users.Handler
	JobHandler       *jobs.Handler
	Pool             *pgxpool.Pool
	Metrics          *observability.Metrics
}

// NewRouter constructs the chi.Router with Evergreen defaults.
func NewRouter(params RouterParams) http.Handler {
	r := chi.NewRouter()

	for _, mw := range MiddlewareStack(MiddlewareConfig{
		Logger:  params.Logger,
		Config:  params.Config,
		Metrics: params.Metrics,
	}) {
		r.Use(mw)
	}

	r.Use(chimw.Logger)

	r.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte(`{"status":"ok"}`))
	})

	r.Route("/auth", params.AuthHandler.MountRoutes)

	r.Group(func(r chi.Router) {
		r.Use(params.Auth.Authenticate)

		r.Route("/products", params.ProductsHandler.MountRoutes)
		r.Route("/sales", params.SalesHandler.MountRoutes)
		r.Route("/inventory", params.InventoryHandler.MountRoutes)
		if params.SuppliersHandler != nil {
			r.Route("/suppliers", params.SuppliersHandler.MountRoutes)
		}
		if params.CustomersHandler != nil {
			r.Route("/customers", params.CustomersHandler.MountRoutes)
		}
		if params.PaymentsHandler != nil {
			r.Route("/payments", params.PaymentsHandler.MountRoutes)
		}
		if params.BarcodeHandler != nil {
			r.Route("/barcode", params.BarcodeHandler.MountRoutes)
		}
		if params.ReportsHandler != nil {
			r.Route("/reports", params.ReportsHandler.MountRoutes)
		}
		if params.UsersHandler != nil {
			r.Route("/users", params.UsersHandler.MountRoutes)
		}
		if params.JobHandler != nil {
			r.Route("/jobs", params.JobHandler.MountRoutes)
		}
	})

	if params.Metrics != nil {
		r.Method(http.MethodGet, "/metrics", params.Metrics.Handler())
	}

	return r
}
