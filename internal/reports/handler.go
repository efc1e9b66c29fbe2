package reports

import (
	"context"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/evergreen-pos/evergreen-pos/internal/inventory"
	"github.com/evergreen-pos/evergreen-pos/internal/platform/httpx"
)

const requestTimeout = 2 * time.Second

// Handler manages report endpoints.
type Handler struct {
	logger  *slog.Logger
	service *Service
}

// NewHandler builds Handler instance.
func NewHandler(logger *slog.Logger, service *Service) *Handler {
	return &Handler{logger: logger, service: service}
}

// MountRoutes registers report routes.
func (h *Handler) MountRoutes(r chi.Router) {
	r.Get("/sales/{period}", h.salesReport)
	r.Get("/inventory/movements", h.movementReport)
	r.Get("/inventory/low-stock", h.lowStockReport)
	r.Get("/dashboard", h.dashboard)
}

func (h *Handler) salesReport(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := requestContext(r)
	defer cancel()

	from, ok := queryDate(r, "from")
	if !ok {
		httpx.ValidationProblem(w, map[string]string{"from": "must be an RFC 3339 timestamp or YYYY-MM-DD"})
		return
	}
	to, ok := queryDate(r, "to")
	if !ok {
		httpx.ValidationProblem(w, map[string]string{"to": "must be an RFC 3339 timestamp or YYYY-MM-DD"})
		return
	}

	summary, err := h.service.SalesSummary(ctx, chi.URLParam(r, "period"), from, to)
	if err != nil {
		h.logger.Warn("sales report", slog.Any("error", err))
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, summary)
}

func (h *Handler) movementReport(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := requestContext(r)
	defer cancel()

	filter := inventory.MovementFilter{
		Type:    inventory.MovementType(r.URL.Query().Get("movement_type")),
		Page:    queryInt(r, "page"),
		PerPage: queryInt(r, "per_page"),
	}
	if v := r.URL.Query().Get("product_id"); v != "" {
		id, err := strconv.ParseInt(v, 10, 64)
		if err != nil {
			httpx.ValidationProblem(w, map[string]string{"product_id": "must be an integer"})
			return
		}
		filter.ProductID = id
	}
	if from, ok := queryDate(r, "from"); ok && from != nil {
		filter.From = *from
	} else if !ok {
		httpx.ValidationProblem(w, map[string]string{"from": "must be an RFC 3339 timestamp or YYYY-MM-DD"})
		return
	}
	if to, ok := queryDate(r, "to"); ok && to != nil {
		filter.To = *to
	} else if !ok {
		httpx.ValidationProblem(w, map[string]string{"to": "must be an RFC 3339 timestamp or YYYY-MM-DD"})
		return
	}

	summary, err := h.service.MovementSummary(ctx, filter)
	if err != nil {
		h.logger.Warn("movement report", slog.Any("error", err))
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, summary)
}

func (h *Handler) lowStockReport(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := requestContext(r)
	defer cancel()

	items, err := h.service.LowStock(ctx)
	if err != nil {
		h.logger.Error("low stock report", slog.Any("error", err))
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, map[string]any{
		"products": items,
		"count":    len(items),
	})
}

func (h *Handler) dashboard(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := requestContext(r)
	defer cancel()

	snapshot, err := h.service.Dashboard(ctx)
	if err != nil {
		h.logger.Error("dashboard", slog.Any("error", err))
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, snapshot)
}

func requestContext(r *http.Request) (context.Context, context.CancelFunc) {
	return context.WithTimeout(r.Context(), requestTimeout)
}

// queryDate parses an optional date query param. A bare date on "to" is
// returned at the following midnight so the named day stays inside the
// range.
func queryDate(r *http.Request, key string) (*time.Time, bool) {
	raw := r.URL.Query().Get(key)
	if raw == "" {
		return nil, true
	}
	if t, err := time.Parse(time.RFC3339, raw); err == nil {
		t = t.UTC()
		return &t, true
	}
	if t, err := time.Parse("2006-01-02", raw); err == nil {
		t = t.UTC()
		if key == "to" {
			t = t.AddDate(0, 0, 1)
		}
		return &t, true
	}
	return nil, false
}

func queryInt(r *http.Request, key string) int {
	value, err := strconv.Atoi(r.URL.Query().Get(key))
	if err != nil || value < 1 {
		return 0
	}
	return value
}
