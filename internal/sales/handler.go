package sales

import (
	"context"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"

	"github.com/evergreen-pos/evergreen-pos/internal/auth"
	"github.com/evergreen-pos/evergreen-pos/internal/platform/httpx"
	"github.com/evergreen-pos/evergreen-pos/internal/shared"
)

// ReceiptRenderer turns a sale into a printable receipt.
type ReceiptRenderer interface {
	HTML(sale *Sale) ([]byte, error)
	PDF(ctx context.Context, html []byte) ([]byte, error)
}

// Handler manages sale endpoints.
type Handler struct {
	logger    *slog.Logger
	service   *Service
	receipts  ReceiptRenderer
	validator *validator.Validate
	auth      auth.Middleware
}

// NewHandler builds Handler instance.
func NewHandler(logger *slog.Logger, service *Service, receipts ReceiptRenderer, authmw auth.Middleware) *Handler {
	return &Handler{
		logger:    logger,
		service:   service,
		receipts:  receipts,
		validator: validator.New(),
		auth:      authmw,
	}
}

// MountRoutes registers sale routes. Checkout is open to all staff;
// void and refund are manager/admin operations.
func (h *Handler) MountRoutes(r chi.Router) {
	r.Post("/", h.createSale)
	r.Get("/", h.listSales)
	r.Get("/{id}", h.getSale)
	r.Get("/{id}/receipt", h.saleReceipt)
	r.Group(func(r chi.Router) {
		r.Use(h.auth.RequireRole("manager", "admin"))
		r.Put("/{id}/void", h.voidSale)
		r.Put("/{id}/refund", h.refundSale)
	})
}

func (h *Handler) createSale(w http.ResponseWriter, r *http.Request) {
	identity, ok := shared.IdentityFromContext(r.Context())
	if !ok {
		httpx.RespondError(w, httpx.ErrUnauthorized)
		return
	}
	var req CreateSaleRequest
	if !h.decode(w, r, &req) {
		return
	}

	sale, err := h.service.Create(r.Context(), req, identity.UserID, r.Header.Get("Idempotency-Key"))
	if err != nil {
		h.logger.Warn("create sale", slog.Any("error", err))
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusCreated, sale)
}

func (h *Handler) listSales(w http.ResponseWriter, r *http.Request) {
	req := ListSalesRequest{
		Page:    queryInt(r, "page", 1),
		PerPage: queryInt(r, "per_page", 20),
	}
	if t, ok := queryTime(r, "from"); ok {
		req.From = &t
	}
	if t, ok := queryTime(r, "to"); ok {
		req.To = &t
	}
	if v := r.URL.Query().Get("status"); v != "" {
		status := SaleStatus(v)
		req.Status = &status
	}
	if v := r.URL.Query().Get("cashier_id"); v != "" {
		if id, err := strconv.ParseInt(v, 10, 64); err == nil {
			req.CashierID = &id
		}
	}
	if v := r.URL.Query().Get("customer_id"); v != "" {
		if id, err := strconv.ParseInt(v, 10, 64); err == nil {
			req.CustomerID = &id
		}
	}

	sales, pagination, err := h.service.List(r.Context(), req)
	if err != nil {
		h.logger.Error("list sales", slog.Any("error", err))
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, map[string]any{
		"sales":       sales,
		"page":        pagination.Page,
		"per_page":    pagination.PerPage,
		"total":       pagination.Total,
		"total_pages": pagination.TotalPages,
	})
}

func (h *Handler) getSale(w http.ResponseWriter, r *http.Request) {
	id, err := pathSaleID(r)
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	sale, err := h.service.Get(r.Context(), id)
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, sale)
}

func (h *Handler) voidSale(w http.ResponseWriter, r *http.Request) {
	identity, ok := shared.IdentityFromContext(r.Context())
	if !ok {
		httpx.RespondError(w, httpx.ErrUnauthorized)
		return
	}
	id, err := pathSaleID(r)
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	var req VoidSaleRequest
	if !h.decode(w, r, &req) {
		return
	}
	sale, err := h.service.Void(r.Context(), id, req, identity.UserID)
	if err != nil {
		h.logger.Warn("void sale", slog.Int64("sale_id", id), slog.Any("error", err))
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, sale)
}

func (h *Handler) refundSale(w http.ResponseWriter, r *http.Request) {
	identity, ok := shared.IdentityFromContext(r.Context())
	if !ok {
		httpx.RespondError(w, httpx.ErrUnauthorized)
		return
	}
	id, err := pathSaleID(r)
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	var req RefundSaleRequest
	if !h.decode(w, r, &req) {
		return
	}
	sale, err := h.service.Refund(r.Context(), id, req, identity.UserID)
	if err != nil {
		h.logger.Warn("refund sale", slog.Int64("sale_id", id), slog.Any("error", err))
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, sale)
}

func (h *Handler) saleReceipt(w http.ResponseWriter, r *http.Request) {
	id, err := pathSaleID(r)
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	sale, err := h.service.Get(r.Context(), id)
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	if h.receipts == nil {
		httpx.RespondError(w, httpx.ErrNotFound)
		return
	}

	html, err := h.receipts.HTML(sale)
	if err != nil {
		h.logger.Error("render receipt", slog.Int64("sale_id", id), slog.Any("error", err))
		httpx.RespondError(w, err)
		return
	}

	if r.URL.Query().Get("format") == "pdf" {
		pdf, err := h.receipts.PDF(r.Context(), html)
		if err != nil {
			h.logger.Error("convert receipt", slog.Int64("sale_id", id), slog.Any("error", err))
			httpx.RespondError(w, err)
			return
		}
		w.Header().Set("Content-Type", "application/pdf")
		w.Header().Set("Content-Disposition", `inline; filename="receipt-`+sale.SaleNumber+`.pdf"`)
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write(pdf)
		return
	}

	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(html)
}

func (h *Handler) decode(w http.ResponseWriter, r *http.Request, dest any) bool {
	if err := httpx.DecodeJSON(r, dest); err != nil {
		httpx.RespondError(w, err)
		return false
	}
	if err := h.validator.Struct(dest); err != nil {
		fieldErrors := map[string]string{}
		for _, fieldErr := range err.(validator.ValidationErrors) {
			fieldErrors[fieldErr.Field()] = fieldErr.Error()
		}
		httpx.ValidationProblem(w, fieldErrors)
		return false
	}
	return true
}

func pathSaleID(r *http.Request) (int64, error) {
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil || id <= 0 {
		return 0, ErrNotFound
	}
	return id, nil
}

func queryInt(r *http.Request, key string, fallback int) int {
	value, err := strconv.Atoi(r.URL.Query().Get(key))
	if err != nil || value < 1 {
		return fallback
	}
	return value
}

// queryTime parses an optional timestamp query param. A bare date on
// "to" is moved to the following midnight so the named day stays inside
// the range.
func queryTime(r *http.Request, key string) (time.Time, bool) {
	raw := r.URL.Query().Get(key)
	if raw == "" {
		return time.Time{}, false
	}
	if t, err := time.Parse(time.RFC3339, raw); err == nil {
		return t, true
	}
	if t, err := time.Parse("2006-01-02", raw); err == nil {
		if key == "to" {
			t = t.AddDate(0, 0, 1)
		}
		return t, true
	}
	return time.Time{}, false
}
