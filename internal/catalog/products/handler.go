package products

import (
	"context"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"

	"github.com/evergreen-pos/evergreen-pos/internal/auth"
	"github.com/evergreen-pos/evergreen-pos/internal/catalog/shared"
	"github.com/evergreen-pos/evergreen-pos/internal/inventory"
	"github.com/evergreen-pos/evergreen-pos/internal/platform/httpx"
	internalShared "github.com/evergreen-pos/evergreen-pos/internal/shared"
)

// StockSetter overwrites a stock level while keeping the movement ledger honest.
type StockSetter interface {
	SetStock(ctx context.Context, productID int64, counted int, performedBy int64, reference string) (inventory.Movement, error)
}

type Handler struct {
	logger    *slog.Logger
	service   *Service
	stock     StockSetter
	validator *validator.Validate
	auth      auth.Middleware
}

func NewHandler(logger *slog.Logger, service *Service, stock StockSetter, authmw auth.Middleware) *Handler {
	return &Handler{logger: logger, service: service, stock: stock, validator: validator.New(), auth: authmw}
}

func (h *Handler) MountRoutes(r chi.Router) {
	r.Get("/", h.List)
	r.Get("/{id}", h.Get)
	r.Group(func(r chi.Router) {
		r.Use(h.auth.RequireRole("manager", "admin"))
		r.Post("/", h.Create)
		r.Put("/{id}", h.Update)
		r.Delete("/{id}", h.Delete)
		r.Put("/{id}/stock", h.UpdateStock)
	})
}

type listResponse struct {
	Products   []Product `json:"products"`
	Page       int       `json:"page"`
	PerPage    int       `json:"per_page"`
	Total      int       `json:"total"`
	TotalPages int       `json:"total_pages"`
}

func (h *Handler) List(w http.ResponseWriter, r *http.Request) {
	page, _ := strconv.Atoi(r.URL.Query().Get("page"))
	if page < 1 {
		page = shared.DefaultPage
	}
	limit, _ := strconv.Atoi(r.URL.Query().Get("limit"))
	if limit < 1 {
		limit = shared.DefaultLimit
	}

	filters := shared.ListFilters{
		Page:    page,
		Limit:   limit,
		Search:  r.URL.Query().Get("search"),
		SortBy:  r.URL.Query().Get("sort"),
		SortDir: r.URL.Query().Get("dir"),
	}
	if v := r.URL.Query().Get("category"); v != "" {
		category := shared.Category(v)
		if !category.Valid() {
			httpx.ValidationProblem(w, map[string]string{"category": "unknown category"})
			return
		}
		filters.Category = &category
	}
	if v := r.URL.Query().Get("supplier_id"); v != "" {
		if id, err := strconv.ParseInt(v, 10, 64); err == nil {
			filters.SupplierID = &id
		}
	}
	if v := r.URL.Query().Get("is_active"); v != "" {
		isActive := v == "true"
		filters.IsActive = &isActive
	}
	filters.LowStock = r.URL.Query().Get("low_stock") == "true"

	list, total, err := h.service.List(r.Context(), filters)
	if err != nil {
		h.logger.Error("list products", slog.Any("error", err))
		httpx.RespondError(w, err)
		return
	}
	pagination := internalShared.NewPagination(page, limit, total)
	httpx.JSON(w, http.StatusOK, listResponse{
		Products:   list,
		Page:       pagination.Page,
		PerPage:    pagination.PerPage,
		Total:      pagination.Total,
		TotalPages: pagination.TotalPages,
	})
}

func (h *Handler) Get(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	product, err := h.service.Get(r.Context(), id)
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, product)
}

func (h *Handler) Create(w http.ResponseWriter, r *http.Request) {
	var req CreateProductRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.RespondError(w, err)
		return
	}
	if !h.validStruct(w, req) {
		return
	}
	product, err := h.service.Create(r.Context(), req)
	if err != nil {
		h.logger.Warn("create product", slog.Any("error", err))
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusCreated, product)
}

func (h *Handler) Update(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	var req UpdateProductRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.RespondError(w, err)
		return
	}
	if !h.validStruct(w, req) {
		return
	}
	product, err := h.service.Update(r.Context(), id, req)
	if err != nil {
		h.logger.Warn("update product", slog.Any("error", err))
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, product)
}

func (h *Handler) Delete(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	deactivated, err := h.service.Delete(r.Context(), id)
	if err != nil {
		h.logger.Warn("delete product", slog.Any("error", err))
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, map[string]bool{"deactivated": deactivated})
}

type stockUpdateResponse struct {
	Product  Product            `json:"product"`
	Movement inventory.Movement `json:"movement"`
}

func (h *Handler) UpdateStock(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	var req UpdateStockRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.RespondError(w, err)
		return
	}
	if !h.validStruct(w, req) {
		return
	}
	identity, ok := internalShared.IdentityFromContext(r.Context())
	if !ok {
		httpx.RespondError(w, httpx.ErrUnauthorized)
		return
	}

	movement, err := h.stock.SetStock(r.Context(), id, req.CountedQuantity, identity.UserID, req.Reference)
	if err != nil {
		h.logger.Warn("update stock", slog.Any("error", err))
		httpx.RespondError(w, err)
		return
	}
	product, err := h.service.Get(r.Context(), id)
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, stockUpdateResponse{Product: product, Movement: movement})
}

func (h *Handler) validStruct(w http.ResponseWriter, v any) bool {
	if err := h.validator.Struct(v); err != nil {
		fieldErrors := map[string]string{}
		for _, fieldErr := range err.(validator.ValidationErrors) {
			fieldErrors[fieldErr.Field()] = fieldErr.Error()
		}
		httpx.ValidationProblem(w, fieldErrors)
		return false
	}
	return true
}

func pathID(r *http.Request) (int64, error) {
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil || id <= 0 {
		return 0, shared.ErrInvalidID
	}
	return id, nil
}
