package inventory

import (
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

// Handler wires HTTP endpoints for the stock ledger.
type Handler struct {
	logger    *slog.Logger
	service   *Service
	validator *validator.Validate
	auth      auth.Middleware
}

// NewHandler constructs the inventory handler.
func NewHandler(logger *slog.Logger, service *Service, authmw auth.Middleware) *Handler {
	return &Handler{logger: logger, service: service, validator: validator.New(), auth: authmw}
}

// MountRoutes registers inventory routes.
func (h *Handler) MountRoutes(r chi.Router) {
	r.Get("/movements", h.handleList)
	r.Group(func(r chi.Router) {
		r.Use(h.auth.RequireRole("manager", "admin"))
		r.Post("/movements", h.handleRecord)
	})
}

type recordMovementRequest struct {
	ProductID    int64  `json:"product_id" validate:"omitempty,gt=0"`
	Barcode      string `json:"barcode" validate:"omitempty,numeric"`
	MovementType string `json:"movement_type" validate:"required"`
	Quantity     int    `json:"quantity" validate:"gte=0"`
	Reference    string `json:"reference" validate:"omitempty,max=255"`
}

func (h *Handler) handleRecord(w http.ResponseWriter, r *http.Request) {
	var req recordMovementRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.RespondError(w, err)
		return
	}
	if err := h.validator.Struct(req); err != nil {
		fieldErrors := map[string]string{}
		for _, fieldErr := range err.(validator.ValidationErrors) {
			fieldErrors[fieldErr.Field()] = fieldErr.Error()
		}
		httpx.ValidationProblem(w, fieldErrors)
		return
	}
	identity, ok := shared.IdentityFromContext(r.Context())
	if !ok {
		httpx.RespondError(w, httpx.ErrUnauthorized)
		return
	}

	movement, err := h.service.Record(r.Context(), RecordInput{
		ProductID:      req.ProductID,
		Barcode:        req.Barcode,
		Type:           MovementType(req.MovementType),
		Quantity:       req.Quantity,
		Reference:      req.Reference,
		PerformedBy:    identity.UserID,
		IdempotencyKey: r.Header.Get("Idempotency-Key"),
	})
	if err != nil {
		h.logger.Warn("record movement", slog.Any("error", err))
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusCreated, movement)
}

type movementListResponse struct {
	Movements  []Movement `json:"movements"`
	Page       int        `json:"page"`
	PerPage    int        `json:"per_page"`
	Total      int        `json:"total"`
	TotalPages int        `json:"total_pages"`
}

func (h *Handler) handleList(w http.ResponseWriter, r *http.Request) {
	filter := MovementFilter{
		Type:    MovementType(r.URL.Query().Get("movement_type")),
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
	var err error
	if filter.From, err = queryTime(r, "from"); err != nil {
		httpx.ValidationProblem(w, map[string]string{"from": "must be an RFC 3339 timestamp or YYYY-MM-DD"})
		return
	}
	if filter.To, err = queryTime(r, "to"); err != nil {
		httpx.ValidationProblem(w, map[string]string{"to": "must be an RFC 3339 timestamp or YYYY-MM-DD"})
		return
	}

	movements, pagination, err := h.service.List(r.Context(), filter)
	if err != nil {
		h.logger.Error("list movements", slog.Any("error", err))
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, movementListResponse{
		Movements:  movements,
		Page:       pagination.Page,
		PerPage:    pagination.PerPage,
		Total:      pagination.Total,
		TotalPages: pagination.TotalPages,
	})
}

func queryInt(r *http.Request, key string) int {
	v, err := strconv.Atoi(r.URL.Query().Get(key))
	if err != nil {
		return 0
	}
	return v
}

// queryTime parses an optional timestamp query param. A bare date on
// "to" is moved to the following midnight so the named day stays inside
// the range.
func queryTime(r *http.Request, key string) (time.Time, error) {
	raw := r.URL.Query().Get(key)
	if raw == "" {
		return time.Time{}, nil
	}
	if t, err := time.Parse(time.RFC3339, raw); err == nil {
		return t, nil
	}
	t, err := time.Parse("2006-01-02", raw)
	if err != nil {
		return time.Time{}, err
	}
	if key == "to" {
		t = t.AddDate(0, 0, 1)
	}
	return t, nil
}
