package barcode

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"

	"github.com/evergreen-pos/evergreen-pos/internal/auth"
	"github.com/evergreen-pos/evergreen-pos/internal/catalog/shared"
	"github.com/evergreen-pos/evergreen-pos/internal/inventory"
	"github.com/evergreen-pos/evergreen-pos/internal/platform/httpx"
	appshared "github.com/evergreen-pos/evergreen-pos/internal/shared"
)

// Handler manages barcode endpoints.
type Handler struct {
	logger    *slog.Logger
	service   *Service
	validator *validator.Validate
	auth      auth.Middleware
}

// NewHandler builds Handler instance.
func NewHandler(logger *slog.Logger, service *Service, authmw auth.Middleware) *Handler {
	return &Handler{
		logger:    logger,
		service:   service,
		validator: validator.New(),
		auth:      authmw,
	}
}

// MountRoutes registers barcode routes. Generation is a manager
// operation; scanning and movements are everyday register work.
func (h *Handler) MountRoutes(r chi.Router) {
	r.Post("/scan", h.scan)
	r.Post("/movement", h.movement)
	r.Group(func(r chi.Router) {
		r.Use(h.auth.RequireRole("manager", "admin"))
		r.Post("/generate", h.generate)
	})
}

type scanRequest struct {
	Barcode string `json:"barcode" validate:"required"`
}

func (h *Handler) scan(w http.ResponseWriter, r *http.Request) {
	var req scanRequest
	if !h.decode(w, r, &req) {
		return
	}
	product, err := h.service.Scan(r.Context(), req.Barcode)
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, product)
}

type generateRequest struct {
	Category string `json:"category" validate:"required"`
}

func (h *Handler) generate(w http.ResponseWriter, r *http.Request) {
	var req generateRequest
	if !h.decode(w, r, &req) {
		return
	}
	generated, err := h.service.Generate(r.Context(), shared.Category(req.Category))
	if err != nil {
		h.logger.Warn("generate barcode", slog.String("category", req.Category), slog.Any("error", err))
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusCreated, generated)
}

type movementRequest struct {
	Barcode      string `json:"barcode" validate:"required"`
	MovementType string `json:"movement_type" validate:"required"`
	Quantity     int    `json:"quantity" validate:"gte=0"`
	Reference    string `json:"reference" validate:"omitempty,max=255"`
}

func (h *Handler) movement(w http.ResponseWriter, r *http.Request) {
	var req movementRequest
	if !h.decode(w, r, &req) {
		return
	}
	identity, ok := appshared.IdentityFromContext(r.Context())
	if !ok {
		httpx.RespondError(w, httpx.ErrUnauthorized)
		return
	}
	movement, err := h.service.Movement(r.Context(), MovementInput{
		Barcode:        req.Barcode,
		Type:           inventory.MovementType(req.MovementType),
		Quantity:       req.Quantity,
		Reference:      req.Reference,
		PerformedBy:    identity.UserID,
		IdempotencyKey: r.Header.Get("Idempotency-Key"),
	})
	if err != nil {
		h.logger.Warn("barcode movement", slog.String("barcode", req.Barcode), slog.Any("error", err))
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusCreated, movement)
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
