package payments

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"

	"github.com/evergreen-pos/evergreen-pos/internal/auth"
	"github.com/evergreen-pos/evergreen-pos/internal/platform/httpx"
)

// Handler manages terminal payment endpoints.
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

// MountRoutes registers payment routes. Charging is open to all staff;
// void and refund mirror the sale rules and need manager or admin.
func (h *Handler) MountRoutes(r chi.Router) {
	r.Post("/eftpos", h.processEftpos)
	r.Group(func(r chi.Router) {
		r.Use(h.auth.RequireRole("manager", "admin"))
		r.Post("/void", h.voidPayment)
		r.Post("/refund", h.refundPayment)
	})
}

type eftposRequest struct {
	Reference string  `json:"reference" validate:"required"`
	Amount    float64 `json:"amount" validate:"required,gt=0"`
}

type voidPaymentRequest struct {
	Reference     string `json:"reference" validate:"required"`
	TransactionID string `json:"transaction_id" validate:"required"`
}

type refundPaymentRequest struct {
	Reference     string  `json:"reference" validate:"required"`
	TransactionID string  `json:"transaction_id" validate:"required"`
	Amount        float64 `json:"amount" validate:"required,gt=0"`
}

func (h *Handler) processEftpos(w http.ResponseWriter, r *http.Request) {
	var req eftposRequest
	if !h.decode(w, r, &req) {
		return
	}
	payment, err := h.service.Charge(r.Context(), ChargeInput{
		Reference: req.Reference,
		Amount:    req.Amount,
	})
	if err != nil {
		h.logger.Warn("eftpos charge", slog.String("reference", req.Reference), slog.Any("error", err))
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusCreated, payment)
}

func (h *Handler) voidPayment(w http.ResponseWriter, r *http.Request) {
	var req voidPaymentRequest
	if !h.decode(w, r, &req) {
		return
	}
	payment, err := h.service.VoidPayment(r.Context(), VoidInput{
		Reference:     req.Reference,
		TransactionID: req.TransactionID,
	})
	if err != nil {
		h.logger.Warn("eftpos void", slog.String("transaction_id", req.TransactionID), slog.Any("error", err))
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, payment)
}

func (h *Handler) refundPayment(w http.ResponseWriter, r *http.Request) {
	var req refundPaymentRequest
	if !h.decode(w, r, &req) {
		return
	}
	sale, err := h.service.RefundPayment(r.Context(), RefundInput{
		Reference:     req.Reference,
		TransactionID: req.TransactionID,
		Amount:        req.Amount,
	})
	if err != nil {
		h.logger.Warn("eftpos refund", slog.String("transaction_id", req.TransactionID), slog.Any("error", err))
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, sale)
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
