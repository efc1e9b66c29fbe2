package sales

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/evergreen-pos/evergreen-pos/internal/auth"
)

// ============================================================================
// TEST HARNESS
// ============================================================================

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

type stubRenderer struct {
	pdfErr error
}

func (s stubRenderer) HTML(sale *Sale) ([]byte, error) {
	return []byte("<html><body>" + sale.SaleNumber + "</body></html>"), nil
}

func (s stubRenderer) PDF(_ context.Context, html []byte) ([]byte, error) {
	if s.pdfErr != nil {
		return nil, s.pdfErr
	}
	return append([]byte("%PDF-1.4 "), html...), nil
}

type salesHarness struct {
	router  http.Handler
	repo    *mockRepository
	service *Service
	tokens  *auth.TokenManager
}

func newSalesHarness(t *testing.T) *salesHarness {
	t.Helper()
	repo := newMockRepository()
	seedNursery(repo)
	service := newTestService(repo, nil)

	tokens := auth.NewTokenManager("handler-secret", time.Hour)
	mw := auth.Middleware{Tokens: tokens}
	handler := NewHandler(discardLogger(), service, stubRenderer{}, mw)

	router := chi.NewRouter()
	router.Route("/sales", func(r chi.Router) {
		r.Use(mw.Authenticate)
		handler.MountRoutes(r)
	})
	return &salesHarness{router: router, repo: repo, service: service, tokens: tokens}
}

func (h *salesHarness) token(t *testing.T, id int64, role string) string {
	t.Helper()
	token, err := h.tokens.Generate(&auth.User{
		ID:    id,
		Email: fmt.Sprintf("user%d@evergreen.test", id),
		Role:  role,
	})
	require.NoError(t, err)
	return token
}

func (h *salesHarness) do(t *testing.T, method, target, token string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var reader *bytes.Reader
	if body != nil {
		payload, err := json.Marshal(body)
		require.NoError(t, err)
		reader = bytes.NewReader(payload)
	} else {
		reader = bytes.NewReader(nil)
	}
	req := httptest.NewRequest(method, target, reader)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	rec := httptest.NewRecorder()
	h.router.ServeHTTP(rec, req)
	return rec
}

func (h *salesHarness) checkout(t *testing.T, token string) *Sale {
	t.Helper()
	rec := h.do(t, http.MethodPost, "/sales", token, CreateSaleRequest{
		Items:    []SaleItemRequest{{ProductID: 1, Quantity: 1}},
		Payments: []PaymentRequest{{Method: PaymentMethodCash, Amount: 49.50}},
	})
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	var sale Sale
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &sale))
	return &sale
}

// ============================================================================
// CHECKOUT
// ============================================================================

func TestCheckoutEndpoint(t *testing.T) {
	h := newSalesHarness(t)
	token := h.token(t, 7, auth.RoleCashier)

	sale := h.checkout(t, token)
	assert.Equal(t, "S2503150001", sale.SaleNumber)
	assert.Equal(t, SaleStatusCompleted, sale.Status)
	assert.Equal(t, int64(7), sale.CashierID)
	require.Len(t, sale.Items, 1)
	assert.Equal(t, "Monstera Deliciosa", sale.Items[0].Name)
}

func TestCheckoutRequiresToken(t *testing.T) {
	h := newSalesHarness(t)

	rec := h.do(t, http.MethodPost, "/sales", "", CreateSaleRequest{
		Items:    []SaleItemRequest{{ProductID: 1, Quantity: 1}},
		Payments: []PaymentRequest{{Method: PaymentMethodCash, Amount: 49.50}},
	})
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestCheckoutValidatesPayload(t *testing.T) {
	h := newSalesHarness(t)
	token := h.token(t, 7, auth.RoleCashier)

	rec := h.do(t, http.MethodPost, "/sales", token, CreateSaleRequest{
		Items: []SaleItemRequest{{ProductID: 1, Quantity: 1}},
		// no payments
	})
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Contains(t, rec.Body.String(), "Payments")
}

func TestCheckoutInsufficientStockConflicts(t *testing.T) {
	h := newSalesHarness(t)
	token := h.token(t, 7, auth.RoleCashier)

	rec := h.do(t, http.MethodPost, "/sales", token, CreateSaleRequest{
		Items:    []SaleItemRequest{{ProductID: 3, Quantity: 99}},
		Payments: []PaymentRequest{{Method: PaymentMethodCash, Amount: 2722.50}},
	})
	assert.Equal(t, http.StatusConflict, rec.Code)
	assert.Contains(t, rec.Body.String(), "Jade Plant")
}

// ============================================================================
// LOOKUP AND LISTING
// ============================================================================

func TestGetSaleEndpoint(t *testing.T) {
	h := newSalesHarness(t)
	token := h.token(t, 7, auth.RoleCashier)
	sale := h.checkout(t, token)

	rec := h.do(t, http.MethodGet, fmt.Sprintf("/sales/%d", sale.ID), token, nil)
	require.Equal(t, http.StatusOK, rec.Code)

	var fetched Sale
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &fetched))
	assert.Equal(t, sale.SaleNumber, fetched.SaleNumber)
	require.Len(t, fetched.Payments, 1)
}

func TestGetMissingSale(t *testing.T) {
	h := newSalesHarness(t)
	token := h.token(t, 7, auth.RoleCashier)

	rec := h.do(t, http.MethodGet, "/sales/9999", token, nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestListSalesEndpoint(t *testing.T) {
	h := newSalesHarness(t)
	token := h.token(t, 7, auth.RoleCashier)
	h.checkout(t, token)
	h.checkout(t, token)

	rec := h.do(t, http.MethodGet, "/sales?status=COMPLETED&page=1&per_page=10", token, nil)
	require.Equal(t, http.StatusOK, rec.Code)

	var body struct {
		Sales   []Sale `json:"sales"`
		Page    int    `json:"page"`
		PerPage int    `json:"per_page"`
		Total   int    `json:"total"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Len(t, body.Sales, 2)
	assert.Equal(t, 2, body.Total)
	assert.Equal(t, 1, body.Page)
}

// ============================================================================
// VOID AND REFUND AUTHORIZATION
// ============================================================================

func TestVoidRequiresManagerRole(t *testing.T) {
	h := newSalesHarness(t)
	cashier := h.token(t, 7, auth.RoleCashier)
	manager := h.token(t, 9, auth.RoleManager)
	sale := h.checkout(t, cashier)

	rec := h.do(t, http.MethodPut, fmt.Sprintf("/sales/%d/void", sale.ID), cashier,
		VoidSaleRequest{Reason: "not allowed"})
	assert.Equal(t, http.StatusForbidden, rec.Code)

	rec = h.do(t, http.MethodPut, fmt.Sprintf("/sales/%d/void", sale.ID), manager,
		VoidSaleRequest{Reason: "manager override"})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	var voided Sale
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &voided))
	assert.Equal(t, SaleStatusVoided, voided.Status)
}

func TestVoidTwiceConflicts(t *testing.T) {
	h := newSalesHarness(t)
	cashier := h.token(t, 7, auth.RoleCashier)
	manager := h.token(t, 9, auth.RoleManager)
	sale := h.checkout(t, cashier)

	rec := h.do(t, http.MethodPut, fmt.Sprintf("/sales/%d/void", sale.ID), manager,
		VoidSaleRequest{Reason: "first"})
	require.Equal(t, http.StatusOK, rec.Code)

	rec = h.do(t, http.MethodPut, fmt.Sprintf("/sales/%d/void", sale.ID), manager,
		VoidSaleRequest{Reason: "second"})
	assert.Equal(t, http.StatusConflict, rec.Code)
}

func TestRefundEndpoint(t *testing.T) {
	h := newSalesHarness(t)
	cashier := h.token(t, 7, auth.RoleCashier)
	admin := h.token(t, 1, auth.RoleAdmin)
	sale := h.checkout(t, cashier)

	rec := h.do(t, http.MethodPut, fmt.Sprintf("/sales/%d/refund", sale.ID), admin,
		RefundSaleRequest{
			Items:  []RefundItemRequest{{ProductID: 1, Quantity: 1}},
			Reason: "pest damage found at home",
			Method: PaymentMethodCash,
		})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	var refunded Sale
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &refunded))
	assert.Equal(t, SaleStatusRefunded, refunded.Status)
	require.Len(t, refunded.Refunds, 1)
	assert.InDelta(t, 49.50, refunded.Refunds[0].Total, 0.01)
}

// ============================================================================
// RECEIPTS
// ============================================================================

func TestReceiptEndpointHTML(t *testing.T) {
	h := newSalesHarness(t)
	token := h.token(t, 7, auth.RoleCashier)
	sale := h.checkout(t, token)

	rec := h.do(t, http.MethodGet, fmt.Sprintf("/sales/%d/receipt", sale.ID), token, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.True(t, strings.HasPrefix(rec.Header().Get("Content-Type"), "text/html"))
	assert.Contains(t, rec.Body.String(), sale.SaleNumber)
}

func TestReceiptEndpointPDF(t *testing.T) {
	h := newSalesHarness(t)
	token := h.token(t, 7, auth.RoleCashier)
	sale := h.checkout(t, token)

	rec := h.do(t, http.MethodGet, fmt.Sprintf("/sales/%d/receipt?format=pdf", sale.ID), token, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "application/pdf", rec.Header().Get("Content-Type"))
	assert.Contains(t, rec.Header().Get("Content-Disposition"), "receipt-"+sale.SaleNumber)
	assert.True(t, bytes.HasPrefix(rec.Body.Bytes(), []byte("%PDF")))
}
