package receipts

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/evergreen-pos/evergreen-pos/internal/platform/httpx"
	"github.com/evergreen-pos/evergreen-pos/internal/sales"
)

type stubPDF struct {
	html string
	err  error
}

func (s *stubPDF) RenderHTML(_ context.Context, html string) ([]byte, error) {
	s.html = html
	if s.err != nil {
		return nil, s.err
	}
	return []byte("%PDF-1.4 receipt"), nil
}

func completedSale() *sales.Sale {
	reference := "S2503150003"
	return &sales.Sale{
		ID:         3,
		SaleNumber: reference,
		CashierID:  1,
		Status:     sales.SaleStatusCompleted,
		Subtotal:   65.00,
		TaxTotal:   7.50,
		Total:      72.50,
		CreatedAt:  time.Date(2025, 3, 15, 10, 30, 0, 0, time.UTC),
		Items: []sales.SaleItem{
			{Name: "Monstera Deliciosa", Barcode: "29910000016", Quantity: 1, UnitPrice: 45.00, LineTotal: 49.50, LineOrder: 1},
			{Name: "Terracotta Pot 20cm", Barcode: "29950000021", Quantity: 2, UnitPrice: 10.00, LineTotal: 23.00, LineOrder: 2},
		},
		Payments: []sales.Payment{
			{Method: sales.PaymentMethodCash, Amount: 30.00},
			{Method: sales.PaymentMethodCard, Amount: 42.50, Reference: &reference},
		},
	}
}

func TestRendererHTMLIncludesSaleDetails(t *testing.T) {
	renderer, err := NewRenderer("Evergreen Plant Nursery", nil)
	require.NoError(t, err)

	html, err := renderer.HTML(completedSale())
	require.NoError(t, err)

	body := string(html)
	require.Contains(t, body, "Evergreen Plant Nursery")
	require.Contains(t, body, "S2503150003")
	require.Contains(t, body, "Monstera Deliciosa")
	require.Contains(t, body, "Terracotta Pot 20cm")
	require.Contains(t, body, "$72.50")
	require.Contains(t, body, "CASH")
	require.Contains(t, body, "CARD")
	require.NotContains(t, body, "Refunded")
	require.NotContains(t, body, "VOIDED")
}

func TestRendererHTMLMarksNonCompletedSales(t *testing.T) {
	renderer, err := NewRenderer("Evergreen Plant Nursery", nil)
	require.NoError(t, err)

	sale := completedSale()
	sale.Status = sales.SaleStatusVoided
	html, err := renderer.HTML(sale)
	require.NoError(t, err)
	require.Contains(t, string(html), "VOIDED")
}

func TestRendererHTMLShowsRefunds(t *testing.T) {
	renderer, err := NewRenderer("Evergreen Plant Nursery", nil)
	require.NoError(t, err)

	sale := completedSale()
	sale.Status = sales.SaleStatusPartiallyRefunded
	sale.Refunds = []sales.Refund{
		{Total: 23.00, Reason: "wilted on arrival", RefundedAt: time.Date(2025, 3, 16, 9, 0, 0, 0, time.UTC)},
	}
	html, err := renderer.HTML(sale)
	require.NoError(t, err)

	body := string(html)
	require.Contains(t, body, "Refunded")
	require.Contains(t, body, "$23.00")
	require.Contains(t, body, "wilted on arrival")
}

func TestRendererHTMLRejectsNilSale(t *testing.T) {
	renderer, err := NewRenderer("Evergreen Plant Nursery", nil)
	require.NoError(t, err)

	_, err = renderer.HTML(nil)
	require.ErrorIs(t, err, httpx.ErrValidation)
}

func TestRendererPDFWithoutClient(t *testing.T) {
	renderer, err := NewRenderer("Evergreen Plant Nursery", nil)
	require.NoError(t, err)

	_, err = renderer.PDF(context.Background(), []byte("<html></html>"))
	require.ErrorIs(t, err, httpx.ErrUpstream)
}

func TestRendererPDFConvertsRenderedHTML(t *testing.T) {
	client := &stubPDF{}
	renderer, err := NewRenderer("Evergreen Plant Nursery", client)
	require.NoError(t, err)

	html, err := renderer.HTML(completedSale())
	require.NoError(t, err)

	pdf, err := renderer.PDF(context.Background(), html)
	require.NoError(t, err)
	require.True(t, strings.HasPrefix(string(pdf), "%PDF"))
	require.Equal(t, string(html), client.html)
}

func TestRendererPDFWrapsClientFailure(t *testing.T) {
	client := &stubPDF{err: errors.New("connection refused")}
	renderer, err := NewRenderer("Evergreen Plant Nursery", client)
	require.NoError(t, err)

	_, err = renderer.PDF(context.Background(), []byte("<html></html>"))
	require.ErrorIs(t, err, httpx.ErrUpstream)
	require.Contains(t, err.Error(), "connection refused")
}

func TestClientRenderHTMLPostsMultipart(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, http.MethodPost, r.Method)
		require.Equal(t, "/forms/chromium/convert/html", r.URL.Path)
		require.NoError(t, r.ParseMultipartForm(1<<20))
		file, header, err := r.FormFile("files")
		require.NoError(t, err)
		defer func() { _ = file.Close() }()
		require.Equal(t, "document.html", header.Filename)
		_, _ = fmt.Fprint(w, "%PDF-1.4 converted")
	}))
	defer server.Close()

	client := NewClient(server.URL + "/")
	pdf, err := client.RenderHTML(context.Background(), "<html><body>receipt</body></html>")
	require.NoError(t, err)
	require.Equal(t, "%PDF-1.4 converted", string(pdf))
}

func TestClientRenderHTMLSurfacesFailureStatus(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer server.Close()

	client := NewClient(server.URL)
	_, err := client.RenderHTML(context.Background(), "<html></html>")
	require.Error(t, err)
	require.Contains(t, err.Error(), "status 500")
}
