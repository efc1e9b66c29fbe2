package receipts

import (
	"bytes"
	"context"
	"fmt"
	"html/template"
	"time"

	"github.com/evergreen-pos/evergreen-pos/internal/platform/httpx"
	"github.com/evergreen-pos/evergreen-pos/internal/sales"
	"github.com/evergreen-pos/evergreen-pos/web"
)

// PDFClient exposes the subset of the Gotenberg client used by the renderer.
type PDFClient interface {
	RenderHTML(ctx context.Context, html string) ([]byte, error)
}

// Renderer turns completed sales into printable receipts via html/template,
// with optional PDF conversion when a Gotenberg client is wired.
type Renderer struct {
	tpl       *template.Template
	client    PDFClient
	storeName string
}

var _ sales.ReceiptRenderer = (*Renderer)(nil)

type receiptData struct {
	StoreName string
	Sale      *sales.Sale
	Refunded  float64
}

// NewRenderer parses the receipt template and wires the optional PDF client.
// A nil client disables PDF conversion; HTML rendering still works.
func NewRenderer(storeName string, client PDFClient) (*Renderer, error) {
	funcMap := template.FuncMap{
		"formatMoney": func(v float64) string {
			return fmt.Sprintf("$%0.2f", v)
		},
		"formatDate": func(t time.Time) string {
			if t.IsZero() {
				return ""
			}
			return t.Format("02 Jan 2006 15:04")
		},
	}
	tpl, err := template.New("receipt.html").Funcs(funcMap).ParseFS(web.Templates, "templates/receipts/receipt.html")
	if err != nil {
		return nil, err
	}
	return &Renderer{tpl: tpl, client: client, storeName: storeName}, nil
}

// HTML renders the receipt document for a sale.
func (r *Renderer) HTML(sale *sales.Sale) ([]byte, error) {
	if r == nil || r.tpl == nil {
		return nil, fmt.Errorf("receipt renderer not initialised")
	}
	if sale == nil {
		return nil, fmt.Errorf("%w: sale required", httpx.ErrValidation)
	}
	buf := &bytes.Buffer{}
	data := receiptData{StoreName: r.storeName, Sale: sale, Refunded: refundedTotal(sale)}
	if err := r.tpl.ExecuteTemplate(buf, "receipt.html", data); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// PDF converts rendered receipt HTML into PDF bytes.
func (r *Renderer) PDF(ctx context.Context, html []byte) ([]byte, error) {
	if r == nil || r.client == nil {
		return nil, fmt.Errorf("%w: pdf rendering is not configured", httpx.ErrUpstream)
	}
	pdf, err := r.client.RenderHTML(ctx, string(html))
	if err != nil {
		return nil, fmt.Errorf("%w: convert receipt: %w", httpx.ErrUpstream, err)
	}
	return pdf, nil
}

func refundedTotal(sale *sales.Sale) float64 {
	var total float64
	for _, refund := range sale.Refunds {
		total += refund.Total
	}
	return total
}
