// Package reports recomputes sales and inventory summaries from the raw
// ledgers. Report endpoints always hit the database; only the dashboard
// snapshot is cached.
package reports

import (
	"time"

	"github.com/evergreen-pos/evergreen-pos/internal/inventory"
)

// DayBucket is one day's slice of a sales summary.
type DayBucket struct {
	Date    string  `json:"date"`
	Count   int     `json:"count"`
	Revenue float64 `json:"revenue"`
}

// HourBucket is one hour-of-day slice of a sales summary.
type HourBucket struct {
	Hour    int     `json:"hour"`
	Count   int     `json:"count"`
	Revenue float64 `json:"revenue"`
}

// CategoryBucket aggregates item sales per product category.
type CategoryBucket struct {
	Category string  `json:"category"`
	Quantity int     `json:"quantity"`
	Revenue  float64 `json:"revenue"`
}

// MethodBucket aggregates tender per payment method. Amount is net of
// negative refund entries.
type MethodBucket struct {
	Method string  `json:"method"`
	Count  int     `json:"count"`
	Amount float64 `json:"amount"`
}

// ProductRevenue ranks a product by revenue within the period.
type ProductRevenue struct {
	ProductID int64   `json:"product_id"`
	Name      string  `json:"name"`
	Quantity  int     `json:"quantity"`
	Revenue   float64 `json:"revenue"`
}

// SalesSummary is the full sales report for a period. Voided sales are
// excluded throughout.
type SalesSummary struct {
	Period          string           `json:"period"`
	From            time.Time        `json:"from"`
	To              time.Time        `json:"to"`
	SaleCount       int              `json:"sale_count"`
	TotalRevenue    float64          `json:"total_revenue"`
	TotalTax        float64          `json:"total_tax"`
	TotalDiscount   float64          `json:"total_discount"`
	AverageSale     float64          `json:"average_sale"`
	ByDay           []DayBucket      `json:"by_day"`
	ByHour          []HourBucket     `json:"by_hour"`
	ByCategory      []CategoryBucket `json:"by_category"`
	ByPaymentMethod []MethodBucket   `json:"by_payment_method"`
	TopProducts     []ProductRevenue `json:"top_products"`
}

// TypeBucket aggregates ledger entries per movement type.
type TypeBucket struct {
	Type     inventory.MovementType `json:"movement_type"`
	Count    int                    `json:"count"`
	Quantity int                    `json:"quantity"`
}

// MovementSummary pairs a filtered movement listing with per-type totals.
type MovementSummary struct {
	Totals     []TypeBucket         `json:"totals"`
	Movements  []inventory.Movement `json:"movements"`
	Page       int                  `json:"page"`
	PerPage    int                  `json:"per_page"`
	Total      int                  `json:"total"`
	TotalPages int                  `json:"total_pages"`
}

// LowStockItem is an active product at or below its reorder threshold.
type LowStockItem struct {
	ProductID    int64  `json:"product_id"`
	Barcode      string `json:"barcode"`
	Name         string `json:"name"`
	Category     string `json:"category"`
	CurrentStock int    `json:"current_stock"`
	MinimumStock int    `json:"minimum_stock"`
	Deficit      int    `json:"deficit"`
}

// DashboardSnapshot is the precomputed today-at-a-glance card.
type DashboardSnapshot struct {
	Date          string    `json:"date"`
	Revenue       float64   `json:"revenue"`
	SaleCount     int       `json:"sale_count"`
	LowStockCount int       `json:"low_stock_count"`
	GeneratedAt   time.Time `json:"generated_at"`
}
