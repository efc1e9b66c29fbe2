package reports

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/evergreen-pos/evergreen-pos/internal/inventory"
)

// Repository runs the aggregation queries behind the reports.
type Repository struct {
	pool *pgxpool.Pool
}

// NewRepository returns a new Repository.
func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

// SalesTotals sums the headline figures over the half-open range [from, to).
func (r *Repository) SalesTotals(ctx context.Context, from, to time.Time) (count int, revenue, tax, discount float64, err error) {
	const q = `
		SELECT COUNT(*),
		       COALESCE(SUM(total), 0),
		       COALESCE(SUM(tax_total), 0),
		       COALESCE(SUM(discount_total), 0)
		FROM sales
		WHERE created_at >= $1 AND created_at < $2 AND status <> 'VOIDED'`

	if err = r.pool.QueryRow(ctx, q, from, to).Scan(&count, &revenue, &tax, &discount); err != nil {
		err = fmt.Errorf("sales totals: %w", err)
	}
	return
}

// SaleStamp is the minimal sale projection used for bucket folding.
type SaleStamp struct {
	CreatedAt time.Time
	Total     float64
}

// SaleStamps lists timestamp and total for every non-voided sale in the range.
func (r *Repository) SaleStamps(ctx context.Context, from, to time.Time) ([]SaleStamp, error) {
	const q = `
		SELECT created_at, total
		FROM sales
		WHERE created_at >= $1 AND created_at < $2 AND status <> 'VOIDED'
		ORDER BY created_at`

	rows, err := r.pool.Query(ctx, q, from, to)
	if err != nil {
		return nil, fmt.Errorf("sale stamps: %w", err)
	}
	defer rows.Close()

	var stamps []SaleStamp
	for rows.Next() {
		var s SaleStamp
		if err := rows.Scan(&s.CreatedAt, &s.Total); err != nil {
			return nil, fmt.Errorf("scan sale stamp: %w", err)
		}
		stamps = append(stamps, s)
	}
	return stamps, rows.Err()
}

// SalesByCategory aggregates item revenue per product category.
func (r *Repository) SalesByCategory(ctx context.Context, from, to time.Time) ([]CategoryBucket, error) {
	const q = `
		SELECT p.category, COALESCE(SUM(si.quantity), 0), COALESCE(SUM(si.line_total), 0)
		FROM sale_items si
		JOIN sales s ON s.id = si.sale_id
		JOIN products p ON p.id = si.product_id
		WHERE s.created_at >= $1 AND s.created_at < $2 AND s.status <> 'VOIDED'
		GROUP BY p.category
		ORDER BY SUM(si.line_total) DESC`

	rows, err := r.pool.Query(ctx, q, from, to)
	if err != nil {
		return nil, fmt.Errorf("sales by category: %w", err)
	}
	defer rows.Close()

	var buckets []CategoryBucket
	for rows.Next() {
		var b CategoryBucket
		if err := rows.Scan(&b.Category, &b.Quantity, &b.Revenue); err != nil {
			return nil, fmt.Errorf("scan category bucket: %w", err)
		}
		buckets = append(buckets, b)
	}
	return buckets, rows.Err()
}

// SalesByPaymentMethod aggregates tender per payment method, netting
// refund entries against charges.
func (r *Repository) SalesByPaymentMethod(ctx context.Context, from, to time.Time) ([]MethodBucket, error) {
	const q = `
		SELECT sp.method, COUNT(*), COALESCE(SUM(sp.amount), 0)
		FROM sale_payments sp
		JOIN sales s ON s.id = sp.sale_id
		WHERE s.created_at >= $1 AND s.created_at < $2 AND s.status <> 'VOIDED'
		GROUP BY sp.method
		ORDER BY SUM(sp.amount) DESC`

	rows, err := r.pool.Query(ctx, q, from, to)
	if err != nil {
		return nil, fmt.Errorf("sales by payment method: %w", err)
	}
	defer rows.Close()

	var buckets []MethodBucket
	for rows.Next() {
		var b MethodBucket
		if err := rows.Scan(&b.Method, &b.Count, &b.Amount); err != nil {
			return nil, fmt.Errorf("scan method bucket: %w", err)
		}
		buckets = append(buckets, b)
	}
	return buckets, rows.Err()
}

// TopProducts ranks products by item revenue within the range.
func (r *Repository) TopProducts(ctx context.Context, from, to time.Time, limit int) ([]ProductRevenue, error) {
	const q = `
		SELECT si.product_id, si.name, COALESCE(SUM(si.quantity), 0), COALESCE(SUM(si.line_total), 0)
		FROM sale_items si
		JOIN sales s ON s.id = si.sale_id
		WHERE s.created_at >= $1 AND s.created_at < $2 AND s.status <> 'VOIDED'
		GROUP BY si.product_id, si.name
		ORDER BY SUM(si.line_total) DESC
		LIMIT $3`

	rows, err := r.pool.Query(ctx, q, from, to, limit)
	if err != nil {
		return nil, fmt.Errorf("top products: %w", err)
	}
	defer rows.Close()

	var ranked []ProductRevenue
	for rows.Next() {
		var p ProductRevenue
		if err := rows.Scan(&p.ProductID, &p.Name, &p.Quantity, &p.Revenue); err != nil {
			return nil, fmt.Errorf("scan product revenue: %w", err)
		}
		ranked = append(ranked, p)
	}
	return ranked, rows.Err()
}

// MovementTotals aggregates ledger entries per movement type for the
// same filter the listing uses.
func (r *Repository) MovementTotals(ctx context.Context, filter inventory.MovementFilter) ([]TypeBucket, error) {
	q := `SELECT movement_type, COUNT(*), COALESCE(SUM(quantity), 0) FROM inventory_movements WHERE 1=1`
	args := []any{}
	argCount := 0

	if filter.ProductID > 0 {
		argCount++
		q += ` AND product_id = $` + strconv.Itoa(argCount)
		args = append(args, filter.ProductID)
	}
	if filter.Type != "" {
		argCount++
		q += ` AND movement_type = $` + strconv.Itoa(argCount)
		args = append(args, string(filter.Type))
	}
	if !filter.From.IsZero() {
		argCount++
		q += ` AND created_at >= $` + strconv.Itoa(argCount)
		args = append(args, filter.From)
	}
	if !filter.To.IsZero() {
		argCount++
		q += ` AND created_at <= $` + strconv.Itoa(argCount)
		args = append(args, filter.To)
	}
	q += ` GROUP BY movement_type ORDER BY movement_type`

	rows, err := r.pool.Query(ctx, q, args...)
	if err != nil {
		return nil, fmt.Errorf("movement totals: %w", err)
	}
	defer rows.Close()

	var buckets []TypeBucket
	for rows.Next() {
		var b TypeBucket
		if err := rows.Scan(&b.Type, &b.Count, &b.Quantity); err != nil {
			return nil, fmt.Errorf("scan type bucket: %w", err)
		}
		buckets = append(buckets, b)
	}
	return buckets, rows.Err()
}

// LowStock lists active products at or below their minimum stock,
// worst deficit first.
func (r *Repository) LowStock(ctx context.Context) ([]LowStockItem, error) {
	const q = `
		SELECT id, barcode, name, category, current_stock, minimum_stock
		FROM products
		WHERE is_active = TRUE AND current_stock <= minimum_stock
		ORDER BY (minimum_stock - current_stock) DESC, name`

	rows, err := r.pool.Query(ctx, q)
	if err != nil {
		return nil, fmt.Errorf("low stock: %w", err)
	}
	defer rows.Close()

	var items []LowStockItem
	for rows.Next() {
		var item LowStockItem
		if err := rows.Scan(&item.ProductID, &item.Barcode, &item.Name, &item.Category, &item.CurrentStock, &item.MinimumStock); err != nil {
			return nil, fmt.Errorf("scan low stock item: %w", err)
		}
		item.Deficit = item.MinimumStock - item.CurrentStock
		items = append(items, item)
	}
	return items, rows.Err()
}
