package sales

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/evergreen-pos/evergreen-pos/internal/inventory"
	"github.com/evergreen-pos/evergreen-pos/internal/platform/db"
	"github.com/evergreen-pos/evergreen-pos/internal/platform/httpx"
)

var (
	ErrNotFound              = fmt.Errorf("%w: sale not found", httpx.ErrNotFound)
	ErrInvalidStatus         = fmt.Errorf("%w: invalid status transition", httpx.ErrInvalidState)
	ErrAlreadyExists         = fmt.Errorf("%w: record already exists", httpx.ErrConflict)
	ErrInvalidRefundQuantity = fmt.Errorf("%w: refund quantity exceeds remaining quantity", httpx.ErrValidation)
)

// Repository provides PostgreSQL backed persistence for sale operations.
type Repository struct {
	pool *pgxpool.Pool
}

// NewRepository constructs a repository.
func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

// TxRepository exposes the transactional operations of a sale flow. It
// embeds the inventory ledger so stock decrements and their movement
// rows commit or roll back with the sale itself.
type TxRepository interface {
	inventory.TxLedger

	// Sale number + persistence
	NextSaleNumber(ctx context.Context, prefix string) (string, error)
	InsertSale(ctx context.Context, sale Sale) (int64, error)
	InsertSaleItem(ctx context.Context, item SaleItem) (int64, error)
	InsertPayment(ctx context.Context, payment Payment) (int64, error)
	DeletePayment(ctx context.Context, paymentID int64) error

	// Lifecycle
	GetSaleForUpdate(ctx context.Context, id int64) (Sale, error)
	ListSaleItems(ctx context.Context, saleID int64) ([]SaleItem, error)
	ListPayments(ctx context.Context, saleID int64) ([]Payment, error)
	UpdateSaleStatus(ctx context.Context, id int64, status SaleStatus, notes *string) error

	// Refunds
	InsertRefund(ctx context.Context, refund Refund) (int64, error)
	InsertRefundItem(ctx context.Context, item RefundItem) (int64, error)
	RefundedQuantities(ctx context.Context, saleID int64) (map[int64]int, error)

	// Pricing snapshot
	GetProductForSale(ctx context.Context, productID int64) (SaleProduct, error)
	GetProductForSaleByBarcode(ctx context.Context, barcode string) (SaleProduct, error)

	// Loyalty
	GetCustomerForUpdate(ctx context.Context, customerID int64) (CustomerAccount, error)
	UpdateCustomerLoyalty(ctx context.Context, customerID int64, totalSpent float64, points int64, tier string) error
}

type txRepo struct {
	tx pgx.Tx
}

// WithTx wraps the callback in a repeatable-read transaction.
func (r *Repository) WithTx(ctx context.Context, fn func(context.Context, TxRepository) error) error {
	if r == nil {
		return errors.New("sales repository not initialised")
	}
	return db.WithTx(ctx, r.pool, func(tx pgx.Tx) error {
		return fn(ctx, &txRepo{tx: tx})
	})
}

const saleColumns = `id, sale_number, customer_id, cashier_id, status,
	subtotal, tax_total, discount_total, total, notes, created_at`

// GetSale loads a sale with its items, payments and refunds.
func (r *Repository) GetSale(ctx context.Context, id int64) (*Sale, error) {
	row := r.pool.QueryRow(ctx, "SELECT "+saleColumns+" FROM sales WHERE id = $1", id)
	sale, err := scanSale(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get sale: %w", err)
	}
	if err := r.loadDetails(ctx, &sale); err != nil {
		return nil, err
	}
	return &sale, nil
}

// GetSaleByNumber loads a sale addressed by its sale number.
func (r *Repository) GetSaleByNumber(ctx context.Context, saleNumber string) (*Sale, error) {
	row := r.pool.QueryRow(ctx, "SELECT "+saleColumns+" FROM sales WHERE sale_number = $1", saleNumber)
	sale, err := scanSale(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get sale by number: %w", err)
	}
	if err := r.loadDetails(ctx, &sale); err != nil {
		return nil, err
	}
	return &sale, nil
}

// ListSales returns sales matching the filters plus the total count.
func (r *Repository) ListSales(ctx context.Context, req ListSalesRequest) ([]Sale, int, error) {
	query := "SELECT " + saleColumns + " FROM sales WHERE 1=1"
	countQuery := "SELECT COUNT(*) FROM sales WHERE 1=1"
	args := []any{}
	argCount := 0

	if req.From != nil {
		argCount++
		clause := " AND created_at >= $" + strconv.Itoa(argCount)
		query += clause
		countQuery += clause
		args = append(args, *req.From)
	}
	if req.To != nil {
		argCount++
		clause := " AND created_at <= $" + strconv.Itoa(argCount)
		query += clause
		countQuery += clause
		args = append(args, *req.To)
	}
	if req.Status != nil {
		argCount++
		clause := " AND status = $" + strconv.Itoa(argCount)
		query += clause
		countQuery += clause
		args = append(args, string(*req.Status))
	}
	if req.CashierID != nil {
		argCount++
		clause := " AND cashier_id = $" + strconv.Itoa(argCount)
		query += clause
		countQuery += clause
		args = append(args, *req.CashierID)
	}
	if req.CustomerID != nil {
		argCount++
		clause := " AND customer_id = $" + strconv.Itoa(argCount)
		query += clause
		countQuery += clause
		args = append(args, *req.CustomerID)
	}

	var total int
	if err := r.pool.QueryRow(ctx, countQuery, args...).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("count sales: %w", err)
	}

	perPage := req.PerPage
	if perPage <= 0 {
		perPage = 20
	}
	page := req.Page
	if page <= 0 {
		page = 1
	}
	query += " ORDER BY created_at DESC, id DESC"
	query += " LIMIT " + strconv.Itoa(perPage) + " OFFSET " + strconv.Itoa((page-1)*perPage)

	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, 0, fmt.Errorf("list sales: %w", err)
	}
	defer rows.Close()

	sales := []Sale{}
	for rows.Next() {
		sale, err := scanSale(rows)
		if err != nil {
			return nil, 0, err
		}
		sales = append(sales, sale)
	}
	if err := rows.Err(); err != nil {
		return nil, 0, err
	}
	return sales, total, nil
}

func (r *Repository) loadDetails(ctx context.Context, sale *Sale) error {
	items, err := querySaleItems(ctx, r.pool, sale.ID)
	if err != nil {
		return err
	}
	sale.Items = items

	payments, err := queryPayments(ctx, r.pool, sale.ID)
	if err != nil {
		return err
	}
	sale.Payments = payments

	refunds, err := r.queryRefunds(ctx, sale.ID)
	if err != nil {
		return err
	}
	sale.Refunds = refunds
	return nil
}

func (r *Repository) queryRefunds(ctx context.Context, saleID int64) ([]Refund, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT id, sale_id, method, total, reason, refunded_by, refunded_at
		FROM sale_refunds WHERE sale_id = $1 ORDER BY id`, saleID)
	if err != nil {
		return nil, fmt.Errorf("list refunds: %w", err)
	}
	defer rows.Close()

	refunds := []Refund{}
	for rows.Next() {
		var refund Refund
		if err := rows.Scan(&refund.ID, &refund.SaleID, &refund.Method, &refund.Total,
			&refund.Reason, &refund.RefundedBy, &refund.RefundedAt); err != nil {
			return nil, err
		}
		refunds = append(refunds, refund)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	for i := range refunds {
		itemRows, err := r.pool.Query(ctx, `
			SELECT id, refund_id, product_id, quantity, unit_price, tax_amount
			FROM sale_refund_items WHERE refund_id = $1 ORDER BY id`, refunds[i].ID)
		if err != nil {
			return nil, fmt.Errorf("list refund items: %w", err)
		}
		for itemRows.Next() {
			var item RefundItem
			if err := itemRows.Scan(&item.ID, &item.RefundID, &item.ProductID,
				&item.Quantity, &item.UnitPrice, &item.TaxAmount); err != nil {
				itemRows.Close()
				return nil, err
			}
			refunds[i].Items = append(refunds[i].Items, item)
		}
		if err := itemRows.Err(); err != nil {
			itemRows.Close()
			return nil, err
		}
		itemRows.Close()
	}
	return refunds, nil
}

// ============================================================================
// TRANSACTIONAL REPOSITORY
// ============================================================================

// NextSaleNumber allocates the next daily sequence under the date
// prefix. The prefix row scan holds FOR UPDATE so concurrent allocators
// serialize; the unique index on sale_number backstops the race.
func (r *txRepo) NextSaleNumber(ctx context.Context, prefix string) (string, error) {
	var last string
	err := r.tx.QueryRow(ctx, `
		SELECT sale_number FROM sales
		WHERE sale_number LIKE $1 || '%'
		ORDER BY sale_number DESC
		LIMIT 1
		FOR UPDATE`, prefix).Scan(&last)
	sequence := 1
	if err == nil {
		tail := last[len(prefix):]
		parsed, parseErr := strconv.Atoi(tail)
		if parseErr != nil {
			return "", fmt.Errorf("parse sale number %q: %w", last, parseErr)
		}
		sequence = parsed + 1
	} else if !errors.Is(err, pgx.ErrNoRows) {
		return "", fmt.Errorf("scan last sale number: %w", err)
	}
	return fmt.Sprintf("%s%04d", prefix, sequence), nil
}

func (r *txRepo) InsertSale(ctx context.Context, sale Sale) (int64, error) {
	var id int64
	err := r.tx.QueryRow(ctx, `
		INSERT INTO sales (sale_number, customer_id, cashier_id, status,
			subtotal, tax_total, discount_total, total, notes, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
		RETURNING id`,
		sale.SaleNumber, sale.CustomerID, sale.CashierID, string(sale.Status),
		sale.Subtotal, sale.TaxTotal, sale.DiscountTotal, sale.Total,
		sale.Notes, sale.CreatedAt).Scan(&id)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == "23505" {
			return 0, fmt.Errorf("%w: sale number %s", ErrAlreadyExists, sale.SaleNumber)
		}
		return 0, fmt.Errorf("insert sale: %w", err)
	}
	return id, nil
}

func (r *txRepo) InsertSaleItem(ctx context.Context, item SaleItem) (int64, error) {
	var id int64
	err := r.tx.QueryRow(ctx, `
		INSERT INTO sale_items (sale_id, product_id, barcode, name, quantity,
			unit_price, tax_rate, tax_amount, subtotal, line_total, line_order)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)
		RETURNING id`,
		item.SaleID, item.ProductID, item.Barcode, item.Name, item.Quantity,
		item.UnitPrice, item.TaxRate, item.TaxAmount, item.Subtotal,
		item.LineTotal, item.LineOrder).Scan(&id)
	if err != nil {
		return 0, fmt.Errorf("insert sale item: %w", err)
	}
	return id, nil
}

func (r *txRepo) InsertPayment(ctx context.Context, payment Payment) (int64, error) {
	var id int64
	err := r.tx.QueryRow(ctx, `
		INSERT INTO sale_payments (sale_id, method, amount, reference, transaction_id, created_at)
		VALUES ($1, $2, $3, $4, $5, $6)
		RETURNING id`,
		payment.SaleID, string(payment.Method), payment.Amount,
		payment.Reference, payment.TransactionID, payment.CreatedAt).Scan(&id)
	if err != nil {
		return 0, fmt.Errorf("insert payment: %w", err)
	}
	return id, nil
}

func (r *txRepo) DeletePayment(ctx context.Context, paymentID int64) error {
	tag, err := r.tx.Exec(ctx, "DELETE FROM sale_payments WHERE id = $1", paymentID)
	if err != nil {
		return fmt.Errorf("delete payment: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

func (r *txRepo) GetSaleForUpdate(ctx context.Context, id int64) (Sale, error) {
	row := r.tx.QueryRow(ctx, "SELECT "+saleColumns+" FROM sales WHERE id = $1 FOR UPDATE", id)
	sale, err := scanSale(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return Sale{}, ErrNotFound
	}
	if err != nil {
		return Sale{}, fmt.Errorf("lock sale: %w", err)
	}
	return sale, nil
}

func (r *txRepo) ListSaleItems(ctx context.Context, saleID int64) ([]SaleItem, error) {
	return querySaleItems(ctx, r.tx, saleID)
}

func (r *txRepo) ListPayments(ctx context.Context, saleID int64) ([]Payment, error) {
	return queryPayments(ctx, r.tx, saleID)
}

func (r *txRepo) UpdateSaleStatus(ctx context.Context, id int64, status SaleStatus, notes *string) error {
	tag, err := r.tx.Exec(ctx, `
		UPDATE sales SET status = $2, notes = COALESCE($3, notes) WHERE id = $1`,
		id, string(status), notes)
	if err != nil {
		return fmt.Errorf("update sale status: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

func (r *txRepo) InsertRefund(ctx context.Context, refund Refund) (int64, error) {
	var id int64
	err := r.tx.QueryRow(ctx, `
		INSERT INTO sale_refunds (sale_id, method, total, reason, refunded_by, refunded_at)
		VALUES ($1, $2, $3, $4, $5, $6)
		RETURNING id`,
		refund.SaleID, string(refund.Method), refund.Total, refund.Reason,
		refund.RefundedBy, refund.RefundedAt).Scan(&id)
	if err != nil {
		return 0, fmt.Errorf("insert refund: %w", err)
	}
	return id, nil
}

func (r *txRepo) InsertRefundItem(ctx context.Context, item RefundItem) (int64, error) {
	var id int64
	err := r.tx.QueryRow(ctx, `
		INSERT INTO sale_refund_items (refund_id, product_id, quantity, unit_price, tax_amount)
		VALUES ($1, $2, $3, $4, $5)
		RETURNING id`,
		item.RefundID, item.ProductID, item.Quantity, item.UnitPrice, item.TaxAmount).Scan(&id)
	if err != nil {
		return 0, fmt.Errorf("insert refund item: %w", err)
	}
	return id, nil
}

// RefundedQuantities sums previously refunded quantities per product.
func (r *txRepo) RefundedQuantities(ctx context.Context, saleID int64) (map[int64]int, error) {
	rows, err := r.tx.Query(ctx, `
		SELECT ri.product_id, COALESCE(SUM(ri.quantity), 0)
		FROM sale_refund_items ri
		JOIN sale_refunds rf ON rf.id = ri.refund_id
		WHERE rf.sale_id = $1
		GROUP BY ri.product_id`, saleID)
	if err != nil {
		return nil, fmt.Errorf("sum refunded quantities: %w", err)
	}
	defer rows.Close()

	refunded := map[int64]int{}
	for rows.Next() {
		var productID int64
		var quantity int
		if err := rows.Scan(&productID, &quantity); err != nil {
			return nil, err
		}
		refunded[productID] = quantity
	}
	return refunded, rows.Err()
}

func (r *txRepo) GetProductForSale(ctx context.Context, productID int64) (SaleProduct, error) {
	return r.lockSaleProduct(ctx, `
		SELECT id, barcode, name, selling_price, tax_rate, current_stock, is_active
		FROM products WHERE id = $1 FOR UPDATE`, productID)
}

func (r *txRepo) GetProductForSaleByBarcode(ctx context.Context, barcode string) (SaleProduct, error) {
	return r.lockSaleProduct(ctx, `
		SELECT id, barcode, name, selling_price, tax_rate, current_stock, is_active
		FROM products WHERE barcode = $1 FOR UPDATE`, barcode)
}

func (r *txRepo) lockSaleProduct(ctx context.Context, query string, arg any) (SaleProduct, error) {
	var p SaleProduct
	err := r.tx.QueryRow(ctx, query, arg).
		Scan(&p.ID, &p.Barcode, &p.Name, &p.SellingPrice, &p.TaxRate, &p.CurrentStock, &p.IsActive)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return SaleProduct{}, inventory.ErrProductNotFound
		}
		return SaleProduct{}, err
	}
	return p, nil
}

func (r *txRepo) GetCustomerForUpdate(ctx context.Context, customerID int64) (CustomerAccount, error) {
	var account CustomerAccount
	err := r.tx.QueryRow(ctx, `
		SELECT id, total_spent, loyalty_points, tier
		FROM customers WHERE id = $1 FOR UPDATE`, customerID).
		Scan(&account.ID, &account.TotalSpent, &account.LoyaltyPoints, &account.Tier)
	if errors.Is(err, pgx.ErrNoRows) {
		return CustomerAccount{}, fmt.Errorf("%w: customer %d", httpx.ErrNotFound, customerID)
	}
	if err != nil {
		return CustomerAccount{}, fmt.Errorf("lock customer: %w", err)
	}
	return account, nil
}

func (r *txRepo) UpdateCustomerLoyalty(ctx context.Context, customerID int64, totalSpent float64, points int64, tier string) error {
	_, err := r.tx.Exec(ctx, `
		UPDATE customers
		SET total_spent = $2, loyalty_points = $3, tier = $4, updated_at = NOW()
		WHERE id = $1`,
		customerID, totalSpent, points, tier)
	if err != nil {
		return fmt.Errorf("update customer loyalty: %w", err)
	}
	return nil
}

// ============================================================================
// INVENTORY LEDGER (shared with the movement recorder)
// ============================================================================

func (r *txRepo) GetProductForUpdate(ctx context.Context, productID int64) (inventory.ProductStock, error) {
	return r.lockStock(ctx, `SELECT id, barcode, name, current_stock, minimum_stock, is_active
FROM products WHERE id = $1 FOR UPDATE`, productID)
}

func (r *txRepo) GetProductByBarcodeForUpdate(ctx context.Context, barcode string) (inventory.ProductStock, error) {
	return r.lockStock(ctx, `SELECT id, barcode, name, current_stock, minimum_stock, is_active
FROM products WHERE barcode = $1 FOR UPDATE`, barcode)
}

func (r *txRepo) lockStock(ctx context.Context, query string, arg any) (inventory.ProductStock, error) {
	var p inventory.ProductStock
	err := r.tx.QueryRow(ctx, query, arg).
		Scan(&p.ID, &p.Barcode, &p.Name, &p.CurrentStock, &p.MinimumStock, &p.IsActive)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return inventory.ProductStock{}, inventory.ErrProductNotFound
		}
		return inventory.ProductStock{}, err
	}
	return p, nil
}

func (r *txRepo) UpdateProductStock(ctx context.Context, productID int64, stock int) error {
	_, err := r.tx.Exec(ctx, `UPDATE products SET current_stock = $2, updated_at = NOW() WHERE id = $1`, productID, stock)
	return err
}

func (r *txRepo) InsertMovement(ctx context.Context, m inventory.Movement) (int64, error) {
	var id int64
	err := r.tx.QueryRow(ctx, `INSERT INTO inventory_movements (product_id, movement_type, quantity, previous_stock, new_stock, reference, performed_by, created_at)
VALUES ($1,$2,$3,$4,$5,$6,$7,$8) RETURNING id`,
		m.ProductID, string(m.Type), m.Quantity, m.PreviousStock, m.NewStock,
		nullableText(m.Reference), nullableID(m.PerformedBy), m.CreatedAt).Scan(&id)
	return id, err
}

// ============================================================================
// SCAN HELPERS
// ============================================================================

type queryer interface {
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
}

func querySaleItems(ctx context.Context, q queryer, saleID int64) ([]SaleItem, error) {
	rows, err := q.Query(ctx, `
		SELECT id, sale_id, product_id, barcode, name, quantity,
			unit_price, tax_rate, tax_amount, subtotal, line_total, line_order
		FROM sale_items WHERE sale_id = $1 ORDER BY line_order, id`, saleID)
	if err != nil {
		return nil, fmt.Errorf("list sale items: %w", err)
	}
	defer rows.Close()

	items := []SaleItem{}
	for rows.Next() {
		var item SaleItem
		if err := rows.Scan(&item.ID, &item.SaleID, &item.ProductID, &item.Barcode,
			&item.Name, &item.Quantity, &item.UnitPrice, &item.TaxRate,
			&item.TaxAmount, &item.Subtotal, &item.LineTotal, &item.LineOrder); err != nil {
			return nil, err
		}
		items = append(items, item)
	}
	return items, rows.Err()
}

func queryPayments(ctx context.Context, q queryer, saleID int64) ([]Payment, error) {
	rows, err := q.Query(ctx, `
		SELECT id, sale_id, method, amount, reference, transaction_id, created_at
		FROM sale_payments WHERE sale_id = $1 ORDER BY id`, saleID)
	if err != nil {
		return nil, fmt.Errorf("list payments: %w", err)
	}
	defer rows.Close()

	payments := []Payment{}
	for rows.Next() {
		var payment Payment
		if err := rows.Scan(&payment.ID, &payment.SaleID, &payment.Method, &payment.Amount,
			&payment.Reference, &payment.TransactionID, &payment.CreatedAt); err != nil {
			return nil, err
		}
		payments = append(payments, payment)
	}
	return payments, rows.Err()
}

func scanSale(row pgx.Row) (Sale, error) {
	var sale Sale
	err := row.Scan(&sale.ID, &sale.SaleNumber, &sale.CustomerID, &sale.CashierID,
		&sale.Status, &sale.Subtotal, &sale.TaxTotal, &sale.DiscountTotal,
		&sale.Total, &sale.Notes, &sale.CreatedAt)
	return sale, err
}

func nullableText(value string) any {
	if value == "" {
		return nil
	}
	return value
}

func nullableID(value int64) any {
	if value == 0 {
		return nil
	}
	return value
}

var _ TxRepository = (*txRepo)(nil)

// saleNumberPrefix builds the date prefix for a sale number.
func saleNumberPrefix(day time.Time) string {
	return "S" + day.UTC().Format("060102")
}
