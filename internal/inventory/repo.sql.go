package inventory

import (
	"context"
	"errors"
	"strconv"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/evergreen-pos/evergreen-pos/internal/platform/db"
)

// Repository persists stock movements in PostgreSQL.
type Repository struct {
	pool *pgxpool.Pool
}

// NewRepository constructs Repository.
func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

type txLedger struct {
	tx pgx.Tx
}

// WithTx executes the callback inside a repeatable-read transaction.
func (r *Repository) WithTx(ctx context.Context, fn func(context.Context, TxLedger) error) error {
	if r == nil {
		return errors.New("inventory repository not initialised")
	}
	return db.WithTx(ctx, r.pool, func(tx pgx.Tx) error {
		return fn(ctx, &txLedger{tx: tx})
	})
}

// ListMovements returns ledger entries matching the filter plus the total count.
func (r *Repository) ListMovements(ctx context.Context, filter MovementFilter) ([]Movement, int, error) {
	if r == nil {
		return nil, 0, errors.New("inventory repository not initialised")
	}

	query := `SELECT m.id, m.product_id, COALESCE(p.barcode, ''), COALESCE(p.name, ''), m.movement_type,
m.quantity, m.previous_stock, m.new_stock, COALESCE(m.reference, ''), m.performed_by, m.created_at
FROM inventory_movements m
LEFT JOIN products p ON p.id = m.product_id
WHERE 1=1`
	countQuery := `SELECT COUNT(*) FROM inventory_movements m WHERE 1=1`
	args := []any{}
	argCount := 0

	if filter.ProductID > 0 {
		argCount++
		clause := " AND m.product_id = $" + strconv.Itoa(argCount)
		query += clause
		countQuery += clause
		args = append(args, filter.ProductID)
	}
	if filter.Type != "" {
		argCount++
		clause := " AND m.movement_type = $" + strconv.Itoa(argCount)
		query += clause
		countQuery += clause
		args = append(args, string(filter.Type))
	}
	if !filter.From.IsZero() {
		argCount++
		clause := " AND m.created_at >= $" + strconv.Itoa(argCount)
		query += clause
		countQuery += clause
		args = append(args, filter.From)
	}
	if !filter.To.IsZero() {
		argCount++
		clause := " AND m.created_at <= $" + strconv.Itoa(argCount)
		query += clause
		countQuery += clause
		args = append(args, filter.To)
	}

	var total int
	if err := r.pool.QueryRow(ctx, countQuery, args...).Scan(&total); err != nil {
		return nil, 0, err
	}

	perPage := filter.PerPage
	if perPage <= 0 {
		perPage = 20
	}
	page := filter.Page
	if page <= 0 {
		page = 1
	}
	query += " ORDER BY m.created_at DESC, m.id DESC"
	query += " LIMIT " + strconv.Itoa(perPage) + " OFFSET " + strconv.Itoa((page-1)*perPage)

	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()

	movements := []Movement{}
	for rows.Next() {
		var m Movement
		if err := rows.Scan(&m.ID, &m.ProductID, &m.Barcode, &m.ProductName, &m.Type,
			&m.Quantity, &m.PreviousStock, &m.NewStock, &m.Reference, &m.PerformedBy, &m.CreatedAt); err != nil {
			return nil, 0, err
		}
		movements = append(movements, m)
	}
	if err := rows.Err(); err != nil {
		return nil, 0, err
	}
	return movements, total, nil
}

func (r *txLedger) GetProductForUpdate(ctx context.Context, productID int64) (ProductStock, error) {
	return r.lockProduct(ctx, `SELECT id, barcode, name, current_stock, minimum_stock, is_active
FROM products WHERE id = $1 FOR UPDATE`, productID)
}

func (r *txLedger) GetProductByBarcodeForUpdate(ctx context.Context, barcode string) (ProductStock, error) {
	return r.lockProduct(ctx, `SELECT id, barcode, name, current_stock, minimum_stock, is_active
FROM products WHERE barcode = $1 FOR UPDATE`, barcode)
}

func (r *txLedger) lockProduct(ctx context.Context, query string, arg any) (ProductStock, error) {
	var p ProductStock
	err := r.tx.QueryRow(ctx, query, arg).
		Scan(&p.ID, &p.Barcode, &p.Name, &p.CurrentStock, &p.MinimumStock, &p.IsActive)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return ProductStock{}, ErrProductNotFound
		}
		return ProductStock{}, err
	}
	return p, nil
}

func (r *txLedger) UpdateProductStock(ctx context.Context, productID int64, stock int) error {
	_, err := r.tx.Exec(ctx, `UPDATE products SET current_stock = $2, updated_at = NOW() WHERE id = $1`, productID, stock)
	return err
}

func (r *txLedger) InsertMovement(ctx context.Context, m Movement) (int64, error) {
	var id int64
	err := r.tx.QueryRow(ctx, `INSERT INTO inventory_movements (product_id, movement_type, quantity, previous_stock, new_stock, reference, performed_by, created_at)
VALUES ($1,$2,$3,$4,$5,$6,$7,COALESCE($8, NOW())) RETURNING id`,
		m.ProductID, string(m.Type), m.Quantity, m.PreviousStock, m.NewStock, nullStr(m.Reference), nullInt(m.PerformedBy), nullTime(m.CreatedAt)).Scan(&id)
	return id, err
}

func nullStr(value string) any {
	if value == "" {
		return nil
	}
	return value
}

func nullInt(value int64) any {
	if value == 0 {
		return nil
	}
	return value
}

func nullTime(t time.Time) any {
	if t.IsZero() {
		return nil
	}
	return t
}
