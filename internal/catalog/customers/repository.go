package customers

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/evergreen-pos/evergreen-pos/internal/catalog/shared"
)

// Repository defines data access for customers.
type Repository interface {
	List(ctx context.Context, filters shared.ListFilters) ([]Customer, int, error)
	Get(ctx context.Context, id int64) (Customer, error)
	Create(ctx context.Context, c Customer) (Customer, error)
	Update(ctx context.Context, c Customer) (Customer, error)
	Delete(ctx context.Context, id int64) error
	HasSales(ctx context.Context, id int64) (bool, error)
}

type repository struct {
	db *pgxpool.Pool
}

// NewRepository returns a pgx-backed customer repository.
func NewRepository(db *pgxpool.Pool) Repository {
	return &repository{db: db}
}

const customerColumns = `id, first_name, last_name, email, phone, address,
	total_spent, loyalty_points, tier, is_active, created_at, updated_at`

func (r *repository) List(ctx context.Context, filters shared.ListFilters) ([]Customer, int, error) {
	var (
		clauses []string
		args    []any
	)
	argCount := 1

	if filters.Search != "" {
		pattern := "%" + filters.Search + "%"
		clauses = append(clauses, fmt.Sprintf(
			"(first_name ILIKE $%d OR last_name ILIKE $%d OR email ILIKE $%d)",
			argCount, argCount, argCount))
		args = append(args, pattern)
		argCount++
	}
	if filters.IsActive != nil {
		clauses = append(clauses, fmt.Sprintf("is_active = $%d", argCount))
		args = append(args, *filters.IsActive)
		argCount++
	}
	if filters.Tier != nil {
		clauses = append(clauses, fmt.Sprintf("tier = $%d", argCount))
		args = append(args, *filters.Tier)
		argCount++
	}

	where := ""
	if len(clauses) > 0 {
		where = " WHERE " + strings.Join(clauses, " AND ")
	}

	countQuery := "SELECT COUNT(*) FROM customers" + where
	var total int
	if err := r.db.QueryRow(ctx, countQuery, args...).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("count customers: %w", err)
	}

	query := "SELECT " + customerColumns + " FROM customers" + where +
		sortOrder(filters.SortBy, filters.SortDir) +
		" LIMIT " + strconv.Itoa(filters.Limit) +
		" OFFSET " + strconv.Itoa((filters.Page-1)*filters.Limit)

	rows, err := r.db.Query(ctx, query, args...)
	if err != nil {
		return nil, 0, fmt.Errorf("list customers: %w", err)
	}
	defer rows.Close()

	var customers []Customer
	for rows.Next() {
		c, err := scanCustomer(rows)
		if err != nil {
			return nil, 0, err
		}
		customers = append(customers, c)
	}
	if err := rows.Err(); err != nil {
		return nil, 0, fmt.Errorf("iterate customers: %w", err)
	}
	return customers, total, nil
}

func (r *repository) Get(ctx context.Context, id int64) (Customer, error) {
	row := r.db.QueryRow(ctx, "SELECT "+customerColumns+" FROM customers WHERE id = $1", id)
	c, err := scanCustomer(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return Customer{}, shared.ErrNotFound
	}
	if err != nil {
		return Customer{}, fmt.Errorf("get customer: %w", err)
	}
	return c, nil
}

func (r *repository) Create(ctx context.Context, c Customer) (Customer, error) {
	row := r.db.QueryRow(ctx, `
		INSERT INTO customers (first_name, last_name, email, phone, address,
			total_spent, loyalty_points, tier, is_active, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, NOW(), NOW())
		RETURNING `+customerColumns,
		c.FirstName, c.LastName, c.Email, c.Phone, c.Address,
		c.TotalSpent, c.LoyaltyPoints, c.Tier, c.IsActive)

	created, err := scanCustomer(row)
	if err != nil {
		return Customer{}, mapUniqueViolation(err, "create customer")
	}
	return created, nil
}

func (r *repository) Update(ctx context.Context, c Customer) (Customer, error) {
	row := r.db.QueryRow(ctx, `
		UPDATE customers
		SET first_name = $2, last_name = $3, email = $4, phone = $5, address = $6,
			is_active = $7, updated_at = NOW()
		WHERE id = $1
		RETURNING `+customerColumns,
		c.ID, c.FirstName, c.LastName, c.Email, c.Phone, c.Address, c.IsActive)

	updated, err := scanCustomer(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return Customer{}, shared.ErrNotFound
	}
	if err != nil {
		return Customer{}, mapUniqueViolation(err, "update customer")
	}
	return updated, nil
}

func (r *repository) Delete(ctx context.Context, id int64) error {
	tag, err := r.db.Exec(ctx, "DELETE FROM customers WHERE id = $1", id)
	if err != nil {
		return fmt.Errorf("delete customer: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return shared.ErrNotFound
	}
	return nil
}

func (r *repository) HasSales(ctx context.Context, id int64) (bool, error) {
	var exists bool
	err := r.db.QueryRow(ctx,
		"SELECT EXISTS (SELECT 1 FROM sales WHERE customer_id = $1)", id).Scan(&exists)
	if err != nil {
		return false, fmt.Errorf("check customer sales: %w", err)
	}
	return exists, nil
}

func sortOrder(sortBy, sortDir string) string {
	column := "last_name"
	switch sortBy {
	case "first_name", "email", "total_spent", "loyalty_points", "tier", "created_at":
		column = sortBy
	}
	dir := " ASC"
	if sortDir == shared.SortDesc {
		dir = " DESC"
	}
	return " ORDER BY " + column + dir
}

func scanCustomer(row pgx.Row) (Customer, error) {
	var c Customer
	err := row.Scan(
		&c.ID, &c.FirstName, &c.LastName, &c.Email, &c.Phone, &c.Address,
		&c.TotalSpent, &c.LoyaltyPoints, &c.Tier, &c.IsActive, &c.CreatedAt, &c.UpdatedAt,
	)
	return c, err
}

func mapUniqueViolation(err error, op string) error {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) && pgErr.Code == "23505" {
		return fmt.Errorf("%w: email already registered", shared.ErrDuplicate)
	}
	return fmt.Errorf("%s: %w", op, err)
}
