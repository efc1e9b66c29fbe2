package barcode

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"
)

// SequenceRepository hands out per-category sequence numbers from the
// barcode_sequences table.
type SequenceRepository struct {
	pool *pgxpool.Pool
}

// NewSequenceRepository returns a new SequenceRepository.
func NewSequenceRepository(pool *pgxpool.Pool) *SequenceRepository {
	return &SequenceRepository{pool: pool}
}

// Next allocates the next sequence for a category code. The upsert is
// atomic, so concurrent callers never receive the same value.
func (r *SequenceRepository) Next(ctx context.Context, categoryCode string) (int, error) {
	const q = `
		INSERT INTO barcode_sequences (category_code, last_value)
		VALUES ($1, 1)
		ON CONFLICT (category_code)
		DO UPDATE SET last_value = barcode_sequences.last_value + 1
		RETURNING last_value`

	var next int
	if err := r.pool.QueryRow(ctx, q, categoryCode).Scan(&next); err != nil {
		return 0, fmt.Errorf("next barcode sequence for %s: %w", categoryCode, err)
	}
	return next, nil
}
