package inventory

import (
	"context"
	"fmt"
	"time"
)

// TxLedger is the transactional surface every stock writer shares. The
// sales transaction wrapper satisfies it too, so sale, void and refund
// postings run through the same rules as plain movements.
type TxLedger interface {
	GetProductForUpdate(ctx context.Context, productID int64) (ProductStock, error)
	GetProductByBarcodeForUpdate(ctx context.Context, barcode string) (ProductStock, error)
	UpdateProductStock(ctx context.Context, productID int64, stock int) error
	InsertMovement(ctx context.Context, m Movement) (int64, error)
}

// PostInput describes one movement to apply. Barcode is consulted only
// when ProductID is zero.
type PostInput struct {
	ProductID   int64
	Barcode     string
	Type        MovementType
	Quantity    int
	Reference   string
	PerformedBy int64
}

// Post applies a single movement against the locked product row and
// records the ledger entry. It must run inside the caller's transaction.
func Post(ctx context.Context, tx TxLedger, input PostInput) (Movement, error) {
	var (
		product ProductStock
		err     error
	)
	switch {
	case input.ProductID > 0:
		product, err = tx.GetProductForUpdate(ctx, input.ProductID)
	case input.Barcode != "":
		product, err = tx.GetProductByBarcodeForUpdate(ctx, input.Barcode)
	default:
		return Movement{}, ErrProductRequired
	}
	if err != nil {
		return Movement{}, err
	}

	next, err := NextStock(input.Type, product.CurrentStock, input.Quantity)
	if err != nil {
		return Movement{}, err
	}
	if next < 0 {
		return Movement{}, fmt.Errorf("%w for %s: %d available", ErrInsufficientStock, product.Name, product.CurrentStock)
	}

	if err := tx.UpdateProductStock(ctx, product.ID, next); err != nil {
		return Movement{}, err
	}

	movement := Movement{
		ProductID:     product.ID,
		Barcode:       product.Barcode,
		ProductName:   product.Name,
		Type:          input.Type,
		Quantity:      input.Quantity,
		PreviousStock: product.CurrentStock,
		NewStock:      next,
		Reference:     input.Reference,
		PerformedBy:   input.PerformedBy,
		CreatedAt:     time.Now().UTC(),
	}
	id, err := tx.InsertMovement(ctx, movement)
	if err != nil {
		return Movement{}, err
	}
	movement.ID = id
	return movement, nil
}
