package inventory

import (
	"fmt"
	"time"

	"github.com/evergreen-pos/evergreen-pos/internal/platform/httpx"
)

// MovementType enumerates supported stock movements.
type MovementType string

const (
	// MovementReceived represents stock arriving from a supplier.
	MovementReceived MovementType = "RECEIVED"
	// MovementSold represents stock leaving through a sale.
	MovementSold MovementType = "SOLD"
	// MovementReturned represents stock coming back from a void or refund.
	MovementReturned MovementType = "RETURNED"
	// MovementDamaged represents write-offs for dead or broken stock.
	MovementDamaged MovementType = "DAMAGED"
	// MovementAdjustment indicates a manual correction that adds stock.
	MovementAdjustment MovementType = "ADJUSTMENT"
	// MovementTransferred represents stock sent to another location.
	MovementTransferred MovementType = "TRANSFERRED"
	// MovementStockCount overwrites the level with a counted figure.
	MovementStockCount MovementType = "STOCK_COUNT"
)

// Valid reports whether t is a known movement type.
func (t MovementType) Valid() bool {
	switch t {
	case MovementReceived, MovementSold, MovementReturned, MovementDamaged,
		MovementAdjustment, MovementTransferred, MovementStockCount:
		return true
	}
	return false
}

// Movement models one entry in the stock ledger. PreviousStock and
// NewStock snapshot the level around the entry so the history is
// auditable without replaying it.
type Movement struct {
	ID            int64        `json:"id" db:"id"`
	ProductID     int64        `json:"product_id" db:"product_id"`
	Barcode       string       `json:"barcode,omitempty" db:"barcode"`
	ProductName   string       `json:"product_name,omitempty" db:"product_name"`
	Type          MovementType `json:"movement_type" db:"movement_type"`
	Quantity      int          `json:"quantity" db:"quantity"`
	PreviousStock int          `json:"previous_stock" db:"previous_stock"`
	NewStock      int          `json:"new_stock" db:"new_stock"`
	Reference     string       `json:"reference,omitempty" db:"reference"`
	PerformedBy   int64        `json:"performed_by" db:"performed_by"`
	CreatedAt     time.Time    `json:"created_at" db:"created_at"`
}

// ProductStock is the stock-bearing slice of a product row.
type ProductStock struct {
	ID           int64
	Barcode      string
	Name         string
	CurrentStock int
	MinimumStock int
	IsActive     bool
}

// MovementFilter narrows movement listings.
type MovementFilter struct {
	ProductID int64
	Type      MovementType
	From      time.Time
	To        time.Time
	Page      int
	PerPage   int
}

var (
	// ErrInvalidQuantity rejects quantities outside the range the movement type allows.
	ErrInvalidQuantity = fmt.Errorf("%w: quantity out of range for movement type", httpx.ErrValidation)
	// ErrUnknownMovementType rejects movement types outside the enumeration.
	ErrUnknownMovementType = fmt.Errorf("%w: unknown movement type", httpx.ErrValidation)
	// ErrProductRequired rejects movements that name neither a product id nor a barcode.
	ErrProductRequired = fmt.Errorf("%w: product id or barcode required", httpx.ErrValidation)
	// ErrProductNotFound indicates the referenced product row is missing.
	ErrProductNotFound = fmt.Errorf("%w: product", httpx.ErrNotFound)
	// ErrInsufficientStock aliases the transport sentinel for ledger callers.
	ErrInsufficientStock = httpx.ErrInsufficientStock
)

// NextStock applies the movement arithmetic without guarding the result.
// RECEIVED, RETURNED and ADJUSTMENT add, SOLD, DAMAGED and TRANSFERRED
// subtract, STOCK_COUNT replaces the level outright. Callers must reject
// negative results for subtracting types.
func NextStock(t MovementType, current, quantity int) (int, error) {
	switch t {
	case MovementReceived, MovementReturned, MovementAdjustment:
		if quantity < 1 {
			return 0, ErrInvalidQuantity
		}
		return current + quantity, nil
	case MovementSold, MovementDamaged, MovementTransferred:
		if quantity < 1 {
			return 0, ErrInvalidQuantity
		}
		return current - quantity, nil
	case MovementStockCount:
		if quantity < 0 {
			return 0, ErrInvalidQuantity
		}
		return quantity, nil
	default:
		return 0, ErrUnknownMovementType
	}
}
