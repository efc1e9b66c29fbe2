package barcode

import (
	"context"
	"fmt"

	"github.com/evergreen-pos/evergreen-pos/internal/catalog/products"
	"github.com/evergreen-pos/evergreen-pos/internal/catalog/shared"
	"github.com/evergreen-pos/evergreen-pos/internal/inventory"
	"github.com/evergreen-pos/evergreen-pos/internal/platform/httpx"
)

// SequenceSource allocates category sequence numbers.
type SequenceSource interface {
	Next(ctx context.Context, categoryCode string) (int, error)
}

// ProductFinder resolves scanned barcodes to catalog products.
type ProductFinder interface {
	GetByBarcode(ctx context.Context, barcode string) (products.Product, error)
}

// MovementRecorder posts stock movements addressed by barcode.
type MovementRecorder interface {
	Record(ctx context.Context, input inventory.RecordInput) (inventory.Movement, error)
}

// Service generates, resolves and acts on barcodes.
type Service struct {
	prefix    string
	sequences SequenceSource
	finder    ProductFinder
	recorder  MovementRecorder
}

// NewService builds Service instance. Prefix is the 3-digit store prefix.
func NewService(prefix string, sequences SequenceSource, finder ProductFinder, recorder MovementRecorder) *Service {
	return &Service{
		prefix:    prefix,
		sequences: sequences,
		finder:    finder,
		recorder:  recorder,
	}
}

// Generated is a freshly allocated barcode with its segments.
type Generated struct {
	Barcode      string          `json:"barcode"`
	Category     shared.Category `json:"category"`
	CategoryCode string          `json:"category_code"`
	Sequence     int             `json:"sequence"`
}

// Generate allocates the next barcode for a product category.
func (s *Service) Generate(ctx context.Context, category shared.Category) (Generated, error) {
	if !category.Valid() {
		return Generated{}, fmt.Errorf("%w: unknown category %q", httpx.ErrValidation, string(category))
	}
	code := category.Code()
	sequence, err := s.sequences.Next(ctx, code)
	if err != nil {
		return Generated{}, err
	}
	if sequence > MaxSequence {
		return Generated{}, fmt.Errorf("%w: barcode range exhausted for category %s", httpx.ErrInvalidState, category)
	}
	barcode, err := Build(s.prefix, code, sequence)
	if err != nil {
		return Generated{}, err
	}
	return Generated{
		Barcode:      barcode,
		Category:     category,
		CategoryCode: code,
		Sequence:     sequence,
	}, nil
}

// Scan validates a scanned code and resolves it to a product.
func (s *Service) Scan(ctx context.Context, code string) (products.Product, error) {
	if err := Validate(code); err != nil {
		return products.Product{}, err
	}
	return s.finder.GetByBarcode(ctx, code)
}

// MovementInput is a stock movement addressed by barcode.
type MovementInput struct {
	Barcode        string
	Type           inventory.MovementType
	Quantity       int
	Reference      string
	PerformedBy    int64
	IdempotencyKey string
}

// Movement validates the barcode and delegates to the stock ledger.
func (s *Service) Movement(ctx context.Context, input MovementInput) (inventory.Movement, error) {
	if err := Validate(input.Barcode); err != nil {
		return inventory.Movement{}, err
	}
	return s.recorder.Record(ctx, inventory.RecordInput{
		Barcode:        input.Barcode,
		Type:           input.Type,
		Quantity:       input.Quantity,
		Reference:      input.Reference,
		PerformedBy:    input.PerformedBy,
		IdempotencyKey: input.IdempotencyKey,
	})
}
