package inventory

import (
	"context"
	"fmt"
	"strconv"

	"github.com/evergreen-pos/evergreen-pos/internal/shared"
)

// RepositoryPort abstracts repository usage for service.
type RepositoryPort interface {
	WithTx(ctx context.Context, fn func(context.Context, TxLedger) error) error
	ListMovements(ctx context.Context, filter MovementFilter) ([]Movement, int, error)
}

// AuditPort abstracts audit logging functionality.
type AuditPort interface {
	Record(ctx context.Context, log shared.AuditLog) error
}

// Service coordinates stock movements outside the sale flow.
type Service struct {
	repo        RepositoryPort
	audit       AuditPort
	idempotency *shared.IdempotencyStore
	integration IntegrationHandler
}

// NewService builds Service.
func NewService(repo RepositoryPort, audit AuditPort, idem *shared.IdempotencyStore, integration IntegrationHandler) *Service {
	return &Service{repo: repo, audit: audit, idempotency: idem, integration: integration}
}

// RecordInput describes a movement request.
type RecordInput struct {
	ProductID      int64
	Barcode        string
	Type           MovementType
	Quantity       int
	Reference      string
	PerformedBy    int64
	IdempotencyKey string
}

// Record posts a single movement and returns the committed ledger entry.
func (s *Service) Record(ctx context.Context, input RecordInput) (Movement, error) {
	if !input.Type.Valid() {
		return Movement{}, ErrUnknownMovementType
	}
	if input.ProductID <= 0 && input.Barcode == "" {
		return Movement{}, ErrProductRequired
	}
	minQty := 1
	if input.Type == MovementStockCount {
		minQty = 0
	}
	if input.Quantity < minQty {
		return Movement{}, ErrInvalidQuantity
	}

	insertedKey := false
	if s.idempotency != nil && input.IdempotencyKey != "" {
		if err := s.idempotency.CheckAndInsert(ctx, input.IdempotencyKey, "inventory"); err != nil {
			return Movement{}, err
		}
		insertedKey = true
	}

	var movement Movement
	err := s.repo.WithTx(ctx, func(ctx context.Context, tx TxLedger) error {
		var err error
		movement, err = Post(ctx, tx, PostInput{
			ProductID:   input.ProductID,
			Barcode:     input.Barcode,
			Type:        input.Type,
			Quantity:    input.Quantity,
			Reference:   input.Reference,
			PerformedBy: input.PerformedBy,
		})
		return err
	})
	if err != nil {
		if insertedKey {
			_ = s.idempotency.Delete(ctx, input.IdempotencyKey)
		}
		return Movement{}, err
	}

	if s.integration != nil {
		evt := MovementRecordedEvent{
			MovementID: movement.ID,
			ProductID:  movement.ProductID,
			Type:       movement.Type,
			Quantity:   movement.Quantity,
			NewStock:   movement.NewStock,
			RecordedAt: movement.CreatedAt,
		}
		if err := s.integration.HandleMovementRecorded(ctx, evt); err != nil {
			return Movement{}, err
		}
	}

	if s.audit != nil {
		_ = s.audit.Record(ctx, shared.AuditLog{
			ActorID:  input.PerformedBy,
			Action:   fmt.Sprintf("inventory:%s", movement.Type),
			Entity:   "inventory_movement",
			EntityID: strconv.FormatInt(movement.ID, 10),
			Meta: map[string]any{
				"product_id":     movement.ProductID,
				"quantity":       movement.Quantity,
				"previous_stock": movement.PreviousStock,
				"new_stock":      movement.NewStock,
				"reference":      movement.Reference,
			},
		})
	}
	return movement, nil
}

// SetStock overwrites the stock level with a counted figure, recording
// a STOCK_COUNT movement so the correction stays on the ledger.
func (s *Service) SetStock(ctx context.Context, productID int64, counted int, performedBy int64, reference string) (Movement, error) {
	return s.Record(ctx, RecordInput{
		ProductID:   productID,
		Type:        MovementStockCount,
		Quantity:    counted,
		Reference:   reference,
		PerformedBy: performedBy,
	})
}

// List returns movements matching the filter with pagination metadata.
func (s *Service) List(ctx context.Context, filter MovementFilter) ([]Movement, shared.Pagination, error) {
	if filter.Type != "" && !filter.Type.Valid() {
		return nil, shared.Pagination{}, ErrUnknownMovementType
	}
	movements, total, err := s.repo.ListMovements(ctx, filter)
	if err != nil {
		return nil, shared.Pagination{}, err
	}
	return movements, shared.NewPagination(filter.Page, filter.PerPage, total), nil
}
