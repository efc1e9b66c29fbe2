package sales

import (
	"context"
	"fmt"
	"log/slog"
	"strconv"
	"time"

	"github.com/evergreen-pos/evergreen-pos/internal/catalog/customers"
	"github.com/evergreen-pos/evergreen-pos/internal/inventory"
	"github.com/evergreen-pos/evergreen-pos/internal/platform/httpx"
	"github.com/evergreen-pos/evergreen-pos/internal/shared"
)

// RepositoryPort abstracts repository usage for the service.
type RepositoryPort interface {
	WithTx(ctx context.Context, fn func(context.Context, TxRepository) error) error
	GetSale(ctx context.Context, id int64) (*Sale, error)
	GetSaleByNumber(ctx context.Context, saleNumber string) (*Sale, error)
	ListSales(ctx context.Context, req ListSalesRequest) ([]Sale, int, error)
}

// AuditPort abstracts audit logging functionality.
type AuditPort interface {
	Record(ctx context.Context, log shared.AuditLog) error
}

// Service provides business logic for sale operations.
type Service struct {
	logger      *slog.Logger
	repo        RepositoryPort
	audit       AuditPort
	idempotency *shared.IdempotencyStore
	integration IntegrationHandler
	now         func() time.Time
}

// NewService constructs a sale service.
func NewService(logger *slog.Logger, repo RepositoryPort, audit AuditPort, idem *shared.IdempotencyStore, integration IntegrationHandler) *Service {
	return &Service{
		logger:      logger,
		repo:        repo,
		audit:       audit,
		idempotency: idem,
		integration: integration,
		now:         time.Now,
	}
}

// WithNow overrides the clock. Intended for tests.
func (s *Service) WithNow(now func() time.Time) *Service {
	s.now = now
	return s
}

// ============================================================================
// CREATE
// ============================================================================

// Create records a checkout inside one transaction: allocates the sale
// number, persists the sale with items and payments, decrements stock
// with one SOLD movement per item and accrues customer loyalty.
func (s *Service) Create(ctx context.Context, req CreateSaleRequest, cashierID int64, idempotencyKey string) (*Sale, error) {
	for i, item := range req.Items {
		if item.ProductID <= 0 && item.Barcode == "" {
			return nil, fmt.Errorf("%w: item %d needs a product id or barcode", httpx.ErrValidation, i+1)
		}
	}

	insertedKey := false
	if s.idempotency != nil && idempotencyKey != "" {
		if err := s.idempotency.CheckAndInsert(ctx, idempotencyKey, "sales"); err != nil {
			return nil, err
		}
		insertedKey = true
	}

	now := s.now().UTC()
	var saleID int64
	var saleNumber string
	var saleTotal float64

	err := s.repo.WithTx(ctx, func(ctx context.Context, tx TxRepository) error {
		number, err := tx.NextSaleNumber(ctx, saleNumberPrefix(now))
		if err != nil {
			return err
		}
		saleNumber = number

		// Resolve and lock every product up front so the sufficiency
		// check and the later decrement see the same stock level.
		items := make([]SaleItem, 0, len(req.Items))
		var subtotal, taxTotal float64
		for i, itemReq := range req.Items {
			product, err := resolveSaleProduct(ctx, tx, itemReq)
			if err != nil {
				return err
			}
			if !product.IsActive {
				return fmt.Errorf("%w: product %s is not available for sale", httpx.ErrValidation, product.Name)
			}
			if product.CurrentStock < itemReq.Quantity {
				return fmt.Errorf("%w for %s: %d available", inventory.ErrInsufficientStock, product.Name, product.CurrentStock)
			}

			unitPrice := product.SellingPrice
			if itemReq.UnitPrice != nil {
				unitPrice = *itemReq.UnitPrice
			}
			_, taxAmount, lineTotal := CalculateLineTotals(float64(itemReq.Quantity), unitPrice, 0, product.TaxRate)
			lineSubtotal := float64(itemReq.Quantity) * unitPrice

			items = append(items, SaleItem{
				ProductID: product.ID,
				Barcode:   product.Barcode,
				Name:      product.Name,
				Quantity:  itemReq.Quantity,
				UnitPrice: unitPrice,
				TaxRate:   product.TaxRate,
				TaxAmount: taxAmount,
				Subtotal:  lineSubtotal,
				LineTotal: lineTotal,
				LineOrder: i + 1,
			})
			subtotal += lineSubtotal
			taxTotal += taxAmount
		}

		total := subtotal + taxTotal - req.DiscountTotal
		saleTotal = total
		s.warnOnTotalsDivergence(req, subtotal, taxTotal, total)

		var paid float64
		for _, payment := range req.Payments {
			paid += payment.Amount
		}
		if !AmountsEqual(paid, total) {
			return fmt.Errorf("%w: payments total %.2f does not match sale total %.2f", httpx.ErrValidation, paid, total)
		}

		sale := Sale{
			SaleNumber:    saleNumber,
			CustomerID:    req.CustomerID,
			CashierID:     cashierID,
			Status:        SaleStatusCompleted,
			Subtotal:      subtotal,
			TaxTotal:      taxTotal,
			DiscountTotal: req.DiscountTotal,
			Total:         total,
			Notes:         req.Notes,
			CreatedAt:     now,
		}
		saleID, err = tx.InsertSale(ctx, sale)
		if err != nil {
			return err
		}

		for i := range items {
			items[i].SaleID = saleID
			if _, err := tx.InsertSaleItem(ctx, items[i]); err != nil {
				return err
			}
		}
		for _, paymentReq := range req.Payments {
			payment := Payment{
				SaleID:    saleID,
				Method:    paymentReq.Method,
				Amount:    paymentReq.Amount,
				Reference: paymentReq.Reference,
				CreatedAt: now,
			}
			if _, err := tx.InsertPayment(ctx, payment); err != nil {
				return err
			}
		}

		for _, item := range items {
			_, err := inventory.Post(ctx, tx, inventory.PostInput{
				ProductID:   item.ProductID,
				Type:        inventory.MovementSold,
				Quantity:    item.Quantity,
				Reference:   saleNumber,
				PerformedBy: cashierID,
			})
			if err != nil {
				return err
			}
		}

		if req.CustomerID != nil {
			if err := s.accrueLoyalty(ctx, tx, *req.CustomerID, total); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		if insertedKey {
			_ = s.idempotency.Delete(ctx, idempotencyKey)
		}
		return nil, err
	}

	s.notify(ctx, SaleEvent{
		SaleID:     saleID,
		SaleNumber: saleNumber,
		Status:     SaleStatusCompleted,
		Total:      saleTotal,
		OccurredAt: now,
	})
	s.recordAudit(ctx, cashierID, "sales:create", saleID, map[string]any{
		"sale_number": saleNumber,
		"total":       saleTotal,
		"items":       len(req.Items),
	})
	return s.repo.GetSale(ctx, saleID)
}

func resolveSaleProduct(ctx context.Context, tx TxRepository, item SaleItemRequest) (SaleProduct, error) {
	if item.ProductID > 0 {
		return tx.GetProductForSale(ctx, item.ProductID)
	}
	return tx.GetProductForSaleByBarcode(ctx, item.Barcode)
}

func (s *Service) warnOnTotalsDivergence(req CreateSaleRequest, subtotal, taxTotal, total float64) {
	if s.logger == nil {
		return
	}
	if req.Subtotal != nil && !AmountsEqual(*req.Subtotal, subtotal) {
		s.logger.Warn("client subtotal diverges", slog.Float64("client", *req.Subtotal), slog.Float64("computed", subtotal))
	}
	if req.TaxTotal != nil && !AmountsEqual(*req.TaxTotal, taxTotal) {
		s.logger.Warn("client tax total diverges", slog.Float64("client", *req.TaxTotal), slog.Float64("computed", taxTotal))
	}
	if req.Total != nil && !AmountsEqual(*req.Total, total) {
		s.logger.Warn("client total diverges", slog.Float64("client", *req.Total), slog.Float64("computed", total))
	}
}

func (s *Service) accrueLoyalty(ctx context.Context, tx TxRepository, customerID int64, total float64) error {
	account, err := tx.GetCustomerForUpdate(ctx, customerID)
	if err != nil {
		return err
	}
	newSpent := account.TotalSpent + total
	newPoints := account.LoyaltyPoints + customers.PointsForSale(total)
	tier := string(customers.TierFor(newSpent))
	return tx.UpdateCustomerLoyalty(ctx, customerID, newSpent, newPoints, tier)
}

// ============================================================================
// VOID
// ============================================================================

// Void cancels a completed sale: status becomes VOIDED, the reason is
// appended to the notes and every item's stock is restored with one
// RETURNED movement referencing VOID-<saleNumber>.
func (s *Service) Void(ctx context.Context, saleID int64, req VoidSaleRequest, performedBy int64) (*Sale, error) {
	var saleNumber string
	var saleTotal float64
	now := s.now().UTC()

	err := s.repo.WithTx(ctx, func(ctx context.Context, tx TxRepository) error {
		sale, err := tx.GetSaleForUpdate(ctx, saleID)
		if err != nil {
			return err
		}
		if sale.Status != SaleStatusCompleted {
			return fmt.Errorf("%w: only COMPLETED sales can be voided", ErrInvalidStatus)
		}
		saleNumber = sale.SaleNumber
		saleTotal = sale.Total

		items, err := tx.ListSaleItems(ctx, saleID)
		if err != nil {
			return err
		}
		for _, item := range items {
			_, err := inventory.Post(ctx, tx, inventory.PostInput{
				ProductID:   item.ProductID,
				Type:        inventory.MovementReturned,
				Quantity:    item.Quantity,
				Reference:   "VOID-" + sale.SaleNumber,
				PerformedBy: performedBy,
			})
			if err != nil {
				return err
			}
		}

		notes := appendNote(sale.Notes, "VOID: "+req.Reason)
		return tx.UpdateSaleStatus(ctx, saleID, SaleStatusVoided, &notes)
	})
	if err != nil {
		return nil, err
	}

	s.notify(ctx, SaleEvent{
		SaleID:     saleID,
		SaleNumber: saleNumber,
		Status:     SaleStatusVoided,
		Total:      saleTotal,
		OccurredAt: now,
	})
	s.recordAudit(ctx, performedBy, "sales:void", saleID, map[string]any{
		"sale_number": saleNumber,
		"reason":      req.Reason,
	})
	return s.repo.GetSale(ctx, saleID)
}

// ============================================================================
// REFUND
// ============================================================================

// Refund returns a subset of a sale's items: records the refund with
// its per-item tax portions, restores stock with RETURNED movements
// referencing REFUND-<saleNumber> and recomputes the sale status.
func (s *Service) Refund(ctx context.Context, saleID int64, req RefundSaleRequest, performedBy int64) (*Sale, error) {
	var saleNumber string
	var refundTotal float64
	var finalStatus SaleStatus
	now := s.now().UTC()

	err := s.repo.WithTx(ctx, func(ctx context.Context, tx TxRepository) error {
		sale, err := tx.GetSaleForUpdate(ctx, saleID)
		if err != nil {
			return err
		}
		switch sale.Status {
		case SaleStatusVoided:
			return fmt.Errorf("%w: VOIDED sales cannot be refunded", ErrInvalidStatus)
		case SaleStatusRefunded:
			return fmt.Errorf("%w: sale is already fully refunded", ErrInvalidStatus)
		}
		saleNumber = sale.SaleNumber

		items, err := tx.ListSaleItems(ctx, saleID)
		if err != nil {
			return err
		}
		soldByProduct := map[int64]SaleItem{}
		soldQty := map[int64]int{}
		for _, item := range items {
			if _, ok := soldByProduct[item.ProductID]; !ok {
				soldByProduct[item.ProductID] = item
			}
			soldQty[item.ProductID] += item.Quantity
		}

		refundedQty, err := tx.RefundedQuantities(ctx, saleID)
		if err != nil {
			return err
		}

		refundItems := make([]RefundItem, 0, len(req.Items))
		for _, itemReq := range req.Items {
			sold, ok := soldByProduct[itemReq.ProductID]
			if !ok {
				return fmt.Errorf("%w: product %d was not part of sale %s", httpx.ErrValidation, itemReq.ProductID, sale.SaleNumber)
			}
			remaining := soldQty[itemReq.ProductID] - refundedQty[itemReq.ProductID]
			if itemReq.Quantity > remaining {
				return fmt.Errorf("%w: product %s has %d refundable units left", ErrInvalidRefundQuantity, sold.Name, remaining)
			}

			_, taxAmount, lineTotal := CalculateLineTotals(float64(itemReq.Quantity), sold.UnitPrice, 0, sold.TaxRate)
			refundItems = append(refundItems, RefundItem{
				ProductID: itemReq.ProductID,
				Quantity:  itemReq.Quantity,
				UnitPrice: sold.UnitPrice,
				TaxAmount: taxAmount,
			})
			refundTotal += lineTotal
		}

		refundID, err := tx.InsertRefund(ctx, Refund{
			SaleID:     saleID,
			Method:     req.Method,
			Total:      refundTotal,
			Reason:     req.Reason,
			RefundedBy: performedBy,
			RefundedAt: now,
		})
		if err != nil {
			return err
		}
		for i := range refundItems {
			refundItems[i].RefundID = refundID
			if _, err := tx.InsertRefundItem(ctx, refundItems[i]); err != nil {
				return err
			}
		}

		for _, item := range refundItems {
			_, err := inventory.Post(ctx, tx, inventory.PostInput{
				ProductID:   item.ProductID,
				Type:        inventory.MovementReturned,
				Quantity:    item.Quantity,
				Reference:   "REFUND-" + sale.SaleNumber,
				PerformedBy: performedBy,
			})
			if err != nil {
				return err
			}
		}

		// Fully refunded once every sold unit has a matching refund.
		requested := map[int64]int{}
		for _, item := range refundItems {
			requested[item.ProductID] += item.Quantity
		}
		finalStatus = SaleStatusRefunded
		for productID, qty := range soldQty {
			if refundedQty[productID]+requested[productID] < qty {
				finalStatus = SaleStatusPartiallyRefunded
				break
			}
		}
		return tx.UpdateSaleStatus(ctx, saleID, finalStatus, nil)
	})
	if err != nil {
		return nil, err
	}

	s.notify(ctx, SaleEvent{
		SaleID:     saleID,
		SaleNumber: saleNumber,
		Status:     finalStatus,
		Total:      refundTotal,
		OccurredAt: now,
	})
	s.recordAudit(ctx, performedBy, "sales:refund", saleID, map[string]any{
		"sale_number":  saleNumber,
		"refund_total": refundTotal,
		"status":       string(finalStatus),
	})
	return s.repo.GetSale(ctx, saleID)
}

// ============================================================================
// READS
// ============================================================================

// Get loads a sale with items, payments and refunds.
func (s *Service) Get(ctx context.Context, id int64) (*Sale, error) {
	return s.repo.GetSale(ctx, id)
}

// List returns sales matching the filters with pagination metadata.
func (s *Service) List(ctx context.Context, req ListSalesRequest) ([]Sale, shared.Pagination, error) {
	sales, total, err := s.repo.ListSales(ctx, req)
	if err != nil {
		return nil, shared.Pagination{}, err
	}
	return sales, shared.NewPagination(req.Page, req.PerPage, total), nil
}

// ============================================================================
// PAYMENT LEDGER OPERATIONS
// ============================================================================

// FindByReference locates a sale by its sale number. The payment
// adapter addresses sales this way.
func (s *Service) FindByReference(ctx context.Context, reference string) (*Sale, error) {
	return s.repo.GetSaleByNumber(ctx, reference)
}

// AttachPayment appends a gateway-processed payment entry to a sale.
func (s *Service) AttachPayment(ctx context.Context, saleID int64, method PaymentMethod, amount float64, reference, transactionID *string) (*Payment, error) {
	var payment Payment
	err := s.repo.WithTx(ctx, func(ctx context.Context, tx TxRepository) error {
		sale, err := tx.GetSaleForUpdate(ctx, saleID)
		if err != nil {
			return err
		}
		if sale.Status == SaleStatusVoided {
			return fmt.Errorf("%w: cannot take payments on a VOIDED sale", ErrInvalidStatus)
		}
		payment = Payment{
			SaleID:        saleID,
			Method:        method,
			Amount:        amount,
			Reference:     reference,
			TransactionID: transactionID,
			CreatedAt:     s.now().UTC(),
		}
		payment.ID, err = tx.InsertPayment(ctx, payment)
		return err
	})
	if err != nil {
		return nil, err
	}
	s.recordAudit(ctx, 0, "sales:payment_attach", saleID, map[string]any{
		"method": string(method),
		"amount": amount,
	})
	return &payment, nil
}

// RemovePaymentByTransaction splices out the payment entry matching a
// gateway transaction id after a successful gateway void.
func (s *Service) RemovePaymentByTransaction(ctx context.Context, saleID int64, transactionID string) (*Payment, error) {
	var removed Payment
	err := s.repo.WithTx(ctx, func(ctx context.Context, tx TxRepository) error {
		if _, err := tx.GetSaleForUpdate(ctx, saleID); err != nil {
			return err
		}
		payments, err := tx.ListPayments(ctx, saleID)
		if err != nil {
			return err
		}
		for _, payment := range payments {
			if payment.TransactionID != nil && *payment.TransactionID == transactionID {
				removed = payment
				return tx.DeletePayment(ctx, payment.ID)
			}
		}
		return fmt.Errorf("%w: no payment with transaction id %s", httpx.ErrNotFound, transactionID)
	})
	if err != nil {
		return nil, err
	}
	s.recordAudit(ctx, 0, "sales:payment_void", saleID, map[string]any{
		"transaction_id": transactionID,
		"amount":         removed.Amount,
	})
	return &removed, nil
}

// ApplyPaymentRefund appends a negative payment entry for a gateway
// refund and recomputes the sale status by comparing the cumulative
// refunded amount against the sale total.
func (s *Service) ApplyPaymentRefund(ctx context.Context, saleID int64, method PaymentMethod, amount float64, transactionID *string) (*Sale, error) {
	err := s.repo.WithTx(ctx, func(ctx context.Context, tx TxRepository) error {
		sale, err := tx.GetSaleForUpdate(ctx, saleID)
		if err != nil {
			return err
		}
		if sale.Status == SaleStatusVoided {
			return fmt.Errorf("%w: cannot refund payments on a VOIDED sale", ErrInvalidStatus)
		}

		entry := Payment{
			SaleID:        saleID,
			Method:        method,
			Amount:        -amount,
			TransactionID: transactionID,
			CreatedAt:     s.now().UTC(),
		}
		if _, err := tx.InsertPayment(ctx, entry); err != nil {
			return err
		}

		payments, err := tx.ListPayments(ctx, saleID)
		if err != nil {
			return err
		}
		var refunded float64
		for _, payment := range payments {
			if payment.Amount < 0 {
				refunded += -payment.Amount
			}
		}
		status := SaleStatusPartiallyRefunded
		if refunded >= sale.Total || AmountsEqual(refunded, sale.Total) {
			status = SaleStatusRefunded
		}
		return tx.UpdateSaleStatus(ctx, saleID, status, nil)
	})
	if err != nil {
		return nil, err
	}
	s.recordAudit(ctx, 0, "sales:payment_refund", saleID, map[string]any{
		"method": string(method),
		"amount": amount,
	})
	return s.repo.GetSale(ctx, saleID)
}

// ============================================================================
// HELPERS
// ============================================================================

func (s *Service) notify(ctx context.Context, evt SaleEvent) {
	if s.integration == nil {
		return
	}
	if err := s.integration.HandleSaleRecorded(ctx, evt); err != nil && s.logger != nil {
		s.logger.Warn("sale event handler failed",
			slog.String("sale_number", evt.SaleNumber),
			slog.Any("error", err))
	}
}

func (s *Service) recordAudit(ctx context.Context, actorID int64, action string, saleID int64, meta map[string]any) {
	if s.audit == nil {
		return
	}
	_ = s.audit.Record(ctx, shared.AuditLog{
		ActorID:  actorID,
		Action:   action,
		Entity:   "sale",
		EntityID: strconv.FormatInt(saleID, 10),
		Meta:     meta,
	})
}

func appendNote(existing *string, note string) string {
	if existing == nil || *existing == "" {
		return note
	}
	return *existing + "; " + note
}
