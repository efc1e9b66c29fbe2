package payments

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/evergreen-pos/evergreen-pos/internal/platform/httpx"
	"github.com/evergreen-pos/evergreen-pos/internal/sales"
)

// SaleLedger is the slice of the sale ledger the terminal flows write to.
type SaleLedger interface {
	FindByReference(ctx context.Context, reference string) (*sales.Sale, error)
	AttachPayment(ctx context.Context, saleID int64, method sales.PaymentMethod, amount float64, reference, transactionID *string) (*sales.Payment, error)
	RemovePaymentByTransaction(ctx context.Context, saleID int64, transactionID string) (*sales.Payment, error)
	ApplyPaymentRefund(ctx context.Context, saleID int64, method sales.PaymentMethod, amount float64, transactionID *string) (*sales.Sale, error)
}

// Service runs terminal operations against a gateway and posts the
// outcomes onto the referenced sale.
type Service struct {
	logger  *slog.Logger
	gateway Gateway
	ledger  SaleLedger
	timeout time.Duration
}

// NewService builds Service instance. Timeout bounds every gateway call.
func NewService(logger *slog.Logger, gateway Gateway, ledger SaleLedger, timeout time.Duration) *Service {
	if timeout <= 0 {
		timeout = 60 * time.Second
	}
	return &Service{
		logger:  logger,
		gateway: gateway,
		ledger:  ledger,
		timeout: timeout,
	}
}

// ChargeInput references the sale a terminal charge belongs to.
type ChargeInput struct {
	Reference string
	Amount    float64
}

// Charge authorizes a card payment and appends the approved entry to
// the sale. Declines and gateway faults surface as upstream errors.
func (s *Service) Charge(ctx context.Context, input ChargeInput) (*sales.Payment, error) {
	sale, err := s.ledger.FindByReference(ctx, input.Reference)
	if err != nil {
		return nil, err
	}

	gctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()
	result, err := s.gateway.ProcessPayment(gctx, PaymentRequest{
		Amount:    input.Amount,
		Reference: input.Reference,
	})
	if err != nil {
		return nil, fmt.Errorf("%w: payment gateway: %w", httpx.ErrUpstream, err)
	}
	if !result.Approved {
		return nil, fmt.Errorf("%w: payment declined: %s", httpx.ErrUpstream, result.Message)
	}

	reference := input.Reference
	payment, err := s.ledger.AttachPayment(ctx, sale.ID, sales.PaymentMethodEFTPOS, input.Amount, &reference, &result.TransactionID)
	if err != nil {
		// The charge went through but the ledger write failed. Surface
		// the transaction id so the operator can reconcile manually.
		if s.logger != nil {
			s.logger.Error("approved charge could not be recorded",
				slog.String("reference", input.Reference),
				slog.String("transaction_id", result.TransactionID),
				slog.Any("error", err))
		}
		return nil, err
	}
	return payment, nil
}

// VoidInput addresses one charge on one sale.
type VoidInput struct {
	Reference     string
	TransactionID string
}

// VoidPayment reverses a charge at the gateway and splices the matching
// entry out of the sale. The transaction must exist on the sale before
// the gateway is touched.
func (s *Service) VoidPayment(ctx context.Context, input VoidInput) (*sales.Payment, error) {
	sale, err := s.ledger.FindByReference(ctx, input.Reference)
	if err != nil {
		return nil, err
	}
	if _, err := paymentByTransaction(sale, input.TransactionID); err != nil {
		return nil, err
	}

	gctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()
	result, err := s.gateway.VoidTransaction(gctx, input.TransactionID)
	if err != nil {
		return nil, fmt.Errorf("%w: payment gateway: %w", httpx.ErrUpstream, err)
	}
	if !result.Approved {
		return nil, fmt.Errorf("%w: void declined: %s", httpx.ErrUpstream, result.Message)
	}

	return s.ledger.RemovePaymentByTransaction(ctx, sale.ID, input.TransactionID)
}

// RefundInput addresses one charge on one sale plus the amount to
// return. Partial amounts are allowed.
type RefundInput struct {
	Reference     string
	TransactionID string
	Amount        float64
}

// RefundPayment returns money to the card and appends a negative entry
// to the sale; the sale status is recomputed from the cumulative
// refunded amount.
func (s *Service) RefundPayment(ctx context.Context, input RefundInput) (*sales.Sale, error) {
	sale, err := s.ledger.FindByReference(ctx, input.Reference)
	if err != nil {
		return nil, err
	}
	original, err := paymentByTransaction(sale, input.TransactionID)
	if err != nil {
		return nil, err
	}
	if input.Amount > original.Amount+0.01 {
		return nil, fmt.Errorf("%w: refund %.2f exceeds original payment %.2f", httpx.ErrValidation, input.Amount, original.Amount)
	}

	gctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()
	result, err := s.gateway.RefundTransaction(gctx, input.TransactionID, input.Amount)
	if err != nil {
		return nil, fmt.Errorf("%w: payment gateway: %w", httpx.ErrUpstream, err)
	}
	if !result.Approved {
		return nil, fmt.Errorf("%w: refund declined: %s", httpx.ErrUpstream, result.Message)
	}

	return s.ledger.ApplyPaymentRefund(ctx, sale.ID, sales.PaymentMethodEFTPOS, input.Amount, &result.TransactionID)
}

func paymentByTransaction(sale *sales.Sale, transactionID string) (*sales.Payment, error) {
	for i := range sale.Payments {
		payment := &sale.Payments[i]
		if payment.TransactionID != nil && *payment.TransactionID == transactionID {
			return payment, nil
		}
	}
	return nil, fmt.Errorf("%w: no payment with transaction id %s on sale %s", httpx.ErrNotFound, transactionID, sale.SaleNumber)
}
