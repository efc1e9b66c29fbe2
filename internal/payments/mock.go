package payments

import (
	"context"
	"time"

	"github.com/google/uuid"
)

// MockGateway approves everything after a short simulated terminal
// round-trip. Decline and Err flip the outcome for tests and demos.
type MockGateway struct {
	Latency time.Duration
	Decline bool
	Err     error
}

func (g *MockGateway) ProcessPayment(ctx context.Context, req PaymentRequest) (PaymentResult, error) {
	if err := g.roundTrip(ctx); err != nil {
		return PaymentResult{}, err
	}
	if g.Decline {
		return PaymentResult{Approved: false, Message: "DECLINED"}, nil
	}
	return PaymentResult{
		Approved:      true,
		TransactionID: "EFT-" + uuid.NewString(),
		Message:       "APPROVED",
	}, nil
}

func (g *MockGateway) VoidTransaction(ctx context.Context, transactionID string) (VoidResult, error) {
	if err := g.roundTrip(ctx); err != nil {
		return VoidResult{}, err
	}
	if g.Decline {
		return VoidResult{Approved: false, TransactionID: transactionID, Message: "DECLINED"}, nil
	}
	return VoidResult{Approved: true, TransactionID: transactionID, Message: "VOIDED"}, nil
}

func (g *MockGateway) RefundTransaction(ctx context.Context, transactionID string, amount float64) (RefundResult, error) {
	if err := g.roundTrip(ctx); err != nil {
		return RefundResult{}, err
	}
	if g.Decline {
		return RefundResult{Approved: false, Message: "DECLINED"}, nil
	}
	return RefundResult{
		Approved:      true,
		TransactionID: "EFT-" + uuid.NewString(),
		Amount:        amount,
		Message:       "REFUNDED",
	}, nil
}

func (g *MockGateway) roundTrip(ctx context.Context) error {
	if g.Err != nil {
		return g.Err
	}
	latency := g.Latency
	if latency <= 0 {
		latency = 25 * time.Millisecond
	}
	timer := time.NewTimer(latency)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}

var _ Gateway = (*MockGateway)(nil)
