// Package payments adapts the sale ledger to an EFTPOS terminal gateway.
package payments

import "context"

// PaymentRequest describes one charge to authorize at the terminal.
type PaymentRequest struct {
	Amount    float64
	Reference string
}

// PaymentResult is the gateway's answer to a charge.
type PaymentResult struct {
	Approved      bool
	TransactionID string
	Message       string
}

// VoidResult is the gateway's answer to a same-day void.
type VoidResult struct {
	Approved      bool
	TransactionID string
	Message       string
}

// RefundResult is the gateway's answer to a refund. TransactionID is the
// id of the refund leg, not the original charge.
type RefundResult struct {
	Approved      bool
	TransactionID string
	Amount        float64
	Message       string
}

// Gateway is the terminal-facing surface. Every call honours the
// context deadline; the caller decides the timeout.
type Gateway interface {
	ProcessPayment(ctx context.Context, req PaymentRequest) (PaymentResult, error)
	VoidTransaction(ctx context.Context, transactionID string) (VoidResult, error)
	RefundTransaction(ctx context.Context, transactionID string, amount float64) (RefundResult, error)
}
