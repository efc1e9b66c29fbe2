package sales

import (
	"time"
)

// ============================================================================
// SALE
// ============================================================================

type SaleStatus string

const (
	SaleStatusCompleted         SaleStatus = "COMPLETED"
	SaleStatusVoided            SaleStatus = "VOIDED"
	SaleStatusRefunded          SaleStatus = "REFUNDED"
	SaleStatusPartiallyRefunded SaleStatus = "PARTIALLY_REFUNDED"
)

type Sale struct {
	ID            int64      `json:"id" db:"id"`
	SaleNumber    string     `json:"sale_number" db:"sale_number"`
	CustomerID    *int64     `json:"customer_id,omitempty" db:"customer_id"`
	CashierID     int64      `json:"cashier_id" db:"cashier_id"`
	Status        SaleStatus `json:"status" db:"status"`
	Subtotal      float64    `json:"subtotal" db:"subtotal"`
	TaxTotal      float64    `json:"tax_total" db:"tax_total"`
	DiscountTotal float64    `json:"discount_total" db:"discount_total"`
	Total         float64    `json:"total" db:"total"`
	Notes         *string    `json:"notes,omitempty" db:"notes"`
	CreatedAt     time.Time  `json:"created_at" db:"created_at"`
	Items         []SaleItem `json:"items,omitempty" db:"-"`
	Payments      []Payment  `json:"payments,omitempty" db:"-"`
	Refunds       []Refund   `json:"refunds,omitempty" db:"-"`
}

type SaleItem struct {
	ID        int64   `json:"id" db:"id"`
	SaleID    int64   `json:"sale_id" db:"sale_id"`
	ProductID int64   `json:"product_id" db:"product_id"`
	Barcode   string  `json:"barcode" db:"barcode"`
	Name      string  `json:"name" db:"name"`
	Quantity  int     `json:"quantity" db:"quantity"`
	UnitPrice float64 `json:"unit_price" db:"unit_price"`
	TaxRate   float64 `json:"tax_rate" db:"tax_rate"`
	TaxAmount float64 `json:"tax_amount" db:"tax_amount"`
	Subtotal  float64 `json:"subtotal" db:"subtotal"`
	LineTotal float64 `json:"line_total" db:"line_total"`
	LineOrder int     `json:"line_order" db:"line_order"`
}

type CreateSaleRequest struct {
	CustomerID    *int64            `json:"customer_id,omitempty" validate:"omitempty,gt=0"`
	Items         []SaleItemRequest `json:"items" validate:"required,min=1,dive"`
	Payments      []PaymentRequest  `json:"payments" validate:"required,min=1,dive"`
	DiscountTotal float64           `json:"discount_total" validate:"gte=0"`
	Subtotal      *float64          `json:"subtotal,omitempty"`
	TaxTotal      *float64          `json:"tax_total,omitempty"`
	Total         *float64          `json:"total,omitempty"`
	Notes         *string           `json:"notes,omitempty"`
}

type SaleItemRequest struct {
	ProductID int64    `json:"product_id,omitempty" validate:"omitempty,gt=0"`
	Barcode   string   `json:"barcode,omitempty" validate:"omitempty,numeric"`
	Quantity  int      `json:"quantity" validate:"required,gt=0"`
	UnitPrice *float64 `json:"unit_price,omitempty" validate:"omitempty,gte=0"`
}

type VoidSaleRequest struct {
	Reason string `json:"reason" validate:"required,max=500"`
}

// ============================================================================
// PAYMENT
// ============================================================================

type PaymentMethod string

const (
	PaymentMethodCash        PaymentMethod = "CASH"
	PaymentMethodCard        PaymentMethod = "CARD"
	PaymentMethodEFTPOS      PaymentMethod = "EFTPOS"
	PaymentMethodStoreCredit PaymentMethod = "STORE_CREDIT"
)

type Payment struct {
	ID            int64         `json:"id" db:"id"`
	SaleID        int64         `json:"sale_id" db:"sale_id"`
	Method        PaymentMethod `json:"method" db:"method"`
	Amount        float64       `json:"amount" db:"amount"`
	Reference     *string       `json:"reference,omitempty" db:"reference"`
	TransactionID *string       `json:"transaction_id,omitempty" db:"transaction_id"`
	CreatedAt     time.Time     `json:"created_at" db:"created_at"`
}

type PaymentRequest struct {
	Method    PaymentMethod `json:"method" validate:"required,oneof=CASH CARD EFTPOS STORE_CREDIT"`
	Amount    float64       `json:"amount" validate:"required,gt=0"`
	Reference *string       `json:"reference,omitempty" validate:"omitempty,max=100"`
}

// ============================================================================
// REFUND
// ============================================================================

type Refund struct {
	ID         int64         `json:"id" db:"id"`
	SaleID     int64         `json:"sale_id" db:"sale_id"`
	Method     PaymentMethod `json:"method" db:"method"`
	Total      float64       `json:"total" db:"total"`
	Reason     string        `json:"reason" db:"reason"`
	RefundedBy int64         `json:"refunded_by" db:"refunded_by"`
	RefundedAt time.Time     `json:"refunded_at" db:"refunded_at"`
	Items      []RefundItem  `json:"items,omitempty" db:"-"`
}

type RefundItem struct {
	ID        int64   `json:"id" db:"id"`
	RefundID  int64   `json:"refund_id" db:"refund_id"`
	ProductID int64   `json:"product_id" db:"product_id"`
	Quantity  int     `json:"quantity" db:"quantity"`
	UnitPrice float64 `json:"unit_price" db:"unit_price"`
	TaxAmount float64 `json:"tax_amount" db:"tax_amount"`
}

type RefundSaleRequest struct {
	Items  []RefundItemRequest `json:"items" validate:"required,min=1,dive"`
	Reason string              `json:"reason" validate:"required,max=500"`
	Method PaymentMethod       `json:"method" validate:"required,oneof=CASH CARD EFTPOS STORE_CREDIT"`
}

type RefundItemRequest struct {
	ProductID int64 `json:"product_id" validate:"required,gt=0"`
	Quantity  int   `json:"quantity" validate:"required,gt=0"`
}

// ============================================================================
// LISTING
// ============================================================================

type ListSalesRequest struct {
	From       *time.Time
	To         *time.Time
	Status     *SaleStatus
	CashierID  *int64
	CustomerID *int64
	Page       int
	PerPage    int
}

// ============================================================================
// TRANSACTIONAL VIEWS
// ============================================================================

// SaleProduct is the locked product snapshot used while building a sale.
type SaleProduct struct {
	ID           int64
	Barcode      string
	Name         string
	SellingPrice float64
	TaxRate      float64
	CurrentStock int
	IsActive     bool
}

// CustomerAccount is the locked loyalty snapshot updated on checkout.
type CustomerAccount struct {
	ID            int64
	TotalSpent    float64
	LoyaltyPoints int64
	Tier          string
}
