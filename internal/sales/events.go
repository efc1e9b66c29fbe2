package sales

import (
	"context"
	"time"
)

// SaleEvent describes a sale lifecycle change for downstream listeners
// (dashboard cache invalidation, report snapshot refresh).
type SaleEvent struct {
	SaleID     int64      `json:"sale_id"`
	SaleNumber string     `json:"sale_number"`
	Status     SaleStatus `json:"status"`
	Total      float64    `json:"total"`
	OccurredAt time.Time  `json:"occurred_at"`
}

// IntegrationHandler receives sale lifecycle events after the enclosing
// transaction commits.
type IntegrationHandler interface {
	HandleSaleRecorded(ctx context.Context, evt SaleEvent) error
}
