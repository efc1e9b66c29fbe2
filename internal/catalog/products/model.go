package products

import (
	"time"

	"github.com/evergreen-pos/evergreen-pos/internal/catalog/shared"
)

// Product represents a nursery product entity
type Product struct {
	ID             int64           `json:"id"`
	Barcode        string          `json:"barcode"`
	Name           string          `json:"name"`
	Description    *string         `json:"description,omitempty"`
	Category       shared.Category `json:"category"`
	CostPrice      float64         `json:"cost_price"`
	SellingPrice   float64         `json:"selling_price"`
	TaxRate        float64         `json:"tax_rate"`
	CurrentStock   int             `json:"current_stock"`
	MinimumStock   int             `json:"minimum_stock"`
	ScientificName *string         `json:"scientific_name,omitempty"`
	PotSize        *string         `json:"pot_size,omitempty"`
	CareLevel      *string         `json:"care_level,omitempty"`
	SupplierID     *int64          `json:"supplier_id,omitempty"`
	IsActive       bool            `json:"is_active"`
	CreatedAt      time.Time       `json:"created_at"`
	UpdatedAt      time.Time       `json:"updated_at"`
}

// LowOnStock reports whether the product sits at or below its minimum level.
func (p Product) LowOnStock() bool {
	return p.CurrentStock <= p.MinimumStock
}
