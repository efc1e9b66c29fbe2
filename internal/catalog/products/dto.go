package products

type CreateProductRequest struct {
	Barcode        string  `json:"barcode" validate:"required,numeric,len=11"`
	Name           string  `json:"name" validate:"required,max=255"`
	Description    *string `json:"description" validate:"omitempty,max=2000"`
	Category       string  `json:"category" validate:"required"`
	CostPrice      float64 `json:"cost_price" validate:"gte=0"`
	SellingPrice   float64 `json:"selling_price" validate:"gte=0"`
	TaxRate        float64 `json:"tax_rate" validate:"gte=0,lte=100"`
	MinimumStock   int     `json:"minimum_stock" validate:"gte=0"`
	ScientificName *string `json:"scientific_name" validate:"omitempty,max=255"`
	PotSize        *string `json:"pot_size" validate:"omitempty,max=32"`
	CareLevel      *string `json:"care_level" validate:"omitempty,oneof=EASY MODERATE EXPERT"`
	SupplierID     *int64  `json:"supplier_id" validate:"omitempty,gt=0"`
}

type UpdateProductRequest struct {
	Barcode        string  `json:"barcode" validate:"required,numeric,len=11"`
	Name           string  `json:"name" validate:"required,max=255"`
	Description    *string `json:"description" validate:"omitempty,max=2000"`
	Category       string  `json:"category" validate:"required"`
	CostPrice      float64 `json:"cost_price" validate:"gte=0"`
	SellingPrice   float64 `json:"selling_price" validate:"gte=0"`
	TaxRate        float64 `json:"tax_rate" validate:"gte=0,lte=100"`
	MinimumStock   int     `json:"minimum_stock" validate:"gte=0"`
	ScientificName *string `json:"scientific_name" validate:"omitempty,max=255"`
	PotSize        *string `json:"pot_size" validate:"omitempty,max=32"`
	CareLevel      *string `json:"care_level" validate:"omitempty,oneof=EASY MODERATE EXPERT"`
	SupplierID     *int64  `json:"supplier_id" validate:"omitempty,gt=0"`
	IsActive       bool    `json:"is_active"`
}

type UpdateStockRequest struct {
	CountedQuantity int    `json:"counted_quantity" validate:"gte=0"`
	Reference       string `json:"reference" validate:"omitempty,max=255"`
}
