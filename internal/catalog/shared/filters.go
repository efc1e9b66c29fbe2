package shared

// ListFilters represents standard list filters
type ListFilters struct {
	Page    int
	Limit   int
	Search  string
	SortBy  string
	SortDir string

	IsActive *bool

	// Entity specific filters
	Category   *Category
	SupplierID *int64
	Tier       *string
	LowStock   bool
}
