package suppliers

type SupplierForm struct {
	Name        string  `json:"name" validate:"required,max=255"`
	ContactName *string `json:"contact_name" validate:"omitempty,max=255"`
	Email       string  `json:"email" validate:"required,email"`
	Phone       *string `json:"phone" validate:"omitempty,max=32"`
	Address     *string `json:"address" validate:"omitempty,max=1000"`
	IsActive    bool    `json:"is_active"`
}
