package suppliers

import (
	"time"
)

// Supplier represents a supplier entity
type Supplier struct {
	ID               int64     `json:"id"`
	Name             string    `json:"name"`
	ContactName      *string   `json:"contact_name,omitempty"`
	Email            string    `json:"email"`
	Phone            *string   `json:"phone,omitempty"`
	Address          *string   `json:"address,omitempty"`
	ProductsSupplied []int64   `json:"products_supplied"`
	IsActive         bool      `json:"is_active"`
	CreatedAt        time.Time `json:"created_at"`
	UpdatedAt        time.Time `json:"updated_at"`
}
