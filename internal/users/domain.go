package users

import "time"

// User represents a staff account for management.
type User struct {
	ID        int64     `json:"id"`
	Email     string    `json:"email"`
	Name      string    `json:"name"`
	Role      string    `json:"role"`
	IsActive  bool      `json:"is_active"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// CreateUserRequest carries input for a new staff account.
type CreateUserRequest struct {
	Email    string `json:"email" validate:"required,email"`
	Name     string `json:"name" validate:"required,min=1,max=100"`
	Role     string `json:"role" validate:"required,oneof=cashier manager admin"`
	Password string `json:"password" validate:"required,min=8"`
}

// UpdateUserRequest carries editable account fields.
type UpdateUserRequest struct {
	Name     string `json:"name" validate:"required,min=1,max=100"`
	Role     string `json:"role" validate:"required,oneof=cashier manager admin"`
	IsActive bool   `json:"is_active"`
}

// ResetPasswordRequest carries a replacement password.
type ResetPasswordRequest struct {
	Password string `json:"password" validate:"required,min=8"`
}
