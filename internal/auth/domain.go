package auth

import "time"

// User represents an authenticated staff account.
type User struct {
	ID           int64
	Email        string
	Name         string
	PasswordHash string
	Role         string
	IsActive     bool
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

// Staff roles. Cashiers ring up sales; managers additionally maintain
// the catalog and record stock movements; admins manage users.
const (
	RoleCashier = "cashier"
	RoleManager = "manager"
	RoleAdmin   = "admin"
)
