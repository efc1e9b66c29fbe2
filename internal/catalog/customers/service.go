package customers

import (
	"context"
	"fmt"
	"math"

	"github.com/evergreen-pos/evergreen-pos/internal/catalog/shared"
)

// Service implements customer business logic.
type Service struct {
	repo Repository
}

// NewService creates a customer service.
func NewService(repo Repository) *Service {
	return &Service{repo: repo}
}

// List returns customers matching the filters.
func (s *Service) List(ctx context.Context, filters shared.ListFilters) ([]Customer, int, error) {
	if filters.Page < 1 {
		filters.Page = shared.DefaultPage
	}
	if filters.Limit < 1 {
		filters.Limit = shared.DefaultLimit
	}
	return s.repo.List(ctx, filters)
}

// Get returns a single customer by ID.
func (s *Service) Get(ctx context.Context, id int64) (Customer, error) {
	if id < 1 {
		return Customer{}, shared.ErrInvalidID
	}
	return s.repo.Get(ctx, id)
}

// Create registers a new customer. New customers start on the
// STANDARD tier with zero spend and zero points.
func (s *Service) Create(ctx context.Context, form CustomerForm) (Customer, error) {
	if err := s.validate(form); err != nil {
		return Customer{}, err
	}

	customer := Customer{
		FirstName:     form.FirstName,
		LastName:      form.LastName,
		Email:         form.Email,
		Phone:         form.Phone,
		Address:       form.Address,
		TotalSpent:    0,
		LoyaltyPoints: 0,
		Tier:          TierStandard,
		IsActive:      true,
	}
	if form.IsActive != nil {
		customer.IsActive = *form.IsActive
	}
	return s.repo.Create(ctx, customer)
}

// Update modifies customer contact details. Spend, points and tier are
// maintained by the sales flow and cannot be edited here.
func (s *Service) Update(ctx context.Context, id int64, form CustomerForm) (Customer, error) {
	if id < 1 {
		return Customer{}, shared.ErrInvalidID
	}
	if err := s.validate(form); err != nil {
		return Customer{}, err
	}

	existing, err := s.repo.Get(ctx, id)
	if err != nil {
		return Customer{}, err
	}

	existing.FirstName = form.FirstName
	existing.LastName = form.LastName
	existing.Email = form.Email
	existing.Phone = form.Phone
	existing.Address = form.Address
	if form.IsActive != nil {
		existing.IsActive = *form.IsActive
	}
	return s.repo.Update(ctx, existing)
}

// Delete removes a customer. Customers with recorded sales keep their
// purchase history and are deactivated instead.
func (s *Service) Delete(ctx context.Context, id int64) (deactivated bool, err error) {
	if id < 1 {
		return false, shared.ErrInvalidID
	}
	existing, err := s.repo.Get(ctx, id)
	if err != nil {
		return false, err
	}

	hasSales, err := s.repo.HasSales(ctx, id)
	if err != nil {
		return false, err
	}
	if hasSales {
		existing.IsActive = false
		if _, err := s.repo.Update(ctx, existing); err != nil {
			return false, fmt.Errorf("deactivate customer: %w", err)
		}
		return true, nil
	}

	return false, s.repo.Delete(ctx, id)
}

// PointsForSale converts a sale total to loyalty points: one point per
// whole currency unit spent.
func PointsForSale(total float64) int64 {
	if total <= 0 {
		return 0
	}
	return int64(math.Floor(total))
}
