package suppliers

import (
	"context"
	"fmt"

	"github.com/evergreen-pos/evergreen-pos/internal/catalog/shared"
)

type Service struct {
	repo Repository
}

func NewService(repo Repository) *Service {
	return &Service{repo: repo}
}

func (s *Service) List(ctx context.Context, filters shared.ListFilters) ([]Supplier, int, error) {
	return s.repo.List(ctx, filters)
}

func (s *Service) Get(ctx context.Context, id int64) (Supplier, error) {
	if id <= 0 {
		return Supplier{}, shared.ErrInvalidID
	}
	return s.repo.Get(ctx, id)
}

func (s *Service) Create(ctx context.Context, form SupplierForm) (Supplier, error) {
	supplier := Supplier{
		Name:        form.Name,
		ContactName: form.ContactName,
		Email:       form.Email,
		Phone:       form.Phone,
		Address:     form.Address,
		IsActive:    true,
	}
	if err := s.validate(supplier); err != nil {
		return Supplier{}, err
	}
	return s.repo.Create(ctx, supplier)
}

func (s *Service) Update(ctx context.Context, id int64, form SupplierForm) (Supplier, error) {
	if id <= 0 {
		return Supplier{}, shared.ErrInvalidID
	}
	existing, err := s.repo.Get(ctx, id)
	if err != nil {
		return Supplier{}, err
	}
	existing.Name = form.Name
	existing.ContactName = form.ContactName
	existing.Email = form.Email
	existing.Phone = form.Phone
	existing.Address = form.Address
	existing.IsActive = form.IsActive
	if err := s.validate(existing); err != nil {
		return Supplier{}, err
	}
	if err := s.repo.Update(ctx, id, existing); err != nil {
		return Supplier{}, err
	}
	return s.repo.Get(ctx, id)
}

// Delete refuses to remove suppliers that still source products.
func (s *Service) Delete(ctx context.Context, id int64) error {
	if id <= 0 {
		return shared.ErrInvalidID
	}
	supplier, err := s.repo.Get(ctx, id)
	if err != nil {
		return err
	}
	hasProducts, err := s.repo.HasProducts(ctx, id)
	if err != nil {
		return err
	}
	if hasProducts || len(supplier.ProductsSupplied) > 0 {
		return fmt.Errorf("%w: supplier still sources products", shared.ErrHasDependents)
	}
	return s.repo.Delete(ctx, id)
}
