package products

import (
	"context"
	"errors"
	"fmt"

	"github.com/evergreen-pos/evergreen-pos/internal/catalog/shared"
)

// BarcodeValidator checks the format and check digit of a barcode.
type BarcodeValidator func(code string) error

// SupplierLink keeps the supplier's products_supplied array in step
// with product assignments.
type SupplierLink interface {
	AttachProduct(ctx context.Context, supplierID, productID int64) error
	DetachProduct(ctx context.Context, supplierID, productID int64) error
}

type Service struct {
	repo         Repository
	validateCode BarcodeValidator
	suppliers    SupplierLink
}

func NewService(repo Repository, validateCode BarcodeValidator, suppliers SupplierLink) *Service {
	return &Service{repo: repo, validateCode: validateCode, suppliers: suppliers}
}

func (s *Service) List(ctx context.Context, filters shared.ListFilters) ([]Product, int, error) {
	return s.repo.List(ctx, filters)
}

func (s *Service) Get(ctx context.Context, id int64) (Product, error) {
	if id <= 0 {
		return Product{}, shared.ErrInvalidID
	}
	return s.repo.Get(ctx, id)
}

func (s *Service) GetByBarcode(ctx context.Context, barcode string) (Product, error) {
	if barcode == "" {
		return Product{}, fmt.Errorf("%w: barcode is required", shared.ErrValidation)
	}
	return s.repo.GetByBarcode(ctx, barcode)
}

func (s *Service) Create(ctx context.Context, req CreateProductRequest) (Product, error) {
	product := Product{
		Barcode:        req.Barcode,
		Name:           req.Name,
		Description:    req.Description,
		Category:       shared.Category(req.Category),
		CostPrice:      req.CostPrice,
		SellingPrice:   req.SellingPrice,
		TaxRate:        req.TaxRate,
		MinimumStock:   req.MinimumStock,
		ScientificName: req.ScientificName,
		PotSize:        req.PotSize,
		CareLevel:      req.CareLevel,
		SupplierID:     req.SupplierID,
		IsActive:       true,
	}
	if err := s.validate(product); err != nil {
		return Product{}, err
	}
	if _, err := s.repo.GetByBarcode(ctx, product.Barcode); err == nil {
		return Product{}, fmt.Errorf("%w: barcode already in use", shared.ErrDuplicate)
	} else if !errors.Is(err, shared.ErrNotFound) {
		return Product{}, err
	}

	created, err := s.repo.Create(ctx, product)
	if err != nil {
		return Product{}, err
	}
	if created.SupplierID != nil && s.suppliers != nil {
		if err := s.suppliers.AttachProduct(ctx, *created.SupplierID, created.ID); err != nil {
			return Product{}, err
		}
	}
	return created, nil
}

func (s *Service) Update(ctx context.Context, id int64, req UpdateProductRequest) (Product, error) {
	if id <= 0 {
		return Product{}, shared.ErrInvalidID
	}
	existing, err := s.repo.Get(ctx, id)
	if err != nil {
		return Product{}, err
	}

	updated := existing
	updated.Barcode = req.Barcode
	updated.Name = req.Name
	updated.Description = req.Description
	updated.Category = shared.Category(req.Category)
	updated.CostPrice = req.CostPrice
	updated.SellingPrice = req.SellingPrice
	updated.TaxRate = req.TaxRate
	updated.MinimumStock = req.MinimumStock
	updated.ScientificName = req.ScientificName
	updated.PotSize = req.PotSize
	updated.CareLevel = req.CareLevel
	updated.SupplierID = req.SupplierID
	updated.IsActive = req.IsActive

	if err := s.validate(updated); err != nil {
		return Product{}, err
	}
	if updated.Barcode != existing.Barcode {
		if other, err := s.repo.GetByBarcode(ctx, updated.Barcode); err == nil && other.ID != id {
			return Product{}, fmt.Errorf("%w: barcode already in use", shared.ErrDuplicate)
		} else if err != nil && !errors.Is(err, shared.ErrNotFound) {
			return Product{}, err
		}
	}

	if err := s.repo.Update(ctx, id, updated); err != nil {
		return Product{}, err
	}
	if err := s.syncSupplierLink(ctx, existing.SupplierID, updated.SupplierID, id); err != nil {
		return Product{}, err
	}
	return s.repo.Get(ctx, id)
}

// Delete removes a product outright when it has no movement history,
// otherwise it deactivates the product so past sales keep resolving.
func (s *Service) Delete(ctx context.Context, id int64) (deactivated bool, err error) {
	if id <= 0 {
		return false, shared.ErrInvalidID
	}
	existing, err := s.repo.Get(ctx, id)
	if err != nil {
		return false, err
	}
	hasHistory, err := s.repo.HasMovements(ctx, id)
	if err != nil {
		return false, err
	}
	if hasHistory {
		return true, s.repo.SetActive(ctx, id, false)
	}
	if err := s.repo.Delete(ctx, id); err != nil {
		return false, err
	}
	if existing.SupplierID != nil && s.suppliers != nil {
		if err := s.suppliers.DetachProduct(ctx, *existing.SupplierID, id); err != nil {
			return false, err
		}
	}
	return false, nil
}

func (s *Service) syncSupplierLink(ctx context.Context, previous, next *int64, productID int64) error {
	if s.suppliers == nil {
		return nil
	}
	switch {
	case previous == nil && next == nil:
		return nil
	case previous != nil && next != nil && *previous == *next:
		return nil
	}
	if previous != nil {
		if err := s.suppliers.DetachProduct(ctx, *previous, productID); err != nil {
			return err
		}
	}
	if next != nil {
		if err := s.suppliers.AttachProduct(ctx, *next, productID); err != nil {
			return err
		}
	}
	return nil
}
