package products

import (
	"fmt"
	"strings"

	"github.com/evergreen-pos/evergreen-pos/internal/catalog/shared"
)

func (s *Service) validate(p Product) error {
	if strings.TrimSpace(p.Name) == "" {
		return fmt.Errorf("%w: product name is required", shared.ErrValidation)
	}
	if !p.Category.Valid() {
		return fmt.Errorf("%w: unknown category %q", shared.ErrValidation, p.Category)
	}
	if p.CostPrice < 0 || p.SellingPrice < 0 {
		return fmt.Errorf("%w: prices cannot be negative", shared.ErrValidation)
	}
	if p.TaxRate < 0 || p.TaxRate > 100 {
		return fmt.Errorf("%w: tax rate must be between 0 and 100", shared.ErrValidation)
	}
	if p.MinimumStock < 0 {
		return fmt.Errorf("%w: minimum stock cannot be negative", shared.ErrValidation)
	}
	if s.validateCode != nil {
		if err := s.validateCode(p.Barcode); err != nil {
			return err
		}
	}
	return nil
}
