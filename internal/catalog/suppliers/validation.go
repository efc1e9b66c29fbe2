package suppliers

import (
	"fmt"
	"strings"

	"github.com/evergreen-pos/evergreen-pos/internal/catalog/shared"
)

func (s *Service) validate(supplier Supplier) error {
	if strings.TrimSpace(supplier.Name) == "" {
		return fmt.Errorf("%w: supplier name is required", shared.ErrValidation)
	}
	if strings.TrimSpace(supplier.Email) == "" {
		return fmt.Errorf("%w: supplier email is required", shared.ErrValidation)
	}
	return nil
}
