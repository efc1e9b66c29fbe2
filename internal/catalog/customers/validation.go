package customers

import (
	"fmt"
	"strings"

	"github.com/evergreen-pos/evergreen-pos/internal/catalog/shared"
)

func (s *Service) validate(form CustomerForm) error {
	if strings.TrimSpace(form.FirstName) == "" {
		return fmt.Errorf("%w: first name is required", shared.ErrValidation)
	}
	if strings.TrimSpace(form.LastName) == "" {
		return fmt.Errorf("%w: last name is required", shared.ErrValidation)
	}
	if strings.TrimSpace(form.Email) == "" {
		return fmt.Errorf("%w: email is required", shared.ErrValidation)
	}
	return nil
}
