package shared

import (
	"fmt"

	"github.com/evergreen-pos/evergreen-pos/internal/platform/httpx"
)

var (
	ErrNotFound      = fmt.Errorf("%w: catalog record", httpx.ErrNotFound)
	ErrDuplicate     = fmt.Errorf("%w: duplicate entry", httpx.ErrConflict)
	ErrValidation    = httpx.ErrValidation
	ErrInvalidID     = fmt.Errorf("%w: invalid id", httpx.ErrValidation)
	ErrHasDependents = fmt.Errorf("%w: record has dependent rows", httpx.ErrInvalidState)
)
