package invoices

import (
	"fmt"

	"github.com/boardworks/boardworks/internal/platform/httpx"
)

var (
	ErrCustomerNotFound         = fmt.Errorf("customer not found: %w", httpx.ErrNotFound)
	ErrInvoiceNotFound          = fmt.Errorf("invoice not found: %w", httpx.ErrNotFound)
	ErrInvalidOperation         = fmt.Errorf("invalid invoice operation: %w", httpx.ErrConflict)
	ErrConfigurationUnavailable = fmt.Errorf("invoice configuration unavailable: %w", httpx.ErrUnavailable)
	ErrInvalidInput             = fmt.Errorf("invalid invoice input: %w", httpx.ErrValidation)
)
