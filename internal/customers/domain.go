package customers

import (
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/boardworks/boardworks/internal/platform/httpx"
)

// ErrNotFound is returned for unknown or soft-deleted customers.
var ErrNotFound = fmt.Errorf("customer not found: %w", httpx.ErrNotFound)

// Customer is a client of a franchise region.
type Customer struct {
	ID        uuid.UUID  `json:"id"`
	RegionID  uuid.UUID  `json:"regionId"`
	Name      string     `json:"name"`
	Email     *string    `json:"email,omitempty"`
	Phone     *string    `json:"phone,omitempty"`
	Address   *string    `json:"address,omitempty"`
	Notes     *string    `json:"notes,omitempty"`
	CreatedAt time.Time  `json:"createdAt"`
	UpdatedAt time.Time  `json:"updatedAt"`
	DeletedAt *time.Time `json:"deletedAt,omitempty"`
}

// CreateCustomerRequest is the payload for creating a customer.
type CreateCustomerRequest struct {
	RegionID uuid.UUID `json:"regionId"`
	Name     string    `json:"name" validate:"required,max=200"`
	Email    *string   `json:"email,omitempty" validate:"omitempty,email"`
	Phone    *string   `json:"phone,omitempty" validate:"omitempty,max=50"`
	Address  *string   `json:"address,omitempty" validate:"omitempty,max=500"`
	Notes    *string   `json:"notes,omitempty"`
}

// UpdateCustomerRequest changes only the supplied fields.
type UpdateCustomerRequest struct {
	Name    *string `json:"name,omitempty" validate:"omitempty,min=1,max=200"`
	Email   *string `json:"email,omitempty" validate:"omitempty,email"`
	Phone   *string `json:"phone,omitempty" validate:"omitempty,max=50"`
	Address *string `json:"address,omitempty" validate:"omitempty,max=500"`
	Notes   *string `json:"notes,omitempty"`
}

// ListCustomersRequest filters the customer listing.
type ListCustomersRequest struct {
	RegionID *uuid.UUID
	Search   string
	Limit    int
	Offset   int
}
