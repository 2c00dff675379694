package customers

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/boardworks/boardworks/internal/platform/httpx"
)

// RepositoryPort defines data access methods for customers.
type RepositoryPort interface {
	Get(ctx context.Context, id uuid.UUID) (*Customer, error)
	List(ctx context.Context, req ListCustomersRequest) ([]Customer, int, error)
	Create(ctx context.Context, c Customer) error
	Update(ctx context.Context, c Customer) error
	SoftDelete(ctx context.Context, id uuid.UUID) error
}

// Service handles customer business logic.
type Service struct {
	repo  RepositoryPort
	clock func() time.Time
}

// NewService builds Service instance.
func NewService(repo RepositoryPort) *Service {
	return &Service{repo: repo, clock: time.Now}
}

// Create registers a new customer.
func (s *Service) Create(ctx context.Context, req CreateCustomerRequest) (*Customer, error) {
	name := strings.TrimSpace(req.Name)
	if name == "" {
		return nil, fmt.Errorf("%w: customer name required", httpx.ErrValidation)
	}
	now := s.clock().UTC()
	c := Customer{
		ID:        uuid.New(),
		RegionID:  req.RegionID,
		Name:      name,
		Email:     req.Email,
		Phone:     req.Phone,
		Address:   req.Address,
		Notes:     req.Notes,
		CreatedAt: now,
		UpdatedAt: now,
	}
	if err := s.repo.Create(ctx, c); err != nil {
		return nil, fmt.Errorf("create customer: %w", err)
	}
	return &c, nil
}

// Get resolves a live customer by id.
func (s *Service) Get(ctx context.Context, id uuid.UUID) (*Customer, error) {
	return s.repo.Get(ctx, id)
}

// Exists reports whether id resolves to a live customer.
func (s *Service) Exists(ctx context.Context, id uuid.UUID) (bool, error) {
	_, err := s.repo.Get(ctx, id)
	if err == nil {
		return true, nil
	}
	if errors.Is(err, ErrNotFound) {
		return false, nil
	}
	return false, err
}

// List returns a page of customers.
func (s *Service) List(ctx context.Context, req ListCustomersRequest) ([]Customer, int, error) {
	if req.Limit <= 0 || req.Limit > 200 {
		req.Limit = 50
	}
	if req.Offset < 0 {
		req.Offset = 0
	}
	return s.repo.List(ctx, req)
}

// Update applies the supplied fields.
func (s *Service) Update(ctx context.Context, id uuid.UUID, req UpdateCustomerRequest) (*Customer, error) {
	existing, err := s.repo.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	changed := false
	if req.Name != nil {
		name := strings.TrimSpace(*req.Name)
		if name == "" {
			return nil, fmt.Errorf("%w: customer name required", httpx.ErrValidation)
		}
		existing.Name = name
		changed = true
	}
	if req.Email != nil {
		existing.Email = req.Email
		changed = true
	}
	if req.Phone != nil {
		existing.Phone = req.Phone
		changed = true
	}
	if req.Address != nil {
		existing.Address = req.Address
		changed = true
	}
	if req.Notes != nil {
		existing.Notes = req.Notes
		changed = true
	}
	if !changed {
		return existing, nil
	}
	existing.UpdatedAt = s.clock().UTC()
	if err := s.repo.Update(ctx, *existing); err != nil {
		return nil, err
	}
	return existing, nil
}

// Delete soft-deletes the customer; existing invoices keep their reference.
func (s *Service) Delete(ctx context.Context, id uuid.UUID) error {
	return s.repo.SoftDelete(ctx, id)
}
