package settings

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"

	"github.com/google/uuid"
)

// Service resolves typed settings with region override and global fallback.
type Service struct {
	store  Store
	logger *slog.Logger
}

// NewService builds Service instance.
func NewService(store Store, logger *slog.Logger) *Service {
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{store: store, logger: logger}
}

// resolve loads the document for regionID, then the global scope, then returns
// def. A store failure is returned as-is and never replaced by def.
func resolve[T any](ctx context.Context, s *Service, regionID uuid.UUID, category Category, def T) (T, error) {
	scopes := []uuid.UUID{regionID}
	if regionID != GlobalRegion {
		scopes = append(scopes, GlobalRegion)
	}
	for _, scope := range scopes {
		doc, err := s.store.Get(ctx, scope, category)
		if errors.Is(err, ErrNotFound) {
			continue
		}
		if err != nil {
			return def, fmt.Errorf("load %s for region %s: %w", category, scope, err)
		}
		var value T
		if err := json.Unmarshal(doc.Value, &value); err != nil {
			return def, fmt.Errorf("decode %s for region %s: %w", category, scope, err)
		}
		return value, nil
	}
	return def, nil
}

// TaxRates returns the effective GST and PST rates for regionID.
func (s *Service) TaxRates(ctx context.Context, regionID uuid.UUID) (TaxRates, error) {
	return resolve(ctx, s, regionID, CategoryTaxRates, TaxRates{GST: DefaultGSTRate, PST: DefaultPSTRate})
}

// PaymentTermsDays returns the effective payment terms for regionID.
func (s *Service) PaymentTermsDays(ctx context.Context, regionID uuid.UUID) (int, error) {
	terms, err := resolve(ctx, s, regionID, CategoryPaymentTerms, PaymentTerms{Days: DefaultPaymentTermsDays})
	if err != nil {
		return 0, err
	}
	return terms.Days, nil
}

// CompanyInfo returns the letterhead for regionID. Missing everywhere yields a
// zero value.
func (s *Service) CompanyInfo(ctx context.Context, regionID uuid.UUID) (CompanyInfo, error) {
	return resolve(ctx, s, regionID, CategoryCompanyInfo, CompanyInfo{})
}

// ServicePricing returns suggested unit prices for regionID.
func (s *Service) ServicePricing(ctx context.Context, regionID uuid.UUID) (ServicePricing, error) {
	return resolve(ctx, s, regionID, CategoryServicePricing, ServicePricing{})
}

// Effective returns the resolved value of every category for regionID.
func (s *Service) Effective(ctx context.Context, regionID uuid.UUID) (map[Category]any, error) {
	rates, err := s.TaxRates(ctx, regionID)
	if err != nil {
		return nil, err
	}
	terms, err := s.PaymentTermsDays(ctx, regionID)
	if err != nil {
		return nil, err
	}
	company, err := s.CompanyInfo(ctx, regionID)
	if err != nil {
		return nil, err
	}
	pricing, err := s.ServicePricing(ctx, regionID)
	if err != nil {
		return nil, err
	}
	return map[Category]any{
		CategoryTaxRates:       rates,
		CategoryPaymentTerms:   PaymentTerms{Days: terms},
		CategoryCompanyInfo:    company,
		CategoryServicePricing: pricing,
	}, nil
}

// Get returns the stored document for exactly regionID without fallback.
func (s *Service) Get(ctx context.Context, regionID uuid.UUID, category Category) (*Document, error) {
	if !category.Valid() {
		return nil, ErrUnknownCategory
	}
	return s.store.Get(ctx, regionID, category)
}

// List returns the documents stored for exactly regionID.
func (s *Service) List(ctx context.Context, regionID uuid.UUID) ([]Document, error) {
	return s.store.List(ctx, regionID)
}

// Put validates and stores a settings document. Invoices already issued keep the
// rates they were created with.
func (s *Service) Put(ctx context.Context, regionID uuid.UUID, category Category, raw json.RawMessage) (*Document, error) {
	if !category.Valid() {
		return nil, ErrUnknownCategory
	}
	value, err := decodeValue(category, raw)
	if err != nil {
		return nil, err
	}
	normalised, err := json.Marshal(value)
	if err != nil {
		return nil, fmt.Errorf("encode %s: %w", category, err)
	}
	doc, err := s.store.Put(ctx, regionID, category, normalised)
	if err != nil {
		return nil, err
	}
	s.logger.Info("settings updated",
		slog.String("region_id", regionID.String()),
		slog.String("category", string(category)),
	)
	return doc, nil
}

// Reset removes a region override so the global value applies again.
func (s *Service) Reset(ctx context.Context, regionID uuid.UUID, category Category) error {
	if !category.Valid() {
		return ErrUnknownCategory
	}
	return s.store.Delete(ctx, regionID, category)
}
