package settings

import (
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/boardworks/boardworks/internal/platform/httpx"
)

// Category names a settings document.
type Category string

const (
	CategoryTaxRates       Category = "tax_rates"
	CategoryPaymentTerms   Category = "payment_terms"
	CategoryCompanyInfo    Category = "company_info"
	CategoryServicePricing Category = "service_pricing"
)

// Valid reports whether c is a known category.
func (c Category) Valid() bool {
	switch c {
	case CategoryTaxRates, CategoryPaymentTerms, CategoryCompanyInfo, CategoryServicePricing:
		return true
	}
	return false
}

// GlobalRegion is the scope consulted when a region has no override.
var GlobalRegion = uuid.Nil

var (
	// ErrNotFound is returned by a Store when no document exists for the scope.
	ErrNotFound = fmt.Errorf("setting not found: %w", httpx.ErrNotFound)
	// ErrUnknownCategory rejects categories outside the typed set.
	ErrUnknownCategory = fmt.Errorf("unknown settings category: %w", httpx.ErrValidation)
	// ErrInvalidValue rejects documents that fail their range checks.
	ErrInvalidValue = fmt.Errorf("invalid settings value: %w", httpx.ErrValidation)
)

// Built-in values used when neither the region nor the global scope has a row.
var (
	DefaultGSTRate          = decimal.RequireFromString("0.05")
	DefaultPSTRate          = decimal.RequireFromString("0.07")
	DefaultPaymentTermsDays = 30
)

// RatePlaces is the precision invoices store frozen tax rates at.
const RatePlaces = 6

// TaxRates are fractional rates, 0.05 meaning 5%.
type TaxRates struct {
	GST decimal.Decimal `json:"gst"`
	PST decimal.Decimal `json:"pst"`
}

// Validate keeps both rates within [0, 1] and at most RatePlaces decimals.
func (t TaxRates) Validate() error {
	for name, rate := range map[string]decimal.Decimal{"gst": t.GST, "pst": t.PST} {
		if rate.IsNegative() || rate.GreaterThan(decimal.NewFromInt(1)) {
			return fmt.Errorf("%w: %s rate %s outside [0, 1]", ErrInvalidValue, name, rate)
		}
		if !rate.Equal(rate.Round(RatePlaces)) {
			return fmt.Errorf("%w: %s rate %s has more than %d decimal places", ErrInvalidValue, name, rate, RatePlaces)
		}
	}
	return nil
}

// PaymentTerms is the number of days between invoice date and due date.
type PaymentTerms struct {
	Days int `json:"days"`
}

// Validate keeps terms within a year.
func (p PaymentTerms) Validate() error {
	if p.Days < 0 || p.Days > 365 {
		return fmt.Errorf("%w: payment terms %d days outside [0, 365]", ErrInvalidValue, p.Days)
	}
	return nil
}

// CompanyInfo is printed on invoice documents.
type CompanyInfo struct {
	Name      string `json:"name"`
	Address   string `json:"address"`
	Phone     string `json:"phone"`
	Email     string `json:"email"`
	GSTNumber string `json:"gstNumber"`
}

// Validate requires a company name.
func (c CompanyInfo) Validate() error {
	if c.Name == "" {
		return fmt.Errorf("%w: company name required", ErrInvalidValue)
	}
	return nil
}

// ServicePricing suggests a default unit price per service type.
type ServicePricing struct {
	Prices map[string]decimal.Decimal `json:"prices"`
}

// Validate rejects negative prices.
func (s ServicePricing) Validate() error {
	for service, price := range s.Prices {
		if price.IsNegative() {
			return fmt.Errorf("%w: price for %s is negative", ErrInvalidValue, service)
		}
	}
	return nil
}

// Document is a stored settings row.
type Document struct {
	RegionID  uuid.UUID       `json:"regionId"`
	Category  Category        `json:"category"`
	Value     json.RawMessage `json:"value"`
	UpdatedAt time.Time       `json:"updatedAt"`
}

type validatable interface {
	Validate() error
}

// decodeValue unmarshals raw into the typed value for category and validates it.
func decodeValue(category Category, raw json.RawMessage) (validatable, error) {
	var target validatable
	switch category {
	case CategoryTaxRates:
		target = &TaxRates{}
	case CategoryPaymentTerms:
		target = &PaymentTerms{}
	case CategoryCompanyInfo:
		target = &CompanyInfo{}
	case CategoryServicePricing:
		target = &ServicePricing{}
	default:
		return nil, ErrUnknownCategory
	}
	if err := json.Unmarshal(raw, target); err != nil {
		return nil, errors.Join(ErrInvalidValue, err)
	}
	if err := target.Validate(); err != nil {
		return nil, err
	}
	return target, nil
}
