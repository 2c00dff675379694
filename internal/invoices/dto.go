package invoices

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// LineItemInput is a line item as supplied by a caller; TotalPrice is computed.
type LineItemInput struct {
	ServiceType ServiceType     `json:"serviceType" validate:"required,oneof=RESURFACING SANITIZING EDGE_REPAIR CONDITIONING KNIFE_SHARPENING PICKUP_DELIVERY"`
	Description string          `json:"description" validate:"max=500"`
	Quantity    int             `json:"quantity" validate:"gte=0"`
	UnitPrice   decimal.Decimal `json:"unitPrice" validate:"gte=0"`
}

// CreateInvoiceInput is the payload for Create.
type CreateInvoiceInput struct {
	CustomerID  uuid.UUID       `json:"customerId" validate:"required"`
	RegionID    uuid.UUID       `json:"regionId"`
	LineItems   []LineItemInput `json:"lineItems" validate:"required,min=1,dive"`
	InvoiceDate *time.Time      `json:"invoiceDate,omitempty"`
	DueDate     *time.Time      `json:"dueDate,omitempty"`
	Notes       *string         `json:"notes,omitempty" validate:"omitempty,max=2000"`
	Status      *Status         `json:"status,omitempty" validate:"omitempty,oneof=DRAFT SENT"`
}

// UpdateInvoiceInput changes only the supplied fields.
type UpdateInvoiceInput struct {
	CustomerID    *uuid.UUID      `json:"customerId,omitempty"`
	InvoiceDate   *time.Time      `json:"invoiceDate,omitempty"`
	DueDate       *time.Time      `json:"dueDate,omitempty"`
	PaidDate      *time.Time      `json:"paidDate,omitempty"`
	Status        *Status         `json:"status,omitempty" validate:"omitempty,oneof=DRAFT SENT PAID OVERDUE CANCELLED"`
	PaymentMethod *PaymentMethod  `json:"paymentMethod,omitempty" validate:"omitempty,oneof=CASH CHEQUE CREDIT_CARD DEBIT_CARD E_TRANSFER OTHER"`
	Notes         *string         `json:"notes,omitempty" validate:"omitempty,max=2000"`
	LineItems     []LineItemInput `json:"lineItems,omitempty" validate:"omitempty,min=1,dive"`
}

// MarkSentInput is the payload for MarkAsSent.
type MarkSentInput struct {
	EmailTo *string `json:"emailTo,omitempty" validate:"omitempty,email"`
}

// MarkPaidInput is the payload for MarkAsPaid.
type MarkPaidInput struct {
	PaymentMethod PaymentMethod `json:"paymentMethod" validate:"required,oneof=CASH CHEQUE CREDIT_CARD DEBIT_CARD E_TRANSFER OTHER"`
	PaidDate      *time.Time    `json:"paidDate,omitempty"`
}

// SortOrder selects the invoice date ordering of a listing.
type SortOrder string

const (
	SortNewestFirst SortOrder = "desc"
	SortOldestFirst SortOrder = "asc"
)

// ListInvoicesRequest filters and pages the invoice listing.
type ListInvoicesRequest struct {
	Status     *Status
	CustomerID *uuid.UUID
	RegionID   *uuid.UUID
	From       *time.Time
	To         *time.Time
	MinTotal   *decimal.Decimal
	MaxTotal   *decimal.Decimal
	Search     string
	Sort       SortOrder
	Limit      int
	Offset     int
}

// StatisticsFilter scopes Statistics. Nil fields match everything; the date
// range applies to invoice date and is inclusive of From, exclusive of To.
type StatisticsFilter struct {
	RegionID *uuid.UUID `json:"regionId,omitempty"`
	From     *time.Time `json:"from,omitempty"`
	To       *time.Time `json:"to,omitempty"`
}
