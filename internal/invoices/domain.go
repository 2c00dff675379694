package invoices

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/boardworks/boardworks/internal/billing"
)

// ServiceType enumerates the billable services.
type ServiceType string

const (
	ServiceResurfacing     ServiceType = "RESURFACING"
	ServiceSanitizing      ServiceType = "SANITIZING"
	ServiceEdgeRepair      ServiceType = "EDGE_REPAIR"
	ServiceConditioning    ServiceType = "CONDITIONING"
	ServiceKnifeSharpening ServiceType = "KNIFE_SHARPENING"
	ServicePickupDelivery  ServiceType = "PICKUP_DELIVERY"
)

// ServiceTypes lists every service type in display order.
var ServiceTypes = []ServiceType{
	ServiceResurfacing,
	ServiceSanitizing,
	ServiceEdgeRepair,
	ServiceConditioning,
	ServiceKnifeSharpening,
	ServicePickupDelivery,
}

// Valid reports whether s is a known service type.
func (s ServiceType) Valid() bool {
	for _, known := range ServiceTypes {
		if s == known {
			return true
		}
	}
	return false
}

// PaymentMethod enumerates accepted payment methods.
type PaymentMethod string

const (
	PaymentCash       PaymentMethod = "CASH"
	PaymentCheque     PaymentMethod = "CHEQUE"
	PaymentCreditCard PaymentMethod = "CREDIT_CARD"
	PaymentDebitCard  PaymentMethod = "DEBIT_CARD"
	PaymentETransfer  PaymentMethod = "E_TRANSFER"
	PaymentOther      PaymentMethod = "OTHER"
)

// PaymentMethods lists every accepted payment method.
var PaymentMethods = []PaymentMethod{
	PaymentCash,
	PaymentCheque,
	PaymentCreditCard,
	PaymentDebitCard,
	PaymentETransfer,
	PaymentOther,
}

// Valid reports whether m is a known payment method.
func (m PaymentMethod) Valid() bool {
	for _, known := range PaymentMethods {
		if m == known {
			return true
		}
	}
	return false
}

// Status enumerates invoice statuses.
type Status string

const (
	StatusDraft     Status = "DRAFT"
	StatusSent      Status = "SENT"
	StatusPaid      Status = "PAID"
	StatusOverdue   Status = "OVERDUE"
	StatusCancelled Status = "CANCELLED"
)

var transitions = map[Status][]Status{
	StatusDraft:     {StatusSent, StatusPaid, StatusOverdue, StatusCancelled},
	StatusSent:      {StatusPaid, StatusOverdue, StatusCancelled},
	StatusOverdue:   {StatusPaid},
	StatusPaid:      nil,
	StatusCancelled: nil,
}

// Valid reports whether s is a known status.
func (s Status) Valid() bool {
	_, ok := transitions[s]
	return ok
}

// Terminal reports whether no transition leaves s.
func (s Status) Terminal() bool {
	return s == StatusPaid || s == StatusCancelled
}

// CanTransitionTo reports whether moving from s to next is allowed.
func (s Status) CanTransitionTo(next Status) bool {
	for _, allowed := range transitions[s] {
		if allowed == next {
			return true
		}
	}
	return false
}

// LineItem is one billable entry on an invoice. TotalPrice is always derived
// from Quantity and UnitPrice.
type LineItem struct {
	ID          uuid.UUID       `json:"id"`
	ServiceType ServiceType     `json:"serviceType"`
	Description string          `json:"description"`
	Quantity    int             `json:"quantity"`
	UnitPrice   decimal.Decimal `json:"unitPrice"`
	TotalPrice  decimal.Decimal `json:"totalPrice"`
}

// Invoice is a priced, numbered bill for one customer.
type Invoice struct {
	ID               uuid.UUID       `json:"id"`
	InvoiceNumber    int64           `json:"invoiceNumber"`
	DisplayNumber    string          `json:"displayNumber"`
	RegionID         uuid.UUID       `json:"regionId"`
	CustomerID       uuid.UUID       `json:"customerId"`
	CustomerName     string          `json:"customerName,omitempty"`
	InvoiceDate      time.Time       `json:"invoiceDate"`
	DueDate          time.Time       `json:"dueDate"`
	PaidDate         *time.Time      `json:"paidDate,omitempty"`
	SentAt           *time.Time      `json:"sentAt,omitempty"`
	SentTo           *string         `json:"sentTo,omitempty"`
	Status           Status          `json:"status"`
	LineItems        []LineItem      `json:"lineItems"`
	Subtotal         decimal.Decimal `json:"subtotal"`
	GSTRate          decimal.Decimal `json:"gstRate"`
	PSTRate          decimal.Decimal `json:"pstRate"`
	GSTAmount        decimal.Decimal `json:"gstAmount"`
	PSTAmount        decimal.Decimal `json:"pstAmount"`
	Total            decimal.Decimal `json:"total"`
	PaymentTermsDays int             `json:"paymentTermsDays"`
	PaymentMethod    *PaymentMethod  `json:"paymentMethod,omitempty"`
	Notes            *string         `json:"notes,omitempty"`
	CreatedAt        time.Time       `json:"createdAt"`
	UpdatedAt        time.Time       `json:"updatedAt"`
}

// DaysOverdue reports how many days past due an unpaid invoice is at now.
func (inv *Invoice) DaysOverdue(now time.Time) int {
	if inv.Status != StatusSent && inv.Status != StatusOverdue {
		return 0
	}
	return billing.DaysOverdue(inv.DueDate, now)
}

// Sequence is the per-region invoice counter.
type Sequence struct {
	RegionID   uuid.UUID
	LastNumber int64
	Prefix     string
	Suffix     string
}

// Display formats n with the sequence's prefix and suffix.
func (s Sequence) Display(n int64) string {
	return billing.FormatInvoiceNumber(n, s.Prefix, s.Suffix)
}

// FirstInvoiceNumber is returned by the first allocation in a region.
const FirstInvoiceNumber int64 = 10001

// Summary aggregates invoices for reporting.
type Summary struct {
	TotalInvoices       int                             `json:"totalInvoices"`
	PaidInvoices        int                             `json:"paidInvoices"`
	UnpaidInvoices      int                             `json:"unpaidInvoices"`
	OverdueInvoices     int                             `json:"overdueInvoices"`
	TotalRevenue        decimal.Decimal                 `json:"totalRevenue"`
	AverageInvoiceValue decimal.Decimal                 `json:"averageInvoiceValue"`
	RevenueByService    map[ServiceType]decimal.Decimal `json:"revenueByService"`
	RevenueByMonth      map[string]decimal.Decimal      `json:"revenueByMonth"`
}
