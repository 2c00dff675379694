package invoices

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func paidInvoice(total string, date time.Time, items ...LineItem) Invoice {
	return Invoice{Status: StatusPaid, Total: dec(total), InvoiceDate: date, LineItems: items}
}

func TestSummarizeAveragesOverAllInvoices(t *testing.T) {
	jan := time.Date(2024, 1, 10, 0, 0, 0, 0, time.UTC)
	feb := time.Date(2024, 2, 3, 0, 0, 0, 0, time.UTC)
	list := []Invoice{
		paidInvoice("100.00", jan),
		paidInvoice("200.00", jan),
		paidInvoice("300.00", feb),
		{Status: StatusDraft, Total: dec("50.00"), InvoiceDate: feb},
	}

	summary := Summarize(list, time.UTC)
	assert.Equal(t, 4, summary.TotalInvoices)
	assert.Equal(t, 3, summary.PaidInvoices)
	assert.Equal(t, 1, summary.UnpaidInvoices)
	assert.Equal(t, 0, summary.OverdueInvoices)
	assertMoney(t, "600.00", summary.TotalRevenue)
	assertMoney(t, "150.00", summary.AverageInvoiceValue)
	assertMoney(t, "300.00", summary.RevenueByMonth["2024-01"])
	assertMoney(t, "300.00", summary.RevenueByMonth["2024-02"])
}

func TestSummarizeBuckets(t *testing.T) {
	now := time.Date(2024, 5, 1, 0, 0, 0, 0, time.UTC)
	summary := Summarize([]Invoice{
		{Status: StatusSent, InvoiceDate: now},
		{Status: StatusDraft, InvoiceDate: now},
		{Status: StatusOverdue, InvoiceDate: now},
		{Status: StatusCancelled, InvoiceDate: now},
	}, time.UTC)
	assert.Equal(t, 4, summary.TotalInvoices)
	assert.Equal(t, 2, summary.UnpaidInvoices)
	assert.Equal(t, 1, summary.OverdueInvoices)
	assert.Equal(t, 0, summary.PaidInvoices)
	assertMoney(t, "0", summary.TotalRevenue)
	assertMoney(t, "0", summary.AverageInvoiceValue)
	assert.Empty(t, summary.RevenueByMonth)
}

func TestSummarizeRevenueByService(t *testing.T) {
	date := time.Date(2024, 6, 1, 0, 0, 0, 0, time.UTC)
	summary := Summarize([]Invoice{
		paidInvoice("1036.00", date,
			LineItem{ServiceType: ServiceResurfacing, TotalPrice: dec("900.00")},
			LineItem{ServiceType: ServicePickupDelivery, TotalPrice: dec("25.00")},
			LineItem{ServiceType: "ENGRAVING", TotalPrice: dec("40.00")},
		),
		{Status: StatusSent, InvoiceDate: date, LineItems: []LineItem{{ServiceType: ServiceResurfacing, TotalPrice: dec("500.00")}}},
	}, time.UTC)

	assert.Len(t, summary.RevenueByService, len(ServiceTypes))
	assertMoney(t, "900.00", summary.RevenueByService[ServiceResurfacing])
	assertMoney(t, "25.00", summary.RevenueByService[ServicePickupDelivery])
	assertMoney(t, "0", summary.RevenueByService[ServiceSanitizing])
	assert.NotContains(t, summary.RevenueByService, ServiceType("ENGRAVING"))
	// Month revenue includes tax, service revenue does not.
	assertMoney(t, "1036.00", summary.RevenueByMonth["2024-06"])
}

func TestSummarizeEmpty(t *testing.T) {
	summary := Summarize(nil, nil)
	assert.Equal(t, 0, summary.TotalInvoices)
	assertMoney(t, "0", summary.AverageInvoiceValue)
	assert.Len(t, summary.RevenueByService, len(ServiceTypes))
}

func TestSummarizeGroupsMonthsInBusinessZone(t *testing.T) {
	halifax, err := time.LoadLocation("America/Halifax")
	if err != nil {
		t.Skipf("timezone data unavailable: %v", err)
	}
	// 23:00 on Feb 29 in Halifax is already March 1 in UTC.
	late := time.Date(2024, 2, 29, 23, 0, 0, 0, halifax).UTC()
	list := []Invoice{paidInvoice("80.00", late)}

	local := Summarize(list, halifax)
	assertMoney(t, "80.00", local.RevenueByMonth["2024-02"])
	assert.NotContains(t, local.RevenueByMonth, "2024-03")

	utc := Summarize(list, time.UTC)
	assertMoney(t, "80.00", utc.RevenueByMonth["2024-03"])
}
