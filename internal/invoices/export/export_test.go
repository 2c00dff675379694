package export

import (
	"bytes"
	"context"
	"encoding/csv"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/boardworks/boardworks/internal/invoices"
	"github.com/boardworks/boardworks/internal/settings"
	"github.com/boardworks/boardworks/report"
)

type stubRenderer struct {
	doc report.Document
}

func (s *stubRenderer) RenderHTML(_ context.Context, doc report.Document) ([]byte, error) {
	s.doc = doc
	return []byte("PDF"), nil
}

type stubCompany struct {
	info settings.CompanyInfo
	err  error
}

func (s stubCompany) CompanyInfo(context.Context, uuid.UUID) (settings.CompanyInfo, error) {
	return s.info, s.err
}

func sampleInvoice() *invoices.Invoice {
	paid := time.Date(2024, 2, 1, 0, 0, 0, 0, time.UTC)
	method := invoices.PaymentETransfer
	notes := "Thanks <3"
	return &invoices.Invoice{
		ID:            uuid.New(),
		DisplayNumber: "BW-10001",
		CustomerName:  "Harbour Bistro",
		InvoiceDate:   time.Date(2024, 1, 15, 0, 0, 0, 0, time.UTC),
		DueDate:       time.Date(2024, 2, 14, 0, 0, 0, 0, time.UTC),
		PaidDate:      &paid,
		Status:        invoices.StatusPaid,
		LineItems: []invoices.LineItem{
			{ServiceType: invoices.ServiceResurfacing, Description: "Maple boards", Quantity: 2, UnitPrice: decimal.RequireFromString("450"), TotalPrice: decimal.RequireFromString("900")},
			{ServiceType: invoices.ServicePickupDelivery, Quantity: 1, UnitPrice: decimal.RequireFromString("25"), TotalPrice: decimal.RequireFromString("25")},
		},
		Subtotal:         decimal.RequireFromString("925"),
		GSTRate:          decimal.RequireFromString("0.05"),
		PSTRate:          decimal.RequireFromString("0.07"),
		GSTAmount:        decimal.RequireFromString("46.25"),
		PSTAmount:        decimal.RequireFromString("64.75"),
		Total:            decimal.RequireFromString("1036"),
		PaymentTermsDays: 30,
		PaymentMethod:    &method,
		Notes:            &notes,
	}
}

func TestWriteInvoicesCSV(t *testing.T) {
	buf := &bytes.Buffer{}
	require.NoError(t, WriteInvoicesCSV(buf, []invoices.Invoice{*sampleInvoice()}))

	records, err := csv.NewReader(buf).ReadAll()
	require.NoError(t, err)
	require.Len(t, records, 2)
	assert.Equal(t, invoiceHeader, records[0])
	assert.Equal(t, []string{
		"BW-10001", "Harbour Bistro", "2024-01-15", "2024-02-14", "PAID",
		"925.00", "46.25", "64.75", "1036.00", "2024-02-01", "E_TRANSFER",
	}, records[1])
}

func TestWriteSummaryCSV(t *testing.T) {
	summary := invoices.Summarize([]invoices.Invoice{*sampleInvoice()}, time.UTC)
	buf := &bytes.Buffer{}
	require.NoError(t, WriteSummaryCSV(buf, summary))

	records, err := csv.NewReader(buf).ReadAll()
	require.NoError(t, err)
	assert.Contains(t, records, []string{"Total Revenue", "1036.00"})
	assert.Contains(t, records, []string{"Revenue RESURFACING", "900.00"})
	assert.Contains(t, records, []string{"Revenue SANITIZING", "0.00"})
	assert.Contains(t, records, []string{"Revenue 2024-01", "1036.00"})
}

func TestRenderPDF(t *testing.T) {
	renderer := &stubRenderer{}
	exporter, err := NewExporter(renderer, stubCompany{info: settings.CompanyInfo{Name: "Boardworks Halifax", GSTNumber: "123456789RT0001"}})
	require.NoError(t, err)

	pdf, err := exporter.RenderPDF(context.Background(), sampleInvoice())
	require.NoError(t, err)
	assert.Equal(t, "PDF", string(pdf))
	assert.Equal(t, "invoice.html", renderer.doc.Name)

	html := string(renderer.doc.HTML)
	assert.Contains(t, html, "Invoice BW-10001")
	assert.Contains(t, html, "Boardworks Halifax")
	assert.Contains(t, html, "Pickup Delivery")
	assert.Contains(t, html, "$1,036.00")
	assert.Contains(t, html, "$450.000")
	assert.Contains(t, html, "GST (5%)")
	assert.Contains(t, html, "January 15, 2024")
	assert.Contains(t, html, "Thanks &lt;3")
}

func TestRenderPDFCompanyFailure(t *testing.T) {
	exporter, err := NewExporter(&stubRenderer{}, stubCompany{err: errors.New("settings down")})
	require.NoError(t, err)

	_, err = exporter.RenderPDF(context.Background(), sampleInvoice())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "settings down")
}
