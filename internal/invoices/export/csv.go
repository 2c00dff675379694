// Package export renders invoices as CSV listings and PDF documents.
package export

import (
	"encoding/csv"
	"io"
	"sort"
	"strconv"
	"time"

	"github.com/shopspring/decimal"

	"github.com/boardworks/boardworks/internal/billing"
	"github.com/boardworks/boardworks/internal/invoices"
)

var invoiceHeader = []string{
	"Invoice", "Customer", "Invoice Date", "Due Date", "Status",
	"Subtotal", "GST", "PST", "Total", "Paid Date", "Payment Method",
}

// WriteInvoicesCSV writes one row per invoice.
func WriteInvoicesCSV(w io.Writer, list []invoices.Invoice) error {
	writer := csv.NewWriter(w)
	defer writer.Flush()

	if err := writer.Write(invoiceHeader); err != nil {
		return err
	}
	for _, inv := range list {
		paid, method := "", ""
		if inv.PaidDate != nil {
			paid = inv.PaidDate.Format(time.DateOnly)
		}
		if inv.PaymentMethod != nil {
			method = string(*inv.PaymentMethod)
		}
		if err := writer.Write([]string{
			inv.DisplayNumber,
			inv.CustomerName,
			inv.InvoiceDate.Format(time.DateOnly),
			inv.DueDate.Format(time.DateOnly),
			string(inv.Status),
			formatAmount(inv.Subtotal),
			formatAmount(inv.GSTAmount),
			formatAmount(inv.PSTAmount),
			formatAmount(inv.Total),
			paid,
			method,
		}); err != nil {
			return err
		}
	}
	writer.Flush()
	return writer.Error()
}

// WriteSummaryCSV writes the statistics headline figures followed by the
// service and month breakdowns.
func WriteSummaryCSV(w io.Writer, summary invoices.Summary) error {
	writer := csv.NewWriter(w)
	defer writer.Flush()

	records := [][]string{
		{"Metric", "Value"},
		{"Total Invoices", strconv.Itoa(summary.TotalInvoices)},
		{"Paid Invoices", strconv.Itoa(summary.PaidInvoices)},
		{"Unpaid Invoices", strconv.Itoa(summary.UnpaidInvoices)},
		{"Overdue Invoices", strconv.Itoa(summary.OverdueInvoices)},
		{"Total Revenue", formatAmount(summary.TotalRevenue)},
		{"Average Invoice Value", formatAmount(summary.AverageInvoiceValue)},
	}
	for _, st := range invoices.ServiceTypes {
		records = append(records, []string{"Revenue " + string(st), formatAmount(summary.RevenueByService[st])})
	}
	months := make([]string, 0, len(summary.RevenueByMonth))
	for month := range summary.RevenueByMonth {
		months = append(months, month)
	}
	sort.Strings(months)
	for _, month := range months {
		records = append(records, []string{"Revenue " + month, formatAmount(summary.RevenueByMonth[month])})
	}
	for _, record := range records {
		if err := writer.Write(record); err != nil {
			return err
		}
	}
	writer.Flush()
	return writer.Error()
}

func formatAmount(d decimal.Decimal) string {
	return d.StringFixed(billing.MoneyPlaces)
}
