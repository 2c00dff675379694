package invoices

import (
	"time"

	"github.com/shopspring/decimal"

	"github.com/boardworks/boardworks/internal/billing"
)

// Summarize aggregates invoices already matched by a StatisticsFilter.
//
// Revenue counts PAID invoices only while the average divides that revenue by
// every matched invoice, drafts included. Revenue by month sums invoice totals
// (tax included) and revenue by service sums line totals (tax excluded), so the
// two breakdowns do not reconcile. Months are calendar months in loc; a nil
// loc means UTC.
func Summarize(list []Invoice, loc *time.Location) Summary {
	if loc == nil {
		loc = time.UTC
	}
	summary := Summary{
		TotalInvoices:       len(list),
		TotalRevenue:        decimal.Zero,
		AverageInvoiceValue: decimal.Zero,
		RevenueByService:    make(map[ServiceType]decimal.Decimal, len(ServiceTypes)),
		RevenueByMonth:      make(map[string]decimal.Decimal),
	}
	for _, st := range ServiceTypes {
		summary.RevenueByService[st] = decimal.Zero
	}

	for _, inv := range list {
		switch inv.Status {
		case StatusPaid:
			summary.PaidInvoices++
		case StatusSent, StatusDraft:
			summary.UnpaidInvoices++
		case StatusOverdue:
			summary.OverdueInvoices++
		}
		if inv.Status != StatusPaid {
			continue
		}

		summary.TotalRevenue = summary.TotalRevenue.Add(inv.Total)

		month := inv.InvoiceDate.In(loc).Format("2006-01")
		current, ok := summary.RevenueByMonth[month]
		if !ok {
			current = decimal.Zero
		}
		summary.RevenueByMonth[month] = current.Add(inv.Total)

		for _, item := range inv.LineItems {
			if current, ok := summary.RevenueByService[item.ServiceType]; ok {
				summary.RevenueByService[item.ServiceType] = current.Add(item.TotalPrice)
			}
		}
	}

	summary.TotalRevenue = billing.RoundMoney(summary.TotalRevenue)
	if summary.TotalInvoices > 0 {
		summary.AverageInvoiceValue = billing.RoundMoney(
			summary.TotalRevenue.Div(decimal.NewFromInt(int64(summary.TotalInvoices))),
		)
	}
	return summary
}
