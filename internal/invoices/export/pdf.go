package export

import (
	"bytes"
	"context"
	"fmt"
	"html/template"
	"io"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"golang.org/x/text/cases"
	"golang.org/x/text/language"

	"github.com/boardworks/boardworks/internal/billing"
	"github.com/boardworks/boardworks/internal/invoices"
	"github.com/boardworks/boardworks/internal/settings"
	"github.com/boardworks/boardworks/report"
	"github.com/boardworks/boardworks/web"
)

// Renderer converts HTML into PDF bytes.
type Renderer interface {
	RenderHTML(ctx context.Context, doc report.Document) ([]byte, error)
}

// CompanyProvider resolves the letterhead printed on invoices.
type CompanyProvider interface {
	CompanyInfo(ctx context.Context, regionID uuid.UUID) (settings.CompanyInfo, error)
}

// Exporter implements invoices.Exporter.
type Exporter struct {
	renderer Renderer
	company  CompanyProvider
	tmpl     *template.Template
}

var titleCaser = cases.Title(language.English)

var funcs = template.FuncMap{
	"money":   func(d decimal.Decimal) string { return billing.FormatMoney(d) },
	"price":   func(d decimal.Decimal) string { return "$" + d.StringFixed(billing.PricePlaces) },
	"percent": func(d decimal.Decimal) string { return d.Mul(decimal.NewFromInt(100)).String() + "%" },
	"date":    func(t time.Time) string { return t.Format("January 2, 2006") },
	"service": func(st invoices.ServiceType) string {
		return titleCaser.String(strings.ReplaceAll(strings.ToLower(string(st)), "_", " "))
	},
}

// NewExporter parses the embedded invoice template.
func NewExporter(renderer Renderer, company CompanyProvider) (*Exporter, error) {
	tmpl, err := template.New("invoice.html").Funcs(funcs).ParseFS(web.Templates, "templates/invoice/invoice.html")
	if err != nil {
		return nil, fmt.Errorf("parse invoice template: %w", err)
	}
	return &Exporter{renderer: renderer, company: company, tmpl: tmpl}, nil
}

// WriteCSV writes list as CSV.
func (e *Exporter) WriteCSV(w io.Writer, list []invoices.Invoice) error {
	return WriteInvoicesCSV(w, list)
}

// RenderPDF renders inv with its region's company details.
func (e *Exporter) RenderPDF(ctx context.Context, inv *invoices.Invoice) ([]byte, error) {
	html, err := e.RenderHTML(ctx, inv)
	if err != nil {
		return nil, err
	}
	return e.renderer.RenderHTML(ctx, report.Document{
		Name: "invoice.html",
		HTML: html,
	})
}

// RenderHTML executes the invoice template.
func (e *Exporter) RenderHTML(ctx context.Context, inv *invoices.Invoice) ([]byte, error) {
	company, err := e.company.CompanyInfo(ctx, inv.RegionID)
	if err != nil {
		return nil, fmt.Errorf("load company info: %w", err)
	}
	var buf bytes.Buffer
	err = e.tmpl.Execute(&buf, struct {
		Company settings.CompanyInfo
		Invoice *invoices.Invoice
	}{Company: company, Invoice: inv})
	if err != nil {
		return nil, fmt.Errorf("execute invoice template: %w", err)
	}
	return buf.Bytes(), nil
}
