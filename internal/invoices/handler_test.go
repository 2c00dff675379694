package invoices

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	_ "github.com/boardworks/boardworks/testing"
)

type stubExporter struct{}

func (stubExporter) WriteCSV(w io.Writer, list []Invoice) error {
	for _, inv := range list {
		if _, err := fmt.Fprintln(w, inv.DisplayNumber); err != nil {
			return err
		}
	}
	return nil
}

func (stubExporter) RenderPDF(ctx context.Context, inv *Invoice) ([]byte, error) {
	return []byte("%PDF-" + inv.DisplayNumber), nil
}

func newTestRouter(f *fixture) http.Handler {
	h := NewHandler(slog.New(slog.NewTextHandler(io.Discard, nil)), f.svc, stubExporter{}, nil)
	r := chi.NewRouter()
	r.Route("/invoices", h.MountRoutes)
	return r
}

func serve(router http.Handler, method, path, body string) *httptest.ResponseRecorder {
	var reader io.Reader
	if body != "" {
		reader = strings.NewReader(body)
	}
	rr := httptest.NewRecorder()
	router.ServeHTTP(rr, httptest.NewRequest(method, path, reader))
	return rr
}

func TestHandlerCreateInvoice(t *testing.T) {
	f := newFixture(t)
	router := newTestRouter(f)

	body := fmt.Sprintf(`{
		"customerId": %q,
		"regionId": %q,
		"lineItems": [
			{"serviceType": "RESURFACING", "description": "Maple", "quantity": 2, "unitPrice": "450.00"},
			{"serviceType": "PICKUP_DELIVERY", "quantity": 1, "unitPrice": 25}
		]
	}`, f.customer, f.region)
	rr := serve(router, http.MethodPost, "/invoices", body)
	require.Equal(t, http.StatusCreated, rr.Code, rr.Body.String())

	var inv Invoice
	require.NoError(t, json.NewDecoder(rr.Body).Decode(&inv))
	assert.Equal(t, "10001", inv.DisplayNumber)
	assertMoney(t, "1036.00", inv.Total)
	assertMoney(t, "46.25", inv.GSTAmount)
}

func TestHandlerCreateValidatesPayload(t *testing.T) {
	f := newFixture(t)
	router := newTestRouter(f)

	rr := serve(router, http.MethodPost, "/invoices", fmt.Sprintf(`{"customerId": %q, "lineItems": [{"serviceType": "WAXING", "quantity": -1, "unitPrice": 1}]}`, f.customer))
	assert.Equal(t, http.StatusBadRequest, rr.Code)
	assert.Equal(t, "application/problem+json", rr.Header().Get("Content-Type"))
	assert.Contains(t, rr.Body.String(), `"lineItems[0].serviceType"`)
	assert.Contains(t, rr.Body.String(), `"lineItems[0].quantity":"must be greater than or equal to 0"`)

	rr = serve(router, http.MethodPost, "/invoices", `{"lineItems": []}`)
	assert.Equal(t, http.StatusBadRequest, rr.Code)
	assert.Contains(t, rr.Body.String(), `"customerId":"is required"`)

	rr = serve(router, http.MethodPost, "/invoices", `{"unknown": true}`)
	assert.Equal(t, http.StatusBadRequest, rr.Code)
}

func TestHandlerCreateUnknownCustomer(t *testing.T) {
	f := newFixture(t)
	router := newTestRouter(f)

	body := fmt.Sprintf(`{"customerId": %q, "lineItems": [{"serviceType": "SANITIZING", "quantity": 1, "unitPrice": 10}]}`, uuid.New())
	rr := serve(router, http.MethodPost, "/invoices", body)
	assert.Equal(t, http.StatusNotFound, rr.Code)
}

func TestHandlerLifecycle(t *testing.T) {
	f := newFixture(t)
	router := newTestRouter(f)
	inv := f.create(t)
	base := "/invoices/" + inv.ID.String()

	rr := serve(router, http.MethodPost, base+"/sent", `{"emailTo": "chef@example.com"}`)
	require.Equal(t, http.StatusOK, rr.Code, rr.Body.String())
	assert.Contains(t, rr.Body.String(), `"status":"SENT"`)

	rr = serve(router, http.MethodPost, base+"/paid", `{}`)
	assert.Equal(t, http.StatusBadRequest, rr.Code)
	assert.Contains(t, rr.Body.String(), `"paymentMethod":"is required"`)

	rr = serve(router, http.MethodPost, base+"/paid", `{"paymentMethod": "DEBIT_CARD"}`)
	require.Equal(t, http.StatusOK, rr.Code, rr.Body.String())
	assert.Contains(t, rr.Body.String(), `"status":"PAID"`)

	rr = serve(router, http.MethodDelete, base, "")
	assert.Equal(t, http.StatusConflict, rr.Code)
	assert.Contains(t, rr.Body.String(), "cannot delete paid invoices")

	rr = serve(router, http.MethodPost, base+"/cancel", "")
	assert.Equal(t, http.StatusConflict, rr.Code)

	rr = serve(router, http.MethodGet, base+"/pdf", "")
	require.Equal(t, http.StatusOK, rr.Code)
	assert.Equal(t, "application/pdf", rr.Header().Get("Content-Type"))
	assert.Equal(t, "%PDF-10001", rr.Body.String())
}

func TestHandlerDeleteDraft(t *testing.T) {
	f := newFixture(t)
	router := newTestRouter(f)
	inv := f.create(t)

	rr := serve(router, http.MethodDelete, "/invoices/"+inv.ID.String(), "")
	assert.Equal(t, http.StatusNoContent, rr.Code)

	rr = serve(router, http.MethodGet, "/invoices/"+inv.ID.String(), "")
	assert.Equal(t, http.StatusNotFound, rr.Code)
}

func TestHandlerUpdate(t *testing.T) {
	f := newFixture(t)
	router := newTestRouter(f)
	inv := f.create(t)

	rr := serve(router, http.MethodPatch, "/invoices/"+inv.ID.String(), `{"lineItems": [{"serviceType": "EDGE_REPAIR", "quantity": 3, "unitPrice": "12.50"}]}`)
	require.Equal(t, http.StatusOK, rr.Code, rr.Body.String())

	var updated Invoice
	require.NoError(t, json.NewDecoder(rr.Body).Decode(&updated))
	assertMoney(t, "37.50", updated.Subtotal)
	assertMoney(t, "42.00", updated.Total)

	rr = serve(router, http.MethodPatch, "/invoices/"+inv.ID.String(), `{"status": "OVERDUE"}`)
	assert.Equal(t, http.StatusConflict, rr.Code)
}

func TestHandlerListAndExport(t *testing.T) {
	f := newFixture(t)
	router := newTestRouter(f)
	for i := 0; i < 3; i++ {
		f.create(t)
	}

	rr := serve(router, http.MethodGet, "/invoices?limit=2&page=2&sort=asc", "")
	require.Equal(t, http.StatusOK, rr.Code)
	var page invoicePage
	require.NoError(t, json.NewDecoder(rr.Body).Decode(&page))
	assert.Equal(t, 3, page.Total)
	require.Len(t, page.Items, 1)
	assert.Equal(t, "10003", page.Items[0].DisplayNumber)

	rr = serve(router, http.MethodGet, "/invoices?status=LOST", "")
	assert.Equal(t, http.StatusBadRequest, rr.Code)

	rr = serve(router, http.MethodGet, "/invoices?from=yesterday", "")
	assert.Equal(t, http.StatusBadRequest, rr.Code)

	rr = serve(router, http.MethodGet, "/invoices/export.csv?sort=asc", "")
	require.Equal(t, http.StatusOK, rr.Code)
	assert.Equal(t, "text/csv; charset=utf-8", rr.Header().Get("Content-Type"))
	assert.Equal(t, "10001\n10002\n10003\n", rr.Body.String())
}

func TestHandlerStatisticsAndSweep(t *testing.T) {
	f := newFixture(t)
	router := newTestRouter(f)
	f.withStatus(t, StatusPaid)
	f.create(t)

	rr := serve(router, http.MethodPost, "/invoices/sweep-overdue", "")
	require.Equal(t, http.StatusOK, rr.Code)
	assert.JSONEq(t, `{"marked":0}`, rr.Body.String())

	rr = serve(router, http.MethodGet, "/invoices/statistics?region_id="+f.region.String()+"&from=2024-01-01&to=2024-02-01", "")
	require.Equal(t, http.StatusOK, rr.Code, rr.Body.String())

	var summary Summary
	require.NoError(t, json.Unmarshal(bytes.TrimSpace(rr.Body.Bytes()), &summary))
	assert.Equal(t, 2, summary.TotalInvoices)
	assert.Equal(t, 1, summary.PaidInvoices)
	assertMoney(t, "1036.00", summary.TotalRevenue)
	assertMoney(t, "518.00", summary.AverageInvoiceValue)
}

func TestHandlerListClampsLimitBeforePaging(t *testing.T) {
	f := newFixture(t)
	router := newTestRouter(f)
	for i := 0; i < 205; i++ {
		f.create(t)
	}

	cases := []struct {
		query     string
		wantLimit int
		wantItems int
		wantFirst string
	}{
		{"limit=500&page=2&sort=asc", 200, 5, "10201"},
		{"limit=0&page=2&sort=asc", 50, 50, "10051"},
		{"limit=-3&page=5&sort=asc", 50, 5, "10201"},
	}
	for _, tc := range cases {
		t.Run(tc.query, func(t *testing.T) {
			rr := serve(router, http.MethodGet, "/invoices?"+tc.query, "")
			require.Equal(t, http.StatusOK, rr.Code)

			var page invoicePage
			require.NoError(t, json.NewDecoder(rr.Body).Decode(&page))
			assert.Equal(t, 205, page.Total)
			assert.Equal(t, tc.wantLimit, page.Limit)
			require.Len(t, page.Items, tc.wantItems)
			assert.Equal(t, tc.wantFirst, page.Items[0].DisplayNumber)
		})
	}
}
