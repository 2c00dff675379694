package invoices

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/boardworks/boardworks/internal/platform/httpx"
)

// Exporter renders invoices into downloadable documents.
type Exporter interface {
	WriteCSV(w io.Writer, list []Invoice) error
	RenderPDF(ctx context.Context, inv *Invoice) ([]byte, error)
}

// Handler exposes the invoice lifecycle over JSON.
type Handler struct {
	logger    *slog.Logger
	service   *Service
	exporter  Exporter
	validator *httpx.Validator
	loc       *time.Location
}

// NewHandler constructs the invoices handler. exporter may be nil, which
// disables the CSV and PDF routes.
func NewHandler(logger *slog.Logger, service *Service, exporter Exporter, loc *time.Location) *Handler {
	if loc == nil {
		loc = time.UTC
	}
	return &Handler{
		logger:    logger,
		service:   service,
		exporter:  exporter,
		validator: httpx.NewValidator(),
		loc:       loc,
	}
}

// MountRoutes attaches invoice routes.
func (h *Handler) MountRoutes(r chi.Router) {
	r.Get("/", h.list)
	r.Post("/", h.create)
	r.Get("/statistics", h.statistics)
	r.Get("/export.csv", h.exportCSV)
	r.Post("/sweep-overdue", h.sweepOverdue)
	r.Route("/{id}", func(r chi.Router) {
		r.Get("/", h.show)
		r.Patch("/", h.update)
		r.Delete("/", h.delete)
		r.Get("/pdf", h.pdf)
		r.Post("/sent", h.markSent)
		r.Post("/paid", h.markPaid)
		r.Post("/cancel", h.cancel)
	})
}

type invoicePage struct {
	Items []Invoice `json:"items"`
	Total int       `json:"total"`
	Limit int       `json:"limit"`
	Page  int       `json:"page"`
}

func (h *Handler) list(w http.ResponseWriter, r *http.Request) {
	req, err := h.parseListRequest(r)
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	page, err := httpx.QueryInt(r, "page", 1)
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	limit, err := httpx.QueryInt(r, "limit", defaultPageLimit)
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	if page < 1 {
		page = 1
	}
	limit = PageLimit(limit)
	req.Limit = limit
	req.Offset = (page - 1) * limit

	items, total, err := h.service.List(r.Context(), req)
	if err != nil {
		h.fail(w, "list invoices", err)
		return
	}
	if items == nil {
		items = []Invoice{}
	}
	httpx.JSON(w, http.StatusOK, invoicePage{Items: items, Total: total, Limit: limit, Page: page})
}

func (h *Handler) parseListRequest(r *http.Request) (ListInvoicesRequest, error) {
	var req ListInvoicesRequest
	q := r.URL.Query()
	if raw := q.Get("status"); raw != "" {
		status := Status(raw)
		if !status.Valid() {
			return req, fmt.Errorf("%w: unknown status %q", httpx.ErrValidation, raw)
		}
		req.Status = &status
	}
	var err error
	if req.CustomerID, err = httpx.QueryUUID(r, "customer_id"); err != nil {
		return req, err
	}
	if req.RegionID, err = httpx.QueryUUID(r, "region_id"); err != nil {
		return req, err
	}
	if req.From, err = httpx.QueryTime(r, "from", h.loc); err != nil {
		return req, err
	}
	if req.To, err = httpx.QueryTime(r, "to", h.loc); err != nil {
		return req, err
	}
	if req.MinTotal, err = httpx.QueryDecimal(r, "min_total"); err != nil {
		return req, err
	}
	if req.MaxTotal, err = httpx.QueryDecimal(r, "max_total"); err != nil {
		return req, err
	}
	req.Search = q.Get("search")
	switch sort := SortOrder(q.Get("sort")); sort {
	case "", SortNewestFirst, SortOldestFirst:
		req.Sort = sort
	default:
		return req, fmt.Errorf("%w: sort must be asc or desc", httpx.ErrValidation)
	}
	return req, nil
}

func (h *Handler) create(w http.ResponseWriter, r *http.Request) {
	var input CreateInvoiceInput
	if err := httpx.DecodeJSON(r, &input); err != nil {
		httpx.RespondError(w, err)
		return
	}
	if err := h.validator.Struct(input); err != nil {
		httpx.RespondError(w, err)
		return
	}
	inv, err := h.service.Create(r.Context(), input)
	if err != nil {
		h.fail(w, "create invoice", err)
		return
	}
	httpx.JSON(w, http.StatusCreated, inv)
}

func (h *Handler) show(w http.ResponseWriter, r *http.Request) {
	id, err := httpx.URLUUID(r, "id")
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	inv, err := h.service.Get(r.Context(), id)
	if err != nil {
		h.fail(w, "get invoice", err)
		return
	}
	httpx.JSON(w, http.StatusOK, inv)
}

func (h *Handler) update(w http.ResponseWriter, r *http.Request) {
	id, err := httpx.URLUUID(r, "id")
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	var input UpdateInvoiceInput
	if err := httpx.DecodeJSON(r, &input); err != nil {
		httpx.RespondError(w, err)
		return
	}
	if err := h.validator.Struct(input); err != nil {
		httpx.RespondError(w, err)
		return
	}
	inv, err := h.service.Update(r.Context(), id, input)
	if err != nil {
		h.fail(w, "update invoice", err)
		return
	}
	httpx.JSON(w, http.StatusOK, inv)
}

func (h *Handler) delete(w http.ResponseWriter, r *http.Request) {
	id, err := httpx.URLUUID(r, "id")
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	if err := h.service.Delete(r.Context(), id); err != nil {
		h.fail(w, "delete invoice", err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) markSent(w http.ResponseWriter, r *http.Request) {
	id, err := httpx.URLUUID(r, "id")
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	var input MarkSentInput
	if r.ContentLength != 0 {
		if err := httpx.DecodeJSON(r, &input); err != nil {
			httpx.RespondError(w, err)
			return
		}
	}
	if err := h.validator.Struct(input); err != nil {
		httpx.RespondError(w, err)
		return
	}
	inv, err := h.service.MarkAsSent(r.Context(), id, input)
	if err != nil {
		h.fail(w, "mark invoice sent", err)
		return
	}
	httpx.JSON(w, http.StatusOK, inv)
}

func (h *Handler) markPaid(w http.ResponseWriter, r *http.Request) {
	id, err := httpx.URLUUID(r, "id")
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	var input MarkPaidInput
	if err := httpx.DecodeJSON(r, &input); err != nil {
		httpx.RespondError(w, err)
		return
	}
	if err := h.validator.Struct(input); err != nil {
		httpx.RespondError(w, err)
		return
	}
	inv, err := h.service.MarkAsPaid(r.Context(), id, input)
	if err != nil {
		h.fail(w, "mark invoice paid", err)
		return
	}
	httpx.JSON(w, http.StatusOK, inv)
}

func (h *Handler) cancel(w http.ResponseWriter, r *http.Request) {
	id, err := httpx.URLUUID(r, "id")
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	inv, err := h.service.Cancel(r.Context(), id)
	if err != nil {
		h.fail(w, "cancel invoice", err)
		return
	}
	httpx.JSON(w, http.StatusOK, inv)
}

func (h *Handler) sweepOverdue(w http.ResponseWriter, r *http.Request) {
	count, err := h.service.SweepOverdue(r.Context())
	if err != nil {
		h.fail(w, "sweep overdue invoices", err)
		return
	}
	httpx.JSON(w, http.StatusOK, map[string]int64{"marked": count})
}

func (h *Handler) statistics(w http.ResponseWriter, r *http.Request) {
	var filter StatisticsFilter
	var err error
	if filter.RegionID, err = httpx.QueryUUID(r, "region_id"); err != nil {
		httpx.RespondError(w, err)
		return
	}
	if filter.From, err = httpx.QueryTime(r, "from", h.loc); err != nil {
		httpx.RespondError(w, err)
		return
	}
	if filter.To, err = httpx.QueryTime(r, "to", h.loc); err != nil {
		httpx.RespondError(w, err)
		return
	}
	summary, err := h.service.Statistics(r.Context(), filter)
	if err != nil {
		h.fail(w, "invoice statistics", err)
		return
	}
	httpx.JSON(w, http.StatusOK, summary)
}

const exportPageSize = 200

func (h *Handler) exportCSV(w http.ResponseWriter, r *http.Request) {
	if h.exporter == nil {
		httpx.RespondError(w, fmt.Errorf("%w: export not configured", httpx.ErrUnavailable))
		return
	}
	req, err := h.parseListRequest(r)
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	var all []Invoice
	for {
		req.Limit = exportPageSize
		req.Offset = len(all)
		page, total, err := h.service.List(r.Context(), req)
		if err != nil {
			h.fail(w, "export invoices", err)
			return
		}
		all = append(all, page...)
		if len(page) < exportPageSize || len(all) >= total {
			break
		}
	}
	w.Header().Set("Content-Type", "text/csv; charset=utf-8")
	w.Header().Set("Content-Disposition", "attachment; filename=invoices.csv")
	w.WriteHeader(http.StatusOK)
	if err := h.exporter.WriteCSV(w, all); err != nil {
		h.logger.Error("write invoices csv", slog.Any("error", err))
	}
}

func (h *Handler) pdf(w http.ResponseWriter, r *http.Request) {
	if h.exporter == nil {
		httpx.RespondError(w, fmt.Errorf("%w: export not configured", httpx.ErrUnavailable))
		return
	}
	id, err := httpx.URLUUID(r, "id")
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	inv, err := h.service.Get(r.Context(), id)
	if err != nil {
		h.fail(w, "get invoice", err)
		return
	}
	data, err := h.exporter.RenderPDF(r.Context(), inv)
	if err != nil {
		h.fail(w, "render invoice pdf", err)
		return
	}
	w.Header().Set("Content-Type", "application/pdf")
	w.Header().Set("Content-Disposition", fmt.Sprintf("inline; filename=invoice-%s.pdf", inv.DisplayNumber))
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(data)
}

func (h *Handler) fail(w http.ResponseWriter, msg string, err error) {
	h.logger.Warn(msg, slog.Any("error", err))
	httpx.RespondError(w, err)
}
