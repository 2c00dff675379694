package invoices

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/singleflight"

	"github.com/boardworks/boardworks/internal/billing"
	"github.com/boardworks/boardworks/internal/settings"
)

// CustomerLookup resolves customer references.
type CustomerLookup interface {
	Exists(ctx context.Context, id uuid.UUID) (bool, error)
}

// SettingsProvider resolves the effective region configuration at call time.
type SettingsProvider interface {
	TaxRates(ctx context.Context, regionID uuid.UUID) (settings.TaxRates, error)
	PaymentTermsDays(ctx context.Context, regionID uuid.UUID) (int, error)
}

// EventRecorder receives lifecycle events for metrics.
type EventRecorder interface {
	RecordInvoiceEvent(event string)
}

// ServiceConfig carries the optional collaborators of Service.
type ServiceConfig struct {
	Logger   *slog.Logger
	Cache    *StatsCache
	Location *time.Location
	Recorder EventRecorder
	Clock    func() time.Time
}

// Service owns invoice numbering, pricing and status transitions.
type Service struct {
	repo      Repository
	customers CustomerLookup
	settings  SettingsProvider
	logger    *slog.Logger
	cache     *StatsCache
	loc       *time.Location
	recorder  EventRecorder
	clock     func() time.Time
	group     singleflight.Group
}

// NewService wires the lifecycle manager.
func NewService(repo Repository, customers CustomerLookup, provider SettingsProvider, cfg ServiceConfig) *Service {
	svc := &Service{
		repo:      repo,
		customers: customers,
		settings:  provider,
		logger:    cfg.Logger,
		cache:     cfg.Cache,
		loc:       cfg.Location,
		recorder:  cfg.Recorder,
		clock:     cfg.Clock,
	}
	if svc.logger == nil {
		svc.logger = slog.Default()
	}
	if svc.loc == nil {
		svc.loc = time.UTC
	}
	if svc.clock == nil {
		svc.clock = time.Now
	}
	return svc
}

// AllocateInvoiceNumber reserves the next number for a region in its own
// transaction. Create allocates inside the insert transaction instead.
func (s *Service) AllocateInvoiceNumber(ctx context.Context, regionID uuid.UUID) (int64, error) {
	var number int64
	err := s.repo.WithTx(ctx, func(ctx context.Context, tx TxRepository) error {
		seq, err := tx.NextInvoiceNumber(ctx, regionID)
		if err != nil {
			return err
		}
		number = seq.LastNumber
		return nil
	})
	if err != nil {
		return 0, err
	}
	return number, nil
}

// Create prices and numbers a new invoice using the region's current
// configuration, which is frozen onto the invoice.
func (s *Service) Create(ctx context.Context, input CreateInvoiceInput) (*Invoice, error) {
	if len(input.LineItems) == 0 {
		return nil, fmt.Errorf("%w: at least one line item is required", ErrInvalidInput)
	}
	status := StatusDraft
	if input.Status != nil {
		status = *input.Status
	}
	if status != StatusDraft && status != StatusSent {
		return nil, fmt.Errorf("%w: invoices are created as DRAFT or SENT, got %q", ErrInvalidInput, status)
	}

	if err := s.requireCustomer(ctx, input.CustomerID); err != nil {
		return nil, err
	}
	rates, err := s.settings.TaxRates(ctx, input.RegionID)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrConfigurationUnavailable, err)
	}
	terms, err := s.settings.PaymentTermsDays(ctx, input.RegionID)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrConfigurationUnavailable, err)
	}

	items, err := buildLineItems(input.LineItems)
	if err != nil {
		return nil, err
	}

	now := s.clock()
	inv := &Invoice{
		ID:               uuid.New(),
		RegionID:         input.RegionID,
		CustomerID:       input.CustomerID,
		InvoiceDate:      now,
		Status:           status,
		LineItems:        items,
		GSTRate:          rates.GST,
		PSTRate:          rates.PST,
		PaymentTermsDays: terms,
		Notes:            trimmed(input.Notes),
		CreatedAt:        now,
		UpdatedAt:        now,
	}
	if input.InvoiceDate != nil {
		inv.InvoiceDate = *input.InvoiceDate
	}
	inv.DueDate = billing.DueDate(inv.InvoiceDate, terms)
	if input.DueDate != nil {
		inv.DueDate = *input.DueDate
	}
	if status == StatusSent {
		inv.SentAt = &now
	}
	applyTotals(inv)

	err = s.repo.WithTx(ctx, func(ctx context.Context, tx TxRepository) error {
		seq, err := tx.NextInvoiceNumber(ctx, inv.RegionID)
		if err != nil {
			return err
		}
		inv.InvoiceNumber = seq.LastNumber
		inv.DisplayNumber = seq.Display(seq.LastNumber)
		return tx.InsertInvoice(ctx, inv)
	})
	if err != nil {
		return nil, err
	}

	s.logger.Info("invoice created",
		slog.String("invoice_id", inv.ID.String()),
		slog.String("number", inv.DisplayNumber),
		slog.String("region_id", inv.RegionID.String()),
		slog.String("total", inv.Total.StringFixed(billing.MoneyPlaces)))
	s.changed(ctx, "created")
	return inv, nil
}

// Get loads an invoice.
func (s *Service) Get(ctx context.Context, id uuid.UUID) (*Invoice, error) {
	return s.repo.GetInvoice(ctx, id)
}

const (
	defaultPageLimit = 50
	maxPageLimit     = 200
)

// PageLimit clamps a requested page size to 1..200, defaulting to 50.
func PageLimit(limit int) int {
	switch {
	case limit <= 0:
		return defaultPageLimit
	case limit > maxPageLimit:
		return maxPageLimit
	}
	return limit
}

// List returns a page of invoices and the total count matching the filter.
func (s *Service) List(ctx context.Context, req ListInvoicesRequest) ([]Invoice, int, error) {
	req.Limit = PageLimit(req.Limit)
	if req.Offset < 0 {
		req.Offset = 0
	}
	if req.Sort != SortOldestFirst {
		req.Sort = SortNewestFirst
	}
	req.Search = strings.TrimSpace(req.Search)
	return s.repo.ListInvoices(ctx, req)
}

// Update changes only the supplied fields. Replacing line items re-prices the
// invoice with the region's current tax rates.
func (s *Service) Update(ctx context.Context, id uuid.UUID, input UpdateInvoiceInput) (*Invoice, error) {
	var updated *Invoice
	err := s.repo.WithTx(ctx, func(ctx context.Context, tx TxRepository) error {
		inv, err := tx.LockInvoice(ctx, id)
		if err != nil {
			return err
		}

		if input.CustomerID != nil && *input.CustomerID != inv.CustomerID {
			if err := s.requireCustomer(ctx, *input.CustomerID); err != nil {
				return err
			}
			inv.CustomerID = *input.CustomerID
		}
		if input.InvoiceDate != nil {
			inv.InvoiceDate = *input.InvoiceDate
		}
		if input.DueDate != nil {
			inv.DueDate = *input.DueDate
		}
		if input.PaidDate != nil {
			inv.PaidDate = input.PaidDate
		}
		if input.Notes != nil {
			inv.Notes = trimmed(input.Notes)
		}

		next := inv.Status
		if input.Status != nil {
			next = *input.Status
		}
		if next != inv.Status {
			if next == StatusOverdue {
				return fmt.Errorf("%w: OVERDUE is set by the overdue sweep", ErrInvalidOperation)
			}
			if !inv.Status.CanTransitionTo(next) {
				return fmt.Errorf("%w: cannot move invoice from %s to %s", ErrInvalidOperation, inv.Status, next)
			}
		}
		if input.PaymentMethod != nil {
			if next != StatusPaid {
				return fmt.Errorf("%w: payment method is only recorded on paid invoices", ErrInvalidOperation)
			}
			method := *input.PaymentMethod
			inv.PaymentMethod = &method
		}
		if next == StatusPaid && inv.Status != StatusPaid {
			if inv.PaymentMethod == nil || !inv.PaymentMethod.Valid() {
				return fmt.Errorf("%w: payment method is required to mark an invoice paid", ErrInvalidOperation)
			}
			if inv.PaidDate == nil {
				paid := s.clock()
				inv.PaidDate = &paid
			}
		}
		if next == StatusSent && inv.Status != StatusSent {
			sent := s.clock()
			inv.SentAt = &sent
		}
		inv.Status = next

		if input.LineItems != nil {
			if len(input.LineItems) == 0 {
				return fmt.Errorf("%w: at least one line item is required", ErrInvalidInput)
			}
			rates, err := s.settings.TaxRates(ctx, inv.RegionID)
			if err != nil {
				return fmt.Errorf("%w: %w", ErrConfigurationUnavailable, err)
			}
			items, err := buildLineItems(input.LineItems)
			if err != nil {
				return err
			}
			inv.LineItems = items
			inv.GSTRate = rates.GST
			inv.PSTRate = rates.PST
			applyTotals(inv)
			if err := tx.ReplaceLineItems(ctx, inv.ID, inv.LineItems); err != nil {
				return err
			}
		}

		inv.UpdatedAt = s.clock()
		if err := tx.UpdateInvoice(ctx, inv); err != nil {
			return err
		}
		updated = inv
		return nil
	})
	if err != nil {
		return nil, err
	}
	s.logger.Info("invoice updated",
		slog.String("invoice_id", updated.ID.String()),
		slog.String("status", string(updated.Status)))
	s.changed(ctx, "updated")
	return updated, nil
}

// Delete hard-removes an invoice. Paid invoices are kept.
func (s *Service) Delete(ctx context.Context, id uuid.UUID) error {
	err := s.repo.WithTx(ctx, func(ctx context.Context, tx TxRepository) error {
		inv, err := tx.LockInvoice(ctx, id)
		if err != nil {
			return err
		}
		if inv.Status == StatusPaid {
			return fmt.Errorf("%w: cannot delete paid invoices", ErrInvalidOperation)
		}
		return tx.DeleteInvoice(ctx, id)
	})
	if err != nil {
		return err
	}
	s.logger.Info("invoice deleted", slog.String("invoice_id", id.String()))
	s.changed(ctx, "deleted")
	return nil
}

// MarkAsSent records a send. Draft and sent invoices become SENT with a fresh
// timestamp; an overdue invoice keeps its status and records the resend.
func (s *Service) MarkAsSent(ctx context.Context, id uuid.UUID, input MarkSentInput) (*Invoice, error) {
	return s.transition(ctx, id, "sent", func(inv *Invoice, now time.Time) error {
		if inv.Status.Terminal() {
			return fmt.Errorf("%w: cannot send a %s invoice", ErrInvalidOperation, inv.Status)
		}
		if inv.Status != StatusOverdue {
			inv.Status = StatusSent
		}
		inv.SentAt = &now
		if to := trimmed(input.EmailTo); to != nil {
			inv.SentTo = to
		}
		return nil
	})
}

// MarkAsPaid settles an invoice with a payment method.
func (s *Service) MarkAsPaid(ctx context.Context, id uuid.UUID, input MarkPaidInput) (*Invoice, error) {
	if !input.PaymentMethod.Valid() {
		return nil, fmt.Errorf("%w: payment method %q is not accepted", ErrInvalidOperation, input.PaymentMethod)
	}
	return s.transition(ctx, id, "paid", func(inv *Invoice, now time.Time) error {
		if !inv.Status.CanTransitionTo(StatusPaid) {
			return fmt.Errorf("%w: cannot pay a %s invoice", ErrInvalidOperation, inv.Status)
		}
		method := input.PaymentMethod
		inv.Status = StatusPaid
		inv.PaymentMethod = &method
		paid := now
		if input.PaidDate != nil {
			paid = *input.PaidDate
		}
		inv.PaidDate = &paid
		return nil
	})
}

// Cancel voids a draft or sent invoice.
func (s *Service) Cancel(ctx context.Context, id uuid.UUID) (*Invoice, error) {
	return s.transition(ctx, id, "cancelled", func(inv *Invoice, _ time.Time) error {
		if !inv.Status.CanTransitionTo(StatusCancelled) {
			return fmt.Errorf("%w: cannot cancel a %s invoice", ErrInvalidOperation, inv.Status)
		}
		inv.Status = StatusCancelled
		return nil
	})
}

func (s *Service) transition(ctx context.Context, id uuid.UUID, event string, apply func(*Invoice, time.Time) error) (*Invoice, error) {
	var updated *Invoice
	err := s.repo.WithTx(ctx, func(ctx context.Context, tx TxRepository) error {
		inv, err := tx.LockInvoice(ctx, id)
		if err != nil {
			return err
		}
		now := s.clock()
		if err := apply(inv, now); err != nil {
			return err
		}
		inv.UpdatedAt = now
		if err := tx.UpdateInvoice(ctx, inv); err != nil {
			return err
		}
		updated = inv
		return nil
	})
	if err != nil {
		return nil, err
	}
	s.logger.Info("invoice "+event,
		slog.String("invoice_id", updated.ID.String()),
		slog.String("status", string(updated.Status)))
	s.changed(ctx, event)
	return updated, nil
}

// SweepOverdue moves every SENT invoice due before today's local midnight to
// OVERDUE and returns how many changed.
func (s *Service) SweepOverdue(ctx context.Context) (int64, error) {
	cutoff := billing.StartOfDay(s.clock(), s.loc)
	count, err := s.repo.MarkOverdue(ctx, cutoff)
	if err != nil {
		return 0, err
	}
	s.logger.Info("overdue sweep finished",
		slog.Time("cutoff", cutoff),
		slog.Int64("marked", count))
	if count > 0 {
		s.changed(ctx, "overdue")
	}
	return count, nil
}

// Statistics aggregates invoices matching filter. Results are cached per
// filter until the next invoice mutation; concurrent misses share one load.
func (s *Service) Statistics(ctx context.Context, filter StatisticsFilter) (Summary, error) {
	load := func(ctx context.Context) (any, error) {
		list, err := s.repo.InvoicesForStatistics(ctx, filter)
		if err != nil {
			return nil, err
		}
		return Summarize(list, s.loc), nil
	}

	key, err := s.cache.Key(ctx, filter)
	if err != nil {
		s.logger.Warn("stats cache unavailable", slog.Any("error", err))
		key = filterToken(filter)
	}

	// The shared load outlives any single caller; each caller still stops
	// waiting when its own context ends.
	shared := context.WithoutCancel(ctx)
	resultCh := s.group.DoChan(key, func() (any, error) {
		ctx := shared
		var summary Summary
		var loadErr error
		err := s.cache.FetchJSON(ctx, key, &summary, func(ctx context.Context) (any, error) {
			v, err := load(ctx)
			loadErr = err
			return v, err
		})
		if err == nil {
			return summary, nil
		}
		if loadErr != nil {
			return nil, loadErr
		}
		s.logger.Warn("stats cache read failed, loading directly", slog.Any("error", err))
		v, err := load(ctx)
		if err != nil {
			return nil, err
		}
		return v, nil
	})
	select {
	case <-ctx.Done():
		return Summary{}, ctx.Err()
	case res := <-resultCh:
		if res.Err != nil {
			return Summary{}, res.Err
		}
		return res.Val.(Summary), nil
	}
}

func (s *Service) requireCustomer(ctx context.Context, id uuid.UUID) error {
	ok, err := s.customers.Exists(ctx, id)
	if err != nil {
		return fmt.Errorf("lookup customer: %w", err)
	}
	if !ok {
		return ErrCustomerNotFound
	}
	return nil
}

func (s *Service) changed(ctx context.Context, event string) {
	if s.recorder != nil {
		s.recorder.RecordInvoiceEvent(event)
	}
	if err := s.cache.Bump(ctx); err != nil {
		s.logger.Warn("stats cache bump failed", slog.Any("error", err))
	}
}

func buildLineItems(inputs []LineItemInput) ([]LineItem, error) {
	items := make([]LineItem, 0, len(inputs))
	for i, in := range inputs {
		if !in.ServiceType.Valid() {
			return nil, fmt.Errorf("%w: line %d: unknown service type %q", ErrInvalidInput, i+1, in.ServiceType)
		}
		price := billing.RoundPrice(in.UnitPrice)
		if err := billing.ValidateLine(in.Quantity, price); err != nil {
			return nil, fmt.Errorf("%w: line %d: %w", ErrInvalidInput, i+1, err)
		}
		items = append(items, LineItem{
			ID:          uuid.New(),
			ServiceType: in.ServiceType,
			Description: strings.TrimSpace(in.Description),
			Quantity:    in.Quantity,
			UnitPrice:   price,
			TotalPrice:  billing.LineItemTotal(in.Quantity, price),
		})
	}
	return items, nil
}

func applyTotals(inv *Invoice) {
	lines := make([]billing.Line, len(inv.LineItems))
	for i, item := range inv.LineItems {
		lines[i] = billing.Line{Quantity: item.Quantity, UnitPrice: item.UnitPrice}
	}
	totals := billing.InvoiceTotals(lines, billing.TaxRates{GST: inv.GSTRate, PST: inv.PSTRate})
	inv.Subtotal = totals.Subtotal
	inv.GSTAmount = totals.GSTAmount
	inv.PSTAmount = totals.PSTAmount
	inv.Total = totals.Total
}

func trimmed(s *string) *string {
	if s == nil {
		return nil
	}
	v := strings.TrimSpace(*s)
	if v == "" {
		return nil
	}
	return &v
}
