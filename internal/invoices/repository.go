package invoices

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/boardworks/boardworks/internal/platform/db"
)

// Repository is the persistence port of the lifecycle manager.
type Repository interface {
	WithTx(ctx context.Context, fn func(context.Context, TxRepository) error) error
	GetInvoice(ctx context.Context, id uuid.UUID) (*Invoice, error)
	ListInvoices(ctx context.Context, req ListInvoicesRequest) ([]Invoice, int, error)
	InvoicesForStatistics(ctx context.Context, filter StatisticsFilter) ([]Invoice, error)
	MarkOverdue(ctx context.Context, dueBefore time.Time) (int64, error)
}

// TxRepository exposes transactional operations.
type TxRepository interface {
	NextInvoiceNumber(ctx context.Context, regionID uuid.UUID) (Sequence, error)
	LockInvoice(ctx context.Context, id uuid.UUID) (*Invoice, error)
	InsertInvoice(ctx context.Context, inv *Invoice) error
	UpdateInvoice(ctx context.Context, inv *Invoice) error
	ReplaceLineItems(ctx context.Context, invoiceID uuid.UUID, items []LineItem) error
	DeleteInvoice(ctx context.Context, id uuid.UUID) error
}

// PGRepository provides PostgreSQL backed persistence for invoices.
type PGRepository struct {
	pool *pgxpool.Pool
}

// NewRepository constructs a repository.
func NewRepository(pool *pgxpool.Pool) *PGRepository {
	return &PGRepository{pool: pool}
}

type txRepo struct {
	tx pgx.Tx
}

// WithTx runs fn in a read-committed transaction. Under read committed the
// sequence upsert waits for a concurrent holder of the region row and then
// increments the committed value instead of failing with a serialization error.
func (r *PGRepository) WithTx(ctx context.Context, fn func(context.Context, TxRepository) error) error {
	return db.WithTxOptions(ctx, r.pool, pgx.TxOptions{IsoLevel: pgx.ReadCommitted}, func(tx pgx.Tx) error {
		return fn(ctx, &txRepo{tx: tx})
	})
}

const invoiceColumns = `
	i.id, i.invoice_number, i.display_number, i.region_id, i.customer_id, COALESCE(c.name, ''),
	i.invoice_date, i.due_date, i.paid_date, i.sent_at, i.sent_to, i.status,
	i.subtotal, i.gst_rate, i.pst_rate, i.gst_amount, i.pst_amount, i.total,
	i.payment_terms_days, i.payment_method, i.notes, i.created_at, i.updated_at`

const invoiceFrom = `FROM invoices i LEFT JOIN customers c ON c.id = i.customer_id`

func scanInvoice(row pgx.Row) (*Invoice, error) {
	var inv Invoice
	err := row.Scan(
		&inv.ID, &inv.InvoiceNumber, &inv.DisplayNumber, &inv.RegionID, &inv.CustomerID, &inv.CustomerName,
		&inv.InvoiceDate, &inv.DueDate, &inv.PaidDate, &inv.SentAt, &inv.SentTo, &inv.Status,
		&inv.Subtotal, &inv.GSTRate, &inv.PSTRate, &inv.GSTAmount, &inv.PSTAmount, &inv.Total,
		&inv.PaymentTermsDays, &inv.PaymentMethod, &inv.Notes, &inv.CreatedAt, &inv.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &inv, nil
}

func getInvoice(ctx context.Context, q db.Querier, id uuid.UUID, lock bool) (*Invoice, error) {
	query := `SELECT ` + invoiceColumns + ` ` + invoiceFrom + ` WHERE i.id = $1`
	if lock {
		query += ` FOR UPDATE OF i`
	}
	inv, err := scanInvoice(q.QueryRow(ctx, query, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrInvoiceNotFound
		}
		return nil, fmt.Errorf("get invoice: %w", err)
	}
	items, err := loadLineItems(ctx, q, []uuid.UUID{inv.ID})
	if err != nil {
		return nil, err
	}
	inv.LineItems = items[inv.ID]
	return inv, nil
}

func loadLineItems(ctx context.Context, q db.Querier, invoiceIDs []uuid.UUID) (map[uuid.UUID][]LineItem, error) {
	out := make(map[uuid.UUID][]LineItem, len(invoiceIDs))
	if len(invoiceIDs) == 0 {
		return out, nil
	}
	rows, err := q.Query(ctx, `
		SELECT invoice_id, id, service_type, description, quantity, unit_price, total_price
		FROM invoice_line_items
		WHERE invoice_id = ANY($1)
		ORDER BY invoice_id, position`, invoiceIDs)
	if err != nil {
		return nil, fmt.Errorf("load line items: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var invoiceID uuid.UUID
		var item LineItem
		if err := rows.Scan(&invoiceID, &item.ID, &item.ServiceType, &item.Description, &item.Quantity, &item.UnitPrice, &item.TotalPrice); err != nil {
			return nil, err
		}
		out[invoiceID] = append(out[invoiceID], item)
	}
	return out, rows.Err()
}

func (r *PGRepository) GetInvoice(ctx context.Context, id uuid.UUID) (*Invoice, error) {
	return getInvoice(ctx, r.pool, id, false)
}

func (r *PGRepository) ListInvoices(ctx context.Context, req ListInvoicesRequest) ([]Invoice, int, error) {
	var conditions []string
	var args []any
	argPos := 1

	add := func(cond string, arg any) {
		conditions = append(conditions, fmt.Sprintf(cond, argPos))
		args = append(args, arg)
		argPos++
	}
	if req.Status != nil {
		add("i.status = $%d", string(*req.Status))
	}
	if req.CustomerID != nil {
		add("i.customer_id = $%d", *req.CustomerID)
	}
	if req.RegionID != nil {
		add("i.region_id = $%d", *req.RegionID)
	}
	if req.From != nil {
		add("i.invoice_date >= $%d", *req.From)
	}
	if req.To != nil {
		add("i.invoice_date < $%d", *req.To)
	}
	if req.MinTotal != nil {
		add("i.total >= $%d", *req.MinTotal)
	}
	if req.MaxTotal != nil {
		add("i.total <= $%d", *req.MaxTotal)
	}
	if req.Search != "" {
		conditions = append(conditions, fmt.Sprintf("(i.display_number ILIKE $%d OR c.name ILIKE $%d)", argPos, argPos))
		args = append(args, "%"+req.Search+"%")
		argPos++
	}

	whereClause := ""
	if len(conditions) > 0 {
		whereClause = "WHERE " + strings.Join(conditions, " AND ")
	}

	var total int
	if err := r.pool.QueryRow(ctx, "SELECT COUNT(*) "+invoiceFrom+" "+whereClause, args...).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("count invoices: %w", err)
	}

	order := "DESC"
	if req.Sort == SortOldestFirst {
		order = "ASC"
	}
	query := fmt.Sprintf(`SELECT %s %s %s ORDER BY i.invoice_date %s, i.invoice_number %s LIMIT $%d OFFSET $%d`,
		invoiceColumns, invoiceFrom, whereClause, order, order, argPos, argPos+1)
	args = append(args, req.Limit, req.Offset)

	list, err := r.queryInvoices(ctx, query, args...)
	if err != nil {
		return nil, 0, err
	}
	return list, total, nil
}

func (r *PGRepository) InvoicesForStatistics(ctx context.Context, filter StatisticsFilter) ([]Invoice, error) {
	var conditions []string
	var args []any
	if filter.RegionID != nil {
		args = append(args, *filter.RegionID)
		conditions = append(conditions, fmt.Sprintf("i.region_id = $%d", len(args)))
	}
	if filter.From != nil {
		args = append(args, *filter.From)
		conditions = append(conditions, fmt.Sprintf("i.invoice_date >= $%d", len(args)))
	}
	if filter.To != nil {
		args = append(args, *filter.To)
		conditions = append(conditions, fmt.Sprintf("i.invoice_date < $%d", len(args)))
	}
	whereClause := ""
	if len(conditions) > 0 {
		whereClause = "WHERE " + strings.Join(conditions, " AND ")
	}
	query := `SELECT ` + invoiceColumns + ` ` + invoiceFrom + ` ` + whereClause + ` ORDER BY i.invoice_date`
	return r.queryInvoices(ctx, query, args...)
}

func (r *PGRepository) queryInvoices(ctx context.Context, query string, args ...any) ([]Invoice, error) {
	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query invoices: %w", err)
	}
	var list []Invoice
	var ids []uuid.UUID
	for rows.Next() {
		inv, err := scanInvoice(rows)
		if err != nil {
			rows.Close()
			return nil, err
		}
		list = append(list, *inv)
		ids = append(ids, inv.ID)
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return nil, err
	}

	items, err := loadLineItems(ctx, r.pool, ids)
	if err != nil {
		return nil, err
	}
	for i := range list {
		list[i].LineItems = items[list[i].ID]
	}
	return list, nil
}

// MarkOverdue moves every SENT invoice due before dueBefore to OVERDUE in one
// statement.
func (r *PGRepository) MarkOverdue(ctx context.Context, dueBefore time.Time) (int64, error) {
	tag, err := r.pool.Exec(ctx, `
		UPDATE invoices
		SET status = 'OVERDUE', updated_at = now()
		WHERE status = 'SENT' AND due_date < $1`, dueBefore)
	if err != nil {
		return 0, fmt.Errorf("mark overdue: %w", err)
	}
	return tag.RowsAffected(), nil
}

// NextInvoiceNumber atomically creates or increments the region's sequence row.
// The row lock taken by the upsert is held until the transaction ends.
func (t *txRepo) NextInvoiceNumber(ctx context.Context, regionID uuid.UUID) (Sequence, error) {
	seq := Sequence{RegionID: regionID}
	err := t.tx.QueryRow(ctx, `
		INSERT INTO invoice_sequences (region_id, last_number)
		VALUES ($1, $2)
		ON CONFLICT (region_id) DO UPDATE
		SET last_number = invoice_sequences.last_number + 1, updated_at = now()
		RETURNING last_number, prefix, suffix`, regionID, FirstInvoiceNumber).Scan(&seq.LastNumber, &seq.Prefix, &seq.Suffix)
	if err != nil {
		return Sequence{}, fmt.Errorf("allocate invoice number: %w", err)
	}
	return seq, nil
}

func (t *txRepo) LockInvoice(ctx context.Context, id uuid.UUID) (*Invoice, error) {
	return getInvoice(ctx, t.tx, id, true)
}

func (t *txRepo) InsertInvoice(ctx context.Context, inv *Invoice) error {
	_, err := t.tx.Exec(ctx, `
		INSERT INTO invoices (
			id, invoice_number, display_number, region_id, customer_id,
			invoice_date, due_date, paid_date, sent_at, sent_to, status,
			subtotal, gst_rate, pst_rate, gst_amount, pst_amount, total,
			payment_terms_days, payment_method, notes, created_at, updated_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, $17, $18, $19, $20, $21, $22)`,
		inv.ID, inv.InvoiceNumber, inv.DisplayNumber, inv.RegionID, inv.CustomerID,
		inv.InvoiceDate, inv.DueDate, inv.PaidDate, inv.SentAt, inv.SentTo, string(inv.Status),
		inv.Subtotal, inv.GSTRate, inv.PSTRate, inv.GSTAmount, inv.PSTAmount, inv.Total,
		inv.PaymentTermsDays, paymentMethodArg(inv.PaymentMethod), inv.Notes, inv.CreatedAt, inv.UpdatedAt,
	)
	if err != nil {
		if db.IsForeignKeyViolation(err) {
			return ErrCustomerNotFound
		}
		return fmt.Errorf("insert invoice: %w", err)
	}
	return t.ReplaceLineItems(ctx, inv.ID, inv.LineItems)
}

func (t *txRepo) UpdateInvoice(ctx context.Context, inv *Invoice) error {
	tag, err := t.tx.Exec(ctx, `
		UPDATE invoices SET
			customer_id = $2, invoice_date = $3, due_date = $4, paid_date = $5,
			sent_at = $6, sent_to = $7, status = $8,
			subtotal = $9, gst_rate = $10, pst_rate = $11, gst_amount = $12, pst_amount = $13, total = $14,
			payment_method = $15, notes = $16, updated_at = $17
		WHERE id = $1`,
		inv.ID, inv.CustomerID, inv.InvoiceDate, inv.DueDate, inv.PaidDate,
		inv.SentAt, inv.SentTo, string(inv.Status),
		inv.Subtotal, inv.GSTRate, inv.PSTRate, inv.GSTAmount, inv.PSTAmount, inv.Total,
		paymentMethodArg(inv.PaymentMethod), inv.Notes, inv.UpdatedAt,
	)
	if err != nil {
		if db.IsForeignKeyViolation(err) {
			return ErrCustomerNotFound
		}
		return fmt.Errorf("update invoice: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrInvoiceNotFound
	}
	return nil
}

func (t *txRepo) ReplaceLineItems(ctx context.Context, invoiceID uuid.UUID, items []LineItem) error {
	if _, err := t.tx.Exec(ctx, `DELETE FROM invoice_line_items WHERE invoice_id = $1`, invoiceID); err != nil {
		return fmt.Errorf("clear line items: %w", err)
	}
	if len(items) == 0 {
		return nil
	}
	batch := &pgx.Batch{}
	for i, item := range items {
		batch.Queue(`
			INSERT INTO invoice_line_items (id, invoice_id, position, service_type, description, quantity, unit_price, total_price)
			VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`,
			item.ID, invoiceID, i, string(item.ServiceType), item.Description, item.Quantity, item.UnitPrice, item.TotalPrice)
	}
	if err := t.tx.SendBatch(ctx, batch).Close(); err != nil {
		return fmt.Errorf("insert line items: %w", err)
	}
	return nil
}

func (t *txRepo) DeleteInvoice(ctx context.Context, id uuid.UUID) error {
	tag, err := t.tx.Exec(ctx, `DELETE FROM invoices WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("delete invoice: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrInvoiceNotFound
	}
	return nil
}

func paymentMethodArg(m *PaymentMethod) *string {
	if m == nil {
		return nil
	}
	s := string(*m)
	return &s
}
