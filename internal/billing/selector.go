package billing

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/lagerhof/lagerhof/internal/identity"
	"github.com/lagerhof/lagerhof/internal/platform/rowstore"
	"github.com/lagerhof/lagerhof/internal/rentals"
)

// unpaidStatuses are the payment states that still owe money. Overdue rows
// are unpaid rows that additionally missed a due date, so they bill the same.
var unpaidStatuses = []string{"unpaid", "overdue"}

// RowStore is the subset of the row store the selector needs. Rental rows
// are always read live; stale unpaid flags on an invoice are a correctness
// problem, so nothing here is ever cached.
type RowStore interface {
	Columns(ctx context.Context, table string) ([]string, error)
	Select(ctx context.Context, table string, filters []rowstore.Filter) ([]string, []rowstore.Row, error)
}

// SchemaGapRecorder counts rental tables that had to be skipped for lack of
// a safe column. Implemented by observability.Metrics.
type SchemaGapRecorder interface {
	SchemaGap(table, missing string)
}

// Selector retrieves the unpaid rental rows that can be attributed to one
// customer without risk of pulling in someone else's charges. Attribution
// uses exactly one signal: the explicit customer link when present,
// otherwise an exact email match. Name matching, substring matching and
// secondary-contact fields are deliberately never consulted; a missed charge
// is recoverable, a leaked one is not.
type Selector struct {
	store   RowStore
	logger  *slog.Logger
	metrics SchemaGapRecorder
}

// NewSelector constructs a Selector. metrics may be nil.
func NewSelector(store RowStore, logger *slog.Logger, metrics SchemaGapRecorder) *Selector {
	return &Selector{store: store, logger: logger, metrics: metrics}
}

// UnpaidLineItems assembles the billable line items for a customer, units
// first, then pallet slots. A table lacking a payment-status column or any
// usable identity column contributes zero rows; that absence is a schema
// gap, never permission for a broader scan.
func (s *Selector) UnpaidLineItems(ctx context.Context, c *identity.Customer) ([]LineItem, error) {
	var items []LineItem
	for _, src := range rentals.Sources() {
		tableItems, err := s.selectFromSource(ctx, src, c)
		if err != nil {
			return nil, err
		}
		items = append(items, tableItems...)
	}
	return items, nil
}

func (s *Selector) selectFromSource(ctx context.Context, src rentals.Source, c *identity.Customer) ([]LineItem, error) {
	cols, err := s.store.Columns(ctx, src.Table)
	if err != nil {
		if rowstore.UndefinedTable(err) {
			s.skip(src.Table, "table")
			return nil, nil
		}
		return nil, fmt.Errorf("billing: inspect %s: %w", src.Table, err)
	}

	statusCol, ok := rentals.Resolve(cols, rentals.PaymentStatusColumns)
	if !ok {
		s.skip(src.Table, "payment status column")
		return nil, nil
	}
	filters := []rowstore.Filter{{Column: statusCol, Op: rowstore.OpIn, Values: unpaidStatuses}}

	// One identity signal, strict priority, never combined. The explicit
	// link is authoritative when it exists; without it only an exact email
	// match is trustworthy enough for invoice attribution.
	idCol, hasIDCol := rentals.Resolve(cols, rentals.CustomerIDColumns)
	emailCol, hasEmailCol := rentals.Resolve(cols, rentals.ContactEmailColumns)
	email := identity.NormalizeEmail(c.Email)
	switch {
	case hasIDCol && c.ID > 0:
		filters = append(filters, rowstore.Filter{Column: idCol, Op: rowstore.OpEq, Value: c.ID})
	case hasEmailCol && email != "":
		filters = append(filters, rowstore.Filter{Column: emailCol, Op: rowstore.OpIEq, Value: email})
	default:
		s.skip(src.Table, "identity column")
		return nil, nil
	}

	rowCols, rows, err := s.store.Select(ctx, src.Table, filters)
	if err != nil {
		return nil, fmt.Errorf("billing: select unpaid from %s: %w", src.Table, err)
	}

	items := make([]LineItem, 0, len(rows))
	for _, row := range rows {
		items = append(items, s.lineItem(src, rowCols, row))
	}
	return items, nil
}

func (s *Selector) lineItem(src rentals.Source, cols []string, row rowstore.Row) LineItem {
	from, _ := rentals.ParseDate(rentals.First(row, rentals.PeriodFromColumns))
	until, _ := rentals.ParseDate(rentals.First(row, rentals.PeriodUntilColumns))

	months, monthsOK := OccupiedMonths(from, until)
	price := resolvePrice(cols, row)

	item := LineItem{
		Type:        LineItemType(src.Type),
		Name:        rentals.First(row, rentals.LabelColumns(src.Type)),
		PeriodFrom:  from,
		PeriodUntil: until,
		Qty:         1,
		UnitPrice:   price,
	}
	if monthsOK {
		item.Months = &months
	}
	item.Subtotal = round2(price * float64(chargeMonths(months, monthsOK)) * float64(item.Qty))
	return item
}

// resolvePrice finds the monthly rate for a row. Known price columns are
// tried in order; when none holds a positive number the last positive
// numeric cell in the row is taken instead. That fallback is a documented
// legacy heuristic for pre-migration rows without a recognized rate column,
// not a verified pricing rule.
func resolvePrice(cols []string, row rowstore.Row) float64 {
	for _, cand := range rentals.PriceColumns {
		if v, ok := rentals.ParsePrice(row[cand]); ok && v > 0 {
			return v
		}
	}
	for i := len(cols) - 1; i >= 0; i-- {
		if v, ok := rentals.ParsePrice(row[cols[i]]); ok && v > 0 {
			return v
		}
	}
	return 0
}

func (s *Selector) skip(table, missing string) {
	s.logger.Warn("rental table skipped for invoicing",
		slog.String("table", table),
		slog.String("missing", missing))
	if s.metrics != nil {
		s.metrics.SchemaGap(table, missing)
	}
}
