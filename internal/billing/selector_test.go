package billing

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"strings"
	"testing"

	"github.com/jackc/pgx/v5/pgconn"
	"github.com/stretchr/testify/require"

	"github.com/lagerhof/lagerhof/internal/identity"
	"github.com/lagerhof/lagerhof/internal/platform/rowstore"
)

type fakeTable struct {
	cols []string
	rows []rowstore.Row
}

type fakeStore struct {
	tables map[string]fakeTable
}

func (s *fakeStore) Columns(ctx context.Context, table string) ([]string, error) {
	t, ok := s.tables[table]
	if !ok {
		return nil, &pgconn.PgError{Code: "42P01"}
	}
	return t.cols, nil
}

func (s *fakeStore) Select(ctx context.Context, table string, filters []rowstore.Filter) ([]string, []rowstore.Row, error) {
	t, ok := s.tables[table]
	if !ok {
		return nil, nil, &pgconn.PgError{Code: "42P01"}
	}
	var out []rowstore.Row
	for _, row := range t.rows {
		if matchesAll(row, filters) {
			out = append(out, row)
		}
	}
	return t.cols, out, nil
}

func matchesAll(row rowstore.Row, filters []rowstore.Filter) bool {
	for _, f := range filters {
		cell := row[f.Column]
		switch f.Op {
		case rowstore.OpEq:
			if cell != fmt.Sprint(f.Value) {
				return false
			}
		case rowstore.OpIEq:
			if !strings.EqualFold(cell, fmt.Sprint(f.Value)) {
				return false
			}
		case rowstore.OpIn:
			found := false
			for _, v := range f.Values {
				if cell == v {
					found = true
					break
				}
			}
			if !found {
				return false
			}
		default:
			return false
		}
	}
	return true
}

func newTestSelector(store RowStore) *Selector {
	return NewSelector(store, slog.New(slog.NewTextHandler(io.Discard, nil)), nil)
}

var unitCols = []string{"id", "unit_number", "customer_id", "primary_contact_email", "payment_status", "period_from", "period_until", "monthly_rate"}

func TestUnpaidLineItemsNeverLeakAcrossCustomers(t *testing.T) {
	// Same name, different emails; only one row is explicitly linked.
	customerA := &identity.Customer{ID: 0, Name: "Jan Kowalski", Email: "a@x.com"}
	customerB := &identity.Customer{ID: 2, Name: "Jan Kowalski", Email: "b@x.com"}

	store := &fakeStore{tables: map[string]fakeTable{
		"storage_units": {
			cols: unitCols,
			rows: []rowstore.Row{
				{"id": "10", "unit_number": "U-A", "customer_id": "", "primary_contact_email": "a@x.com", "payment_status": "unpaid", "monthly_rate": "50"},
				{"id": "11", "unit_number": "U-B", "customer_id": "2", "primary_contact_email": "b@x.com", "payment_status": "unpaid", "monthly_rate": "60"},
			},
		},
	}}
	sel := newTestSelector(store)

	itemsA, err := sel.UnpaidLineItems(context.Background(), customerA)
	require.NoError(t, err)
	require.Len(t, itemsA, 1)
	require.Equal(t, "U-A", itemsA[0].Name)

	itemsB, err := sel.UnpaidLineItems(context.Background(), customerB)
	require.NoError(t, err)
	require.Len(t, itemsB, 1)
	require.Equal(t, "U-B", itemsB[0].Name)
}

func TestUnpaidLineItemsUsesLinkedIDOverEmail(t *testing.T) {
	// The explicit link is authoritative: an email-only match on another
	// row must not be consulted once the customer id is known.
	customer := &identity.Customer{ID: 7, Name: "Anna Berg", Email: "a@x.com"}

	store := &fakeStore{tables: map[string]fakeTable{
		"storage_units": {
			cols: unitCols,
			rows: []rowstore.Row{
				{"id": "1", "unit_number": "U-LINKED", "customer_id": "7", "primary_contact_email": "other@x.com", "payment_status": "unpaid", "monthly_rate": "40"},
				{"id": "2", "unit_number": "U-EMAIL", "customer_id": "", "primary_contact_email": "a@x.com", "payment_status": "unpaid", "monthly_rate": "45"},
			},
		},
	}}
	sel := newTestSelector(store)

	items, err := sel.UnpaidLineItems(context.Background(), customer)
	require.NoError(t, err)
	require.Len(t, items, 1)
	require.Equal(t, "U-LINKED", items[0].Name)
}

func TestUnpaidLineItemsEmailMatchIsExactCaseInsensitive(t *testing.T) {
	customer := &identity.Customer{Name: "Anna Berg", Email: "Anna@X.com"}

	store := &fakeStore{tables: map[string]fakeTable{
		"storage_units": {
			cols: unitCols,
			rows: []rowstore.Row{
				{"id": "1", "unit_number": "U-1", "primary_contact_email": "ANNA@x.COM", "payment_status": "unpaid", "monthly_rate": "30"},
				{"id": "2", "unit_number": "U-2", "primary_contact_email": "anna@x.com.example.org", "payment_status": "unpaid", "monthly_rate": "30"},
			},
		},
	}}
	sel := newTestSelector(store)

	items, err := sel.UnpaidLineItems(context.Background(), customer)
	require.NoError(t, err)
	require.Len(t, items, 1)
	require.Equal(t, "U-1", items[0].Name)
}

func TestUnpaidLineItemsSkipsTableWithoutPaymentStatus(t *testing.T) {
	customer := &identity.Customer{ID: 7, Email: "a@x.com"}

	store := &fakeStore{tables: map[string]fakeTable{
		"storage_units": {
			cols: []string{"id", "unit_number", "customer_id", "primary_contact_email", "monthly_rate"},
			rows: []rowstore.Row{
				{"id": "1", "unit_number": "U-1", "customer_id": "7", "primary_contact_email": "a@x.com", "monthly_rate": "30"},
			},
		},
	}}
	sel := newTestSelector(store)

	items, err := sel.UnpaidLineItems(context.Background(), customer)
	require.NoError(t, err)
	require.Empty(t, items)
}

func TestUnpaidLineItemsSkipsTableWithoutIdentitySignal(t *testing.T) {
	// No customer_id column and no usable email on the customer: nothing
	// may be selected, name matching is out of bounds.
	customer := &identity.Customer{ID: 7, Name: "Anna Berg"}

	store := &fakeStore{tables: map[string]fakeTable{
		"storage_units": {
			cols: []string{"id", "unit_number", "primary_contact_name", "payment_status", "monthly_rate"},
			rows: []rowstore.Row{
				{"id": "1", "unit_number": "U-1", "primary_contact_name": "Anna Berg", "payment_status": "unpaid", "monthly_rate": "30"},
			},
		},
	}}
	sel := newTestSelector(store)

	items, err := sel.UnpaidLineItems(context.Background(), customer)
	require.NoError(t, err)
	require.Empty(t, items)
}

func TestUnpaidLineItemsIncludesOverdueExcludesPaid(t *testing.T) {
	customer := &identity.Customer{ID: 3, Email: "a@x.com"}

	store := &fakeStore{tables: map[string]fakeTable{
		"storage_units": {
			cols: unitCols,
			rows: []rowstore.Row{
				{"id": "1", "unit_number": "U-1", "customer_id": "3", "payment_status": "unpaid", "monthly_rate": "30"},
				{"id": "2", "unit_number": "U-2", "customer_id": "3", "payment_status": "overdue", "monthly_rate": "30"},
				{"id": "3", "unit_number": "U-3", "customer_id": "3", "payment_status": "paid", "monthly_rate": "30"},
			},
		},
	}}
	sel := newTestSelector(store)

	items, err := sel.UnpaidLineItems(context.Background(), customer)
	require.NoError(t, err)
	require.Len(t, items, 2)
	require.Equal(t, "U-1", items[0].Name)
	require.Equal(t, "U-2", items[1].Name)
}

func TestUnpaidLineItemsComputesMonthsAndSubtotal(t *testing.T) {
	customer := &identity.Customer{ID: 3, Email: "a@x.com"}

	store := &fakeStore{tables: map[string]fakeTable{
		"storage_units": {
			cols: unitCols,
			rows: []rowstore.Row{
				{"id": "1", "unit_number": "U-1", "customer_id": "3", "payment_status": "unpaid",
					"period_from": "2024-01-31", "period_until": "2024-02-01", "monthly_rate": "49.90"},
				{"id": "2", "unit_number": "U-2", "customer_id": "3", "payment_status": "unpaid",
					"period_from": "", "period_until": "", "monthly_rate": "30"},
			},
		},
	}}
	sel := newTestSelector(store)

	items, err := sel.UnpaidLineItems(context.Background(), customer)
	require.NoError(t, err)
	require.Len(t, items, 2)

	require.NotNil(t, items[0].Months)
	require.Equal(t, 2, *items[0].Months)
	require.InDelta(t, 99.80, items[0].Subtotal, 0.001)

	// Unknown period bills a single month.
	require.Nil(t, items[1].Months)
	require.InDelta(t, 30.0, items[1].Subtotal, 0.001)
}

func TestUnpaidLineItemsPriceFallsBackToLastPositiveNumericCell(t *testing.T) {
	customer := &identity.Customer{ID: 3, Email: "a@x.com"}

	// Legacy row without a recognized rate column; the last positive
	// numeric cell wins.
	store := &fakeStore{tables: map[string]fakeTable{
		"storage_units": {
			cols: []string{"id", "unit_number", "customer_id", "payment_status", "deposit", "legacy_fee"},
			rows: []rowstore.Row{
				{"id": "1", "unit_number": "U-1", "customer_id": "3", "payment_status": "unpaid",
					"deposit": "100", "legacy_fee": "55.50"},
			},
		},
	}}
	sel := newTestSelector(store)

	items, err := sel.UnpaidLineItems(context.Background(), customer)
	require.NoError(t, err)
	require.Len(t, items, 1)
	require.InDelta(t, 55.50, items[0].UnitPrice, 0.001)
}

func TestUnpaidLineItemsMissingTableContributesNothing(t *testing.T) {
	customer := &identity.Customer{ID: 3, Email: "a@x.com"}
	sel := newTestSelector(&fakeStore{tables: map[string]fakeTable{}})

	items, err := sel.UnpaidLineItems(context.Background(), customer)
	require.NoError(t, err)
	require.Empty(t, items)
}
