package rentals

import (
	"context"
	"log/slog"

	"github.com/lagerhof/lagerhof/internal/platform/rowstore"
)

// RowStore is the subset of the row store the fetcher needs.
type RowStore interface {
	Select(ctx context.Context, table string, filters []rowstore.Filter) ([]string, []rowstore.Row, error)
}

// Table is one fetched rental source: its live rows plus the column order
// they were read in.
type Table struct {
	Source  Source
	Columns []string
	Rows    []rowstore.Row
}

// Fetcher reads live rental rows. A source table that does not exist in this
// installation degrades to an empty table with a warning; anything else
// (storage unreachable, permission failure) propagates.
type Fetcher struct {
	store  RowStore
	logger *slog.Logger
}

// NewFetcher constructs a Fetcher.
func NewFetcher(store RowStore, logger *slog.Logger) *Fetcher {
	return &Fetcher{store: store, logger: logger}
}

// Fetch reads every row of the given source.
func (f *Fetcher) Fetch(ctx context.Context, src Source) (Table, error) {
	cols, rows, err := f.store.Select(ctx, src.Table, nil)
	if err != nil {
		if rowstore.UndefinedTable(err) {
			f.logger.Warn("rental source table missing, treating as empty",
				slog.String("table", src.Table))
			return Table{Source: src}, nil
		}
		return Table{}, err
	}
	return Table{Source: src, Columns: cols, Rows: rows}, nil
}
