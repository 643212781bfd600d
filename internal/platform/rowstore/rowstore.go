// Package rowstore provides generic, schema-inspecting row access over
// PostgreSQL. Rental source tables vary between installations, so callers
// discover the column set first and build predicates against columns that
// actually exist.
package rowstore

import (
	"context"
	"database/sql/driver"
	"errors"
	"fmt"
	"regexp"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
)

// Row is one table row with every value rendered as text. Absent (NULL)
// columns are present with an empty value.
type Row map[string]string

// Op enumerates supported predicate operators.
type Op string

const (
	// OpEq compares with exact equality.
	OpEq Op = "eq"
	// OpIEq compares case-insensitively via lower().
	OpIEq Op = "ieq"
	// OpIn matches any of the listed values.
	OpIn Op = "in"
)

// Filter is one predicate term; terms are combined with AND.
type Filter struct {
	Column string
	Op     Op
	Value  any
	Values []string
}

var identPattern = regexp.MustCompile(`^[a-z_][a-z0-9_]*$`)

// ErrBadIdentifier is returned when a table or column name fails validation.
var ErrBadIdentifier = fmt.Errorf("rowstore: invalid identifier")

// Store executes generic reads and writes against a PostgreSQL pool.
type Store struct {
	pool *pgxpool.Pool
}

// New constructs a Store.
func New(pool *pgxpool.Pool) *Store {
	return &Store{pool: pool}
}

// UndefinedTable reports whether err is the PostgreSQL undefined-table error.
func UndefinedTable(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == "42P01"
}

// UniqueViolation reports whether err is the PostgreSQL unique-violation error.
func UniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == "23505"
}

func checkIdent(name string) error {
	if !identPattern.MatchString(name) {
		return fmt.Errorf("%w: %q", ErrBadIdentifier, name)
	}
	return nil
}

// Columns lists the column names of table in ordinal order.
func (s *Store) Columns(ctx context.Context, table string) ([]string, error) {
	if err := checkIdent(table); err != nil {
		return nil, err
	}
	const query = `
		SELECT column_name
		FROM information_schema.columns
		WHERE table_schema = current_schema() AND table_name = $1
		ORDER BY ordinal_position`
	rows, err := s.pool.Query(ctx, query, table)
	if err != nil {
		return nil, fmt.Errorf("rowstore: columns of %s: %w", table, err)
	}
	defer rows.Close()

	var cols []string
	for rows.Next() {
		var name string
		if err := rows.Scan(&name); err != nil {
			return nil, fmt.Errorf("rowstore: scan column name: %w", err)
		}
		cols = append(cols, name)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("rowstore: columns of %s: %w", table, err)
	}
	return cols, nil
}

// Select reads all rows of table matching the given filters. It returns the
// column order alongside the rows because some callers scan cells
// positionally. Every value is rendered to text; identifiers are validated
// and values travel as bind parameters.
func (s *Store) Select(ctx context.Context, table string, filters []Filter) ([]string, []Row, error) {
	if err := checkIdent(table); err != nil {
		return nil, nil, err
	}
	var (
		where strings.Builder
		args  []any
	)
	for i, f := range filters {
		if err := checkIdent(f.Column); err != nil {
			return nil, nil, err
		}
		if i == 0 {
			where.WriteString(" WHERE ")
		} else {
			where.WriteString(" AND ")
		}
		switch f.Op {
		case OpEq:
			args = append(args, f.Value)
			fmt.Fprintf(&where, "%s = $%d", f.Column, len(args))
		case OpIEq:
			args = append(args, f.Value)
			fmt.Fprintf(&where, "lower(%s::text) = lower($%d::text)", f.Column, len(args))
		case OpIn:
			placeholders := make([]string, 0, len(f.Values))
			for _, v := range f.Values {
				args = append(args, v)
				placeholders = append(placeholders, fmt.Sprintf("$%d", len(args)))
			}
			fmt.Fprintf(&where, "%s::text IN (%s)", f.Column, strings.Join(placeholders, ", "))
		default:
			return nil, nil, fmt.Errorf("rowstore: unsupported operator %q", f.Op)
		}
	}

	query := fmt.Sprintf("SELECT * FROM %s%s", table, where.String())
	rows, err := s.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, nil, fmt.Errorf("rowstore: select from %s: %w", table, err)
	}
	defer rows.Close()

	descs := rows.FieldDescriptions()
	cols := make([]string, len(descs))
	for i, d := range descs {
		cols[i] = string(d.Name)
	}

	var out []Row
	for rows.Next() {
		values, err := rows.Values()
		if err != nil {
			return nil, nil, fmt.Errorf("rowstore: read row from %s: %w", table, err)
		}
		row := make(Row, len(cols))
		for i, col := range cols {
			row[col] = renderValue(values[i])
		}
		out = append(out, row)
	}
	if err := rows.Err(); err != nil {
		return nil, nil, fmt.Errorf("rowstore: select from %s: %w", table, err)
	}
	return cols, out, nil
}

// Insert writes one row into table and returns the generated id when the
// table has one.
func (s *Store) Insert(ctx context.Context, table string, values map[string]any) (int64, error) {
	if err := checkIdent(table); err != nil {
		return 0, err
	}
	cols := make([]string, 0, len(values))
	for col := range values {
		if err := checkIdent(col); err != nil {
			return 0, err
		}
		cols = append(cols, col)
	}
	// Stable statement text for identical column sets.
	sortStrings(cols)

	placeholders := make([]string, len(cols))
	args := make([]any, len(cols))
	for i, col := range cols {
		placeholders[i] = fmt.Sprintf("$%d", i+1)
		args[i] = values[col]
	}
	query := fmt.Sprintf(
		"INSERT INTO %s (%s) VALUES (%s) RETURNING id",
		table, strings.Join(cols, ", "), strings.Join(placeholders, ", "),
	)
	var id int64
	if err := s.pool.QueryRow(ctx, query, args...).Scan(&id); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return 0, nil
		}
		return 0, fmt.Errorf("rowstore: insert into %s: %w", table, err)
	}
	return id, nil
}

// UpdateByID updates one row identified by its id column.
func (s *Store) UpdateByID(ctx context.Context, table string, id int64, values map[string]any) error {
	if err := checkIdent(table); err != nil {
		return err
	}
	cols := make([]string, 0, len(values))
	for col := range values {
		if err := checkIdent(col); err != nil {
			return err
		}
		cols = append(cols, col)
	}
	sortStrings(cols)

	sets := make([]string, len(cols))
	args := make([]any, 0, len(cols)+1)
	for i, col := range cols {
		args = append(args, values[col])
		sets[i] = fmt.Sprintf("%s = $%d", col, len(args))
	}
	args = append(args, id)
	query := fmt.Sprintf("UPDATE %s SET %s WHERE id = $%d", table, strings.Join(sets, ", "), len(args))
	tag, err := s.pool.Exec(ctx, query, args...)
	if err != nil {
		return fmt.Errorf("rowstore: update %s id=%d: %w", table, id, err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("rowstore: update %s id=%d: no row", table, id)
	}
	return nil
}

func renderValue(v any) string {
	if v == nil {
		return ""
	}
	switch t := v.(type) {
	case string:
		return t
	case []byte:
		return string(t)
	case bool:
		if t {
			return "true"
		}
		return "false"
	case float32:
		return strconv.FormatFloat(float64(t), 'f', -1, 32)
	case float64:
		return strconv.FormatFloat(t, 'f', -1, 64)
	case int64:
		return strconv.FormatInt(t, 10)
	case int32:
		return strconv.FormatInt(int64(t), 10)
	case int16:
		return strconv.FormatInt(int64(t), 10)
	case time.Time:
		return t.Format("2006-01-02 15:04:05")
	case driver.Valuer:
		dv, err := t.Value()
		if err != nil {
			return ""
		}
		return renderValue(dv)
	default:
		return fmt.Sprintf("%v", v)
	}
}

func sortStrings(s []string) {
	sort.Strings(s)
}
