package identity

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/lagerhof/lagerhof/internal/platform/rowstore"
	"github.com/lagerhof/lagerhof/internal/rentals"
)

var (
	// ErrNotFound indicates no customer matched the lookup.
	ErrNotFound = errors.New("identity: customer not found")
	// ErrDuplicateFingerprint indicates an insert raced another sync pass;
	// the caller retries the aggregate as an update.
	ErrDuplicateFingerprint = errors.New("identity: fingerprint already exists")
)

// Repository provides PostgreSQL backed persistence for customers.
type Repository struct {
	pool *pgxpool.Pool
}

// NewRepository constructs a repository.
func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

const customerColumns = `
	id, fingerprint, name, email, phone, whatsapp,
	secondary_name, secondary_email, secondary_phone,
	current_units, current_pallets, past_units, past_pallets,
	status, sources, created_at, updated_at`

func scanCustomer(row pgx.Row) (*Customer, error) {
	var (
		c       Customer
		sources []string
	)
	err := row.Scan(
		&c.ID, &c.Fingerprint, &c.Name, &c.Email, &c.Phone, &c.Whatsapp,
		&c.SecondaryName, &c.SecondaryEmail, &c.SecondaryPhone,
		&c.CurrentUnits, &c.CurrentPallets, &c.PastUnits, &c.PastPallets,
		&c.Status, &sources, &c.CreatedAt, &c.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	c.Sources = make([]rentals.SourceType, 0, len(sources))
	for _, s := range sources {
		c.Sources = append(c.Sources, rentals.SourceType(s))
	}
	return &c, nil
}

func sourceStrings(sources []rentals.SourceType) []string {
	out := make([]string, 0, len(sources))
	for _, s := range sources {
		out = append(out, string(s))
	}
	return out
}

// GetByID loads one customer by surrogate key.
func (r *Repository) GetByID(ctx context.Context, id int64) (*Customer, error) {
	query := fmt.Sprintf("SELECT %s FROM customers WHERE id = $1", customerColumns)
	c, err := scanCustomer(r.pool.QueryRow(ctx, query, id))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("identity: get customer %d: %w", id, err)
	}
	return c, nil
}

// GetByFingerprint loads one customer by identity key.
func (r *Repository) GetByFingerprint(ctx context.Context, fingerprint string) (*Customer, error) {
	query := fmt.Sprintf("SELECT %s FROM customers WHERE fingerprint = $1", customerColumns)
	c, err := scanCustomer(r.pool.QueryRow(ctx, query, fingerprint))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("identity: get customer by fingerprint: %w", err)
	}
	return c, nil
}

// Insert persists a new customer. The unique fingerprint constraint is the
// serialization point between concurrent sync passes; a violation surfaces
// as ErrDuplicateFingerprint.
func (r *Repository) Insert(ctx context.Context, c *Customer) (*Customer, error) {
	const query = `
		INSERT INTO customers (
			fingerprint, name, email, phone, whatsapp,
			secondary_name, secondary_email, secondary_phone,
			current_units, current_pallets, past_units, past_pallets,
			status, sources, created_at, updated_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, NOW(), NOW())
		RETURNING id, created_at, updated_at`

	err := r.pool.QueryRow(ctx, query,
		c.Fingerprint, c.Name, c.Email, c.Phone, c.Whatsapp,
		c.SecondaryName, c.SecondaryEmail, c.SecondaryPhone,
		textArray(c.CurrentUnits), textArray(c.CurrentPallets),
		textArray(c.PastUnits), textArray(c.PastPallets),
		string(c.Status), sourceStrings(c.Sources),
	).Scan(&c.ID, &c.CreatedAt, &c.UpdatedAt)
	if err != nil {
		if rowstore.UniqueViolation(err) {
			return nil, ErrDuplicateFingerprint
		}
		return nil, fmt.Errorf("identity: insert customer: %w", err)
	}
	return c, nil
}

// Update rewrites the mutable fields of an existing customer. The
// fingerprint is immutable and deliberately absent from the statement.
func (r *Repository) Update(ctx context.Context, c *Customer) error {
	const query = `
		UPDATE customers SET
			name = $2, email = $3, phone = $4, whatsapp = $5,
			current_units = $6, current_pallets = $7,
			past_units = $8, past_pallets = $9,
			status = $10, sources = $11, updated_at = NOW()
		WHERE id = $1`

	tag, err := r.pool.Exec(ctx, query,
		c.ID, c.Name, c.Email, c.Phone, c.Whatsapp,
		textArray(c.CurrentUnits), textArray(c.CurrentPallets),
		textArray(c.PastUnits), textArray(c.PastPallets),
		string(c.Status), sourceStrings(c.Sources),
	)
	if err != nil {
		return fmt.Errorf("identity: update customer %d: %w", c.ID, err)
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	c.UpdatedAt = time.Now()
	return nil
}

// UpdateSecondaryContact applies a manual secondary-contact edit.
func (r *Repository) UpdateSecondaryContact(ctx context.Context, id int64, input SecondaryContactInput) error {
	const query = `
		UPDATE customers SET
			secondary_name = COALESCE($2, secondary_name),
			secondary_email = COALESCE($3, secondary_email),
			secondary_phone = COALESCE($4, secondary_phone),
			updated_at = NOW()
		WHERE id = $1`

	tag, err := r.pool.Exec(ctx, query, id, input.Name, input.Email, input.Phone)
	if err != nil {
		return fmt.Errorf("identity: update secondary contact %d: %w", id, err)
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

// textArray keeps empty bucket lists stored as empty arrays rather than NULL.
func textArray(v []string) []string {
	if v == nil {
		return []string{}
	}
	return v
}
