package identity

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/lagerhof/lagerhof/internal/rentals"
)

// RepositoryPort defines persistence methods for customers.
type RepositoryPort interface {
	GetByID(ctx context.Context, id int64) (*Customer, error)
	GetByFingerprint(ctx context.Context, fingerprint string) (*Customer, error)
	Insert(ctx context.Context, c *Customer) (*Customer, error)
	Update(ctx context.Context, c *Customer) error
	UpdateSecondaryContact(ctx context.Context, id int64, input SecondaryContactInput) error
}

// SourceFetcher reads live rental rows for one source table.
type SourceFetcher interface {
	Fetch(ctx context.Context, src rentals.Source) (rentals.Table, error)
}

// Service resolves rental contacts into canonical customers.
type Service struct {
	repo    RepositoryPort
	sources SourceFetcher
	logger  *slog.Logger
	now     func() time.Time
}

// NewService builds a Service instance.
func NewService(repo RepositoryPort, sources SourceFetcher, logger *slog.Logger) *Service {
	return &Service{repo: repo, sources: sources, logger: logger, now: time.Now}
}

// Sync merges the live rental sources into the customer table. It inserts
// customers for fingerprints seen for the first time and updates the rest;
// it never deletes. Bucket lists and status are recomputed wholesale from
// the current pass, while already-persisted contact values always win over
// freshly aggregated ones.
func (s *Service) Sync(ctx context.Context) (SyncResult, error) {
	var (
		res    SyncResult
		tables []rentals.Table
	)
	for _, src := range rentals.Sources() {
		table, err := s.sources.Fetch(ctx, src)
		if err != nil {
			return SyncResult{}, fmt.Errorf("identity: fetch %s rows: %w", src.Type, err)
		}
		switch src.Type {
		case rentals.SourceUnit:
			res.SourceUnits = len(table.Rows)
		case rentals.SourcePallet:
			res.SourcePallets = len(table.Rows)
		}
		tables = append(tables, table)
	}

	aggregates := Merge(tables, s.now())
	for _, agg := range aggregates {
		inserted, err := s.reconcile(ctx, agg)
		if err != nil {
			return SyncResult{}, err
		}
		if inserted {
			res.Inserted++
		} else {
			res.Updated++
		}
	}

	s.logger.Info("customer sync completed",
		slog.Int("inserted", res.Inserted),
		slog.Int("updated", res.Updated),
		slog.Int("source_units", res.SourceUnits),
		slog.Int("source_pallets", res.SourcePallets),
	)
	return res, nil
}

// reconcile folds one aggregate into the customer table.
func (s *Service) reconcile(ctx context.Context, agg *Aggregate) (bool, error) {
	existing, err := s.repo.GetByFingerprint(ctx, agg.Fingerprint)
	switch {
	case errors.Is(err, ErrNotFound):
		fresh := customerFromAggregate(agg)
		if _, err := s.repo.Insert(ctx, fresh); err != nil {
			if !errors.Is(err, ErrDuplicateFingerprint) {
				return false, err
			}
			// A concurrent pass inserted this fingerprint between our
			// lookup and insert; fold into the winner's row instead.
			existing, err = s.repo.GetByFingerprint(ctx, agg.Fingerprint)
			if err != nil {
				return false, err
			}
			applyAggregate(existing, agg)
			return false, s.repo.Update(ctx, existing)
		}
		return true, nil
	case err != nil:
		return false, err
	}

	applyAggregate(existing, agg)
	return false, s.repo.Update(ctx, existing)
}

// GetCustomer loads one customer by id.
func (s *Service) GetCustomer(ctx context.Context, id int64) (*Customer, error) {
	if id <= 0 {
		return nil, ErrNotFound
	}
	return s.repo.GetByID(ctx, id)
}

// UpdateSecondaryContact applies a manual secondary-contact edit.
func (s *Service) UpdateSecondaryContact(ctx context.Context, id int64, input SecondaryContactInput) error {
	if id <= 0 {
		return ErrNotFound
	}
	return s.repo.UpdateSecondaryContact(ctx, id, input)
}

func customerFromAggregate(agg *Aggregate) *Customer {
	return &Customer{
		Fingerprint:    agg.Fingerprint,
		Name:           agg.Name,
		Email:          agg.Email,
		Phone:          agg.Phone,
		Whatsapp:       agg.Whatsapp,
		CurrentUnits:   agg.CurrentUnits,
		CurrentPallets: agg.CurrentPallets,
		PastUnits:      agg.PastUnits,
		PastPallets:    agg.PastPallets,
		Status:         agg.Status,
		Sources:        agg.Sources,
	}
}

// applyAggregate refreshes a persisted customer from the current pass.
// Direction matters: for contact fields the persisted value wins and the
// aggregate only fills gaps, so a noisy re-sync can never regress curated
// data. Derived fields are replaced outright.
func applyAggregate(c *Customer, agg *Aggregate) {
	fillEmpty(&c.Name, agg.Name)
	fillEmpty(&c.Email, agg.Email)
	fillEmpty(&c.Phone, agg.Phone)
	fillEmpty(&c.Whatsapp, agg.Whatsapp)

	c.CurrentUnits = agg.CurrentUnits
	c.CurrentPallets = agg.CurrentPallets
	c.PastUnits = agg.PastUnits
	c.PastPallets = agg.PastPallets
	c.Status = agg.Status
	c.Sources = agg.Sources
}
