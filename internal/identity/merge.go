package identity

import (
	"time"

	"github.com/lagerhof/lagerhof/internal/platform/rowstore"
	"github.com/lagerhof/lagerhof/internal/rentals"
)

// Aggregate is the in-memory merged view of every rental row sharing one
// fingerprint during a single sync pass.
type Aggregate struct {
	Fingerprint string

	Name     string
	Email    string
	Phone    string
	Whatsapp string

	CurrentUnits   []string
	CurrentPallets []string
	PastUnits      []string
	PastPallets    []string

	Status  Status
	Sources []rentals.SourceType
}

// Merge groups the given rental tables by fingerprint. It is a pure
// function: aggregates come back in first-seen order and contain everything
// the reconciliation step needs, so no state is shared between passes.
//
// Field values enrich monotonically: the first non-empty value for a field
// wins and later rows never overwrite it, even when they disagree. Rows whose
// contact fields are all blank produce no fingerprint and are skipped
// entirely.
func Merge(tables []rentals.Table, today time.Time) []*Aggregate {
	byFingerprint := make(map[string]*Aggregate)
	var order []*Aggregate

	for _, table := range tables {
		for _, row := range table.Rows {
			name := rentals.First(row, rentals.ContactNameColumns)
			email := rentals.First(row, rentals.ContactEmailColumns)
			phone := rentals.First(row, rentals.ContactPhoneColumns)
			whatsapp := rentals.First(row, rentals.WhatsappColumns)

			// A record reachable only over WhatsApp still identifies
			// its renter by that number.
			phoneSignal := phone
			if NormalizePhone(phoneSignal) == "" {
				phoneSignal = whatsapp
			}

			fp := Fingerprint(name, email, phoneSignal)
			if fp == "" {
				continue
			}

			agg, ok := byFingerprint[fp]
			if !ok {
				agg = &Aggregate{Fingerprint: fp}
				byFingerprint[fp] = agg
				order = append(order, agg)
			}

			fillEmpty(&agg.Name, name)
			fillEmpty(&agg.Email, email)
			fillEmpty(&agg.Phone, phone)
			fillEmpty(&agg.Whatsapp, whatsapp)

			current := rowIsCurrent(table.Source.Type, row, today)
			label := rentals.First(row, rentals.LabelColumns(table.Source.Type))
			appendRental(agg, table.Source.Type, label, current)
			addSource(agg, table.Source.Type)
		}
	}

	for _, agg := range order {
		if len(agg.CurrentUnits) > 0 || len(agg.CurrentPallets) > 0 {
			agg.Status = StatusActive
		} else {
			agg.Status = StatusPast
		}
	}
	return order
}

// rowIsCurrent classifies a rental as running or ended. Units carry an
// occupancy flag; pallet slots run until their period_until passes.
func rowIsCurrent(t rentals.SourceType, row rowstore.Row, today time.Time) bool {
	if t == rentals.SourceUnit {
		return rentals.Truthy(rentals.First(row, rentals.OccupiedColumns))
	}
	until, ok := rentals.ParseDate(rentals.First(row, rentals.PeriodUntilColumns))
	if !ok || until.IsZero() {
		return true
	}
	y, m, d := today.Date()
	dayStart := time.Date(y, m, d, 0, 0, 0, 0, today.Location())
	return !until.Before(dayStart)
}

func appendRental(agg *Aggregate, t rentals.SourceType, label string, current bool) {
	if label == "" {
		return
	}
	switch {
	case t == rentals.SourceUnit && current:
		agg.CurrentUnits = append(agg.CurrentUnits, label)
	case t == rentals.SourceUnit:
		agg.PastUnits = append(agg.PastUnits, label)
	case current:
		agg.CurrentPallets = append(agg.CurrentPallets, label)
	default:
		agg.PastPallets = append(agg.PastPallets, label)
	}
}

func addSource(agg *Aggregate, t rentals.SourceType) {
	for _, s := range agg.Sources {
		if s == t {
			return
		}
	}
	agg.Sources = append(agg.Sources, t)
}

func fillEmpty(dst *string, v string) {
	if *dst == "" && v != "" {
		*dst = v
	}
}
