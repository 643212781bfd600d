// Package rentals describes the rental source tables (storage units and
// pallet slots) and the column-name variants they appear under. Installations
// migrated from older schemas name the same logical attribute differently, so
// every lookup goes through an ordered candidate list resolved against the
// table's actual column set.
package rentals

import (
	"strconv"
	"strings"
	"time"

	"github.com/lagerhof/lagerhof/internal/platform/rowstore"
)

// SourceType tags where a rental record originated.
type SourceType string

const (
	// SourceUnit marks records from the storage-unit table.
	SourceUnit SourceType = "unit"
	// SourcePallet marks records from the pallet-slot table.
	SourcePallet SourceType = "pallet"
)

// Source identifies one rental table.
type Source struct {
	Type  SourceType
	Table string
}

// The two rental sources. Order matters: selectors and sync passes always
// visit units first.
var (
	Units   = Source{Type: SourceUnit, Table: "storage_units"}
	Pallets = Source{Type: SourcePallet, Table: "pallet_slots"}
)

// Sources lists all rental sources in processing order.
func Sources() []Source {
	return []Source{Units, Pallets}
}

// Ordered candidate column names per logical attribute. First present wins.
var (
	CustomerIDColumns    = []string{"customer_id"}
	ContactNameColumns   = []string{"primary_contact_name", "contact_name", "customer_name"}
	ContactEmailColumns  = []string{"primary_contact_email", "contact_email", "email"}
	ContactPhoneColumns  = []string{"primary_contact_phone", "contact_phone", "phone"}
	WhatsappColumns      = []string{"primary_contact_whatsapp", "contact_whatsapp", "whatsapp"}
	PaymentStatusColumns = []string{"payment_status", "payment_state"}
	PeriodFromColumns    = []string{"period_from", "rental_start", "start_date", "from_date"}
	PeriodUntilColumns   = []string{"period_until", "rental_end", "end_date", "until_date"}
	PriceColumns         = []string{"monthly_rate", "monthly_price", "rate", "price", "amount"}
	OccupiedColumns      = []string{"occupied", "is_occupied"}
)

// LabelColumns returns the display-label candidates for a source type.
func LabelColumns(t SourceType) []string {
	switch t {
	case SourcePallet:
		return []string{"pallet_number", "slot_number", "label", "name"}
	default:
		return []string{"unit_number", "unit_name", "label", "name"}
	}
}

// Resolve returns the first candidate present in cols.
func Resolve(cols []string, candidates []string) (string, bool) {
	for _, cand := range candidates {
		for _, col := range cols {
			if col == cand {
				return col, true
			}
		}
	}
	return "", false
}

// First returns the row's first non-empty value among the candidate columns.
func First(row rowstore.Row, candidates []string) string {
	for _, cand := range candidates {
		if v := strings.TrimSpace(row[cand]); v != "" {
			return v
		}
	}
	return ""
}

// Truthy interprets a stored boolean-ish cell.
func Truthy(v string) bool {
	switch strings.ToLower(strings.TrimSpace(v)) {
	case "true", "t", "1", "yes", "y":
		return true
	}
	return false
}

var dateLayouts = []string{
	"2006-01-02",
	"2006-01-02 15:04:05",
	time.RFC3339,
	"02.01.2006",
}

// ParseDate reads a stored date cell. Empty cells and zero sentinels yield a
// zero time. The boolean is false only for genuinely unparseable input, which
// callers treat the same as absent.
func ParseDate(v string) (time.Time, bool) {
	v = strings.TrimSpace(v)
	if v == "" || strings.HasPrefix(v, "0000-00-00") || strings.HasPrefix(v, "0001-01-01") {
		return time.Time{}, true
	}
	for _, layout := range dateLayouts {
		if t, err := time.Parse(layout, v); err == nil {
			return t, true
		}
	}
	return time.Time{}, false
}

// ParsePrice reads a stored monetary cell. Thousands separators and currency
// symbols are not expected; a comma decimal separator is.
func ParsePrice(v string) (float64, bool) {
	v = strings.TrimSpace(v)
	if v == "" {
		return 0, false
	}
	v = strings.ReplaceAll(v, ",", ".")
	f, err := strconv.ParseFloat(v, 64)
	if err != nil {
		return 0, false
	}
	return f, true
}
