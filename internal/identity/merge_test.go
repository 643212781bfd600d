package identity

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/lagerhof/lagerhof/internal/platform/rowstore"
	"github.com/lagerhof/lagerhof/internal/rentals"
)

var mergeToday = time.Date(2025, 6, 15, 10, 0, 0, 0, time.UTC)

func unitTable(rows ...rowstore.Row) rentals.Table {
	return rentals.Table{Source: rentals.Units, Rows: rows}
}

func palletTable(rows ...rowstore.Row) rentals.Table {
	return rentals.Table{Source: rentals.Pallets, Rows: rows}
}

func TestMergeGroupsByFingerprintAcrossSources(t *testing.T) {
	aggs := Merge([]rentals.Table{
		unitTable(rowstore.Row{
			"primary_contact_name":  "Anna Berg",
			"primary_contact_email": "a@x.com",
			"occupied":              "true",
			"unit_number":           "U-101",
		}),
		palletTable(rowstore.Row{
			"primary_contact_email": "A@X.com",
			"period_until":          "2026-01-01",
			"pallet_number":         "P-07",
		}),
	}, mergeToday)

	require.Len(t, aggs, 1)
	agg := aggs[0]
	require.Equal(t, "e:a@x.com", agg.Fingerprint)
	require.Equal(t, StatusActive, agg.Status)
	require.Equal(t, []string{"U-101"}, agg.CurrentUnits)
	require.Equal(t, []string{"P-07"}, agg.CurrentPallets)
	require.Equal(t, []rentals.SourceType{rentals.SourceUnit, rentals.SourcePallet}, agg.Sources)
}

func TestMergeEnrichmentIsMonotonic(t *testing.T) {
	aggs := Merge([]rentals.Table{
		unitTable(
			rowstore.Row{
				"primary_contact_name":  "Anna Berg",
				"primary_contact_email": "a@x.com",
				"occupied":              "false",
				"unit_number":           "U-1",
			},
			rowstore.Row{
				"primary_contact_name":  "A. Berg-Schmidt",
				"primary_contact_email": "a@x.com",
				"primary_contact_phone": "+49 171 2345678",
				"occupied":              "false",
				"unit_number":           "U-2",
			},
			// Blank email on a later row must never clear the known one.
			rowstore.Row{
				"primary_contact_email": "a@x.com",
				"primary_contact_name":  "",
				"unit_number":           "U-3",
			},
		),
	}, mergeToday)

	require.Len(t, aggs, 1)
	agg := aggs[0]
	require.Equal(t, "Anna Berg", agg.Name)
	require.Equal(t, "a@x.com", agg.Email)
	require.Equal(t, "+49 171 2345678", agg.Phone)
	require.Equal(t, []string{"U-1", "U-2", "U-3"}, agg.PastUnits)
}

func TestMergeSkipsDegenerateRows(t *testing.T) {
	aggs := Merge([]rentals.Table{
		unitTable(
			rowstore.Row{"unit_number": "U-1", "occupied": "true"},
			rowstore.Row{"primary_contact_name": "  ", "unit_number": "U-2"},
		),
	}, mergeToday)
	require.Empty(t, aggs)
}

func TestMergeUsesWhatsappWhenPhoneAbsent(t *testing.T) {
	aggs := Merge([]rentals.Table{
		unitTable(rowstore.Row{
			"primary_contact_whatsapp": "+49 160 9876543",
			"unit_number":              "U-9",
			"occupied":                 "true",
		}),
	}, mergeToday)

	require.Len(t, aggs, 1)
	require.Equal(t, "p:491609876543", aggs[0].Fingerprint)
	require.Equal(t, "+49 160 9876543", aggs[0].Whatsapp)
	require.Empty(t, aggs[0].Phone)
}

func TestMergeClassifiesPalletsByPeriodUntil(t *testing.T) {
	aggs := Merge([]rentals.Table{
		palletTable(
			rowstore.Row{"primary_contact_email": "a@x.com", "pallet_number": "P-1", "period_until": ""},
			rowstore.Row{"primary_contact_email": "a@x.com", "pallet_number": "P-2", "period_until": "2025-06-15"},
			rowstore.Row{"primary_contact_email": "a@x.com", "pallet_number": "P-3", "period_until": "2025-06-14"},
		),
	}, mergeToday)

	require.Len(t, aggs, 1)
	require.Equal(t, []string{"P-1", "P-2"}, aggs[0].CurrentPallets)
	require.Equal(t, []string{"P-3"}, aggs[0].PastPallets)
}

func TestMergeStatusPastWithoutCurrentRentals(t *testing.T) {
	aggs := Merge([]rentals.Table{
		unitTable(rowstore.Row{
			"primary_contact_email": "a@x.com",
			"occupied":              "false",
			"unit_number":           "U-1",
		}),
	}, mergeToday)

	require.Len(t, aggs, 1)
	require.Equal(t, StatusPast, aggs[0].Status)
}

func TestMergeIsDeterministicInFirstSeenOrder(t *testing.T) {
	tables := []rentals.Table{
		unitTable(
			rowstore.Row{"primary_contact_email": "b@x.com", "unit_number": "U-1"},
			rowstore.Row{"primary_contact_email": "a@x.com", "unit_number": "U-2"},
		),
	}
	first := Merge(tables, mergeToday)
	second := Merge(tables, mergeToday)
	require.Equal(t, first, second)
	require.Equal(t, "e:b@x.com", first[0].Fingerprint)
	require.Equal(t, "e:a@x.com", first[1].Fingerprint)
}
