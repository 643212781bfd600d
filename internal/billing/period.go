package billing

import "time"

// OccupiedMonths counts the calendar months a rental touches, inclusive of
// both endpoints. Only year and month matter: a stay from the 28th to the
// 2nd of the next month occupies two billable months. Billing is in whole
// months, rounded toward the renter's occupancy, never prorated by days.
//
// The second return value is false when either date is missing or the range
// is inverted; callers charge a single month in that case.
func OccupiedMonths(from, until time.Time) (int, bool) {
	if from.IsZero() || until.IsZero() || until.Before(from) {
		return 0, false
	}
	y1, m1, _ := from.Date()
	y2, m2, _ := until.Date()
	return (y2-y1)*12 + int(m2) - int(m1) + 1, true
}

// chargeMonths floors the month multiplier for a charge at one.
func chargeMonths(months int, ok bool) int {
	if !ok || months < 1 {
		return 1
	}
	return months
}
