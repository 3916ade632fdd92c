package util

import "time"

// BarsPerDay returns how many bars of the given interval fit in one 24-hour
// day. A 30-minute interval gives 48; intervals of a day or longer give 1.
func BarsPerDay(interval time.Duration) float64 {
	if interval <= 0 || interval >= 24*time.Hour {
		return 1
	}
	return float64(24*time.Hour) / float64(interval)
}

// PeriodsPerYear returns the annualization factor for bars of the given
// interval, on a 365-day calendar.
func PeriodsPerYear(interval time.Duration) float64 {
	return 365 * BarsPerDay(interval)
}

// SameDay reports whether a and b fall on the same calendar day in UTC.
func SameDay(a, b time.Time) bool {
	ay, am, ad := a.UTC().Date()
	by, bm, bd := b.UTC().Date()
	return ay == by && am == bm && ad == bd
}
