// Package timeutil provides date-granularity time helpers for the notification
// engine. Scenario rules reason about calendar days ("played today", "expires
// today", "every other day since joining"), so all comparisons here truncate
// to the day boundary in a caller-supplied location.
// No external dependencies - uses only standard library.
package timeutil

import "time"

// DhakaTZ is the platform's home timezone (UTC+6, no DST).
// Scenario schedules are expressed in this zone unless configured otherwise.
var DhakaTZ = time.FixedZone("Asia/Dhaka", 6*60*60)

// Now returns the current time in the platform timezone.
func Now() time.Time {
	return time.Now().In(DhakaTZ)
}

// StartOfDay returns 00:00:00 of t's day in t's location.
func StartOfDay(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, t.Location())
}

// EndOfDay returns 23:59:59.999999999 of t's day in t's location.
func EndOfDay(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 23, 59, 59, 999999999, t.Location())
}

// SameDay reports whether a and b fall on the same calendar day.
// b is converted into a's location before comparing.
func SameDay(a, b time.Time) bool {
	b = b.In(a.Location())
	return a.Year() == b.Year() && a.YearDay() == b.YearDay()
}

// DaysBetween returns the number of whole calendar days from "from" to "to".
// The result is negative when "to" precedes "from". Time-of-day is ignored.
func DaysBetween(from, to time.Time) int {
	from = StartOfDay(from)
	to = StartOfDay(to.In(from.Location()))
	return int(to.Sub(from).Hours() / 24)
}

// DaysAgo returns the start of the day n days before t.
func DaysAgo(t time.Time, n int) time.Time {
	return StartOfDay(t).AddDate(0, 0, -n)
}

// DistinctDays returns the number of distinct calendar days covered by the
// given timestamps, evaluated in loc.
func DistinctDays(times []time.Time, loc *time.Location) int {
	seen := make(map[string]struct{}, len(times))
	for _, t := range times {
		seen[DayKey(t, loc)] = struct{}{}
	}
	return len(seen)
}

// DayKey returns a stable YYYY-MM-DD key for t in loc.
// Used for grouping play events per day.
func DayKey(t time.Time, loc *time.Location) string {
	return t.In(loc).Format("2006-01-02")
}
