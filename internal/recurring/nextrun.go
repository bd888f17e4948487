package recurring

import (
	"time"

	"github.com/cleared-dev/ledger/internal/model"
)

// CalculateNextRun returns the run date following from. Month-based
// frequencies clamp to the last day of the target month, so Jan 31 plus one
// month is Feb 29 in a leap year. Custom without an interval advances a day.
func CalculateNextRun(from time.Time, freq model.Frequency, intervalDays *int) time.Time {
	switch freq {
	case model.FrequencyDaily:
		return from.AddDate(0, 0, 1)
	case model.FrequencyWeekly:
		return from.AddDate(0, 0, 7)
	case model.FrequencyMonthly:
		return addMonths(from, 1)
	case model.FrequencyQuarterly:
		return addMonths(from, 3)
	case model.FrequencyYearly:
		return addMonths(from, 12)
	default:
		if intervalDays != nil && *intervalDays > 0 {
			return from.AddDate(0, 0, *intervalDays)
		}
		return from.AddDate(0, 0, 1)
	}
}

// addMonths adds n months without overflowing into the month after.
func addMonths(t time.Time, n int) time.Time {
	y, m, d := t.Date()
	first := time.Date(y, m+time.Month(n), 1, t.Hour(), t.Minute(), t.Second(), t.Nanosecond(), t.Location())
	if last := first.AddDate(0, 1, -1).Day(); d > last {
		d = last
	}
	return first.AddDate(0, 0, d-1)
}
