package processors

import (
	"time"

	"github.com/username/hostfolio/backend/src/models"
)

// ResolveWindow turns a named period into a concrete [start, end] range
// anchored at now. The boolean is false for PeriodAllTime: callers must use
// the stored all-time metrics instead of recomputing, since an unbounded
// recomputation is equivalent to the stored baseline.
func ResolveWindow(period models.Period, now time.Time) (models.Window, bool) {
	switch period {
	case models.PeriodYearToDate:
		start := time.Date(now.Year(), time.January, 1, 0, 0, 0, 0, now.Location())
		return models.Window{Start: start, End: now}, true
	case models.PeriodAllTime:
		return models.Window{}, false
	default:
		// last12months is also the fallback for anything unrecognized.
		back := now.AddDate(0, -12, 0)
		start := time.Date(back.Year(), back.Month(), 1, 0, 0, 0, 0, now.Location())
		return models.Window{Start: start, End: now}, true
	}
}

// FilterByWindow keeps bookings whose check-in date falls inside the
// window, inclusive on both ends. Membership is decided by the start date
// only: a multi-month stay is attributed to the month it began.
func FilterByWindow(bookings []models.UniqueBooking, window models.Window) []models.UniqueBooking {
	var filtered []models.UniqueBooking
	for _, b := range bookings {
		if b.StartDate.Before(window.Start) || b.StartDate.After(window.End) {
			continue
		}
		filtered = append(filtered, b)
	}
	return filtered
}

// FilterTransactionsByWindow is the same check-in-date rule applied to raw
// transaction lines, used before deduplication on the period read path.
func FilterTransactionsByWindow(transactions []models.Transaction, window models.Window) []models.Transaction {
	var filtered []models.Transaction
	for _, tx := range transactions {
		if tx.StartDate.Before(window.Start) || tx.StartDate.After(window.End) {
			continue
		}
		filtered = append(filtered, tx)
	}
	return filtered
}
