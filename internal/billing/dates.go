package billing

import "time"

const day = 24 * time.Hour

// DueDate adds the payment terms as calendar days, rolling over month and year
// boundaries.
func DueDate(invoiceDate time.Time, paymentTermsDays int) time.Time {
	return invoiceDate.AddDate(0, 0, paymentTermsDays)
}

// IsOverdue reports whether now is strictly after the due date.
func IsOverdue(dueDate, now time.Time) bool {
	return now.After(dueDate)
}

// DaysOverdue returns the number of started days since the due date, or 0 when
// the invoice is not overdue. Elapsed time is counted in whole milliseconds, so
// a single millisecond past due is one day and sub-millisecond excess is not.
func DaysOverdue(dueDate, now time.Time) int {
	if !IsOverdue(dueDate, now) {
		return 0
	}
	elapsed := now.Sub(dueDate).Truncate(time.Millisecond)
	days := elapsed / day
	if elapsed%day != 0 {
		days++
	}
	return int(days)
}

// StartOfDay truncates t to local midnight in loc.
func StartOfDay(t time.Time, loc *time.Location) time.Time {
	if loc == nil {
		loc = time.UTC
	}
	local := t.In(loc)
	return time.Date(local.Year(), local.Month(), local.Day(), 0, 0, 0, 0, loc)
}
