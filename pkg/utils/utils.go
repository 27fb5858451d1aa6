package utils

import (
	"time"

	"github.com/shopspring/decimal"
)

// MoneyPlaces is the number of decimal places of the minor currency unit.
const MoneyPlaces int32 = 2

// RoundMoney rounds an amount to the currency's minor unit (half away from zero).
func RoundMoney(d decimal.Decimal) decimal.Decimal {
	return d.Round(MoneyPlaces)
}

// SplitEvenly divides total into n parts of whole cents.
// Every part but the last is truncated to cents; the last absorbs the residual
// so the parts always sum to RoundMoney(total).
func SplitEvenly(total decimal.Decimal, n int) []decimal.Decimal {
	if n <= 0 {
		return nil
	}
	target := RoundMoney(total)
	share := target.Div(decimal.NewFromInt(int64(n))).Truncate(MoneyPlaces)

	parts := make([]decimal.Decimal, n)
	allocated := decimal.Zero
	for i := 0; i < n-1; i++ {
		parts[i] = share
		allocated = allocated.Add(share)
	}
	parts[n-1] = target.Sub(allocated)
	return parts
}

// SumMoney adds a list of amounts.
func SumMoney(amounts ...decimal.Decimal) decimal.Decimal {
	total := decimal.Zero
	for _, a := range amounts {
		total = total.Add(a)
	}
	return total
}

// DateOnly truncates t to midnight UTC of its calendar day.
func DateOnly(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

// AddMonthsClamped adds months to t, clamping the day to the last day of the
// target month instead of overflowing (Jan 31 + 1 month = Feb 28/29).
func AddMonthsClamped(t time.Time, months int) time.Time {
	y, m, d := t.Date()
	first := time.Date(y, m+time.Month(months), 1, 0, 0, 0, 0, time.UTC)
	last := first.AddDate(0, 1, -1).Day()
	if d > last {
		d = last
	}
	return time.Date(first.Year(), first.Month(), d, 0, 0, 0, 0, time.UTC)
}

// CalculateDueDate returns the due date of the given period number, anchored to
// the loan start date. Period 1 is due one period after the start.
func CalculateDueDate(startDate time.Time, monthsPerPeriod, period int) time.Time {
	return AddMonthsClamped(DateOnly(startDate), monthsPerPeriod*period)
}

// DaysBetween counts whole calendar days from a to b (negative when b is before a).
func DaysBetween(a, b time.Time) int {
	return int(DateOnly(b).Sub(DateOnly(a)).Hours() / 24)
}

// IsDateOverdue checks if dueDate is strictly before the calendar day of today.
func IsDateOverdue(dueDate, today time.Time) bool {
	return DateOnly(dueDate).Before(DateOnly(today))
}

// ParseDate parses an ISO-8601 calendar date (YYYY-MM-DD) as midnight UTC.
func ParseDate(s string) (time.Time, error) {
	return time.ParseInLocation(time.DateOnly, s, time.UTC)
}

// FormatDate renders t as an ISO-8601 calendar date.
func FormatDate(t time.Time) string {
	return t.UTC().Format(time.DateOnly)
}
