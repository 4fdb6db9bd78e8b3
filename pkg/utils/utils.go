package utils

import (
	"fmt"
	"time"

	"github.com/Rhymond/go-money"
	"github.com/shopspring/decimal"
)

// DateLayout is the wire format for calendar dates.
const DateLayout = "2006-01-02"

// Currency is the single currency the ledger books in.
const Currency = money.VND

const day = 24 * time.Hour

// DateOf returns the calendar day of t, as seen on the wall clock of t's own
// location, encoded as midnight UTC.
func DateOf(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

// Today returns the current calendar day in loc.
func Today(now time.Time, loc *time.Location) time.Time {
	if loc == nil {
		loc = time.UTC
	}
	return DateOf(now.In(loc))
}

// DaysBetween returns floor((to - from) / 1 day) on calendar days. The
// result is negative when to precedes from.
func DaysBetween(from, to time.Time) int {
	diff := DateOf(to).Sub(DateOf(from))
	days := int(diff / day)
	if diff < 0 && diff%day != 0 {
		days--
	}
	return days
}

// AddDays shifts a calendar day by n days.
func AddDays(date time.Time, n int) time.Time {
	return DateOf(date).AddDate(0, 0, n)
}

// ParseDate parses a YYYY-MM-DD calendar date.
func ParseDate(s string) (time.Time, error) {
	t, err := time.Parse(DateLayout, s)
	if err != nil {
		return time.Time{}, fmt.Errorf("invalid date %q: %w", s, err)
	}
	return t, nil
}

// FormatDate renders a calendar day as YYYY-MM-DD.
func FormatDate(t time.Time) string {
	return DateOf(t).Format(DateLayout)
}

// vndFormatter groups thousands with dots as Vietnamese locales do; the
// go-money table uses commas for VND.
var vndFormatter = func() *money.Formatter {
	f := money.GetCurrency(Currency).Formatter()
	f.Decimal = ","
	f.Thousand = "."
	return f
}()

// FormatMoney renders a whole-unit amount in the ledger currency, e.g. "1.000.000 ₫".
func FormatMoney(amount decimal.Decimal) string {
	m := money.New(amount.Round(0).IntPart(), Currency)
	return vndFormatter.Format(m.Amount())
}

// DecimalFromString converts string to decimal.Decimal
func DecimalFromString(s string) (decimal.Decimal, error) {
	return decimal.NewFromString(s)
}
