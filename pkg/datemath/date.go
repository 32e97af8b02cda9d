package datemath

import (
	"database/sql/driver"
	"fmt"
	"strings"
	"time"
)

const dateLayout = "2006-01-02"

// Date is a calendar date with no time of day and no time zone.
type Date struct {
	Year  int
	Month time.Month
	Day   int
}

// New builds a Date, normalizing out-of-range values the way time.Date does.
func New(year int, month time.Month, day int) Date {
	return FromTime(time.Date(year, month, day, 0, 0, 0, 0, time.UTC))
}

// FromTime returns the calendar date of t in t's own location.
func FromTime(t time.Time) Date {
	y, m, d := t.Date()
	return Date{Year: y, Month: m, Day: d}
}

// Parse reads an ISO date such as 2024-01-31.
func Parse(raw string) (Date, error) {
	t, err := time.Parse(dateLayout, strings.TrimSpace(raw))
	if err != nil {
		return Date{}, fmt.Errorf("parse date %q: %w", raw, err)
	}
	return FromTime(t), nil
}

func (d Date) String() string {
	return fmt.Sprintf("%04d-%02d-%02d", d.Year, int(d.Month), d.Day)
}

func (d Date) IsZero() bool {
	return d.Year == 0 && d.Month == 0 && d.Day == 0
}

// In returns midnight of d in loc.
func (d Date) In(loc *time.Location) time.Time {
	return time.Date(d.Year, d.Month, d.Day, 0, 0, 0, 0, loc)
}

func (d Date) utc() time.Time {
	return d.In(time.UTC)
}

func (d Date) Weekday() time.Weekday {
	return d.utc().Weekday()
}

func (d Date) AddDays(n int) Date {
	return FromTime(d.utc().AddDate(0, 0, n))
}

func (d Date) AddWeeks(n int) Date {
	return d.AddDays(7 * n)
}

// AddMonths moves d by n calendar months. When the target month is shorter
// the day is clamped to its last day: 2024-01-31 + 1 month = 2024-02-29.
func (d Date) AddMonths(n int) Date {
	total := int(d.Month) - 1 + n
	year := d.Year + floorDiv(total, 12)
	month := time.Month(floorMod(total, 12) + 1)
	day := d.Day
	if last := DaysInMonth(month, year); day > last {
		day = last
	}
	return Date{Year: year, Month: month, Day: day}
}

func (d Date) Before(other Date) bool {
	return d.utc().Before(other.utc())
}

func (d Date) After(other Date) bool {
	return d.utc().After(other.utc())
}

// DaysBetween returns the number of days from from to to; negative when to is earlier.
func DaysBetween(from, to Date) int {
	return int(to.utc().Sub(from.utc()).Hours() / 24)
}

// DaysInMonth returns the length of month in year.
func DaysInMonth(month time.Month, year int) int {
	// Move to next month, roll back a day.
	firstOfMonth := time.Date(year, month, 1, 0, 0, 0, 0, time.UTC)
	return firstOfMonth.AddDate(0, 1, -1).Day()
}

// StartOfWeek returns the Monday on or before d.
func (d Date) StartOfWeek() Date {
	offset := (int(d.Weekday()) + 6) % 7
	return d.AddDays(-offset)
}

func floorDiv(a, b int) int {
	q := a / b
	if a%b != 0 && (a < 0) != (b < 0) {
		q--
	}
	return q
}

func floorMod(a, b int) int {
	return a - floorDiv(a, b)*b
}

// NullDate is a Date that may be absent. It is stored as an ISO date string.
type NullDate struct {
	Date  Date
	Valid bool
}

func Some(d Date) NullDate {
	return NullDate{Date: d, Valid: true}
}

func (n NullDate) Ptr() *Date {
	if !n.Valid {
		return nil
	}
	d := n.Date
	return &d
}

func (n NullDate) String() string {
	if !n.Valid {
		return ""
	}
	return n.Date.String()
}

// Scan implements sql.Scanner.
func (n *NullDate) Scan(value any) error {
	switch v := value.(type) {
	case nil:
		*n = NullDate{}
		return nil
	case string:
		return n.scanString(v)
	case []byte:
		return n.scanString(string(v))
	case time.Time:
		*n = Some(FromTime(v))
		return nil
	default:
		return fmt.Errorf("scan date: unsupported type %T", value)
	}
}

func (n *NullDate) scanString(raw string) error {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		*n = NullDate{}
		return nil
	}
	// Some drivers hand back a full timestamp for date-like columns.
	if len(raw) > len(dateLayout) {
		raw = raw[:len(dateLayout)]
	}
	d, err := Parse(raw)
	if err != nil {
		return err
	}
	*n = Some(d)
	return nil
}

// Value implements driver.Valuer.
func (n NullDate) Value() (driver.Value, error) {
	if !n.Valid {
		return nil, nil
	}
	return n.Date.String(), nil
}
