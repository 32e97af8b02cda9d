package model

import (
	"database/sql/driver"
	"fmt"
	"strings"
	"time"
)

// WeekdaySet is a set of weekdays stored as a comma separated list such as "MON,WED".
type WeekdaySet uint8

var weekdayOrder = []time.Weekday{
	time.Monday, time.Tuesday, time.Wednesday, time.Thursday, time.Friday, time.Saturday, time.Sunday,
}

var weekdayCodes = map[time.Weekday]string{
	time.Monday:    "MON",
	time.Tuesday:   "TUE",
	time.Wednesday: "WED",
	time.Thursday:  "THU",
	time.Friday:    "FRI",
	time.Saturday:  "SAT",
	time.Sunday:    "SUN",
}

func NewWeekdaySet(days ...time.Weekday) WeekdaySet {
	var s WeekdaySet
	for _, d := range days {
		s = s.With(d)
	}
	return s
}

// ParseWeekdays reads "mon,wed" or "MON WED". Full English names are accepted too.
func ParseWeekdays(raw string) (WeekdaySet, error) {
	var s WeekdaySet
	fields := strings.FieldsFunc(raw, func(r rune) bool { return r == ',' || r == ' ' || r == ';' })
	for _, f := range fields {
		code := strings.ToUpper(f)
		if len(code) > 3 {
			code = code[:3]
		}
		found := false
		for day, c := range weekdayCodes {
			if c == code {
				s = s.With(day)
				found = true
				break
			}
		}
		if !found {
			return 0, fmt.Errorf("unknown weekday %q", f)
		}
	}
	return s, nil
}

func (s WeekdaySet) With(d time.Weekday) WeekdaySet {
	return s | 1<<uint(d)
}

func (s WeekdaySet) Has(d time.Weekday) bool {
	return s&(1<<uint(d)) != 0
}

func (s WeekdaySet) Empty() bool {
	return s == 0
}

// Days lists the members Monday first.
func (s WeekdaySet) Days() []time.Weekday {
	var out []time.Weekday
	for _, d := range weekdayOrder {
		if s.Has(d) {
			out = append(out, d)
		}
	}
	return out
}

func (s WeekdaySet) String() string {
	codes := make([]string, 0, 7)
	for _, d := range s.Days() {
		codes = append(codes, weekdayCodes[d])
	}
	return strings.Join(codes, ",")
}

// Scan implements sql.Scanner.
func (s *WeekdaySet) Scan(value any) error {
	var raw string
	switch v := value.(type) {
	case nil:
		*s = 0
		return nil
	case string:
		raw = v
	case []byte:
		raw = string(v)
	default:
		return fmt.Errorf("scan weekdays: unsupported type %T", value)
	}
	parsed, err := ParseWeekdays(raw)
	if err != nil {
		return err
	}
	*s = parsed
	return nil
}

// Value implements driver.Valuer.
func (s WeekdaySet) Value() (driver.Value, error) {
	if s.Empty() {
		return nil, nil
	}
	return s.String(), nil
}
