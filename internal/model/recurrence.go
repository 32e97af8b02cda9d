package model

import (
	"fmt"
	"strings"

	"dailyflow/pkg/datemath"
)

type RecurrenceType string

const (
	RecurrenceNone   RecurrenceType = "NONE"
	RecurrenceDaily  RecurrenceType = "DAILY"
	RecurrenceWeekly RecurrenceType = "WEEKLY"
	RecurrenceCustom RecurrenceType = "CUSTOM"
)

func ParseRecurrenceType(raw string) (RecurrenceType, error) {
	switch RecurrenceType(strings.ToUpper(strings.TrimSpace(raw))) {
	case "", RecurrenceNone:
		return RecurrenceNone, nil
	case RecurrenceDaily:
		return RecurrenceDaily, nil
	case RecurrenceWeekly:
		return RecurrenceWeekly, nil
	case RecurrenceCustom:
		return RecurrenceCustom, nil
	default:
		return "", fmt.Errorf("unknown recurrence type %q", raw)
	}
}

type RecurrenceUnit string

const (
	UnitDays   RecurrenceUnit = "DAYS"
	UnitWeeks  RecurrenceUnit = "WEEKS"
	UnitMonths RecurrenceUnit = "MONTHS"
)

func ParseRecurrenceUnit(raw string) (RecurrenceUnit, error) {
	switch strings.ToUpper(strings.TrimSpace(raw)) {
	case "", "D", "DAY", "DAYS":
		return UnitDays, nil
	case "W", "WEEK", "WEEKS":
		return UnitWeeks, nil
	case "M", "MONTH", "MONTHS":
		return UnitMonths, nil
	default:
		return "", fmt.Errorf("unknown recurrence unit %q", raw)
	}
}

type RecurrenceEnd string

const (
	EndNever  RecurrenceEnd = "NEVER"
	EndOnDate RecurrenceEnd = "ON_DATE"
	EndAfter  RecurrenceEnd = "AFTER"
)

// Recurrence describes how a task repeats. Every field is inert when Type is NONE.
type Recurrence struct {
	Type     RecurrenceType `gorm:"column:recurrence_type;type:text"`
	Interval int            `gorm:"column:recurrence_interval"`
	Unit     RecurrenceUnit `gorm:"column:recurrence_unit;type:text"`
	Weekdays WeekdaySet     `gorm:"column:recurrence_days;type:text"`
	End      RecurrenceEnd  `gorm:"column:recurrence_end;type:text"`
	// EndDate is only meaningful when End is ON_DATE.
	EndDate datemath.NullDate `gorm:"column:recurrence_end_date;type:text"`
	// Remaining counts the instances that may still be generated when End is AFTER.
	Remaining int `gorm:"column:recurrence_remaining"`
}

// Kind reads an empty type (old rows) as NONE.
func (r Recurrence) Kind() RecurrenceType {
	if r.Type == "" {
		return RecurrenceNone
	}
	return r.Type
}

func (r Recurrence) IsRecurring() bool {
	return r.Kind() != RecurrenceNone
}

func (r Recurrence) EffectiveInterval() int {
	if r.Interval < 1 {
		return 1
	}
	return r.Interval
}

func (r Recurrence) EffectiveUnit() RecurrenceUnit {
	if r.Unit == "" {
		return UnitDays
	}
	return r.Unit
}

func (r Recurrence) EndKind() RecurrenceEnd {
	if r.End == "" {
		return EndNever
	}
	return r.End
}

// Normalized returns a copy with defaults filled in; a NONE recurrence is reset entirely.
func (r Recurrence) Normalized() Recurrence {
	if !r.IsRecurring() {
		return Recurrence{Type: RecurrenceNone, Interval: 1}
	}
	out := r
	out.Interval = r.EffectiveInterval()
	out.End = r.EndKind()
	if out.Type == RecurrenceCustom {
		out.Unit = r.EffectiveUnit()
	} else {
		out.Unit = ""
	}
	if out.Type != RecurrenceCustom || out.Unit != UnitWeeks {
		out.Weekdays = 0
	}
	if out.End != EndOnDate {
		out.EndDate = datemath.NullDate{}
	}
	if out.End != EndAfter {
		out.Remaining = 0
	}
	return out
}

func (r Recurrence) String() string {
	interval := r.EffectiveInterval()
	var base string
	switch r.Kind() {
	case RecurrenceNone:
		return "none"
	case RecurrenceDaily:
		base = plural(interval, "day")
	case RecurrenceWeekly:
		base = plural(interval, "week")
	case RecurrenceCustom:
		switch r.EffectiveUnit() {
		case UnitWeeks:
			base = plural(interval, "week")
			if !r.Weekdays.Empty() {
				base += " on " + r.Weekdays.String()
			}
		case UnitMonths:
			base = plural(interval, "month")
		default:
			base = plural(interval, "day")
		}
	default:
		return string(r.Type)
	}
	switch r.EndKind() {
	case EndOnDate:
		base += " until " + r.EndDate.String()
	case EndAfter:
		base += fmt.Sprintf(", %d left", r.Remaining)
	}
	return "every " + base
}

func plural(n int, unit string) string {
	if n == 1 {
		return unit
	}
	return fmt.Sprintf("%d %ss", n, unit)
}
