package service

import (
	"dailyflow/internal/model"
	"dailyflow/pkg/datemath"
)

// NextOccurrence builds the task that follows a completed recurring task.
// It reports false when the task does not recur or its end condition is reached.
//
// For AFTER, Recurrence.Remaining on the completed task is the number of
// instances still allowed; the generated instance carries one less.
func NextOccurrence(task model.Task, today datemath.Date) (*model.Task, bool) {
	rec := task.Recurrence
	if !rec.IsRecurring() {
		return nil, false
	}

	switch rec.EndKind() {
	case model.EndOnDate:
		if rec.EndDate.Valid && rec.EndDate.Date.Before(today) {
			return nil, false
		}
	case model.EndAfter:
		if rec.Remaining <= 0 {
			return nil, false
		}
	case model.EndNever:
	}

	next := &model.Task{
		Title:         task.Title,
		Priority:      task.Priority,
		DueDate:       datemath.Some(NextDueDate(task, today)),
		Status:        model.StatusPending,
		PomodoroCount: 0,
		Recurrence:    rec,
	}
	if rec.EndKind() == model.EndAfter {
		next.Recurrence.Remaining = rec.Remaining - 1
	}
	return next, true
}

// NextDueDate computes the due date of the next instance from the task's due
// date, or from today when the task has none.
func NextDueDate(task model.Task, today datemath.Date) datemath.Date {
	base := today
	if task.DueDate.Valid {
		base = task.DueDate.Date
	}
	rec := task.Recurrence
	interval := rec.EffectiveInterval()

	switch rec.Kind() {
	case model.RecurrenceDaily:
		return base.AddDays(interval)
	case model.RecurrenceWeekly:
		return base.AddWeeks(interval)
	case model.RecurrenceCustom:
		switch rec.EffectiveUnit() {
		case model.UnitWeeks:
			if rec.Weekdays.Empty() {
				return base.AddWeeks(interval)
			}
			return nextSelectedWeekday(base, rec.Weekdays, interval)
		case model.UnitMonths:
			return base.AddMonths(interval)
		case model.UnitDays:
			return base.AddDays(interval)
		default:
			return base.AddDays(interval)
		}
	case model.RecurrenceNone:
		return base.AddDays(1)
	default:
		return base.AddDays(1)
	}
}

// nextSelectedWeekday returns the next selected day later in base's week, or
// the first selected day of the week 'interval' weeks after it.
func nextSelectedWeekday(base datemath.Date, days model.WeekdaySet, interval int) datemath.Date {
	weekStart := base.StartOfWeek()
	for d := base.AddDays(1); d.StartOfWeek() == weekStart; d = d.AddDays(1) {
		if days.Has(d.Weekday()) {
			return d
		}
	}
	target := weekStart.AddWeeks(interval)
	for i := 0; i < 7; i++ {
		d := target.AddDays(i)
		if days.Has(d.Weekday()) {
			return d
		}
	}
	return base.AddWeeks(interval)
}
