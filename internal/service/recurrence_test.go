package service_test

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"dailyflow/internal/model"
	"dailyflow/internal/service"
	"dailyflow/pkg/datemath"
)

func day(y int, m time.Month, d int) datemath.Date {
	return datemath.New(y, m, d)
}

func TestNextDueDate(t *testing.T) {
	today := day(2024, time.March, 10)

	tests := []struct {
		name string
		due  datemath.NullDate
		rec  model.Recurrence
		want datemath.Date
	}{
		{
			name: "daily every 3 days",
			due:  datemath.Some(day(2024, time.January, 1)),
			rec:  model.Recurrence{Type: model.RecurrenceDaily, Interval: 3},
			want: day(2024, time.January, 4),
		},
		{
			name: "weekly every 2 weeks",
			due:  datemath.Some(day(2024, time.January, 1)),
			rec:  model.Recurrence{Type: model.RecurrenceWeekly, Interval: 2},
			want: day(2024, time.January, 15),
		},
		{
			name: "monthly clamps to end of february",
			due:  datemath.Some(day(2024, time.January, 31)),
			rec:  model.Recurrence{Type: model.RecurrenceCustom, Interval: 1, Unit: model.UnitMonths},
			want: day(2024, time.February, 29),
		},
		{
			name: "custom days",
			due:  datemath.Some(day(2024, time.January, 30)),
			rec:  model.Recurrence{Type: model.RecurrenceCustom, Interval: 5, Unit: model.UnitDays},
			want: day(2024, time.February, 4),
		},
		{
			name: "custom without unit counts days",
			due:  datemath.Some(day(2024, time.January, 1)),
			rec:  model.Recurrence{Type: model.RecurrenceCustom, Interval: 2},
			want: day(2024, time.January, 3),
		},
		{
			name: "zero interval acts as one",
			due:  datemath.Some(day(2024, time.January, 1)),
			rec:  model.Recurrence{Type: model.RecurrenceDaily},
			want: day(2024, time.January, 2),
		},
		{
			name: "no due date counts from today",
			rec:  model.Recurrence{Type: model.RecurrenceDaily, Interval: 1},
			want: day(2024, time.March, 11),
		},
		{
			name: "custom weeks without weekdays",
			due:  datemath.Some(day(2024, time.January, 3)),
			rec:  model.Recurrence{Type: model.RecurrenceCustom, Interval: 2, Unit: model.UnitWeeks},
			want: day(2024, time.January, 17),
		},
		{
			// 2024-01-02 is a Tuesday; Thursday of the same week is next.
			name: "weekday later in the same week",
			due:  datemath.Some(day(2024, time.January, 2)),
			rec: model.Recurrence{
				Type: model.RecurrenceCustom, Interval: 2, Unit: model.UnitWeeks,
				Weekdays: model.NewWeekdaySet(time.Tuesday, time.Thursday),
			},
			want: day(2024, time.January, 4),
		},
		{
			name: "weekday wraps to the week interval weeks later",
			due:  datemath.Some(day(2024, time.January, 4)),
			rec: model.Recurrence{
				Type: model.RecurrenceCustom, Interval: 2, Unit: model.UnitWeeks,
				Weekdays: model.NewWeekdaySet(time.Tuesday, time.Thursday),
			},
			want: day(2024, time.January, 16),
		},
		{
			// Sunday ends a Monday-start week.
			name: "sunday is the last day of the week",
			due:  datemath.Some(day(2024, time.January, 5)),
			rec: model.Recurrence{
				Type: model.RecurrenceCustom, Interval: 1, Unit: model.UnitWeeks,
				Weekdays: model.NewWeekdaySet(time.Monday, time.Sunday),
			},
			want: day(2024, time.January, 7),
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			task := model.Task{DueDate: tt.due, Recurrence: tt.rec}
			assert.Equal(t, tt.want, service.NextDueDate(task, today))
		})
	}
}

func TestNextOccurrenceNoneNeverRecurs(t *testing.T) {
	task := model.Task{Title: "once", DueDate: datemath.Some(day(2024, time.January, 1))}
	_, ok := service.NextOccurrence(task, day(2024, time.January, 1))
	assert.False(t, ok)
}

func TestNextOccurrenceCopiesTask(t *testing.T) {
	completedAt := start
	reminder := "2024-01-01T18:00:00"
	task := model.Task{
		ID:            7,
		Title:         "water plants",
		Priority:      model.PriorityHigh,
		DueDate:       datemath.Some(day(2024, time.January, 1)),
		Status:        model.StatusCompleted,
		CompletedAt:   &completedAt,
		PomodoroCount: 4,
		ReminderAt:    &reminder,
		Recurrence:    model.Recurrence{Type: model.RecurrenceDaily, Interval: 3},
	}

	next, ok := service.NextOccurrence(task, day(2024, time.January, 1))
	require.True(t, ok)
	assert.Zero(t, next.ID)
	assert.Equal(t, "water plants", next.Title)
	assert.Equal(t, model.PriorityHigh, next.Priority)
	assert.Equal(t, datemath.Some(day(2024, time.January, 4)), next.DueDate)
	assert.Equal(t, model.StatusPending, next.Status)
	assert.Nil(t, next.CompletedAt)
	assert.Nil(t, next.ReminderAt)
	assert.Zero(t, next.PomodoroCount)
	assert.Equal(t, task.Recurrence, next.Recurrence)
}

func TestNextOccurrenceAfterCount(t *testing.T) {
	today := day(2024, time.January, 1)
	task := model.Task{
		Title:   "one more",
		DueDate: datemath.Some(today),
		Recurrence: model.Recurrence{
			Type: model.RecurrenceDaily, Interval: 1, End: model.EndAfter, Remaining: 1,
		},
	}

	next, ok := service.NextOccurrence(task, today)
	require.True(t, ok)
	assert.Equal(t, 0, next.Recurrence.Remaining)

	_, ok = service.NextOccurrence(*next, today)
	assert.False(t, ok)
}

func TestNextOccurrenceEndDate(t *testing.T) {
	task := model.Task{
		Title:   "until march",
		DueDate: datemath.Some(day(2024, time.February, 28)),
		Recurrence: model.Recurrence{
			Type: model.RecurrenceDaily, Interval: 1, End: model.EndOnDate,
			EndDate: datemath.Some(day(2024, time.March, 1)),
		},
	}

	_, ok := service.NextOccurrence(task, day(2024, time.March, 1))
	assert.True(t, ok, "end date today still recurs")

	_, ok = service.NextOccurrence(task, day(2024, time.March, 2))
	assert.False(t, ok)
}
