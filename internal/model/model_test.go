package model_test

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"dailyflow/internal/model"
	"dailyflow/pkg/datemath"
)

func TestWeekdaySetRoundTrip(t *testing.T) {
	set, err := model.ParseWeekdays("wed, mon;Friday")
	require.NoError(t, err)
	assert.Equal(t, []time.Weekday{time.Monday, time.Wednesday, time.Friday}, set.Days())
	assert.Equal(t, "MON,WED,FRI", set.String())

	v, err := set.Value()
	require.NoError(t, err)

	var scanned model.WeekdaySet
	require.NoError(t, scanned.Scan(v))
	assert.Equal(t, set, scanned)

	require.NoError(t, scanned.Scan(nil))
	assert.True(t, scanned.Empty())

	_, err = model.ParseWeekdays("mon,xyz")
	assert.Error(t, err)
}

func TestRecurrenceNormalized(t *testing.T) {
	none := model.Recurrence{Interval: 4, Unit: model.UnitMonths, End: model.EndAfter, Remaining: 3}.Normalized()
	assert.Equal(t, model.Recurrence{Type: model.RecurrenceNone, Interval: 1}, none)

	custom := model.Recurrence{
		Type:      model.RecurrenceCustom,
		Unit:      model.UnitMonths,
		Weekdays:  model.NewWeekdaySet(time.Monday),
		End:       model.EndAfter,
		Remaining: 2,
		EndDate:   datemath.Some(datemath.New(2024, time.May, 1)),
	}.Normalized()
	assert.Equal(t, 1, custom.Interval)
	assert.True(t, custom.Weekdays.Empty(), "weekdays only apply to weekly units")
	assert.False(t, custom.EndDate.Valid, "end date only applies to ON_DATE")
	assert.Equal(t, 2, custom.Remaining)

	daily := model.Recurrence{Type: model.RecurrenceDaily, Unit: model.UnitWeeks, Interval: 2}.Normalized()
	assert.Equal(t, model.RecurrenceUnit(""), daily.Unit)
	assert.Equal(t, model.EndNever, daily.End)
}

func TestRecurrenceKindReadsEmptyAsNone(t *testing.T) {
	var r model.Recurrence
	assert.Equal(t, model.RecurrenceNone, r.Kind())
	assert.False(t, r.IsRecurring())
	assert.Equal(t, model.UnitDays, r.EffectiveUnit())
	assert.Equal(t, model.EndNever, r.EndKind())
	assert.Equal(t, 1, r.EffectiveInterval())
}

func TestRecurrenceString(t *testing.T) {
	r := model.Recurrence{
		Type:      model.RecurrenceCustom,
		Interval:  2,
		Unit:      model.UnitWeeks,
		Weekdays:  model.NewWeekdaySet(time.Tuesday, time.Thursday),
		End:       model.EndAfter,
		Remaining: 3,
	}
	assert.Equal(t, "every 2 weeks on TUE,THU, 3 left", r.String())
	assert.Equal(t, "every day", model.Recurrence{Type: model.RecurrenceDaily}.String())
	assert.Equal(t, "none", model.Recurrence{}.String())
}

func TestParseReminder(t *testing.T) {
	want := time.Date(2024, time.March, 1, 18, 30, 0, 0, time.UTC)
	for _, raw := range []string{"2024-03-01T18:30:00", "2024-03-01T18:30", "2024-03-01 18:30"} {
		got, err := model.ParseReminder(raw, time.UTC)
		require.NoError(t, err, raw)
		assert.True(t, want.Equal(got), raw)
	}
	assert.Equal(t, "2024-03-01T18:30:00", model.FormatReminder(want))

	_, err := model.ParseReminder("tomorrow-ish", time.UTC)
	assert.Error(t, err)
}

func TestTaskCompletionInvariant(t *testing.T) {
	task := model.Task{Title: "  write   report "}
	task.Normalize()
	assert.Equal(t, "write report", task.Title)
	assert.Equal(t, model.PriorityMedium, task.Priority)
	assert.Equal(t, model.StatusPending, task.Status)
	assert.Nil(t, task.CompletedAt)

	at := time.Date(2024, time.January, 2, 10, 0, 0, 0, time.UTC)
	task.MarkCompleted(at)
	assert.True(t, task.IsCompleted())
	require.NotNil(t, task.CompletedAt)

	task.Reopen()
	assert.False(t, task.IsCompleted())
	assert.Nil(t, task.CompletedAt)
}

func TestParsePriority(t *testing.T) {
	p, err := model.ParsePriority("high")
	require.NoError(t, err)
	assert.Equal(t, model.PriorityHigh, p)

	p, err = model.ParsePriority("")
	require.NoError(t, err)
	assert.Equal(t, model.PriorityMedium, p)

	_, err = model.ParsePriority("urgent")
	assert.Error(t, err)
}
