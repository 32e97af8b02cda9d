package service_test

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"dailyflow/internal/model"
	"dailyflow/internal/service"
	"dailyflow/pkg/datemath"
)

func TestDailySummary(t *testing.T) {
	ctx := context.Background()
	f := newFixture()
	report := service.NewReportService(f.store, f.graph, f.streaks)

	_, err := f.tasks.CreateTask(ctx, service.TaskInput{
		Title:   "pay <rent>",
		DueDate: datemath.Some(day(2023, time.December, 30)),
	})
	require.NoError(t, err)
	first := addTask(t, f, "draft")
	second := addTask(t, f, "review")
	require.NoError(t, f.tasks.AddDependency(ctx, first.ID, second.ID))
	done := addTask(t, f, "done today")
	_, err = f.tasks.CompleteTask(ctx, done.ID)
	require.NoError(t, err)

	text, err := report.DailySummary(ctx, f.clock.Now())
	require.NoError(t, err)

	assert.Contains(t, text, "Просроченные задачи")
	assert.Contains(t, text, "pay &lt;rent&gt;")
	assert.Contains(t, text, "просрочено")
	assert.Contains(t, text, "🔒 <code>#3</code>")
	assert.NotContains(t, text, "done today")
	assert.Contains(t, text, "Выполнено сегодня: 1")
	assert.Contains(t, text, "🔥 1 Day Streak")
	assert.Less(t, strings.Index(text, "pay"), strings.Index(text, "draft"))
}

func TestDailySummaryEmpty(t *testing.T) {
	f := newFixture()
	report := service.NewReportService(f.store, f.graph, f.streaks)

	text, err := report.DailySummary(context.Background(), f.clock.Now())
	require.NoError(t, err)
	assert.Contains(t, text, "нет открытых задач")
	assert.Contains(t, text, "🔥 0 Day Streak")
}

func TestDescribeRecurrence(t *testing.T) {
	tests := []struct {
		rec  model.Recurrence
		want string
	}{
		{model.Recurrence{}, "без повтора"},
		{model.Recurrence{Type: model.RecurrenceDaily, Interval: 1}, "каждый день"},
		{model.Recurrence{Type: model.RecurrenceWeekly, Interval: 2}, "каждые 2 нед."},
		{
			model.Recurrence{
				Type: model.RecurrenceCustom, Interval: 1, Unit: model.UnitWeeks,
				Weekdays: model.NewWeekdaySet(time.Thursday, time.Monday),
			},
			"каждую неделю (пн, чт)",
		},
		{
			model.Recurrence{Type: model.RecurrenceCustom, Interval: 3, Unit: model.UnitMonths, End: model.EndAfter, Remaining: 2},
			"каждые 3 мес., осталось 2",
		},
		{
			model.Recurrence{
				Type: model.RecurrenceDaily, Interval: 1, End: model.EndOnDate,
				EndDate: datemath.Some(day(2024, time.March, 1)),
			},
			"каждый день до 2024-03-01",
		},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, service.DescribeRecurrence(tt.rec))
	}
}
