package bot

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"dailyflow/internal/model"
	"dailyflow/pkg/datemath"
)

func TestParseReminderArg(t *testing.T) {
	now := time.Date(2024, time.May, 10, 20, 15, 0, 0, time.UTC)

	tests := []struct {
		in   string
		want time.Time
	}{
		{"later", time.Date(2024, time.May, 11, 18, 0, 0, 0, time.UTC)},
		{"утром", time.Date(2024, time.May, 11, 9, 0, 0, 0, time.UTC)},
		{"+90m", now.Add(90 * time.Minute)},
		{"2024-06-01T07:45", time.Date(2024, time.June, 1, 7, 45, 0, 0, time.UTC)},
		{"2024-06-01T07:45:30", time.Date(2024, time.June, 1, 7, 45, 30, 0, time.UTC)},
	}
	for _, tt := range tests {
		got, err := parseReminderArg(tt.in, now)
		require.NoError(t, err, tt.in)
		assert.Equal(t, tt.want, got, tt.in)
	}

	for _, bad := range []string{"", "+", "+-5m", "someday"} {
		_, err := parseReminderArg(bad, now)
		assert.Error(t, err, bad)
	}
}

func TestParseWeekdaysInput(t *testing.T) {
	set, err := parseWeekdaysInput("пн, Чт;sun")
	require.NoError(t, err)
	assert.Equal(t, model.NewWeekdaySet(time.Monday, time.Thursday, time.Sunday), set)

	_, err = parseWeekdaysInput("  ")
	assert.Error(t, err)
	_, err = parseWeekdaysInput("пн, xyz")
	assert.Error(t, err)
}

func TestParseIDs(t *testing.T) {
	id, err := parseIDArg(" #12 ")
	require.NoError(t, err)
	assert.Equal(t, uint(12), id)

	_, err = parseIDArg("0")
	assert.Error(t, err)

	a, b, err := parseTwoIDs("3 5")
	require.NoError(t, err)
	assert.Equal(t, uint(3), a)
	assert.Equal(t, uint(5), b)

	_, _, err = parseTwoIDs("3")
	assert.Error(t, err)

	id, err = parseTaskID("complete:42", cbCompletePrefix)
	require.NoError(t, err)
	assert.Equal(t, uint(42), id)
}

func TestParseDateInput(t *testing.T) {
	today := datemath.New(2024, time.February, 28)

	d, err := parseDateInput("завтра", today)
	require.NoError(t, err)
	assert.Equal(t, datemath.Some(datemath.New(2024, time.February, 29)), d)

	d, err = parseDateInput("2024-12-31", today)
	require.NoError(t, err)
	assert.Equal(t, datemath.Some(datemath.New(2024, time.December, 31)), d)

	_, err = parseDateInput("31.12.2024", today)
	assert.Error(t, err)
}

func TestParseChoiceInputs(t *testing.T) {
	p, err := parsePriorityInput(btnPriorityLow)
	require.NoError(t, err)
	assert.Equal(t, model.PriorityLow, p)
	p, err = parsePriorityInput("h")
	require.NoError(t, err)
	assert.Equal(t, model.PriorityHigh, p)
	_, err = parsePriorityInput("")
	assert.Error(t, err)

	r, err := parseRecurrenceInput(btnRecurWeekly)
	require.NoError(t, err)
	assert.Equal(t, model.RecurrenceWeekly, r)

	u, err := parseUnitInput(btnUnitMonths)
	require.NoError(t, err)
	assert.Equal(t, model.UnitMonths, u)

	e, err := parseEndInput(btnEndDate)
	require.NoError(t, err)
	assert.Equal(t, model.EndOnDate, e)
	_, err = parseEndInput("whenever")
	assert.Error(t, err)
}

func TestShortTitle(t *testing.T) {
	assert.Equal(t, "short", shortTitle("short", 10))
	assert.Equal(t, "Длинное н…", shortTitle("Длинное название задачи", 10))
}

func TestChatLimiter(t *testing.T) {
	l := newChatLimiter(60)
	for i := 0; i < 6; i++ {
		require.NoError(t, l.Allow(1), i)
	}
	assert.Error(t, l.Allow(1))
	assert.NoError(t, l.Allow(2))
}
