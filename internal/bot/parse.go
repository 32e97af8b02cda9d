package bot

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"dailyflow/internal/model"
	"dailyflow/internal/service"
	"dailyflow/pkg/datemath"
)

func parseTaskID(data, prefix string) (uint, error) {
	return parseIDArg(strings.TrimPrefix(data, prefix))
}

func parseIDArg(raw string) (uint, error) {
	raw = strings.TrimPrefix(strings.TrimSpace(raw), "#")
	value, err := strconv.ParseUint(raw, 10, 64)
	if err != nil || value == 0 {
		return 0, fmt.Errorf("invalid task id %q", raw)
	}
	return uint(value), nil
}

// parseTwoIDs reads "<predecessor> <successor>".
func parseTwoIDs(raw string) (uint, uint, error) {
	fields := strings.Fields(raw)
	if len(fields) != 2 {
		return 0, 0, fmt.Errorf("expected two task ids, got %q", raw)
	}
	first, err := parseIDArg(fields[0])
	if err != nil {
		return 0, 0, err
	}
	second, err := parseIDArg(fields[1])
	if err != nil {
		return 0, 0, err
	}
	return first, second, nil
}

func parsePriorityInput(text string) (model.Priority, error) {
	switch strings.ToLower(strings.TrimSpace(text)) {
	case strings.ToLower(btnPriorityHigh), "высокий":
		return model.PriorityHigh, nil
	case strings.ToLower(btnPriorityMedium), "средний":
		return model.PriorityMedium, nil
	case strings.ToLower(btnPriorityLow), "низкий":
		return model.PriorityLow, nil
	}
	if strings.TrimSpace(text) == "" {
		return "", fmt.Errorf("empty priority")
	}
	return model.ParsePriority(text)
}

func parseRecurrenceInput(text string) (model.RecurrenceType, error) {
	switch strings.ToLower(strings.TrimSpace(text)) {
	case strings.ToLower(btnRecurNone), "нет":
		return model.RecurrenceNone, nil
	case strings.ToLower(btnRecurDaily):
		return model.RecurrenceDaily, nil
	case strings.ToLower(btnRecurWeekly):
		return model.RecurrenceWeekly, nil
	case strings.ToLower(btnRecurCustom):
		return model.RecurrenceCustom, nil
	}
	if strings.TrimSpace(text) == "" {
		return "", fmt.Errorf("empty recurrence")
	}
	return model.ParseRecurrenceType(text)
}

func parseUnitInput(text string) (model.RecurrenceUnit, error) {
	switch strings.ToLower(strings.TrimSpace(text)) {
	case strings.ToLower(btnUnitDays):
		return model.UnitDays, nil
	case strings.ToLower(btnUnitWeeks):
		return model.UnitWeeks, nil
	case strings.ToLower(btnUnitMonths):
		return model.UnitMonths, nil
	}
	if strings.TrimSpace(text) == "" {
		return "", fmt.Errorf("empty unit")
	}
	return model.ParseRecurrenceUnit(text)
}

func parseEndInput(text string) (model.RecurrenceEnd, error) {
	switch strings.ToLower(strings.TrimSpace(text)) {
	case strings.ToLower(btnEndNever), "never":
		return model.EndNever, nil
	case strings.ToLower(btnEndDate), "on_date":
		return model.EndOnDate, nil
	case strings.ToLower(btnEndAfter), "after":
		return model.EndAfter, nil
	default:
		return "", fmt.Errorf("unknown end condition %q", text)
	}
}

var russianWeekdays = map[string]time.Weekday{
	"пн": time.Monday,
	"вт": time.Tuesday,
	"ср": time.Wednesday,
	"чт": time.Thursday,
	"пт": time.Friday,
	"сб": time.Saturday,
	"вс": time.Sunday,
}

// parseWeekdaysInput accepts Russian short names ("пн, ср") or English codes ("mon wed").
func parseWeekdaysInput(text string) (model.WeekdaySet, error) {
	fields := strings.FieldsFunc(strings.ToLower(text), func(r rune) bool { return r == ',' || r == ' ' || r == ';' })
	if len(fields) == 0 {
		return 0, fmt.Errorf("no weekdays in %q", text)
	}
	var set model.WeekdaySet
	for _, f := range fields {
		if d, ok := russianWeekdays[f]; ok {
			set = set.With(d)
			continue
		}
		parsed, err := model.ParseWeekdays(f)
		if err != nil {
			return 0, err
		}
		set |= parsed
	}
	return set, nil
}

// parseDateInput reads YYYY-MM-DD, "сегодня" or "завтра".
func parseDateInput(text string, today datemath.Date) (datemath.NullDate, error) {
	switch strings.ToLower(strings.TrimSpace(text)) {
	case "сегодня", "today":
		return datemath.Some(today), nil
	case "завтра", "tomorrow":
		return datemath.Some(today.AddDays(1)), nil
	}
	d, err := datemath.Parse(text)
	if err != nil {
		return datemath.NullDate{}, err
	}
	return datemath.Some(d), nil
}

// parseReminderArg adds the Russian preset names on top of
// service.ResolveReminderTime.
func parseReminderArg(raw string, now time.Time) (time.Time, error) {
	switch strings.ToLower(strings.TrimSpace(raw)) {
	case "позже", "вечером":
		return service.LaterToday(now), nil
	case "утром":
		return service.TomorrowMorning(now), nil
	}
	return service.ResolveReminderTime(raw, now)
}

func shortTitle(title string, maxLen int) string {
	clean := model.NormalizeTitle(strings.ReplaceAll(title, "\n", " "))
	runes := []rune(clean)
	if len(runes) <= maxLen {
		return clean
	}
	if maxLen <= 1 {
		return string(runes[:maxLen])
	}
	return string(runes[:maxLen-1]) + "…"
}

func priorityLabel(p model.Priority) string {
	switch p {
	case model.PriorityHigh:
		return btnPriorityHigh
	case model.PriorityLow:
		return btnPriorityLow
	case model.PriorityMedium:
		return btnPriorityMedium
	default:
		return btnPriorityMedium
	}
}
