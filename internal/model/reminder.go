package model

import (
	"fmt"
	"strings"
	"time"
)

// ReminderLayout is the stored form of Task.ReminderAt: ISO local date-time, no zone.
const ReminderLayout = "2006-01-02T15:04:05"

var reminderLayouts = []string{
	ReminderLayout,
	"2006-01-02T15:04:05.999999999",
	"2006-01-02T15:04",
	"2006-01-02 15:04:05",
	"2006-01-02 15:04",
}

func FormatReminder(t time.Time) string {
	return t.Format(ReminderLayout)
}

// ParseReminder reads a stored reminder as wall time in loc.
func ParseReminder(raw string, loc *time.Location) (time.Time, error) {
	raw = strings.TrimSpace(raw)
	for _, layout := range reminderLayouts {
		if t, err := time.ParseInLocation(layout, raw, loc); err == nil {
			return t, nil
		}
	}
	return time.Time{}, fmt.Errorf("parse reminder %q: unsupported format", raw)
}
