package model

import (
	"fmt"
	"strings"
	"time"

	"dailyflow/pkg/datemath"
)

type Priority string

const (
	PriorityHigh   Priority = "HIGH"
	PriorityMedium Priority = "MEDIUM"
	PriorityLow    Priority = "LOW"
)

// ParsePriority accepts HIGH/MEDIUM/LOW in any case, plus the short forms h/m/l.
func ParsePriority(raw string) (Priority, error) {
	switch strings.ToUpper(strings.TrimSpace(raw)) {
	case "HIGH", "H":
		return PriorityHigh, nil
	case "MEDIUM", "M", "":
		return PriorityMedium, nil
	case "LOW", "L":
		return PriorityLow, nil
	default:
		return "", fmt.Errorf("unknown priority %q", raw)
	}
}

type Status string

const (
	StatusPending   Status = "PENDING"
	StatusCompleted Status = "COMPLETED"
)

// Task represents a single item in the planner.
type Task struct {
	ID            uint `gorm:"primaryKey"`
	Title         string
	Priority      Priority          `gorm:"type:text"`
	DueDate       datemath.NullDate `gorm:"type:text"`
	Status        Status            `gorm:"type:text;index"`
	CompletedAt   *time.Time        `gorm:"index"`
	PomodoroCount int               `gorm:"default:0"`
	Recurrence    Recurrence        `gorm:"embedded"`
	// ReminderAt is an ISO local date-time without zone, see ReminderLayout.
	ReminderAt *string
	CreatedAt  time.Time
	UpdatedAt  time.Time
}

func (t *Task) IsCompleted() bool {
	return t.Status == StatusCompleted
}

// MarkCompleted sets the status and the completion time together.
func (t *Task) MarkCompleted(at time.Time) {
	t.Status = StatusCompleted
	t.CompletedAt = &at
}

// Reopen moves a task back to pending and drops its completion time.
func (t *Task) Reopen() {
	t.Status = StatusPending
	t.CompletedAt = nil
}

func (t *Task) HasReminder() bool {
	return t.ReminderAt != nil && strings.TrimSpace(*t.ReminderAt) != ""
}

// Normalize fills defaults so a task read from an older row or built by a
// caller behaves like a freshly created one.
func (t *Task) Normalize() {
	t.Title = NormalizeTitle(t.Title)
	if t.Priority == "" {
		t.Priority = PriorityMedium
	}
	if t.Status == "" {
		t.Status = StatusPending
	}
	if t.Status != StatusCompleted {
		t.CompletedAt = nil
	}
	if t.PomodoroCount < 0 {
		t.PomodoroCount = 0
	}
	t.Recurrence = t.Recurrence.Normalized()
}

// NormalizeTitle trims the title and folds internal whitespace runs.
func NormalizeTitle(value string) string {
	return strings.Join(strings.Fields(value), " ")
}
