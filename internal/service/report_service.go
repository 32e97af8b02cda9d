package service

import (
	"context"
	"fmt"
	"html"
	"sort"
	"strings"
	"time"

	"dailyflow/internal/model"
	"dailyflow/pkg/datemath"
)

// ReportService builds human-readable summaries for periodic notifications.
type ReportService struct {
	store   TaskStore
	graph   *DependencyGraph
	streaks *StreakTracker
}

func NewReportService(store TaskStore, graph *DependencyGraph, streaks *StreakTracker) *ReportService {
	return &ReportService{store: store, graph: graph, streaks: streaks}
}

// DailySummary lists pending tasks by due date, marking overdue and blocked
// ones, followed by the streak.
func (s *ReportService) DailySummary(ctx context.Context, now time.Time) (string, error) {
	tasks, err := s.store.FindAll(ctx)
	if err != nil {
		return "", fmt.Errorf("build report: %w", err)
	}
	deps, err := s.store.ListDependencies(ctx)
	if err != nil {
		return "", fmt.Errorf("build report: %w", err)
	}
	blocked := s.graph.Blocked(tasks, deps)

	today := datemath.FromTime(now)
	var pending, overdue []model.Task
	completedToday := 0
	for _, task := range tasks {
		task.Normalize()
		if task.IsCompleted() {
			if task.CompletedAt != nil && datemath.FromTime(task.CompletedAt.In(now.Location())) == today {
				completedToday++
			}
			continue
		}
		if task.DueDate.Valid && task.DueDate.Date.Before(today) {
			overdue = append(overdue, task)
			continue
		}
		pending = append(pending, task)
	}
	sortByDue(overdue)
	sortByDue(pending)

	var builder strings.Builder
	builder.WriteString("📋 <b>Ежедневный отчёт</b>\n")
	builder.WriteString(fmt.Sprintf("🗓 %s\n\n", now.Format("02.01.2006")))

	if len(overdue) > 0 {
		builder.WriteString("⚠️ <b>Просроченные задачи</b>\n")
		for _, task := range overdue {
			builder.WriteString(FormatTaskLine(task, blocked[task.ID], today))
		}
		builder.WriteByte('\n')
	}

	builder.WriteString("🔥 <b>Текущие задачи</b>\n")
	if len(pending) == 0 {
		builder.WriteString("— нет открытых задач\n")
	} else {
		for _, task := range pending {
			builder.WriteString(FormatTaskLine(task, blocked[task.ID], today))
		}
	}

	builder.WriteString(fmt.Sprintf("\n✅ Выполнено сегодня: %d\n", completedToday))

	streak, err := s.streaks.Current(ctx)
	if err != nil {
		return "", fmt.Errorf("build report: %w", err)
	}
	builder.WriteString(DisplayStreak(streak))
	if streak.LongestStreak > 0 {
		builder.WriteString(fmt.Sprintf(" · рекорд %d", streak.LongestStreak))
	}

	return strings.TrimSpace(builder.String()), nil
}

// FormatTaskLine renders one task as an HTML line for Telegram.
func FormatTaskLine(task model.Task, blocked bool, today datemath.Date) string {
	var sb strings.Builder

	icon := "🟢"
	switch {
	case task.IsCompleted():
		icon = "✅"
	case blocked:
		icon = "🔒"
	case task.DueDate.Valid && task.DueDate.Date.Before(today):
		icon = "⚠️"
	case task.DueDate.Valid && datemath.DaysBetween(today, task.DueDate.Date) <= 2:
		icon = "⏳"
	}

	sb.WriteString(fmt.Sprintf("%s <code>#%d</code> %s %s", icon, task.ID, priorityMark(task.Priority), html.EscapeString(task.Title)))

	if task.DueDate.Valid {
		due := task.DueDate.Date
		days := datemath.DaysBetween(today, due)
		if days < 0 && !task.IsCompleted() {
			sb.WriteString(fmt.Sprintf("\n   ⏰ до %s · <b>просрочено</b>", due))
		} else {
			sb.WriteString(fmt.Sprintf("\n   ⏰ до %s · осталось %d дн.", due, days))
		}
	}
	if task.Recurrence.IsRecurring() {
		sb.WriteString(fmt.Sprintf("\n   ♻️ %s", html.EscapeString(DescribeRecurrence(task.Recurrence))))
	}
	if task.PomodoroCount > 0 {
		sb.WriteString(fmt.Sprintf("\n   🍅 %d", task.PomodoroCount))
	}
	if task.HasReminder() {
		sb.WriteString(fmt.Sprintf("\n   🔔 %s", html.EscapeString(*task.ReminderAt)))
	}

	sb.WriteByte('\n')
	return sb.String()
}

func priorityMark(p model.Priority) string {
	switch p {
	case model.PriorityHigh:
		return "‼️"
	case model.PriorityLow:
		return "▫️"
	case model.PriorityMedium:
		return "▪️"
	default:
		return "▪️"
	}
}

// sortByDue orders by due date, tasks without one last, then by id.
func sortByDue(tasks []model.Task) {
	sort.SliceStable(tasks, func(i, j int) bool {
		a, b := tasks[i].DueDate, tasks[j].DueDate
		switch {
		case !a.Valid && !b.Valid:
			return tasks[i].ID < tasks[j].ID
		case !a.Valid:
			return false
		case !b.Valid:
			return true
		case a.Date == b.Date:
			return tasks[i].ID < tasks[j].ID
		default:
			return a.Date.Before(b.Date)
		}
	})
}

var weekdayShort = map[time.Weekday]string{
	time.Monday:    "пн",
	time.Tuesday:   "вт",
	time.Wednesday: "ср",
	time.Thursday:  "чт",
	time.Friday:    "пт",
	time.Saturday:  "сб",
	time.Sunday:    "вс",
}

// DescribeRecurrence renders a recurrence rule for chat messages.
func DescribeRecurrence(r model.Recurrence) string {
	n := r.EffectiveInterval()
	var base string
	switch r.Kind() {
	case model.RecurrenceNone:
		return "без повтора"
	case model.RecurrenceDaily:
		base = every(n, "каждый день", "дн.")
	case model.RecurrenceWeekly:
		base = every(n, "каждую неделю", "нед.")
	case model.RecurrenceCustom:
		switch r.EffectiveUnit() {
		case model.UnitWeeks:
			base = every(n, "каждую неделю", "нед.")
			if !r.Weekdays.Empty() {
				days := make([]string, 0, 7)
				for _, d := range r.Weekdays.Days() {
					days = append(days, weekdayShort[d])
				}
				base += " (" + strings.Join(days, ", ") + ")"
			}
		case model.UnitMonths:
			base = every(n, "каждый месяц", "мес.")
		default:
			base = every(n, "каждый день", "дн.")
		}
	default:
		return string(r.Type)
	}

	switch r.EndKind() {
	case model.EndOnDate:
		base += " до " + r.EndDate.String()
	case model.EndAfter:
		base += fmt.Sprintf(", осталось %d", r.Remaining)
	}
	return base
}

func every(n int, one, unit string) string {
	if n == 1 {
		return one
	}
	return fmt.Sprintf("каждые %d %s", n, unit)
}
