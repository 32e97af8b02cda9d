package main

import (
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	"dailyflow/internal/model"
	"dailyflow/internal/service"
	"dailyflow/pkg/datemath"
)

type addOptions struct {
	priority string
	due      string
	recur    string
	interval int
	unit     string
	days     string
	until    string
	count    int
}

func newAddCmd(get func() *app) *cobra.Command {
	var opts addOptions
	cmd := &cobra.Command{
		Use:   "add <title>",
		Short: "Add a new task",
		Long:  `Add a task with an optional priority, due date and recurrence rule.`,
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			input, err := opts.input(strings.Join(args, " "))
			if err != nil {
				return err
			}
			task, err := get().tasks.CreateTask(cmd.Context(), input)
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "✓ Task created: #%d\n", task.ID)
			printTaskDetails(out, *task)
			return nil
		},
	}
	f := cmd.Flags()
	f.StringVarP(&opts.priority, "priority", "p", "medium", "Priority: high, medium or low")
	f.StringVarP(&opts.due, "due", "d", "", "Due date (YYYY-MM-DD)")
	f.StringVarP(&opts.recur, "recur", "r", "none", "Recurrence: none, daily, weekly or custom")
	f.IntVar(&opts.interval, "interval", 1, "Repeat every N units")
	f.StringVar(&opts.unit, "unit", "days", "Custom recurrence unit: days, weeks or months")
	f.StringVar(&opts.days, "days", "", "Weekdays for a weekly custom rule, e.g. mon,thu")
	f.StringVar(&opts.until, "until", "", "Stop repeating after this date (YYYY-MM-DD)")
	f.IntVar(&opts.count, "count", 0, "Stop repeating after N more instances")
	return cmd
}

func (o addOptions) input(title string) (service.TaskInput, error) {
	priority, err := model.ParsePriority(o.priority)
	if err != nil {
		return service.TaskInput{}, err
	}
	input := service.TaskInput{Title: title, Priority: priority}

	if o.due != "" {
		due, err := datemath.Parse(o.due)
		if err != nil {
			return service.TaskInput{}, err
		}
		input.DueDate = datemath.Some(due)
	}

	kind, err := model.ParseRecurrenceType(o.recur)
	if err != nil {
		return service.TaskInput{}, err
	}
	rule := model.Recurrence{Type: kind, Interval: o.interval, End: model.EndNever}
	if kind == model.RecurrenceCustom {
		if rule.Unit, err = model.ParseRecurrenceUnit(o.unit); err != nil {
			return service.TaskInput{}, err
		}
		if o.days != "" {
			if rule.Weekdays, err = model.ParseWeekdays(o.days); err != nil {
				return service.TaskInput{}, err
			}
		}
	}

	switch {
	case o.until != "" && o.count > 0:
		return service.TaskInput{}, errors.New("--until and --count are mutually exclusive")
	case o.until != "":
		end, err := datemath.Parse(o.until)
		if err != nil {
			return service.TaskInput{}, err
		}
		rule.End = model.EndOnDate
		rule.EndDate = datemath.Some(end)
	case o.count > 0:
		rule.End = model.EndAfter
		rule.Remaining = o.count
	}
	input.Recurrence = rule
	return input, nil
}

func newListCmd(get func() *app) *cobra.Command {
	var all bool
	cmd := &cobra.Command{
		Use:   "list",
		Short: "List tasks",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			a := get()
			tasks, err := a.tasks.ListTasks(cmd.Context())
			if err != nil {
				return err
			}
			blocked, err := a.tasks.BlockedTasks(cmd.Context())
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			shown := 0
			for _, task := range tasks {
				if task.IsCompleted() && !all {
					continue
				}
				shown++
				fmt.Fprintf(out, "%s #%d [%s] %s\n", statusMark(task, blocked[task.ID]), task.ID, task.Priority, task.Title)
				if task.DueDate.Valid {
					fmt.Fprintf(out, "    due %s\n", task.DueDate)
				}
				if task.Recurrence.IsRecurring() {
					fmt.Fprintf(out, "    %s\n", task.Recurrence)
				}
			}
			if shown == 0 {
				fmt.Fprintln(out, "No tasks found")
			}
			return nil
		},
	}
	cmd.Flags().BoolVarP(&all, "all", "a", false, "Include completed tasks")
	return cmd
}

func newCompleteCmd(get func() *app) *cobra.Command {
	return &cobra.Command{
		Use:   "complete <id>",
		Short: "Mark a task as completed",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseID(args[0])
			if err != nil {
				return err
			}
			result, err := get().tasks.CompleteTask(cmd.Context(), id)
			if err != nil && result.Task == nil {
				return err
			}

			out := cmd.OutOrStdout()
			switch result.Outcome {
			case service.OutcomeBlocked:
				fmt.Fprintf(out, "✗ Task #%d is blocked by %s\n", id, joinIDs(result.BlockedBy))
				return nil
			case service.OutcomeAlreadyCompleted:
				fmt.Fprintf(out, "Task #%d is already completed\n", id)
				return nil
			}

			fmt.Fprintf(out, "✓ Task #%d completed\n", id)
			if result.Next != nil {
				fmt.Fprintf(out, "  Next: #%d due %s\n", result.Next.ID, result.Next.DueDate)
			}
			fmt.Fprintf(out, "  %s\n", service.DisplayStreak(result.Streak))
			return err
		},
	}
}

func newReopenCmd(get func() *app) *cobra.Command {
	return &cobra.Command{
		Use:   "reopen <id>",
		Short: "Move a completed task back to pending",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseID(args[0])
			if err != nil {
				return err
			}
			if _, err := get().tasks.ReopenTask(cmd.Context(), id); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "✓ Task #%d reopened\n", id)
			return nil
		},
	}
}

func newRemoveCmd(get func() *app) *cobra.Command {
	return &cobra.Command{
		Use:     "rm <id>",
		Aliases: []string{"delete"},
		Short:   "Delete a task",
		Args:    cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseID(args[0])
			if err != nil {
				return err
			}
			if err := get().tasks.DeleteTask(cmd.Context(), id); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "✓ Task #%d deleted\n", id)
			return nil
		},
	}
}

func printTaskDetails(out io.Writer, task model.Task) {
	fmt.Fprintf(out, "  Title: %s\n", task.Title)
	fmt.Fprintf(out, "  Priority: %s\n", task.Priority)
	if task.DueDate.Valid {
		fmt.Fprintf(out, "  Due: %s\n", task.DueDate)
	}
	if task.Recurrence.IsRecurring() {
		fmt.Fprintf(out, "  Repeats: %s\n", task.Recurrence)
	}
}

func statusMark(task model.Task, blocked bool) string {
	switch {
	case task.IsCompleted():
		return "✓"
	case blocked:
		return "⧗"
	default:
		return "○"
	}
}

func parseID(raw string) (uint, error) {
	value, err := strconv.ParseUint(strings.TrimPrefix(strings.TrimSpace(raw), "#"), 10, 64)
	if err != nil || value == 0 {
		return 0, fmt.Errorf("invalid task id %q", raw)
	}
	return uint(value), nil
}

func joinIDs(ids []uint) string {
	parts := make([]string, len(ids))
	for i, id := range ids {
		parts[i] = "#" + strconv.FormatUint(uint64(id), 10)
	}
	return strings.Join(parts, ", ")
}
