package main

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"dailyflow/internal/service"
)

func newDependCmd(get func() *app) *cobra.Command {
	return &cobra.Command{
		Use:   "depend <predecessor> <successor>",
		Short: "Make a task wait for another one",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			pred, succ, err := parseIDPair(args)
			if err != nil {
				return err
			}
			if err := get().tasks.AddDependency(cmd.Context(), pred, succ); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "✓ Task #%d now waits for #%d\n", succ, pred)
			return nil
		},
	}
}

func newUndependCmd(get func() *app) *cobra.Command {
	return &cobra.Command{
		Use:   "undepend <predecessor> <successor>",
		Short: "Remove a dependency between two tasks",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			pred, succ, err := parseIDPair(args)
			if err != nil {
				return err
			}
			if err := get().tasks.RemoveDependency(cmd.Context(), pred, succ); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "✓ Task #%d no longer waits for #%d\n", succ, pred)
			return nil
		},
	}
}

func newRemindCmd(get func() *app) *cobra.Command {
	var remove bool
	cmd := &cobra.Command{
		Use:   "remind <id> [later|morning|+duration|YYYY-MM-DDTHH:MM]",
		Short: "Set or clear a task reminder",
		Long: `Store a reminder for a task. The bot daemon picks up stored reminders
within a minute and delivers them; --clear and completing the task withdraw
it. A time that has already passed is delivered right away and not stored.`,
		Args: cobra.RangeArgs(1, 2),
		RunE: func(cmd *cobra.Command, args []string) error {
			a := get()
			id, err := parseID(args[0])
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()

			if remove {
				if _, err := a.tasks.ClearReminder(cmd.Context(), id); err != nil {
					return err
				}
				fmt.Fprintf(out, "✓ Reminder for task #%d cleared\n", id)
				return nil
			}
			if len(args) < 2 {
				return fmt.Errorf("reminder time is required")
			}

			when, err := service.ResolveReminderTime(args[1], a.now())
			if err != nil {
				return err
			}
			task, err := a.tasks.SetReminder(cmd.Context(), id, when)
			if err != nil {
				return err
			}
			if task.HasReminder() {
				fmt.Fprintf(out, "✓ Reminder for task #%d set to %s\n", id, *task.ReminderAt)
			} else {
				fmt.Fprintf(out, "Reminder time has passed, nothing stored for task #%d\n", id)
			}
			return nil
		},
	}
	cmd.Flags().BoolVar(&remove, "clear", false, "Remove the reminder")
	return cmd
}

func newStreakCmd(get func() *app) *cobra.Command {
	return &cobra.Command{
		Use:   "streak",
		Short: "Show the completion streak",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			streak, err := get().tasks.Streak(cmd.Context())
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			fmt.Fprintln(out, service.DisplayStreak(streak))
			fmt.Fprintf(out, "Longest: %d\n", streak.LongestStreak)
			if streak.LastCompletionDate.Valid {
				fmt.Fprintf(out, "Last completion: %s\n", streak.LastCompletionDate)
			}
			return nil
		},
	}
}

func newReportCmd(get func() *app) *cobra.Command {
	return &cobra.Command{
		Use:   "report",
		Short: "Print the daily summary",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			a := get()
			summary, err := a.reports.DailySummary(cmd.Context(), a.now())
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), summary)
			return nil
		},
	}
}

func newCleanupCmd(get func() *app) *cobra.Command {
	var olderThan time.Duration
	cmd := &cobra.Command{
		Use:   "cleanup",
		Short: "Delete completed tasks older than the retention period",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			a := get()
			retention := olderThan
			if !cmd.Flags().Changed("older-than") {
				retention = a.cfg.CleanupAfter
			}
			if retention <= 0 {
				fmt.Fprintln(cmd.OutOrStdout(), "Cleanup is disabled")
				return nil
			}
			n, err := a.tasks.CleanupCompleted(cmd.Context(), retention)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "✓ Removed %d completed tasks\n", n)
			return nil
		},
	}
	cmd.Flags().DurationVar(&olderThan, "older-than", 0, "Retention period (defaults to CLEANUP_AFTER)")
	return cmd
}

func parseIDPair(args []string) (uint, uint, error) {
	first, err := parseID(args[0])
	if err != nil {
		return 0, 0, err
	}
	second, err := parseID(args[1])
	if err != nil {
		return 0, 0, err
	}
	return first, second, nil
}
