package main

import (
	"context"
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"dailyflow/internal/clock"
	"dailyflow/internal/pomodoro"
	"dailyflow/internal/service"
)

func newPomodoroCmd(get func() *app) *cobra.Command {
	var (
		work      int
		brk       int
		skipBreak bool
	)
	cmd := &cobra.Command{
		Use:   "pomodoro <id>",
		Short: "Run a pomodoro for a task in the foreground",
		Long: `Count down a work interval for a task, record the finished pomodoro
and then count down the break. Interrupt to abandon the session.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			a := get()
			id, err := parseID(args[0])
			if err != nil {
				return err
			}
			task, err := a.tasks.GetTask(cmd.Context(), id)
			if err != nil {
				return err
			}

			if !cmd.Flags().Changed("work") {
				work = a.cfg.Pomodoro.WorkMinutes
			}
			if !cmd.Flags().Changed("break") {
				brk = a.cfg.Pomodoro.BreakMinutes
			}

			session := startPomodoro(cmd.Context(), cmd.OutOrStdout(), a.clock, a.tasks, task.ID, task.Title, pomodoroOptions{
				work:      work,
				brk:       brk,
				skipBreak: skipBreak,
			})
			select {
			case <-session.done:
				return nil
			case <-cmd.Context().Done():
				session.timer.Stop()
				fmt.Fprintln(cmd.OutOrStdout(), "\n⏹ Pomodoro abandoned")
				return nil
			}
		},
	}
	cmd.Flags().IntVarP(&work, "work", "w", pomodoro.DefaultWorkMinutes, "Work minutes")
	cmd.Flags().IntVarP(&brk, "break", "b", pomodoro.DefaultBreakMinutes, "Break minutes")
	cmd.Flags().BoolVar(&skipBreak, "no-break", false, "Stop after the work interval")
	return cmd
}

type pomodoroOptions struct {
	work      int
	brk       int
	skipBreak bool
}

type pomodoroRun struct {
	timer *pomodoro.Timer
	done  chan struct{}
}

// startPomodoro starts the work interval and returns at once; done closes
// when the session is over.
func startPomodoro(ctx context.Context, out io.Writer, c clock.Clock, tasks *service.TaskService, taskID uint, title string, opts pomodoroOptions) *pomodoroRun {
	run := &pomodoroRun{timer: pomodoro.New(c), done: make(chan struct{})}
	timer := run.timer
	timer.SetWorkDuration(opts.work)
	timer.SetBreakDuration(opts.brk)

	finish := func() {
		select {
		case <-run.done:
		default:
			close(run.done)
		}
	}

	timer.OnTick(func(remaining int) {
		if remaining > 0 && remaining%60 == 0 {
			fmt.Fprintf(out, "  %s %s left\n", timer.State(), pomodoro.FormatSeconds(remaining))
		}
	})
	timer.OnComplete(func(finished pomodoro.State) {
		switch finished {
		case pomodoro.StateWork:
			updated, err := tasks.RecordPomodoro(ctx, taskID)
			if err != nil {
				fmt.Fprintf(out, "✗ Could not record pomodoro: %v\n", err)
			} else {
				fmt.Fprintf(out, "🍅 Pomodoro done for %q (total %d)\n", title, updated.PomodoroCount)
			}
			if opts.skipBreak {
				finish()
				return
			}
			fmt.Fprintf(out, "☕ Break: %d min\n", timer.BreakMinutes())
			timer.StartBreak()
		case pomodoro.StateBreak:
			fmt.Fprintln(out, "✓ Break over")
			finish()
		}
	})

	timer.StartWork()
	fmt.Fprintf(out, "🍅 Working on #%d %q for %d min (session %s)\n", taskID, title, timer.WorkMinutes(), timer.Session())
	return run
}
