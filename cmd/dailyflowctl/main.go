package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"dailyflow/internal/clock"
	"dailyflow/internal/config"
	"dailyflow/internal/notify"
	"dailyflow/internal/repository"
	"dailyflow/internal/service"
	pkgLog "dailyflow/pkg/log"
)

// app holds the services a single command invocation works with.
type app struct {
	cfg       config.Config
	clock     *clock.Real
	l         pkgLog.Logger
	tasks     *service.TaskService
	reports   *service.ReportService
	reminders *service.ReminderScheduler
	close     func()
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := newRootCmd().ExecuteContext(ctx); err != nil {
		fatal("%v", err)
	}
}

func newRootCmd() *cobra.Command {
	var (
		dbPath  string
		verbose bool
		a       *app
	)

	root := &cobra.Command{
		Use:           "dailyflowctl",
		Short:         "Manage dailyflow tasks from the terminal",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			opened, err := openApp(dbPath, verbose)
			if err != nil {
				return err
			}
			a = opened
			return nil
		},
		PersistentPostRun: func(cmd *cobra.Command, args []string) {
			if a != nil {
				a.close()
			}
		},
	}
	root.PersistentFlags().StringVar(&dbPath, "db", "", "SQLite database path (defaults to DATABASE_URL)")
	root.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "Log at debug level")

	get := func() *app { return a }
	root.AddCommand(
		newAddCmd(get),
		newListCmd(get),
		newCompleteCmd(get),
		newReopenCmd(get),
		newRemoveCmd(get),
		newDependCmd(get),
		newUndependCmd(get),
		newRemindCmd(get),
		newStreakCmd(get),
		newReportCmd(get),
		newCleanupCmd(get),
		newPomodoroCmd(get),
	)
	return root
}

func openApp(dbPath string, verbose bool) (*app, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, err
	}
	if dbPath != "" {
		cfg.DatabaseURL = dbPath
	}

	level := "warn"
	if verbose {
		level = "debug"
	}
	l := pkgLog.Init(pkgLog.ZapConfig{
		Level:    level,
		Mode:     cfg.Logger.Mode,
		Encoding: cfg.Logger.Encoding,
	})

	loc, err := cfg.Location()
	if err != nil {
		return nil, err
	}
	clk := clock.NewReal(loc)

	db, err := repository.NewDB(cfg.DatabaseURL, l)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}
	taskRepo := repository.NewTaskRepository(db)
	streakRepo := repository.NewStreakRepository(db)

	reminders := service.NewReminderScheduler(clk, notify.NewLog(l), l)
	graph := service.NewDependencyGraph(taskRepo, l)
	streaks := service.NewStreakTracker(streakRepo, clk)

	return &app{
		cfg:       cfg,
		clock:     clk,
		l:         l,
		tasks:     service.NewTaskService(taskRepo, graph, streaks, reminders, clk, l),
		reports:   service.NewReportService(taskRepo, graph, streaks),
		reminders: reminders,
		close: func() {
			reminders.Shutdown()
			if sqlDB, err := db.DB(); err == nil {
				sqlDB.Close()
			}
		},
	}, nil
}

func fatal(format string, args ...any) {
	fmt.Fprintf(os.Stderr, "Error: "+format+"\n", args...)
	os.Exit(1)
}

// now is shared by commands that need the wall time in the configured zone.
func (a *app) now() time.Time {
	return a.clock.Now()
}
