package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"golang.org/x/sync/errgroup"

	"dailyflow/internal/bot"
	"dailyflow/internal/clock"
	"dailyflow/internal/config"
	"dailyflow/internal/notify"
	"dailyflow/internal/repository"
	"dailyflow/internal/service"
	pkgLog "dailyflow/pkg/log"
)

const reminderSyncInterval = time.Minute

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "config: %v\n", err)
		os.Exit(1)
	}

	l := pkgLog.Init(pkgLog.ZapConfig{
		Level:        cfg.Logger.Level,
		Mode:         cfg.Logger.Mode,
		Encoding:     cfg.Logger.Encoding,
		ColorEnabled: cfg.Logger.ColorEnabled,
	})

	if err := cfg.RequireTelegram(); err != nil {
		l.Fatalf(ctx, "config: %v", err)
	}

	loc, err := cfg.Location()
	if err != nil {
		l.Fatalf(ctx, "config: %v", err)
	}
	clk := clock.NewReal(loc)

	db, err := repository.NewDB(cfg.DatabaseURL, l)
	if err != nil {
		l.Fatalf(ctx, "db: %v", err)
	}
	if sqlDB, err := db.DB(); err == nil {
		defer sqlDB.Close()
	}

	userRepo := repository.NewUserRepository(db)
	taskRepo := repository.NewTaskRepository(db)
	streakRepo := repository.NewStreakRepository(db)

	api, err := tgbotapi.NewBotAPI(cfg.TelegramToken)
	if err != nil {
		l.Fatalf(ctx, "telegram: %v", err)
	}
	l.Infof(ctx, "authorized as @%s", api.Self.UserName)

	sink := notify.Multi{
		notify.NewLog(l),
		notify.NewTelegram(api, userRepo, cfg.Notify.RatePerSecond, cfg.Notify.Burst, l),
	}

	reminders := service.NewReminderScheduler(clk, sink, l)
	defer reminders.Shutdown()

	graph := service.NewDependencyGraph(taskRepo, l)
	streaks := service.NewStreakTracker(streakRepo, clk)
	taskSvc := service.NewTaskService(taskRepo, graph, streaks, reminders, clk, l)
	reportSvc := service.NewReportService(taskRepo, graph, streaks)

	if n, err := taskSvc.LoadReminders(ctx); err != nil {
		l.Errorf(ctx, "load reminders: %v", err)
	} else {
		l.Infof(ctx, "restored %d reminders", n)
	}

	telegramBot := bot.New(api, bot.Deps{
		Users:   userRepo,
		Tasks:   taskSvc,
		Reports: reportSvc,
		Clock:   clk,
		Config:  cfg,
		Logger:  l,
	})

	scheduler := service.NewSchedulerService(loc, l)
	sendReports := func(jobCtx context.Context) {
		if err := telegramBot.SendReports(jobCtx); err != nil && !errors.Is(err, context.Canceled) {
			l.Errorf(jobCtx, "report: %v", err)
		}
	}
	if cfg.ReportAt != "" {
		_, err = scheduler.ScheduleDaily("daily_report", cfg.ReportAt, sendReports)
	} else {
		_, err = scheduler.ScheduleInterval("report", cfg.ReportInterval, sendReports)
	}
	if err != nil {
		l.Fatalf(ctx, "schedule reports: %v", err)
	}

	// The CLI writes reminders to the same database; pick them up while running.
	if _, err := scheduler.ScheduleInterval("reminder_sync", reminderSyncInterval, func(jobCtx context.Context) {
		res, err := taskSvc.SyncReminders(jobCtx)
		if err != nil {
			l.Errorf(jobCtx, "sync reminders: %v", err)
			return
		}
		if res != (service.SyncResult{}) {
			l.Infof(jobCtx, "reminders synced: %d armed, %d cancelled, %d delivered late", res.Armed, res.Cancelled, res.Delivered)
		}
	}); err != nil {
		l.Fatalf(ctx, "schedule reminder sync: %v", err)
	}

	if cfg.CleanupAfter > 0 {
		if _, err := scheduler.ScheduleInterval("cleanup", time.Minute, func(jobCtx context.Context) {
			n, err := taskSvc.CleanupCompleted(jobCtx, cfg.CleanupAfter)
			if err != nil {
				l.Errorf(jobCtx, "cleanup: %v", err)
				return
			}
			if n > 0 {
				l.Infof(jobCtx, "cleanup removed %d completed tasks", n)
			}
		}); err != nil {
			l.Fatalf(ctx, "schedule cleanup: %v", err)
		}
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error { return telegramBot.Start(gctx) })
	g.Go(func() error { return scheduler.Run(gctx) })

	l.Info(ctx, "dailyflow bot started")
	if err := g.Wait(); err != nil && !errors.Is(err, context.Canceled) {
		l.Errorf(ctx, "stopped with error: %v", err)
	}
	l.Info(ctx, "shutdown complete")
}
