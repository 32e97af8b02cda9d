package service

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/robfig/cron/v3"

	pkgLog "dailyflow/pkg/log"
)

// jobTimeout caps a single run of a scheduled job.
const jobTimeout = time.Minute

// SchedulerService wraps cron-based jobs.
type SchedulerService struct {
	cron *cron.Cron
	l    pkgLog.Logger
}

func NewSchedulerService(loc *time.Location, l pkgLog.Logger) *SchedulerService {
	cl := cronLogger{l: l}
	return &SchedulerService{
		cron: cron.New(
			cron.WithLocation(loc),
			cron.WithSeconds(),
			cron.WithLogger(cl),
			cron.WithChain(cron.Recover(cl), cron.SkipIfStillRunning(cl)),
		),
		l: l,
	}
}

// ScheduleDaily registers a daily job at the given HH:MM time string.
func (s *SchedulerService) ScheduleDaily(name, timeStr string, job func(ctx context.Context)) (cron.EntryID, error) {
	spec, err := buildDailySpec(timeStr)
	if err != nil {
		return 0, err
	}
	return s.add(name, spec, job)
}

// ScheduleInterval registers a periodic job every given duration.
func (s *SchedulerService) ScheduleInterval(name string, interval time.Duration, job func(ctx context.Context)) (cron.EntryID, error) {
	if interval <= 0 {
		return 0, fmt.Errorf("interval must be positive")
	}
	seconds := int(interval.Seconds())
	if seconds <= 0 {
		seconds = 1
	}
	return s.add(name, fmt.Sprintf("@every %ds", seconds), job)
}

func (s *SchedulerService) Start() {
	s.cron.Start()
}

func (s *SchedulerService) Stop() {
	ctx := s.cron.Stop()
	<-ctx.Done()
}

// Run starts the scheduler and stops it, waiting for running jobs, once ctx is done.
func (s *SchedulerService) Run(ctx context.Context) error {
	s.Start()
	<-ctx.Done()
	s.Stop()
	return nil
}

func (s *SchedulerService) Entries() int {
	return len(s.cron.Entries())
}

func (s *SchedulerService) add(name, spec string, job func(ctx context.Context)) (cron.EntryID, error) {
	id, err := s.cron.AddFunc(spec, func() {
		ctx, cancel := context.WithTimeout(context.Background(), jobTimeout)
		defer cancel()
		start := time.Now()
		job(ctx)
		s.l.Debugf(ctx, "job %s finished in %s", name, time.Since(start).Round(time.Millisecond))
	})
	if err != nil {
		return 0, fmt.Errorf("schedule %s: %w", name, err)
	}
	s.l.Infof(context.Background(), "job %s scheduled (%s)", name, spec)
	return id, nil
}

func buildDailySpec(timeStr string) (string, error) {
	parts := strings.Split(strings.TrimSpace(timeStr), ":")
	if len(parts) != 2 {
		return "", fmt.Errorf("invalid time %q, expected HH:MM", timeStr)
	}
	hour, err := strconv.Atoi(parts[0])
	if err != nil || hour < 0 || hour > 23 {
		return "", fmt.Errorf("invalid hour in %q", timeStr)
	}
	minute, err := strconv.Atoi(parts[1])
	if err != nil || minute < 0 || minute > 59 {
		return "", fmt.Errorf("invalid minute in %q", timeStr)
	}
	// cron format: second minute hour dom month dow
	return fmt.Sprintf("0 %d %d * * *", minute, hour), nil
}

// cronLogger routes cron's own messages to the application logger.
type cronLogger struct {
	l pkgLog.Logger
}

func (c cronLogger) Info(msg string, keysAndValues ...interface{}) {
	c.l.Debugf(context.Background(), "cron: %s %v", msg, keysAndValues)
}

func (c cronLogger) Error(err error, msg string, keysAndValues ...interface{}) {
	c.l.Errorf(context.Background(), "cron: %s %v: %v", msg, keysAndValues, err)
}
