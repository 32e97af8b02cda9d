package service

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"

	"golang.org/x/sync/semaphore"

	"dailyflow/internal/clock"
	"dailyflow/internal/model"
	pkgLog "dailyflow/pkg/log"
)

const (
	ReminderTitle = "Task Reminder"

	// deliverySlots bounds how many notifications may be in flight at once.
	deliverySlots = 2

	laterTodayHour      = 18
	tomorrowMorningHour = 9
)

// ReminderScheduler keeps at most one armed reminder per task and hands due
// reminders to a NotificationSink.
type ReminderScheduler struct {
	clock clock.Clock
	sink  NotificationSink
	l     pkgLog.Logger

	slots  *semaphore.Weighted
	ctx    context.Context
	cancel context.CancelFunc

	// started bounds which missed reminders Sync may still deliver late.
	started time.Time
	// guard, when set, is asked before a timer delivers; it returns the
	// current title, or false when the stored reminder no longer matches.
	guard func(taskID uint, stamp string) (string, bool)

	mu   sync.Mutex
	live map[uint]*reminderEntry
	// fired remembers the last stamp delivered per task so Sync does not repeat it.
	fired map[uint]string
}

type reminderEntry struct {
	taskID uint
	title  string
	at     time.Time
	stamp  string
	timer  clock.Timer
}

// SyncResult counts what a Sync pass changed.
type SyncResult struct {
	Armed     int
	Cancelled int
	Delivered int
}

func NewReminderScheduler(c clock.Clock, sink NotificationSink, l pkgLog.Logger) *ReminderScheduler {
	ctx, cancel := context.WithCancel(context.Background())
	return &ReminderScheduler{
		clock:  c,
		sink:   sink,
		l:      l,
		slots:  semaphore.NewWeighted(deliverySlots),
		ctx:    ctx,
		cancel:  cancel,
		started: c.Now(),
		live:    make(map[uint]*reminderEntry),
		fired:   make(map[uint]string),
	}
}

// Schedule replaces any reminder of the task with one firing at when. A when
// that is not in the future is delivered right away on the calling goroutine.
func (s *ReminderScheduler) Schedule(taskID uint, title string, when time.Time) {
	s.mu.Lock()
	if old, ok := s.live[taskID]; ok {
		old.timer.Stop()
		delete(s.live, taskID)
	}

	now := s.clock.Now()
	if !when.After(now) {
		s.mu.Unlock()
		s.deliver(taskID, title)
		return
	}

	s.armLocked(taskID, title, when, now)
	s.mu.Unlock()

	s.l.Debugf(s.ctx, "reminder for task %d armed at %s", taskID, model.FormatReminder(when))
}

func (s *ReminderScheduler) armLocked(taskID uint, title string, when, now time.Time) {
	entry := &reminderEntry{taskID: taskID, title: title, at: when, stamp: model.FormatReminder(when)}
	entry.timer = s.clock.AfterFunc(when.Sub(now), func() { s.fire(entry) })
	s.live[taskID] = entry
}

// Cancel disarms the task's reminder. It reports whether one was armed.
func (s *ReminderScheduler) Cancel(taskID uint) bool {
	s.mu.Lock()
	entry, ok := s.live[taskID]
	if ok {
		delete(s.live, taskID)
	}
	s.mu.Unlock()

	if !ok {
		return false
	}
	entry.timer.Stop()
	return true
}

// ReloadPending arms the stored reminders of tasks that are still in the
// future. It returns how many were armed.
func (s *ReminderScheduler) ReloadPending(tasks []model.Task) int {
	now := s.clock.Now()
	armed := 0
	for _, task := range tasks {
		if !task.HasReminder() || task.IsCompleted() {
			continue
		}
		at, err := model.ParseReminder(*task.ReminderAt, now.Location())
		if err != nil {
			s.l.Warnf(s.ctx, "skip reminder of task %d: %v", task.ID, err)
			continue
		}
		if !at.After(now) {
			s.l.Debugf(s.ctx, "skip past reminder of task %d (%s)", task.ID, *task.ReminderAt)
			continue
		}
		s.Schedule(task.ID, task.Title, at)
		armed++
	}
	return armed
}

// Sync reconciles the armed reminders with the stored tasks, which another
// process sharing the store may have changed. Stored future reminders that
// are not armed get armed; armed ones whose task is gone, completed or holds
// a different reminder are cancelled. A stored reminder that came due while
// this scheduler was running but was never armed here is delivered late.
func (s *ReminderScheduler) Sync(tasks []model.Task) SyncResult {
	type wanted struct {
		id    uint
		title string
		at    time.Time
		stamp string
	}

	now := s.clock.Now()
	want := make(map[uint]wanted, len(tasks))
	for _, task := range tasks {
		if !task.HasReminder() || task.IsCompleted() {
			continue
		}
		at, err := model.ParseReminder(*task.ReminderAt, now.Location())
		if err != nil {
			continue
		}
		want[task.ID] = wanted{id: task.ID, title: task.Title, at: at, stamp: model.FormatReminder(at)}
	}

	var res SyncResult
	var due []wanted

	s.mu.Lock()
	if s.ctx.Err() != nil {
		s.mu.Unlock()
		return res
	}
	for id, e := range s.live {
		if w, ok := want[id]; !ok || w.stamp != e.stamp {
			e.timer.Stop()
			delete(s.live, id)
			res.Cancelled++
		}
	}
	for id := range s.fired {
		if _, ok := want[id]; !ok {
			delete(s.fired, id)
		}
	}
	for id, w := range want {
		if _, ok := s.live[id]; ok || s.fired[id] == w.stamp {
			continue
		}
		switch {
		case w.at.After(now):
			s.armLocked(id, w.title, w.at, now)
			res.Armed++
		case w.at.After(s.started):
			s.fired[id] = w.stamp
			due = append(due, w)
		}
	}
	s.mu.Unlock()

	sort.Slice(due, func(i, j int) bool { return due[i].id < due[j].id })
	for _, w := range due {
		s.deliver(w.id, w.title)
		res.Delivered++
	}
	return res
}

// Pending lists the tasks with an armed reminder, in id order.
func (s *ReminderScheduler) Pending() []uint {
	s.mu.Lock()
	defer s.mu.Unlock()

	ids := make([]uint, 0, len(s.live))
	for id := range s.live {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
	return ids
}

// Shutdown disarms everything. Deliveries already waiting for a slot are dropped.
func (s *ReminderScheduler) Shutdown() {
	s.mu.Lock()
	entries := s.live
	s.live = make(map[uint]*reminderEntry)
	s.mu.Unlock()

	for _, e := range entries {
		e.timer.Stop()
	}
	s.cancel()
}

func (s *ReminderScheduler) fire(entry *reminderEntry) {
	s.mu.Lock()
	if s.live[entry.taskID] != entry {
		s.mu.Unlock()
		return
	}
	delete(s.live, entry.taskID)
	s.fired[entry.taskID] = entry.stamp
	guard := s.guard
	s.mu.Unlock()

	title := entry.title
	if guard != nil {
		current, ok := guard(entry.taskID, entry.stamp)
		if !ok {
			s.l.Debugf(s.ctx, "reminder for task %d no longer stored, not delivered", entry.taskID)
			return
		}
		if current != "" {
			title = current
		}
	}
	s.deliver(entry.taskID, title)
}

func (s *ReminderScheduler) deliver(taskID uint, title string) {
	if err := s.slots.Acquire(s.ctx, 1); err != nil {
		s.l.Warnf(s.ctx, "reminder for task %d dropped: %v", taskID, err)
		return
	}
	defer s.slots.Release(1)

	s.sink.Notify(ReminderTitle, ReminderMessage(title))
	s.l.Infof(s.ctx, "reminder for task %d delivered", taskID)
}

func ReminderMessage(title string) string {
	return "📌 " + title
}

// LaterToday is 18:00 today, or 18:00 tomorrow once that has passed.
func LaterToday(now time.Time) time.Time {
	y, m, d := now.Date()
	at := time.Date(y, m, d, laterTodayHour, 0, 0, 0, now.Location())
	if !at.After(now) {
		at = at.AddDate(0, 0, 1)
	}
	return at
}

// TomorrowMorning is 09:00 on the next calendar day.
func TomorrowMorning(now time.Time) time.Time {
	y, m, d := now.Date()
	return time.Date(y, m, d+1, tomorrowMorningHour, 0, 0, 0, now.Location())
}

// ResolveReminderTime reads "later", "morning", a "+duration" offset from now
// or an absolute local date-time.
func ResolveReminderTime(raw string, now time.Time) (time.Time, error) {
	raw = strings.TrimSpace(raw)
	switch strings.ToLower(raw) {
	case "later":
		return LaterToday(now), nil
	case "morning":
		return TomorrowMorning(now), nil
	}
	if strings.HasPrefix(raw, "+") {
		d, err := time.ParseDuration(raw[1:])
		if err != nil || d <= 0 {
			return time.Time{}, fmt.Errorf("invalid offset %q", raw)
		}
		return now.Add(d), nil
	}
	return model.ParseReminder(raw, now.Location())
}
