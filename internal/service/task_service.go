package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"dailyflow/internal/clock"
	"dailyflow/internal/model"
	"dailyflow/internal/repository"
	"dailyflow/pkg/datemath"
	pkgLog "dailyflow/pkg/log"
)

const reminderLookupTimeout = 5 * time.Second

// TaskInput represents data required to create a task.
type TaskInput struct {
	Title      string
	Priority   model.Priority
	DueDate    datemath.NullDate
	Recurrence model.Recurrence
}

type CompletionOutcome int

const (
	OutcomeCompleted CompletionOutcome = iota
	OutcomeBlocked
	OutcomeAlreadyCompleted
)

func (o CompletionOutcome) String() string {
	switch o {
	case OutcomeCompleted:
		return "completed"
	case OutcomeBlocked:
		return "blocked"
	case OutcomeAlreadyCompleted:
		return "already completed"
	default:
		return fmt.Sprintf("outcome(%d)", int(o))
	}
}

// CompletionResult describes what CompleteTask did.
type CompletionResult struct {
	Outcome CompletionOutcome
	Task    *model.Task
	// Next is the generated recurrence instance, nil when none was created.
	Next   *model.Task
	Streak model.Streak
	// BlockedBy lists unfinished predecessors when Outcome is OutcomeBlocked.
	BlockedBy []uint
}

// TaskService wraps the task lifecycle: creation, completion with its side
// effects, reminders and dependencies.
type TaskService struct {
	store     TaskStore
	graph     *DependencyGraph
	streaks   *StreakTracker
	reminders *ReminderScheduler
	clock     clock.Clock
	l         pkgLog.Logger
}

func NewTaskService(
	store TaskStore,
	graph *DependencyGraph,
	streaks *StreakTracker,
	reminders *ReminderScheduler,
	c clock.Clock,
	l pkgLog.Logger,
) *TaskService {
	s := &TaskService{
		store:     store,
		graph:     graph,
		streaks:   streaks,
		reminders: reminders,
		clock:     c,
		l:         l,
	}
	reminders.guard = s.reminderStillStored
	return s
}

func (s *TaskService) CreateTask(ctx context.Context, input TaskInput) (*model.Task, error) {
	title := model.NormalizeTitle(input.Title)
	if title == "" {
		return nil, ErrEmptyTitle
	}

	task := model.Task{
		Title:      title,
		Priority:   input.Priority,
		DueDate:    input.DueDate,
		Status:     model.StatusPending,
		Recurrence: input.Recurrence,
	}
	task.Normalize()

	if err := s.store.Save(ctx, &task); err != nil {
		return nil, fmt.Errorf("create task: %w", err)
	}
	s.l.Infof(ctx, "task %d created: %s", task.ID, task.Title)
	return &task, nil
}

func (s *TaskService) GetTask(ctx context.Context, id uint) (*model.Task, error) {
	task, err := s.store.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, fmt.Errorf("task %d: %w", id, ErrTaskNotFound)
		}
		return nil, fmt.Errorf("get task %d: %w", id, err)
	}
	task.Normalize()
	return task, nil
}

func (s *TaskService) ListTasks(ctx context.Context) ([]model.Task, error) {
	tasks, err := s.store.FindAll(ctx)
	if err != nil {
		return nil, fmt.Errorf("list tasks: %w", err)
	}
	for i := range tasks {
		tasks[i].Normalize()
	}
	return tasks, nil
}

// CompleteTask marks a task as done when none of its predecessors is pending.
// On success the task's reminder is dropped, the streak advances and, for a
// recurring task, the next instance is created.
func (s *TaskService) CompleteTask(ctx context.Context, id uint) (CompletionResult, error) {
	task, err := s.GetTask(ctx, id)
	if err != nil {
		return CompletionResult{}, err
	}

	if task.IsCompleted() {
		return CompletionResult{Outcome: OutcomeAlreadyCompleted, Task: task}, nil
	}

	if !s.graph.CanStart(ctx, id) {
		return CompletionResult{Outcome: OutcomeBlocked, Task: task, BlockedBy: s.blockers(ctx, id)}, nil
	}

	task.MarkCompleted(s.clock.Now())
	task.ReminderAt = nil
	if err := s.store.Save(ctx, task); err != nil {
		return CompletionResult{}, fmt.Errorf("complete task %d: %w", id, err)
	}
	s.reminders.Cancel(id)

	result := CompletionResult{Outcome: OutcomeCompleted, Task: task}

	streak, err := s.streaks.OnCompleted(ctx)
	if err != nil {
		s.l.Errorf(ctx, "task %d completed but streak not updated: %v", id, err)
	}
	result.Streak = streak

	next, ok := NextOccurrence(*task, s.clock.Today())
	if ok {
		if err := s.store.Save(ctx, next); err != nil {
			return result, fmt.Errorf("save next occurrence of task %d: %w", id, err)
		}
		result.Next = next
		s.l.Infof(ctx, "task %d recurs as task %d due %s", id, next.ID, next.DueDate)
	}

	return result, nil
}

// ReopenTask moves a completed task back to pending. The streak is left alone.
func (s *TaskService) ReopenTask(ctx context.Context, id uint) (*model.Task, error) {
	task, err := s.GetTask(ctx, id)
	if err != nil {
		return nil, err
	}
	if !task.IsCompleted() {
		return task, nil
	}
	task.Reopen()
	if err := s.store.Save(ctx, task); err != nil {
		return nil, fmt.Errorf("reopen task %d: %w", id, err)
	}
	return task, nil
}

// DeleteTask removes a task completely, with its reminder and dependency edges.
func (s *TaskService) DeleteTask(ctx context.Context, id uint) error {
	if _, err := s.GetTask(ctx, id); err != nil {
		return err
	}
	s.reminders.Cancel(id)
	if err := s.store.DeleteByID(ctx, id); err != nil {
		return fmt.Errorf("delete task %d: %w", id, err)
	}
	return nil
}

// SetReminder stores and arms a reminder. A reminder that is already due is
// delivered immediately and not stored.
func (s *TaskService) SetReminder(ctx context.Context, id uint, when time.Time) (*model.Task, error) {
	task, err := s.GetTask(ctx, id)
	if err != nil {
		return nil, err
	}

	if when.After(s.clock.Now()) {
		at := model.FormatReminder(when)
		task.ReminderAt = &at
	} else {
		task.ReminderAt = nil
	}
	if err := s.store.Save(ctx, task); err != nil {
		return nil, fmt.Errorf("set reminder of task %d: %w", id, err)
	}

	s.reminders.Schedule(task.ID, task.Title, when)
	return task, nil
}

func (s *TaskService) ClearReminder(ctx context.Context, id uint) (*model.Task, error) {
	task, err := s.GetTask(ctx, id)
	if err != nil {
		return nil, err
	}
	s.reminders.Cancel(id)
	if !task.HasReminder() {
		return task, nil
	}
	task.ReminderAt = nil
	if err := s.store.Save(ctx, task); err != nil {
		return nil, fmt.Errorf("clear reminder of task %d: %w", id, err)
	}
	return task, nil
}

// LoadReminders arms the stored reminders after a restart.
func (s *TaskService) LoadReminders(ctx context.Context) (int, error) {
	tasks, err := s.ListTasks(ctx)
	if err != nil {
		return 0, err
	}
	return s.reminders.ReloadPending(tasks), nil
}

// SyncReminders reconciles the armed reminders with the store, picking up
// reminders set, changed or cleared by another process on the same database.
func (s *TaskService) SyncReminders(ctx context.Context) (SyncResult, error) {
	tasks, err := s.ListTasks(ctx)
	if err != nil {
		return SyncResult{}, err
	}
	return s.reminders.Sync(tasks), nil
}

// reminderStillStored re-reads the task before a timer delivers. A store
// failure lets the reminder through.
func (s *TaskService) reminderStillStored(taskID uint, stamp string) (string, bool) {
	ctx, cancel := context.WithTimeout(context.Background(), reminderLookupTimeout)
	defer cancel()

	task, err := s.store.FindByID(ctx, taskID)
	if errors.Is(err, repository.ErrNotFound) {
		return "", false
	}
	if err != nil {
		s.l.Warnf(ctx, "check reminder of task %d: %v", taskID, err)
		return "", true
	}
	if task.IsCompleted() || !task.HasReminder() {
		return "", false
	}
	at, err := model.ParseReminder(*task.ReminderAt, s.clock.Now().Location())
	if err != nil || model.FormatReminder(at) != stamp {
		return "", false
	}
	return task.Title, true
}

// AddDependency makes successorID wait for predecessorID.
func (s *TaskService) AddDependency(ctx context.Context, predecessorID, successorID uint) error {
	for _, id := range []uint{predecessorID, successorID} {
		if _, err := s.GetTask(ctx, id); err != nil {
			return err
		}
	}
	return s.graph.AddEdge(ctx, predecessorID, successorID)
}

func (s *TaskService) RemoveDependency(ctx context.Context, predecessorID, successorID uint) error {
	if err := s.graph.RemoveEdge(ctx, predecessorID, successorID); err != nil {
		return fmt.Errorf("remove dependency %d->%d: %w", predecessorID, successorID, err)
	}
	return nil
}

// RecordPomodoro counts one finished work interval against the task.
func (s *TaskService) RecordPomodoro(ctx context.Context, id uint) (*model.Task, error) {
	task, err := s.GetTask(ctx, id)
	if err != nil {
		return nil, err
	}
	task.PomodoroCount++
	if err := s.store.Save(ctx, task); err != nil {
		return nil, fmt.Errorf("record pomodoro for task %d: %w", id, err)
	}
	return task, nil
}

// BlockedTasks returns the pending tasks that still wait on a predecessor.
func (s *TaskService) BlockedTasks(ctx context.Context) (map[uint]bool, error) {
	tasks, err := s.store.FindAll(ctx)
	if err != nil {
		return nil, fmt.Errorf("list blocked tasks: %w", err)
	}
	deps, err := s.store.ListDependencies(ctx)
	if err != nil {
		return nil, fmt.Errorf("list blocked tasks: %w", err)
	}
	return s.graph.Blocked(tasks, deps), nil
}

func (s *TaskService) Streak(ctx context.Context) (model.Streak, error) {
	return s.streaks.Current(ctx)
}

// CleanupCompleted deletes tasks completed more than olderThan ago.
func (s *TaskService) CleanupCompleted(ctx context.Context, olderThan time.Duration) (int, error) {
	cutoff := s.clock.Now().Add(-olderThan)
	n, err := s.store.DeleteCompletedBefore(ctx, cutoff)
	if err != nil {
		return 0, fmt.Errorf("cleanup completed tasks: %w", err)
	}
	if n > 0 {
		s.l.Infof(ctx, "cleaned up %d completed tasks", n)
	}
	return n, nil
}

// blockers lists the unfinished predecessors of a task. Lookup failures
// simply shorten the list.
func (s *TaskService) blockers(ctx context.Context, id uint) []uint {
	preds, err := s.graph.Predecessors(ctx, id)
	if err != nil {
		s.l.Warnf(ctx, "list blockers of task %d: %v", id, err)
		return nil
	}
	var out []uint
	for _, p := range preds {
		t, err := s.store.FindByID(ctx, p)
		if err != nil || t.IsCompleted() {
			continue
		}
		out = append(out, p)
	}
	return out
}
