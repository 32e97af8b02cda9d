package service_test

import (
	"context"
	"errors"
	"sort"
	"sync"
	"time"

	"dailyflow/internal/clock"
	"dailyflow/internal/model"
	"dailyflow/internal/repository"
	"dailyflow/internal/service"
	pkgLog "dailyflow/pkg/log"
)

var (
	errStoreDown = errors.New("store down")
	start        = time.Date(2024, time.January, 1, 9, 0, 0, 0, time.UTC)
)

// memStore is an in-memory TaskStore and StreakStore.
type memStore struct {
	mu     sync.Mutex
	tasks  map[uint]model.Task
	deps   []model.TaskDependency
	streak model.Streak
	nextID uint

	failCount bool
	failSave  bool
}

func newMemStore() *memStore {
	return &memStore{tasks: make(map[uint]model.Task), streak: model.Streak{ID: model.StreakID}}
}

func (s *memStore) Save(_ context.Context, task *model.Task) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.failSave {
		return errStoreDown
	}
	if task.ID == 0 {
		s.nextID++
		task.ID = s.nextID
	}
	s.tasks[task.ID] = *task
	return nil
}

func (s *memStore) FindByID(_ context.Context, id uint) (*model.Task, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	t, ok := s.tasks[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	return &t, nil
}

func (s *memStore) FindAll(_ context.Context) ([]model.Task, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]model.Task, 0, len(s.tasks))
	for _, t := range s.tasks {
		out = append(out, t)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (s *memStore) DeleteByID(_ context.Context, id uint) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.tasks, id)
	kept := s.deps[:0]
	for _, d := range s.deps {
		if d.PredecessorID != id && d.SuccessorID != id {
			kept = append(kept, d)
		}
	}
	s.deps = kept
	return nil
}

func (s *memStore) AddDependency(_ context.Context, pred, succ uint) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, d := range s.deps {
		if d.PredecessorID == pred && d.SuccessorID == succ {
			return nil
		}
	}
	s.deps = append(s.deps, model.TaskDependency{PredecessorID: pred, SuccessorID: succ})
	return nil
}

func (s *memStore) RemoveDependency(_ context.Context, pred, succ uint) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for i, d := range s.deps {
		if d.PredecessorID == pred && d.SuccessorID == succ {
			s.deps = append(s.deps[:i], s.deps[i+1:]...)
			return nil
		}
	}
	return nil
}

func (s *memStore) CountIncompletePredecessors(_ context.Context, taskID uint) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.failCount {
		return 0, errStoreDown
	}
	n := 0
	for _, d := range s.deps {
		if d.SuccessorID != taskID {
			continue
		}
		if p, ok := s.tasks[d.PredecessorID]; ok && p.Status != model.StatusCompleted {
			n++
		}
	}
	return n, nil
}

func (s *memStore) ListDependencies(_ context.Context) ([]model.TaskDependency, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]model.TaskDependency(nil), s.deps...), nil
}

func (s *memStore) DeleteCompletedBefore(_ context.Context, cutoff time.Time) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	n := 0
	for id, t := range s.tasks {
		if t.Status == model.StatusCompleted && t.CompletedAt != nil && t.CompletedAt.Before(cutoff) {
			delete(s.tasks, id)
			n++
		}
	}
	return n, nil
}

// streakStore adapts memStore to StreakStore; the method names clash with TaskStore.
type streakStore struct{ s *memStore }

func (st streakStore) Get(context.Context) (model.Streak, error) {
	st.s.mu.Lock()
	defer st.s.mu.Unlock()
	return st.s.streak, nil
}

func (st streakStore) Save(_ context.Context, streak model.Streak) error {
	st.s.mu.Lock()
	defer st.s.mu.Unlock()
	st.s.streak = streak
	return nil
}

type notification struct {
	title   string
	message string
	at      time.Time
}

type recordingSink struct {
	mu    sync.Mutex
	clock clock.Clock
	got   []notification
}

func (r *recordingSink) Notify(title, message string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.got = append(r.got, notification{title: title, message: message, at: r.clock.Now()})
}

func (r *recordingSink) notifications() []notification {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]notification(nil), r.got...)
}

type fixture struct {
	store     *memStore
	clock     *clock.Fake
	sink      *recordingSink
	graph     *service.DependencyGraph
	streaks   *service.StreakTracker
	reminders *service.ReminderScheduler
	tasks     *service.TaskService
}

func newFixture() *fixture {
	l := pkgLog.NewNop()
	f := &fixture{store: newMemStore(), clock: clock.NewFake(start)}
	f.sink = &recordingSink{clock: f.clock}
	f.graph = service.NewDependencyGraph(f.store, l)
	f.streaks = service.NewStreakTracker(streakStore{f.store}, f.clock)
	f.reminders = service.NewReminderScheduler(f.clock, f.sink, l)
	f.tasks = service.NewTaskService(f.store, f.graph, f.streaks, f.reminders, f.clock, l)
	return f
}

// newReminderFixture has no TaskService, so its scheduler delivers without
// consulting the store.
func newReminderFixture() *fixture {
	f := &fixture{store: newMemStore(), clock: clock.NewFake(start)}
	f.sink = &recordingSink{clock: f.clock}
	f.reminders = service.NewReminderScheduler(f.clock, f.sink, pkgLog.NewNop())
	return f
}

// peer is a second process (the CLI) working on the same store with its own
// clock and scheduler.
type peer struct {
	clock     *clock.Fake
	sink      *recordingSink
	reminders *service.ReminderScheduler
	tasks     *service.TaskService
}

func newPeer(store *memStore, now time.Time) *peer {
	l := pkgLog.NewNop()
	p := &peer{clock: clock.NewFake(now)}
	p.sink = &recordingSink{clock: p.clock}
	p.reminders = service.NewReminderScheduler(p.clock, p.sink, l)
	graph := service.NewDependencyGraph(store, l)
	streaks := service.NewStreakTracker(streakStore{store}, p.clock)
	p.tasks = service.NewTaskService(store, graph, streaks, p.reminders, p.clock, l)
	return p
}
