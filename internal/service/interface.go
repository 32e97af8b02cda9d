package service

import (
	"context"
	"time"

	"dailyflow/internal/model"
)

// TaskStore is the persistence contract the lifecycle engine runs on.
// FindByID reports a missing task with an error wrapping repository.ErrNotFound.
type TaskStore interface {
	Save(ctx context.Context, task *model.Task) error
	FindByID(ctx context.Context, id uint) (*model.Task, error)
	FindAll(ctx context.Context) ([]model.Task, error)
	DeleteByID(ctx context.Context, id uint) error
	AddDependency(ctx context.Context, predecessorID, successorID uint) error
	RemoveDependency(ctx context.Context, predecessorID, successorID uint) error
	CountIncompletePredecessors(ctx context.Context, taskID uint) (int, error)
	ListDependencies(ctx context.Context) ([]model.TaskDependency, error)
	DeleteCompletedBefore(ctx context.Context, cutoff time.Time) (int, error)
}

// StreakStore persists the single streak record.
type StreakStore interface {
	Get(ctx context.Context) (model.Streak, error)
	Save(ctx context.Context, streak model.Streak) error
}

// NotificationSink delivers a user-visible notification. Delivery is fire-and-forget.
type NotificationSink interface {
	Notify(title, message string)
}
