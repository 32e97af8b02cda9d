package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"dailyflow/internal/model"
)

// TaskRepository handles CRUD for tasks and their dependency edges.
type TaskRepository struct {
	db *gorm.DB
}

func NewTaskRepository(db *gorm.DB) *TaskRepository {
	return &TaskRepository{db: db}
}

// Save inserts a task without an ID (assigning one) or overwrites an existing row.
func (r *TaskRepository) Save(ctx context.Context, task *model.Task) error {
	db := r.db.WithContext(ctx)
	if task.ID == 0 {
		if err := db.Create(task).Error; err != nil {
			return fmt.Errorf("create task: %w", err)
		}
		return nil
	}
	if err := db.Save(task).Error; err != nil {
		return fmt.Errorf("update task %d: %w", task.ID, err)
	}
	return nil
}

func (r *TaskRepository) FindByID(ctx context.Context, id uint) (*model.Task, error) {
	var task model.Task
	err := r.db.WithContext(ctx).First(&task, id).Error
	switch {
	case err == nil:
		return &task, nil
	case errors.Is(err, gorm.ErrRecordNotFound):
		return nil, fmt.Errorf("find task %d: %w", id, ErrNotFound)
	default:
		return nil, fmt.Errorf("find task %d: %w", id, err)
	}
}

// FindAll lists every task, dated ones first by due date.
func (r *TaskRepository) FindAll(ctx context.Context) ([]model.Task, error) {
	var tasks []model.Task
	if err := r.db.WithContext(ctx).
		Order("due_date IS NULL, due_date ASC, id ASC").
		Find(&tasks).Error; err != nil {
		return nil, fmt.Errorf("list tasks: %w", err)
	}
	return tasks, nil
}

// DeleteByID removes a task together with every edge touching it.
func (r *TaskRepository) DeleteByID(ctx context.Context, id uint) error {
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := deleteEdgesOf(tx, []uint{id}); err != nil {
			return err
		}
		return tx.Delete(&model.Task{}, id).Error
	})
	if err != nil {
		return fmt.Errorf("delete task %d: %w", id, err)
	}
	return nil
}

// AddDependency inserts the edge; inserting an existing edge is a no-op.
func (r *TaskRepository) AddDependency(ctx context.Context, predecessorID, successorID uint) error {
	dep := model.TaskDependency{PredecessorID: predecessorID, SuccessorID: successorID}
	if err := r.db.WithContext(ctx).Clauses(clause.OnConflict{DoNothing: true}).Create(&dep).Error; err != nil {
		return fmt.Errorf("add dependency %d->%d: %w", predecessorID, successorID, err)
	}
	return nil
}

func (r *TaskRepository) RemoveDependency(ctx context.Context, predecessorID, successorID uint) error {
	if err := r.db.WithContext(ctx).
		Where("predecessor_id = ? AND successor_id = ?", predecessorID, successorID).
		Delete(&model.TaskDependency{}).Error; err != nil {
		return fmt.Errorf("remove dependency %d->%d: %w", predecessorID, successorID, err)
	}
	return nil
}

// CountIncompletePredecessors counts predecessors of taskID that are not completed.
func (r *TaskRepository) CountIncompletePredecessors(ctx context.Context, taskID uint) (int, error) {
	var count int64
	if err := r.db.WithContext(ctx).
		Model(&model.TaskDependency{}).
		Joins("JOIN tasks ON tasks.id = task_dependencies.predecessor_id").
		Where("task_dependencies.successor_id = ? AND tasks.status <> ?", taskID, model.StatusCompleted).
		Count(&count).Error; err != nil {
		return 0, fmt.Errorf("count predecessors of %d: %w", taskID, err)
	}
	return int(count), nil
}

func (r *TaskRepository) ListDependencies(ctx context.Context) ([]model.TaskDependency, error) {
	var deps []model.TaskDependency
	if err := r.db.WithContext(ctx).Order("predecessor_id, successor_id").Find(&deps).Error; err != nil {
		return nil, fmt.Errorf("list dependencies: %w", err)
	}
	return deps, nil
}

// DeleteCompletedBefore removes completed tasks whose completion time is older than cutoff.
func (r *TaskRepository) DeleteCompletedBefore(ctx context.Context, cutoff time.Time) (int, error) {
	var deleted int
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var ids []uint
		if err := tx.Model(&model.Task{}).
			Where("status = ? AND completed_at IS NOT NULL AND completed_at < ?", model.StatusCompleted, cutoff).
			Pluck("id", &ids).Error; err != nil {
			return err
		}
		if len(ids) == 0 {
			return nil
		}
		if err := deleteEdgesOf(tx, ids); err != nil {
			return err
		}
		res := tx.Where("id IN ?", ids).Delete(&model.Task{})
		if res.Error != nil {
			return res.Error
		}
		deleted = int(res.RowsAffected)
		return nil
	})
	if err != nil {
		return 0, fmt.Errorf("delete completed tasks: %w", err)
	}
	return deleted, nil
}

func deleteEdgesOf(tx *gorm.DB, ids []uint) error {
	return tx.Where("predecessor_id IN ? OR successor_id IN ?", ids, ids).
		Delete(&model.TaskDependency{}).Error
}
